package response

import (
	"errors"
	"net/http"

	"github.com/armada-suites/service-booking/internal/domain/domainerr"
	"github.com/gin-gonic/gin"
)

// Envelope is the uniform JSON body for all API responses.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success writes a 200 with the given payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 with the given payload.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Envelope{Success: false, Error: msg})
}

// Unauthorized writes a 401 with the given message.
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Envelope{Success: false, Error: msg})
}

// Error maps a domain error to the matching HTTP status. Unknown errors
// become an opaque 500 so internal detail never reaches the client.
func Error(c *gin.Context, err error) {
	var de *domainerr.DomainError
	if errors.As(err, &de) {
		switch {
		case errors.Is(de.Err, domainerr.ErrNotFound):
			c.JSON(http.StatusNotFound, Envelope{Success: false, Error: de.Message})
		case errors.Is(de.Err, domainerr.ErrValidation):
			c.JSON(http.StatusBadRequest, Envelope{Success: false, Error: de.Message})
		case errors.Is(de.Err, domainerr.ErrConflict):
			c.JSON(http.StatusConflict, Envelope{Success: false, Error: de.Message})
		case errors.Is(de.Err, domainerr.ErrInvalidState):
			c.JSON(http.StatusUnprocessableEntity, Envelope{Success: false, Error: de.Message})
		case errors.Is(de.Err, domainerr.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, Envelope{Success: false, Error: de.Message})
		case errors.Is(de.Err, domainerr.ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, Envelope{Success: false, Error: de.Message})
		default:
			c.JSON(http.StatusInternalServerError, Envelope{Success: false, Error: "internal server error"})
		}
		return
	}
	c.JSON(http.StatusInternalServerError, Envelope{Success: false, Error: "internal server error"})
}
