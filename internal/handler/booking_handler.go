package handler

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/armada-suites/service-booking/internal/application"
	"github.com/armada-suites/service-booking/internal/domain/booking"
	"github.com/armada-suites/service-booking/internal/platform/auth"
	"github.com/armada-suites/service-booking/internal/platform/response"
)

// BookingHandler exposes the booking lifecycle over HTTP.
type BookingHandler struct {
	service *application.BookingService
	logger  *zap.Logger
}

func NewBookingHandler(service *application.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{service: service, logger: logger}
}

// RegisterRoutes mounts the booking endpoints. Creation and lookup are
// public; operational transitions require a staff token.
func (h *BookingHandler) RegisterRoutes(rg *gin.RouterGroup, jwtManager *auth.JWTManager) {
	bookings := rg.Group("/bookings")
	{
		bookings.POST("", h.Create)
		bookings.GET("/:reference", h.Get)
		bookings.POST("/:reference/cancel", h.Cancel)
	}

	staff := rg.Group("/bookings", auth.Middleware(jwtManager), auth.RequireRole(auth.RoleStaff))
	{
		staff.POST("/:reference/checkin", h.CheckIn)
		staff.POST("/:reference/complete", h.Complete)
		staff.POST("/:reference/no-show", h.MarkNoShow)
	}
}

type guestRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

type createBookingRequest struct {
	Guest         guestRequest    `json:"guest" binding:"required"`
	ServiceType   string          `json:"service_type" binding:"required"`
	Details       json.RawMessage `json:"details" binding:"required"`
	TotalAmount   decimal.Decimal `json:"total_amount" binding:"required"`
	Currency      string          `json:"currency" binding:"required"`
	Notes         string          `json:"notes"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
	PhoneNumber   string          `json:"phone_number"`
}

// Create handles POST /bookings.
func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	details, err := booking.DecodeDetails(booking.ServiceType(req.ServiceType), req.Details)
	if err != nil {
		response.Error(c, err)
		return
	}

	method, ok := methodDetails(req.PaymentMethod, req.PhoneNumber)
	if !ok {
		response.BadRequest(c, "unknown payment method: "+req.PaymentMethod)
		return
	}

	resp, err := h.service.CreateBooking(c.Request.Context(), application.CreateBookingRequest{
		Guest: application.GuestInput{
			Email: req.Guest.Email,
			Name:  req.Guest.Name,
			Phone: req.Guest.Phone,
		},
		Details:  details,
		Total:    req.TotalAmount,
		Currency: req.Currency,
		Notes:    req.Notes,
		Payment:  method,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// methodDetails maps the wire-level payment method to its typed variant.
func methodDetails(method, phoneNumber string) (application.MethodDetails, bool) {
	switch method {
	case "card":
		return application.CardDetails{}, true
	case "mobile_money":
		return application.MobileMoneyDetails{PhoneNumber: phoneNumber}, true
	case "bank_transfer":
		return application.BankTransferDetails{}, true
	case "paypal":
		return application.PayPalDetails{}, true
	default:
		return nil, false
	}
}

// Get handles GET /bookings/:reference.
func (h *BookingHandler) Get(c *gin.Context) {
	dto, err := h.service.GetBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

type cancelBookingRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Cancel handles POST /bookings/:reference/cancel.
func (h *BookingHandler) Cancel(c *gin.Context) {
	var req cancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	dto, err := h.service.GetBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}
	cancelled, err := h.service.CancelBooking(c.Request.Context(), dto.ID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cancelled)
}

// CheckIn handles POST /bookings/:reference/checkin.
func (h *BookingHandler) CheckIn(c *gin.Context) {
	h.transition(c, h.service.CheckIn)
}

// Complete handles POST /bookings/:reference/complete.
func (h *BookingHandler) Complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

// MarkNoShow handles POST /bookings/:reference/no-show.
func (h *BookingHandler) MarkNoShow(c *gin.Context) {
	h.transition(c, h.service.MarkNoShow)
}

func (h *BookingHandler) transition(c *gin.Context, op func(ctx context.Context, bookingID uuid.UUID) (*application.BookingDTO, error)) {
	dto, err := h.service.GetBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}
	updated, err := op(c.Request.Context(), dto.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, updated)
}
