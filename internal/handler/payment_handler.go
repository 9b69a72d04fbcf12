package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/armada-suites/service-booking/internal/application"
	"github.com/armada-suites/service-booking/internal/platform/auth"
	"github.com/armada-suites/service-booking/internal/platform/response"
)

// PaymentHandler exposes payment lookup, status polling and refunds.
type PaymentHandler struct {
	payments *application.PaymentService
	bookings *application.BookingService
	logger   *zap.Logger
}

func NewPaymentHandler(payments *application.PaymentService, bookings *application.BookingService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, bookings: bookings, logger: logger}
}

// RegisterRoutes mounts the payment endpoints. Refunds require an admin
// token.
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup, jwtManager *auth.JWTManager) {
	payments := rg.Group("/payments")
	{
		payments.GET("/:id", h.Get)
		payments.GET("/:id/status", h.CheckStatus)
	}

	admin := rg.Group("/payments", auth.Middleware(jwtManager), auth.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/:id/refund", h.Refund)
	}
}

// Get handles GET /payments/:id.
func (h *PaymentHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment id")
		return
	}

	dto, err := h.payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// CheckStatus handles GET /payments/:id/status. For mobile-money payments
// it polls the provider and reconciles any change through the same path
// webhooks use.
func (h *PaymentHandler) CheckStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment id")
		return
	}

	dto, polled, err := h.payments.CheckMobileMoneyStatus(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	if string(polled.Status) != dto.Status {
		if err := h.bookings.UpdatePaymentStatus(c.Request.Context(), id, polled.Status, polled.TransactionID, ""); err != nil {
			h.logger.Warn("failed to reconcile polled status",
				zap.String("payment_id", id.String()),
				zap.Error(err),
			)
		} else {
			refreshed, err := h.payments.GetPayment(c.Request.Context(), id)
			if err == nil {
				dto = refreshed
			}
		}
	}
	response.Success(c, dto)
}

type refundRequest struct {
	Reason string          `json:"reason" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// Refund handles POST /payments/:id/refund. Omitting amount refunds the
// full payment.
func (h *PaymentHandler) Refund(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment id")
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Amount.IsNegative() {
		response.BadRequest(c, "amount must be positive")
		return
	}

	resp := h.payments.ProcessRefund(c.Request.Context(), id, req.Amount, req.Reason)
	response.Success(c, resp)
}
