package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/armada-suites/service-booking/internal/application"
	"github.com/armada-suites/service-booking/internal/domain/payment"
	"github.com/armada-suites/service-booking/internal/platform/auth"
	"github.com/armada-suites/service-booking/internal/platform/response"
)

// AdminHandler exposes back-office endpoints for staff and admins.
type AdminHandler struct {
	payments *application.PaymentService
	bookings *application.BookingService
	logger   *zap.Logger
}

func NewAdminHandler(payments *application.PaymentService, bookings *application.BookingService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{payments: payments, bookings: bookings, logger: logger}
}

// RegisterRoutes mounts the admin endpoints behind JWT auth with the admin
// role.
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup, jwtManager *auth.JWTManager) {
	admin := rg.Group("/admin", auth.Middleware(jwtManager), auth.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/payments", h.ListPayments)
		admin.GET("/payments/stats", h.PaymentStats)
		admin.POST("/payments/:id/complete", h.CompleteBankTransfer)
	}
}

func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// ListBookings handles GET /admin/bookings.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	page, limit := pagination(c)
	bookings, total, err := h.bookings.ListBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"bookings": bookings,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// ListPayments handles GET /admin/payments.
func (h *AdminHandler) ListPayments(c *gin.Context) {
	page, limit := pagination(c)
	payments, total, err := h.payments.ListAllPayments(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"payments": payments,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// PaymentStats handles GET /admin/payments/stats.
func (h *AdminHandler) PaymentStats(c *gin.Context) {
	stats, err := h.payments.GetPaymentStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

type completeTransferRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
}

// CompleteBankTransfer handles POST /admin/payments/:id/complete. Bank
// transfers are settled manually once the funds show up; this records the
// settlement and cascades booking confirmation.
func (h *AdminHandler) CompleteBankTransfer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment id")
		return
	}

	var req completeTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if claims, ok := auth.GetClaims(c); ok {
		h.logger.Info("manual settlement recorded",
			zap.String("payment_id", id.String()),
			zap.String("settled_by", claims.UserID.String()),
		)
	}

	if err := h.bookings.UpdatePaymentStatus(c.Request.Context(), id, payment.StatusCompleted, req.TransactionID, ""); err != nil {
		response.Error(c, err)
		return
	}

	dto, err := h.payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}
