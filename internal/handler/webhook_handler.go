package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/armada-suites/service-booking/internal/application"
	"github.com/armada-suites/service-booking/internal/domain/domainerr"
	"github.com/armada-suites/service-booking/internal/domain/payment"
	"github.com/armada-suites/service-booking/internal/provider/stripe"
)

// WebhookHandler receives asynchronous provider notifications.
type WebhookHandler struct {
	payments      *application.PaymentService
	bookings      *application.BookingService
	webhookSecret string
	logger        *zap.Logger
}

func NewWebhookHandler(payments *application.PaymentService, bookings *application.BookingService, webhookSecret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		payments:      payments,
		bookings:      bookings,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// RegisterRoutes mounts the webhook endpoints on the unauthenticated
// router. Authenticity comes from the signature, not a token.
func (h *WebhookHandler) RegisterRoutes(r *gin.Engine) {
	r.POST("/webhooks/stripe", h.Stripe)
}

// Stripe handles POST /webhooks/stripe. The signature is verified over the
// raw body before any record is touched; a bad signature is a hard 400.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	event, err := stripe.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		h.logger.Warn("stripe webhook rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	ctx := c.Request.Context()
	intentID := event.Data.Object.ID

	switch event.Type {
	case "payment_intent.succeeded":
		dto, err := h.payments.GetPaymentByTransactionID(ctx, intentID)
		if err != nil {
			// Unknown intents are acknowledged so the provider stops
			// retrying; the event id is logged for manual follow-up.
			h.logger.Warn("webhook for unknown payment intent",
				zap.String("event_id", event.ID),
				zap.String("intent_id", intentID),
			)
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		if err := h.bookings.UpdatePaymentStatus(ctx, dto.ID, payment.StatusCompleted, intentID, ""); err != nil {
			h.handleUpdateError(c, err, event.ID)
			return
		}

	case "payment_intent.payment_failed":
		dto, err := h.payments.GetPaymentByTransactionID(ctx, intentID)
		if err != nil {
			h.logger.Warn("webhook for unknown payment intent",
				zap.String("event_id", event.ID),
				zap.String("intent_id", intentID),
			)
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		reason := "payment failed"
		if event.Data.Object.LastPaymentError != nil && event.Data.Object.LastPaymentError.Message != "" {
			reason = event.Data.Object.LastPaymentError.Message
		}
		if err := h.bookings.UpdatePaymentStatus(ctx, dto.ID, payment.StatusFailed, intentID, reason); err != nil {
			h.handleUpdateError(c, err, event.ID)
			return
		}

	default:
		h.logger.Debug("ignoring stripe event", zap.String("type", event.Type))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// handleUpdateError acknowledges replays of terminal transitions and
// surfaces real failures so the provider retries.
func (h *WebhookHandler) handleUpdateError(c *gin.Context, err error, eventID string) {
	if domainerr.IsKind(err, domainerr.ErrInvalidState) {
		h.logger.Info("webhook replay ignored", zap.String("event_id", eventID))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	h.logger.Error("webhook processing failed",
		zap.String("event_id", eventID),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
}
