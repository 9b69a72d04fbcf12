package stripe

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/armada-suites/service-booking/internal/provider"
)

// MockGateway simulates the card gateway for development environments
// where no Stripe account is configured.
type MockGateway struct {
	logger *zap.Logger
}

// NewMockGateway creates a mock card gateway.
func NewMockGateway(logger *zap.Logger) *MockGateway {
	return &MockGateway{logger: logger}
}

// CreatePaymentIntent returns mock intent ids.
func (m *MockGateway) CreatePaymentIntent(ctx context.Context, amountCents int64, currency, customerEmail, reference string) (provider.IntentResult, error) {
	intentID := fmt.Sprintf("pi_mock_%s", uuid.New().String()[:8])
	m.logger.Info("[MOCK STRIPE] PaymentIntent created",
		zap.String("intent_id", intentID),
		zap.Int64("amount_cents", amountCents),
		zap.String("currency", currency),
		zap.String("reference", reference),
	)
	return provider.IntentResult{
		IntentID:     intentID,
		ClientSecret: intentID + "_secret_mock",
	}, nil
}

// CreateRefund returns a mock refund id.
func (m *MockGateway) CreateRefund(ctx context.Context, intentID string, amountCents int64) (string, error) {
	refundID := fmt.Sprintf("re_mock_%s", uuid.New().String()[:8])
	m.logger.Info("[MOCK STRIPE] Refund created",
		zap.String("refund_id", refundID),
		zap.String("intent_id", intentID),
		zap.Int64("amount_cents", amountCents),
	)
	return refundID, nil
}
