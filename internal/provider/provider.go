// Package provider defines the anti-corruption layer between the payment
// service and external payment rails.
package provider

import (
	"context"

	"github.com/armada-suites/service-booking/internal/domain/payment"
)

// IntentResult is the normalized outcome of creating a card payment intent.
type IntentResult struct {
	IntentID     string
	ClientSecret string
}

// CardGateway wraps the card processor (Stripe).
type CardGateway interface {
	// CreatePaymentIntent creates an intent for client-side confirmation.
	// Completion is webhook-driven; a successful return only means the
	// intent exists.
	CreatePaymentIntent(ctx context.Context, amountCents int64, currency, customerEmail, reference string) (IntentResult, error)

	// CreateRefund refunds a captured intent. amountCents of 0 refunds the
	// full charge.
	CreateRefund(ctx context.Context, intentID string, amountCents int64) (refundID string, err error)
}

// ChargeRequest is a normalized mobile-money collection request.
type ChargeRequest struct {
	Reference   string
	PhoneNumber string // already formatted for the target provider
	AmountCents int64
	Currency    string
	Description string
}

// ChargeResult is the provider's synchronous answer to a collection
// request. Status reflects only request acceptance: the subscriber still
// has to approve on-device, so money has not moved yet.
type ChargeResult struct {
	TransactionID string
	Status        payment.Status
	RawResponse   string
}

// MobileMoneyClient wraps one mobile-money rail (MTN MoMo or Airtel Money).
type MobileMoneyClient interface {
	// Provider identifies the rail this client talks to.
	Provider() payment.Provider

	// RequestToPay asks the subscriber to approve a collection.
	RequestToPay(ctx context.Context, req ChargeRequest) (ChargeResult, error)

	// CheckStatus polls the provider for the current transaction status.
	// Rails without a polling API return an unavailable error.
	CheckStatus(ctx context.Context, reference string) (ChargeResult, error)
}
