package application

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/armada-suites/service-booking/internal/domain/payment"
	"github.com/armada-suites/service-booking/internal/events"
	"github.com/armada-suites/service-booking/internal/fx"
	"github.com/armada-suites/service-booking/internal/phone"
	"github.com/armada-suites/service-booking/internal/provider"
)

// MethodDetails is the sealed union of per-method payment inputs. Exactly
// one variant accompanies each payment request, so dispatch is a type
// switch over concrete cases rather than a string comparison with a
// runtime default.
type MethodDetails interface {
	PaymentMethod() payment.Method

	isMethodDetails()
}

// CardDetails selects the card rail. Confirmation happens client-side with
// the returned secret, so no card data crosses this service.
type CardDetails struct{}

func (CardDetails) PaymentMethod() payment.Method { return payment.MethodCard }
func (CardDetails) isMethodDetails()              {}

// MobileMoneyDetails selects the mobile-money rail.
type MobileMoneyDetails struct {
	PhoneNumber string
}

func (MobileMoneyDetails) PaymentMethod() payment.Method { return payment.MethodMobileMoney }
func (MobileMoneyDetails) isMethodDetails()              {}

// BankTransferDetails selects a manual bank transfer.
type BankTransferDetails struct{}

func (BankTransferDetails) PaymentMethod() payment.Method { return payment.MethodBankTransfer }
func (BankTransferDetails) isMethodDetails()              {}

// PayPalDetails selects the (unimplemented) PayPal rail.
type PayPalDetails struct{}

func (PayPalDetails) PaymentMethod() payment.Method { return payment.MethodPayPal }
func (PayPalDetails) isMethodDetails()              {}

// ProcessPaymentRequest is the normalized input for payment dispatch.
type ProcessPaymentRequest struct {
	BookingID     uuid.UUID
	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string
	CustomerName  string
	Description   string
	Details       MethodDetails
}

// PaymentResponse is the normalized outcome shape, identical across
// providers. Success for asynchronous rails means the request was accepted
// for processing, not that money moved.
type PaymentResponse struct {
	Success       bool       `json:"success"`
	PaymentID     *uuid.UUID `json:"payment_id,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	Status        string     `json:"status"`
	Message       string     `json:"message"`
	ClientSecret  string     `json:"client_secret,omitempty"`
	RedirectURL   string     `json:"redirect_url,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// StatusRequiresAction is the response status for card payments awaiting
// client-side confirmation. It is a response-level state, not a persisted
// payment status: the record stays pending until the webhook lands.
const StatusRequiresAction = "requires_action"

// EventPublisher is the slice of the Kafka publisher the services use.
// Publishing is best-effort; implementations swallow delivery errors.
type EventPublisher interface {
	TryPublish(ctx context.Context, topic, eventType string, data interface{})
}

// PaymentService orchestrates payment dispatch across the supported rails.
type PaymentService struct {
	repo      payment.Repository
	card      provider.CardGateway
	mtn       provider.MobileMoneyClient
	airtel    provider.MobileMoneyClient
	converter fx.Converter
	publisher EventPublisher
	logger    *zap.Logger
}

// NewPaymentService creates a PaymentService. The mobile-money clients may
// be nil when their credentials are not configured; the matching branch
// then reports "not configured" instead of dispatching.
func NewPaymentService(
	repo payment.Repository,
	card provider.CardGateway,
	mtn provider.MobileMoneyClient,
	airtel provider.MobileMoneyClient,
	converter fx.Converter,
	publisher EventPublisher,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		repo:      repo,
		card:      card,
		mtn:       mtn,
		airtel:    airtel,
		converter: converter,
		publisher: publisher,
		logger:    logger,
	}
}

// ProcessPayment validates, dispatches to exactly one provider branch, and
// returns the normalized response. All failures are recovered into the
// response shape; nothing above the provider clients sees a raw error.
func (s *PaymentService) ProcessPayment(ctx context.Context, req ProcessPaymentRequest) *PaymentResponse {
	if req.BookingID == uuid.Nil {
		return failure("booking id is required", "missing bookingId")
	}
	if !req.Amount.IsPositive() {
		return failure("payment amount must be positive", "invalid amount")
	}
	if req.Details == nil {
		return failure("payment method is required", "missing payment method")
	}

	s.logger.Info("processing payment",
		zap.String("booking_id", req.BookingID.String()),
		zap.String("method", string(req.Details.PaymentMethod())),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", req.Currency),
	)

	switch details := req.Details.(type) {
	case CardDetails:
		return s.processCard(ctx, req)
	case MobileMoneyDetails:
		return s.processMobileMoney(ctx, req, details)
	case BankTransferDetails:
		return s.processBankTransfer(ctx, req)
	case PayPalDetails:
		return failure("PayPal payments are not yet available", "not supported")
	default:
		return failure("unsupported payment method", "not supported")
	}
}

// processCard creates a provider payment intent and persists a pending
// record keyed by the intent id. Completion is exclusively webhook-driven.
func (s *PaymentService) processCard(ctx context.Context, req ProcessPaymentRequest) *PaymentResponse {
	amount := req.Amount
	currency := req.Currency

	// Cards settle in USD. The static-rate conversion is a lossy
	// placeholder for a real FX feed; see fx.StaticConverter.
	if currency != "" && currency != "USD" {
		usd, err := s.converter.ToUSD(amount, currency)
		if err != nil {
			return failure("unsupported currency for card payments", err.Error())
		}
		amount = usd
		currency = "USD"
	}
	amountCents := fx.MinorUnits(amount, currency)
	if amountCents <= 0 {
		return failure("amount too small for card processing", "invalid amount")
	}

	intent, err := s.card.CreatePaymentIntent(ctx, amountCents, currency, req.CustomerEmail, payment.NewReference())
	if err != nil {
		s.logger.Error("card intent creation failed", zap.Error(err))
		return failure("card payment could not be initiated", "provider error")
	}

	p := payment.NewPayment(req.BookingID, payment.MethodCard, payment.ProviderStripe, amountCents, currency, payment.NewReference())
	p.SetTransactionID(intent.IntentID)
	p.AddMetadata("original_amount", req.Amount.String())
	p.AddMetadata("original_currency", req.Currency)

	if err := s.repo.Save(ctx, p); err != nil {
		s.logger.Error("failed to persist card payment", zap.Error(err))
		return failure("card payment could not be recorded", "internal error")
	}

	id := p.ID()
	return &PaymentResponse{
		Success:       true,
		PaymentID:     &id,
		TransactionID: intent.IntentID,
		Status:        StatusRequiresAction,
		Message:       "Confirm the payment to complete your booking",
		ClientSecret:  intent.ClientSecret,
	}
}

// processMobileMoney routes on the subscriber's network and persists the
// provider-reported status. Failed provider calls still leave a failed
// record for the audit trail.
func (s *PaymentService) processMobileMoney(ctx context.Context, req ProcessPaymentRequest, details MobileMoneyDetails) *PaymentResponse {
	if details.PhoneNumber == "" {
		return failure("phone number is required for mobile money", "missing phoneNumber")
	}

	network, err := phone.Classify(details.PhoneNumber)
	if err != nil {
		return failure(err.Error(), "invalid phone number")
	}
	if network == phone.NetworkUnknown {
		return failure("unsupported phone number: only MTN and Airtel are accepted", "unsupported network")
	}

	var client provider.MobileMoneyClient
	var prov payment.Provider
	switch network {
	case phone.NetworkMTN:
		client, prov = s.mtn, payment.ProviderMTN
	case phone.NetworkAirtel:
		client, prov = s.airtel, payment.ProviderAirtel
	}
	if client == nil {
		return failure("mobile money is temporarily unavailable", string(prov)+" not configured")
	}

	msisdn, err := phone.Format(details.PhoneNumber, network)
	if err != nil {
		return failure(err.Error(), "invalid phone number")
	}

	reference := payment.NewReference()
	amountCents := fx.MinorUnits(req.Amount, req.Currency)

	p := payment.NewPayment(req.BookingID, payment.MethodMobileMoney, prov, amountCents, req.Currency, reference)
	p.SetPhoneNumber(msisdn)

	result, callErr := client.RequestToPay(ctx, provider.ChargeRequest{
		Reference:   reference,
		PhoneNumber: msisdn,
		AmountCents: amountCents,
		Currency:    p.Currency(),
		Description: req.Description,
	})
	if result.RawResponse != "" {
		p.AddMetadata("provider_response", result.RawResponse)
	}

	if callErr != nil {
		s.logger.Warn("mobile money dispatch failed",
			zap.String("provider", string(prov)),
			zap.String("reference", reference),
			zap.Error(callErr),
		)
		_ = p.MarkFailed(callErr.Error())
		if err := s.repo.Save(ctx, p); err != nil {
			s.logger.Error("failed to persist failed mobile money payment", zap.Error(err))
		}
		return failure("mobile money payment could not be initiated", "provider error")
	}

	if result.TransactionID != "" {
		p.SetTransactionID(result.TransactionID)
	}
	if result.Status == payment.StatusProcessing {
		_ = p.MarkProcessing()
	}

	if err := s.repo.Save(ctx, p); err != nil {
		s.logger.Error("failed to persist mobile money payment", zap.Error(err))
		return failure("mobile money payment could not be recorded", "internal error")
	}

	id := p.ID()
	return &PaymentResponse{
		Success:       true,
		PaymentID:     &id,
		TransactionID: p.TransactionID(),
		Status:        string(p.Status()),
		Message:       "Please approve the payment on your phone",
	}
}

// processBankTransfer records a pending payment and hands back a reference
// for manual transfer instructions. There is no automatic completion path:
// staff settle these by hand.
func (s *PaymentService) processBankTransfer(ctx context.Context, req ProcessPaymentRequest) *PaymentResponse {
	amountCents := fx.MinorUnits(req.Amount, req.Currency)
	p := payment.NewPayment(req.BookingID, payment.MethodBankTransfer, payment.ProviderBank, amountCents, req.Currency, payment.NewReference())

	if err := s.repo.Save(ctx, p); err != nil {
		s.logger.Error("failed to persist bank transfer payment", zap.Error(err))
		return failure("bank transfer could not be recorded", "internal error")
	}

	id := p.ID()
	return &PaymentResponse{
		Success:     true,
		PaymentID:   &id,
		Status:      string(payment.StatusPending),
		Message:     "Complete the transfer using the provided bank details",
		RedirectURL: "/payments/" + id.String() + "/instructions",
	}
}

// ProcessRefund refunds a completed card payment, fully when amount is
// zero or partially otherwise. Mobile money and bank transfers have no
// refund API in this integration; that is a deliberate, documented
// limitation. Eligibility is checked before the provider call so a local
// transition failure can never strand money refunded at the provider.
func (s *PaymentService) ProcessRefund(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal, reason string) *PaymentResponse {
	p, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return failure("payment not found", "not found")
	}

	if p.Provider() != payment.ProviderStripe || p.TransactionID() == "" {
		return failure("refunds are only supported for card payments", "not supported")
	}
	if p.Status() != payment.StatusCompleted {
		return failure("only completed payments can be refunded", "invalid state")
	}

	var refundCents int64
	if amount.IsPositive() {
		refundCents = fx.MinorUnits(amount, p.Currency())
		if refundCents > p.AmountCents() {
			return failure("refund amount exceeds the payment", "invalid amount")
		}
	}

	refundID, err := s.card.CreateRefund(ctx, p.TransactionID(), refundCents)
	if err != nil {
		s.logger.Error("refund failed",
			zap.String("payment_id", paymentID.String()),
			zap.Error(err),
		)
		return failure("refund could not be processed", "provider error")
	}

	refundedCents := refundCents
	if refundedCents == 0 {
		refundedCents = p.AmountCents()
	}

	if err := p.MarkRefunded(); err != nil {
		return failure("payment cannot be refunded in its current state", "invalid state")
	}
	p.AddMetadata("refund_id", refundID)
	p.AddMetadata("refund_reason", reason)
	p.AddMetadata("refund_amount_cents", strconv.FormatInt(refundedCents, 10))
	p.IncrementVersion()
	if err := s.repo.Update(ctx, p); err != nil {
		s.logger.Error("failed to persist refund", zap.Error(err))
		return failure("refund could not be recorded", "internal error")
	}

	s.publisher.TryPublish(ctx, events.TopicPaymentEvents, events.PaymentRefunded, events.PaymentRefundedEvent{
		PaymentID:   p.ID(),
		BookingID:   p.BookingID(),
		RefundID:    refundID,
		AmountCents: refundedCents,
		Currency:    p.Currency(),
		Reason:      reason,
		OccurredAt:  time.Now().UTC(),
	})

	id := p.ID()
	return &PaymentResponse{
		Success:   true,
		PaymentID: &id,
		Status:    string(payment.StatusRefunded),
		Message:   "Refund processed",
	}
}

// CheckMobileMoneyStatus polls the provider for the current status of a
// mobile-money payment. The returned result carries the provider's
// financial transaction id so settlement can record it. Rails without a
// pollable client echo the stored state back.
func (s *PaymentService) CheckMobileMoneyStatus(ctx context.Context, paymentID uuid.UUID) (*PaymentDTO, provider.ChargeResult, error) {
	p, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, provider.ChargeResult{}, err
	}

	var client provider.MobileMoneyClient
	switch p.Provider() {
	case payment.ProviderMTN:
		client = s.mtn
	case payment.ProviderAirtel:
		client = s.airtel
	}
	if client == nil {
		dto := toPaymentDTO(p)
		return &dto, provider.ChargeResult{TransactionID: p.TransactionID(), Status: p.Status()}, nil
	}

	result, err := client.CheckStatus(ctx, p.Reference())
	if err != nil {
		// Polling is advisory; return the stored status on provider errors.
		s.logger.Warn("status poll failed",
			zap.String("payment_id", paymentID.String()),
			zap.Error(err),
		)
		dto := toPaymentDTO(p)
		return &dto, provider.ChargeResult{TransactionID: p.TransactionID(), Status: p.Status()}, nil
	}

	dto := toPaymentDTO(p)
	return &dto, result, nil
}

// GetPaymentByTransactionID resolves a payment from a provider
// transaction id. Webhooks only carry the provider's identifier.
func (s *PaymentService) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*PaymentDTO, error) {
	p, err := s.repo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	dto := toPaymentDTO(p)
	return &dto, nil
}

// GetPayment retrieves a payment by its ID.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*PaymentDTO, error) {
	p, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	dto := toPaymentDTO(p)
	return &dto, nil
}

// ListPaymentsByBooking returns every payment attempt for a booking.
func (s *PaymentService) ListPaymentsByBooking(ctx context.Context, bookingID uuid.UUID) ([]PaymentDTO, error) {
	payments, err := s.repo.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos, nil
}

// --- Admin methods ---

// PaymentStatsDTO holds payment statistics for the admin dashboard.
type PaymentStatsDTO struct {
	TotalRevenueCents int64            `json:"total_revenue_cents"`
	TotalPayments     int64            `json:"total_payments"`
	ByStatus          map[string]int64 `json:"by_status"`
}

// ListAllPayments returns a paginated list of all payments (admin).
func (s *PaymentService) ListAllPayments(ctx context.Context, page, limit int) ([]PaymentDTO, int64, error) {
	payments, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos, total, nil
}

// GetPaymentStats returns aggregate payment statistics (admin).
func (s *PaymentService) GetPaymentStats(ctx context.Context) (*PaymentStatsDTO, error) {
	revenue, counts, err := s.repo.GetRevenueStats(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, c := range counts {
		total += c
	}
	return &PaymentStatsDTO{
		TotalRevenueCents: revenue,
		TotalPayments:     total,
		ByStatus:          counts,
	}, nil
}

// PaymentDTO is the API response shape for payment data. Provider
// diagnostics stay in logs and the metadata column; only user-safe fields
// leave the service.
type PaymentDTO struct {
	ID            uuid.UUID  `json:"id"`
	BookingID     uuid.UUID  `json:"booking_id"`
	Method        string     `json:"method"`
	Provider      string     `json:"provider"`
	TransactionID string     `json:"transaction_id,omitempty"`
	Reference     string     `json:"reference"`
	AmountCents   int64      `json:"amount_cents"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	PhoneNumber   string     `json:"phone_number,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// toPaymentDTO maps a domain Payment to a PaymentDTO.
func toPaymentDTO(p *payment.Payment) PaymentDTO {
	return PaymentDTO{
		ID:            p.ID(),
		BookingID:     p.BookingID(),
		Method:        string(p.Method()),
		Provider:      string(p.Provider()),
		TransactionID: p.TransactionID(),
		Reference:     p.Reference(),
		AmountCents:   p.AmountCents(),
		Currency:      p.Currency(),
		Status:        string(p.Status()),
		PhoneNumber:   p.PhoneNumber(),
		FailureReason: p.FailureReason(),
		ProcessedAt:   p.ProcessedAt(),
		CreatedAt:     p.CreatedAt(),
	}
}

// failure builds the structured failure response shared by every branch.
func failure(message, errDetail string) *PaymentResponse {
	return &PaymentResponse{
		Success: false,
		Status:  string(payment.StatusFailed),
		Message: message,
		Error:   errDetail,
	}
}
