package application

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/armada-suites/service-booking/internal/domain/payment"
	"github.com/armada-suites/service-booking/internal/events"
	"github.com/armada-suites/service-booking/internal/fx"
)

type paymentFixture struct {
	svc       *PaymentService
	repo      *memPaymentRepo
	card      *fakeCardGateway
	mtn       *fakeMomoClient
	airtel    *fakeMomoClient
	publisher *recordingPublisher
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		repo:      newMemPaymentRepo(),
		card:      &fakeCardGateway{},
		mtn:       &fakeMomoClient{prov: payment.ProviderMTN},
		airtel:    &fakeMomoClient{prov: payment.ProviderAirtel},
		publisher: &recordingPublisher{},
	}
	f.svc = NewPaymentService(f.repo, f.card, f.mtn, f.airtel, fx.NewStaticConverter(), f.publisher, zap.NewNop())
	return f
}

func TestProcessPaymentValidation(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	t.Run("missing booking id", func(t *testing.T) {
		resp := f.svc.ProcessPayment(ctx, ProcessPaymentRequest{
			Amount:   decimal.NewFromInt(1000),
			Currency: "UGX",
			Details:  CardDetails{},
		})
		assert.False(t, resp.Success)
		assert.Zero(t, f.card.intents, "no provider call on validation failure")
		assert.Empty(t, f.repo.payments, "no record on validation failure")
	})

	t.Run("non-positive amount", func(t *testing.T) {
		resp := f.svc.ProcessPayment(ctx, ProcessPaymentRequest{
			BookingID: uuid.New(),
			Amount:    decimal.Zero,
			Currency:  "UGX",
			Details:   CardDetails{},
		})
		assert.False(t, resp.Success)
		assert.Zero(t, f.card.intents)
	})

	t.Run("missing method", func(t *testing.T) {
		resp := f.svc.ProcessPayment(ctx, ProcessPaymentRequest{
			BookingID: uuid.New(),
			Amount:    decimal.NewFromInt(1000),
			Currency:  "UGX",
		})
		assert.False(t, resp.Success)
	})
}

func TestProcessCardPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("converts to usd and returns client secret", func(t *testing.T) {
		f := newPaymentFixture()
		resp := f.svc.ProcessPayment(ctx, ProcessPaymentRequest{
			BookingID:     uuid.New(),
			Amount:        decimal.NewFromInt(100000),
			Currency:      "UGX",
			CustomerEmail: "guest@example.com",
			Details:       CardDetails{},
		})

		require.True(t, resp.Success)
		assert.Equal(t, StatusRequiresAction, resp.Status)
		assert.Equal(t, "pi_test_1_secret", resp.ClientSecret)
		assert.Equal(t, "pi_test_1", resp.TransactionID)
		// 100000 UGX * 0.00027 = 27 USD = 2700 cents.
		assert.Equal(t, int64(2700), f.card.lastAmount)

		require.NotNil(t, resp.PaymentID)
		p, err := f.repo.FindByID(ctx, *resp.PaymentID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusPending, p.Status(), "record stays pending until the webhook")
		assert.Equal(t, "pi_test_1", p.TransactionID())
		assert.Equal(t, "100000", p.Metadata()["original_amount"])
	})

	t.Run("provider failure yields structured failure", func(t *testing.T) {
		f := newPaymentFixture()
		f.card.intentErr = errors.New("stripe: api_key_invalid")

		resp := f.svc.ProcessPayment(ctx, ProcessPaymentRequest{
			BookingID: uuid.New(),
			Amount:    decimal.NewFromInt(50),
			Currency:  "USD",
			Details:   CardDetails{},
		})
		assert.False(t, resp.Success)
		assert.Equal(t, "provider error", resp.Error)
		assert.NotContains(t, resp.Message, "api_key_invalid", "provider diagnostics must not leak")
	})

	t.Run("unsupported currency", func(t *testing.T) {
		f := newPaymentFixture()
		resp := f.svc.ProcessPayment(ctx, ProcessPaymentRequest{
			BookingID: uuid.New(),
			Amount:    decimal.NewFromInt(50),
			Currency:  "XOF",
			Details:   CardDetails{},
		})
		assert.False(t, resp.Success)
		assert.Zero(t, f.card.intents)
	})
}

func TestProcessMobileMoneyPayment(t *testing.T) {
	ctx := context.Background()
	req := func(phone string) ProcessPaymentRequest {
		return ProcessPaymentRequest{
			BookingID: uuid.New(),
			Amount:    decimal.NewFromInt(150000),
			Currency:  "UGX",
			Details:   MobileMoneyDetails{PhoneNumber: phone},
		}
	}

	t.Run("mtn number routes to mtn in international form", func(t *testing.T) {
		f := newPaymentFixture()
		resp := f.svc.ProcessPayment(ctx, req("0771234567"))

		require.True(t, resp.Success)
		assert.Equal(t, string(payment.StatusProcessing), resp.Status)
		assert.Equal(t, 1, f.mtn.calls)
		assert.Zero(t, f.airtel.calls)
		assert.Equal(t, "256771234567", f.mtn.lastReq.PhoneNumber)
		assert.Regexp(t, `^ARM-\d+-[A-Z0-9]{6}$`, f.mtn.lastReq.Reference)
	})

	t.Run("airtel number routes to airtel in local form", func(t *testing.T) {
		f := newPaymentFixture()
		resp := f.svc.ProcessPayment(ctx, req("+256751234567"))

		require.True(t, resp.Success)
		assert.Equal(t, 1, f.airtel.calls)
		assert.Zero(t, f.mtn.calls)
		assert.Equal(t, "751234567", f.airtel.lastReq.PhoneNumber)
	})

	t.Run("unknown prefix fails without any provider call", func(t *testing.T) {
		f := newPaymentFixture()
		resp := f.svc.ProcessPayment(ctx, req("0991234567"))

		assert.False(t, resp.Success)
		assert.Equal(t, "unsupported network", resp.Error)
		assert.Zero(t, f.mtn.calls)
		assert.Zero(t, f.airtel.calls)
		assert.Empty(t, f.repo.payments)
	})

	t.Run("missing phone number", func(t *testing.T) {
		f := newPaymentFixture()
		resp := f.svc.ProcessPayment(ctx, ProcessPaymentRequest{
			BookingID: uuid.New(),
			Amount:    decimal.NewFromInt(1000),
			Currency:  "UGX",
			Details:   MobileMoneyDetails{},
		})
		assert.False(t, resp.Success)
	})

	t.Run("provider failure persists a failed record", func(t *testing.T) {
		f := newPaymentFixture()
		f.mtn.chargeErr = errors.New("payer limit reached")

		resp := f.svc.ProcessPayment(ctx, req("0781234567"))
		assert.False(t, resp.Success)

		require.Len(t, f.repo.payments, 1)
		for _, p := range f.repo.payments {
			assert.Equal(t, payment.StatusFailed, p.Status())
			assert.Contains(t, p.Metadata()["provider_response"], "PAYER_LIMIT_REACHED")
		}
	})

	t.Run("unconfigured rail is reported unavailable", func(t *testing.T) {
		f := newPaymentFixture()
		f.svc = NewPaymentService(f.repo, f.card, nil, nil, fx.NewStaticConverter(), f.publisher, zap.NewNop())

		resp := f.svc.ProcessPayment(ctx, req("0771234567"))
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "not configured")
	})
}

func TestProcessBankTransferPayment(t *testing.T) {
	f := newPaymentFixture()
	resp := f.svc.ProcessPayment(context.Background(), ProcessPaymentRequest{
		BookingID: uuid.New(),
		Amount:    decimal.NewFromInt(500000),
		Currency:  "UGX",
		Details:   BankTransferDetails{},
	})

	require.True(t, resp.Success)
	assert.Equal(t, string(payment.StatusPending), resp.Status)
	require.NotNil(t, resp.PaymentID)
	assert.Contains(t, resp.RedirectURL, resp.PaymentID.String())
}

func TestProcessPayPalPayment(t *testing.T) {
	f := newPaymentFixture()
	resp := f.svc.ProcessPayment(context.Background(), ProcessPaymentRequest{
		BookingID: uuid.New(),
		Amount:    decimal.NewFromInt(100),
		Currency:  "USD",
		Details:   PayPalDetails{},
	})

	assert.False(t, resp.Success)
	assert.Equal(t, "not supported", resp.Error)
	assert.Empty(t, f.repo.payments)
}

func TestProcessRefund(t *testing.T) {
	ctx := context.Background()

	completedCard := func(f *paymentFixture) *payment.Payment {
		p := payment.NewPayment(uuid.New(), payment.MethodCard, payment.ProviderStripe, 2500, "USD", payment.NewReference())
		p.SetTransactionID("pi_done")
		require.NoError(t, p.MarkCompleted("pi_done"))
		require.NoError(t, f.repo.Save(ctx, p))
		return p
	}

	t.Run("refunds a completed card payment in full", func(t *testing.T) {
		f := newPaymentFixture()
		p := completedCard(f)

		resp := f.svc.ProcessRefund(ctx, p.ID(), decimal.Zero, "guest cancelled")
		require.True(t, resp.Success)
		assert.Equal(t, string(payment.StatusRefunded), resp.Status)
		assert.Equal(t, 1, f.card.refunds)
		assert.EqualValues(t, 0, f.card.lastRefundAmount)

		stored, err := f.repo.FindByID(ctx, p.ID())
		require.NoError(t, err)
		assert.Equal(t, payment.StatusRefunded, stored.Status())
		assert.Equal(t, "re_test_1", stored.Metadata()["refund_id"])
		assert.Equal(t, "2500", stored.Metadata()["refund_amount_cents"])
		assert.Contains(t, f.publisher.types(), events.PaymentRefunded)
	})

	t.Run("partial refund converts the amount to minor units", func(t *testing.T) {
		f := newPaymentFixture()
		p := completedCard(f)

		resp := f.svc.ProcessRefund(ctx, p.ID(), decimal.NewFromFloat(10.50), "late arrival credit")
		require.True(t, resp.Success)
		assert.EqualValues(t, 1050, f.card.lastRefundAmount)

		stored, err := f.repo.FindByID(ctx, p.ID())
		require.NoError(t, err)
		assert.Equal(t, "1050", stored.Metadata()["refund_amount_cents"])
	})

	t.Run("rejects a refund larger than the payment", func(t *testing.T) {
		f := newPaymentFixture()
		p := completedCard(f)

		resp := f.svc.ProcessRefund(ctx, p.ID(), decimal.NewFromInt(100), "too much")
		assert.False(t, resp.Success)
		assert.Equal(t, "invalid amount", resp.Error)
		assert.Zero(t, f.card.refunds)

		stored, err := f.repo.FindByID(ctx, p.ID())
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCompleted, stored.Status())
	})

	t.Run("pending payment is rejected before the provider call", func(t *testing.T) {
		f := newPaymentFixture()
		p := payment.NewPayment(uuid.New(), payment.MethodCard, payment.ProviderStripe, 2500, "USD", payment.NewReference())
		p.SetTransactionID("pi_pending")
		require.NoError(t, f.repo.Save(ctx, p))

		resp := f.svc.ProcessRefund(ctx, p.ID(), decimal.Zero, "too early")
		assert.False(t, resp.Success)
		assert.Equal(t, "invalid state", resp.Error)
		assert.Zero(t, f.card.refunds)
	})

	t.Run("mobile money refunds are not supported", func(t *testing.T) {
		f := newPaymentFixture()
		p := payment.NewPayment(uuid.New(), payment.MethodMobileMoney, payment.ProviderMTN, 150000, "UGX", payment.NewReference())
		require.NoError(t, p.MarkCompleted("mm_tx"))
		require.NoError(t, f.repo.Save(ctx, p))

		resp := f.svc.ProcessRefund(ctx, p.ID(), decimal.Zero, "guest cancelled")
		assert.False(t, resp.Success)
		assert.Equal(t, "not supported", resp.Error)
		assert.Zero(t, f.card.refunds)
	})

	t.Run("card without transaction id is not refundable", func(t *testing.T) {
		f := newPaymentFixture()
		p := payment.NewPayment(uuid.New(), payment.MethodCard, payment.ProviderStripe, 2500, "USD", payment.NewReference())
		require.NoError(t, f.repo.Save(ctx, p))

		resp := f.svc.ProcessRefund(ctx, p.ID(), decimal.Zero, "oops")
		assert.False(t, resp.Success)
		assert.Equal(t, "not supported", resp.Error)
	})

	t.Run("unknown payment", func(t *testing.T) {
		f := newPaymentFixture()
		resp := f.svc.ProcessRefund(ctx, uuid.New(), decimal.Zero, "nothing here")
		assert.False(t, resp.Success)
	})
}

func TestCheckMobileMoneyStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("polled result carries the provider transaction id", func(t *testing.T) {
		f := newPaymentFixture()
		p := payment.NewPayment(uuid.New(), payment.MethodMobileMoney, payment.ProviderMTN, 150000, "UGX", payment.NewReference())
		require.NoError(t, p.MarkProcessing())
		require.NoError(t, f.repo.Save(ctx, p))

		dto, polled, err := f.svc.CheckMobileMoneyStatus(ctx, p.ID())
		require.NoError(t, err)
		assert.Equal(t, string(payment.StatusProcessing), dto.Status)
		assert.Equal(t, payment.StatusCompleted, polled.Status)
		assert.Equal(t, "mm_tx_1", polled.TransactionID)
	})

	t.Run("non mobile money payments echo the stored state", func(t *testing.T) {
		f := newPaymentFixture()
		p := payment.NewPayment(uuid.New(), payment.MethodCard, payment.ProviderStripe, 2500, "USD", payment.NewReference())
		p.SetTransactionID("pi_stored")
		require.NoError(t, f.repo.Save(ctx, p))

		_, polled, err := f.svc.CheckMobileMoneyStatus(ctx, p.ID())
		require.NoError(t, err)
		assert.Equal(t, payment.StatusPending, polled.Status)
		assert.Equal(t, "pi_stored", polled.TransactionID)
	})
}

func TestGetPaymentStats(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	completed := payment.NewPayment(uuid.New(), payment.MethodCard, payment.ProviderStripe, 2000, "USD", payment.NewReference())
	require.NoError(t, completed.MarkCompleted("pi_1"))
	require.NoError(t, f.repo.Save(ctx, completed))

	failed := payment.NewPayment(uuid.New(), payment.MethodMobileMoney, payment.ProviderMTN, 5000, "UGX", payment.NewReference())
	require.NoError(t, failed.MarkFailed("declined"))
	require.NoError(t, f.repo.Save(ctx, failed))

	stats, err := f.svc.GetPaymentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), stats.TotalRevenueCents)
	assert.Equal(t, int64(2), stats.TotalPayments)
	assert.Equal(t, int64(1), stats.ByStatus[string(payment.StatusCompleted)])
	assert.Equal(t, int64(1), stats.ByStatus[string(payment.StatusFailed)])
}
