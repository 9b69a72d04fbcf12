package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/armada-suites/service-booking/internal/application"
	"github.com/armada-suites/service-booking/internal/domain/booking"
	"github.com/armada-suites/service-booking/internal/domain/domainerr"
	"github.com/armada-suites/service-booking/internal/domain/guest"
	"github.com/armada-suites/service-booking/internal/domain/payment"
	"github.com/armada-suites/service-booking/internal/fx"
	"github.com/armada-suites/service-booking/internal/provider/stripe"
)

const testWebhookSecret = "whsec_handler_test"

// Minimal in-memory stores; the service-level behavior is covered in the
// application package, this exercises the HTTP surface.

type stubPaymentRepo struct {
	byID map[uuid.UUID]*payment.Payment
	byTx map[string]*payment.Payment
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{byID: map[uuid.UUID]*payment.Payment{}, byTx: map[string]*payment.Payment{}}
}

func (r *stubPaymentRepo) add(p *payment.Payment) {
	r.byID[p.ID()] = p
	if p.TransactionID() != "" {
		r.byTx[p.TransactionID()] = p
	}
}

func (r *stubPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	if p, ok := r.byID[id]; ok {
		return p, nil
	}
	return nil, domainerr.NewNotFoundError("payment", id.String())
}

func (r *stubPaymentRepo) FindByTransactionID(_ context.Context, txID string) (*payment.Payment, error) {
	if p, ok := r.byTx[txID]; ok {
		return p, nil
	}
	return nil, domainerr.NewNotFoundError("payment", txID)
}

func (r *stubPaymentRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]*payment.Payment, error) {
	var out []*payment.Payment
	for _, p := range r.byID {
		if p.BookingID() == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubPaymentRepo) ListAll(_ context.Context, _, _ int) ([]*payment.Payment, int64, error) {
	return nil, 0, nil
}

func (r *stubPaymentRepo) GetRevenueStats(_ context.Context) (int64, map[string]int64, error) {
	return 0, nil, nil
}

func (r *stubPaymentRepo) Save(_ context.Context, p *payment.Payment) error {
	r.add(p)
	return nil
}

func (r *stubPaymentRepo) Update(_ context.Context, p *payment.Payment) error {
	r.add(p)
	return nil
}

type stubBookingRepo struct {
	byID map[uuid.UUID]*booking.Booking
}

func (r *stubBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	if b, ok := r.byID[id]; ok {
		return b, nil
	}
	return nil, domainerr.NewNotFoundError("booking", id.String())
}

func (r *stubBookingRepo) FindByReference(_ context.Context, ref string) (*booking.Booking, error) {
	for _, b := range r.byID {
		if b.Reference() == ref {
			return b, nil
		}
	}
	return nil, domainerr.NewNotFoundError("booking", ref)
}

func (r *stubBookingRepo) ListAll(_ context.Context, _, _ int) ([]*booking.Booking, int64, error) {
	return nil, 0, nil
}

func (r *stubBookingRepo) Save(_ context.Context, b *booking.Booking) error {
	r.byID[b.ID()] = b
	return nil
}

func (r *stubBookingRepo) Update(_ context.Context, b *booking.Booking) error {
	r.byID[b.ID()] = b
	return nil
}

type stubTx struct{}

func (stubTx) WithinTransaction(_ context.Context, _ func(guest.Repository, booking.Repository) error) error {
	return nil
}

type noopPublisher struct{}

func (noopPublisher) TryPublish(_ context.Context, _, _ string, _ interface{}) {}

type webhookFixture struct {
	router      *gin.Engine
	paymentRepo *stubPaymentRepo
	bookingRepo *stubBookingRepo
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	paymentRepo := newStubPaymentRepo()
	bookingRepo := &stubBookingRepo{byID: map[uuid.UUID]*booking.Booking{}}
	log := zap.NewNop()

	paymentSvc := application.NewPaymentService(
		paymentRepo, stripe.NewMockGateway(log), nil, nil,
		fx.NewStaticConverter(), noopPublisher{}, log,
	)
	bookingSvc := application.NewBookingService(
		stubTx{}, bookingRepo, paymentRepo, paymentSvc, noopPublisher{}, log,
	)

	router := gin.New()
	NewWebhookHandler(paymentSvc, bookingSvc, testWebhookSecret, log).RegisterRoutes(router)
	return &webhookFixture{router: router, paymentRepo: paymentRepo, bookingRepo: bookingRepo}
}

func (f *webhookFixture) seed(t *testing.T) (*booking.Booking, *payment.Payment) {
	t.Helper()
	b, err := booking.NewBooking(uuid.New(), booking.RoomDetails{
		RoomID:   uuid.New(),
		CheckIn:  time.Now().Add(24 * time.Hour),
		CheckOut: time.Now().Add(48 * time.Hour),
		Adults:   1,
	}, 25000, "USD", "")
	require.NoError(t, err)
	f.bookingRepo.byID[b.ID()] = b

	p := payment.NewPayment(b.ID(), payment.MethodCard, payment.ProviderStripe, 25000, "USD", payment.NewReference())
	p.SetTransactionID("pi_hook_1")
	f.paymentRepo.add(p)
	return b, p
}

func (f *webhookFixture) post(payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func succeededEvent(intentID string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_h1","type":"payment_intent.succeeded","data":{"object":{"id":%q,"status":"succeeded"}}}`, intentID))
}

func TestStripeWebhook(t *testing.T) {
	t.Run("bad signature is rejected before any mutation", func(t *testing.T) {
		f := newWebhookFixture(t)
		b, p := f.seed(t)

		payload := succeededEvent("pi_hook_1")
		w := f.post(payload, stripe.SignPayload(payload, "whsec_wrong", time.Now()))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, payment.StatusPending, p.Status())
		assert.Equal(t, booking.StatusPending, b.Status())
	})

	t.Run("missing signature is rejected", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seed(t)

		w := f.post(succeededEvent("pi_hook_1"), "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("succeeded event completes payment and confirms booking", func(t *testing.T) {
		f := newWebhookFixture(t)
		b, p := f.seed(t)

		payload := succeededEvent("pi_hook_1")
		w := f.post(payload, stripe.SignPayload(payload, testWebhookSecret, time.Now()))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, payment.StatusCompleted, p.Status())
		assert.Equal(t, booking.StatusConfirmed, b.Status())
		assert.Equal(t, booking.PaymentPaid, b.PaymentStatus())
	})

	t.Run("redelivery is acknowledged", func(t *testing.T) {
		f := newWebhookFixture(t)
		b, _ := f.seed(t)

		payload := succeededEvent("pi_hook_1")
		header := stripe.SignPayload(payload, testWebhookSecret, time.Now())
		require.Equal(t, http.StatusOK, f.post(payload, header).Code)
		assert.Equal(t, http.StatusOK, f.post(payload, header).Code)
		assert.Equal(t, booking.StatusConfirmed, b.Status())
	})

	t.Run("failed event records the reason and leaves the booking", func(t *testing.T) {
		f := newWebhookFixture(t)
		b, p := f.seed(t)

		payload := []byte(`{"id":"evt_h2","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_hook_1","last_payment_error":{"message":"Your card was declined."}}}}`)
		w := f.post(payload, stripe.SignPayload(payload, testWebhookSecret, time.Now()))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, payment.StatusFailed, p.Status())
		assert.Equal(t, "Your card was declined.", p.FailureReason())
		assert.Equal(t, booking.StatusPending, b.Status())
	})

	t.Run("unknown intent is acknowledged", func(t *testing.T) {
		f := newWebhookFixture(t)
		payload := succeededEvent("pi_nobody")
		w := f.post(payload, stripe.SignPayload(payload, testWebhookSecret, time.Now()))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unhandled event types are acknowledged", func(t *testing.T) {
		f := newWebhookFixture(t)
		payload := []byte(`{"id":"evt_h3","type":"charge.updated","data":{"object":{"id":"ch_1"}}}`)
		w := f.post(payload, stripe.SignPayload(payload, testWebhookSecret, time.Now()))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
