package application

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/armada-suites/service-booking/internal/domain/booking"
	"github.com/armada-suites/service-booking/internal/domain/domainerr"
	"github.com/armada-suites/service-booking/internal/domain/guest"
	"github.com/armada-suites/service-booking/internal/domain/payment"
	"github.com/armada-suites/service-booking/internal/provider"
)

// --- In-memory repositories ---

type memPaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*payment.Payment
	saveErr  error
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: map[uuid.UUID]*payment.Payment{}}
}

func (r *memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, domainerr.NewNotFoundError("payment", id.String())
	}
	return p, nil
}

func (r *memPaymentRepo) FindByTransactionID(_ context.Context, transactionID string) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.TransactionID() == transactionID {
			return p, nil
		}
	}
	return nil, domainerr.NewNotFoundError("payment", transactionID)
}

func (r *memPaymentRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*payment.Payment
	for _, p := range r.payments {
		if p.BookingID() == bookingID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out, nil
}

func (r *memPaymentRepo) ListAll(_ context.Context, page, limit int) ([]*payment.Payment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*payment.Payment
	for _, p := range r.payments {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r *memPaymentRepo) GetRevenueStats(_ context.Context) (int64, map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var revenue int64
	counts := map[string]int64{}
	for _, p := range r.payments {
		counts[string(p.Status())]++
		if p.Status() == payment.StatusCompleted {
			revenue += p.AmountCents()
		}
	}
	return revenue, counts, nil
}

func (r *memPaymentRepo) Save(_ context.Context, p *payment.Payment) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.ID()] = p
	return nil
}

func (r *memPaymentRepo) Update(_ context.Context, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID()]; !ok {
		return domainerr.NewNotFoundError("payment", p.ID().String())
	}
	r.payments[p.ID()] = p
	return nil
}

type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*booking.Booking
	// references tracks claimed references; referencesHook can force
	// collisions for the retry tests.
	references     map[string]bool
	referencesHook func(ref string) bool
	saveCalls      int
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{
		bookings:   map[uuid.UUID]*booking.Booking{},
		references: map[string]bool{},
	}
}

func (r *memBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domainerr.NewNotFoundError("booking", id.String())
	}
	return b, nil
}

func (r *memBookingRepo) FindByReference(_ context.Context, reference string) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.Reference() == reference {
			return b, nil
		}
	}
	return nil, domainerr.NewNotFoundError("booking", reference)
}

func (r *memBookingRepo) ListAll(_ context.Context, page, limit int) ([]*booking.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*booking.Booking
	for _, b := range r.bookings {
		out = append(out, b)
	}
	return out, int64(len(out)), nil
}

func (r *memBookingRepo) Save(_ context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	if r.references[b.Reference()] || (r.referencesHook != nil && r.referencesHook(b.Reference())) {
		return domainerr.NewConflictError("booking reference already exists")
	}
	r.references[b.Reference()] = true
	r.bookings[b.ID()] = b
	return nil
}

func (r *memBookingRepo) Update(_ context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID()]; !ok {
		return domainerr.NewNotFoundError("booking", b.ID().String())
	}
	r.bookings[b.ID()] = b
	return nil
}

type memGuestRepo struct {
	mu     sync.Mutex
	guests map[string]*guest.Guest
}

func newMemGuestRepo() *memGuestRepo {
	return &memGuestRepo{guests: map[string]*guest.Guest{}}
}

func (r *memGuestRepo) FindByEmail(_ context.Context, email string) (*guest.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guests[email]
	if !ok {
		return nil, domainerr.NewNotFoundError("guest", email)
	}
	return g, nil
}

func (r *memGuestRepo) Save(_ context.Context, g *guest.Guest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guests[g.Email()] = g
	return nil
}

func (r *memGuestRepo) Update(_ context.Context, g *guest.Guest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guests[g.Email()] = g
	return nil
}

// fakeTxManager runs the callback directly against the shared repos;
// atomicity is the real TxManager's concern, covered by integration tests.
type fakeTxManager struct {
	guests   guest.Repository
	bookings booking.Repository
}

func (m *fakeTxManager) WithinTransaction(_ context.Context, fn func(guests guest.Repository, bookings booking.Repository) error) error {
	return fn(m.guests, m.bookings)
}

// --- Provider fakes ---

type fakeCardGateway struct {
	intentErr        error
	refundErr        error
	intents          int
	refunds          int
	lastAmount       int64
	lastRefundAmount int64
}

func (g *fakeCardGateway) CreatePaymentIntent(_ context.Context, amountCents int64, currency, customerEmail, reference string) (provider.IntentResult, error) {
	g.intents++
	g.lastAmount = amountCents
	if g.intentErr != nil {
		return provider.IntentResult{}, g.intentErr
	}
	return provider.IntentResult{IntentID: "pi_test_1", ClientSecret: "pi_test_1_secret"}, nil
}

func (g *fakeCardGateway) CreateRefund(_ context.Context, intentID string, amountCents int64) (string, error) {
	g.refunds++
	g.lastRefundAmount = amountCents
	if g.refundErr != nil {
		return "", g.refundErr
	}
	return "re_test_1", nil
}

type fakeMomoClient struct {
	prov      payment.Provider
	chargeErr error
	calls     int
	lastReq   provider.ChargeRequest
	status    payment.Status
}

func (c *fakeMomoClient) Provider() payment.Provider { return c.prov }

func (c *fakeMomoClient) RequestToPay(_ context.Context, req provider.ChargeRequest) (provider.ChargeResult, error) {
	c.calls++
	c.lastReq = req
	if c.chargeErr != nil {
		return provider.ChargeResult{Status: payment.StatusFailed, RawResponse: `{"code":"PAYER_LIMIT_REACHED"}`}, c.chargeErr
	}
	status := c.status
	if status == "" {
		status = payment.StatusProcessing
	}
	return provider.ChargeResult{TransactionID: "mm_tx_1", Status: status}, nil
}

func (c *fakeMomoClient) CheckStatus(_ context.Context, reference string) (provider.ChargeResult, error) {
	return provider.ChargeResult{TransactionID: "mm_tx_1", Status: payment.StatusCompleted}, nil
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	topic     string
	eventType string
	data      interface{}
}

func (p *recordingPublisher) TryPublish(_ context.Context, topic, eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, eventType: eventType, data: data})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.eventType
	}
	return out
}
