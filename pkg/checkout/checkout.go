// Package checkout runs the pay flow: it prices the cart, obtains a payment
// intent, hands the payer to the hosted payment widget and records the order
// once the widget reports success.
//
//	sess := checkout.New(cartStore, apiClient, widget, checkout.WithIdentity(authSession))
//	order, err := sess.Pay(ctx)
//	fmt.Println(sess.Message())
//
// A payment that succeeds while the order submission fails leaves the session
// in Failed with ErrOrderNotRecorded and the cart untouched. RetryOrder
// resubmits it under the same idempotency key.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/config"
	"github.com/shashiranjanraj/kisanbazaar/pkg/auth"
	"github.com/shashiranjanraj/kisanbazaar/pkg/event"
	"github.com/shashiranjanraj/kisanbazaar/pkg/logger"
	"github.com/shashiranjanraj/kisanbazaar/pkg/metrics"
)

// TopicState is published with a Snapshot on every state change.
const TopicState = "checkout.state"

// User-facing messages.
const (
	MsgEmptyCart        = "Your cart is empty or invalid."
	MsgPaymentFailed    = "Payment failed. Please try again."
	MsgOrderNotRecorded = "Payment succeeded, but order save failed."
	MsgCompleted        = "Payment & Order successful!"
	MsgInProgress       = "A payment is already in progress."
	MsgUnreconciled     = "Your last payment has no order yet. Retry saving it before paying again."
	MsgNothingToRetry   = "There is no unsaved payment to retry."
)

var (
	ErrEmptyCart        = errors.New("checkout: cart is empty or total is not positive")
	ErrInProgress       = errors.New("checkout: a payment is already in progress")
	ErrPaymentFailed    = errors.New("checkout: payment failed")
	ErrAbandoned        = errors.New("checkout: payment widget dismissed")
	ErrOrderNotRecorded = errors.New("checkout: payment captured but order not recorded")
	ErrUnreconciled     = errors.New("checkout: previous payment still has no order")
	ErrNothingToRetry   = errors.New("checkout: no unrecorded payment to retry")
)

// State is a step of the checkout state machine.
type State int

const (
	Idle State = iota
	AwaitingPaymentIntent
	AwaitingPaymentResult
	SubmittingOrder
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingPaymentIntent:
		return "awaiting_payment_intent"
	case AwaitingPaymentResult:
		return "awaiting_payment_result"
	case SubmittingOrder:
		return "submitting_order"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// InFlight reports whether a network call or the widget is outstanding.
func (s State) InFlight() bool {
	return s == AwaitingPaymentIntent || s == AwaitingPaymentResult || s == SubmittingOrder
}

// Cart is the part of the cart store checkout reads and clears.
type Cart interface {
	Items() []models.CartItem
	Clear()
}

// Orders is the part of the API client checkout calls.
type Orders interface {
	CreatePaymentOrder(ctx context.Context, amount float64) (*models.PaymentOrder, error)
	CreateOrder(ctx context.Context, req models.OrderRequest, idempotencyKey string) (*models.Order, error)
}

// IdentitySource supplies the payer's details for the widget.
type IdentitySource interface {
	Identity() auth.Identity
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID           string // also the order idempotency key
	State        State
	Message      string
	Total        float64
	PaymentOrder string
	PaymentID    string
	Order        *models.Order
	Err          error
}

// Session is one user's checkout. It is reused across attempts; each Pay
// starts a new attempt with a fresh ID.
type Session struct {
	mu   sync.Mutex
	snap Snapshot
	cart []models.CartItem

	carts    Cart
	orders   Orders
	widget   Widget
	identity IdentitySource
	bus      *event.Bus
	log      *slog.Logger

	keyID    string
	currency string
	merchant string
}

// Option configures a Session.
type Option func(*Session)

// WithBus publishes state changes on bus.
func WithBus(bus *event.Bus) Option { return func(s *Session) { s.bus = bus } }

// WithLogger overrides the base logger.
func WithLogger(log *slog.Logger) Option { return func(s *Session) { s.log = log } }

// WithIdentity prefills the widget with the logged-in user.
func WithIdentity(id IdentitySource) Option { return func(s *Session) { s.identity = id } }

// WithKeyID overrides PAYMENT_KEY_ID.
func WithKeyID(keyID string) Option { return func(s *Session) { s.keyID = keyID } }

// New creates an idle session.
func New(c Cart, orders Orders, widget Widget, opts ...Option) *Session {
	s := &Session{
		carts:    c,
		orders:   orders,
		widget:   widget,
		log:      logger.L,
		keyID:    config.PaymentKeyID(),
		currency: config.PaymentCurrency(),
		merchant: config.PaymentMerchant(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.bus == nil {
		s.bus = event.New()
	}
	return s
}

// ─── Reads ────────────────────────────────────────────────────────────────────

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// State returns the current state.
func (s *Session) State() State { return s.Snapshot().State }

// Message returns the last user-facing message.
func (s *Session) Message() string { return s.Snapshot().Message }

// Subscribe calls fn with a snapshot after every state change.
func (s *Session) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return s.bus.Subscribe(TopicState, func(p interface{}) { fn(p.(Snapshot)) })
}

// update mutates the snapshot under the lock and publishes the result.
func (s *Session) update(fn func(*Snapshot)) Snapshot {
	s.mu.Lock()
	fn(&s.snap)
	snap := s.snap
	s.mu.Unlock()
	s.bus.Publish(TopicState, snap)
	return snap
}

// ─── Flow ─────────────────────────────────────────────────────────────────────

// Pay runs one full attempt and returns the recorded order. It rejects an
// empty cart before any call and refuses to start while another attempt is
// in flight or an earlier payment is still unrecorded.
func (s *Session) Pay(ctx context.Context) (*models.Order, error) {
	s.mu.Lock()
	switch {
	case s.snap.State.InFlight():
		s.mu.Unlock()
		return nil, ErrInProgress
	case s.unreconciledLocked():
		s.snap.Message = MsgUnreconciled
		s.mu.Unlock()
		return nil, ErrUnreconciled
	}

	items := s.carts.Items()
	total := models.CartTotal(items)
	if len(items) == 0 || total <= 0 {
		s.snap.Message = MsgEmptyCart
		s.mu.Unlock()
		metrics.CheckoutOutcomes.WithLabelValues("rejected").Inc()
		return nil, ErrEmptyCart
	}

	s.cart = items
	s.snap = Snapshot{ID: uuid.NewString(), State: AwaitingPaymentIntent, Total: total}
	snap := s.snap
	s.mu.Unlock()
	s.bus.Publish(TopicState, snap)

	ctx = logger.InjectLogger(ctx, s.log.With("checkout_session", snap.ID))
	log := logger.WithCtx(ctx)
	log.Info("checkout: started", "items", len(items), "total", total)

	po, err := s.orders.CreatePaymentOrder(ctx, total)
	if err != nil {
		log.Error("checkout: payment intent failed", "error", err)
		return nil, s.failPayment(fmt.Errorf("%w: %w", ErrPaymentFailed, err))
	}
	s.update(func(sn *Snapshot) {
		sn.State = AwaitingPaymentResult
		sn.PaymentOrder = po.ID
	})
	log.Info("checkout: payment intent created", "payment_order", po.ID, "amount", po.Amount)

	outcome, err := s.widget.Open(ctx, s.widgetOptions(po))
	if errors.Is(err, context.Canceled) {
		// Nothing was charged while the widget was still open.
		log.Info("checkout: payment widget cancelled")
		s.abandon()
		return nil, fmt.Errorf("%w: %w", ErrAbandoned, err)
	}
	if err != nil {
		log.Error("checkout: payment widget failed", "error", err)
		return nil, s.failPayment(fmt.Errorf("%w: %w", ErrPaymentFailed, err))
	}

	switch outcome.Kind {
	case Dismissed:
		log.Info("checkout: payment widget dismissed")
		s.abandon()
		return nil, ErrAbandoned
	case Succeeded:
		if outcome.PaymentID == "" {
			return nil, s.failPayment(fmt.Errorf("%w: widget reported success without a payment reference", ErrPaymentFailed))
		}
	default:
		log.Warn("checkout: payment declined", "reason", outcome.Reason)
		return nil, s.failPayment(fmt.Errorf("%w: %s", ErrPaymentFailed, outcome.Reason))
	}

	s.update(func(sn *Snapshot) {
		sn.State = SubmittingOrder
		sn.PaymentID = outcome.PaymentID
	})
	log.Info("checkout: payment succeeded", "payment_id", outcome.PaymentID)

	return s.submit(ctx)
}

// RetryOrder resubmits an order whose payment succeeded but whose submission
// failed. The server deduplicates on the session ID, so a submission that
// actually landed the first time is not recorded twice.
func (s *Session) RetryOrder(ctx context.Context) (*models.Order, error) {
	s.mu.Lock()
	if !s.unreconciledLocked() {
		s.mu.Unlock()
		return nil, ErrNothingToRetry
	}
	s.snap.State = SubmittingOrder
	s.snap.Err = nil
	s.snap.Message = ""
	snap := s.snap
	s.mu.Unlock()
	s.bus.Publish(TopicState, snap)

	ctx = logger.InjectLogger(ctx, s.log.With("checkout_session", snap.ID))
	logger.WithCtx(ctx).Info("checkout: retrying order submission", "payment_id", snap.PaymentID)
	return s.submit(ctx)
}

// Reset returns a finished session to Idle. An unrecorded payment is
// forgotten, so callers should surface its payment reference first.
func (s *Session) Reset() error {
	s.mu.Lock()
	if s.snap.State.InFlight() {
		s.mu.Unlock()
		return ErrInProgress
	}
	if s.unreconciledLocked() {
		s.log.Warn("checkout: discarding unrecorded payment",
			"checkout_session", s.snap.ID, "payment_id", s.snap.PaymentID)
	}
	s.snap = Snapshot{}
	s.cart = nil
	s.mu.Unlock()
	s.bus.Publish(TopicState, Snapshot{})
	return nil
}

func (s *Session) submit(ctx context.Context) (*models.Order, error) {
	s.mu.Lock()
	req := models.OrderRequest{Cart: s.cart, Total: s.snap.Total, PaymentID: s.snap.PaymentID}
	key := s.snap.ID
	s.mu.Unlock()

	log := logger.WithCtx(ctx)
	order, err := s.orders.CreateOrder(ctx, req, key)
	if err != nil {
		log.Error("checkout: order not recorded", "payment_id", req.PaymentID, "error", err)
		metrics.CheckoutOutcomes.WithLabelValues("order_not_recorded").Inc()
		err = fmt.Errorf("%w: %w", ErrOrderNotRecorded, err)
		s.update(func(sn *Snapshot) {
			sn.State = Failed
			sn.Message = MsgOrderNotRecorded
			sn.Err = err
		})
		return nil, err
	}

	s.carts.Clear()
	metrics.CheckoutOutcomes.WithLabelValues("completed").Inc()
	log.Info("checkout: order recorded", "order_id", order.ID)
	s.update(func(sn *Snapshot) {
		sn.State = Completed
		sn.Message = MsgCompleted
		sn.Order = order
		sn.Err = nil
	})
	return order, nil
}

func (s *Session) failPayment(err error) error {
	metrics.CheckoutOutcomes.WithLabelValues("payment_failed").Inc()
	s.update(func(sn *Snapshot) {
		sn.State = Failed
		sn.Message = MsgPaymentFailed
		sn.Err = err
	})
	return err
}

func (s *Session) abandon() {
	metrics.CheckoutOutcomes.WithLabelValues("abandoned").Inc()
	s.mu.Lock()
	s.cart = nil
	s.mu.Unlock()
	s.update(func(sn *Snapshot) { *sn = Snapshot{} })
}

func (s *Session) unreconciledLocked() bool {
	return s.snap.State == Failed && errors.Is(s.snap.Err, ErrOrderNotRecorded)
}

func (s *Session) widgetOptions(po *models.PaymentOrder) WidgetOptions {
	opts := WidgetOptions{
		KeyID:       s.keyID,
		OrderID:     po.ID,
		Amount:      po.Amount,
		Currency:    s.currency,
		Merchant:    s.merchant,
		Description: "Secure payment for your farm order",
	}
	if po.Currency != "" {
		opts.Currency = po.Currency
	}
	if s.identity != nil {
		id := s.identity.Identity()
		opts.Prefill = Prefill{Name: id.Name, Email: id.Email}
	}
	return opts
}

// UserMessage maps an error returned by Pay or RetryOrder to the text shown
// to the payer.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyCart):
		return MsgEmptyCart
	case errors.Is(err, ErrInProgress):
		return MsgInProgress
	case errors.Is(err, ErrUnreconciled):
		return MsgUnreconciled
	case errors.Is(err, ErrOrderNotRecorded):
		return MsgOrderNotRecorded
	case errors.Is(err, ErrAbandoned):
		return ""
	case errors.Is(err, ErrNothingToRetry):
		return MsgNothingToRetry
	default:
		return MsgPaymentFailed
	}
}
