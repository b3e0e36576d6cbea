package checkout

import "context"

// WidgetOptions is what the hosted payment widget is opened with.
type WidgetOptions struct {
	KeyID       string
	OrderID     string
	Amount      float64 // gateway minor units, as issued with the payment order
	Currency    string
	Merchant    string
	Description string
	Prefill     Prefill
}

// Prefill pre-populates the payer's details in the widget.
type Prefill struct {
	Name  string
	Email string
}

// OutcomeKind is how the widget resolved.
type OutcomeKind int

const (
	// Succeeded carries the gateway's payment reference.
	Succeeded OutcomeKind = iota
	// Dismissed means the payer closed the widget without paying.
	Dismissed
	// Declined means the gateway reported a failed payment.
	Declined
)

func (k OutcomeKind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case Dismissed:
		return "dismissed"
	case Declined:
		return "declined"
	}
	return "unknown"
}

// Outcome is the single resolution of a widget session.
type Outcome struct {
	Kind      OutcomeKind
	PaymentID string
	Reason    string
}

// Success builds a Succeeded outcome.
func Success(paymentID string) Outcome { return Outcome{Kind: Succeeded, PaymentID: paymentID} }

// Dismiss builds a Dismissed outcome.
func Dismiss() Outcome { return Outcome{Kind: Dismissed} }

// Decline builds a Declined outcome.
func Decline(reason string) Outcome { return Outcome{Kind: Declined, Reason: reason} }

// Widget is the hosted payment UI. Open blocks until the payer finishes and
// resolves exactly once. A returned error is treated like Declined.
type Widget interface {
	Open(ctx context.Context, opts WidgetOptions) (Outcome, error)
}

// WidgetFunc adapts a function to Widget.
type WidgetFunc func(ctx context.Context, opts WidgetOptions) (Outcome, error)

func (f WidgetFunc) Open(ctx context.Context, opts WidgetOptions) (Outcome, error) {
	return f(ctx, opts)
}
