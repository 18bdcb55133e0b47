// Package processor abstracts the external payment processor. The
// billing core only issues charge requests and reads subscription
// state; it never implements payment authorization itself.
package processor

import "context"

// CustomerParams describes a processor-side customer to create.
type CustomerParams struct {
	Email    string
	Name     string
	Metadata map[string]string
}

// ChargeParams describes one charge request scoped to a club's
// processor sub-account. Metadata carries the correlation fields
// {club_id, member_id, period, commission_minor_units} so the
// reconciliation engine never recomputes anything.
type ChargeParams struct {
	AmountMinorUnits     int64
	CommissionMinorUnits int64
	Currency             string
	CustomerID           string
	PaymentMethodID      string // saved payment method; empty means member action required
	DestinationAccountID string // club sub-account
	Description          string
	IdempotencyKey       string
	Metadata             map[string]string
}

// ChargeResult is the processor's answer to a charge request.
type ChargeResult struct {
	CorrelationID string // payment intent id
	Status        string // processor-native status string
	Settled       bool   // true when the off-session charge settled synchronously
}

// SubscriptionState is the live state of a standing subscription.
type SubscriptionState struct {
	ID     string
	Paused bool
}

// Client is the processor surface the billing core consumes. A fake
// implementation substitutes for Stripe in tests.
type Client interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)
	CreateCharge(ctx context.Context, params ChargeParams) (ChargeResult, error)
	GetSubscription(ctx context.Context, id string) (SubscriptionState, error)
	PauseSubscription(ctx context.Context, id string) error
	ResumeSubscription(ctx context.Context, id string) error
}
