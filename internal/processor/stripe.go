package processor

import (
	"context"
	stderrors "errors"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/clubops/memberbill/config"
	"github.com/clubops/memberbill/internal/errors"
)

// StripeClient implements Client against Stripe. The API client is an
// injected value, not the package-global stripe.Key, so tests and
// multi-key deployments can construct their own.
type StripeClient struct {
	api *client.API
}

// NewStripeClient creates a Stripe-backed processor client
func NewStripeClient(cfg config.StripeConfig) *StripeClient {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeClient{api: api}
}

func (c *StripeClient) CreateCustomer(ctx context.Context, params CustomerParams) (string, error) {
	p := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(params.Email),
	}
	if params.Name != "" {
		p.Name = stripe.String(params.Name)
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}

	cust, err := c.api.Customers.New(p)
	if err != nil {
		return "", wrapStripeError("create customer", err)
	}
	return cust.ID, nil
}

func (c *StripeClient) CreateCharge(ctx context.Context, params ChargeParams) (ChargeResult, error) {
	p := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(params.AmountMinorUnits),
		Currency: stripe.String(params.Currency),
	}
	if params.CustomerID != "" {
		p.Customer = stripe.String(params.CustomerID)
	}
	if params.Description != "" {
		p.Description = stripe.String(params.Description)
	}
	if params.DestinationAccountID != "" {
		p.TransferData = &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(params.DestinationAccountID),
		}
		if params.CommissionMinorUnits > 0 {
			p.ApplicationFeeAmount = stripe.Int64(params.CommissionMinorUnits)
		}
	}
	if params.PaymentMethodID != "" {
		// Saved payment method: attempt the charge off-session now.
		// Otherwise the intent stays open for the checkout-link flow.
		p.PaymentMethod = stripe.String(params.PaymentMethodID)
		p.OffSession = stripe.Bool(true)
		p.Confirm = stripe.Bool(true)
	}
	if params.IdempotencyKey != "" {
		p.IdempotencyKey = stripe.String(params.IdempotencyKey)
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}

	pi, err := c.api.PaymentIntents.New(p)
	if err != nil {
		// A declined off-session charge still carries the payment
		// intent, which the ledger needs for later correlation.
		var stripeErr *stripe.Error
		if stderrors.As(err, &stripeErr) && stripeErr.PaymentIntent != nil {
			return ChargeResult{
				CorrelationID: stripeErr.PaymentIntent.ID,
				Status:        string(stripeErr.PaymentIntent.Status),
			}, wrapStripeError("create payment intent", err)
		}
		return ChargeResult{}, wrapStripeError("create payment intent", err)
	}

	return ChargeResult{
		CorrelationID: pi.ID,
		Status:        string(pi.Status),
		Settled:       pi.Status == stripe.PaymentIntentStatusSucceeded,
	}, nil
}

func (c *StripeClient) GetSubscription(ctx context.Context, id string) (SubscriptionState, error) {
	sub, err := c.api.Subscriptions.Get(id, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return SubscriptionState{}, wrapStripeError("get subscription", err)
	}
	return SubscriptionState{ID: sub.ID, Paused: sub.PauseCollection != nil}, nil
}

func (c *StripeClient) PauseSubscription(ctx context.Context, id string) error {
	_, err := c.api.Subscriptions.Update(id, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
		PauseCollection: &stripe.SubscriptionPauseCollectionParams{
			Behavior: stripe.String("void"),
		},
	})
	if err != nil {
		return wrapStripeError("pause subscription", err)
	}
	return nil
}

func (c *StripeClient) ResumeSubscription(ctx context.Context, id string) error {
	// Clearing pause_collection requires sending an empty value, which
	// the typed params cannot express.
	p := &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}}
	p.AddExtra("pause_collection", "")

	_, err := c.api.Subscriptions.Update(id, p)
	if err != nil {
		return wrapStripeError("resume subscription", err)
	}
	return nil
}

// wrapStripeError converts a Stripe SDK error into the domain
// processor error, preferring the decline code as the reason.
func wrapStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if stderrors.As(err, &stripeErr) {
		reason := string(stripeErr.Code)
		if stripeErr.DeclineCode != "" {
			reason = string(stripeErr.DeclineCode)
		}
		if reason != "" {
			return errors.ProcessorError{Op: op, Err: stderrors.New(reason)}
		}
	}
	return errors.ProcessorError{Op: op, Err: err}
}
