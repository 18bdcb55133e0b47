// Package webhook receives the processor's signed event stream and
// reconciles it into the transaction ledger.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/clubops/memberbill/internal/errors"
	"github.com/clubops/memberbill/internal/logger"
	"github.com/clubops/memberbill/internal/metrics"
)

// Kind is the reconciliation-relevant classification of an event.
type Kind string

const (
	KindCheckoutCompleted Kind = "checkout_completed"
	KindChargeSucceeded   Kind = "charge_succeeded"
	KindInvoicePaid       Kind = "invoice_paid"
	KindChargeFailed      Kind = "charge_failed"
	KindInvoiceFailed     Kind = "invoice_failed"
	KindIgnored           Kind = "ignored"
)

// Event is a classified processor event reduced to the fields the
// reconciler needs.
type Event struct {
	Kind              Kind
	CorrelationID     string
	PaymentIntentID   string // from checkout sessions, for later correlation
	SettledMinorUnits int64
	FailureReason     string
}

// Router verifies, deduplicates and classifies incoming events, then
// hands them to the reconciler.
type Router struct {
	secret string
	cache  *EventCache
	rec    *Reconciler
}

// NewRouter creates a new event router
func NewRouter(secret string, cache *EventCache, rec *Reconciler) *Router {
	return &Router{secret: secret, cache: cache, rec: rec}
}

// Process handles one raw webhook delivery. A signature failure
// returns ErrBadSignature and mutates nothing.
func (r *Router) Process(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, r.secret)
	if err != nil {
		metrics.RecordWebhookEvent("unknown", "bad_signature")
		return fmt.Errorf("%w: %v", errors.ErrBadSignature, err)
	}

	ev, err := classify(event)
	if err != nil {
		metrics.RecordWebhookEvent(string(ev.Kind), "malformed")
		return err
	}
	if ev.Kind == KindIgnored {
		logger.Debug("Ignoring webhook event", "event_id", event.ID, "type", event.Type)
		metrics.RecordWebhookEvent(string(KindIgnored), "acknowledged")
		return nil
	}

	first, err := r.cache.FirstDelivery(ctx, event.ID)
	if err != nil {
		// Dedupe is best effort; reconciliation is idempotent.
		logger.Warn("Event dedupe check failed", "event_id", event.ID, "error", err)
	} else if !first {
		logger.Debug("Skipping redelivered event", "event_id", event.ID, "type", event.Type)
		metrics.RecordWebhookEvent(string(ev.Kind), "duplicate")
		return nil
	}

	if err := r.rec.Apply(ctx, ev); err != nil {
		// The id is already marked seen; unmark it or the sender's
		// retry of this transient failure would be dropped.
		if ferr := r.cache.Forget(ctx, event.ID); ferr != nil {
			logger.Warn("Failed to unmark event after error", "event_id", event.ID, "error", ferr)
		}
		return err
	}
	return nil
}

// classify maps the processor event onto a Kind and pulls out the
// correlation id and update fields.
func classify(event stripe.Event) (Event, error) {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return Event{Kind: KindCheckoutCompleted}, fmt.Errorf("decode checkout session: %w", err)
		}
		ev := Event{Kind: KindCheckoutCompleted, CorrelationID: sess.ID}
		if sess.PaymentIntent != nil {
			ev.PaymentIntentID = sess.PaymentIntent.ID
		}
		return ev, nil

	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return Event{Kind: KindChargeSucceeded}, fmt.Errorf("decode payment intent: %w", err)
		}
		return Event{
			Kind:              KindChargeSucceeded,
			CorrelationID:     pi.ID,
			SettledMinorUnits: pi.AmountReceived,
		}, nil

	case "invoice.paid", "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return Event{Kind: KindInvoicePaid}, fmt.Errorf("decode invoice: %w", err)
		}
		return Event{
			Kind:              KindInvoicePaid,
			CorrelationID:     inv.ID,
			SettledMinorUnits: inv.AmountPaid,
		}, nil

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return Event{Kind: KindChargeFailed}, fmt.Errorf("decode payment intent: %w", err)
		}
		ev := Event{Kind: KindChargeFailed, CorrelationID: pi.ID, FailureReason: "payment failed"}
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			ev.FailureReason = pi.LastPaymentError.Msg
		}
		return ev, nil

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return Event{Kind: KindInvoiceFailed}, fmt.Errorf("decode invoice: %w", err)
		}
		return Event{Kind: KindInvoiceFailed, CorrelationID: inv.ID, FailureReason: "invoice payment failed"}, nil
	}

	return Event{Kind: KindIgnored}, nil
}
