package webhook

import (
	"context"

	"github.com/clubops/memberbill/internal/errors"
	"github.com/clubops/memberbill/internal/ledger"
	"github.com/clubops/memberbill/internal/logger"
	"github.com/clubops/memberbill/internal/metrics"
	"github.com/clubops/memberbill/internal/models"
)

// Reconciler applies classified processor events to the transaction
// ledger. Updates go through the ledger's rank guard, so duplicate or
// out-of-order deliveries can never regress a settled entry.
type Reconciler struct {
	ledger ledger.Store
}

// NewReconciler creates a new reconciliation engine
func NewReconciler(lg ledger.Store) *Reconciler {
	return &Reconciler{ledger: lg}
}

// Apply looks up the event's correlation id and applies the matching
// status update. An unmatched event is acknowledged with a warning:
// the charge may have originated outside this system, or the ledger
// write may not have landed yet.
func (r *Reconciler) Apply(ctx context.Context, ev Event) error {
	txs, err := r.ledger.FindByCorrelationID(ctx, ev.CorrelationID)
	if err != nil {
		metrics.RecordWebhookEvent(string(ev.Kind), "error")
		return errors.DatabaseError{Operation: "find by correlation id", Err: err}
	}

	if len(txs) == 0 {
		logger.Warn("No ledger entry for event",
			"kind", string(ev.Kind), "correlation_id", ev.CorrelationID)
		metrics.RecordWebhookEvent(string(ev.Kind), "unmatched")
		return nil
	}

	if len(txs) > 1 {
		logger.Warn("Ledger integrity warning, updating all matches",
			"error", errors.IntegrityError{CorrelationID: ev.CorrelationID, Matches: len(txs)})
		metrics.RecordLedgerConflict()
	}

	status, upd := translate(ev)

	for _, tx := range txs {
		applied, err := r.ledger.UpdateStatus(ctx, tx.ID, status, upd)
		if err != nil {
			metrics.RecordWebhookEvent(string(ev.Kind), "error")
			return errors.DatabaseError{Operation: "update status", Err: err}
		}
		if !applied {
			// The entry already reached an equal or later status.
			logger.Warn("Skipping status regression",
				"kind", string(ev.Kind), "transaction_id", tx.ID,
				"current_status", string(tx.Status), "event_status", string(status))
			metrics.RecordWebhookEvent(string(ev.Kind), "regression_skipped")
			continue
		}
		logger.Info("Transaction reconciled",
			"kind", string(ev.Kind), "transaction_id", tx.ID,
			"status", string(status), "correlation_id", ev.CorrelationID)
		metrics.RecordWebhookEvent(string(ev.Kind), "applied")
	}
	return nil
}

// translate maps an event kind onto the target status and the fields
// the update carries.
func translate(ev Event) (models.TransactionStatus, ledger.Update) {
	switch ev.Kind {
	case KindCheckoutCompleted:
		// Record the payment intent id so the later
		// payment_intent.succeeded event correlates to the same entry.
		return models.StatusCompleted, ledger.Update{PaymentIntentID: ev.PaymentIntentID}
	case KindChargeSucceeded, KindInvoicePaid:
		return models.StatusPaid, ledger.Update{SettledMinorUnits: ev.SettledMinorUnits}
	default:
		return models.StatusFailed, ledger.Update{FailureReason: ev.FailureReason}
	}
}
