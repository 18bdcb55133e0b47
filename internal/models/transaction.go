package models

import "time"

// TransactionStatus is the lifecycle state of one billing attempt.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusFailed    TransactionStatus = "failed"
	StatusCompleted TransactionStatus = "completed"
	StatusPaid      TransactionStatus = "paid"
)

// statusRank orders statuses for the no-regression guard. An update is
// applied only when the new status ranks at least as high as the
// current one: a failed charge may later become paid via a retried
// invoice, but paid and completed entries never revert.
var statusRank = map[TransactionStatus]int{
	StatusPending:   0,
	StatusFailed:    1,
	StatusCompleted: 2,
	StatusPaid:      3,
}

// Rank returns the ordering weight of s. Unknown statuses rank lowest.
func (s TransactionStatus) Rank() int {
	return statusRank[s]
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	return next.Rank() >= s.Rank()
}

// Terminal reports whether s is a settled state.
func (s TransactionStatus) Terminal() bool {
	return s == StatusPaid || s == StatusCompleted
}

// Transaction is one ledger entry: the durable record of a single
// billing attempt. Created exactly once per attempt, mutated only by
// the reconciliation engine, never deleted.
type Transaction struct {
	ID                   string            `json:"id" db:"id"`
	ClubID               string            `json:"club_id" db:"club_id"`
	MemberID             string            `json:"member_id" db:"member_id"`
	AmountMinorUnits     int64             `json:"amount_minor_units" db:"amount_minor_units"`
	CommissionMinorUnits int64             `json:"commission_minor_units" db:"commission_minor_units"`
	PaymentIntentID      string            `json:"payment_intent_id,omitempty" db:"payment_intent_id"`
	CheckoutSessionID    string            `json:"checkout_session_id,omitempty" db:"checkout_session_id"`
	InvoiceID            string            `json:"invoice_id,omitempty" db:"invoice_id"`
	Status               TransactionStatus `json:"status" db:"status"`
	Period               Period            `json:"period"`
	SettledMinorUnits    int64             `json:"settled_minor_units,omitempty" db:"settled_minor_units"`
	FailureReason        string            `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt            time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at" db:"updated_at"`
}

// CorrelationIDs returns every processor identifier attached to the
// transaction. Lookups by any of them must resolve to this entry.
func (t Transaction) CorrelationIDs() []string {
	var ids []string
	for _, id := range []string{t.PaymentIntentID, t.CheckoutSessionID, t.InvoiceID} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
