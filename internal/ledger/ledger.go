// Package ledger is the durable record of every billing attempt.
// Entries are append-created by the billing orchestrator and mutated
// only by the reconciliation engine; they are never deleted.
package ledger

import (
	"context"

	pgx "github.com/jackc/pgx/v5"

	"github.com/clubops/memberbill/internal/models"
)

// Update carries the fields a reconciliation event may set alongside a
// status change. Zero values leave the stored field untouched.
type Update struct {
	PaymentIntentID   string
	InvoiceID         string
	SettledMinorUnits int64
	FailureReason     string
}

// Store defines the transaction ledger operations.
type Store interface {
	// Record appends a new entry. Returns errors.ErrDuplicateCharge
	// when a non-failed entry already exists for the same member and
	// period; this is the atomic double-billing guard.
	Record(ctx context.Context, tx *models.Transaction) error

	// FindByCorrelationID returns every entry carrying the given
	// processor identifier. Correlation ids are not namespaced by
	// club, so the lookup is cross-tenant; the expected cardinality
	// is exactly one, and more than one is an integrity violation
	// for the caller to log.
	FindByCorrelationID(ctx context.Context, id string) ([]models.Transaction, error)

	// HasOpenOrSettled reports whether a non-failed entry exists for
	// (club, member, period). The orchestrator checks this before
	// issuing a charge.
	HasOpenOrSettled(ctx context.Context, clubID, memberID string, period models.Period) (bool, error)

	// UpdateStatus applies a guarded status transition. It reports
	// whether the update was applied; a regression attempt (e.g. a
	// late failure after a settled entry) is skipped, not an error.
	UpdateStatus(ctx context.Context, txID string, status models.TransactionStatus, upd Update) (bool, error)

	Health(ctx context.Context) error
}

// Database interface for dependency injection
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Health(ctx context.Context) error
	IsConfigured() bool
}

// New creates a ledger store instance
func New(db Database) Store {
	if db.IsConfigured() {
		return NewPostgresStore(db)
	}
	return NewInMemoryStore()
}
