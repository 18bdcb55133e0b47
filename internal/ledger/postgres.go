package ledger

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clubops/memberbill/internal/errors"
	"github.com/clubops/memberbill/internal/metrics"
	"github.com/clubops/memberbill/internal/models"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db Database
}

// NewPostgresStore creates a new PostgreSQL ledger store
func NewPostgresStore(db Database) *PostgresStore {
	return &PostgresStore{db: db}
}

const txColumns = `id, club_id, member_id, amount_minor_units, commission_minor_units,
	payment_intent_id, checkout_session_id, invoice_id, status,
	period_year, period_month, settled_minor_units, failure_reason,
	created_at, updated_at`

// Record appends a new transaction. The partial unique index on
// (club_id, member_id, period) for non-failed rows makes concurrent
// duplicate inserts fail here rather than double-charge.
func (s *PostgresStore) Record(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now

	query := `
		INSERT INTO transactions (` + txColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := s.db.Exec(ctx, query,
		tx.ID, tx.ClubID, tx.MemberID, tx.AmountMinorUnits, tx.CommissionMinorUnits,
		tx.PaymentIntentID, tx.CheckoutSessionID, tx.InvoiceID, tx.Status,
		tx.Period.Year, int(tx.Period.Month), tx.SettledMinorUnits, tx.FailureReason,
		tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == "23505" {
			metrics.RecordLedgerConflict()
			return errors.ErrDuplicateCharge
		}
		return fmt.Errorf("record transaction %s: %w", tx.ID, err)
	}

	return nil
}

// FindByCorrelationID looks up entries across all clubs by any of the
// processor identifiers attached at issuance or reconciliation time.
func (s *PostgresStore) FindByCorrelationID(ctx context.Context, id string) ([]models.Transaction, error) {
	if id == "" {
		return nil, nil
	}

	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE payment_intent_id = $1 OR checkout_session_id = $1 OR invoice_id = $1
		ORDER BY created_at
	`

	rows, err := s.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("find by correlation id: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var month int
		err := rows.Scan(
			&tx.ID, &tx.ClubID, &tx.MemberID, &tx.AmountMinorUnits, &tx.CommissionMinorUnits,
			&tx.PaymentIntentID, &tx.CheckoutSessionID, &tx.InvoiceID, &tx.Status,
			&tx.Period.Year, &month, &tx.SettledMinorUnits, &tx.FailureReason,
			&tx.CreatedAt, &tx.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Period.Month = time.Month(month)
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

// HasOpenOrSettled reports whether a non-failed entry exists for the
// member and period.
func (s *PostgresStore) HasOpenOrSettled(ctx context.Context, clubID, memberID string, period models.Period) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE club_id = $1 AND member_id = $2
			  AND period_year = $3 AND period_month = $4
			  AND status <> 'failed'
		)
	`

	var exists bool
	row := s.db.QueryRow(ctx, query, clubID, memberID, period.Year, int(period.Month))
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check open transaction: %w", err)
	}
	return exists, nil
}

// UpdateStatus applies the transition only when the new status ranks at
// least as high as the stored one. The rank comparison happens in SQL
// so concurrent webhook deliveries cannot interleave a regression.
func (s *PostgresStore) UpdateStatus(ctx context.Context, txID string, status models.TransactionStatus, upd Update) (bool, error) {
	query := `
		UPDATE transactions SET
			status = $2,
			payment_intent_id = CASE WHEN $3 <> '' THEN $3 ELSE payment_intent_id END,
			invoice_id        = CASE WHEN $4 <> '' THEN $4 ELSE invoice_id END,
			settled_minor_units = CASE WHEN $5::bigint > 0 THEN $5 ELSE settled_minor_units END,
			failure_reason    = CASE WHEN $6 <> '' THEN $6 ELSE failure_reason END,
			updated_at        = now()
		WHERE id = $1
		  AND (CASE status
				WHEN 'pending'   THEN 0
				WHEN 'failed'    THEN 1
				WHEN 'completed' THEN 2
				WHEN 'paid'      THEN 3
				ELSE 0 END) <= $7
	`

	affected, err := s.db.Exec(ctx, query,
		txID, status,
		upd.PaymentIntentID, upd.InvoiceID, upd.SettledMinorUnits, upd.FailureReason,
		status.Rank(),
	)
	if err != nil {
		return false, fmt.Errorf("update transaction %s: %w", txID, err)
	}
	return affected > 0, nil
}

// Health checks the database connection
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}
