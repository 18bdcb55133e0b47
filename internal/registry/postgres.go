package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/clubops/memberbill/internal/models"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db Database
}

// NewPostgresStore creates a new PostgreSQL registry store
func NewPostgresStore(db Database) *PostgresStore {
	return &PostgresStore{db: db}
}

const clubColumns = `id, name, stripe_account_id, billing_day, active_months,
	commission_mode, commission_flat, commission_rate`

const memberColumns = `id, club_id, email, annual_fee, stripe_customer_id,
	payment_method_id, subscription_id, subscription_months`

func monthsFromInts(in []int32) []time.Month {
	if len(in) == 0 {
		return nil
	}
	out := make([]time.Month, 0, len(in))
	for _, m := range in {
		out = append(out, time.Month(m))
	}
	return out
}

func scanClub(scan func(dest ...any) error) (*models.Club, error) {
	var c models.Club
	var months []int32
	var mode string
	err := scan(
		&c.ID, &c.Name, &c.StripeAccountID, &c.Calendar.BillingDay, &months,
		&mode, &c.Commission.FlatMinorUnits, &c.Commission.Rate,
	)
	if err != nil {
		return nil, err
	}
	c.Calendar.ActiveMonths = monthsFromInts(months)
	c.Commission.Mode = models.CommissionMode(mode)
	return &c, nil
}

func scanMember(scan func(dest ...any) error) (*models.Member, error) {
	var m models.Member
	var months []int32
	err := scan(
		&m.ID, &m.ClubID, &m.Email, &m.AnnualFee, &m.StripeCustomerID,
		&m.PaymentMethodID, &m.SubscriptionID, &months,
	)
	if err != nil {
		return nil, err
	}
	m.SubscriptionMonths = monthsFromInts(months)
	return &m, nil
}

func (s *PostgresStore) ListClubs(ctx context.Context) ([]models.Club, error) {
	rows, err := s.db.Query(ctx, `SELECT `+clubColumns+` FROM clubs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list clubs: %w", err)
	}
	defer rows.Close()

	var clubs []models.Club
	for rows.Next() {
		c, err := scanClub(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan club: %w", err)
		}
		clubs = append(clubs, *c)
	}
	return clubs, rows.Err()
}

func (s *PostgresStore) GetClub(ctx context.Context, id string) (*models.Club, error) {
	row := s.db.QueryRow(ctx, `SELECT `+clubColumns+` FROM clubs WHERE id = $1`, id)
	c, err := scanClub(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("get club %s: %w", id, err)
	}
	return c, nil
}

func (s *PostgresStore) ListMembers(ctx context.Context, clubID string) ([]models.Member, error) {
	rows, err := s.db.Query(ctx, `SELECT `+memberColumns+` FROM members WHERE club_id = $1 ORDER BY id`, clubID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		m, err := scanMember(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *PostgresStore) ListSubscribedMembers(ctx context.Context) ([]models.Member, error) {
	rows, err := s.db.Query(ctx, `SELECT `+memberColumns+` FROM members WHERE subscription_id <> '' ORDER BY club_id, id`)
	if err != nil {
		return nil, fmt.Errorf("list subscribed members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		m, err := scanMember(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *PostgresStore) SetStripeCustomerID(ctx context.Context, clubID, memberID, customerID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE members SET stripe_customer_id = $3, updated_at = now() WHERE club_id = $1 AND id = $2`,
		clubID, memberID, customerID,
	)
	if err != nil {
		return fmt.Errorf("set customer id for %s/%s: %w", clubID, memberID, err)
	}
	return nil
}

func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}
