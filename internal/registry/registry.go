// Package registry reads the club and member records owned by the
// external registration flows. The billing core only ever writes one
// field back: a member's processor customer id.
package registry

import (
	"context"

	pgx "github.com/jackc/pgx/v5"

	"github.com/clubops/memberbill/internal/models"
)

// Store defines read access to clubs and members.
type Store interface {
	ListClubs(ctx context.Context) ([]models.Club, error)
	GetClub(ctx context.Context, id string) (*models.Club, error)

	// ListMembers returns every member of the club, billable or not;
	// the orchestrator filters.
	ListMembers(ctx context.Context, clubID string) ([]models.Member, error)

	// ListSubscribedMembers returns, across all clubs, members holding
	// a standing subscription.
	ListSubscribedMembers(ctx context.Context) ([]models.Member, error)

	// SetStripeCustomerID writes back the processor customer id after
	// first contact with the processor.
	SetStripeCustomerID(ctx context.Context, clubID, memberID, customerID string) error

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

// New creates a registry store instance
func New(db Database) Store {
	if db.IsConfigured() {
		return NewPostgresStore(db)
	}
	return NewInMemoryStore()
}
