package billing

import (
	"context"
	"fmt"

	"github.com/clubops/memberbill/internal/errors"
	"github.com/clubops/memberbill/internal/models"
	"github.com/clubops/memberbill/internal/registry"
)

// Resolver reads a club's billing calendar and commission policy. A
// club without a usable calendar or processor sub-account resolves to
// ErrNotConfigured, which skips the club for the cycle without
// failing the run.
type Resolver struct {
	reg registry.Store
}

// NewResolver creates a new configuration resolver
func NewResolver(reg registry.Store) *Resolver {
	return &Resolver{reg: reg}
}

// Resolve returns the club with its billing configuration, or
// ErrNotConfigured.
func (r *Resolver) Resolve(ctx context.Context, clubID string) (*models.Club, error) {
	club, err := r.reg.GetClub(ctx, clubID)
	if err != nil {
		return nil, fmt.Errorf("resolve club %s: %w", clubID, err)
	}
	if err := Check(club); err != nil {
		return nil, err
	}
	return club, nil
}

// Check validates an already-loaded club's billing configuration.
func Check(club *models.Club) error {
	if !club.Calendar.Configured() {
		return fmt.Errorf("club %s has no billing calendar: %w", club.ID, errors.ErrNotConfigured)
	}
	if club.StripeAccountID == "" {
		return fmt.Errorf("club %s has no processor sub-account: %w", club.ID, errors.ErrNotConfigured)
	}
	return nil
}
