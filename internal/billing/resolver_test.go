package billing

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/clubops/memberbill/internal/errors"
	"github.com/clubops/memberbill/internal/models"
	"github.com/clubops/memberbill/internal/registry"
)

func configuredClub(id string) models.Club {
	return models.Club{
		ID:              id,
		Name:            "Rowing Club",
		StripeAccountID: "acct_1",
		Calendar: models.BillingCalendar{
			BillingDay:   5,
			ActiveMonths: []time.Month{time.March, time.June, time.September, time.December},
		},
		Commission: models.CommissionPolicy{Mode: models.CommissionFlat, FlatMinorUnits: 50},
	}
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewInMemoryStore()
	reg.AddClub(configuredClub("club1"))

	noCalendar := configuredClub("club2")
	noCalendar.Calendar = models.BillingCalendar{}
	reg.AddClub(noCalendar)

	noAccount := configuredClub("club3")
	noAccount.StripeAccountID = ""
	reg.AddClub(noAccount)

	r := NewResolver(reg)

	club, err := r.Resolve(ctx, "club1")
	if err != nil {
		t.Fatalf("resolve configured club: %v", err)
	}
	if club.Commission.Mode != models.CommissionFlat {
		t.Errorf("commission policy lost in resolution")
	}

	for _, id := range []string{"club2", "club3"} {
		if _, err := r.Resolve(ctx, id); !stderrors.Is(err, errors.ErrNotConfigured) {
			t.Errorf("club %s: expected ErrNotConfigured, got %v", id, err)
		}
	}

	if _, err := r.Resolve(ctx, "ghost"); err == nil {
		t.Errorf("expected error for unknown club")
	}
}
