package billing

import (
	"context"
	"testing"
	"time"

	"github.com/clubops/memberbill/internal/models"
	"github.com/clubops/memberbill/internal/processor"
	"github.com/clubops/memberbill/internal/registry"
)

type fakeProcessor struct {
	customers     int
	charges       []processor.ChargeParams
	chargeErr     error
	customerErr   error
	nextStatus    string
}

func (f *fakeProcessor) CreateCustomer(ctx context.Context, p processor.CustomerParams) (string, error) {
	if f.customerErr != nil {
		return "", f.customerErr
	}
	f.customers++
	return "cus_new", nil
}

func (f *fakeProcessor) CreateCharge(ctx context.Context, p processor.ChargeParams) (processor.ChargeResult, error) {
	if f.chargeErr != nil {
		return processor.ChargeResult{}, f.chargeErr
	}
	f.charges = append(f.charges, p)
	status := f.nextStatus
	if status == "" {
		status = "requires_payment_method"
	}
	return processor.ChargeResult{CorrelationID: "pi_1", Status: status}, nil
}

func (f *fakeProcessor) GetSubscription(ctx context.Context, id string) (processor.SubscriptionState, error) {
	return processor.SubscriptionState{ID: id}, nil
}
func (f *fakeProcessor) PauseSubscription(ctx context.Context, id string) error  { return nil }
func (f *fakeProcessor) ResumeSubscription(ctx context.Context, id string) error { return nil }

func TestEnsureCustomer_CreatesOnceAndWritesBack(t *testing.T) {
	ctx := context.Background()
	proc := &fakeProcessor{}
	reg := registry.NewInMemoryStore()
	club := configuredClub("club1")
	member := models.Member{ID: "m1", ClubID: "club1", Email: "m1@example.com"}
	reg.AddClub(club)
	reg.AddMember(member)

	issuer := NewIssuer(proc, reg, "usd", 5*time.Second)

	id, err := issuer.EnsureCustomer(ctx, &club, &member)
	if err != nil {
		t.Fatalf("ensure customer: %v", err)
	}
	if id != "cus_new" || proc.customers != 1 {
		t.Fatalf("expected one created customer, got id=%s count=%d", id, proc.customers)
	}

	// The id is written back to the member record and reused.
	stored, _ := reg.ListMembers(ctx, "club1")
	if stored[0].StripeCustomerID != "cus_new" {
		t.Fatalf("customer id not persisted: %+v", stored[0])
	}
	if _, err := issuer.EnsureCustomer(ctx, &club, &member); err != nil {
		t.Fatal(err)
	}
	if proc.customers != 1 {
		t.Fatalf("expected customer reuse, created %d", proc.customers)
	}
}

func TestIssueCharge_CarriesCorrelationMetadata(t *testing.T) {
	ctx := context.Background()
	proc := &fakeProcessor{}
	reg := registry.NewInMemoryStore()
	club := configuredClub("club1")
	member := models.Member{ID: "m1", ClubID: "club1", StripeCustomerID: "cus_1", PaymentMethodID: "pm_1"}
	reg.AddClub(club)
	reg.AddMember(member)

	issuer := NewIssuer(proc, reg, "usd", 5*time.Second)
	period := models.Period{Month: time.March, Year: 2026}

	res, err := issuer.IssueCharge(ctx, &club, &member, 6000, 50, period)
	if err != nil {
		t.Fatalf("issue charge: %v", err)
	}
	if res.CorrelationID != "pi_1" {
		t.Fatalf("missing correlation id: %+v", res)
	}

	charge := proc.charges[0]
	if charge.AmountMinorUnits != 6000 || charge.CommissionMinorUnits != 50 {
		t.Errorf("amounts not forwarded: %+v", charge)
	}
	if charge.DestinationAccountID != "acct_1" {
		t.Errorf("charge not scoped to club sub-account: %+v", charge)
	}
	if charge.PaymentMethodID != "pm_1" {
		t.Errorf("saved payment method not used: %+v", charge)
	}
	if charge.IdempotencyKey != "charge-club1-m1-2026-03" {
		t.Errorf("unexpected idempotency key: %s", charge.IdempotencyKey)
	}

	md := charge.Metadata
	if md["club_id"] != "club1" || md["member_id"] != "m1" || md["period"] != "2026-03" || md["commission_minor_units"] != "50" {
		t.Errorf("correlation metadata incomplete: %v", md)
	}
}
