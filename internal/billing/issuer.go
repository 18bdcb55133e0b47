package billing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/clubops/memberbill/internal/models"
	"github.com/clubops/memberbill/internal/processor"
	"github.com/clubops/memberbill/internal/registry"
)

// Issuer creates processor-side customers and charge requests. Every
// processor call is bounded by the configured timeout; a timeout is a
// per-member failure, never a run-level abort.
type Issuer struct {
	proc     processor.Client
	reg      registry.Store
	currency string
	timeout  time.Duration
}

// NewIssuer creates a new payment intent issuer
func NewIssuer(proc processor.Client, reg registry.Store, currency string, timeout time.Duration) *Issuer {
	return &Issuer{proc: proc, reg: reg, currency: currency, timeout: timeout}
}

// EnsureCustomer returns the member's processor customer id, creating
// one and writing it back to the member record on first contact.
func (i *Issuer) EnsureCustomer(ctx context.Context, club *models.Club, member *models.Member) (string, error) {
	if member.StripeCustomerID != "" {
		return member.StripeCustomerID, nil
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	customerID, err := i.proc.CreateCustomer(ctx, processor.CustomerParams{
		Email: member.Email,
		Metadata: map[string]string{
			"club_id":   club.ID,
			"member_id": member.ID,
		},
	})
	if err != nil {
		return "", err
	}

	if err := i.reg.SetStripeCustomerID(ctx, club.ID, member.ID, customerID); err != nil {
		return "", fmt.Errorf("write back customer id: %w", err)
	}
	member.StripeCustomerID = customerID
	return customerID, nil
}

// IssueCharge creates one charge request for the member's current
// cycle, scoped to the club's sub-account, carrying the correlation
// metadata the reconciliation engine relies on.
func (i *Issuer) IssueCharge(ctx context.Context, club *models.Club, member *models.Member, amount, commission int64, period models.Period) (processor.ChargeResult, error) {
	customerID, err := i.EnsureCustomer(ctx, club, member)
	if err != nil {
		return processor.ChargeResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	return i.proc.CreateCharge(ctx, processor.ChargeParams{
		AmountMinorUnits:     amount,
		CommissionMinorUnits: commission,
		Currency:             i.currency,
		CustomerID:           customerID,
		PaymentMethodID:      member.PaymentMethodID,
		DestinationAccountID: club.StripeAccountID,
		Description:          fmt.Sprintf("%s membership fee %s", club.Name, period),
		IdempotencyKey:       fmt.Sprintf("charge-%s-%s-%s", club.ID, member.ID, period),
		Metadata: map[string]string{
			"club_id":                club.ID,
			"member_id":              member.ID,
			"period":                 period.String(),
			"commission_minor_units": strconv.FormatInt(commission, 10),
		},
	})
}
