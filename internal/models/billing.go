package models

import (
	"fmt"
	"time"
)

// CommissionMode selects how the platform commission is computed for a
// club. The mode is explicit per club; both charge issuance and webhook
// reconciliation read the same policy field.
type CommissionMode string

const (
	CommissionFlat CommissionMode = "flat"
	CommissionRate CommissionMode = "rate"
)

// CommissionPolicy is the platform's cut per billing cycle.
type CommissionPolicy struct {
	Mode           CommissionMode `json:"mode" db:"commission_mode"`
	FlatMinorUnits int64          `json:"flat_minor_units" db:"commission_flat"`
	Rate           float64        `json:"rate" db:"commission_rate"`
}

// BillingCalendar is a club's billing configuration: which day of the
// month charges go out, and during which months members are billed.
type BillingCalendar struct {
	BillingDay   int          `json:"billing_day" db:"billing_day"`
	ActiveMonths []time.Month `json:"active_months" db:"active_months"`
}

// Configured reports whether the calendar is usable for charging.
func (c BillingCalendar) Configured() bool {
	return c.BillingDay >= 1 && c.BillingDay <= 31 && len(c.ActiveMonths) > 0
}

// ContainsMonth reports whether m is a billable month.
func (c BillingCalendar) ContainsMonth(m time.Month) bool {
	for _, am := range c.ActiveMonths {
		if am == m {
			return true
		}
	}
	return false
}

// Club is an independent tenant organization. Owned by external CRUD
// flows; read-only to the billing core.
type Club struct {
	ID              string           `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	StripeAccountID string           `json:"stripe_account_id" db:"stripe_account_id"`
	Calendar        BillingCalendar  `json:"calendar"`
	Commission      CommissionPolicy `json:"commission"`
}

// Member belongs to a club. AnnualFee is in major currency units; nil
// means the member is not billed. SubscriptionMonths is the immutable
// billable-months snapshot taken when the standing subscription was
// created; later calendar changes do not affect it.
type Member struct {
	ID                 string       `json:"id" db:"id"`
	ClubID             string       `json:"club_id" db:"club_id"`
	Email              string       `json:"email" db:"email"`
	AnnualFee          *float64     `json:"annual_fee,omitempty" db:"annual_fee"`
	StripeCustomerID   string       `json:"stripe_customer_id" db:"stripe_customer_id"`
	PaymentMethodID    string       `json:"payment_method_id" db:"payment_method_id"`
	SubscriptionID     string       `json:"subscription_id" db:"subscription_id"`
	SubscriptionMonths []time.Month `json:"subscription_months" db:"subscription_months"`
}

// Billable reports whether the member has a positive annual fee.
func (m Member) Billable() bool {
	return m.AnnualFee != nil && *m.AnnualFee > 0
}

// SubscribedInMonth reports whether the standing subscription should
// collect during month mo, per the snapshot taken at creation time.
func (m Member) SubscribedInMonth(mo time.Month) bool {
	for _, sm := range m.SubscriptionMonths {
		if sm == mo {
			return true
		}
	}
	return false
}

// Period identifies one billing cycle.
type Period struct {
	Month time.Month `json:"month"`
	Year  int        `json:"year"`
}

// PeriodOf returns the billing period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Month: t.Month(), Year: t.Year()}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
