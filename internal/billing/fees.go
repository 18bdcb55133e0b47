// Package billing holds the per-cycle fee computation, the club
// billing-configuration resolver, and the charge issuer.
package billing

import (
	"math"

	"github.com/clubops/memberbill/internal/models"
)

// MonthlyFeeMinorUnits splits an annual fee (major currency units)
// evenly across the billable months: the per-cycle fee is the annual
// fee divided by the month count, rounded half-up to two decimal
// places, expressed in minor units.
func MonthlyFeeMinorUnits(annualFee float64, activeMonths int) int64 {
	if annualFee <= 0 || activeMonths < 1 {
		return 0
	}
	monthly := math.Round(annualFee/float64(activeMonths)*100) / 100
	return int64(math.Round(monthly * 100))
}

// CommissionMinorUnits computes the platform commission for one cycle
// from the club's policy: a flat per-cycle amount or a rate applied to
// the charged amount. The mode is explicit per club.
func CommissionMinorUnits(policy models.CommissionPolicy, amountMinorUnits int64) int64 {
	switch policy.Mode {
	case models.CommissionRate:
		return int64(math.Round(policy.Rate * float64(amountMinorUnits)))
	case models.CommissionFlat:
		return policy.FlatMinorUnits
	default:
		return 0
	}
}
