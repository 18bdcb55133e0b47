package billing

import (
	"testing"

	"github.com/clubops/memberbill/internal/models"
)

func TestMonthlyFeeMinorUnits(t *testing.T) {
	tests := []struct {
		name      string
		annualFee float64
		months    int
		want      int64
	}{
		{"even split", 600.00, 10, 6000},
		{"full year", 600.00, 12, 5000},
		{"repeating decimal rounds half-up", 100.00, 3, 3333},
		{"half cent rounds up", 100.01, 2, 5001}, // 50.005 -> 50.01
		{"single month", 250.00, 1, 25000},
		{"zero fee", 0, 10, 0},
		{"negative fee", -50, 10, 0},
		{"zero months", 600, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthlyFeeMinorUnits(tt.annualFee, tt.months); got != tt.want {
				t.Errorf("MonthlyFeeMinorUnits(%v, %d) = %d, want %d", tt.annualFee, tt.months, got, tt.want)
			}
		})
	}
}

// The per-cycle rounding error over a full year stays within one cent
// per billable month.
func TestMonthlyFeeRoundingBound(t *testing.T) {
	fees := []float64{600.00, 99.99, 123.45, 1000.01, 59.90}
	for _, annual := range fees {
		for months := 1; months <= 12; months++ {
			cents := MonthlyFeeMinorUnits(annual, months)
			total := cents * int64(months)
			annualCents := int64(annual * 100.0001) // guard float repr
			diff := total - annualCents
			if diff < 0 {
				diff = -diff
			}
			if diff > int64(months) {
				t.Errorf("annual=%v months=%d: total %d differs from %d by more than %d cents",
					annual, months, total, annualCents, months)
			}
		}
	}
}

func TestCommissionMinorUnits(t *testing.T) {
	flat := models.CommissionPolicy{Mode: models.CommissionFlat, FlatMinorUnits: 50}
	if got := CommissionMinorUnits(flat, 6000); got != 50 {
		t.Errorf("flat: got %d want 50", got)
	}

	rate := models.CommissionPolicy{Mode: models.CommissionRate, Rate: 0.025}
	if got := CommissionMinorUnits(rate, 6000); got != 150 {
		t.Errorf("rate: got %d want 150", got)
	}

	if got := CommissionMinorUnits(models.CommissionPolicy{Mode: models.CommissionRate, Rate: 0.015}, 99); got != 1 {
		t.Errorf("rate rounding: got %d want 1", got)
	}

	if got := CommissionMinorUnits(models.CommissionPolicy{}, 6000); got != 0 {
		t.Errorf("unset policy: got %d want 0", got)
	}
}
