package models

import (
	"testing"
	"time"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to TransactionStatus
		allowed  bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusFailed, StatusPaid, true},      // retried invoice may settle later
		{StatusCompleted, StatusPaid, true},   // checkout completed, then charge settled
		{StatusPaid, StatusPaid, true},        // duplicate delivery is a no-op re-apply
		{StatusPaid, StatusFailed, false},     // late failure never reverts a settled entry
		{StatusPaid, StatusPending, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusPending, false},
		{StatusFailed, StatusPending, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s: got %v want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if !StatusPaid.Terminal() || !StatusCompleted.Terminal() {
		t.Errorf("paid and completed must be terminal")
	}
	if StatusPending.Terminal() || StatusFailed.Terminal() {
		t.Errorf("pending and failed must not be terminal")
	}
}

func TestCorrelationIDs(t *testing.T) {
	tx := Transaction{PaymentIntentID: "pi_1", InvoiceID: "in_1"}
	ids := tx.CorrelationIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 correlation ids, got %d", len(ids))
	}
	if ids[0] != "pi_1" || ids[1] != "in_1" {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestMemberBillable(t *testing.T) {
	fee := 600.0
	zero := 0.0
	if (Member{}).Billable() {
		t.Errorf("member without fee must not be billable")
	}
	if (Member{AnnualFee: &zero}).Billable() {
		t.Errorf("member with zero fee must not be billable")
	}
	if !(Member{AnnualFee: &fee}).Billable() {
		t.Errorf("member with positive fee must be billable")
	}
}

func TestCalendarAndSnapshot(t *testing.T) {
	cal := BillingCalendar{BillingDay: 5, ActiveMonths: []time.Month{time.March, time.June}}
	if !cal.Configured() {
		t.Fatalf("calendar should be configured")
	}
	if !cal.ContainsMonth(time.March) || cal.ContainsMonth(time.April) {
		t.Errorf("ContainsMonth mismatch")
	}
	if (BillingCalendar{BillingDay: 5}).Configured() {
		t.Errorf("calendar without active months must not be configured")
	}

	m := Member{SubscriptionMonths: []time.Month{time.March, time.June, time.September, time.December}}
	if !m.SubscribedInMonth(time.March) || m.SubscribedInMonth(time.April) {
		t.Errorf("SubscribedInMonth mismatch")
	}
}

func TestPeriodString(t *testing.T) {
	p := PeriodOf(time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC))
	if p.String() != "2026-03" {
		t.Errorf("got %s want 2026-03", p.String())
	}
}
