// Package scheduler drives the two periodic runs: the billing run that
// issues per-member charges, and the subscription sync that aligns
// standing subscriptions with their billable-months snapshots.
package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/clubops/memberbill/config"
	"github.com/clubops/memberbill/internal/billing"
	"github.com/clubops/memberbill/internal/errors"
	"github.com/clubops/memberbill/internal/ledger"
	"github.com/clubops/memberbill/internal/logger"
	"github.com/clubops/memberbill/internal/metrics"
	"github.com/clubops/memberbill/internal/models"
	"github.com/clubops/memberbill/internal/registry"
)

// ClubSummary counts per-club outcomes of one billing run.
type ClubSummary struct {
	ClubID  string `json:"club_id"`
	Issued  int    `json:"issued"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Reason  string `json:"reason,omitempty"` // set when the whole club was skipped
}

// RunSummary is the result of one billing run. The run always
// completes; per-club and per-member failures are counted, not raised.
type RunSummary struct {
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Clubs    []ClubSummary `json:"clubs"`
	Issued   int           `json:"issued"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
}

// Orchestrator walks all clubs on each billing run and issues one
// charge per eligible member.
type Orchestrator struct {
	resolver *billing.Resolver
	issuer   *billing.Issuer
	ledger   ledger.Store
	reg      registry.Store
	cfg      config.BillingConfig
	limiter  *rate.Limiter
	sem      *semaphore.Weighted

	// clock is swapped in tests to pin the billing day
	clock func() time.Time

	mu      sync.Mutex
	running bool
}

// NewOrchestrator creates a new billing orchestrator
func NewOrchestrator(resolver *billing.Resolver, issuer *billing.Issuer, lg ledger.Store, reg registry.Store, cfg config.BillingConfig) *Orchestrator {
	return &Orchestrator{
		resolver: resolver,
		issuer:   issuer,
		ledger:   lg,
		reg:      reg,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)),
		sem:      semaphore.NewWeighted(int64(cfg.WorkerCount)),
		clock:    time.Now,
	}
}

// RunBilling executes one complete billing cycle. Only a total
// infrastructure failure (the club list itself unreadable) returns an
// error; everything else is absorbed into the summary.
func (o *Orchestrator) RunBilling(ctx context.Context) (*RunSummary, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, fmt.Errorf("billing run already in progress")
	}
	o.running = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	now := o.clock().UTC()
	period := models.PeriodOf(now)
	summary := &RunSummary{Started: now}

	var cutoff time.Time
	if o.cfg.RunBudget > 0 {
		cutoff = now.Add(o.cfg.RunBudget)
	}

	logger.Info("Starting billing run", "period", period.String(), "day", now.Day())

	clubs, err := o.reg.ListClubs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list clubs: %v", errors.ErrStoreUnavailable, err)
	}

	for _, club := range clubs {
		cs := o.runClub(ctx, club.ID, now, period, cutoff)
		summary.Clubs = append(summary.Clubs, cs)
		summary.Issued += cs.Issued
		summary.Skipped += cs.Skipped
		summary.Failed += cs.Failed
	}

	summary.Finished = o.clock().UTC()
	metrics.RecordBillingRun(summary.Finished.Sub(summary.Started))
	logger.Info("Billing run complete",
		"issued", summary.Issued,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"clubs", len(summary.Clubs),
	)
	return summary, nil
}

// runClub bills one club. Failures never propagate past the club.
func (o *Orchestrator) runClub(ctx context.Context, clubID string, now time.Time, period models.Period, cutoff time.Time) ClubSummary {
	cs := ClubSummary{ClubID: clubID}

	club, err := o.resolver.Resolve(ctx, clubID)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotConfigured) {
			logger.Warn("Skipping unconfigured club", "club_id", clubID, "error", err)
			cs.Reason = "not configured"
			return cs
		}
		logger.Error("Failed to resolve club config", "club_id", clubID, "error", err)
		cs.Reason = "resolve failed"
		return cs
	}

	if club.Calendar.BillingDay != now.Day() {
		cs.Reason = "not billing day"
		return cs
	}
	if !club.Calendar.ContainsMonth(now.Month()) {
		cs.Reason = "inactive month"
		return cs
	}

	members, err := o.reg.ListMembers(ctx, clubID)
	if err != nil {
		logger.Error("Failed to list members", "club_id", clubID, "error", err)
		cs.Reason = "member list failed"
		return cs
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	// Loop-side skips are folded in after the workers drain; the
	// workers update cs under mu concurrently.
	loopSkipped := 0

	for i := range members {
		member := members[i]

		if !member.Billable() {
			loopSkipped++
			continue
		}
		if !cutoff.IsZero() && o.clock().After(cutoff) {
			// Past the wall-clock budget: stop scheduling new work,
			// let in-flight work finish.
			logger.Warn("Billing run budget exhausted", "club_id", clubID, "member_id", member.ID)
			loopSkipped++
			continue
		}

		if err := o.sem.Acquire(ctx, 1); err != nil {
			loopSkipped++
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer o.sem.Release(1)

			outcome := o.billMember(ctx, club, &member, period)

			mu.Lock()
			switch outcome {
			case outcomeIssued:
				cs.Issued++
			case outcomeSkipped:
				cs.Skipped++
			default:
				cs.Failed++
			}
			mu.Unlock()
		}()
	}

	wg.Wait()
	cs.Skipped += loopSkipped
	return cs
}

type billOutcome int

const (
	outcomeIssued billOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// billMember computes, issues and records one charge. Every error is
// absorbed here: a processor failure becomes a failed ledger entry,
// nothing aborts the run.
func (o *Orchestrator) billMember(ctx context.Context, club *models.Club, member *models.Member, period models.Period) billOutcome {
	if err := o.limiter.Wait(ctx); err != nil {
		metrics.RecordCharge("skipped")
		return outcomeSkipped
	}

	// Re-entrancy guard: a duplicate trigger for the same day must not
	// double-charge. The ledger uniqueness constraint backs this up
	// atomically at Record time.
	exists, err := o.ledger.HasOpenOrSettled(ctx, club.ID, member.ID, period)
	if err != nil {
		logger.Error("Ledger check failed", "club_id", club.ID, "member_id", member.ID, "error", err)
		metrics.RecordCharge("failed")
		return outcomeFailed
	}
	if exists {
		logger.Debug("Charge already recorded for period",
			"club_id", club.ID, "member_id", member.ID, "period", period.String())
		metrics.RecordCharge("skipped")
		return outcomeSkipped
	}

	amount := billing.MonthlyFeeMinorUnits(*member.AnnualFee, len(club.Calendar.ActiveMonths))
	commission := billing.CommissionMinorUnits(club.Commission, amount)

	tx := &models.Transaction{
		ClubID:               club.ID,
		MemberID:             member.ID,
		AmountMinorUnits:     amount,
		CommissionMinorUnits: commission,
		Status:               models.StatusPending,
		Period:               period,
	}

	res, issueErr := o.issuer.IssueCharge(ctx, club, member, amount, commission, period)
	tx.PaymentIntentID = res.CorrelationID
	if issueErr != nil {
		tx.Status = models.StatusFailed
		tx.FailureReason = issueErr.Error()
	} else if res.Settled {
		// Off-session charge settled synchronously; the webhook
		// confirmation then applies as an idempotent paid-to-paid
		// update.
		tx.Status = models.StatusPaid
		tx.SettledMinorUnits = amount
	}

	if err := o.ledger.Record(ctx, tx); err != nil {
		if stderrors.Is(err, errors.ErrDuplicateCharge) {
			// A concurrent run won the race; its entry stands.
			logger.Warn("Concurrent charge detected, keeping existing entry",
				"club_id", club.ID, "member_id", member.ID, "period", period.String())
			metrics.RecordCharge("skipped")
			return outcomeSkipped
		}
		logger.Error("Failed to record transaction",
			"club_id", club.ID, "member_id", member.ID, "error", err)
		metrics.RecordCharge("failed")
		return outcomeFailed
	}

	if issueErr != nil {
		logger.Warn("Charge failed",
			"club_id", club.ID, "member_id", member.ID,
			"period", period.String(), "error", issueErr)
		metrics.RecordCharge("failed")
		return outcomeFailed
	}

	logger.Info("Charge issued",
		"club_id", club.ID, "member_id", member.ID,
		"period", period.String(), "amount_minor_units", amount,
		"payment_intent_id", res.CorrelationID)
	metrics.RecordCharge("issued")
	return outcomeIssued
}

// IsRunning reports whether a billing run is in progress.
func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}
