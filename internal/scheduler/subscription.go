package scheduler

import (
	"context"
	"time"

	"github.com/clubops/memberbill/internal/errors"
	"github.com/clubops/memberbill/internal/logger"
	"github.com/clubops/memberbill/internal/metrics"
	"github.com/clubops/memberbill/internal/processor"
	"github.com/clubops/memberbill/internal/registry"
)

// SyncSummary counts the outcomes of one subscription sync pass.
type SyncSummary struct {
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Paused    int       `json:"paused"`
	Resumed   int       `json:"resumed"`
	Unchanged int       `json:"unchanged"`
	Failed    int       `json:"failed"`
}

// SubscriptionController aligns standing processor subscriptions with
// each member's billable-months snapshot: paused outside the subscribed
// months, active inside them. The snapshot taken at subscription time
// is authoritative; calendar changes made later do not affect it.
type SubscriptionController struct {
	reg     registry.Store
	proc    processor.Client
	timeout time.Duration
	clock   func() time.Time
}

// NewSubscriptionController creates a new subscription state controller
func NewSubscriptionController(reg registry.Store, proc processor.Client, timeout time.Duration) *SubscriptionController {
	return &SubscriptionController{
		reg:     reg,
		proc:    proc,
		timeout: timeout,
		clock:   time.Now,
	}
}

// SyncAll walks every member with a standing subscription and corrects
// its pause state for the current month. Per-member failures are
// counted and logged, never raised.
func (c *SubscriptionController) SyncAll(ctx context.Context) (*SyncSummary, error) {
	now := c.clock().UTC()
	summary := &SyncSummary{Started: now}
	month := now.Month()

	members, err := c.reg.ListSubscribedMembers(ctx)
	if err != nil {
		return nil, errors.DatabaseError{Operation: "list subscribed members", Err: err}
	}

	logger.Info("Starting subscription sync", "month", int(month), "members", len(members))

	for i := range members {
		member := members[i]
		shouldBeActive := member.SubscribedInMonth(month)

		opCtx, cancel := context.WithTimeout(ctx, c.timeout)
		state, err := c.proc.GetSubscription(opCtx, member.SubscriptionID)
		cancel()
		if err != nil {
			logger.Error("Failed to fetch subscription",
				"member_id", member.ID, "subscription_id", member.SubscriptionID, "error", err)
			summary.Failed++
			continue
		}

		if state.Paused != shouldBeActive {
			// Already in the desired state.
			summary.Unchanged++
			continue
		}

		opCtx, cancel = context.WithTimeout(ctx, c.timeout)
		if shouldBeActive {
			err = c.proc.ResumeSubscription(opCtx, member.SubscriptionID)
		} else {
			err = c.proc.PauseSubscription(opCtx, member.SubscriptionID)
		}
		cancel()
		if err != nil {
			logger.Error("Failed to update subscription state",
				"member_id", member.ID, "subscription_id", member.SubscriptionID,
				"should_be_active", shouldBeActive, "error", err)
			summary.Failed++
			continue
		}

		if shouldBeActive {
			logger.Info("Subscription resumed", "member_id", member.ID, "subscription_id", member.SubscriptionID)
			metrics.RecordSubscriptionSync("resumed")
			summary.Resumed++
		} else {
			logger.Info("Subscription paused", "member_id", member.ID, "subscription_id", member.SubscriptionID)
			metrics.RecordSubscriptionSync("paused")
			summary.Paused++
		}
	}

	summary.Finished = c.clock().UTC()
	logger.Info("Subscription sync complete",
		"paused", summary.Paused, "resumed", summary.Resumed,
		"unchanged", summary.Unchanged, "failed", summary.Failed)
	return summary, nil
}
