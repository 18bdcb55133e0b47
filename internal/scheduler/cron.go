package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/clubops/memberbill/config"
	"github.com/clubops/memberbill/internal/logger"
)

// Scheduler owns the cron process that fires the daily billing run and
// the subscription sync pass.
type Scheduler struct {
	cron *cron.Cron
	orch *Orchestrator
	subs *SubscriptionController
}

// NewScheduler wires both periodic jobs onto one cron instance.
func NewScheduler(cfg config.BillingConfig, orch *Orchestrator, subs *SubscriptionController) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(),
		orch: orch,
		subs: subs,
	}

	if _, err := s.cron.AddFunc(cfg.ChargeSchedule, func() {
		if _, err := s.orch.RunBilling(context.Background()); err != nil {
			logger.Error("Scheduled billing run failed", "error", err)
		}
	}); err != nil {
		return nil, err
	}

	if _, err := s.cron.AddFunc(cfg.SubSyncSchedule, func() {
		if _, err := s.subs.SyncAll(context.Background()); err != nil {
			logger.Error("Scheduled subscription sync failed", "error", err)
		}
	}); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins firing scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("Scheduler started")
}

// Stop stops scheduling new jobs and returns a context that is done
// once running jobs have finished.
func (s *Scheduler) Stop() context.Context {
	logger.Info("Scheduler stopping")
	return s.cron.Stop()
}
