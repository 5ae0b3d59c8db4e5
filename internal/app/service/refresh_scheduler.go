package service

import (
	"context"
	"fmt"
	"time"

	"collateral_monitor/internal/app/port"

	"github.com/robfig/cron/v3"
)

// RefreshScheduler periodically rebuilds the customer read model so that
// persisted snapshots stay fresh while no dashboard is polling.
type RefreshScheduler struct {
	cron    *cron.Cron
	svc     port.CustomerService
	logger  port.Logger
	timeout time.Duration
}

// NewRefreshScheduler registers the refresh job under the given cron spec.
func NewRefreshScheduler(svc port.CustomerService, l port.Logger, schedule string, timeout time.Duration) (*RefreshScheduler, error) {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	s := &RefreshScheduler{
		cron:    cron.New(),
		svc:     svc,
		logger:  l,
		timeout: timeout,
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running the job in the background.
func (s *RefreshScheduler) Start() {
	s.logger.Info("Refresh scheduler started", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish or ctx to end.
func (s *RefreshScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Refresh scheduler stop timed out")
	}
}

// RunOnce performs a single non-forced refresh pass.
func (s *RefreshScheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	list, err := s.svc.ListCustomers(ctx, false)
	if err != nil {
		s.logger.Error("Scheduled customer refresh failed", "error", err)
		return
	}
	s.logger.Info("Scheduled customer refresh finished", "count", list.Count, "source", list.Source)
}
