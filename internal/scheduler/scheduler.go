package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/deadman/internal/lock"
	"github.com/ykvlv/deadman/internal/metrics"
	"github.com/ykvlv/deadman/internal/watchdog"
)

// Runner is a single batch run; watchdog.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context) (watchdog.Report, error)
}

// Scheduler periodically triggers a batch run under the run lock.
type Scheduler struct {
	runner   Runner
	locker   lock.Locker
	log      *zap.Logger
	interval time.Duration
}

// New creates a new Scheduler ticking every interval.
func New(runner Runner, locker lock.Locker, log *zap.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		runner:   runner,
		locker:   locker,
		log:      log,
		interval: interval,
	}
}

// Run starts the loop until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// RunOnce runs one batch if no other run holds the lock, otherwise returns lock.ErrHeld.
func (s *Scheduler) RunOnce(ctx context.Context) (watchdog.Report, error) {
	release, err := s.locker.TryAcquire(ctx)
	if err != nil {
		return watchdog.Report{}, err
	}
	defer func() {
		// Release even if ctx is already canceled.
		relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := release(relCtx); err != nil {
			s.log.Warn("release run lock failed", zap.Error(err))
		}
	}()
	return s.runner.Run(ctx)
}

// tick performs one scheduled cycle.
func (s *Scheduler) tick(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, lock.ErrHeld):
		metrics.RunsTotal.WithLabelValues("skipped").Inc()
		s.log.Info("run skipped, another run is in progress")
	case err != nil:
		s.log.Error("scheduled run failed", zap.Error(err))
	default:
		counts := report.CountByStatus()
		s.log.Info("scheduled run finished",
			zap.Int("overdueUsers", report.ExpiredUsersCount),
			zap.Int("sent", counts[watchdog.ResultSent]),
			zap.Int("failed", counts[watchdog.ResultFailed]),
			zap.Int("errors", counts[watchdog.ResultError]),
		)
	}
}
