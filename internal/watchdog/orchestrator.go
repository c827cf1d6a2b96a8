package watchdog

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ykvlv/deadman/internal/metrics"
	"github.com/ykvlv/deadman/internal/tracing"
)

const defaultWorkers = 4

// OverdueFinder produces the overdue users of one run.
type OverdueFinder interface {
	Scan(ctx context.Context) ([]OverdueUser, error)
}

// AlertDispatcher notifies the contacts of one user.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, u OverdueUser) ([]DispatchResult, error)
}

// Orchestrator runs one scan and dispatches every overdue user on a bounded pool.
type Orchestrator struct {
	scanner    OverdueFinder
	dispatcher AlertDispatcher
	workers    int
	log        *zap.Logger
	now        func() time.Time
}

func NewOrchestrator(scanner OverdueFinder, dispatcher AlertDispatcher, workers int, log *zap.Logger) *Orchestrator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Orchestrator{
		scanner:    scanner,
		dispatcher: dispatcher,
		workers:    workers,
		log:        log,
		now:        time.Now,
	}
}

// Run executes one batch. Only a scan failure is returned as an error;
// per-user failures become result entries and never cancel other users.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	ctx, span := tracing.Tracer().Start(ctx, "watchdog.Run")
	defer span.End()

	start := time.Now()
	defer func() { metrics.RunDuration.Observe(time.Since(start).Seconds()) }()

	users, err := o.scanner.Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return Report{}, fmt.Errorf("scan: %w", err)
	}
	metrics.OverdueUsers.Set(float64(len(users)))
	span.SetAttributes(attribute.Int("deadman.overdue_users", len(users)))

	perUser := make([][]DispatchResult, len(users))
	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, u := range users {
		g.Go(func() error {
			perUser[i] = o.dispatchUser(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Message:           messageCompleted,
		ExpiredUsersCount: len(users),
		Results:           make([]DispatchResult, 0, len(users)),
		Timestamp:         o.now().UTC(),
	}
	if len(users) == 0 {
		report.Message = messageNoOverdue
	}
	for _, results := range perUser {
		for _, res := range results {
			if res.AlertID != "" {
				report.AlertsCreated++
			}
			report.Results = append(report.Results, res)
		}
	}

	metrics.RunsTotal.WithLabelValues("ok").Inc()
	o.log.Info("run completed",
		zap.Int("overdueUsers", report.ExpiredUsersCount),
		zap.Int("alertsCreated", report.AlertsCreated),
		zap.Duration("took", time.Since(start)),
	)
	return report, nil
}

// dispatchUser turns any error or panic into a single error result for u.
func (o *Orchestrator) dispatchUser(ctx context.Context, u OverdueUser) (results []DispatchResult) {
	ctx, span := tracing.Tracer().Start(ctx, "watchdog.Dispatch",
		trace.WithAttributes(attribute.String("deadman.user_id", u.UserID)),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			o.log.Error("dispatch panicked", zap.String("userID", u.UserID), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			results = []DispatchResult{userError(u, err)}
		}
	}()

	var err error
	results, err = o.dispatcher.Dispatch(ctx, u)
	if err != nil {
		o.log.Error("dispatch failed", zap.String("userID", u.UserID), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		return []DispatchResult{userError(u, err)}
	}
	return results
}

func userError(u OverdueUser, err error) DispatchResult {
	metrics.DispatchResults.WithLabelValues(string(ResultError)).Inc()
	return DispatchResult{
		UserID: u.UserID,
		Status: ResultError,
		Reason: reasonDispatchFailed,
		Error:  err.Error(),
	}
}
