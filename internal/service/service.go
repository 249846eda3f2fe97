package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"chainwatch/internal/alerting"
	"chainwatch/internal/executor"
	"chainwatch/internal/explorer"
	"chainwatch/internal/health"
	"chainwatch/internal/metrics"
	"chainwatch/internal/scheduler"
	"chainwatch/internal/storage"
)

// Service orchestrates the per-tick pipeline: query execution, alert
// evaluation, and notification dispatch. It owns the alert state map for
// the lifetime of the run; the map is only touched during the
// single-threaded evaluation step of each tick.
type Service struct {
	scheduler  *scheduler.Scheduler
	executor   *executor.Executor
	evaluator  *alerting.Evaluator
	dispatcher *alerting.Dispatcher
	tracker    *health.Tracker
	auditLog   storage.AlertLogStore
	locker     storage.AdvisoryLocker
	lockKey    int64
	queries    []explorer.QueryDefinition
	alerts     []alerting.Definition
	states     map[string]*alerting.State
	logger     zerolog.Logger
}

// New constructs the monitoring service. auditLog and locker may be nil when
// no database is configured.
func New(
	sched *scheduler.Scheduler,
	exec *executor.Executor,
	eval *alerting.Evaluator,
	dispatcher *alerting.Dispatcher,
	tracker *health.Tracker,
	auditLog storage.AlertLogStore,
	locker storage.AdvisoryLocker,
	lockKey int64,
	queries []explorer.QueryDefinition,
	alerts []alerting.Definition,
	logger zerolog.Logger,
) *Service {
	states := make(map[string]*alerting.State, len(alerts))
	for _, def := range alerts {
		states[def.ID] = &alerting.State{}
	}

	return &Service{
		scheduler:  sched,
		executor:   exec,
		evaluator:  eval,
		dispatcher: dispatcher,
		tracker:    tracker,
		auditLog:   auditLog,
		locker:     locker,
		lockKey:    lockKey,
		queries:    queries,
		alerts:     alerts,
		states:     states,
		logger:     logger.With().Str("component", "service").Logger(),
	}
}

// Run begins the tick loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick executes one full polling and evaluation pass.
func (s *Service) ProcessTick(ctx context.Context, tick time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("tick", tick).Msg("skip tick because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeTick(ctx, tick)
}

func (s *Service) executeTick(ctx context.Context, tick time.Time) error {
	snap := s.executor.RunAll(ctx, s.queries)

	if s.tracker != nil {
		s.tracker.Observe(snap)
	}

	stats := snap.Stats()
	s.logger.Info().Time("tick", tick).
		Int("succeeded", stats.Succeeded).
		Int("failed", stats.Failed).
		Msg("query batch completed")

	fired := s.evaluator.Evaluate(tick, snap, s.alerts, s.states)
	if len(fired) == 0 {
		return nil
	}

	for _, alert := range fired {
		metrics.AlertsFiredTotal.WithLabelValues(alert.AlertID).Inc()
		s.logger.Info().Str("alert_id", alert.AlertID).
			Str("query_id", alert.QueryID).
			Str("value", alert.Value.String()).
			Str("urgency", alert.Urgency.String()).
			Msg("alert fired")
	}

	delivered := s.dispatcher.Dispatch(ctx, fired)
	s.recordAudit(ctx, fired, delivered)

	return nil
}

// recordAudit writes fired alerts to the audit log. Audit failures are
// logged and swallowed: bookkeeping must never break the tick.
func (s *Service) recordAudit(ctx context.Context, fired []alerting.FiredAlert, delivered map[string]bool) {
	if s.auditLog == nil {
		return
	}

	for _, alert := range fired {
		record := storage.AlertRecord{
			AlertID:   alert.AlertID,
			QueryID:   alert.QueryID,
			Value:     alert.Value,
			Previous:  alert.Previous,
			Urgency:   alert.Urgency.String(),
			FiredAt:   alert.FiredAt,
			Delivered: delivered[alert.AlertID],
		}
		if _, err := s.auditLog.InsertAlert(ctx, record); err != nil {
			s.logger.Error().Str("alert_id", alert.AlertID).Err(err).Msg("failed to persist alert record")
		}
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
