package alerting

import (
	"context"

	"github.com/rs/zerolog"

	"chainwatch/internal/metrics"
)

// Dispatcher delivers fired alerts in order, containing per-alert delivery
// failures so one broken send never blocks the rest of the batch.
type Dispatcher struct {
	notifier Notifier
	logger   zerolog.Logger
}

// NewDispatcher constructs a dispatcher. notifier may be nil, in which case
// fired alerts are logged and dropped.
func NewDispatcher(notifier Notifier, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch sends each fired alert in order and reports which alert ids were
// delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, fired []FiredAlert) map[string]bool {
	delivered := make(map[string]bool, len(fired))
	for _, alert := range fired {
		if d.notifier == nil {
			d.logger.Warn().Str("alert_id", alert.AlertID).Msg("no notifier configured, alert dropped")
			delivered[alert.AlertID] = false
			continue
		}

		if err := d.notifier.Notify(ctx, alert); err != nil {
			metrics.AlertsFailedTotal.WithLabelValues("telegram").Inc()
			d.logger.Error().Str("alert_id", alert.AlertID).Err(err).Msg("alert delivery failed")
			delivered[alert.AlertID] = false
			continue
		}

		metrics.AlertsSentTotal.WithLabelValues("telegram").Inc()
		delivered[alert.AlertID] = true
	}
	return delivered
}
