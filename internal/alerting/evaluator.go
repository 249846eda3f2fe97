package alerting

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"chainwatch/internal/executor"
)

var hundred = decimal.NewFromInt(100)

// Evaluator applies alert definitions to a tick's query snapshot.
type Evaluator struct {
	logger zerolog.Logger
}

// NewEvaluator constructs an evaluator.
func NewEvaluator(logger zerolog.Logger) *Evaluator {
	return &Evaluator{logger: logger.With().Str("component", "evaluator").Logger()}
}

// Evaluate walks the alert definitions in configured order and returns the
// alerts that fire this tick, mutating states in place. Alerts whose query
// failed this tick are skipped without touching their state. Alerts in
// cooldown are still evaluated so previous_value stays current, but are
// suppressed from firing.
func (e *Evaluator) Evaluate(now time.Time, snap executor.Snapshot, defs []Definition, states map[string]*State) []FiredAlert {
	var fired []FiredAlert

	for _, def := range defs {
		res, ok := snap[def.QueryID]
		if !ok {
			e.logger.Warn().Str("alert_id", def.ID).Str("query_id", def.QueryID).
				Msg("alert references query absent from snapshot")
			continue
		}
		if res.Err != nil {
			e.logger.Debug().Str("alert_id", def.ID).Str("query_id", def.QueryID).
				Err(res.Err).Msg("query degraded, alert skipped this tick")
			continue
		}

		st := states[def.ID]
		if st == nil {
			st = &State{}
			states[def.ID] = st
		}

		conditionMet := e.conditionMet(def, res.Value, st, snap)

		if conditionMet {
			if st.InCooldown(now, def.Cooldown) {
				e.logger.Debug().Str("alert_id", def.ID).
					Time("last_fired_at", st.LastFiredAt).
					Msg("condition met but alert is cooling down")
			} else {
				st.LastFiredAt = now
				fired = append(fired, FiredAlert{
					AlertID:     def.ID,
					QueryID:     def.QueryID,
					Name:        def.Name,
					Description: def.Description,
					Value:       res.Value,
					Previous:    st.PreviousValue,
					Urgency:     def.Urgency,
					FiredAt:     now,
				})
			}
		}

		value := res.Value
		st.PreviousValue = &value
	}

	return fired
}

func (e *Evaluator) conditionMet(def Definition, value decimal.Decimal, st *State, snap executor.Snapshot) bool {
	switch def.Type {
	case TypeRatio:
		ref, ok := e.ratioReference(def, st, snap)
		if !ok || ref.IsZero() {
			return false
		}
		return def.Operator.Compare(value.Div(ref), def.Threshold)

	case TypePercentChange:
		if st.PreviousValue == nil || st.PreviousValue.IsZero() {
			return false
		}
		change := value.Sub(*st.PreviousValue).Div(*st.PreviousValue).Mul(hundred)
		return def.Operator.Compare(change, def.Threshold)

	default:
		return def.Operator.Compare(value, def.Threshold)
	}
}

// ratioReference resolves the denominator of a ratio alert: another query's
// value from the same snapshot when ref_query_id is set, otherwise the
// alert's own previous value.
func (e *Evaluator) ratioReference(def Definition, st *State, snap executor.Snapshot) (decimal.Decimal, bool) {
	if def.RefQueryID == "" {
		if st.PreviousValue == nil {
			return decimal.Decimal{}, false
		}
		return *st.PreviousValue, true
	}

	ref, ok := snap[def.RefQueryID]
	if !ok || ref.Err != nil {
		e.logger.Debug().Str("alert_id", def.ID).Str("ref_query_id", def.RefQueryID).
			Msg("ratio reference unavailable this tick")
		return decimal.Decimal{}, false
	}
	return ref.Value, true
}
