package alerting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Type is the closed set of alert condition kinds.
type Type int

const (
	// TypeThreshold compares the current value against a fixed threshold.
	TypeThreshold Type = iota
	// TypeRatio compares value/reference against the threshold. The
	// reference is another query's value when ref_query_id is set,
	// otherwise the alert's own previous value.
	TypeRatio
	// TypePercentChange compares the percentage change from the previous
	// value against the threshold. The first observation only seeds state.
	TypePercentChange
)

func (t Type) String() string {
	switch t {
	case TypeRatio:
		return "ratio"
	case TypePercentChange:
		return "percent_change"
	default:
		return "threshold"
	}
}

// ParseType maps a config string onto an alert type.
func ParseType(s string) (Type, error) {
	switch s {
	case "threshold", "":
		return TypeThreshold, nil
	case "ratio":
		return TypeRatio, nil
	case "percent_change":
		return TypePercentChange, nil
	default:
		return TypeThreshold, fmt.Errorf("unknown alert type %q", s)
	}
}

// Operator is a comparison between an observed value and the threshold.
type Operator int

const (
	OpGreater Operator = iota
	OpLess
	OpGreaterOrEqual
	OpLessOrEqual
	OpEqual
)

func (o Operator) String() string {
	switch o {
	case OpLess:
		return "<"
	case OpGreaterOrEqual:
		return ">="
	case OpLessOrEqual:
		return "<="
	case OpEqual:
		return "=="
	default:
		return ">"
	}
}

// ParseOperator maps a config string onto an operator.
func ParseOperator(s string) (Operator, error) {
	switch s {
	case ">", "":
		return OpGreater, nil
	case "<":
		return OpLess, nil
	case ">=":
		return OpGreaterOrEqual, nil
	case "<=":
		return OpLessOrEqual, nil
	case "==":
		return OpEqual, nil
	default:
		return OpGreater, fmt.Errorf("unknown operator %q", s)
	}
}

// Compare applies the operator with the observed value on the left.
func (o Operator) Compare(value, threshold decimal.Decimal) bool {
	switch o {
	case OpLess:
		return value.LessThan(threshold)
	case OpGreaterOrEqual:
		return value.GreaterThanOrEqual(threshold)
	case OpLessOrEqual:
		return value.LessThanOrEqual(threshold)
	case OpEqual:
		return value.Equal(threshold)
	default:
		return value.GreaterThan(threshold)
	}
}

// Urgency ranks how loudly an alert should be delivered.
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyHigh:
		return "high"
	default:
		return "medium"
	}
}

// ParseUrgency maps a config string onto an urgency level.
func ParseUrgency(s string) (Urgency, error) {
	switch s {
	case "low":
		return UrgencyLow, nil
	case "medium", "normal", "":
		return UrgencyMedium, nil
	case "high":
		return UrgencyHigh, nil
	default:
		return UrgencyMedium, fmt.Errorf("unknown urgency %q", s)
	}
}

// CooldownFromMinutes converts a configured cooldown into a duration.
func CooldownFromMinutes(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}

// Definition is one immutable alert rule bound to a query.
type Definition struct {
	ID          string
	Name        string
	Description string
	QueryID     string
	RefQueryID  string
	Type        Type
	Operator    Operator
	Threshold   decimal.Decimal
	Urgency     Urgency
	Cooldown    time.Duration
}

// State is the mutable per-alert evaluation state, owned by the tick loop.
type State struct {
	PreviousValue *decimal.Decimal
	LastFiredAt   time.Time
}

// InCooldown reports whether the alert fired within the cooldown window.
func (s *State) InCooldown(now time.Time, cooldown time.Duration) bool {
	if s.LastFiredAt.IsZero() || cooldown <= 0 {
		return false
	}
	return now.Sub(s.LastFiredAt) < cooldown
}

// FiredAlert is one alert that triggered in the current tick.
type FiredAlert struct {
	AlertID     string
	QueryID     string
	Name        string
	Description string
	Value       decimal.Decimal
	Previous    *decimal.Decimal
	Urgency     Urgency
	FiredAt     time.Time
}
