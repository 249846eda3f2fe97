package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRecord captures one fired alert for auditing. The tick loop keeps
// working when the audit insert fails; this table is an operational log,
// not part of evaluation state.
type AlertRecord struct {
	ID        int64
	AlertID   string
	QueryID   string
	Value     decimal.Decimal
	Previous  *decimal.Decimal
	Urgency   string
	FiredAt   time.Time
	Delivered bool
	CreatedAt time.Time
}
