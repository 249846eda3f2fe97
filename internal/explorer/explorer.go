package explorer

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// QueryDefinition identifies one on-chain numeric fact to poll. Params are
// provider-defined and passed through opaquely; the core never interprets
// them beyond the reserved "transport" and "decimals" keys.
type QueryDefinition struct {
	ID        string
	ChainName string
	Params    map[string]string
}

// Fetcher retrieves the current value for a query definition.
type Fetcher interface {
	Fetch(ctx context.Context, def QueryDefinition) (decimal.Decimal, error)
}

// FailureKind classifies fetch failures for retry purposes.
type FailureKind int

const (
	// KindTransient marks failures expected to clear on a later attempt:
	// network errors, timeouts, HTTP 5xx, provider rate limiting.
	KindTransient FailureKind = iota
	// KindPermanent marks failures retrying cannot fix: HTTP 4xx and
	// provider-level error payloads.
	KindPermanent
)

func (k FailureKind) String() string {
	if k == KindPermanent {
		return "permanent"
	}
	return "transient"
}

// Error is the typed failure returned by fetchers.
type Error struct {
	Kind    FailureKind
	QueryID string
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query %s: %s failure: %s: %v", e.QueryID, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("query %s: %s failure: %s", e.QueryID, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func transientErr(queryID, msg string, err error) *Error {
	return &Error{Kind: KindTransient, QueryID: queryID, Msg: msg, Err: err}
}

func permanentErr(queryID, msg string, err error) *Error {
	return &Error{Kind: KindPermanent, QueryID: queryID, Msg: msg, Err: err}
}

// IsTransient reports whether err is a transient fetch failure.
func IsTransient(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindTransient
}
