package health

import (
	"sort"
	"sync"
	"time"

	"chainwatch/internal/executor"
)

// Outcome is the last observed fetch result for one query, kept for
// external health probes.
type Outcome struct {
	QueryID   string    `json:"query_id"`
	OK        bool      `json:"ok"`
	Value     string    `json:"value,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Tracker records per-query fetch outcomes across ticks. Written by the tick
// loop, read concurrently by the HTTP health surface.
type Tracker struct {
	mu       sync.RWMutex
	outcomes map[string]Outcome
}

// NewTracker constructs an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{outcomes: make(map[string]Outcome)}
}

// Observe records a tick's snapshot.
func (t *Tracker) Observe(snap executor.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, res := range snap {
		outcome := Outcome{QueryID: id, CheckedAt: res.FetchedAt}
		if res.Err != nil {
			outcome.Error = res.Err.Error()
		} else {
			outcome.OK = true
			outcome.Value = res.Value.String()
		}
		t.outcomes[id] = outcome
	}
}

// Outcomes returns the last outcome per query, sorted by query id.
func (t *Tracker) Outcomes() []Outcome {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Outcome, 0, len(t.outcomes))
	for _, o := range t.outcomes {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueryID < out[j].QueryID })
	return out
}
