package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"chainwatch/internal/explorer"
	"chainwatch/internal/metrics"
)

// Result is one query's outcome for a tick: a value or a failure, never both.
type Result struct {
	Value     decimal.Decimal
	Err       error
	FetchedAt time.Time
}

// Snapshot maps query id to its Result for one tick. It always contains
// exactly one entry per executed definition.
type Snapshot map[string]Result

// Stats summarises a snapshot for tick-level logging.
type Stats struct {
	Succeeded int
	Failed    int
}

// Stats counts successes and failures in the snapshot.
func (s Snapshot) Stats() Stats {
	var st Stats
	for _, res := range s {
		if res.Err != nil {
			st.Failed++
		} else {
			st.Succeeded++
		}
	}
	return st
}

// Executor runs all configured queries for a tick with bounded parallelism.
type Executor struct {
	fetcher explorer.Fetcher
	workers int
	logger  zerolog.Logger
}

// New constructs an executor. workers bounds in-flight fetches per tick.
func New(fetcher explorer.Fetcher, workers int, logger zerolog.Logger) *Executor {
	if workers <= 0 {
		workers = 1
	}
	return &Executor{
		fetcher: fetcher,
		workers: workers,
		logger:  logger.With().Str("component", "executor").Logger(),
	}
}

// RunAll executes every definition and returns one Result per definition.
// A failing or panicking query is captured as that query's Result and never
// affects any other query in the tick.
func (e *Executor) RunAll(ctx context.Context, defs []explorer.QueryDefinition) Snapshot {
	snap := make(Snapshot, len(defs))

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, e.workers)
	)

	for _, def := range defs {
		wg.Add(1)
		go func(def explorer.QueryDefinition) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res := e.runOne(ctx, def)

			mu.Lock()
			snap[def.ID] = res
			mu.Unlock()
		}(def)
	}

	wg.Wait()
	return snap
}

func (e *Executor) runOne(ctx context.Context, def explorer.QueryDefinition) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Err:       fmt.Errorf("query %s panicked: %v", def.ID, r),
				FetchedAt: time.Now().UTC(),
			}
			e.logger.Error().Str("query_id", def.ID).Interface("panic", r).Msg("query execution panicked")
		}
	}()

	start := time.Now()
	value, err := e.fetcher.Fetch(ctx, def)
	elapsed := time.Since(start)

	metrics.QueryDuration.WithLabelValues(def.ID).Observe(elapsed.Seconds())

	if err != nil {
		metrics.QueriesTotal.WithLabelValues(def.ID, "failure").Inc()
		e.logger.Warn().Str("query_id", def.ID).Dur("elapsed", elapsed).Err(err).Msg("query failed")
		return Result{Err: err, FetchedAt: time.Now().UTC()}
	}

	metrics.QueriesTotal.WithLabelValues(def.ID, "success").Inc()
	metrics.QueryLastSuccess.WithLabelValues(def.ID).SetToCurrentTime()
	e.logger.Debug().Str("query_id", def.ID).Str("value", value.String()).Dur("elapsed", elapsed).Msg("query succeeded")

	return Result{Value: value, FetchedAt: time.Now().UTC()}
}
