package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"chainwatch/internal/explorer"
)

type fakeFetcher struct {
	fetch func(def explorer.QueryDefinition) (decimal.Decimal, error)
}

func (f *fakeFetcher) Fetch(_ context.Context, def explorer.QueryDefinition) (decimal.Decimal, error) {
	return f.fetch(def)
}

func defs(ids ...string) []explorer.QueryDefinition {
	out := make([]explorer.QueryDefinition, 0, len(ids))
	for _, id := range ids {
		out = append(out, explorer.QueryDefinition{ID: id, ChainName: "ethereum"})
	}
	return out
}

func TestRunAllOneResultPerDefinition(t *testing.T) {
	fetcher := &fakeFetcher{fetch: func(def explorer.QueryDefinition) (decimal.Decimal, error) {
		switch def.ID {
		case "q2":
			return decimal.Decimal{}, errors.New("explorer down")
		case "q3":
			panic("bad handler")
		default:
			return decimal.NewFromInt(42), nil
		}
	}}

	ex := New(fetcher, 2, zerolog.Nop())
	snap := ex.RunAll(context.Background(), defs("q1", "q2", "q3", "q4"))

	if len(snap) != 4 {
		t.Fatalf("expected one result per definition, got %d", len(snap))
	}
	if snap["q1"].Err != nil || snap["q4"].Err != nil {
		t.Fatalf("healthy queries must not be affected by failing neighbours")
	}
	if snap["q2"].Err == nil {
		t.Fatal("q2 failure must be captured in its result")
	}
	if snap["q3"].Err == nil {
		t.Fatal("q3 panic must be captured in its result")
	}

	stats := snap.Stats()
	if stats.Succeeded != 2 || stats.Failed != 2 {
		t.Fatalf("stats mismatch: %+v", stats)
	}
}

func TestRunAllBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int64
	block := make(chan struct{})

	fetcher := &fakeFetcher{fetch: func(explorer.QueryDefinition) (decimal.Decimal, error) {
		cur := inFlight.Add(1)
		for {
			prev := peak.Load()
			if cur <= prev || peak.CompareAndSwap(prev, cur) {
				break
			}
		}
		<-block
		inFlight.Add(-1)
		return decimal.NewFromInt(1), nil
	}}

	ex := New(fetcher, 2, zerolog.Nop())
	done := make(chan Snapshot)
	go func() { done <- ex.RunAll(context.Background(), defs("a", "b", "c", "d", "e")) }()

	close(block)
	snap := <-done

	if len(snap) != 5 {
		t.Fatalf("expected 5 results, got %d", len(snap))
	}
	if peak.Load() > 2 {
		t.Fatalf("worker bound exceeded: peak %d", peak.Load())
	}
}

func TestRunAllEmptyDefinitions(t *testing.T) {
	ex := New(&fakeFetcher{fetch: func(explorer.QueryDefinition) (decimal.Decimal, error) {
		t.Fatal("fetch must not be called")
		return decimal.Decimal{}, nil
	}}, 4, zerolog.Nop())

	if snap := ex.RunAll(context.Background(), nil); len(snap) != 0 {
		t.Fatalf("empty input must yield empty snapshot, got %d", len(snap))
	}
}
