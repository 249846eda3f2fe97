package explorer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestShouldRetry(t *testing.T) {
	transient := transientErr("q1", "timeout", nil)
	permanent := permanentErr("q1", "bad request", nil)

	cases := []struct {
		name       string
		err        error
		attempt    int
		maxRetries int
		want       bool
	}{
		{"nil error", nil, 0, 3, false},
		{"transient first attempt", transient, 0, 3, true},
		{"transient last allowed", transient, 2, 3, true},
		{"transient exhausted", transient, 3, 3, false},
		{"permanent never retried", permanent, 0, 3, false},
		{"zero retries", transient, 0, 0, false},
		{"untyped error", errors.New("boom"), 0, 3, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldRetry(tc.err, tc.attempt, tc.maxRetries); got != tc.want {
				t.Fatalf("ShouldRetry(%v, %d, %d) = %v, want %v", tc.err, tc.attempt, tc.maxRetries, got, tc.want)
			}
		})
	}
}

func TestSleepWithContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepWithContext(ctx, time.Minute); err == nil {
		t.Fatal("cancelled context should abort the wait")
	}
}

func TestSleepWithContextZeroDelay(t *testing.T) {
	if err := SleepWithContext(context.Background(), 0); err != nil {
		t.Fatalf("zero delay should return immediately: %v", err)
	}
}
