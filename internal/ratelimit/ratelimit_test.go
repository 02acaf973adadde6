package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAcquireImmediateWithBurst(t *testing.T) {
	a := New(10, 5)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := a.Acquire(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOnRateLimitedDoublesAndCaps(t *testing.T) {
	a := New(10, 1)
	if got := a.Slowdown(); got != 1 {
		t.Fatalf("initial slowdown = %d, want 1", got)
	}
	seq := []int{2, 4, 8, 16, 16, 16}
	for i, want := range seq {
		if got := a.OnRateLimited(); got != want {
			t.Fatalf("step %d: OnRateLimited() = %d, want %d", i, got, want)
		}
	}
}

func TestOnSuccessDoesNotResetBeforeQuietPeriod(t *testing.T) {
	a := New(10, 1)
	a.OnRateLimited()
	a.OnSuccess()
	if got := a.Slowdown(); got != 2 {
		t.Fatalf("slowdown = %d, want 2 (recovery window not elapsed)", got)
	}
}

func TestOnSuccessResetsAfterQuietPeriod(t *testing.T) {
	a := New(10, 1)
	a.OnRateLimited()
	a.lastThrottleUnix.Store(time.Now().Add(-recoveryQuiet - time.Second).UnixNano())
	a.OnSuccess()
	if got := a.Slowdown(); got != 1 {
		t.Fatalf("slowdown = %d, want 1 after quiet period", got)
	}
}
