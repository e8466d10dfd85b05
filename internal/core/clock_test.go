package core

import (
	"context"
	"testing"
	"time"
)

func TestRealClock_SleepWakes(t *testing.T) {
	c := RealClock{}
	start := time.Now()
	if err := c.Sleep(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("woke after %v, want >= 10ms", elapsed)
	}
}

func TestRealClock_SleepCancellable(t *testing.T) {
	c := RealClock{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Sleep(ctx, time.Hour) }()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatal("Sleep did not return after cancellation")
	}
}

func TestRealClock_ZeroSleepReturnsImmediately(t *testing.T) {
	if err := (RealClock{}).Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0): %v", err)
	}
}

func TestFakeClock_AdvancesOnSleep(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	if err := c.Sleep(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if got := c.Now(); !got.Equal(start.Add(5 * time.Second)) {
		t.Errorf("Now() = %v, want start+5s", got)
	}
	if got := c.Since(start); got != 5*time.Second {
		t.Errorf("Since(start) = %v, want 5s", got)
	}
}

func TestFakeClock_RecordsSleeps(t *testing.T) {
	c := NewFakeClock(time.Now())
	ctx := context.Background()

	c.Sleep(ctx, time.Second)
	c.Sleep(ctx, 0)
	c.Sleep(ctx, 2*time.Second)

	want := []time.Duration{time.Second, 0, 2 * time.Second}
	got := c.Sleeps()
	if len(got) != len(want) {
		t.Fatalf("Sleeps() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFakeClock_SleepFailsWhenCancelled(t *testing.T) {
	c := NewFakeClock(time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	before := c.Now()
	if err := c.Sleep(ctx, time.Minute); err == nil {
		t.Error("expected cancellation error")
	}
	if !c.Now().Equal(before) {
		t.Error("cancelled Sleep must not advance the clock")
	}
	if len(c.Sleeps()) != 0 {
		t.Error("cancelled Sleep must not be recorded")
	}
}

func TestFakeClock_AdvanceAndSet(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	c.Advance(time.Minute)
	if got := c.Now(); !got.Equal(start.Add(time.Minute)) {
		t.Errorf("after Advance: %v", got)
	}

	target := start.Add(time.Hour)
	c.Set(target)
	if got := c.Now(); !got.Equal(target) {
		t.Errorf("after Set: %v", got)
	}
}
