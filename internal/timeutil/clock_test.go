package timeutil

import (
	"testing"
	"time"
)

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	if got := clock.Now(); !got.Equal(start) {
		t.Fatalf("expected initial time %v, got %v", start, got)
	}

	clock.Advance(1500 * time.Millisecond)

	want := start.Add(1500 * time.Millisecond)
	if got := clock.Now(); !got.Equal(want) {
		t.Errorf("expected advanced time %v, got %v", want, got)
	}

	if got := clock.Since(start); got != 1500*time.Millisecond {
		t.Errorf("expected Since of 1.5s, got %v", got)
	}
}

func TestMockClockSet(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	target := time.Unix(100, 0)
	clock.Set(target)

	if got := clock.Now(); !got.Equal(target) {
		t.Errorf("expected %v after Set, got %v", target, got)
	}
}

func TestMockClockSleepRecordsWithoutBlocking(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))

	done := make(chan struct{})
	go func() {
		clock.Sleep(time.Hour)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("MockClock.Sleep blocked")
	}

	sleeps := clock.Sleeps()
	if len(sleeps) != 1 || sleeps[0] != time.Hour {
		t.Errorf("expected recorded sleep of 1h, got %v", sleeps)
	}
}

func TestRealClockNow(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	got := clock.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("RealClock.Now returned %v outside [%v, %v]", got, before, after)
	}
}
