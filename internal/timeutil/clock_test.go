package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	d := clock.Since(past)

	if d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestRealClock_Sleep(t *testing.T) {
	clock := RealClock{}
	start := time.Now()
	clock.Sleep(5 * time.Millisecond)

	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("Sleep returned after %v, expected >= 5ms", elapsed)
	}
}

func TestMockClock_Now(t *testing.T) {
	fixedTime := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(fixedTime)
	now := clock.Now()

	if !now.Equal(fixedTime) {
		t.Errorf("got %v, want %v", now, fixedTime)
	}
}

func TestMockClock_Set(t *testing.T) {
	clock := NewMockClock(time.Time{})
	newTime := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	clock.Set(newTime)

	if !clock.Now().Equal(newTime) {
		t.Errorf("got %v, want %v", clock.Now(), newTime)
	}
}

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	clock.Advance(time.Hour)
	expected := start.Add(time.Hour)

	if !clock.Now().Equal(expected) {
		t.Errorf("got %v, want %v", clock.Now(), expected)
	}
}

func TestMockClock_Since(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(now)
	past := now.Add(-5 * time.Minute)
	d := clock.Since(past)

	if d != 5*time.Minute {
		t.Errorf("got %v, want 5m", d)
	}
}

func TestMockClock_Sleep(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	clock.Sleep(10 * time.Millisecond)
	clock.Sleep(20 * time.Millisecond)
	sleeps := clock.Sleeps()

	if len(sleeps) != 2 {
		t.Fatalf("got %d sleeps, want 2", len(sleeps))
	}

	if sleeps[0] != 10*time.Millisecond {
		t.Errorf("first sleep: got %v, want 10ms", sleeps[0])
	}

	if sleeps[1] != 20*time.Millisecond {
		t.Errorf("second sleep: got %v, want 20ms", sleeps[1])
	}

	if got := clock.Since(start); got != 30*time.Millisecond {
		t.Errorf("clock advanced %v, want 30ms", got)
	}
}

func TestMockClock_OnSleep(t *testing.T) {
	clock := NewMockClock(time.Time{})

	var calls []int
	clock.OnSleep(func(n int, d time.Duration) {
		if d != time.Millisecond {
			t.Errorf("sleep %d: got %v, want 1ms", n, d)
		}
		calls = append(calls, n)
	})

	for range 3 {
		clock.Sleep(time.Millisecond)
	}

	if len(calls) != 3 || calls[0] != 1 || calls[2] != 3 {
		t.Errorf("OnSleep calls = %v, want [1 2 3]", calls)
	}
}

func TestMockClock_SleepsIsolated(t *testing.T) {
	clock := NewMockClock(time.Time{})
	clock.Sleep(time.Second)

	sleeps := clock.Sleeps()
	sleeps[0] = time.Hour

	if clock.Sleeps()[0] != time.Second {
		t.Error("Sleeps() should return a copy")
	}
}
