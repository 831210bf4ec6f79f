package cache

import (
	"errors"
	"testing"
	"time"
)

func TestStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{state: StateRunning, want: "running"},
		{state: StatePaused, want: "paused"},
		{state: StateStopped, want: "stopped"},
		{state: State(42), want: "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestPauseResumeStop(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, nil, nil, false)
	c.Start()

	if got := c.State(); got != StateRunning {
		t.Fatalf("initial state = %v, want running", got)
	}

	if err := c.PauseLooping(true); err != nil {
		t.Fatalf("PauseLooping(true) failed: %v", err)
	}
	if got := c.State(); got != StatePaused {
		t.Errorf("state after pause = %v, want paused", got)
	}

	if err := c.PauseLooping(false); err != nil {
		t.Fatalf("PauseLooping(false) failed: %v", err)
	}
	if got := c.State(); got != StateRunning {
		t.Errorf("state after resume = %v, want running", got)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if got := c.State(); got != StateStopped {
		t.Errorf("state after stop = %v, want stopped", got)
	}
}

func TestStoppedIsTerminal(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, nil, nil, false)
	c.Start()

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	// Every command after shutdown fails the same way; none can revive the
	// loop or reopen the store.
	if err := c.PauseLooping(true); !errors.Is(err, ErrStopped) {
		t.Errorf("PauseLooping() after stop = %v, want ErrStopped", err)
	}
	if err := c.UpdateCache(); !errors.Is(err, ErrStopped) {
		t.Errorf("UpdateCache() after stop = %v, want ErrStopped", err)
	}
	if err := c.Stop(); !errors.Is(err, ErrStopped) {
		t.Errorf("second Stop() = %v, want ErrStopped", err)
	}
	if got := c.State(); got != StateStopped {
		t.Errorf("state = %v, want stopped", got)
	}
}

func TestUpdateCacheRunsSynchronously(t *testing.T) {
	t.Parallel()

	c, dir := newTestCache(t, nil, nil, false)
	c.Start()
	defer c.Stop()

	// Pause so the on-demand update is the only cycle that can index it.
	if err := c.PauseLooping(true); err != nil {
		t.Fatalf("PauseLooping() failed: %v", err)
	}
	addImage(t, dir, "late.jpg")

	if err := c.UpdateCache(); err != nil {
		t.Fatalf("UpdateCache() failed: %v", err)
	}
	if got := countSlides(t, c); got != 1 {
		t.Errorf("got %d slides after on-demand update, want 1", got)
	}
}

func TestLastCycleAdvances(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, nil, nil, false)
	if !c.LastCycle().IsZero() {
		t.Fatal("LastCycle() set before any cycle ran")
	}

	before := time.Now()
	if err := c.runCycle(); err != nil {
		t.Fatalf("runCycle() failed: %v", err)
	}
	if last := c.LastCycle(); last.Before(before) {
		t.Errorf("LastCycle() = %v, want >= %v", last, before)
	}
}
