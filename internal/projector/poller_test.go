package projector

import (
	"context"
	"sync"
	"testing"
	"time"
)

type pollRecorder struct {
	mu       sync.Mutex
	results  []DeviceState
	failures int
}

func (r *pollRecorder) onResult(power, input string, _ time.Duration) {
	r.mu.Lock()
	r.results = append(r.results, DeviceState{Power: power, Input: input})
	r.mu.Unlock()
}

func (r *pollRecorder) onFailure(_ error, _ time.Duration) {
	r.mu.Lock()
	r.failures++
	r.mu.Unlock()
}

func (r *pollRecorder) resultCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func (r *pollRecorder) failureCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

func (r *pollRecorder) lastResult() DeviceState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) == 0 {
		return DeviceState{}
	}
	return r.results[len(r.results)-1]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPollerImmediateFirstCycle(t *testing.T) {
	srv := startFakeProjector(t, "80", "2")

	rec := &pollRecorder{}
	p := NewPoller(PollerOptions{
		Session:  srv.sessionConfig(),
		Interval: time.Hour, // Only the immediate cycle should run
		OnResult: rec.onResult,
	})

	p.Start(context.Background())
	defer p.Stop()

	waitFor(t, 2*time.Second, func() bool { return rec.resultCount() >= 1 })

	if got := rec.lastResult(); got.Power != "80" || got.Input != "2" {
		t.Errorf("poll result = %+v, want power=80 input=2", got)
	}
}

func TestPollerRepeatsOnInterval(t *testing.T) {
	srv := startFakeProjector(t, "00", "1")

	rec := &pollRecorder{}
	p := NewPoller(PollerOptions{
		Session:  srv.sessionConfig(),
		Interval: 50 * time.Millisecond,
		OnResult: rec.onResult,
	})

	p.Start(context.Background())
	defer p.Stop()

	waitFor(t, 2*time.Second, func() bool { return rec.resultCount() >= 3 })
}

func TestPollerSkipsWithoutHost(t *testing.T) {
	rec := &pollRecorder{}
	p := NewPoller(PollerOptions{
		Session:   SessionConfig{},
		Interval:  20 * time.Millisecond,
		OnResult:  rec.onResult,
		OnFailure: rec.onFailure,
	})

	p.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	p.Stop()

	if rec.resultCount() != 0 {
		t.Errorf("got %d results without a host, want 0", rec.resultCount())
	}
	if rec.failureCount() != 0 {
		t.Errorf("got %d failures without a host, want 0 (skip is not failure)", rec.failureCount())
	}
}

func TestPollerReportsFailures(t *testing.T) {
	// Server torn down before the first cycle: connection refused.
	srv := startFakeProjector(t, "00", "1")
	cfg := srv.sessionConfig()
	srv.ln.Close()

	rec := &pollRecorder{}
	p := NewPoller(PollerOptions{
		Session:   cfg,
		Interval:  time.Hour,
		OnResult:  rec.onResult,
		OnFailure: rec.onFailure,
	})

	p.Start(context.Background())
	defer p.Stop()

	waitFor(t, 2*time.Second, func() bool { return rec.failureCount() >= 1 })

	if rec.resultCount() != 0 {
		t.Errorf("failed cycle produced %d results, want 0", rec.resultCount())
	}
}

func TestPollerStopIsIdempotent(t *testing.T) {
	srv := startFakeProjector(t, "00", "1")

	rec := &pollRecorder{}
	p := NewPoller(PollerOptions{
		Session:  srv.sessionConfig(),
		Interval: time.Hour,
		OnResult: rec.onResult,
	})

	p.Start(context.Background())
	p.Stop()
	p.Stop()
}
