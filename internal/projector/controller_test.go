package projector

import (
	"context"
	"sync"
	"testing"
	"time"
)

type statusReport struct {
	status  Status
	message string
}

// fakeHost records outbound host callbacks.
type fakeHost struct {
	mu        sync.Mutex
	statuses  []statusReport
	variables []map[string]string
	feedbacks [][]FeedbackKind
}

func (h *fakeHost) ReportConnectivityStatus(status Status, message string) {
	h.mu.Lock()
	h.statuses = append(h.statuses, statusReport{status, message})
	h.mu.Unlock()
}

func (h *fakeHost) ReportVariableValues(values map[string]string) {
	h.mu.Lock()
	h.variables = append(h.variables, values)
	h.mu.Unlock()
}

func (h *fakeHost) RequestFeedbackReevaluation(kinds ...FeedbackKind) {
	h.mu.Lock()
	h.feedbacks = append(h.feedbacks, kinds)
	h.mu.Unlock()
}

func (h *fakeHost) lastStatus() statusReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.statuses) == 0 {
		return statusReport{}
	}
	return h.statuses[len(h.statuses)-1]
}

func (h *fakeHost) variableCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.variables)
}

func (h *fakeHost) lastVariables() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.variables) == 0 {
		return nil
	}
	return h.variables[len(h.variables)-1]
}

func (h *fakeHost) feedbackCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.feedbacks)
}

// fakeRecorder records transitions in memory.
type fakeRecorder struct {
	mu          sync.Mutex
	transitions []DeviceState
}

func (r *fakeRecorder) RecordTransition(_ context.Context, power, input string) error {
	r.mu.Lock()
	r.transitions = append(r.transitions, DeviceState{Power: power, Input: input})
	r.mu.Unlock()
	return nil
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transitions)
}

// fakeTelemetry counts telemetry writes.
type fakeTelemetry struct {
	mu     sync.Mutex
	cycles int
	states int
}

func (f *fakeTelemetry) WritePollCycle(_ bool, _ time.Duration) {
	f.mu.Lock()
	f.cycles++
	f.mu.Unlock()
}

func (f *fakeTelemetry) WriteDeviceState(_, _ string) {
	f.mu.Lock()
	f.states++
	f.mu.Unlock()
}

func TestInstanceInitializePollsAndPublishes(t *testing.T) {
	srv := startFakeProjector(t, "80", "3")
	cfg := srv.sessionConfig()

	host := &fakeHost{}
	instance := NewInstance(InstanceOptions{
		Host:         host,
		PollInterval: time.Hour,
		DialTimeout:  2 * time.Second,
	})
	defer instance.Teardown()

	instance.Initialize(Config{Host: cfg.Host, Port: cfg.Port, Password: cfg.Password})

	if got := host.lastStatus(); got.status != StatusOK {
		t.Errorf("initial status = %q, want %q", got.status, StatusOK)
	}

	waitFor(t, 2*time.Second, func() bool { return host.variableCount() >= 1 })

	vars := host.lastVariables()
	if vars[VarPowerState] != "80" {
		t.Errorf("power_state = %q, want 80", vars[VarPowerState])
	}
	if vars[VarInputSource] != "3" {
		t.Errorf("input_source = %q, want 3", vars[VarInputSource])
	}

	if host.feedbackCount() < 1 {
		t.Error("no feedback re-evaluation requested after poll")
	}

	state := instance.DeviceState()
	if state.Power != "80" || state.Input != "3" {
		t.Errorf("cached state = %+v, want power=80 input=3", state)
	}
}

func TestExecuteAction(t *testing.T) {
	srv := startFakeProjector(t, "00", "1")
	cfg := srv.sessionConfig()

	host := &fakeHost{}
	instance := NewInstance(InstanceOptions{
		Host:         host,
		PollInterval: time.Hour,
		Linger:       10 * time.Millisecond,
		DialTimeout:  2 * time.Second,
	})
	defer instance.Teardown()

	instance.Initialize(Config{Host: cfg.Host, Port: cfg.Port, Password: cfg.Password})
	instance.ExecuteAction(ActionPowerOn)

	waitFor(t, 2*time.Second, func() bool {
		commands := srv.receivedCommands()
		return len(commands) == 1 && commands[0] == CmdPowerOn
	})

	if got := instance.Stats().CommandsSent; got != 1 {
		t.Errorf("CommandsSent = %d, want 1", got)
	}
}

func TestExecuteActionUnknownIsNoOp(t *testing.T) {
	host := &fakeHost{}
	instance := NewInstance(InstanceOptions{Host: host, PollInterval: time.Hour})
	defer instance.Teardown()

	instance.Initialize(Config{Host: "projector.local"})
	instance.ExecuteAction("focus_near")

	if got := instance.Stats().CommandsSent; got != 0 {
		t.Errorf("CommandsSent = %d, want 0 for unknown action", got)
	}
	if got := host.lastStatus(); got.status != StatusOK {
		t.Errorf("status = %q, unknown action must not change connectivity", got.status)
	}
}

func TestExecuteActionWithoutHost(t *testing.T) {
	host := &fakeHost{}
	instance := NewInstance(InstanceOptions{Host: host, PollInterval: time.Hour})
	defer instance.Teardown()

	instance.Initialize(Config{})
	instance.ExecuteAction(ActionPowerOn)

	if got := host.lastStatus(); got.status != StatusBadConfig {
		t.Errorf("status = %q, want %q", got.status, StatusBadConfig)
	}
	if got := instance.Stats().CommandsSent; got != 0 {
		t.Errorf("CommandsSent = %d, want 0 without a host", got)
	}
}

func TestExecuteActionBeforeInitialize(t *testing.T) {
	host := &fakeHost{}
	instance := NewInstance(InstanceOptions{Host: host, PollInterval: time.Hour})
	defer instance.Teardown()

	instance.ExecuteAction(ActionPowerOn)

	if got := host.lastStatus(); got.status != StatusBadConfig {
		t.Errorf("status = %q, want %q", got.status, StatusBadConfig)
	}
	if got := instance.Stats().CommandsSent; got != 0 {
		t.Errorf("CommandsSent = %d, want 0 before Initialize", got)
	}
}

func TestExecuteActionAfterTeardown(t *testing.T) {
	host := &fakeHost{}
	instance := NewInstance(InstanceOptions{Host: host, PollInterval: time.Hour})

	instance.Initialize(Config{Host: "projector.local"})
	instance.Teardown()
	instance.ExecuteAction(ActionPowerOn)

	if got := host.lastStatus(); got.status != StatusBadConfig {
		t.Errorf("status = %q, want %q", got.status, StatusBadConfig)
	}
	if got := instance.Stats().CommandsSent; got != 0 {
		t.Errorf("CommandsSent = %d, want 0 after Teardown", got)
	}
}

func TestHandlePollResultRecordsTransitions(t *testing.T) {
	host := &fakeHost{}
	recorder := &fakeRecorder{}
	telemetry := &fakeTelemetry{}
	instance := NewInstance(InstanceOptions{
		Host:         host,
		PollInterval: time.Hour,
		History:      recorder,
		Telemetry:    telemetry,
	})
	defer instance.Teardown()

	instance.handlePollResult("80", "3", time.Millisecond)
	instance.handlePollResult("80", "3", time.Millisecond) // Unchanged: no new transition
	instance.handlePollResult("00", "3", time.Millisecond)

	if got := recorder.count(); got != 2 {
		t.Errorf("recorded transitions = %d, want 2 (initial + power change)", got)
	}
	if host.variableCount() != 3 {
		t.Errorf("variable publishes = %d, want 3 (every poll)", host.variableCount())
	}

	telemetry.mu.Lock()
	cycles, states := telemetry.cycles, telemetry.states
	telemetry.mu.Unlock()
	if cycles != 3 || states != 3 {
		t.Errorf("telemetry cycles=%d states=%d, want 3/3", cycles, states)
	}

	if got := instance.Stats().PollSuccesses; got != 3 {
		t.Errorf("PollSuccesses = %d, want 3", got)
	}
}

func TestEvaluateFeedback(t *testing.T) {
	host := &fakeHost{}
	instance := NewInstance(InstanceOptions{Host: host, PollInterval: time.Hour})
	defer instance.Teardown()

	// Nothing observed yet: all feedbacks are false.
	if instance.EvaluateFeedback(FeedbackPowerState, "80") {
		t.Error("power feedback true before any observation")
	}

	instance.handlePollResult("80", "3", time.Millisecond)

	tests := []struct {
		name     string
		kind     FeedbackKind
		expected string
		want     bool
	}{
		{"power match", FeedbackPowerState, "80", true},
		{"power mismatch", FeedbackPowerState, "00", false},
		{"input match", FeedbackInputSource, "3", true},
		{"input mismatch", FeedbackInputSource, "1", false},
		{"unknown kind", FeedbackKind("lamp_hours"), "80", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := instance.EvaluateFeedback(tt.kind, tt.expected); got != tt.want {
				t.Errorf("EvaluateFeedback(%q, %q) = %v, want %v", tt.kind, tt.expected, got, tt.want)
			}
		})
	}
}

func TestConfigurationUpdatedReplacesWholesale(t *testing.T) {
	host := &fakeHost{}
	instance := NewInstance(InstanceOptions{Host: host, PollInterval: time.Hour})
	defer instance.Teardown()

	instance.Initialize(Config{Host: "old.local", Port: 10000, Password: "secret"})
	instance.ConfigurationUpdated(Config{Host: "new.local"})

	cfg := instance.sessionConfig()
	if cfg.Host != "new.local" {
		t.Errorf("host = %q, want new.local", cfg.Host)
	}
	// Fields absent from the new config are reset, not carried over.
	if cfg.Password != "" {
		t.Errorf("password = %q, want empty after wholesale replace", cfg.Password)
	}
	if cfg.Port != defaultPort {
		t.Errorf("port = %d, want default %d", cfg.Port, defaultPort)
	}
}

func TestCacheSurvivesConfigurationUpdate(t *testing.T) {
	host := &fakeHost{}
	instance := NewInstance(InstanceOptions{Host: host, PollInterval: time.Hour})
	defer instance.Teardown()

	instance.handlePollResult("80", "3", time.Millisecond)
	instance.ConfigurationUpdated(Config{Host: "other.local"})

	state := instance.DeviceState()
	if state.Power != "80" || state.Input != "3" {
		t.Errorf("cache after reconfigure = %+v, want power=80 input=3", state)
	}
}

func TestTeardownIsIdempotent(t *testing.T) {
	host := &fakeHost{}
	instance := NewInstance(InstanceOptions{Host: host, PollInterval: time.Hour})

	instance.Initialize(Config{Host: "projector.local"})
	instance.Teardown()
	instance.Teardown()
}
