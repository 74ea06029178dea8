package projector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Status values reported to the host surface.
type Status string

// Connectivity statuses.
const (
	StatusOK        Status = "ok"
	StatusBadConfig Status = "bad_config"
	StatusError     Status = "error"
)

// Variable identifiers published to the host surface.
const (
	VarPowerState  = "power_state"
	VarInputSource = "input_source"
)

// Host is the outbound boundary: the component the instance calls back
// into to report connectivity and push updated state. Implementations
// must be safe for concurrent use.
type Host interface {
	// ReportConnectivityStatus reports the instance's view of its
	// connection to the device.
	ReportConnectivityStatus(status Status, message string)

	// ReportVariableValues pushes updated variable values
	// (power_state, input_source).
	ReportVariableValues(values map[string]string)

	// RequestFeedbackReevaluation asks the host to re-evaluate
	// feedbacks of the given kinds against the state cache.
	RequestFeedbackReevaluation(kinds ...FeedbackKind)
}

// TransitionRecorder persists observed device state transitions.
// Optional; satisfied by *history.Repository via an adapter in main.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, power, input string) error
}

// TelemetryWriter receives poll-cycle telemetry. Optional; satisfied by
// the InfluxDB client via an adapter in main. Implementations must not
// block.
type TelemetryWriter interface {
	WritePollCycle(success bool, duration time.Duration)
	WriteDeviceState(power, input string)
}

// Config is the device configuration owned by the instance. It is
// replaced wholesale on every configuration update and never partially
// mutated.
type Config struct {
	// Host is the projector hostname or IP address.
	Host string

	// Port is the control port. Default: 10000.
	Port int

	// Password for the control connection. Empty is valid.
	Password string
}

// DeviceState is the cached device state. Empty tokens mean the value
// has never been observed. Values persist across poll cycles until
// overwritten and are never reset on connection failure: stale-but-
// present is preferred over unknown.
type DeviceState struct {
	Power string
	Input string
}

// InstanceStats holds operational counters for health reporting.
type InstanceStats struct {
	CommandsSent  uint64
	PollSuccesses uint64
	PollFailures  uint64
	LastActivity  time.Time
}

// InstanceOptions holds construction parameters for an Instance.
type InstanceOptions struct {
	// Host receives outbound notifications. Required.
	Host Host

	// Logger is optional.
	Logger Logger

	// PollInterval between status polls. Default: 30 seconds.
	PollInterval time.Duration

	// Linger is the post-command grace period. Default: 1 second.
	Linger time.Duration

	// DialTimeout for session connections. Default: 10 seconds.
	DialTimeout time.Duration

	// History optionally records state transitions.
	History TransitionRecorder

	// Telemetry optionally receives poll metrics.
	Telemetry TelemetryWriter
}

// Instance is the controller the host surface calls directly. It owns
// the current configuration, the device state cache, the active ad-hoc
// session (if any) and the poll timer.
//
// At most one ad-hoc command session is active at a time: starting a new
// one unconditionally destroys any prior session still inside its linger
// window. There is no queue.
type Instance struct {
	host      Host
	logger    Logger
	history   TransitionRecorder
	telemetry TelemetryWriter

	pollInterval time.Duration
	linger       time.Duration
	dialTimeout  time.Duration

	mu          sync.Mutex
	cfg         Config
	cache       DeviceState
	session     *Session
	poller      *Poller
	initialized bool

	// Instance-level context: command sessions and the poller live
	// under it and are cancelled on Teardown.
	ctx       context.Context
	ctxCancel context.CancelFunc

	commandsSent  atomic.Uint64
	pollSuccesses atomic.Uint64
	pollFailures  atomic.Uint64
	lastActivity  atomic.Int64 // Unix timestamp
}

// NewInstance creates an instance. Call Initialize to begin operation.
func NewInstance(opts InstanceOptions) *Instance {
	pollInterval := opts.PollInterval
	if pollInterval == 0 {
		pollInterval = defaultPollInterval
	}
	linger := opts.Linger
	if linger == 0 {
		linger = defaultLinger
	}
	dialTimeout := opts.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = defaultDialTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Instance{
		host:         opts.Host,
		logger:       opts.Logger,
		history:      opts.History,
		telemetry:    opts.Telemetry,
		pollInterval: pollInterval,
		linger:       linger,
		dialTimeout:  dialTimeout,
		ctx:          ctx,
		ctxCancel:    cancel,
	}
}

// Initialize stores the configuration, reports nominal connectivity and
// starts the state poller.
func (i *Instance) Initialize(cfg Config) {
	i.mu.Lock()
	i.cfg = cfg
	i.initialized = true
	i.mu.Unlock()

	i.host.ReportConnectivityStatus(StatusOK, "")
	i.restartPoller()

	i.logInfo("instance initialized", "host", cfg.Host, "port", i.sessionConfig().Port)
}

// ConfigurationUpdated replaces the stored configuration wholesale,
// destroys any active session and restarts the poller against the new
// configuration. An in-flight session is not waited for; it completes or
// errors independently.
func (i *Instance) ConfigurationUpdated(cfg Config) {
	i.mu.Lock()
	i.cfg = cfg
	session := i.session
	i.session = nil
	i.mu.Unlock()

	if session != nil {
		session.Close()
	}

	i.restartPoller()

	i.logInfo("configuration updated", "host", cfg.Host)
}

// ExecuteAction looks up the command code for the action and sends it on
// a fresh session. Unknown action identifiers are ignored. Calling
// before Initialize (or after Teardown) and a missing host are both
// user-visible configuration errors; no connection is attempted.
func (i *Instance) ExecuteAction(id ActionID) {
	code, ok := CommandForAction(id)
	if !ok {
		i.logDebug("unknown action ignored", "action", string(id))
		return
	}

	i.mu.Lock()
	cfg := i.cfg
	prior := i.session
	initialized := i.initialized
	i.mu.Unlock()

	if !initialized {
		i.logError("cannot execute action", "action", string(id), "error", ErrNotInitialized)
		i.host.ReportConnectivityStatus(StatusBadConfig, ErrNotInitialized.Error())
		return
	}

	if cfg.Host == "" {
		i.logError("cannot execute action: no host configured", "action", string(id))
		i.host.ReportConnectivityStatus(StatusBadConfig, "no host configured")
		return
	}

	// Last-writer-wins: destroy any prior session unconditionally.
	if prior != nil {
		prior.Close()
	}

	session := NewSession(i.sessionConfig(), i.logger)
	session.SetOnError(func(err error) {
		i.host.ReportConnectivityStatus(StatusError, err.Error())
	})

	i.mu.Lock()
	i.session = session
	i.mu.Unlock()

	session.SendCommand(i.ctx, code)
	i.commandsSent.Add(1)
	i.lastActivity.Store(time.Now().Unix())

	i.logInfo("action dispatched", "action", string(id), "code", code)
}

// Teardown cancels the poll timer and forcibly closes any open session's
// socket. No graceful drain is attempted.
func (i *Instance) Teardown() {
	i.mu.Lock()
	poller := i.poller
	i.poller = nil
	session := i.session
	i.session = nil
	i.initialized = false
	i.mu.Unlock()

	i.ctxCancel()

	if poller != nil {
		poller.Stop()
	}
	if session != nil {
		session.Close()
	}

	i.logInfo("instance torn down")
}

// DeviceState returns the current cached device state.
func (i *Instance) DeviceState() DeviceState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cache
}

// EvaluateFeedback compares the expected token for a feedback kind
// against the state cache.
func (i *Instance) EvaluateFeedback(kind FeedbackKind, expected string) bool {
	state := i.DeviceState()
	switch kind {
	case FeedbackPowerState:
		return state.Power != "" && state.Power == expected
	case FeedbackInputSource:
		return state.Input != "" && state.Input == expected
	default:
		return false
	}
}

// Stats returns operational counters for health reporting.
func (i *Instance) Stats() InstanceStats {
	return InstanceStats{
		CommandsSent:  i.commandsSent.Load(),
		PollSuccesses: i.pollSuccesses.Load(),
		PollFailures:  i.pollFailures.Load(),
		LastActivity:  time.Unix(i.lastActivity.Load(), 0),
	}
}

// restartPoller tears down any running poller and starts a new one from
// the current configuration, polling immediately.
func (i *Instance) restartPoller() {
	i.mu.Lock()
	prior := i.poller
	i.mu.Unlock()

	if prior != nil {
		prior.Stop()
	}

	poller := NewPoller(PollerOptions{
		Session:  i.sessionConfig(),
		Interval: i.pollInterval,
		OnResult: i.handlePollResult,
		OnFailure: func(_ error, elapsed time.Duration) {
			i.pollFailures.Add(1)
			if i.telemetry != nil {
				i.telemetry.WritePollCycle(false, elapsed)
			}
		},
		Logger: i.logger,
	})

	i.mu.Lock()
	i.poller = poller
	i.mu.Unlock()

	poller.Start(i.ctx)
}

// handlePollResult lands a successful poll cycle: update the cache,
// push variable values, and request one feedback re-evaluation covering
// both kinds.
func (i *Instance) handlePollResult(power, input string, elapsed time.Duration) {
	i.mu.Lock()
	changed := i.cache.Power != power || i.cache.Input != input
	i.cache = DeviceState{Power: power, Input: input}
	i.mu.Unlock()

	i.pollSuccesses.Add(1)
	i.lastActivity.Store(time.Now().Unix())

	i.host.ReportVariableValues(map[string]string{
		VarPowerState:  power,
		VarInputSource: input,
	})
	i.host.RequestFeedbackReevaluation(FeedbackPowerState, FeedbackInputSource)

	if i.telemetry != nil {
		i.telemetry.WritePollCycle(true, elapsed)
		i.telemetry.WriteDeviceState(power, input)
	}

	if changed && i.history != nil {
		if err := i.history.RecordTransition(i.ctx, power, input); err != nil {
			i.logWarn("failed to record state transition", "error", err)
		}
	}
}

// sessionConfig builds a session configuration from the current device
// configuration. Callers must not hold i.mu.
func (i *Instance) sessionConfig() SessionConfig {
	i.mu.Lock()
	cfg := i.cfg
	i.mu.Unlock()

	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	return SessionConfig{
		Host:        cfg.Host,
		Port:        port,
		Password:    cfg.Password,
		DialTimeout: i.dialTimeout,
		Linger:      i.linger,
	}
}

func (i *Instance) logDebug(msg string, keysAndValues ...any) {
	if i.logger != nil {
		i.logger.Debug(msg, keysAndValues...)
	}
}

func (i *Instance) logInfo(msg string, keysAndValues ...any) {
	if i.logger != nil {
		i.logger.Info(msg, keysAndValues...)
	}
}

func (i *Instance) logWarn(msg string, keysAndValues ...any) {
	if i.logger != nil {
		i.logger.Warn(msg, keysAndValues...)
	}
}

func (i *Instance) logError(msg string, keysAndValues ...any) {
	if i.logger != nil {
		i.logger.Error(msg, keysAndValues...)
	}
}
