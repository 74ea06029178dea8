package projector

import (
	"context"
	"sync"
	"time"
)

// defaultPollInterval is how often the poller refreshes device state.
const defaultPollInterval = 30 * time.Second

// Poller keeps cached device state fresh without user action. On a fixed
// interval it opens a fresh status-query session, and on success hands
// the parsed power and input tokens to the result callback. Failures are
// logged and otherwise ignored: polling is not fatal, the cache keeps
// its previous values, and the next scheduled cycle proceeds
// independently.
//
// Cycles are run one at a time from a single goroutine, so a slow cycle
// delays the next tick rather than overlapping it. Each cycle is bounded
// by an interval-length timeout so a stalled device cannot wedge the
// loop.
type Poller struct {
	cfg      SessionConfig
	interval time.Duration

	// onResult receives the parsed power and input tokens after a fully
	// successful query pair, along with the cycle duration.
	onResult func(power, input string, elapsed time.Duration)

	// onFailure, if set, is invoked after a failed cycle. Used for
	// telemetry; errors are already logged.
	onFailure func(err error, elapsed time.Duration)

	current   *Session
	currentMu sync.Mutex

	done     *closeOnce
	stopOnce sync.Once
	wg       sync.WaitGroup

	logger Logger
}

// PollerOptions holds configuration for creating a poller.
type PollerOptions struct {
	// Session is the connection configuration used for every cycle.
	Session SessionConfig

	// Interval between poll cycles. Default: 30 seconds.
	Interval time.Duration

	// OnResult is called with the power and input tokens after each
	// successful cycle. Required.
	OnResult func(power, input string, elapsed time.Duration)

	// OnFailure is optionally called after each failed cycle.
	OnFailure func(err error, elapsed time.Duration)

	// Logger is optional.
	Logger Logger
}

// NewPoller creates a poller. Call Start to begin polling.
func NewPoller(opts PollerOptions) *Poller {
	interval := opts.Interval
	if interval == 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		cfg:       opts.Session,
		interval:  interval,
		onResult:  opts.OnResult,
		onFailure: opts.OnFailure,
		done:      newCloseOnce(),
		logger:    opts.Logger,
	}
}

// Start begins polling. The first cycle runs immediately, then on every
// interval tick. Call Stop to shut down.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.pollLoop(ctx)
}

// Stop cancels the poll timer and force-closes any in-flight cycle's
// socket. Safe to call multiple times.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.done.Close()

		p.currentMu.Lock()
		session := p.current
		p.currentMu.Unlock()
		if session != nil {
			session.Close()
		}

		p.wg.Wait()
	})
}

func (p *Poller) pollLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Immediate first cycle so state is available right after startup
	// and after every reconfiguration.
	p.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done.Done():
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// cycle opens one status-query session with no reconnection: a failed
// cycle simply waits for the next tick.
func (p *Poller) cycle(ctx context.Context) {
	select {
	case <-p.done.Done():
		return
	default:
	}

	if p.cfg.Host == "" {
		p.logDebug("poll skipped, no host configured")
		return
	}

	cycleCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	session := NewSession(p.cfg, p.logger)
	p.currentMu.Lock()
	p.current = session
	p.currentMu.Unlock()

	started := time.Now()
	power, input, err := session.QueryStatus(cycleCtx)
	elapsed := time.Since(started)

	p.currentMu.Lock()
	p.current = nil
	p.currentMu.Unlock()

	if err != nil {
		p.logDebug("poll cycle failed", "error", err)
		if p.onFailure != nil {
			p.onFailure(err, elapsed)
		}
		return
	}

	p.logDebug("poll cycle complete", "power", power, "input", input)
	p.onResult(power, input, elapsed)
}

func (p *Poller) logDebug(msg string, keysAndValues ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, keysAndValues...)
	}
}
