package projector

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Session defaults.
const (
	// defaultDialTimeout is the maximum time to wait for the TCP
	// connection to be established.
	defaultDialTimeout = 10 * time.Second

	// defaultLinger is how long a command session holds the connection
	// open after the command write. The projector sends no
	// acknowledgement, so the close is unconditional once this elapses.
	defaultLinger = time.Second

	// defaultPort is the projector's factory control port.
	defaultPort = 10000

	// readBufferSize is the read buffer for incoming protocol data.
	// Replies are a handful of bytes; 256 is generous.
	readBufferSize = 256
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// SessionConfig holds the connection parameters for one session.
type SessionConfig struct {
	// Host is the projector hostname or IP address.
	Host string

	// Port is the control port. Default: 10000.
	Port int

	// Password is sent in response to the PASSWORD: prompt. An empty
	// password is valid and is sent as a bare carriage return.
	Password string

	// DialTimeout is the maximum time to wait for the TCP connection.
	// Default: 10 seconds.
	DialTimeout time.Duration

	// Linger is how long a command session stays open after the command
	// write before the socket is forcibly closed. Default: 1 second.
	Linger time.Duration
}

// Session drives one complete request/response exchange over a freshly
// opened TCP connection. A session is used for exactly one operation:
// either a single control command (SendCommand) or a power+input status
// query pair (QueryStatus). It is never reused.
//
// The exchange is device-initiated: after connecting, the session waits
// for the PASSWORD: prompt, answers it, waits for the HELLO greeting, and
// only then sends its payload. Each prompt triggers its transition at
// most once per session; a device that never sends its prompts leaves the
// session waiting until Close or context cancellation.
type Session struct {
	cfg     SessionConfig
	command string

	conn   net.Conn
	connMu sync.Mutex

	dec LineDecoder

	// Prompt transition guards. Each fires at most once per session.
	passwordSent bool
	commandSent  bool

	started atomic.Bool

	// onError receives asynchronous failures from command sessions.
	onError func(error)
	errMu   sync.RWMutex

	done     *closeOnce
	finished *closeOnce
	wg       sync.WaitGroup

	logger Logger
}

// NewSession creates a session for the given connection parameters.
// The connection is not opened until SendCommand or QueryStatus is called.
func NewSession(cfg SessionConfig, logger Logger) *Session {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.Linger == 0 {
		cfg.Linger = defaultLinger
	}
	return &Session{
		cfg:      cfg,
		done:     newCloseOnce(),
		finished: newCloseOnce(),
		logger:   logger,
	}
}

// SetOnError sets the callback invoked when a command session fails
// asynchronously (dial failure, reset, write error). Deliberate closes
// do not trigger it.
func (s *Session) SetOnError(callback func(error)) {
	s.errMu.Lock()
	s.onError = callback
	s.errMu.Unlock()
}

// SendCommand starts the command exchange in the background: connect,
// answer the password prompt, wait for HELLO, write code, linger, close.
// It returns immediately; failures are delivered via the OnError callback.
// A session carries at most one command payload.
func (s *Session) SendCommand(ctx context.Context, code string) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.command = code

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.finished.Close()

		if err := s.runCommand(ctx); err != nil && !s.isClosed() {
			s.reportError(err)
		}
	}()
}

// QueryStatus runs the status-query exchange synchronously: connect,
// handshake, send CR0, parse the power token, send CR1, parse the input
// token, close. The second query is not sent until the first reply has
// been parsed.
func (s *Session) QueryStatus(ctx context.Context) (power, input string, err error) {
	if !s.started.CompareAndSwap(false, true) {
		return "", "", ErrSessionClosed
	}
	defer s.finished.Close()

	if err = s.dial(ctx); err != nil {
		return "", "", err
	}
	defer s.closeConn()

	stop := s.watchCancel(ctx)
	defer stop()

	buf := make([]byte, readBufferSize)
	if err = s.awaitHello(buf); err != nil {
		return "", "", err
	}

	// Discard handshake text so tokens are parsed only from bytes
	// received after each query was sent.
	s.dec.Reset()
	if err = s.write(EncodeCommand(QueryPower)); err != nil {
		return "", "", err
	}
	power, err = s.readToken(buf, powerToken)
	if err != nil {
		return "", "", err
	}

	s.dec.Reset()
	if err = s.write(EncodeCommand(QueryInput)); err != nil {
		return "", "", err
	}
	input, err = s.readToken(buf, inputToken)
	if err != nil {
		return "", "", err
	}

	return power, input, nil
}

// Close forcibly terminates the session: the socket is destroyed and any
// in-flight exchange is abandoned. Safe to call multiple times and from
// any goroutine.
func (s *Session) Close() error {
	s.done.Close()
	s.closeConn()
	s.wg.Wait()
	return nil
}

// Done returns a channel closed when the session's exchange has finished,
// whether it completed or was abandoned.
func (s *Session) Done() <-chan struct{} {
	return s.finished.Done()
}

func (s *Session) runCommand(ctx context.Context) error {
	if err := s.dial(ctx); err != nil {
		return err
	}
	defer s.closeConn()

	stop := s.watchCancel(ctx)
	defer stop()

	buf := make([]byte, readBufferSize)
	if err := s.awaitHello(buf); err != nil {
		return err
	}

	if err := s.write(EncodeCommand(s.command)); err != nil {
		return err
	}
	s.commandSent = true
	s.logDebug("command sent", "code", s.command)

	// Hold the connection open so the device finishes processing, then
	// close regardless of anything further it sends.
	select {
	case <-time.After(s.cfg.Linger):
	case <-s.done.Done():
	case <-ctx.Done():
	}
	return nil
}

// awaitHello reads until both prompts have been observed, answering the
// password prompt along the way. Prompt detection is a case-insensitive
// substring match against all text accumulated this session, guarded by
// the session flags so each transition fires at most once. HELLO is only
// honoured after the password has been sent.
func (s *Session) awaitHello(buf []byte) error {
	for {
		n, err := s.read(buf)
		if err != nil {
			return err
		}
		s.dec.Feed(buf[:n])

		if !s.passwordSent && passwordPrompt.MatchString(s.dec.Text()) {
			if err := s.write(EncodeCommand(s.cfg.Password)); err != nil {
				return err
			}
			s.passwordSent = true
			s.logDebug("password sent")
		}
		if s.passwordSent && helloPrompt.MatchString(s.dec.Text()) {
			return nil
		}
	}
}

// readToken reads complete reply lines until one contains a token
// matching the pattern. A non-empty reply line with no recognisable
// token is a protocol error: the device answered, but not with a state
// token this client understands.
func (s *Session) readToken(buf []byte, pattern *regexp.Regexp) (string, error) {
	for {
		n, err := s.read(buf)
		if err != nil {
			return "", err
		}
		for _, line := range s.dec.Feed(buf[:n]) {
			if line == "" {
				continue
			}
			tok := pattern.FindString(line)
			if tok == "" {
				return "", fmt.Errorf("%w: unparseable reply %q", ErrProtocolError, line)
			}
			return tok, nil
		}
	}
}

func (s *Session) dial(ctx context.Context) error {
	if s.cfg.Host == "" {
		return ErrNoHost
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	defer cancel()

	var dialer net.Dialer
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, addr, err)
	}

	s.connMu.Lock()
	closed := s.isClosed()
	if !closed {
		s.conn = conn
	}
	s.connMu.Unlock()

	if closed {
		conn.Close()
		return ErrSessionClosed
	}
	return nil
}

// watchCancel closes the socket if the context is cancelled or the
// session is closed, unblocking any pending read. The returned stop
// function releases the watcher.
func (s *Session) watchCancel(ctx context.Context) func() {
	stopCh := make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-ctx.Done():
			s.closeConn()
		case <-s.done.Done():
			s.closeConn()
		case <-stopCh:
		}
	}()
	return func() { close(stopCh) }
}

func (s *Session) read(buf []byte) (int, error) {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()

	if conn == nil {
		return 0, ErrSessionClosed
	}

	n, err := conn.Read(buf)
	if err != nil {
		if s.isClosed() {
			return 0, ErrSessionClosed
		}
		return 0, fmt.Errorf("read: %w", err)
	}
	return n, nil
}

func (s *Session) write(data []byte) error {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()

	if conn == nil {
		return ErrSessionClosed
	}

	if _, err := conn.Write(data); err != nil {
		if s.isClosed() {
			return ErrSessionClosed
		}
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (s *Session) closeConn() {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}

func (s *Session) isClosed() bool {
	select {
	case <-s.done.Done():
		return true
	default:
		return false
	}
}

func (s *Session) reportError(err error) {
	s.logWarn("session failed", "error", err)

	s.errMu.RLock()
	callback := s.onError
	s.errMu.RUnlock()

	if callback != nil {
		callback(err)
	}
}

func (s *Session) logDebug(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, keysAndValues...)
	}
}

func (s *Session) logWarn(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, keysAndValues...)
	}
}
