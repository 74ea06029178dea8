package projector

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeProjector emulates the device side of the control protocol on a
// loopback listener: send the password prompt, read the password line,
// send the greeting, then answer status queries and record commands.
type fakeProjector struct {
	ln    net.Listener
	power string
	input string

	// eagerHello sends PASSWORD: and HELLO in a single write before the
	// password is read, emulating prompt coalescing.
	eagerHello bool

	// doublePassword sends the password prompt twice before reading the
	// reply, emulating a device that repeats the prompt.
	doublePassword bool

	mu        sync.Mutex
	passwords []string
	commands  []string
}

func startFakeProjector(t *testing.T, power, input string) *fakeProjector {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	p := &fakeProjector{ln: ln, power: power, input: input}
	go p.acceptLoop()
	t.Cleanup(func() { ln.Close() })
	return p
}

func (p *fakeProjector) acceptLoop() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		go p.handle(conn)
	}
}

func (p *fakeProjector) handle(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)

	switch {
	case p.eagerHello:
		if _, err := conn.Write([]byte("PASSWORD:\rHELLO\r")); err != nil {
			return
		}
		password, err := reader.ReadString('\r')
		if err != nil {
			return
		}
		p.recordPassword(strings.TrimSuffix(password, "\r"))
	case p.doublePassword:
		if _, err := conn.Write([]byte("PASSWORD:\rPASSWORD:\r")); err != nil {
			return
		}
		password, err := reader.ReadString('\r')
		if err != nil {
			return
		}
		p.recordPassword(strings.TrimSuffix(password, "\r"))
		if _, err := conn.Write([]byte("HELLO\r")); err != nil {
			return
		}
	default:
		if _, err := conn.Write([]byte("PASSWORD:")); err != nil {
			return
		}
		password, err := reader.ReadString('\r')
		if err != nil {
			return
		}
		p.recordPassword(strings.TrimSuffix(password, "\r"))
		if _, err := conn.Write([]byte("HELLO\r")); err != nil {
			return
		}
	}

	for {
		line, err := reader.ReadString('\r')
		if err != nil {
			return
		}
		code := strings.TrimSuffix(line, "\r")
		switch code {
		case QueryPower:
			if _, err := conn.Write([]byte(p.power + "\r")); err != nil {
				return
			}
		case QueryInput:
			if _, err := conn.Write([]byte(p.input + "\r")); err != nil {
				return
			}
		default:
			p.mu.Lock()
			p.commands = append(p.commands, code)
			p.mu.Unlock()
		}
	}
}

func (p *fakeProjector) recordPassword(password string) {
	p.mu.Lock()
	p.passwords = append(p.passwords, password)
	p.mu.Unlock()
}

func (p *fakeProjector) receivedPasswords() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.passwords...)
}

func (p *fakeProjector) receivedCommands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.commands...)
}

func (p *fakeProjector) sessionConfig() SessionConfig {
	host, portStr, _ := net.SplitHostPort(p.ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return SessionConfig{
		Host:        host,
		Port:        port,
		Password:    "panther",
		DialTimeout: 2 * time.Second,
		Linger:      20 * time.Millisecond,
	}
}

func TestQueryStatus(t *testing.T) {
	srv := startFakeProjector(t, "80", "3")

	s := NewSession(srv.sessionConfig(), nil)
	defer s.Close()

	power, input, err := s.QueryStatus(context.Background())
	if err != nil {
		t.Fatalf("QueryStatus failed: %v", err)
	}
	if power != "80" {
		t.Errorf("power = %q, want 80", power)
	}
	if input != "3" {
		t.Errorf("input = %q, want 3", input)
	}

	passwords := srv.receivedPasswords()
	if len(passwords) != 1 || passwords[0] != "panther" {
		t.Errorf("received passwords = %v, want [panther]", passwords)
	}
}

func TestQueryStatusEmptyPassword(t *testing.T) {
	srv := startFakeProjector(t, "00", "1")

	cfg := srv.sessionConfig()
	cfg.Password = ""
	s := NewSession(cfg, nil)
	defer s.Close()

	power, input, err := s.QueryStatus(context.Background())
	if err != nil {
		t.Fatalf("QueryStatus failed: %v", err)
	}
	if power != "00" || input != "1" {
		t.Errorf("got power=%q input=%q, want 00/1", power, input)
	}

	// Empty password is a bare carriage return on the wire.
	passwords := srv.receivedPasswords()
	if len(passwords) != 1 || passwords[0] != "" {
		t.Errorf("received passwords = %v, want one empty entry", passwords)
	}
}

func TestQueryStatusCoalescedPrompts(t *testing.T) {
	srv := startFakeProjector(t, "21", "2")
	srv.eagerHello = true

	s := NewSession(srv.sessionConfig(), nil)
	defer s.Close()

	power, input, err := s.QueryStatus(context.Background())
	if err != nil {
		t.Fatalf("QueryStatus failed: %v", err)
	}
	if power != "21" || input != "2" {
		t.Errorf("got power=%q input=%q, want 21/2", power, input)
	}
}

func TestQueryStatusNoHost(t *testing.T) {
	s := NewSession(SessionConfig{}, nil)
	defer s.Close()

	_, _, err := s.QueryStatus(context.Background())
	if !errors.Is(err, ErrNoHost) {
		t.Errorf("err = %v, want ErrNoHost", err)
	}
}

func TestQueryStatusDialFailure(t *testing.T) {
	// Grab a port and close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	ln.Close()

	s := NewSession(SessionConfig{
		Host:        host,
		Port:        port,
		DialTimeout: time.Second,
	}, nil)
	defer s.Close()

	_, _, qerr := s.QueryStatus(context.Background())
	if !errors.Is(qerr, ErrConnectionFailed) {
		t.Errorf("err = %v, want ErrConnectionFailed", qerr)
	}
}

func TestQueryStatusSingleUse(t *testing.T) {
	srv := startFakeProjector(t, "00", "1")

	s := NewSession(srv.sessionConfig(), nil)
	defer s.Close()

	if _, _, err := s.QueryStatus(context.Background()); err != nil {
		t.Fatalf("first QueryStatus failed: %v", err)
	}
	if _, _, err := s.QueryStatus(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("second QueryStatus err = %v, want ErrSessionClosed", err)
	}
}

func TestSendCommand(t *testing.T) {
	srv := startFakeProjector(t, "00", "1")

	s := NewSession(srv.sessionConfig(), nil)
	defer s.Close()

	var errMu sync.Mutex
	var sessionErr error
	s.SetOnError(func(err error) {
		errMu.Lock()
		sessionErr = err
		errMu.Unlock()
	})

	s.SendCommand(context.Background(), CmdPowerOn)

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("command session did not finish")
	}

	errMu.Lock()
	gotErr := sessionErr
	errMu.Unlock()
	if gotErr != nil {
		t.Fatalf("unexpected session error: %v", gotErr)
	}

	commands := srv.receivedCommands()
	if len(commands) != 1 || commands[0] != CmdPowerOn {
		t.Errorf("received commands = %v, want [C00]", commands)
	}
}

func TestSendCommandSingleStart(t *testing.T) {
	srv := startFakeProjector(t, "00", "1")

	s := NewSession(srv.sessionConfig(), nil)
	defer s.Close()

	s.SendCommand(context.Background(), CmdPowerOn)
	s.SendCommand(context.Background(), CmdPowerOff) // Ignored: one payload per session

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("command session did not finish")
	}

	commands := srv.receivedCommands()
	if len(commands) != 1 || commands[0] != CmdPowerOn {
		t.Errorf("received commands = %v, want [C00]", commands)
	}
}

func TestSendCommandReportsDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	ln.Close()

	s := NewSession(SessionConfig{
		Host:        host,
		Port:        port,
		DialTimeout: time.Second,
		Linger:      time.Millisecond,
	}, nil)
	defer s.Close()

	errCh := make(chan error, 1)
	s.SetOnError(func(err error) { errCh <- err })

	s.SendCommand(context.Background(), CmdPowerOn)

	select {
	case gotErr := <-errCh:
		if !errors.Is(gotErr, ErrConnectionFailed) {
			t.Errorf("err = %v, want ErrConnectionFailed", gotErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error reported")
	}
}

func TestCloseUnblocksPendingRead(t *testing.T) {
	// A listener that accepts but never speaks leaves the session
	// waiting for the password prompt.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, acceptErr := ln.Accept()
		if acceptErr == nil {
			defer conn.Close()
			// Hold the connection open silently.
			buf := make([]byte, 1)
			_, _ = conn.Read(buf)
		}
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	s := NewSession(SessionConfig{
		Host:        host,
		Port:        port,
		DialTimeout: time.Second,
	}, nil)

	result := make(chan error, 1)
	go func() {
		_, _, qerr := s.QueryStatus(context.Background())
		result <- qerr
	}()

	time.Sleep(50 * time.Millisecond)
	s.Close()

	select {
	case qerr := <-result:
		if !errors.Is(qerr, ErrSessionClosed) {
			t.Errorf("err = %v, want ErrSessionClosed", qerr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("QueryStatus did not unblock after Close")
	}
}

func TestContextCancelAbandonsSession(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, acceptErr := ln.Accept()
		if acceptErr == nil {
			defer conn.Close()
			buf := make([]byte, 1)
			_, _ = conn.Read(buf)
		}
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	s := NewSession(SessionConfig{
		Host:        host,
		Port:        port,
		DialTimeout: time.Second,
	}, nil)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())

	result := make(chan error, 1)
	go func() {
		_, _, qerr := s.QueryStatus(ctx)
		result <- qerr
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case qerr := <-result:
		if qerr == nil {
			t.Error("expected error after context cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("QueryStatus did not unblock after cancellation")
	}
}

func TestSendCommandRepeatedPasswordPrompt(t *testing.T) {
	srv := startFakeProjector(t, "00", "1")
	srv.doublePassword = true

	s := NewSession(srv.sessionConfig(), nil)
	defer s.Close()

	s.SendCommand(context.Background(), CmdPowerOn)

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("command session did not finish")
	}

	// The prompt arrived twice; the password must go out exactly once.
	passwords := srv.receivedPasswords()
	if len(passwords) != 1 || passwords[0] != "panther" {
		t.Errorf("received passwords = %v, want [panther]", passwords)
	}

	// A duplicate password write would land in the command stream.
	commands := srv.receivedCommands()
	if len(commands) != 1 || commands[0] != CmdPowerOn {
		t.Errorf("received commands = %v, want [C00]", commands)
	}
}

func TestSendCommandEmptyPassword(t *testing.T) {
	srv := startFakeProjector(t, "00", "1")

	cfg := srv.sessionConfig()
	cfg.Password = ""
	s := NewSession(cfg, nil)
	defer s.Close()

	s.SendCommand(context.Background(), CmdPowerOn)

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("command session did not finish")
	}

	// Empty password is a bare carriage return, written before the
	// command; the device reads them as two separate lines in order.
	passwords := srv.receivedPasswords()
	if len(passwords) != 1 || passwords[0] != "" {
		t.Errorf("received passwords = %v, want one empty entry", passwords)
	}

	commands := srv.receivedCommands()
	if len(commands) != 1 || commands[0] != CmdPowerOn {
		t.Errorf("received commands = %v, want [C00]", commands)
	}
}

func TestQueryStatusUnparseableReply(t *testing.T) {
	srv := startFakeProjector(t, "??", "1")

	s := NewSession(srv.sessionConfig(), nil)
	defer s.Close()

	_, _, err := s.QueryStatus(context.Background())
	if !errors.Is(err, ErrProtocolError) {
		t.Errorf("err = %v, want ErrProtocolError", err)
	}
}
