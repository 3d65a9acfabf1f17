// Package bridge drives a quest interpreter subprocess over a
// line-delimited JSON protocol.
//
// The interpreter reads one command per line on stdin (a decimal jump
// ID, or the literal "get_state") and answers each command with exactly
// one JSON state envelope on stdout. Interpreters are free to write
// ad-hoc log lines to stdout between envelopes; the bridge treats those
// as diagnostics, not as errors.
//
// Information Hiding:
// - Process lifecycle (spawn, pipes, terminate, kill grace)
// - Wire protocol framing and noise filtering
// - Stderr capture for failure reports
package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"
)

const (
	defaultReadTimeout  = 30 * time.Second
	defaultGraceTimeout = 3 * time.Second

	// maxStderrBytes caps the stderr capture so a chatty interpreter
	// cannot grow the buffer without bound.
	maxStderrBytes = 8 * 1024

	// maxDiagnostics caps the retained non-state stdout lines.
	maxDiagnostics = 256
)

// Config describes how to launch one interpreter session.
type Config struct {
	// Command is the interpreter argv prefix. The quest path and, when
	// set, the language are appended as trailing arguments.
	Command   []string
	QuestPath string
	Language  string

	// ReadTimeout bounds each state read. Zero selects the default.
	ReadTimeout time.Duration

	// GraceTimeout is how long Close waits after asking the subprocess
	// to terminate before force-killing it. Zero selects the default.
	GraceTimeout time.Duration
}

type readResult struct {
	line []byte
	err  error
}

// Bridge owns one interpreter subprocess for the lifetime of a run.
type Bridge struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan readResult
	done   chan struct{}
	stderr *boundedBuffer

	readTimeout time.Duration
	grace       time.Duration

	mu          sync.Mutex
	closed      bool
	diagnostics []string
	history     []*State
}

// Start launches the interpreter and reads the initial state.
// A subprocess that cannot be started, or that fails to produce a valid
// initial state, is reported as *StartupError with the captured stderr.
func Start(ctx context.Context, cfg Config) (*Bridge, *State, error) {
	if len(cfg.Command) == 0 {
		return nil, nil, &StartupError{Err: fmt.Errorf("interpreter command not set")}
	}
	if cfg.QuestPath == "" {
		return nil, nil, &StartupError{Err: fmt.Errorf("quest path not set")}
	}

	argv := append([]string{}, cfg.Command...)
	argv = append(argv, cfg.QuestPath)
	if cfg.Language != "" {
		argv = append(argv, cfg.Language)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stderr := &boundedBuffer{limit: maxStderrBytes}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, &StartupError{Err: fmt.Errorf("failed to get stdin pipe: %w", err)}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, nil, &StartupError{Err: fmt.Errorf("failed to get stdout pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, nil, &StartupError{Err: fmt.Errorf("failed to start interpreter: %w", err)}
	}

	b := &Bridge{
		cmd:         cmd,
		stdin:       stdin,
		lines:       make(chan readResult, 16),
		done:        make(chan struct{}),
		stderr:      stderr,
		readTimeout: cfg.ReadTimeout,
		grace:       cfg.GraceTimeout,
	}
	if b.readTimeout <= 0 {
		b.readTimeout = defaultReadTimeout
	}
	if b.grace <= 0 {
		b.grace = defaultGraceTimeout
	}

	go b.readLoop(stdout)

	initial, err := b.readState(ctx)
	if err != nil {
		b.Close()
		return nil, nil, &StartupError{Stderr: b.stderr.String(), Err: err}
	}
	return b, initial, nil
}

// readLoop pumps stdout lines into the lines channel until EOF, a read
// error, or Close. The done select keeps a chatty interpreter from
// parking the reader on a full channel after the process is gone.
func (b *Bridge) readLoop(stdout io.Reader) {
	reader := bufio.NewReader(stdout)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			select {
			case b.lines <- readResult{line: line}:
			case <-b.done:
				return
			}
		}
		if err != nil {
			select {
			case b.lines <- readResult{err: err}:
			case <-b.done:
			}
			close(b.lines)
			return
		}
	}
}

// Step performs a transition and returns the resulting state.
func (b *Bridge) Step(ctx context.Context, jumpID int) (*State, error) {
	if err := b.send(strconv.Itoa(jumpID)); err != nil {
		return nil, err
	}
	return b.readState(ctx)
}

// GetState re-emits the current state without consuming a transition.
func (b *Bridge) GetState(ctx context.Context) (*State, error) {
	if err := b.send("get_state"); err != nil {
		return nil, err
	}
	return b.readState(ctx)
}

// Last returns the most recently parsed state, or nil before Start
// completes.
func (b *Bridge) Last() *State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.history) == 0 {
		return nil
	}
	return b.history[len(b.history)-1]
}

// History returns all states parsed so far, in order.
func (b *Bridge) History() []*State {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*State, len(b.history))
	copy(out, b.history)
	return out
}

// Diagnostics returns the non-state stdout lines seen so far.
func (b *Bridge) Diagnostics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.diagnostics))
	copy(out, b.diagnostics)
	return out
}

func (b *Bridge) send(command string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return &CrashedError{Err: fmt.Errorf("bridge already closed")}
	}
	if _, err := b.stdin.Write([]byte(command + "\n")); err != nil {
		return &CrashedError{Stderr: b.stderr.String(), Err: fmt.Errorf("failed to write command: %w", err)}
	}
	return nil
}

// readState reads stdout lines until one parses as a state envelope.
// Non-JSON lines and JSON objects without a "state" key are buffered as
// diagnostics and skipped. A schema-invalid envelope is a protocol
// error; it is never laundered into a terminal state.
func (b *Bridge) readState(ctx context.Context) (*State, error) {
	timer := time.NewTimer(b.readTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, &TimeoutError{Budget: b.readTimeout, Diagnostics: b.Diagnostics()}
		case res, ok := <-b.lines:
			if !ok {
				return nil, &CrashedError{Stderr: b.stderr.String(), Err: io.EOF}
			}
			if res.err != nil {
				return nil, &CrashedError{Stderr: b.stderr.String(), Err: res.err}
			}

			line := bytes.TrimSpace(res.line)
			if len(line) == 0 {
				continue
			}

			var probe map[string]json.RawMessage
			if line[0] != '{' || json.Unmarshal(line, &probe) != nil {
				b.addDiagnostic(string(line))
				continue
			}
			if _, hasState := probe["state"]; !hasState {
				b.addDiagnostic(string(line))
				continue
			}

			st, err := parseState(line)
			if err != nil {
				return nil, &ProtocolError{Line: string(line), Err: err}
			}

			b.mu.Lock()
			b.history = append(b.history, st)
			b.mu.Unlock()
			return st, nil
		}
	}
}

func (b *Bridge) addDiagnostic(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.diagnostics) < maxDiagnostics {
		b.diagnostics = append(b.diagnostics, line)
	}
}

// Close terminates the subprocess: stdin is closed, the process is
// asked to terminate, and it is force-killed after the grace period.
// Close is idempotent and safe to call from any exit path.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	close(b.done)

	if b.stdin != nil {
		_ = b.stdin.Close()
	}

	if b.cmd == nil || b.cmd.Process == nil {
		return nil
	}

	_ = b.cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- b.cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(b.grace):
		_ = b.cmd.Process.Kill()
		<-done
	}
	return nil
}

// boundedBuffer is a concurrency-safe byte buffer with a size cap.
type boundedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (bb *boundedBuffer) Write(p []byte) (int, error) {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	if remaining := bb.limit - bb.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			bb.buf.Write(p[:remaining])
		} else {
			bb.buf.Write(p)
		}
	}
	return len(p), nil
}

func (bb *boundedBuffer) String() string {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	return bb.buf.String()
}
