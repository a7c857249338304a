package child

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/streamgate/streamgate/internal/port/outbound"
)

// ExitError wraps the child's raw wait error together with its extracted
// process exit code, so callers above the supervisor (cmd/streamgate) can
// terminate the gateway with the same code the child exited with instead
// of a generic non-zero status.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("child exited with code %d: %v", e.Code, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Supervisor is the Child Process Supervisor (C1). It owns the gateway's
// one child process for the life of the process, serializes writes to its
// stdin so concurrent callers never interleave a message and its
// terminating newline, frames its stdout into complete JSON lines via
// Framer, and forwards its stderr to the logger. Per spec.md 4.1, any
// child exit — clean or not — ends Run; the caller is expected to treat
// that as fatal and shut the whole gateway down. The supervisor itself
// makes no attempt at recovery.
type Supervisor struct {
	proc outbound.ChildProcess
	log  *slog.Logger

	writeMu sync.Mutex
	stdin   io.WriteCloser

	mu        sync.Mutex
	startedAt time.Time
	running   bool

	lines chan []byte
}

// NewSupervisor wraps proc, the process-control adapter, with the framing
// and stdin-serialization behavior C1 requires.
func NewSupervisor(proc outbound.ChildProcess, log *slog.Logger) *Supervisor {
	return &Supervisor{
		proc:  proc,
		log:   log,
		lines: make(chan []byte, 64),
	}
}

// Lines returns the channel of complete, JSON-valid stdout lines the
// outbound correlator consumes in order. It is closed by Run once the
// stdout pump, the stderr pump, and the child's Wait have all returned.
func (s *Supervisor) Lines() <-chan []byte {
	return s.lines
}

// WriteLine writes an already-newline-terminated message to the child's
// stdin. Concurrent writers are serialized through writeMu: the newline is
// the child's only framing, so one message's bytes must never be split by
// another's (spec.md section 5's stdin ordering guarantee).
func (s *Supervisor) WriteLine(line []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.stdin == nil {
		return fmt.Errorf("child: not started")
	}
	_, err := s.stdin.Write(line)
	if err != nil {
		return fmt.Errorf("child: write stdin: %w", err)
	}
	return nil
}

// Run starts the child and blocks until the child's Wait has returned and
// both pump goroutines have finished (they end when the child's stdout
// and stderr reach EOF or a read error), returning the child's wait error
// (nil on a clean child exit). Canceling ctx ends Run only through the
// process adapter stopping the child. The Lines channel is closed before
// Run returns.
func (s *Supervisor) Run(ctx context.Context) error {
	stdin, stdout, stderr, err := s.proc.Start(ctx)
	if err != nil {
		return fmt.Errorf("child: start: %w", err)
	}

	s.writeMu.Lock()
	s.stdin = stdin
	s.writeMu.Unlock()

	s.mu.Lock()
	s.startedAt = time.Now()
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.pumpStdout(stdout)
		return nil
	})
	g.Go(func() error {
		s.pumpStderr(stderr)
		return nil
	})
	g.Go(func() error {
		return s.proc.Wait()
	})

	waitErr := g.Wait()
	close(s.lines)
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			waitErr = &ExitError{Code: exitErr.ExitCode(), Err: waitErr}
		}
		s.log.Error("child process exited", "error", waitErr)
	} else {
		s.log.Warn("child process exited cleanly")
	}
	return waitErr
}

func (s *Supervisor) pumpStdout(r io.Reader) {
	framer := NewFramer()
	buf := make([]byte, 64*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, line := range framer.Feed(buf[:n]) {
				if !json.Valid(line) {
					s.log.Error("child stdout: discarding invalid JSON line", "line", string(line))
					continue
				}
				s.lines <- line
			}
		}
		if err != nil {
			if err != io.EOF {
				s.log.Warn("child stdout: read error", "error", err)
			}
			return
		}
	}
}

func (s *Supervisor) pumpStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.log.Warn("child stderr", "line", scanner.Text())
	}
}

// Close releases the child's resources without waiting for Run to return.
func (s *Supervisor) Close() error {
	return s.proc.Close()
}

// StartedAt reports when the currently running child was launched. The
// second return value is false before the first Start or after the child
// has exited, so the health surface can omit the uptime header rather
// than reporting a stale or zero time.
func (s *Supervisor) StartedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt, s.running
}
