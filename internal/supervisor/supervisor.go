// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package supervisor runs one ffmpeg child per job and tracks its lifecycle
// without ever blocking the caller on the child.
package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ManuGH/iptranscoder/internal/log"
	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/procgroup"
	"github.com/ManuGH/iptranscoder/internal/telemetry"
)

const (
	defaultStderrLines = 100
	maxStderrLine      = 64 * 1024
)

// Options tunes a Supervisor. The zero value is usable.
type Options struct {
	// StopKillAfter escalates a requested stop to SIGKILL when the group is
	// still alive after this long. Zero disables escalation.
	StopKillAfter time.Duration
	// StderrLines is the number of stderr lines kept per process.
	StderrLines int
	// StderrLogRate caps how many stderr lines per second are logged per
	// process. Lines over the cap are still kept in the tail.
	StderrLogRate rate.Limit
	StderrLogBurst int
}

// Supervisor launches processes. It holds no per-process state; each
// Process owns its own child.
type Supervisor struct {
	opts   Options
	logger zerolog.Logger
	tracer trace.Tracer
}

// New creates a Supervisor.
func New(opts Options) *Supervisor {
	if opts.StderrLines <= 0 {
		opts.StderrLines = defaultStderrLines
	}
	if opts.StderrLogRate <= 0 {
		opts.StderrLogRate = 5
	}
	if opts.StderrLogBurst <= 0 {
		opts.StderrLogBurst = 20
	}
	return &Supervisor{
		opts:   opts,
		logger: log.WithComponent("supervisor"),
		tracer: telemetry.Tracer("github.com/ManuGH/iptranscoder/internal/supervisor"),
	}
}

// Launch starts argv as a new process group. It returns once the child has
// been forked; the child is never waited on synchronously.
// ctx scopes tracing and logging only: cancelling it does not stop the child.
func (s *Supervisor) Launch(ctx context.Context, key model.JobKey, argv []string) (*Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("supervisor: empty argv")
	}

	launchID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "supervisor.launch", trace.WithAttributes(
		attribute.String(telemetry.JobKeyKey, key.String()),
		attribute.String(telemetry.JobLaunchIDKey, launchID),
		attribute.String("process.executable.name", argv[0]),
	))
	defer span.End()

	logger := log.WithContext(ctx, s.logger).With().
		Str(log.FieldJobKey, key.String()).
		Str(log.FieldLaunchID, launchID).
		Logger()

	cmd := exec.Command(argv[0], argv[1:]...) // #nosec G204
	procgroup.Set(cmd)

	p := &Process{
		Key:      key,
		LaunchID: launchID,
		Argv:     append([]string(nil), argv...),
		cmd:      cmd,
		done:     make(chan struct{}),
		stderr:   NewLineRing(s.opts.StderrLines),
		killWait: s.opts.StopKillAfter,
		status:   Status{State: StatePendingStart},
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stderr pipe")
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "start failed")
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}

	pid := cmd.Process.Pid
	p.logger = logger.With().Int(log.FieldPID, pid).Logger()
	p.mu.Lock()
	p.status.State = StateRunning
	p.status.PID = pid
	p.status.StartedAt = time.Now()
	p.mu.Unlock()

	span.SetAttributes(attribute.Int(telemetry.JobPIDKey, pid))
	p.logger.Info().Str(log.FieldEvent, "process.started").Msg("process started")

	limiter := rate.NewLimiter(s.opts.StderrLogRate, s.opts.StderrLogBurst)
	go p.monitor(stderr, limiter)

	return p, nil
}

// Process is one supervised child.
type Process struct {
	Key      model.JobKey
	LaunchID string
	Argv     []string

	cmd      *exec.Cmd
	logger   zerolog.Logger
	done     chan struct{}
	stderr   *LineRing
	killWait time.Duration

	mu        sync.Mutex
	status    Status
	killTimer *time.Timer
	reaping   bool
}

// PID returns the process ID of the group leader.
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.PID
}

// Poll returns the current status without blocking.
func (p *Process) Poll() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Done is closed once the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// StderrTail returns up to n of the most recent stderr lines.
func (p *Process) StderrTail(n int) []string { return p.stderr.LastN(n) }

// RequestStop sends SIGTERM to the process group and returns immediately.
// Only the first call signals; later calls and calls after exit are no-ops.
func (p *Process) RequestStop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status.State != StateRunning {
		return nil
	}
	p.status.State = StatePendingStop
	p.status.StoppedAt = time.Now()
	if p.killWait > 0 {
		p.killTimer = time.AfterFunc(p.killWait, p.escalate)
	}

	p.logger.Info().Str(log.FieldEvent, "process.stop_requested").Msg("sending SIGTERM to process group")
	if err := p.signalLocked(procgroup.Terminate, syscall.SIGTERM); err != nil {
		return fmt.Errorf("terminate pid %d: %w", p.status.PID, err)
	}
	return nil
}

func (p *Process) escalate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status.State == StateExited {
		return
	}
	p.logger.Warn().
		Str(log.FieldEvent, "process.kill").
		Dur("grace", p.killWait).
		Msg("process group ignored SIGTERM, sending SIGKILL")
	if err := p.signalLocked(procgroup.Kill, os.Kill); err != nil {
		p.logger.Error().Err(err).Msg("SIGKILL failed")
	}
}

// signalLocked signals the process group, or only the leader once Wait may
// have collected it: a reaped leader's PGID can be reused, while os.Process
// knows when its own child is gone. Callers hold p.mu.
func (p *Process) signalLocked(group func(pid int) error, leader os.Signal) error {
	if p.reaping {
		if err := p.cmd.Process.Signal(leader); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
		return nil
	}
	if err := group(p.status.PID); err != nil && !errors.Is(err, procgroup.ErrProcessNotFound) {
		return err
	}
	return nil
}

// beginReap marks the leader as about to be collected. Any signal already in
// flight under p.mu completes first.
func (p *Process) beginReap() {
	p.mu.Lock()
	p.reaping = true
	p.mu.Unlock()
}

func (p *Process) monitor(stderr io.Reader, limiter *rate.Limiter) {
	defer close(p.done)

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 4096), maxStderrLine)
	suppressed := 0
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		p.stderr.Add(line)
		if limiter.Allow() {
			p.logger.Warn().Str(log.FieldEvent, "process.stderr").Int("suppressed", suppressed).Msg(line)
			suppressed = 0
		} else {
			suppressed++
		}
	}
	// Keep the pipe drained after an oversized line so Wait can return.
	_, _ = io.Copy(io.Discard, stderr)

	p.beginReap()
	waitErr := p.cmd.Wait()

	p.mu.Lock()
	if p.killTimer != nil {
		p.killTimer.Stop()
	}
	p.status.State = StateExited
	p.status.ExitedAt = time.Now()
	p.status.ExitCode, p.status.Signal, p.status.Err = exitDetails(p.cmd, waitErr)
	st := p.status
	p.mu.Unlock()

	ev := p.logger.Info()
	if !st.Clean() && st.StoppedAt.IsZero() {
		ev = p.logger.Warn().Strs("stderr_tail", p.stderr.LastN(5))
	}
	ev.Str(log.FieldEvent, "process.exited").
		Int(log.FieldExitCode, st.ExitCode).
		Str("signal", st.Signal).
		Bool("stop_requested", !st.StoppedAt.IsZero()).
		Msg("process exited")
}

func exitDetails(cmd *exec.Cmd, waitErr error) (code int, signal string, err error) {
	ps := cmd.ProcessState
	if ps == nil {
		return -1, "", waitErr
	}
	code = ps.ExitCode()
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		signal = ws.Signal().String()
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		err = waitErr
	}
	return code, signal, err
}
