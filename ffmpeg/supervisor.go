package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"
)

// OutcomeKind is the terminal result of one supervised transcoder run. Every
// run moves NotStarted -> Running -> exactly one of these; none is re-entered.
type OutcomeKind string

const (
	OutcomeSuccess      OutcomeKind = "success"
	OutcomeNonZeroExit  OutcomeKind = "non_zero_exit"
	OutcomeTimedOut     OutcomeKind = "timed_out"
	OutcomeUnresponsive OutcomeKind = "unresponsive"
)

// Outcome describes how a supervised run ended.
type Outcome struct {
	Kind     OutcomeKind
	ExitCode int
	Stderr   string // bounded tail of captured stderr
}

// stderrTailLen bounds how much captured stderr an Outcome carries.
const stderrTailLen = 2048

// Supervisor launches the external transcoder and watches it until it ends,
// one way or another. It enforces a hard run-duration ceiling, probes process
// liveness on a fixed schedule, and aborts runs that stop responding.
type Supervisor struct {
	Binary             string
	MaxRunDuration     time.Duration
	LivenessInterval   time.Duration
	ResponsiveInterval time.Duration
	MaxUnresponsive    int
	KillGrace          time.Duration
	Log                *logrus.Logger

	// CheckResponsive overrides the process-table probe when set. Nil uses
	// the default gopsutil check.
	CheckResponsive func(pid int32) bool
}

// handle tracks one running invocation.
type handle struct {
	pid          int32
	startedAt    time.Time
	lastCheck    time.Time
	unresponsive int
}

// Run starts the transcoder and blocks until it reaches a terminal outcome.
//
// While the process runs, onProgress receives synthetic estimates rising from
// 50 toward a hard cap of 90. This is a presentation heuristic on a fixed
// schedule, not a measurement of actual encoder progress; only process exit
// moves a task past 90.
//
// Context cancellation (service shutdown) terminates the child and returns the
// context's error with no outcome.
func (s *Supervisor) Run(ctx context.Context, args []string, onProgress func(int)) (Outcome, error) {
	cmd := exec.Command(s.Binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Outcome{}, fmt.Errorf("start %s: %w", s.Binary, err)
	}

	h := &handle{
		pid:       int32(cmd.Process.Pid),
		startedAt: time.Now(),
		lastCheck: time.Now(),
	}
	s.Log.WithFields(logrus.Fields{"pid": h.pid, "bin": s.Binary}).Info("transcoder started")

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	ticker := time.NewTicker(s.LivenessInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(s.MaxRunDuration)
	defer deadline.Stop()

	progress := 50
	for {
		select {
		case err := <-done:
			return s.finish(h, err, &stderr)

		case <-deadline.C:
			s.Log.WithFields(logrus.Fields{"pid": h.pid, "after": s.MaxRunDuration}).Error("transcoder exceeded run ceiling")
			s.terminate(cmd, done)
			return Outcome{Kind: OutcomeTimedOut, Stderr: tail(&stderr)}, nil

		case <-ctx.Done():
			s.Log.WithField("pid", h.pid).Warn("terminating transcoder: context canceled")
			s.terminate(cmd, done)
			return Outcome{}, ctx.Err()

		case now := <-ticker.C:
			if progress < 90 {
				progress += 2
				if progress > 90 {
					progress = 90
				}
			}
			if onProgress != nil {
				onProgress(progress)
			}

			if now.Sub(h.lastCheck) >= s.ResponsiveInterval {
				if s.responsive(h.pid) {
					h.unresponsive = 0
				} else {
					h.unresponsive++
					s.Log.WithFields(logrus.Fields{"pid": h.pid, "consecutive": h.unresponsive}).Warn("transcoder responsiveness check failed")
				}
				h.lastCheck = now

				if h.unresponsive > s.MaxUnresponsive {
					s.terminate(cmd, done)
					return Outcome{Kind: OutcomeUnresponsive, Stderr: tail(&stderr)}, nil
				}
			}
		}
	}
}

// finish maps the process exit to a terminal outcome.
func (s *Supervisor) finish(h *handle, err error, stderr *bytes.Buffer) (Outcome, error) {
	if err == nil {
		s.Log.WithFields(logrus.Fields{"pid": h.pid, "ran": time.Since(h.startedAt)}).Info("transcoder finished")
		return Outcome{Kind: OutcomeSuccess}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		s.Log.WithFields(logrus.Fields{"pid": h.pid, "code": code}).Error("transcoder exited non-zero")
		return Outcome{Kind: OutcomeNonZeroExit, ExitCode: code, Stderr: tail(stderr)}, nil
	}
	return Outcome{}, fmt.Errorf("wait for %s: %w", s.Binary, err)
}

// responsive probes the process table for the child. A missing or unreadable
// entry counts as a failed check.
func (s *Supervisor) responsive(pid int32) bool {
	if s.CheckResponsive != nil {
		return s.CheckResponsive(pid)
	}
	p, err := process.NewProcess(pid)
	if err != nil {
		return false
	}
	running, err := p.IsRunning()
	return err == nil && running
}

// terminate sends a graceful signal, then kills after the grace period. It
// always drains done so the Wait goroutine cannot leak.
func (s *Supervisor) terminate(cmd *exec.Cmd, done <-chan error) {
	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-done:
		return
	case <-time.After(s.KillGrace):
	}
	_ = cmd.Process.Kill()
	<-done
}

func tail(b *bytes.Buffer) string {
	s := b.String()
	if len(s) > stderrTailLen {
		return s[len(s)-stderrTailLen:]
	}
	return s
}
