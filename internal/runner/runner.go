// Package runner launches a test program once and reports how it exited.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxOutput caps how much stderr is kept per attempt.
const DefaultMaxOutput = 16 << 20

// waitDelay bounds how long an attempt waits for its output pipes to close
// after the program exits or is killed.
const waitDelay = 2 * time.Second

type outputMode int

const (
	modeCapture outputMode = iota
	modePassthrough
	modeDiscard
)

func (m outputMode) String() string {
	switch m {
	case modeCapture:
		return "capture"
	case modePassthrough:
		return "passthrough"
	default:
		return "discard"
	}
}

// ErrInvalidUTF8 indicates the program wrote bytes to stderr that are not
// valid UTF-8, so they cannot be compared as text.
var ErrInvalidUTF8 = errors.New("stderr is not valid UTF-8")

// Runner executes a program with no arguments. The zero value waits forever,
// keeps DefaultMaxOutput bytes of stderr and forwards passthrough output to
// the current process.
type Runner struct {
	Timeout   time.Duration
	MaxOutput int

	// Stdout and Stderr receive the program's output in passthrough mode.
	Stdout io.Writer
	Stderr io.Writer

	Logger *zap.Logger
}

// Capture runs program, keeping its stderr for comparison. Stdout is
// discarded.
func (r *Runner) Capture(ctx context.Context, program string) (*Result, error) {
	return r.run(ctx, program, modeCapture)
}

// Passthrough runs program with its output forwarded and only the exit code
// recorded.
func (r *Runner) Passthrough(ctx context.Context, program string) (*Result, error) {
	return r.run(ctx, program, modePassthrough)
}

// Discard runs program and throws its output away unread. Only the exit code
// is recorded, so output that is not UTF-8 is not an error.
func (r *Runner) Discard(ctx context.Context, program string) (*Result, error) {
	return r.run(ctx, program, modeDiscard)
}

func (r *Runner) run(ctx context.Context, program string, mode outputMode) (*Result, error) {
	if program == "" {
		return nil, errors.New("empty program path")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	runID := uuid.New().String()
	log := r.logger().With(zap.String("run_id", runID), zap.String("program", program))

	cmd := exec.CommandContext(runCtx, program)
	// Scripts often leave children holding stderr; kill the whole group.
	killProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	var stderr limitWriter
	switch mode {
	case modeCapture:
		stderr.limit = r.maxOutput()
		cmd.Stdout = io.Discard
		cmd.Stderr = &stderr
	case modePassthrough:
		cmd.Stdout = orDefault(r.Stdout, os.Stdout)
		cmd.Stderr = orDefault(r.Stderr, os.Stderr)
	case modeDiscard:
		// nil sends both streams to the null device.
	}

	log.Debug("launching", zap.Stringer("mode", mode), zap.Duration("timeout", r.Timeout))
	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	res := &Result{RunID: runID, Duration: elapsed}
	if runErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(runErr, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		case cmd.ProcessState != nil:
			// The program exited, but waiting for its output was cut short
			// by cancellation or the wait delay.
			res.ExitCode = cmd.ProcessState.ExitCode()
		default:
			return nil, fmt.Errorf("launching %s: %w", program, runErr)
		}
	}

	// The parent context is checked first so an interrupt is never mistaken
	// for a per-attempt timeout.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("running %s: %w", program, err)
	}
	if runErr != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
	}

	if mode == modeCapture {
		raw := stderr.buf.Bytes()
		res.Truncated = stderr.overflow
		if res.Truncated {
			raw = trimPartialRune(raw)
		}
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("%s: %w", program, ErrInvalidUTF8)
		}
		res.Stderr = string(raw)
	}

	log.Debug("exited",
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("elapsed", res.Duration),
		zap.Bool("timed_out", res.TimedOut),
		zap.Bool("truncated", res.Truncated),
		zap.Int("stderr_bytes", len(res.Stderr)),
	)
	return res, nil
}

func (r *Runner) maxOutput() int {
	if r.MaxOutput > 0 {
		return r.MaxOutput
	}
	return DefaultMaxOutput
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func orDefault(w io.Writer, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}

// trimPartialRune drops an incomplete multi-byte sequence left at the end
// of a buffer cut at the output cap.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		p := len(b) - i
		if !utf8.RuneStart(b[p]) {
			continue
		}
		if !utf8.FullRune(b[p:]) {
			return b[:p]
		}
		break
	}
	return b
}

// limitWriter keeps up to limit bytes, then silently discards the rest and
// records that it did.
type limitWriter struct {
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if len(p) > remaining {
		w.overflow = true
		// Report all bytes consumed so the copy goroutine does not fail.
		if remaining > 0 {
			w.buf.Write(p[:remaining])
		}
		return len(p), nil
	}
	return w.buf.Write(p)
}
