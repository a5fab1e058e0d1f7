// Package testrun runs a test program until it meets its expectations or
// runs out of attempts.
package testrun

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/megatech/testrunner/internal/diag"
	"github.com/megatech/testrunner/internal/expect"
	"github.com/megatech/testrunner/internal/invocation"
	"github.com/megatech/testrunner/internal/runner"
)

var _ Executor = (*runner.Runner)(nil)

// Executor performs single attempts.
type Executor interface {
	// Capture runs the program and keeps its stderr.
	Capture(ctx context.Context, program string) (*runner.Result, error)
	// Passthrough runs the program without capturing output.
	Passthrough(ctx context.Context, program string) (*runner.Result, error)
	// Discard runs the program and drops its output unread.
	Discard(ctx context.Context, program string) (*runner.Result, error)
}

// Outcome summarizes a run.
type Outcome struct {
	Passed   bool
	Softened bool // failed, but reported as success
	Attempts int
}

// ExitCode is 0 for a pass or a softened failure and 1 otherwise.
func (o Outcome) ExitCode() int {
	if o.Passed || o.Softened {
		return 0
	}
	return 1
}

// Tester drives attempts and reports failures through Diag. Errors returned
// by its methods are runner errors (the program could not be launched, its
// output could not be decoded, or ctx ended), never test failures.
type Tester struct {
	Exec   Executor
	Diag   *diag.Printer
	Logger *zap.Logger
}

// Run dispatches on the invocation's mode flags and applies CanFail.
func (t *Tester) Run(ctx context.Context, inv invocation.Invocation) (Outcome, error) {
	if err := inv.Validate(); err != nil {
		return Outcome{}, err
	}
	t.logger().Debug("starting test",
		zap.String("program", inv.Program),
		zap.String("mode", inv.Mode()),
		zap.Int("tries", inv.Tries),
		zap.Strings("expected", inv.Expected),
		zap.Bool("can_fail", inv.CanFail),
	)

	var (
		out Outcome
		err error
	)
	if inv.ExpectSuccess {
		attempt := t.Exec.Passthrough
		if inv.Silent {
			attempt = t.Exec.Discard
		}
		out, err = t.runCode(ctx, inv.Program, inv.Tries, attempt)
	} else {
		kind := expect.Substring
		if inv.Exact {
			kind = expect.Exact
		}
		out, err = t.runMatch(ctx, inv.Program, inv.Expected, inv.Tries, expect.Matcher{Kind: kind, Quoted: inv.Quoted})
	}
	if err != nil {
		return out, err
	}

	if !out.Passed && inv.CanFail {
		t.Diag.SoftFailure()
		out.Softened = true
	}
	t.logger().Debug("finished test",
		zap.Bool("passed", out.Passed),
		zap.Bool("softened", out.Softened),
		zap.Int("attempts", out.Attempts),
	)
	return out, nil
}

// RunCode runs program until it exits 0, at most tries times.
func (t *Tester) RunCode(ctx context.Context, program string, tries int) (Outcome, error) {
	return t.runCode(ctx, program, tries, t.Exec.Passthrough)
}

type attemptFunc func(ctx context.Context, program string) (*runner.Result, error)

func (t *Tester) runCode(ctx context.Context, program string, tries int, attempt attemptFunc) (Outcome, error) {
	tries = max(tries, 1)
	for i := 0; i < tries; i++ {
		res, err := attempt(ctx, program)
		if err != nil {
			return Outcome{Attempts: i + 1}, err
		}
		if res.Succeeded() {
			if tries > 1 {
				t.Diag.AttemptPassed(i)
			}
			return Outcome{Passed: true, Attempts: i + 1}, nil
		}
		if res.TimedOut {
			t.Diag.TimedOut(i, tries, res.Duration.Round(time.Millisecond))
			continue
		}
		t.Diag.NonZeroExit(i, tries, res.ExitCode)
	}
	return Outcome{Attempts: tries}, nil
}

// RunExactStr runs program until its whole stderr equals every expected
// string, at most tries times.
func (t *Tester) RunExactStr(ctx context.Context, program string, expected []string, tries int) (Outcome, error) {
	return t.runMatch(ctx, program, expected, tries, expect.Matcher{Kind: expect.Exact})
}

// RunStr runs program until its stderr contains every expected string, at
// most tries times.
func (t *Tester) RunStr(ctx context.Context, program string, expected []string, tries int) (Outcome, error) {
	return t.runMatch(ctx, program, expected, tries, expect.Matcher{Kind: expect.Substring})
}

func (t *Tester) runMatch(ctx context.Context, program string, expected []string, tries int, m expect.Matcher) (Outcome, error) {
	tries = max(tries, 1)
	for i := 0; i < tries; i++ {
		res, err := t.Exec.Capture(ctx, program)
		if err != nil {
			return Outcome{Attempts: i + 1}, err
		}
		if res.Truncated {
			t.logger().Warn("stderr truncated; comparing the kept prefix",
				zap.String("run_id", res.RunID), zap.Int("attempt", i))
		}
		if res.TimedOut {
			t.Diag.TimedOut(i, tries, res.Duration.Round(time.Millisecond))
			continue
		}

		mismatches := m.Check(res.Stderr, expected)
		if len(mismatches) == 0 {
			if tries > 1 {
				t.Diag.AttemptPassed(i)
			}
			return Outcome{Passed: true, Attempts: i + 1}, nil
		}
		for _, mm := range mismatches {
			t.Diag.Mismatch(mm, res.Stderr)
		}
		if tries > 1 {
			t.Diag.AttemptFailed(i)
		}
	}
	return Outcome{Attempts: tries}, nil
}

func (t *Tester) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}
