// Package invocation describes a single test-runner run: which program to
// launch, what to expect from it and how forgiving to be.
package invocation

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

var (
	// ErrMissingProgram indicates the invocation names no program.
	ErrMissingProgram = errors.New("a test program is required")
	// ErrNegativeTimeout indicates a timeout below zero.
	ErrNegativeTimeout = errors.New("timeout must not be negative")
)

// Invocation is built once from the command line and never mutated.
type Invocation struct {
	Program  string
	Expected []string

	ExpectSuccess bool
	Exact         bool
	Tries         int
	CanFail       bool

	// Quoted wraps every expected item in double quotes before matching,
	// which is how assertion messages appear on stderr.
	Quoted bool

	// Silent drops the program's output in code mode instead of forwarding
	// it.
	Silent bool

	// Timeout bounds each attempt. Zero waits forever.
	Timeout time.Duration
}

// Normalize returns a copy with Tries clamped to at least one attempt and
// Program made absolute.
func (inv Invocation) Normalize() (Invocation, error) {
	if inv.Tries < 1 {
		inv.Tries = 1
	}
	if inv.Program != "" {
		abs, err := filepath.Abs(inv.Program)
		if err != nil {
			return Invocation{}, fmt.Errorf("resolve %s: %w", inv.Program, err)
		}
		inv.Program = abs
	}
	inv.Expected = append([]string(nil), inv.Expected...)
	return inv, nil
}

// Validate checks the invocation can be run. It does not check that the
// program exists; launching reports that.
func (inv Invocation) Validate() error {
	if inv.Program == "" {
		return ErrMissingProgram
	}
	if inv.Timeout < 0 {
		return ErrNegativeTimeout
	}
	return nil
}

// Mode names the comparison the invocation selects.
func (inv Invocation) Mode() string {
	switch {
	case inv.ExpectSuccess:
		return "code"
	case inv.Exact:
		return "exact"
	default:
		return "substring"
	}
}
