// Package diag writes the runner's human-readable diagnostic lines.
package diag

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/megatech/testrunner/internal/expect"
)

// ColorMode controls when diagnostics are colorized.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ErrInvalidColorMode indicates an unrecognized color mode.
var ErrInvalidColorMode = errors.New("color must be auto, always, or never")

// ParseColorMode accepts auto, always, or never. The empty string means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch mode := ColorMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return mode, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrInvalidColorMode)
	}
}

const ellipsis = "…"

// Printer writes one diagnostic per line.
type Printer struct {
	w     io.Writer
	width int

	fail *color.Color
	pass *color.Color
	warn *color.Color
}

// New returns a Printer writing to w. A positive width truncates captured
// text quoted in mismatch lines to that many display columns.
func New(w io.Writer, mode ColorMode, width int) *Printer {
	enabled := mode == ColorAlways || (mode == ColorAuto && writerIsTerminal(w) && os.Getenv("NO_COLOR") == "")
	palette := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return &Printer{
		w:     w,
		width: width,
		fail:  palette(color.FgRed),
		pass:  palette(color.FgGreen),
		warn:  palette(color.FgYellow, color.Bold),
	}
}

// NonZeroExit reports a code-mode attempt that did not exit 0. Retried runs
// prefix the attempt number.
func (p *Printer) NonZeroExit(attempt, tries, code int) {
	msg := fmt.Sprintf("A result of 0 was expected, but %d was received.", code)
	if tries > 1 {
		msg = fmt.Sprintf("Attempt #%d failed: %s", attempt, msg)
	}
	p.line(p.fail, msg)
}

// TimedOut reports an attempt killed by the per-attempt timeout.
func (p *Printer) TimedOut(attempt, tries int, d time.Duration) {
	if tries > 1 {
		p.line(p.fail, fmt.Sprintf("Attempt #%d timed out after %s.", attempt, d))
		return
	}
	p.line(p.fail, fmt.Sprintf("Timed out after %s.", d))
}

// Mismatch reports an expected item the captured text did not satisfy.
func (p *Printer) Mismatch(m expect.Mismatch, captured string) {
	p.line(p.fail, fmt.Sprintf(`%s %s "%s"`, m.Label(), m.Kind.Relation(), p.clip(strings.TrimSpace(captured))))
}

// AttemptFailed closes the report of a failed string-mode attempt.
func (p *Printer) AttemptFailed(attempt int) {
	p.line(p.fail, fmt.Sprintf("Attempt #%d failed.", attempt))
}

// AttemptPassed confirms which attempt of a retried run succeeded.
func (p *Printer) AttemptPassed(attempt int) {
	p.line(p.pass, fmt.Sprintf("Attempt #%d passed.", attempt))
}

// SoftFailure notes that a failure is being reported as success.
func (p *Printer) SoftFailure() {
	p.line(p.warn, "warning: test failed but --can-fail is set; reporting success.")
}

func (p *Printer) line(c *color.Color, msg string) {
	fmt.Fprintln(p.w, c.Sprint(msg))
}

func (p *Printer) clip(s string) string {
	if p.width <= 0 || runewidth.StringWidth(s) <= p.width {
		return s
	}
	return runewidth.Truncate(s, p.width, ellipsis)
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
