package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCapture_Stderr(t *testing.T) {
	r := &Runner{}
	prog := writeScript(t, "printf 'to stdout'\nprintf 'Assertion \"x\" failed' >&2\nexit 3")

	res, err := r.Capture(context.Background(), prog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.Stderr != `Assertion "x" failed` {
		t.Errorf("Stderr = %q, want the assertion message only", res.Stderr)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if res.Succeeded() {
		t.Error("Succeeded() = true for exit 3")
	}
}

func TestPassthrough_ForwardsOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := &Runner{Stdout: &stdout, Stderr: &stderr}
	prog := writeScript(t, "echo out\necho err >&2")

	res, err := r.Passthrough(context.Background(), prog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Succeeded() {
		t.Errorf("Succeeded() = false, ExitCode = %d", res.ExitCode)
	}
	if stdout.String() != "out\n" {
		t.Errorf("stdout = %q, want %q", stdout.String(), "out\n")
	}
	if stderr.String() != "err\n" {
		t.Errorf("stderr = %q, want %q", stderr.String(), "err\n")
	}
	if res.Stderr != "" {
		t.Errorf("Stderr = %q, want empty in passthrough mode", res.Stderr)
	}
}

func TestCapture_ProgramNotFound(t *testing.T) {
	r := &Runner{}
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	_, err := r.Capture(context.Background(), missing)
	if err == nil {
		t.Fatal("expected error for missing program")
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("error = %q, want to mention the program path", err)
	}
}

func TestCapture_NotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := &Runner{}
	if _, err := r.Capture(context.Background(), path); err == nil {
		t.Fatal("expected error for non-executable program")
	}
}

func TestCapture_InvalidUTF8(t *testing.T) {
	r := &Runner{}
	prog := writeScript(t, `printf '\377\376' >&2`)
	_, err := r.Capture(context.Background(), prog)
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("err = %v, want ErrInvalidUTF8", err)
	}
}

func TestCapture_Timeout(t *testing.T) {
	r := &Runner{Timeout: 100 * time.Millisecond}
	prog := writeScript(t, "exec sleep 10")

	res, err := r.Capture(context.Background(), prog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false, want true")
	}
	if res.Succeeded() {
		t.Error("Succeeded() = true for a timed out attempt")
	}
}

func TestCapture_TimeoutKillsChildren(t *testing.T) {
	r := &Runner{Timeout: 200 * time.Millisecond}
	// sleep runs as a child of sh and inherits its stderr.
	prog := writeScript(t, "echo started >&2\nsleep 5")

	start := time.Now()
	res, err := r.Capture(context.Background(), prog)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false, want true")
	}
	if elapsed > 3*time.Second {
		t.Errorf("attempt took %v, want it stopped near the 200ms timeout", elapsed)
	}
	if res.Stderr != "started\n" {
		t.Errorf("Stderr = %q, want %q", res.Stderr, "started\n")
	}
}

func TestPassthrough_TimeoutKillsChildren(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := &Runner{Timeout: 200 * time.Millisecond, Stdout: &stdout, Stderr: &stderr}
	prog := writeScript(t, "sleep 5")

	start := time.Now()
	res, err := r.Passthrough(context.Background(), prog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false, want true")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("attempt took %v, want it stopped near the 200ms timeout", elapsed)
	}
}

func TestDiscard_DropsOutputUnread(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := &Runner{Stdout: &stdout, Stderr: &stderr}
	prog := writeScript(t, "echo out\nprintf '\\377' >&2\nexit 5")

	res, err := r.Discard(context.Background(), prog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 5 {
		t.Errorf("ExitCode = %d, want 5", res.ExitCode)
	}
	if stdout.Len() != 0 || stderr.Len() != 0 {
		t.Errorf("output forwarded: stdout %q, stderr %q", stdout.String(), stderr.String())
	}
	if res.Stderr != "" {
		t.Errorf("Stderr = %q, want empty", res.Stderr)
	}
}

func TestCapture_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{}
	_, err := r.Capture(ctx, "/bin/true")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestCapture_Truncation(t *testing.T) {
	r := &Runner{MaxOutput: 100}
	prog := writeScript(t, "dd if=/dev/zero bs=200 count=1 2>/dev/null | tr '\\0' 'a' >&2")

	res, err := r.Capture(context.Background(), prog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(res.Stderr) != 100 {
		t.Errorf("len(Stderr) = %d, want 100", len(res.Stderr))
	}
}

func TestCapture_OutputAtCapIsNotTruncated(t *testing.T) {
	r := &Runner{MaxOutput: 100}
	prog := writeScript(t, "dd if=/dev/zero bs=100 count=1 2>/dev/null | tr '\\0' 'a' >&2")

	res, err := r.Capture(context.Background(), prog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Truncated {
		t.Error("Truncated = true for output exactly at the cap")
	}
	if len(res.Stderr) != 100 {
		t.Errorf("len(Stderr) = %d, want 100", len(res.Stderr))
	}
}

func TestLimitWriter(t *testing.T) {
	w := &limitWriter{limit: 4}
	for _, chunk := range []string{"ab", "cd"} {
		if n, err := w.Write([]byte(chunk)); n != len(chunk) || err != nil {
			t.Fatalf("Write(%q) = %d, %v", chunk, n, err)
		}
	}
	if w.overflow {
		t.Fatal("overflow after writing exactly the limit")
	}
	if n, _ := w.Write([]byte("ef")); n != 2 {
		t.Fatalf("Write past limit reported %d bytes, want 2", n)
	}
	if !w.overflow || w.buf.String() != "abcd" {
		t.Fatalf("overflow = %v, buf = %q; want true, %q", w.overflow, w.buf.String(), "abcd")
	}
}

func TestTrimPartialRune(t *testing.T) {
	euro := []byte("€") // e2 82 ac
	cases := []struct {
		name string
		in   []byte
		want string
	}{
		{"ascii", []byte("abc"), "abc"},
		{"complete", append([]byte("a"), euro...), "a€"},
		{"oneOfThree", append([]byte("a"), euro[:1]...), "a"},
		{"twoOfThree", append([]byte("a"), euro[:2]...), "a"},
		{"empty", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := string(trimPartialRune(tc.in)); got != tc.want {
				t.Fatalf("trimPartialRune(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
