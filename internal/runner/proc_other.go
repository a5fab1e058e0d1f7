//go:build !unix

package runner

import "os/exec"

// killProcessGroup keeps the default cancellation, which kills only the
// program itself.
func killProcessGroup(*exec.Cmd) {}
