// test-runner runs a test program and checks its exit code or the messages
// it writes to stderr, retrying flaky programs on request.
package main

import (
	"os"

	"github.com/megatech/testrunner/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
