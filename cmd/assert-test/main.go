// assert-test checks a single quoted assertion message on a test program's
// stderr. It keeps the argument shape older build scripts call it with.
package main

import (
	"os"

	"github.com/megatech/testrunner/internal/cli"
)

func main() {
	os.Exit(cli.ExecuteAssert())
}
