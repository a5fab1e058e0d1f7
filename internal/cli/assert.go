package cli

import (
	"github.com/spf13/cobra"

	"github.com/megatech/testrunner/internal/invocation"
	"github.com/megatech/testrunner/internal/version"
)

// ExecuteAssert runs assert-test, the single-message form used by the
// assertion library's own tests, and returns the exit code for os.Exit.
func ExecuteAssert() int {
	return executeWithSignals(newAssertCommand())
}

func newAssertCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "assert-test [flags] PROGRAM [EXPECTED]",
		Short: "Run an assertion test program and look for its quoted message on stderr",
		Long: `Run PROGRAM with no arguments. Unless --expect-success is given, stderr
must contain EXPECTED wrapped in double quotes, the way assertion messages
are printed. EXPECTED defaults to the empty string.`,
		Version:       version.String(),
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.applyConfig(cmd.Flags()); err != nil {
				return err
			}
			expected := ""
			if len(args) > 1 {
				expected = args[1]
			}
			inv := invocation.Invocation{
				Program:       args[0],
				Expected:      []string{expected},
				ExpectSuccess: opts.expectSuccess,
				Tries:         1,
				CanFail:       opts.canFail,
				Quoted:        true,
				Silent:        true,
				Timeout:       opts.timeout,
			}
			return runTest(cmd, opts, inv)
		},
	}
	opts.bindShared(cmd.Flags())
	return cmd
}
