package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/megatech/testrunner/internal/invocation"
	"github.com/megatech/testrunner/internal/version"
)

// Process exit codes.
const (
	exitPass  = 0
	exitFail  = 1
	exitError = 2
)

// errTestFailed is returned by RunE when the test itself failed. The
// diagnostics have already been printed.
var errTestFailed = errors.New("test failed")

// Execute runs test-runner with the process arguments and returns the exit
// code for os.Exit.
func Execute() int {
	return executeWithSignals(newRootCommand())
}

func executeWithSignals(cmd *cobra.Command) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return execute(ctx, cmd, os.Args[1:])
}

func execute(ctx context.Context, cmd *cobra.Command, args []string) int {
	if args == nil {
		// cobra reads os.Args when given nil.
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitPass
	case errors.Is(err, errTestFailed):
		return exitFail
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", cmd.Name(), err)
		return exitError
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "test-runner [flags] PROGRAM [EXPECTED ...]",
		Short: "Run a test program and check its exit code or stderr",
		Long: `Run PROGRAM with no arguments and decide whether it passed.

With --expect-success the program must exit 0. Otherwise every EXPECTED
string must appear in what the program wrote to stderr (or, with --exact,
equal all of it). With --retry N the program is run up to N times until an
attempt passes.`,
		Version:       version.String(),
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.applyConfig(cmd.Flags()); err != nil {
				return err
			}
			inv := invocation.Invocation{
				Program:       args[0],
				Expected:      args[1:],
				ExpectSuccess: opts.expectSuccess,
				Exact:         opts.exact,
				Tries:         opts.retry,
				CanFail:       opts.canFail,
				Quoted:        opts.quoted,
				Timeout:       opts.timeout,
			}
			return runTest(cmd, opts, inv)
		},
	}

	flags := cmd.Flags()
	opts.bindShared(flags)
	flags.IntVar(&opts.retry, "retry", 1, "run the program up to `N` times until it passes")
	flags.BoolVar(&opts.exact, "exact", false, "require stderr to equal each EXPECTED string")
	flags.BoolVar(&opts.quoted, "quoted", false, `match "EXPECTED" including surrounding double quotes`)
	flags.IntVar(&opts.width, "width", 0, "clip captured text in diagnostics to `N` columns (0 keeps all)")
	return cmd
}
