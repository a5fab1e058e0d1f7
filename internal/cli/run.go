package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/megatech/testrunner/internal/diag"
	"github.com/megatech/testrunner/internal/invocation"
	"github.com/megatech/testrunner/internal/runner"
	"github.com/megatech/testrunner/internal/testrun"
)

func runTest(cmd *cobra.Command, opts *options, inv invocation.Invocation) error {
	mode, err := diag.ParseColorMode(opts.color)
	if err != nil {
		return err
	}
	inv, err = inv.Normalize()
	if err != nil {
		return err
	}

	log := newLogger(cmd, opts.verbose)
	defer func() { _ = log.Sync() }()

	r := &runner.Runner{
		Timeout:   inv.Timeout,
		MaxOutput: opts.maxOutput,
		Stdout:    cmd.OutOrStdout(),
		Stderr:    cmd.ErrOrStderr(),
		Logger:    log,
	}
	tester := &testrun.Tester{
		Exec:   r,
		Diag:   diag.New(cmd.ErrOrStderr(), mode, opts.width),
		Logger: log,
	}

	out, err := tester.Run(cmd.Context(), inv)
	if err != nil {
		return err
	}
	if out.ExitCode() != exitPass {
		return errTestFailed
	}
	return nil
}

// newLogger returns a console logger on the command's stderr when verbose,
// and a no-op logger otherwise.
func newLogger(cmd *cobra.Command, verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.AddSync(cmd.ErrOrStderr()),
		zapcore.DebugLevel,
	)
	return zap.New(core).Named(cmd.Name())
}
