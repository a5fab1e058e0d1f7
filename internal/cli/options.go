package cli

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/megatech/testrunner/internal/config"
)

type options struct {
	expectSuccess bool
	exact         bool
	retry         int
	canFail       bool
	quoted        bool
	timeout       time.Duration
	configPath    string
	color         string
	width         int
	verbose       bool

	// maxOutput has no flag; it only comes from a config file.
	maxOutput int
}

// bindShared registers the flags both commands accept.
func (o *options) bindShared(flags *pflag.FlagSet) {
	flags.BoolVar(&o.expectSuccess, "expect-success", false, "require exit code 0 and ignore output")
	flags.BoolVar(&o.canFail, "can-fail", false, "report a failing test as a warning and exit 0")
	flags.DurationVar(&o.timeout, "timeout", 0, "kill an attempt after this long (0 waits forever)")
	flags.StringVar(&o.configPath, "config", "", "read defaults from a .toml or .yaml file")
	flags.StringVar(&o.color, "color", "auto", "colorize diagnostics: auto, always, or never")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "trace every attempt on stderr")
}

// applyConfig fills every option whose flag was not set explicitly from the
// config file named by --config, or from the built-in defaults when there is
// none. Flags the command does not define ignore their config keys.
func (o *options) applyConfig(flags *pflag.FlagSet) error {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return err
		}
	}

	unset := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && !f.Changed
	}
	if unset("retry") {
		o.retry = cfg.Retry
	}
	if unset("exact") {
		o.exact = cfg.Exact
	}
	if unset("can-fail") {
		o.canFail = cfg.CanFail
	}
	if unset("timeout") {
		o.timeout = cfg.Timeout()
	}
	if unset("color") {
		o.color = cfg.Color
	}
	if unset("width") {
		o.width = cfg.Width
	}
	if unset("verbose") {
		o.verbose = cfg.Verbose
	}
	o.maxOutput = cfg.MaxOutput
	return nil
}
