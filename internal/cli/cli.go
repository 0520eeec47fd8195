package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vk/kwgraph/internal/config"
	"github.com/vk/kwgraph/internal/logview"
	"github.com/vk/kwgraph/internal/registry"
	"github.com/vk/kwgraph/internal/runner"
	"github.com/vk/kwgraph/internal/signature"
)

// ExitError is an error carrying the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

type flags struct {
	configFiles     []string
	maxSweepWorkers int
	dry             bool
	settingsPath    string
	logLevel        string
	logFormat       string
	healthcheckPort int
}

// NewCommand returns the root command of a host named name. Positional
// arguments are dotted key=value overrides. Runner options are passed
// through to runner.New.
func NewCommand(name string, app runner.Application, out io.Writer, opts ...runner.Option) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:           name + " [flags] [key=value ...]",
		Short:         "Validate, sweep and run declarative configurations",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd, &f)
			if err != nil {
				return err
			}
			r, err := runner.New(out, settings, app, opts...)
			if err != nil {
				return usageError(err)
			}
			return r.Main(cmd.Context(), runner.Options{
				ConfigFiles:     f.configFiles,
				Overrides:       args,
				MaxSweepWorkers: f.maxSweepWorkers,
				Dry:             f.dry,
				HealthcheckPort: f.healthcheckPort,
				Flags:           cmd.Flags(),
			})
		},
	}
	cmd.SetOut(out)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	fs := cmd.Flags()
	fs.StringArrayVarP(&f.configFiles, "config", "c", nil, "Configuration file or directory; repeatable, later files win.")
	fs.IntVarP(&f.maxSweepWorkers, "max-sweep-workers", "w", 0, "Run sweeps in parallel with this many workers. 0 uses the settings.")
	fs.BoolVar(&f.dry, "dry", false, "Print the final configuration and the sweep runs without running them.")
	fs.StringVar(&f.settingsPath, "settings", "", "Path to the TOML settings file.")
	fs.StringVar(&f.logLevel, "log-level", "", "Logging level: 'debug', 'info', 'warn' or 'error'. Overrides the settings.")
	fs.StringVar(&f.logFormat, "log-format", "", "Log output format: 'text' or 'json'. Overrides the settings.")
	fs.IntVar(&f.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	if ext, ok := app.(runner.FlagExtender); ok {
		ext.ExtendFlags(fs)
	}

	cmd.AddCommand(newSignatureCommand(app, out))
	return cmd
}

// loadSettings reads the settings file and applies the flags that were
// set explicitly.
func loadSettings(cmd *cobra.Command, f *flags) (*config.Settings, error) {
	settings, err := config.Load(f.settingsPath)
	if err != nil {
		return nil, usageError(err)
	}
	fs := cmd.Flags()
	if fs.Changed("log-level") {
		settings.LogLevel = f.logLevel
	}
	if fs.Changed("log-format") {
		settings.LogFormat = f.logFormat
	}
	if err := settings.Validate(); err != nil {
		return nil, usageError(err)
	}
	return settings, nil
}

func newSignatureCommand(app runner.Application, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "signature PATH...",
		Short: "Print the parameters a constructible symbol accepts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.New(app.Modules()...)
			for _, path := range args {
				sym, err := reg.Lookup(path)
				if err != nil {
					return err
				}
				table, err := signature.ResolveSymbol(cmd.Context(), sym, reg)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintln(out, path)
				fmt.Fprintln(out, logview.RenderParams(table))
			}
			return nil
		},
	}
}

// Execute runs cmd with args.
func Execute(ctx context.Context, cmd *cobra.Command, args []string) error {
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
