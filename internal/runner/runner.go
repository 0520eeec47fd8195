package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"github.com/vk/kwgraph/internal/config"
	"github.com/vk/kwgraph/internal/ctxlog"
	"github.com/vk/kwgraph/internal/loader"
	"github.com/vk/kwgraph/internal/logview"
	"github.com/vk/kwgraph/internal/materialize"
	"github.com/vk/kwgraph/internal/registry"
	"github.com/vk/kwgraph/internal/sweep"
	"github.com/vk/kwgraph/internal/tree"
)

// Application is implemented by hosts.
type Application interface {
	// Modules returns the modules whose symbols configurations may construct.
	Modules() []registry.Module
	// Run executes one realized run.
	Run(ctx context.Context, run *Run) error
}

// FlagExtender is implemented by applications that add command-line flags.
type FlagExtender interface {
	ExtendFlags(flags *pflag.FlagSet)
}

// Postprocessor is implemented by applications that adjust every validated
// configuration before it is logged and run.
type Postprocessor interface {
	Postprocess(ctx context.Context, opts *Options, cfg *tree.Mapping) error
}

// Options are the per-invocation inputs of Main.
type Options struct {
	// ConfigFiles are loaded after the settings' default files, in order.
	ConfigFiles []string
	// Overrides are key=value arguments applied on top of the files.
	Overrides []string
	// MaxSweepWorkers overrides the settings when positive.
	MaxSweepWorkers int
	// Dry prints the final configuration and the sweep runs, then returns.
	Dry bool
	// HealthcheckPort serves sweep progress on /health when positive.
	HealthcheckPort int
	// Flags holds the parsed command line, including application flags.
	Flags *pflag.FlagSet
}

// Runner drives an Application through load, sweep expansion, validation
// and execution.
type Runner struct {
	app         Application
	settings    *config.Settings
	registry    *registry.Registry
	projector   *logview.Projector
	logger      *slog.Logger
	out         io.Writer
	logW        io.Writer
	in          io.Reader
	interactive bool
	progress    progress
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogOutput sends logs to w instead of the runner's output.
func WithLogOutput(w io.Writer) Option {
	return func(r *Runner) { r.logW = w }
}

// WithInput sets where the runner reads operator confirmations from, and
// whether it should ask for them at all.
func WithInput(in io.Reader, interactive bool) Option {
	return func(r *Runner) {
		r.in = in
		r.interactive = interactive
	}
}

// New creates a Runner with its own logger and registry.
func New(out io.Writer, settings *config.Settings, app Application, opts ...Option) (*Runner, error) {
	r := &Runner{
		app:         app,
		settings:    settings,
		out:         out,
		logW:        out,
		in:          os.Stdin,
		interactive: isTerminal(os.Stdin),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = newLogger(settings, r.logW)

	projector, err := logview.NewProjector(settings.SkipLogging)
	if err != nil {
		return nil, err
	}
	r.projector = projector

	r.registry = registry.New(app.Modules()...)
	r.logger.Debug("Registry created.", "packages", r.registry.Packages())
	return r, nil
}

// Registry returns the registry built from the application's modules.
func (r *Runner) Registry() *registry.Registry {
	return r.registry
}

// Logger returns the runner's logger.
func (r *Runner) Logger() *slog.Logger {
	return r.logger
}

// Main loads the configuration, expands its sweep and either prints the
// result (dry run) or realizes and executes every run.
func (r *Runner) Main(ctx context.Context, opts Options) error {
	ctx = ctxlog.WithLogger(ctx, r.logger)
	files := append(slices.Clone(r.settings.DefaultConfigFiles), opts.ConfigFiles...)
	r.logger.Debug("Runner started.", "files", files, "overrides", len(opts.Overrides))

	root, err := loader.Load(ctx, files, opts.Overrides)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	sw, err := sweep.Pop(root)
	if err != nil {
		return err
	}
	runs, err := sweep.Expand(sw)
	if err != nil {
		return err
	}
	r.logger.Debug("Sweep expanded.", "runs", len(runs))

	if opts.Dry {
		return r.dry(ctx, &opts, root, sw != nil, runs)
	}

	realized, err := r.realize(ctx, &opts, root, runs)
	if err != nil {
		return err
	}
	return r.execute(ctx, &opts, files, realized)
}

// finalize validates cfg and lets the application post-process it.
func (r *Runner) finalize(ctx context.Context, opts *Options, cfg *tree.Mapping) error {
	if err := materialize.Validate(ctx, cfg, r.registry); err != nil {
		return err
	}
	if p, ok := r.app.(Postprocessor); ok {
		if err := p.Postprocess(ctx, opts, cfg); err != nil {
			return fmt.Errorf("postprocess: %w", err)
		}
	}
	return nil
}

func (r *Runner) dry(ctx context.Context, opts *Options, root *tree.Mapping, hasSweep bool, runs []sweep.Run) error {
	if err := r.finalize(ctx, opts, root); err != nil {
		return err
	}
	out, err := tree.MarshalYAML(root)
	if err != nil {
		return err
	}
	if _, err := r.out.Write(out); err != nil {
		return err
	}
	if hasSweep {
		strs := make([]string, len(runs))
		for i, run := range runs {
			strs[i] = run.String()
		}
		fmt.Fprintln(r.out, logview.RenderRuns(strs))
	}
	return nil
}

// realize builds every run's configuration up front, so that a bad run is
// reported before any work starts.
func (r *Runner) realize(ctx context.Context, opts *Options, root *tree.Mapping, runs []sweep.Run) ([]*Run, error) {
	out := make([]*Run, 0, len(runs))
	for i, overrides := range runs {
		cfg := root.CloneMapping()
		if err := loader.ApplyOverrides(cfg, overrides); err != nil {
			return nil, fmt.Errorf("run %d (%s): %w", i, overrides, err)
		}
		if err := r.finalize(ctx, opts, cfg); err != nil {
			return nil, fmt.Errorf("run %d (%s): %w", i, overrides, err)
		}
		out = append(out, &Run{
			ID:        uuid.New(),
			Index:     i,
			Overrides: overrides,
			Config:    cfg,
			Log:       r.projector.Project(cfg),
			ns:        r.registry,
		})
	}
	return out, nil
}

// confirmWorkers warns that runs waiting for a free worker start later and
// see whatever their inputs look like by then. On a terminal the operator
// has to confirm.
func (r *Runner) confirmWorkers(workers, runs int) error {
	r.logger.Warn("Number of sweep workers is less than the number of configurations to be swept. Make sure files the runs read are not modified during execution.",
		"workers", workers, "runs", runs)
	if !r.interactive {
		return nil
	}
	fmt.Fprint(r.out, "Press Enter to continue: ")
	if _, err := bufio.NewReader(r.in).ReadString('\n'); err != nil && err != io.EOF {
		return fmt.Errorf("read confirmation: %w", err)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
