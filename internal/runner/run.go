package runner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/kwgraph/internal/ctxlog"
	"github.com/vk/kwgraph/internal/logview"
	"github.com/vk/kwgraph/internal/materialize"
	"github.com/vk/kwgraph/internal/registry"
	"github.com/vk/kwgraph/internal/sweep"
	"github.com/vk/kwgraph/internal/tree"
	"golang.org/x/sync/errgroup"
)

// Run is one realized configuration of a sweep. Runs share nothing
// mutable: each owns its configuration tree and whatever it instantiates.
type Run struct {
	ID        uuid.UUID
	Index     int
	Overrides sweep.Run
	// Config is validated and complete with defaults.
	Config *tree.Mapping
	// Log is the projection of Config for logs and trackers.
	Log logview.Record

	ns registry.Namespace
}

// Namespace returns the namespace the run's configuration resolves against.
func (r *Run) Namespace() registry.Namespace {
	return r.ns
}

// Instantiate builds the object described by node, which must be a
// construction request.
func (r *Run) Instantiate(ctx context.Context, node tree.Node, perType materialize.Overrides, kwargs registry.Kwargs) (any, error) {
	return materialize.Instantiate(ctx, node, r.ns, perType, kwargs)
}

// InstantiateKey instantiates the construction request at a dotted key of
// the run's configuration.
func (r *Run) InstantiateKey(ctx context.Context, key string, perType materialize.Overrides, kwargs registry.Kwargs) (any, error) {
	node, ok := tree.GetPath(r.Config, key)
	if !ok {
		return nil, fmt.Errorf("configuration has no %q", key)
	}
	out, err := r.Instantiate(ctx, node, perType, kwargs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return out, nil
}

func (r *Runner) execute(ctx context.Context, opts *Options, files []string, runs []*Run) error {
	workers := opts.MaxSweepWorkers
	if workers <= 0 {
		workers = r.settings.MaxSweepWorkers
	}
	r.progress.start(len(runs))
	if opts.HealthcheckPort > 0 {
		stop := r.startHealthcheckServer(ctx, opts.HealthcheckPort)
		defer stop()
	}

	if workers <= 0 {
		r.logger.Debug("Running sequentially.", "runs", len(runs))
		for _, run := range runs {
			if err := r.runOne(ctx, run); err != nil {
				return err
			}
		}
		return nil
	}

	if workers < len(runs) {
		if err := r.confirmWorkers(workers, len(runs)); err != nil {
			return err
		}
	}
	stopWatch := r.watch(ctx, files)
	defer stopWatch()

	limit := min(workers, len(runs))
	r.logger.Info("Running sweep in parallel.", "runs", len(runs), "workers", limit)
	var g errgroup.Group
	g.SetLimit(limit)
	for _, run := range runs {
		g.Go(func() error { return r.runOne(ctx, run) })
	}
	return g.Wait()
}

func (r *Runner) runOne(ctx context.Context, run *Run) error {
	ctx = ctxlog.With(ctx, "run_id", run.ID.String(), "run", run.Index)
	logger := ctxlog.FromContext(ctx)
	if len(run.Overrides) > 0 {
		logger.Info("Current configuration.", "overrides", run.Overrides.String())
	}
	logger.Debug("Run configuration.", run.Log.Attrs()...)

	if err := r.app.Run(ctx, run); err != nil {
		r.progress.fail()
		return fmt.Errorf("run %d (%s): %w", run.Index, run.Overrides, err)
	}
	r.progress.finish()
	logger.Debug("Run finished.")
	return nil
}
