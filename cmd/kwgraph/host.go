package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"
	"github.com/vk/kwgraph/internal/logview"
	"github.com/vk/kwgraph/internal/registry"
	"github.com/vk/kwgraph/internal/runner"
	"github.com/vk/kwgraph/internal/tree"
	"github.com/vk/kwgraph/modules/optim"
	"github.com/vk/kwgraph/modules/schedule"
	"github.com/vk/kwgraph/modules/train"
)

// trainerKey is where the host expects its trainer request.
const trainerKey = "trainer"

// host trains one trainer per run.
type host struct {
	out        io.Writer
	tags       []string
	showConfig bool
}

func (h *host) Modules() []registry.Module {
	return []registry.Module{&optim.Module{}, &schedule.Module{}, &train.Module{}}
}

func (h *host) ExtendFlags(fs *pflag.FlagSet) {
	fs.StringArrayVar(&h.tags, "tag", nil, "Tag added to every trainer; repeatable.")
	fs.BoolVar(&h.showConfig, "show-config", false, "Print each run's flattened configuration before training.")
}

// Postprocess appends the command-line tags to the trainer's own.
func (h *host) Postprocess(ctx context.Context, opts *runner.Options, cfg *tree.Mapping) error {
	if len(h.tags) == 0 {
		return nil
	}
	path := trainerKey + ".tags"
	var tags []tree.Node
	if n, ok := tree.GetPath(cfg, path); ok {
		switch x := n.(type) {
		case *tree.Sequence:
			tags = append(tags, x.Items...)
		case *tree.Scalar:
			if x.Value != nil {
				return fmt.Errorf("%s must be a list", path)
			}
		default:
			return fmt.Errorf("%s must be a list", path)
		}
	}
	for _, t := range h.tags {
		tags = append(tags, tree.NewScalar(t))
	}
	return tree.SetPath(cfg, path, tree.NewSequence(tags...))
}

func (h *host) Run(ctx context.Context, run *runner.Run) error {
	if h.showConfig {
		fmt.Fprintln(h.out, logview.Render(run.Log))
	}
	obj, err := run.InstantiateKey(ctx, trainerKey, nil, nil)
	if err != nil {
		return err
	}
	trainer, ok := obj.(*train.Trainer)
	if !ok {
		return fmt.Errorf("%s built %T, want a train.Trainer", trainerKey, obj)
	}
	lrs, err := trainer.Fit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(h.out, "run %d [%s] %s: final lr %g\n", run.Index, run.Overrides, trainer.Optimizer, lrs[len(lrs)-1])
	return nil
}
