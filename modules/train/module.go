// Package train registers the Trainer, which is composed of other
// construction requests: an optimizer and an optional schedule.
package train

import (
	"context"
	"fmt"

	"github.com/vk/kwgraph/internal/ctxlog"
	"github.com/vk/kwgraph/internal/registry"
	"github.com/vk/kwgraph/modules/optim"
	"github.com/vk/kwgraph/modules/schedule"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Trainer steps an optimizer through a schedule.
type Trainer struct {
	Optimizer *optim.Optimizer
	Schedule  *schedule.Schedule
	Epochs    int
	Steps     int
	Seed      int
	Tags      []string
}

// Fit walks every step and returns the learning rate used at the end of
// each epoch.
func (t *Trainer) Fit(ctx context.Context) ([]float64, error) {
	logger := ctxlog.FromContext(ctx)
	out := make([]float64, 0, t.Epochs)
	step := 0
	for epoch := range t.Epochs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		var lr float64
		for range t.Steps {
			lr = t.Optimizer.LR * t.Schedule.At(step)
			step++
		}
		logger.Info("Epoch finished.", "epoch", epoch, "lr", lr, "optimizer", t.Optimizer.Kind)
		out = append(out, lr)
	}
	return out, nil
}

// Register registers the Trainer class.
func (m *Module) Register(r *registry.Registry) {
	pkg := r.Package("train")
	pkg.Class("Trainer").Init(func(opt *optim.Optimizer, sched *schedule.Schedule, epochs, steps, seed int, tags []string) (*Trainer, error) {
		if opt == nil {
			return nil, fmt.Errorf("optimizer is required")
		}
		if epochs <= 0 || steps <= 0 {
			return nil, fmt.Errorf("epochs and steps must be positive, got %d and %d", epochs, steps)
		}
		return &Trainer{Optimizer: opt, Schedule: sched, Epochs: epochs, Steps: steps, Seed: seed, Tags: tags}, nil
	},
		registry.Arg("optimizer"),
		registry.Arg("schedule", registry.Default((*schedule.Schedule)(nil))),
		registry.Arg("epochs", registry.Default(1)),
		registry.Arg("steps", registry.Default(10)),
		registry.KeywordOnly("seed", registry.Default(0)),
		registry.KeywordOnly("tags", registry.Default([]string(nil))),
	)
}
