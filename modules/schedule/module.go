// Package schedule registers learning-rate schedules as a chain of free
// functions, each forwarding what it does not consume to the next.
package schedule

import (
	"fmt"
	"math"

	"github.com/vk/kwgraph/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Schedule scales a base learning rate by step.
type Schedule struct {
	Kind   string
	Scale  float64
	Warmup int
	Total  int
	Floor  float64
}

// At returns the multiplier for step.
func (s *Schedule) At(step int) float64 {
	if s == nil {
		return 1
	}
	f := s.Scale
	if s.Warmup > 0 && step < s.Warmup {
		f *= float64(step+1) / float64(s.Warmup)
	}
	if s.Total > 0 {
		progress := math.Min(float64(step)/float64(s.Total), 1)
		f = s.Floor + (f-s.Floor)*0.5*(1+math.Cos(math.Pi*progress))
	}
	return f
}

// Register registers the schedule functions.
func (m *Module) Register(r *registry.Registry) {
	pkg := r.Package("schedule")

	constant := pkg.Func("constant", func(scale float64) (*Schedule, error) {
		if scale <= 0 {
			return nil, fmt.Errorf("scale must be positive, got %g", scale)
		}
		return &Schedule{Kind: "constant", Scale: scale}, nil
	}, registry.Arg("scale", registry.Default(1.0)))

	warmup := pkg.Func("warmup", func(steps int, kw registry.Kwargs) (*Schedule, error) {
		if steps < 0 {
			return nil, fmt.Errorf("steps must not be negative, got %d", steps)
		}
		out, err := constant.Call(nil, kw)
		if err != nil {
			return nil, err
		}
		s := out.(*Schedule)
		s.Kind, s.Warmup = "warmup", steps
		return s, nil
	},
		registry.Arg("steps", registry.Default(100)),
		registry.VarKwargs("kw"),
		registry.Forwards("return constant(**kw)"),
	)

	pkg.Func("cosine", func(total, warmupSteps int, floor float64, kw registry.Kwargs) (*Schedule, error) {
		if total <= 0 {
			return nil, fmt.Errorf("total must be positive, got %d", total)
		}
		out, err := warmup.Call([]any{warmupSteps}, kw)
		if err != nil {
			return nil, err
		}
		s := out.(*Schedule)
		s.Kind, s.Total, s.Floor = "cosine", total, floor
		return s, nil
	},
		registry.Arg("total"),
		registry.Arg("warmup_steps", registry.Default(0)),
		registry.KeywordOnly("floor", registry.Default(0.0)),
		registry.VarKwargs("kw"),
		registry.Forwards("# the warmup phase comes first\nreturn warmup(warmup_steps, **kw)"),
	)
}
