// Package optim registers optimizers. SGD and Adam extend the Optimizer
// base class and forward their remaining keyword arguments to its init, so
// a configuration may set lr or weight_decay on either of them.
package optim

import (
	"fmt"
	"maps"

	"github.com/vk/kwgraph/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Optimizer holds the hyperparameters of a configured optimizer.
type Optimizer struct {
	Kind        string
	LR          float64
	Momentum    float64
	WeightDecay float64
	Nesterov    bool
	Betas       []float64
	Eps         float64
}

func (o *Optimizer) String() string {
	return fmt.Sprintf("%s(lr=%g)", o.Kind, o.LR)
}

// Register registers the optimizer classes.
func (m *Module) Register(r *registry.Registry) {
	pkg := r.Package("optim")

	base := pkg.Class("Optimizer")
	baseInit := base.Init(func(lr, momentum, weightDecay float64) (*Optimizer, error) {
		if lr <= 0 {
			return nil, fmt.Errorf("lr must be positive, got %g", lr)
		}
		if weightDecay < 0 {
			return nil, fmt.Errorf("weight_decay must not be negative, got %g", weightDecay)
		}
		return &Optimizer{Kind: "Optimizer", LR: lr, Momentum: momentum, WeightDecay: weightDecay}, nil
	},
		registry.Arg("lr", registry.Default(0.01)),
		registry.Arg("momentum", registry.Default(0.0)),
		registry.KeywordOnly("weight_decay", registry.Default(0.0)),
	)

	super := func(args []any, kw registry.Kwargs) (*Optimizer, error) {
		out, err := baseInit.Call(args, kw)
		if err != nil {
			return nil, err
		}
		return out.(*Optimizer), nil
	}

	sgd := pkg.Class("SGD", base)
	sgd.Init(func(nesterov bool, kw registry.Kwargs) (*Optimizer, error) {
		o, err := super(nil, kw)
		if err != nil {
			return nil, err
		}
		if nesterov && o.Momentum == 0 {
			return nil, fmt.Errorf("nesterov requires momentum")
		}
		o.Kind, o.Nesterov = "SGD", nesterov
		return o, nil
	},
		registry.KeywordOnly("nesterov", registry.Default(false)),
		registry.VarKwargs("kw"),
		registry.Forwards("super().init(**kw)"),
	)

	adam := pkg.Class("Adam", base)
	adam.Init(func(lr float64, betas []float64, eps float64, kw registry.Kwargs) (*Optimizer, error) {
		if len(betas) != 2 {
			return nil, fmt.Errorf("betas must hold two values, got %d", len(betas))
		}
		kw = maps.Clone(kw)
		kw["momentum"] = 0.0
		o, err := super([]any{lr}, kw)
		if err != nil {
			return nil, err
		}
		o.Kind, o.Betas, o.Eps = "Adam", betas, eps
		return o, nil
	},
		registry.Arg("lr", registry.Default(0.001)),
		registry.Arg("betas", registry.Default([]float64{0.9, 0.999})),
		registry.Arg("eps", registry.Default(1e-8)),
		registry.VarKwargs("kw"),
		registry.Forwards("super().init(lr, momentum=0.0, **kw)"),
	)
}
