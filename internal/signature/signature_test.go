package signature

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/kwgraph/internal/ctxlog"
	"github.com/vk/kwgraph/internal/param"
	"github.com/vk/kwgraph/internal/registry"
)

// newLib registers a small package exercising every forwarding binding.
func newLib(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	lib := r.Package("lib")

	lib.Func("inner", func(a, extra, c, d int) int { return a + extra + c + d },
		registry.Arg("a"),
		registry.Arg("extra"),
		registry.Arg("c", registry.Default(3)),
		registry.Arg("d", registry.Default(4)),
	)
	lib.Func("outer", func(a, b int, kw registry.Kwargs) int { return a + b },
		registry.Arg("a"),
		registry.Arg("b", registry.Default(1)),
		registry.VarKwargs("kw"),
		registry.Forwards("inner(a, extra=2, **kw)"),
	)
	lib.Func("plain", func(x int, y string) string { return y },
		registry.Arg("x"),
		registry.Arg("y", registry.Default("y")),
	)

	opt := lib.Class("Optimizer")
	opt.Init(func(lr, momentum float64) (any, error) { return lr + momentum, nil },
		registry.Arg("lr", registry.Default(0.1)),
		registry.Arg("momentum", registry.Default(0.0)),
	)
	adam := lib.Class("Adam", opt)
	adam.Init(func(beta float64, kw registry.Kwargs) (any, error) { return beta, nil },
		registry.Arg("beta", registry.Default(0.9)),
		registry.VarKwargs("kw"),
		registry.Forwards("super().init(**kw)"),
	)
	named := lib.Class("Named", opt)
	named.Init(func(beta float64, kw registry.Kwargs) (any, error) { return beta, nil },
		registry.Arg("beta", registry.Default(0.9)),
		registry.VarKwargs("kw"),
		registry.Forwards("super(Optimizer, self).init(0.5, **kw)"),
	)
	builder := lib.Class("Builder")
	builder.Init(func(kw registry.Kwargs) (any, error) { return kw, nil },
		registry.Receiver("this"),
		registry.VarKwargs("kw"),
		registry.Forwards("this.configure(**kw)"),
	)
	builder.Method("configure", func(depth int, width int) (any, error) { return depth * width, nil },
		registry.Arg("depth", registry.Default(2)),
		registry.KeywordOnly("width", registry.Default(8)),
	)
	return r
}

func resolve(t *testing.T, r *registry.Registry, path string) *param.Table {
	t.Helper()
	sym, err := r.Lookup(path)
	require.NoError(t, err)
	table, err := ResolveSymbol(context.Background(), sym, r)
	require.NoError(t, err)
	return table
}

func TestResolve_PassThroughWithoutBucket(t *testing.T) {
	table := resolve(t, newLib(t), "lib.plain")
	assert.Equal(t, []string{"x", "y"}, table.Names())
	y, ok := table.Get("y")
	require.True(t, ok)
	assert.Equal(t, "y", y.Default)
}

func TestResolve_FlattensFreeForwarding(t *testing.T) {
	table := resolve(t, newLib(t), "lib.outer")
	assert.Equal(t, []string{"a", "b", "c", "d"}, table.Names(), "a is own, extra is passed explicitly, c and d are forwarded")
	c, _ := table.Get("c")
	assert.Equal(t, 3, c.Default)
}

func TestResolve_ParentForwarding(t *testing.T) {
	table := resolve(t, newLib(t), "lib.Adam")
	assert.Equal(t, []string{"beta", "lr", "momentum"}, table.Names())
	assert.False(t, table.Has("self"), "the receiver is never part of the table")
}

func TestResolve_NamedBaseConsumesPositionals(t *testing.T) {
	table := resolve(t, newLib(t), "lib.Named")
	assert.Equal(t, []string{"beta", "momentum"}, table.Names())
}

func TestResolve_SelfForwardingWithRenamedReceiver(t *testing.T) {
	table := resolve(t, newLib(t), "lib.Builder")
	assert.Equal(t, []string{"depth", "width"}, table.Names())
	width, _ := table.Get("width")
	assert.Equal(t, param.KeywordOnly, width.Kind)
}

func TestResolve_InfersDeclaringClassFromQualifiedName(t *testing.T) {
	r := newLib(t)
	sym, err := r.Lookup("lib.Adam.init")
	require.NoError(t, err)
	fn, ok := sym.(*registry.Func)
	require.True(t, ok)

	table, err := Resolve(context.Background(), fn, nil, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta", "lr", "momentum"}, table.Names())
}

func TestResolve_BoundReceiverDecidesDeclaringClass(t *testing.T) {
	r := newLib(t)
	lib := r.Package("lib")
	opt, _ := lib.Attr("Optimizer")
	adam, _ := lib.Attr("Adam")
	tuned := lib.Class("Tuned", opt.(*registry.Class))
	fn := tuned.Method("tune", func(kw registry.Kwargs) (any, error) { return nil, nil },
		registry.VarKwargs("kw"),
		registry.Forwards("super().init(momentum=0.0, **kw)"),
	)
	wrapped := lib.Class("Wrapped", adam.(*registry.Class))

	table, err := Resolve(context.Background(), fn.Bind(tuned), nil, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"lr"}, table.Names())

	table, err = Resolve(context.Background(), fn.Bind(wrapped), nil, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta", "lr"}, table.Names(), "super() starts from the bound class, not the qualified name")
}

func TestResolve_ForwardingInsideControlFlow(t *testing.T) {
	r := newLib(t)
	r.Package("lib").Func("branchy", func(flag bool, kw registry.Kwargs) int { return 0 },
		registry.Arg("flag", registry.Default(false)),
		registry.VarKwargs("kw"),
		registry.Forwards("if flag:\n    inner(1, 2, **kw)\nelse:\n    for step in range(3):\n        inner(1, 2, **kw)\n"),
	)

	table := resolve(t, r, "lib.branchy")
	assert.Equal(t, []string{"flag", "c", "d"}, table.Names())
}

func TestResolve_VarPositionalBoundary(t *testing.T) {
	r := registry.New()
	lib := r.Package("lib")
	lib.Func("gather", func(a, b, c int, rest ...int) int { return a },
		registry.Arg("a"),
		registry.VarArgs("rest"),
		registry.KeywordOnly("b", registry.Default(1)),
		registry.KeywordOnly("c", registry.Default(2)),
	)
	lib.Func("front", func(x int, kw registry.Kwargs, args ...int) int { return x },
		registry.Arg("x"),
		registry.VarArgs("args"),
		registry.VarKwargs("kw"),
		registry.Forwards("gather(1, 2, 3, c=x, **kw)"),
	)

	table := resolve(t, r, "lib.front")
	assert.Equal(t, []string{"x", "b"}, table.Names(), "variadic positionals of either side never reach the table")

	lib.Func("collect", func(a, b int, rest ...int) int { return a + b },
		registry.Arg("a"),
		registry.VarArgs("rest"),
		registry.Arg("b", registry.Default(1)),
	)
	lib.Func("spread", func(kw registry.Kwargs) int { return 0 },
		registry.VarKwargs("kw"),
		registry.Forwards("collect(1, 2, 3, **kw)"),
	)

	table = resolve(t, r, "lib.spread")
	assert.Equal(t, []string{"b"}, table.Names())
	b, _ := table.Get("b")
	assert.Equal(t, param.KeywordOnly, b.Kind, "a parameter after the variadic positional can only be named")
}

func TestResolve_Overloads(t *testing.T) {
	r := newLib(t)
	lib := r.Package("lib")
	lib.Func("pair", nil,
		registry.Overload(registry.Arg("p", registry.Default(1)), registry.VarKwargs("kw")),
		registry.Overload(registry.VarKwargs("kw"), registry.Forwards("inner(0, extra=1, **kw)")),
	)
	lib.Func("lonely", nil,
		registry.Overload(registry.Arg("p"), registry.VarKwargs("kw")),
	)
	lib.Func("crowd", nil,
		registry.Overload(registry.Arg("p")),
		registry.Overload(registry.Arg("q")),
		registry.Overload(registry.Arg("r")),
	)

	table := resolve(t, r, "lib.pair")
	assert.Equal(t, []string{"p", "c", "d"}, table.Names())

	for name, count := range map[string]int{"lonely": 1, "crowd": 3} {
		sym, err := r.Lookup("lib." + name)
		require.NoError(t, err)
		_, err = ResolveSymbol(context.Background(), sym, r)
		var ambiguous *AmbiguousOverloadError
		require.ErrorAs(t, err, &ambiguous, name)
		assert.Equal(t, count, ambiguous.Count)
		assert.Equal(t, "lib."+name, ambiguous.Func)
	}
}

func TestResolve_Cycle(t *testing.T) {
	r := registry.New()
	lib := r.Package("lib")
	lib.Func("ping", func(kw registry.Kwargs) int { return 0 },
		registry.VarKwargs("kw"), registry.Forwards("pong(**kw)"))
	lib.Func("pong", func(kw registry.Kwargs) int { return 0 },
		registry.VarKwargs("kw"), registry.Forwards("ping(**kw)"))

	sym, err := r.Lookup("lib.ping")
	require.NoError(t, err)
	_, err = ResolveSymbol(context.Background(), sym, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestResolve_UnknownTarget(t *testing.T) {
	r := registry.New()
	r.Package("lib").Func("lost", func(kw registry.Kwargs) int { return 0 },
		registry.VarKwargs("kw"), registry.Forwards("nowhere(**kw)"))

	sym, err := r.Lookup("lib.lost")
	require.NoError(t, err)
	_, err = ResolveSymbol(context.Background(), sym, r)
	var unknown *registry.UnknownSymbolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "lib.nowhere", unknown.Path)
}

func TestResolve_NoForwardingCallKeepsOwnParams(t *testing.T) {
	r := registry.New()
	r.Package("lib").Func("swallow", func(n int, kw registry.Kwargs) int { return n },
		registry.Arg("n"), registry.VarKwargs("kw"), registry.Forwards("print(kw)\nreturn n"))

	table := resolve(t, r, "lib.swallow")
	assert.Equal(t, []string{"n"}, table.Names())
}

func TestResolve_WarnsOnDisagreeingCallSites(t *testing.T) {
	r := newLib(t)
	r.Package("lib").Func("fork", func(kw registry.Kwargs) int { return 0 },
		registry.VarKwargs("kw"),
		registry.Forwards("inner(1, 2, **kw)\ninner(1, extra=2, c=3, **kw)"),
	)
	var buf bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	sym, err := r.Lookup("lib.fork")
	require.NoError(t, err)
	table, err := ResolveSymbol(ctx, sym, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, table.Names(), "the first call site wins")
	assert.Contains(t, buf.String(), "Forwarding call sites disagree")
}
