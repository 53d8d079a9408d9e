package stitch

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danpasecinic/stitch/internal/container"
	"github.com/danpasecinic/stitch/internal/lifecycle"
)

type State int32

const (
	StateDeclared State = iota
	StateGraphBuilt
	StateInstantiating
	StateInitialized
	StateDestroying
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateDeclared:
		return "declared"
	case StateGraphBuilt:
		return "graph-built"
	case StateInstantiating:
		return "instantiating"
	case StateInitialized:
		return "initialized"
	case StateDestroying:
		return "destroying"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Application is the running object graph returned by Bootstrap.
type Application struct {
	logger       *slog.Logger
	tree         *container.Tree
	root         *node
	nodes        []*node
	byInjector   map[*container.Injector]*node
	orchestrator *lifecycle.Orchestrator
	state        atomic.Int32
}

// Bootstrap builds the module graph rooted at root, constructs every
// singleton and runs init hooks in dependency order. Build errors abort
// before anything is constructed; an init failure rolls back the providers
// that were already initialized and returns the original error.
func Bootstrap(ctx context.Context, root *Module, opts ...Option) (*Application, error) {
	cfg := newConfig(opts)

	app := &Application{logger: cfg.logger}
	app.state.Store(int32(StateDeclared))

	start := time.Now()
	b := newBuilder(cfg, app)
	rootNode, err := b.build(ctx, root)
	if err != nil {
		b.tree.Release()
		app.state.Store(int32(StateDestroyed))
		return nil, err
	}
	logBuild(cfg, b.nodes, time.Since(start))

	app.tree = b.tree
	app.root = rootNode
	app.nodes = b.nodes
	app.byInjector = make(map[*container.Injector]*node, len(b.nodes))
	for _, n := range b.nodes {
		app.byInjector[n.injector] = n
	}
	app.orchestrator = lifecycle.New(&lifecycle.Config{
		Logger:      cfg.logger,
		Parallelism: cfg.parallelism,
		HookTimeout: cfg.hookTimeout,
		OnInit:      observers(cfg.onInit),
		OnDestroy:   destroyObservers(cfg.onDestroy),
	})
	app.state.Store(int32(StateGraphBuilt))

	app.state.Store(int32(StateInstantiating))
	if err := app.instantiate(ctx); err != nil {
		app.tree.Release()
		app.state.Store(int32(StateDestroyed))
		return nil, err
	}

	if err := app.orchestrator.Start(ctx, app.plan()); err != nil {
		app.tree.Release()
		app.state.Store(int32(StateDestroyed))
		return nil, err
	}

	app.state.Store(int32(StateInitialized))
	cfg.logger.Info("application bootstrapped", "root", rootNode.name, "modules", len(app.nodes))
	return app, nil
}

func observers(hooks []InitHook) []lifecycle.Observer {
	out := make([]lifecycle.Observer, len(hooks))
	for i, hook := range hooks {
		out[i] = lifecycle.Observer(hook)
	}
	return out
}

func destroyObservers(hooks []DestroyHook) []lifecycle.Observer {
	out := make([]lifecycle.Observer, len(hooks))
	for i, hook := range hooks {
		out[i] = lifecycle.Observer(hook)
	}
	return out
}

// instantiate constructs every singleton, modules in topological order.
func (a *Application) instantiate(ctx context.Context) error {
	for _, n := range a.nodes {
		for _, b := range n.injector.Bindings() {
			if b.Scope != Singleton {
				continue
			}
			if _, err := n.injector.ResolveBinding(ctx, b); err != nil {
				return err
			}
		}
	}
	return nil
}

// plan turns the singletons into lifecycle units. Dependency edges are hard
// constraints; every provider also waits for the providers of the modules its
// module imports directly.
func (a *Application) plan() *lifecycle.Plan {
	plan := lifecycle.NewPlan()
	importIDs := make(map[*node][]string, len(a.nodes))

	singletons := func(n *node) []*container.Binding {
		var out []*container.Binding
		for _, b := range n.injector.Bindings() {
			if b.Scope != Singleton {
				continue
			}
			if _, declared := n.providers[b.Key]; !declared {
				continue
			}
			out = append(out, b)
		}
		return out
	}

	for _, n := range a.nodes {
		var after []string
		for _, imported := range n.imports {
			after = append(after, importIDs[imported]...)
		}

		var own []string
		for _, b := range singletons(n) {
			own = append(own, b.ID())
			plan.Add(a.unit(n, b), a.dependencyIDs(n, b), after)
		}
		importIDs[n] = own
	}
	return plan
}

func (a *Application) dependencyIDs(n *node, b *container.Binding) []string {
	var ids []string
	for _, dep := range b.Dependencies {
		if dep.Lazy {
			continue
		}
		target, ok := n.injector.Lookup(dep.Key)
		if !ok {
			continue
		}
		ids = append(ids, target.ID())
		// An alias or transient hop carries the ordering of what it resolves.
		if owner, ok := a.byInjector[target.Owner()]; ok && target.Scope == Transient {
			ids = append(ids, a.dependencyIDs(owner, target)...)
		}
	}
	return ids
}

func (a *Application) unit(n *node, b *container.Binding) *lifecycle.Unit {
	p := n.providers[b.Key]
	key := b.Key
	injector := n.injector

	u := &lifecycle.Unit{
		ID:     b.ID(),
		Module: n.name,
		Token:  key,
		Init: func(ctx context.Context) error {
			instance, _ := injector.Instance(key)
			return runInit(ctx, p, instance)
		},
	}

	if instance, ok := injector.Instance(key); ok && hasDestroy(p, instance) {
		u.Destroy = func(ctx context.Context) error {
			return runDestroy(ctx, p, instance)
		}
	}
	return u
}

// Get returns a constructed singleton from anywhere in the graph, preferring
// what the root module sees.
func (a *Application) Get(token Token, opts ...LookupOption) (any, error) {
	return a.root.ref.Get(token, opts...)
}

// Resolve resolves from the root module. Request-scoped tokens need a
// RequestContext in ctx.
func (a *Application) Resolve(ctx context.Context, token Token, opts ...LookupOption) (any, error) {
	return a.root.ref.Resolve(ctx, token, opts...)
}

func (a *Application) ModuleRef() *ModuleRef {
	return a.root.ref
}

// Module returns the ModuleRef of the named module.
func (a *Application) Module(name string) (*ModuleRef, bool) {
	for _, n := range a.nodes {
		if n.name == name {
			return n.ref, true
		}
	}
	return nil, false
}

// Modules lists module names with imports before importers.
func (a *Application) Modules() []string {
	names := make([]string, len(a.nodes))
	for i, n := range a.nodes {
		names[i] = n.name
	}
	return names
}

func (a *Application) State() State {
	return State(a.state.Load())
}

func (a *Application) closed() bool {
	s := a.State()
	return s == StateDestroying || s == StateDestroyed
}

// Close runs destroy hooks in reverse dependency order, then releases every
// module. Hook failures are aggregated into one error. Calling Close again
// returns nil.
func (a *Application) Close(ctx context.Context) error {
	if !a.state.CompareAndSwap(int32(StateInitialized), int32(StateDestroying)) {
		return nil
	}

	a.logger.Info("closing application", "modules", len(a.nodes))
	err := a.orchestrator.Stop(ctx)
	a.tree.Release()
	a.state.Store(int32(StateDestroyed))

	if err != nil {
		a.logger.Error("application closed with errors", "error", err)
	}
	return err
}

// Run blocks until ctx is done or the process receives SIGINT or SIGTERM,
// then closes the application.
func (a *Application) Run(ctx context.Context) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-quit:
	}

	signal.Stop(quit)
	close(quit)

	return a.Close(context.WithoutCancel(ctx))
}
