package container

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/danpasecinic/stitch/internal/errs"
)

type ResolveHook func(module, key string, duration time.Duration, err error)

// Tree is the set of injectors built for one application. It owns the flat
// token index used by non-strict lookups and the list of global injectors.
type Tree struct {
	mu        sync.RWMutex
	injectors []*Injector
	globals   []*Injector
	index     map[string][]*Binding
	logger    *slog.Logger
	onResolve []ResolveHook
}

type Config struct {
	Logger    *slog.Logger
	OnResolve []ResolveHook
}

func NewTree(cfg *Config) *Tree {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Tree{
		index:     make(map[string][]*Binding),
		logger:    logger,
		onResolve: cfg.OnResolve,
	}
}

// Injector is the container owned by one module node.
type Injector struct {
	name string
	tree *Tree

	mu        sync.RWMutex
	bindings  map[string]*Binding
	keys      []string
	imports   []*Injector
	exports   map[string]struct{}
	global    bool
	instances map[string]any
	released  bool

	flights singleflight.Group
}

func (t *Tree) NewInjector(name string) *Injector {
	in := &Injector{
		name:      name,
		tree:      t,
		bindings:  make(map[string]*Binding),
		exports:   make(map[string]struct{}),
		instances: make(map[string]any),
	}

	t.mu.Lock()
	t.injectors = append(t.injectors, in)
	t.mu.Unlock()

	return in
}

func (t *Tree) Injectors() []*Injector {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Injector, len(t.injectors))
	copy(out, t.injectors)
	return out
}

// Find returns every binding declared for key across the whole tree, in
// registration order.
func (t *Tree) Find(key string) []*Binding {
	t.mu.RLock()
	defer t.mu.RUnlock()

	found := t.index[key]
	out := make([]*Binding, len(found))
	copy(out, found)
	return out
}

// Release drops every cached instance. Resolutions after Release fail.
func (t *Tree) Release() {
	for _, in := range t.Injectors() {
		in.release()
	}
}

func (t *Tree) globalInjectors() []*Injector {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Injector, len(t.globals))
	copy(out, t.globals)
	return out
}

func (in *Injector) Name() string {
	return in.name
}

func (in *Injector) Tree() *Tree {
	return in.tree
}

func (in *Injector) MarkGlobal() {
	in.mu.Lock()
	if in.global {
		in.mu.Unlock()
		return
	}
	in.global = true
	in.mu.Unlock()

	in.tree.mu.Lock()
	in.tree.globals = append(in.tree.globals, in)
	in.tree.mu.Unlock()
}

func (in *Injector) Global() bool {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.global
}

func (in *Injector) AddImport(other *Injector) {
	in.mu.Lock()
	defer in.mu.Unlock()

	for _, existing := range in.imports {
		if existing == other {
			return
		}
	}
	in.imports = append(in.imports, other)
}

func (in *Injector) Imports() []*Injector {
	in.mu.RLock()
	defer in.mu.RUnlock()

	out := make([]*Injector, len(in.imports))
	copy(out, in.imports)
	return out
}

func (in *Injector) Export(key string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.exports[key] = struct{}{}
}

func (in *Injector) Exports(key string) bool {
	in.mu.RLock()
	defer in.mu.RUnlock()
	_, ok := in.exports[key]
	return ok
}

// Instance returns the cached singleton for key, if it has been constructed.
func (in *Injector) Instance(key string) (any, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()

	instance, ok := in.instances[key]
	return instance, ok
}

func (in *Injector) release() {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.instances = make(map[string]any)
	in.released = true
}

func (in *Injector) isReleased() bool {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.released
}

func (in *Injector) callResolveHooks(key string, duration time.Duration, err error) {
	for _, hook := range in.tree.onResolve {
		hook(in.name, key, duration, err)
	}
}

func (in *Injector) logger() *slog.Logger {
	return in.tree.logger
}

type chainKey struct{}

func chainFrom(ctx context.Context) []*Binding {
	if chain, ok := ctx.Value(chainKey{}).([]*Binding); ok {
		return chain
	}
	return nil
}

func withChain(ctx context.Context, chain []*Binding, b *Binding) context.Context {
	next := make([]*Binding, len(chain), len(chain)+1)
	copy(next, chain)
	return context.WithValue(ctx, chainKey{}, append(next, b))
}

func cycleError(chain []*Binding, b *Binding) *errs.Error {
	start := 0
	for i, c := range chain {
		if c == b {
			start = i
			break
		}
	}

	names := make([]string, 0, len(chain)-start+1)
	for _, c := range chain[start:] {
		names = append(names, c.Key)
	}
	names = append(names, b.Key)

	return errs.CircularDependency(names).WithModule(b.owner.name).WithToken(b.Key)
}
