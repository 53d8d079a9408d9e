package stitch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/danpasecinic/stitch/internal/container"
	"github.com/danpasecinic/stitch/internal/errs"
	"github.com/danpasecinic/stitch/internal/graph"
)

var descriptorValidator = newDescriptorValidator()

func newDescriptorValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("scope", func(fl validator.FieldLevel) bool {
		return Scope(fl.Field().Int()).Valid()
	})
	return v
}

// node is a module in the resolved graph.
type node struct {
	name        string
	parent      *node
	imports     []*node
	deferred    []*node
	exports     []Token
	controllers []Token
	global      bool
	providers   map[string]*Provider
	injector    *container.Injector
	ref         *ModuleRef
}

type pendingDeferred struct {
	from *node
	imp  *deferredImport
}

type builder struct {
	cfg   *config
	tree  *container.Tree
	app   *Application
	nodes []*node

	static   map[*Module]*node
	async    map[string]*node
	visiting map[any]bool
	stack    []string
	names    map[string]int
	pending  []pendingDeferred
}

func newBuilder(cfg *config, app *Application) *builder {
	hooks := make([]container.ResolveHook, len(cfg.onResolve))
	for i, hook := range cfg.onResolve {
		hooks[i] = container.ResolveHook(hook)
	}

	return &builder{
		cfg: cfg,
		app: app,
		tree: container.NewTree(&container.Config{
			Logger:    cfg.logger,
			OnResolve: hooks,
		}),
		static:   make(map[*Module]*node),
		async:    make(map[string]*node),
		visiting: make(map[any]bool),
		names:    make(map[string]int),
	}
}

// build walks the import graph from root. Nodes are appended after their
// imports, so b.nodes ends up in topological order.
func (b *builder) build(ctx context.Context, root *Module) (*node, error) {
	rootNode, err := b.visitModule(ctx, root, nil)
	if err != nil {
		return nil, err
	}

	for len(b.pending) > 0 {
		next := b.pending[0]
		b.pending = b.pending[1:]
		if err := b.linkDeferred(ctx, next); err != nil {
			return nil, err
		}
	}

	if err := b.validate(); err != nil {
		return nil, err
	}

	return rootNode, nil
}

func (b *builder) visitImport(ctx context.Context, imp Import, parent *node) (*node, error) {
	switch v := imp.(type) {
	case *Module:
		return b.visitModule(ctx, v, parent)
	case *AsyncModule:
		return b.visitAsync(ctx, v, parent)
	case *deferredImport:
		if v == nil || v.resolve == nil {
			return nil, errs.InvalidDescriptor(parent.name, "deferred import without accessor")
		}
		b.pending = append(b.pending, pendingDeferred{from: parent, imp: v})
		return nil, nil
	default:
		return nil, errs.InvalidDescriptor(parent.name, fmt.Sprintf("unsupported import %T", imp))
	}
}

func (b *builder) visitModule(ctx context.Context, m *Module, parent *node) (*node, error) {
	if m == nil {
		return nil, errs.InvalidDescriptor(parentName(parent), "nil module import")
	}
	if n, ok := b.static[m]; ok {
		return n, nil
	}
	if b.visiting[m] {
		return nil, b.cycleError(m.Name)
	}
	if err := descriptorValidator.Struct(m); err != nil {
		return nil, invalidDescriptor(m.Name, err)
	}

	b.enter(m, m.Name)
	defer b.leave(m)

	n := b.newNode(m.Name, parent)
	if err := b.importAll(ctx, n, m.Imports); err != nil {
		return nil, err
	}
	if err := b.declare(n, m); err != nil {
		return nil, err
	}

	b.static[m] = n
	b.nodes = append(b.nodes, n)
	return n, nil
}

// visitAsync builds the factory's own imports first, resolves Inject against
// them and only then runs Factory. The produced module shares the node.
func (b *builder) visitAsync(ctx context.Context, am *AsyncModule, parent *node) (*node, error) {
	if am == nil {
		return nil, errs.InvalidDescriptor(parentName(parent), "nil async module import")
	}
	id := am.identity()
	if n, ok := b.async[id]; ok {
		return n, nil
	}
	if b.visiting[id] {
		return nil, b.cycleError(id)
	}
	if err := descriptorValidator.Struct(am); err != nil {
		return nil, invalidDescriptor(id, err)
	}

	b.enter(id, id)
	defer b.leave(id)

	n := b.newNode(id, parent)
	if err := b.importAll(ctx, n, am.Imports); err != nil {
		return nil, err
	}

	args := make([]any, len(am.Inject))
	for i, dep := range am.Inject {
		instance, err := b.resolveForFactory(ctx, n, dep)
		if err != nil {
			return nil, err
		}
		args[i] = instance
	}

	b.cfg.logger.Debug("running async module factory", "module", id)
	produced, err := b.runFactory(ctx, am, args)
	if err != nil {
		return nil, err
	}
	if produced == nil {
		return nil, errs.InvalidDescriptor(id, "async module factory returned nil module")
	}
	if err := descriptorValidator.Struct(produced); err != nil {
		return nil, invalidDescriptor(id, err)
	}

	if err := b.importAll(ctx, n, produced.Imports); err != nil {
		return nil, err
	}
	if err := b.declare(n, produced); err != nil {
		return nil, err
	}

	b.async[id] = n
	b.nodes = append(b.nodes, n)
	return n, nil
}

func (b *builder) runFactory(ctx context.Context, am *AsyncModule, args []any) (m *Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.FactoryFailed(am.identity(), "", fmt.Errorf("panic: %v", r))
		}
	}()

	m, err = am.Factory(ctx, args)
	if err != nil {
		return nil, errs.FactoryFailed(am.identity(), "", err)
	}
	return m, nil
}

func (b *builder) resolveForFactory(ctx context.Context, n *node, dep Dependency) (any, error) {
	target, ok := n.injector.Lookup(string(dep.Token))
	if !ok {
		if dep.Optional {
			return nil, nil
		}
		return nil, errs.UnknownProvider(string(dep.Token)).WithModule(n.name)
	}
	if dep.Lazy {
		return container.NewLazy(target), nil
	}
	return n.injector.ResolveBinding(ctx, target)
}

func (b *builder) importAll(ctx context.Context, n *node, imports []Import) error {
	for _, imp := range imports {
		child, err := b.visitImport(ctx, imp, n)
		if err != nil {
			return err
		}
		if child == nil {
			continue
		}
		n.imports = append(n.imports, child)
		n.injector.AddImport(child.injector)
	}
	return nil
}

func (b *builder) linkDeferred(ctx context.Context, p pendingDeferred) error {
	imp := p.imp.resolve()
	if imp == nil {
		return errs.InvalidDescriptor(p.from.name, "deferred import resolved to nil")
	}

	target, err := b.visitImport(ctx, imp, p.from)
	if err != nil {
		return err
	}
	if target == nil {
		return nil
	}

	p.from.deferred = append(p.from.deferred, target)
	p.from.injector.AddImport(target.injector)
	return nil
}

func (b *builder) newNode(name string, parent *node) *node {
	b.names[name]++
	unique := name
	if count := b.names[name]; count > 1 {
		unique = fmt.Sprintf("%s#%d", name, count)
	}

	n := &node{
		name:      unique,
		parent:    parent,
		providers: make(map[string]*Provider),
		injector:  b.tree.NewInjector(unique),
	}
	n.ref = &ModuleRef{node: n, tree: b.tree, app: b.app}
	return n
}

// declare registers the module's providers, exports and global flag on n.
func (b *builder) declare(n *node, m *Module) error {
	refBinding := &container.Binding{
		Key: string(ModuleRefToken),
		Provider: func(context.Context, []any) (any, error) {
			return n.ref, nil
		},
	}
	if _, exists := n.injector.Binding(refBinding.Key); !exists {
		if err := n.injector.Register(refBinding); err != nil {
			return err
		}
	}

	for i := range m.Providers {
		p := m.Providers[i]
		if override, ok := b.cfg.overrides[p.Token]; ok {
			p = override
		}
		if err := b.register(n, &p); err != nil {
			return err
		}
	}

	for _, token := range m.Exports {
		n.injector.Export(string(token))
		n.exports = append(n.exports, token)
	}
	n.controllers = append(n.controllers, m.Controllers...)

	if m.Global {
		n.global = true
		n.injector.MarkGlobal()
	}
	return nil
}

func (b *builder) register(n *node, p *Provider) error {
	if p.err != nil {
		return errs.New(errs.CodeInvalidDescriptor, "invalid constructor", p.err).
			WithModule(n.name).WithToken(string(p.Token))
	}
	if err := descriptorValidator.Struct(p); err != nil {
		return invalidDescriptor(n.name, err).WithToken(string(p.Token))
	}

	deps := make([]container.Dependency, len(p.Dependencies))
	for i, dep := range p.Dependencies {
		if dep.Token == "" {
			return errs.InvalidDescriptor(n.name, "dependency without token").WithToken(string(p.Token))
		}
		deps[i] = container.Dependency{Key: string(dep.Token), Lazy: dep.Lazy, Optional: dep.Optional}
	}

	binding := &container.Binding{
		Key:          string(p.Token),
		Scope:        p.Scope,
		Dependencies: deps,
		Provider:     container.ProviderFunc(p.Build),
		Alias:        p.alias,
	}

	// Singletons are initialized by the lifecycle plan. Other scopes run their
	// init hooks on construction; request instances are destroyed with their
	// RequestContext.
	if p.Scope != Singleton && !p.alias {
		build := p.Build
		binding.Provider = func(ctx context.Context, args []any) (any, error) {
			instance, err := build(ctx, args)
			if err != nil {
				return nil, err
			}
			if err := runInit(ctx, p, instance); err != nil {
				return nil, errs.LifecycleFailed(errs.PhaseInit, n.name+"/"+string(p.Token), err)
			}
			return instance, nil
		}
		if p.Scope == Request {
			binding.Destroy = func(ctx context.Context, instance any) error {
				return runDestroy(ctx, p, instance)
			}
		}
	}

	if err := n.injector.Register(binding); err != nil {
		return err
	}
	n.providers[binding.Key] = p

	for _, hook := range b.cfg.onRegister {
		hook(n.name, binding.Key)
	}
	return nil
}

func (b *builder) validate() error {
	for _, n := range b.nodes {
		if err := b.validateExports(n); err != nil {
			return err
		}
	}

	providers := graph.New()
	for _, n := range b.nodes {
		for _, binding := range n.injector.Bindings() {
			var edges []string
			for _, dep := range binding.Dependencies {
				target, ok := n.injector.Lookup(dep.Key)
				if !ok {
					if dep.Optional {
						continue
					}
					return errs.UnknownProvider(dep.Key).WithModule(n.name).
						WithChain([]string{binding.Key, dep.Key})
				}
				if dep.Lazy {
					continue
				}
				if binding.Scope == Singleton && target.Scope == Request {
					return errs.ScopeViolation(
						dep.Key,
						"singleton "+binding.Key+" cannot depend on request-scoped provider",
					).WithModule(n.name)
				}
				edges = append(edges, target.ID())
			}
			providers.AddNode(binding.ID(), edges)
		}
	}

	if cycles := providers.Cycles(); len(cycles) > 0 {
		return errs.CircularDependency(cycles[0])
	}
	return nil
}

func (b *builder) validateExports(n *node) error {
	for _, token := range n.exports {
		key := string(token)
		if _, ok := n.injector.Binding(key); ok {
			continue
		}

		reexported := false
		for _, imported := range n.injector.Imports() {
			if _, ok := imported.LookupExported(key); ok {
				reexported = true
				break
			}
		}
		if !reexported {
			return errs.InvalidDescriptor(
				n.name,
				"exports "+key+" which it neither provides nor re-exports from an import",
			).WithToken(key)
		}
	}
	return nil
}

func (b *builder) enter(key any, name string) {
	b.visiting[key] = true
	b.stack = append(b.stack, name)
}

func (b *builder) leave(key any) {
	delete(b.visiting, key)
	b.stack = b.stack[:len(b.stack)-1]
}

func (b *builder) cycleError(name string) *errs.Error {
	start := 0
	for i, s := range b.stack {
		if s == name {
			start = i
			break
		}
	}
	chain := append(append([]string(nil), b.stack[start:]...), name)
	return errs.CircularModuleReference(chain)
}

func invalidDescriptor(module string, err error) *errs.Error {
	msg := err.Error()
	if verrs, ok := err.(validator.ValidationErrors); ok {
		fields := make([]string, len(verrs))
		for i, fe := range verrs {
			fields[i] = fe.Namespace() + " failed " + fe.Tag()
		}
		msg = strings.Join(fields, "; ")
	}
	return errs.New(errs.CodeInvalidDescriptor, "invalid descriptor: "+msg, err).WithModule(module)
}

func parentName(parent *node) string {
	if parent == nil {
		return ""
	}
	return parent.name
}

func logBuild(cfg *config, nodes []*node, took time.Duration) {
	providers := 0
	for _, n := range nodes {
		providers += len(n.providers)
	}
	cfg.logger.Debug("module graph built", "modules", len(nodes), "providers", providers, "took", took)
}
