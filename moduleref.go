package stitch

import (
	"context"

	"github.com/danpasecinic/stitch/internal/container"
	"github.com/danpasecinic/stitch/internal/errs"
	"github.com/danpasecinic/stitch/internal/reflect"
)

// ModuleRef gives runtime access to the graph from the point of view of one
// module. Inject it with Dep(ModuleRefToken).
type ModuleRef struct {
	node *node
	tree *container.Tree
	app  *Application
}

type LookupOption func(*lookupConfig)

type lookupConfig struct {
	strict bool
}

// Strict limits a lookup to what constructor injection in this module would
// see: own providers and exports of imported modules.
func Strict() LookupOption {
	return func(cfg *lookupConfig) {
		cfg.strict = true
	}
}

func (r *ModuleRef) Name() string {
	return r.node.name
}

// Resolve returns an instance, constructing it if needed.
func (r *ModuleRef) Resolve(ctx context.Context, token Token, opts ...LookupOption) (any, error) {
	b, err := r.lookup(token, opts)
	if err != nil {
		return nil, err
	}
	return r.node.injector.ResolveBinding(ctx, b)
}

// Get returns an already constructed singleton and never builds one. An alias
// reads the instance of its target.
func (r *ModuleRef) Get(token Token, opts ...LookupOption) (any, error) {
	b, err := r.lookup(token, opts)
	if err != nil {
		return nil, err
	}
	if b, err = b.Target(); err != nil {
		return nil, err
	}

	if b.Scope != Singleton {
		return nil, errs.New(
			errs.CodeNotInstantiated,
			b.Scope.String()+" providers are never cached; use Resolve",
			nil,
		).WithModule(b.Owner().Name()).WithToken(b.Key)
	}

	instance, ok := b.Owner().Instance(b.Key)
	if !ok {
		return nil, errs.NotInstantiated(b.Owner().Name(), b.Key)
	}
	return instance, nil
}

// Create builds a fresh instance of token without touching any cache. Its
// dependencies are resolved with their own scopes; an alias creates a fresh
// instance of its target.
func (r *ModuleRef) Create(ctx context.Context, token Token, opts ...LookupOption) (any, error) {
	b, err := r.lookup(token, opts)
	if err != nil {
		return nil, err
	}
	return r.node.injector.Create(ctx, b)
}

// Has reports whether token can be found with the given options.
func (r *ModuleRef) Has(token Token, opts ...LookupOption) bool {
	_, err := r.lookup(token, opts)
	return err == nil
}

func (r *ModuleRef) lookup(token Token, opts []LookupOption) (*container.Binding, error) {
	if r.app != nil && r.app.closed() {
		return nil, errs.ApplicationClosed().WithToken(string(token))
	}

	cfg := &lookupConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	key := string(token)
	if b, ok := r.node.injector.Lookup(key); ok {
		return b, nil
	}

	declared := r.tree.Find(key)
	if len(declared) == 0 {
		return nil, errs.UnknownProvider(key).WithModule(r.node.name)
	}
	if cfg.strict {
		return nil, errs.StrictResolution(r.node.name, key)
	}
	return declared[0], nil
}

type getter interface {
	Get(token Token, opts ...LookupOption) (any, error)
}

func Resolve[T any](ctx context.Context, r *ModuleRef, token Token, opts ...LookupOption) (T, error) {
	instance, err := r.Resolve(ctx, token, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](token, instance)
}

// Get reads a constructed singleton from an *Application or a *ModuleRef.
func Get[T any](g getter, token Token, opts ...LookupOption) (T, error) {
	instance, err := g.Get(token, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](token, instance)
}

func MustGet[T any](g getter, token Token, opts ...LookupOption) T {
	v, err := Get[T](g, token, opts...)
	if err != nil {
		panic(err)
	}
	return v
}

func Create[T any](ctx context.Context, r *ModuleRef, token Token, opts ...LookupOption) (T, error) {
	instance, err := r.Create(ctx, token, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](token, instance)
}

func cast[T any](token Token, instance any) (T, error) {
	var zero T
	if instance == nil {
		return zero, nil
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, errs.TypeMismatch(string(token), reflect.TypeName[T](), instance)
	}
	return typed, nil
}
