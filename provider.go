package stitch

import (
	"context"

	"github.com/danpasecinic/stitch/internal/container"
	"github.com/danpasecinic/stitch/internal/reflect"
)

// BuildFunc constructs an instance from the resolved dependencies, in the order
// they were declared. Lazy dependencies arrive as *Lazy; missing optional ones
// as nil.
type BuildFunc func(ctx context.Context, args []any) (any, error)

type Hook func(ctx context.Context, instance any) error

// Provider is a construction recipe registered under Token inside one module.
type Provider struct {
	Token        Token `validate:"required"`
	Scope        Scope `validate:"scope"`
	Dependencies []Dependency
	Build        BuildFunc `validate:"required"`
	OnInit       []Hook
	OnDestroy    []Hook

	alias bool
	err   error
}

type Dependency struct {
	Token    Token
	Lazy     bool
	Optional bool
}

func Dep(token Token) Dependency {
	return Dependency{Token: token}
}

// LazyDep injects a *Lazy accessor instead of the instance. A cycle through a
// lazy edge is allowed.
func LazyDep(token Token) Dependency {
	return Dependency{Token: token, Lazy: true}
}

func OptionalDep(token Token) Dependency {
	return Dependency{Token: token, Optional: true}
}

func Deps(tokens ...Token) []Dependency {
	deps := make([]Dependency, len(tokens))
	for i, token := range tokens {
		deps[i] = Dep(token)
	}
	return deps
}

// Lazy resolves its target on the first call to Get.
type Lazy = container.Lazy

func LazyGet[T any](ctx context.Context, l *Lazy) (T, error) {
	var zero T
	if l == nil {
		return zero, nil
	}
	instance, err := l.Get(ctx)
	if err != nil {
		return zero, err
	}
	return cast[T](Token(l.Key()), instance)
}

type ProviderOption func(*Provider)

func WithScope(s Scope) ProviderOption {
	return func(p *Provider) {
		p.Scope = s
	}
}

func WithDependencies(deps ...Dependency) ProviderOption {
	return func(p *Provider) {
		p.Dependencies = append(p.Dependencies, deps...)
	}
}

func DependsOn(tokens ...Token) ProviderOption {
	return WithDependencies(Deps(tokens...)...)
}

func WithOnInit(hook Hook) ProviderOption {
	return func(p *Provider) {
		p.OnInit = append(p.OnInit, hook)
	}
}

func WithOnDestroy(hook Hook) ProviderOption {
	return func(p *Provider) {
		p.OnDestroy = append(p.OnDestroy, hook)
	}
}

func newProvider(token Token, build BuildFunc, opts []ProviderOption) Provider {
	p := Provider{Token: token, Build: build}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Value registers an already built instance.
func Value(token Token, value any, opts ...ProviderOption) Provider {
	return newProvider(token, func(context.Context, []any) (any, error) {
		return value, nil
	}, opts)
}

// Factory registers a typed build function.
func Factory[T any](token Token, build func(ctx context.Context, args []any) (T, error), opts ...ProviderOption) Provider {
	return newProvider(token, func(ctx context.Context, args []any) (any, error) {
		return build(ctx, args)
	}, opts)
}

// Constructor registers a plain Go function such as NewService(db *DB) *Service.
// Its parameters are matched positionally against the declared dependencies;
// a leading context.Context parameter is allowed.
func Constructor(token Token, fn any, opts ...ProviderOption) Provider {
	p := newProvider(token, nil, opts)

	ctor, err := reflect.NewConstructor(fn, len(p.Dependencies))
	if err != nil {
		p.err = err
		return p
	}
	p.Build = ctor.Call
	return p
}

// Provide is Constructor keyed by the type token of T.
func Provide[T any](fn any, opts ...ProviderOption) Provider {
	return Constructor(TypeToken[T](), fn, opts...)
}

// Existing makes token an alias of target. The alias never caches and never
// runs hooks; the target's own scope applies.
func Existing(token, target Token) Provider {
	p := newProvider(token, func(_ context.Context, args []any) (any, error) {
		return args[0], nil
	}, []ProviderOption{WithScope(Transient), DependsOn(target)})
	p.alias = true
	return p
}
