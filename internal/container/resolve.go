package container

import (
	"context"
	"fmt"
	"time"

	"github.com/danpasecinic/stitch/internal/errs"
	"github.com/danpasecinic/stitch/internal/scope"
)

// Resolve looks key up with the strict visibility rule and returns its instance.
func (in *Injector) Resolve(ctx context.Context, key string) (any, error) {
	b, ok := in.Lookup(key)
	if !ok {
		err := errs.UnknownProvider(key).WithModule(in.name)
		in.callResolveHooks(key, 0, err)
		return nil, err
	}
	return in.ResolveBinding(ctx, b)
}

// ResolveBinding produces the instance for b according to its scope. The
// binding's own injector performs the work so caches stay per module.
func (in *Injector) ResolveBinding(ctx context.Context, b *Binding) (any, error) {
	owner := b.owner
	start := time.Now()
	instance, err := owner.resolveScoped(ctx, b)
	owner.callResolveHooks(b.Key, time.Since(start), err)
	return instance, err
}

// Create constructs a fresh instance of b bypassing every cache. An alias
// creates a fresh instance of its target.
func (in *Injector) Create(ctx context.Context, b *Binding) (any, error) {
	b, err := b.Target()
	if err != nil {
		return nil, err
	}
	owner := b.owner
	chain := chainFrom(ctx)
	for _, c := range chain {
		if c == b {
			return nil, cycleError(chain, b)
		}
	}
	return owner.construct(withChain(ctx, chain, b), b)
}

func (in *Injector) resolveScoped(ctx context.Context, b *Binding) (any, error) {
	if b.Scope == scope.Singleton {
		if instance, ok := in.Instance(b.Key); ok {
			return instance, nil
		}
	}

	chain := chainFrom(ctx)
	for _, c := range chain {
		if c == b {
			return nil, cycleError(chain, b)
		}
	}
	ctx = withChain(ctx, chain, b)

	switch b.Scope {
	case scope.Singleton:
		return in.resolveSingleton(ctx, b)
	case scope.Request:
		return in.resolveRequest(ctx, b)
	case scope.Transient:
		return in.construct(ctx, b)
	default:
		return nil, errs.InvalidDescriptor(in.name, fmt.Sprintf("unsupported scope %d", b.Scope)).WithToken(b.Key)
	}
}

func (in *Injector) resolveSingleton(ctx context.Context, b *Binding) (any, error) {
	instance, err, _ := in.flights.Do(b.Key, func() (any, error) {
		if instance, ok := in.Instance(b.Key); ok {
			return instance, nil
		}

		in.logger().Debug("constructing singleton", "module", in.name, "token", b.Key)
		instance, err := in.construct(ctx, b)
		if err != nil {
			return nil, err
		}

		in.mu.Lock()
		defer in.mu.Unlock()
		if in.released {
			return nil, errs.ApplicationClosed().WithModule(in.name).WithToken(b.Key)
		}
		in.instances[b.Key] = instance
		return instance, nil
	})
	return instance, err
}

func (in *Injector) resolveRequest(ctx context.Context, b *Binding) (any, error) {
	rs := RequestScopeFrom(ctx)
	if rs == nil {
		return nil, errs.ScopeViolation(
			b.Key,
			"request-scoped provider resolved without a request context",
		).WithModule(in.name)
	}
	return rs.resolve(ctx, b, in.construct)
}

func (in *Injector) construct(ctx context.Context, b *Binding) (any, error) {
	if in.isReleased() {
		return nil, errs.ApplicationClosed().WithModule(in.name).WithToken(b.Key)
	}

	args := make([]any, len(b.Dependencies))
	var lazies []*Lazy
	defer func() {
		for _, l := range lazies {
			l.detach()
		}
	}()

	for i, dep := range b.Dependencies {
		target, ok := in.Lookup(dep.Key)
		if !ok {
			if dep.Optional {
				continue
			}
			return nil, errs.UnknownProvider(dep.Key).WithModule(in.name)
		}

		if b.Scope == scope.Singleton && target.Scope == scope.Request && !dep.Lazy {
			return nil, errs.ScopeViolation(
				dep.Key,
				"singleton "+b.Key+" cannot depend on request-scoped provider",
			).WithModule(in.name)
		}

		if dep.Lazy {
			l := NewLazy(target)
			l.attach(chainFrom(ctx))
			lazies = append(lazies, l)
			args[i] = l
			continue
		}

		instance, err := in.ResolveBinding(ctx, target)
		if err != nil {
			return nil, err
		}
		args[i] = instance
	}

	return in.invoke(ctx, b, args)
}

func (in *Injector) invoke(ctx context.Context, b *Binding, args []any) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = errs.FactoryFailed(in.name, b.Key, fmt.Errorf("panic: %v", r))
		}
	}()

	instance, err = b.Provider(ctx, args)
	if err != nil {
		// Already classified errors, such as an init hook failure or a cycle
		// found through a lazy accessor, keep their code.
		if e, ok := err.(*errs.Error); ok {
			return nil, e
		}
		return nil, errs.FactoryFailed(in.name, b.Key, err)
	}
	return instance, nil
}
