package stitch

import (
	"context"

	"go.uber.org/multierr"
)

// Initializer is called once after the instance and everything it depends on
// have been constructed and initialized.
type Initializer interface {
	OnInit(ctx context.Context) error
}

// Destroyer is called once during Close, before any of its dependencies is
// destroyed.
type Destroyer interface {
	OnDestroy(ctx context.Context) error
}

type LifecycleHook func(ctx context.Context) error

type Lifecycle struct {
	onInit    []LifecycleHook
	onDestroy []LifecycleHook
}

func (l *Lifecycle) Append(other *Lifecycle) {
	if other == nil {
		return
	}
	l.onInit = append(l.onInit, other.onInit...)
	l.onDestroy = append(l.onDestroy, other.onDestroy...)
}

func (l *Lifecycle) OnInit(hook LifecycleHook) {
	l.onInit = append(l.onInit, hook)
}

func (l *Lifecycle) OnDestroy(hook LifecycleHook) {
	l.onDestroy = append(l.onDestroy, hook)
}

type LifecycleAware interface {
	Lifecycle() *Lifecycle
}

func runInit(ctx context.Context, p *Provider, instance any) error {
	if i, ok := instance.(Initializer); ok {
		if err := i.OnInit(ctx); err != nil {
			return err
		}
	}

	for _, hook := range p.OnInit {
		if err := hook(ctx, instance); err != nil {
			return err
		}
	}

	if la, ok := instance.(LifecycleAware); ok {
		if l := la.Lifecycle(); l != nil {
			for _, hook := range l.onInit {
				if err := hook(ctx); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// runDestroy mirrors runInit and attempts every hook.
func runDestroy(ctx context.Context, p *Provider, instance any) error {
	var err error

	if la, ok := instance.(LifecycleAware); ok {
		if l := la.Lifecycle(); l != nil {
			for i := len(l.onDestroy) - 1; i >= 0; i-- {
				err = multierr.Append(err, l.onDestroy[i](ctx))
			}
		}
	}

	for i := len(p.OnDestroy) - 1; i >= 0; i-- {
		err = multierr.Append(err, p.OnDestroy[i](ctx, instance))
	}

	if d, ok := instance.(Destroyer); ok {
		err = multierr.Append(err, d.OnDestroy(ctx))
	}

	return err
}

func hasDestroy(p *Provider, instance any) bool {
	if len(p.OnDestroy) > 0 {
		return true
	}
	if _, ok := instance.(Destroyer); ok {
		return true
	}
	_, ok := instance.(LifecycleAware)
	return ok
}
