package container

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/danpasecinic/stitch/internal/errs"
)

type requestScopeKey struct{}

type requestEntry struct {
	binding  *Binding
	instance any
}

// RequestScope caches request-scoped instances for one unit of work.
type RequestScope struct {
	id string

	mu        sync.Mutex
	instances map[string]any
	created   []requestEntry
	closed    bool

	flights singleflight.Group
}

func NewRequestScope(id string) *RequestScope {
	return &RequestScope{
		id:        id,
		instances: make(map[string]any),
	}
}

func (rs *RequestScope) ID() string {
	return rs.id
}

func WithRequestScope(ctx context.Context, rs *RequestScope) context.Context {
	return context.WithValue(ctx, requestScopeKey{}, rs)
}

func RequestScopeFrom(ctx context.Context) *RequestScope {
	if rs, ok := ctx.Value(requestScopeKey{}).(*RequestScope); ok {
		return rs
	}
	return nil
}

func (rs *RequestScope) Get(b *Binding) (any, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	instance, ok := rs.instances[b.ID()]
	return instance, ok
}

// Len reports how many instances the scope currently holds.
func (rs *RequestScope) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.created)
}

func (rs *RequestScope) Closed() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.closed
}

func (rs *RequestScope) resolve(
	ctx context.Context,
	b *Binding,
	construct func(context.Context, *Binding) (any, error),
) (any, error) {
	id := b.ID()

	rs.mu.Lock()
	if rs.closed {
		rs.mu.Unlock()
		return nil, errs.ScopeViolation(b.Key, "request context "+rs.id+" is closed")
	}
	if instance, ok := rs.instances[id]; ok {
		rs.mu.Unlock()
		return instance, nil
	}
	rs.mu.Unlock()

	instance, err, _ := rs.flights.Do(id, func() (any, error) {
		rs.mu.Lock()
		if instance, ok := rs.instances[id]; ok {
			rs.mu.Unlock()
			return instance, nil
		}
		rs.mu.Unlock()

		instance, err := construct(ctx, b)
		if err != nil {
			return nil, err
		}

		rs.mu.Lock()
		if rs.closed {
			rs.mu.Unlock()
			var closedErr error = errs.ScopeViolation(b.Key, "request context "+rs.id+" is closed")
			if b.Destroy != nil {
				if destroyErr := b.Destroy(ctx, instance); destroyErr != nil {
					closedErr = multierr.Append(closedErr, errs.LifecycleFailed(errs.PhaseDestroy, id, destroyErr))
				}
			}
			return nil, closedErr
		}
		rs.instances[id] = instance
		rs.created = append(rs.created, requestEntry{binding: b, instance: instance})
		rs.mu.Unlock()
		return instance, nil
	})
	return instance, err
}

// Close runs destroy hooks of every instance in reverse creation order. The
// scope rejects resolutions afterwards. Closing twice is a no-op.
func (rs *RequestScope) Close(ctx context.Context) error {
	rs.mu.Lock()
	if rs.closed {
		rs.mu.Unlock()
		return nil
	}
	rs.closed = true
	created := rs.created
	rs.created = nil
	rs.instances = make(map[string]any)
	rs.mu.Unlock()

	var err error
	for i := len(created) - 1; i >= 0; i-- {
		entry := created[i]
		if entry.binding.Destroy == nil {
			continue
		}
		if destroyErr := entry.binding.Destroy(ctx, entry.instance); destroyErr != nil {
			err = multierr.Append(err, errs.LifecycleFailed(errs.PhaseDestroy, entry.binding.ID(), destroyErr))
		}
	}
	return err
}
