package stitch

import (
	"context"

	"github.com/google/uuid"

	"github.com/danpasecinic/stitch/internal/container"
	"github.com/danpasecinic/stitch/internal/scope"
)

type Scope = scope.Scope

const (
	Singleton = scope.Singleton
	Request   = scope.Request
	Transient = scope.Transient
)

// RequestContext holds request-scoped instances for one unit of work. It must
// not be shared between concurrent units of work.
type RequestContext struct {
	scope *container.RequestScope
}

func NewRequestContext() *RequestContext {
	return &RequestContext{scope: container.NewRequestScope(uuid.NewString())}
}

func (rc *RequestContext) ID() string {
	return rc.scope.ID()
}

// Close runs destroy hooks of the instances built in this context, newest
// first, and makes the context unusable.
func (rc *RequestContext) Close(ctx context.Context) error {
	return rc.scope.Close(ctx)
}

func ContextWithRequest(ctx context.Context, rc *RequestContext) context.Context {
	return container.WithRequestScope(ctx, rc.scope)
}

func RequestFromContext(ctx context.Context) (*RequestContext, bool) {
	rs := container.RequestScopeFrom(ctx)
	if rs == nil {
		return nil, false
	}
	return &RequestContext{scope: rs}, true
}
