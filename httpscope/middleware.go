// Package httpscope opens a stitch request scope for every HTTP request.
package httpscope

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danpasecinic/stitch"
)

const DefaultHeader = "X-Request-ID"

type Option func(*options)

type options struct {
	header string
	logger *slog.Logger
}

// WithHeader sets the response header that carries the request context ID.
// An empty name disables the header.
func WithHeader(name string) Option {
	return func(o *options) {
		o.header = name
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Middleware attaches a fresh stitch.RequestContext to each request's context
// and closes it once the handler returns, running destroy hooks of the
// request-scoped instances built while serving it.
func Middleware(opts ...Option) func(http.Handler) http.Handler {
	o := &options{header: DefaultHeader, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := stitch.NewRequestContext()
			if o.header != "" {
				w.Header().Set(o.header, rc.ID())
			}

			defer func() {
				// The request context may already be cancelled.
				if err := rc.Close(context.WithoutCancel(r.Context())); err != nil {
					o.logger.Error("closing request scope failed",
						"request_id", rc.ID(),
						"path", r.URL.Path,
						"error", err,
					)
				}
			}()

			next.ServeHTTP(w, r.WithContext(stitch.ContextWithRequest(r.Context(), rc)))
		})
	}
}

// Resolve resolves token from ref using the request scope attached to r.
func Resolve[T any](r *http.Request, ref *stitch.ModuleRef, token stitch.Token) (T, error) {
	return stitch.Resolve[T](r.Context(), ref, token)
}
