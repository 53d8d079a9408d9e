package container

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/danpasecinic/stitch/internal/scope"
)

// Lazy defers resolution of a dependency until Get is first called. It is
// what a lazy edge injects instead of the instance.
type Lazy struct {
	target *Binding

	// chain is the resolution chain of the construction that received the
	// accessor. It is set only while that construction runs.
	chain atomic.Pointer[[]*Binding]

	mu    sync.Mutex
	done  bool
	value any
}

func NewLazy(target *Binding) *Lazy {
	return &Lazy{target: target}
}

func (l *Lazy) attach(chain []*Binding) {
	l.chain.Store(&chain)
}

func (l *Lazy) detach() {
	l.chain.Store(nil)
}

func (l *Lazy) Key() string {
	return l.target.Key
}

// Get resolves the target. Singletons are remembered after the first success;
// other scopes resolve on every call so request and transient rules still hold.
func (l *Lazy) Get(ctx context.Context) (any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return l.value, nil
	}

	// Called from inside the constructing factory with a context that lost the
	// chain: restore it so a cycle back to the caller fails instead of waiting
	// on its own in-flight construction.
	if len(chainFrom(ctx)) == 0 {
		if chain := l.chain.Load(); chain != nil {
			ctx = context.WithValue(ctx, chainKey{}, *chain)
		}
	}

	value, err := l.target.owner.ResolveBinding(ctx, l.target)
	if err != nil {
		return nil, err
	}

	if l.target.Scope == scope.Singleton {
		l.value = value
		l.done = true
	}
	return value, nil
}
