package container

import (
	"context"

	"github.com/danpasecinic/stitch/internal/errs"
	"github.com/danpasecinic/stitch/internal/scope"
)

type ProviderFunc func(ctx context.Context, args []any) (any, error)

type HookFunc func(ctx context.Context, instance any) error

type Dependency struct {
	Key      string
	Lazy     bool
	Optional bool
}

// Binding is a provider registered in one injector.
type Binding struct {
	Key          string
	Scope        scope.Scope
	Dependencies []Dependency
	Provider     ProviderFunc

	// Destroy releases request-scoped instances when their RequestScope closes.
	Destroy HookFunc

	// Alias bindings forward to the binding of their single dependency and
	// never hold an instance of their own.
	Alias bool

	owner *Injector
}

func (b *Binding) Owner() *Injector {
	return b.owner
}

// Target follows alias bindings, as seen from each alias's own module, to the
// binding that actually constructs the instance.
func (b *Binding) Target() (*Binding, error) {
	var chain []*Binding
	for b.Alias {
		for _, c := range chain {
			if c == b {
				return nil, cycleError(chain, b)
			}
		}
		chain = append(chain, b)

		if len(b.Dependencies) != 1 {
			return nil, errs.InvalidDescriptor(b.owner.name, "alias must have exactly one dependency").WithToken(b.Key)
		}
		next, ok := b.owner.Lookup(b.Dependencies[0].Key)
		if !ok {
			return nil, errs.UnknownProvider(b.Dependencies[0].Key).WithModule(b.owner.name)
		}
		b = next
	}
	return b, nil
}

// ID is unique across the tree: bindings in different modules may share a key.
func (b *Binding) ID() string {
	return b.owner.name + "/" + b.Key
}

func (in *Injector) Register(b *Binding) error {
	in.mu.Lock()
	if _, exists := in.bindings[b.Key]; exists {
		in.mu.Unlock()
		return errs.DuplicateProvider(in.name, b.Key)
	}
	b.owner = in
	in.bindings[b.Key] = b
	in.keys = append(in.keys, b.Key)
	in.mu.Unlock()

	in.tree.mu.Lock()
	in.tree.index[b.Key] = append(in.tree.index[b.Key], b)
	in.tree.mu.Unlock()

	return nil
}

func (in *Injector) Binding(key string) (*Binding, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()

	b, ok := in.bindings[key]
	return b, ok
}

// Keys lists own binding keys in registration order.
func (in *Injector) Keys() []string {
	in.mu.RLock()
	defer in.mu.RUnlock()

	keys := make([]string, len(in.keys))
	copy(keys, in.keys)
	return keys
}

func (in *Injector) Bindings() []*Binding {
	in.mu.RLock()
	defer in.mu.RUnlock()

	out := make([]*Binding, 0, len(in.keys))
	for _, key := range in.keys {
		out = append(out, in.bindings[key])
	}
	return out
}

// Lookup applies the encapsulation rule: own bindings first, then tokens
// exported by direct imports (following re-exports), then exports of global
// injectors.
func (in *Injector) Lookup(key string) (*Binding, bool) {
	if b, ok := in.Binding(key); ok {
		return b, true
	}

	seen := map[*Injector]bool{in: true}
	for _, imported := range in.Imports() {
		if b, ok := imported.lookupExported(key, seen); ok {
			return b, true
		}
	}

	for _, global := range in.tree.globalInjectors() {
		if b, ok := global.lookupExported(key, seen); ok {
			return b, true
		}
	}

	return nil, false
}

// LookupExported resolves key the way an importer of this injector sees it.
func (in *Injector) LookupExported(key string) (*Binding, bool) {
	return in.lookupExported(key, map[*Injector]bool{})
}

func (in *Injector) lookupExported(key string, seen map[*Injector]bool) (*Binding, bool) {
	if seen[in] || !in.Exports(key) {
		return nil, false
	}
	seen[in] = true

	if b, ok := in.Binding(key); ok {
		return b, true
	}

	for _, imported := range in.Imports() {
		if b, ok := imported.lookupExported(key, seen); ok {
			return b, true
		}
	}
	return nil, false
}
