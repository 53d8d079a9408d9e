package stitch

import (
	"context"
	"fmt"
)

// Module declares a unit of composition. Its identity is the pointer: the same
// *Module imported from several places becomes one node in the graph.
type Module struct {
	Name        string `validate:"required"`
	Imports     []Import
	Providers   []Provider
	Controllers []Token
	Exports     []Token
	// Global modules make their exports visible to every module without an
	// explicit import.
	Global bool
}

// Import is satisfied by *Module, *AsyncModule and the value returned by
// Deferred.
type Import interface {
	importName() string
}

func (m *Module) importName() string {
	return m.Name
}

// NewModule starts a module declaration.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

func (m *Module) Import(imports ...Import) *Module {
	m.Imports = append(m.Imports, imports...)
	return m
}

func (m *Module) Provide(providers ...Provider) *Module {
	m.Providers = append(m.Providers, providers...)
	return m
}

func (m *Module) Export(tokens ...Token) *Module {
	m.Exports = append(m.Exports, tokens...)
	return m
}

func (m *Module) Controller(tokens ...Token) *Module {
	m.Controllers = append(m.Controllers, tokens...)
	return m
}

func (m *Module) AsGlobal() *Module {
	m.Global = true
	return m
}

// AsyncModule is a dynamic module whose descriptor is produced by Factory at
// graph build time. Factory receives the values of Inject, resolved from the
// exports of Imports and of global modules. Two AsyncModules with equal Name
// and Key share one node, so Factory runs once per key.
type AsyncModule struct {
	Name    string `validate:"required"`
	Key     string
	Imports []Import
	Inject  []Dependency
	Factory func(ctx context.Context, args []any) (*Module, error) `validate:"required"`
}

func (m *AsyncModule) importName() string {
	return m.identity()
}

func (m *AsyncModule) identity() string {
	if m.Key == "" {
		return m.Name
	}
	return fmt.Sprintf("%s[%s]", m.Name, m.Key)
}

type deferredImport struct {
	resolve func() Import
}

func (d *deferredImport) importName() string {
	return "deferred"
}

// Deferred wraps an import that is only evaluated after the direct import walk
// finishes. It is the way to express a cycle between two modules.
func Deferred(resolve func() Import) Import {
	return &deferredImport{resolve: resolve}
}
