// Package stitchtest bootstraps applications inside tests and fails the test
// instead of returning errors.
package stitchtest

import (
	"context"

	"github.com/danpasecinic/stitch"
)

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Cleanup(f func())
}

type TestApp struct {
	*stitch.Application
	tb TB
}

// New bootstraps root and closes the application when the test ends.
func New(tb TB, root *stitch.Module, opts ...stitch.Option) *TestApp {
	tb.Helper()

	app, err := stitch.Bootstrap(context.Background(), root, opts...)
	if err != nil {
		tb.Fatalf("failed to bootstrap %s: %v", root.Name, err)
	}

	tb.Cleanup(func() {
		if err := app.Close(context.Background()); err != nil {
			tb.Fatalf("failed to close application: %v", err)
		}
	})

	return &TestApp{Application: app, tb: tb}
}

// RequireBootstrapError asserts that root does not bootstrap and returns the error.
func RequireBootstrapError(tb TB, root *stitch.Module, opts ...stitch.Option) error {
	tb.Helper()

	app, err := stitch.Bootstrap(context.Background(), root, opts...)
	if err == nil {
		_ = app.Close(context.Background())
		tb.Fatal("expected bootstrap to fail")
	}
	return err
}

func (ta *TestApp) RequireClose(ctx context.Context) {
	ta.tb.Helper()

	if err := ta.Close(ctx); err != nil {
		ta.tb.Fatalf("failed to close application: %v", err)
	}
}

// Request returns a context carrying a fresh RequestContext that is closed
// when the test ends.
func (ta *TestApp) Request(ctx context.Context) context.Context {
	ta.tb.Helper()

	rc := stitch.NewRequestContext()
	ta.tb.Cleanup(func() {
		if err := rc.Close(context.Background()); err != nil {
			ta.tb.Fatalf("failed to close request %s: %v", rc.ID(), err)
		}
	})
	return stitch.ContextWithRequest(ctx, rc)
}

// Override replaces the provider of T's type token with value.
func Override[T any](value T) stitch.Option {
	return stitch.WithOverrideValue(stitch.TypeToken[T](), value)
}

func OverrideNamed[T any](name string, value T) stitch.Option {
	return stitch.WithOverrideValue(stitch.NamedToken[T](name), value)
}

func OverrideToken(token stitch.Token, value any) stitch.Option {
	return stitch.WithOverrideValue(token, value)
}

func AssertHas(ta *TestApp, token stitch.Token) {
	ta.tb.Helper()

	if !ta.ModuleRef().Has(token) {
		ta.tb.Fatalf("expected application to have %s", token)
	}
}

func AssertNotHas(ta *TestApp, token stitch.Token) {
	ta.tb.Helper()

	if ta.ModuleRef().Has(token) {
		ta.tb.Fatalf("expected application to not have %s", token)
	}
}

func MustGet[T any](ta *TestApp, token stitch.Token) T {
	ta.tb.Helper()

	v, err := stitch.Get[T](ta.Application, token)
	if err != nil {
		ta.tb.Fatalf("failed to get %s: %v", token, err)
	}
	return v
}

// MustGetType reads the singleton registered under T's type token.
func MustGetType[T any](ta *TestApp) T {
	ta.tb.Helper()
	return MustGet[T](ta, stitch.TypeToken[T]())
}

func MustResolve[T any](ta *TestApp, ctx context.Context, token stitch.Token) T {
	ta.tb.Helper()

	v, err := stitch.Resolve[T](ctx, ta.ModuleRef(), token)
	if err != nil {
		ta.tb.Fatalf("failed to resolve %s: %v", token, err)
	}
	return v
}
