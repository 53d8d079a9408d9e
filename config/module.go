package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danpasecinic/stitch"
)

const DefaultToken stitch.Token = "app.config"

// Options configures the module built by ForRootAsync.
type Options struct {
	// Token under which the typed configuration is provided. Defaults to
	// DefaultToken. The *Store is provided under StoreToken(Token).
	Token stitch.Token

	// Dir is the directory holding the YAML files. When DirToken is set the
	// directory is injected from that provider instead, which must be visible
	// through Imports.
	Dir      string
	DirToken stitch.Token
	Imports  []stitch.Import

	// Global exports the configuration to every module.
	Global bool

	Watch    bool
	Debounce time.Duration
	Logger   *slog.Logger
}

func StoreToken(token stitch.Token) stitch.Token {
	return token + ".store"
}

// ForRootAsync returns a dynamic module that loads T from a directory while
// the graph is built. Importing it more than once with the same Token yields
// a single module instance.
func ForRootAsync[T any](opts Options) *stitch.AsyncModule {
	if opts.Token == "" {
		opts.Token = DefaultToken
	}

	var inject []stitch.Dependency
	if opts.DirToken != "" {
		inject = stitch.Deps(opts.DirToken)
	}

	return &stitch.AsyncModule{
		Name:    "config",
		Key:     string(opts.Token),
		Imports: opts.Imports,
		Inject:  inject,
		Factory: func(_ context.Context, args []any) (*stitch.Module, error) {
			dir := opts.Dir
			if opts.DirToken != "" {
				injected, ok := args[0].(string)
				if !ok {
					return nil, fmt.Errorf("%s must provide a directory string, got %T", opts.DirToken, args[0])
				}
				dir = injected
			}
			if dir == "" {
				return nil, errors.New("config directory is required")
			}

			storeOpts := []StoreOption{WithWatch(opts.Watch)}
			if opts.Debounce > 0 {
				storeOpts = append(storeOpts, WithDebounce(opts.Debounce))
			}
			if opts.Logger != nil {
				storeOpts = append(storeOpts, WithLogger(opts.Logger))
			}

			store, err := NewStore[T](dir, storeOpts...)
			if err != nil {
				return nil, err
			}

			storeToken := StoreToken(opts.Token)
			m := stitch.NewModule("config").Provide(
				stitch.Value(storeToken, store),
				stitch.Factory(opts.Token, func(context.Context, []any) (*T, error) {
					return store.Get(), nil
				}),
			).Export(opts.Token, storeToken)

			if opts.Global {
				m.AsGlobal()
			}
			return m, nil
		},
	}
}
