package stitch

import (
	"log/slog"
	"time"
)

type Option func(*config)

type config struct {
	logger      *slog.Logger
	parallelism int
	hookTimeout time.Duration
	overrides   map[Token]Provider
	onResolve   []ResolveHook
	onRegister  []RegisterHook
	onInit      []InitHook
	onDestroy   []DestroyHook
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:    slog.Default(),
		overrides: make(map[Token]Provider),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithParallelism bounds how many sibling lifecycle hooks run at once.
// Zero or negative means runtime.NumCPU().
func WithParallelism(n int) Option {
	return func(cfg *config) {
		cfg.parallelism = n
	}
}

// WithHookTimeout bounds each destroy hook during Close. Defaults to 10s.
func WithHookTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.hookTimeout = d
	}
}

// WithOverride replaces every declaration of token with p while the graph is
// built. Intended for tests.
func WithOverride(token Token, p Provider) Option {
	return func(cfg *config) {
		p.Token = token
		cfg.overrides[token] = p
	}
}

func WithOverrideValue(token Token, value any) Option {
	return WithOverride(token, Value(token, value))
}

func WithResolveObserver(hook ResolveHook) Option {
	return func(cfg *config) {
		cfg.onResolve = append(cfg.onResolve, hook)
	}
}

func WithRegisterObserver(hook RegisterHook) Option {
	return func(cfg *config) {
		cfg.onRegister = append(cfg.onRegister, hook)
	}
}

func WithInitObserver(hook InitHook) Option {
	return func(cfg *config) {
		cfg.onInit = append(cfg.onInit, hook)
	}
}

func WithDestroyObserver(hook DestroyHook) Option {
	return func(cfg *config) {
		cfg.onDestroy = append(cfg.onDestroy, hook)
	}
}

// Observer bundles the hooks of an integration such as logging or metrics.
type Observer interface {
	Options() []Option
}

func WithObserver(o Observer) Option {
	return func(cfg *config) {
		for _, opt := range o.Options() {
			opt(cfg)
		}
	}
}
