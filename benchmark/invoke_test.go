package benchmark

import (
	"context"
	"testing"

	"github.com/samber/do/v2"
	"go.uber.org/dig"
	"go.uber.org/fx"

	"github.com/danpasecinic/stitch"
)

func BenchmarkInvoke_Singleton_Stitch(b *testing.B) {
	app := mustBootstrap(stitch.NewModule("app").Provide(
		stitch.Value(stitch.TypeToken[*Config](), &Config{Host: "localhost", Port: 8080}),
	))
	defer func() { _ = app.Close(context.Background()) }()

	token := stitch.TypeToken[*Config]()
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = stitch.Get[*Config](app, token)
	}
}

func BenchmarkInvoke_Singleton_Do(b *testing.B) {
	injector := do.New()
	do.ProvideValue(injector, &Config{Host: "localhost", Port: 8080})
	_ = do.MustInvoke[*Config](injector)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Config](injector)
	}
}

func BenchmarkInvoke_Singleton_Dig(b *testing.B) {
	c := dig.New()
	_ = c.Provide(func() *Config { return &Config{Host: "localhost", Port: 8080} })
	_ = c.Invoke(func(*Config) {})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = c.Invoke(func(*Config) {})
	}
}

func BenchmarkInvoke_Singleton_Fx(b *testing.B) {
	var cfg *Config
	app := fx.New(
		fx.NopLogger,
		fx.Provide(func() *Config { return &Config{Host: "localhost", Port: 8080} }),
		fx.Populate(&cfg),
	)
	ctx := context.Background()
	_ = app.Start(ctx)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = cfg
	}
	_ = app.Stop(ctx)
}

func BenchmarkInvoke_Chain_Stitch(b *testing.B) {
	app := mustBootstrap(chainModules())
	defer func() { _ = app.Close(context.Background()) }()

	ref := app.ModuleRef()
	token := stitch.TypeToken[*Service]()
	ctx := context.Background()
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = stitch.Resolve[*Service](ctx, ref, token)
	}
}

func BenchmarkInvoke_Chain_Do(b *testing.B) {
	injector := do.New()
	do.ProvideValue(injector, &Config{Host: "localhost", Port: 8080})
	do.ProvideValue(injector, &Logger{Level: "info"})
	do.Provide(injector, func(i do.Injector) (*Database, error) {
		return &Database{Config: do.MustInvoke[*Config](i), Logger: do.MustInvoke[*Logger](i)}, nil
	})
	do.Provide(injector, func(i do.Injector) (*Cache, error) {
		return &Cache{Logger: do.MustInvoke[*Logger](i)}, nil
	})
	do.Provide(injector, func(i do.Injector) (*Repository, error) {
		return &Repository{DB: do.MustInvoke[*Database](i), Cache: do.MustInvoke[*Cache](i)}, nil
	})
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		return &Service{Repo: do.MustInvoke[*Repository](i), Logger: do.MustInvoke[*Logger](i)}, nil
	})
	_ = do.MustInvoke[*Service](injector)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Service](injector)
	}
}

func BenchmarkInvoke_Chain_Dig(b *testing.B) {
	c := dig.New()
	_ = c.Provide(func() *Config { return &Config{Host: "localhost", Port: 8080} })
	_ = c.Provide(func() *Logger { return &Logger{Level: "info"} })
	_ = c.Provide(func(cfg *Config, log *Logger) *Database { return &Database{Config: cfg, Logger: log} })
	_ = c.Provide(func(log *Logger) *Cache { return &Cache{Logger: log} })
	_ = c.Provide(func(db *Database, cache *Cache) *Repository { return &Repository{DB: db, Cache: cache} })
	_ = c.Provide(func(repo *Repository, log *Logger) *Service { return &Service{Repo: repo, Logger: log} })
	_ = c.Invoke(func(*Service) {})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = c.Invoke(func(*Service) {})
	}
}

func BenchmarkInvoke_Request_Stitch(b *testing.B) {
	app := mustBootstrap(stitch.NewModule("app").Provide(
		stitch.Value(stitch.TypeToken[*Logger](), &Logger{Level: "info"}),
		stitch.Provide[*Cache](func(log *Logger) *Cache {
			return &Cache{Logger: log}
		}, stitch.DependsOn(stitch.TypeToken[*Logger]()), stitch.WithScope(stitch.Request)),
	))
	defer func() { _ = app.Close(context.Background()) }()

	ref := app.ModuleRef()
	token := stitch.TypeToken[*Cache]()
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rc := stitch.NewRequestContext()
		ctx := stitch.ContextWithRequest(context.Background(), rc)
		_, _ = stitch.Resolve[*Cache](ctx, ref, token)
		_ = rc.Close(ctx)
	}
}

func BenchmarkInvoke_Request_Do(b *testing.B) {
	injector := do.New()
	do.ProvideValue(injector, &Logger{Level: "info"})
	do.ProvideTransient(injector, func(i do.Injector) (*Cache, error) {
		return &Cache{Logger: do.MustInvoke[*Logger](i)}, nil
	})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Cache](injector)
	}
}
