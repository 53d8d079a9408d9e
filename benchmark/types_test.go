package benchmark

import (
	"context"
	"io"
	"log/slog"

	"github.com/danpasecinic/stitch"
)

type Config struct {
	Host string
	Port int
}

type Logger struct {
	Level string
}

type Database struct {
	Config *Config
	Logger *Logger
}

type Cache struct {
	Logger *Logger
}

type Repository struct {
	DB    *Database
	Cache *Cache
}

type Service struct {
	Repo   *Repository
	Logger *Logger
}

var quiet = stitch.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

// chainModules splits the dependency chain over three modules so bootstrap
// also pays for import resolution and export checks.
func chainModules() *stitch.Module {
	infra := stitch.NewModule("infra").Provide(
		stitch.Value(stitch.TypeToken[*Config](), &Config{Host: "localhost", Port: 8080}),
		stitch.Value(stitch.TypeToken[*Logger](), &Logger{Level: "info"}),
	).Export(stitch.TypeToken[*Config](), stitch.TypeToken[*Logger]())

	data := stitch.NewModule("data").Import(infra).Provide(
		stitch.Provide[*Database](func(cfg *Config, log *Logger) *Database {
			return &Database{Config: cfg, Logger: log}
		}, stitch.DependsOn(stitch.TypeToken[*Config](), stitch.TypeToken[*Logger]())),
		stitch.Provide[*Cache](func(log *Logger) *Cache {
			return &Cache{Logger: log}
		}, stitch.DependsOn(stitch.TypeToken[*Logger]())),
		stitch.Provide[*Repository](func(db *Database, cache *Cache) *Repository {
			return &Repository{DB: db, Cache: cache}
		}, stitch.DependsOn(stitch.TypeToken[*Database](), stitch.TypeToken[*Cache]())),
	).Export(stitch.TypeToken[*Repository]())

	return stitch.NewModule("app").Import(infra, data).Provide(
		stitch.Provide[*Service](func(repo *Repository, log *Logger) *Service {
			return &Service{Repo: repo, Logger: log}
		}, stitch.DependsOn(stitch.TypeToken[*Repository](), stitch.TypeToken[*Logger]())),
	)
}

func mustBootstrap(root *stitch.Module, opts ...stitch.Option) *stitch.Application {
	app, err := stitch.Bootstrap(context.Background(), root, append([]stitch.Option{quiet}, opts...)...)
	if err != nil {
		panic(err)
	}
	return app
}
