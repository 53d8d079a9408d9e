// Package stitch is a module-based dependency injection framework for Go 1.25+.
//
// An application is a graph of modules. Each module declares providers, imports
// other modules and exports the tokens it makes visible to its importers.
// Bootstrap resolves the graph, constructs every singleton in dependency order,
// runs init hooks and returns an Application.
//
// # Quick Start
//
//	var DatabaseModule = stitch.NewModule("database").
//	    Provide(stitch.Provide[*DB](NewDB, stitch.DependsOn("dsn"))).
//	    Provide(stitch.Value("dsn", "postgres://localhost/app")).
//	    Export(stitch.TypeToken[*DB]())
//
//	var UsersModule = stitch.NewModule("users").
//	    Import(DatabaseModule).
//	    Provide(stitch.Provide[*UserService](NewUserService,
//	        stitch.DependsOn(stitch.TypeToken[*DB]()))).
//	    Export(stitch.TypeToken[*UserService]())
//
//	app, err := stitch.Bootstrap(ctx, stitch.NewModule("app").Import(UsersModule))
//	if err != nil {
//	    return err
//	}
//	defer app.Close(ctx)
//
//	users := stitch.MustGet[*UserService](app, stitch.TypeToken[*UserService]())
//
// # Tokens
//
// Providers are keyed by a Token. TypeToken derives one from a Go type,
// NamedToken qualifies it with a name, and any string works as a token:
//
//	stitch.TypeToken[*Cache]()               // "*example.com/app.Cache"
//	stitch.NamedToken[*Cache]("session")     // "*example.com/app.Cache#session"
//	stitch.Token("dsn")
//
// # Providers
//
//	stitch.Value(token, instance)                        // already built
//	stitch.Factory(token, func(ctx, args) (T, error))   // typed build function
//	stitch.Constructor(token, NewService, opts...)       // plain Go constructor
//	stitch.Provide[*Service](NewService, opts...)        // keyed by type
//	stitch.Existing(alias, target)                       // alias of another token
//	stitch.Struct[T](token) / stitch.ProvideStruct[T]()  // fields tagged `stitch:"..."`
//	stitch.Bind[Repo, *PostgresRepo]()                   // interface alias
//
// Dependencies are declared explicitly and passed in declaration order:
//
//	stitch.DependsOn(a, b)
//	stitch.WithDependencies(stitch.Dep(a), stitch.LazyDep(b), stitch.OptionalDep(c))
//
// A lazy dependency arrives as *Lazy and may close a dependency cycle. A
// missing optional dependency arrives as nil.
//
// # Visibility
//
// A module sees its own providers, the exports of the modules it imports
// directly and the exports of global modules. Re-exporting an imported module's
// token makes it visible one level further up. Lookups through a ModuleRef can
// be restricted to the module's own providers with Strict.
//
// # Dynamic Modules
//
// An AsyncModule produces its descriptor at build time, after the values it
// injects have been resolved:
//
//	&stitch.AsyncModule{
//	    Name:    "cache",
//	    Key:     "session",
//	    Imports: []stitch.Import{ConfigModule},
//	    Inject:  stitch.Deps(config.DefaultToken),
//	    Factory: func(ctx context.Context, args []any) (*stitch.Module, error) { ... },
//	}
//
// Async modules with the same Name and Key share one instance. Deferred wraps
// an import that closes a cycle between modules.
//
// # Scopes
//
//	stitch.WithScope(stitch.Singleton)  // default, built once at bootstrap
//	stitch.WithScope(stitch.Transient)  // built on every resolution
//	stitch.WithScope(stitch.Request)    // built once per RequestContext
//
// Request-scoped providers resolve against the RequestContext carried by the
// context:
//
//	rc := stitch.NewRequestContext()
//	defer rc.Close(ctx)
//	ctx = stitch.ContextWithRequest(ctx, rc)
//	handler, err := stitch.Resolve[*Handler](ctx, app.ModuleRef(), "handler")
//
// The httpscope package does this per HTTP request.
//
// # Lifecycle
//
// Instances implementing Initializer, Destroyer or LifecycleAware, and
// providers declaring WithOnInit or WithOnDestroy, take part in the lifecycle.
// Init hooks run after all of an instance's dependencies are initialized;
// independent instances initialize concurrently, bounded by WithParallelism.
// If an init hook fails, the instances already initialized are destroyed in
// reverse order and Bootstrap returns the error. Close destroys instances in
// reverse dependency order and aggregates every failure:
//
//	app.Close(ctx)
//	app.Run(ctx)   // blocks until ctx is done, then closes
//
// # Health Checks
//
//	err := app.Live(ctx)        // every HealthChecker
//	err := app.Ready(ctx)       // every ReadinessChecker
//	reports := app.Health(ctx)
//
// # Observers
//
// Registration, resolution and lifecycle hooks can be observed:
//
//	stitch.WithResolveObserver(func(module, token string, d time.Duration, err error) { ... })
//	stitch.WithObserver(observe.Zap(logger))
//
// # Errors
//
// Every error returned by the framework is an *Error carrying an ErrorCode.
// Use the Is* predicates or HasCode to inspect it:
//
//	if stitch.IsUnknownProvider(err) { ... }
//
// # Debug Visualization
//
//	app.PrintGraph()       // module tree to stdout
//	app.PrintGraphDOT()    // Graphviz DOT to stdout
//	info := app.Graph()
package stitch
