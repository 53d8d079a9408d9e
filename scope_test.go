package stitch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "singleton", Singleton.String())
	assert.Equal(t, "request", Request.String())
	assert.Equal(t, "transient", Transient.String())
}

func TestScope_SingletonSharedAcrossGoroutines(t *testing.T) {
	t.Parallel()

	var built atomic.Int32
	root := NewModule("app").Provide(
		Factory("svc", func(context.Context, []any) (*testService, error) {
			built.Add(1)
			return &testService{name: "svc"}, nil
		}),
	)
	app := bootstrap(t, root)
	ref := app.ModuleRef()

	const workers = 50
	results := make([]*testService, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc, err := Resolve[*testService](context.Background(), ref, "svc")
			assert.NoError(t, err)
			results[i] = svc
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), built.Load())
	for _, svc := range results {
		assert.Same(t, results[0], svc)
	}
}

func TestScope_TransientNeverCached(t *testing.T) {
	t.Parallel()

	var built atomic.Int32
	var inits atomic.Int32
	root := NewModule("app").Provide(
		Factory("svc", func(context.Context, []any) (*testService, error) {
			built.Add(1)
			return &testService{}, nil
		}, WithScope(Transient), WithOnInit(func(context.Context, any) error {
			inits.Add(1)
			return nil
		})),
	)
	app := bootstrap(t, root)
	ref := app.ModuleRef()
	ctx := context.Background()

	first, err := Resolve[*testService](ctx, ref, "svc")
	require.NoError(t, err)
	second, err := Resolve[*testService](ctx, ref, "svc")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), built.Load())
	assert.Equal(t, int32(2), inits.Load())

	_, err = app.Get("svc")
	require.Error(t, err)
	assert.True(t, IsNotInstantiated(err))
}

func TestScope_RequestRequiresContext(t *testing.T) {
	t.Parallel()

	root := NewModule("app").Provide(
		Value("handler", &testService{}, WithScope(Request)),
	)
	app := bootstrap(t, root)

	_, err := app.Resolve(context.Background(), "handler")
	require.Error(t, err)
	assert.True(t, IsScopeViolation(err))
}

func TestScope_RequestCachedPerContext(t *testing.T) {
	t.Parallel()

	var built atomic.Int32
	root := NewModule("app").Provide(
		Factory("handler", func(context.Context, []any) (*testService, error) {
			built.Add(1)
			return &testService{}, nil
		}, WithScope(Request)),
	)
	app := bootstrap(t, root)
	ref := app.ModuleRef()

	rc1 := NewRequestContext()
	rc2 := NewRequestContext()
	ctx1 := ContextWithRequest(context.Background(), rc1)
	ctx2 := ContextWithRequest(context.Background(), rc2)

	a, err := Resolve[*testService](ctx1, ref, "handler")
	require.NoError(t, err)
	b, err := Resolve[*testService](ctx1, ref, "handler")
	require.NoError(t, err)
	c, err := Resolve[*testService](ctx2, ref, "handler")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, int32(2), built.Load())
	assert.NotEqual(t, rc1.ID(), rc2.ID())

	got, ok := RequestFromContext(ctx1)
	require.True(t, ok)
	assert.Equal(t, rc1.ID(), got.ID())

	_, ok = RequestFromContext(context.Background())
	assert.False(t, ok)
}

func TestScope_RequestCloseDestroysInstances(t *testing.T) {
	t.Parallel()

	var destroyed []string
	var mu sync.Mutex
	record := func(name string) Hook {
		return func(context.Context, any) error {
			mu.Lock()
			defer mu.Unlock()
			destroyed = append(destroyed, name)
			return nil
		}
	}

	root := NewModule("app").Provide(
		Value("session", &testService{name: "session"}, WithScope(Request), WithOnDestroy(record("session"))),
		Factory("handler", func(_ context.Context, args []any) (*testService, error) {
			return &testService{name: "handler:" + args[0].(*testService).name}, nil
		}, WithScope(Request), DependsOn("session"), WithOnDestroy(record("handler"))),
	)
	app := bootstrap(t, root)

	rc := NewRequestContext()
	ctx := ContextWithRequest(context.Background(), rc)

	handler, err := Resolve[*testService](ctx, app.ModuleRef(), "handler")
	require.NoError(t, err)
	assert.Equal(t, "handler:session", handler.name)

	require.NoError(t, rc.Close(context.Background()))
	assert.Equal(t, []string{"handler", "session"}, destroyed)

	_, err = app.Resolve(ctx, "handler")
	require.Error(t, err)
	assert.True(t, IsScopeViolation(err))

	require.NoError(t, rc.Close(context.Background()))
	assert.Len(t, destroyed, 2)
}

func TestScope_TransientMayUseRequest(t *testing.T) {
	t.Parallel()

	root := NewModule("app").Provide(
		Value("user", "alice", WithScope(Request)),
		Constructor("greeter", func(user string) string { return "hello " + user },
			DependsOn("user"), WithScope(Transient)),
	)
	app := bootstrap(t, root)

	rc := NewRequestContext()
	defer func() { _ = rc.Close(context.Background()) }()

	greeting, err := Resolve[string](ContextWithRequest(context.Background(), rc), app.ModuleRef(), "greeter")
	require.NoError(t, err)
	assert.Equal(t, "hello alice", greeting)
}

func TestScope_SingletonCannotCaptureRequest(t *testing.T) {
	t.Parallel()

	root := NewModule("app").Provide(
		Value("user", "alice", WithScope(Request)),
		Constructor("cache", func(user string) string { return user }, DependsOn("user")),
	)

	_, err := Bootstrap(context.Background(), root, WithLogger(quietLogger()))
	require.Error(t, err)
	assert.True(t, IsScopeViolation(err))
}

func TestScope_SingletonMayHoldLazyRequest(t *testing.T) {
	t.Parallel()

	type holder struct{ user *Lazy }

	root := NewModule("app").Provide(
		Value("user", "alice", WithScope(Request)),
		Constructor("holder", func(user *Lazy) *holder { return &holder{user: user} },
			WithDependencies(LazyDep("user"))),
	)
	app := bootstrap(t, root)
	h := MustGet[*holder](app, "holder")

	rc := NewRequestContext()
	defer func() { _ = rc.Close(context.Background()) }()

	user, err := LazyGet[string](ContextWithRequest(context.Background(), rc), h.user)
	require.NoError(t, err)
	assert.Equal(t, "alice", user)

	_, err = LazyGet[string](context.Background(), h.user)
	require.Error(t, err)
	assert.True(t, IsScopeViolation(err))
}
