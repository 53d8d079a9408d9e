package stitch

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func BenchmarkStartup_Sequential_10Services(b *testing.B) {
	benchmarkStartup(b, 1, 10, 0)
}

func BenchmarkStartup_Parallel_10Services(b *testing.B) {
	benchmarkStartup(b, 0, 10, 0)
}

func BenchmarkStartup_Sequential_100Services(b *testing.B) {
	benchmarkStartup(b, 1, 100, 0)
}

func BenchmarkStartup_Parallel_100Services(b *testing.B) {
	benchmarkStartup(b, 0, 100, 0)
}

func BenchmarkStartupWithWork_Sequential_10Services(b *testing.B) {
	benchmarkStartup(b, 1, 10, time.Millisecond)
}

func BenchmarkStartupWithWork_Parallel_10Services(b *testing.B) {
	benchmarkStartup(b, 0, 10, time.Millisecond)
}

func BenchmarkShutdownWithWork_Sequential_10Services(b *testing.B) {
	benchmarkShutdown(b, 1, 10, time.Millisecond)
}

func BenchmarkShutdownWithWork_Parallel_10Services(b *testing.B) {
	benchmarkShutdown(b, 0, 10, time.Millisecond)
}

func BenchmarkLifecycle_Sequential_Chain10(b *testing.B) {
	benchmarkDependencyChain(b, 1, 10, 0)
}

func BenchmarkLifecycle_Parallel_Chain10(b *testing.B) {
	benchmarkDependencyChain(b, 0, 10, 0)
}

func BenchmarkLifecycleWithWork_Sequential_Wide10(b *testing.B) {
	benchmarkWideDependencies(b, 1, 10, time.Millisecond)
}

func BenchmarkLifecycleWithWork_Parallel_Wide10(b *testing.B) {
	benchmarkWideDependencies(b, 0, 10, time.Millisecond)
}

func BenchmarkGet(b *testing.B) {
	ctx := context.Background()
	app, _ := Bootstrap(ctx, NewModule("app").Provide(Value("svc", &testService{})), WithLogger(quietLogger()))
	defer func() { _ = app.Close(ctx) }()

	for b.Loop() {
		_, _ = Get[*testService](app, "svc")
	}
}

func BenchmarkResolveRequest(b *testing.B) {
	ctx := context.Background()
	app, _ := Bootstrap(ctx, NewModule("app").Provide(
		Value("svc", &testService{}, WithScope(Request)),
	), WithLogger(quietLogger()))
	defer func() { _ = app.Close(ctx) }()

	for b.Loop() {
		rc := NewRequestContext()
		_, _ = app.Resolve(ContextWithRequest(ctx, rc), "svc")
		_ = rc.Close(ctx)
	}
}

type benchService struct {
	id int
}

func sleepHook(d time.Duration) Hook {
	return func(context.Context, any) error {
		if d > 0 {
			time.Sleep(d)
		}
		return nil
	}
}

func benchProvider(token Token, id int, work time.Duration, deps ...Token) Provider {
	return Factory(token, func(context.Context, []any) (*benchService, error) {
		return &benchService{id: id}, nil
	}, DependsOn(deps...), WithOnInit(sleepHook(work)), WithOnDestroy(sleepHook(work)))
}

func benchmarkStartup(b *testing.B, parallelism, count int, work time.Duration) {
	b.ReportAllocs()
	ctx := context.Background()
	logger := quietLogger()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		root := NewModule("bench")
		for j := 0; j < count; j++ {
			root.Provide(benchProvider(Token(fmt.Sprintf("svc_%d", j)), j, work))
		}

		b.StartTimer()
		app, _ := Bootstrap(ctx, root, WithLogger(logger), WithParallelism(parallelism))
		b.StopTimer()
		_ = app.Close(ctx)
	}
}

func benchmarkShutdown(b *testing.B, parallelism, count int, work time.Duration) {
	b.ReportAllocs()
	ctx := context.Background()
	logger := quietLogger()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		root := NewModule("bench")
		for j := 0; j < count; j++ {
			root.Provide(benchProvider(Token(fmt.Sprintf("svc_%d", j)), j, work))
		}
		app, _ := Bootstrap(ctx, root, WithLogger(logger), WithParallelism(parallelism))

		b.StartTimer()
		_ = app.Close(ctx)
	}
}

func benchmarkDependencyChain(b *testing.B, parallelism, depth int, work time.Duration) {
	b.ReportAllocs()
	ctx := context.Background()
	logger := quietLogger()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		root := NewModule("bench")
		var prev []Token
		for j := 0; j < depth; j++ {
			token := Token(fmt.Sprintf("chain_%d", j))
			root.Provide(benchProvider(token, j, work, prev...))
			prev = []Token{token}
		}

		b.StartTimer()
		app, _ := Bootstrap(ctx, root, WithLogger(logger), WithParallelism(parallelism))
		_ = app.Close(ctx)
	}
}

func benchmarkWideDependencies(b *testing.B, parallelism, width int, work time.Duration) {
	b.ReportAllocs()
	ctx := context.Background()
	logger := quietLogger()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		root := NewModule("bench")
		deps := make([]Token, width)
		for j := 0; j < width; j++ {
			deps[j] = Token(fmt.Sprintf("wide_%d", j))
			root.Provide(benchProvider(deps[j], j, work))
		}
		root.Provide(benchProvider("aggregator", width, work, deps...))

		b.StartTimer()
		app, _ := Bootstrap(ctx, root, WithLogger(logger), WithParallelism(parallelism))
		_ = app.Close(ctx)
	}
}
