package benchmark

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/fx"

	"github.com/danpasecinic/stitch"
)

func BenchmarkLifecycle_10_Stitch(b *testing.B) {
	benchmarkLifecycleStitch(b, 10, 1, 0)
}

func BenchmarkLifecycle_10_StitchParallel(b *testing.B) {
	benchmarkLifecycleStitch(b, 10, 0, 0)
}

func BenchmarkLifecycle_10_Fx(b *testing.B) {
	benchmarkLifecycleFx(b, 10, 0)
}

func BenchmarkLifecycle_50_Stitch(b *testing.B) {
	benchmarkLifecycleStitch(b, 50, 1, 0)
}

func BenchmarkLifecycle_50_StitchParallel(b *testing.B) {
	benchmarkLifecycleStitch(b, 50, 0, 0)
}

func BenchmarkLifecycle_50_Fx(b *testing.B) {
	benchmarkLifecycleFx(b, 50, 0)
}

func BenchmarkLifecycleWithWork_10_Stitch(b *testing.B) {
	benchmarkLifecycleStitch(b, 10, 1, time.Millisecond)
}

func BenchmarkLifecycleWithWork_10_StitchParallel(b *testing.B) {
	benchmarkLifecycleStitch(b, 10, 0, time.Millisecond)
}

func BenchmarkLifecycleWithWork_10_Fx(b *testing.B) {
	benchmarkLifecycleFx(b, 10, time.Millisecond)
}

func BenchmarkLifecycleWithWork_50_Stitch(b *testing.B) {
	benchmarkLifecycleStitch(b, 50, 1, time.Millisecond)
}

func BenchmarkLifecycleWithWork_50_StitchParallel(b *testing.B) {
	benchmarkLifecycleStitch(b, 50, 0, time.Millisecond)
}

func BenchmarkLifecycleWithWork_50_Fx(b *testing.B) {
	benchmarkLifecycleFx(b, 50, time.Millisecond)
}

// benchmarkLifecycleStitch measures Bootstrap plus Close of count independent
// singletons. parallelism 0 means one worker per CPU.
func benchmarkLifecycleStitch(b *testing.B, count, parallelism int, work time.Duration) {
	b.ReportAllocs()
	ctx := context.Background()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		root := stitch.NewModule("app")
		for j := 0; j < count; j++ {
			idx := j
			opts := []stitch.ProviderOption{}
			if work > 0 {
				opts = append(opts,
					stitch.WithOnInit(func(context.Context, any) error {
						time.Sleep(work)
						return nil
					}),
					stitch.WithOnDestroy(func(context.Context, any) error {
						time.Sleep(work)
						return nil
					}),
				)
			}
			root.Provide(stitch.Factory(
				stitch.NamedToken[*Config](fmt.Sprintf("svc_%d", j)),
				func(context.Context, []any) (*Config, error) {
					return &Config{Port: idx}, nil
				},
				opts...,
			))
		}
		b.StartTimer()

		app := mustBootstrap(root, stitch.WithParallelism(parallelism))
		_ = app.Close(ctx)
	}
}

func benchmarkLifecycleFx(b *testing.B, count int, work time.Duration) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		providers := make([]fx.Option, count)
		for j := 0; j < count; j++ {
			idx := j
			name := fmt.Sprintf("svc_%d", j)
			providers[j] = fx.Provide(
				fx.Annotate(
					func(lc fx.Lifecycle) *Config {
						cfg := &Config{Port: idx}
						if work > 0 {
							lc.Append(fx.Hook{
								OnStart: func(ctx context.Context) error {
									time.Sleep(work)
									return nil
								},
								OnStop: func(ctx context.Context) error {
									time.Sleep(work)
									return nil
								},
							})
						}
						return cfg
					},
					fx.ResultTags(fmt.Sprintf(`name:"%s"`, name)),
				),
			)
		}

		invokers := make([]any, count)
		for j := 0; j < count; j++ {
			name := fmt.Sprintf("svc_%d", j)
			invokers[j] = fx.Annotate(
				func(*Config) {},
				fx.ParamTags(fmt.Sprintf(`name:"%s"`, name)),
			)
		}

		opts := []fx.Option{fx.NopLogger, fx.Invoke(invokers...)}
		opts = append(opts, providers...)
		app := fx.New(opts...)

		ctx := context.Background()
		b.StartTimer()
		_ = app.Start(ctx)
		_ = app.Stop(ctx)
	}
}
