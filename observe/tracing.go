package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danpasecinic/stitch"
)

const tracerName = "github.com/danpasecinic/stitch/observe"

type tracingObserver struct {
	tracer trace.Tracer
}

// Tracing records one span per resolution and lifecycle hook. Hooks report
// after the fact, so spans are back-dated to the hook's start.
func Tracing(tp trace.TracerProvider) stitch.Observer {
	return &tracingObserver{tracer: tp.Tracer(tracerName)}
}

func (o *tracingObserver) Options() []stitch.Option {
	return []stitch.Option{
		stitch.WithResolveObserver(o.record("stitch.resolve")),
		stitch.WithInitObserver(o.record("stitch.init")),
		stitch.WithDestroyObserver(o.record("stitch.destroy")),
	}
}

func (o *tracingObserver) record(name string) func(module, token string, d time.Duration, err error) {
	return func(module, token string, d time.Duration, err error) {
		end := time.Now()
		_, span := o.tracer.Start(context.Background(), name,
			trace.WithTimestamp(end.Add(-d)),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.String("stitch.module", module),
				attribute.String("stitch.token", token),
			),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End(trace.WithTimestamp(end))
	}
}
