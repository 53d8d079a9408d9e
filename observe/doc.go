// Package observe adapts the application's observer hooks to zap, Prometheus
// and OpenTelemetry. Each adapter implements stitch.Observer and is installed
// with stitch.WithObserver:
//
//	metrics, err := observe.NewMetrics(prometheus.DefaultRegisterer, "orders")
//	app, err := stitch.Bootstrap(ctx, root,
//		stitch.WithObserver(observe.Zap(logger)),
//		stitch.WithObserver(metrics),
//		stitch.WithObserver(observe.Tracing(otel.GetTracerProvider())),
//	)
package observe
