package stitch

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danpasecinic/stitch/internal/errs"
)

type HealthStatus string

const (
	HealthStatusUp      HealthStatus = "up"
	HealthStatusDown    HealthStatus = "down"
	HealthStatusUnknown HealthStatus = "unknown"
)

type HealthReport struct {
	Module  string
	Token   string
	Status  HealthStatus
	Error   error
	Latency time.Duration
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type ReadinessChecker interface {
	ReadinessCheck(ctx context.Context) error
}

// Live fails with the first singleton whose HealthCheck fails.
func (a *Application) Live(ctx context.Context) error {
	return firstDown(a.Health(ctx))
}

func (a *Application) Ready(ctx context.Context) error {
	return firstDown(a.check(ctx, func(instance any) (func(context.Context) error, bool) {
		rc, ok := instance.(ReadinessChecker)
		if !ok {
			return nil, false
		}
		return rc.ReadinessCheck, true
	}))
}

// Health runs HealthCheck on every constructed singleton that implements
// HealthChecker. Reports follow module order.
func (a *Application) Health(ctx context.Context) []HealthReport {
	return a.check(ctx, func(instance any) (func(context.Context) error, bool) {
		hc, ok := instance.(HealthChecker)
		if !ok {
			return nil, false
		}
		return hc.HealthCheck, true
	})
}

func firstDown(reports []HealthReport) error {
	for _, r := range reports {
		if r.Status == HealthStatusDown {
			return errs.New(errs.CodeLifecycleFailed, "health check failed", r.Error).
				WithModule(r.Module).WithToken(r.Token)
		}
	}
	return nil
}

func (a *Application) check(
	ctx context.Context,
	probe func(instance any) (func(context.Context) error, bool),
) []HealthReport {
	if a.closed() {
		return nil
	}

	type target struct {
		index int
		check func(context.Context) error
	}

	var reports []HealthReport
	var targets []target
	for _, n := range a.nodes {
		for _, key := range n.injector.Keys() {
			instance, ok := n.injector.Instance(key)
			if !ok {
				continue
			}
			check, ok := probe(instance)
			if !ok {
				continue
			}
			targets = append(targets, target{index: len(reports), check: check})
			reports = append(reports, HealthReport{Module: n.name, Token: key, Status: HealthStatusUnknown})
		}
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	for _, t := range targets {
		g.Go(func() error {
			start := time.Now()
			err := t.check(ctx)
			latency := time.Since(start)

			mu.Lock()
			defer mu.Unlock()
			r := &reports[t.index]
			r.Latency = latency
			if err != nil {
				r.Status = HealthStatusDown
				r.Error = err
			} else {
				r.Status = HealthStatusUp
			}
			return nil
		})
	}

	_ = g.Wait()
	return reports
}
