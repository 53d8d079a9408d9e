package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/danpasecinic/stitch/internal/errs"
)

const DefaultHookTimeout = 10 * time.Second

type Observer func(module, token string, duration time.Duration, err error)

type Config struct {
	Logger      *slog.Logger
	Parallelism int
	HookTimeout time.Duration
	OnInit      []Observer
	OnDestroy   []Observer
}

// Orchestrator runs init hooks level by level and destroys in reverse.
type Orchestrator struct {
	logger      *slog.Logger
	parallelism int
	hookTimeout time.Duration
	onInit      []Observer
	onDestroy   []Observer

	mu        sync.Mutex
	stages    [][]*Unit
	completed []*Unit
	done      map[string]bool
	stopped   bool
}

func New(cfg *Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	timeout := cfg.HookTimeout
	if timeout <= 0 {
		timeout = DefaultHookTimeout
	}

	return &Orchestrator{
		logger:      logger,
		parallelism: parallelism,
		hookTimeout: timeout,
		onInit:      cfg.OnInit,
		onDestroy:   cfg.OnDestroy,
		done:        make(map[string]bool),
	}
}

// Start runs every init hook of plan. On failure the units that already
// completed are destroyed in reverse completion order and the original error
// is returned.
func (o *Orchestrator) Start(ctx context.Context, plan *Plan) error {
	stages, err := plan.Stages()
	if err != nil {
		return errs.CircularDependency(plan.Cycle())
	}

	o.mu.Lock()
	o.stages = stages
	o.mu.Unlock()

	for level, stage := range stages {
		o.logger.Debug("starting lifecycle level", "level", level, "units", len(stage))
		if err := o.startStage(ctx, stage); err != nil {
			o.rollback(ctx)
			return err
		}
	}

	return nil
}

func (o *Orchestrator) startStage(ctx context.Context, stage []*Unit) error {
	if len(stage) == 1 {
		return o.startUnit(ctx, stage[0])
	}

	var failed atomic.Bool
	var g errgroup.Group
	g.SetLimit(o.parallelism)

	for _, u := range stage {
		g.Go(func() error {
			if failed.Load() {
				return nil
			}
			if err := o.startUnit(ctx, u); err != nil {
				failed.Store(true)
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

func (o *Orchestrator) startUnit(ctx context.Context, u *Unit) error {
	start := time.Now()
	var err error
	if u.Init != nil {
		o.logger.Debug("running init hook", "module", u.Module, "token", u.Token)
		err = u.Init(ctx)
	}

	for _, observe := range o.onInit {
		observe(u.Module, u.Token, time.Since(start), err)
	}

	if err != nil {
		return errs.LifecycleFailed(errs.PhaseInit, u.ID, err).WithModule(u.Module)
	}

	o.mu.Lock()
	o.completed = append(o.completed, u)
	o.done[u.ID] = true
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) rollback(ctx context.Context) {
	o.mu.Lock()
	completed := o.completed
	o.completed = nil
	o.done = make(map[string]bool)
	o.stopped = true
	o.mu.Unlock()

	var rollbackErr error
	for i := len(completed) - 1; i >= 0; i-- {
		if err := o.stopUnit(ctx, completed[i]); err != nil {
			rollbackErr = multierr.Append(rollbackErr, err)
		}
	}

	if rollbackErr != nil {
		o.logger.Error("rollback completed with errors", "error", rollbackErr)
	}
}

// Stop destroys every initialized unit, level by level in reverse. All hooks
// are attempted; failures are aggregated. A second call is a no-op.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return nil
	}
	o.stopped = true
	stages := o.stages
	done := o.done
	o.completed = nil
	o.done = make(map[string]bool)
	o.mu.Unlock()

	var stopErr error
	for i := len(stages) - 1; i >= 0; i-- {
		var pending []*Unit
		for _, u := range stages[i] {
			if done[u.ID] {
				pending = append(pending, u)
			}
		}
		stopErr = multierr.Append(stopErr, o.stopStage(ctx, pending))
	}

	if stopErr != nil {
		return errs.ShutdownFailed(stopErr)
	}
	return nil
}

func (o *Orchestrator) stopStage(ctx context.Context, stage []*Unit) error {
	var mu sync.Mutex
	var stageErr error
	var g errgroup.Group
	g.SetLimit(o.parallelism)

	for _, u := range stage {
		g.Go(func() error {
			if err := o.stopUnit(ctx, u); err != nil {
				mu.Lock()
				stageErr = multierr.Append(stageErr, err)
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return stageErr
}

func (o *Orchestrator) stopUnit(ctx context.Context, u *Unit) error {
	if u.Destroy == nil {
		return nil
	}

	start := time.Now()
	o.logger.Debug("running destroy hook", "module", u.Module, "token", u.Token)
	err := o.runWithTimeout(ctx, u)

	for _, observe := range o.onDestroy {
		observe(u.Module, u.Token, time.Since(start), err)
	}
	return err
}

func (o *Orchestrator) runWithTimeout(ctx context.Context, u *Unit) error {
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.hookTimeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("panic: %v", r)
			}
		}()
		result <- u.Destroy(hookCtx)
	}()

	select {
	case err := <-result:
		if err != nil {
			return errs.LifecycleFailed(errs.PhaseDestroy, u.ID, err).WithModule(u.Module)
		}
		return nil
	case <-hookCtx.Done():
		o.logger.Warn("destroy hook timed out", "module", u.Module, "token", u.Token, "timeout", o.hookTimeout)
		return errs.Timeout(u.ID, hookCtx.Err()).WithModule(u.Module)
	}
}

// Completed returns unit ids in the order their init hooks finished.
func (o *Orchestrator) Completed() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]string, len(o.completed))
	for i, u := range o.completed {
		ids[i] = u.ID
	}
	return ids
}

func (o *Orchestrator) Stages() [][]*Unit {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stages
}
