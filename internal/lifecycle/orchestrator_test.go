package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/stitch/internal/errs"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) unit(id string) *Unit {
	return &Unit{
		ID:     "app/" + id,
		Module: "app",
		Token:  id,
		Init: func(context.Context) error {
			r.add("init:" + id)
			return nil
		},
		Destroy: func(context.Context) error {
			r.add("destroy:" + id)
			return nil
		},
	}
}

func TestOrchestrator_LinearChain(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	plan := NewPlan()
	plan.Add(rec.unit("A"), []string{"app/B"}, nil)
	plan.Add(rec.unit("B"), []string{"app/C"}, nil)
	plan.Add(rec.unit("C"), nil, nil)

	o := New(&Config{})
	require.NoError(t, o.Start(context.Background(), plan))
	assert.Equal(t, []string{"app/C", "app/B", "app/A"}, o.Completed())

	require.NoError(t, o.Stop(context.Background()))
	assert.Equal(t, []string{
		"init:C", "init:B", "init:A",
		"destroy:A", "destroy:B", "destroy:C",
	}, rec.snapshot())

	require.NoError(t, o.Stop(context.Background()))
	assert.Len(t, rec.snapshot(), 6)
}

func TestOrchestrator_OrderingEdges(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	plan := NewPlan()
	plan.Add(rec.unit("feature"), nil, []string{"app/config"})
	plan.Add(rec.unit("config"), nil, nil)

	o := New(&Config{})
	require.NoError(t, o.Start(context.Background(), plan))
	assert.Equal(t, []string{"init:config", "init:feature"}, rec.snapshot())
}

func TestOrchestrator_ContradictingOrderingEdgesAreDropped(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	plan := NewPlan()
	plan.Add(rec.unit("a"), []string{"app/b"}, nil)
	plan.Add(rec.unit("b"), nil, []string{"app/a"})

	o := New(&Config{})
	require.NoError(t, o.Start(context.Background(), plan))
	assert.Equal(t, []string{"init:b", "init:a"}, rec.snapshot())
}

func TestOrchestrator_SiblingsRunConcurrently(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32
	plan := NewPlan()
	for _, id := range []string{"a", "b", "c", "d"} {
		plan.Add(&Unit{
			ID: "app/" + id,
			Init: func(context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				running.Add(-1)
				return nil
			},
		}, nil, nil)
	}

	o := New(&Config{Parallelism: 2})
	require.NoError(t, o.Start(context.Background(), plan))
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestOrchestrator_RollbackOnInitFailure(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	cause := errors.New("migration failed")

	plan := NewPlan()
	plan.Add(rec.unit("s1"), nil, nil)
	plan.Add(rec.unit("s2"), nil, nil)
	failing := rec.unit("broken")
	failing.Init = func(context.Context) error {
		rec.add("init:broken")
		return cause
	}
	plan.Add(failing, []string{"app/s1", "app/s2"}, nil)

	var destroyed atomic.Int32
	o := New(&Config{
		OnDestroy: []Observer{func(string, string, time.Duration, error) { destroyed.Add(1) }},
	})
	err := o.Start(context.Background(), plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)

	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errs.CodeLifecycleFailed, e.Code)
	assert.Equal(t, errs.PhaseInit, e.Phase)
	assert.Equal(t, "app/broken", e.Token)

	events := rec.snapshot()
	assert.Contains(t, events, "destroy:s1")
	assert.Contains(t, events, "destroy:s2")
	assert.NotContains(t, events, "destroy:broken")
	assert.Equal(t, int32(2), destroyed.Load())

	require.NoError(t, o.Stop(context.Background()))
	assert.Equal(t, int32(2), destroyed.Load())
}

func TestOrchestrator_RollbackIsReverseCompletionOrder(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	plan := NewPlan()
	plan.Add(rec.unit("a"), nil, nil)
	plan.Add(rec.unit("b"), []string{"app/a"}, nil)
	failing := &Unit{ID: "app/c", Init: func(context.Context) error { return errors.New("boom") }}
	plan.Add(failing, []string{"app/b"}, nil)

	o := New(&Config{})
	require.Error(t, o.Start(context.Background(), plan))
	assert.Equal(t, []string{"init:a", "init:b", "destroy:b", "destroy:a"}, rec.snapshot())
}

func TestOrchestrator_RollbackErrorsAreNotReturned(t *testing.T) {
	t.Parallel()

	cause := errors.New("init failed")
	plan := NewPlan()
	plan.Add(&Unit{
		ID:      "app/a",
		Destroy: func(context.Context) error { return errors.New("destroy failed") },
	}, nil, nil)
	plan.Add(&Unit{ID: "app/b", Init: func(context.Context) error { return cause }}, []string{"app/a"}, nil)

	o := New(&Config{})
	err := o.Start(context.Background(), plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "destroy failed")
}

func TestOrchestrator_StopAggregatesErrors(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	plan := NewPlan()
	for _, id := range []string{"a", "b", "c"} {
		u := rec.unit(id)
		if id != "b" {
			name := id
			u.Destroy = func(context.Context) error {
				rec.add("destroy:" + name)
				return errors.New(name + " failed")
			}
		}
		plan.Add(u, nil, nil)
	}

	o := New(&Config{})
	require.NoError(t, o.Start(context.Background(), plan))

	err := o.Stop(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Has(err, errs.CodeShutdownFailed))
	assert.Contains(t, err.Error(), "a failed")
	assert.Contains(t, err.Error(), "c failed")

	events := rec.snapshot()
	assert.Contains(t, events, "destroy:a")
	assert.Contains(t, events, "destroy:b")
	assert.Contains(t, events, "destroy:c")
}

func TestOrchestrator_DestroyTimeout(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	plan := NewPlan()
	plan.Add(&Unit{
		ID: "app/slow",
		Destroy: func(context.Context) error {
			time.Sleep(time.Second)
			return nil
		},
	}, []string{"app/fast"}, nil)
	plan.Add(rec.unit("fast"), nil, nil)

	o := New(&Config{HookTimeout: 20 * time.Millisecond})
	require.NoError(t, o.Start(context.Background(), plan))

	start := time.Now()
	err := o.Stop(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, errs.Has(err, errs.CodeShutdownFailed))
	assert.Contains(t, err.Error(), errs.CodeTimeout.String())
	assert.Contains(t, rec.snapshot(), "destroy:fast")
}

func TestOrchestrator_DestroyPanicIsRecorded(t *testing.T) {
	t.Parallel()

	plan := NewPlan()
	plan.Add(&Unit{ID: "app/p", Destroy: func(context.Context) error { panic("bad") }}, nil, nil)

	o := New(&Config{})
	require.NoError(t, o.Start(context.Background(), plan))

	err := o.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: bad")
}

func TestOrchestrator_Cycle(t *testing.T) {
	t.Parallel()

	plan := NewPlan()
	plan.Add(&Unit{ID: "a"}, []string{"b"}, nil)
	plan.Add(&Unit{ID: "b"}, []string{"a"}, nil)

	err := New(&Config{}).Start(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, errs.Has(err, errs.CodeCircularDependency))
}

func TestOrchestrator_InitObservers(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []string
	o := New(&Config{
		OnInit: []Observer{func(module, token string, _ time.Duration, err error) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, module+"/"+token)
		}},
	})

	rec := &recorder{}
	plan := NewPlan()
	plan.Add(rec.unit("x"), nil, nil)
	require.NoError(t, o.Start(context.Background(), plan))
	assert.Equal(t, []string{"app/x"}, seen)
}
