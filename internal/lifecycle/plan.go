package lifecycle

import (
	"context"
	"errors"

	"github.com/danpasecinic/stitch/internal/graph"
)

type Hook func(ctx context.Context) error

// Unit is one provider instance taking part in startup and shutdown.
type Unit struct {
	ID      string
	Module  string
	Token   string
	Init    Hook
	Destroy Hook
}

// Plan collects units with their ordering constraints. Dependencies are hard
// edges; ordering edges (module import order) are honoured when they do not
// contradict the dependency edges.
type Plan struct {
	units    map[string]*Unit
	deps     *graph.Graph
	combined *graph.Graph
}

func NewPlan() *Plan {
	return &Plan{
		units:    make(map[string]*Unit),
		deps:     graph.New(),
		combined: graph.New(),
	}
}

func (p *Plan) Add(u *Unit, dependsOn, after []string) {
	p.units[u.ID] = u
	p.deps.AddNode(u.ID, dependsOn)
	p.combined.AddNode(u.ID, append(append([]string(nil), dependsOn...), after...))
}

func (p *Plan) Len() int {
	return len(p.units)
}

// Stages returns units grouped into levels. Levels run in sequence and units
// inside a level never depend on each other.
func (p *Plan) Stages() ([][]*Unit, error) {
	groups, err := p.combined.Levels()
	if errors.Is(err, graph.ErrCycleDetected) {
		groups, err = p.deps.Levels()
	}
	if err != nil {
		return nil, err
	}

	stages := make([][]*Unit, 0, len(groups))
	for _, group := range groups {
		stage := make([]*Unit, 0, len(group))
		for _, id := range group {
			if u, ok := p.units[id]; ok {
				stage = append(stage, u)
			}
		}
		if len(stage) > 0 {
			stages = append(stages, stage)
		}
	}
	return stages, nil
}

// Cycle returns one dependency cycle among the units, or nil.
func (p *Plan) Cycle() []string {
	paths := p.deps.Cycles()
	if len(paths) == 0 {
		return nil
	}
	return paths[0]
}
