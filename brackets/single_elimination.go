package brackets

import (
	"context"

	"github.com/opencourt/bracket-engine/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

// Build строит олимпийскую сетку: n участников, ceil(log2 n) раундов,
// список дополняется bye до полного размера 2^R. Узлы с bye разрешаются
// сразу, их победители доставляются в следующий раунд при построении.
func (g *SingleEliminationGenerator) Build(ctx context.Context, entrants []*models.Entrant) (*Topology, error) {
	if len(entrants) < 2 {
		return nil, ErrNotEnoughEntrants
	}

	nodes, rounds, _ := buildWinnersSide(entrants)
	t := &Topology{
		Type:   models.BracketSingleElimination,
		Rounds: rounds,
		Nodes:  nodes,
	}
	cascadeByes(t, map[models.BracketSide]int{models.SideWinners: rounds})
	return t, nil
}
