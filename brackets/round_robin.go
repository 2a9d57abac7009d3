package brackets

import (
	"context"

	"github.com/opencourt/bracket-engine/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() Generator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Name() string {
	return "RoundRobin"
}

// Build создаёт каждую неупорядоченную пару участников ровно один раз —
// n(n-1)/2 матчей. Раунды распределяются методом круга: первый участник
// закреплён, остальные вращаются; при нечётном n добавляется фантомный
// слот, так что каждый участник пропускает ровно один раунд.
func (g *RoundRobinGenerator) Build(ctx context.Context, entrants []*models.Entrant) (*Topology, error) {
	n := len(entrants)
	if n < 2 {
		return nil, ErrNotEnoughEntrants
	}

	ids := make([]int, 0, n+1)
	for _, e := range entrants {
		ids = append(ids, e.ID)
	}
	if n%2 != 0 {
		ids = append(ids, 0) // фантомный слот, 0 — «сидит раунд»
	}
	slots := len(ids)
	roundCount := slots - 1
	half := slots / 2

	pairs := make([]models.RoundRobinPair, 0, n*(n-1)/2)
	for round := 1; round <= roundCount; round++ {
		for i := 0; i < half; i++ {
			p1 := ids[i]
			p2 := ids[slots-1-i]
			if p1 == 0 || p2 == 0 {
				continue
			}
			pairs = append(pairs, models.RoundRobinPair{
				Round:      round,
				Entrant1ID: p1,
				Entrant2ID: p2,
			})
		}
		// Вращение с закреплённым первым элементом.
		ids = append([]int{ids[0], ids[slots-1]}, ids[1:slots-1]...)
	}

	return &Topology{
		Type:   models.BracketRoundRobin,
		Rounds: roundCount,
		Pairs:  pairs,
	}, nil
}
