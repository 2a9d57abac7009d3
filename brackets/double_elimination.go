package brackets

import (
	"context"

	"github.com/opencourt/bracket-engine/models"
)

type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() Generator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) Name() string {
	return "DoubleElimination"
}

// Build строит сетку с выбыванием после двух поражений: верхняя сетка
// идентична олимпийской, нижняя принимает каждого проигравшего и сходится
// к гранд-финалу против чемпиона верхней сетки (без переигровки).
//
// Нижняя сетка при размере верхней 2^R состоит из 2(R-1) раундов,
// чередующих два вида: в нечётных раундах играют между собой выжившие
// нижней сетки (раунд 1 — проигравшие первого раунда верхней), в чётных
// («приёмных») победитель предыдущего нижнего раунда встречает
// проигравшего раунда r верхней сетки, упавшего в раунд 2(r-1). Порядок
// приёма разворачивается на чётных верхних раундах, чтобы отложить
// повторные встречи.
func (g *DoubleEliminationGenerator) Build(ctx context.Context, entrants []*models.Entrant) (*Topology, error) {
	if len(entrants) < 2 {
		return nil, ErrNotEnoughEntrants
	}

	nodes, rounds, size := buildWinnersSide(entrants)
	t := &Topology{
		Type:   models.BracketDoubleElimination,
		Rounds: rounds + 1, // верхние раунды плюс гранд-финал
		Nodes:  nodes,
	}

	gfKey := models.NodeKey{Side: models.SideGrandFinal, Round: 1, Position: 0}
	gf := &models.BracketNode{Key: gfKey}
	nodes[gfKey.String()] = gf

	wbFinalKey := models.NodeKey{Side: models.SideWinners, Round: rounds, Position: 0}
	wbFinal := nodes[wbFinalKey.String()]
	wbFinal.NextWin = &models.NodeLink{To: gfKey, Slot: 1}
	gf.Prev1 = &wbFinalKey

	lbRounds := 2 * (rounds - 1)
	if lbRounds == 0 {
		// Два участника: проигравший единственного верхнего матча сразу
		// получает второй шанс в гранд-финале.
		wbFinal.NextLose = &models.NodeLink{To: gfKey, Slot: 2}
		gf.Prev2 = &wbFinalKey
		return t, nil
	}

	for l := 1; l <= lbRounds; l++ {
		k := (l + 1) / 2
		count := size >> uint(k+1)
		for p := 0; p < count; p++ {
			key := models.NodeKey{Side: models.SideLosers, Round: l, Position: p}
			node := &models.BracketNode{Key: key}
			if l%2 == 1 {
				// Победитель нечётного раунда переходит в приёмный раунд
				// на той же позиции, слот 1.
				node.NextWin = &models.NodeLink{
					To:   models.NodeKey{Side: models.SideLosers, Round: l + 1, Position: p},
					Slot: 1,
				}
				if l > 1 {
					prev1 := models.NodeKey{Side: models.SideLosers, Round: l - 1, Position: p * 2}
					prev2 := models.NodeKey{Side: models.SideLosers, Round: l - 1, Position: p*2 + 1}
					node.Prev1 = &prev1
					node.Prev2 = &prev2
				}
			} else {
				prev1 := models.NodeKey{Side: models.SideLosers, Round: l - 1, Position: p}
				node.Prev1 = &prev1
				if l < lbRounds {
					node.NextWin = &models.NodeLink{
						To:   models.NodeKey{Side: models.SideLosers, Round: l + 1, Position: p / 2},
						Slot: p%2 + 1,
					}
				} else {
					node.NextWin = &models.NodeLink{To: gfKey, Slot: 2}
					gf.Prev2 = &key
				}
			}
			nodes[key.String()] = node
		}
	}

	// Связи падения из верхней сетки.
	for r := 1; r <= rounds; r++ {
		count := size >> uint(r)
		for p := 0; p < count; p++ {
			wKey := models.NodeKey{Side: models.SideWinners, Round: r, Position: p}
			wNode := nodes[wKey.String()]
			if r == 1 {
				lKey := models.NodeKey{Side: models.SideLosers, Round: 1, Position: p / 2}
				wNode.NextLose = &models.NodeLink{To: lKey, Slot: p%2 + 1}
				lNode := nodes[lKey.String()]
				if p%2 == 0 {
					lNode.Prev1 = &wKey
				} else {
					lNode.Prev2 = &wKey
				}
				continue
			}
			target := p
			if r%2 == 0 {
				target = count - 1 - p
			}
			lKey := models.NodeKey{Side: models.SideLosers, Round: 2 * (r - 1), Position: target}
			wNode.NextLose = &models.NodeLink{To: lKey, Slot: 2}
			nodes[lKey.String()].Prev2 = &wKey
		}
	}

	cascadeByes(t, map[models.BracketSide]int{
		models.SideWinners: rounds,
		models.SideLosers:  lbRounds,
	})
	return t, nil
}
