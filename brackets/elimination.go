package brackets

import (
	"errors"
	"math"

	"github.com/opencourt/bracket-engine/models"
)

var ErrNotEnoughEntrants = errors.New("not enough entrants to generate a bracket (minimum 2)")

// seedSlots возвращает порядок посева для полной сетки размера size:
// слот i получает посев seedSlots[i] (нумерация посевов с 1). Классическая
// раскладка: первый и второй посевы в противоположных половинах сетки,
// а синтетические bye (младшие посевы) встречаются со старшими. Парная
// рассадка списка «как есть» сводила бы два bye в один узел.
func seedSlots(size int) []int {
	slots := []int{1}
	for len(slots) < size {
		doubled := make([]int, 0, len(slots)*2)
		mirror := len(slots)*2 + 1
		for _, s := range slots {
			doubled = append(doubled, s, mirror-s)
		}
		slots = doubled
	}
	return slots
}

// buildWinnersSide строит верхнюю сетку: R = ceil(log2 n) раундов,
// от size/2 узлов в первом раунде до одного в последнем. Узел раунда r
// позиции p передаёт победителя в раунд r+1 позицию p/2.
func buildWinnersSide(entrants []*models.Entrant) (nodes map[string]*models.BracketNode, rounds, size int) {
	n := len(entrants)
	rounds = int(math.Ceil(math.Log2(float64(n))))
	size = 1 << uint(rounds)

	nodes = make(map[string]*models.BracketNode, size-1)
	for r := 1; r <= rounds; r++ {
		count := size >> uint(r)
		for p := 0; p < count; p++ {
			key := models.NodeKey{Side: models.SideWinners, Round: r, Position: p}
			node := &models.BracketNode{Key: key}
			if r < rounds {
				node.NextWin = &models.NodeLink{
					To:   models.NodeKey{Side: models.SideWinners, Round: r + 1, Position: p / 2},
					Slot: p%2 + 1,
				}
			}
			if r > 1 {
				prev1 := models.NodeKey{Side: models.SideWinners, Round: r - 1, Position: p * 2}
				prev2 := models.NodeKey{Side: models.SideWinners, Round: r - 1, Position: p*2 + 1}
				node.Prev1 = &prev1
				node.Prev2 = &prev2
			}
			nodes[key.String()] = node
		}
	}

	order := seedSlots(size)
	for i := 0; i < size; i++ {
		key := models.NodeKey{Side: models.SideWinners, Round: 1, Position: i / 2}
		node := nodes[key.String()]
		if seed := order[i]; seed <= n {
			id := entrants[seed-1].ID
			node.SetSlot(i%2+1, &id, false)
		} else {
			node.SetSlot(i%2+1, nil, true)
		}
	}
	return nodes, rounds, size
}

// cascadeByes разрешает узлы с bye сразу после построения: единственный
// реальный участник объявляется победителем узла и доставляется дальше по
// NextWin, а по NextLose (нижняя сетка) уходит bye. Узел из двух bye
// пропускает bye дальше без победителя. Матчи для таких узлов не создаются.
func cascadeByes(t *Topology, sideRounds map[models.BracketSide]int) {
	for _, side := range []models.BracketSide{models.SideWinners, models.SideLosers} {
		for r := 1; r <= sideRounds[side]; r++ {
			for p := 0; ; p++ {
				node := t.Node(models.NodeKey{Side: side, Round: r, Position: p})
				if node == nil {
					break
				}
				resolveByeNode(t, node)
			}
		}
	}
}

func resolveByeNode(t *Topology, node *models.BracketNode) {
	if node.WinnerID != nil {
		return
	}
	winner, isBye := node.ByeOpponent()
	if !isBye {
		return
	}
	// winner == nil, когда в узле встретились два bye.
	node.WinnerID = winner
	if node.NextWin != nil {
		if target := t.Node(node.NextWin.To); target != nil {
			target.SetSlot(node.NextWin.Slot, winner, winner == nil)
		}
	}
	if node.NextLose != nil {
		if target := t.Node(node.NextLose.To); target != nil {
			target.SetSlot(node.NextLose.Slot, nil, true)
		}
	}
}
