package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencourt/bracket-engine/models"
)

func lKey(round, position int) models.NodeKey {
	return models.NodeKey{Side: models.SideLosers, Round: round, Position: position}
}

var grandFinalKey = models.NodeKey{Side: models.SideGrandFinal, Round: 1, Position: 0}

func TestDoubleEliminationTwoEntrants(t *testing.T) {
	gen := NewDoubleEliminationGenerator()
	topo, err := gen.Build(context.Background(), makeEntrants(2))
	require.NoError(t, err)

	assert.Equal(t, 2, topo.Rounds)
	require.Len(t, topo.Nodes, 2)

	wbFinal := topo.Node(wKey(1, 0))
	require.NotNil(t, wbFinal)
	require.NotNil(t, wbFinal.NextWin)
	require.NotNil(t, wbFinal.NextLose)
	assert.Equal(t, grandFinalKey, wbFinal.NextWin.To)
	assert.Equal(t, 1, wbFinal.NextWin.Slot)
	assert.Equal(t, grandFinalKey, wbFinal.NextLose.To)
	assert.Equal(t, 2, wbFinal.NextLose.Slot)

	gf := topo.Node(grandFinalKey)
	require.NotNil(t, gf)
	assert.Nil(t, gf.NextWin)
}

func TestDoubleEliminationEightEntrantsStructure(t *testing.T) {
	gen := NewDoubleEliminationGenerator()
	topo, err := gen.Build(context.Background(), makeEntrants(8))
	require.NoError(t, err)

	// 3 верхних раунда плюс гранд-финал.
	assert.Equal(t, 4, topo.Rounds)
	// Верхняя сетка 7 узлов, нижняя 2+2+1+1, гранд-финал.
	assert.Len(t, topo.Nodes, 14)

	expectedCounts := map[int]int{1: 2, 2: 2, 3: 1, 4: 1}
	for round, want := range expectedCounts {
		got := 0
		for p := 0; ; p++ {
			if topo.Node(lKey(round, p)) == nil {
				break
			}
			got++
		}
		assert.Equal(t, want, got, "losers round %d node count", round)
	}

	// Финал нижней сетки ведёт во второй слот гранд-финала.
	lbFinal := topo.Node(lKey(4, 0))
	require.NotNil(t, lbFinal)
	require.NotNil(t, lbFinal.NextWin)
	assert.Equal(t, grandFinalKey, lbFinal.NextWin.To)
	assert.Equal(t, 2, lbFinal.NextWin.Slot)
}

func TestDoubleEliminationEveryWinnersNodeDropsALoser(t *testing.T) {
	gen := NewDoubleEliminationGenerator()
	topo, err := gen.Build(context.Background(), makeEntrants(8))
	require.NoError(t, err)

	drops := make(map[string]int)
	for _, node := range topo.Nodes {
		if node.Key.Side != models.SideWinners {
			continue
		}
		require.NotNil(t, node.NextLose, "winners node %s has no drop link", node.Key)
		target := topo.Node(node.NextLose.To)
		require.NotNil(t, target, "drop link of %s points to missing node", node.Key)
		assert.Equal(t, models.SideLosers, node.NextLose.To.Side)
		drops[fmt.Sprintf("%s slot %d", node.NextLose.To, node.NextLose.Slot)]++
	}

	// Никакие два верхних узла не роняют проигравших в один и тот же слот.
	for slot, count := range drops {
		assert.Equal(t, 1, count, "slot %s receives multiple losers", slot)
	}
}

func TestDoubleEliminationDropOrderReversedOnEvenRounds(t *testing.T) {
	gen := NewDoubleEliminationGenerator()
	topo, err := gen.Build(context.Background(), makeEntrants(8))
	require.NoError(t, err)

	// Второй верхний раунд (чётный): порядок приёма развёрнут.
	assert.Equal(t, lKey(2, 1), topo.Node(wKey(2, 0)).NextLose.To)
	assert.Equal(t, lKey(2, 0), topo.Node(wKey(2, 1)).NextLose.To)
	// Третий (нечётный): прямой порядок.
	assert.Equal(t, lKey(4, 0), topo.Node(wKey(3, 0)).NextLose.To)
}

func TestDoubleEliminationFiveEntrantsByeCascade(t *testing.T) {
	gen := NewDoubleEliminationGenerator()
	topo, err := gen.Build(context.Background(), makeEntrants(5))
	require.NoError(t, err)

	// Проигравшие трёх bye-узлов первого раунда — сами bye. Пара bye в
	// L1.1 разрешается без победителя и пропускает bye дальше.
	doubleBye := topo.Node(lKey(1, 1))
	require.NotNil(t, doubleBye)
	assert.True(t, doubleBye.Bye1)
	assert.True(t, doubleBye.Bye2)
	assert.Nil(t, doubleBye.WinnerID)

	receiving := topo.Node(lKey(2, 1))
	require.NotNil(t, receiving)
	assert.True(t, receiving.Bye1, "bye must cascade into the receiving round")
	assert.Nil(t, receiving.Entrant2ID, "slot 2 waits for an upper-bracket loser")

	// L1.0 ждёт проигравшего реальной пары 4-5 во втором слоте.
	waiting := topo.Node(lKey(1, 0))
	require.NotNil(t, waiting)
	assert.True(t, waiting.Bye1)
	assert.Nil(t, waiting.Entrant2ID)
	assert.Nil(t, waiting.WinnerID)
}

func TestDoubleEliminationLinkInvariants(t *testing.T) {
	gen := NewDoubleEliminationGenerator()
	for _, n := range []int{2, 3, 4, 5, 8, 16} {
		topo, err := gen.Build(context.Background(), makeEntrants(n))
		require.NoError(t, err, "n=%d", n)

		finals := 0
		for _, node := range topo.Nodes {
			if node.NextWin == nil {
				finals++
				assert.Equal(t, models.SideGrandFinal, node.Key.Side, "n=%d: only the grand final is terminal", n)
				continue
			}
			assert.NotNil(t, topo.Node(node.NextWin.To), "n=%d: node %s links to missing node", n, node.Key)
			assert.Contains(t, []int{1, 2}, node.NextWin.Slot)
		}
		assert.Equal(t, 1, finals, "n=%d", n)
	}
}
