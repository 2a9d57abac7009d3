package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencourt/bracket-engine/models"
)

// makeEntrants возвращает n участников в порядке посева: ID i = посев i.
func makeEntrants(n int) []*models.Entrant {
	entrants := make([]*models.Entrant, n)
	for i := 0; i < n; i++ {
		entrants[i] = &models.Entrant{ID: i + 1}
	}
	return entrants
}

func wKey(round, position int) models.NodeKey {
	return models.NodeKey{Side: models.SideWinners, Round: round, Position: position}
}

func TestSeedSlots(t *testing.T) {
	assert.Equal(t, []int{1, 2}, seedSlots(2))
	assert.Equal(t, []int{1, 4, 2, 3}, seedSlots(4))
	assert.Equal(t, []int{1, 8, 4, 5, 2, 7, 3, 6}, seedSlots(8))
}

func TestSingleEliminationTooFewEntrants(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	_, err := gen.Build(context.Background(), makeEntrants(1))
	assert.ErrorIs(t, err, ErrNotEnoughEntrants)
}

func TestSingleEliminationTwoEntrants(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	topo, err := gen.Build(context.Background(), makeEntrants(2))
	require.NoError(t, err)

	assert.Equal(t, 1, topo.Rounds)
	require.Len(t, topo.Nodes, 1)

	final := topo.Node(wKey(1, 0))
	require.NotNil(t, final)
	assert.Equal(t, 1, *final.Entrant1ID)
	assert.Equal(t, 2, *final.Entrant2ID)
	assert.Nil(t, final.NextWin)
}

func TestSingleEliminationFullBracket(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	topo, err := gen.Build(context.Background(), makeEntrants(8))
	require.NoError(t, err)

	assert.Equal(t, 3, topo.Rounds)
	assert.Len(t, topo.Nodes, 7) // 4 + 2 + 1

	// Классическая раскладка: 1 против 8, 4 против 5, 2 против 7, 3 против 6.
	expected := [][2]int{{1, 8}, {4, 5}, {2, 7}, {3, 6}}
	for p, pair := range expected {
		node := topo.Node(wKey(1, p))
		require.NotNil(t, node)
		assert.Equal(t, pair[0], *node.Entrant1ID, "position %d slot 1", p)
		assert.Equal(t, pair[1], *node.Entrant2ID, "position %d slot 2", p)
		assert.Nil(t, node.WinnerID)
	}
}

func TestSingleEliminationLinkInvariants(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	topo, err := gen.Build(context.Background(), makeEntrants(8))
	require.NoError(t, err)

	finals := 0
	for _, node := range topo.Nodes {
		if node.NextWin == nil {
			finals++
			continue
		}
		target := topo.Node(node.NextWin.To)
		require.NotNil(t, target, "node %s links to missing node %s", node.Key, node.NextWin.To)
		assert.Contains(t, []int{1, 2}, node.NextWin.Slot)

		// Обратная связь согласована.
		if node.NextWin.Slot == 1 {
			assert.Equal(t, node.Key, *target.Prev1)
		} else {
			assert.Equal(t, node.Key, *target.Prev2)
		}
	}
	assert.Equal(t, 1, finals, "exactly one final node")
}

func TestSingleEliminationFiveEntrantsByes(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	topo, err := gen.Build(context.Background(), makeEntrants(5))
	require.NoError(t, err)

	assert.Equal(t, 3, topo.Rounds)

	// Единственная реальная пара первого раунда: 4 против 5.
	real := topo.Node(wKey(1, 1))
	require.NotNil(t, real)
	assert.Equal(t, 4, *real.Entrant1ID)
	assert.Equal(t, 5, *real.Entrant2ID)
	assert.Nil(t, real.WinnerID)

	// Остальные три узла первого раунда разрешены bye при построении.
	for _, tc := range []struct {
		position int
		winner   int
	}{
		{0, 1}, {2, 2}, {3, 3},
	} {
		node := topo.Node(wKey(1, tc.position))
		require.NotNil(t, node)
		require.NotNil(t, node.WinnerID, "bye node at position %d must be resolved", tc.position)
		assert.Equal(t, tc.winner, *node.WinnerID)
	}

	// Победители bye доставлены во второй раунд: посевы 2 и 3 уже встретились.
	semifinal := topo.Node(wKey(2, 1))
	require.NotNil(t, semifinal)
	assert.Equal(t, 2, *semifinal.Entrant1ID)
	assert.Equal(t, 3, *semifinal.Entrant2ID)

	// Первый посев ждёт победителя пары 4-5.
	other := topo.Node(wKey(2, 0))
	require.NotNil(t, other)
	assert.Equal(t, 1, *other.Entrant1ID)
	assert.Nil(t, other.Entrant2ID)
	assert.False(t, other.Bye2)
}

func TestSingleEliminationNoByeVersusBye(t *testing.T) {
	// При любом числе участников два bye не должны встречаться в верхней
	// сетке первого раунда.
	gen := NewSingleEliminationGenerator()
	for n := 2; n <= 33; n++ {
		topo, err := gen.Build(context.Background(), makeEntrants(n))
		require.NoError(t, err)
		for p := 0; ; p++ {
			node := topo.Node(wKey(1, p))
			if node == nil {
				break
			}
			assert.False(t, node.Bye1 && node.Bye2, "n=%d: double bye at position %d", n, p)
		}
	}
}
