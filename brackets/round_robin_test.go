package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRobinTooFewEntrants(t *testing.T) {
	gen := NewRoundRobinGenerator()
	_, err := gen.Build(context.Background(), makeEntrants(1))
	assert.ErrorIs(t, err, ErrNotEnoughEntrants)
}

func TestRoundRobinEvenEntrants(t *testing.T) {
	gen := NewRoundRobinGenerator()
	topo, err := gen.Build(context.Background(), makeEntrants(4))
	require.NoError(t, err)

	assert.Equal(t, 3, topo.Rounds)
	assert.Len(t, topo.Pairs, 6) // 4*3/2

	// В каждом раунде каждый участник играет ровно один раз.
	for round := 1; round <= topo.Rounds; round++ {
		seen := make(map[int]bool)
		for _, pair := range topo.Pairs {
			if pair.Round != round {
				continue
			}
			assert.False(t, seen[pair.Entrant1ID], "round %d: entrant %d plays twice", round, pair.Entrant1ID)
			assert.False(t, seen[pair.Entrant2ID], "round %d: entrant %d plays twice", round, pair.Entrant2ID)
			seen[pair.Entrant1ID] = true
			seen[pair.Entrant2ID] = true
		}
		assert.Len(t, seen, 4, "round %d", round)
	}
}

func TestRoundRobinOddEntrantsEachSitsOnce(t *testing.T) {
	gen := NewRoundRobinGenerator()
	topo, err := gen.Build(context.Background(), makeEntrants(5))
	require.NoError(t, err)

	assert.Equal(t, 5, topo.Rounds)
	assert.Len(t, topo.Pairs, 10) // 5*4/2

	sits := make(map[int]int)
	for round := 1; round <= topo.Rounds; round++ {
		playing := make(map[int]bool)
		for _, pair := range topo.Pairs {
			if pair.Round == round {
				playing[pair.Entrant1ID] = true
				playing[pair.Entrant2ID] = true
			}
		}
		for id := 1; id <= 5; id++ {
			if !playing[id] {
				sits[id]++
			}
		}
	}
	for id := 1; id <= 5; id++ {
		assert.Equal(t, 1, sits[id], "entrant %d must sit out exactly one round", id)
	}
}

func TestRoundRobinAllPairsUnique(t *testing.T) {
	gen := NewRoundRobinGenerator()
	for _, n := range []int{2, 3, 4, 7, 10} {
		topo, err := gen.Build(context.Background(), makeEntrants(n))
		require.NoError(t, err, "n=%d", n)
		require.Len(t, topo.Pairs, n*(n-1)/2, "n=%d", n)

		seen := make(map[string]bool)
		for _, pair := range topo.Pairs {
			lo, hi := pair.Entrant1ID, pair.Entrant2ID
			if lo > hi {
				lo, hi = hi, lo
			}
			key := fmt.Sprintf("%d-%d", lo, hi)
			assert.False(t, seen[key], "n=%d: duplicate pair %s", n, key)
			seen[key] = true
			assert.NotEqual(t, pair.Entrant1ID, pair.Entrant2ID)
		}
	}
}
