package brackets

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencourt/bracket-engine/models"
)

func entrant(id int, rating float64) *models.Entrant {
	return &models.Entrant{ID: id, Rating: rating}
}

func entrantIDs(entrants []*models.Entrant) []int {
	ids := make([]int, len(entrants))
	for i, e := range entrants {
		ids[i] = e.ID
	}
	return ids
}

func TestSeedEmptyList(t *testing.T) {
	_, err := Seed(nil, models.SeedingRanking, nil)
	assert.ErrorIs(t, err, ErrNoEntrants)
}

func TestSeedRankingSortsByRatingDescending(t *testing.T) {
	entrants := []*models.Entrant{
		entrant(1, 1200),
		entrant(2, 1800),
		entrant(3, 1500),
		entrant(4, 2100),
	}

	seeded, err := Seed(entrants, models.SeedingRanking, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2, 3, 1}, entrantIDs(seeded))
	// Исходный срез не тронут.
	assert.Equal(t, []int{1, 2, 3, 4}, entrantIDs(entrants))
}

func TestSeedRankingStableOnEqualRatings(t *testing.T) {
	entrants := []*models.Entrant{
		entrant(1, 1500),
		entrant(2, 1500),
		entrant(3, 1500),
	}

	seeded, err := Seed(entrants, models.SeedingRanking, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, entrantIDs(seeded))
}

func TestSeedManualPlacesSeededFirstUnseededLast(t *testing.T) {
	seed2, seed1 := 2, 1
	entrants := []*models.Entrant{
		{ID: 10},
		{ID: 11, Seed: &seed2},
		{ID: 12},
		{ID: 13, Seed: &seed1},
	}

	seeded, err := Seed(entrants, models.SeedingManual, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{13, 11, 10, 12}, entrantIDs(seeded))
}

func TestSeedRandomReproducibleWithSameSource(t *testing.T) {
	entrants := []*models.Entrant{
		entrant(1, 0), entrant(2, 0), entrant(3, 0), entrant(4, 0), entrant(5, 0),
	}

	first, err := Seed(entrants, models.SeedingRandom, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	second, err := Seed(entrants, models.SeedingRandom, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	assert.Equal(t, entrantIDs(first), entrantIDs(second))
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, entrantIDs(first))
}

func TestSeedRegionalSeparatesSameRegion(t *testing.T) {
	north, south := "north", "south"
	entrants := []*models.Entrant{
		{ID: 1, Region: &north},
		{ID: 2, Region: &north},
		{ID: 3, Region: &south},
		{ID: 4, Region: &south},
	}

	seeded, err := Seed(entrants, models.SeedingRegional, nil)
	require.NoError(t, err)
	// Регионы чередуются: соседние участники из разных регионов.
	assert.Equal(t, []int{1, 3, 2, 4}, entrantIDs(seeded))
}

func TestSeedUnknownMethod(t *testing.T) {
	_, err := Seed([]*models.Entrant{entrant(1, 0)}, models.SeedingMethod("coin_flip"), nil)
	assert.Error(t, err)
}
