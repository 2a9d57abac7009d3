package brackets

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/opencourt/bracket-engine/models"
)

var ErrNoEntrants = errors.New("cannot seed an empty entrant list")

// Seed возвращает стабильный порядок участников для размещения в сетке.
// Исходный срез не изменяется. Для random-рассадки можно передать свой
// источник случайности, чтобы жеребьёвка была воспроизводимой; nil
// означает источник, затравленный текущим временем.
func Seed(entrants []*models.Entrant, method models.SeedingMethod, rng *rand.Rand) ([]*models.Entrant, error) {
	if len(entrants) == 0 {
		return nil, ErrNoEntrants
	}

	seeded := make([]*models.Entrant, len(entrants))
	copy(seeded, entrants)

	switch method {
	case models.SeedingRanking:
		sort.SliceStable(seeded, func(i, j int) bool {
			return seeded[i].Rating > seeded[j].Rating
		})
	case models.SeedingManual:
		// Посеянные по возрастанию номера, непосеянные в конце с
		// сохранением исходного порядка.
		sort.SliceStable(seeded, func(i, j int) bool {
			si, sj := seeded[i].Seed, seeded[j].Seed
			switch {
			case si != nil && sj != nil:
				return *si < *sj
			case si != nil:
				return true
			default:
				return false
			}
		})
	case models.SeedingRandom:
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		for i := len(seeded) - 1; i > 0; i-- {
			j := rng.Intn(i + 1)
			seeded[i], seeded[j] = seeded[j], seeded[i]
		}
	case models.SeedingRegional:
		seeded = interleaveByRegion(seeded)
	default:
		return nil, errors.New("unknown seeding method '" + string(method) + "'")
	}

	return seeded, nil
}

// interleaveByRegion группирует участников по региону и чередует группы
// по кругу, чтобы участники одного региона расходились по разным частям
// сетки. Группы идут в порядке первого появления региона.
func interleaveByRegion(entrants []*models.Entrant) []*models.Entrant {
	groups := make(map[string][]*models.Entrant)
	order := make([]string, 0)
	for _, e := range entrants {
		region := ""
		if e.Region != nil {
			region = *e.Region
		}
		if _, ok := groups[region]; !ok {
			order = append(order, region)
		}
		groups[region] = append(groups[region], e)
	}

	result := make([]*models.Entrant, 0, len(entrants))
	for len(result) < len(entrants) {
		for _, region := range order {
			if len(groups[region]) == 0 {
				continue
			}
			result = append(result, groups[region][0])
			groups[region] = groups[region][1:]
		}
	}
	return result
}
