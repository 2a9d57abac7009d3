package models

import "time"

// SeedingMethod определяет порядок рассадки участников перед построением сетки.
type SeedingMethod string

const (
	SeedingRanking  SeedingMethod = "ranking"
	SeedingManual   SeedingMethod = "manual"
	SeedingRandom   SeedingMethod = "random"
	SeedingRegional SeedingMethod = "regional"
)

func (m SeedingMethod) Valid() bool {
	switch m {
	case SeedingRanking, SeedingManual, SeedingRandom, SeedingRegional:
		return true
	}
	return false
}

// Entrant — одна соревновательная единица: игрок или фиксированная пара.
// Для пары Rating хранит усреднённый рейтинг. После генерации сетки
// список участников неизменяем.
type Entrant struct {
	ID         int       `json:"id" db:"id"`
	CategoryID int       `json:"category_id" db:"category_id"`
	Name       string    `json:"name" db:"name"`
	Rating     float64   `json:"rating" db:"rating"`
	Seed       *int      `json:"seed,omitempty" db:"seed"`
	Region     *string   `json:"region,omitempty" db:"region"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
