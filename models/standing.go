package models

import "time"

// Standing — строка турнирной таблицы кругового формата. Инициализируется
// нулями при генерации сетки и обновляется по конечным исходам матчей.
type Standing struct {
	ID        int       `json:"id" db:"id"`
	BracketID int       `json:"bracket_id" db:"bracket_id"`
	EntrantID int       `json:"entrant_id" db:"entrant_id"`
	Played    int       `json:"played" db:"played"`
	Wins      int       `json:"wins" db:"wins"`
	Losses    int       `json:"losses" db:"losses"`
	Points    int       `json:"points" db:"points"`
	SetsWon   int       `json:"sets_won" db:"sets_won"`
	SetsLost  int       `json:"sets_lost" db:"sets_lost"`
	Rank      *int      `json:"rank,omitempty" db:"rank"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Опционально, заполняется сервисом.
	Entrant *Entrant `json:"entrant,omitempty" db:"-"`
}
