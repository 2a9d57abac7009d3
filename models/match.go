package models

import "time"

type MatchStatus string

const (
	StatusScheduled  MatchStatus = "scheduled"
	StatusInProgress MatchStatus = "in_progress"
	StatusCompleted  MatchStatus = "completed"
	StatusWalkover   MatchStatus = "walkover"
	StatusRetired    MatchStatus = "retired"
	StatusCancelled  MatchStatus = "cancelled"
)

// Valid проверяет, что статус входит в известный набор.
func (s MatchStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted,
		StatusWalkover, StatusRetired, StatusCancelled:
		return true
	}
	return false
}

// Terminal сообщает, является ли статус конечным.
func (s MatchStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusWalkover, StatusRetired, StatusCancelled:
		return true
	}
	return false
}

// Decisive — конечный статус, дающий победителя (отмена победителя не даёт).
func (s MatchStatus) Decisive() bool {
	switch s {
	case StatusCompleted, StatusWalkover, StatusRetired:
		return true
	}
	return false
}

// Match — планируемая единица, привязанная к узлу сетки (или к паре
// кругового турнира). Матчи первого раунда создаются при генерации,
// матчи последующих раундов — лениво, по мере продвижения победителей.
type Match struct {
	ID        int         `json:"id" db:"id"`
	BracketID int         `json:"bracket_id" db:"bracket_id"`
	Side      BracketSide `json:"side" db:"side"`
	Round     int         `json:"round" db:"round"`
	Position  int         `json:"position" db:"position"`

	Entrant1ID *int `json:"entrant1_id,omitempty" db:"entrant1_id"`
	Entrant2ID *int `json:"entrant2_id,omitempty" db:"entrant2_id"`

	Status   MatchStatus `json:"status" db:"status"`
	Score    *Score      `json:"score,omitempty" db:"score"`
	WinnerID *int        `json:"winner_id,omitempty" db:"winner_id"`
	LoserID  *int        `json:"loser_id,omitempty" db:"loser_id"`
	// StatusReason — свободный текст причины конечного статуса:
	// неявка, снятие, отмена.
	StatusReason *string `json:"status_reason,omitempty" db:"status_reason"`

	VenueID     *int       `json:"venue_id,omitempty" db:"venue_id"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// NodeKey возвращает ключ узла сетки, которому принадлежит матч.
func (m *Match) NodeKey() NodeKey {
	return NodeKey{Side: m.Side, Round: m.Round, Position: m.Position}
}

// EntrantSlot возвращает слот (1 или 2), занимаемый участником, или 0.
func (m *Match) EntrantSlot(entrantID int) int {
	if m.Entrant1ID != nil && *m.Entrant1ID == entrantID {
		return 1
	}
	if m.Entrant2ID != nil && *m.Entrant2ID == entrantID {
		return 2
	}
	return 0
}

// SlotEntrantID возвращает участника слота (nil, если слот не заполнен).
func (m *Match) SlotEntrantID(slot int) *int {
	if slot == 1 {
		return m.Entrant1ID
	}
	return m.Entrant2ID
}
