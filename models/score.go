package models

import (
	"errors"
	"fmt"
)

var (
	ErrScoreNoSets           = errors.New("score must contain at least one set")
	ErrScoreNegativeGames    = errors.New("set score cannot contain negative games")
	ErrScoreWinnerSlotNeeded = errors.New("walkover or retirement score requires an explicit winner slot")
	ErrScoreWinnerSlotRange  = errors.New("winner slot must be 1 or 2")
	ErrScoreAmbiguousOutcome = errors.New("score cannot be both a walkover and a retirement")
	ErrScoreNoMajority       = errors.New("score does not contain a strict set majority")
)

// SetScore — счёт одного сета, геймы первого и второго слота.
type SetScore struct {
	Entrant1 int `json:"entrant1"`
	Entrant2 int `json:"entrant2"`
}

// Score — полезная нагрузка счёта матча. Ровно один путь определения
// победителя активен: либо подсчёт сетов, либо явный слот при
// walkover/retirement.
type Score struct {
	Sets             []SetScore `json:"sets"`
	Walkover         bool       `json:"walkover,omitempty"`
	Retired          bool       `json:"retired,omitempty"`
	WinnerSlot       int        `json:"winner_slot,omitempty"`
	RetiredEntrantID *int       `json:"retired_entrant_id,omitempty"`
}

// Validate проверяет синтаксическую корректность счёта.
func (s *Score) Validate() error {
	if s == nil {
		return errors.New("score is required")
	}
	if s.Walkover && s.Retired {
		return ErrScoreAmbiguousOutcome
	}
	for _, set := range s.Sets {
		if set.Entrant1 < 0 || set.Entrant2 < 0 {
			return ErrScoreNegativeGames
		}
	}
	if s.Walkover || s.Retired {
		if s.WinnerSlot == 0 {
			return ErrScoreWinnerSlotNeeded
		}
		if s.WinnerSlot != 1 && s.WinnerSlot != 2 {
			return ErrScoreWinnerSlotRange
		}
		if s.Walkover && len(s.Sets) > 0 {
			return errors.New("walkover score must not contain sets")
		}
		return nil
	}
	if len(s.Sets) == 0 {
		return ErrScoreNoSets
	}
	return nil
}

// SetsWon возвращает количество выигранных сетов каждым слотом.
// Незавершённые (равные) сеты не засчитываются никому.
func (s *Score) SetsWon() (slot1, slot2 int) {
	for _, set := range s.Sets {
		switch {
		case set.Entrant1 > set.Entrant2:
			slot1++
		case set.Entrant2 > set.Entrant1:
			slot2++
		}
	}
	return slot1, slot2
}

// DetermineWinnerSlot определяет победителя: явный слот при
// walkover/retirement, иначе строгое большинство сетов при best-of-N.
func (s *Score) DetermineWinnerSlot(bestOf int) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	if s.Walkover || s.Retired {
		return s.WinnerSlot, nil
	}
	if bestOf < 1 || bestOf%2 == 0 {
		return 0, fmt.Errorf("invalid best-of setting %d: must be a positive odd number", bestOf)
	}
	need := bestOf/2 + 1
	won1, won2 := s.SetsWon()
	switch {
	case won1 >= need:
		return 1, nil
	case won2 >= need:
		return 2, nil
	}
	return 0, fmt.Errorf("%w: %d-%d in sets, %d needed", ErrScoreNoMajority, won1, won2, need)
}
