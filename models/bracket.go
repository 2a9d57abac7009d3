package models

import (
	"fmt"
	"time"
)

// BracketType представляет типы сетки, соответствующие ENUM в БД.
type BracketType string

const (
	BracketSingleElimination BracketType = "single_elimination"
	BracketDoubleElimination BracketType = "double_elimination"
	BracketRoundRobin        BracketType = "round_robin"
)

func (t BracketType) Valid() bool {
	switch t {
	case BracketSingleElimination, BracketDoubleElimination, BracketRoundRobin:
		return true
	}
	return false
}

// BracketSide — часть сетки, к которой принадлежит узел. Для single
// elimination всегда верхняя сетка.
type BracketSide string

const (
	SideWinners    BracketSide = "W"
	SideLosers     BracketSide = "L"
	SideGrandFinal BracketSide = "GF"
	SideRoundRobin BracketSide = "RR"
)

// NodeKey адресует узел сетки по (сторона, раунд, позиция). Граф хранится
// как карта по этим ключам, а не как объектные ссылки, чтобы его можно
// было сериализовать и изменять по id.
type NodeKey struct {
	Side     BracketSide `json:"side"`
	Round    int         `json:"round"`
	Position int         `json:"position"`
}

func (k NodeKey) String() string {
	return fmt.Sprintf("%s%d.%d", k.Side, k.Round, k.Position)
}

// NodeLink — направленная связь на слот другого узла.
type NodeLink struct {
	To   NodeKey `json:"to"`
	Slot int     `json:"slot"` // 1 или 2
}

// BracketNode — один слот в графе олимпийской сетки. Создаётся один раз
// при генерации; после этого узлы изменяет только продвижение победителей.
type BracketNode struct {
	Key        NodeKey `json:"key"`
	Entrant1ID *int    `json:"entrant1_id,omitempty"`
	Entrant2ID *int    `json:"entrant2_id,omitempty"`
	Bye1       bool    `json:"bye1,omitempty"`
	Bye2       bool    `json:"bye2,omitempty"`
	WinnerID   *int    `json:"winner_id,omitempty"`

	// NextWin — куда уходит победитель (nil для финального узла).
	// NextLose заполняется только в верхней сетке double elimination.
	NextWin  *NodeLink `json:"next_win,omitempty"`
	NextLose *NodeLink `json:"next_lose,omitempty"`
	Prev1    *NodeKey  `json:"prev1,omitempty"`
	Prev2    *NodeKey  `json:"prev2,omitempty"`
}

// SetSlot помещает участника (или bye) в указанный слот узла.
func (n *BracketNode) SetSlot(slot int, entrantID *int, bye bool) {
	if slot == 1 {
		n.Entrant1ID = entrantID
		n.Bye1 = bye
		return
	}
	n.Entrant2ID = entrantID
	n.Bye2 = bye
}

// SlotEntrant возвращает участника слота и признак того, что слот
// определён (участником или bye).
func (n *BracketNode) SlotEntrant(slot int) (entrantID *int, bye bool, filled bool) {
	if slot == 1 {
		return n.Entrant1ID, n.Bye1, n.Entrant1ID != nil || n.Bye1
	}
	return n.Entrant2ID, n.Bye2, n.Entrant2ID != nil || n.Bye2
}

// BothEntrantsKnown — оба слота заняты реальными участниками.
func (n *BracketNode) BothEntrantsKnown() bool {
	return n.Entrant1ID != nil && n.Entrant2ID != nil
}

// ByeOpponent возвращает единственного реального участника узла, второй
// слот которого — bye. Узел с двумя bye возвращает (nil, true).
func (n *BracketNode) ByeOpponent() (entrantID *int, isByeNode bool) {
	switch {
	case n.Bye1 && n.Bye2:
		return nil, true
	case n.Bye1 && n.Entrant2ID != nil:
		return n.Entrant2ID, true
	case n.Bye2 && n.Entrant1ID != nil:
		return n.Entrant1ID, true
	}
	return nil, false
}

// RoundRobinPair — одна пара кругового турнира с номером игрового дня.
type RoundRobinPair struct {
	Round      int `json:"round"`
	Entrant1ID int `json:"entrant1_id"`
	Entrant2ID int `json:"entrant2_id"`
}

// Bracket — материализованная сетка одной категории. Сериализованный граф
// узлов (или список пар для кругового формата) — каноническая топология.
type Bracket struct {
	ID            int           `json:"id" db:"id"`
	CategoryID    int           `json:"category_id" db:"category_id"`
	Type          BracketType   `json:"type" db:"type"`
	SeedingMethod SeedingMethod `json:"seeding_method" db:"seeding_method"`
	BestOf        int           `json:"best_of" db:"best_of"`
	TotalRounds   int           `json:"total_rounds" db:"total_rounds"`
	CurrentRound  int           `json:"current_round" db:"current_round"`
	IsComplete    bool          `json:"is_complete" db:"is_complete"`
	ChampionID    *int          `json:"champion_id,omitempty" db:"champion_id"`
	RunnerUpID    *int          `json:"runner_up_id,omitempty" db:"runner_up_id"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`

	Nodes map[string]*BracketNode `json:"nodes,omitempty" db:"-"`
	Pairs []RoundRobinPair        `json:"pairs,omitempty" db:"-"`

	// Опциональные связанные сущности, заполняются сервисом.
	Matches   []Match    `json:"matches,omitempty" db:"-"`
	Standings []Standing `json:"standings,omitempty" db:"-"`
}

// Node возвращает узел по ключу, nil если такого узла нет.
func (b *Bracket) Node(key NodeKey) *BracketNode {
	if b.Nodes == nil {
		return nil
	}
	return b.Nodes[key.String()]
}
