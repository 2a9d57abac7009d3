package brackets

import (
	"context"
	"fmt"

	"github.com/opencourt/bracket-engine/models"
)

// Topology — результат построения сетки: граф узлов для олимпийских
// форматов либо полный список пар для кругового. Раунды и позиции
// назначаются при построении и служат адресами узлов.
type Topology struct {
	Type   models.BracketType
	Rounds int
	Nodes  map[string]*models.BracketNode
	Pairs  []models.RoundRobinPair
}

// Node возвращает узел по ключу, nil если узла нет.
func (t *Topology) Node(key models.NodeKey) *models.BracketNode {
	return t.Nodes[key.String()]
}

// Generator строит топологию сетки по уже рассаженному списку участников.
type Generator interface {
	Build(ctx context.Context, entrants []*models.Entrant) (*Topology, error)
	Name() string
}

// NewGenerator возвращает генератор для указанного типа сетки.
func NewGenerator(bracketType models.BracketType) (Generator, error) {
	switch bracketType {
	case models.BracketSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.BracketDoubleElimination:
		return NewDoubleEliminationGenerator(), nil
	case models.BracketRoundRobin:
		return NewRoundRobinGenerator(), nil
	}
	return nil, fmt.Errorf("unsupported bracket type '%s'", bracketType)
}
