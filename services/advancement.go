package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/opencourt/bracket-engine/models"
	"github.com/opencourt/bracket-engine/repositories"
)

// AdvanceResult — побочные эффекты продвижения, о которых нужно
// сигнализировать после фиксации транзакции.
type AdvanceResult struct {
	CreatedMatches   []*models.Match
	BracketCompleted bool
	ChampionID       *int
	RunnerUpID       *int
}

// AdvancementEngine продвигает победителя решённого матча в следующий
// узел графа и фиксирует завершение сетки. Работает строго внутри
// транзакции вызывающего: матч, граф и флаг завершения меняются как
// одно целое.
type AdvancementEngine interface {
	AdvanceWinner(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket, match *models.Match, winnerID int, loserID *int) (*AdvanceResult, error)
	// CheckRoundRobinCompletion завершает круговую сетку, когда все её
	// матчи достигли конечного статуса.
	CheckRoundRobinCompletion(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket) (*AdvanceResult, error)
}

type advancementEngine struct {
	bracketRepo  repositories.BracketRepository
	matchRepo    repositories.MatchRepository
	standingRepo repositories.StandingRepository
	logger       *slog.Logger
}

func NewAdvancementEngine(
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.StandingRepository,
	logger *slog.Logger,
) AdvancementEngine {
	return &advancementEngine{
		bracketRepo:  bracketRepo,
		matchRepo:    matchRepo,
		standingRepo: standingRepo,
		logger:       logger,
	}
}

func (e *advancementEngine) AdvanceWinner(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket, match *models.Match, winnerID int, loserID *int) (*AdvanceResult, error) {
	if bracket.IsComplete {
		return nil, ErrBracketAlreadyComplete
	}
	if bracket.Type == models.BracketRoundRobin {
		return e.advanceRoundRobin(ctx, exec, bracket, match, winnerID, loserID)
	}
	return e.advanceElimination(ctx, exec, bracket, match, winnerID, loserID)
}

func (e *advancementEngine) advanceElimination(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket, match *models.Match, winnerID int, loserID *int) (*AdvanceResult, error) {
	node := bracket.Node(match.NodeKey())
	if node == nil {
		return nil, fmt.Errorf("%w: node %s missing in bracket %d", ErrTopologyInconsistent, match.NodeKey(), bracket.ID)
	}
	node.WinnerID = &winnerID

	result := &AdvanceResult{}

	if node.NextWin == nil {
		// Финальный узел: чемпион и финалист известны, сетка завершена.
		if err := e.completeBracket(ctx, exec, bracket, &winnerID, loserID, result); err != nil {
			return nil, err
		}
	} else {
		if err := e.deliverEntrant(ctx, exec, bracket, *node.NextWin, winnerID, result); err != nil {
			return nil, err
		}
	}

	// Проигравший верхней сетки double elimination падает в нижнюю.
	if node.NextLose != nil && loserID != nil && !bracket.IsComplete {
		if err := e.deliverEntrant(ctx, exec, bracket, *node.NextLose, *loserID, result); err != nil {
			return nil, err
		}
	}

	if err := e.bracketRepo.UpdateTopology(ctx, exec, bracket.ID, bracket.Nodes, bracket.CurrentRound); err != nil {
		return nil, fmt.Errorf("failed to persist topology for bracket %d: %w", bracket.ID, err)
	}
	return result, nil
}

// deliverEntrant помещает участника в слот целевого узла. Если второй
// слот узла — bye, победитель определяется мгновенно и доставляется
// дальше без создания матча; иначе матч узла находится или создаётся
// (в статусе scheduled при первом разрешившемся фидере).
func (e *advancementEngine) deliverEntrant(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket, link models.NodeLink, entrantID int, result *AdvanceResult) error {
	target := bracket.Node(link.To)
	if target == nil {
		return fmt.Errorf("%w: node %s missing in bracket %d", ErrTopologyInconsistent, link.To, bracket.ID)
	}
	if _, _, filled := target.SlotEntrant(link.Slot); filled {
		return fmt.Errorf("%w: slot %d of node %s already filled", ErrTopologyInconsistent, link.Slot, link.To)
	}
	target.SetSlot(link.Slot, &entrantID, false)

	if winner, isBye := target.ByeOpponent(); isBye && winner != nil {
		// Соперник — bye: мгновенная победа без матча.
		target.WinnerID = winner
		if target.NextWin == nil {
			return e.completeBracket(ctx, exec, bracket, winner, nil, result)
		}
		if err := e.deliverEntrant(ctx, exec, bracket, *target.NextWin, *winner, result); err != nil {
			return err
		}
		if target.NextLose != nil {
			if err := e.deliverBye(bracket, *target.NextLose); err != nil {
				return err
			}
		}
		return nil
	}

	return e.upsertNodeMatch(ctx, exec, bracket, target, result)
}

// deliverBye отмечает слот целевого узла как bye (проигравший узла,
// решённого bye, сам является bye).
func (e *advancementEngine) deliverBye(bracket *models.Bracket, link models.NodeLink) error {
	target := bracket.Node(link.To)
	if target == nil {
		return fmt.Errorf("%w: node %s missing in bracket %d", ErrTopologyInconsistent, link.To, bracket.ID)
	}
	target.SetSlot(link.Slot, nil, true)
	return nil
}

// upsertNodeMatch реализует find-or-create матча узла. Гонка двух
// фидеров за создание строки гасится уникальным ограничением
// (bracket, side, round, position): дубликат вырождается в «найти
// существующую строку и заполнить оставшийся слот».
func (e *advancementEngine) upsertNodeMatch(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket, node *models.BracketNode, result *AdvanceResult) error {
	existing, err := e.matchRepo.GetByNode(ctx, exec, bracket.ID, node.Key)
	switch {
	case err == nil:
		if err := e.matchRepo.UpdateSlots(ctx, exec, existing.ID, node.Entrant1ID, node.Entrant2ID); err != nil {
			return fmt.Errorf("failed to update slots of match %d: %w", existing.ID, err)
		}
		existing.Entrant1ID = node.Entrant1ID
		existing.Entrant2ID = node.Entrant2ID
		return nil
	case errors.Is(err, repositories.ErrMatchNotFound):
		// создаём ниже
	default:
		return fmt.Errorf("failed to look up match for node %s: %w", node.Key, err)
	}

	match := &models.Match{
		BracketID:  bracket.ID,
		Side:       node.Key.Side,
		Round:      node.Key.Round,
		Position:   node.Key.Position,
		Entrant1ID: node.Entrant1ID,
		Entrant2ID: node.Entrant2ID,
		Status:     models.StatusScheduled,
	}
	if err := e.matchRepo.Create(ctx, exec, match); err != nil {
		if errors.Is(err, repositories.ErrMatchNodeConflict) {
			// Второй фидер успел первым.
			existing, findErr := e.matchRepo.GetByNode(ctx, exec, bracket.ID, node.Key)
			if findErr != nil {
				return fmt.Errorf("failed to re-read match for node %s after conflict: %w", node.Key, findErr)
			}
			if err := e.matchRepo.UpdateSlots(ctx, exec, existing.ID, node.Entrant1ID, node.Entrant2ID); err != nil {
				return fmt.Errorf("failed to update slots of match %d: %w", existing.ID, err)
			}
			return nil
		}
		return fmt.Errorf("failed to create match for node %s: %w", node.Key, err)
	}

	if node.Key.Side == models.SideWinners && match.Round > bracket.CurrentRound {
		bracket.CurrentRound = match.Round
	}
	if node.Key.Side == models.SideGrandFinal {
		bracket.CurrentRound = bracket.TotalRounds
	}
	result.CreatedMatches = append(result.CreatedMatches, match)
	return nil
}

func (e *advancementEngine) completeBracket(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket, championID, runnerUpID *int, result *AdvanceResult) error {
	if err := e.bracketRepo.SetComplete(ctx, exec, bracket.ID, championID, runnerUpID); err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return ErrBracketAlreadyComplete
		}
		return fmt.Errorf("failed to complete bracket %d: %w", bracket.ID, err)
	}
	bracket.IsComplete = true
	bracket.ChampionID = championID
	bracket.RunnerUpID = runnerUpID
	result.BracketCompleted = true
	result.ChampionID = championID
	result.RunnerUpID = runnerUpID
	e.logger.InfoContext(ctx, "bracket completed",
		slog.Int("bracket_id", bracket.ID),
		slog.Any("champion_id", championID),
		slog.Any("runner_up_id", runnerUpID),
	)
	return nil
}

// advanceRoundRobin не продвигает никого по графу: обновляются только
// строки таблицы, а сетка завершается, когда конечен каждый матч.
func (e *advancementEngine) advanceRoundRobin(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket, match *models.Match, winnerID int, loserID *int) (*AdvanceResult, error) {
	if loserID == nil {
		return nil, fmt.Errorf("%w: round robin outcome without a loser", ErrTopologyInconsistent)
	}

	winnerSets, loserSets := 0, 0
	if match.Score != nil {
		s1, s2 := match.Score.SetsWon()
		if match.EntrantSlot(winnerID) == 1 {
			winnerSets, loserSets = s1, s2
		} else {
			winnerSets, loserSets = s2, s1
		}
	}
	if err := e.standingRepo.ApplyResult(ctx, exec, bracket.ID, winnerID, *loserID, winnerSets, loserSets); err != nil {
		return nil, fmt.Errorf("failed to apply standing result for bracket %d: %w", bracket.ID, err)
	}

	return e.CheckRoundRobinCompletion(ctx, exec, bracket)
}

func (e *advancementEngine) CheckRoundRobinCompletion(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket) (*AdvanceResult, error) {
	result := &AdvanceResult{}
	remaining, err := e.matchRepo.CountNonTerminal(ctx, exec, bracket.ID)
	if err != nil {
		return nil, err
	}
	if remaining > 0 {
		return result, nil
	}

	standings, err := e.standingRepo.ListByBracket(ctx, exec, bracket.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read final standings for bracket %d: %w", bracket.ID, err)
	}
	var championID, runnerUpID *int
	if len(standings) > 0 {
		championID = &standings[0].EntrantID
	}
	if len(standings) > 1 {
		runnerUpID = &standings[1].EntrantID
	}
	if err := e.completeBracket(ctx, exec, bracket, championID, runnerUpID, result); err != nil {
		return nil, err
	}
	return result, nil
}
