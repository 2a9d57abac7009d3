package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/opencourt/bracket-engine/brackets"
	"github.com/opencourt/bracket-engine/models"
	"github.com/opencourt/bracket-engine/repositories"
)

// GenerateBracketInput — параметры генерации сетки для категории.
// RandomSeed делает random-жеребьёвку воспроизводимой (для пересдачи
// жеребьёвки под протокол); nil — обычная недетерминированная жеребьёвка.
type GenerateBracketInput struct {
	CategoryID    int                  `json:"category_id"`
	Type          models.BracketType   `json:"type"`
	SeedingMethod models.SeedingMethod `json:"seeding_method"`
	BestOf        int                  `json:"best_of"`
	RandomSeed    *int64               `json:"random_seed,omitempty"`
}

// BracketStatus — сводка прогресса сетки.
type BracketStatus struct {
	BracketID         int                        `json:"bracket_id"`
	Type              models.BracketType         `json:"type"`
	CurrentRound      int                        `json:"current_round"`
	TotalRounds       int                        `json:"total_rounds"`
	IsComplete        bool                       `json:"is_complete"`
	ChampionID        *int                       `json:"champion_id,omitempty"`
	RunnerUpID        *int                       `json:"runner_up_id,omitempty"`
	TotalMatches      int                        `json:"total_matches"`
	CompletedMatches  int                        `json:"completed_matches"`
	InProgressMatches int                        `json:"in_progress_matches"`
	ProgressPct       float64                    `json:"progress_pct"`
	MatchCounts       map[models.MatchStatus]int `json:"match_counts"`
}

type BracketService interface {
	GenerateBracket(ctx context.Context, input GenerateBracketInput) (*models.Bracket, error)
	// GetBracket возвращает сетку с матчами и (для кругового формата)
	// таблицей.
	GetBracket(ctx context.Context, id int) (*models.Bracket, error)
	GetBracketStatus(ctx context.Context, id int) (*BracketStatus, error)
	ListMatches(ctx context.Context, bracketID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	ListStandings(ctx context.Context, bracketID int) ([]*models.Standing, error)
}

type bracketService struct {
	txManager    TxManager
	bracketRepo  repositories.BracketRepository
	matchRepo    repositories.MatchRepository
	entrantRepo  repositories.EntrantRepository
	standingRepo repositories.StandingRepository
	logger       *slog.Logger
}

func NewBracketService(
	txManager TxManager,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	entrantRepo repositories.EntrantRepository,
	standingRepo repositories.StandingRepository,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		txManager:    txManager,
		bracketRepo:  bracketRepo,
		matchRepo:    matchRepo,
		entrantRepo:  entrantRepo,
		standingRepo: standingRepo,
		logger:       logger,
	}
}

func (s *bracketService) GenerateBracket(ctx context.Context, input GenerateBracketInput) (*models.Bracket, error) {
	if !input.Type.Valid() {
		return nil, ErrInvalidBracketType
	}
	if !input.SeedingMethod.Valid() {
		return nil, ErrInvalidSeedingMethod
	}
	if input.BestOf <= 0 || input.BestOf%2 == 0 {
		return nil, ErrInvalidBestOf
	}

	entrants, err := s.entrantRepo.ListByCategory(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}
	if len(entrants) < 2 {
		return nil, ErrNotEnoughEntrants
	}

	var rng *rand.Rand
	if input.RandomSeed != nil {
		rng = rand.New(rand.NewSource(*input.RandomSeed))
	}
	seeded, err := brackets.Seed(entrants, input.SeedingMethod, rng)
	if err != nil {
		return nil, err
	}

	generator, err := brackets.NewGenerator(input.Type)
	if err != nil {
		return nil, ErrInvalidBracketType
	}
	topology, err := generator.Build(ctx, seeded)
	if err != nil {
		if errors.Is(err, brackets.ErrNotEnoughEntrants) {
			return nil, ErrNotEnoughEntrants
		}
		return nil, fmt.Errorf("failed to build %s topology: %w", generator.Name(), err)
	}

	bracket := &models.Bracket{
		CategoryID:    input.CategoryID,
		Type:          input.Type,
		SeedingMethod: input.SeedingMethod,
		BestOf:        input.BestOf,
		TotalRounds:   topology.Rounds,
		CurrentRound:  1,
		Nodes:         topology.Nodes,
		Pairs:         topology.Pairs,
	}

	err = s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.bracketRepo.Create(ctx, exec, bracket); err != nil {
			if errors.Is(err, repositories.ErrBracketAlreadyExists) {
				return ErrBracketExists
			}
			if errors.Is(err, repositories.ErrBracketCategoryInvalid) {
				return ErrValidationFailed
			}
			return err
		}

		if bracket.Type == models.BracketRoundRobin {
			return s.materializeRoundRobin(ctx, exec, bracket, seeded)
		}
		return s.materializeElimination(ctx, exec, bracket)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "bracket generated",
		slog.Int("bracket_id", bracket.ID),
		slog.Int("category_id", bracket.CategoryID),
		slog.String("type", string(bracket.Type)),
		slog.Int("entrants", len(entrants)),
		slog.Int("matches", len(bracket.Matches)),
	)
	return bracket, nil
}

// materializeElimination создаёт строки матчей для всех узлов, оба слота
// которых известны после каскада bye. Обычно это первый раунд, но при
// достаточном числе bye реальная пара может сложиться и глубже.
func (s *bracketService) materializeElimination(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket) error {
	ready := make([]*models.BracketNode, 0)
	for _, node := range bracket.Nodes {
		if node.BothEntrantsKnown() && node.WinnerID == nil {
			ready = append(ready, node)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		a, b := ready[i].Key, ready[j].Key
		if a.Side != b.Side {
			return sideOrder(a.Side) < sideOrder(b.Side)
		}
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		return a.Position < b.Position
	})

	for _, node := range ready {
		match := &models.Match{
			BracketID:  bracket.ID,
			Side:       node.Key.Side,
			Round:      node.Key.Round,
			Position:   node.Key.Position,
			Entrant1ID: node.Entrant1ID,
			Entrant2ID: node.Entrant2ID,
			Status:     models.StatusScheduled,
		}
		if err := s.matchRepo.Create(ctx, exec, match); err != nil {
			return fmt.Errorf("failed to create match for node %s: %w", node.Key, err)
		}
		bracket.Matches = append(bracket.Matches, *match)
	}
	return nil
}

// materializeRoundRobin создаёт полное расписание кругового турнира и
// нулевые строки таблицы для каждого участника.
func (s *bracketService) materializeRoundRobin(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket, entrants []*models.Entrant) error {
	for i, pair := range bracket.Pairs {
		e1, e2 := pair.Entrant1ID, pair.Entrant2ID
		match := &models.Match{
			BracketID:  bracket.ID,
			Side:       models.SideRoundRobin,
			Round:      pair.Round,
			Position:   i,
			Entrant1ID: &e1,
			Entrant2ID: &e2,
			Status:     models.StatusScheduled,
		}
		if err := s.matchRepo.Create(ctx, exec, match); err != nil {
			return fmt.Errorf("failed to create round robin match %d: %w", i, err)
		}
		bracket.Matches = append(bracket.Matches, *match)
	}

	entrantIDs := make([]int, len(entrants))
	for i, e := range entrants {
		entrantIDs[i] = e.ID
	}
	if err := s.standingRepo.CreateBatch(ctx, exec, bracket.ID, entrantIDs); err != nil {
		return err
	}
	return nil
}

func sideOrder(side models.BracketSide) int {
	switch side {
	case models.SideWinners:
		return 0
	case models.SideLosers:
		return 1
	case models.SideGrandFinal:
		return 2
	}
	return 3
}

func (s *bracketService) GetBracket(ctx context.Context, id int) (*models.Bracket, error) {
	bracket, err := s.bracketRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		matches, err := s.matchRepo.ListByBracket(gCtx, id, nil, nil)
		if err != nil {
			return err
		}
		bracket.Matches = make([]models.Match, len(matches))
		for i, m := range matches {
			bracket.Matches[i] = *m
		}
		return nil
	})

	if bracket.Type == models.BracketRoundRobin {
		g.Go(func() error {
			standings, err := s.standingRepo.ListByBracket(gCtx, nil, id)
			if err != nil {
				return err
			}
			bracket.Standings = make([]models.Standing, len(standings))
			for i, st := range standings {
				bracket.Standings[i] = *st
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bracket, nil
}

func (s *bracketService) GetBracketStatus(ctx context.Context, id int) (*BracketStatus, error) {
	bracket, err := s.bracketRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}

	counts, err := s.matchRepo.CountByStatus(ctx, id)
	if err != nil {
		return nil, err
	}

	status := &BracketStatus{
		BracketID:    bracket.ID,
		Type:         bracket.Type,
		CurrentRound: bracket.CurrentRound,
		TotalRounds:  bracket.TotalRounds,
		IsComplete:   bracket.IsComplete,
		ChampionID:   bracket.ChampionID,
		RunnerUpID:   bracket.RunnerUpID,
		MatchCounts:  counts,
	}
	terminal := 0
	for st, count := range counts {
		status.TotalMatches += count
		if st.Terminal() {
			terminal += count
		}
	}
	status.CompletedMatches = counts[models.StatusCompleted]
	status.InProgressMatches = counts[models.StatusInProgress]
	if status.TotalMatches > 0 {
		status.ProgressPct = 100 * float64(terminal) / float64(status.TotalMatches)
	}
	return status, nil
}

func (s *bracketService) ListMatches(ctx context.Context, bracketID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	if _, err := s.bracketRepo.GetByID(ctx, bracketID); err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}
	return s.matchRepo.ListByBracket(ctx, bracketID, round, status)
}

func (s *bracketService) ListStandings(ctx context.Context, bracketID int) ([]*models.Standing, error) {
	if _, err := s.bracketRepo.GetByID(ctx, bracketID); err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}
	return s.standingRepo.ListByBracket(ctx, nil, bracketID)
}
