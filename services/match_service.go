package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/opencourt/bracket-engine/models"
	"github.com/opencourt/bracket-engine/repositories"
)

// ScheduleConflictChecker — внешний коллаборатор проверки расписания
// (занятость корта, пересечения участников). nil отключает проверку.
type ScheduleConflictChecker interface {
	HasConflict(ctx context.Context, match *models.Match, venueID *int, scheduledAt time.Time) (bool, error)
}

type MatchService interface {
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	ScheduleMatch(ctx context.Context, matchID int, venueID *int, scheduledAt time.Time) (*models.Match, error)
	StartMatch(ctx context.Context, matchID int) (*models.Match, error)
	// UpdateScore сохраняет промежуточный счёт идущего матча, не
	// определяя исход.
	UpdateScore(ctx context.Context, matchID int, score *models.Score) (*models.Match, error)
	// RecordResult фиксирует финальный счёт идущего матча: победитель
	// определяется строгим большинством сетов, и победа продвигается по
	// сетке.
	RecordResult(ctx context.Context, matchID int, score *models.Score) (*models.Match, error)
	RecordWalkover(ctx context.Context, matchID int, winnerID int, reason string) (*models.Match, error)
	RecordRetirement(ctx context.Context, matchID int, retiredEntrantID int, sets []models.SetScore, reason string) (*models.Match, error)
	CancelMatch(ctx context.Context, matchID int, reason string) (*models.Match, error)
	PostponeMatch(ctx context.Context, matchID int, venueID *int, scheduledAt time.Time) (*models.Match, error)
}

type matchService struct {
	txManager       TxManager
	matchRepo       repositories.MatchRepository
	bracketRepo     repositories.BracketRepository
	engine          AdvancementEngine
	notifier        Notifier
	conflictChecker ScheduleConflictChecker
	logger          *slog.Logger
}

func NewMatchService(
	txManager TxManager,
	matchRepo repositories.MatchRepository,
	bracketRepo repositories.BracketRepository,
	engine AdvancementEngine,
	notifier Notifier,
	conflictChecker ScheduleConflictChecker,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		txManager:       txManager,
		matchRepo:       matchRepo,
		bracketRepo:     bracketRepo,
		engine:          engine,
		notifier:        notifier,
		conflictChecker: conflictChecker,
		logger:          logger,
	}
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ScheduleMatch(ctx context.Context, matchID int, venueID *int, scheduledAt time.Time) (*models.Match, error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status.Terminal() {
		return nil, ErrMatchAlreadyTerminal
	}
	if match.Status != models.StatusScheduled {
		return nil, ErrMatchInvalidTransition
	}

	if s.conflictChecker != nil {
		conflict, err := s.conflictChecker.HasConflict(ctx, match, venueID, scheduledAt)
		if err != nil {
			return nil, err
		}
		if conflict {
			return nil, ErrScheduleConflict
		}
	}

	err = s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.matchRepo.UpdateSchedule(ctx, exec, matchID, venueID, scheduledAt)
	})
	if err != nil {
		return nil, err
	}

	match.VenueID = venueID
	match.ScheduledAt = &scheduledAt
	s.notifier.MatchScheduled(match.BracketID, match)
	return match, nil
}

func (s *matchService) StartMatch(ctx context.Context, matchID int) (*models.Match, error) {
	var match *models.Match
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		if match.Status.Terminal() {
			return ErrMatchAlreadyTerminal
		}
		if match.Status != models.StatusScheduled {
			return ErrMatchInvalidTransition
		}
		if match.Entrant1ID == nil || match.Entrant2ID == nil {
			return ErrMatchSlotsIncomplete
		}

		startedAt := time.Now()
		if err := s.matchRepo.UpdateStarted(ctx, exec, matchID, startedAt); err != nil {
			return err
		}
		match.Status = models.StatusInProgress
		match.StartedAt = &startedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.MatchStarted(match.BracketID, match)
	return match, nil
}

func (s *matchService) UpdateScore(ctx context.Context, matchID int, score *models.Score) (*models.Match, error) {
	if score == nil || score.Walkover || score.Retired {
		return nil, ErrInvalidScore
	}
	for _, set := range score.Sets {
		if set.Entrant1 < 0 || set.Entrant2 < 0 {
			return nil, ErrInvalidScore
		}
	}

	var match *models.Match
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		if match.Status != models.StatusInProgress {
			return ErrMatchInvalidTransition
		}
		if err := s.matchRepo.UpdateScore(ctx, exec, matchID, score); err != nil {
			return err
		}
		match.Score = score
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (s *matchService) RecordResult(ctx context.Context, matchID int, score *models.Score) (*models.Match, error) {
	if score == nil || score.Walkover || score.Retired {
		return nil, ErrInvalidScore
	}
	return s.resolve(ctx, matchID, func(match *models.Match, bracket *models.Bracket) (*outcome, error) {
		// Завершение требует начатого матча; до начала инструменты —
		// walkover и отмена.
		if match.Status != models.StatusInProgress {
			return nil, ErrMatchInvalidTransition
		}
		winnerSlot, err := score.DetermineWinnerSlot(bracket.BestOf)
		if err != nil {
			s.logger.WarnContext(ctx, "score rejected",
				slog.Int("match_id", match.ID), slog.String("reason", err.Error()))
			return nil, ErrInvalidScore
		}
		return &outcome{
			score:  score,
			status: models.StatusCompleted,
			winner: *match.SlotEntrantID(winnerSlot),
			loser:  match.SlotEntrantID(3 - winnerSlot),
			notify: s.notifier.MatchCompleted,
		}, nil
	})
}

func (s *matchService) RecordWalkover(ctx context.Context, matchID int, winnerID int, reason string) (*models.Match, error) {
	return s.resolve(ctx, matchID, func(match *models.Match, bracket *models.Bracket) (*outcome, error) {
		// Неявка фиксируется только до начала игры.
		if match.Status != models.StatusScheduled {
			if match.Status.Terminal() {
				return nil, ErrMatchAlreadyTerminal
			}
			return nil, ErrMatchInvalidTransition
		}
		winnerSlot := match.EntrantSlot(winnerID)
		if winnerSlot == 0 {
			return nil, ErrWinnerNotInMatch
		}
		return &outcome{
			score:  &models.Score{Walkover: true, WinnerSlot: winnerSlot},
			status: models.StatusWalkover,
			winner: winnerID,
			loser:  match.SlotEntrantID(3 - winnerSlot),
			reason: optionalReason(reason),
			notify: s.notifier.MatchWalkover,
		}, nil
	})
}

func (s *matchService) RecordRetirement(ctx context.Context, matchID int, retiredEntrantID int, sets []models.SetScore, reason string) (*models.Match, error) {
	return s.resolve(ctx, matchID, func(match *models.Match, bracket *models.Bracket) (*outcome, error) {
		// Снятие возможно только из идущего матча; до начала — walkover.
		if match.Status != models.StatusInProgress {
			if match.Status.Terminal() {
				return nil, ErrMatchAlreadyTerminal
			}
			return nil, ErrMatchInvalidTransition
		}
		retiredSlot := match.EntrantSlot(retiredEntrantID)
		if retiredSlot == 0 {
			return nil, ErrRetiringNotInMatch
		}
		winnerSlot := 3 - retiredSlot
		score := &models.Score{
			Sets:             sets,
			Retired:          true,
			WinnerSlot:       winnerSlot,
			RetiredEntrantID: &retiredEntrantID,
		}
		if err := score.Validate(); err != nil {
			return nil, ErrInvalidScore
		}
		return &outcome{
			score:  score,
			status: models.StatusRetired,
			winner: *match.SlotEntrantID(winnerSlot),
			loser:  &retiredEntrantID,
			reason: optionalReason(reason),
			notify: s.notifier.MatchRetired,
		}, nil
	})
}

// outcome — вычисленный конечный исход матча перед записью.
type outcome struct {
	score  *models.Score
	status models.MatchStatus
	winner int
	loser  *int
	reason *string
	notify func(bracketID int, match *models.Match)
}

// optionalReason нормализует свободный текст причины: пустой → nil.
func optionalReason(reason string) *string {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// resolve — общий транзакционный каркас конечных исходов: блокировка
// сетки, затем матча (всегда в этом порядке), запись результата,
// продвижение победителя. Ошибка консистентности топологии не откатывает
// уже записанный результат: она логируется как операционная, а сетку
// чинят отдельно.
func (s *matchService) resolve(ctx context.Context, matchID int, decide func(match *models.Match, bracket *models.Bracket) (*outcome, error)) (*models.Match, error) {
	peek, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	var (
		match     *models.Match
		bracket   *models.Bracket
		outc      *outcome
		advResult *AdvanceResult
	)
	err = s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		bracket, err = s.bracketRepo.GetForUpdate(ctx, exec, peek.BracketID)
		if err != nil {
			if errors.Is(err, repositories.ErrBracketNotFound) {
				return ErrBracketNotFound
			}
			return err
		}
		match, err = s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		if match.Status.Terminal() {
			return ErrMatchAlreadyTerminal
		}
		// Любой решающий исход требует обоих участников.
		if match.Entrant1ID == nil || match.Entrant2ID == nil {
			return ErrMatchSlotsIncomplete
		}

		outc, err = decide(match, bracket)
		if err != nil {
			return err
		}

		completedAt := time.Now()
		if err := s.matchRepo.UpdateResult(ctx, exec, matchID, outc.score, outc.status, &outc.winner, outc.loser, outc.reason, completedAt); err != nil {
			return err
		}
		match.Score = outc.score
		match.Status = outc.status
		match.WinnerID = &outc.winner
		match.LoserID = outc.loser
		match.StatusReason = outc.reason
		match.CompletedAt = &completedAt

		advResult, err = s.engine.AdvanceWinner(ctx, exec, bracket, match, outc.winner, outc.loser)
		if err != nil {
			if errors.Is(err, ErrTopologyInconsistent) {
				s.logger.ErrorContext(ctx, "advancement failed, match result kept",
					slog.Int("bracket_id", bracket.ID),
					slog.Int("match_id", match.ID),
					slog.String("error", err.Error()),
				)
				advResult = nil
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outc.notify(bracket.ID, match)
	s.notifyAdvancement(bracket, advResult)
	return match, nil
}

func (s *matchService) notifyAdvancement(bracket *models.Bracket, result *AdvanceResult) {
	if result == nil {
		return
	}
	for _, created := range result.CreatedMatches {
		s.notifier.MatchScheduled(bracket.ID, created)
	}
	if result.BracketCompleted {
		s.notifier.BracketCompleted(bracket.ID, result.ChampionID, result.RunnerUpID)
		s.notifier.TournamentCompleted(bracket.ID, bracket.CategoryID)
	}
}

func (s *matchService) CancelMatch(ctx context.Context, matchID int, reason string) (*models.Match, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrCancelReasonRequired
	}

	peek, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	var (
		match     *models.Match
		bracket   *models.Bracket
		advResult *AdvanceResult
	)
	err = s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		bracket, err = s.bracketRepo.GetForUpdate(ctx, exec, peek.BracketID)
		if err != nil {
			if errors.Is(err, repositories.ErrBracketNotFound) {
				return ErrBracketNotFound
			}
			return err
		}
		match, err = s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		if match.Status.Terminal() {
			return ErrMatchAlreadyTerminal
		}

		if err := s.matchRepo.UpdateCancelled(ctx, exec, matchID, reason); err != nil {
			return err
		}
		match.Status = models.StatusCancelled
		match.StatusReason = &reason

		// Отменённый матч кругового турнира не даёт победителя, но может
		// быть последним незакрытым: сетка завершается по таблице.
		if bracket.Type == models.BracketRoundRobin && !bracket.IsComplete {
			advResult, err = s.engine.CheckRoundRobinCompletion(ctx, exec, bracket)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "match cancelled",
		slog.Int("match_id", matchID), slog.String("reason", reason))
	s.notifyAdvancement(bracket, advResult)
	return match, nil
}

func (s *matchService) PostponeMatch(ctx context.Context, matchID int, venueID *int, scheduledAt time.Time) (*models.Match, error) {
	var match *models.Match
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		if match.Status.Terminal() {
			return ErrMatchAlreadyTerminal
		}

		if err := s.matchRepo.UpdatePostponed(ctx, exec, matchID, venueID, scheduledAt); err != nil {
			return err
		}
		match.Status = models.StatusScheduled
		match.VenueID = venueID
		match.ScheduledAt = &scheduledAt
		match.StartedAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.MatchScheduled(match.BracketID, match)
	return match, nil
}
