package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/opencourt/bracket-engine/models"
	"github.com/opencourt/bracket-engine/repositories"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Фейки репозиториев хранят состояние в памяти и повторяют контрактные
// ошибки postgres-реализаций (not found, конфликт узла, guarded update).

type fakeTxManager struct{}

func (fakeTxManager) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeBracketRepo struct {
	nextID   int
	brackets map[int]*models.Bracket
}

func newFakeBracketRepo() *fakeBracketRepo {
	return &fakeBracketRepo{brackets: make(map[int]*models.Bracket)}
}

func (r *fakeBracketRepo) Create(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket) error {
	r.nextID++
	bracket.ID = r.nextID
	bracket.CreatedAt = time.Now()
	r.brackets[bracket.ID] = bracket
	return nil
}

func (r *fakeBracketRepo) GetByID(ctx context.Context, id int) (*models.Bracket, error) {
	bracket, ok := r.brackets[id]
	if !ok {
		return nil, repositories.ErrBracketNotFound
	}
	return bracket, nil
}

func (r *fakeBracketRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Bracket, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeBracketRepo) UpdateTopology(ctx context.Context, exec repositories.SQLExecutor, id int, nodes map[string]*models.BracketNode, currentRound int) error {
	bracket, ok := r.brackets[id]
	if !ok {
		return repositories.ErrBracketNotFound
	}
	bracket.Nodes = nodes
	bracket.CurrentRound = currentRound
	return nil
}

func (r *fakeBracketRepo) SetComplete(ctx context.Context, exec repositories.SQLExecutor, id int, championID, runnerUpID *int) error {
	bracket, ok := r.brackets[id]
	if !ok || bracket.IsComplete {
		// Повторное завершение не находит строку, как guarded UPDATE.
		return repositories.ErrBracketNotFound
	}
	bracket.IsComplete = true
	bracket.ChampionID = championID
	bracket.RunnerUpID = runnerUpID
	return nil
}

type fakeMatchRepo struct {
	nextID  int
	matches map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	for _, existing := range r.matches {
		if existing.BracketID == match.BracketID && existing.NodeKey() == match.NodeKey() {
			return repositories.ErrMatchNodeConflict
		}
	}
	r.nextID++
	match.ID = r.nextID
	match.CreatedAt = time.Now()
	r.matches[match.ID] = match
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return match, nil
}

func (r *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeMatchRepo) GetByNode(ctx context.Context, exec repositories.SQLExecutor, bracketID int, key models.NodeKey) (*models.Match, error) {
	for _, match := range r.matches {
		if match.BracketID == bracketID && match.NodeKey() == key {
			return match, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ListByBracket(ctx context.Context, bracketID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	result := make([]*models.Match, 0)
	for _, match := range r.matches {
		if match.BracketID != bracketID {
			continue
		}
		if round != nil && match.Round != *round {
			continue
		}
		if status != nil && match.Status != *status {
			continue
		}
		result = append(result, match)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Side != b.Side {
			return a.Side < b.Side
		}
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		return a.Position < b.Position
	})
	return result, nil
}

func (r *fakeMatchRepo) UpdateSlots(ctx context.Context, exec repositories.SQLExecutor, matchID int, entrant1ID, entrant2ID *int) error {
	match, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Entrant1ID = entrant1ID
	match.Entrant2ID = entrant2ID
	return nil
}

func (r *fakeMatchRepo) UpdateResult(ctx context.Context, exec repositories.SQLExecutor, matchID int, score *models.Score, status models.MatchStatus, winnerID, loserID *int, statusReason *string, completedAt time.Time) error {
	match, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Score = score
	match.Status = status
	match.WinnerID = winnerID
	match.LoserID = loserID
	match.StatusReason = statusReason
	match.CompletedAt = &completedAt
	return nil
}

func (r *fakeMatchRepo) UpdateScore(ctx context.Context, exec repositories.SQLExecutor, matchID int, score *models.Score) error {
	match, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Score = score
	return nil
}

func (r *fakeMatchRepo) UpdateSchedule(ctx context.Context, exec repositories.SQLExecutor, matchID int, venueID *int, scheduledAt time.Time) error {
	match, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.VenueID = venueID
	match.ScheduledAt = &scheduledAt
	return nil
}

func (r *fakeMatchRepo) UpdateStarted(ctx context.Context, exec repositories.SQLExecutor, matchID int, startedAt time.Time) error {
	match, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Status = models.StatusInProgress
	match.StartedAt = &startedAt
	return nil
}

func (r *fakeMatchRepo) UpdatePostponed(ctx context.Context, exec repositories.SQLExecutor, matchID int, venueID *int, scheduledAt time.Time) error {
	match, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Status = models.StatusScheduled
	match.VenueID = venueID
	match.ScheduledAt = &scheduledAt
	match.StartedAt = nil
	return nil
}

func (r *fakeMatchRepo) UpdateCancelled(ctx context.Context, exec repositories.SQLExecutor, matchID int, reason string) error {
	match, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Status = models.StatusCancelled
	match.StatusReason = &reason
	return nil
}

// racingMatchRepo имитирует гонку двух фидеров за матч одного узла:
// lookup узла missOnce промахивается один раз, и create натыкается на
// строку, уже созданную соперником.
type racingMatchRepo struct {
	*fakeMatchRepo
	missOnce *models.NodeKey
}

func (r *racingMatchRepo) GetByNode(ctx context.Context, exec repositories.SQLExecutor, bracketID int, key models.NodeKey) (*models.Match, error) {
	if r.missOnce != nil && *r.missOnce == key {
		r.missOnce = nil
		return nil, repositories.ErrMatchNotFound
	}
	return r.fakeMatchRepo.GetByNode(ctx, exec, bracketID, key)
}

func (r *fakeMatchRepo) CountByStatus(ctx context.Context, bracketID int) (map[models.MatchStatus]int, error) {
	counts := make(map[models.MatchStatus]int)
	for _, match := range r.matches {
		if match.BracketID == bracketID {
			counts[match.Status]++
		}
	}
	return counts, nil
}

func (r *fakeMatchRepo) CountNonTerminal(ctx context.Context, exec repositories.SQLExecutor, bracketID int) (int, error) {
	count := 0
	for _, match := range r.matches {
		if match.BracketID == bracketID && !match.Status.Terminal() {
			count++
		}
	}
	return count, nil
}

type fakeEntrantRepo struct {
	entrants []*models.Entrant
}

func (r *fakeEntrantRepo) GetByID(ctx context.Context, id int) (*models.Entrant, error) {
	for _, e := range r.entrants {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repositories.ErrEntrantNotFound
}

func (r *fakeEntrantRepo) ListByCategory(ctx context.Context, categoryID int) ([]*models.Entrant, error) {
	result := make([]*models.Entrant, 0)
	for _, e := range r.entrants {
		if e.CategoryID == categoryID {
			result = append(result, e)
		}
	}
	return result, nil
}

type fakeStandingRepo struct {
	rows map[int]*models.Standing // по entrantID, один bracket на тест
}

func newFakeStandingRepo() *fakeStandingRepo {
	return &fakeStandingRepo{rows: make(map[int]*models.Standing)}
}

func (r *fakeStandingRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, bracketID int, entrantIDs []int) error {
	for _, id := range entrantIDs {
		r.rows[id] = &models.Standing{BracketID: bracketID, EntrantID: id}
	}
	return nil
}

func (r *fakeStandingRepo) ApplyResult(ctx context.Context, exec repositories.SQLExecutor, bracketID, winnerID, loserID, winnerSets, loserSets int) error {
	winner, ok := r.rows[winnerID]
	if !ok {
		return repositories.ErrStandingNotFound
	}
	loser, ok := r.rows[loserID]
	if !ok {
		return repositories.ErrStandingNotFound
	}
	winner.Played++
	winner.Wins++
	winner.Points += 2
	winner.SetsWon += winnerSets
	winner.SetsLost += loserSets
	loser.Played++
	loser.Losses++
	loser.SetsWon += loserSets
	loser.SetsLost += winnerSets
	return nil
}

func (r *fakeStandingRepo) ListByBracket(ctx context.Context, exec repositories.SQLExecutor, bracketID int) ([]*models.Standing, error) {
	result := make([]*models.Standing, 0, len(r.rows))
	for _, standing := range r.rows {
		if standing.BracketID == bracketID {
			result = append(result, standing)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if d1, d2 := a.SetsWon-a.SetsLost, b.SetsWon-b.SetsLost; d1 != d2 {
			return d1 > d2
		}
		return a.EntrantID < b.EntrantID
	})
	return result, nil
}

// recordingNotifier фиксирует исходящие сигналы для проверок.
type recordingNotifier struct {
	scheduled        []*models.Match
	started          []*models.Match
	completed        []*models.Match
	walkovers        []*models.Match
	retired          []*models.Match
	bracketCompleted int
	tournamentDone   int
}

func (n *recordingNotifier) MatchScheduled(bracketID int, match *models.Match) {
	n.scheduled = append(n.scheduled, match)
}
func (n *recordingNotifier) MatchStarted(bracketID int, match *models.Match) {
	n.started = append(n.started, match)
}
func (n *recordingNotifier) MatchCompleted(bracketID int, match *models.Match) {
	n.completed = append(n.completed, match)
}
func (n *recordingNotifier) MatchWalkover(bracketID int, match *models.Match) {
	n.walkovers = append(n.walkovers, match)
}
func (n *recordingNotifier) MatchRetired(bracketID int, match *models.Match) {
	n.retired = append(n.retired, match)
}
func (n *recordingNotifier) BracketCompleted(bracketID int, championID, runnerUpID *int) {
	n.bracketCompleted++
}
func (n *recordingNotifier) TournamentCompleted(bracketID, categoryID int) {
	n.tournamentDone++
}
