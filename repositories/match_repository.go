package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/opencourt/bracket-engine/models"
)

var (
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchBracketInvalid = errors.New("match bracket conflict or invalid")
	ErrMatchEntrantInvalid = errors.New("match entrant conflict or invalid")
	// ErrMatchNodeConflict — нарушение уникальности (bracket_id, side,
	// round, position): гонка двух фидеров за создание одного матча.
	ErrMatchNodeConflict = errors.New("match for this bracket node already exists")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByNode(ctx context.Context, exec SQLExecutor, bracketID int, key models.NodeKey) (*models.Match, error)
	ListByBracket(ctx context.Context, bracketID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	UpdateSlots(ctx context.Context, exec SQLExecutor, matchID int, entrant1ID, entrant2ID *int) error
	UpdateResult(ctx context.Context, exec SQLExecutor, matchID int, score *models.Score, status models.MatchStatus, winnerID, loserID *int, statusReason *string, completedAt time.Time) error
	UpdateScore(ctx context.Context, exec SQLExecutor, matchID int, score *models.Score) error
	UpdateSchedule(ctx context.Context, exec SQLExecutor, matchID int, venueID *int, scheduledAt time.Time) error
	UpdateStarted(ctx context.Context, exec SQLExecutor, matchID int, startedAt time.Time) error
	// UpdatePostponed возвращает матч в scheduled с новым временем и сбрасывает started_at.
	UpdatePostponed(ctx context.Context, exec SQLExecutor, matchID int, venueID *int, scheduledAt time.Time) error
	UpdateCancelled(ctx context.Context, exec SQLExecutor, matchID int, reason string) error
	CountByStatus(ctx context.Context, bracketID int) (map[models.MatchStatus]int, error)
	CountNonTerminal(ctx context.Context, exec SQLExecutor, bracketID int) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, bracket_id, side, round, position, entrant1_id, entrant2_id,
	status, score, winner_id, loser_id, status_reason,
	venue_id, scheduled_at, started_at, completed_at, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	scoreJSON, err := marshalScore(match.Score)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO matches
			(bracket_id, side, round, position, entrant1_id, entrant2_id,
			 status, score, winner_id, loser_id, venue_id, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	err = exec.QueryRowContext(ctx, query,
		match.BracketID,
		match.Side,
		match.Round,
		match.Position,
		match.Entrant1ID,
		match.Entrant2ID,
		match.Status,
		scoreJSON,
		match.WinnerID,
		match.LoserID,
		match.VenueID,
		match.ScheduledAt,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return r.scanMatch(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	return r.scanMatch(exec.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByNode(ctx context.Context, exec SQLExecutor, bracketID int, key models.NodeKey) (*models.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM matches
		WHERE bracket_id = $1 AND side = $2 AND round = $3 AND position = $4`
	return r.scanMatch(exec.QueryRowContext(ctx, query, bracketID, key.Side, key.Round, key.Position))
}

func (r *postgresMatchRepository) scanMatch(row *sql.Row) (*models.Match, error) {
	match := &models.Match{}
	var scoreJSON []byte
	err := row.Scan(
		&match.ID,
		&match.BracketID,
		&match.Side,
		&match.Round,
		&match.Position,
		&match.Entrant1ID,
		&match.Entrant2ID,
		&match.Status,
		&scoreJSON,
		&match.WinnerID,
		&match.LoserID,
		&match.StatusReason,
		&match.VenueID,
		&match.ScheduledAt,
		&match.StartedAt,
		&match.CompletedAt,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	if match.Score, err = unmarshalScore(scoreJSON); err != nil {
		return nil, fmt.Errorf("failed to unmarshal score for match %d: %w", match.ID, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByBracket(ctx context.Context, bracketID int, roundFilter *int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE bracket_id = $1`)

	args := []interface{}{bracketID}
	placeholderIndex := 2

	if roundFilter != nil {
		queryBuilder.WriteString(" AND round = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *roundFilter)
		placeholderIndex++
	}

	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *statusFilter)
	}

	queryBuilder.WriteString(" ORDER BY side ASC, round ASC, position ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for bracket %d: %w", bracketID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match := &models.Match{}
		var scoreJSON []byte
		if scanErr := rows.Scan(
			&match.ID,
			&match.BracketID,
			&match.Side,
			&match.Round,
			&match.Position,
			&match.Entrant1ID,
			&match.Entrant2ID,
			&match.Status,
			&scoreJSON,
			&match.WinnerID,
			&match.LoserID,
			&match.StatusReason,
			&match.VenueID,
			&match.ScheduledAt,
			&match.StartedAt,
			&match.CompletedAt,
			&match.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		if match.Score, err = unmarshalScore(scoreJSON); err != nil {
			return nil, fmt.Errorf("failed to unmarshal score for match %d: %w", match.ID, err)
		}
		matches = append(matches, match)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateSlots(ctx context.Context, exec SQLExecutor, matchID int, entrant1ID, entrant2ID *int) error {
	query := `UPDATE matches SET entrant1_id = $1, entrant2_id = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, entrant1ID, entrant2ID, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, matchID int, score *models.Score, status models.MatchStatus, winnerID, loserID *int, statusReason *string, completedAt time.Time) error {
	scoreJSON, err := marshalScore(score)
	if err != nil {
		return err
	}
	query := `
		UPDATE matches
		SET score = $1, status = $2, winner_id = $3, loser_id = $4, status_reason = $5, completed_at = $6
		WHERE id = $7`
	result, err := exec.ExecContext(ctx, query, scoreJSON, status, winnerID, loserID, statusReason, completedAt, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateScore(ctx context.Context, exec SQLExecutor, matchID int, score *models.Score) error {
	scoreJSON, err := marshalScore(score)
	if err != nil {
		return err
	}
	query := `UPDATE matches SET score = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, scoreJSON, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateSchedule(ctx context.Context, exec SQLExecutor, matchID int, venueID *int, scheduledAt time.Time) error {
	query := `UPDATE matches SET venue_id = $1, scheduled_at = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, venueID, scheduledAt, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateStarted(ctx context.Context, exec SQLExecutor, matchID int, startedAt time.Time) error {
	query := `UPDATE matches SET status = $1, started_at = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, models.StatusInProgress, startedAt, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdatePostponed(ctx context.Context, exec SQLExecutor, matchID int, venueID *int, scheduledAt time.Time) error {
	query := `
		UPDATE matches
		SET status = $1, venue_id = $2, scheduled_at = $3, started_at = NULL
		WHERE id = $4`
	result, err := exec.ExecContext(ctx, query, models.StatusScheduled, venueID, scheduledAt, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateCancelled(ctx context.Context, exec SQLExecutor, matchID int, reason string) error {
	query := `UPDATE matches SET status = $1, status_reason = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, models.StatusCancelled, reason, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountByStatus(ctx context.Context, bracketID int) (map[models.MatchStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM matches WHERE bracket_id = $1 GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query, bracketID)
	if err != nil {
		return nil, fmt.Errorf("failed to count matches for bracket %d: %w", bracketID, err)
	}
	defer rows.Close()

	counts := make(map[models.MatchStatus]int)
	for rows.Next() {
		var status models.MatchStatus
		var count int
		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match count row: %w", scanErr)
		}
		counts[status] = count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match count rows iteration: %w", err)
	}
	return counts, nil
}

func (r *postgresMatchRepository) CountNonTerminal(ctx context.Context, exec SQLExecutor, bracketID int) (int, error) {
	query := `SELECT COUNT(*) FROM matches WHERE bracket_id = $1 AND status NOT IN ($2, $3, $4, $5)`
	var count int
	err := exec.QueryRowContext(ctx, query, bracketID,
		models.StatusCompleted, models.StatusWalkover, models.StatusRetired, models.StatusCancelled,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count non-terminal matches for bracket %d: %w", bracketID, err)
	}
	return count, nil
}

func marshalScore(score *models.Score) ([]byte, error) {
	if score == nil {
		return nil, nil
	}
	data, err := json.Marshal(score)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score: %w", err)
	}
	return data, nil
}

func unmarshalScore(data []byte) (*models.Score, error) {
	if len(data) == 0 {
		return nil, nil
	}
	score := &models.Score{}
	if err := json.Unmarshal(data, score); err != nil {
		return nil, err
	}
	return score, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "matches_bracket_id_fkey":
			return ErrMatchBracketInvalid
		case "matches_entrant1_id_fkey", "matches_entrant2_id_fkey", "matches_winner_id_fkey", "matches_loser_id_fkey":
			return ErrMatchEntrantInvalid
		case "matches_bracket_node_key":
			return ErrMatchNodeConflict
		}
	}
	return err
}
