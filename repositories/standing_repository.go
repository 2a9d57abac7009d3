package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/opencourt/bracket-engine/models"
)

var (
	ErrStandingNotFound = errors.New("standing not found")
	ErrStandingConflict = errors.New("standing for this entrant already exists")
)

type StandingRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, bracketID int, entrantIDs []int) error
	// ApplyResult наращивает строки обеих сторон конечного исхода:
	// победителю +2 очка, обоим +1 сыгранный матч.
	ApplyResult(ctx context.Context, exec SQLExecutor, bracketID, winnerID, loserID, winnerSets, loserSets int) error
	// ListByBracket читает таблицу в порядке мест; exec == nil означает
	// чтение вне транзакции.
	ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.Standing, error)
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) CreateBatch(ctx context.Context, exec SQLExecutor, bracketID int, entrantIDs []int) error {
	query := `
		INSERT INTO standings (bracket_id, entrant_id)
		SELECT $1, unnest($2::int[])`

	if _, err := exec.ExecContext(ctx, query, bracketID, pq.Array(entrantIDs)); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "standings_bracket_entrant_key" {
			return ErrStandingConflict
		}
		return fmt.Errorf("failed to create standings for bracket %d: %w", bracketID, err)
	}
	return nil
}

func (r *postgresStandingRepository) ApplyResult(ctx context.Context, exec SQLExecutor, bracketID, winnerID, loserID, winnerSets, loserSets int) error {
	winnerQuery := `
		UPDATE standings
		SET played = played + 1, wins = wins + 1, points = points + 2,
		    sets_won = sets_won + $1, sets_lost = sets_lost + $2, updated_at = NOW()
		WHERE bracket_id = $3 AND entrant_id = $4`
	result, err := exec.ExecContext(ctx, winnerQuery, winnerSets, loserSets, bracketID, winnerID)
	if err != nil {
		return fmt.Errorf("ApplyResult: failed to update winner standing: %w", err)
	}
	if err := checkAffectedRows(result, ErrStandingNotFound); err != nil {
		return err
	}

	loserQuery := `
		UPDATE standings
		SET played = played + 1, losses = losses + 1,
		    sets_won = sets_won + $1, sets_lost = sets_lost + $2, updated_at = NOW()
		WHERE bracket_id = $3 AND entrant_id = $4`
	result, err = exec.ExecContext(ctx, loserQuery, loserSets, winnerSets, bracketID, loserID)
	if err != nil {
		return fmt.Errorf("ApplyResult: failed to update loser standing: %w", err)
	}
	return checkAffectedRows(result, ErrStandingNotFound)
}

func (r *postgresStandingRepository) ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.Standing, error) {
	if exec == nil {
		exec = r.db
	}
	query := `
		SELECT id, bracket_id, entrant_id, played, wins, losses, points,
		       sets_won, sets_lost, rank, updated_at
		FROM standings
		WHERE bracket_id = $1
		ORDER BY points DESC, (sets_won - sets_lost) DESC, entrant_id ASC`

	rows, err := exec.QueryContext(ctx, query, bracketID)
	if err != nil {
		return nil, fmt.Errorf("failed to query standings for bracket %d: %w", bracketID, err)
	}
	defer rows.Close()

	standings := make([]*models.Standing, 0)
	for rows.Next() {
		standing := &models.Standing{}
		if scanErr := rows.Scan(
			&standing.ID,
			&standing.BracketID,
			&standing.EntrantID,
			&standing.Played,
			&standing.Wins,
			&standing.Losses,
			&standing.Points,
			&standing.SetsWon,
			&standing.SetsLost,
			&standing.Rank,
			&standing.UpdatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan standing row: %w", scanErr)
		}
		standings = append(standings, standing)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during standing rows iteration: %w", err)
	}
	return standings, nil
}
