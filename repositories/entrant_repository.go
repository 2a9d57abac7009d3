package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opencourt/bracket-engine/models"
)

var ErrEntrantNotFound = errors.New("entrant not found")

// EntrantRepository — только чтение: регистрация, оплата и чек-ин
// участников принадлежат внешним подсистемам, движок потребляет
// финализированный список категории.
type EntrantRepository interface {
	GetByID(ctx context.Context, id int) (*models.Entrant, error)
	ListByCategory(ctx context.Context, categoryID int) ([]*models.Entrant, error)
}

type postgresEntrantRepository struct {
	db *sql.DB
}

func NewPostgresEntrantRepository(db *sql.DB) EntrantRepository {
	return &postgresEntrantRepository{db: db}
}

func (r *postgresEntrantRepository) GetByID(ctx context.Context, id int) (*models.Entrant, error) {
	query := `
		SELECT id, category_id, name, rating, seed, region, created_at
		FROM entrants
		WHERE id = $1`

	entrant := &models.Entrant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&entrant.ID,
		&entrant.CategoryID,
		&entrant.Name,
		&entrant.Rating,
		&entrant.Seed,
		&entrant.Region,
		&entrant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntrantNotFound
		}
		return nil, fmt.Errorf("failed to scan entrant by id %d: %w", id, err)
	}
	return entrant, nil
}

func (r *postgresEntrantRepository) ListByCategory(ctx context.Context, categoryID int) ([]*models.Entrant, error) {
	query := `
		SELECT id, category_id, name, rating, seed, region, created_at
		FROM entrants
		WHERE category_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entrants for category %d: %w", categoryID, err)
	}
	defer rows.Close()

	entrants := make([]*models.Entrant, 0)
	for rows.Next() {
		entrant := &models.Entrant{}
		if scanErr := rows.Scan(
			&entrant.ID,
			&entrant.CategoryID,
			&entrant.Name,
			&entrant.Rating,
			&entrant.Seed,
			&entrant.Region,
			&entrant.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan entrant row: %w", scanErr)
		}
		entrants = append(entrants, entrant)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during entrant rows iteration: %w", err)
	}
	return entrants, nil
}
