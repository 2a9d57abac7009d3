package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/opencourt/bracket-engine/models"
)

var (
	ErrBracketNotFound        = errors.New("bracket not found")
	ErrBracketCategoryInvalid = errors.New("bracket category conflict or invalid")
	ErrBracketAlreadyExists   = errors.New("bracket for this category already exists")
)

// bracketTopology — сериализованная форма графа узлов (или списка пар),
// хранится в колонке topology как JSONB. Это каноническая топология сетки.
type bracketTopology struct {
	Nodes map[string]*models.BracketNode `json:"nodes,omitempty"`
	Pairs []models.RoundRobinPair        `json:"pairs,omitempty"`
}

type BracketRepository interface {
	Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error
	GetByID(ctx context.Context, id int) (*models.Bracket, error)
	// GetForUpdate читает сетку с блокировкой строки: продвижения по одной
	// сетке сериализуются, чтобы не потерять обновления графа узлов.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Bracket, error)
	UpdateTopology(ctx context.Context, exec SQLExecutor, id int, nodes map[string]*models.BracketNode, currentRound int) error
	SetComplete(ctx context.Context, exec SQLExecutor, id int, championID, runnerUpID *int) error
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

const bracketColumns = `
	id, category_id, type, seeding_method, best_of, total_rounds,
	current_round, is_complete, champion_id, runner_up_id, topology, created_at`

func (r *postgresBracketRepository) Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error {
	topoJSON, err := json.Marshal(bracketTopology{Nodes: bracket.Nodes, Pairs: bracket.Pairs})
	if err != nil {
		return fmt.Errorf("failed to marshal bracket topology: %w", err)
	}

	query := `
		INSERT INTO brackets
			(category_id, type, seeding_method, best_of, total_rounds,
			 current_round, is_complete, topology)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err = exec.QueryRowContext(ctx, query,
		bracket.CategoryID,
		bracket.Type,
		bracket.SeedingMethod,
		bracket.BestOf,
		bracket.TotalRounds,
		bracket.CurrentRound,
		bracket.IsComplete,
		topoJSON,
	).Scan(&bracket.ID, &bracket.CreatedAt)

	return r.handleBracketError(err)
}

func (r *postgresBracketRepository) GetByID(ctx context.Context, id int) (*models.Bracket, error) {
	query := `SELECT ` + bracketColumns + ` FROM brackets WHERE id = $1`
	return r.scanBracket(r.db.QueryRowContext(ctx, query, id), id)
}

func (r *postgresBracketRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Bracket, error) {
	query := `SELECT ` + bracketColumns + ` FROM brackets WHERE id = $1 FOR UPDATE`
	return r.scanBracket(exec.QueryRowContext(ctx, query, id), id)
}

func (r *postgresBracketRepository) scanBracket(row *sql.Row, id int) (*models.Bracket, error) {
	bracket := &models.Bracket{}
	var topoJSON []byte
	err := row.Scan(
		&bracket.ID,
		&bracket.CategoryID,
		&bracket.Type,
		&bracket.SeedingMethod,
		&bracket.BestOf,
		&bracket.TotalRounds,
		&bracket.CurrentRound,
		&bracket.IsComplete,
		&bracket.ChampionID,
		&bracket.RunnerUpID,
		&topoJSON,
		&bracket.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to scan bracket by id %d: %w", id, err)
	}

	var topo bracketTopology
	if err := json.Unmarshal(topoJSON, &topo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal topology for bracket %d: %w", id, err)
	}
	bracket.Nodes = topo.Nodes
	bracket.Pairs = topo.Pairs
	return bracket, nil
}

func (r *postgresBracketRepository) UpdateTopology(ctx context.Context, exec SQLExecutor, id int, nodes map[string]*models.BracketNode, currentRound int) error {
	topoJSON, err := json.Marshal(bracketTopology{Nodes: nodes})
	if err != nil {
		return fmt.Errorf("failed to marshal bracket topology: %w", err)
	}

	query := `UPDATE brackets SET topology = $1, current_round = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, topoJSON, currentRound, id)
	if err != nil {
		return fmt.Errorf("UpdateTopology: failed to execute query for bracket %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}

func (r *postgresBracketRepository) SetComplete(ctx context.Context, exec SQLExecutor, id int, championID, runnerUpID *int) error {
	// is_complete переходит false→true ровно один раз; повторное
	// завершение не находит строку.
	query := `
		UPDATE brackets
		SET is_complete = TRUE, champion_id = $1, runner_up_id = $2
		WHERE id = $3 AND is_complete = FALSE`
	result, err := exec.ExecContext(ctx, query, championID, runnerUpID, id)
	if err != nil {
		return fmt.Errorf("SetComplete: failed to execute query for bracket %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}

func (r *postgresBracketRepository) handleBracketError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "brackets_category_id_fkey":
			return ErrBracketCategoryInvalid
		case "brackets_category_id_key":
			return ErrBracketAlreadyExists
		}
	}
	return err
}
