package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bigfive-core/internal/db"
	"bigfive-core/internal/domain"
)

type ResultRepository interface {
	GetByAssignment(ctx context.Context, assignmentID string) (domain.ScoredResult, error)
	// Upsert garantiza un unico resultado por assignment.
	Upsert(ctx context.Context, result domain.ScoredResult) (domain.ScoredResult, error)
}

type PgResultRepository struct {
	pool *pgxpool.Pool
}

func NewPgResultRepository(pool *pgxpool.Pool) *PgResultRepository {
	return &PgResultRepository{pool: pool}
}

func (r *PgResultRepository) GetByAssignment(ctx context.Context, assignmentID string) (domain.ScoredResult, error) {
	const query = `
		SELECT id, assignment_id, config_id, method, scores, created_at
		FROM scored_results
		WHERE assignment_id = $1
	`
	var (
		res    domain.ScoredResult
		scores []byte
	)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, query, assignmentID).Scan(
		&res.ID, &res.AssignmentID, &res.ConfigID, &res.Method, &scores, &res.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScoredResult{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.ScoredResult{}, err
	}
	if err := json.Unmarshal(scores, &res.Scores); err != nil {
		return domain.ScoredResult{}, fmt.Errorf("%w: decode scores of %s: %v", domain.ErrDataIntegrity, assignmentID, err)
	}
	return res, nil
}

func (r *PgResultRepository) Upsert(ctx context.Context, result domain.ScoredResult) (domain.ScoredResult, error) {
	scores, err := json.Marshal(result.Scores)
	if err != nil {
		return domain.ScoredResult{}, fmt.Errorf("encode scores: %w", err)
	}
	const query = `
		INSERT INTO scored_results (id, assignment_id, config_id, method, scores, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (assignment_id)
		DO UPDATE SET
			config_id = EXCLUDED.config_id,
			method = EXCLUDED.method,
			scores = EXCLUDED.scores
		RETURNING id, created_at
	`
	err = db.Conn(ctx, r.pool).QueryRow(ctx, query,
		result.ID, result.AssignmentID, result.ConfigID, result.Method, scores, result.CreatedAt,
	).Scan(&result.ID, &result.CreatedAt)
	return result, err
}
