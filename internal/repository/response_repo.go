package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"bigfive-core/internal/db"
	"bigfive-core/internal/domain"
)

type QuestionRepository interface {
	ListByModel(ctx context.Context, modelID string) ([]domain.Question, error)
	Upsert(ctx context.Context, q domain.Question) error
}

type ResponseRepository interface {
	// ListScored devuelve las respuestas del assignment junto a los metadatos de su pregunta.
	ListScored(ctx context.Context, assignmentID string) ([]domain.ScoredResponse, error)
	Count(ctx context.Context, assignmentID string) (int, error)
	Replace(ctx context.Context, assignmentID string, answers []domain.Answer, at time.Time) error
}

type PgQuestionRepository struct {
	pool *pgxpool.Pool
}

func NewPgQuestionRepository(pool *pgxpool.Pool) *PgQuestionRepository {
	return &PgQuestionRepository{pool: pool}
}

func (r *PgQuestionRepository) ListByModel(ctx context.Context, modelID string) ([]domain.Question, error) {
	const query = `
		SELECT id, assessment_model_id, text, trait_key, facet_key, weight, is_reverse
		FROM questions
		WHERE assessment_model_id = $1
		ORDER BY id
	`
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.AssessmentModelID, &q.Text, &q.TraitKey, &q.FacetKey, &q.Weight, &q.IsReverse); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *PgQuestionRepository) Upsert(ctx context.Context, q domain.Question) error {
	const query = `
		INSERT INTO questions (id, assessment_model_id, text, trait_key, facet_key, weight, is_reverse)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET
			text = EXCLUDED.text,
			trait_key = EXCLUDED.trait_key,
			facet_key = EXCLUDED.facet_key,
			weight = EXCLUDED.weight,
			is_reverse = EXCLUDED.is_reverse
	`
	_, err := db.Conn(ctx, r.pool).Exec(ctx, query,
		q.ID, q.AssessmentModelID, q.Text, q.TraitKey, q.FacetKey, q.Weight, q.IsReverse)
	return err
}

type PgResponseRepository struct {
	pool *pgxpool.Pool
}

func NewPgResponseRepository(pool *pgxpool.Pool) *PgResponseRepository {
	return &PgResponseRepository{pool: pool}
}

func (r *PgResponseRepository) ListScored(ctx context.Context, assignmentID string) ([]domain.ScoredResponse, error) {
	const query = `
		SELECT r.id, r.assignment_id, r.question_id, r.value, r.created_at,
		       q.id, q.assessment_model_id, q.text, q.trait_key, q.facet_key, q.weight, q.is_reverse
		FROM responses r
		JOIN questions q ON q.id = r.question_id
		WHERE r.assignment_id = $1
		ORDER BY r.question_id
	`
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScoredResponse
	for rows.Next() {
		var sr domain.ScoredResponse
		resp, q := &sr.Response, &sr.Question
		if err := rows.Scan(
			&resp.ID, &resp.AssignmentID, &resp.QuestionID, &resp.Value, &resp.CreatedAt,
			&q.ID, &q.AssessmentModelID, &q.Text, &q.TraitKey, &q.FacetKey, &q.Weight, &q.IsReverse,
		); err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

func (r *PgResponseRepository) Count(ctx context.Context, assignmentID string) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT count(*) FROM responses WHERE assignment_id = $1`, assignmentID).Scan(&n)
	return n, err
}

// Replace borra e inserta; debe correr dentro de la transaccion del submit.
func (r *PgResponseRepository) Replace(ctx context.Context, assignmentID string, answers []domain.Answer, at time.Time) error {
	conn := db.Conn(ctx, r.pool)
	if _, err := conn.Exec(ctx, `DELETE FROM responses WHERE assignment_id = $1`, assignmentID); err != nil {
		return err
	}
	const insert = `
		INSERT INTO responses (id, assignment_id, question_id, value, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, a := range answers {
		if _, err := conn.Exec(ctx, insert, uuid.NewString(), assignmentID, a.QuestionID, a.Value, at); err != nil {
			return err
		}
	}
	return nil
}
