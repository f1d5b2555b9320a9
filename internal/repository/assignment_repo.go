package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bigfive-core/internal/db"
	"bigfive-core/internal/domain"
)

type AssignmentRepository interface {
	GetByID(ctx context.Context, id string) (domain.Assignment, error)
	// LockByID toma la fila con FOR UPDATE; solo tiene efecto dentro de una transaccion.
	LockByID(ctx context.Context, id string) (domain.Assignment, error)
	ListByUser(ctx context.Context, userID, assessmentType string) ([]domain.Assignment, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	SetConfig(ctx context.Context, id, configID string) error
	ListCompletedWithoutConfig(ctx context.Context, tenantID string) ([]domain.Assignment, error)
	ListCompletedWithoutResult(ctx context.Context, tenantID string) ([]domain.MissingResultEntry, error)
}

type PgAssignmentRepository struct {
	pool *pgxpool.Pool
}

func NewPgAssignmentRepository(pool *pgxpool.Pool) *PgAssignmentRepository {
	return &PgAssignmentRepository{pool: pool}
}

const assignmentColumns = `
	a.id, a.user_id, a.tenant_id, a.assessment_model_id, m.type, a.status,
	a.config_id, a.completed_at, a.created_at, a.updated_at
`

func (r *PgAssignmentRepository) GetByID(ctx context.Context, id string) (domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM assignments a
		JOIN assessment_models m ON m.id = a.assessment_model_id
		WHERE a.id = $1 AND a.status <> 'DELETED'`
	return r.getOne(ctx, query, id)
}

func (r *PgAssignmentRepository) LockByID(ctx context.Context, id string) (domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM assignments a
		JOIN assessment_models m ON m.id = a.assessment_model_id
		WHERE a.id = $1 AND a.status <> 'DELETED'
		FOR UPDATE OF a`
	return r.getOne(ctx, query, id)
}

func (r *PgAssignmentRepository) getOne(ctx context.Context, query, id string) (domain.Assignment, error) {
	a, err := scanAssignment(db.Conn(ctx, r.pool).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	return a, err
}

func (r *PgAssignmentRepository) ListByUser(ctx context.Context, userID, assessmentType string) ([]domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM assignments a
		JOIN assessment_models m ON m.id = a.assessment_model_id
		WHERE a.user_id = $1 AND m.type = $2 AND a.status <> 'DELETED'
		ORDER BY (a.status = 'COMPLETED') DESC, COALESCE(a.completed_at, a.updated_at) DESC`
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, userID, assessmentType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PgAssignmentRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE assignments
		SET status = 'COMPLETED', completed_at = $2, updated_at = $2
		WHERE id = $1 AND status <> 'COMPLETED'
	`
	_, err := db.Conn(ctx, r.pool).Exec(ctx, query, id, at)
	return err
}

func (r *PgAssignmentRepository) SetConfig(ctx context.Context, id, configID string) error {
	const query = `UPDATE assignments SET config_id = $2, updated_at = now() WHERE id = $1`
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, query, id, configID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAssignmentNotFound
	}
	return nil
}

func (r *PgAssignmentRepository) ListCompletedWithoutConfig(ctx context.Context, tenantID string) ([]domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM assignments a
		JOIN assessment_models m ON m.id = a.assessment_model_id
		WHERE a.tenant_id = $1 AND a.status = 'COMPLETED' AND (a.config_id IS NULL OR a.config_id = '')
		ORDER BY a.completed_at`
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PgAssignmentRepository) ListCompletedWithoutResult(ctx context.Context, tenantID string) ([]domain.MissingResultEntry, error) {
	query := `SELECT ` + assignmentColumns + `, u.name, u.email,
			EXISTS (SELECT 1 FROM responses rs WHERE rs.assignment_id = a.id)
		FROM assignments a
		JOIN assessment_models m ON m.id = a.assessment_model_id
		JOIN users u ON u.id = a.user_id
		LEFT JOIN scored_results sr ON sr.assignment_id = a.id
		WHERE a.tenant_id = $1 AND a.status = 'COMPLETED' AND m.type = 'BIG_FIVE' AND sr.id IS NULL
		ORDER BY a.completed_at`
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MissingResultEntry
	for rows.Next() {
		var e domain.MissingResultEntry
		a := &e.Assignment
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.TenantID, &a.AssessmentModelID, &a.AssessmentType, &a.Status,
			&a.ConfigID, &a.CompletedAt, &a.CreatedAt, &a.UpdatedAt,
			&e.UserName, &e.UserEmail, &e.HasResponses,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanAssignment(row pgx.Row) (domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.TenantID,
		&a.AssessmentModelID,
		&a.AssessmentType,
		&a.Status,
		&a.ConfigID,
		&a.CompletedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}
