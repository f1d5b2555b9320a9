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

type ConnectionRepository interface {
	GetByID(ctx context.Context, id string) (domain.Connection, error)
}

type CrossProfileRepository interface {
	Create(ctx context.Context, report domain.CrossProfileReport) error
	GetByID(ctx context.Context, id string) (domain.CrossProfileReport, error)
	ListByConnection(ctx context.Context, connectionID string) ([]domain.CrossProfileReport, error)
}

type PgConnectionRepository struct {
	pool *pgxpool.Pool
}

func NewPgConnectionRepository(pool *pgxpool.Pool) *PgConnectionRepository {
	return &PgConnectionRepository{pool: pool}
}

func (r *PgConnectionRepository) GetByID(ctx context.Context, id string) (domain.Connection, error) {
	const query = `
		SELECT id, user_a_id, user_b_id, status, created_at
		FROM connections
		WHERE id = $1
	`
	var c domain.Connection
	err := db.Conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(&c.ID, &c.UserAID, &c.UserBID, &c.Status, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Connection{}, domain.ErrConnectionNotFound
	}
	return c, err
}

type PgCrossProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPgCrossProfileRepository(pool *pgxpool.Pool) *PgCrossProfileRepository {
	return &PgCrossProfileRepository{pool: pool}
}

const reportColumns = `
	id, connection_id, author_id, target_id, author_assignment_id, target_assignment_id,
	score_gap, average_diff, match_level, created_at
`

func (r *PgCrossProfileRepository) Create(ctx context.Context, report domain.CrossProfileReport) error {
	gap, err := json.Marshal(report.ScoreGap)
	if err != nil {
		return fmt.Errorf("encode score gap: %w", err)
	}
	query := `INSERT INTO cross_profile_reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = db.Conn(ctx, r.pool).Exec(ctx, query,
		report.ID,
		report.ConnectionID,
		report.AuthorID,
		report.TargetID,
		report.AuthorAssignmentID,
		report.TargetAssignmentID,
		gap,
		report.AverageDiff,
		report.MatchLevel,
		report.CreatedAt,
	)
	return err
}

func (r *PgCrossProfileRepository) GetByID(ctx context.Context, id string) (domain.CrossProfileReport, error) {
	query := `SELECT ` + reportColumns + ` FROM cross_profile_reports WHERE id = $1`
	rep, err := scanReport(db.Conn(ctx, r.pool).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CrossProfileReport{}, domain.ErrReportNotFound
	}
	return rep, err
}

func (r *PgCrossProfileRepository) ListByConnection(ctx context.Context, connectionID string) ([]domain.CrossProfileReport, error) {
	query := `SELECT ` + reportColumns + `
		FROM cross_profile_reports
		WHERE connection_id = $1
		ORDER BY created_at DESC`
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, connectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CrossProfileReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func scanReport(row pgx.Row) (domain.CrossProfileReport, error) {
	var (
		rep domain.CrossProfileReport
		gap []byte
	)
	if err := row.Scan(
		&rep.ID,
		&rep.ConnectionID,
		&rep.AuthorID,
		&rep.TargetID,
		&rep.AuthorAssignmentID,
		&rep.TargetAssignmentID,
		&gap,
		&rep.AverageDiff,
		&rep.MatchLevel,
		&rep.CreatedAt,
	); err != nil {
		return domain.CrossProfileReport{}, err
	}
	if err := json.Unmarshal(gap, &rep.ScoreGap); err != nil {
		return domain.CrossProfileReport{}, fmt.Errorf("%w: decode score gap: %v", domain.ErrDataIntegrity, err)
	}
	return rep, nil
}
