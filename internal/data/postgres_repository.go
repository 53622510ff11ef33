package data

import (
	"context"
	"fmt"
	"submission_service/internal/errdefs"
	"submission_service/internal/model"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the repository needs; pgxmock satisfies it too.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

type PostgresRepository struct {
	db  Querier
	now func() time.Time
}

func NewPostgresRepository(db Querier) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

// ListSubmissions has no ORDER BY: rows come back in the table's scan order.
func (r *PostgresRepository) ListSubmissions(ctx context.Context) ([]*model.Submission, error) {
	query := `
SELECT id::text AS id, name, email, assignment_url, created_at, updated_at
FROM submissions
`
	submissions := make([]*model.Submission, 0)
	if err := pgxscan.Select(ctx, r.db, &submissions, query); err != nil {
		return nil, fmt.Errorf("select submissions: %w", err)
	}
	return submissions, nil
}

func (r *PostgresRepository) CreateSubmission(ctx context.Context, input *model.RepositoryCreateSubmissionInput) (*model.Submission, error) {
	query := `
INSERT INTO submissions (
 id, name, email, assignment_url, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id::text AS id, name, email, assignment_url, created_at, updated_at
`
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	now := r.now().UTC().Truncate(time.Millisecond)

	var submission model.Submission
	err = pgxscan.Get(ctx, r.db, &submission, query,
		id,
		input.Name,
		input.Email,
		input.AssignmentURL,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w: %w", errdefs.ErrPersistence, err)
	}
	return &submission, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
