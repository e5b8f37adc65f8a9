package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizbank-backend/internal/model"
)

// ErrAttemptClosed is returned when a write targets an attempt that is no longer in progress.
var ErrAttemptClosed = errors.New("attempt is not in progress")

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const attemptColumns = `id, user_id, started_at, finished_at, total_questions, duration_minutes, score, percent, status`

// AttemptRepository handles attempt and attempt detail data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row, a *model.Attempt) error {
	return row.Scan(&a.ID, &a.UserID, &a.StartedAt, &a.FinishedAt, &a.TotalQuestions,
		&a.DurationMinutes, &a.Score, &a.Percent, &a.Status)
}

// Create persists a started attempt together with all of its details in one
// transaction and fills in the generated IDs.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	err = tx.QueryRow(ctx,
		`INSERT INTO attempts (user_id, started_at, total_questions, duration_minutes, score, percent, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		a.UserID, a.StartedAt, a.TotalQuestions, a.DurationMinutes, a.Score, a.Percent, a.Status,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range a.Details {
		d := &a.Details[i]
		d.AttemptID = a.ID
		batch.Queue(
			`INSERT INTO attempt_details (attempt_id, position, question_id, theme_id, type, selected, correct, is_correct)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			d.AttemptID, d.Position, d.QuestionID, d.ThemeID, string(d.Type), d.Selected, d.Correct, d.IsCorrect,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&d.ID)
		})
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert details: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByID retrieves an attempt without its details.
func (r *AttemptRepository) GetByID(ctx context.Context, id int) (*model.Attempt, error) {
	a := &model.Attempt{}
	row := r.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id)
	if err := scanAttempt(row, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListDetails retrieves all details of an attempt ordered by position.
func (r *AttemptRepository) ListDetails(ctx context.Context, attemptID int) ([]model.AttemptDetail, error) {
	return listDetails(ctx, r.pool, attemptID)
}

func listDetails(ctx context.Context, q querier, attemptID int) ([]model.AttemptDetail, error) {
	rows, err := q.Query(ctx,
		`SELECT id, attempt_id, position, question_id, theme_id, type, selected, correct, is_correct
		 FROM attempt_details WHERE attempt_id = $1
		 ORDER BY position`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := []model.AttemptDetail{}
	for rows.Next() {
		var d model.AttemptDetail
		if err := rows.Scan(&d.ID, &d.AttemptID, &d.Position, &d.QuestionID, &d.ThemeID, &d.Type, &d.Selected, &d.Correct, &d.IsCorrect); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// GetDetail retrieves the detail at a 1-indexed position.
func (r *AttemptRepository) GetDetail(ctx context.Context, attemptID, position int) (*model.AttemptDetail, error) {
	d := &model.AttemptDetail{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, attempt_id, position, question_id, theme_id, type, selected, correct, is_correct
		 FROM attempt_details WHERE attempt_id = $1 AND position = $2`, attemptID, position,
	).Scan(&d.ID, &d.AttemptID, &d.Position, &d.QuestionID, &d.ThemeID, &d.Type, &d.Selected, &d.Correct, &d.IsCorrect)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// SaveAnswer stores a detail's selection and correctness under the attempt
// row lock shared with Finish.
func (r *AttemptRepository) SaveAnswer(ctx context.Context, d *model.AttemptDetail) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var status model.AttemptStatus
	err = tx.QueryRow(ctx, `SELECT status FROM attempts WHERE id = $1 FOR UPDATE`, d.AttemptID).Scan(&status)
	if err != nil {
		return err
	}
	if status != model.AttemptStatusInProgress {
		return ErrAttemptClosed
	}

	_, err = tx.Exec(ctx,
		`UPDATE attempt_details SET selected = $1, is_correct = $2
		 WHERE attempt_id = $3 AND position = $4`,
		d.Selected, d.IsCorrect, d.AttemptID, d.Position,
	)
	if err != nil {
		return fmt.Errorf("update detail: %w", err)
	}

	return tx.Commit(ctx)
}

// Finish locks the attempt row, loads its details inside the same transaction
// and hands the attempt to score. The scored attempt is written back only if
// it was still in progress; otherwise the stored attempt is returned with
// false. Answers saved through SaveAnswer take the same lock, so the stored
// score always matches the stored details.
func (r *AttemptRepository) Finish(ctx context.Context, id int, score func(a *model.Attempt) error) (*model.Attempt, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	a := &model.Attempt{}
	row := tx.QueryRow(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id = $1 FOR UPDATE`, id)
	if err := scanAttempt(row, a); err != nil {
		return nil, false, err
	}
	a.Details, err = listDetails(ctx, tx, id)
	if err != nil {
		return nil, false, fmt.Errorf("list details: %w", err)
	}
	if a.Status != model.AttemptStatusInProgress {
		return a, false, nil
	}

	if err := score(a); err != nil {
		return nil, false, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE attempts SET score = $1, percent = $2, status = $3, finished_at = $4
		 WHERE id = $5`,
		a.Score, a.Percent, a.Status, a.FinishedAt, a.ID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("update attempt: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return a, true, nil
}

// ListByUser retrieves a user's attempts, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID int) ([]model.Attempt, error) {
	return r.list(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE user_id = $1 ORDER BY started_at DESC, id DESC`, userID)
}

// ListInProgress retrieves every attempt that has not been finished yet.
func (r *AttemptRepository) ListInProgress(ctx context.Context) ([]model.Attempt, error) {
	return r.list(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE status = $1 ORDER BY started_at`, model.AttemptStatusInProgress)
}

// GetActiveByUser retrieves the user's most recent in-progress attempt.
func (r *AttemptRepository) GetActiveByUser(ctx context.Context, userID int) (*model.Attempt, error) {
	a := &model.Attempt{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE user_id = $1 AND status = $2
		 ORDER BY started_at DESC LIMIT 1`, userID, model.AttemptStatusInProgress)
	if err := scanAttempt(row, a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetStartedAt fetches only the start time of an attempt.
func (r *AttemptRepository) GetStartedAt(ctx context.Context, id int) (time.Time, error) {
	var t time.Time
	err := r.pool.QueryRow(ctx, `SELECT started_at FROM attempts WHERE id = $1`, id).Scan(&t)
	return t, err
}

func (r *AttemptRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []model.Attempt{}
	for rows.Next() {
		var a model.Attempt
		if err := scanAttempt(rows, &a); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
