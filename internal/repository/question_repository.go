package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizbank-backend/internal/model"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListAll retrieves the whole bank in upload order.
func (r *QuestionRepository) ListAll(ctx context.Context) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, theme_id, theme_title, pick_count, type, text, options, correct
		 FROM questions ORDER BY seq`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bank := []model.Question{}
	for rows.Next() {
		var (
			q       model.Question
			options []string
		)
		if err := rows.Scan(&q.ID, &q.ThemeID, &q.ThemeTitle, &q.PickCount, &q.Type, &q.Text, &options, &q.Correct); err != nil {
			return nil, err
		}
		copy(q.Options[:], options)
		bank = append(bank, q)
	}
	return bank, rows.Err()
}

// Count returns the number of questions in the bank.
func (r *QuestionRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n)
	return n, err
}

// ReplaceAll swaps the whole bank for questions in a single transaction.
// Readers see either the old bank or the new one, never a mix.
func (r *QuestionRepository) ReplaceAll(ctx context.Context, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM questions`); err != nil {
		return fmt.Errorf("clear bank: %w", err)
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"questions"},
		[]string{"id", "seq", "theme_id", "theme_title", "pick_count", "type", "text", "options", "correct"},
		pgx.CopyFromSlice(len(questions), func(i int) ([]interface{}, error) {
			q := questions[i]
			return []interface{}{q.ID, i, q.ThemeID, q.ThemeTitle, q.PickCount, string(q.Type), q.Text, q.Options[:], q.Correct}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy questions: %w", err)
	}

	return tx.Commit(ctx)
}
