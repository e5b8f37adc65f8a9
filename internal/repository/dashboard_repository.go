package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizbank-backend/internal/model"
)

// DashboardRepository handles dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetSummaryCounts retrieves the high-level metrics for the admin dashboard.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (totalUsers, totalQuestions, totalThemes, totalAttempts int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM questions),
			(SELECT COUNT(DISTINCT theme_id) FROM questions),
			(SELECT COUNT(*) FROM attempts)`,
	).Scan(&totalUsers, &totalQuestions, &totalThemes, &totalAttempts)
	return
}

// GetAttemptStatusCounts retrieves the distribution of attempts by status.
func (r *DashboardRepository) GetAttemptStatusCounts(ctx context.Context) (map[model.AttemptStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM attempts GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.AttemptStatus]int)
	for rows.Next() {
		var status model.AttemptStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// DashboardRecentResult is a finished attempt with its owner's username.
type DashboardRecentResult struct {
	AttemptID  int       `json:"attempt_id"`
	Username   string    `json:"username"`
	Score      int       `json:"score"`
	Percent    int       `json:"percent"`
	FinishedAt time.Time `json:"finished_at"`
}

// GetRecentResults retrieves the last N finished attempts.
func (r *DashboardRepository) GetRecentResults(ctx context.Context, limit int) ([]DashboardRecentResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, u.username, a.score, a.percent, a.finished_at
		 FROM attempts a JOIN users u ON a.user_id = u.id
		 WHERE a.status = $1
		 ORDER BY a.finished_at DESC
		 LIMIT $2`,
		model.AttemptStatusFinished, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []DashboardRecentResult{}
	for rows.Next() {
		var res DashboardRecentResult
		if err := rows.Scan(&res.AttemptID, &res.Username, &res.Score, &res.Percent, &res.FinishedAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// GetAverageForUser returns the number of finished attempts of a user and their mean percent.
func (r *DashboardRepository) GetAverageForUser(ctx context.Context, userID int) (finished int, average float64, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(percent), 0)::float8
		 FROM attempts WHERE user_id = $1 AND status = $2`,
		userID, model.AttemptStatusFinished,
	).Scan(&finished, &average)
	return
}
