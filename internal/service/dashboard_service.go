package service

import (
	"context"

	"github.com/stemsi/quizbank-backend/internal/model"
	"github.com/stemsi/quizbank-backend/internal/quiz"
	"github.com/stemsi/quizbank-backend/internal/repository"
)

// DashboardData consolidates all metrics for the admin dashboard.
type DashboardData struct {
	TotalUsers         int                                `json:"total_users"`
	TotalQuestions     int                                `json:"total_questions"`
	TotalThemes        int                                `json:"total_themes"`
	TotalAttempts      int                                `json:"total_attempts"`
	AttemptStatusCount map[model.AttemptStatus]int        `json:"attempt_status_counts"`
	RecentResults      []repository.DashboardRecentResult `json:"recent_results"`
}

// LearnerDashboard is what a learner sees before starting a test.
type LearnerDashboard struct {
	TotalQuestions   int     `json:"total_questions"`
	TestSize         int     `json:"test_size"`
	DurationMinutes  int     `json:"duration_minutes"`
	FinishedAttempts int     `json:"finished_attempts"`
	AveragePercent   float64 `json:"average_percent"`
	ActiveAttemptID  *int    `json:"active_attempt_id,omitempty"`
}

// DashboardService handles dashboard business logic.
type DashboardService struct {
	repo        *repository.DashboardRepository
	attemptRepo *repository.AttemptRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo *repository.DashboardRepository, attemptRepo *repository.AttemptRepository) *DashboardService {
	return &DashboardService{repo: repo, attemptRepo: attemptRepo}
}

// GetDashboardData gathers the admin metrics.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	users, questions, themes, attempts, err := s.repo.GetSummaryCounts(ctx)
	if err != nil {
		return nil, err
	}

	statusCounts, err := s.repo.GetAttemptStatusCounts(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.GetRecentResults(ctx, 10)
	if err != nil {
		return nil, err
	}

	return &DashboardData{
		TotalUsers:         users,
		TotalQuestions:     questions,
		TotalThemes:        themes,
		TotalAttempts:      attempts,
		AttemptStatusCount: statusCounts,
		RecentResults:      recent,
	}, nil
}

// GetLearnerDashboard gathers the figures shown on a learner's start page.
func (s *DashboardService) GetLearnerDashboard(ctx context.Context, userID int) (*LearnerDashboard, error) {
	_, questions, _, _, err := s.repo.GetSummaryCounts(ctx)
	if err != nil {
		return nil, err
	}

	finished, avg, err := s.repo.GetAverageForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	data := &LearnerDashboard{
		TotalQuestions:   questions,
		TestSize:         quiz.TestSize,
		DurationMinutes:  quiz.TestSize,
		FinishedAttempts: finished,
		AveragePercent:   avg,
	}
	if active, err := s.attemptRepo.GetActiveByUser(ctx, userID); err == nil {
		data.ActiveAttemptID = &active.ID
	}
	return data, nil
}
