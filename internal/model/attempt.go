package model

import "time"

// AttemptStatus enumerates the states of a test attempt.
type AttemptStatus string

const (
	AttemptStatusDraft      AttemptStatus = "draft"
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusFinished   AttemptStatus = "finished"
)

// Attempt is one learner's test session.
type Attempt struct {
	ID              int             `json:"id"`
	UserID          int             `json:"user_id"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      *time.Time      `json:"finished_at,omitempty"`
	TotalQuestions  int             `json:"total_questions"`
	DurationMinutes int             `json:"duration_minutes"`
	Score           int             `json:"score"`
	Percent         int             `json:"percent"`
	Status          AttemptStatus   `json:"status"`
	Details         []AttemptDetail `json:"details,omitempty"`
}

// AttemptDetail is the learner's answer state for one assigned question.
// Correct is an owned snapshot taken at assignment time.
type AttemptDetail struct {
	ID         int          `json:"id"`
	AttemptID  int          `json:"attempt_id"`
	Position   int          `json:"position"`
	QuestionID int          `json:"question_id"`
	ThemeID    int          `json:"theme_id"`
	Type       QuestionType `json:"type"`
	Selected   []int        `json:"selected"`
	Correct    []int        `json:"correct"`
	IsCorrect  bool         `json:"is_correct"`
}

// Answered reports whether the learner has confirmed a non-empty selection.
func (d *AttemptDetail) Answered() bool {
	return len(d.Selected) > 0
}

// ThemeScore is one row of the per-theme result breakdown.
type ThemeScore struct {
	ThemeID int    `json:"theme_id"`
	Title   string `json:"title"`
	Correct int    `json:"correct"`
	Total   int    `json:"total"`
}

// AttemptResult is the score export of a finished attempt.
type AttemptResult struct {
	Attempt Attempt      `json:"attempt"`
	Themes  []ThemeScore `json:"themes"`
}

// QuestionView is what a learner sees for position n of an attempt.
type QuestionView struct {
	AttemptID        int                `json:"attempt_id"`
	Position         int                `json:"position"`
	Total            int                `json:"total"`
	Question         QuestionForLearner `json:"question"`
	Selected         []int              `json:"selected"`
	Correct          []int              `json:"correct,omitempty"`
	Confirmed        bool               `json:"confirmed"`
	RemainingSeconds int                `json:"remaining_seconds"`
	Status           AttemptStatus      `json:"status"`
}

// ConfirmAnswerRequest is the payload for recording an answer.
type ConfirmAnswerRequest struct {
	Selected []int `json:"selected" binding:"max=64"`
}
