package quiz

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/stemsi/quizbank-backend/internal/model"
)

// Tracker errors.
var (
	ErrAttemptFinished    = errors.New("attempt is already finished")
	ErrAttemptNotStarted  = errors.New("attempt has not been started")
	ErrPositionOutOfRange = errors.New("question position out of range")
)

// Start materializes a selection as a new in-progress attempt owned by userID.
// Each detail gets an owned copy of its question's answer key so later bank
// replacements cannot change how the attempt is scored.
func Start(userID int, selection []model.Question, startedAt time.Time) *model.Attempt {
	a := &model.Attempt{
		UserID:          userID,
		StartedAt:       startedAt,
		TotalQuestions:  TestSize,
		DurationMinutes: TestSize,
		Status:          model.AttemptStatusInProgress,
		Details:         make([]model.AttemptDetail, len(selection)),
	}
	for i, q := range selection {
		a.Details[i] = model.AttemptDetail{
			Position:   i + 1,
			QuestionID: q.ID,
			ThemeID:    q.ThemeID,
			Type:       q.Type,
			Selected:   []int{},
			Correct:    slices.Clone(q.Correct),
		}
	}
	return a
}

// ApplyAnswer normalizes candidates, stores them as the detail's selection
// and recomputes correctness against the frozen answer key. Any previous
// selection is overwritten.
func ApplyAnswer(d *model.AttemptDetail, candidates []int) {
	d.Selected = Normalize(candidates)
	d.IsCorrect = Evaluate(d.Type, d.Correct, d.Selected)
}

// RecordAnswer applies candidates to the 1-indexed question position of an
// in-progress attempt and returns the updated detail.
func RecordAnswer(a *model.Attempt, position int, candidates []int) (*model.AttemptDetail, error) {
	d, err := detailAt(a, position)
	if err != nil {
		return nil, err
	}
	if err := CheckWritable(a); err != nil {
		return nil, err
	}
	ApplyAnswer(d, candidates)
	return d, nil
}

// Skip returns the position after position, capped at the last question.
// The skipped detail is left untouched.
func Skip(a *model.Attempt, position int) (int, error) {
	if err := CheckWritable(a); err != nil {
		return 0, err
	}
	if position < 1 || position > a.TotalQuestions {
		return 0, fmt.Errorf("%w: %d", ErrPositionOutOfRange, position)
	}
	return min(position+1, a.TotalQuestions), nil
}

// Finish computes the final score and percent from the attempt's details and
// moves it to the finished state. Finishing a finished attempt changes nothing.
func Finish(a *model.Attempt, now time.Time) error {
	switch a.Status {
	case model.AttemptStatusFinished:
		return nil
	case model.AttemptStatusInProgress:
	default:
		return ErrAttemptNotStarted
	}

	score := 0
	for i := range a.Details {
		if a.Details[i].IsCorrect {
			score++
		}
	}
	a.Score = score
	a.Percent = Percent(score, a.TotalQuestions)
	a.Status = model.AttemptStatusFinished
	a.FinishedAt = &now
	return nil
}

// Percent rounds score/total*100 half to even.
func Percent(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.RoundToEven(float64(score) / float64(total) * 100))
}

// ThemeReport groups details by theme in order of first appearance. Titles
// come from the current bank; themes missing from it get an "id=<n>" label.
func ThemeReport(details []model.AttemptDetail, titles map[int]string) []model.ThemeScore {
	index := make(map[int]int)
	var report []model.ThemeScore
	for _, d := range details {
		i, ok := index[d.ThemeID]
		if !ok {
			title, found := titles[d.ThemeID]
			if !found {
				title = fmt.Sprintf("id=%d", d.ThemeID)
			}
			i = len(report)
			index[d.ThemeID] = i
			report = append(report, model.ThemeScore{ThemeID: d.ThemeID, Title: title})
		}
		report[i].Total++
		if d.IsCorrect {
			report[i].Correct++
		}
	}
	return report
}

// Deadline is the end of the attempt's time window.
func Deadline(a *model.Attempt) time.Time {
	return a.StartedAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Remaining is the time left in the attempt's window at now, never negative.
func Remaining(a *model.Attempt, now time.Time) time.Duration {
	left := Deadline(a).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// CheckWritable rejects answer/skip operations on attempts that are not in progress.
func CheckWritable(a *model.Attempt) error {
	switch a.Status {
	case model.AttemptStatusInProgress:
		return nil
	case model.AttemptStatusFinished:
		return ErrAttemptFinished
	default:
		return ErrAttemptNotStarted
	}
}

func detailAt(a *model.Attempt, position int) (*model.AttemptDetail, error) {
	if position < 1 || position > len(a.Details) {
		return nil, fmt.Errorf("%w: %d", ErrPositionOutOfRange, position)
	}
	return &a.Details[position-1], nil
}
