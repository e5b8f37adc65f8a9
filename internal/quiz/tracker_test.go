package quiz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/quizbank-backend/internal/model"
)

var startedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func startedAttempt(t *testing.T) *model.Attempt {
	t.Helper()
	bank := buildBank([3]int{1, 60, 60}, [3]int{2, 60, 60})
	bank[0].Type = model.QuestionTypeMultipleChoice
	bank[0].Correct = []int{0, 2}

	// keep bank order so position 1 is the multiple-choice question
	a := Start(7, bank, startedAt)
	require.Len(t, a.Details, TestSize)
	return a
}

func TestStart(t *testing.T) {
	bank := buildBank([3]int{1, 60, 60}, [3]int{2, 60, 60})
	a := Start(7, bank, startedAt)

	assert.Equal(t, 7, a.UserID)
	assert.Equal(t, TestSize, a.TotalQuestions)
	assert.Equal(t, TestSize, a.DurationMinutes)
	assert.Zero(t, a.Score)
	assert.Zero(t, a.Percent)
	assert.Equal(t, model.AttemptStatusInProgress, a.Status)

	for i, d := range a.Details {
		assert.Equal(t, i+1, d.Position)
		assert.Equal(t, bank[i].ID, d.QuestionID)
		assert.Equal(t, bank[i].ThemeID, d.ThemeID)
		assert.Empty(t, d.Selected)
		assert.False(t, d.IsCorrect)
	}
}

func TestStart_FreezesAnswerKey(t *testing.T) {
	bank := buildBank([3]int{1, 120, 120})
	a := Start(1, bank, startedAt)

	bank[0].Correct[0] = 3

	assert.Equal(t, []int{0}, a.Details[0].Correct)
}

func TestRecordAnswer_Reanswer(t *testing.T) {
	a := startedAttempt(t)

	d, err := RecordAnswer(a, 1, []int{1})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, d.Selected)
	assert.False(t, d.IsCorrect)

	d, err = RecordAnswer(a, 1, []int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, a.Details[0].Selected)
	assert.True(t, a.Details[0].IsCorrect)
	assert.Same(t, &a.Details[0], d)
}

func TestRecordAnswer_FiltersCandidates(t *testing.T) {
	a := startedAttempt(t)

	d, err := RecordAnswer(a, 2, []int{7, 0, 0, -1})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, d.Selected)
	assert.True(t, d.IsCorrect)
}

func TestRecordAnswer_Errors(t *testing.T) {
	a := startedAttempt(t)

	_, err := RecordAnswer(a, 0, []int{1})
	assert.ErrorIs(t, err, ErrPositionOutOfRange)
	_, err = RecordAnswer(a, TestSize+1, []int{1})
	assert.ErrorIs(t, err, ErrPositionOutOfRange)

	require.NoError(t, Finish(a, startedAt.Add(time.Hour)))
	_, err = RecordAnswer(a, 1, []int{0, 2})
	assert.ErrorIs(t, err, ErrAttemptFinished)
	assert.Empty(t, a.Details[0].Selected)
}

func TestSkip(t *testing.T) {
	a := startedAttempt(t)
	_, err := RecordAnswer(a, 3, []int{0})
	require.NoError(t, err)

	next, err := Skip(a, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, next)
	assert.Equal(t, []int{0}, a.Details[2].Selected, "skip keeps the earlier selection")

	next, err = Skip(a, TestSize)
	require.NoError(t, err)
	assert.Equal(t, TestSize, next)

	_, err = Skip(a, 0)
	assert.ErrorIs(t, err, ErrPositionOutOfRange)
}

func TestFinish_Scoring(t *testing.T) {
	a := startedAttempt(t)
	for i := range a.Details[:90] {
		a.Details[i].IsCorrect = true
	}

	end := startedAt.Add(30 * time.Minute)
	require.NoError(t, Finish(a, end))

	assert.Equal(t, 90, a.Score)
	assert.Equal(t, 75, a.Percent)
	assert.Equal(t, model.AttemptStatusFinished, a.Status)
	require.NotNil(t, a.FinishedAt)
	assert.Equal(t, end, *a.FinishedAt)
}

func TestFinish_Immutable(t *testing.T) {
	a := startedAttempt(t)
	a.Details[0].IsCorrect = true
	require.NoError(t, Finish(a, startedAt))

	a.Details[1].IsCorrect = true
	require.NoError(t, Finish(a, startedAt.Add(time.Hour)))

	assert.Equal(t, 1, a.Score)
	assert.Equal(t, startedAt, *a.FinishedAt)
}

func TestFinish_NotStarted(t *testing.T) {
	a := &model.Attempt{Status: model.AttemptStatusDraft, TotalQuestions: TestSize}
	assert.ErrorIs(t, Finish(a, startedAt), ErrAttemptNotStarted)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		score, total, want int
	}{
		{90, 120, 75},
		{0, 120, 0},
		{120, 120, 100},
		{1, 120, 1}, // 0.833
		{3, 120, 2}, // 2.5 rounds to even
		{9, 120, 8}, // 7.5 rounds to even
		{5, 0, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Percent(tc.score, tc.total), "%d/%d", tc.score, tc.total)
	}
}

func TestThemeReport(t *testing.T) {
	details := []model.AttemptDetail{
		{ThemeID: 2, IsCorrect: true},
		{ThemeID: 1, IsCorrect: false},
		{ThemeID: 2, IsCorrect: false},
		{ThemeID: 9, IsCorrect: true},
		{ThemeID: 1, IsCorrect: true},
	}
	titles := map[int]string{1: "Algebra", 2: "Geometry"}

	got := ThemeReport(details, titles)

	assert.Equal(t, []model.ThemeScore{
		{ThemeID: 2, Title: "Geometry", Correct: 1, Total: 2},
		{ThemeID: 1, Title: "Algebra", Correct: 1, Total: 2},
		{ThemeID: 9, Title: "id=9", Correct: 1, Total: 1},
	}, got)
}

func TestRemaining(t *testing.T) {
	a := &model.Attempt{StartedAt: startedAt, DurationMinutes: TestSize}

	assert.Equal(t, 120*time.Minute, Remaining(a, startedAt))
	assert.Equal(t, 20*time.Minute, Remaining(a, startedAt.Add(100*time.Minute)))
	assert.Zero(t, Remaining(a, startedAt.Add(5*time.Hour)))
	assert.Equal(t, startedAt.Add(2*time.Hour), Deadline(a))
}
