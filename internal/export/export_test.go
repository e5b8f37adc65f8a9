package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/stemsi/quizbank-backend/internal/model"
)

func sampleResult() *model.AttemptResult {
	return &model.AttemptResult{
		Attempt: model.Attempt{
			ID:             3,
			StartedAt:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			TotalQuestions: 120,
			Score:          2,
			Percent:        2,
			Status:         model.AttemptStatusFinished,
			Details: []model.AttemptDetail{
				{Position: 1, QuestionID: 11, ThemeID: 1, Type: model.QuestionTypeSingleChoice, Selected: []int{2}, Correct: []int{2}, IsCorrect: true},
				{Position: 2, QuestionID: 42, ThemeID: 2, Type: model.QuestionTypeMultipleChoice, Selected: []int{}, Correct: []int{0, 3}},
			},
		},
		Themes: []model.ThemeScore{
			{ThemeID: 1, Title: "Algebra", Correct: 1, Total: 1},
			{ThemeID: 2, Title: "id=2", Correct: 0, Total: 1},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult()))

	want := "timestamp;2026-03-01T09:00:00Z\n" +
		"score;2\n" +
		"total_questions;120\n" +
		"percent;2\n" +
		"\n" +
		"question_id;theme_id;type;selected_indices;correct_indices;is_correct\n" +
		"11;1;single_choice;[2];[2];true\n" +
		"42;2;multiple_choice;[];[0,3];false\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_Readable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult()))

	r := csv.NewReader(&buf)
	r.Comma = Delimiter
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	// csv.Reader skips the blank separator line.
	require.Len(t, records, 7)
	assert.Equal(t, []string{"42", "2", "multiple_choice", "[]", "[0,3]", "false"}, records[6])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleResult()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetAttempt, sheetThemes}, f.GetSheetList())

	score, err := f.GetCellValue(sheetAttempt, "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", score)

	header, err := f.GetCellValue(sheetAttempt, "A6")
	require.NoError(t, err)
	assert.Equal(t, "question_id", header)

	qid, err := f.GetCellValue(sheetAttempt, "A8")
	require.NoError(t, err)
	assert.Equal(t, "42", qid)

	title, err := f.GetCellValue(sheetThemes, "B3")
	require.NoError(t, err)
	assert.Equal(t, "id=2", title)
}

func TestFileName(t *testing.T) {
	a := &model.Attempt{StartedAt: time.Date(2026, 3, 1, 9, 5, 7, 0, time.UTC)}
	assert.Equal(t, "attempt_2026-03-01T09-05-07Z.csv", FileName(a, "csv"))
}
