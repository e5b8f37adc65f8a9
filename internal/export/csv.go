// Package export renders finished attempts as downloadable files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/stemsi/quizbank-backend/internal/model"
)

// Delimiter separates CSV fields.
const Delimiter = ';'

// FileName builds the download name of an attempt export, e.g.
// attempt_2026-03-01T09-00-00Z.csv.
func FileName(a *model.Attempt, ext string) string {
	ts := strings.ReplaceAll(a.StartedAt.UTC().Format(time.RFC3339), ":", "-")
	return fmt.Sprintf("attempt_%s.%s", ts, ext)
}

// summaryRows are the key/value rows heading every export.
func summaryRows(a *model.Attempt) [][]string {
	return [][]string{
		{"timestamp", a.StartedAt.UTC().Format(time.RFC3339)},
		{"score", strconv.Itoa(a.Score)},
		{"total_questions", strconv.Itoa(a.TotalQuestions)},
		{"percent", strconv.Itoa(a.Percent)},
	}
}

var detailHeader = []string{"question_id", "theme_id", "type", "selected_indices", "correct_indices", "is_correct"}

func detailRow(d *model.AttemptDetail) []string {
	return []string{
		strconv.Itoa(d.QuestionID),
		strconv.Itoa(d.ThemeID),
		string(d.Type),
		indices(d.Selected),
		indices(d.Correct),
		strconv.FormatBool(d.IsCorrect),
	}
}

// indices renders an index set as a JSON list; nil renders as [].
func indices(v []int) string {
	if v == nil {
		return "[]"
	}
	raw, _ := json.Marshal(v)
	return string(raw)
}

// WriteCSV writes the attempt summary, a blank row and one row per question
// in position order.
func WriteCSV(w io.Writer, res *model.AttemptResult) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter

	rows := summaryRows(&res.Attempt)
	rows = append(rows, []string{}, detailHeader)
	for i := range res.Attempt.Details {
		rows = append(rows, detailRow(&res.Attempt.Details[i]))
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
