package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/stemsi/quizbank-backend/internal/model"
)

const (
	sheetAttempt = "Attempt"
	sheetThemes  = "Themes"
)

// WriteXLSX writes a workbook with the same content as WriteCSV on one sheet
// and the per-theme breakdown on a second.
func WriteXLSX(w io.Writer, res *model.AttemptResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetAttempt); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	row := 1
	for _, kv := range summaryRows(&res.Attempt) {
		if err := setRow(f, sheetAttempt, row, []interface{}{kv[0], kv[1]}); err != nil {
			return err
		}
		row++
	}
	row++ // blank separator

	header := make([]interface{}, len(detailHeader))
	for i, h := range detailHeader {
		header[i] = h
	}
	if err := setRow(f, sheetAttempt, row, header); err != nil {
		return err
	}
	if err := styleRow(f, sheetAttempt, row, len(header), bold); err != nil {
		return err
	}
	row++

	for i := range res.Attempt.Details {
		d := &res.Attempt.Details[i]
		values := []interface{}{d.QuestionID, d.ThemeID, string(d.Type), indices(d.Selected), indices(d.Correct), d.IsCorrect}
		if err := setRow(f, sheetAttempt, row, values); err != nil {
			return err
		}
		row++
	}

	if _, err := f.NewSheet(sheetThemes); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := setRow(f, sheetThemes, 1, []interface{}{"theme_id", "title", "correct", "total"}); err != nil {
		return err
	}
	if err := styleRow(f, sheetThemes, 1, 4, bold); err != nil {
		return err
	}
	for i, t := range res.Themes {
		if err := setRow(f, sheetThemes, i+2, []interface{}{t.ThemeID, t.Title, t.Correct, t.Total}); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("set row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}
