package quiz

import "github.com/stemsi/quizbank-backend/internal/model"

// Theme is one theme's slice of the bank.
type Theme struct {
	ThemeID int
	Title   string
	Quota   int
	Pool    []model.Question
}

// PartitionByTheme groups bank records by theme id, keeping the order in
// which themes first appear. A theme's quota and title come from the last
// record seen for it.
func PartitionByTheme(bank []model.Question) []Theme {
	index := make(map[int]int)
	var themes []Theme
	for _, q := range bank {
		i, ok := index[q.ThemeID]
		if !ok {
			i = len(themes)
			index[q.ThemeID] = i
			themes = append(themes, Theme{ThemeID: q.ThemeID})
		}
		themes[i].Pool = append(themes[i].Pool, q)
		themes[i].Quota = q.PickCount
		themes[i].Title = q.ThemeTitle
	}
	return themes
}

// ThemeTitles maps theme ids to their titles in the given bank.
func ThemeTitles(bank []model.Question) map[int]string {
	titles := make(map[int]string)
	for _, q := range bank {
		titles[q.ThemeID] = q.ThemeTitle
	}
	return titles
}

// Stats summarizes a bank per theme and reports whether Assemble would
// accept it.
func Stats(bank []model.Question) model.BankStats {
	themes := PartitionByTheme(bank)
	stats := model.BankStats{
		TotalQuestions: len(bank),
		Ready:          true,
		Themes:         make([]model.ThemeStats, 0, len(themes)),
	}
	for _, t := range themes {
		stats.QuotaTotal += t.Quota
		if len(t.Pool) < t.Quota {
			stats.Ready = false
		}
		stats.Themes = append(stats.Themes, model.ThemeStats{
			ThemeID:   t.ThemeID,
			Title:     t.Title,
			PickCount: t.Quota,
			Available: len(t.Pool),
		})
	}
	stats.Ready = stats.Ready && stats.QuotaTotal == TestSize
	return stats
}
