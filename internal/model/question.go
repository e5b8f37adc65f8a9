package model

// QuestionType enumerates how a question's answer is evaluated.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "single_choice"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
)

// OptionCount is the fixed number of answer options per question.
const OptionCount = 4

// Question is one record of the question bank.
// PickCount is a theme-level quota stored redundantly on every question of the theme.
type Question struct {
	ID         int                 `json:"id"`
	ThemeID    int                 `json:"theme_id"`
	ThemeTitle string              `json:"theme_title"`
	PickCount  int                 `json:"pick_count"`
	Type       QuestionType        `json:"type"`
	Text       string              `json:"text"`
	Options    [OptionCount]string `json:"options"`
	Correct    []int               `json:"correct"`
}

// QuestionForLearner is a question without its answer key or theme quota.
type QuestionForLearner struct {
	ID         int                 `json:"id"`
	ThemeID    int                 `json:"theme_id"`
	ThemeTitle string              `json:"theme_title"`
	Type       QuestionType        `json:"type"`
	Text       string              `json:"text"`
	Options    [OptionCount]string `json:"options"`
}

// ForLearner strips the answer key and quota.
func (q *Question) ForLearner() QuestionForLearner {
	return QuestionForLearner{
		ID:         q.ID,
		ThemeID:    q.ThemeID,
		ThemeTitle: q.ThemeTitle,
		Type:       q.Type,
		Text:       q.Text,
		Options:    q.Options,
	}
}

// BankUploadItem is one element of an uploaded question bank file.
type BankUploadItem struct {
	ID       int             `json:"id" binding:"required,min=1"`
	Theme    BankUploadTheme `json:"theme" binding:"required"`
	Type     string          `json:"type" binding:"required,oneof=single_choice multiple_choice"`
	Question string          `json:"question" binding:"required"`
	Options  []string        `json:"options" binding:"required,len=4"`
	Correct  []int           `json:"correct" binding:"required,min=1,max=4,dive,min=0,max=3"`
}

// BankUploadTheme carries the theme block of an uploaded question.
type BankUploadTheme struct {
	ID        int    `json:"id" binding:"min=0"`
	Title     string `json:"title" binding:"required,max=255"`
	PickCount int    `json:"pick_count" binding:"required,min=1"`
}

// BankUpload wraps the uploaded list so it can be validated in one pass.
type BankUpload struct {
	Questions []BankUploadItem `json:"questions" binding:"required,min=1,dive"`
}

// BankStats summarizes the current bank for the admin dashboard.
// Ready reports whether a test can be assembled from it.
type BankStats struct {
	TotalQuestions int          `json:"total_questions"`
	QuotaTotal     int          `json:"quota_total"`
	Ready          bool         `json:"ready"`
	Themes         []ThemeStats `json:"themes"`
}

// ThemeStats is one theme's share of the bank.
type ThemeStats struct {
	ThemeID   int    `json:"theme_id"`
	Title     string `json:"title"`
	PickCount int    `json:"pick_count"`
	Available int    `json:"available"`
}
