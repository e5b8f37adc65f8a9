package quiz

import (
	"slices"

	"github.com/stemsi/quizbank-backend/internal/model"
)

// Evaluate reports whether selected is a correct answer for a question of
// type t with answer key correct.
//
// Single-choice answers must be exactly one index and the key must hold
// exactly one index. Every other type requires set equality.
func Evaluate(t model.QuestionType, correct, selected []int) bool {
	if t == model.QuestionTypeSingleChoice {
		return len(selected) == 1 && len(correct) == 1 && slices.Contains(correct, selected[0])
	}
	if len(selected) == 0 {
		return false
	}
	return slices.Equal(asSet(selected), asSet(correct))
}

func asSet(indices []int) []int {
	s := slices.Clone(indices)
	slices.Sort(s)
	return slices.Compact(s)
}

// Normalize drops indices outside the option range, deduplicates and sorts.
// The result is never nil.
func Normalize(indices []int) []int {
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= model.OptionCount {
			continue
		}
		out = append(out, i)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
