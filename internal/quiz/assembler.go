// Package quiz holds the test-assembly and scoring engine: quota-balanced
// question selection, answer evaluation and attempt tracking. Everything
// here is pure and operates on in-memory model values; persistence and
// transport live in the calling layers.
package quiz

import (
	"errors"
	"fmt"

	"github.com/stemsi/quizbank-backend/internal/model"
)

// TestSize is the number of questions in every test and the timer length in minutes.
const TestSize = 120

// Sentinels matched by the typed assembly errors.
var (
	ErrQuotaMismatch    = errors.New("quota mismatch")
	ErrInsufficientPool = errors.New("insufficient questions in theme")
	ErrBadSelection     = errors.New("bad selection")
)

// ConfigError reports a bank whose theme quotas do not add up to TestSize.
// The message never carries the quota numbers.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "quiz: bank misconfigured: " + e.Reason }
func (e *ConfigError) Unwrap() error { return ErrQuotaMismatch }

// InsufficientPoolError reports a theme with fewer questions than its quota.
type InsufficientPoolError struct {
	ThemeID   int
	Available int
	Quota     int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("quiz: theme %d has insufficient questions", e.ThemeID)
}
func (e *InsufficientPoolError) Unwrap() error { return ErrInsufficientPool }

// AssemblyError reports an internal invariant violation after drawing.
type AssemblyError struct {
	Got  int
	Want int
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("quiz: assembled %d questions, want %d", e.Got, e.Want)
}
func (e *AssemblyError) Unwrap() error { return ErrBadSelection }

// Randomizer is the random source used by Assemble. *math/rand/v2.Rand satisfies it.
type Randomizer interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Assemble draws a quota-balanced, globally shuffled selection of TestSize
// questions from bank. The bank is not modified.
func Assemble(bank []model.Question, rng Randomizer) ([]model.Question, error) {
	themes := PartitionByTheme(bank)

	total := 0
	for _, t := range themes {
		total += t.Quota
	}
	if total != TestSize {
		return nil, &ConfigError{Reason: "quota mismatch"}
	}

	selected := make([]model.Question, 0, TestSize)
	for _, t := range themes {
		if t.Quota <= 0 {
			continue
		}
		if len(t.Pool) < t.Quota {
			return nil, &InsufficientPoolError{ThemeID: t.ThemeID, Available: len(t.Pool), Quota: t.Quota}
		}
		selected = append(selected, sample(t.Pool, t.Quota, rng)...)
	}

	rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})

	if len(selected) != TestSize {
		return nil, &AssemblyError{Got: len(selected), Want: TestSize}
	}
	return selected, nil
}

// sample returns k records drawn uniformly without replacement using a
// partial Fisher-Yates shuffle over a copy of pool.
func sample(pool []model.Question, k int, rng Randomizer) []model.Question {
	buf := make([]model.Question, len(pool))
	copy(buf, pool)
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(buf)-i)
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf[:k]
}
