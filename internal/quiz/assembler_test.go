package quiz

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/quizbank-backend/internal/model"
)

// buildBank creates pool questions for each theme, all carrying the theme quota.
func buildBank(themes ...[3]int) []model.Question {
	var bank []model.Question
	nextID := 1
	for _, t := range themes {
		themeID, quota, pool := t[0], t[1], t[2]
		for i := 0; i < pool; i++ {
			bank = append(bank, model.Question{
				ID:         nextID,
				ThemeID:    themeID,
				ThemeTitle: "theme",
				PickCount:  quota,
				Type:       model.QuestionTypeSingleChoice,
				Text:       "q",
				Correct:    []int{0},
			})
			nextID++
		}
	}
	return bank
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func TestAssemble_ValidBank(t *testing.T) {
	bank := buildBank([3]int{1, 40, 60}, [3]int{2, 50, 55}, [3]int{3, 30, 30}, [3]int{4, 0, 10})

	for seed := uint64(1); seed <= 20; seed++ {
		got, err := Assemble(bank, newRand(seed))
		require.NoError(t, err)
		require.Len(t, got, TestSize)

		seen := make(map[int]bool, len(got))
		perTheme := make(map[int]int)
		for _, q := range got {
			assert.False(t, seen[q.ID], "duplicate question %d", q.ID)
			seen[q.ID] = true
			perTheme[q.ThemeID]++
		}
		assert.Equal(t, 40, perTheme[1])
		assert.Equal(t, 50, perTheme[2])
		assert.Equal(t, 30, perTheme[3])
		assert.Zero(t, perTheme[4], "quota-0 theme must contribute nothing")
	}
}

func TestAssemble_QuotaMismatch(t *testing.T) {
	tests := []struct {
		name string
		bank []model.Question
	}{
		{name: "under", bank: buildBank([3]int{1, 60, 80}, [3]int{2, 59, 80})},
		{name: "over", bank: buildBank([3]int{1, 60, 80}, [3]int{2, 61, 80})},
		{name: "empty bank", bank: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Assemble(tc.bank, newRand(7))
			assert.Nil(t, got)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.ErrorIs(t, err, ErrQuotaMismatch)
			assert.NotContains(t, err.Error(), "119")
			assert.NotContains(t, err.Error(), "121")
		})
	}
}

func TestAssemble_InsufficientPool(t *testing.T) {
	bank := buildBank([3]int{1, 100, 150}, [3]int{2, 20, 19})

	got, err := Assemble(bank, newRand(3))
	assert.Nil(t, got)

	var poolErr *InsufficientPoolError
	require.ErrorAs(t, err, &poolErr)
	assert.Equal(t, 2, poolErr.ThemeID)
	assert.Equal(t, 19, poolErr.Available)
	assert.Equal(t, 20, poolErr.Quota)
	assert.True(t, errors.Is(err, ErrInsufficientPool))
}

func TestAssemble_QuotaEqualsPool(t *testing.T) {
	bank := buildBank([3]int{10, 3, 3}, [3]int{20, 117, 117})

	got, err := Assemble(bank, newRand(11))
	require.NoError(t, err)
	require.Len(t, got, TestSize)

	ids := make(map[int]bool, len(got))
	for _, q := range got {
		ids[q.ID] = true
	}
	for _, q := range bank {
		assert.True(t, ids[q.ID], "question %d must be selected", q.ID)
	}
}

func TestAssemble_InterleavesThemes(t *testing.T) {
	bank := buildBank([3]int{1, 60, 60}, [3]int{2, 60, 60})

	got, err := Assemble(bank, newRand(5))
	require.NoError(t, err)

	firstHalfTheme1 := 0
	for _, q := range got[:60] {
		if q.ThemeID == 1 {
			firstHalfTheme1++
		}
	}
	assert.NotEqual(t, 60, firstHalfTheme1, "selection should not stay grouped by theme")
}

func TestAssemble_DeterministicWithSeed(t *testing.T) {
	bank := buildBank([3]int{1, 70, 90}, [3]int{2, 50, 70})

	a, err := Assemble(bank, newRand(42))
	require.NoError(t, err)
	b, err := Assemble(bank, newRand(42))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestAssemble_DoesNotMutateBank(t *testing.T) {
	bank := buildBank([3]int{1, 60, 90}, [3]int{2, 60, 90})
	before := make([]model.Question, len(bank))
	copy(before, bank)

	_, err := Assemble(bank, newRand(9))
	require.NoError(t, err)
	assert.Equal(t, before, bank)
}

func TestAssemble_QuotaFromLastRecordOfTheme(t *testing.T) {
	bank := buildBank([3]int{1, 60, 80}, [3]int{2, 60, 80})
	bank[0].PickCount = 1 // overridden by the later theme-1 records

	got, err := Assemble(bank, newRand(1))
	require.NoError(t, err)
	assert.Len(t, got, TestSize)
}

func TestSample_PartialFisherYates(t *testing.T) {
	pool := buildBank([3]int{1, 5, 10})
	picked := sample(pool, 5, newRand(2))

	require.Len(t, picked, 5)
	seen := map[int]bool{}
	for _, q := range picked {
		assert.False(t, seen[q.ID])
		seen[q.ID] = true
	}
	assert.Equal(t, buildBank([3]int{1, 5, 10}), pool, "pool must be left intact")
}
