package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizbank-backend/internal/config"
	"github.com/stemsi/quizbank-backend/internal/event"
	"github.com/stemsi/quizbank-backend/internal/metrics"
	"github.com/stemsi/quizbank-backend/internal/model"
	"github.com/stemsi/quizbank-backend/internal/quiz"
	"github.com/stemsi/quizbank-backend/internal/repository"
	"github.com/stemsi/quizbank-backend/internal/validator"
)

// ErrInvalidBankFile is returned when an uploaded bank is not a JSON list of questions.
var ErrInvalidBankFile = errors.New("invalid bank file")

// BankValidationError lists the per-field problems of an uploaded bank.
type BankValidationError struct {
	Fields map[string]string
}

func (e *BankValidationError) Error() string {
	return fmt.Sprintf("bank validation failed: %d field(s)", len(e.Fields))
}

// ParseBank decodes and validates an uploaded bank file. Theme pick counts
// must agree across the records of a theme and question ids must be unique.
func ParseBank(r io.Reader) ([]model.Question, error) {
	var items []model.BankUploadItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBankFile, err)
	}

	upload := model.BankUpload{Questions: items}
	if fields := validator.Validate(&upload); fields != nil {
		return nil, &BankValidationError{Fields: fields}
	}

	fields := make(map[string]string)
	seenIDs := make(map[int]int, len(items))
	pickCounts := make(map[int]int)
	for i, it := range items {
		if first, dup := seenIDs[it.ID]; dup {
			fields[fmt.Sprintf("questions[%d].id", i)] = fmt.Sprintf("id %d is already used by questions[%d]", it.ID, first)
		} else {
			seenIDs[it.ID] = i
		}

		if pc, ok := pickCounts[it.Theme.ID]; ok && pc != it.Theme.PickCount {
			fields[fmt.Sprintf("questions[%d].theme.pick_count", i)] = fmt.Sprintf("theme %d already has pick_count %d", it.Theme.ID, pc)
		} else if !ok {
			pickCounts[it.Theme.ID] = it.Theme.PickCount
		}
	}
	if len(fields) > 0 {
		return nil, &BankValidationError{Fields: fields}
	}

	bank := make([]model.Question, len(items))
	for i, it := range items {
		q := model.Question{
			ID:         it.ID,
			ThemeID:    it.Theme.ID,
			ThemeTitle: it.Theme.Title,
			PickCount:  it.Theme.PickCount,
			Type:       model.QuestionType(it.Type),
			Text:       it.Question,
			Correct:    quiz.Normalize(it.Correct),
		}
		copy(q.Options[:], it.Options)
		bank[i] = q
	}
	return bank, nil
}

// QuestionService owns the question bank and its Redis snapshot.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	cacheTTL     time.Duration
	events       event.Publisher
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	cacheTTL time.Duration,
	events event.Publisher,
	log zerolog.Logger,
) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		rdb:          rdb,
		cacheTTL:     cacheTTL,
		events:       events,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// LoadBank returns the current bank, served from the Redis snapshot when present.
func (s *QuestionService) LoadBank(ctx context.Context) ([]model.Question, error) {
	key := config.CacheKey.BankSnapshotKey()

	raw, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var bank []model.Question
		if jsonErr := json.Unmarshal(raw, &bank); jsonErr == nil {
			return bank, nil
		}
		s.log.Warn().Msg("Corrupt bank snapshot in cache, reloading from database")
	case !errors.Is(err, redis.Nil):
		// Redis trouble must not block test assembly.
		s.log.Warn().Err(err).Msg("Bank snapshot read failed")
	}

	bank, err := s.questionRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	if payload, err := json.Marshal(bank); err == nil {
		if err := s.rdb.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Bank snapshot write failed")
		}
	}
	return bank, nil
}

// Replace swaps the whole bank and drops the cached snapshot.
func (s *QuestionService) Replace(ctx context.Context, bank []model.Question) (*model.BankStats, error) {
	if err := s.questionRepo.ReplaceAll(ctx, bank); err != nil {
		return nil, fmt.Errorf("replace bank: %w", err)
	}
	if err := s.rdb.Del(ctx, config.CacheKey.BankSnapshotKey()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Bank snapshot invalidation failed")
	}

	stats := quiz.Stats(bank)
	metrics.BankQuestions.Set(float64(stats.TotalQuestions))
	s.log.Info().
		Int("questions", stats.TotalQuestions).
		Int("themes", len(stats.Themes)).
		Bool("ready", stats.Ready).
		Msg("Question bank replaced")

	err := s.events.Publish(ctx, event.BankReplaced, event.BankReplacedPayload{
		TotalQuestions: stats.TotalQuestions,
		QuotaTotal:     stats.QuotaTotal,
		Ready:          stats.Ready,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to publish bank event")
	}
	return &stats, nil
}

// Stats summarizes the current bank.
func (s *QuestionService) Stats(ctx context.Context) (*model.BankStats, error) {
	bank, err := s.LoadBank(ctx)
	if err != nil {
		return nil, err
	}
	stats := quiz.Stats(bank)
	metrics.BankQuestions.Set(float64(stats.TotalQuestions))
	return &stats, nil
}

// Count returns the number of questions in the bank.
func (s *QuestionService) Count(ctx context.Context) (int, error) {
	return s.questionRepo.Count(ctx)
}
