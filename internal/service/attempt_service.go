package service

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizbank-backend/internal/config"
	"github.com/stemsi/quizbank-backend/internal/event"
	"github.com/stemsi/quizbank-backend/internal/metrics"
	"github.com/stemsi/quizbank-backend/internal/model"
	"github.com/stemsi/quizbank-backend/internal/quiz"
	"github.com/stemsi/quizbank-backend/internal/repository"
)

// Attempt errors surfaced to handlers.
var (
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrAttemptNotFinished  = errors.New("attempt is still in progress")
	ErrQuestionUnavailable = errors.New("question no longer exists in the bank")
)

// AttemptService runs the test flow: assembly, answering, finishing and results.
type AttemptService struct {
	attemptRepo     *repository.AttemptRepository
	questionService *QuestionService
	rdb             *redis.Client
	events          event.Publisher
	log             zerolog.Logger

	now    func() time.Time
	newRNG func() quiz.Randomizer
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	questionService *QuestionService,
	rdb *redis.Client,
	events event.Publisher,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attemptRepo:     attemptRepo,
		questionService: questionService,
		rdb:             rdb,
		events:          events,
		log:             log.With().Str("component", "attempt_service").Logger(),
		now:             func() time.Time { return time.Now().UTC() },
		newRNG:          newSeededRand,
	}
}

// newSeededRand returns a PCG generator seeded from the OS entropy source.
// Each test assembly gets its own generator.
func newSeededRand() quiz.Randomizer {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(seed[:8]), binary.LittleEndian.Uint64(seed[8:])))
}

// Start returns the user's open attempt if its window has not elapsed,
// otherwise assembles a fresh test from the current bank and persists it.
func (s *AttemptService) Start(ctx context.Context, userID int) (*model.Attempt, error) {
	active, err := s.attemptRepo.GetActiveByUser(ctx, userID)
	switch {
	case err == nil:
		if quiz.Remaining(active, s.now()) > 0 {
			return active, nil
		}
		if _, err := s.finish(ctx, active.ID, metrics.ReasonExpired); err != nil {
			return nil, fmt.Errorf("close expired attempt: %w", err)
		}
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("get active attempt: %w", err)
	}

	bank, err := s.questionService.LoadBank(ctx)
	if err != nil {
		return nil, err
	}

	selection, err := quiz.Assemble(bank, s.newRNG())
	if err != nil {
		metrics.AssemblyFailures.Inc()
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Test assembly failed")
		return nil, err
	}

	a := quiz.Start(userID, selection, s.now())
	if err := s.attemptRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.trackStart(ctx, a)
	metrics.AttemptsStarted.Inc()

	s.log.Info().Int("user_id", userID).Int("attempt_id", a.ID).Msg("Attempt started")
	return a, nil
}

// trackStart caches the start time and registers the deadline for the expiry worker.
func (s *AttemptService) trackStart(ctx context.Context, a *model.Attempt) {
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.AttemptStartKey(a.ID), a.StartedAt.Unix(), 0)
	pipe.Set(ctx, config.CacheKey.UserActiveAttemptKey(a.UserID), a.ID, 0)
	pipe.ZAdd(ctx, config.WorkerKey.AttemptDeadlines, redis.Z{
		Score:  float64(quiz.Deadline(a).Unix()),
		Member: a.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		// The worker resync and the database fallback cover a lost write.
		s.log.Warn().Err(err).Int("attempt_id", a.ID).Msg("Failed to cache attempt start")
	}
}

func (s *AttemptService) untrack(ctx context.Context, a *model.Attempt) {
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.AttemptStartKey(a.ID))
	pipe.Del(ctx, config.CacheKey.UserActiveAttemptKey(a.UserID))
	pipe.ZRem(ctx, config.WorkerKey.AttemptDeadlines, a.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Int("attempt_id", a.ID).Msg("Failed to clear attempt cache")
	}
}

// owned loads an attempt header and checks it belongs to userID.
func (s *AttemptService) owned(ctx context.Context, userID, attemptID int) (*model.Attempt, error) {
	a, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if a.UserID != userID {
		return nil, ErrAttemptNotFound
	}
	return a, nil
}

// openForWrite returns the attempt if answers may still be written to it.
// An attempt whose window has elapsed is finished on the spot.
func (s *AttemptService) openForWrite(ctx context.Context, userID, attemptID int) (*model.Attempt, error) {
	a, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if err := quiz.CheckWritable(a); err != nil {
		return nil, err
	}
	if quiz.Remaining(a, s.now()) == 0 {
		if _, err := s.finish(ctx, a.ID, metrics.ReasonExpired); err != nil {
			return nil, err
		}
		return nil, quiz.ErrAttemptFinished
	}
	return a, nil
}

// View returns question n of an attempt as the learner sees it. The answer
// key is only included once the question has been answered.
func (s *AttemptService) View(ctx context.Context, userID, attemptID, position int) (*model.QuestionView, error) {
	a, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if position < 1 || position > a.TotalQuestions {
		return nil, quiz.ErrPositionOutOfRange
	}

	d, err := s.attemptRepo.GetDetail(ctx, attemptID, position)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, quiz.ErrPositionOutOfRange
		}
		return nil, fmt.Errorf("get detail: %w", err)
	}

	bank, err := s.questionService.LoadBank(ctx)
	if err != nil {
		return nil, err
	}
	var question *model.Question
	for i := range bank {
		if bank[i].ID == d.QuestionID {
			question = &bank[i]
			break
		}
	}
	if question == nil {
		return nil, ErrQuestionUnavailable
	}

	view := &model.QuestionView{
		AttemptID:        a.ID,
		Position:         d.Position,
		Total:            a.TotalQuestions,
		Question:         question.ForLearner(),
		Selected:         d.Selected,
		Confirmed:        d.Answered(),
		RemainingSeconds: int(quiz.Remaining(a, s.now()).Seconds()),
		Status:           a.Status,
	}
	if d.Answered() || a.Status == model.AttemptStatusFinished {
		view.Correct = d.Correct
	}
	return view, nil
}

// Confirm records candidates as the answer at position and returns the updated detail.
func (s *AttemptService) Confirm(ctx context.Context, userID, attemptID, position int, candidates []int) (*model.AttemptDetail, error) {
	a, err := s.openForWrite(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	a.Details, err = s.attemptRepo.ListDetails(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list details: %w", err)
	}

	d, err := quiz.RecordAnswer(a, position, candidates)
	if err != nil {
		return nil, err
	}

	if err := s.attemptRepo.SaveAnswer(ctx, d); err != nil {
		if errors.Is(err, repository.ErrAttemptClosed) {
			return nil, quiz.ErrAttemptFinished
		}
		return nil, fmt.Errorf("save answer: %w", err)
	}
	metrics.ObserveAnswer(d.IsCorrect)
	return d, nil
}

// Skip returns the position to show after position without touching its answer.
func (s *AttemptService) Skip(ctx context.Context, userID, attemptID, position int) (int, error) {
	a, err := s.openForWrite(ctx, userID, attemptID)
	if err != nil {
		return 0, err
	}
	return quiz.Skip(a, position)
}

// Finish scores the attempt and returns its result. Finishing twice returns
// the stored result unchanged.
func (s *AttemptService) Finish(ctx context.Context, userID, attemptID int) (*model.AttemptResult, error) {
	if _, err := s.owned(ctx, userID, attemptID); err != nil {
		return nil, err
	}
	a, err := s.finish(ctx, attemptID, metrics.ReasonLearner)
	if err != nil {
		return nil, err
	}
	return s.result(ctx, a)
}

// FinishExpired finishes an attempt whose window has elapsed. It reports
// false when the attempt is still open or was already finished.
func (s *AttemptService) FinishExpired(ctx context.Context, attemptID int) (bool, error) {
	a, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrAttemptNotFound
		}
		return false, err
	}
	if a.Status != model.AttemptStatusInProgress {
		s.untrack(ctx, a)
		return false, nil
	}
	if quiz.Remaining(a, s.now()) > 0 {
		return false, nil
	}
	if _, err := s.finish(ctx, attemptID, metrics.ReasonExpired); err != nil {
		return false, err
	}
	return true, nil
}

// finish scores the attempt and persists the result in one locked
// transaction. A concurrent finish wins and its stored result is returned.
func (s *AttemptService) finish(ctx context.Context, attemptID int, reason string) (*model.Attempt, error) {
	a, finished, err := s.attemptRepo.Finish(ctx, attemptID, func(locked *model.Attempt) error {
		return scoreAttempt(locked, s.now())
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("persist finish: %w", err)
	}
	if !finished {
		return a, nil
	}

	s.untrack(ctx, a)
	metrics.ObserveFinish(reason, a.Percent)
	s.log.Info().
		Int("attempt_id", a.ID).
		Int("user_id", a.UserID).
		Int("score", a.Score).
		Int("percent", a.Percent).
		Str("reason", reason).
		Msg("Attempt finished")

	err = s.events.Publish(ctx, event.AttemptFinished, event.AttemptFinishedPayload{
		AttemptID:  a.ID,
		UserID:     a.UserID,
		Score:      a.Score,
		Percent:    a.Percent,
		Total:      a.TotalQuestions,
		FinishedAt: *a.FinishedAt,
		Reason:     reason,
	})
	if err != nil {
		// The attempt is already stored; a lost event is not fatal.
		s.log.Warn().Err(err).Int("attempt_id", a.ID).Msg("Failed to publish attempt event")
	}
	return a, nil
}

// scoreAttempt finishes a at now, capped at the end of its time window.
func scoreAttempt(a *model.Attempt, now time.Time) error {
	if deadline := quiz.Deadline(a); now.After(deadline) {
		now = deadline
	}
	return quiz.Finish(a, now)
}

// Result returns the score and per-theme breakdown of a finished attempt.
func (s *AttemptService) Result(ctx context.Context, userID, attemptID int) (*model.AttemptResult, error) {
	a, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AttemptStatusFinished {
		return nil, ErrAttemptNotFinished
	}
	a.Details, err = s.attemptRepo.ListDetails(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list details: %w", err)
	}
	return s.result(ctx, a)
}

func (s *AttemptService) result(ctx context.Context, a *model.Attempt) (*model.AttemptResult, error) {
	bank, err := s.questionService.LoadBank(ctx)
	if err != nil {
		return nil, err
	}
	return &model.AttemptResult{
		Attempt: *a,
		Themes:  quiz.ThemeReport(a.Details, quiz.ThemeTitles(bank)),
	}, nil
}

// History lists the user's attempts, newest first.
func (s *AttemptService) History(ctx context.Context, userID int) ([]model.Attempt, error) {
	return s.attemptRepo.ListByUser(ctx, userID)
}

// Remaining returns the seconds left on one of the user's attempts. A
// finished attempt has none.
func (s *AttemptService) Remaining(ctx context.Context, userID, attemptID int) (int, error) {
	a, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return 0, err
	}
	if a.Status == model.AttemptStatusFinished {
		return 0, nil
	}
	return s.RemainingTime(ctx, attemptID)
}

// RemainingTime returns the seconds left on an attempt, reading the start
// time from Redis and falling back to the database.
func (s *AttemptService) RemainingTime(ctx context.Context, attemptID int) (int, error) {
	startKey := config.CacheKey.AttemptStartKey(attemptID)

	var startedAt time.Time
	val, err := s.rdb.Get(ctx, startKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
		startedAt, err = s.attemptRepo.GetStartedAt(ctx, attemptID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, ErrAttemptNotFound
			}
			return 0, fmt.Errorf("get start time: %w", err)
		}
		_ = s.rdb.Set(ctx, startKey, startedAt.Unix(), 0).Err()
	case err != nil:
		return 0, fmt.Errorf("redis error getting start time: %w", err)
	default:
		unix, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid start time format in cache: %w", err)
		}
		startedAt = time.Unix(unix, 0)
	}

	a := &model.Attempt{StartedAt: startedAt, DurationMinutes: quiz.TestSize}
	return int(quiz.Remaining(a, s.now()).Seconds()), nil
}

// ResyncDeadlines registers every open attempt in the deadline set. It
// returns the number of attempts registered.
func (s *AttemptService) ResyncDeadlines(ctx context.Context) (int, error) {
	open, err := s.attemptRepo.ListInProgress(ctx)
	if err != nil {
		return 0, fmt.Errorf("list open attempts: %w", err)
	}
	if len(open) == 0 {
		return 0, nil
	}

	members := make([]redis.Z, len(open))
	for i := range open {
		members[i] = redis.Z{Score: float64(quiz.Deadline(&open[i]).Unix()), Member: open[i].ID}
	}
	if err := s.rdb.ZAdd(ctx, config.WorkerKey.AttemptDeadlines, members...).Err(); err != nil {
		return 0, fmt.Errorf("register deadlines: %w", err)
	}
	return len(open), nil
}
