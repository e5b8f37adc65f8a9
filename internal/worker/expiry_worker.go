package worker

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizbank-backend/internal/config"
	"github.com/stemsi/quizbank-backend/internal/service"
)

// ExpiryBatchSize caps how many due attempts one sweep handles.
const ExpiryBatchSize = 100

// AttemptFinisher finishes attempts whose time window has elapsed.
type AttemptFinisher interface {
	FinishExpired(ctx context.Context, attemptID int) (bool, error)
	ResyncDeadlines(ctx context.Context) (int, error)
}

// DeadlineStore holds attempt deadlines keyed by attempt id.
type DeadlineStore interface {
	Due(ctx context.Context, now time.Time, limit int64) ([]int, error)
	Drop(ctx context.Context, attemptID int) error
}

// ─── Redis deadline set ─────────────────────────────────────────────

type redisDeadlines struct {
	rdb *redis.Client
}

// NewRedisDeadlines returns a DeadlineStore backed by the attempt deadline ZSET.
func NewRedisDeadlines(rdb *redis.Client) DeadlineStore {
	return &redisDeadlines{rdb: rdb}
}

func (d *redisDeadlines) Due(ctx context.Context, now time.Time, limit int64) ([]int, error) {
	members, err := d.rdb.ZRangeByScore(ctx, config.WorkerKey.AttemptDeadlines, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			// Garbage member; drop it so it is not returned forever.
			d.rdb.ZRem(ctx, config.WorkerKey.AttemptDeadlines, m)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (d *redisDeadlines) Drop(ctx context.Context, attemptID int) error {
	return d.rdb.ZRem(ctx, config.WorkerKey.AttemptDeadlines, attemptID).Err()
}

// ─── Worker ─────────────────────────────────────────────────────────

// ExpiryWorker finishes attempts once their deadline passes, so abandoned
// tests get a score without the learner coming back.
type ExpiryWorker struct {
	attempts  AttemptFinisher
	deadlines DeadlineStore
	interval  time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

func NewExpiryWorker(attempts AttemptFinisher, deadlines DeadlineStore, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &ExpiryWorker{
		attempts:  attempts,
		deadlines: deadlines,
		interval:  interval,
		now:       time.Now,
		log:       log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	// Redis may have been flushed; rebuild the set from open attempts.
	if n, err := w.attempts.ResyncDeadlines(ctx); err != nil {
		w.log.Error().Err(err).Msg("Deadline resync failed")
	} else {
		w.log.Info().Int("open_attempts", n).Msg("ExpiryWorker started")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. ExpiryWorker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep finishes every attempt whose deadline is due and returns how many
// were finished.
func (w *ExpiryWorker) Sweep(ctx context.Context) int {
	ids, err := w.deadlines.Due(ctx, w.now(), ExpiryBatchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Failed to read due deadlines")
		}
		return 0
	}

	finished := 0
	for _, id := range ids {
		ok, err := w.attempts.FinishExpired(ctx, id)
		switch {
		case errors.Is(err, service.ErrAttemptNotFound):
			if err := w.deadlines.Drop(ctx, id); err != nil {
				w.log.Warn().Err(err).Int("attempt_id", id).Msg("Failed to drop deadline")
			}
		case err != nil:
			// left in the set; retried on the next tick
			w.log.Error().Err(err).Int("attempt_id", id).Msg("Failed to finish expired attempt")
		case ok:
			finished++
		}
	}

	if finished > 0 {
		w.log.Info().Int("finished", finished).Int("due", len(ids)).Msg("Expired attempts finished")
	}
	return finished
}
