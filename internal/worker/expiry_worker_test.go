package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/stemsi/quizbank-backend/internal/service"
)

type fakeFinisher struct {
	results map[int]error
	open    map[int]bool
	calls   []int
	resyncs int
}

func (f *fakeFinisher) FinishExpired(_ context.Context, id int) (bool, error) {
	f.calls = append(f.calls, id)
	if err := f.results[id]; err != nil {
		return false, err
	}
	return !f.open[id], nil
}

func (f *fakeFinisher) ResyncDeadlines(context.Context) (int, error) {
	f.resyncs++
	return 0, nil
}

type fakeDeadlines struct {
	due     []int
	dueErr  error
	dropped []int
	asOf    time.Time
}

func (d *fakeDeadlines) Due(_ context.Context, now time.Time, _ int64) ([]int, error) {
	d.asOf = now
	return d.due, d.dueErr
}

func (d *fakeDeadlines) Drop(_ context.Context, id int) error {
	d.dropped = append(d.dropped, id)
	return nil
}

func TestSweep(t *testing.T) {
	finisher := &fakeFinisher{
		results: map[int]error{
			2: service.ErrAttemptNotFound,
			3: errors.New("db down"),
		},
		open: map[int]bool{4: true},
	}
	deadlines := &fakeDeadlines{due: []int{1, 2, 3, 4, 5}}

	w := NewExpiryWorker(finisher, deadlines, time.Second, zerolog.Nop())
	fixed := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	got := w.Sweep(context.Background())

	assert.Equal(t, 2, got)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, finisher.calls)
	assert.Equal(t, []int{2}, deadlines.dropped, "only unknown attempts are dropped by the worker")
	assert.Equal(t, fixed, deadlines.asOf)
}

func TestSweep_DueError(t *testing.T) {
	finisher := &fakeFinisher{}
	deadlines := &fakeDeadlines{dueErr: errors.New("redis down")}

	w := NewExpiryWorker(finisher, deadlines, time.Second, zerolog.Nop())

	assert.Zero(t, w.Sweep(context.Background()))
	assert.Empty(t, finisher.calls)
}

func TestStart_ResyncsAndStops(t *testing.T) {
	finisher := &fakeFinisher{}
	deadlines := &fakeDeadlines{}
	w := NewExpiryWorker(finisher, deadlines, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 1, finisher.resyncs)
}
