package event

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	at := time.Date(2026, 3, 1, 11, 0, 0, 0, time.FixedZone("WITA", 8*3600))
	body, err := encode(AttemptFinished, AttemptFinishedPayload{
		AttemptID:  4,
		UserID:     7,
		Score:      90,
		Percent:    75,
		Total:      120,
		FinishedAt: at,
		Reason:     "learner",
	}, at)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "attempt.finished", got["type"])
	assert.Equal(t, "2026-03-01T03:00:00Z", got["occurred_at"])

	payload := got["payload"].(map[string]interface{})
	assert.EqualValues(t, 4, payload["attempt_id"])
	assert.EqualValues(t, 75, payload["percent"])
	assert.Equal(t, "learner", payload["reason"])
}

func TestConnect_NoURL(t *testing.T) {
	p, err := Connect("", "quizbank.events", zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, p.Publish(context.Background(), BankReplaced, BankReplacedPayload{Ready: true}))
	p.Close()
}
