package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseOrigins(t *testing.T) {
	assert.Nil(t, parseOrigins(""))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, parseOrigins(" http://a.test, ,http://b.test "))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_EXPIRY_HOURS", "2")
	t.Setenv("MAX_UPLOAD_SIZE_MB", "not-a-number")
	t.Setenv("EXPIRY_POLL_SECONDS", "5")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, 5*time.Second, cfg.ExpiryPoll)
	assert.Equal(t, "admin", cfg.DefaultAdminUsername)
	assert.Empty(t, cfg.AMQPURL)
	assert.Equal(t, "quizbank.events", cfg.AMQPExchange)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "login:4", CacheKey.UserSessionKey(4))
	assert.Equal(t, "attempt:12:started_at", CacheKey.AttemptStartKey(12))
	assert.Equal(t, "user:4:active_attempt", CacheKey.UserActiveAttemptKey(4))
}
