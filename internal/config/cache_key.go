package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key holding the active token ID of a user
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// AttemptStartKey returns the cache key for an attempt's start time (unix seconds)
func (r *CacheKeyStruct) AttemptStartKey(attemptID int) string {
	return fmt.Sprintf("attempt:%d:started_at", attemptID)
}

// UserActiveAttemptKey returns the cache key for a user's in-progress attempt
func (r *CacheKeyStruct) UserActiveAttemptKey(userID int) string {
	return fmt.Sprintf("user:%d:active_attempt", userID)
}

// BankSnapshotKey returns the cache key for the serialized question bank
func (r *CacheKeyStruct) BankSnapshotKey() string {
	return "bank:snapshot"
}

var CacheKey = NewCacheKeyStruct()
