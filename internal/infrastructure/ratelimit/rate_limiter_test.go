package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketExhaustionAndRefill(t *testing.T) {
	bucket := NewTokenBucket(2, 1, 50*time.Millisecond)

	allowed, _ := bucket.Allow()
	assert.True(t, allowed)
	allowed, _ = bucket.Allow()
	assert.True(t, allowed)

	allowed, wait := bucket.Allow()
	assert.False(t, allowed)
	assert.Greater(t, wait, time.Duration(0))
	assert.Equal(t, 0, bucket.GetTokens())

	time.Sleep(60 * time.Millisecond)
	allowed, _ = bucket.Allow()
	assert.True(t, allowed)
}

func TestRateLimiterIsolatesAccountsAndActions(t *testing.T) {
	limiter := NewRateLimiter()

	for i := 0; i < 10; i++ {
		allowed, _ := limiter.Allow("alice-uid", "send_message")
		assert.True(t, allowed)
	}
	allowed, _ := limiter.Allow("alice-uid", "send_message")
	assert.False(t, allowed)

	// Another account and another action are unaffected.
	allowed, _ = limiter.Allow("bob-uid", "send_message")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("alice-uid", "create_conversation")
	assert.True(t, allowed)
}
