package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllow(t *testing.T) {
	limiter := NewLimiter(time.Minute, 2)

	assert.True(t, limiter.Allow("user_1"))
	assert.True(t, limiter.Allow("user_1"))
	assert.False(t, limiter.Allow("user_1"))

	// Namespaces are counted independently
	assert.True(t, limiter.Allow("user_2"))
}

func TestLimiterWindowExpiry(t *testing.T) {
	now := time.Now()
	limiter := NewLimiter(time.Minute, 1, WithNow(func() time.Time { return now }))

	assert.True(t, limiter.Allow("user_1"))
	assert.False(t, limiter.Allow("user_1"))

	// The hit ages out of the window
	now = now.Add(2 * time.Minute)
	assert.True(t, limiter.Allow("user_1"))
}

func TestLimiterRemaining(t *testing.T) {
	limiter := NewLimiter(time.Minute, 3)

	assert.Equal(t, 3, limiter.Remaining("user_1"))
	limiter.Allow("user_1")
	assert.Equal(t, 2, limiter.Remaining("user_1"))
}

func TestLimiterReset(t *testing.T) {
	limiter := NewLimiter(time.Minute, 1)

	assert.True(t, limiter.Allow("user_1"))
	assert.False(t, limiter.Allow("user_1"))

	limiter.Reset("user_1")
	assert.True(t, limiter.Allow("user_1"))
}

func TestLimiterConcurrency(t *testing.T) {
	limiter := NewLimiter(time.Minute, 100)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 20; j++ {
				limiter.Allow("shared")
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	// 200 attempts against a cap of 100 leave the namespace exhausted
	assert.False(t, limiter.Allow("shared"))
	assert.Equal(t, 0, limiter.Remaining("shared"))
}
