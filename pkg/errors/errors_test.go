package errors

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTooManyRequestsSurfacesWaitTime(t *testing.T) {
	err := TooManyRequests("Rate limit exceeded", 6*time.Second)
	assert.Equal(t, "TOO_MANY_REQUESTS", err.Code)
	assert.Equal(t, http.StatusTooManyRequests, err.Status)
	assert.Contains(t, err.Message, "retry in 6s")

	// No wait time known, no suffix.
	err = TooManyRequests("Rate limit exceeded", 0)
	assert.Equal(t, "Rate limit exceeded", err.Message)
}

func TestIsMatchesWrappedAppError(t *testing.T) {
	inner := NotFound("Account", nil)
	wrapped := fmt.Errorf("lookup: %w", inner)

	assert.True(t, Is(wrapped, "NOT_FOUND"))
	assert.False(t, Is(wrapped, "CONFLICT"))
	assert.False(t, Is(fmt.Errorf("plain"), "NOT_FOUND"))
}
