package openweather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestNewLimiter(t *testing.T) {
	t.Parallel()

	t.Run("one request per second still admits a full cycle at once", func(t *testing.T) {
		t.Parallel()
		limiter := newLimiter(1)

		assert.Equal(t, rate.Limit(1), limiter.Limit())
		assert.Equal(t, minBurst, limiter.Burst())
		assert.True(t, limiter.Allow(), "current weather request")
		assert.True(t, limiter.Allow(), "forecast request must not wait for the current one")
	})

	t.Run("higher rates keep their own burst", func(t *testing.T) {
		t.Parallel()
		limiter := newLimiter(5)

		assert.Equal(t, 5, limiter.Burst())
	})

	t.Run("non-positive rate disables limiting", func(t *testing.T) {
		t.Parallel()
		limiter := newLimiter(0)

		assert.Equal(t, rate.Inf, limiter.Limit())
		assert.True(t, limiter.Allow())
	})
}
