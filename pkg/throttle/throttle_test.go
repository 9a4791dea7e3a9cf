package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottleAllow(t *testing.T) {
	th := New(50 * time.Millisecond)
	defer th.Close()

	t.Run("first call passes, repeats are suppressed", func(t *testing.T) {
		assert.True(t, th.Allow("messaging:1"))
		assert.False(t, th.Allow("messaging:1"))
		assert.False(t, th.Allow("messaging:1"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		assert.True(t, th.Allow("messaging:2"))
		assert.False(t, th.Allow("messaging:2"))
	})

	t.Run("passes again after window", func(t *testing.T) {
		assert.True(t, th.Allow("messaging:3"))
		time.Sleep(60 * time.Millisecond)
		assert.True(t, th.Allow("messaging:3"))
	})

	t.Run("reset opens the window immediately", func(t *testing.T) {
		assert.True(t, th.Allow("messaging:4"))
		assert.False(t, th.Allow("messaging:4"))
		th.Reset("messaging:4")
		assert.True(t, th.Allow("messaging:4"))
	})
}
