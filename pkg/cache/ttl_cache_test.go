package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		c := New[string, int](time.Minute, time.Minute)
		defer c.Close()

		c.Set("a", 1)
		value, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, value)

		_, ok = c.Get("missing")
		assert.False(t, ok)
	})

	t.Run("entries expire", func(t *testing.T) {
		c := New[string, int](20*time.Millisecond, time.Minute)
		defer c.Close()

		c.Set("a", 1)
		time.Sleep(30 * time.Millisecond)

		_, ok := c.Get("a")
		assert.False(t, ok)
		assert.Empty(t, c.Items())
	})

	t.Run("set renews ttl", func(t *testing.T) {
		c := New[string, int](40*time.Millisecond, time.Minute)
		defer c.Close()

		c.Set("a", 1)
		time.Sleep(25 * time.Millisecond)
		c.Set("a", 2) // TTL yenilendi
		time.Sleep(25 * time.Millisecond)

		value, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 2, value)
	})

	t.Run("delete removes immediately", func(t *testing.T) {
		c := New[string, int](time.Minute, time.Minute)
		defer c.Close()

		c.Set("a", 1)
		c.Delete("a")
		_, ok := c.Get("a")
		assert.False(t, ok)
	})
}
