package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetSet(t *testing.T) {
	s := NewStore(10)
	assert.Equal(t, 10, s.Get())

	s.Set(20)
	assert.Equal(t, 20, s.Get())

	s.Update(func(v int) int { return v + 1 })
	assert.Equal(t, 21, s.Get())
}

func TestStoreSubscribe(t *testing.T) {
	t.Run("new subscriber receives current value immediately", func(t *testing.T) {
		s := NewStore("initial")
		ch, unsubscribe := s.Subscribe()
		defer unsubscribe()

		select {
		case v := <-ch:
			assert.Equal(t, "initial", v)
		case <-time.After(time.Second):
			t.Fatal("replay value did not arrive")
		}
	})

	t.Run("set is delivered to subscribers", func(t *testing.T) {
		s := NewStore(0)
		ch, unsubscribe := s.Subscribe()
		defer unsubscribe()

		<-ch // replay
		s.Set(5)

		select {
		case v := <-ch:
			assert.Equal(t, 5, v)
		case <-time.After(time.Second):
			t.Fatal("published value did not arrive")
		}
	})

	t.Run("slow subscriber sees only the latest value", func(t *testing.T) {
		s := NewStore(0)
		ch, unsubscribe := s.Subscribe()
		defer unsubscribe()

		<-ch // replay
		s.Set(1)
		s.Set(2)
		s.Set(3)

		// Conflation: arada kalan 1 ve 2 atılır, slot'ta sadece 3 bekler.
		v := <-ch
		assert.Equal(t, 3, v)

		select {
		case stale, ok := <-ch:
			if ok {
				t.Fatalf("unexpected extra value %v", stale)
			}
		default:
		}
	})

	t.Run("unsubscribe closes the channel", func(t *testing.T) {
		s := NewStore(0)
		ch, unsubscribe := s.Subscribe()
		<-ch
		unsubscribe()

		_, open := <-ch
		require.False(t, open)

		// Abonelik kapandıktan sonra Set paniklememeli.
		s.Set(42)
	})

	t.Run("independent subscribers each get the value", func(t *testing.T) {
		s := NewStore(0)
		ch1, unsub1 := s.Subscribe()
		ch2, unsub2 := s.Subscribe()
		defer unsub1()
		defer unsub2()

		<-ch1
		<-ch2
		s.Set(9)

		assert.Equal(t, 9, <-ch1)
		assert.Equal(t, 9, <-ch2)
	})
}
