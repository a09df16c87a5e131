package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T, maxSize int) *LocalStore {
	t.Helper()
	ls := NewLocalStore(LocalConfig{MaxSize: maxSize, CleanupInterval: time.Hour}, nil)
	t.Cleanup(ls.Stop)
	return ls
}

func TestLocalStoreSetGet(t *testing.T) {
	ls := newTestStore(t, 10)

	ls.Set("a", []byte("payload"), time.Minute)

	value, ok := ls.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), value)

	_, ok = ls.Get("missing")
	assert.False(t, ok)
}

func TestLocalStoreExpiry(t *testing.T) {
	ls := newTestStore(t, 10)

	ls.Set("a", []byte("payload"), -time.Second)

	_, ok := ls.Get("a")
	assert.False(t, ok)
}

func TestLocalStoreEvictsLRUAtCapacity(t *testing.T) {
	ls := newTestStore(t, 3)

	for i := 0; i < 3; i++ {
		ls.Set(fmt.Sprintf("k%d", i), []byte{byte(i)}, time.Minute)
	}
	// Touch k0 so k1 becomes the eviction candidate.
	time.Sleep(time.Millisecond)
	ls.Get("k0")

	ls.Set("k3", []byte{3}, time.Minute)

	_, ok := ls.Get("k0")
	assert.True(t, ok)
	_, ok = ls.Get("k3")
	assert.True(t, ok)
	assert.LessOrEqual(t, len(ls.items), 3)
}

func TestLocalStoreDeleteAndClear(t *testing.T) {
	ls := newTestStore(t, 10)

	ls.Set("a", []byte("1"), time.Minute)
	ls.Set("b", []byte("2"), time.Minute)

	ls.Delete("a")
	_, ok := ls.Get("a")
	assert.False(t, ok)

	ls.Clear()
	_, ok = ls.Get("b")
	assert.False(t, ok)
}
