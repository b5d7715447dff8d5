package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGet(t *testing.T) {
	store := NewStore()

	_, ok := store.Get("14/2709/6311")
	assert.False(t, ok)

	store.Set("14/2709/6311", []byte("png-bytes"), "tile")
	data, ok := store.Get("14/2709/6311")
	require.True(t, ok)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestStore_Stats(t *testing.T) {
	store := NewStore()
	store.Set("a", []byte("12345"), "tile")
	store.Set("b", []byte("123"), "tile")

	stats := store.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(8), stats.TotalBytes)
	assert.Len(t, store.Keys(), 2)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("tile-%d", i%8)
			store.Set(key, []byte{byte(i)}, "tile")
			store.Get(key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, store.Stats().Entries)
}
