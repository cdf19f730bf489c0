package xsk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramePool_AllocIsUniqueUntilFreed(t *testing.T) {
	pool, err := NewFramePool(4, 4096)
	require.NoError(t, err)
	defer pool.Close()

	seen := make(map[uint64]bool)
	for i := 0; i < 4; i++ {
		addr, ok := pool.Alloc()
		require.True(t, ok)
		assert.False(t, seen[addr], "address %d handed out twice before being freed", addr)
		seen[addr] = true
	}
}

func TestFramePool_AllocAscendingOrder(t *testing.T) {
	pool, err := NewFramePool(3, 4096)
	require.NoError(t, err)
	defer pool.Close()

	for i := 0; i < 3; i++ {
		addr, ok := pool.Alloc()
		require.True(t, ok)
		assert.EqualValues(t, i*4096, addr)
	}
}

func TestFramePool_ExhaustionReturnsFalse(t *testing.T) {
	pool, err := NewFramePool(2, 4096)
	require.NoError(t, err)
	defer pool.Close()

	_, ok := pool.Alloc()
	require.True(t, ok)
	_, ok = pool.Alloc()
	require.True(t, ok)

	_, ok = pool.Alloc()
	assert.False(t, ok, "alloc past capacity must report false, not panic or wrap")
}

func TestFramePool_FreeMakesAddrAllocatableAgain(t *testing.T) {
	pool, err := NewFramePool(1, 4096)
	require.NoError(t, err)
	defer pool.Close()

	addr, ok := pool.Alloc()
	require.True(t, ok)

	_, ok = pool.Alloc()
	require.False(t, ok)

	pool.Free(addr)

	addr2, ok := pool.Alloc()
	require.True(t, ok)
	assert.Equal(t, addr, addr2)
}
