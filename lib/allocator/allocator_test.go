package allocator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeapAllocatorAlloc(t *testing.T) {
	buf, err := Default.Alloc(16, 0)
	require.NoError(t, err)
	require.Len(t, buf, 16)
	for _, b := range buf {
		require.Zero(t, b)
	}
}

func TestHeapAllocatorRealloc(t *testing.T) {
	buf, err := Default.Alloc(4, 0)
	require.NoError(t, err)
	copy(buf, []byte{1, 2, 3, 4})

	grown, err := Default.Realloc(buf, 8, 0)
	require.NoError(t, err)
	require.Len(t, grown, 8)
	require.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, grown)
}

func TestPoolAllocatorRoundTrip(t *testing.T) {
	pool := NewPoolAllocator()

	buf, err := pool.Alloc(100, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(buf), 100)
	for _, b := range buf {
		require.Zero(t, b)
	}

	buf[0] = 0xFF
	pool.Release(buf)

	reused, err := pool.AllocRaw(100, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(reused), 100)
}

func TestPoolAllocatorOutsideRangeBypassesPool(t *testing.T) {
	pool := NewPoolAllocatorRange(64, 256)

	small, err := pool.Alloc(8, 0)
	require.NoError(t, err)
	require.Len(t, small, 8)

	large, err := pool.Alloc(1<<20, 0)
	require.NoError(t, err)
	require.Len(t, large, 1<<20)

	pool.Release(large)
}

func TestPoolAllocatorRealloc(t *testing.T) {
	pool := NewPoolAllocator()

	buf, err := pool.Alloc(4, 0)
	require.NoError(t, err)
	copy(buf, []byte{9, 9, 9, 9})

	grown, err := pool.Realloc(buf, 128, 0)
	require.NoError(t, err)
	require.Len(t, grown, 128)
	require.Equal(t, []byte{9, 9, 9, 9}, grown[:4])
}
