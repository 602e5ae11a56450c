package allocator

import "sync"

// poolBucket holds the sync.Pool for one size class. Size classes grow in
// powers of two starting at minPoolSize, following the growth strategy
// arloliu-mebo/internal/pool uses for its ByteBuffer pool (grow in coarse
// steps rather than allocate exact-fit buffers, so a pool population
// converges on a small number of distinct slice capacities instead of one
// per distinct request size).
type poolBucket struct {
	size int
	pool sync.Pool
}

// PoolAllocator is a sync.Pool-backed Allocator. It keeps one pool per
// power-of-two size class from minPoolSize up to maxPoolSize; requests
// larger than maxPoolSize bypass the pool and allocate directly (and
// Release on an unpooled buffer is a no-op), matching
// arloliu-mebo/internal/pool's maxThreshold cutoff for discarding
// oversized buffers rather than retaining them indefinitely.
type PoolAllocator struct {
	minSize int
	maxSize int
	buckets []*poolBucket
}

const (
	defaultMinPoolSize = 64
	defaultMaxPoolSize = 1 << 20 // 1 MiB
)

// NewPoolAllocator returns a PoolAllocator with the default size-class
// range (64 bytes to 1 MiB).
func NewPoolAllocator() *PoolAllocator {
	return NewPoolAllocatorRange(defaultMinPoolSize, defaultMaxPoolSize)
}

// NewPoolAllocatorRange returns a PoolAllocator whose pooled size classes
// run from minSize to maxSize (both rounded up to the nearest power of
// two). Requests outside that range are served by direct allocation.
func NewPoolAllocatorRange(minSize, maxSize int) *PoolAllocator {
	min := nextPow2(minSize)
	max := nextPow2(maxSize)
	a := &PoolAllocator{minSize: min, maxSize: max}
	for size := min; size <= max; size *= 2 {
		a.buckets = append(a.buckets, &poolBucket{size: size})
	}
	return a
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

func (a *PoolAllocator) bucketFor(size int) *poolBucket {
	if size < a.minSize || size > a.maxSize {
		return nil
	}
	class := nextPow2(size)
	for _, b := range a.buckets {
		if b.size == class {
			return b
		}
	}
	return nil
}

func (a *PoolAllocator) get(size int) []byte {
	b := a.bucketFor(size)
	if b == nil {
		return make([]byte, size)
	}
	if v := b.pool.Get(); v != nil {
		buf := v.([]byte)
		return buf[:size]
	}
	return make([]byte, b.size)[:size]
}

func (a *PoolAllocator) Alloc(size, align int) ([]byte, error) {
	buf := a.get(size)
	clear(buf)
	return buf, nil
}

func (a *PoolAllocator) AllocRaw(size, align int) ([]byte, error) {
	return a.get(size), nil
}

func (a *PoolAllocator) Realloc(buf []byte, newSize, align int) ([]byte, error) {
	out, err := a.Alloc(newSize, align)
	if err != nil {
		return nil, err
	}
	copy(out, buf)
	return out, nil
}

func (a *PoolAllocator) ReallocRaw(buf []byte, newSize, align int) ([]byte, error) {
	out, err := a.AllocRaw(newSize, align)
	if err != nil {
		return nil, err
	}
	copy(out, buf)
	return out, nil
}

// Release returns buf to the pool for its capacity's size class, if one
// exists. Buffers outside the pooled range are dropped for the GC to
// reclaim, same as arloliu-mebo's maxThreshold discard behavior.
func (a *PoolAllocator) Release(buf []byte) {
	b := a.bucketFor(cap(buf))
	if b == nil {
		return
	}
	b.pool.Put(buf[:cap(buf)])
}

var _ Allocator = (*PoolAllocator)(nil)
