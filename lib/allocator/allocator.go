// Package allocator provides the decode-time allocation contract used by
// the constructed-type driver (lib/per/aper) when it materializes
// variable-length OCTET STRING/BIT STRING content. The driver does not use
// it for OPTIONAL or pointed fields or for open types; it allocates those
// with new.
//
// The contract mirrors the original C driver's t_alloc_if_pointed: a decode
// step that needs backing storage for variable-length field content asks an Allocator for it instead of allocating directly, so callers
// decoding many small messages can reuse a pool rather than pressure the
// garbage collector with one slice per field per message.
package allocator

import (
	"fmt"

	"github.com/thebagchi/aper/lib/aperr"
)

// Allocator is the decode-time allocation contract. Implementations must be
// safe for concurrent use by multiple decoders.
type Allocator interface {
	// Alloc returns a zero-filled buffer of at least size bytes, aligned
	// to align bytes (align of 0 or 1 means no special alignment).
	Alloc(size, align int) ([]byte, error)

	// AllocRaw is like Alloc but does not guarantee the returned bytes
	// are zeroed; callers that are about to overwrite every byte they
	// read should prefer this to avoid the zeroing cost.
	AllocRaw(size, align int) ([]byte, error)

	// Realloc returns a buffer of at least newSize bytes containing
	// buf's original content, zero-extended. buf may or may not be
	// reused; callers must stop using buf once Realloc returns.
	Realloc(buf []byte, newSize, align int) ([]byte, error)

	// ReallocRaw is like Realloc but does not zero-extend the new tail.
	ReallocRaw(buf []byte, newSize, align int) ([]byte, error)

	// Release returns buf to the allocator, allowing it to be reused by
	// a future Alloc/Realloc call. Implementations that do not pool may
	// make this a no-op.
	Release(buf []byte)
}

// heapAllocator is the zero-value fallback: every call allocates a fresh
// Go slice and Release is a no-op. It requires no setup and is the default
// used by per/aper when a caller passes a nil Allocator.
type heapAllocator struct{}

// Default is the heap-backed Allocator used when a caller supplies none.
var Default Allocator = heapAllocator{}

func (heapAllocator) Alloc(size, align int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative alloc size %d", aperr.ErrAllocatorFailure, size)
	}
	return make([]byte, size), nil
}

func (heapAllocator) AllocRaw(size, align int) ([]byte, error) {
	return heapAllocator{}.Alloc(size, align)
}

func (heapAllocator) Realloc(buf []byte, newSize, align int) ([]byte, error) {
	if newSize < 0 {
		return nil, fmt.Errorf("%w: negative realloc size %d", aperr.ErrAllocatorFailure, newSize)
	}
	out := make([]byte, newSize)
	copy(out, buf)
	return out, nil
}

func (heapAllocator) ReallocRaw(buf []byte, newSize, align int) ([]byte, error) {
	return heapAllocator{}.Realloc(buf, newSize, align)
}

func (heapAllocator) Release([]byte) {}
