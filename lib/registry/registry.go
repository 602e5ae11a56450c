// Package registry implements the process-wide descriptor table: a
// read-mostly name-to-Descriptor map that generalizes the original's
// thread-local registry, since Go has no per-thread storage and the
// concurrency unit is the goroutine, not the OS thread.
//
// Registration is expected at program initialization; after startup the
// table is read far more often than it is written, so lookups take a
// read lock and registration takes a write lock rather than requiring
// every reader to synchronize against a single-writer assumption.
package registry

import (
	"fmt"
	"sync"

	"github.com/thebagchi/aper/lib/descriptor"
)

var (
	mu    sync.RWMutex
	table = make(map[string]*descriptor.Descriptor)
)

// Register validates desc and adds it to the process-wide table under
// desc.Name. It returns an error if desc fails validation or if a
// descriptor with the same name is already registered.
func Register(desc *descriptor.Descriptor) error {
	if desc == nil {
		return fmt.Errorf("registry: cannot register a nil descriptor")
	}
	if desc.Name == "" {
		return fmt.Errorf("registry: descriptor must have a non-empty Name")
	}
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := table[desc.Name]; exists {
		return fmt.Errorf("registry: descriptor %q already registered", desc.Name)
	}
	table[desc.Name] = desc
	return nil
}

// Get looks up a previously registered descriptor by name.
func Get(name string) (*descriptor.Descriptor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := table[name]
	return d, ok
}

// MustRegister registers desc and panics on failure. It is intended for
// package-level var initialization, where a malformed descriptor is a
// programming error that should fail fast at startup.
func MustRegister(desc *descriptor.Descriptor) {
	if err := Register(desc); err != nil {
		panic(err)
	}
}

// reset clears the table. Unexported: it exists only so tests in this
// package can run with an isolated registry instead of accumulating state
// across test functions.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	table = make(map[string]*descriptor.Descriptor)
}
