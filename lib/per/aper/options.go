package aper

import (
	"github.com/thebagchi/aper/lib/allocator"
	"github.com/thebagchi/aper/lib/trace"
)

// config collects the tunables Encode/Decode accept through functional
// Options: the aligned/unaligned variant choice already present on
// per.NewEncoder/per.NewDecoder, the decode-time Allocator, and a trace
// Logger.
type config struct {
	aligned bool
	alloc   allocator.Allocator
	logger  trace.Logger
}

func defaultConfig() config {
	return config{aligned: true, alloc: allocator.Default, logger: trace.Noop}
}

// Option configures an Encode, Decode, or PackSize call. The zero value of
// every option type is unusable; construct options with the With*
// functions below.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithAligned selects the ALIGNED (true, the default) or UNALIGNED (false)
// PER variant.
func WithAligned(aligned bool) Option {
	return optionFunc(func(c *config) { c.aligned = aligned })
}

// WithAllocator supplies the Allocator used to back decoded variable-length
// content (OCTET STRING/BIT STRING payloads). OPTIONAL and other pointer
// fields are not allocated through it; the driver allocates them with new.
// Encode ignores this option. The default is allocator.Default, a plain
// heap allocator.
func WithAllocator(alloc allocator.Allocator) Option {
	return optionFunc(func(c *config) {
		if alloc != nil {
			c.alloc = alloc
		}
	})
}

// WithLogger supplies a trace.Logger the driver reports its progress
// through. The default is trace.Noop, which discards everything.
func WithLogger(logger trace.Logger) Option {
	return optionFunc(func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	})
}

func buildConfig(opts []Option) config {
	c := defaultConfig()
	for _, opt := range opts {
		opt.apply(&c)
	}
	return c
}
