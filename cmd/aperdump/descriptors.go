package main

import "github.com/thebagchi/aper/lib/descriptor"

// i64 is a small helper for writing constraint literals inline below,
// mirroring the pointer-to-constant idiom constraint construction
// needs throughout this package.
func i64(v int64) *int64 { return &v }

// demoDescriptors registers a couple of illustrative descriptors so
// aperdump has something to decode against out of the box. Real callers
// register their own descriptors at startup the same way; the descriptor
// compiler that would generate these from an IDL source is out of scope
// here (the core only consumes finished descriptors).
func demoDescriptors() []*descriptor.Descriptor {
	status := &descriptor.Descriptor{
		Name: "demo.Status",
		Kind: descriptor.Sequence,
		Fields: []descriptor.Field{
			{
				Name: "Code",
				Kind: descriptor.KindInt,
				Int:  &descriptor.IntConstraint{Min: i64(0), Max: i64(255)},
			},
			{
				Name: "Reason",
				Kind: descriptor.KindOctetString,
				Mode: descriptor.Optional,
			},
		},
		OptPositions: []int{1},
		ExtPos:       2,
	}

	event := &descriptor.Descriptor{
		Name: "demo.Event",
		Kind: descriptor.Choice,
		Fields: []descriptor.Field{
			{Name: "Connected", Kind: descriptor.KindNull},
			{Name: "Disconnected", Kind: descriptor.KindInt, Int: &descriptor.IntConstraint{Min: i64(0), Max: i64(255)}},
		},
		ExtPos: 2,
	}

	return []*descriptor.Descriptor{status, event}
}
