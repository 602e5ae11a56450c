package aper

import (
	"encoding/asn1"
	"reflect"
	"sync"

	"github.com/thebagchi/aper/lib/descriptor"
)

// Decode has no destination type to decode into, so the driver synthesizes
// a Go struct type from each Descriptor with reflect.StructOf, caching the
// result since building one is not free and a Descriptor is decoded many
// times over its process lifetime.
var (
	typeCacheMu sync.Mutex
	typeCache   = make(map[*descriptor.Descriptor]reflect.Type)
)

func cachedStructType(desc *descriptor.Descriptor, build func() reflect.Type) reflect.Type {
	typeCacheMu.Lock()
	defer typeCacheMu.Unlock()
	if t, ok := typeCache[desc]; ok {
		return t
	}
	t := build()
	typeCache[desc] = t
	return t
}

// elementGoType returns the Go type of a single element of f, ignoring
// f.Mode — i.e. the element type for a SeqOf field, or the field's own
// type otherwise.
func elementGoType(f *descriptor.Field) reflect.Type {
	var base reflect.Type
	switch f.Kind {
	case descriptor.KindBool:
		base = reflect.TypeOf(false)
	case descriptor.KindInt:
		base = reflect.TypeOf(int64(0))
	case descriptor.KindUint:
		base = reflect.TypeOf(uint64(0))
	case descriptor.KindEnum:
		base = reflect.TypeOf(int32(0))
	case descriptor.KindNull:
		base = reflect.TypeOf(struct{}{})
	case descriptor.KindString:
		base = reflect.TypeOf("")
	case descriptor.KindOctetString:
		base = reflect.TypeOf([]byte(nil))
	case descriptor.KindBitString:
		base = reflect.TypeOf(asn1.BitString{})
	case descriptor.KindSequence, descriptor.KindUntaggedChoice:
		base = sequenceGoType(f.Sub)
	case descriptor.KindChoice:
		base = choiceGoType(f.Sub)
	case descriptor.KindOpaque:
		base = reflect.TypeOf((*any)(nil)).Elem()
	default:
		base = reflect.TypeOf(struct{}{})
	}
	if f.Pointed {
		return reflect.PtrTo(base)
	}
	return base
}

// fieldGoType returns the Go struct field type for f at descriptor index
// i, given the owning descriptor's extension pivot: a slice for SeqOf
// fields, otherwise a pointer when the field is OPTIONAL, past the
// extension pivot, or Pointed, and the plain element type otherwise.
func fieldGoType(f *descriptor.Field, presenceTracked bool) reflect.Type {
	if f.Mode == descriptor.SeqOf {
		return reflect.SliceOf(elementGoType(f))
	}
	base := elementGoType(f)
	if f.Pointed || presenceTracked {
		if base.Kind() == reflect.Ptr {
			return base
		}
		return reflect.PtrTo(base)
	}
	return base
}

func sequenceGoType(desc *descriptor.Descriptor) reflect.Type {
	return cachedStructType(desc, func() reflect.Type {
		fields := make([]reflect.StructField, 0, len(desc.Fields))
		for i, f := range desc.Fields {
			presenceTracked := f.Mode == descriptor.Optional || (desc.IsExtended && i >= desc.ExtPos)
			fields = append(fields, reflect.StructField{
				Name: f.Name,
				Type: fieldGoType(&desc.Fields[i], presenceTracked),
			})
		}
		if len(fields) == 0 {
			return reflect.TypeOf(struct{}{})
		}
		return reflect.StructOf(fields)
	})
}

// choiceGoType builds a oneof-style struct: every alternative is a
// pointer field, and exactly one is expected to be non-nil.
func choiceGoType(desc *descriptor.Descriptor) reflect.Type {
	return cachedStructType(desc, func() reflect.Type {
		fields := make([]reflect.StructField, 0, len(desc.Fields))
		for i, f := range desc.Fields {
			fields = append(fields, reflect.StructField{
				Name: f.Name,
				Type: fieldGoType(&desc.Fields[i], true),
			})
		}
		if len(fields) == 0 {
			return reflect.TypeOf(struct{}{})
		}
		return reflect.StructOf(fields)
	})
}
