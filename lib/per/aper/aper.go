// Package aper is the constructed-type driver: it walks a
// descriptor.Descriptor tree and drives lib/per's scalar and length codecs
// to encode or decode SEQUENCE, CHOICE, and SEQUENCE-OF values.
//
// # Value representation
//
// A descriptor's Go value is an ordinary struct whose exported field names
// match the descriptor's Field.Name entries; the driver locates fields with
// reflect instead of the original's hand-rolled byte-offset table.
//
//   - An OPTIONAL field's Go struct field must be a pointer; nil means
//     absent. Every field at or past a Descriptor's ExtPos is
//     presence-tracked the same way regardless of its declared Mode,
//     since extension-addition presence is carried by the extension
//     bitmap rather than the root optional bitmap.
//   - A CHOICE descriptor's value is a struct whose fields (one per
//     alternative, in Fields order) are all pointers; exactly one must be
//     non-nil, selecting the encoded alternative.
//   - A field with Mode SeqOf holds a Go slice; its Kind/Int/Enum/Sub
//     describe the element type and its SeqOfCount bounds the element
//     count. A top-level Descriptor with IsSeqOf true is the same shape
//     with exactly one such field.
//   - An enumerated field holds the raw enum value as an int32, matched
//     against its EnumInfo's RootValues/ExtValues.
//   - Integer fields accept any Go integer kind; the driver widens to
//     int64/uint64 as lib/per's codecs require.
//
// Decoding allocates backing storage for OPTIONAL/extension pointer
// fields with the ordinary Go allocator (new), and routes only
// variable-length OCTET STRING/BIT STRING payload bytes through the
// configured allocator.Allocator, matching the narrower byte-buffer
// contract that interface exposes.
package aper

import (
	"fmt"
	"reflect"

	"github.com/thebagchi/aper/lib/allocator"
	"github.com/thebagchi/aper/lib/aperr"
	"github.com/thebagchi/aper/lib/descriptor"
	"github.com/thebagchi/aper/lib/per"
	"github.com/thebagchi/aper/lib/trace"
)

// codec threads the per.Encoder/per.Decoder and the active config through
// a single Encode or Decode call.
type codec struct {
	cfg config
	enc *per.Encoder
	dec *per.Decoder
}

// log reports through the configured trace.Logger, a no-op unless the
// caller supplied one via WithLogger.
func (c *codec) log(level trace.Level, path, format string, args ...any) {
	c.cfg.logger.Log(level, path, format, args...)
}

// Encode serializes value according to desc, returning the ALIGNED (or
// UNALIGNED, per WithAligned) PER encoding.
func Encode(desc *descriptor.Descriptor, value any, opts ...Option) ([]byte, error) {
	if desc == nil {
		return nil, fmt.Errorf("aper: Encode: nil descriptor")
	}
	cfg := buildConfig(opts)
	c := &codec{cfg: cfg, enc: per.NewEncoder(cfg.aligned)}
	c.log(trace.LevelDebug, desc.Name, "encode start")

	rv := reflect.ValueOf(value)
	if err := c.encodeTop(desc, rv, desc.Name); err != nil {
		return nil, err
	}
	out := c.enc.Bytes()
	if len(out) == 0 {
		// X.691 10.1.3: an encoded value is always at least one octet.
		out = []byte{0}
	}
	return out, nil
}

// Decode parses data according to desc and returns the reconstructed Go
// value: a struct or slice value (not a pointer to one) of the type
// synthesized for desc, per the value-representation rules in the
// package doc.
func Decode(desc *descriptor.Descriptor, data []byte, opts ...Option) (any, error) {
	if desc == nil {
		return nil, fmt.Errorf("aper: Decode: nil descriptor")
	}
	cfg := buildConfig(opts)
	c := &codec{cfg: cfg, dec: per.NewDecoder(data, cfg.aligned)}
	c.log(trace.LevelDebug, desc.Name, "decode start (%d bytes)", len(data))

	out, err := c.decodeTop(desc, desc.Name)
	if err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

// PackSize returns the size, in bits, of Encode's output for value under
// desc. It performs a full temporary encode, so the result is exact and
// always a whole number of octets.
func PackSize(desc *descriptor.Descriptor, value any, opts ...Option) (int, error) {
	encoded, err := Encode(desc, value, opts...)
	if err != nil {
		return 0, err
	}
	return len(encoded) * 8, nil
}

func (c *codec) allocator() allocator.Allocator {
	if c.cfg.alloc != nil {
		return c.cfg.alloc
	}
	return allocator.Default
}

func (c *codec) encodeTop(desc *descriptor.Descriptor, rv reflect.Value, path string) error {
	switch {
	case desc.Kind == descriptor.Set:
		return aperr.Wrap(aperr.ErrNotImplemented, path, 0)
	case desc.IsSeqOf:
		return c.encodeSeqOf(&desc.Fields[0], derefValue(rv), path)
	case desc.Kind == descriptor.Choice:
		return c.encodeChoice(desc, derefValue(rv), path)
	default:
		return c.encodeSequence(desc, derefValue(rv), path)
	}
}

func (c *codec) decodeTop(desc *descriptor.Descriptor, path string) (reflect.Value, error) {
	switch {
	case desc.Kind == descriptor.Set:
		return reflect.Value{}, aperr.Wrap(aperr.ErrNotImplemented, path, c.dec.Remaining())
	case desc.IsSeqOf:
		sliceType := reflect.SliceOf(elementGoType(&desc.Fields[0]))
		out := reflect.New(sliceType).Elem()
		if err := c.decodeSeqOf(&desc.Fields[0], out, path); err != nil {
			return reflect.Value{}, err
		}
		return out, nil
	case desc.Kind == descriptor.Choice:
		out := reflect.New(choiceGoType(desc)).Elem()
		if err := c.decodeChoice(desc, out, path); err != nil {
			return reflect.Value{}, err
		}
		return out, nil
	default:
		out := reflect.New(sequenceGoType(desc)).Elem()
		if err := c.decodeSequence(desc, out, path); err != nil {
			return reflect.Value{}, err
		}
		return out, nil
	}
}

func derefValue(rv reflect.Value) reflect.Value {
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

// --- leaf field value access -------------------------------------------

func fieldValue(rv reflect.Value, name string) (reflect.Value, error) {
	fv := rv.FieldByName(name)
	if !fv.IsValid() {
		return reflect.Value{}, fmt.Errorf("aper: struct %s has no field %q", rv.Type(), name)
	}
	return fv, nil
}

// asInt64 reads a signed Go integer value (a KindInt or KindEnum field,
// both of which elementGoType always gives an Int-kind reflect.Value) as
// an int64. KindUint fields go through EncodeUnsignedInteger/rv.Uint
// instead, never through here, since their range can exceed int64.
func asInt64(rv reflect.Value) int64 {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(rv.Uint())
	default:
		return 0
	}
}
