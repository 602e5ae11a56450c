package aper

import (
	"encoding/asn1"
	"fmt"
	"reflect"

	"github.com/thebagchi/aper/lib/aperr"
	"github.com/thebagchi/aper/lib/descriptor"
)

func intBounds(ic *descriptor.IntConstraint) (lb, ub *int64, extensible bool) {
	if ic == nil {
		return nil, nil, false
	}
	return ic.Min, ic.Max, ic.Extended
}

// uintBounds is intBounds' counterpart for a KindUint field: it reads the
// unsigned bound pair instead, since a declared u64 range can exceed what
// *int64 can represent.
func uintBounds(ic *descriptor.IntConstraint) (lb, ub *uint64, extensible bool) {
	if ic == nil {
		return nil, nil, false
	}
	return ic.UMin, ic.UMax, ic.Extended
}

func countBounds(cc *descriptor.CountConstraint) (lb, ub *uint64, extensible bool) {
	if cc == nil {
		return nil, nil, false
	}
	min := cc.Min
	lb = &min
	if !cc.Unbounded() {
		max := cc.Max
		ub = &max
	}
	return lb, ub, cc.Extended
}

// encodeElement encodes one field value (a plain field, or one element of
// a SeqOf field), wrapping it in an open-type envelope first when the
// field is marked IsOpenType.
func (c *codec) encodeElement(f *descriptor.Field, rv reflect.Value, path string) error {
	if f.IsOpenType {
		return c.encodeOpenType(f, rv, path)
	}
	return c.encodeLeaf(f, rv, path)
}

func (c *codec) encodeLeaf(f *descriptor.Field, rv reflect.Value, path string) error {
	rv = derefForRead(rv)
	switch f.Kind {
	case descriptor.KindBool:
		return c.enc.EncodeBoolean(rv.Bool())
	case descriptor.KindInt:
		lb, ub, ext := intBounds(f.Int)
		return c.enc.EncodeInteger(asInt64(rv), lb, ub, ext)
	case descriptor.KindUint:
		lb, ub, ext := uintBounds(f.Int)
		v := uint64(asInt64(rv))
		if rv.CanUint() {
			v = rv.Uint()
		}
		return c.enc.EncodeUnsignedInteger(v, lb, ub, ext)
	case descriptor.KindEnum:
		return c.encodeEnum(f, rv, path)
	case descriptor.KindNull:
		return c.enc.EncodeNull()
	case descriptor.KindString:
		lb, ub, ext := countBounds(f.Count)
		return c.enc.EncodeString(rv.String(), lb, ub, ext)
	case descriptor.KindOctetString:
		lb, ub, ext := countBounds(f.Count)
		return c.enc.EncodeOctetString(rv.Bytes(), lb, ub, ext)
	case descriptor.KindBitString:
		lb, ub, ext := countBounds(f.Count)
		bs, ok := rv.Addr().Interface().(*asn1.BitString)
		if !ok {
			return fmt.Errorf("aper: field %q: expected asn1.BitString, got %s", path, rv.Type())
		}
		return c.enc.EncodeBitString(bs, lb, ub, ext)
	case descriptor.KindSequence, descriptor.KindUntaggedChoice:
		return c.encodeSequence(f.Sub, rv, path)
	case descriptor.KindChoice:
		return c.encodeChoice(f.Sub, rv, path)
	case descriptor.KindOpaque:
		data, err := f.Opaque.Pack(rv.Interface())
		if err != nil {
			return aperr.Wrap(err, path, 0)
		}
		return c.enc.EncodeOctetString(data, nil, nil, false)
	case descriptor.KindSkip:
		return nil
	default:
		return aperr.Wrap(aperr.ErrNotImplemented, path, 0)
	}
}

func (c *codec) encodeEnum(f *descriptor.Field, rv reflect.Value, path string) error {
	raw := int32(asInt64(rv))
	count := uint64(len(f.Enum.RootValues))
	if idx, ok := f.Enum.RootIndex(raw); ok {
		return c.enc.EncodeEnumerated(uint64(idx), count, f.Enum.Extended)
	}
	if f.Enum.Extended {
		if idx, ok := f.Enum.ExtIndex(raw); ok {
			return c.enc.EncodeEnumerated(count+uint64(idx), count, true)
		}
	}
	return aperr.Wrap(aperr.ErrEnumValueUnknown, path, 0)
}

// decodeElement mirrors encodeElement.
func (c *codec) decodeElement(f *descriptor.Field, rv reflect.Value, path string) error {
	if f.IsOpenType {
		return c.decodeOpenType(f, rv, path)
	}
	return c.decodeLeaf(f, rv, path)
}

func (c *codec) decodeLeaf(f *descriptor.Field, rv reflect.Value, path string) error {
	target := derefForWrite(rv)
	switch f.Kind {
	case descriptor.KindBool:
		v, err := c.dec.DecodeBoolean()
		if err != nil {
			return aperr.Wrap(err, path, c.dec.Remaining())
		}
		target.SetBool(v)
		return nil
	case descriptor.KindInt:
		lb, ub, ext := intBounds(f.Int)
		v, err := c.dec.DecodeInteger(lb, ub, ext)
		if err != nil {
			return aperr.Wrap(err, path, c.dec.Remaining())
		}
		target.SetInt(v)
		return nil
	case descriptor.KindUint:
		lb, ub, ext := uintBounds(f.Int)
		v, err := c.dec.DecodeUnsignedInteger(lb, ub, ext)
		if err != nil {
			return aperr.Wrap(err, path, c.dec.Remaining())
		}
		target.SetUint(v)
		return nil
	case descriptor.KindEnum:
		return c.decodeEnum(f, target, path)
	case descriptor.KindNull:
		if err := c.dec.DecodeNull(); err != nil {
			return aperr.Wrap(err, path, c.dec.Remaining())
		}
		return nil
	case descriptor.KindString:
		lb, ub, ext := countBounds(f.Count)
		s, err := c.dec.DecodeString(lb, ub, ext)
		if err != nil {
			return aperr.Wrap(err, path, c.dec.Remaining())
		}
		target.SetString(s)
		return nil
	case descriptor.KindOctetString:
		lb, ub, ext := countBounds(f.Count)
		b, err := c.dec.DecodeOctetString(lb, ub, ext)
		if err != nil {
			return aperr.Wrap(err, path, c.dec.Remaining())
		}
		buf, aerr := c.allocator().Alloc(len(b), 0)
		if aerr != nil {
			return aperr.Wrap(fmt.Errorf("%w: %v", aperr.ErrAllocatorFailure, aerr), path, c.dec.Remaining())
		}
		copy(buf, b)
		target.SetBytes(buf)
		return nil
	case descriptor.KindBitString:
		lb, ub, ext := countBounds(f.Count)
		bs, err := c.dec.DecodeBitString(lb, ub, ext)
		if err != nil {
			return aperr.Wrap(err, path, c.dec.Remaining())
		}
		buf, aerr := c.allocator().Alloc(len(bs.Bytes), 0)
		if aerr != nil {
			return aperr.Wrap(fmt.Errorf("%w: %v", aperr.ErrAllocatorFailure, aerr), path, c.dec.Remaining())
		}
		copy(buf, bs.Bytes)
		target.Set(reflect.ValueOf(asn1.BitString{Bytes: buf, BitLength: bs.BitLength}))
		return nil
	case descriptor.KindSequence, descriptor.KindUntaggedChoice:
		return c.decodeSequence(f.Sub, target, path)
	case descriptor.KindChoice:
		return c.decodeChoice(f.Sub, target, path)
	case descriptor.KindOpaque:
		b, err := c.dec.DecodeOctetString(nil, nil, false)
		if err != nil {
			return aperr.Wrap(err, path, c.dec.Remaining())
		}
		val, uerr := f.Opaque.Unpack(b)
		if uerr != nil {
			return aperr.Wrap(uerr, path, c.dec.Remaining())
		}
		target.Set(reflect.ValueOf(val))
		return nil
	case descriptor.KindSkip:
		return nil
	default:
		return aperr.Wrap(aperr.ErrNotImplemented, path, c.dec.Remaining())
	}
}

func (c *codec) decodeEnum(f *descriptor.Field, target reflect.Value, path string) error {
	count := uint64(len(f.Enum.RootValues))
	idx, err := c.dec.DecodeEnumerated(count, f.Enum.Extended)
	if err != nil {
		return aperr.Wrap(err, path, c.dec.Remaining())
	}
	if idx < count {
		target.SetInt(int64(f.Enum.RootValues[idx]))
		return nil
	}
	extIdx := idx - count
	if extIdx < uint64(len(f.Enum.ExtValues)) {
		target.SetInt(int64(f.Enum.ExtValues[extIdx]))
		return nil
	}
	if f.Enum.Default != nil {
		target.SetInt(int64(*f.Enum.Default))
		return nil
	}
	return aperr.Wrap(aperr.ErrEnumValueUnknownNoDefault, path, c.dec.Remaining())
}

// derefForRead follows a pointer chain down to the addressable value it
// ultimately refers to, for use on the encode path where the pointer is
// guaranteed non-nil by the caller (presence has already been checked).
func derefForRead(rv reflect.Value) reflect.Value {
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	return rv
}

// derefForWrite is derefForRead's decode-side counterpart: it allocates
// storage for a nil pointer field before descending into it, since the
// decoder must populate something for the caller to read back.
func derefForWrite(rv reflect.Value) reflect.Value {
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}
	return rv
}
