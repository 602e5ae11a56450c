package aper

import (
	"reflect"

	"github.com/thebagchi/aper/lib/aperr"
	"github.com/thebagchi/aper/lib/descriptor"
	"github.com/thebagchi/aper/lib/per"
	"github.com/thebagchi/aper/lib/trace"
)

// writeBit/readBit encode a single preamble or bitmap bit through
// per.Encoder/Decoder's WriteBits/ReadBits(1), which is the narrowest
// bit-level primitive lib/per exports.
func writeBit(enc *per.Encoder, v bool) error {
	if v {
		return enc.WriteBits([]byte{0x80}, 1)
	}
	return enc.WriteBits([]byte{0x00}, 1)
}

func readBit(dec *per.Decoder) (bool, error) {
	b, err := dec.ReadBits(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func childPath(path, name string) string {
	return path + "." + name
}

// isPresent reports whether fv (the Go struct field backing f) represents a
// present value: a non-nil slice for a SeqOf field, a non-nil pointer for
// anything else presence-tracked, true otherwise.
func isPresent(f *descriptor.Field, fv reflect.Value) bool {
	if f.Mode == descriptor.SeqOf {
		return !fv.IsNil()
	}
	if fv.Kind() == reflect.Ptr {
		return !fv.IsNil()
	}
	return true
}

// encodeField/decodeField are the per-field entry points used by
// encodeSequence/decodeSequence and encodeChoice/decodeChoice for a root
// (non-extension-addition) field: they route SeqOf fields to encodeSeqOf
// directly, since a root SEQUENCE-OF member is never itself open-type
// wrapped.
func (c *codec) encodeField(f *descriptor.Field, fv reflect.Value, path string) error {
	if f.Mode == descriptor.SeqOf {
		return c.encodeSeqOf(f, fv, path)
	}
	return c.encodeElement(f, fv, path)
}

func (c *codec) decodeField(f *descriptor.Field, fv reflect.Value, path string) error {
	if f.Mode == descriptor.SeqOf {
		return c.decodeSeqOf(f, fv, path)
	}
	return c.decodeElement(f, fv, path)
}

// encodeSequence implements the constructed-type driver's SEQUENCE
// procedure: an optional extension bit, the root optional bitmap, the
// root fields in declaration order (skipping absent OPTIONALs), and, when
// the extension bit was set, a NormallySmallNonNegativeWholeNumber-coded
// bitmap length, the extension presence bitmap, and each present
// extension-addition's value, always open-type wrapped.
func (c *codec) encodeSequence(desc *descriptor.Descriptor, rv reflect.Value, path string) error {
	rootFields := desc.Fields
	var extFields []descriptor.Field
	if desc.IsExtended {
		rootFields = desc.Fields[:desc.ExtPos]
		extFields = desc.ExtFields()
	}

	extPresent := false
	if desc.IsExtended {
		for i := range extFields {
			fv, err := fieldValue(rv, extFields[i].Name)
			if err != nil {
				return err
			}
			if isPresent(&extFields[i], fv) {
				extPresent = true
				break
			}
		}
		if err := writeBit(c.enc, extPresent); err != nil {
			return aperr.Wrap(err, path, 0)
		}
	}

	for _, idx := range desc.OptPositions {
		f := &desc.Fields[idx]
		fv, err := fieldValue(rv, f.Name)
		if err != nil {
			return err
		}
		if err := writeBit(c.enc, isPresent(f, fv)); err != nil {
			return aperr.Wrap(err, path, 0)
		}
	}

	for i := range rootFields {
		f := &rootFields[i]
		fv, err := fieldValue(rv, f.Name)
		if err != nil {
			return err
		}
		if f.Mode == descriptor.Optional && !isPresent(f, fv) {
			continue
		}
		c.log(trace.LevelDebug, path, "encode field %s", f.Name)
		if err := c.encodeField(f, fv, childPath(path, f.Name)); err != nil {
			return err
		}
	}

	if !extPresent {
		return nil
	}

	bitmapLen := uint64(len(extFields))
	if err := c.enc.EncodeNormallySmallNonNegativeWholeNumber(bitmapLen - 1); err != nil {
		return aperr.Wrap(err, path, 0)
	}
	present := make([]bool, bitmapLen)
	for i := range extFields {
		fv, err := fieldValue(rv, extFields[i].Name)
		if err != nil {
			return err
		}
		present[i] = isPresent(&extFields[i], fv)
		if err := writeBit(c.enc, present[i]); err != nil {
			return aperr.Wrap(err, path, 0)
		}
	}
	for i := range extFields {
		if !present[i] {
			continue
		}
		fv, err := fieldValue(rv, extFields[i].Name)
		if err != nil {
			return err
		}
		if err := c.encodeExtensionValue(&extFields[i], fv, childPath(path, extFields[i].Name)); err != nil {
			return err
		}
	}
	return nil
}

// decodeSequence mirrors encodeSequence. An extension bitmap bit set
// beyond what this Descriptor declares is a known-unknown extension
// addition: its open-type envelope is read and discarded rather than
// rejected, so a newer-extension encoder's wire data still decodes.
func (c *codec) decodeSequence(desc *descriptor.Descriptor, rv reflect.Value, path string) error {
	rootFields := desc.Fields
	var extFields []descriptor.Field
	if desc.IsExtended {
		rootFields = desc.Fields[:desc.ExtPos]
		extFields = desc.ExtFields()
	}

	extPresent := false
	if desc.IsExtended {
		bit, err := readBit(c.dec)
		if err != nil {
			return aperr.Wrap(err, path, c.dec.Remaining())
		}
		extPresent = bit
	}

	optPresent := make(map[int]bool, len(desc.OptPositions))
	for _, idx := range desc.OptPositions {
		bit, err := readBit(c.dec)
		if err != nil {
			return aperr.Wrap(err, path, c.dec.Remaining())
		}
		optPresent[idx] = bit
	}

	for i := range rootFields {
		f := &rootFields[i]
		if f.Mode == descriptor.Optional {
			if present, ok := optPresent[i]; ok && !present {
				continue
			}
		}
		fv, err := fieldValue(rv, f.Name)
		if err != nil {
			return err
		}
		c.log(trace.LevelDebug, path, "decode field %s", f.Name)
		if err := c.decodeField(f, fv, childPath(path, f.Name)); err != nil {
			return err
		}
	}

	if !extPresent {
		return nil
	}

	bitmapLenMinus1, err := c.dec.DecodeNormallySmallNonNegativeWholeNumber()
	if err != nil {
		return aperr.Wrap(err, path, c.dec.Remaining())
	}
	bitmapLen := bitmapLenMinus1 + 1
	present := make([]bool, bitmapLen)
	for i := uint64(0); i < bitmapLen; i++ {
		bit, err := readBit(c.dec)
		if err != nil {
			return aperr.Wrap(err, path, c.dec.Remaining())
		}
		present[i] = bit
	}
	for i := uint64(0); i < bitmapLen; i++ {
		if !present[i] {
			continue
		}
		if int(i) < len(extFields) {
			f := &extFields[i]
			fv, err := fieldValue(rv, f.Name)
			if err != nil {
				return err
			}
			if err := c.decodeExtensionValue(f, fv, childPath(path, f.Name)); err != nil {
				return err
			}
			continue
		}
		c.log(trace.LevelDebug, path, "skipping unknown extension-addition bit %d", i)
		if err := c.decodeOpenTypeEnvelope(func(inner *codec) error { return nil }); err != nil {
			return aperr.Wrap(err, path, c.dec.Remaining())
		}
	}
	return nil
}
