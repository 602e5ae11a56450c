package aper

import (
	"fmt"
	"reflect"

	"github.com/thebagchi/aper/lib/aperr"
	"github.com/thebagchi/aper/lib/descriptor"
	"github.com/thebagchi/aper/lib/per"
)

// encodeSeqOf encodes a SEQUENCE-OF field: an element count (with 16K/64K
// fragmentation, mirroring per.Encoder.EncodeOctetStringFragments) followed
// by that many elements, encoded with f's own leaf/nested codec.
func (c *codec) encodeSeqOf(f *descriptor.Field, rv reflect.Value, path string) error {
	lb, ub, _ := countBounds(f.SeqOfCount)
	n := uint64(rv.Len())
	offset := uint64(0)

	for {
		remaining := n - offset
		fragmenting := (lb == nil || ub == nil || *ub >= per.MAX_CONSTRAINED_LENGTH) && remaining >= per.FRAGMENT_SIZE

		pending, err := c.enc.EncodeLengthDeterminant(remaining, lb, ub)
		if err != nil {
			return aperr.Wrap(err, path, 0)
		}

		var length uint64
		if pending == 0 {
			length = remaining
		} else {
			length = remaining - pending
		}

		for i := uint64(0); i < length; i++ {
			elem := rv.Index(int(offset + i))
			if err := c.encodeElement(f, elem, fmt.Sprintf("%s[%d]", path, offset+i)); err != nil {
				return err
			}
		}
		offset += length

		if !fragmenting {
			break
		}
	}
	return nil
}

// decodeSeqOf mirrors encodeSeqOf.
func (c *codec) decodeSeqOf(f *descriptor.Field, rv reflect.Value, path string) error {
	lb, ub, _ := countBounds(f.SeqOfCount)
	elemType := elementGoType(f)
	out := reflect.MakeSlice(reflect.SliceOf(elemType), 0, 0)

	for {
		length, more, err := c.dec.DecodeLengthDeterminant(lb, ub)
		if err != nil {
			return aperr.Wrap(err, path, c.dec.Remaining())
		}
		for i := uint64(0); i < length; i++ {
			elem := reflect.New(elemType).Elem()
			if err := c.decodeElement(f, elem, fmt.Sprintf("%s[%d]", path, out.Len())); err != nil {
				return err
			}
			out = reflect.Append(out, elem)
		}
		if !more {
			break
		}
	}
	rv.Set(out)
	return nil
}
