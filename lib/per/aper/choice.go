package aper

import (
	"fmt"
	"reflect"

	"github.com/thebagchi/aper/lib/aperr"
	"github.com/thebagchi/aper/lib/descriptor"
	"github.com/thebagchi/aper/lib/trace"
)

// encodeChoice implements the CHOICE procedure: exactly one Fields entry's
// Go value must be present (a "oneof" struct, see the package doc). A root
// alternative is selected by a fully constrained integer over
// [0, ext_pos-1] (or desc.ChoiceRange, when given); an extension
// alternative is flagged by a leading bit and located by a
// NormallySmallNonNegativeWholeNumber offset from ExtPos, with its payload
// always open-type wrapped.
func (c *codec) encodeChoice(desc *descriptor.Descriptor, rv reflect.Value, path string) error {
	fieldIdx := -1
	for i := range desc.Fields {
		fv, err := fieldValue(rv, desc.Fields[i].Name)
		if err != nil {
			return err
		}
		if isPresent(&desc.Fields[i], fv) {
			if fieldIdx != -1 {
				return aperr.Wrap(fmt.Errorf("aper: choice %q: more than one alternative set", desc.Name), path, 0)
			}
			fieldIdx = i
		}
	}
	if fieldIdx == -1 {
		return aperr.Wrap(fmt.Errorf("aper: choice %q: no alternative set", desc.Name), path, 0)
	}

	rootCount := len(desc.Fields)
	if desc.IsExtended {
		rootCount = desc.ExtPos
	}

	f := &desc.Fields[fieldIdx]
	fv, err := fieldValue(rv, f.Name)
	if err != nil {
		return err
	}
	childP := childPath(path, f.Name)
	c.log(trace.LevelDebug, path, "encode choice alternative %s", f.Name)

	if desc.IsExtended {
		extSelected := fieldIdx >= desc.ExtPos
		if err := writeBit(c.enc, extSelected); err != nil {
			return aperr.Wrap(err, path, 0)
		}
		if extSelected {
			extOffset := uint64(fieldIdx - desc.ExtPos)
			if err := c.enc.EncodeNormallySmallNonNegativeWholeNumber(extOffset); err != nil {
				return aperr.Wrap(err, path, 0)
			}
			return c.encodeExtensionValue(f, fv, childP)
		}
	}

	lb, ub := choiceRootBounds(desc, rootCount)
	if err := c.enc.EncodeConstrainedWholeNumber(lb, ub, int64(fieldIdx)); err != nil {
		return aperr.Wrap(err, path, 0)
	}
	return c.encodeField(f, fv, childP)
}

// decodeChoice mirrors encodeChoice.
func (c *codec) decodeChoice(desc *descriptor.Descriptor, rv reflect.Value, path string) error {
	rootCount := len(desc.Fields)
	if desc.IsExtended {
		rootCount = desc.ExtPos
	}

	extSelected := false
	if desc.IsExtended {
		bit, err := readBit(c.dec)
		if err != nil {
			return aperr.Wrap(err, path, c.dec.Remaining())
		}
		extSelected = bit
	}

	if extSelected {
		extOffset, err := c.dec.DecodeNormallySmallNonNegativeWholeNumber()
		if err != nil {
			return aperr.Wrap(err, path, c.dec.Remaining())
		}
		fieldIdx := desc.ExtPos + int(extOffset)
		if fieldIdx < 0 || fieldIdx >= len(desc.Fields) {
			return aperr.Wrap(aperr.ErrInvalidChoiceIndex, path, c.dec.Remaining())
		}
		f := &desc.Fields[fieldIdx]
		fv, err := fieldValue(rv, f.Name)
		if err != nil {
			return err
		}
		c.log(trace.LevelDebug, path, "decode choice extension alternative %s", f.Name)
		return c.decodeExtensionValue(f, fv, childPath(path, f.Name))
	}

	lb, ub := choiceRootBounds(desc, rootCount)
	idx, err := c.dec.DecodeConstrainedWholeNumber(lb, ub)
	if err != nil {
		return aperr.Wrap(err, path, c.dec.Remaining())
	}
	fieldIdx := int(idx)
	if fieldIdx < 0 || fieldIdx >= rootCount {
		return aperr.Wrap(aperr.ErrInvalidChoiceIndex, path, c.dec.Remaining())
	}
	f := &desc.Fields[fieldIdx]
	fv, err := fieldValue(rv, f.Name)
	if err != nil {
		return err
	}
	c.log(trace.LevelDebug, path, "decode choice root alternative %s", f.Name)
	return c.decodeField(f, fv, childPath(path, f.Name))
}

// choiceRootBounds returns the root discriminant's constrained integer
// range: desc.ChoiceRange when the descriptor declares one, otherwise
// [0, rootCount-1].
func choiceRootBounds(desc *descriptor.Descriptor, rootCount int) (int64, int64) {
	lb, ub := int64(0), int64(rootCount-1)
	if desc.ChoiceRange != nil {
		if desc.ChoiceRange.Min != nil {
			lb = *desc.ChoiceRange.Min
		}
		if desc.ChoiceRange.Max != nil {
			ub = *desc.ChoiceRange.Max
		}
	}
	return lb, ub
}
