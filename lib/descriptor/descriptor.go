// Package descriptor defines the passive, compile-time metadata read by the
// constructed-type driver (lib/per/aper): the field, constraint, and
// enumeration-info types that describe a SEQUENCE, CHOICE, or SEQUENCE-OF
// shape without containing any encode/decode logic of their own.
//
// Where the original C driver located a field's payload by a hand-rolled
// byte offset and size, a Field here carries a Name used with reflect to
// locate the corresponding exported struct field at runtime; Go's type
// system and reflect package replace the manual offset table.
package descriptor

import "fmt"

// Kind identifies the ASN.1 shape a Field or Descriptor encodes.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindUint
	KindEnum
	KindNull
	KindString
	KindBitString
	KindOctetString
	KindSequence
	KindChoice
	KindUntaggedChoice
	KindSequenceOf
	KindOpaque
	KindSkip
	KindOpenType
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindEnum:
		return "enum"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindBitString:
		return "bit_string"
	case KindOctetString:
		return "octet_string"
	case KindSequence:
		return "sequence"
	case KindChoice:
		return "choice"
	case KindUntaggedChoice:
		return "untagged_choice"
	case KindSequenceOf:
		return "sequence_of"
	case KindOpaque:
		return "opaque"
	case KindSkip:
		return "skip"
	case KindOpenType:
		return "open_type"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Mode distinguishes mandatory fields from those that may be absent or that
// repeat as a SEQUENCE-OF element.
type Mode int

const (
	Mandatory Mode = iota
	Optional
	SeqOf
)

// DescriptorKind is the top-level shape a Descriptor describes.
type DescriptorKind int

const (
	Sequence DescriptorKind = iota
	Choice
	Set
)

// IntConstraint bounds an integer field's root range and, when Extended,
// its extension range. A nil Min or Max means that bound is absent
// (semi-constrained or unconstrained, per X.691 clause 11).
//
// Min/Max/ExtMin/ExtMax hold a KindInt field's bounds. A KindUint field
// uses UMin/UMax/UExtMin/UExtMax instead: a plain *int64 cannot represent
// an unsigned bound past math.MaxInt64, which a u64 field's declared
// range is free to reach. Exactly one pair is populated per field,
// selected by the owning Field's Kind.
type IntConstraint struct {
	Min, Max       *int64
	ExtMin, ExtMax *int64

	UMin, UMax       *uint64
	UExtMin, UExtMax *uint64

	Extended bool
}

// InRoot reports whether v falls within [Min, Max]. A missing Min or Max
// is treated as -inf/+inf respectively.
func (c *IntConstraint) InRoot(v int64) bool {
	if c == nil {
		return true
	}
	if c.Min != nil && v < *c.Min {
		return false
	}
	if c.Max != nil && v > *c.Max {
		return false
	}
	return true
}

// InExtension reports whether v falls within the declared extension range.
// It is always false when the constraint does not declare one.
func (c *IntConstraint) InExtension(v int64) bool {
	if c == nil || !c.Extended || c.ExtMin == nil || c.ExtMax == nil {
		return false
	}
	return v >= *c.ExtMin && v <= *c.ExtMax
}

// CountUnbounded is the distinguished "infinity" value for a size or count
// upper bound, matching the original's SIZE_MAX sentinel.
const CountUnbounded = ^uint64(0)

// CountConstraint bounds the element count of a string, bit string, or
// SEQUENCE-OF field.
type CountConstraint struct {
	Min, Max       uint64
	ExtMin, ExtMax *uint64
	Extended       bool
}

// Unbounded reports whether the root range has no declared maximum.
func (c *CountConstraint) Unbounded() bool {
	return c == nil || c.Max == CountUnbounded
}

// EnumInfo describes an enumerated field's root and extension value lists,
// in canonical (declaration) order, plus an optional default substituted
// when decoding an unrecognized extension value.
type EnumInfo struct {
	RootValues []int32
	ExtValues  []int32
	Default    *int32
	Range      IntConstraint
	Extended   bool
}

// RootIndex returns the zero-based position of v in RootValues, or false
// if v is not a root value.
func (e *EnumInfo) RootIndex(v int32) (int, bool) {
	for i, rv := range e.RootValues {
		if rv == v {
			return i, true
		}
	}
	return 0, false
}

// ExtIndex returns the zero-based position of v in ExtValues, or false if
// v is not a declared extension value.
func (e *EnumInfo) ExtIndex(v int32) (int, bool) {
	for i, ev := range e.ExtValues {
		if ev == v {
			return i, true
		}
	}
	return 0, false
}

// OpaqueCodec lets a descriptor delegate an opaque field's size estimate,
// encoding, and decoding to caller-supplied functions, for ASN.1 types the
// driver does not otherwise understand.
type OpaqueCodec struct {
	PackSize func(value any) (int, error)
	Pack     func(value any) ([]byte, error)
	Unpack   func(data []byte) (any, error)
}

// Field is one element of a constructed Descriptor.
type Field struct {
	// Name is both the diagnostic label used in error paths and the
	// exported struct field name the driver locates via reflect.
	Name string

	Kind Kind
	Mode Mode

	// Pointed marks a field whose Go struct type is a pointer; on
	// decode the driver allocates storage for it with reflect.New
	// before assigning a value. The supplied Allocator is not used
	// for it.
	Pointed bool

	Int        *IntConstraint
	Count      *CountConstraint
	Enum       *EnumInfo
	SeqOfCount *CountConstraint
	Sub        *Descriptor

	IsOpenType     bool
	IsExtension    bool
	OpenTypeBufLen int

	Opaque *OpaqueCodec
}

// Descriptor is a named constructed type: an ordered list of Fields plus
// the metadata the driver needs to walk them (§4.5 of the governing
// specification): which positions are OPTIONAL, where the extension
// marker falls, and (for CHOICE) the discriminant's index range.
type Descriptor struct {
	Name string
	Fields []Field

	Kind DescriptorKind

	// ChoiceRange bounds the discriminant index for a CHOICE descriptor.
	ChoiceRange *IntConstraint

	// OptPositions lists, in descriptor order, the indices of root
	// (index < ExtPos) fields whose Mode is Optional. Its length is the
	// root presence bitmap's bit count.
	OptPositions []int

	// ExtPos is the first field index considered a post-extension-marker
	// addition. Fields at index >= ExtPos are extension fields.
	ExtPos int

	IsExtended bool

	// IsSeqOf marks a SEQUENCE-OF wrapper descriptor: exactly one Field,
	// whose Mode is SeqOf and whose SeqOfCount bounds the element count.
	IsSeqOf bool
}

// ExtFields returns the subslice of Fields at or beyond ExtPos.
func (d *Descriptor) ExtFields() []Field {
	if !d.IsExtended || d.ExtPos >= len(d.Fields) {
		return nil
	}
	return d.Fields[d.ExtPos:]
}

// Validate checks the structural invariants the driver relies on: SET and
// SEQUENCE-OF shape rules, non-empty enum roots, distinct enum values, and
// root-before-extension ordering. It is run once by registry.Register so
// the driver itself never has to re-check these on every call.
func (d *Descriptor) Validate() error {
	if d.Kind == Set {
		return fmt.Errorf("descriptor %q: SET is not implemented", d.Name)
	}
	if d.IsSeqOf {
		if len(d.Fields) != 1 {
			return fmt.Errorf("descriptor %q: SEQUENCE-OF must have exactly one field, has %d", d.Name, len(d.Fields))
		}
		if d.Fields[0].Mode != SeqOf {
			return fmt.Errorf("descriptor %q: SEQUENCE-OF field must have Mode SeqOf", d.Name)
		}
	}
	if d.Kind == Choice && len(d.Fields) == 0 {
		return fmt.Errorf("descriptor %q: CHOICE must declare at least one alternative", d.Name)
	}
	if d.ExtPos < 0 || d.ExtPos > len(d.Fields) {
		return fmt.Errorf("descriptor %q: ExtPos %d out of range [0,%d]", d.Name, d.ExtPos, len(d.Fields))
	}
	for i, f := range d.Fields {
		if f.Kind == KindOpaque && f.Opaque == nil {
			return fmt.Errorf("descriptor %q: field %q is opaque without callbacks", d.Name, f.Name)
		}
		if f.Kind == KindEnum {
			if f.Enum == nil || len(f.Enum.RootValues) == 0 {
				return fmt.Errorf("descriptor %q: field %q enum has empty root_values", d.Name, f.Name)
			}
			seen := make(map[int32]bool, len(f.Enum.RootValues)+len(f.Enum.ExtValues))
			for _, v := range append(append([]int32{}, f.Enum.RootValues...), f.Enum.ExtValues...) {
				if seen[v] {
					return fmt.Errorf("descriptor %q: field %q enum has duplicate value %d", d.Name, f.Name, v)
				}
				seen[v] = true
			}
		}
		if i >= d.ExtPos && !d.IsExtended {
			return fmt.Errorf("descriptor %q: field %q at index %d is at/past ExtPos but descriptor is not extended", d.Name, f.Name, i)
		}
	}
	return nil
}
