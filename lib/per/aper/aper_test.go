package aper

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thebagchi/aper/lib/descriptor"
	"github.com/thebagchi/aper/lib/trace"
)

func i64(v int64) *int64  { return &v }
func u64(v uint64) *uint64 { return &v }

// recordingLogger captures every Log call for assertion; it is not safe
// for concurrent use, matching the single-goroutine-per-call shape of
// these tests.
type recordingLogger struct {
	calls []string
}

func (r *recordingLogger) Log(level trace.Level, path string, format string, args ...any) {
	r.calls = append(r.calls, path)
}

// TestWithLoggerIsInvoked checks that a supplied trace.Logger actually
// observes Encode/Decode activity, rather than only the default no-op.
func TestWithLoggerIsInvoked(t *testing.T) {
	desc := &descriptor.Descriptor{
		Name: "Simple",
		Kind: descriptor.Sequence,
		Fields: []descriptor.Field{
			{Name: "Flag", Kind: descriptor.KindBool},
		},
		ExtPos: 1,
	}
	type simple struct {
		Flag bool
	}

	encLog := &recordingLogger{}
	out, err := Encode(desc, simple{Flag: true}, WithLogger(encLog))
	require.NoError(t, err)
	require.NotEmpty(t, encLog.calls)

	decLog := &recordingLogger{}
	_, err = Decode(desc, out, WithLogger(decLog))
	require.NoError(t, err)
	require.NotEmpty(t, decLog.calls)
}

// TestSequenceOptionalBitmapAndConstrainedInteger mirrors S5 combined with
// S1: two root OPTIONAL fields, the first present, and checks the top two
// bits of the output (the root optional bitmap) directly.
func TestSequenceOptionalBitmapAndConstrainedInteger(t *testing.T) {
	desc := &descriptor.Descriptor{
		Name: "AB",
		Kind: descriptor.Sequence,
		Fields: []descriptor.Field{
			{Name: "A", Kind: descriptor.KindInt, Mode: descriptor.Optional, Int: &descriptor.IntConstraint{Min: i64(3), Max: i64(6)}},
			{Name: "B", Kind: descriptor.KindInt, Mode: descriptor.Optional, Int: &descriptor.IntConstraint{Min: i64(0), Max: i64(10)}},
		},
		OptPositions: []int{0, 1},
		ExtPos:       2,
	}

	type ab struct {
		A *int64
		B *int64
	}

	out, err := Encode(desc, ab{A: i64(5)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	// bits: presence(A)=1 presence(B)=0, then d=5-3=2 in 2 unaligned bits "10"
	require.Equal(t, byte(0xA0), out[0])

	decoded, err := Decode(desc, out)
	require.NoError(t, err)
	got := decoded.(struct {
		A *int64
		B *int64
	})
	require.NotNil(t, got.A)
	require.Equal(t, int64(5), *got.A)
	require.Nil(t, got.B)
}

// TestChoiceExtensionWireFormat mirrors S6: selecting an extension
// alternative whose own encoding is exactly one octet.
func TestChoiceExtensionWireFormat(t *testing.T) {
	desc := &descriptor.Descriptor{
		Name: "ABC",
		Kind: descriptor.Choice,
		Fields: []descriptor.Field{
			{Name: "RootA", Kind: descriptor.KindBool},
			{Name: "RootB", Kind: descriptor.KindBool},
			{Name: "ExtC", Kind: descriptor.KindInt, Int: &descriptor.IntConstraint{Min: i64(0), Max: i64(255)}},
		},
		ExtPos:     2,
		IsExtended: true,
	}

	type abc struct {
		RootA *bool
		RootB *bool
		ExtC  *int64
	}

	out, err := Encode(desc, abc{ExtC: i64(0x42)})
	require.NoError(t, err)
	require.Equal(t, []byte{0x80, 0x01, 0x42}, out)

	decoded, err := Decode(desc, out)
	require.NoError(t, err)
	got := decoded.(struct {
		RootA *bool
		RootB *bool
		ExtC  *int64
	})
	require.Nil(t, got.RootA)
	require.Nil(t, got.RootB)
	require.NotNil(t, got.ExtC)
	require.Equal(t, int64(0x42), *got.ExtC)
}

// TestChoiceRootSelection exercises the non-extended root-selection path.
func TestChoiceRootSelection(t *testing.T) {
	desc := &descriptor.Descriptor{
		Name: "XY",
		Kind: descriptor.Choice,
		Fields: []descriptor.Field{
			{Name: "X", Kind: descriptor.KindBool},
			{Name: "Y", Kind: descriptor.KindBool},
		},
		ExtPos: 2,
	}

	type xy struct {
		X *bool
		Y *bool
	}

	truth := true
	out, err := Encode(desc, xy{Y: &truth})
	require.NoError(t, err)

	decoded, err := Decode(desc, out)
	require.NoError(t, err)
	got := decoded.(struct {
		X *bool
		Y *bool
	})
	require.Nil(t, got.X)
	require.NotNil(t, got.Y)
	require.True(t, *got.Y)
}

// TestSequenceOfFragmentationBoundaries round-trips a top-level
// SEQUENCE-OF descriptor at every fragmentation boundary named by the
// testable properties: 16383, 16384, 16385, 32768, 65536, and 98304
// elements.
func TestSequenceOfFragmentationBoundaries(t *testing.T) {
	desc := &descriptor.Descriptor{
		Name:   "NumList",
		Kind:   descriptor.Sequence,
		IsSeqOf: true,
		Fields: []descriptor.Field{
			{
				Name:       "Elem",
				Kind:       descriptor.KindInt,
				Mode:       descriptor.SeqOf,
				Int:        &descriptor.IntConstraint{Min: i64(0), Max: i64(255)},
				SeqOfCount: &descriptor.CountConstraint{Min: 0, Max: descriptor.CountUnbounded},
			},
		},
	}

	for _, n := range []int{16383, 16384, 16385, 32768, 65536, 98304} {
		value := make([]int64, n)
		for i := range value {
			value[i] = int64(i % 256)
		}

		out, err := Encode(desc, value)
		require.NoError(t, err, "n=%d", n)

		decoded, err := Decode(desc, out)
		require.NoError(t, err, "n=%d", n)
		got, ok := decoded.([]int64)
		require.True(t, ok, "n=%d", n)
		require.Equal(t, value, got, "n=%d", n)
	}
}

// TestSequenceUnknownExtensionIsSkipped checks that a descriptor missing a
// later-added extension field still decodes data produced by a descriptor
// that knows about it, discarding the unknown addition.
func TestSequenceUnknownExtensionIsSkipped(t *testing.T) {
	newDesc := &descriptor.Descriptor{
		Name: "Msg",
		Kind: descriptor.Sequence,
		Fields: []descriptor.Field{
			{Name: "A", Kind: descriptor.KindInt, Int: &descriptor.IntConstraint{Min: i64(0), Max: i64(255)}},
			{Name: "B1", Kind: descriptor.KindInt, Mode: descriptor.Optional, Int: &descriptor.IntConstraint{Min: i64(0), Max: i64(255)}},
			{Name: "B2", Kind: descriptor.KindInt, Mode: descriptor.Optional, Int: &descriptor.IntConstraint{Min: i64(0), Max: i64(255)}},
		},
		ExtPos:     1,
		IsExtended: true,
	}
	oldDesc := &descriptor.Descriptor{
		Name: "Msg",
		Kind: descriptor.Sequence,
		Fields: []descriptor.Field{
			{Name: "A", Kind: descriptor.KindInt, Int: &descriptor.IntConstraint{Min: i64(0), Max: i64(255)}},
			{Name: "B1", Kind: descriptor.KindInt, Mode: descriptor.Optional, Int: &descriptor.IntConstraint{Min: i64(0), Max: i64(255)}},
		},
		ExtPos:     1,
		IsExtended: true,
	}

	type msgNew struct {
		A  int64
		B1 *int64
		B2 *int64
	}
	type msgOld struct {
		A  int64
		B1 *int64
	}

	out, err := Encode(newDesc, msgNew{A: 7, B1: i64(9), B2: i64(11)})
	require.NoError(t, err)

	decoded, err := Decode(oldDesc, out)
	require.NoError(t, err)
	got := decoded.(struct {
		A  int64
		B1 *int64
	})
	require.Equal(t, int64(7), got.A)
	require.NotNil(t, got.B1)
	require.Equal(t, int64(9), *got.B1)
}

// TestOpaqueFieldRoundTrip exercises a KindOpaque field, whose encoding is
// delegated entirely to a caller-supplied descriptor.OpaqueCodec.
func TestOpaqueFieldRoundTrip(t *testing.T) {
	codec := &descriptor.OpaqueCodec{
		Pack: func(value any) ([]byte, error) {
			return []byte{byte(value.(int))}, nil
		},
		Unpack: func(data []byte) (any, error) {
			return int(data[0]), nil
		},
	}
	desc := &descriptor.Descriptor{
		Name: "WithOpaque",
		Kind: descriptor.Sequence,
		Fields: []descriptor.Field{
			{Name: "Tag", Kind: descriptor.KindOpaque, Opaque: codec},
		},
		ExtPos: 1,
	}

	type withOpaque struct {
		Tag any
	}

	out, err := Encode(desc, withOpaque{Tag: 7})
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x07}, out)

	decoded, err := Decode(desc, out)
	require.NoError(t, err)
	got := decoded.(struct {
		Tag any
	})
	require.Equal(t, 7, got.Tag)
}

// TestSequenceNestedAndEnum exercises a nested SEQUENCE field and an
// extensible enumerated field together.
func TestSequenceNestedAndEnum(t *testing.T) {
	inner := &descriptor.Descriptor{
		Name: "Inner",
		Kind: descriptor.Sequence,
		Fields: []descriptor.Field{
			{Name: "Flag", Kind: descriptor.KindBool},
		},
		ExtPos: 1,
	}
	outer := &descriptor.Descriptor{
		Name: "Outer",
		Kind: descriptor.Sequence,
		Fields: []descriptor.Field{
			{Name: "Nested", Kind: descriptor.KindSequence, Sub: inner},
			{
				Name: "Status",
				Kind: descriptor.KindEnum,
				Enum: &descriptor.EnumInfo{
					RootValues: []int32{0, 1, 2},
					ExtValues:  []int32{3},
					Extended:   true,
				},
			},
		},
		ExtPos: 2,
	}

	type innerVal struct {
		Flag bool
	}
	type outerVal struct {
		Nested innerVal
		Status int32
	}

	out, err := Encode(outer, outerVal{Nested: innerVal{Flag: true}, Status: 3})
	require.NoError(t, err)

	decoded, err := Decode(outer, out)
	require.NoError(t, err)
	got := decoded.(struct {
		Nested struct {
			Flag bool
		}
		Status int32
	})
	require.True(t, got.Nested.Flag)
	require.Equal(t, int32(3), got.Status)
}

// TestUnsignedIntegerFieldRoundTrip exercises a KindUint field across the
// constrained, semi-constrained, and unconstrained cases, including a
// value past math.MaxInt64 in the unconstrained case, where the 9-octet
// guarded form (twosComplementBytesUint64) is the only correct encoding.
func TestUnsignedIntegerFieldRoundTrip(t *testing.T) {
	desc := &descriptor.Descriptor{
		Name: "Counters",
		Kind: descriptor.Sequence,
		Fields: []descriptor.Field{
			{Name: "Small", Kind: descriptor.KindUint, Int: &descriptor.IntConstraint{UMin: u64(0), UMax: u64(255)}},
			{Name: "Offset", Kind: descriptor.KindUint, Int: &descriptor.IntConstraint{UMin: u64(1000)}},
			{Name: "Huge", Kind: descriptor.KindUint},
		},
		ExtPos: 3,
	}

	type counters struct {
		Small  uint64
		Offset uint64
		Huge   uint64
	}

	for _, huge := range []uint64{0, 1, math.MaxInt64, uint64(math.MaxInt64) + 1, math.MaxUint64} {
		value := counters{Small: 200, Offset: 1005, Huge: huge}

		out, err := Encode(desc, value)
		require.NoError(t, err, "huge=%d", huge)

		decoded, err := Decode(desc, out)
		require.NoError(t, err, "huge=%d", huge)
		got := decoded.(struct {
			Small  uint64
			Offset uint64
			Huge   uint64
		})
		require.Equal(t, value.Small, got.Small, "huge=%d", huge)
		require.Equal(t, value.Offset, got.Offset, "huge=%d", huge)
		require.Equal(t, value.Huge, got.Huge, "huge=%d", huge)
	}
}
