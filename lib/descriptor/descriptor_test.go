package descriptor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntConstraintInRoot(t *testing.T) {
	min, max := int64(3), int64(6)
	c := &IntConstraint{Min: &min, Max: &max}
	require.True(t, c.InRoot(5))
	require.True(t, c.InRoot(3))
	require.True(t, c.InRoot(6))
	require.False(t, c.InRoot(2))
	require.False(t, c.InRoot(7))
}

func TestIntConstraintInExtension(t *testing.T) {
	min, max := int64(3), int64(6)
	extMin, extMax := int64(7), int64(20)
	c := &IntConstraint{Min: &min, Max: &max, Extended: true, ExtMin: &extMin, ExtMax: &extMax}
	require.False(t, c.InExtension(5))
	require.True(t, c.InExtension(10))
	require.False(t, c.InExtension(100))
}

func TestEnumInfoLookup(t *testing.T) {
	e := &EnumInfo{RootValues: []int32{1, 2, 3}, ExtValues: []int32{10, 11}}
	idx, ok := e.RootIndex(2)
	require.True(t, ok)
	require.Equal(t, 1, idx)

	idx, ok = e.ExtIndex(11)
	require.True(t, ok)
	require.Equal(t, 1, idx)

	_, ok = e.RootIndex(99)
	require.False(t, ok)
}

func TestDescriptorValidateSeqOf(t *testing.T) {
	d := &Descriptor{
		Name:   "NumberList",
		IsSeqOf: true,
		Fields: []Field{{Name: "element", Kind: KindInt, Mode: SeqOf}},
	}
	require.NoError(t, d.Validate())

	bad := &Descriptor{Name: "BadList", IsSeqOf: true, Fields: []Field{{Name: "a"}, {Name: "b"}}}
	require.Error(t, bad.Validate())
}

func TestDescriptorValidateRejectsSet(t *testing.T) {
	d := &Descriptor{Name: "S", Kind: Set}
	err := d.Validate()
	require.Error(t, err)
}

func TestDescriptorValidateEmptyEnumRoot(t *testing.T) {
	d := &Descriptor{
		Name:   "WithEnum",
		Fields: []Field{{Name: "status", Kind: KindEnum, Enum: &EnumInfo{}}},
	}
	require.Error(t, d.Validate())
}

func TestDescriptorExtFields(t *testing.T) {
	d := &Descriptor{
		Name:       "Extended",
		IsExtended: true,
		ExtPos:     2,
		Fields: []Field{
			{Name: "a"},
			{Name: "b"},
			{Name: "c", IsExtension: true},
		},
	}
	ext := d.ExtFields()
	require.Len(t, ext, 1)
	require.Equal(t, "c", ext[0].Name)
}
