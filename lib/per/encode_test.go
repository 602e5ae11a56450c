package per

import (
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
)

// dref dereferences a pointer and returns its string representation.
// If the pointer is nil, returns "NIL".
func dref[T any](ptr *T) string {
	if ptr == nil {
		return "NIL"
	}
	return fmt.Sprintf("%v", *ptr)
}

func ptr[T any](v T) *T { return &v }

func TestWriteBool(t *testing.T) {
	tests := []struct {
		input   bool
		aligned bool
		output  string
	}{
		{true, true, "80"},
		{false, true, "00"},
		{true, false, "80"},
		{false, false, "00"},
	}

	for _, tc := range tests {
		name := strings.ToUpper(fmt.Sprintf("BOOL_VALUE_%v_ALIGNED_%v", tc.input, tc.aligned))
		t.Run(name, func(t *testing.T) {
			expected, err := hex.DecodeString(tc.output)
			if err != nil {
				t.Fatalf("failed to decode expected output hex: %v", err)
			}

			encoder := NewEncoder(tc.aligned)
			if err := encoder.EncodeBoolean(tc.input); err != nil {
				t.Fatalf("EncodeBoolean() error = %v", err)
			}

			result := encoder.Bytes()
			if len(result) != len(expected) {
				t.Fatalf("EncodeBoolean() returned %d bytes, expected %d", len(result), len(expected))
			}
			for i := range result {
				if result[i] != expected[i] {
					t.Errorf("EncodeBoolean() at position %d = %02x, expected %02x", i, result[i], expected[i])
				}
			}
		})
	}
}

// INT is a single integer encoding test case: a value constrained to
// [lb, ub] (either bound possibly unset), the extensibility flag, and the
// hand-verified expected APER/UPER output.
type INT struct {
	value      int64
	lb         *int64
	ub         *int64
	extensible *bool
	output     string
	aligned    bool
}

func TestWriteInteger(t *testing.T) {
	tests := []INT{
		// range 11 (0..10), value 5: fits in 4 bits regardless of variant.
		{value: 5, lb: ptr(int64(0)), ub: ptr(int64(10)), output: "50", aligned: true},
		{value: 5, lb: ptr(int64(0)), ub: ptr(int64(10)), output: "50", aligned: false},
		// range 256 (0..255), value 0: one-octet case, octet-aligned.
		{value: 0, lb: ptr(int64(0)), ub: ptr(int64(255)), output: "00", aligned: true},
		// range 256, value 255.
		{value: 255, lb: ptr(int64(0)), ub: ptr(int64(255)), output: "ff", aligned: true},
		// fixed value (lb == ub): no bits at all.
		{value: 7, lb: ptr(int64(7)), ub: ptr(int64(7)), output: "", aligned: true},
	}

	for _, tc := range tests {
		name := strings.ToUpper(fmt.Sprintf("INTEGER_VALUE_%d_LB_%s_UB_%s_ALIGNED_%v_EXTENSIBLE_%s",
			tc.value, dref(tc.lb), dref(tc.ub), tc.aligned, dref(tc.extensible)))
		t.Run(name, func(t *testing.T) {
			expected, err := hex.DecodeString(tc.output)
			if err != nil {
				t.Fatalf("failed to decode expected output hex: %v", err)
			}

			encoder := NewEncoder(tc.aligned)
			extensible := false
			if tc.extensible != nil {
				extensible = *tc.extensible
			}

			if err := encoder.EncodeInteger(tc.value, tc.lb, tc.ub, extensible); err != nil {
				t.Fatalf("EncodeInteger() error = %v", err)
			}

			result := encoder.Bytes()
			if len(result) != len(expected) {
				t.Fatalf("EncodeInteger() returned %d bytes (%x), expected %d (%x)",
					len(result), result, len(expected), expected)
			}
			for i := range result {
				if result[i] != expected[i] {
					t.Errorf("EncodeInteger() at position %d = %02x, expected %02x", i, result[i], expected[i])
				}
			}
		})
	}
}

// TestWriteUnsignedIntegerGuardOctet checks the 9-octet guarded form an
// unconstrained uint64 value past math.MaxInt64 must take: a length octet
// of 9, then a leading all-zero guard octet, then the 8-octet big-endian
// value.
func TestWriteUnsignedIntegerGuardOctet(t *testing.T) {
	tests := []struct {
		value  uint64
		output string
	}{
		{value: 0, output: "0100"},
		{value: 1<<63 - 1, output: "087fffffffffffffff"},
		{value: 1 << 63, output: "09008000000000000000"},
		{value: 1<<64 - 1, output: "0900ffffffffffffffff"},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("VALUE_%d", tc.value), func(t *testing.T) {
			expected, err := hex.DecodeString(tc.output)
			if err != nil {
				t.Fatalf("failed to decode expected output hex: %v", err)
			}

			encoder := NewEncoder(true)
			if err := encoder.EncodeUnsignedInteger(tc.value, nil, nil, false); err != nil {
				t.Fatalf("EncodeUnsignedInteger() error = %v", err)
			}

			result := encoder.Bytes()
			if len(result) != len(expected) {
				t.Fatalf("EncodeUnsignedInteger() returned %d bytes (%x), expected %d (%x)",
					len(result), result, len(expected), expected)
			}
			for i := range result {
				if result[i] != expected[i] {
					t.Errorf("EncodeUnsignedInteger() at position %d = %02x, expected %02x", i, result[i], expected[i])
				}
			}
		})
	}
}
