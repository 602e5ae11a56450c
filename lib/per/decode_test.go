package per

import (
	"bytes"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
)

func TestReadBool(t *testing.T) {
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
			encoded, err := hex.DecodeString(tc.output)
			if err != nil {
				t.Fatalf("failed to decode hex string: %v", err)
			}

			decoder := NewDecoder(encoded, tc.aligned)
			result, err := decoder.DecodeBoolean()
			if err != nil {
				t.Fatalf("DecodeBoolean() error = %v", err)
			}
			if result != tc.input {
				t.Errorf("DecodeBoolean() = %v, expected %v", result, tc.input)
			}
		})
	}
}

func TestReadInteger(t *testing.T) {
	tests := []INT{
		{value: 5, lb: ptr(int64(0)), ub: ptr(int64(10)), output: "50", aligned: true},
		{value: 5, lb: ptr(int64(0)), ub: ptr(int64(10)), output: "50", aligned: false},
		{value: 0, lb: ptr(int64(0)), ub: ptr(int64(255)), output: "00", aligned: true},
		{value: 255, lb: ptr(int64(0)), ub: ptr(int64(255)), output: "ff", aligned: true},
		{value: 7, lb: ptr(int64(7)), ub: ptr(int64(7)), output: "", aligned: true},
	}

	for _, tc := range tests {
		name := strings.ToUpper(fmt.Sprintf("INTEGER_VALUE_%d_LB_%s_UB_%s_ALIGNED_%v_EXTENSIBLE_%s",
			tc.value, dref(tc.lb), dref(tc.ub), tc.aligned, dref(tc.extensible)))
		t.Run(name, func(t *testing.T) {
			encoded, err := hex.DecodeString(tc.output)
			if err != nil {
				t.Fatalf("failed to decode hex string: %v", err)
			}

			decoder := NewDecoder(encoded, tc.aligned)
			extensible := false
			if tc.extensible != nil {
				extensible = *tc.extensible
			}

			result, err := decoder.DecodeInteger(tc.lb, tc.ub, extensible)
			if err != nil {
				t.Fatalf("DecodeInteger() error = %v", err)
			}
			if result != tc.value {
				t.Errorf("DecodeInteger() = %d, expected %d", result, tc.value)
			}
		})
	}
}

// TestRoundTripInteger exercises every constraint shape (fixed, constrained,
// semi-constrained, unconstrained, extensible escape) across both variants.
func TestRoundTripInteger(t *testing.T) {
	type constraint struct {
		name       string
		lb, ub     *int64
		extensible bool
	}
	constraints := []constraint{
		{"fixed", ptr(int64(10)), ptr(int64(10)), false},
		{"small-range", ptr(int64(0)), ptr(int64(10)), false},
		{"byte-range", ptr(int64(0)), ptr(int64(255)), false},
		{"two-octet-range", ptr(int64(0)), ptr(int64(65535)), false},
		{"large-range", ptr(int64(0)), ptr(int64(1 << 40)), false},
		{"semi-constrained", ptr(int64(-100)), nil, false},
		{"unconstrained", nil, nil, false},
		{"extensible-in-root", ptr(int64(0)), ptr(int64(10)), true},
		{"extensible-escape", ptr(int64(0)), ptr(int64(10)), true},
	}
	values := map[string][]int64{
		"fixed":              {10},
		"small-range":        {0, 5, 10},
		"byte-range":         {0, 128, 255},
		"two-octet-range":    {0, 256, 65535},
		"large-range":        {0, 1 << 20, 1 << 40},
		"semi-constrained":   {-100, 0, 12345},
		"unconstrained":      {-123456, 0, 123456},
		"extensible-in-root": {3, 7},
		"extensible-escape":  {1000, -50},
	}

	for _, aligned := range []bool{true, false} {
		for _, c := range constraints {
			for _, v := range values[c.name] {
				name := fmt.Sprintf("%s/value=%d/aligned=%v", c.name, v, aligned)
				t.Run(name, func(t *testing.T) {
					encoder := NewEncoder(aligned)
					if err := encoder.EncodeInteger(v, c.lb, c.ub, c.extensible); err != nil {
						t.Fatalf("EncodeInteger() error = %v", err)
					}
					decoder := NewDecoder(encoder.Bytes(), aligned)
					got, err := decoder.DecodeInteger(c.lb, c.ub, c.extensible)
					if err != nil {
						t.Fatalf("DecodeInteger() error = %v", err)
					}
					if got != v {
						t.Errorf("round trip: got %d, want %d", got, v)
					}
				})
			}
		}
	}
}

// TestReadUnsignedIntegerGuardOctet mirrors
// TestWriteUnsignedIntegerGuardOctet on the decode side: a 9-octet
// unconstrained payload (the guarded leading-zero form) must decode back
// to the original value, including past math.MaxInt64 where a signed
// unconstrained decode would have misread it as negative.
func TestReadUnsignedIntegerGuardOctet(t *testing.T) {
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
			encoded, err := hex.DecodeString(tc.output)
			if err != nil {
				t.Fatalf("failed to decode hex string: %v", err)
			}

			decoder := NewDecoder(encoded, true)
			result, err := decoder.DecodeUnsignedInteger(nil, nil, false)
			if err != nil {
				t.Fatalf("DecodeUnsignedInteger() error = %v", err)
			}
			if result != tc.value {
				t.Errorf("DecodeUnsignedInteger() = %d, expected %d", result, tc.value)
			}
		})
	}
}

// TestFragmentedOctetStringWireFormat checks the exact preamble bytes for
// a length that is a multiple of 16K (98304 = 64K + 32K): a 64K fragment
// marker, the 64K payload, a 32K fragment marker, the 32K payload, and a
// required zero-length terminator, per the fragmentation rules of 11.9.3.8.
func TestFragmentedOctetStringWireFormat(t *testing.T) {
	value := bytes.Repeat([]byte{0xAB}, 98304)

	encoder := NewEncoder(true)
	if err := encoder.EncodeOctetString(value, nil, nil, false); err != nil {
		t.Fatalf("EncodeOctetString() error = %v", err)
	}
	out := encoder.Bytes()

	if out[0] != 0xC4 {
		t.Fatalf("first fragment marker = %02x, want C4", out[0])
	}
	if out[1+65536] != 0xC2 {
		t.Fatalf("second fragment marker = %02x, want C2", out[1+65536])
	}
	terminatorPos := 1 + 65536 + 1 + 32768
	if out[terminatorPos] != 0x00 {
		t.Fatalf("terminator at %d = %02x, want 00", terminatorPos, out[terminatorPos])
	}
	if len(out) != terminatorPos+1 {
		t.Fatalf("total length = %d, want %d", len(out), terminatorPos+1)
	}

	decoder := NewDecoder(out, true)
	got, err := decoder.DecodeOctetString(nil, nil, false)
	if err != nil {
		t.Fatalf("DecodeOctetString() error = %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Errorf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(value))
	}
}

func TestRoundTripOctetString(t *testing.T) {
	cases := []struct {
		name       string
		lb, ub     *uint64
		extensible bool
		value      []byte
	}{
		{"unconstrained-empty", nil, nil, false, []byte{}},
		{"unconstrained-short", nil, nil, false, []byte("hello")},
		{"fixed-two", ptr(uint64(2)), ptr(uint64(2)), false, []byte{0xAB, 0xCD}},
		{"fixed-ten", ptr(uint64(10)), ptr(uint64(10)), false, bytes.Repeat([]byte{0x7}, 10)},
		{"variable", ptr(uint64(0)), ptr(uint64(20)), false, []byte("variable!!")},
		{"large-fragmented", nil, nil, false, bytes.Repeat([]byte{0x5A}, 70000)},
		{"exact-16k-multiple", nil, nil, false, bytes.Repeat([]byte{0x3C}, 32768)},
		{"exact-one-fragment", nil, nil, false, bytes.Repeat([]byte{0x7E}, 16384)},
		{"extensible-escape", ptr(uint64(0)), ptr(uint64(4)), true, []byte("this is longer than four")},
	}

	for _, aligned := range []bool{true, false} {
		for _, c := range cases {
			t.Run(fmt.Sprintf("%s/aligned=%v", c.name, aligned), func(t *testing.T) {
				encoder := NewEncoder(aligned)
				if err := encoder.EncodeOctetString(c.value, c.lb, c.ub, c.extensible); err != nil {
					t.Fatalf("EncodeOctetString() error = %v", err)
				}
				decoder := NewDecoder(encoder.Bytes(), aligned)
				got, err := decoder.DecodeOctetString(c.lb, c.ub, c.extensible)
				if err != nil {
					t.Fatalf("DecodeOctetString() error = %v", err)
				}
				if !bytes.Equal(got, c.value) {
					t.Errorf("round trip: got %x (%d bytes), want %x (%d bytes)",
						got, len(got), c.value, len(c.value))
				}
			})
		}
	}
}

func TestRoundTripBitString(t *testing.T) {
	cases := []struct {
		name   string
		lb, ub *uint64
		value  asn1.BitString
	}{
		{"fixed-small", ptr(uint64(12)), ptr(uint64(12)), asn1.BitString{Bytes: []byte{0xAB, 0xC0}, BitLength: 12}},
		{"fixed-large", ptr(uint64(100)), ptr(uint64(100)), asn1.BitString{Bytes: append(bytes.Repeat([]byte{0x55}, 12), 0x50), BitLength: 100}},
		{"variable", ptr(uint64(0)), ptr(uint64(32)), asn1.BitString{Bytes: []byte{0x01, 0x02, 0x03, 0x04}, BitLength: 32}},
		{"unconstrained", nil, nil, asn1.BitString{Bytes: []byte{0xFF, 0xF0}, BitLength: 12}},
	}

	for _, aligned := range []bool{true, false} {
		for _, c := range cases {
			t.Run(fmt.Sprintf("%s/aligned=%v", c.name, aligned), func(t *testing.T) {
				encoder := NewEncoder(aligned)
				if err := encoder.EncodeBitString(&c.value, c.lb, c.ub, false); err != nil {
					t.Fatalf("EncodeBitString() error = %v", err)
				}
				decoder := NewDecoder(encoder.Bytes(), aligned)
				got, err := decoder.DecodeBitString(c.lb, c.ub, false)
				if err != nil {
					t.Fatalf("DecodeBitString() error = %v", err)
				}
				if got.BitLength != c.value.BitLength {
					t.Fatalf("bit length: got %d, want %d", got.BitLength, c.value.BitLength)
				}
				nbytes := (got.BitLength + 7) / 8
				if !bytes.Equal(got.Bytes[:nbytes], c.value.Bytes[:nbytes]) {
					t.Errorf("round trip: got %x, want %x", got.Bytes, c.value.Bytes)
				}
			})
		}
	}
}

func TestRoundTripEnumerated(t *testing.T) {
	for _, aligned := range []bool{true, false} {
		for _, extensible := range []bool{true, false} {
			for _, value := range []uint64{0, 1, 4} {
				t.Run(fmt.Sprintf("value=%d/aligned=%v/extensible=%v", value, aligned, extensible), func(t *testing.T) {
					encoder := NewEncoder(aligned)
					if err := encoder.EncodeEnumerated(value, 5, extensible); err != nil {
						t.Fatalf("EncodeEnumerated() error = %v", err)
					}
					decoder := NewDecoder(encoder.Bytes(), aligned)
					got, err := decoder.DecodeEnumerated(5, extensible)
					if err != nil {
						t.Fatalf("DecodeEnumerated() error = %v", err)
					}
					if got != value {
						t.Errorf("round trip: got %d, want %d", got, value)
					}
				})
			}
		}
	}
}

func TestRoundTripNumericString(t *testing.T) {
	for _, aligned := range []bool{true, false} {
		for _, extensible := range []bool{true, false} {
			value := "0123456789 12"
			t.Run(fmt.Sprintf("aligned=%v/extensible=%v", aligned, extensible), func(t *testing.T) {
				encoder := NewEncoder(aligned)
				lb, ub := uint64(0), uint64(20)
				if err := encoder.EncodeNumericString(value, &lb, &ub, extensible); err != nil {
					t.Fatalf("EncodeNumericString() error = %v", err)
				}
				decoder := NewDecoder(encoder.Bytes(), aligned)
				got, err := decoder.DecodeNumericString(&lb, &ub, extensible)
				if err != nil {
					t.Fatalf("DecodeNumericString() error = %v", err)
				}
				if got != value {
					t.Errorf("round trip: got %q, want %q", got, value)
				}
			})
		}
	}
}

func TestRoundTripReal(t *testing.T) {
	values := []float64{0.0, 1.0, -1.0, 3.5, -100.25, 1e10, 1e-10}
	for _, aligned := range []bool{true, false} {
		for _, v := range values {
			t.Run(fmt.Sprintf("value=%v/aligned=%v", v, aligned), func(t *testing.T) {
				encoder := NewEncoder(aligned)
				if err := encoder.EncodeReal(v); err != nil {
					t.Fatalf("EncodeReal() error = %v", err)
				}
				decoder := NewDecoder(encoder.Bytes(), aligned)
				got, err := decoder.DecodeReal()
				if err != nil {
					t.Fatalf("DecodeReal() error = %v", err)
				}
				if got != v {
					t.Errorf("round trip: got %v, want %v", got, v)
				}
			})
		}
	}
}

func TestRoundTripObjectIdentifier(t *testing.T) {
	oids := []asn1.ObjectIdentifier{
		{1, 2, 840, 113549},
		{2, 100, 3},
		{0, 0},
	}
	for _, aligned := range []bool{true, false} {
		for _, oid := range oids {
			t.Run(fmt.Sprintf("oid=%v/aligned=%v", oid, aligned), func(t *testing.T) {
				encoder := NewEncoder(aligned)
				if err := encoder.EncodeObjectIdentifier(oid); err != nil {
					t.Fatalf("EncodeObjectIdentifier() error = %v", err)
				}
				decoder := NewDecoder(encoder.Bytes(), aligned)
				got, err := decoder.DecodeObjectIdentifier()
				if err != nil {
					t.Fatalf("DecodeObjectIdentifier() error = %v", err)
				}
				if !got.Equal(oid) {
					t.Errorf("round trip: got %v, want %v", got, oid)
				}
			})
		}
	}
}
