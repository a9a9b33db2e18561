package codegen

import (
	"math"
	"testing"
)

func TestEncodeRealKnownValues(t *testing.T) {
	tests := []struct {
		value float64
		want  [5]byte
	}{
		{0, [5]byte{0x00, 0x00, 0x00, 0x00, 0x00}},
		{1.0, [5]byte{0x00, 0x00, 0x00, 0x00, 0x81}},
		{1.5, [5]byte{0x00, 0x00, 0x00, 0x40, 0x81}},
		{-1.0, [5]byte{0x00, 0x00, 0x00, 0x80, 0x81}},
		{10.0, [5]byte{0x00, 0x00, 0x00, 0x20, 0x84}},
		{0.5, [5]byte{0x00, 0x00, 0x00, 0x00, 0x80}},
		{32767.0, [5]byte{0x00, 0x00, 0xFE, 0x7F, 0x8F}},
	}

	for _, tt := range tests {
		got, err := EncodeReal(tt.value)
		if err != nil {
			t.Errorf("%g: unexpected error: %v", tt.value, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%g: expected % 02X, got % 02X", tt.value, tt.want, got)
		}
	}
}

func TestEncodeRealRoundTrip(t *testing.T) {
	values := []float64{0, 1, -1, 0.1, 3.14159, 1234.5678, -0.0625, 100000}

	for _, v := range values {
		enc, err := EncodeReal(v)
		if err != nil {
			t.Errorf("%g: unexpected error: %v", v, err)
			continue
		}
		dec := DecodeReal(enc)
		if v == 0 {
			if dec != 0 {
				t.Errorf("0 did not round-trip: %g", dec)
			}
			continue
		}
		// 32-bit mantissa: about 9 decimal digits of precision
		if rel := math.Abs((dec - v) / v); rel > 1e-9 {
			t.Errorf("%g round-tripped to %g (relative error %g)", v, dec, rel)
		}
	}
}

func TestEncodeRealRange(t *testing.T) {
	if _, err := EncodeReal(1e39); err == nil {
		t.Error("expected an error for a magnitude beyond the exponent range")
	}
	// Underflow quietly becomes zero
	enc, err := EncodeReal(1e-39)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enc != [5]byte{} {
		t.Errorf("expected underflow to zero, got % 02X", enc)
	}
}

func TestRealConstInterning(t *testing.T) {
	result := compile(t, "10 A!=1.5\n20 B!=1.5\n30 C!=2.5")
	asm := result.Assembly

	// 1.5 is interned once
	if n := countOccurrences(asm, "real_0:"); n != 1 {
		t.Errorf("expected one real_0 definition, got %d", n)
	}
	if n := countOccurrences(asm, "real_1:"); n != 1 {
		t.Errorf("expected one real_1 definition, got %d", n)
	}
	if countOccurrences(asm, "real_2:") != 0 {
		t.Error("1.5 was not interned")
	}
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; ; {
		j := indexFrom(s, sub, i)
		if j < 0 {
			return count
		}
		count++
		i = j + len(sub)
	}
}

func indexFrom(s, sub string, from int) int {
	if from >= len(s) {
		return -1
	}
	for i := from; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
