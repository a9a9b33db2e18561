package codegen

import (
	"fmt"
	"math"
	"strings"

	"github.com/fragarco/basc/parser"
)

// EncodeReal packs a value into the 5-byte Microsoft Binary Format used
// by Locomotive BASIC: four mantissa bytes little-endian with the top
// bit of the most significant byte replaced by the sign (the leading 1
// is implicit), followed by one exponent byte biased by 128. Zero is
// five zero bytes. Magnitudes too large for the exponent byte return an
// error; magnitudes too small for it encode as zero without an error.
func EncodeReal(value float64) ([5]byte, error) {
	var out [5]byte

	if value == 0 {
		return out, nil
	}

	sign := byte(0)
	if value < 0 {
		sign = 0x80
		value = -value
	}

	// Normalize the mantissa into [0.5, 1)
	frac, exp := math.Frexp(value)

	if exp > 127 {
		return out, fmt.Errorf("real constant magnitude too large")
	}
	if exp < -127 {
		// Underflows to zero
		return out, nil
	}

	var mant uint32
	if scaled := math.Round(frac * 4294967296.0); scaled >= 4294967296.0 { // 2^32
		// Rounding carried past the top bit
		mant = 0x80000000
		exp++
		if exp > 127 {
			return out, fmt.Errorf("real constant magnitude too large")
		}
	} else {
		mant = uint32(scaled)
	}

	out[0] = byte(mant)
	out[1] = byte(mant >> 8)
	out[2] = byte(mant >> 16)
	out[3] = byte(mant>>24)&0x7F | sign
	out[4] = byte(128 + exp)

	return out, nil
}

// DecodeReal unpacks a 5-byte Microsoft Binary Format value. It is the
// inverse of EncodeReal and exists for tests and the inspector.
func DecodeReal(b [5]byte) float64 {
	if b[4] == 0 {
		return 0
	}

	mant := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | (uint32(b[3])|0x80)<<24
	exp := int(b[4]) - 128

	value := math.Ldexp(float64(mant)/4294967296.0, exp)
	if b[3]&0x80 != 0 {
		value = -value
	}
	return value
}

// dbString renders text as a db directive operand list, NUL terminated
func dbString(text string) string {
	if text == "" {
		return "0"
	}
	return fmt.Sprintf("%q,0", text)
}

// dataArea emits every live reservation: variables in first-reference
// order, scratch temporaries, routine-owned buffers, interned literals
// and the DATA records.
func (g *Generator) dataArea() string {
	var sb strings.Builder

	for _, v := range g.symbols.Variables() {
		if !v.Referenced {
			continue
		}
		switch {
		case v.IsArray:
			fmt.Fprintf(&sb, "%s:\tdefs %d\t\t; %s array(0..%d)\n", v.Label, g.varSize(v), v.Name, v.Bound)
		case v.Type == parser.TypeInteger:
			fmt.Fprintf(&sb, "%s:\tdw 0\t\t; %s\n", v.Label, v.Name)
		case v.Type == parser.TypeReal:
			fmt.Fprintf(&sb, "%s:\tdefs 5\t\t; %s\n", v.Label, v.Name)
		case v.Type == parser.TypeString:
			fmt.Fprintf(&sb, "%s:\tdefs 256\t; %s\n", v.Label, v.Name)
		}
	}

	for _, tmp := range g.temps {
		fmt.Fprintf(&sb, "%s:\tdefs %d\n", tmp.name, tmp.size)
	}

	// Buffers owned by referenced library routines; several routines
	// share a workspace, so names are deduplicated
	seen := make(map[string]bool)
	for _, name := range g.closure() {
		for _, buf := range routines[name].Buffers {
			if seen[buf.Name] {
				continue
			}
			seen[buf.Name] = true
			fmt.Fprintf(&sb, "%s:\tdefs %d\t\t; %s\n", buf.Name, buf.Size, name)
		}
	}

	for i, text := range g.strOrder {
		fmt.Fprintf(&sb, "str_%d:\tdb %s\n", i, dbString(text))
	}

	for _, rc := range g.reals {
		enc, err := EncodeReal(rc.value)
		if err != nil {
			// Range-checked when the literal was lowered
			enc = [5]byte{}
		}
		fmt.Fprintf(&sb, "%s:\tdb &%02X,&%02X,&%02X,&%02X,&%02X\t; %g\n",
			rc.label, enc[0], enc[1], enc[2], enc[3], enc[4], rc.value)
	}

	if len(g.dataRecords) > 0 || g.used["datalib_read"] {
		sb.WriteString("__data_area:\n")
		lastLine := uint16(0)
		haveLine := false
		for _, rec := range g.dataRecords {
			if !haveLine || rec.line != lastLine {
				fmt.Fprintf(&sb, "__data_line_%d:\n", rec.line)
				lastLine = rec.line
				haveLine = true
			}
			fmt.Fprintf(&sb, "\tdb %s\n", dbString(rec.text))
		}
		sb.WriteString("__data_end:\n")
		sb.WriteString("\tdb &FF,0\n")
	}

	if g.symTableLen > 0 {
		fmt.Fprintf(&sb, "symbol_table:\tdefs %d\n", g.symTableLen)
	}

	return sb.String()
}

// dataLineLabel resolves a RESTORE target to the first DATA record at or
// after the given line, or the end sentinel when none follows
func (g *Generator) dataLineLabel(line uint16) string {
	for _, rec := range g.dataRecords {
		if rec.line >= line {
			return fmt.Sprintf("__data_line_%d", rec.line)
		}
	}
	return "__data_end"
}
