package parser

import (
	"bytes"
	"fmt"
	"strings"
)

// Source holds a normalized BASIC source file: BOM stripped, CR and CRLF
// line endings folded to LF, with a byte-offset line map for diagnostics.
type Source struct {
	Filename string
	Text     string

	lineOffsets []int // byte offset of the start of each line (1-based line n at index n-1)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewSource normalizes raw file bytes into a Source. The input must be
// 7-bit ASCII text; the first offending byte is reported with its offset.
func NewSource(filename string, data []byte) (*Source, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var sb strings.Builder
	sb.Grow(len(data))

	for i := 0; i < len(data); i++ {
		b := data[i]
		switch {
		case b == '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
			sb.WriteByte('\n')
		case b == '\n' || b == '\t':
			sb.WriteByte(b)
		case b < 0x20 && b != 0x1A: // allow a trailing SUB byte from CP/M tools
			return nil, fmt.Errorf("%s: invalid control byte 0x%02X at offset %d", filename, b, i)
		case b == 0x1A:
			// CP/M end-of-file marker terminates the source
			i = len(data)
		case b > 0x7F:
			return nil, fmt.Errorf("%s: non-ASCII byte 0x%02X at offset %d", filename, b, i)
		default:
			sb.WriteByte(b)
		}
	}

	src := &Source{
		Filename: filename,
		Text:     sb.String(),
	}
	src.buildLineMap()

	return src, nil
}

func (s *Source) buildLineMap() {
	s.lineOffsets = append(s.lineOffsets[:0], 0)
	for i := 0; i < len(s.Text); i++ {
		if s.Text[i] == '\n' {
			s.lineOffsets = append(s.lineOffsets, i+1)
		}
	}
}

// LineCount returns the number of source lines
func (s *Source) LineCount() int {
	return len(s.lineOffsets)
}

// LineOf maps a byte offset to its 1-based source line
func (s *Source) LineOf(offset int) int {
	line := 1
	for i, start := range s.lineOffsets {
		if start > offset {
			break
		}
		line = i + 1
	}
	return line
}

// Line returns the text of the 1-based source line n, without its newline
func (s *Source) Line(n int) string {
	if n < 1 || n > len(s.lineOffsets) {
		return ""
	}
	start := s.lineOffsets[n-1]
	end := strings.IndexByte(s.Text[start:], '\n')
	if end < 0 {
		return s.Text[start:]
	}
	return s.Text[start : start+end]
}
