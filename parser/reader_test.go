package parser

import (
	"strings"
	"testing"
)

func TestSourceNormalizesLineEndings(t *testing.T) {
	src, err := NewSource("t.bas", []byte("10 END\r\n20 END\r30 END\n"))
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	if src.Text != "10 END\n20 END\n30 END\n" {
		t.Errorf("unexpected normalization: %q", src.Text)
	}
}

func TestSourceStripsBOM(t *testing.T) {
	src, err := NewSource("t.bas", []byte("\xEF\xBB\xBF10 END"))
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	if !strings.HasPrefix(src.Text, "10") {
		t.Errorf("BOM not stripped: %q", src.Text)
	}
}

func TestSourceRejectsNonASCII(t *testing.T) {
	_, err := NewSource("t.bas", []byte("10 PRINT \"caf\xC3\xA9\""))
	if err == nil {
		t.Fatal("expected an encoding error")
	}
	if !strings.Contains(err.Error(), "offset") {
		t.Errorf("error should carry the file offset: %v", err)
	}
}

func TestSourceLineLookup(t *testing.T) {
	src, err := NewSource("t.bas", []byte("10 CLS\n20 PRINT\n30 END"))
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}

	if n := src.LineCount(); n != 3 {
		t.Errorf("expected 3 lines, got %d", n)
	}
	if line := src.Line(2); line != "20 PRINT" {
		t.Errorf("expected line 2 text, got %q", line)
	}
	if line := src.LineOf(8); line != 2 {
		t.Errorf("expected offset 8 on line 2, got %d", line)
	}
}
