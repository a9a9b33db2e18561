package output

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStageAndCommit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.asm")

	w := NewWriter()
	if err := w.Stage(path, "org &4000\n"); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}

	// Before commit only the temporary exists
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("final file exists before Commit")
	}
	if _, err := os.Stat(path + ".tmp"); err != nil {
		t.Errorf("temporary missing before Commit: %v", err)
	}

	if err := w.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("final file missing: %v", err)
	}
	if string(data) != "org &4000\n" {
		t.Errorf("unexpected content: %q", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary left behind after Commit")
	}
}

func TestDiscardRemovesTemporaries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.asm")

	w := NewWriter()
	if err := w.Stage(path, "x"); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	w.Discard()

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary left behind after Discard")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("final file should not exist after Discard")
	}
}

func TestStageFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.asm")
	bad := filepath.Join(dir, "missing", "b.lst")

	w := NewWriter()
	if err := w.Stage(good, "x"); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if err := w.Stage(bad, "y"); err == nil {
		t.Fatal("expected an error staging into a missing directory")
	}

	// The earlier temporary is gone too
	if _, err := os.Stat(good + ".tmp"); !os.IsNotExist(err) {
		t.Error("first temporary left behind after a failed Stage")
	}
}

func TestMultipleFilesCommitTogether(t *testing.T) {
	dir := t.TempDir()

	w := NewWriter()
	for _, name := range []string{"p.asm", "p.lst", "p.map"} {
		if err := w.Stage(filepath.Join(dir, name), name); err != nil {
			t.Fatalf("Stage %s failed: %v", name, err)
		}
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	for _, name := range []string{"p.asm", "p.lst", "p.map"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing after Commit: %v", name, err)
		}
	}
}
