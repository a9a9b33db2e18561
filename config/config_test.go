package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Build.Org != "&4000" {
		t.Errorf("Expected Org=&4000, got %s", cfg.Build.Org)
	}
	if cfg.Build.Listing {
		t.Error("Expected Listing=false")
	}
	if cfg.Build.Map {
		t.Error("Expected Map=false")
	}
	if !cfg.Inspector.ShowSymbols {
		t.Error("Expected ShowSymbols=true")
	}
}

func TestParseOrg(t *testing.T) {
	tests := []struct {
		input string
		want  uint16
		ok    bool
	}{
		{"&4000", 0x4000, true},
		{"0x8000", 0x8000, true},
		{"0X1234", 0x1234, true},
		{"16384", 16384, true},
		{" &C000 ", 0xC000, true},
		{"", 0, false},
		{"&", 0, false},
		{"zzz", 0, false},
		{"&12345", 0, false},
	}

	for _, tt := range tests {
		got, err := ParseOrg(tt.input)
		if tt.ok && err != nil {
			t.Errorf("%q: unexpected error: %v", tt.input, err)
			continue
		}
		if !tt.ok && err == nil {
			t.Errorf("%q: expected an error", tt.input)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("%q: expected %04X, got %04X", tt.input, tt.want, got)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()

	if path == "" {
		t.Error("GetConfigPath returned empty string")
	}
	if filepath.Base(path) != "config.toml" {
		t.Errorf("Expected path to end with config.toml, got %s", path)
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Build.Org != "&4000" {
		t.Errorf("expected defaults, got Org=%s", cfg.Build.Org)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Build.Org = "&8000"
	cfg.Build.Listing = true

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.Build.Org != "&8000" {
		t.Errorf("Expected Org=&8000, got %s", loaded.Build.Org)
	}
	if !loaded.Build.Listing {
		t.Error("Expected Listing=true after round trip")
	}
}

func TestLoadFromInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("not [valid toml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected an error for invalid TOML")
	}
}
