// SPDX-License-Identifier: MPL-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ProbeTimeoutSeconds != 15 {
		t.Errorf("ProbeTimeoutSeconds = %d, want 15", cfg.ProbeTimeoutSeconds)
	}
	if cfg.UI.Verbose {
		t.Error("UI.Verbose defaults to true")
	}
}

func TestLoad_CUEFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.cue")
	content := `
cache_dir: "/tmp/pd-cache"
probe_timeout_seconds: 30
try_first_with: ["/opt/py/bin"]
ui: verbose: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.CacheDir != "/tmp/pd-cache" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.ProbeTimeoutSeconds != 30 {
		t.Errorf("ProbeTimeoutSeconds = %d", cfg.ProbeTimeoutSeconds)
	}
	if len(cfg.TryFirstWith) != 1 || cfg.TryFirstWith[0] != "/opt/py/bin" {
		t.Errorf("TryFirstWith = %v", cfg.TryFirstWith)
	}
	if !cfg.UI.Verbose {
		t.Error("UI.Verbose = false")
	}
}

func TestLoad_SchemaViolation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.cue")
	if err := os.WriteFile(path, []byte(`probe_timeout_seconds: "soon"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("schema-violating config loaded without error")
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.cue")); err == nil {
		t.Error("missing explicit config file did not error")
	}
}

func TestLoad_InvalidSyntax(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.cue")
	if err := os.WriteFile(path, []byte(`cache_dir: [unterminated`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("syntactically broken config loaded without error")
	}
}
