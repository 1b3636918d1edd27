package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSeedsMissingFileWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	loader := NewFileLoader(path)

	cfg, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Policy.Mode != "strict" {
		t.Fatalf("default mode = %q", cfg.Policy.Mode)
	}
	if cfg.Execution.DefaultIsolation != "restricted" {
		t.Fatalf("default isolation = %q", cfg.Execution.DefaultIsolation)
	}
	if cfg.Audit.Backend != "sqlite" {
		t.Fatalf("default audit backend = %q", cfg.Audit.Backend)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("defaults were not written to disk: %v", err)
	}
}

func TestLoadHydratesPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := []byte("policy:\n  mode: permissive\nsession:\n  token_ttl_seconds: 15\n")
	if err := os.WriteFile(path, partial, 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	cfg, err := NewFileLoader(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Policy.Mode != "permissive" {
		t.Fatalf("explicit mode lost: %q", cfg.Policy.Mode)
	}
	if cfg.Session.TokenTTLSeconds != 15 {
		t.Fatalf("explicit ttl lost: %d", cfg.Session.TokenTTLSeconds)
	}
	if cfg.Session.ElevationTTLSeconds != 300 {
		t.Fatalf("elevation ttl not hydrated: %d", cfg.Session.ElevationTTLSeconds)
	}
	if cfg.Limits.High.TimeoutSeconds != 120 {
		t.Fatalf("high timeout not hydrated: %d", cfg.Limits.High.TimeoutSeconds)
	}
}

func TestLoadRespectsEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("policy:\n  mode: permissive\n"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Setenv("CMDGATE_CONFIG", path)

	loader := NewFileLoader("")
	if loader.Path() != path {
		t.Fatalf("Path() = %q, want %q", loader.Path(), path)
	}
	cfg, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Policy.Mode != "permissive" {
		t.Fatalf("env override not honored: %q", cfg.Policy.Mode)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("policy: [unclosed"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := NewFileLoader(path).Load(context.Background()); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
