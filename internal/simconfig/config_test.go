package simconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatchesSpecConstants(t *testing.T) {
	cfg := Default()
	if cfg.DtClamp != 0.2 {
		t.Fatalf("expected dt clamp 0.2, got %v", cfg.DtClamp)
	}
	if cfg.FollowingDistanceMin != 30 || cfg.FollowingDistanceMax != 60 {
		t.Fatalf("expected following distances 30/60, got %v/%v", cfg.FollowingDistanceMin, cfg.FollowingDistanceMax)
	}
	if cfg.BlockedSentinel != 100.0 {
		t.Fatalf("expected blocked sentinel 100.0, got %v", cfg.BlockedSentinel)
	}
}

func TestLoadOverlaysOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"seed": 42, "dt_clamp": 0.1}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 42 {
		t.Fatalf("expected overlaid seed 42, got %v", cfg.Seed)
	}
	if cfg.DtClamp != 0.1 {
		t.Fatalf("expected overlaid dt clamp 0.1, got %v", cfg.DtClamp)
	}
	// Untouched fields keep their defaults.
	if cfg.FollowingDistanceMin != 30 {
		t.Fatalf("expected default following distance min preserved, got %v", cfg.FollowingDistanceMin)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load("/nonexistent/config.json"); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
