package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gyeh/fhirfeatures/internal/config"
	"github.com/gyeh/fhirfeatures/internal/exitcode"
)

func TestLoadConfig_EnvAndFlags(t *testing.T) {
	t.Cleanup(func() { cfg = config.Config{}; configFile = "" })

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tables.yaml")
	if err := os.WriteFile(cfgPath, []byte("lab_codes:\n  - code: \"2093-3\"\n    label: Cholesterol\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("FHIRFEATURES_DSN", "postgresql://env@localhost/db")
	t.Setenv("FHIRFEATURES_WORKERS", "7")
	t.Setenv("FHIRFEATURES_BATCH_SIZE", "9")
	t.Setenv("FHIRFEATURES_CONFIG", cfgPath)

	if err := planCmd.ParseFlags([]string{"--source", dir, "--workers", "2"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if err := loadConfig(planCmd, nil); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Workers != 2 {
		t.Errorf("Workers: flag should win, got %d", cfg.Workers)
	}
	if cfg.BatchSize != 9 {
		t.Errorf("BatchSize: got %d, want 9 from env", cfg.BatchSize)
	}
	if cfg.DSN != "postgresql://env@localhost/db" {
		t.Errorf("DSN: got %q", cfg.DSN)
	}
	if cfg.SourceRoot != dir {
		t.Errorf("SourceRoot: got %q, want %q", cfg.SourceRoot, dir)
	}
	if label, ok := cfg.Tables().Labs.Label("2093-3"); !ok || label != "Cholesterol" {
		t.Errorf("config file not applied: (%q, %v)", label, ok)
	}
}

func TestPhaseExitCode(t *testing.T) {
	tests := map[string]int{
		"enumerate": exitcode.SourceError,
		"aggregate": exitcode.ProcessError,
		"sink":      exitcode.SinkError,
		"store":     exitcode.SinkError,
	}
	for phase, want := range tests {
		if got := phaseExitCode(phase); got != want {
			t.Errorf("%s: got %d, want %d", phase, got, want)
		}
	}
}
