package config

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	want := &Config{LogLevel: "info", Backup: true, Workers: 4}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
	if n := len(cfg.ReadOptions()); n != 0 {
		t.Errorf("default config enables %d read options", n)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SGB_LOG_LEVEL", "debug")
	t.Setenv("SGB_VERIFY_CHECKSUM", "true")
	t.Setenv("SGB_TRIM_V16", "1")
	t.Setenv("SGB_BACKUP", "false")
	t.Setenv("SGB_BACKUP_DIR", "/tmp/sgb-backups")
	t.Setenv("SGB_WORKERS", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	want := &Config{
		LogLevel:       "debug",
		VerifyChecksum: true,
		TrimV16:        true,
		Backup:         false,
		BackupDir:      "/tmp/sgb-backups",
		Workers:        8,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
	if n := len(cfg.ReadOptions()); n != 2 {
		t.Errorf("ReadOptions returned %d options, want 2", n)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad int", "SGB_WORKERS", "many"},
		{"zero workers", "SGB_WORKERS", "0"},
		{"bad bool", "SGB_BACKUP", "sometimes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "parse env:") {
				t.Fatalf("expected parse env prefix, got %v", err)
			}
		})
	}
}
