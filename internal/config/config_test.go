package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	// Test loading config (will use defaults if file doesn't exist)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg == nil {
		t.Fatal("expected config, got nil")
	}

	// Verify defaults are set
	if cfg.Logging.Level == "" {
		t.Error("expected default log level, got empty")
	}

	if cfg.Paths.DataDir == "" {
		t.Error("expected default data_dir, got empty")
	}

	if !strings.HasSuffix(cfg.Paths.CacheFile, "reports.db") {
		t.Errorf("expected default cache_file, got %q", cfg.Paths.CacheFile)
	}

	if cfg.Analysis.MsiArchitecture == "" {
		t.Error("expected default msi_architecture, got empty")
	}

	if cfg.HTTP.TimeoutSeconds <= 0 {
		t.Errorf("expected positive http timeout, got %d", cfg.HTTP.TimeoutSeconds)
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, _ := os.UserHomeDir()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty path",
			input: "",
			want:  "",
		},
		{
			name:  "absolute path",
			input: "/usr/local/bin",
			want:  "/usr/local/bin",
		},
		{
			name:  "home expansion",
			input: "~/test",
			want:  filepath.Join(homeDir, "test"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandPath(tt.input)
			if got != tt.want {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
