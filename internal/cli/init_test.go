package cli

import (
	"os"
	"path/filepath"
	"testing"

	"finanzas/internal/config"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "FINANZAS_TEST_FROM_FILE=file\nFINANZAS_TEST_PRESET=file\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FINANZAS_TEST_PRESET", "env")
	t.Setenv("FINANZAS_TEST_FROM_FILE", "")
	os.Unsetenv("FINANZAS_TEST_FROM_FILE")

	LoadEnvFile(path)

	if got := os.Getenv("FINANZAS_TEST_FROM_FILE"); got != "file" {
		t.Errorf("expected value from file, got %q", got)
	}
	if got := os.Getenv("FINANZAS_TEST_PRESET"); got != "env" {
		t.Errorf("environment should win over file, got %q", got)
	}

	// Missing files are ignored.
	LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"}, "worker")
	if logger.Component() != "worker" {
		t.Errorf("expected component worker, got %q", logger.Component())
	}
}
