package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/foreman/internal/report"
)

func TestValidateGoodSpec(t *testing.T) {
	dir := t.TempDir()
	spec := writeSpecFile(t, dir, "# Rate limiter\n\nAdd a token bucket rate limiter.\n")

	out, err := runRootCommand(t, "validate", "--workspace", dir, spec)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "Rate limiter") {
		t.Errorf("output missing spec title:\n%s", out)
	}
	if !strings.Contains(out, "defaults") {
		t.Errorf("output should name the phase source:\n%s", out)
	}
	if !strings.Contains(out, "OK") {
		t.Errorf("output missing OK marker:\n%s", out)
	}
}

func TestValidateUsesConfigPhases(t *testing.T) {
	dir := t.TempDir()
	spec := writeSpecFile(t, dir, "# Feature\n\nBody.\n")

	configDir := filepath.Join(dir, ".foreman")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	configYAML := `phases:
  - name: test
    kind: retry_loop
    max_iterations: 4
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runRootCommand(t, "validate", "--workspace", dir, spec)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "config") {
		t.Errorf("output should name config as the phase source:\n%s", out)
	}
	if !strings.Contains(out, "budget 4") {
		t.Errorf("output missing config phase budget:\n%s", out)
	}
}

func TestValidateEmptySpecIsConfigError(t *testing.T) {
	dir := t.TempDir()
	spec := writeSpecFile(t, dir, "   \n")

	_, err := runRootCommand(t, "validate", "--workspace", dir, spec)
	var exitErr *ExitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitCodeError, got %T: %v", err, err)
	}
	if exitErr.Code != report.ExitConfig {
		t.Errorf("Code = %d, want %d", exitErr.Code, report.ExitConfig)
	}
}

func TestValidateBadConfigIsConfigError(t *testing.T) {
	dir := t.TempDir()
	spec := writeSpecFile(t, dir, "# Feature\n\nBody.\n")

	configDir := filepath.Join(dir, ".foreman")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("timeout: [\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := runRootCommand(t, "validate", "--workspace", dir, spec)
	var exitErr *ExitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitCodeError, got %T: %v", err, err)
	}
	if exitErr.Code != report.ExitConfig {
		t.Errorf("Code = %d, want %d", exitErr.Code, report.ExitConfig)
	}
}

func TestHistoryDisabledByDefault(t *testing.T) {
	dir := t.TempDir()

	_, err := runRootCommand(t, "history", "--workspace", dir)
	var exitErr *ExitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitCodeError, got %T: %v", err, err)
	}
	if exitErr.Code != report.ExitConfig {
		t.Errorf("Code = %d, want %d", exitErr.Code, report.ExitConfig)
	}
	if !strings.Contains(err.Error(), "history is not enabled") {
		t.Errorf("error should explain history is disabled: %v", err)
	}
}
