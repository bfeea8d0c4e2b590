package executor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFileWithLines(t *testing.T, dir, name string, lines int) {
	t.Helper()
	content := strings.Repeat("line\n", lines)
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestMeasureFindsOversizedFiles(t *testing.T) {
	workspace := t.TempDir()
	writeFileWithLines(t, workspace, "small.go", 10)
	writeFileWithLines(t, workspace, "big.go", 50)
	writeFileWithLines(t, workspace, filepath.Join("pkg", "huge.go"), 80)

	m := NewMeasurer(40, nil)
	violations, err := m.Measure(workspace)
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}

	if len(violations) != 2 {
		t.Fatalf("violations = %v, want 2", violations)
	}
	for _, v := range violations {
		if v.Lines <= v.Limit {
			t.Errorf("violation %v under limit", v)
		}
	}
}

func TestMeasureCleanWorkspace(t *testing.T) {
	workspace := t.TempDir()
	writeFileWithLines(t, workspace, "a.go", 5)
	writeFileWithLines(t, workspace, "b.go", 40)

	m := NewMeasurer(40, nil)
	violations, err := m.Measure(workspace)
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("violations = %v, want none at exactly the threshold", violations)
	}
}

func TestMeasureSkipsInternalDirs(t *testing.T) {
	workspace := t.TempDir()
	writeFileWithLines(t, workspace, filepath.Join(".git", "objects.go"), 100)
	writeFileWithLines(t, workspace, filepath.Join(".foreman", "log.txt"), 100)
	writeFileWithLines(t, workspace, filepath.Join("vendor", "dep.go"), 100)

	m := NewMeasurer(10, nil)
	violations, err := m.Measure(workspace)
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("violations = %v, want internal dirs skipped", violations)
	}
}

func TestMeasureExtensionFilter(t *testing.T) {
	workspace := t.TempDir()
	writeFileWithLines(t, workspace, "main.go", 100)
	writeFileWithLines(t, workspace, "notes.md", 100)

	m := NewMeasurer(10, []string{".go"})
	violations, err := m.Measure(workspace)
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}

	if len(violations) != 1 {
		t.Fatalf("violations = %v, want only the .go file", violations)
	}
	if violations[0].Path != "main.go" {
		t.Errorf("Path = %q, want main.go", violations[0].Path)
	}
}
