package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/foreman/internal/models"
)

func TestParseBasicSpec(t *testing.T) {
	content := `# Add retry endpoint

The API needs a POST /retry endpoint that re-queues failed jobs.

## Requirements

- Idempotent on duplicate calls
- Returns 202 when accepted
`
	spec, err := NewSpecParser().Parse(strings.NewReader(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if spec.Title != "Add retry endpoint" {
		t.Errorf("Title = %q, want first level-1 heading", spec.Title)
	}
	if !strings.Contains(spec.Description, "re-queues failed jobs") {
		t.Error("Description should carry the full body")
	}
	if len(spec.Phases) != 0 {
		t.Errorf("Phases = %v, want none without frontmatter", spec.Phases)
	}
	if err := spec.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestParseSpecWithFrontmatterPhases(t *testing.T) {
	content := `---
foreman:
  phases:
    - name: implement
      kind: single_shot
      hard_blocking: true
    - name: test
      kind: retry_loop
      max_iterations: 3
---
# Add retry endpoint

Body text.
`
	spec, err := NewSpecParser().Parse(strings.NewReader(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(spec.Phases) != 2 {
		t.Fatalf("Phases = %d, want 2", len(spec.Phases))
	}
	want := models.PhaseSpec{Name: "implement", Kind: models.KindSingleShot, HardBlocking: true}
	if spec.Phases[0] != want {
		t.Errorf("Phases[0] = %+v, want %+v", spec.Phases[0], want)
	}
	if strings.Contains(spec.Description, "foreman:") {
		t.Error("Description should not include frontmatter")
	}
	if spec.Title != "Add retry endpoint" {
		t.Errorf("Title = %q, want heading after frontmatter", spec.Title)
	}
}

func TestParseSpecWithoutHeading(t *testing.T) {
	spec, err := NewSpecParser().Parse(strings.NewReader("Just a plain description of the feature.\nMore detail.\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if spec.Title != "Just a plain description of the feature." {
		t.Errorf("Title = %q, want first non-empty line fallback", spec.Title)
	}
}

func TestParseEmptySpec(t *testing.T) {
	if _, err := NewSpecParser().Parse(strings.NewReader("   \n\n")); err == nil {
		t.Error("Parse() should fail on empty spec")
	}
}

func TestParseSpecInvalidFrontmatter(t *testing.T) {
	content := "---\nforeman: [broken\n---\n# Title\nbody\n"
	if _, err := NewSpecParser().Parse(strings.NewReader(content)); err == nil {
		t.Error("Parse() should fail on malformed frontmatter YAML")
	}
}

func TestValidateRejectsBadPhaseOverride(t *testing.T) {
	content := `---
foreman:
  phases:
    - name: test
      kind: retry_loop
      max_iterations: 0
---
# Title

body
`
	spec, err := NewSpecParser().Parse(strings.NewReader(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := spec.Validate(); err == nil {
		t.Error("Validate() should reject a zero-budget retry loop override")
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feature.md")
	if err := os.WriteFile(path, []byte("# Feature\n\nbody\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	spec, err := NewSpecParser().ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if spec.Title != "Feature" {
		t.Errorf("Title = %q, want Feature", spec.Title)
	}
}

func TestParseFileMissing(t *testing.T) {
	if _, err := NewSpecParser().ParseFile(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("ParseFile() should fail on missing file")
	}
}
