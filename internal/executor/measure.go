package executor

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Violation records one artifact exceeding the structural size bound.
type Violation struct {
	Path  string // Path relative to the workspace root
	Lines int    // Measured line count
	Limit int    // Configured line limit
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %d lines (limit %d)", v.Path, v.Lines, v.Limit)
}

// Measurer measures artifact sizes for the structural split loop.
// Each measurement pass walks the whole workspace: the loop is a
// fixed-point iteration, so every artifact must satisfy the bound
// simultaneously before the pass is clean.
type Measurer struct {
	Threshold  int      // Maximum allowed lines per artifact
	Extensions []string // File extensions to measure; empty means all files
}

// Directories that never contain project artifacts.
var skippedDirs = map[string]bool{
	".git":         true,
	".foreman":     true,
	"node_modules": true,
	"vendor":       true,
}

// NewMeasurer creates a Measurer with the given line threshold.
func NewMeasurer(threshold int, extensions []string) *Measurer {
	return &Measurer{
		Threshold:  threshold,
		Extensions: extensions,
	}
}

// Measure walks the workspace and returns all artifacts over the line
// threshold, ordered by path. An empty result means the pass is clean.
func (m *Measurer) Measure(workspace string) ([]Violation, error) {
	var violations []Violation

	err := filepath.WalkDir(workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !m.shouldMeasure(d.Name()) {
			return nil
		}

		lines, err := countLines(path)
		if err != nil {
			return fmt.Errorf("measure %s: %w", path, err)
		}
		if lines > m.Threshold {
			rel, relErr := filepath.Rel(workspace, path)
			if relErr != nil {
				rel = path
			}
			violations = append(violations, Violation{
				Path:  rel,
				Lines: lines,
				Limit: m.Threshold,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("workspace measurement failed: %w", err)
	}

	return violations, nil
}

// shouldMeasure checks the file extension filter.
func (m *Measurer) shouldMeasure(name string) bool {
	if len(m.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range m.Extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// countLines counts newline-delimited lines in the file at path.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lines := 0
	for scanner.Scan() {
		lines++
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return lines, nil
}
