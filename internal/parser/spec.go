// Package parser reads the feature spec Markdown file a run is started
// from. The spec carries a title, free-form requirement prose, and an
// optional YAML frontmatter block overriding run configuration.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/harrison/foreman/internal/models"
)

// FeatureSpec is the parsed feature spec file.
type FeatureSpec struct {
	Title       string             // First level-1 heading
	Description string             // Full requirement body, frontmatter stripped
	Phases      []models.PhaseSpec // Phase overrides from frontmatter (optional)
}

// foremanConfig represents the optional foreman configuration in frontmatter
type foremanConfig struct {
	Foreman *foremanYAML `yaml:"foreman"`
}

type foremanYAML struct {
	Phases []models.PhaseSpec `yaml:"phases"`
}

type SpecParser struct {
	markdown goldmark.Markdown
}

func NewSpecParser() *SpecParser {
	return &SpecParser{
		markdown: goldmark.New(),
	}
}

// ParseFile parses the feature spec at path.
func (p *SpecParser) ParseFile(path string) (*FeatureSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spec file: %w", err)
	}
	defer f.Close()

	return p.Parse(f)
}

func (p *SpecParser) Parse(r io.Reader) (*FeatureSpec, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	spec := &FeatureSpec{}
	content, frontmatter := extractFrontmatter(content)
	if frontmatter != nil {
		var cfg foremanConfig
		if err := yaml.Unmarshal(frontmatter, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
		if cfg.Foreman != nil {
			spec.Phases = cfg.Foreman.Phases
		}
	}

	spec.Description = strings.TrimSpace(string(content))
	if spec.Description == "" {
		return nil, fmt.Errorf("spec file has no content")
	}

	// Walk the AST for the first level-1 heading
	doc := p.markdown.Parser().Parse(text.NewReader(content))
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok && heading.Level == 1 && spec.Title == "" {
			spec.Title = extractText(heading, content)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk spec document: %w", err)
	}

	if spec.Title == "" {
		spec.Title = firstNonEmptyLine(spec.Description)
	}

	return spec, nil
}

// Validate checks the parsed spec, including any phase overrides.
func (s *FeatureSpec) Validate() error {
	if s.Title == "" {
		return fmt.Errorf("spec has no title")
	}
	for i := range s.Phases {
		if err := s.Phases[i].Validate(); err != nil {
			return fmt.Errorf("frontmatter phases[%d]: %w", i, err)
		}
	}
	return nil
}

// extractFrontmatter splits a leading YAML frontmatter block (delimited
// by --- lines) from the body. Returns the body and the frontmatter,
// which is nil when absent.
func extractFrontmatter(content []byte) ([]byte, []byte) {
	lines := bytes.Split(content, []byte("\n"))

	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}

	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			frontmatter := bytes.Join(lines[1:i], []byte("\n"))
			body := bytes.Join(lines[i+1:], []byte("\n"))
			return body, frontmatter
		}
	}

	// No closing delimiter found
	return content, nil
}

// extractText collects the text content of a node's direct children.
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if text, ok := c.(*ast.Text); ok {
			buf.Write(text.Segment.Value(source))
		}
	}
	return buf.String()
}

func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			return line
		}
	}
	return ""
}
