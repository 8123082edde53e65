// Package parser turns raw diagram source text into the shared
// format-agnostic model in internal/diagram.
//
// Each format has its own leniency policy, documented on the parser type:
// unrecognized but well-formed constructs are skipped and recorded in the
// diagram metadata, never silently dropped. Structural problems (empty
// input, malformed XML, dangling endpoints that cannot be repaired) fail
// with a *ParseError.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/duskhollow/diagramdb/internal/diagram"
)

// Parser extracts a ParsedDiagram from raw source text.
// Implementations: PlantUML, Mermaid, DrawIO. Parsers hold no mutable
// state; a single instance is safe for concurrent use.
type Parser interface {
	// DiagramType returns the format this parser handles.
	DiagramType() diagram.Type

	// Extensions returns the file extensions (with leading dot, lower
	// case) this parser claims.
	Extensions() []string

	// Parse extracts elements and relationships from content. sourceName
	// is recorded for provenance only. On success the returned diagram
	// satisfies diagram.Validate.
	Parse(content, sourceName string) (*diagram.ParsedDiagram, error)
}

// ParseError reports input that does not conform to the expected format.
type ParseError struct {
	Format diagram.Type
	Line   int // 1-based, 0 when unknown
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s parse error at line %d: %s", e.Format, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Reason)
}

// All returns one parser per supported format.
func All() []Parser {
	return []Parser{
		NewPlantUML(),
		NewMermaid(),
		NewDrawIO(),
	}
}

// ForType selects a parser by format name ("plantuml", "mermaid",
// "drawio").
func ForType(name string) (Parser, error) {
	t := diagram.Type(strings.ToLower(name))
	for _, p := range All() {
		if p.DiagramType() == t {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown diagram format %q (want plantuml, mermaid or drawio)", name)
}

// ForFile selects a parser by file extension.
func ForFile(path string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, p := range All() {
		for _, candidate := range p.Extensions() {
			if ext == candidate {
				return p, nil
			}
		}
	}
	return nil, fmt.Errorf("no parser registered for extension %q (%s)", ext, path)
}

// Sniff guesses the format from content when the extension is ambiguous
// or missing. It checks cheap, format-distinctive markers only.
func Sniff(content string) (Parser, bool) {
	trimmed := strings.TrimSpace(content)
	switch {
	case strings.HasPrefix(trimmed, "<"):
		return NewDrawIO(), true
	case strings.HasPrefix(trimmed, "@startuml"):
		return NewPlantUML(), true
	}
	for _, directive := range []string{"classDiagram", "sequenceDiagram", "erDiagram", "flowchart", "graph "} {
		if strings.HasPrefix(trimmed, directive) {
			return NewMermaid(), true
		}
	}
	return nil, false
}

// ParseFile reads path and parses it with the parser selected by
// extension.
func ParseFile(path string) (*diagram.ParsedDiagram, error) {
	p, err := ForFile(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return p.Parse(string(data), path)
}
