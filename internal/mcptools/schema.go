package mcptools

import (
	"github.com/duskhollow/diagramdb/internal/analysis"
	"github.com/duskhollow/diagramdb/internal/diagram"
	"github.com/duskhollow/diagramdb/internal/store"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// ParseDiagramInput is the input for the parse_diagram MCP tool.
type ParseDiagramInput struct {
	Content    string `json:"content" jsonschema:"the diagram source text (PlantUML, Mermaid or draw.io XML)"`
	Format     string `json:"format,omitempty" jsonschema:"diagram format: plantuml, mermaid or drawio. Auto-detected from the content when omitted"`
	SourceName string `json:"sourceName,omitempty" jsonschema:"label recorded as the diagram's source file"`
	Store      bool   `json:"store,omitempty" jsonschema:"when true, persist the parsed diagram and return its id"`
}

// ParseDiagramOutput is the result of the parse_diagram MCP tool.
type ParseDiagramOutput struct {
	DiagramID     int64                  `json:"diagramId,omitempty"`
	Type          diagram.Type           `json:"diagramType"`
	Elements      []diagram.Element      `json:"elements"`
	Relationships []diagram.Relationship `json:"relationships"`
	Metadata      diagram.Properties     `json:"metadata,omitempty"`
}

// ListDiagramsInput is the input for the list_diagrams MCP tool.
type ListDiagramsInput struct{}

// ListDiagramsOutput is the result of the list_diagrams MCP tool.
type ListDiagramsOutput struct {
	Diagrams []store.DiagramRecord `json:"diagrams"`
	Total    int                   `json:"total"`
}

// GetElementsInput is the input for the get_elements MCP tool.
type GetElementsInput struct {
	DiagramID int64    `json:"diagramId" jsonschema:"id of the stored diagram"`
	Types     []string `json:"types,omitempty" jsonschema:"keep only elements of these types (class, interface, actor, component, ...)"`
	Tag       string   `json:"tag,omitempty" jsonschema:"keep only elements carrying this tag"`
}

// GetElementsOutput is the result of the get_elements MCP tool.
type GetElementsOutput struct {
	Elements      []store.ElementRecord      `json:"elements"`
	Relationships []store.RelationshipRecord `json:"relationships"`
}

// SearchInput is the input for the search MCP tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"substring matched against names, ids, types, properties and tags"`
	Scope string `json:"scope,omitempty" jsonschema:"search scope: all, diagrams, elements or relationships. Default: all"`
}

// SearchOutput is the result of the search MCP tool.
type SearchOutput struct {
	Hits  []store.SearchHit `json:"hits"`
	Total int               `json:"total"`
}

// ExportDiagramInput is the input for the export_diagram MCP tool.
type ExportDiagramInput struct {
	DiagramID int64  `json:"diagramId" jsonschema:"id of the stored diagram"`
	Format    string `json:"format,omitempty" jsonschema:"export format: json, csv or mermaid. Default: json"`
}

// ExportDiagramOutput is the result of the export_diagram MCP tool.
type ExportDiagramOutput struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

// AnalyzeDiagramInput is the input for the analyze_diagram MCP tool.
type AnalyzeDiagramInput struct {
	DiagramID int64 `json:"diagramId" jsonschema:"id of the stored diagram"`
}

// AnalyzeDiagramOutput is the result of the analyze_diagram MCP tool.
type AnalyzeDiagramOutput struct {
	Stats     analysis.Statistics      `json:"stats"`
	Integrity analysis.IntegrityReport `json:"integrity"`
}
