// Package mcptools exposes the diagram database over the Model Context
// Protocol so agents can parse, query, export and analyze diagrams.
package mcptools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/duskhollow/diagramdb/internal/analysis"
	"github.com/duskhollow/diagramdb/internal/diagram"
	"github.com/duskhollow/diagramdb/internal/export"
	"github.com/duskhollow/diagramdb/internal/parser"
	"github.com/duskhollow/diagramdb/internal/store"
)

// DiagramService holds the store used by MCP tool handlers.
type DiagramService struct {
	store  store.Store
	logger *zap.Logger
}

// NewDiagramService creates a DiagramService backed by the given store.
func NewDiagramService(s store.Store, logger *zap.Logger) *DiagramService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiagramService{store: s, logger: logger}
}

// ParseDiagram parses diagram source text and optionally persists the
// result.
func (s *DiagramService) ParseDiagram(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ParseDiagramInput,
) (*mcp.CallToolResult, ParseDiagramOutput, error) {
	if input.Content == "" {
		return nil, ParseDiagramOutput{}, fmt.Errorf("content is required")
	}

	var (
		p   parser.Parser
		err error
	)
	if input.Format != "" {
		p, err = parser.ForType(input.Format)
		if err != nil {
			return nil, ParseDiagramOutput{}, err
		}
	} else {
		var ok bool
		p, ok = parser.Sniff(input.Content)
		if !ok {
			return nil, ParseDiagramOutput{}, fmt.Errorf("could not detect diagram format; pass format explicitly")
		}
	}

	sourceName := input.SourceName
	if sourceName == "" {
		sourceName = "mcp-input"
	}

	d, err := p.Parse(input.Content, sourceName)
	if err != nil {
		return nil, ParseDiagramOutput{}, err
	}

	out := ParseDiagramOutput{
		Type:          d.Type,
		Elements:      d.Elements,
		Relationships: d.Relationships,
		Metadata:      d.Metadata,
	}

	if input.Store {
		id, err := s.store.StoreDiagram(ctx, d)
		if err != nil {
			return nil, ParseDiagramOutput{}, fmt.Errorf("store diagram: %w", err)
		}
		out.DiagramID = id
		s.logger.Info("diagram stored via mcp",
			zap.Int64("id", id),
			zap.String("type", string(d.Type)),
			zap.Int("elements", len(d.Elements)))
	}

	return nil, out, nil
}

// ListDiagrams returns every stored diagram, newest first.
func (s *DiagramService) ListDiagrams(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDiagramsInput,
) (*mcp.CallToolResult, ListDiagramsOutput, error) {
	records, err := s.store.ListDiagrams(ctx)
	if err != nil {
		return nil, ListDiagramsOutput{}, fmt.Errorf("list diagrams: %w", err)
	}
	return nil, ListDiagramsOutput{Diagrams: records, Total: len(records)}, nil
}

// GetElements returns a diagram's elements and relationships, optionally
// filtered by element type or tag.
func (s *DiagramService) GetElements(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetElementsInput,
) (*mcp.CallToolResult, GetElementsOutput, error) {
	filter := store.ElementFilter{Tag: input.Tag}
	for _, t := range input.Types {
		filter.Types = append(filter.Types, diagram.ElementType(t))
	}

	elements, err := s.store.GetElements(ctx, input.DiagramID, filter)
	if err != nil {
		return nil, GetElementsOutput{}, err
	}
	relationships, err := s.store.GetRelationships(ctx, input.DiagramID, store.RelationshipFilter{})
	if err != nil {
		return nil, GetElementsOutput{}, err
	}

	return nil, GetElementsOutput{Elements: elements, Relationships: relationships}, nil
}

// Search matches a substring across stored diagrams, elements and
// relationships.
func (s *DiagramService) Search(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if input.Query == "" {
		return nil, SearchOutput{}, fmt.Errorf("query is required")
	}

	scope := store.SearchScope(input.Scope)
	switch scope {
	case "", store.ScopeAll, store.ScopeDiagrams, store.ScopeElements, store.ScopeRelationships:
	default:
		return nil, SearchOutput{}, fmt.Errorf("unknown search scope %q", input.Scope)
	}

	hits, err := s.store.Search(ctx, input.Query, scope)
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("search: %w", err)
	}
	return nil, SearchOutput{Hits: hits, Total: len(hits)}, nil
}

// ExportDiagram renders a stored diagram as JSON, CSV or Mermaid text.
func (s *DiagramService) ExportDiagram(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExportDiagramInput,
) (*mcp.CallToolResult, ExportDiagramOutput, error) {
	name := input.Format
	if name == "" {
		name = string(export.FormatJSON)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return nil, ExportDiagramOutput{}, err
	}

	data, err := export.ExportDiagram(ctx, s.store, input.DiagramID, format)
	if err != nil {
		return nil, ExportDiagramOutput{}, err
	}
	return nil, ExportDiagramOutput{Format: string(format), Content: string(data)}, nil
}

// AnalyzeDiagram computes statistics and an integrity report for a
// stored diagram.
func (s *DiagramService) AnalyzeDiagram(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeDiagramInput,
) (*mcp.CallToolResult, AnalyzeDiagramOutput, error) {
	stats, err := analysis.DiagramStats(ctx, s.store, input.DiagramID)
	if err != nil {
		return nil, AnalyzeDiagramOutput{}, err
	}
	integrity, err := analysis.CheckIntegrity(ctx, s.store, input.DiagramID)
	if err != nil {
		return nil, AnalyzeDiagramOutput{}, err
	}
	return nil, AnalyzeDiagramOutput{Stats: stats, Integrity: integrity}, nil
}
