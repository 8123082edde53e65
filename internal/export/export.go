// Package export renders stored diagrams into interchange formats:
// full-fidelity JSON, flat CSV and Mermaid source.
package export

import (
	"context"
	"fmt"

	"github.com/duskhollow/diagramdb/internal/store"
)

// Format names a supported export format.
type Format string

const (
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatMermaid Format = "mermaid"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatJSON, FormatCSV, FormatMermaid:
		return Format(name), nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json, csv or mermaid)", name)
	}
}

// ExportDiagram loads one diagram and renders it in the given format.
func ExportDiagram(ctx context.Context, s store.Store, diagramID int64, format Format) ([]byte, error) {
	rec, err := s.GetDiagram(ctx, diagramID)
	if err != nil {
		return nil, err
	}
	elements, err := s.GetElements(ctx, diagramID, store.ElementFilter{})
	if err != nil {
		return nil, err
	}
	relationships, err := s.GetRelationships(ctx, diagramID, store.RelationshipFilter{})
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		return ExportJSON(rec, elements, relationships)
	case FormatCSV:
		return ExportCSV(rec, elements, relationships)
	case FormatMermaid:
		return []byte(RenderMermaid(elements, relationships)), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}
