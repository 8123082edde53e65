package export

import (
	"encoding/json"
	"time"

	"github.com/duskhollow/diagramdb/internal/diagram"
	"github.com/duskhollow/diagramdb/internal/store"
)

// DiagramExport is the top-level JSON export structure. It carries
// everything stored for a diagram, so an export can be re-ingested
// without loss.
type DiagramExport struct {
	ID            int64                  `json:"id"`
	SourceFile    string                 `json:"sourceFile"`
	Type          diagram.Type           `json:"diagramType"`
	Metadata      diagram.Properties     `json:"metadata,omitempty"`
	Tags          []string               `json:"tags,omitempty"`
	CreatedAt     string                 `json:"createdAt"`
	UpdatedAt     string                 `json:"updatedAt"`
	ExportedAt    string                 `json:"exportedAt"`
	Elements      []diagram.Element      `json:"elements"`
	Relationships []diagram.Relationship `json:"relationships"`
}

// ExportJSON renders a stored diagram as indented JSON.
func ExportJSON(rec *store.DiagramRecord, elements []store.ElementRecord, relationships []store.RelationshipRecord) ([]byte, error) {
	out := DiagramExport{
		ID:            rec.ID,
		SourceFile:    rec.SourceFile,
		Type:          rec.Type,
		Metadata:      rec.Metadata,
		Tags:          rec.Tags,
		CreatedAt:     rec.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     rec.UpdatedAt.UTC().Format(time.RFC3339),
		ExportedAt:    time.Now().UTC().Format(time.RFC3339),
		Elements:      make([]diagram.Element, 0, len(elements)),
		Relationships: make([]diagram.Relationship, 0, len(relationships)),
	}
	for _, el := range elements {
		out.Elements = append(out.Elements, el.Element)
	}
	for _, rel := range relationships {
		out.Relationships = append(out.Relationships, rel.Relationship)
	}
	return json.MarshalIndent(out, "", "  ")
}
