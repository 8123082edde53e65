// Package store persists parsed diagrams behind a relational schema
// (diagrams / elements / relationships with JSON text columns) and offers
// query, search and deletion on top of it.
package store

import (
	"context"
	"io"
	"time"

	"github.com/duskhollow/diagramdb/internal/diagram"
)

// Store is the interface for the diagram storage backend.
// Implementations: SQLiteStore (production), MemStore (testing).
type Store interface {
	io.Closer

	// Migrate brings the schema up to date. Called once before any data
	// access.
	Migrate(ctx context.Context) error

	// StoreDiagram inserts a diagram with all its elements and
	// relationships as one atomic unit and returns the assigned id.
	// The store takes its own copy; later mutation of d is not observed.
	StoreDiagram(ctx context.Context, d *diagram.ParsedDiagram) (int64, error)

	// GetDiagram returns the diagram record, or *NotFoundError.
	GetDiagram(ctx context.Context, id int64) (*DiagramRecord, error)

	// ListDiagrams returns all diagram records, newest first.
	ListDiagrams(ctx context.Context) ([]DiagramRecord, error)

	// GetElements returns the diagram's elements, optionally filtered.
	// Fails with *NotFoundError when the diagram does not exist.
	GetElements(ctx context.Context, diagramID int64, filter ElementFilter) ([]ElementRecord, error)

	// GetRelationships is the relationship analogue of GetElements.
	GetRelationships(ctx context.Context, diagramID int64, filter RelationshipFilter) ([]RelationshipRecord, error)

	// Search matches query as a substring against names, ids, types,
	// properties and tags within scope. Ordering is deterministic for
	// identical inputs: ascending (diagram id, row id).
	Search(ctx context.Context, query string, scope SearchScope) ([]SearchHit, error)

	// DeleteDiagram removes a diagram and cascades to its elements and
	// relationships. Fails with *NotFoundError for unknown ids.
	DeleteDiagram(ctx context.Context, id int64) error
}

// DiagramRecord is the persisted form of a ParsedDiagram header.
type DiagramRecord struct {
	ID         int64              `json:"id"`
	SourceFile string             `json:"sourceFile"`
	Type       diagram.Type       `json:"diagramType"`
	Metadata   diagram.Properties `json:"metadata,omitempty"`
	Tags       []string           `json:"tags,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// ElementRecord is a stored element plus its storage identity.
type ElementRecord struct {
	RowID     int64 `json:"rowId"`
	DiagramID int64 `json:"diagramId"`
	diagram.Element
}

// RelationshipRecord is a stored relationship plus its storage identity.
type RelationshipRecord struct {
	RowID     int64 `json:"rowId"`
	DiagramID int64 `json:"diagramId"`
	diagram.Relationship
}

// ElementFilter restricts GetElements results. Zero value matches all.
type ElementFilter struct {
	Types []diagram.ElementType // any of these element types
	Tag   string                // must carry this tag
}

func (f ElementFilter) matches(el diagram.Element) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if el.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return f.Tag == "" || hasTag(el.Tags, f.Tag)
}

// RelationshipFilter restricts GetRelationships results. Zero value
// matches all.
type RelationshipFilter struct {
	Types []string // any of these relationship types
	Tag   string   // must carry this tag
}

func (f RelationshipFilter) matches(rel diagram.Relationship) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if rel.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return f.Tag == "" || hasTag(rel.Tags, f.Tag)
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SearchScope selects which tables Search inspects.
type SearchScope string

const (
	ScopeAll           SearchScope = "all"
	ScopeDiagrams      SearchScope = "diagrams"
	ScopeElements      SearchScope = "elements"
	ScopeRelationships SearchScope = "relationships"
)

// SearchHit is one match returned by Search.
type SearchHit struct {
	Scope     SearchScope `json:"scope"`
	DiagramID int64       `json:"diagramId"`
	RowID     int64       `json:"rowId"`
	Ref       string      `json:"ref"`  // element_id / relationship_id / source file
	Name      string      `json:"name"` // display name or type
}
