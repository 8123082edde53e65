package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/duskhollow/diagramdb/internal/diagram"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store with Go maps. Thread-safe via sync.RWMutex.
// It mirrors SQLiteStore semantics (copy-on-store, NotFoundError, cascade
// delete, deterministic ordering) so analysis and export code can be
// exercised without a database file.
type MemStore struct {
	mu        sync.RWMutex
	nextID    int64
	nextRowID int64
	diagrams  map[int64]*memDiagram
}

type memDiagram struct {
	record        DiagramRecord
	elements      []ElementRecord
	relationships []RelationshipRecord
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{diagrams: make(map[int64]*memDiagram)}
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error { return nil }

// Migrate is a no-op for the in-memory store.
func (m *MemStore) Migrate(_ context.Context) error { return nil }

// StoreDiagram stores a deep copy of d and returns the assigned id.
func (m *MemStore) StoreDiagram(_ context.Context, d *diagram.ParsedDiagram) (int64, error) {
	if err := validateForStore(d); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	now := time.Now().UTC()

	md := &memDiagram{
		record: DiagramRecord{
			ID:         id,
			SourceFile: d.SourceFile,
			Type:       d.Type,
			Metadata:   copyProperties(d.Metadata),
			Tags:       copyStrings(d.Tags),
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}

	for _, el := range d.Elements {
		m.nextRowID++
		md.elements = append(md.elements, ElementRecord{
			RowID:     m.nextRowID,
			DiagramID: id,
			Element:   copyElement(el),
		})
	}
	for _, rel := range d.Relationships {
		m.nextRowID++
		md.relationships = append(md.relationships, RelationshipRecord{
			RowID:        m.nextRowID,
			DiagramID:    id,
			Relationship: copyRelationship(rel),
		})
	}

	m.diagrams[id] = md
	return id, nil
}

// GetDiagram returns the diagram record, or *NotFoundError.
func (m *MemStore) GetDiagram(_ context.Context, id int64) (*DiagramRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	md, ok := m.diagrams[id]
	if !ok {
		return nil, &NotFoundError{Kind: "diagram", ID: id}
	}
	rec := md.record
	rec.Metadata = copyProperties(rec.Metadata)
	rec.Tags = copyStrings(rec.Tags)
	return &rec, nil
}

// ListDiagrams returns all diagrams, newest first.
func (m *MemStore) ListDiagrams(_ context.Context) ([]DiagramRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]DiagramRecord, 0, len(m.diagrams))
	for _, md := range m.diagrams {
		records = append(records, md.record)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// GetElements returns the diagram's elements in insertion order.
func (m *MemStore) GetElements(_ context.Context, diagramID int64, filter ElementFilter) ([]ElementRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	md, ok := m.diagrams[diagramID]
	if !ok {
		return nil, &NotFoundError{Kind: "diagram", ID: diagramID}
	}

	records := make([]ElementRecord, 0, len(md.elements))
	for _, rec := range md.elements {
		if filter.matches(rec.Element) {
			rec.Element = copyElement(rec.Element)
			records = append(records, rec)
		}
	}
	return records, nil
}

// GetRelationships returns the diagram's relationships in insertion order.
func (m *MemStore) GetRelationships(_ context.Context, diagramID int64, filter RelationshipFilter) ([]RelationshipRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	md, ok := m.diagrams[diagramID]
	if !ok {
		return nil, &NotFoundError{Kind: "diagram", ID: diagramID}
	}

	records := make([]RelationshipRecord, 0, len(md.relationships))
	for _, rec := range md.relationships {
		if filter.matches(rec.Relationship) {
			rec.Relationship = copyRelationship(rec.Relationship)
			records = append(records, rec)
		}
	}
	return records, nil
}

// Search scans all diagrams in ascending id order.
func (m *MemStore) Search(_ context.Context, query string, scope SearchScope) ([]SearchHit, error) {
	if scope == "" {
		scope = ScopeAll
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.diagrams))
	for id := range m.diagrams {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var hits []SearchHit
	lower := strings.ToLower(query)

	if scope == ScopeAll || scope == ScopeDiagrams {
		for _, id := range ids {
			md := m.diagrams[id]
			if containsFold(lower, md.record.SourceFile, string(md.record.Type),
				jsonString(md.record.Metadata), jsonString(md.record.Tags)) {
				hits = append(hits, SearchHit{
					Scope:     ScopeDiagrams,
					DiagramID: id,
					RowID:     id,
					Ref:       md.record.SourceFile,
					Name:      string(md.record.Type),
				})
			}
		}
	}

	if scope == ScopeAll || scope == ScopeElements {
		for _, id := range ids {
			for _, rec := range m.diagrams[id].elements {
				el := rec.Element
				if containsFold(lower, el.ID, string(el.Type), el.Name,
					jsonString(el.Properties), jsonString(el.Tags)) {
					hits = append(hits, SearchHit{
						Scope:     ScopeElements,
						DiagramID: id,
						RowID:     rec.RowID,
						Ref:       el.ID,
						Name:      el.Name,
					})
				}
			}
		}
	}

	if scope == ScopeAll || scope == ScopeRelationships {
		for _, id := range ids {
			for _, rec := range m.diagrams[id].relationships {
				rel := rec.Relationship
				if containsFold(lower, rel.ID, rel.Type, rel.SourceID, rel.TargetID,
					jsonString(rel.Properties), jsonString(rel.Tags)) {
					hits = append(hits, SearchHit{
						Scope:     ScopeRelationships,
						DiagramID: id,
						RowID:     rec.RowID,
						Ref:       rel.ID,
						Name:      rel.Type,
					})
				}
			}
		}
	}

	return hits, nil
}

// DeleteDiagram removes the diagram and everything it owns.
func (m *MemStore) DeleteDiagram(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.diagrams[id]; !ok {
		return &NotFoundError{Kind: "diagram", ID: id}
	}
	delete(m.diagrams, id)
	return nil
}

// --- Copy helpers ---

func copyElement(el diagram.Element) diagram.Element {
	out := el
	out.Properties = copyProperties(el.Properties)
	out.Tags = copyStrings(el.Tags)
	if el.Position != nil {
		pos := *el.Position
		out.Position = &pos
	}
	return out
}

func copyRelationship(rel diagram.Relationship) diagram.Relationship {
	out := rel
	out.Properties = copyProperties(rel.Properties)
	out.Tags = copyStrings(rel.Tags)
	return out
}

// copyProperties deep-copies a property bag through JSON, which also
// normalizes values to their JSON shapes the way a round-trip through a
// database column would.
func copyProperties(p diagram.Properties) diagram.Properties {
	if len(p) == 0 {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		// validateForStore already rejected non-JSON values.
		panic(fmt.Sprintf("memstore: unmarshalable properties: %v", err))
	}
	var out diagram.Properties
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("memstore: copy properties: %v", err))
	}
	return out
}

func copyStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func jsonString(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func containsFold(lowerQuery string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), lowerQuery) {
			return true
		}
	}
	return false
}
