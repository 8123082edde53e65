package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/duskhollow/diagramdb/internal/diagram"
)

// Merge combines several stored diagrams into one new diagram and stores
// it. Element ids are remapped to fresh unique ids so diagrams that reuse
// the same ids do not collide; every copied element and relationship is
// tagged with its origin diagram. The merged diagram takes the type of
// the first source diagram.
func Merge(ctx context.Context, s Store, ids []int64, sourceFile string) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("merge requires at least one diagram id")
	}

	first, err := s.GetDiagram(ctx, ids[0])
	if err != nil {
		return 0, err
	}

	merged := diagram.NewParsedDiagram(first.Type, sourceFile)
	merged.Tags = []string{"merged"}
	mergedFrom := make([]any, len(ids))
	for i, id := range ids {
		mergedFrom[i] = id
	}
	merged.Metadata["mergedFrom"] = mergedFrom

	// old (diagram id, element id) -> new element id
	idMap := make(map[string]string)
	key := func(diagramID int64, elementID string) string {
		return fmt.Sprintf("%d:%s", diagramID, elementID)
	}

	for _, id := range ids {
		elements, err := s.GetElements(ctx, id, ElementFilter{})
		if err != nil {
			return 0, err
		}
		for _, rec := range elements {
			el := rec.Element
			newID := uuid.NewString()
			idMap[key(id, el.ID)] = newID
			el.ID = newID
			el.Tags = append(el.Tags, fmt.Sprintf("from_diagram_%d", id))
			merged.Elements = append(merged.Elements, el)
		}
	}

	for _, id := range ids {
		relationships, err := s.GetRelationships(ctx, id, RelationshipFilter{})
		if err != nil {
			return 0, err
		}
		for _, rec := range relationships {
			rel := rec.Relationship
			source, okSource := idMap[key(id, rel.SourceID)]
			target, okTarget := idMap[key(id, rel.TargetID)]
			if !okSource || !okTarget {
				// Endpoint missing from its own diagram; skip rather
				// than carry a dangling edge into the merged diagram.
				continue
			}
			rel.ID = uuid.NewString()
			rel.SourceID = source
			rel.TargetID = target
			rel.Tags = append(rel.Tags, fmt.Sprintf("from_diagram_%d", id))
			merged.Relationships = append(merged.Relationships, rel)
		}
	}

	return s.StoreDiagram(ctx, merged)
}
