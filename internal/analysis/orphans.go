package analysis

import (
	"github.com/duskhollow/diagramdb/internal/store"
)

// Orphans returns the elements that participate in no relationship, in
// their stored order. An element counts as connected when its id appears
// as either endpoint of any relationship.
func Orphans(elements []store.ElementRecord, relationships []store.RelationshipRecord) []store.ElementRecord {
	connected := make(map[string]struct{}, len(relationships)*2)
	for _, rel := range relationships {
		connected[rel.SourceID] = struct{}{}
		connected[rel.TargetID] = struct{}{}
	}

	var orphans []store.ElementRecord
	for _, el := range elements {
		if _, ok := connected[el.ID]; !ok {
			orphans = append(orphans, el)
		}
	}
	return orphans
}

// Dependencies describes what a single element points at and what points
// back at it.
type Dependencies struct {
	ElementID  string   `json:"elementId"`
	DependsOn  []string `json:"dependsOn"`  // targets of outgoing relationships
	DependedBy []string `json:"dependedBy"` // sources of incoming relationships
}

// DependenciesOf computes the fan-out and fan-in of one element. Each
// neighbor id appears once even when several relationships connect the
// same pair; ids come back in stored relationship order.
func DependenciesOf(elementID string, relationships []store.RelationshipRecord) Dependencies {
	deps := Dependencies{ElementID: elementID}
	seenOut := make(map[string]struct{})
	seenIn := make(map[string]struct{})

	for _, rel := range relationships {
		if rel.SourceID == elementID {
			if _, ok := seenOut[rel.TargetID]; !ok {
				seenOut[rel.TargetID] = struct{}{}
				deps.DependsOn = append(deps.DependsOn, rel.TargetID)
			}
		}
		if rel.TargetID == elementID {
			if _, ok := seenIn[rel.SourceID]; !ok {
				seenIn[rel.SourceID] = struct{}{}
				deps.DependedBy = append(deps.DependedBy, rel.SourceID)
			}
		}
	}
	return deps
}
