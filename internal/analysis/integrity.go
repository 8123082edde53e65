package analysis

import (
	"context"
	"fmt"

	"github.com/duskhollow/diagramdb/internal/store"
)

// IntegrityReport lists the structural problems found in one diagram.
type IntegrityReport struct {
	DiagramID           int64      `json:"diagramId"`
	MissingEndpoints    []string   `json:"missingEndpoints,omitempty"`    // relationship ids pointing at absent elements
	DuplicateElementIDs []string   `json:"duplicateElementIds,omitempty"` // element ids appearing more than once
	SelfReferences      []string   `json:"selfReferences,omitempty"`      // relationship ids where source == target
	OrphanedElements    []string   `json:"orphanedElements,omitempty"`
	Cycles              [][]string `json:"cycles,omitempty"`
}

// Clean reports whether the diagram passed every integrity check.
func (r IntegrityReport) Clean() bool {
	return len(r.MissingEndpoints) == 0 &&
		len(r.DuplicateElementIDs) == 0 &&
		len(r.SelfReferences) == 0 &&
		len(r.OrphanedElements) == 0 &&
		len(r.Cycles) == 0
}

// String renders a short human summary for CLI output.
func (r IntegrityReport) String() string {
	if r.Clean() {
		return fmt.Sprintf("diagram %d: ok", r.DiagramID)
	}
	return fmt.Sprintf("diagram %d: %d missing endpoints, %d duplicate ids, %d self references, %d orphans, %d cycles",
		r.DiagramID, len(r.MissingEndpoints), len(r.DuplicateElementIDs),
		len(r.SelfReferences), len(r.OrphanedElements), len(r.Cycles))
}

// Integrity checks one diagram's elements and relationships for missing
// endpoints, duplicate element ids, self references, orphans and cycles.
// Self-loops show up both as SelfReferences and as single-node Cycles.
func Integrity(diagramID int64, elements []store.ElementRecord, relationships []store.RelationshipRecord) IntegrityReport {
	report := IntegrityReport{DiagramID: diagramID}

	counts := make(map[string]int, len(elements))
	for _, el := range elements {
		counts[el.ID]++
	}
	for _, el := range elements {
		if counts[el.ID] > 1 {
			report.DuplicateElementIDs = append(report.DuplicateElementIDs, el.ID)
			counts[el.ID] = 0 // report each duplicated id once
		}
	}

	for _, rel := range relationships {
		if _, ok := counts[rel.SourceID]; !ok {
			report.MissingEndpoints = append(report.MissingEndpoints, rel.ID)
		} else if _, ok := counts[rel.TargetID]; !ok {
			report.MissingEndpoints = append(report.MissingEndpoints, rel.ID)
		}
		if rel.SourceID == rel.TargetID {
			report.SelfReferences = append(report.SelfReferences, rel.ID)
		}
	}

	for _, el := range Orphans(elements, relationships) {
		report.OrphanedElements = append(report.OrphanedElements, el.ID)
	}
	report.Cycles = Cycles(relationships)

	return report
}

// --- Store-backed convenience wrappers ---

// FindOrphanedElements loads a diagram's contents and returns its
// orphaned elements.
func FindOrphanedElements(ctx context.Context, s store.Store, diagramID int64) ([]store.ElementRecord, error) {
	elements, relationships, err := loadDiagram(ctx, s, diagramID)
	if err != nil {
		return nil, err
	}
	return Orphans(elements, relationships), nil
}

// DetectCircularDependencies loads a diagram's relationships and returns
// the cycles among them.
func DetectCircularDependencies(ctx context.Context, s store.Store, diagramID int64) ([][]string, error) {
	relationships, err := s.GetRelationships(ctx, diagramID, store.RelationshipFilter{})
	if err != nil {
		return nil, err
	}
	return Cycles(relationships), nil
}

// DiagramStats loads a diagram's contents and summarizes them.
func DiagramStats(ctx context.Context, s store.Store, diagramID int64) (Statistics, error) {
	elements, relationships, err := loadDiagram(ctx, s, diagramID)
	if err != nil {
		return Statistics{}, err
	}
	return Stats(elements, relationships), nil
}

// CheckIntegrity loads a diagram's contents and runs every integrity
// check against them.
func CheckIntegrity(ctx context.Context, s store.Store, diagramID int64) (IntegrityReport, error) {
	elements, relationships, err := loadDiagram(ctx, s, diagramID)
	if err != nil {
		return IntegrityReport{}, err
	}
	return Integrity(diagramID, elements, relationships), nil
}

// ElementDependencies loads a diagram's relationships and computes the
// fan-in and fan-out of one element. Returns *store.NotFoundError when
// the element does not exist in the diagram.
func ElementDependencies(ctx context.Context, s store.Store, diagramID int64, elementID string) (Dependencies, error) {
	elements, err := s.GetElements(ctx, diagramID, store.ElementFilter{})
	if err != nil {
		return Dependencies{}, err
	}
	found := false
	for _, el := range elements {
		if el.ID == elementID {
			found = true
			break
		}
	}
	if !found {
		return Dependencies{}, &store.NotFoundError{Kind: "element", ID: diagramID, Ref: elementID}
	}

	relationships, err := s.GetRelationships(ctx, diagramID, store.RelationshipFilter{})
	if err != nil {
		return Dependencies{}, err
	}
	return DependenciesOf(elementID, relationships), nil
}

func loadDiagram(ctx context.Context, s store.Store, diagramID int64) ([]store.ElementRecord, []store.RelationshipRecord, error) {
	elements, err := s.GetElements(ctx, diagramID, store.ElementFilter{})
	if err != nil {
		return nil, nil, err
	}
	relationships, err := s.GetRelationships(ctx, diagramID, store.RelationshipFilter{})
	if err != nil {
		return nil, nil, err
	}
	return elements, relationships, nil
}
