package export

import (
	"fmt"
	"strings"

	"github.com/duskhollow/diagramdb/internal/diagram"
	"github.com/duskhollow/diagramdb/internal/store"
)

// RenderMermaid produces Mermaid "graph TD" source from stored elements
// and relationships. Element ids are remapped to short alphanumeric node
// ids; relationship types pick the arrow style.
func RenderMermaid(elements []store.ElementRecord, relationships []store.RelationshipRecord) string {
	nodeIDs := make(map[string]string, len(elements))
	nextID := 0
	getID := func(elementID string) string {
		if id, ok := nodeIDs[elementID]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[elementID] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, el := range elements {
		label := el.Name
		if label == "" {
			label = el.ID
		}
		sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", getID(el.ID), escapeMermaid(label)))
	}

	for _, rel := range relationships {
		srcID := getID(rel.SourceID)
		tgtID := getID(rel.TargetID)
		arrow := mermaidArrow(rel.Type)
		if label, ok := rel.Properties["message"].(string); ok && label != "" {
			sb.WriteString(fmt.Sprintf("  %s %s|%s| %s\n", srcID, arrow, escapeMermaid(label), tgtID))
		} else {
			sb.WriteString(fmt.Sprintf("  %s %s %s\n", srcID, arrow, tgtID))
		}
	}

	return sb.String()
}

func mermaidArrow(relType string) string {
	switch relType {
	case diagram.RelInheritance, diagram.RelRealization:
		return "-->"
	case diagram.RelDependency:
		return "-.->"
	case diagram.RelComposition, diagram.RelAggregation:
		return "--o"
	default:
		return "-->"
	}
}

func escapeMermaid(s string) string {
	s = strings.ReplaceAll(s, `"`, "'")
	return strings.ReplaceAll(s, "\n", " ")
}
