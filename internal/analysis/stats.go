package analysis

import (
	"github.com/duskhollow/diagramdb/internal/store"
)

// Statistics summarizes a diagram's contents by count.
type Statistics struct {
	Elements          int            `json:"elements"`
	Relationships     int            `json:"relationships"`
	ElementTypes      map[string]int `json:"elementTypes"`
	RelationshipTypes map[string]int `json:"relationshipTypes"`
	TagCounts         map[string]int `json:"tagCounts"`
	Orphans           int            `json:"orphans"`
	Cycles            int            `json:"cycles"`
}

// Stats tallies element and relationship type frequencies, tag usage
// across both, and the orphan and cycle counts.
func Stats(elements []store.ElementRecord, relationships []store.RelationshipRecord) Statistics {
	stats := Statistics{
		Elements:          len(elements),
		Relationships:     len(relationships),
		ElementTypes:      make(map[string]int),
		RelationshipTypes: make(map[string]int),
		TagCounts:         make(map[string]int),
	}

	for _, el := range elements {
		stats.ElementTypes[string(el.Type)]++
		for _, tag := range el.Tags {
			stats.TagCounts[tag]++
		}
	}
	for _, rel := range relationships {
		stats.RelationshipTypes[rel.Type]++
		for _, tag := range rel.Tags {
			stats.TagCounts[tag]++
		}
	}

	stats.Orphans = len(Orphans(elements, relationships))
	stats.Cycles = len(Cycles(relationships))
	return stats
}
