package diagram

// --- Enums ---

// Type identifies the source format a diagram was parsed from.
type Type string

const (
	TypePlantUML Type = "plantuml"
	TypeMermaid  Type = "mermaid"
	TypeDrawIO   Type = "drawio"
)

// ElementType classifies elements within a diagram.
type ElementType string

const (
	ElementClass     ElementType = "class"
	ElementInterface ElementType = "interface"
	ElementComponent ElementType = "component"
	ElementActor     ElementType = "actor"
	ElementUseCase   ElementType = "use_case"
	ElementPackage   ElementType = "package"
	ElementNote      ElementType = "note"
	ElementBoundary  ElementType = "boundary"
	ElementControl   ElementType = "control"
	ElementEntity    ElementType = "entity"
)

// Well-known relationship types shared across formats. Format-specific edge
// kinds (Mermaid flowchart "connection", ER cardinalities, sequence message
// kinds) are plain strings alongside these.
const (
	RelInheritance = "inheritance"
	RelComposition = "composition"
	RelAggregation = "aggregation"
	RelAssociation = "association"
	RelDependency  = "dependency"
	RelRealization = "realization"
	RelConnection  = "connection"
)

// --- Models ---

// Properties is a free-form JSON-representable property bag attached to
// diagrams, elements and relationships. Values must survive a JSON
// round-trip; ValidateProperties enforces that at the store boundary.
type Properties map[string]any

// Position is the optional geometry of an element, present for formats
// that carry layout information (DrawIO).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Element is a single structural unit of a diagram (class, actor, node...).
// Its ID is unique within the parent diagram.
type Element struct {
	ID         string      `json:"id"`
	Type       ElementType `json:"elementType"`
	Name       string      `json:"name"`
	Properties Properties  `json:"properties,omitempty"`
	Position   *Position   `json:"position,omitempty"`
	Tags       []string    `json:"tags,omitempty"`
}

// Relationship is a directed edge between two elements of the same diagram.
type Relationship struct {
	ID         string     `json:"id"`
	SourceID   string     `json:"sourceId"`
	TargetID   string     `json:"targetId"`
	Type       string     `json:"relationshipType"`
	Properties Properties `json:"properties,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
}

// ParsedDiagram is the format-agnostic result of a single parse call.
// It is transient until handed to a store.
type ParsedDiagram struct {
	SourceFile    string         `json:"sourceFile"`
	Type          Type           `json:"diagramType"`
	Elements      []Element      `json:"elements"`
	Relationships []Relationship `json:"relationships"`
	Metadata      Properties     `json:"metadata,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
}

// NewParsedDiagram returns an empty diagram of the given type with
// initialized metadata.
func NewParsedDiagram(t Type, sourceFile string) *ParsedDiagram {
	return &ParsedDiagram{
		SourceFile: sourceFile,
		Type:       t,
		Metadata:   Properties{},
	}
}

// ElementByID returns the element with the given id, or nil.
func (d *ParsedDiagram) ElementByID(id string) *Element {
	for i := range d.Elements {
		if d.Elements[i].ID == id {
			return &d.Elements[i]
		}
	}
	return nil
}

// HasElement reports whether an element with the given id exists.
func (d *ParsedDiagram) HasElement(id string) bool {
	return d.ElementByID(id) != nil
}
