package diagram

import (
	"fmt"
	"strings"
)

// ValidationError reports a structural defect in a ParsedDiagram: a
// relationship endpoint that does not resolve to an element of the same
// diagram, or a duplicated element id.
type ValidationError struct {
	Diagram string // source file, for context
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Diagram == "" {
		return "invalid diagram: " + e.Reason
	}
	return fmt.Sprintf("invalid diagram %s: %s", e.Diagram, e.Reason)
}

// Validate checks the structural invariants every stored diagram must hold:
// element ids are unique and every relationship endpoint resolves.
func (d *ParsedDiagram) Validate() error {
	ids := make(map[string]struct{}, len(d.Elements))
	for _, el := range d.Elements {
		if el.ID == "" {
			return &ValidationError{Diagram: d.SourceFile, Reason: "element with empty id"}
		}
		if _, dup := ids[el.ID]; dup {
			return &ValidationError{
				Diagram: d.SourceFile,
				Reason:  fmt.Sprintf("duplicate element id %q", el.ID),
			}
		}
		ids[el.ID] = struct{}{}
	}

	for _, rel := range d.Relationships {
		var missing []string
		if _, ok := ids[rel.SourceID]; !ok {
			missing = append(missing, rel.SourceID)
		}
		if _, ok := ids[rel.TargetID]; !ok {
			missing = append(missing, rel.TargetID)
		}
		if len(missing) > 0 {
			return &ValidationError{
				Diagram: d.SourceFile,
				Reason: fmt.Sprintf("relationship %q references unknown element(s) %s",
					rel.ID, strings.Join(missing, ", ")),
			}
		}
	}
	return nil
}

// ValidateProperties rejects values that would not survive a JSON
// round-trip. Allowed: nil, string, bool, numeric types, []any and
// map[string]any of the same, plus []string for tag-like lists.
func ValidateProperties(p Properties) error {
	for key, v := range p {
		if err := validateValue(v); err != nil {
			return fmt.Errorf("property %q: %w", key, err)
		}
	}
	return nil
}

func validateValue(v any) error {
	switch val := v.(type) {
	case nil, string, bool,
		int, int32, int64, uint, uint32, uint64,
		float32, float64:
		return nil
	case []string:
		return nil
	case []any:
		for i, item := range val {
			if err := validateValue(item); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	case map[string]any:
		for k, item := range val {
			if err := validateValue(item); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
		return nil
	case Properties:
		return ValidateProperties(val)
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
}
