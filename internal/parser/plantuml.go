package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/duskhollow/diagramdb/internal/diagram"
)

// PlantUML parses the line-oriented PlantUML syntax (.puml, .plantuml, .pu).
//
// Leniency policy: lenient. Comments are stripped before structural
// parsing; structural lines that match no known construct are skipped and
// recorded in metadata["skippedLines"]. Relationship endpoints that were
// never declared are materialized as implicit class elements so that the
// returned diagram always satisfies its referential invariant.
type PlantUML struct{}

// NewPlantUML returns a PlantUML parser.
func NewPlantUML() *PlantUML { return &PlantUML{} }

func (p *PlantUML) DiagramType() diagram.Type { return diagram.TypePlantUML }

func (p *PlantUML) Extensions() []string { return []string{".puml", ".plantuml", ".pu"} }

var (
	pumlBlockCommentRe = regexp.MustCompile(`(?s)/'.*?'/`)
	pumlLineCommentRe  = regexp.MustCompile(`(?m)'.*$`)

	pumlDeclRe = regexp.MustCompile(
		`^(?i)(class|interface|actor|component)\s+(\w+)(?:\s+as\s+(\w+))?\s*(?:<<([^>]+)>>)?\s*(?:\{(.*))?$`)
	pumlTitleRe      = regexp.MustCompile(`^(?i)title\s+(.+)$`)
	pumlSkinparamRe  = regexp.MustCompile(`^(?i)skinparam\s+(\w+)\s+(.+)$`)
	pumlNoteRe       = regexp.MustCompile(`^(?i)note\s+(?:left|right|top|bottom|as\s+\w+)\s*:\s*(.+)$`)
	pumlElementTagRe = regexp.MustCompile(`^(\w+)\s*:\s*#(\w+)$`)
	pumlGlobalTagRe  = regexp.MustCompile(`#(\w+)`)
)

// pumlRelPattern maps one arrow syntax to a relationship type. reversed
// arrows (<|--, --*, <.., ...) swap source and target.
type pumlRelPattern struct {
	re       *regexp.Regexp
	relType  string
	reversed bool
}

var pumlRelPatterns = []pumlRelPattern{
	{regexp.MustCompile(`^(\w+)\s*<\|--\s*(\w+)`), diagram.RelInheritance, true},
	{regexp.MustCompile(`^(\w+)\s*--\|>\s*(\w+)`), diagram.RelInheritance, false},
	{regexp.MustCompile(`^(\w+)\s*\*--\s*(\w+)`), diagram.RelComposition, false},
	{regexp.MustCompile(`^(\w+)\s*--\*\s*(\w+)`), diagram.RelComposition, true},
	{regexp.MustCompile(`^(\w+)\s*o--\s*(\w+)`), diagram.RelAggregation, false},
	{regexp.MustCompile(`^(\w+)\s*--o\s*(\w+)`), diagram.RelAggregation, true},
	{regexp.MustCompile(`^(\w+)\s*\.\.>\s*(\w+)`), diagram.RelDependency, false},
	{regexp.MustCompile(`^(\w+)\s*<\.\.\s*(\w+)`), diagram.RelDependency, true},
	{regexp.MustCompile(`^(\w+)\s*-->\s*(\w+)`), diagram.RelAssociation, false},
	{regexp.MustCompile(`^(\w+)\s*<--\s*(\w+)`), diagram.RelAssociation, true},
	{regexp.MustCompile(`^(\w+)\s*--\s*(\w+)$`), diagram.RelAssociation, false},
}

// Parse extracts elements, relationships, metadata and tags from PlantUML
// source.
func (p *PlantUML) Parse(content, sourceName string) (*diagram.ParsedDiagram, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Format: diagram.TypePlantUML, Reason: "empty content"}
	}

	cleaned := pumlBlockCommentRe.ReplaceAllString(content, "")
	cleaned = pumlLineCommentRe.ReplaceAllString(cleaned, "")

	d := diagram.NewParsedDiagram(diagram.TypePlantUML, sourceName)
	skinparams := map[string]any{}
	var notes []string
	var skipped []string
	elementTags := map[string][]string{}
	relCount := 0

	lines := strings.Split(cleaned, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		lineNo := i + 1
		if line == "" || strings.HasPrefix(line, "@startuml") || strings.HasPrefix(line, "@enduml") {
			continue
		}

		if m := pumlTitleRe.FindStringSubmatch(line); m != nil {
			d.Metadata["title"] = strings.TrimSpace(m[1])
			continue
		}
		if m := pumlSkinparamRe.FindStringSubmatch(line); m != nil {
			skinparams[m[1]] = strings.TrimSpace(m[2])
			continue
		}
		if m := pumlNoteRe.FindStringSubmatch(line); m != nil {
			notes = append(notes, strings.TrimSpace(m[1]))
			continue
		}
		if m := pumlElementTagRe.FindStringSubmatch(line); m != nil {
			elementTags[m[1]] = append(elementTags[m[1]], m[2])
			continue
		}

		if m := pumlDeclRe.FindStringSubmatch(line); m != nil {
			var body string
			if strings.Contains(line, "{") {
				var consumed int
				body, consumed = collectBody(m[5], lines, i)
				i += consumed
			}
			p.addDeclaration(d, m, body)
			continue
		}

		if rel, ok := matchRelationship(line, &relCount); ok {
			ensureElement(d, rel.SourceID)
			ensureElement(d, rel.TargetID)
			d.Relationships = append(d.Relationships, rel)
			continue
		}

		skipped = append(skipped, fmt.Sprintf("%d: %s", lineNo, line))
	}

	for id, tags := range elementTags {
		if el := d.ElementByID(id); el != nil {
			el.Tags = append(el.Tags, tags...)
		}
	}

	if len(skinparams) > 0 {
		d.Metadata["skinparams"] = skinparams
	}
	if len(notes) > 0 {
		d.Metadata["notes"] = notes
	}
	if len(skipped) > 0 {
		d.Metadata["skippedLines"] = skipped
	}
	d.Tags = globalTags(cleaned)

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// collectBody returns the declaration body. inline holds everything after
// the opening brace on the declaration line; when the brace is not closed
// inline, following lines are consumed up to the closing brace.
func collectBody(inline string, lines []string, start int) (body string, consumed int) {
	if idx := strings.Index(inline, "}"); idx >= 0 {
		return strings.TrimSpace(inline[:idx]), 0
	}
	var collected []string
	if strings.TrimSpace(inline) != "" {
		collected = append(collected, inline)
	}
	for j := start + 1; j < len(lines); j++ {
		line := strings.TrimSpace(lines[j])
		if line == "}" {
			return strings.Join(collected, "\n"), j - start
		}
		collected = append(collected, line)
	}
	// Unterminated body: treat what we have as the body.
	return strings.Join(collected, "\n"), len(lines) - 1 - start
}

func (p *PlantUML) addDeclaration(d *diagram.ParsedDiagram, m []string, body string) {
	keyword := strings.ToLower(m[1])
	name := m[2]
	alias := m[3]
	stereotype := strings.TrimSpace(m[4])

	id := name
	props := diagram.Properties{}

	switch keyword {
	case "class", "interface":
		props = parseClassBody(body)
	case "actor", "component":
		if alias != "" && alias != name {
			id = alias
			props["alias"] = alias
		}
	}
	if stereotype != "" {
		props["stereotype"] = stereotype
	}

	if existing := d.ElementByID(id); existing != nil {
		// A later explicit declaration wins over an implicit endpoint.
		existing.Type = declElementType(keyword)
		existing.Name = name
		existing.Properties = props
		return
	}

	d.Elements = append(d.Elements, diagram.Element{
		ID:         id,
		Type:       declElementType(keyword),
		Name:       name,
		Properties: props,
	})
}

func declElementType(keyword string) diagram.ElementType {
	switch keyword {
	case "interface":
		return diagram.ElementInterface
	case "actor":
		return diagram.ElementActor
	case "component":
		return diagram.ElementComponent
	default:
		return diagram.ElementClass
	}
}

// parseClassBody splits a class/interface body into methods (lines with
// parentheses) and attributes, skipping PlantUML separators.
func parseClassBody(body string) diagram.Properties {
	methods := []string{}
	attributes := []string{}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "--" || line == ".." || line == "==" {
			continue
		}
		if strings.Contains(line, "(") && strings.Contains(line, ")") {
			methods = append(methods, line)
		} else {
			attributes = append(attributes, line)
		}
	}
	return diagram.Properties{"methods": methods, "attributes": attributes}
}

func matchRelationship(line string, relCount *int) (diagram.Relationship, bool) {
	for _, pat := range pumlRelPatterns {
		m := pat.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		source, target := m[1], m[2]
		direction := "normal"
		if pat.reversed {
			source, target = target, source
			direction = "reverse"
		}
		*relCount++
		return diagram.Relationship{
			ID:         fmt.Sprintf("rel_%d", *relCount),
			SourceID:   source,
			TargetID:   target,
			Type:       pat.relType,
			Properties: diagram.Properties{"direction": direction},
		}, true
	}
	return diagram.Relationship{}, false
}

// ensureElement registers an implicit class element for a relationship
// endpoint that was never declared.
func ensureElement(d *diagram.ParsedDiagram, id string) {
	if d.HasElement(id) {
		return
	}
	d.Elements = append(d.Elements, diagram.Element{
		ID:   id,
		Type: diagram.ElementClass,
		Name: id,
	})
}

// globalTags collects #tag annotations in order of first appearance.
func globalTags(content string) []string {
	var tags []string
	seen := map[string]struct{}{}
	for _, m := range pumlGlobalTagRe.FindAllStringSubmatch(content, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		tags = append(tags, m[1])
	}
	return tags
}
