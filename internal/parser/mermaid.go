package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/duskhollow/diagramdb/internal/diagram"
)

// Mermaid parses Mermaid diagram source (.mmd, .mermaid). The leading
// directive selects the grammar: classDiagram, flowchart/graph,
// sequenceDiagram or erDiagram.
//
// Leniency policy: lenient. An unknown leading directive falls back to
// generic node extraction and records metadata["mermaidType"] = "unknown";
// within a known grammar, unmatched lines are recorded in
// metadata["skippedLines"]. Undeclared relationship endpoints are
// materialized as implicit elements.
type Mermaid struct{}

// NewMermaid returns a Mermaid parser.
func NewMermaid() *Mermaid { return &Mermaid{} }

func (p *Mermaid) DiagramType() diagram.Type { return diagram.TypeMermaid }

func (p *Mermaid) Extensions() []string { return []string{".mmd", ".mermaid"} }

var (
	mmdCommentRe = regexp.MustCompile(`%%.*`)
	mmdTitleRe   = regexp.MustCompile(`(?i)title\s+(.+)`)

	mmdClassRe       = regexp.MustCompile(`^class\s+(\w+)\s*(?:\{(.*))?$`)
	mmdParticipantRe = regexp.MustCompile(`^participant\s+(\w+)(?:\s+as\s+(.+))?$`)
	mmdEntityRe      = regexp.MustCompile(`^(\w+)\s*\{\s*(.*)$`)
	mmdBareNodeRe    = regexp.MustCompile(`^(\w+)$`)
	mmdStyleClassRe  = regexp.MustCompile(`class\s+\w+\s+(\w+)`)
)

type mmdEdgePattern struct {
	re      *regexp.Regexp
	relType string
	// extra property recorded on the relationship, keyed by name.
	propKey string
	propVal string
}

var mmdClassRelPatterns = []mmdEdgePattern{
	{re: regexp.MustCompile(`^(\w+)\s*<\|--\s*(\w+)`), relType: diagram.RelInheritance},
	{re: regexp.MustCompile(`^(\w+)\s*--\|>\s*(\w+)`), relType: diagram.RelInheritance},
	{re: regexp.MustCompile(`^(\w+)\s*\*--\s*(\w+)`), relType: diagram.RelComposition},
	{re: regexp.MustCompile(`^(\w+)\s*--\*\s*(\w+)`), relType: diagram.RelComposition},
	{re: regexp.MustCompile(`^(\w+)\s*o--\s*(\w+)`), relType: diagram.RelAggregation},
	{re: regexp.MustCompile(`^(\w+)\s*--o\s*(\w+)`), relType: diagram.RelAggregation},
	{re: regexp.MustCompile(`^(\w+)\s*\.\.>\s*(\w+)`), relType: diagram.RelDependency},
	{re: regexp.MustCompile(`^(\w+)\s*-->\s*(\w+)`), relType: diagram.RelAssociation},
	{re: regexp.MustCompile(`^(\w+)\s*--\s*(\w+)`), relType: diagram.RelAssociation},
}

var mmdFlowEdgePatterns = []mmdEdgePattern{
	{re: regexp.MustCompile(`(\w+)\s*-\.->\s*(\w+)`), relType: diagram.RelConnection, propKey: "style", propVal: "dotted"},
	{re: regexp.MustCompile(`(\w+)\s*==>\s*(\w+)`), relType: diagram.RelConnection, propKey: "style", propVal: "thick"},
	{re: regexp.MustCompile(`(\w+)\s*-->\s*(\w+)`), relType: diagram.RelConnection, propKey: "style", propVal: "directed"},
	{re: regexp.MustCompile(`(\w+)\s*---\s*(\w+)`), relType: diagram.RelConnection, propKey: "style", propVal: "undirected"},
}

// Flowchart node shapes, most specific first so ((x)) wins over (x).
var mmdNodeShapes = []struct {
	re    *regexp.Regexp
	shape string
}{
	{regexp.MustCompile(`(\w+)\(\(([^)]+)\)\)`), "circle"},
	{regexp.MustCompile(`(\w+)\[([^\]]+)\]`), "rectangular"},
	{regexp.MustCompile(`(\w+)\(([^)]+)\)`), "rounded"},
	{regexp.MustCompile(`(\w+)\{([^}]+)\}`), "diamond"},
}

var mmdSeqMsgPatterns = []mmdEdgePattern{
	{re: regexp.MustCompile(`^(\w+)\s*-->\s*(\w+)\s*:\s*(.+)`), relType: "return_message"},
	{re: regexp.MustCompile(`^(\w+)\s*->>\s*(\w+)\s*:\s*(.+)`), relType: "async_message"},
	{re: regexp.MustCompile(`^(\w+)\s*->\s*(\w+)\s*:\s*(.+)`), relType: "sync_message"},
}

var mmdERRelPatterns = []mmdEdgePattern{
	{re: regexp.MustCompile(`^(\w+)\s*\|\|--o\{\s*(\w+)`), relType: "one_to_many"},
	{re: regexp.MustCompile(`^(\w+)\s*\}o--\|\|\s*(\w+)`), relType: "many_to_one"},
	{re: regexp.MustCompile(`^(\w+)\s*\|\|--\|\|\s*(\w+)`), relType: "one_to_one"},
	{re: regexp.MustCompile(`^(\w+)\s*\}o--o\{\s*(\w+)`), relType: "many_to_many"},
}

// Parse extracts elements and relationships from Mermaid source.
func (p *Mermaid) Parse(content, sourceName string) (*diagram.ParsedDiagram, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Format: diagram.TypeMermaid, Reason: "empty content"}
	}

	cleaned := mmdCommentRe.ReplaceAllString(content, "")
	var lines []string
	for _, l := range strings.Split(cleaned, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	if len(lines) == 0 {
		return nil, &ParseError{Format: diagram.TypeMermaid, Reason: "only comments and blank lines"}
	}

	d := diagram.NewParsedDiagram(diagram.TypeMermaid, sourceName)
	mermaidType := detectMermaidType(lines[0])
	d.Metadata["mermaidType"] = mermaidType

	var skipped []string
	switch mermaidType {
	case "classDiagram":
		skipped = p.parseClassDiagram(lines[1:], d)
	case "flowchart", "graph":
		skipped = p.parseFlowchart(lines[1:], d)
	case "sequenceDiagram":
		skipped = p.parseSequence(lines[1:], d)
	case "erDiagram":
		skipped = p.parseER(lines[1:], d)
	default:
		p.parseGeneric(lines, d)
	}

	if m := mmdTitleRe.FindStringSubmatch(cleaned); m != nil {
		d.Metadata["title"] = strings.TrimSpace(m[1])
	}
	if len(skipped) > 0 {
		d.Metadata["skippedLines"] = skipped
	}
	d.Tags = styleClassTags(cleaned)

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func detectMermaidType(first string) string {
	switch {
	case strings.HasPrefix(first, "classDiagram"):
		return "classDiagram"
	case strings.HasPrefix(first, "sequenceDiagram"):
		return "sequenceDiagram"
	case strings.HasPrefix(first, "erDiagram"):
		return "erDiagram"
	case strings.HasPrefix(first, "flowchart"), strings.HasPrefix(first, "graph"):
		return strings.Fields(first)[0]
	default:
		return "unknown"
	}
}

func (p *Mermaid) parseClassDiagram(lines []string, d *diagram.ParsedDiagram) (skipped []string) {
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := mmdClassRe.FindStringSubmatch(line); m != nil {
			body := ""
			if strings.Contains(line, "{") {
				var consumed int
				body, consumed = collectBody(m[2], lines, i)
				i += consumed
			}
			addOrReplaceElement(d, diagram.Element{
				ID:         m[1],
				Type:       diagram.ElementClass,
				Name:       m[1],
				Properties: parseClassBody(body),
			})
			continue
		}

		if matchMermaidEdge(line, d, mmdClassRelPatterns, diagram.ElementClass, nil) {
			continue
		}
		skipped = append(skipped, line)
	}
	return skipped
}

func (p *Mermaid) parseFlowchart(lines []string, d *diagram.ParsedDiagram) (skipped []string) {
	for _, line := range lines {
		matched := false

		for _, shape := range mmdNodeShapes {
			if m := shape.re.FindStringSubmatch(line); m != nil {
				if !d.HasElement(m[1]) {
					d.Elements = append(d.Elements, diagram.Element{
						ID:         m[1],
						Type:       diagram.ElementComponent,
						Name:       m[2],
						Properties: diagram.Properties{"shape": shape.shape},
					})
				}
				matched = true
				break
			}
		}

		for _, pat := range mmdFlowEdgePatterns {
			m := pat.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			for _, id := range []string{m[1], m[2]} {
				if !d.HasElement(id) {
					d.Elements = append(d.Elements, diagram.Element{
						ID:         id,
						Type:       diagram.ElementComponent,
						Name:       id,
						Properties: diagram.Properties{"shape": "simple"},
					})
				}
			}
			d.Relationships = append(d.Relationships, diagram.Relationship{
				ID:         fmt.Sprintf("rel_%d", len(d.Relationships)+1),
				SourceID:   m[1],
				TargetID:   m[2],
				Type:       pat.relType,
				Properties: diagram.Properties{pat.propKey: pat.propVal},
			})
			matched = true
			break
		}

		if !matched {
			skipped = append(skipped, line)
		}
	}
	return skipped
}

func (p *Mermaid) parseSequence(lines []string, d *diagram.ParsedDiagram) (skipped []string) {
	for _, line := range lines {
		if m := mmdParticipantRe.FindStringSubmatch(line); m != nil {
			name := m[1]
			if m[2] != "" {
				name = strings.TrimSpace(m[2])
			}
			if !d.HasElement(m[1]) {
				d.Elements = append(d.Elements, diagram.Element{
					ID:   m[1],
					Type: diagram.ElementActor,
					Name: name,
				})
			}
			continue
		}

		extra := func(rel *diagram.Relationship, m []string) {
			rel.Properties = diagram.Properties{"message": strings.TrimSpace(m[3])}
		}
		if matchMermaidEdge(line, d, mmdSeqMsgPatterns, diagram.ElementActor, extra) {
			continue
		}
		skipped = append(skipped, line)
	}
	return skipped
}

func (p *Mermaid) parseER(lines []string, d *diagram.ParsedDiagram) (skipped []string) {
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if matchMermaidEdge(line, d, mmdERRelPatterns, diagram.ElementEntity, nil) {
			continue
		}

		if m := mmdEntityRe.FindStringSubmatch(line); m != nil {
			body, consumed := collectBody(m[2], lines, i)
			i += consumed
			attributes := []string{}
			for _, attr := range strings.Split(body, "\n") {
				if attr = strings.TrimSpace(attr); attr != "" {
					attributes = append(attributes, attr)
				}
			}
			addOrReplaceElement(d, diagram.Element{
				ID:         m[1],
				Type:       diagram.ElementEntity,
				Name:       m[1],
				Properties: diagram.Properties{"attributes": attributes},
			})
			continue
		}

		if m := mmdBareNodeRe.FindStringSubmatch(line); m != nil {
			if !d.HasElement(m[1]) {
				d.Elements = append(d.Elements, diagram.Element{
					ID:         m[1],
					Type:       diagram.ElementEntity,
					Name:       m[1],
					Properties: diagram.Properties{"attributes": []string{}},
				})
			}
			continue
		}

		skipped = append(skipped, line)
	}
	return skipped
}

// parseGeneric extracts bare identifiers as component nodes. Used for
// unknown diagram directives.
func (p *Mermaid) parseGeneric(lines []string, d *diagram.ParsedDiagram) {
	idRe := regexp.MustCompile(`(\w+)`)
	for _, line := range lines {
		m := idRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if !d.HasElement(m[1]) {
			d.Elements = append(d.Elements, diagram.Element{
				ID:   m[1],
				Type: diagram.ElementComponent,
				Name: m[1],
			})
		}
	}
}

// matchMermaidEdge tries each pattern against line; on a hit it registers
// implicit endpoints of implicitType and appends the relationship.
func matchMermaidEdge(
	line string,
	d *diagram.ParsedDiagram,
	patterns []mmdEdgePattern,
	implicitType diagram.ElementType,
	extra func(*diagram.Relationship, []string),
) bool {
	for _, pat := range patterns {
		m := pat.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		for _, id := range []string{m[1], m[2]} {
			if !d.HasElement(id) {
				d.Elements = append(d.Elements, diagram.Element{
					ID:   id,
					Type: implicitType,
					Name: id,
				})
			}
		}
		rel := diagram.Relationship{
			ID:       fmt.Sprintf("rel_%d", len(d.Relationships)+1),
			SourceID: m[1],
			TargetID: m[2],
			Type:     pat.relType,
		}
		if extra != nil {
			extra(&rel, m)
		}
		d.Relationships = append(d.Relationships, rel)
		return true
	}
	return false
}

func addOrReplaceElement(d *diagram.ParsedDiagram, el diagram.Element) {
	if existing := d.ElementByID(el.ID); existing != nil {
		*existing = el
		return
	}
	d.Elements = append(d.Elements, el)
}

// styleClassTags extracts CSS class assignments ("class nodeId className")
// as diagram-level tags.
func styleClassTags(content string) []string {
	var tags []string
	seen := map[string]struct{}{}
	for _, m := range mmdStyleClassRe.FindAllStringSubmatch(content, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		tags = append(tags, m[1])
	}
	return tags
}
