package parser

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/duskhollow/diagramdb/internal/diagram"
)

// DrawIO parses draw.io / diagrams.net XML (.drawio, .xml). Each mxCell
// with vertex="1" becomes an element, each with edge="1" a relationship.
// Compressed diagram pages (URL-encoded, base64, raw deflate) are decoded
// transparently; only the first page is parsed.
//
// Leniency policy: strict on XML well-formedness (malformed XML is a
// ParseError); lenient on cell content. Cells that are neither vertex nor
// edge are counted in metadata["skippedCells"], and edges whose endpoints
// do not resolve are dropped and listed in metadata["danglingEdges"].
type DrawIO struct{}

// NewDrawIO returns a DrawIO parser.
func NewDrawIO() *DrawIO { return &DrawIO{} }

func (p *DrawIO) DiagramType() diagram.Type { return diagram.TypeDrawIO }

func (p *DrawIO) Extensions() []string { return []string{".drawio", ".xml"} }

// --- XML document shapes ---

type mxFile struct {
	XMLName  xml.Name `xml:"mxfile"`
	Host     string   `xml:"host,attr"`
	Modified string   `xml:"modified,attr"`
	Agent    string   `xml:"agent,attr"`
	Version  string   `xml:"version,attr"`
	Pages    []mxPage `xml:"diagram"`
}

type mxPage struct {
	Name    string        `xml:"name,attr"`
	Content string        `xml:",chardata"`
	Model   *mxGraphModel `xml:"mxGraphModel"`
}

type mxGraphModel struct {
	XMLName xml.Name `xml:"mxGraphModel"`
	Cells   []mxCell `xml:"root>mxCell"`
}

type mxCell struct {
	ID       string      `xml:"id,attr"`
	Value    string      `xml:"value,attr"`
	Style    string      `xml:"style,attr"`
	Vertex   string      `xml:"vertex,attr"`
	Edge     string      `xml:"edge,attr"`
	Source   string      `xml:"source,attr"`
	Target   string      `xml:"target,attr"`
	Geometry *mxGeometry `xml:"mxGeometry"`
}

type mxGeometry struct {
	X      string `xml:"x,attr"`
	Y      string `xml:"y,attr"`
	Width  string `xml:"width,attr"`
	Height string `xml:"height,attr"`
}

// Parse extracts elements and relationships from DrawIO XML.
func (p *DrawIO) Parse(content, sourceName string) (*diagram.ParsedDiagram, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Format: diagram.TypeDrawIO, Reason: "empty content"}
	}

	d := diagram.NewParsedDiagram(diagram.TypeDrawIO, sourceName)

	model, err := p.decodeModel(content, d)
	if err != nil {
		return nil, err
	}
	if model != nil {
		p.parseCells(model.Cells, d)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// decodeModel unwraps the outer document: either a bare <mxGraphModel>, or
// an <mxfile> whose first <diagram> page holds the model inline or as a
// compressed text payload.
func (p *DrawIO) decodeModel(content string, d *diagram.ParsedDiagram) (*mxGraphModel, error) {
	trimmed := strings.TrimSpace(content)

	if strings.Contains(trimmed[:min(len(trimmed), 200)], "<mxGraphModel") && !strings.HasPrefix(trimmed, "<mxfile") {
		var model mxGraphModel
		if err := xml.Unmarshal([]byte(trimmed), &model); err != nil {
			return nil, &ParseError{Format: diagram.TypeDrawIO, Reason: "invalid XML: " + err.Error()}
		}
		return &model, nil
	}

	var file mxFile
	if err := xml.Unmarshal([]byte(trimmed), &file); err != nil {
		return nil, &ParseError{Format: diagram.TypeDrawIO, Reason: "invalid XML: " + err.Error()}
	}

	if file.Host != "" {
		d.Metadata["host"] = file.Host
	}
	if file.Modified != "" {
		d.Metadata["modified"] = file.Modified
	}
	if file.Agent != "" {
		d.Metadata["agent"] = file.Agent
	}
	if file.Version != "" {
		d.Metadata["version"] = file.Version
	}

	if len(file.Pages) == 0 {
		return nil, nil
	}
	page := file.Pages[0]
	if page.Model != nil {
		return page.Model, nil
	}

	decoded := decodePagePayload(page.Content)
	if decoded == "" {
		return nil, nil
	}
	var model mxGraphModel
	if err := xml.Unmarshal([]byte(decoded), &model); err != nil {
		return nil, &ParseError{Format: diagram.TypeDrawIO, Reason: "invalid compressed page XML: " + err.Error()}
	}
	return &model, nil
}

// decodePagePayload reverses draw.io page compression: base64 over raw
// deflate over URL-encoding. Falls back to plain base64 for uncompressed
// payloads; returns "" when neither applies.
func decodePagePayload(encoded string) string {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return ""
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ""
	}

	r := flate.NewReader(bytes.NewReader(raw))
	inflated, err := io.ReadAll(r)
	if err != nil || len(inflated) == 0 {
		// Not deflated: treat the base64 payload as the page itself.
		return string(raw)
	}
	if unescaped, err := url.QueryUnescape(string(inflated)); err == nil {
		return unescaped
	}
	return string(inflated)
}

func (p *DrawIO) parseCells(cells []mxCell, d *diagram.ParsedDiagram) {
	skippedCells := 0
	var danglingEdges []string

	vertexIDs := make(map[string]struct{})
	for _, cell := range cells {
		if cell.Vertex == "1" && cell.ID != "" && cell.ID != "0" && cell.ID != "1" {
			vertexIDs[cell.ID] = struct{}{}
		}
	}

	for _, cell := range cells {
		if cell.ID == "" || cell.ID == "0" || cell.ID == "1" {
			continue
		}
		switch {
		case cell.Edge == "1":
			if cell.Source == "" || cell.Target == "" {
				danglingEdges = append(danglingEdges, cell.ID)
				continue
			}
			if _, ok := vertexIDs[cell.Source]; !ok {
				danglingEdges = append(danglingEdges, cell.ID)
				continue
			}
			if _, ok := vertexIDs[cell.Target]; !ok {
				danglingEdges = append(danglingEdges, cell.ID)
				continue
			}
			d.Relationships = append(d.Relationships, p.parseEdge(cell))
		case cell.Vertex == "1":
			d.Elements = append(d.Elements, p.parseVertex(cell))
		default:
			skippedCells++
		}
	}

	if skippedCells > 0 {
		d.Metadata["skippedCells"] = skippedCells
	}
	if len(danglingEdges) > 0 {
		d.Metadata["danglingEdges"] = danglingEdges
	}
}

func (p *DrawIO) parseVertex(cell mxCell) diagram.Element {
	styleProps := parseStyle(cell.Style)

	props := diagram.Properties{
		"style":         toAnyMap(styleProps),
		"originalStyle": cell.Style,
	}

	var pos *diagram.Position
	if g := cell.Geometry; g != nil {
		x, xErr := strconv.ParseFloat(g.X, 64)
		y, yErr := strconv.ParseFloat(g.Y, 64)
		if xErr == nil && yErr == nil {
			pos = &diagram.Position{X: x, Y: y}
		}
		w, wErr := strconv.ParseFloat(g.Width, 64)
		h, hErr := strconv.ParseFloat(g.Height, 64)
		if wErr == nil && hErr == nil {
			props["size"] = map[string]any{"width": w, "height": h}
		}
	}

	return diagram.Element{
		ID:         cell.ID,
		Type:       vertexElementType(cell.Style, cell.Value),
		Name:       stripHTML(cell.Value),
		Properties: props,
		Position:   pos,
		Tags:       cellTags(styleProps, cell.Value),
	}
}

func (p *DrawIO) parseEdge(cell mxCell) diagram.Relationship {
	styleProps := parseStyle(cell.Style)

	props := diagram.Properties{
		"style":         toAnyMap(styleProps),
		"originalStyle": cell.Style,
	}
	if cell.Value != "" {
		props["label"] = stripHTML(cell.Value)
	}

	return diagram.Relationship{
		ID:         cell.ID,
		SourceID:   cell.Source,
		TargetID:   cell.Target,
		Type:       edgeRelationshipType(styleProps, cell.Value),
		Properties: props,
		Tags:       cellTags(styleProps, cell.Value),
	}
}

// vertexElementType maps style/value heuristics to an element type.
func vertexElementType(style, value string) diagram.ElementType {
	styleLower := strings.ToLower(style)
	valueLower := strings.ToLower(value)

	switch {
	case strings.Contains(styleLower, "umlactor") || strings.Contains(valueLower, "actor"):
		return diagram.ElementActor
	case strings.Contains(styleLower, "rhombus") || strings.Contains(styleLower, "diamond"):
		return diagram.ElementBoundary
	case strings.Contains(styleLower, "cylinder") || strings.Contains(styleLower, "database"):
		return diagram.ElementEntity
	case strings.Contains(styleLower, "ellipse") &&
		(strings.Contains(valueLower, "interface") || strings.Contains(valueLower, "i:")):
		return diagram.ElementInterface
	case strings.Contains(styleLower, "rectangle") || strings.Contains(valueLower, "class"):
		return diagram.ElementClass
	case strings.Contains(styleLower, "note"):
		return diagram.ElementNote
	default:
		return diagram.ElementComponent
	}
}

// edgeRelationshipType maps arrow style conventions to a relationship
// type: hollow block arrow = inheritance, filled diamond = composition,
// hollow diamond = aggregation, dashed = dependency.
func edgeRelationshipType(styleProps map[string]string, value string) string {
	valueLower := strings.ToLower(value)

	endArrow := styleProps["endArrow"]
	endFill := styleProps["endFill"]

	switch {
	case endArrow == "block" && endFill == "0":
		return diagram.RelInheritance
	case endArrow == "diamond" && endFill == "1":
		return diagram.RelComposition
	case endArrow == "diamond" && endFill == "0":
		return diagram.RelAggregation
	case styleProps["dashed"] == "1":
		return diagram.RelDependency
	case strings.Contains(valueLower, "extends"):
		return diagram.RelInheritance
	case strings.Contains(valueLower, "implements"):
		return diagram.RelRealization
	default:
		return diagram.RelAssociation
	}
}

// parseStyle splits a draw.io style string ("key=value;flag;...") into a
// property map. Bare flags map to "true".
func parseStyle(style string) map[string]string {
	props := map[string]string{}
	for _, part := range strings.Split(style, ";") {
		if part == "" {
			continue
		}
		if key, value, found := strings.Cut(part, "="); found {
			props[key] = value
		} else {
			props[part] = "true"
		}
	}
	return props
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// stripHTML removes markup from a cell value and decodes the common
// entities draw.io emits.
func stripHTML(value string) string {
	if value == "" {
		return ""
	}
	clean := htmlTagRe.ReplaceAllString(value, "")
	replacer := strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&", "&quot;", `"`)
	return strings.TrimSpace(replacer.Replace(clean))
}

// cellTags derives tags from significant style properties and value
// keywords.
func cellTags(styleProps map[string]string, value string) []string {
	var tags []string
	for _, prop := range []string{"shape", "fillColor", "strokeColor", "fontFamily"} {
		if v, ok := styleProps[prop]; ok {
			tags = append(tags, fmt.Sprintf("%s:%s", prop, v))
		}
	}
	valueLower := strings.ToLower(value)
	for _, keyword := range []string{"class", "interface", "abstract"} {
		if strings.Contains(valueLower, keyword) {
			tags = append(tags, keyword)
		}
	}
	return tags
}

func toAnyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
