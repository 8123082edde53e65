package parser

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskhollow/diagramdb/internal/diagram"
)

const drawioSingleVertex = `<mxGraphModel>
  <root>
    <mxCell id="0"/>
    <mxCell id="1" parent="0"/>
    <mxCell id="node1" value="Lonely" style="rectangle;fillColor=#ffffff" vertex="1" parent="1">
      <mxGeometry x="120" y="80" width="160" height="40"/>
    </mxCell>
  </root>
</mxGraphModel>`

func TestDrawIO_SingleVertexNoEdges(t *testing.T) {
	d, err := NewDrawIO().Parse(drawioSingleVertex, "one.drawio")
	require.NoError(t, err)

	require.Len(t, d.Elements, 1)
	assert.Empty(t, d.Relationships)

	el := d.Elements[0]
	assert.Equal(t, "node1", el.ID)
	assert.Equal(t, "Lonely", el.Name)
	assert.Equal(t, diagram.ElementClass, el.Type)
	require.NotNil(t, el.Position)
	assert.Equal(t, 120.0, el.Position.X)
	assert.Equal(t, 80.0, el.Position.Y)
}

func TestDrawIO_VerticesAndEdge(t *testing.T) {
	content := `<mxGraphModel>
  <root>
    <mxCell id="0"/>
    <mxCell id="1" parent="0"/>
    <mxCell id="a" value="Child" style="rectangle" vertex="1" parent="1"/>
    <mxCell id="b" value="Parent" style="rectangle" vertex="1" parent="1"/>
    <mxCell id="e1" style="endArrow=block;endFill=0" edge="1" source="a" target="b" parent="1"/>
  </root>
</mxGraphModel>`

	d, err := NewDrawIO().Parse(content, "two.drawio")
	require.NoError(t, err)

	require.Len(t, d.Elements, 2)
	require.Len(t, d.Relationships, 1)

	rel := d.Relationships[0]
	assert.Equal(t, "a", rel.SourceID)
	assert.Equal(t, "b", rel.TargetID)
	assert.Equal(t, diagram.RelInheritance, rel.Type)
}

func TestDrawIO_DanglingEdgesDropped(t *testing.T) {
	content := `<mxGraphModel>
  <root>
    <mxCell id="0"/>
    <mxCell id="1" parent="0"/>
    <mxCell id="a" value="A" vertex="1" parent="1"/>
    <mxCell id="e1" edge="1" source="a" target="missing" parent="1"/>
    <mxCell id="e2" edge="1" source="a" parent="1"/>
  </root>
</mxGraphModel>`

	d, err := NewDrawIO().Parse(content, "dangling.drawio")
	require.NoError(t, err)

	assert.Len(t, d.Elements, 1)
	assert.Empty(t, d.Relationships)
	assert.Equal(t, []string{"e1", "e2"}, d.Metadata["danglingEdges"])
}

func TestDrawIO_MxfileWithInlinePage(t *testing.T) {
	content := `<mxfile host="app.diagrams.net" version="21.0.0">
  <diagram name="Page-1">
    <mxGraphModel>
      <root>
        <mxCell id="0"/>
        <mxCell id="1" parent="0"/>
        <mxCell id="n1" value="Svc" style="ellipse" vertex="1" parent="1"/>
      </root>
    </mxGraphModel>
  </diagram>
</mxfile>`

	d, err := NewDrawIO().Parse(content, "file.drawio")
	require.NoError(t, err)

	assert.Equal(t, "app.diagrams.net", d.Metadata["host"])
	assert.Equal(t, "21.0.0", d.Metadata["version"])
	require.Len(t, d.Elements, 1)
	assert.Equal(t, "n1", d.Elements[0].ID)
}

func TestDrawIO_CompressedPage(t *testing.T) {
	inner := `<mxGraphModel><root><mxCell id="0"/><mxCell id="1" parent="0"/><mxCell id="z" value="Zip" vertex="1" parent="1"/></root></mxGraphModel>`

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write([]byte(inner))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	payload := base64.StdEncoding.EncodeToString(buf.Bytes())

	content := `<mxfile><diagram name="Page-1">` + payload + `</diagram></mxfile>`

	d, err := NewDrawIO().Parse(content, "compressed.drawio")
	require.NoError(t, err)
	require.Len(t, d.Elements, 1)
	assert.Equal(t, "z", d.Elements[0].ID)
	assert.Equal(t, "Zip", d.Elements[0].Name)
}

func TestDrawIO_MalformedXML(t *testing.T) {
	_, err := NewDrawIO().Parse("<mxGraphModel><root>", "broken.drawio")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, diagram.TypeDrawIO, perr.Format)
}

func TestDrawIO_EdgeTypeHeuristics(t *testing.T) {
	tests := []struct {
		name  string
		style string
		value string
		want  string
	}{
		{"hollow block is inheritance", "endArrow=block;endFill=0", "", diagram.RelInheritance},
		{"filled diamond is composition", "endArrow=diamond;endFill=1", "", diagram.RelComposition},
		{"hollow diamond is aggregation", "endArrow=diamond;endFill=0", "", diagram.RelAggregation},
		{"dashed is dependency", "dashed=1", "", diagram.RelDependency},
		{"extends label", "", "extends", diagram.RelInheritance},
		{"implements label", "", "implements", diagram.RelRealization},
		{"plain edge", "endArrow=classic", "", diagram.RelAssociation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := edgeRelationshipType(parseStyle(tt.style), tt.value)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDrawIO_StripHTML(t *testing.T) {
	assert.Equal(t, "Order <T>", stripHTML("<b>Order</b> &lt;T&gt;"))
	assert.Equal(t, "", stripHTML(""))
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    diagram.Type
		ok      bool
	}{
		{"drawio", "<mxfile></mxfile>", diagram.TypeDrawIO, true},
		{"plantuml", "@startuml\n@enduml", diagram.TypePlantUML, true},
		{"mermaid class", "classDiagram\nA --> B", diagram.TypeMermaid, true},
		{"mermaid flowchart", "flowchart TD\nA --> B", diagram.TypeMermaid, true},
		{"unknown", "hello world", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := Sniff(tt.content)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, p.DiagramType())
			}
		})
	}
}

func TestForFile(t *testing.T) {
	p, err := ForFile("arch/system.puml")
	require.NoError(t, err)
	assert.Equal(t, diagram.TypePlantUML, p.DiagramType())

	p, err = ForFile("flow.mermaid")
	require.NoError(t, err)
	assert.Equal(t, diagram.TypeMermaid, p.DiagramType())

	_, err = ForFile("notes.txt")
	assert.Error(t, err)
}
