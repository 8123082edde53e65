package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskhollow/diagramdb/internal/diagram"
	"github.com/duskhollow/diagramdb/internal/store"
)

func storedDiagram(t *testing.T) (store.Store, int64) {
	t.Helper()
	s := store.NewMemStore()

	d := diagram.NewParsedDiagram(diagram.TypePlantUML, "exp.puml")
	d.Metadata["title"] = "Export Me"
	d.Tags = []string{"demo"}
	d.Elements = []diagram.Element{
		{ID: "A", Type: diagram.ElementClass, Name: "Alpha",
			Position: &diagram.Position{X: 1.5, Y: 2},
			Tags:     []string{"core"}},
		{ID: "B", Type: diagram.ElementInterface, Name: "Beta"},
	}
	d.Relationships = []diagram.Relationship{
		{ID: "r1", SourceID: "A", TargetID: "B", Type: diagram.RelRealization},
	}

	id, err := s.StoreDiagram(context.Background(), d)
	require.NoError(t, err)
	return s, id
}

func TestExportJSON_RoundTrip(t *testing.T) {
	s, id := storedDiagram(t)

	data, err := ExportDiagram(context.Background(), s, id, FormatJSON)
	require.NoError(t, err)

	var out DiagramExport
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, id, out.ID)
	assert.Equal(t, "exp.puml", out.SourceFile)
	assert.Equal(t, diagram.TypePlantUML, out.Type)
	assert.Equal(t, "Export Me", out.Metadata["title"])
	assert.Equal(t, []string{"demo"}, out.Tags)
	require.Len(t, out.Elements, 2)
	require.Len(t, out.Relationships, 1)

	a := out.Elements[0]
	assert.Equal(t, "A", a.ID)
	require.NotNil(t, a.Position)
	assert.Equal(t, 1.5, a.Position.X)
	assert.NotEmpty(t, out.ExportedAt)
}

func TestExportCSV_Layout(t *testing.T) {
	s, id := storedDiagram(t)

	data, err := ExportDiagram(context.Background(), s, id, FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4) // header + 2 elements + 1 relationship

	assert.Equal(t, csvHeader, rows[0])

	first := rows[1]
	assert.Equal(t, "element", first[0])
	assert.Equal(t, "A", first[2])
	assert.Equal(t, "class", first[3])
	assert.Equal(t, "Alpha", first[4])
	assert.Equal(t, "1.5", first[7])
	assert.Equal(t, "core", first[10])

	rel := rows[3]
	assert.Equal(t, "relationship", rel[0])
	assert.Equal(t, "r1", rel[2])
	assert.Equal(t, "realization", rel[3])
	assert.Equal(t, "A", rel[5])
	assert.Equal(t, "B", rel[6])
}

func TestRenderMermaid(t *testing.T) {
	s, id := storedDiagram(t)

	data, err := ExportDiagram(context.Background(), s, id, FormatMermaid)
	require.NoError(t, err)

	out := string(data)
	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `N0["Alpha"]`)
	assert.Contains(t, out, `N1["Beta"]`)
	assert.Contains(t, out, "N0 --> N1")
}

func TestExportDiagram_NotFound(t *testing.T) {
	s := store.NewMemStore()
	_, err := ExportDiagram(context.Background(), s, 12, FormatJSON)
	assert.True(t, store.IsNotFound(err))
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"json", "csv", "mermaid"} {
		f, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, Format(name), f)
	}
	_, err := ParseFormat("yaml")
	assert.Error(t, err)
}
