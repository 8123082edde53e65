package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/duskhollow/diagramdb/internal/diagram"
	"github.com/duskhollow/diagramdb/internal/store"
)

// csvHeader is shared by element and relationship rows; columns that do
// not apply to a kind stay empty.
var csvHeader = []string{
	"kind", "diagram_id", "id", "type", "name",
	"source_id", "target_id", "position_x", "position_y",
	"properties", "tags",
}

// ExportCSV renders a stored diagram as CSV with one row per element and
// per relationship, elements first. Property bags are flattened to JSON
// text; tags are comma-joined.
func ExportCSV(rec *store.DiagramRecord, elements []store.ElementRecord, relationships []store.RelationshipRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	diagramID := strconv.FormatInt(rec.ID, 10)

	for _, el := range elements {
		posX, posY := "", ""
		if el.Position != nil {
			posX = strconv.FormatFloat(el.Position.X, 'f', -1, 64)
			posY = strconv.FormatFloat(el.Position.Y, 'f', -1, 64)
		}
		row := []string{
			"element", diagramID, el.ID, string(el.Type), el.Name,
			"", "", posX, posY,
			propertiesJSON(el.Properties), strings.Join(el.Tags, ","),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	for _, rel := range relationships {
		row := []string{
			"relationship", diagramID, rel.ID, rel.Type, "",
			rel.SourceID, rel.TargetID, "", "",
			propertiesJSON(rel.Properties), strings.Join(rel.Tags, ","),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func propertiesJSON(p diagram.Properties) string {
	if len(p) == 0 {
		return ""
	}
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}
