package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "corrupt.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s := openTestSQLite(t)
	// A second Migrate on an up-to-date schema is a no-op, not an error.
	require.NoError(t, s.Migrate(context.Background()))
}

func TestSQLite_CorruptMetadataColumn(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	id, err := s.StoreDiagram(ctx, sampleDiagram())
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx, "UPDATE diagrams SET metadata = ? WHERE id = ?", "{not json", id)
	require.NoError(t, err)

	_, err = s.GetDiagram(ctx, id)
	var cerr *CorruptDataError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "diagrams", cerr.Table)
	assert.Equal(t, "metadata", cerr.Column)
	assert.Equal(t, id, cerr.RowID)
}

func TestSQLite_CorruptElementProperties(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	id, err := s.StoreDiagram(ctx, sampleDiagram())
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx,
		"UPDATE elements SET properties = ? WHERE diagram_id = ? AND element_id = ?",
		"[broken", id, "A")
	require.NoError(t, err)

	_, err = s.GetElements(ctx, id, ElementFilter{})
	var cerr *CorruptDataError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "elements", cerr.Table)
	assert.Equal(t, "properties", cerr.Column)
}

func TestSQLite_CorruptTimestamp(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	id, err := s.StoreDiagram(ctx, sampleDiagram())
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx, "UPDATE diagrams SET created_at = ? WHERE id = ?", "yesterday", id)
	require.NoError(t, err)

	_, err = s.GetDiagram(ctx, id)
	var cerr *CorruptDataError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "created_at", cerr.Column)
}

func TestSQLite_LegacyTimestampFormatAccepted(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	id, err := s.StoreDiagram(ctx, sampleDiagram())
	require.NoError(t, err)

	// Rows written by other tooling may carry the plain datetime format.
	_, err = s.db.ExecContext(ctx, "UPDATE diagrams SET created_at = ? WHERE id = ?", "2026-01-15 10:30:00", id)
	require.NoError(t, err)

	rec, err := s.GetDiagram(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2026, rec.CreatedAt.Year())
}

func TestSQLite_CascadeRemovesChildRows(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	id, err := s.StoreDiagram(ctx, sampleDiagram())
	require.NoError(t, err)
	require.NoError(t, s.DeleteDiagram(ctx, id))

	// Inspect the child tables directly: the FK cascade must have
	// removed every row.
	var count int
	require.NoError(t, s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM elements WHERE diagram_id = ?", id))
	assert.Zero(t, count)
	require.NoError(t, s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM relationships WHERE diagram_id = ?", id))
	assert.Zero(t, count)
}

func TestSQLite_NullJSONColumnsReadAsEmpty(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	d := sampleDiagram()
	d.Metadata = nil
	d.Tags = nil
	id, err := s.StoreDiagram(ctx, d)
	require.NoError(t, err)

	rec, err := s.GetDiagram(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, rec.Metadata)
	assert.Empty(t, rec.Tags)
}
