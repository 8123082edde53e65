package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/duskhollow/diagramdb/internal/diagram"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Compile-time assertion: *SQLiteStore satisfies Store.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store on a SQLite database file. All timestamps
// are stored as RFC 3339 UTC strings; metadata, properties, position and
// tags are JSON text columns.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

// OpenSQLite opens (creating if needed) the database at path. Foreign key
// enforcement is switched on so that diagram deletion cascades.
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}
	// SQLite permits a single writer; serialize access through one
	// connection so concurrent StoreDiagram calls queue instead of
	// failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Migrate applies the embedded schema migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	drv, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	s.logger.Debug("schema migrated")
	return nil
}

// --- Row shapes ---

type diagramRow struct {
	ID          int64          `db:"id"`
	SourceFile  string         `db:"source_file"`
	DiagramType string         `db:"diagram_type"`
	Metadata    sql.NullString `db:"metadata"`
	Tags        sql.NullString `db:"tags"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

type elementRow struct {
	ID          int64          `db:"id"`
	DiagramID   int64          `db:"diagram_id"`
	ElementID   string         `db:"element_id"`
	ElementType string         `db:"element_type"`
	Name        string         `db:"name"`
	Properties  sql.NullString `db:"properties"`
	Position    sql.NullString `db:"position"`
	Tags        sql.NullString `db:"tags"`
}

type relationshipRow struct {
	ID               int64          `db:"id"`
	DiagramID        int64          `db:"diagram_id"`
	RelationshipID   string         `db:"relationship_id"`
	SourceElementID  string         `db:"source_element_id"`
	TargetElementID  string         `db:"target_element_id"`
	RelationshipType string         `db:"relationship_type"`
	Properties       sql.NullString `db:"properties"`
	Tags             sql.NullString `db:"tags"`
}

// StoreDiagram inserts the diagram with all elements and relationships in
// a single transaction. Structural invariants and property bags are
// validated before the first write.
func (s *SQLiteStore) StoreDiagram(ctx context.Context, d *diagram.ParsedDiagram) (int64, error) {
	if err := validateForStore(d); err != nil {
		return 0, err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	metadata, err := marshalJSON(d.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshal diagram metadata: %w", err)
	}
	tags, err := marshalJSON(d.Tags)
	if err != nil {
		return 0, fmt.Errorf("marshal diagram tags: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	sb := sqlbuilder.NewInsertBuilder()
	sb.InsertInto("diagrams")
	sb.Cols("source_file", "diagram_type", "metadata", "tags", "created_at", "updated_at")
	sb.Values(d.SourceFile, string(d.Type), metadata, tags, now, now)
	query, args := sb.Build()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert diagram: %w", err)
	}
	diagramID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read diagram id: %w", err)
	}

	for _, el := range d.Elements {
		if err := insertElement(ctx, tx, diagramID, el); err != nil {
			return 0, err
		}
	}
	for _, rel := range d.Relationships {
		if err := insertRelationship(ctx, tx, diagramID, rel); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit diagram: %w", err)
	}

	s.logger.Info("stored diagram",
		zap.Int64("id", diagramID),
		zap.String("source_file", d.SourceFile),
		zap.String("diagram_type", string(d.Type)),
		zap.Int("elements", len(d.Elements)),
		zap.Int("relationships", len(d.Relationships)))
	return diagramID, nil
}

func insertElement(ctx context.Context, tx *sqlx.Tx, diagramID int64, el diagram.Element) error {
	properties, err := marshalJSON(el.Properties)
	if err != nil {
		return fmt.Errorf("marshal properties of element %q: %w", el.ID, err)
	}
	position, err := marshalJSON(el.Position)
	if err != nil {
		return fmt.Errorf("marshal position of element %q: %w", el.ID, err)
	}
	tags, err := marshalJSON(el.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags of element %q: %w", el.ID, err)
	}

	sb := sqlbuilder.NewInsertBuilder()
	sb.InsertInto("elements")
	sb.Cols("diagram_id", "element_id", "element_type", "name", "properties", "position", "tags")
	sb.Values(diagramID, el.ID, string(el.Type), el.Name, properties, position, tags)
	query, args := sb.Build()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert element %q: %w", el.ID, err)
	}
	return nil
}

func insertRelationship(ctx context.Context, tx *sqlx.Tx, diagramID int64, rel diagram.Relationship) error {
	properties, err := marshalJSON(rel.Properties)
	if err != nil {
		return fmt.Errorf("marshal properties of relationship %q: %w", rel.ID, err)
	}
	tags, err := marshalJSON(rel.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags of relationship %q: %w", rel.ID, err)
	}

	sb := sqlbuilder.NewInsertBuilder()
	sb.InsertInto("relationships")
	sb.Cols("diagram_id", "relationship_id", "source_element_id", "target_element_id",
		"relationship_type", "properties", "tags")
	sb.Values(diagramID, rel.ID, rel.SourceID, rel.TargetID, rel.Type, properties, tags)
	query, args := sb.Build()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert relationship %q: %w", rel.ID, err)
	}
	return nil
}

// GetDiagram returns the diagram header record.
func (s *SQLiteStore) GetDiagram(ctx context.Context, id int64) (*DiagramRecord, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "source_file", "diagram_type", "metadata", "tags", "created_at", "updated_at")
	sb.From("diagrams")
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	var row diagramRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "diagram", ID: id}
		}
		return nil, fmt.Errorf("get diagram %d: %w", id, err)
	}
	return row.toRecord()
}

// ListDiagrams returns all diagrams, newest first (ties broken by id).
func (s *SQLiteStore) ListDiagrams(ctx context.Context) ([]DiagramRecord, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "source_file", "diagram_type", "metadata", "tags", "created_at", "updated_at")
	sb.From("diagrams")
	sb.OrderBy("created_at DESC", "id DESC")
	query, args := sb.Build()

	var rows []diagramRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}

	records := make([]DiagramRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

// GetElements returns the diagram's elements in insertion order.
func (s *SQLiteStore) GetElements(ctx context.Context, diagramID int64, filter ElementFilter) ([]ElementRecord, error) {
	if err := s.ensureDiagram(ctx, diagramID); err != nil {
		return nil, err
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "diagram_id", "element_id", "element_type", "name", "properties", "position", "tags")
	sb.From("elements")
	sb.Where(sb.Equal("diagram_id", diagramID))
	if len(filter.Types) > 0 {
		types := make([]any, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		sb.Where(sb.In("element_type", types...))
	}
	sb.OrderBy("id")
	query, args := sb.Build()

	var rows []elementRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("get elements of diagram %d: %w", diagramID, err)
	}

	records := make([]ElementRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		if filter.matches(rec.Element) {
			records = append(records, *rec)
		}
	}
	return records, nil
}

// GetRelationships returns the diagram's relationships in insertion order.
func (s *SQLiteStore) GetRelationships(ctx context.Context, diagramID int64, filter RelationshipFilter) ([]RelationshipRecord, error) {
	if err := s.ensureDiagram(ctx, diagramID); err != nil {
		return nil, err
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "diagram_id", "relationship_id", "source_element_id", "target_element_id",
		"relationship_type", "properties", "tags")
	sb.From("relationships")
	sb.Where(sb.Equal("diagram_id", diagramID))
	if len(filter.Types) > 0 {
		types := make([]any, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = t
		}
		sb.Where(sb.In("relationship_type", types...))
	}
	sb.OrderBy("id")
	query, args := sb.Build()

	var rows []relationshipRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("get relationships of diagram %d: %w", diagramID, err)
	}

	records := make([]RelationshipRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		if filter.matches(rec.Relationship) {
			records = append(records, *rec)
		}
	}
	return records, nil
}

// Search matches query against diagrams, elements and relationships.
func (s *SQLiteStore) Search(ctx context.Context, query string, scope SearchScope) ([]SearchHit, error) {
	if scope == "" {
		scope = ScopeAll
	}
	like := "%" + query + "%"
	var hits []SearchHit

	if scope == ScopeAll || scope == ScopeDiagrams {
		sb := sqlbuilder.NewSelectBuilder()
		sb.Select("id", "source_file", "diagram_type", "metadata", "tags", "created_at", "updated_at")
		sb.From("diagrams")
		sb.Where(sb.Or(
			sb.Like("source_file", like),
			sb.Like("diagram_type", like),
			sb.Like("metadata", like),
			sb.Like("tags", like),
		))
		sb.OrderBy("id")
		q, args := sb.Build()

		var rows []diagramRow
		if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
			return nil, fmt.Errorf("search diagrams: %w", err)
		}
		for _, row := range rows {
			hits = append(hits, SearchHit{
				Scope:     ScopeDiagrams,
				DiagramID: row.ID,
				RowID:     row.ID,
				Ref:       row.SourceFile,
				Name:      row.DiagramType,
			})
		}
	}

	if scope == ScopeAll || scope == ScopeElements {
		sb := sqlbuilder.NewSelectBuilder()
		sb.Select("id", "diagram_id", "element_id", "element_type", "name", "properties", "position", "tags")
		sb.From("elements")
		sb.Where(sb.Or(
			sb.Like("element_id", like),
			sb.Like("element_type", like),
			sb.Like("name", like),
			sb.Like("properties", like),
			sb.Like("tags", like),
		))
		sb.OrderBy("diagram_id", "id")
		q, args := sb.Build()

		var rows []elementRow
		if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
			return nil, fmt.Errorf("search elements: %w", err)
		}
		for _, row := range rows {
			hits = append(hits, SearchHit{
				Scope:     ScopeElements,
				DiagramID: row.DiagramID,
				RowID:     row.ID,
				Ref:       row.ElementID,
				Name:      row.Name,
			})
		}
	}

	if scope == ScopeAll || scope == ScopeRelationships {
		sb := sqlbuilder.NewSelectBuilder()
		sb.Select("id", "diagram_id", "relationship_id", "source_element_id", "target_element_id",
			"relationship_type", "properties", "tags")
		sb.From("relationships")
		sb.Where(sb.Or(
			sb.Like("relationship_id", like),
			sb.Like("relationship_type", like),
			sb.Like("source_element_id", like),
			sb.Like("target_element_id", like),
			sb.Like("properties", like),
			sb.Like("tags", like),
		))
		sb.OrderBy("diagram_id", "id")
		q, args := sb.Build()

		var rows []relationshipRow
		if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
			return nil, fmt.Errorf("search relationships: %w", err)
		}
		for _, row := range rows {
			hits = append(hits, SearchHit{
				Scope:     ScopeRelationships,
				DiagramID: row.DiagramID,
				RowID:     row.ID,
				Ref:       row.RelationshipID,
				Name:      row.RelationshipType,
			})
		}
	}

	return hits, nil
}

// DeleteDiagram removes the diagram; the schema cascades to elements and
// relationships.
func (s *SQLiteStore) DeleteDiagram(ctx context.Context, id int64) error {
	sb := sqlbuilder.NewDeleteBuilder()
	sb.DeleteFrom("diagrams")
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete diagram %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete diagram %d: %w", id, err)
	}
	if affected == 0 {
		return &NotFoundError{Kind: "diagram", ID: id}
	}

	s.logger.Info("deleted diagram", zap.Int64("id", id))
	return nil
}

func (s *SQLiteStore) ensureDiagram(ctx context.Context, id int64) error {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id")
	sb.From("diagrams")
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	var found int64
	if err := s.db.GetContext(ctx, &found, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Kind: "diagram", ID: id}
		}
		return fmt.Errorf("check diagram %d: %w", id, err)
	}
	return nil
}

// --- Marshalling helpers ---

// validateForStore runs the structural and property-bag checks required
// before any row is written.
func validateForStore(d *diagram.ParsedDiagram) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := diagram.ValidateProperties(d.Metadata); err != nil {
		return fmt.Errorf("diagram metadata: %w", err)
	}
	for _, el := range d.Elements {
		if err := diagram.ValidateProperties(el.Properties); err != nil {
			return fmt.Errorf("element %q: %w", el.ID, err)
		}
	}
	for _, rel := range d.Relationships {
		if err := diagram.ValidateProperties(rel.Properties); err != nil {
			return fmt.Errorf("relationship %q: %w", rel.ID, err)
		}
	}
	return nil
}

// marshalJSON serializes v, mapping nil-ish values to SQL NULL.
func marshalJSON(v any) (any, error) {
	switch val := v.(type) {
	case diagram.Properties:
		if len(val) == 0 {
			return nil, nil
		}
	case []string:
		if len(val) == 0 {
			return nil, nil
		}
	case *diagram.Position:
		if val == nil {
			return nil, nil
		}
	case nil:
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (r diagramRow) toRecord() (*DiagramRecord, error) {
	rec := &DiagramRecord{
		ID:         r.ID,
		SourceFile: r.SourceFile,
		Type:       diagram.Type(r.DiagramType),
	}

	if err := decodeJSONColumn(r.Metadata, &rec.Metadata, "diagrams", "metadata", r.ID); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(r.Tags, &rec.Tags, "diagrams", "tags", r.ID); err != nil {
		return nil, err
	}

	var err error
	if rec.CreatedAt, err = parseTimestamp(r.CreatedAt); err != nil {
		return nil, &CorruptDataError{Table: "diagrams", Column: "created_at", RowID: r.ID, Err: err}
	}
	if rec.UpdatedAt, err = parseTimestamp(r.UpdatedAt); err != nil {
		return nil, &CorruptDataError{Table: "diagrams", Column: "updated_at", RowID: r.ID, Err: err}
	}
	return rec, nil
}

func (r elementRow) toRecord() (*ElementRecord, error) {
	rec := &ElementRecord{
		RowID:     r.ID,
		DiagramID: r.DiagramID,
		Element: diagram.Element{
			ID:   r.ElementID,
			Type: diagram.ElementType(r.ElementType),
			Name: r.Name,
		},
	}

	if err := decodeJSONColumn(r.Properties, &rec.Element.Properties, "elements", "properties", r.ID); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(r.Position, &rec.Element.Position, "elements", "position", r.ID); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(r.Tags, &rec.Element.Tags, "elements", "tags", r.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r relationshipRow) toRecord() (*RelationshipRecord, error) {
	rec := &RelationshipRecord{
		RowID:     r.ID,
		DiagramID: r.DiagramID,
		Relationship: diagram.Relationship{
			ID:       r.RelationshipID,
			SourceID: r.SourceElementID,
			TargetID: r.TargetElementID,
			Type:     r.RelationshipType,
		},
	}

	if err := decodeJSONColumn(r.Properties, &rec.Relationship.Properties, "relationships", "properties", r.ID); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(r.Tags, &rec.Relationship.Tags, "relationships", "tags", r.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

// decodeJSONColumn deserializes a nullable JSON column into out. A
// payload that fails to decode is a CorruptDataError, never an empty
// result.
func decodeJSONColumn(col sql.NullString, out any, table, column string, rowID int64) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(col.String), out); err != nil {
		return &CorruptDataError{Table: table, Column: column, RowID: rowID, Err: err}
	}
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
