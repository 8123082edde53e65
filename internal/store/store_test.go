package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskhollow/diagramdb/internal/diagram"
)

// forEachStore runs fn against every Store implementation so both
// backends keep identical observable behavior.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()

	t.Run("mem", func(t *testing.T) {
		fn(t, NewMemStore())
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), nil)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		require.NoError(t, s.Migrate(context.Background()))
		fn(t, s)
	})
}

// sampleDiagram builds a small class diagram: A -> B (inheritance) plus
// an orphaned C.
func sampleDiagram() *diagram.ParsedDiagram {
	d := diagram.NewParsedDiagram(diagram.TypePlantUML, "sample.puml")
	d.Metadata["title"] = "Sample"
	d.Tags = []string{"architecture"}
	d.Elements = []diagram.Element{
		{ID: "A", Type: diagram.ElementClass, Name: "Alpha",
			Properties: diagram.Properties{"attributes": []string{"+id: int"}}},
		{ID: "B", Type: diagram.ElementInterface, Name: "Beta", Tags: []string{"api"}},
		{ID: "C", Type: diagram.ElementClass, Name: "Gamma",
			Position: &diagram.Position{X: 10, Y: 20}},
	}
	d.Relationships = []diagram.Relationship{
		{ID: "rel_1", SourceID: "A", TargetID: "B", Type: diagram.RelInheritance,
			Properties: diagram.Properties{"direction": "normal"}},
	}
	return d
}

func TestStore_RoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		id, err := s.StoreDiagram(ctx, sampleDiagram())
		require.NoError(t, err)
		require.Positive(t, id)

		rec, err := s.GetDiagram(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "sample.puml", rec.SourceFile)
		assert.Equal(t, diagram.TypePlantUML, rec.Type)
		assert.Equal(t, "Sample", rec.Metadata["title"])
		assert.Equal(t, []string{"architecture"}, rec.Tags)
		assert.False(t, rec.CreatedAt.IsZero())

		elements, err := s.GetElements(ctx, id, ElementFilter{})
		require.NoError(t, err)
		require.Len(t, elements, 3)
		assert.Equal(t, "A", elements[0].ID)
		assert.Equal(t, "Alpha", elements[0].Name)

		c := elements[2]
		require.NotNil(t, c.Position)
		assert.Equal(t, 10.0, c.Position.X)

		relationships, err := s.GetRelationships(ctx, id, RelationshipFilter{})
		require.NoError(t, err)
		require.Len(t, relationships, 1)
		assert.Equal(t, diagram.RelInheritance, relationships[0].Type)
		assert.Equal(t, "normal", relationships[0].Properties["direction"])
	})
}

func TestStore_GetDiagramNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		_, err := s.GetDiagram(context.Background(), 9999)
		assert.True(t, IsNotFound(err), "want NotFoundError, got %v", err)

		_, err = s.GetElements(context.Background(), 9999, ElementFilter{})
		assert.True(t, IsNotFound(err))

		err = s.DeleteDiagram(context.Background(), 9999)
		assert.True(t, IsNotFound(err))
	})
}

func TestStore_ElementFilters(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		id, err := s.StoreDiagram(ctx, sampleDiagram())
		require.NoError(t, err)

		byType, err := s.GetElements(ctx, id, ElementFilter{Types: []diagram.ElementType{diagram.ElementInterface}})
		require.NoError(t, err)
		require.Len(t, byType, 1)
		assert.Equal(t, "B", byType[0].ID)

		byTag, err := s.GetElements(ctx, id, ElementFilter{Tag: "api"})
		require.NoError(t, err)
		require.Len(t, byTag, 1)
		assert.Equal(t, "B", byTag[0].ID)

		none, err := s.GetElements(ctx, id, ElementFilter{Tag: "nope"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestStore_RelationshipFilters(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		id, err := s.StoreDiagram(ctx, sampleDiagram())
		require.NoError(t, err)

		hits, err := s.GetRelationships(ctx, id, RelationshipFilter{Types: []string{diagram.RelInheritance}})
		require.NoError(t, err)
		assert.Len(t, hits, 1)

		none, err := s.GetRelationships(ctx, id, RelationshipFilter{Types: []string{diagram.RelComposition}})
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestStore_Search(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		id, err := s.StoreDiagram(ctx, sampleDiagram())
		require.NoError(t, err)

		// Name match in elements scope.
		hits, err := s.Search(ctx, "Alpha", ScopeElements)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, ScopeElements, hits[0].Scope)
		assert.Equal(t, id, hits[0].DiagramID)
		assert.Equal(t, "A", hits[0].Ref)

		// Source file match in diagrams scope.
		hits, err = s.Search(ctx, "sample", ScopeDiagrams)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "sample.puml", hits[0].Ref)

		// Relationship type match.
		hits, err = s.Search(ctx, "inheritance", ScopeRelationships)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "rel_1", hits[0].Ref)

		// No match.
		hits, err = s.Search(ctx, "nonexistent-term", ScopeAll)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestStore_SearchDeterministicOrdering(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for range 3 {
			_, err := s.StoreDiagram(ctx, sampleDiagram())
			require.NoError(t, err)
		}

		first, err := s.Search(ctx, "Alpha", ScopeElements)
		require.NoError(t, err)
		require.Len(t, first, 3)

		for range 5 {
			again, err := s.Search(ctx, "Alpha", ScopeElements)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}

		// Ascending by (diagram id, row id).
		for i := 1; i < len(first); i++ {
			assert.Less(t, first[i-1].DiagramID, first[i].DiagramID)
		}
	})
}

func TestStore_DeleteCascades(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		id, err := s.StoreDiagram(ctx, sampleDiagram())
		require.NoError(t, err)

		require.NoError(t, s.DeleteDiagram(ctx, id))

		_, err = s.GetDiagram(ctx, id)
		assert.True(t, IsNotFound(err))
		_, err = s.GetElements(ctx, id, ElementFilter{})
		assert.True(t, IsNotFound(err))
		_, err = s.GetRelationships(ctx, id, RelationshipFilter{})
		assert.True(t, IsNotFound(err))

		// No stale element rows surface through search.
		hits, err := s.Search(ctx, "Alpha", ScopeElements)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestStore_RejectsInvalidDiagram(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		dangling := diagram.NewParsedDiagram(diagram.TypeMermaid, "bad.mmd")
		dangling.Elements = []diagram.Element{{ID: "A", Type: diagram.ElementClass, Name: "A"}}
		dangling.Relationships = []diagram.Relationship{
			{ID: "rel_1", SourceID: "A", TargetID: "Ghost", Type: diagram.RelAssociation},
		}

		_, err := s.StoreDiagram(ctx, dangling)
		var verr *diagram.ValidationError
		require.ErrorAs(t, err, &verr)

		// Nothing persisted.
		records, err := s.ListDiagrams(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestStore_RejectsUnserializableProperties(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		d := diagram.NewParsedDiagram(diagram.TypeMermaid, "chan.mmd")
		d.Elements = []diagram.Element{{
			ID: "A", Type: diagram.ElementClass, Name: "A",
			Properties: diagram.Properties{"bad": make(chan int)},
		}}

		_, err := s.StoreDiagram(context.Background(), d)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `element "A"`)
	})
}

func TestStore_ListDiagramsNewestFirst(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		var ids []int64
		for range 3 {
			id, err := s.StoreDiagram(ctx, sampleDiagram())
			require.NoError(t, err)
			ids = append(ids, id)
		}

		records, err := s.ListDiagrams(ctx)
		require.NoError(t, err)
		require.Len(t, records, 3)
		// Identical timestamps fall back to descending id.
		assert.Equal(t, ids[2], records[0].ID)
		assert.Equal(t, ids[0], records[2].ID)
	})
}

func TestStore_CopyOnStore(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		d := sampleDiagram()
		id, err := s.StoreDiagram(ctx, d)
		require.NoError(t, err)

		// Mutating the input after storing must not change stored data.
		d.Elements[0].Name = "Mutated"
		d.Metadata["title"] = "Mutated"

		elements, err := s.GetElements(ctx, id, ElementFilter{})
		require.NoError(t, err)
		assert.Equal(t, "Alpha", elements[0].Name)

		rec, err := s.GetDiagram(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Sample", rec.Metadata["title"])
	})
}
