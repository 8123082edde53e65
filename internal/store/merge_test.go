package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskhollow/diagramdb/internal/diagram"
)

func twoNodeDiagram(source, a, b string) *diagram.ParsedDiagram {
	d := diagram.NewParsedDiagram(diagram.TypeMermaid, source)
	d.Elements = []diagram.Element{
		{ID: a, Type: diagram.ElementClass, Name: a},
		{ID: b, Type: diagram.ElementClass, Name: b},
	}
	d.Relationships = []diagram.Relationship{
		{ID: "rel_1", SourceID: a, TargetID: b, Type: diagram.RelAssociation},
	}
	return d
}

func TestMerge_CombinesDiagrams(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	id1, err := s.StoreDiagram(ctx, twoNodeDiagram("one.mmd", "A", "B"))
	require.NoError(t, err)
	id2, err := s.StoreDiagram(ctx, twoNodeDiagram("two.mmd", "A", "C"))
	require.NoError(t, err)

	mergedID, err := Merge(ctx, s, []int64{id1, id2}, "merged.mmd")
	require.NoError(t, err)

	rec, err := s.GetDiagram(ctx, mergedID)
	require.NoError(t, err)
	assert.Equal(t, "merged.mmd", rec.SourceFile)
	assert.Equal(t, diagram.TypeMermaid, rec.Type)
	assert.Contains(t, rec.Tags, "merged")

	// Both diagrams declare an element "A"; remapping must keep all four
	// elements distinct.
	elements, err := s.GetElements(ctx, mergedID, ElementFilter{})
	require.NoError(t, err)
	assert.Len(t, elements, 4)

	seen := map[string]struct{}{}
	for _, el := range elements {
		_, dup := seen[el.ID]
		assert.False(t, dup, "duplicate merged element id %s", el.ID)
		seen[el.ID] = struct{}{}
	}

	relationships, err := s.GetRelationships(ctx, mergedID, RelationshipFilter{})
	require.NoError(t, err)
	require.Len(t, relationships, 2)
	for _, rel := range relationships {
		_, srcOK := seen[rel.SourceID]
		_, tgtOK := seen[rel.TargetID]
		assert.True(t, srcOK && tgtOK, "relationship %s has unmapped endpoints", rel.ID)
	}
}

func TestMerge_TagsRecordOrigin(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	id1, err := s.StoreDiagram(ctx, twoNodeDiagram("one.mmd", "A", "B"))
	require.NoError(t, err)

	mergedID, err := Merge(ctx, s, []int64{id1}, "solo.mmd")
	require.NoError(t, err)

	elements, err := s.GetElements(ctx, mergedID, ElementFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, elements)
	for _, el := range elements {
		assert.Contains(t, el.Tags, "from_diagram_1")
	}
}

func TestMerge_UnknownDiagram(t *testing.T) {
	s := NewMemStore()
	_, err := Merge(context.Background(), s, []int64{42}, "x.mmd")
	assert.True(t, IsNotFound(err))
}

func TestMerge_NoIDs(t *testing.T) {
	s := NewMemStore()
	_, err := Merge(context.Background(), s, nil, "x.mmd")
	assert.Error(t, err)
}
