package mcptools

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskhollow/diagramdb/internal/store"
)

// setupServerClient wires an MCP server and client together using
// in-memory transports. It returns the connected client session and the
// backing store so tests can seed data.
func setupServerClient(t *testing.T) (*mcp.ClientSession, store.Store) {
	t.Helper()

	s := store.NewMemStore()
	svc := NewDiagramService(s, nil)
	server := NewDiagramMCPServer(svc)

	st, ct := mcp.NewInMemoryTransports()

	ctx := context.Background()

	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
	})

	return session, s
}

// TestMCPListTools verifies that the server exposes exactly the diagram
// tools.
func TestMCPListTools(t *testing.T) {
	session, _ := setupServerClient(t)
	ctx := context.Background()

	result, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)

	expected := []string{
		"analyze_diagram",
		"export_diagram",
		"get_elements",
		"list_diagrams",
		"parse_diagram",
		"search",
	}
	assert.Equal(t, expected, names)
}

// TestMCPParseAndAnalyze runs the full loop over the wire: parse and
// store a diagram, then analyze it by id.
func TestMCPParseAndAnalyze(t *testing.T) {
	session, _ := setupServerClient(t)
	ctx := context.Background()

	parseResult, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: "parse_diagram",
		Arguments: ParseDiagramInput{
			Content: "classDiagram\nA --> B\nclass C",
			Store:   true,
		},
	})
	require.NoError(t, err)
	require.False(t, parseResult.IsError, "parse_diagram should not return an error")
	require.NotNil(t, parseResult.StructuredContent)

	raw, err := json.Marshal(parseResult.StructuredContent)
	require.NoError(t, err)
	var parsed ParseDiagramOutput
	require.NoError(t, json.Unmarshal(raw, &parsed))
	require.Positive(t, parsed.DiagramID)
	assert.Len(t, parsed.Elements, 3)

	analyzeResult, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "analyze_diagram",
		Arguments: AnalyzeDiagramInput{DiagramID: parsed.DiagramID},
	})
	require.NoError(t, err)
	require.False(t, analyzeResult.IsError)

	raw, err = json.Marshal(analyzeResult.StructuredContent)
	require.NoError(t, err)
	var analyzed AnalyzeDiagramOutput
	require.NoError(t, json.Unmarshal(raw, &analyzed))

	assert.Equal(t, 3, analyzed.Stats.Elements)
	assert.Equal(t, []string{"C"}, analyzed.Integrity.OrphanedElements)
}

// TestMCPSearchOverWire seeds the store directly and searches via the
// tool call.
func TestMCPSearchOverWire(t *testing.T) {
	session, s := setupServerClient(t)
	ctx := context.Background()

	seedDiagram(t, s)

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "search",
		Arguments: SearchInput{Query: "Account"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	var out SearchOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Positive(t, out.Total)
}

// TestMCPCallUnknownTool verifies that calling a non-existent tool
// returns an error.
func TestMCPCallUnknownTool(t *testing.T) {
	session, _ := setupServerClient(t)
	ctx := context.Background()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "nonexistent_tool",
		Arguments: map[string]any{},
	})

	// The MCP SDK may return an error at the protocol level or set
	// IsError on the result. Accept either behavior.
	if err != nil {
		return
	}

	require.NotNil(t, result)
	assert.True(t, result.IsError, "calling an unknown tool should set IsError")
}
