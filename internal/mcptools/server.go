package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewDiagramMCPServer creates an MCP server with all diagram tools
// registered.
func NewDiagramMCPServer(svc *DiagramService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "diagramdb",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "parse_diagram",
		Description: "Parse diagram source text (PlantUML, Mermaid or draw.io XML) into elements and relationships. Set store=true to persist the result and get back a diagram id.",
	}, svc.ParseDiagram)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_diagrams",
		Description: "List every stored diagram with its source file, format, metadata, tags and timestamps, newest first.",
	}, svc.ListDiagrams)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_elements",
		Description: "Return the elements and relationships of one stored diagram. Elements can be filtered by type or tag.",
	}, svc.GetElements)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search",
		Description: "Substring search across stored diagrams, elements and relationships: names, ids, types, properties and tags all match.",
	}, svc.Search)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_diagram",
		Description: "Render a stored diagram as full-fidelity JSON, flat CSV or Mermaid source.",
	}, svc.ExportDiagram)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_diagram",
		Description: "Compute statistics and an integrity report for a stored diagram: type counts, tag usage, orphaned elements, missing endpoints and circular dependencies.",
	}, svc.AnalyzeDiagram)

	return server
}

// RunMCPServer starts an HTTP server exposing the diagram MCP tools.
func RunMCPServer(ctx context.Context, svc *DiagramService, addr string) error {
	server := NewDiagramMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
