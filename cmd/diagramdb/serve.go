package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/duskhollow/diagramdb/internal/config"
	"github.com/duskhollow/diagramdb/internal/mcptools"
)

func runServeMCP(cfg *config.ProjectConfig, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("serve-mcp", flag.ContinueOnError)
	addr := fs.String("addr", cfg.MCPAddr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := mcptools.NewDiagramService(s, logger)
	fmt.Printf("diagramdb MCP server listening on %s\n", *addr)
	return mcptools.RunMCPServer(ctx, svc, *addr)
}
