package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/duskhollow/diagramdb/internal/config"
	"github.com/duskhollow/diagramdb/internal/export"
)

func runExport(cfg *config.ProjectConfig, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	format := fs.String("format", "json", "export format: json, csv or mermaid")
	output := fs.String("o", "", "write to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, _, err := takeDiagramID("export", fs.Args())
	if err != nil {
		return err
	}

	f, err := export.ParseFormat(*format)
	if err != nil {
		return err
	}

	s, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	data, err := export.ExportDiagram(context.Background(), s, id, f)
	if err != nil {
		return err
	}

	if *output != "" {
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", *output, err)
		}
		fmt.Printf("wrote %s (%d bytes)\n", *output, len(data))
		return nil
	}
	os.Stdout.Write(data)
	return nil
}
