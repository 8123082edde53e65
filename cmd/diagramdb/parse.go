package main

import (
	"context"
	"flag"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/duskhollow/diagramdb/internal/config"
	"github.com/duskhollow/diagramdb/internal/diagram"
	"github.com/duskhollow/diagramdb/internal/parser"
)

// ingestParallelism caps concurrent file parsing. Storage itself is
// serialized by the store.
const ingestParallelism = 4

func runParse(cfg *config.ProjectConfig, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	tag := fs.String("tag", "", "extra tag applied to every ingested diagram")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files := fs.Args()
	if len(files) == 0 {
		return fmt.Errorf("parse: at least one file required")
	}

	s, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()

	// Parse in parallel, store as results arrive.
	var mu sync.Mutex // guards stdout ordering with the store call
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestParallelism)

	for _, file := range files {
		g.Go(func() error {
			d, err := parser.ParseFile(file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			if msg := describeSkips(d); msg != "" {
				logger.Debug("lenient parse", zap.String("file", file), zap.String("detail", msg))
			}
			d.Tags = append(d.Tags, cfg.DefaultTags...)
			if *tag != "" {
				d.Tags = append(d.Tags, *tag)
			}

			mu.Lock()
			defer mu.Unlock()
			id, err := s.StoreDiagram(ctx, d)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			fmt.Printf("%s: stored as diagram %d (%s, %d elements, %d relationships)\n",
				file, id, d.Type, len(d.Elements), len(d.Relationships))
			return nil
		})
	}

	return g.Wait()
}

// describeSkips summarizes parser leniency metadata for verbose output.
func describeSkips(d *diagram.ParsedDiagram) string {
	if skipped, ok := d.Metadata["skippedLines"]; ok {
		return fmt.Sprintf("skipped lines: %v", skipped)
	}
	if skipped, ok := d.Metadata["skippedCells"]; ok {
		return fmt.Sprintf("skipped cells: %v", skipped)
	}
	return ""
}
