package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/duskhollow/diagramdb/internal/analysis"
	"github.com/duskhollow/diagramdb/internal/config"
)

func runAnalyze(cfg *config.ProjectConfig, logger *zap.Logger, args []string) error {
	id, _, err := takeDiagramID("analyze", args)
	if err != nil {
		return err
	}

	s, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	orphans, err := analysis.FindOrphanedElements(ctx, s, id)
	if err != nil {
		return err
	}
	report, err := analysis.CheckIntegrity(ctx, s, id)
	if err != nil {
		return err
	}

	fmt.Println(report.String())
	if len(orphans) > 0 {
		fmt.Printf("orphaned elements (%d):\n", len(orphans))
		for _, el := range orphans {
			fmt.Printf("  %s\t%s\t%s\n", el.ID, el.Type, el.Name)
		}
	}
	if len(report.Cycles) > 0 {
		fmt.Printf("cycles (%d):\n", len(report.Cycles))
		for _, cycle := range report.Cycles {
			fmt.Printf("  %s -> %s\n", strings.Join(cycle, " -> "), cycle[0])
		}
	}
	return nil
}

func runStats(cfg *config.ProjectConfig, logger *zap.Logger, args []string) error {
	id, _, err := takeDiagramID("stats", args)
	if err != nil {
		return err
	}

	s, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := analysis.DiagramStats(context.Background(), s, id)
	if err != nil {
		return err
	}

	fmt.Printf("elements: %d\nrelationships: %d\norphans: %d\ncycles: %d\n",
		stats.Elements, stats.Relationships, stats.Orphans, stats.Cycles)
	printCounts("element types", stats.ElementTypes)
	printCounts("relationship types", stats.RelationshipTypes)
	printCounts("tags", stats.TagCounts)
	return nil
}

// printCounts emits a count map sorted by key for stable output.
func printCounts(label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("%s:\n", label)
	for _, k := range keys {
		fmt.Printf("  %s: %d\n", k, counts[k])
	}
}
