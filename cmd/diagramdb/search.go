package main

import (
	"context"
	"flag"
	"fmt"

	"go.uber.org/zap"

	"github.com/duskhollow/diagramdb/internal/config"
	"github.com/duskhollow/diagramdb/internal/store"
)

func runSearch(cfg *config.ProjectConfig, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	scope := fs.String("scope", "all", "search scope: all, diagrams, elements or relationships")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("search: exactly one query required")
	}

	s, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	hits, err := s.Search(context.Background(), fs.Arg(0), store.SearchScope(*scope))
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for _, hit := range hits {
		fmt.Printf("%s\tdiagram %d\t%s\t%s\n", hit.Scope, hit.DiagramID, hit.Ref, hit.Name)
	}
	return nil
}
