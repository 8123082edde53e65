package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/duskhollow/diagramdb/internal/config"
	"github.com/duskhollow/diagramdb/internal/store"
)

func runMerge(cfg *config.ProjectConfig, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	name := fs.String("name", "merged", "source name recorded for the merged diagram")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("merge: at least two diagram ids required")
	}

	ids := make([]int64, 0, fs.NArg())
	for _, arg := range fs.Args() {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("merge: bad diagram id %q", arg)
		}
		ids = append(ids, id)
	}

	s, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	mergedID, err := store.Merge(context.Background(), s, ids, *name)
	if err != nil {
		return err
	}
	fmt.Printf("merged %d diagrams into diagram %d\n", len(ids), mergedID)
	return nil
}
