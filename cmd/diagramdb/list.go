package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/duskhollow/diagramdb/internal/config"
	"github.com/duskhollow/diagramdb/internal/diagram"
	"github.com/duskhollow/diagramdb/internal/store"
)

func runList(cfg *config.ProjectConfig, logger *zap.Logger) error {
	s, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.ListDiagrams(context.Background())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no diagrams stored")
		return nil
	}

	for _, rec := range records {
		line := fmt.Sprintf("%d\t%s\t%s\t%s", rec.ID, rec.Type, rec.SourceFile,
			rec.CreatedAt.Local().Format(time.DateTime))
		if len(rec.Tags) > 0 {
			line += "\t[" + strings.Join(rec.Tags, ",") + "]"
		}
		fmt.Println(line)
	}
	return nil
}

func runElements(cfg *config.ProjectConfig, logger *zap.Logger, args []string) error {
	id, args, err := takeDiagramID("elements", args)
	if err != nil {
		return err
	}
	filter := store.ElementFilter{}
	for i := 0; i+1 < len(args); i += 2 {
		switch args[i] {
		case "-type":
			filter.Types = append(filter.Types, diagram.ElementType(args[i+1]))
		case "-tag":
			filter.Tag = args[i+1]
		default:
			return fmt.Errorf("elements: unknown flag %q", args[i])
		}
	}

	s, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	elements, err := s.GetElements(ctx, id, filter)
	if err != nil {
		return err
	}
	relationships, err := s.GetRelationships(ctx, id, store.RelationshipFilter{})
	if err != nil {
		return err
	}

	fmt.Printf("elements (%d):\n", len(elements))
	for _, el := range elements {
		fmt.Printf("  %s\t%s\t%s\n", el.ID, el.Type, el.Name)
	}
	fmt.Printf("relationships (%d):\n", len(relationships))
	for _, rel := range relationships {
		fmt.Printf("  %s\t%s -> %s\t%s\n", rel.ID, rel.SourceID, rel.TargetID, rel.Type)
	}
	return nil
}

func runDelete(cfg *config.ProjectConfig, logger *zap.Logger, args []string) error {
	id, _, err := takeDiagramID("delete", args)
	if err != nil {
		return err
	}

	s, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DeleteDiagram(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("deleted diagram %d\n", id)
	return nil
}

// takeDiagramID pops a numeric diagram id off the front of args.
func takeDiagramID(cmd string, args []string) (int64, []string, error) {
	if len(args) == 0 {
		return 0, nil, fmt.Errorf("%s: diagram id required", cmd)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: bad diagram id %q", cmd, args[0])
	}
	return id, args[1:], nil
}
