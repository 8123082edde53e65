// Command diagramdb ingests diagram-as-code files (PlantUML, Mermaid,
// draw.io) into a SQLite database and offers query, search, export and
// analysis over the stored diagrams.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/duskhollow/diagramdb/internal/config"
	"github.com/duskhollow/diagramdb/internal/store"
)

// version is set by goreleaser at build time.
var version = "dev"

const usage = `Usage: diagramdb [flags] <command> [args]

Commands:
  parse <file>...       parse diagram files and store them
  list                  list stored diagrams
  elements <id>         show a diagram's elements and relationships
  search <query>        search across stored diagrams
  export <id>           export a diagram (-format json|csv|mermaid)
  analyze <id>          orphan, cycle and integrity analysis
  stats <id>            element/relationship/tag statistics
  merge <id>...         merge several diagrams into a new one
  delete <id>           delete a diagram and everything it owns
  serve-mcp             run the MCP server over HTTP

Flags:
`

// cliFlags are the global flags shared by every subcommand.
type cliFlags struct {
	DBPath    string
	ConfigDir string
	Verbose   bool
	Version   bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("diagramdb", flag.ContinueOnError)
	fs.StringVar(&flags.DBPath, "db", "", "path to the SQLite database file")
	fs.StringVar(&flags.ConfigDir, "config", ".", "directory containing diagramdb.yml")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable verbose output")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if flags.Version {
		fmt.Println(version)
		return nil
	}

	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.DBPath != "" {
		cfg.DatabasePath = flags.DBPath
	}
	if flags.Verbose {
		cfg.Verbose = true
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return fmt.Errorf("missing command")
	}
	cmd, cmdArgs := rest[0], rest[1:]

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	switch cmd {
	case "parse":
		return runParse(cfg, logger, cmdArgs)
	case "list":
		return runList(cfg, logger)
	case "elements":
		return runElements(cfg, logger, cmdArgs)
	case "search":
		return runSearch(cfg, logger, cmdArgs)
	case "export":
		return runExport(cfg, logger, cmdArgs)
	case "analyze":
		return runAnalyze(cfg, logger, cmdArgs)
	case "stats":
		return runStats(cfg, logger, cmdArgs)
	case "merge":
		return runMerge(cfg, logger, cmdArgs)
	case "delete":
		return runDelete(cfg, logger, cmdArgs)
	case "serve-mcp":
		return runServeMCP(cfg, logger, cmdArgs)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// openStore opens the configured SQLite database and migrates the
// schema.
func openStore(cfg *config.ProjectConfig, logger *zap.Logger) (store.Store, error) {
	s, err := store.OpenSQLite(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func newLogger(cfg *config.ProjectConfig) (*zap.Logger, error) {
	if cfg.Verbose {
		return zap.NewDevelopment()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
