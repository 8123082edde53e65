// Package config loads project-level settings from a diagramdb.yml file.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultDatabasePath is used when neither the config file nor the CLI
// names a database file.
const DefaultDatabasePath = "diagrams.db"

// ProjectConfig holds project-level settings loaded from diagramdb.yml.
type ProjectConfig struct {
	DatabasePath string   `yaml:"databasePath,omitempty"`
	LogLevel     string   `yaml:"logLevel,omitempty"` // debug, info, warn, error
	Verbose      bool     `yaml:"verbose,omitempty"`
	DefaultTags  []string `yaml:"defaultTags,omitempty"` // applied to every ingested diagram
	MCPAddr      string   `yaml:"mcpAddr,omitempty"`     // listen address for the MCP server
}

// Load attempts to read diagramdb.yml or diagramdb.yaml from the given
// directory. Returns a config with defaults filled in (not an error) if
// no config file exists.
func Load(dir string) (*ProjectConfig, error) {
	cfg := &ProjectConfig{}
	for _, name := range []string{"diagramdb.yml", "diagramdb.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
		break
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = DefaultDatabasePath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.MCPAddr == "" {
		cfg.MCPAddr = "127.0.0.1:8379"
	}
	return cfg, nil
}
