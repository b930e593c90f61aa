// Package config holds the explicit, immutable configuration value passed
// into each pipeline stage, replacing the ambient-global-state pattern
// spec.md §9's Design Notes calls out (entity base types, migration roots,
// inline-SQL hot methods, inline-SQL roots were all package-level globals
// in the source this indexer is modeled on).
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config is the full set of inputs spec.md §6 lists for the core: file
// roots, the output directory, and the recognized options record.
type Config struct {
	RepoRoot string
	SQLRoot  string

	CodeRoots      []string
	MigrationRoots []string // falls back to CodeRoots when empty, per spec.md §4.4
	InlineSQLRoots []string // falls back to CodeRoots when empty

	OutDir string

	EntityBaseTypes          []string
	InlineSQLExtraHotMethods []string

	Workers int

	// Sink DSNs, loaded from the environment (via .env through godotenv,
	// matching the teacher's model/graph.go init()). Empty means disabled.
	Neo4jURI, Neo4jUser, Neo4jPass string
	PostgresDSN                    string
	OracleDSN                      string
}

func init() {
	_ = godotenv.Load()
}

// EffectiveMigrationRoots returns MigrationRoots, or CodeRoots if empty.
func (c Config) EffectiveMigrationRoots() []string {
	if len(c.MigrationRoots) > 0 {
		return c.MigrationRoots
	}
	return c.CodeRoots
}

// EffectiveInlineSQLRoots returns InlineSQLRoots, or CodeRoots if empty.
func (c Config) EffectiveInlineSQLRoots() []string {
	if len(c.InlineSQLRoots) > 0 {
		return c.InlineSQLRoots
	}
	return c.CodeRoots
}

// LoadSinkEnv fills the sink DSN fields from environment variables: the
// teacher's NewNeo4jClient names NEO4J_URI/NEO4J_USER/NEO4J_PASS for Neo4j,
// and CODEGRAPH_POSTGRES_DSN / CODEGRAPH_ORACLE_DSN for the two SQL sinks.
func (c *Config) LoadSinkEnv() {
	c.Neo4jURI = os.Getenv("NEO4J_URI")
	c.Neo4jUser = os.Getenv("NEO4J_USER")
	c.Neo4jPass = os.Getenv("NEO4J_PASS")
	c.PostgresDSN = os.Getenv("CODEGRAPH_POSTGRES_DSN")
	c.OracleDSN = os.Getenv("CODEGRAPH_ORACLE_DSN")
}

// Validate checks the mandatory-root conditions spec.md §7 treats as fatal
// input-not-found errors.
func (c Config) Validate() error {
	if c.SQLRoot == "" && len(c.CodeRoots) == 0 {
		return fmt.Errorf("config: at least one of sql root or code roots must be set")
	}
	if c.SQLRoot != "" {
		if info, err := os.Stat(c.SQLRoot); err != nil || !info.IsDir() {
			return fmt.Errorf("config: sql root %q is not a readable directory", c.SQLRoot)
		}
	}
	for _, root := range c.CodeRoots {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			return fmt.Errorf("config: code root %q is not a readable directory", root)
		}
	}
	if c.OutDir == "" {
		return fmt.Errorf("config: output directory must be set")
	}
	return nil
}
