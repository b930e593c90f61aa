// Package orchestrator sequences the pipeline described in spec.md §4.7:
// SqlGraphBuilder → EfGraphBuilder → MigrationAnalyzer → InlineSqlScanner →
// GraphModel.Finalize → ArtifactWriter, skipping any stage whose input root
// is empty and isolating per-stage failures per spec.md §7.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codegraph/internal/artifact"
	"codegraph/internal/config"
	"codegraph/internal/csast"
	"codegraph/internal/efgraph"
	"codegraph/internal/inlinesql"
	"codegraph/internal/migration"
	"codegraph/internal/model"
	"codegraph/internal/pipeline"
	"codegraph/internal/sqlgraph"
)

// Result summarizes one run, letting cmd/codegraph print the teacher's
// style of final stats line.
type Result struct {
	SQLStats          *sqlgraph.Stats
	NodeCount         int
	EdgeCount         int
	DocCount          int
	MigrationsFound   int
	FallbackTriggered bool
}

// Run executes the full pipeline for cfg. It returns a non-nil error only
// for fatal conditions: an invalid or missing mandatory root, a failure
// setting up the docs/bodies output, a failed sqlgraph stage, or a failure
// writing the primary graph artifacts or manifest.
func Run(ctx context.Context, cfg config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	m := model.NewGraphModel()
	bw, err := artifact.NewBodyWriter(cfg.OutDir)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	defer bw.Close()

	res := &Result{}

	// Stage 1: SqlGraphBuilder. Per spec.md §1/§7, a catastrophic failure
	// here is the one stage failure that aborts the whole run.
	if cfg.SQLRoot != "" {
		sb := sqlgraph.NewBuilder(m, bw, cfg.Workers)
		stats, err := sb.Build(ctx, cfg.SQLRoot)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: sqlgraph stage failed: %w", err)
		}
		res.SQLStats = stats
	} else {
		log.Printf("orchestrator: no sql root configured, skipping sqlgraph stage")
	}

	// Stages 2-4 operate over the same parsed C# file set, so parse once.
	var csFiles []*csast.File
	relPaths := map[*csast.File]string{}
	rawSources := map[string]string{}

	if len(cfg.CodeRoots) > 0 {
		csFiles, relPaths, rawSources = parseCSharpRoots(ctx, cfg.CodeRoots, cfg.Workers)
	} else {
		log.Printf("orchestrator: no code roots configured, skipping ef/migration/inline stages")
	}

	if len(csFiles) > 0 {
		func() {
			defer recoverStage("efgraph")
			eb := efgraph.NewBuilder(m, bw, efgraph.Config{EntityBaseTypes: cfg.EntityBaseTypes})
			eb.Build(csFiles, relPaths)
		}()

		func() {
			defer recoverStage("migration")
			migFiles, migRelPaths := filterByRoots(csFiles, relPaths, cfg.EffectiveMigrationRoots())
			mb := migration.NewBuilder(m, bw)
			found := mb.Build(migFiles, migRelPaths)
			res.MigrationsFound = found
			if found == 0 {
				res.FallbackTriggered = true
				migration.Fallback(m, rawSources)
			}
		}()

		func() {
			defer recoverStage("inlinesql")
			inlineFiles, inlineRelPaths := filterByRoots(csFiles, relPaths, cfg.EffectiveInlineSQLRoots())
			ib := inlinesql.NewBuilder(m, bw, inlinesql.Config{ExtraHotMethods: cfg.InlineSQLExtraHotMethods})
			ib.Build(inlineFiles, inlineRelPaths)
		}()
	}

	m.Finalize()

	nodes := m.Nodes()
	edges := m.Edges()
	res.NodeCount = len(nodes)
	res.EdgeCount = len(edges)

	if err := artifact.WriteGraph(cfg.OutDir, artifact.NodeRows(nodes), artifact.EdgeRows(edges)); err != nil {
		return nil, fmt.Errorf("orchestrator: writing graph artifacts: %w", err)
	}

	docCount := 0
	for _, n := range nodes {
		if n.BodyPath != "" {
			docCount++
		}
	}
	res.DocCount = docCount

	if err := artifact.WriteManifest(cfg.OutDir, artifact.Manifest{
		Schema: 1, BuiltAt: time.Now().UTC().Format(time.RFC3339), SQLRoot: cfg.SQLRoot, CodeRoots: cfg.CodeRoots,
		Counts: artifact.ManifestCounts{Nodes: res.NodeCount, Edges: res.EdgeCount, Docs: res.DocCount},
	}); err != nil {
		return nil, fmt.Errorf("orchestrator: writing manifest: %w", err)
	}

	runSinks(ctx, cfg, nodes, edges)

	return res, nil
}

// recoverStage turns a panic from a single stage into a logged warning, per
// spec.md §7's "visitor assertion" recoverable-error category: a malformed
// AST surfaces as a panic deep in a tree-sitter walk, and the stage is
// skipped rather than aborting the whole run.
func recoverStage(stage string) {
	if r := recover(); r != nil {
		log.Printf("orchestrator: %s stage panicked, skipping: %v", stage, r)
	}
}

func parseCSharpRoots(ctx context.Context, roots []string, workers int) ([]*csast.File, map[*csast.File]string, map[string]string) {
	var allPaths []filePathRoot
	for _, root := range roots {
		_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if path != root && sqlgraph.DefaultSkipDirs()[info.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), ".cs") {
				allPaths = append(allPaths, filePathRoot{path: path, root: root})
			}
			return nil
		})
	}

	type parsed struct {
		file *csast.File
		rel  string
		path string
	}
	results := make([]*parsed, len(allPaths))

	pipeline.Run(ctx, indices(len(allPaths)), workers, func(_ context.Context, i int) {
		fp := allPaths[i]
		src, err := os.ReadFile(fp.path)
		if err != nil {
			log.Printf("orchestrator: reading %s: %v", fp.path, err)
			return
		}
		f, err := csast.Parse(fp.path, src)
		if err != nil {
			log.Printf("orchestrator: parsing %s: %v", fp.path, err)
			return
		}
		rel, relErr := filepath.Rel(fp.root, fp.path)
		if relErr != nil {
			rel = fp.path
		}
		results[i] = &parsed{file: f, rel: filepath.ToSlash(rel), path: fp.path}
	})

	var files []*csast.File
	relPaths := map[*csast.File]string{}
	rawSources := map[string]string{}
	for _, p := range results {
		if p == nil {
			continue
		}
		files = append(files, p.file)
		relPaths[p.file] = p.rel
		rawSources[p.rel] = string(p.file.Src)
	}
	return files, relPaths, rawSources
}

type filePathRoot struct {
	path, root string
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// filterByRoots keeps only files whose path falls under one of roots,
// matching spec.md §4.4's "migration roots, falls back to code roots" and
// §4.5's equivalent inline-SQL-roots scoping.
func filterByRoots(files []*csast.File, relPaths map[*csast.File]string, roots []string) ([]*csast.File, map[*csast.File]string) {
	var out []*csast.File
	outRel := map[*csast.File]string{}
	for _, f := range files {
		for _, root := range roots {
			if strings.HasPrefix(f.Path, root) {
				out = append(out, f)
				outRel[f] = relPaths[f]
				break
			}
		}
	}
	return out, outRel
}

func runSinks(ctx context.Context, cfg config.Config, nodes []model.Node, edges []model.Edge) {
	rows := artifact.NodeRows(nodes)
	erows := artifact.EdgeRows(edges)

	var sinks []artifact.GraphSink
	if cfg.Neo4jURI != "" {
		if s, err := artifact.NewNeo4jSink(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPass); err != nil {
			log.Printf("orchestrator: neo4j sink disabled: %v", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	if cfg.PostgresDSN != "" {
		if s, err := artifact.NewPostgresSink(cfg.PostgresDSN); err != nil {
			log.Printf("orchestrator: postgres sink disabled: %v", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	if cfg.OracleDSN != "" {
		if s, err := artifact.NewOracleSink(cfg.OracleDSN); err != nil {
			log.Printf("orchestrator: oracle sink disabled: %v", err)
		} else {
			sinks = append(sinks, s)
		}
	}

	for _, s := range sinks {
		if err := s.WriteGraph(ctx, rows, erows); err != nil {
			log.Printf("orchestrator: %s sink failed: %v", s.Name(), err)
		}
		if err := s.Close(ctx); err != nil {
			log.Printf("orchestrator: closing %s sink: %v", s.Name(), err)
		}
	}
}
