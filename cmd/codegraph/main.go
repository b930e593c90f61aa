// cmd/codegraph/main.go
package main

import (
	"context"
	"flag"
	"log"
	"runtime"
	"strings"
	"time"

	"codegraph/internal/config"
	"codegraph/internal/orchestrator"
)

func main() {
	var (
		sqlRoot        string
		codeRoots      string
		migrationRoots string
		inlineRoots    string
		outDir         string
		entityBases    string
		extraHot       string
		workers        int
	)

	flag.StringVar(&sqlRoot, "sql-root", "", "Root directory of *.sql files to index")
	flag.StringVar(&codeRoots, "code-roots", "", "Comma-separated root directories of *.cs files to index")
	flag.StringVar(&migrationRoots, "migration-roots", "", "Comma-separated roots scanned for EF migrations (defaults to code-roots)")
	flag.StringVar(&inlineRoots, "inline-sql-roots", "", "Comma-separated roots scanned for inline SQL literals (defaults to code-roots)")
	flag.StringVar(&outDir, "out", "./codegraph-out", "Output directory for graph/docs/manifest artifacts")
	flag.StringVar(&entityBases, "entity-base-types", "", "Comma-separated base type/interface names that mark a POCO as an EF entity")
	flag.StringVar(&extraHot, "inline-sql-hot-methods", "", "Comma-separated extra method names whose string argument is treated as SQL")
	flag.IntVar(&workers, "workers", runtime.NumCPU(), "Number of parallel workers per stage")
	flag.Parse()

	cfg := config.Config{
		SQLRoot:                  sqlRoot,
		CodeRoots:                splitNonEmpty(codeRoots),
		MigrationRoots:           splitNonEmpty(migrationRoots),
		InlineSQLRoots:           splitNonEmpty(inlineRoots),
		OutDir:                   outDir,
		EntityBaseTypes:          splitNonEmpty(entityBases),
		InlineSQLExtraHotMethods: splitNonEmpty(extraHot),
		Workers:                  workers,
	}
	cfg.LoadSinkEnv()

	start := time.Now()
	ctx := context.Background()

	res, err := orchestrator.Run(ctx, cfg)
	if err != nil {
		log.Fatalf("codegraph: %v", err)
	}

	elapsed := time.Since(start)
	log.Printf("codegraph: done in %s — nodes=%d edges=%d docs=%d migrationsFound=%d fallback=%v",
		elapsed, res.NodeCount, res.EdgeCount, res.DocCount, res.MigrationsFound, res.FallbackTriggered)
	if res.SQLStats != nil {
		log.Printf("codegraph: sql stage — seen=%d parsed=%d skipped=%d errors=%d",
			res.SQLStats.FilesSeen, res.SQLStats.FilesParsed, res.SQLStats.FilesSkipped, res.SQLStats.Errors)
	}
}

func splitNonEmpty(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
