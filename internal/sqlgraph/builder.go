// Package sqlgraph implements the T-SQL extractor described in spec §4.2:
// it walks *.sql files, parses each into batches and statements via
// internal/sqlast, and emits define/reference nodes and edges into a shared
// internal/model.GraphModel.
package sqlgraph

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"codegraph/internal/artifact"
	"codegraph/internal/model"
	"codegraph/internal/pipeline"
	"codegraph/internal/sqlast"
)

// Stats counts per-run outcomes, mirroring the teacher's mutex-guarded
// stats struct in cmd/codeparser/main.go.
type Stats struct {
	FilesSeen    int64
	FilesParsed  int64
	FilesSkipped int64
	Errors       int64
}

// Builder walks a SQL root and populates a shared graph.
type Builder struct {
	Model   *model.GraphModel
	Bodies  *artifact.BodyWriter
	Workers int

	SkipDirs map[string]bool
}

// NewBuilder constructs a Builder with the default skip-dir set.
func NewBuilder(m *model.GraphModel, bw *artifact.BodyWriter, workers int) *Builder {
	return &Builder{Model: m, Bodies: bw, Workers: workers, SkipDirs: DefaultSkipDirs()}
}

// Build walks root for *.sql files and processes each, returning aggregate
// stats. It returns an error only when the directory walk fails (for
// example, a missing root); per-file read errors are counted in
// Stats.Errors and logged, and the remaining files are still processed.
func (b *Builder) Build(ctx context.Context, root string) (*Stats, error) {
	files, err := b.collectFiles(root)
	if err != nil {
		return nil, fmt.Errorf("walking sql root %s: %w", root, err)
	}

	stats := &Stats{}
	pipeline.Run(ctx, files, b.Workers, func(ctx context.Context, path string) {
		atomic.AddInt64(&stats.FilesSeen, 1)
		if err := b.processFile(root, path); err != nil {
			atomic.AddInt64(&stats.Errors, 1)
			log.Printf("sqlgraph: %v", err)
			return
		}
		atomic.AddInt64(&stats.FilesParsed, 1)
	})
	return stats, nil
}

func (b *Builder) collectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && b.SkipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".sql") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (b *Builder) processFile(root, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	relFile := filepath.ToSlash(relOrSelf(root, path))
	domain := domainOf(root, path)

	batches := sqlast.ParseScript(string(raw))
	for _, batch := range batches {
		b.processBatch(path, relFile, domain, batch)
	}
	return nil
}

func relOrSelf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

func domainOf(root, path string) string {
	rel := relOrSelf(root, path)
	rel = filepath.ToSlash(rel)
	if i := strings.Index(rel, "/"); i >= 0 {
		return rel[:i]
	}
	return ""
}

var defineKinds = map[sqlast.StatementKind]model.Kind{
	sqlast.StmtCreateTable:    model.KindTable,
	sqlast.StmtCreateView:     model.KindView,
	sqlast.StmtAlterView:      model.KindView,
	sqlast.StmtCreateProc:     model.KindProc,
	sqlast.StmtAlterProc:      model.KindProc,
	sqlast.StmtCreateFunction: model.KindFunc,
	sqlast.StmtAlterFunction:  model.KindFunc,
	sqlast.StmtCreateTrigger:  model.KindTrigger,
	sqlast.StmtCreateType:     model.KindType,
	sqlast.StmtCreateSequence: model.KindSequence,
	sqlast.StmtCreateSynonym:  model.KindSynonym,
	sqlast.StmtAlterTableAdd:  model.KindTable,
}

func (b *Builder) processBatch(path, relFile, domain string, batch sqlast.Batch) {
	stmtTexts := sqlast.SplitStatements(batch.Text)

	var anchorKey string
	var pseudoOnce sync.Once
	ensurePseudo := func() string {
		pseudoOnce.Do(func() {
			kind := model.KindBatch
			base := filepath.Base(path)
			if base == "PreDeployment.sql" || base == "PostDeployment.sql" {
				kind = model.KindDeploy
			}
			qualifier := fmt.Sprintf("%s#batch%d", base, batch.Index)
			key := model.MakeKey(qualifier, kind)
			b.Model.TryAddNode(model.Node{
				Key: key, Kind: kind, Name: base, Schema: "", File: relFile,
				Batch: batch.Index, Domain: domain,
			})
			anchorKey = key
		})
		return anchorKey
	}

	for _, stmtText := range stmtTexts {
		stmt := sqlast.Classify(stmtText)

		if kind, ok := defineKinds[stmt.Kind]; ok {
			key := model.MakeKey(stmt.Schema+"."+stmt.Name, kind)
			inserted := b.Model.TryAddNode(model.Node{
				Key: key, Kind: kind, Name: stmt.Name, Schema: stmt.Schema,
				File: relFile, Batch: batch.Index, Domain: domain,
			})
			anchorKey = key

			switch stmt.Kind {
			case sqlast.StmtCreateTrigger:
				targetKey := model.MakeKey(stmt.TargetSchema+"."+stmt.TargetName, model.KindTableOrView)
				b.Model.AddEdge(model.Edge{From: key, To: targetKey, Relation: model.RelOn, ToKind: model.KindTableOrView, File: relFile, Batch: batch.Index})
			case sqlast.StmtCreateSynonym:
				targetKey := model.MakeKey(stmt.TargetSchema+"."+stmt.TargetName, model.KindTableOrView)
				b.Model.AddEdge(model.Edge{From: key, To: targetKey, Relation: model.RelSynonymFor, ToKind: model.KindTableOrView, File: relFile, Batch: batch.Index})
			}

			for _, fk := range stmt.ForeignKeyTargets {
				targetKey := model.MakeKey(fk.String(), model.KindTable)
				b.Model.AddEdge(model.Edge{From: key, To: targetKey, Relation: model.RelForeignKey, ToKind: model.KindTable, File: relFile, Batch: batch.Index})
			}
			for _, ref := range stmt.ReadsFrom {
				targetKey := model.MakeKey(ref.String(), model.KindTableOrView)
				b.Model.AddEdge(model.Edge{From: key, To: targetKey, Relation: model.RelReadsFrom, ToKind: model.KindTableOrView, File: relFile, Batch: batch.Index})
			}
			for _, w := range stmt.WritesTo {
				targetKey := model.MakeKey(w.String(), model.KindTable)
				b.Model.AddEdge(model.Edge{From: key, To: targetKey, Relation: model.RelWritesTo, ToKind: model.KindTable, File: relFile, Batch: batch.Index})
			}

			if inserted && kind.BodyBearing() && b.Bodies != nil {
				b.emitBody(key, kind, stmt.Schema, stmt.Name, stmt.Text, relFile)
			}
			continue
		}

		// Loose reference statement: anchor to the most recent definition
		// in this batch, or to the batch's pseudo-define if none has
		// appeared yet.
		source := anchorKey
		if source == "" {
			source = ensurePseudo()
		}
		for _, ref := range stmt.ReadsFrom {
			targetKey := model.MakeKey(ref.String(), model.KindTableOrView)
			b.Model.AddEdge(model.Edge{From: source, To: targetKey, Relation: model.RelReadsFrom, ToKind: model.KindTableOrView, File: relFile, Batch: batch.Index})
		}
		for _, w := range stmt.WritesTo {
			targetKey := model.MakeKey(w.String(), model.KindTable)
			b.Model.AddEdge(model.Edge{From: source, To: targetKey, Relation: model.RelWritesTo, ToKind: model.KindTable, File: relFile, Batch: batch.Index})
		}
		for _, ex := range stmt.Executes {
			targetKey := model.MakeKey(ex.String(), model.KindProc)
			b.Model.AddEdge(model.Edge{From: source, To: targetKey, Relation: model.RelExecutes, ToKind: model.KindProc, File: relFile, Batch: batch.Index})
		}
	}

	if anchorKey == "" {
		ensurePseudo()
	}
}

func (b *Builder) emitBody(key string, kind model.Kind, schema, name, text, relFile string) {
	relName := fmt.Sprintf("%s.%s.%s.sql", schema, name, kind)
	content := sqlast.GenerateScript(text)
	bodyPath, err := b.Bodies.WriteBody(relName, content)
	if err != nil {
		log.Printf("sqlgraph: writing body for %s: %v", key, err)
		return
	}
	b.Model.EnrichNode(key, func(n *model.Node) { n.BodyPath = bodyPath })
	if err := b.Bodies.AppendJSONL(artifact.BodyRecord{
		Kind: string(kind), Key: key, File: relFile, BodyPath: bodyPath, Body: content,
	}); err != nil {
		log.Printf("sqlgraph: appending jsonl for %s: %v", key, err)
	}
}
