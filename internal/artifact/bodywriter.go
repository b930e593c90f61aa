package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// BodyWriter streams per-object body files and the docs/sql_bodies.jsonl
// index during a build. Per spec §5, body-file writes use per-file paths
// (no contention) while JSONL appends share a single writer guarded by a
// mutex.
type BodyWriter struct {
	outDir string

	jsonlMu   sync.Mutex
	jsonlFile *os.File
}

// NewBodyWriter creates docs/bodies under outDir and opens
// docs/sql_bodies.jsonl for append.
func NewBodyWriter(outDir string) (*BodyWriter, error) {
	bodiesDir := filepath.Join(outDir, "docs", "bodies")
	if err := os.MkdirAll(bodiesDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating docs/bodies: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(outDir, "docs", "sql_bodies.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening sql_bodies.jsonl: %w", err)
	}
	return &BodyWriter{outDir: outDir, jsonlFile: f}, nil
}

// WriteBody writes content to docs/bodies/relName. Each body key is owned
// by whichever stage first inserted its node (spec §5's "first to insert
// the node owns its body path"), so callers must only invoke WriteBody
// after a successful node insertion.
func (w *BodyWriter) WriteBody(relName, content string) (string, error) {
	relPath := filepath.ToSlash(filepath.Join("docs", "bodies", relName))
	fullPath := filepath.Join(w.outDir, "docs", "bodies", relName)
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing body %s: %w", relName, err)
	}
	return relPath, nil
}

// AppendJSONL appends one JSON-encoded record line, guarded by jsonlMu.
func (w *BodyWriter) AppendJSONL(record BodyRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling body record %s: %w", record.Key, err)
	}

	w.jsonlMu.Lock()
	defer w.jsonlMu.Unlock()
	if _, err := w.jsonlFile.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending sql_bodies.jsonl: %w", err)
	}
	return nil
}

// Close flushes and closes the JSONL file.
func (w *BodyWriter) Close() error {
	return w.jsonlFile.Close()
}
