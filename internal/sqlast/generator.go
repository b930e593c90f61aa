package sqlast

import (
	"strings"
	"sync"
)

// generatorMu guards GenerateScript. Spec §5 describes the SQL
// pretty-printer as carrying process-wide state, serialized by a dedicated
// mutex for the duration of each call; this parser's generator has no
// mutable global state of its own, but the mutex is kept so every caller
// pays the same serialization cost the concurrency model assumes.
var generatorMu sync.Mutex

// GenerateScript re-serializes a statement's source span for body
// extraction: trailing semicolons/whitespace trimmed, trailing blank lines
// collapsed. It is the "SQL generator" spec §4.2 step 5 calls out.
func GenerateScript(stmtText string) string {
	generatorMu.Lock()
	defer generatorMu.Unlock()

	text := strings.TrimRight(strings.TrimSpace(stmtText), ";")
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n") + "\n"
}
