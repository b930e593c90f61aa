package sqlast

import (
	"regexp"
	"strings"
)

var (
	directiveLine = regexp.MustCompile(`(?i)^\s*:(r|setvar|connect|on\s+error\s+exit)\b`)
	sqlcmdVar     = regexp.MustCompile(`\$\([A-Za-z_][A-Za-z0-9_]*\)`)
)

// Preprocess strips sqlcmd directive lines and substitutes every $(name)
// variable reference with the literal token 0, per spec §4.2 step 1.
func Preprocess(src string) string {
	lines := strings.Split(src, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if directiveLine.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	joined := strings.Join(kept, "\n")
	return sqlcmdVar.ReplaceAllString(joined, "0")
}
