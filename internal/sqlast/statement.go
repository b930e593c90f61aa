package sqlast

import (
	"regexp"
	"strings"
)

// StatementKind classifies a single top-level T-SQL statement.
type StatementKind string

const (
	StmtCreateTable     StatementKind = "CreateTable"
	StmtCreateView      StatementKind = "CreateView"
	StmtCreateProc      StatementKind = "CreateProc"
	StmtCreateFunction  StatementKind = "CreateFunction"
	StmtCreateTrigger   StatementKind = "CreateTrigger"
	StmtCreateType      StatementKind = "CreateType"
	StmtCreateSequence  StatementKind = "CreateSequence"
	StmtCreateSynonym   StatementKind = "CreateSynonym"
	StmtAlterTableAdd   StatementKind = "AlterTableAdd"
	StmtAlterView       StatementKind = "AlterView"
	StmtAlterProc       StatementKind = "AlterProc"
	StmtAlterFunction   StatementKind = "AlterFunction"
	StmtInsert          StatementKind = "Insert"
	StmtUpdate          StatementKind = "Update"
	StmtDelete          StatementKind = "Delete"
	StmtMerge           StatementKind = "Merge"
	StmtExecute         StatementKind = "Execute"
	StmtOther           StatementKind = "Other"
)

// Statement is one classified top-level statement within a batch.
type Statement struct {
	Kind StatementKind
	Text string // original source span, comments preserved

	Schema, Name string // the object this statement defines or targets

	// CreateTrigger: the table the trigger fires on.
	// CreateSynonym: the base object the synonym refers to.
	TargetSchema, TargetName string

	// CREATE/ALTER TABLE ADD: principal tables of any inline/table-level
	// FOREIGN KEY ... REFERENCES constraints.
	ForeignKeyTargets []QualifiedName

	ReadsFrom []QualifiedName // NamedTableReference-equivalent (FROM/JOIN), MERGE USING
	WritesTo  []QualifiedName // INSERT/UPDATE/DELETE/MERGE target
	Executes  []QualifiedName // EXEC/EXECUTE targets
}

var wholeBatchDef = regexp.MustCompile(`(?is)^\s*CREATE\s+(OR\s+ALTER\s+)?(PROC(?:EDURE)?|FUNCTION|VIEW)\b|^\s*ALTER\s+(PROC(?:EDURE)?|FUNCTION|VIEW)\b|^\s*CREATE\s+TRIGGER\b`)

// SplitStatements splits one preprocessed batch into top-level statements.
// A batch that opens with CREATE/ALTER PROCEDURE, FUNCTION, VIEW, or CREATE
// TRIGGER is treated as a single statement spanning the whole batch — T-SQL
// requires these to be the sole statement in their batch, and their bodies
// are themselves full of internal semicolons that must not be split on.
// Every other batch is split on top-level (outside comments/strings/parens)
// semicolons.
func SplitStatements(batchText string) []string {
	if wholeBatchDef.MatchString(mustMaskedHead(batchText)) {
		trimmed := strings.TrimSpace(batchText)
		if trimmed == "" {
			return nil
		}
		return []string{batchText}
	}

	masked := mask(batchText)
	var stmts []string
	depth := 0
	start := 0
	for i := 0; i < len(masked); i++ {
		switch masked[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				if s := strings.TrimSpace(batchText[start:i]); s != "" {
					stmts = append(stmts, batchText[start:i])
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(batchText[start:]); s != "" {
		stmts = append(stmts, batchText[start:])
	}
	return stmts
}

func mustMaskedHead(text string) string {
	m := mask(text)
	if len(m) > 256 {
		m = m[:256]
	}
	return string(m)
}

var (
	reCreateTable    = regexp.MustCompile(`(?is)^\s*CREATE\s+TABLE\s+([^\s(]+)`)
	reCreateView     = regexp.MustCompile(`(?is)^\s*CREATE\s+(?:OR\s+ALTER\s+)?VIEW\s+([^\s(]+)`)
	reAlterView      = regexp.MustCompile(`(?is)^\s*ALTER\s+VIEW\s+([^\s(]+)`)
	reCreateProc     = regexp.MustCompile(`(?is)^\s*CREATE\s+(?:OR\s+ALTER\s+)?PROC(?:EDURE)?\s+([^\s(]+)`)
	reAlterProc      = regexp.MustCompile(`(?is)^\s*ALTER\s+PROC(?:EDURE)?\s+([^\s(]+)`)
	reCreateFunc     = regexp.MustCompile(`(?is)^\s*CREATE\s+(?:OR\s+ALTER\s+)?FUNCTION\s+([^\s(]+)`)
	reAlterFunc      = regexp.MustCompile(`(?is)^\s*ALTER\s+FUNCTION\s+([^\s(]+)`)
	reCreateTrigger  = regexp.MustCompile(`(?is)^\s*CREATE\s+TRIGGER\s+([^\s(]+)\s+ON\s+([^\s(]+)`)
	reCreateType     = regexp.MustCompile(`(?is)^\s*CREATE\s+TYPE\s+([^\s(]+)`)
	reCreateSequence = regexp.MustCompile(`(?is)^\s*CREATE\s+SEQUENCE\s+([^\s(]+)`)
	reCreateSynonym  = regexp.MustCompile(`(?is)^\s*CREATE\s+SYNONYM\s+([^\s(]+)\s+FOR\s+([^\s;(]+)`)
	reAlterTableAdd  = regexp.MustCompile(`(?is)^\s*ALTER\s+TABLE\s+([^\s(]+)\s+ADD\b`)
	reInsertInto     = regexp.MustCompile(`(?is)^\s*INSERT\s+INTO\s+([^\s(]+)`)
	reUpdate         = regexp.MustCompile(`(?is)^\s*UPDATE\s+([^\s]+)\s+SET\b`)
	reDeleteFrom     = regexp.MustCompile(`(?is)^\s*DELETE\s+FROM\s+([^\s;]+)`)
	reMergeInto      = regexp.MustCompile(`(?is)^\s*MERGE\s+(?:INTO\s+)?([^\s(]+)`)
	reMergeUsing     = regexp.MustCompile(`(?is)\bUSING\s+([^\s(]+)`)
	reExecute        = regexp.MustCompile(`(?is)^\s*EXEC(?:UTE)?\s+([^\s(;]+)`)
	reFrom           = regexp.MustCompile(`(?i)\bFROM\s+([#@]?[\w\[\]"\.]+)`)
	reJoin           = regexp.MustCompile(`(?i)\bJOIN\s+([#@]?[\w\[\]"\.]+)`)
	reForeignKey     = regexp.MustCompile(`(?is)FOREIGN\s+KEY\s*\([^)]*\)\s*REFERENCES\s+([\w\[\]"\.]+)`)
)

// Classify inspects one statement's text and produces a Statement record
// per spec §4.2's recognized-statement table.
func Classify(stmtText string) Statement {
	s := Statement{Text: stmtText}

	switch {
	case reCreateTable.MatchString(stmtText):
		m := reCreateTable.FindStringSubmatch(stmtText)
		q := ParseQualifiedName(m[1])
		s.Kind, s.Schema, s.Name = StmtCreateTable, q.Schema, q.Name
		s.ForeignKeyTargets = foreignKeyTargets(stmtText)
		return s
	case reCreateTrigger.MatchString(stmtText):
		m := reCreateTrigger.FindStringSubmatch(stmtText)
		q := ParseQualifiedName(m[1])
		t := ParseQualifiedName(m[2])
		s.Kind, s.Schema, s.Name = StmtCreateTrigger, q.Schema, q.Name
		s.TargetSchema, s.TargetName = t.Schema, t.Name
		return s
	case reCreateView.MatchString(stmtText):
		q := ParseQualifiedName(reCreateView.FindStringSubmatch(stmtText)[1])
		s.Kind, s.Schema, s.Name = StmtCreateView, q.Schema, q.Name
		s.ReadsFrom = referencedTables(stmtText)
		return s
	case reAlterView.MatchString(stmtText):
		q := ParseQualifiedName(reAlterView.FindStringSubmatch(stmtText)[1])
		s.Kind, s.Schema, s.Name = StmtAlterView, q.Schema, q.Name
		s.ReadsFrom = referencedTables(stmtText)
		return s
	case reCreateProc.MatchString(stmtText):
		q := ParseQualifiedName(reCreateProc.FindStringSubmatch(stmtText)[1])
		s.Kind, s.Schema, s.Name = StmtCreateProc, q.Schema, q.Name
		s.ReadsFrom = referencedTables(stmtText)
		s.WritesTo = writeTargets(stmtText)
		return s
	case reAlterProc.MatchString(stmtText):
		q := ParseQualifiedName(reAlterProc.FindStringSubmatch(stmtText)[1])
		s.Kind, s.Schema, s.Name = StmtAlterProc, q.Schema, q.Name
		s.ReadsFrom = referencedTables(stmtText)
		s.WritesTo = writeTargets(stmtText)
		return s
	case reCreateFunc.MatchString(stmtText):
		q := ParseQualifiedName(reCreateFunc.FindStringSubmatch(stmtText)[1])
		s.Kind, s.Schema, s.Name = StmtCreateFunction, q.Schema, q.Name
		s.ReadsFrom = referencedTables(stmtText)
		return s
	case reAlterFunc.MatchString(stmtText):
		q := ParseQualifiedName(reAlterFunc.FindStringSubmatch(stmtText)[1])
		s.Kind, s.Schema, s.Name = StmtAlterFunction, q.Schema, q.Name
		s.ReadsFrom = referencedTables(stmtText)
		return s
	case reCreateType.MatchString(stmtText):
		q := ParseQualifiedName(reCreateType.FindStringSubmatch(stmtText)[1])
		s.Kind, s.Schema, s.Name = StmtCreateType, q.Schema, q.Name
		return s
	case reCreateSequence.MatchString(stmtText):
		q := ParseQualifiedName(reCreateSequence.FindStringSubmatch(stmtText)[1])
		s.Kind, s.Schema, s.Name = StmtCreateSequence, q.Schema, q.Name
		return s
	case reCreateSynonym.MatchString(stmtText):
		m := reCreateSynonym.FindStringSubmatch(stmtText)
		q := ParseQualifiedName(m[1])
		t := ParseQualifiedName(m[2])
		s.Kind, s.Schema, s.Name = StmtCreateSynonym, q.Schema, q.Name
		s.TargetSchema, s.TargetName = t.Schema, t.Name
		return s
	case reAlterTableAdd.MatchString(stmtText):
		q := ParseQualifiedName(reAlterTableAdd.FindStringSubmatch(stmtText)[1])
		s.Kind, s.Schema, s.Name = StmtAlterTableAdd, q.Schema, q.Name
		s.ForeignKeyTargets = foreignKeyTargets(stmtText)
		return s
	case reMergeInto.MatchString(stmtText):
		q := ParseQualifiedName(reMergeInto.FindStringSubmatch(stmtText)[1])
		s.Kind, s.Schema, s.Name = StmtMerge, q.Schema, q.Name
		if um := reMergeUsing.FindStringSubmatch(stmtText); um != nil && !IsTemp(um[1]) {
			s.ReadsFrom = []QualifiedName{ParseQualifiedName(um[1])}
		}
		s.WritesTo = []QualifiedName{q}
		return s
	case reInsertInto.MatchString(stmtText):
		q := ParseQualifiedName(reInsertInto.FindStringSubmatch(stmtText)[1])
		s.Kind = StmtInsert
		s.WritesTo = []QualifiedName{q}
		s.ReadsFrom = referencedTables(stmtText)
		return s
	case reUpdate.MatchString(stmtText):
		q := ParseQualifiedName(reUpdate.FindStringSubmatch(stmtText)[1])
		s.Kind = StmtUpdate
		s.WritesTo = []QualifiedName{q}
		s.ReadsFrom = referencedTables(stmtText)
		return s
	case reDeleteFrom.MatchString(stmtText):
		q := ParseQualifiedName(reDeleteFrom.FindStringSubmatch(stmtText)[1])
		s.Kind = StmtDelete
		s.WritesTo = []QualifiedName{q}
		s.ReadsFrom = referencedTables(stmtText)
		return s
	case reExecute.MatchString(stmtText):
		q := ParseQualifiedName(reExecute.FindStringSubmatch(stmtText)[1])
		s.Kind = StmtExecute
		s.Executes = []QualifiedName{q}
		return s
	default:
		s.Kind = StmtOther
		s.ReadsFrom = referencedTables(stmtText)
		return s
	}
}

func writeTargets(stmtText string) []QualifiedName {
	var out []QualifiedName
	for _, m := range reInsertInto.FindAllStringSubmatch(stmtText, -1) {
		out = append(out, ParseQualifiedName(m[1]))
	}
	for _, m := range reUpdate.FindAllStringSubmatch(stmtText, -1) {
		out = append(out, ParseQualifiedName(m[1]))
	}
	for _, m := range reDeleteFrom.FindAllStringSubmatch(stmtText, -1) {
		out = append(out, ParseQualifiedName(m[1]))
	}
	return out
}

func referencedTables(stmtText string) []QualifiedName {
	seen := map[string]bool{}
	var out []QualifiedName
	add := func(raw string) {
		if IsTemp(raw) {
			return
		}
		q := ParseQualifiedName(raw)
		if seen[strings.ToLower(q.String())] {
			return
		}
		seen[strings.ToLower(q.String())] = true
		out = append(out, q)
	}
	for _, m := range reFrom.FindAllStringSubmatch(stmtText, -1) {
		add(m[1])
	}
	for _, m := range reJoin.FindAllStringSubmatch(stmtText, -1) {
		add(m[1])
	}
	return out
}

func foreignKeyTargets(stmtText string) []QualifiedName {
	var out []QualifiedName
	for _, m := range reForeignKey.FindAllStringSubmatch(stmtText, -1) {
		out = append(out, ParseQualifiedName(m[1]))
	}
	return out
}
