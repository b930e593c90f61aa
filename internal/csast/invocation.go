package csast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Invocation is one `.Method(args)` call in a fluent chain, e.g. the
// `.ToTable("Customers")` segment of `modelBuilder.Entity<T>().ToTable(...)`.
type Invocation struct {
	MethodName  string   // simple method name, e.g. "ToTable"
	TypeArgs    []string // generic type arguments, e.g. ["Customer"] for Entity<Customer>
	Args        []string // raw argument expression text, in source order
	Node        *sitter.Node
	Receiver    *sitter.Node // the expression this call was invoked on, nil if none
}

// StringLiteral is a string-literal expression with its resolved (quote and
// interpolation-marker stripped) text and 1-based source line.
type StringLiteral struct {
	Raw  string // source text as written, including quotes/prefix
	Text string // content between the delimiters
	Line int
	Node *sitter.Node
}

// Invocations returns every invocation_expression in the file, outermost
// first in document order.
func (f *File) Invocations() []Invocation {
	var out []Invocation
	walk(f.Root(), func(n *sitter.Node) bool {
		if n.Type() == "invocation_expression" {
			out = append(out, f.invocation(n))
		}
		return true
	})
	return out
}

func (f *File) invocation(n *sitter.Node) Invocation {
	inv := Invocation{Node: n}

	fn := firstChildOfType(n, "member_access_expression", "identifier", "generic_name")
	switch {
	case fn == nil:
	case fn.Type() == "identifier":
		inv.MethodName = f.Text(fn)
	case fn.Type() == "generic_name":
		inv.MethodName, inv.TypeArgs = f.genericNameParts(fn)
	case fn.Type() == "member_access_expression":
		inv.Receiver = fn.Child(0)
		name := fn.Child(int(fn.ChildCount()) - 1)
		if name != nil && name.Type() == "generic_name" {
			inv.MethodName, inv.TypeArgs = f.genericNameParts(name)
		} else if name != nil {
			inv.MethodName = f.Text(name)
		}
	}

	if argList := firstChildOfType(n, "argument_list"); argList != nil {
		for i := 0; i < int(argList.ChildCount()); i++ {
			c := argList.Child(i)
			if c != nil && c.Type() == "argument" {
				inv.Args = append(inv.Args, f.Text(c))
			}
		}
	}
	return inv
}

func (f *File) genericNameParts(n *sitter.Node) (string, []string) {
	name := ""
	var typeArgs []string
	if id := firstChildOfType(n, "identifier"); id != nil {
		name = f.Text(id)
	}
	if tal := firstChildOfType(n, "type_argument_list"); tal != nil {
		for i := 0; i < int(tal.ChildCount()); i++ {
			c := tal.Child(i)
			if c == nil {
				continue
			}
			switch c.Type() {
			case "identifier", "qualified_name", "generic_name", "predefined_type":
				typeArgs = append(typeArgs, f.Text(c))
			}
		}
	}
	return name, typeArgs
}

// ReceiverChain walks leftward from inv through a `.` chain of invocations,
// returning each invocation encountered (inv itself first) until the chain
// bottoms out at a non-invocation receiver or runs out of receivers.
func (f *File) ReceiverChain(inv Invocation) []Invocation {
	chain := []Invocation{inv}
	cur := inv.Receiver
	for cur != nil {
		if cur.Type() == "invocation_expression" {
			next := f.invocation(cur)
			chain = append(chain, next)
			cur = next.Receiver
			continue
		}
		break
	}
	return chain
}

// StringLiterals returns every string_literal / verbatim_string_literal
// node in the file in document order.
func (f *File) StringLiterals() []StringLiteral {
	var out []StringLiteral
	walk(f.Root(), func(n *sitter.Node) bool {
		switch n.Type() {
		case "string_literal", "verbatim_string_literal", "raw_string_literal":
			out = append(out, f.stringLiteral(n))
		}
		return true
	})
	return out
}

func (f *File) stringLiteral(n *sitter.Node) StringLiteral {
	raw := f.Text(n)
	return StringLiteral{Raw: raw, Text: unquoteCSharpString(raw), Line: f.Line(n), Node: n}
}

// unquoteCSharpString strips the verbatim (@) / interpolation ($) prefixes
// and the surrounding quotes from a C# string-literal's source text,
// leaving escape sequences as-is (callers here only need the SQL text for
// heuristic scanning, not a fully decoded string).
func unquoteCSharpString(raw string) string {
	s := raw
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "@")
	s = strings.TrimPrefix(s, "$") // $@"..." / @$"..." both occur
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// ArgStringLiteral returns the literal string value of a raw argument
// expression if that argument is a bare string literal (ignoring an
// optional leading "name:" argument-label prefix), and ok=false otherwise.
func ArgStringLiteral(arg string) (string, bool) {
	arg = strings.TrimSpace(arg)
	if i := strings.Index(arg, ":"); i >= 0 && !strings.ContainsAny(arg[:i], "\"'(") {
		arg = strings.TrimSpace(arg[i+1:])
	}
	arg = strings.TrimPrefix(arg, "@")
	if len(arg) >= 2 && arg[0] == '"' && arg[len(arg)-1] == '"' {
		return arg[1 : len(arg)-1], true
	}
	return "", false
}

// ArgNamed extracts the value of a "name: value" or "Name = value"-style
// named argument from a raw argument list, returning ok=false if absent.
// Used for Fluent-API/migration calls that pass Schema=/schema: as a named
// argument rather than positionally.
func ArgNamed(args []string, name string) (string, bool) {
	for _, a := range args {
		a = strings.TrimSpace(a)
		prefixColon := name + ":"
		prefixEq := name + " ="
		switch {
		case strings.HasPrefix(a, prefixColon):
			return strings.TrimSpace(a[len(prefixColon):]), true
		case strings.HasPrefix(a, prefixEq):
			return strings.TrimSpace(a[len(prefixEq):]), true
		case strings.HasPrefix(a, name+"="):
			return strings.TrimSpace(a[len(name)+1:]), true
		}
	}
	return "", false
}
