// Package csast is a thin wrapper around github.com/smacker/go-tree-sitter's
// C# grammar, giving typed access to class declarations, attributes,
// property declarations, invocation-expression chains, and string literals
// with line spans. Nodes are found by plain recursive walks over each node's
// children (no tree-sitter queries), and it keeps the same
// find-enclosing-parent helpers as
// MuiGoku123432-goParser/internal/driver/treesitter_driver.go — generalized
// from TS/JS/CSS node types to the C# grammar this indexer needs.
package csast

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
)

// File is a parsed C# source file.
type File struct {
	Path string
	Src  []byte
	Tree *sitter.Tree
}

// Parse parses a C# source file into a File wrapping its tree-sitter tree.
func Parse(path string, src []byte) (*File, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(csharp.GetLanguage())
	tree := parser.Parse(nil, src)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter failed to parse %s", path)
	}
	return &File{Path: path, Src: src, Tree: tree}, nil
}

// Root returns the file's root node.
func (f *File) Root() *sitter.Node {
	return f.Tree.RootNode()
}

// Text returns the source text spanned by n.
func (f *File) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(f.Src[n.StartByte():n.EndByte()])
}

// Line returns the 1-based source line a node starts on.
func (f *File) Line(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.StartPoint().Row) + 1
}

func firstChildOfType(n *sitter.Node, types ...string) *sitter.Node {
	if n == nil {
		return nil
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && set[c.Type()] {
			return c
		}
	}
	return nil
}

func childrenOfType(n *sitter.Node, t string) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && c.Type() == t {
			out = append(out, c)
		}
	}
	return out
}

// walk calls visit for every descendant of n (n included), depth-first.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), visit)
	}
}
