package csast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Attribute is a parsed C# attribute, e.g. [Table("Customers", Schema="dbo")].
type Attribute struct {
	Name string // attribute name as written (possibly qualified), "Attribute" suffix stripped
	Node *sitter.Node
}

// PropertyDecl is a class property declaration.
type PropertyDecl struct {
	Name     string
	TypeText string
	Node     *sitter.Node
}

// MethodDecl is a class method declaration.
type MethodDecl struct {
	Name      string
	Node      *sitter.Node
	Body      *sitter.Node
	StartLine int
	EndLine   int
}

// ClassDecl is a parsed class declaration.
type ClassDecl struct {
	Name       string // simple name
	Namespace  string
	BaseTypes  []string // textual base-list entries, base class first by C# convention
	Attributes []Attribute
	Properties []PropertyDecl
	Methods    []MethodDecl
	Node       *sitter.Node
}

// FullName returns "Namespace.Name", or just Name if there is no namespace.
func (c ClassDecl) FullName() string {
	if c.Namespace == "" {
		return c.Name
	}
	return c.Namespace + "." + c.Name
}

// Classes walks the file and returns every top-level and nested class
// declaration, each tagged with its enclosing namespace.
func (f *File) Classes() []ClassDecl {
	var out []ClassDecl
	var currentNamespace string

	var visit func(n *sitter.Node, ns string)
	visit = func(n *sitter.Node, ns string) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "namespace_declaration":
			name := firstChildOfType(n, "qualified_name", "identifier")
			nextNs := ns
			if name != nil {
				nextNs = f.Text(name)
			}
			for i := 0; i < int(n.ChildCount()); i++ {
				visit(n.Child(i), nextNs)
			}
			return
		case "class_declaration":
			out = append(out, f.classDecl(n, ns))
			if body := firstChildOfType(n, "declaration_list"); body != nil {
				for i := 0; i < int(body.ChildCount()); i++ {
					visit(body.Child(i), ns)
				}
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i), ns)
		}
	}
	visit(f.Root(), currentNamespace)
	return out
}

func (f *File) classDecl(n *sitter.Node, namespace string) ClassDecl {
	cd := ClassDecl{Namespace: namespace, Node: n}

	if name := firstChildOfType(n, "identifier"); name != nil {
		cd.Name = f.Text(name)
	}

	if bases := firstChildOfType(n, "base_list"); bases != nil {
		for i := 0; i < int(bases.ChildCount()); i++ {
			c := bases.Child(i)
			if c == nil {
				continue
			}
			switch c.Type() {
			case "identifier", "qualified_name", "generic_name":
				cd.BaseTypes = append(cd.BaseTypes, f.Text(c))
			}
		}
	}

	cd.Attributes = f.precedingAttributes(n)

	if body := firstChildOfType(n, "declaration_list"); body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			member := body.Child(i)
			if member == nil {
				continue
			}
			switch member.Type() {
			case "property_declaration":
				cd.Properties = append(cd.Properties, f.propertyDecl(member))
			case "method_declaration":
				cd.Methods = append(cd.Methods, f.methodDecl(member))
			}
		}
	}

	return cd
}

// precedingAttributes collects the [Attr] lists attached to n: the
// tree-sitter C# grammar places them as leading attribute_list children of
// the declaration node itself; attribute_list siblings immediately before n
// are collected as well.
func (f *File) precedingAttributes(n *sitter.Node) []Attribute {
	var attrs []Attribute
	for _, list := range childrenOfType(n, "attribute_list") {
		for _, a := range childrenOfType(list, "attribute") {
			attrName := strings.TrimSuffix(f.Text(firstChildOfType(a, "identifier", "qualified_name")), "Attribute")
			attrs = append(attrs, Attribute{Name: attrName, Node: a})
		}
	}
	parent := n.Parent()
	if parent == nil {
		return attrs
	}
	idx := -1
	for i := 0; i < int(parent.ChildCount()); i++ {
		if parent.Child(i) == n {
			idx = i
			break
		}
	}
	for i := idx - 1; i >= 0; i-- {
		sib := parent.Child(i)
		if sib == nil {
			continue
		}
		if sib.Type() != "attribute_list" {
			break
		}
		for _, a := range childrenOfType(sib, "attribute") {
			name := firstChildOfType(a, "identifier", "qualified_name")
			attrName := f.Text(name)
			attrName = strings.TrimSuffix(attrName, "Attribute")
			attrs = append([]Attribute{{Name: attrName, Node: a}}, attrs...)
		}
	}
	return attrs
}

// AttributeArgs returns the raw text of each argument expression passed to
// an attribute's argument list, in source order, including "Name=value"
// named arguments verbatim.
func (f *File) AttributeArgs(attr Attribute) []string {
	argList := firstChildOfType(attr.Node, "attribute_argument_list")
	if argList == nil {
		return nil
	}
	var out []string
	for _, a := range childrenOfType(argList, "attribute_argument") {
		out = append(out, f.Text(a))
	}
	return out
}

func (f *File) propertyDecl(n *sitter.Node) PropertyDecl {
	pd := PropertyDecl{Node: n}
	var typeNode, nameNode *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		if c.Type() == "identifier" {
			nameNode = c
			break
		}
		typeNode = c
	}
	if nameNode != nil {
		pd.Name = f.Text(nameNode)
	}
	if typeNode != nil {
		pd.TypeText = f.Text(typeNode)
	}
	return pd
}

func (f *File) methodDecl(n *sitter.Node) MethodDecl {
	md := MethodDecl{Node: n, StartLine: f.Line(n), EndLine: int(n.EndPoint().Row) + 1}
	var typeNode, nameNode *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		if c.Type() == "identifier" {
			nameNode = c
			break
		}
		typeNode = c
	}
	_ = typeNode
	if nameNode != nil {
		md.Name = f.Text(nameNode)
	}
	md.Body = firstChildOfType(n, "block")
	return md
}

// FindEnclosingMethod walks up from node to find the nearest enclosing
// method_declaration, mirroring findContainingFunction's parent-walk idiom.
func (f *File) FindEnclosingMethod(node *sitter.Node) (MethodDecl, bool) {
	cur := node
	for cur != nil {
		if cur.Type() == "method_declaration" {
			return f.methodDecl(cur), true
		}
		cur = cur.Parent()
	}
	return MethodDecl{}, false
}

// FindEnclosingClass walks up from node to find the nearest enclosing
// class_declaration's simple name and full name (namespace resolved by
// continuing the walk upward for a namespace_declaration ancestor).
func (f *File) FindEnclosingClass(node *sitter.Node) (ClassDecl, bool) {
	cur := node
	var classNode *sitter.Node
	for cur != nil {
		if cur.Type() == "class_declaration" && classNode == nil {
			classNode = cur
		}
		cur = cur.Parent()
	}
	if classNode == nil {
		return ClassDecl{}, false
	}
	ns := ""
	cur = classNode.Parent()
	for cur != nil {
		if cur.Type() == "namespace_declaration" {
			if name := firstChildOfType(cur, "qualified_name", "identifier"); name != nil {
				ns = f.Text(name)
			}
			break
		}
		cur = cur.Parent()
	}
	return f.classDecl(classNode, ns), true
}
