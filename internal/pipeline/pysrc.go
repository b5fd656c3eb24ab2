package pipeline

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// parsePython parses code with the tree-sitter Python grammar. The returned
// tree may contain ERROR nodes; callers check with hasSyntaxError.
func parsePython(ctx context.Context, code []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, code)
	if err != nil {
		return nil, fmt.Errorf("parsing python source: %w", err)
	}
	return tree, nil
}

func hasSyntaxError(root *sitter.Node) bool {
	return root.HasError()
}

// firstSyntaxError returns the location of the first ERROR node, for
// reporting. Returns ok=false when the tree is clean.
func firstSyntaxError(root *sitter.Node) (row, col uint32, ok bool) {
	var walk func(n *sitter.Node) *sitter.Node
	walk = func(n *sitter.Node) *sitter.Node {
		if n.Type() == "ERROR" || n.IsMissing() {
			return n
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if found := walk(n.Child(i)); found != nil {
				return found
			}
		}
		return nil
	}
	if n := walk(root); n != nil {
		p := n.StartPoint()
		return p.Row, p.Column, true
	}
	return 0, 0, false
}

// findClass returns the first class definition in the module, or nil.
func findClass(root *sitter.Node) *sitter.Node {
	var walk func(n *sitter.Node) *sitter.Node
	walk = func(n *sitter.Node) *sitter.Node {
		if n.Type() == "class_definition" {
			return n
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if found := walk(n.NamedChild(i)); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(root)
}

// classBases returns the base-class names declared by a class definition.
// Only plain identifiers are returned; attribute bases (pkg.Cls) come back
// as their full source text.
func classBases(class *sitter.Node, src []byte) []string {
	supers := class.ChildByFieldName("superclasses")
	if supers == nil {
		return nil
	}
	var bases []string
	for i := 0; i < int(supers.NamedChildCount()); i++ {
		child := supers.NamedChild(i)
		switch child.Type() {
		case "identifier", "attribute":
			bases = append(bases, child.Content(src))
		}
	}
	return bases
}

func className(class *sitter.Node, src []byte) string {
	if name := class.ChildByFieldName("name"); name != nil {
		return name.Content(src)
	}
	return ""
}
