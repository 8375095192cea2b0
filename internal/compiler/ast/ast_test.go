package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chtl-lang/chtl/internal/compiler/ast"
)

func buildSmallTree(t *testing.T) (*ast.Arena, ast.Handle) {
	t.Helper()
	a := ast.NewArena()
	text := a.Add(ast.Node{Kind: ast.KindText, Text: "hi"})
	div := a.Add(ast.Node{
		Kind:     ast.KindElement,
		Name:     "div",
		Attrs:    []ast.Attr{{Name: "id", Value: "box", Colon: true}},
		Children: []ast.Handle{text},
	})
	doc := a.Add(ast.Node{Kind: ast.KindDocument, Children: []ast.Handle{div}})
	return a, doc
}

func TestClone_DeepCopiesAcrossArenas(t *testing.T) {
	src, doc := buildSmallTree(t)
	dst := ast.NewArena()
	copied := ast.Clone(dst, src, doc)

	docNode := dst.Get(copied)
	require.Len(t, docNode.Children, 1)
	div := dst.Get(docNode.Children[0])
	assert.Equal(t, "div", div.Name)
	require.Len(t, div.Children, 1)
	assert.Equal(t, "hi", dst.Get(div.Children[0]).Text)

	// The copy must not alias the source: mutating it leaves src intact.
	div.Attrs[0].Value = "changed"
	srcDiv := src.Get(src.Get(doc).Children[0])
	assert.Equal(t, "box", srcDiv.Attrs[0].Value)
}

func TestWalk_VisitsDocumentOrderAndSkipsNilHooks(t *testing.T) {
	a, doc := buildSmallTree(t)

	var visited []string
	ast.Walk(a, doc, ast.Callbacks{
		Element: func(a *ast.Arena, h ast.Handle) {
			visited = append(visited, "element:"+a.Get(h).Name)
		},
		Text: func(a *ast.Arena, h ast.Handle) {
			visited = append(visited, "text:"+a.Get(h).Text)
		},
	})
	assert.Equal(t, []string{"element:div", "text:hi"}, visited)
}

func TestWalk_NoHandleIsNoOp(t *testing.T) {
	a := ast.NewArena()
	called := false
	ast.Walk(a, ast.NoHandle, ast.Callbacks{
		Document: func(*ast.Arena, ast.Handle) { called = true },
	})
	assert.False(t, called)
}
