package template

import (
	"fmt"
	"strings"

	"github.com/chtl-lang/chtl/internal/compiler/ast"
	"github.com/chtl-lang/chtl/internal/compiler/diag"
	"github.com/chtl-lang/chtl/internal/compiler/symbols"
)

// Resolve walks src starting at h and returns a new, fully-resolved arena
// in which every TemplateUse node has been replaced by its instantiated
// content: @Element uses are flattened into their parent's child list
// (a template body is a fragment of siblings, not a wrapping element),
// and @Style uses inside a style block become a nested StyleBlock node
// whose Attrs the generator flattens into the enclosing rule. Origin
// references are inlined here too, so the generator (pass 3) never sees a
// TemplateUse or an OriginUse. This is pass 2 of the pipeline.
func (e *Engine) Resolve(src *ast.Arena, h ast.Handle, namespace string) (*ast.Arena, ast.Handle) {
	dst := ast.NewArena()
	root := e.resolveOne(dst, src, h, namespace)
	// Variable references reach value positions outside any template too
	// (`color: Theme(primary);` directly in a local style block), so the
	// resolved tree gets a substitution pass of its own; values already
	// substituted during instantiation pass through unchanged.
	e.substituteVariables(dst, namespace, nil)
	return dst, root
}

// resolveOne resolves a single node that is known to produce exactly one
// output node (anything other than an @Element TemplateUse reached via a
// children list).
func (e *Engine) resolveOne(dst *ast.Arena, src *ast.Arena, h ast.Handle, namespace string) ast.Handle {
	if h == ast.NoHandle {
		return ast.NoHandle
	}
	n := *src.Get(h)

	if n.Kind == ast.KindTemplateUse {
		instArena, instRoot := e.Instantiate(src, h, namespace)
		// The instantiated subtree may itself reference further
		// templates (a template body using another template); resolve it
		// too before splicing into dst.
		resolvedArena, resolvedRoot := e.Resolve(instArena, instRoot, namespace)
		return ast.Clone(dst, resolvedArena, resolvedRoot)
	}

	if n.Kind == ast.KindOriginUse {
		return e.resolveOriginUse(dst, &n, namespace)
	}

	if n.Kind == ast.KindNamespace {
		namespace = symbols.QualifyName(namespace, n.Name)
	}

	n.Children = e.resolveChildren(dst, src, n.Children, namespace)
	n.Inherits = nil // inheritance edges are consumed during instantiation
	n.Specialization = ast.NoHandle
	if n.Attrs != nil {
		attrs := make([]ast.Attr, len(n.Attrs))
		copy(attrs, n.Attrs)
		n.Attrs = attrs
	}
	return dst.Add(n)
}

// resolveOriginUse inlines the referenced [Origin] definition's raw content
// at the use position, as if it had been written there anonymously. An
// unresolved reference is a diagnostic; the region is marked with a comment
// so partial output stays valid.
func (e *Engine) resolveOriginUse(dst *ast.Arena, n *ast.Node, namespace string) ast.Handle {
	key := symbols.Key{Category: symbols.CategoryOrigin, SubKind: int(n.OriginKind), Name: symbols.QualifyName(namespace, n.Target)}
	entry, ok := e.env.Lookup(key)
	if !ok && namespace != "" {
		entry, ok = e.env.Lookup(symbols.Key{Category: symbols.CategoryOrigin, SubKind: int(n.OriginKind), Name: n.Target})
	}
	if !ok {
		e.bag.Add(diag.NewCause(diag.PhaseEmit, diag.FromToken(n.Pos), diag.ErrUnresolved, "unresolved origin reference %q", n.Target))
		return dst.Add(ast.Node{
			Kind:        ast.KindComment,
			Pos:         n.Pos,
			Text:        "chtl: unresolved origin " + n.Target,
			IsGenerator: true,
		})
	}
	def := *entry.Arena.Get(entry.Def)
	def.Name = "" // inlined at use position, like an anonymous origin block
	def.Children = nil
	def.Pos = n.Pos
	return dst.Add(def)
}

// resolveChildren resolves each child, flattening an @Element TemplateUse
// into its instantiated root's own children rather than nesting it, and
// enforcing any `except` constraint clauses declared among the siblings.
func (e *Engine) resolveChildren(dst *ast.Arena, src *ast.Arena, children []ast.Handle, namespace string) []ast.Handle {
	var banned []string
	for _, c := range children {
		cn := src.Get(c)
		if cn.Kind == ast.KindExceptClause {
			banned = append(banned, cn.Targets...)
		}
	}

	var out []ast.Handle
	for _, c := range children {
		cn := src.Get(c)
		if cn.Kind == ast.KindExceptClause {
			continue // consumed above; constraints never reach emission
		}
		if name, violated := violatesExcept(cn, banned); violated {
			e.bag.Add(diag.New(diag.PhaseResolve, diag.FromToken(cn.Pos),
				"%s is disallowed in this scope by an except constraint", name))
			continue
		}
		if cn.Kind == ast.KindTemplateUse && cn.TemplateKind == ast.TemplateElement {
			instArena, instRoot := e.Instantiate(src, c, namespace)
			resolvedArena, resolvedRoot := e.Resolve(instArena, instRoot, namespace)
			resolvedNode := resolvedArena.Get(resolvedRoot)
			for _, gc := range resolvedNode.Children {
				out = append(out, ast.Clone(dst, resolvedArena, gc))
			}
			continue
		}
		out = append(out, e.resolveOne(dst, src, c, namespace))
	}
	return out
}

// violatesExcept reports whether node matches one of the containing scope's
// `except` targets: a bare tag name bans elements by tag, an "@Kind Name"
// target bans a specific template/custom use.
func violatesExcept(n *ast.Node, banned []string) (string, bool) {
	if len(banned) == 0 {
		return "", false
	}
	for _, b := range banned {
		switch {
		case n.Kind == ast.KindElement && n.Name == b:
			return fmt.Sprintf("element %q", n.Name), true
		case n.Kind == ast.KindTemplateUse && strings.HasPrefix(b, "@"):
			if b == n.TemplateKind.String()+" "+n.Name {
				return fmt.Sprintf("%s %q", n.TemplateKind, n.Name), true
			}
		}
	}
	return "", false
}
