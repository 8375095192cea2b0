// Package template implements CHTL's instantiation engine: inheritance
// linearisation, base-first merging, use-site specialisation
// (delete/insert), and variable substitution (spec §4.4).
//
// This subsystem has no generic pack analogue — its algorithm is grounded
// on the original C++ TemplateManager/VariableManager (see DESIGN.md) and
// expressed here in the teacher's idiom: explicit error returns, no
// exceptions, pure in-memory tree transformation with no I/O.
package template

import (
	"fmt"
	"strings"

	"github.com/chtl-lang/chtl/internal/compiler/ast"
	"github.com/chtl-lang/chtl/internal/compiler/diag"
	"github.com/chtl-lang/chtl/internal/compiler/parser"
	"github.com/chtl-lang/chtl/internal/compiler/symbols"
)

// Engine instantiates template/custom use sites against a symbol
// environment. One Engine is created per compilation; it holds no mutable
// global state.
type Engine struct {
	env *symbols.Env
	bag *diag.Bag
}

// NewEngine returns an Engine resolving references through env, recording
// diagnostics into bag.
func NewEngine(env *symbols.Env, bag *diag.Bag) *Engine {
	return &Engine{env: env, bag: bag}
}

// link is one entry in a linearised inheritance chain.
type link struct {
	entry symbols.Entry
	name  string
}

// linearize walks the `inherit`/bare-@ edges declared on the definition
// named (kind, namespace.name), producing a derived-first chain capped at
// ast.MaxInheritanceDepth and guarded against cycles via visited.
func (e *Engine) linearize(kind ast.TemplateKind, namespace, name string, visited map[string]bool, depth int, pos diag.Position) []link {
	fq := symbols.QualifyName(namespace, name)
	if depth >= ast.MaxInheritanceDepth {
		e.bag.Add(diag.NewCause(diag.PhaseInstantiate, pos, diag.ErrDepthExceeded, "inheritance depth exceeded resolving %q", fq))
		return nil
	}
	if visited[fq] {
		e.bag.Add(diag.NewCause(diag.PhaseInstantiate, pos, diag.ErrCycle, "inheritance cycle detected at %q", fq))
		return nil
	}
	visited[fq] = true

	entry, _, ok := e.env.LookupTemplateOrCustom(kind, fq)
	if !ok {
		e.bag.Add(diag.NewCause(diag.PhaseInstantiate, pos, diag.ErrUnresolved, "unresolved template/custom reference %q", fq))
		return nil
	}
	chain := []link{{entry: entry, name: fq}}
	def := entry.Arena.Get(entry.Def)
	for _, ih := range def.Inherits {
		inheritNode := entry.Arena.Get(ih)
		chain = append(chain, e.linearize(inheritNode.TemplateKind, namespace, inheritNode.Target, visited, depth+1, diag.FromToken(inheritNode.Pos))...)
	}
	return chain
}

// Instantiate resolves useNode (a TemplateUse living in useArena) into a
// freestanding subtree in a new arena, applying inheritance merge and any
// use-site specialisation.
func (e *Engine) Instantiate(useArena *ast.Arena, useHandle ast.Handle, namespace string) (*ast.Arena, ast.Handle) {
	useNode := useArena.Get(useHandle)
	pos := diag.FromToken(useNode.Pos)

	chain := e.linearize(useNode.TemplateKind, namespace, useNode.Name, map[string]bool{}, 0, pos)
	if chain == nil {
		empty := ast.NewArena()
		return empty, empty.Add(ast.Node{Kind: ast.KindDocument})
	}

	var specAttrs []ast.Attr
	var specChildren []ast.Handle
	var deleteOps []*ast.Node
	var insertOps []*ast.Node
	varOverrides := map[string]string{}
	if useNode.Specialization != ast.NoHandle {
		spec := useArena.Get(useNode.Specialization)
		specAttrs = spec.Attrs
		for _, c := range spec.Children {
			cn := useArena.Get(c)
			switch cn.Kind {
			case ast.KindDelete:
				deleteOps = append(deleteOps, cn)
			case ast.KindInsert:
				insertOps = append(insertOps, cn)
			case ast.KindVarUse:
				if cn.HasOverride {
					varOverrides[cn.Target+"."+cn.VarName] = cn.Override
				}
			default:
				specChildren = append(specChildren, c)
			}
		}
	}

	// Resolve inheritance-edge deletions against the chain before merging,
	// per the splice semantics in SPEC_FULL.md's Open Question 2
	// resolution: removing an edge keeps what that ancestor itself
	// inherited, attached where it was.
	chain = filterDeletedInheritance(chain, deleteOps)

	// The root is assembled as a local node and only added to the arena
	// once every specialisation operation has run: cloning content into
	// dst can reallocate its backing slice, which would invalidate a
	// pointer obtained from dst.Get earlier.
	dst := ast.NewArena()
	var root ast.Node
	switch useNode.TemplateKind {
	case ast.TemplateStyle, ast.TemplateVar:
		root = mergeKeyedChain(chain)
	case ast.TemplateElement:
		root = mergeElementChain(dst, chain)
	}

	// Definition-body specialisations (a Custom deleting/inserting against
	// what it inherits) run base-first, before anything the use site asks
	// for.
	for i := len(chain) - 1; i >= 0; i-- {
		defArena := chain[i].entry.Arena
		defNode := defArena.Get(chain[i].entry.Def)
		if defNode.Specialization == ast.NoHandle {
			continue
		}
		for _, c := range defArena.Get(defNode.Specialization).Children {
			cn := defArena.Get(c)
			switch cn.Kind {
			case ast.KindDelete:
				if cn.DeleteTargetKind != ast.DeleteInheritance {
					e.applyDelete(dst, &root, cn)
				}
			case ast.KindInsert:
				e.applyInsert(dst, defArena, &root, cn)
			}
		}
	}

	applyAttrOverrides(&root, specAttrs)
	for _, child := range specChildren {
		root.Children = append(root.Children, ast.Clone(dst, useArena, child))
	}
	for _, del := range deleteOps {
		if del.DeleteTargetKind != ast.DeleteInheritance {
			e.applyDelete(dst, &root, del)
		}
	}
	for _, ins := range insertOps {
		e.applyInsert(dst, useArena, &root, ins)
	}

	// A Custom @Style/@Var definition may declare valueless required
	// properties; every use site must have filled them in by now.
	if useNode.TemplateKind != ast.TemplateElement {
		if _, category, ok := e.env.LookupTemplateOrCustom(useNode.TemplateKind, symbols.QualifyName(namespace, useNode.Name)); ok && category == symbols.CategoryCustom {
			for _, attr := range root.Attrs {
				if attr.Value == "" {
					e.bag.Add(diag.New(diag.PhaseEmit, pos,
						"required property %q of custom %q has no value at this use site", attr.Name, useNode.Name))
				}
			}
		}
	}

	// Index access (`@Element Card[1];`) narrows the merged fragment to a
	// single top-level child.
	if useNode.TemplateKind == ast.TemplateElement && useNode.TargetSelector != "" {
		_, idx, ok := parseAnchor(useNode.TargetSelector)
		if !ok || idx < 0 || idx >= len(root.Children) {
			e.bag.Add(diag.New(diag.PhaseInstantiate, pos,
				"index %s is out of range for %q", useNode.TargetSelector, useNode.Name))
		} else {
			root.Children = root.Children[idx : idx+1]
		}
	}

	rootHandle := dst.Add(root)
	e.substituteVariables(dst, namespace, varOverrides)
	return dst, rootHandle
}

func filterDeletedInheritance(chain []link, deleteOps []*ast.Node) []link {
	if len(deleteOps) == 0 {
		return chain
	}
	removed := map[string]bool{}
	for _, del := range deleteOps {
		if del.DeleteTargetKind == ast.DeleteInheritance {
			for _, t := range del.Targets {
				removed[t] = true
			}
		}
	}
	if len(removed) == 0 {
		return chain
	}
	var out []link
	for _, l := range chain {
		// l.name is namespace-qualified; match on its local segment too so
		// `delete @Style Parent;` matches a bare "Parent" target.
		_, local := symbols.SplitNamespace(l.name)
		if removed[l.name] || removed[local] {
			continue
		}
		out = append(out, l)
	}
	return out
}

// mergeKeyedChain merges a @Style/@Var chain's property maps base-first
// (ancestors processed before the derived definition) so that "later
// wins" matches ordinary override semantics.
func mergeKeyedChain(chain []link) ast.Node {
	merged := make(map[string]ast.Attr)
	var order []string
	for i := len(chain) - 1; i >= 0; i-- {
		def := chain[i].entry.Arena.Get(chain[i].entry.Def)
		for _, attr := range def.Attrs {
			if _, seen := merged[attr.Name]; !seen {
				order = append(order, attr.Name)
			}
			merged[attr.Name] = attr
		}
	}
	attrs := make([]ast.Attr, 0, len(order))
	for _, name := range order {
		attrs = append(attrs, merged[name])
	}
	return ast.Node{Kind: ast.KindStyleBlock, Attrs: attrs}
}

// mergeElementChain concatenates a @Element chain's child lists base-first,
// so a derived definition's own children are appended after its ancestors'.
func mergeElementChain(dst *ast.Arena, chain []link) ast.Node {
	var children []ast.Handle
	for i := len(chain) - 1; i >= 0; i-- {
		def := chain[i].entry.Arena.Get(chain[i].entry.Def)
		for _, c := range def.Children {
			children = append(children, ast.Clone(dst, chain[i].entry.Arena, c))
		}
	}
	return ast.Node{Kind: ast.KindElement, Children: children}
}

func applyAttrOverrides(root *ast.Node, overrides []ast.Attr) {
	for _, o := range overrides {
		replaced := false
		for i, existing := range root.Attrs {
			if existing.Name == o.Name {
				root.Attrs[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			root.Attrs = append(root.Attrs, o)
		}
	}
}

func (e *Engine) applyDelete(a *ast.Arena, root *ast.Node, del *ast.Node) {
	switch del.DeleteTargetKind {
	case ast.DeleteProperty:
		for _, target := range del.Targets {
			// A bare word in an @Element specialisation names a child tag
			// (`delete div;`), not a property; properties only exist on
			// @Style/@Var merges.
			if root.Kind == ast.KindElement {
				e.deleteChild(a, root, del, target)
				continue
			}
			root.Attrs = removeAttr(root.Attrs, target)
		}
	case ast.DeleteElement:
		for _, target := range del.Targets {
			e.deleteChild(a, root, del, target)
		}
	}
}

func (e *Engine) deleteChild(a *ast.Arena, root *ast.Node, del *ast.Node, target string) {
	children, ok := removeChildAt(a, root.Children, target)
	if !ok {
		e.bag.Add(diag.New(diag.PhaseInstantiate, diag.FromToken(del.Pos),
			"delete target %q matched no element", target))
		return
	}
	root.Children = children
}

func removeAttr(attrs []ast.Attr, name string) []ast.Attr {
	out := attrs[:0:0]
	for _, a := range attrs {
		if a.Name != name {
			out = append(out, a)
		}
	}
	return out
}

// removeChildAt removes the nth occurrence (0-based) of a tag-named child,
// where target has the "tag[index]", "[index]", or bare "tag" shape built
// by the parser. ok=false when no child matched.
func removeChildAt(a *ast.Arena, children []ast.Handle, target string) ([]ast.Handle, bool) {
	tag, idx, valid := parseAnchor(target)
	if !valid {
		return children, false
	}
	pos := findAnchorIndex(a, children, tag, idx)
	if pos < 0 {
		return children, false
	}
	out := make([]ast.Handle, 0, len(children)-1)
	out = append(out, children[:pos]...)
	out = append(out, children[pos+1:]...)
	return out, true
}

func parseAnchor(target string) (tag string, idx int, ok bool) {
	open := strings.IndexByte(target, '[')
	if open < 0 {
		return target, 0, true
	}
	closeB := strings.IndexByte(target, ']')
	if closeB < open {
		return "", 0, false
	}
	tag = target[:open]
	idxStr := target[open+1 : closeB]
	n := 0
	for _, c := range idxStr {
		if c < '0' || c > '9' {
			return "", 0, false
		}
		n = n*10 + int(c-'0')
	}
	return tag, n, true
}

func (e *Engine) applyInsert(dst, src *ast.Arena, root *ast.Node, ins *ast.Node) {
	var content []ast.Handle
	for _, c := range ins.Children {
		content = append(content, ast.Clone(dst, src, c))
	}
	switch ins.InsertPosition {
	case ast.InsertAtTop:
		root.Children = append(content, root.Children...)
	case ast.InsertAtBottom:
		root.Children = append(root.Children, content...)
	case ast.InsertAfter, ast.InsertBefore, ast.InsertReplace:
		tag, idx, ok := parseAnchor(ins.TargetSelector)
		pos := -1
		if ok {
			pos = findAnchorIndex(dst, root.Children, tag, idx)
		}
		if pos < 0 {
			// A failed anchor match skips this operation; the remaining
			// specialisation operations still apply.
			e.bag.Add(diag.New(diag.PhaseInstantiate, diag.FromToken(ins.Pos),
				"insert anchor %q matched no element", ins.TargetSelector))
			return
		}
		root.Children = spliceAt(root.Children, pos, content, ins.InsertPosition)
	}
}

func findAnchorIndex(a *ast.Arena, children []ast.Handle, tag string, idx int) int {
	count := 0
	for i, c := range children {
		n := a.Get(c)
		if tag == "" || n.Name == tag {
			if count == idx {
				return i
			}
			count++
		}
	}
	return -1
}

func spliceAt(children []ast.Handle, pos int, content []ast.Handle, where ast.InsertPosition) []ast.Handle {
	var out []ast.Handle
	switch where {
	case ast.InsertBefore:
		out = append(out, children[:pos]...)
		out = append(out, content...)
		out = append(out, children[pos:]...)
	case ast.InsertAfter:
		out = append(out, children[:pos+1]...)
		out = append(out, content...)
		out = append(out, children[pos+1:]...)
	case ast.InsertReplace:
		out = append(out, children[:pos]...)
		out = append(out, content...)
		out = append(out, children[pos+1:]...)
	}
	return out
}

// substituteVariables walks dst's attribute values replacing
// `Group(name)`/`Group(name = override)` references with the referenced
// variable group's value. overrides carries the use site's specialisation
// rebindings, keyed "Group.name".
func (e *Engine) substituteVariables(dst *ast.Arena, namespace string, overrides map[string]string) {
	for i := 1; i < dst.Len(); i++ {
		n := dst.Get(ast.Handle(i))
		for j := range n.Attrs {
			n.Attrs[j].Value = e.substituteValue(n.Attrs[j].Value, namespace, overrides, 0)
		}
	}
}

// substituteValue resolves one value's variable reference, re-substituting
// the result until it no longer references a variable. The substituted
// value is itself eligible for further substitution, bounded by
// ast.MaxVariableSubstitutionDepth against transitive self-reference.
func (e *Engine) substituteValue(value, namespace string, overrides map[string]string, depth int) string {
	group, name, inline, hasInline, ok := parser.ParseVarUse(value)
	if !ok {
		return value
	}
	if depth >= ast.MaxVariableSubstitutionDepth {
		e.bag.Add(diag.NewCause(diag.PhaseInstantiate, diag.Position{}, diag.ErrDepthExceeded,
			"variable substitution depth exceeded resolving %s(%s)", group, name))
		return value
	}

	resolved, found, errMsg := e.resolveVariable(namespace, group, name)
	if o, bound := overrides[group+"."+name]; bound {
		resolved, found = o, true
	}
	if hasInline {
		resolved, found = inline, true
	}
	if !found {
		if errMsg != "" {
			e.bag.Add(diag.NewCause(diag.PhaseInstantiate, diag.Position{}, diag.ErrUnresolved, "%s", errMsg))
		}
		// Not a variable group at all (a plain CSS function call like
		// rgb(...)): leave the value untouched.
		return value
	}
	return e.substituteValue(resolved, namespace, overrides, depth+1)
}

// resolveVariable looks name up in the merged variable group. An unknown
// group is not an error (found=false, empty errMsg): value position shares
// its surface syntax with CSS function calls. A known group missing the
// member is a diagnostic.
func (e *Engine) resolveVariable(namespace, group, name string) (value string, found bool, errMsg string) {
	entry, ok := e.env.Lookup(symbols.Key{Category: symbols.CategoryVariable, SubKind: int(ast.TemplateVar), Name: symbols.QualifyName(namespace, group)})
	if !ok && namespace != "" {
		entry, ok = e.env.Lookup(symbols.Key{Category: symbols.CategoryVariable, SubKind: int(ast.TemplateVar), Name: group})
	}
	if !ok {
		return "", false, ""
	}
	def := entry.Arena.Get(entry.Def)
	for _, a := range def.Attrs {
		if a.Name == name {
			return a.Value, true, ""
		}
	}
	return "", false, fmt.Sprintf("variable group %q has no member %q", group, name)
}
