package symbols

import (
	"github.com/chtl-lang/chtl/internal/compiler/ast"
	"github.com/chtl-lang/chtl/internal/compiler/diag"
)

// Collect walks doc (pass 1 of the pipeline) registering every
// TemplateDef/CustomDef/OriginDef it finds into env, under the given
// namespace prefix. Redefinitions are reported as error diagnostics into
// bag rather than silently overwritten.
func Collect(a *ast.Arena, doc ast.Handle, namespace string, file string, env *Env, bag *diag.Bag) {
	n := a.Get(doc)
	for _, child := range n.Children {
		collectNode(a, child, namespace, file, env, bag)
	}
}

func collectNode(a *ast.Arena, h ast.Handle, namespace, file string, env *Env, bag *diag.Bag) {
	n := a.Get(h)
	switch n.Kind {
	case ast.KindTemplateDef, ast.KindCustomDef:
		category := CategoryTemplate
		if n.IsCustom {
			category = CategoryCustom
		}
		key := Key{Category: category, SubKind: int(n.TemplateKind), Name: QualifyName(namespace, n.Name)}
		if ok := env.Register(key, Entry{Def: h, Arena: a, OriginFile: file}); !ok {
			bag.Add(diag.New(diag.PhaseResolve, diag.FromToken(n.Pos),
				"redefinition of %s %s %q", category, n.TemplateKind, n.Name))
		}
		if n.TemplateKind == ast.TemplateVar {
			registerVariableGroup(a, h, namespace, file, env, bag)
		}
	case ast.KindOriginDef:
		if n.Name == "" {
			return // anonymous origin blocks are inlined at use position, never registered
		}
		key := Key{Category: CategoryOrigin, SubKind: int(n.OriginKind), Name: QualifyName(namespace, n.Name)}
		if ok := env.Register(key, Entry{Def: h, Arena: a, OriginFile: file}); !ok {
			bag.Add(diag.New(diag.PhaseResolve, diag.FromToken(n.Pos), "redefinition of origin %q", n.Name))
		}
	case ast.KindNamespace:
		childNS := QualifyName(namespace, n.Name)
		for _, c := range n.Children {
			collectNode(a, c, childNS, file, env, bag)
		}
	}
}

// registerVariableGroup additionally registers a @Var template's body
// under CategoryVariable so VarUse lookups (`Group(name)`) don't need to
// re-derive the template/custom distinction — variable groups are always
// resolved by name alone, never by kind ambiguity.
func registerVariableGroup(a *ast.Arena, h ast.Handle, namespace, file string, env *Env, bag *diag.Bag) {
	n := a.Get(h)
	key := Key{Category: CategoryVariable, SubKind: int(ast.TemplateVar), Name: QualifyName(namespace, n.Name)}
	env.Register(key, Entry{Def: h, Arena: a, OriginFile: file})
}
