package ast

// Callbacks is a set of optional per-Kind hooks for Walk. A nil hook is
// simply skipped; this replaces a one-method-per-kind visitor interface
// (which would force every caller to implement every Kind) with a single
// function dispatching on a tagged union, per the node-shape design notes.
type Callbacks struct {
	Document    func(a *Arena, h Handle)
	Element     func(a *Arena, h Handle)
	Text        func(a *Arena, h Handle)
	Comment     func(a *Arena, h Handle)
	StyleBlock  func(a *Arena, h Handle)
	StyleRule   func(a *Arena, h Handle)
	StyleProp   func(a *Arena, h Handle)
	ScriptBlock func(a *Arena, h Handle)
	TemplateDef func(a *Arena, h Handle)
	CustomDef   func(a *Arena, h Handle)
	TemplateUse func(a *Arena, h Handle)
	OriginDef   func(a *Arena, h Handle)
	OriginUse   func(a *Arena, h Handle)
	ImportStmt  func(a *Arena, h Handle)
	Namespace   func(a *Arena, h Handle)
	UseDecl     func(a *Arena, h Handle)
	Inherit     func(a *Arena, h Handle)
	Delete      func(a *Arena, h Handle)
	Insert      func(a *Arena, h Handle)
	ExceptClause func(a *Arena, h Handle)
	VarUse      func(a *Arena, h Handle)
}

// Walk visits h and every descendant in document order, dispatching each
// node to the matching Callbacks hook (if set) before recursing into its
// Children. It does not recurse into Inherits or Specialization unless the
// caller's hook does so explicitly by calling Walk again.
func Walk(a *Arena, h Handle, cb Callbacks) {
	if h == NoHandle {
		return
	}
	n := a.Get(h)
	switch n.Kind {
	case KindDocument:
		call(cb.Document, a, h)
	case KindElement:
		call(cb.Element, a, h)
	case KindText:
		call(cb.Text, a, h)
	case KindComment:
		call(cb.Comment, a, h)
	case KindStyleBlock:
		call(cb.StyleBlock, a, h)
	case KindStyleRule:
		call(cb.StyleRule, a, h)
	case KindStyleProp:
		call(cb.StyleProp, a, h)
	case KindScriptBlock:
		call(cb.ScriptBlock, a, h)
	case KindTemplateDef:
		call(cb.TemplateDef, a, h)
	case KindCustomDef:
		call(cb.CustomDef, a, h)
	case KindTemplateUse:
		call(cb.TemplateUse, a, h)
	case KindOriginDef:
		call(cb.OriginDef, a, h)
	case KindOriginUse:
		call(cb.OriginUse, a, h)
	case KindImportStmt:
		call(cb.ImportStmt, a, h)
	case KindNamespace:
		call(cb.Namespace, a, h)
	case KindUseDecl:
		call(cb.UseDecl, a, h)
	case KindInherit:
		call(cb.Inherit, a, h)
	case KindDelete:
		call(cb.Delete, a, h)
	case KindInsert:
		call(cb.Insert, a, h)
	case KindExceptClause:
		call(cb.ExceptClause, a, h)
	case KindVarUse:
		call(cb.VarUse, a, h)
	}
	for _, child := range n.Children {
		Walk(a, child, cb)
	}
}

func call(fn func(a *Arena, h Handle), a *Arena, h Handle) {
	if fn != nil {
		fn(a, h)
	}
}

// MaxInheritanceDepth and MaxVariableSubstitutionDepth bound recursive tree
// operations (inheritance resolution, variable substitution) against malformed or adversarial nesting; see spec §4.4's
// depth-10 inheritance limit and depth-32 variable substitution limit.
const (
	MaxInheritanceDepth        = 10
	MaxVariableSubstitutionDepth = 32
)
