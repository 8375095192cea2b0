// Package ast defines the CHTL abstract syntax tree.
//
// Nodes live in an Arena and are addressed by Handle (an integer index)
// rather than by pointer: children reference their parent implicitly
// through tree position, never the other way around, so there is no
// parent pointer to keep consistent during rewriting. Template
// instantiation and specialisation build new Arenas rather than mutating
// a shared one in place.
package ast

import "github.com/chtl-lang/chtl/internal/compiler/token"

// Handle addresses a Node within an Arena. The zero Handle (0) is never a
// valid node; NoHandle makes that explicit at call sites.
type Handle int

const NoHandle Handle = -1

// Kind tags the variant a Node represents.
type Kind int

const (
	KindDocument Kind = iota
	KindElement
	KindText
	KindComment
	KindStyleBlock
	KindStyleRule
	KindStyleProp
	KindScriptBlock
	KindTemplateDef
	KindCustomDef
	KindTemplateUse
	KindOriginDef
	KindOriginUse
	KindImportStmt
	KindNamespace
	KindUseDecl
	KindConfigBlock
	KindMetadataBlock
	KindInherit
	KindDelete
	KindInsert
	KindExceptClause
	KindVarUse
)

// TemplateKind distinguishes @Style / @Element / @Var template families.
type TemplateKind int

const (
	TemplateStyle TemplateKind = iota
	TemplateElement
	TemplateVar
)

func (k TemplateKind) String() string {
	switch k {
	case TemplateStyle:
		return "@Style"
	case TemplateElement:
		return "@Element"
	case TemplateVar:
		return "@Var"
	default:
		return "@Unknown"
	}
}

// OriginKind distinguishes the embedded-content family of an [Origin] block.
type OriginKind int

const (
	OriginHTML OriginKind = iota
	OriginStyle
	OriginJavaScript
	OriginCustom
)

// DeleteTargetKind disambiguates a specialisation `delete` statement,
// resolved once during parsing (see DESIGN.md, grounded on the original's
// DeleteStatementNode mutually-exclusive flags).
type DeleteTargetKind int

const (
	DeleteProperty DeleteTargetKind = iota
	DeleteElement
	DeleteInheritance
)

// InsertPosition is the anchor kind for a specialisation `insert` statement.
type InsertPosition int

const (
	InsertAfter InsertPosition = iota
	InsertBefore
	InsertReplace
	InsertAtTop
	InsertAtBottom
)

// Attr is a single CE-equivalent key/value pair (element attribute or
// style property). Colon reports whether the source used ':' (vs '=');
// retained only for diagnostic fidelity, never semantic.
type Attr struct {
	Name  string
	Value string
	Colon bool
}

// Node is a tagged-union AST node. Only the fields relevant to Kind are
// meaningful; see the per-Kind comments below. Node is addressed by Handle
// and stored by value inside an Arena slice.
type Node struct {
	Kind Kind
	Pos  token.Position

	// Name carries: Element tag name, TemplateDef/CustomDef/TemplateUse
	// name, OriginDef/OriginUse name (may be empty for anonymous origin),
	// Namespace name.
	Name string

	// Text carries: Text node content, Comment content (GeneratorComment
	// becomes literal "<!-- ... -->" text at emit time), UnquotedLiteral
	// passthrough payload.
	Text string

	// IsGenerator marks a Comment node that should be emitted into output
	// (originated from a '--' generator comment) rather than stripped.
	IsGenerator bool

	// Children holds ordered child nodes: Document's top level, Element's
	// body, StyleBlock's rules/props, ScriptBlock's raw content holder,
	// TemplateDef/CustomDef's body, Insert's contentBlock.
	Children []Handle

	// Attrs holds Element attributes or StyleBlock direct properties.
	Attrs []Attr

	// TemplateKind applies to TemplateDef, CustomDef, TemplateUse.
	TemplateKind TemplateKind

	// IsCustom marks a TemplateDef/TemplateUse as declared via [Custom]
	// rather than [Template]; customs permit specialisation at use sites
	// that plain templates forbid.
	IsCustom bool

	// FullPrefix marks a TemplateUse written with the fully-qualified
	// `[Template] @Style Name` / `[Custom] @Style Name` form rather than
	// the bare `@Style Name` form (original source: hasFullPrefix).
	FullPrefix bool

	// Specialization holds the body block following a TemplateUse
	// (Delete/Insert statements and override property/child nodes);
	// NoHandle when the use site has no specialisation.
	Specialization Handle

	// Inherits holds Inherit edges declared inside a TemplateDef/CustomDef
	// body, in declaration order.
	Inherits []Handle

	// Explicit marks an Inherit edge written as `inherit @Style Parent;`
	// rather than the bare `@Style Parent;` shorthand form.
	Explicit bool

	// Target carries: Inherit's parent template/custom name, VarUse's
	// group name, OriginUse's referenced name, ImportStmt's source path.
	Target string

	// OriginKind applies to OriginDef/OriginUse.
	OriginKind OriginKind

	// DeleteTargetKind and Targets apply to Delete nodes.
	DeleteTargetKind DeleteTargetKind
	Targets          []string

	// InsertPosition, TargetSelector, and Children (as the content block)
	// apply to Insert nodes.
	InsertPosition InsertPosition
	TargetSelector string

	// VarName and Override apply to VarUse: `Group(varName)` or
	// `Group(varName = override)`.
	VarName  string
	Override string
	HasOverride bool

	// ImportAlias/Except apply to ImportStmt.
	ImportAlias string
	Except      []string

	// UseDeclIsHTML5 distinguishes `use html5;` from `use @Namespace x;`.
	UseDeclIsHTML5 bool
}

// Arena owns every Node produced while parsing or instantiating one
// compilation unit. Index 0 is reserved (NoHandle maps to -1, but 0 is
// still avoided as a "zero value looks valid" trap by always allocating a
// throwaway sentinel at construction).
type Arena struct {
	nodes []Node
}

// NewArena returns an Arena with its sentinel slot pre-allocated.
func NewArena() *Arena {
	a := &Arena{}
	a.nodes = append(a.nodes, Node{Kind: KindDocument}) // sentinel, never addressed externally
	return a
}

// Add appends n and returns its Handle.
func (a *Arena) Add(n Node) Handle {
	a.nodes = append(a.nodes, n)
	return Handle(len(a.nodes) - 1)
}

// Get returns the Node for h. Callers must not retain the returned pointer
// across further Add calls, since Arena may reallocate its backing slice.
func (a *Arena) Get(h Handle) *Node {
	return &a.nodes[h]
}

// Len reports how many nodes the arena holds, including the sentinel.
func (a *Arena) Len() int { return len(a.nodes) }
