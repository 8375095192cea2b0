// Package symbols implements the CHTL symbol environment: four
// namespace-aware registries (templates, customs, variables, origins)
// keyed by (kind, fully-qualified name), plus import resolution.
//
// Grounded on the teacher's services/trace/ast/parser.go ParserRegistry
// (sync.RWMutex-guarded map, Register/Get-by-key accessors), generalized
// from one table keyed by language string to four tables keyed by
// (category, sub-kind, name) triples.
package symbols

import (
	"fmt"
	"strings"
	"sync"

	"github.com/chtl-lang/chtl/internal/compiler/ast"
)

// Category is the top-level symbol table a definition belongs to.
type Category int

const (
	CategoryTemplate Category = iota
	CategoryCustom
	CategoryVariable
	CategoryOrigin
)

func (c Category) String() string {
	switch c {
	case CategoryTemplate:
		return "template"
	case CategoryCustom:
		return "custom"
	case CategoryVariable:
		return "variable"
	case CategoryOrigin:
		return "origin"
	default:
		return "unknown"
	}
}

// Key identifies one symbol table entry. SubKind holds an ast.TemplateKind
// for Template/Custom/Variable categories, or an ast.OriginKind for Origin.
// Name is fully qualified: namespace segments joined with '.', matching
// spec §3.4's namespace-dotted name scheme.
type Key struct {
	Category Category
	SubKind  int
	Name     string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d:%s", k.Category, k.SubKind, k.Name)
}

// QualifyName joins a namespace path and a local name into a fully
// qualified symbol name. An empty namespace returns name unchanged.
func QualifyName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// Entry is one registered definition: the AST node backing it, the arena
// it lives in (templates may be defined in a different file than they are
// used, after import resolution), and the file it came from for
// diagnostics.
type Entry struct {
	Def        ast.Handle
	Arena      *ast.Arena
	OriginFile string
}

// Env is the symbol environment for a single compilation. It is built
// during symbol collection (pass 1) and consulted, read-only, during
// template instantiation (pass 2) and generation (pass 3).
type Env struct {
	mu      sync.RWMutex
	entries map[Key]Entry
}

// NewEnv returns an empty symbol environment. A fresh Env is created per
// compilation (never a package-level singleton), per the design notes'
// "explicit context over global registries" instruction.
func NewEnv() *Env {
	return &Env{entries: make(map[Key]Entry)}
}

// Register adds entry under key. It reports ok=false without mutating the
// table if key is already bound — redefinition is surfaced as a
// diagnostic by the caller, never silently overwritten (spec §3.4
// invariant: unique (kind, name) resolution).
func (e *Env) Register(key Key, entry Entry) (ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.entries[key]; exists {
		return false
	}
	e.entries[key] = entry
	return true
}

// Each calls fn for every registered entry. Iteration order is
// unspecified; callers needing determinism must sort keys themselves.
func (e *Env) Each(fn func(Key, Entry)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for k, entry := range e.entries {
		fn(k, entry)
	}
}

// Lookup returns the entry bound to key, if any.
func (e *Env) Lookup(key Key) (Entry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.entries[key]
	return entry, ok
}

// LookupTemplateOrCustom resolves a @Style/@Element/@Var reference,
// preferring a Custom definition over a Template one when both exist under
// the same name (customs are the specialisable variant and are expected to
// shadow a same-named plain template within the same namespace).
func (e *Env) LookupTemplateOrCustom(sub ast.TemplateKind, name string) (Entry, Category, bool) {
	if entry, ok := e.Lookup(Key{Category: CategoryCustom, SubKind: int(sub), Name: name}); ok {
		return entry, CategoryCustom, true
	}
	if entry, ok := e.Lookup(Key{Category: CategoryTemplate, SubKind: int(sub), Name: name}); ok {
		return entry, CategoryTemplate, true
	}
	return Entry{}, 0, false
}

// SplitNamespace separates a dotted fully-qualified name into its
// namespace path and local name (the final segment).
func SplitNamespace(fqName string) (namespace, local string) {
	i := strings.LastIndexByte(fqName, '.')
	if i < 0 {
		return "", fqName
	}
	return fqName[:i], fqName[i+1:]
}
