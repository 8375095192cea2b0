package symbols

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/chtl-lang/chtl/internal/compiler/ast"
	"github.com/chtl-lang/chtl/internal/compiler/diag"
	"github.com/chtl-lang/chtl/internal/compiler/source"
)

// FileReader abstracts the source surface an Importer reads from; it is
// satisfied by internal/compiler/source.FileSystem (afero-backed).
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// ParseFunc parses one CHTL source file into an AST, letting Importer stay
// decoupled from the parser package's concrete signature.
type ParseFunc func(src string, bag *diag.Bag) (*ast.Arena, ast.Handle)

// Importer resolves `[Import] ... from "path" as alias;` statements
// against a set of search-path roots, globbing logical import names with
// doublestar (spec §6.3), recursively collecting symbols from each
// imported file, and detecting import cycles via an in-progress set.
type Importer struct {
	fs          FileReader
	searchPaths []string
	parse       ParseFunc

	mu         sync.Mutex
	inProgress map[string]bool
	resolved   map[string]bool
}

// NewImporter returns an Importer rooted at searchPaths, in priority order.
func NewImporter(fs FileReader, searchPaths []string, parse ParseFunc) *Importer {
	return &Importer{
		fs:          fs,
		searchPaths: searchPaths,
		parse:       parse,
		inProgress:  make(map[string]bool),
		resolved:    make(map[string]bool),
	}
}

// Resolve locates the file backing a logical import path, globbing it
// against each search root in turn and returning the first match.
func (im *Importer) Resolve(logicalPath string) (string, error) {
	if filepath.IsAbs(logicalPath) || strings.HasPrefix(logicalPath, ".") {
		return logicalPath, nil
	}
	glob := source.LogicalToGlob(logicalPath)
	for _, root := range im.searchPaths {
		pattern := filepath.ToSlash(filepath.Join(root, glob))
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			continue
		}
		if len(matches) > 0 {
			return matches[0], nil
		}
	}
	return "", fmt.Errorf("chtl: import %q not found under any search path", logicalPath)
}

// Import resolves and recursively processes logicalPath, splicing the
// imported file's symbols into env. alias, when non-empty, becomes a
// namespace prefix on every imported name; except lists local names to
// drop from the imported view. It reports a cycle diagnostic (rather than
// recursing forever) when logicalPath is already on the in-progress
// import stack.
func (im *Importer) Import(logicalPath, alias string, except []string, env *Env, bag *diag.Bag, pos diag.Position) {
	resolvedPath, err := im.Resolve(logicalPath)
	if err != nil {
		bag.Add(diag.NewCause(diag.PhaseResolve, pos, diag.ErrUnresolved, "%s", err))
		return
	}
	// Cycle/duplicate bookkeeping keys on the cleaned path so "./a.chtl"
	// and "a.chtl" are recognised as the same file.
	resolvedPath = filepath.Clean(resolvedPath)

	im.mu.Lock()
	if im.inProgress[resolvedPath] {
		im.mu.Unlock()
		bag.Add(diag.NewCause(diag.PhaseResolve, pos, diag.ErrCycle, "import cycle detected at %q", logicalPath))
		return
	}
	if im.resolved[resolvedPath] {
		im.mu.Unlock()
		return // already imported once; re-import is a no-op, not an error
	}
	im.inProgress[resolvedPath] = true
	im.mu.Unlock()

	defer func() {
		im.mu.Lock()
		delete(im.inProgress, resolvedPath)
		im.resolved[resolvedPath] = true
		im.mu.Unlock()
	}()

	data, err := im.fs.ReadFile(resolvedPath)
	if err != nil {
		bag.Add(diag.NewCause(diag.PhaseResolve, pos, diag.ErrIO, "failed to read import %q: %s", logicalPath, err))
		return
	}

	// Collect into a view first so alias prefixing and except filtering
	// apply to the whole imported surface at once.
	view := NewEnv()
	importArena, importDoc := im.parse(string(data), bag)
	Collect(importArena, importDoc, "", resolvedPath, view, bag)

	// Nested [Import] statements in the imported file are resolved
	// transitively into the same view, so an alias on the outer import
	// prefixes everything it pulls in.
	importNode := importArena.Get(importDoc)
	for _, child := range importNode.Children {
		c := importArena.Get(child)
		if c.Kind == ast.KindImportStmt {
			im.Import(c.Target, c.ImportAlias, c.Except, view, bag, diag.FromToken(c.Pos))
		}
	}

	spliceImported(env, view, alias, except, bag, pos)
}

// spliceImported copies a collected import view into dst, renaming through
// alias and dropping excepted local names. A name already bound in dst
// keeps its first binding (first-wins) and the collision is surfaced as a
// warning.
func spliceImported(dst, view *Env, alias string, except []string, bag *diag.Bag, pos diag.Position) {
	skip := make(map[string]bool, len(except))
	for _, name := range except {
		skip[name] = true
	}
	view.Each(func(k Key, entry Entry) {
		_, local := SplitNamespace(k.Name)
		if skip[local] || skip[k.Name] {
			return
		}
		name := k.Name
		if alias != "" {
			name = QualifyName(alias, name)
		}
		if ok := dst.Register(Key{Category: k.Category, SubKind: k.SubKind, Name: name}, entry); !ok {
			bag.Add(diag.Warn(diag.PhaseResolve, pos, "imported name %q is already bound; first import wins", name))
		}
	})
}
