// Package chtl is the public API of the CHTL compiler: Compile and
// CompileFile drive the lex -> parse -> collect -> instantiate -> emit
// pipeline described in spec.md §2 and return a Result aggregating every
// diagnostic, per spec §6.1.
//
// Grounded on the teacher's cmd/aleutian/commands.go driver shape (a
// small set of top-level entry points wiring independently-testable
// subsystems together) and on services/trace/ast/metrics.go's
// span-per-call / duration-recording pattern, reused here for
// StartCompileSpan/RecordCompile around the whole pipeline rather than a
// single AST parse.
package chtl

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chtl-lang/chtl/internal/compiler/ast"
	"github.com/chtl-lang/chtl/internal/compiler/cache"
	"github.com/chtl-lang/chtl/internal/compiler/config"
	"github.com/chtl-lang/chtl/internal/compiler/diag"
	"github.com/chtl-lang/chtl/internal/compiler/generator"
	"github.com/chtl-lang/chtl/internal/compiler/metrics"
	"github.com/chtl-lang/chtl/internal/compiler/parser"
	"github.com/chtl-lang/chtl/internal/compiler/source"
	"github.com/chtl-lang/chtl/internal/compiler/symbols"
	"github.com/chtl-lang/chtl/internal/compiler/template"
)

// Result is the outcome of one compile() or compile_file() call (spec §6.1).
type Result struct {
	Success           bool
	HTML              string
	CSS               string
	JS                string
	Errors            []diag.Diagnostic
	Warnings          []diag.Diagnostic
	FromCache         bool
	CompilationTimeMs int64

	// AST and Arena expose the resolved document for callers that need to
	// inspect structure beyond the emitted strings; not part of the
	// documented Result fields but
	// additive, never breaking the documented shape.
	Arena *ast.Arena
	AST   ast.Handle
}

// TranspileJS is re-exported so embedders can configure the CHTL-JS
// collaborator without importing the generator package directly.
type TranspileJS = generator.TranspileJS

// Compiler holds everything that should persist across repeated compiles
// within one process: the compilation cache and the otel/prometheus
// instrumentation are process-wide by nature (spec §5's "a compilation
// cache keyed by source-hash + filename may be maintained process-wide"),
// while every other piece of state (symbol environment, diagnostics bag)
// is constructed fresh per call so no compilation can leak state into
// another, per the design notes' "template registry must be per-
// compilation" instruction.
type Compiler struct {
	opts      config.Options
	fs        *source.FileSystem
	cache     *cache.Cache
	transpile TranspileJS
}

// New returns a Compiler configured by opts. EnableCaching=false skips
// cache construction entirely.
func New(opts config.Options, transpile TranspileJS) (*Compiler, error) {
	c := &Compiler{opts: opts, fs: source.NewOS(), transpile: transpile}
	if opts.EnableCaching {
		store, err := cache.New(opts.CacheSizeMax)
		if err != nil {
			return nil, err
		}
		c.cache = store
	}
	return c, nil
}

// Close releases the Compiler's background resources (the cache's
// ristretto goroutines).
func (c *Compiler) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

// Compile runs the full pipeline over in-memory source text. filename is
// used only for diagnostics and cache keying; it need not exist on disk.
func (c *Compiler) Compile(ctx context.Context, src string, filename string) Result {
	if filename == "" {
		filename = "<anonymous>"
	}

	ctx, span := metrics.StartCompileSpan(ctx, filename)
	defer span.End()
	start := time.Now()

	if c.cache != nil {
		key := cache.Key(filename, []byte(src))
		if entry, err := c.cache.Get(key); err == nil {
			metrics.RecordCacheHit(ctx)
			return Result{
				Success:           true,
				HTML:              entry.HTML,
				CSS:               entry.CSS,
				JS:                entry.JS,
				FromCache:         true,
				CompilationTimeMs: time.Since(start).Milliseconds(),
			}
		}
		metrics.RecordCacheMiss(ctx)
	}

	result := c.compileUncached(ctx, src, filename)
	result.CompilationTimeMs = time.Since(start).Milliseconds()

	metrics.RecordCompile(ctx, time.Since(start), result.Success, len(result.Errors), len(result.Warnings))

	if c.cache != nil && result.Success {
		key := cache.Key(filename, []byte(src))
		c.cache.Put(key, cache.Entry{
			ID:   uuid.New(),
			HTML: result.HTML,
			CSS:  result.CSS,
			JS:   result.JS,
		})
	}
	return result
}

// CompileFile reads path from the Compiler's filesystem and compiles it.
func (c *Compiler) CompileFile(ctx context.Context, path string) Result {
	data, err := c.fs.ReadFile(path)
	if err != nil {
		return Result{
			Success: false,
			Errors: []diag.Diagnostic{
				diag.NewCause(diag.PhaseLex, diag.Position{}, diag.ErrIO, "failed to read %s: %s", path, err),
			},
		}
	}
	return c.Compile(ctx, string(data), path)
}

func (c *Compiler) compileUncached(_ context.Context, src string, filename string) Result {
	bag := &diag.Bag{StrictMode: c.opts.StrictMode, StopOnFirstError: c.opts.StopOnFirstError}

	srcArena, doc := parser.Parse(src, bag)
	if bag.StopOnFirstError && bag.HasErrors() {
		return finish(bag, nil, ast.NoHandle, "", "", "")
	}

	// A source-level [Configuration] block overrides this compilation's
	// options from here on; the parse phase above necessarily ran under
	// the driver-supplied settings.
	opts := c.applyConfigBlocks(srcArena, doc, bag)
	bag.StrictMode = opts.StrictMode
	bag.StopOnFirstError = opts.StopOnFirstError

	env := symbols.NewEnv()
	symbols.Collect(srcArena, doc, "", filename, env, bag)
	processImports(srcArena, doc, filename, c.opts.SearchPaths, c.fs, env, bag)
	if bag.StopOnFirstError && bag.HasErrors() {
		return finish(bag, srcArena, doc, "", "", "")
	}

	eng := template.NewEngine(env, bag)
	resolvedArena, resolvedRoot := eng.Resolve(srcArena, doc, "")
	if bag.StopOnFirstError && bag.HasErrors() {
		return finish(bag, resolvedArena, resolvedRoot, "", "", "")
	}

	genOpts := generator.Options{
		IndentString:     opts.IndentString,
		MinifyOutput:     opts.MinifyOutput,
		PreserveComments: opts.PreserveComments,
		OutputCharset:    opts.OutputCharset,
		Transpile:        c.transpile,
	}
	g := generator.New(genOpts)
	htmlOut, cssOut, jsOut, emitErrs := g.Generate(resolvedArena, resolvedRoot)
	for _, e := range emitErrs {
		bag.Add(diag.New(diag.PhaseEmit, diag.Position{}, "%s", e))
	}

	return finish(bag, resolvedArena, resolvedRoot, htmlOut, cssOut, jsOut)
}

func finish(bag *diag.Bag, a *ast.Arena, root ast.Handle, html, css, js string) Result {
	return Result{
		Success:  !bag.HasErrors(),
		HTML:     html,
		CSS:      css,
		JS:       js,
		Errors:   bag.Errors(),
		Warnings: bag.Warnings(),
		Arena:    a,
		AST:      root,
	}
}

// applyConfigBlocks layers the attributes of any top-level [Configuration]
// block onto a copy of the Compiler's options; unrecognized keys warn.
func (c *Compiler) applyConfigBlocks(a *ast.Arena, doc ast.Handle, bag *diag.Bag) config.Options {
	opts := c.opts
	for _, h := range a.Get(doc).Children {
		n := a.Get(h)
		if n.Kind != ast.KindConfigBlock {
			continue
		}
		for _, attr := range n.Attrs {
			if !config.SetOption(&opts, attr.Name, attr.Value) {
				bag.Add(diag.Warn(diag.PhaseResolve, diag.FromToken(n.Pos), "unknown configuration key %q", attr.Name))
			}
		}
	}
	return opts
}

// processImports walks doc's top-level [Import] statements, resolving
// each against searchPaths (or the importing file's own directory for a
// relative path) and splicing the imported file's exported symbols into
// env, applying any `except` exclusion list and the alias the import
// introduces.
func processImports(a *ast.Arena, doc ast.Handle, filename string, searchPaths []string, fs *source.FileSystem, env *symbols.Env, bag *diag.Bag) {
	importer := symbols.NewImporter(fs, searchPaths, parser.Parse)
	doc_ := a.Get(doc)
	for _, h := range doc_.Children {
		n := a.Get(h)
		if n.Kind != ast.KindImportStmt {
			continue
		}
		target := n.Target
		if source.IsRelative(target) {
			target = source.ResolveRelative(filename, target)
		}
		importer.Import(target, n.ImportAlias, n.Except, env, bag, diag.FromToken(n.Pos))
	}
}
