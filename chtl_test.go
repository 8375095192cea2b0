package chtl_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chtl "github.com/chtl-lang/chtl"
	"github.com/chtl-lang/chtl/internal/compiler/config"
	"github.com/chtl-lang/chtl/internal/compiler/diag"
)

func newCompiler(t *testing.T) *chtl.Compiler {
	t.Helper()
	opts := config.Apply(config.WithCaching(false, 0))
	c, err := chtl.New(opts, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

// spec.md §8 scenario 1: minimal element.
func TestCompile_MinimalElement(t *testing.T) {
	c := newCompiler(t)
	result := c.Compile(context.Background(), `html { body { text { "hi" } } }`, "minimal.chtl")

	require.True(t, result.Success, "unexpected diagnostics: %+v", result.Errors)
	assert.Contains(t, result.HTML, "<html>")
	assert.Contains(t, result.HTML, "<body>")
	assert.Contains(t, result.HTML, "hi")
	assert.Empty(t, result.CSS)
	assert.Empty(t, result.JS)
}

// spec.md §8 scenario 2: local style scoping.
func TestCompile_LocalStyleScoping(t *testing.T) {
	c := newCompiler(t)
	result := c.Compile(context.Background(), `div { style { color: red; } text { "x" } }`, "scoped.chtl")

	require.True(t, result.Success, "unexpected diagnostics: %+v", result.Errors)
	assert.Contains(t, result.HTML, `class="chtl-s1"`)
	assert.Contains(t, result.HTML, "x")
	assert.Contains(t, result.CSS, ".chtl-s1")
	assert.Contains(t, result.CSS, "color: red;")
}

// spec.md §8 scenario 3: template use.
func TestCompile_TemplateUse(t *testing.T) {
	c := newCompiler(t)
	src := `
[Template] @Style T { color: blue; font-size: 12px; }
p { style { @Style T; } text { "p" } }
`
	result := c.Compile(context.Background(), src, "template.chtl")

	require.True(t, result.Success, "unexpected diagnostics: %+v", result.Errors)
	assert.Contains(t, result.HTML, `class="chtl-s1"`)
	assert.Contains(t, result.CSS, "color: blue;")
	assert.Contains(t, result.CSS, "font-size: 12px;")
}

// spec.md §8 scenario 4: inheritance + override, later-wins on the
// overridden property while non-overridden inherited properties survive.
func TestCompile_InheritanceOverride(t *testing.T) {
	c := newCompiler(t)
	src := `
[Template] @Style A { color: red; margin: 0; }
[Template] @Style B { inherit @Style A; color: green; }
p { style { @Style B; } text { "p" } }
`
	result := c.Compile(context.Background(), src, "inherit.chtl")

	require.True(t, result.Success, "unexpected diagnostics: %+v", result.Errors)
	assert.Contains(t, result.CSS, "color: green;")
	assert.Contains(t, result.CSS, "margin: 0;")
	assert.NotContains(t, result.CSS, "color: red;")
}

// spec.md §8 scenario 5: custom with specialisation (delete index 0,
// insert at bottom).
func TestCompile_CustomSpecialisation(t *testing.T) {
	c := newCompiler(t)
	src := `
[Custom] @Element Card { div { text { "hdr" } } div { text { "body" } } }
@Element Card { delete [0]; insert at bottom { div { text { "ftr" } } } }
`
	result := c.Compile(context.Background(), src, "custom.chtl")

	require.True(t, result.Success, "unexpected diagnostics: %+v", result.Errors)
	assert.NotContains(t, result.HTML, "hdr")
	assert.Contains(t, result.HTML, "body")
	assert.Contains(t, result.HTML, "ftr")
}

// spec.md §8 scenario 6: variable group substitution.
func TestCompile_VariableGroup(t *testing.T) {
	c := newCompiler(t)
	src := `
[Template] @Var V { primary: #07f; }
p { style { color: V(primary); } text { "p" } }
`
	result := c.Compile(context.Background(), src, "var.chtl")

	require.True(t, result.Success, "unexpected diagnostics: %+v", result.Errors)
	assert.Contains(t, result.CSS, "color: #07f;")
}

// spec.md §8 boundary case: a template that inherits itself must report a
// diagnostic rather than hang or panic.
func TestCompile_SelfInheritingTemplateReportsDiagnosticWithoutHanging(t *testing.T) {
	c := newCompiler(t)
	src := `
[Template] @Style Loop { inherit @Style Loop; color: red; }
p { style { @Style Loop; } text { "p" } }
`
	result := c.Compile(context.Background(), src, "cycle.chtl")
	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.ErrorIs(t, result.Errors[0], diag.ErrCycle)
}

// spec.md §8 boundary case: an empty document compiles to empty outputs.
func TestCompile_EmptyDocumentSucceedsWithEmptyOutputs(t *testing.T) {
	c := newCompiler(t)
	result := c.Compile(context.Background(), "", "empty.chtl")
	require.True(t, result.Success)
	assert.Empty(t, result.HTML)
	assert.Empty(t, result.CSS)
	assert.Empty(t, result.JS)
}

func TestCompile_MinifyOutputOptionStripsWhitespace(t *testing.T) {
	opts := config.Apply(config.WithCaching(false, 0), config.WithMinify(true))
	c, err := chtl.New(opts, nil)
	require.NoError(t, err)
	defer c.Close()

	result := c.Compile(context.Background(), `div { style { color: red; } text { "x" } }`, "min.chtl")
	require.True(t, result.Success, "unexpected diagnostics: %+v", result.Errors)
	assert.NotContains(t, result.HTML, "\n")
}

func TestCompile_CachingReturnsFromCacheOnSecondCall(t *testing.T) {
	opts := config.Apply(config.WithCaching(true, 16))
	c, err := chtl.New(opts, nil)
	require.NoError(t, err)
	defer c.Close()

	src := `div { text { "cached" } }`
	first := c.Compile(context.Background(), src, "cache.chtl")
	require.True(t, first.Success)
	assert.False(t, first.FromCache)

	second := c.Compile(context.Background(), src, "cache.chtl")
	require.True(t, second.Success)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.HTML, second.HTML)
}

// spec.md §8 property: swapping every attribute/property ':' for '=' is
// output-identical (CE-equivalence).
func TestCompile_CEEquivalenceProducesIdenticalOutputs(t *testing.T) {
	c := newCompiler(t)
	colon := c.Compile(context.Background(), `div { id: box; style { color: red; } text { "x" } }`, "ce-colon.chtl")
	equals := c.Compile(context.Background(), `div { id = box; style { color = red; } text { "x" } }`, "ce-equals.chtl")
	require.True(t, colon.Success)
	require.True(t, equals.Success)

	if diff := cmp.Diff(colon.HTML, equals.HTML); diff != "" {
		t.Errorf("HTML differs between CE forms (-colon +equals):\n%s", diff)
	}
	if diff := cmp.Diff(colon.CSS, equals.CSS); diff != "" {
		t.Errorf("CSS differs between CE forms (-colon +equals):\n%s", diff)
	}
}

func TestCompile_SourceConfigurationBlockOverridesOptions(t *testing.T) {
	c := newCompiler(t)
	src := `
[Configuration] {
	minify_output = true;
}
div { style { color: red; } text { "x" } }
`
	result := c.Compile(context.Background(), src, "config.chtl")
	require.True(t, result.Success, "unexpected diagnostics: %+v", result.Errors)
	assert.NotContains(t, result.HTML, "\n")
}

func TestCompile_UnknownConfigurationKeyWarns(t *testing.T) {
	opts := config.Apply(config.WithCaching(false, 0), config.WithStrictMode(false))
	c, err := chtl.New(opts, nil)
	require.NoError(t, err)
	defer c.Close()

	result := c.Compile(context.Background(), `
[Configuration] {
	no_such_option = true;
}
div { text { "x" } }
`, "config-unknown.chtl")
	require.True(t, result.Success)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "no_such_option")
}

// spec.md §8 boundary case: a failed insert anchor is one diagnostic; the
// other specialisation operations still apply.
func TestCompile_InsertAfterMissingAnchorReportsDiagnosticAndContinues(t *testing.T) {
	c := newCompiler(t)
	src := `
[Custom] @Element Card { div { text { "body" } } }
@Element Card {
	insert after span { p { text { "extra" } } }
	insert at bottom { div { text { "ftr" } } }
}
`
	result := c.Compile(context.Background(), src, "anchor.chtl")
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "anchor")
	assert.Contains(t, result.HTML, "ftr")
	assert.NotContains(t, result.HTML, "extra")
}

func TestCompile_NamedOriginInlinedAtUseSite(t *testing.T) {
	c := newCompiler(t)
	src := `
[Origin] @Html banner { <svg viewBox="0 0 1 1"></svg> }
div {
	[Origin] @Html banner;
	text { "x" }
}
`
	result := c.Compile(context.Background(), src, "origin.chtl")
	require.True(t, result.Success, "unexpected diagnostics: %+v", result.Errors)
	assert.Contains(t, result.HTML, `<svg viewBox="0 0 1 1"></svg>`)
}

func TestCompile_UnresolvedOriginReferenceReportsEmitDiagnostic(t *testing.T) {
	c := newCompiler(t)
	result := c.Compile(context.Background(), `div { [Origin] @Html missing; }`, "origin-missing.chtl")
	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "emit", string(result.Errors[0].Phase))
	// The failed region is marked so partial output stays valid.
	assert.Contains(t, result.HTML, "unresolved origin")
}

func TestCompile_ExceptConstraintRejectsBannedElement(t *testing.T) {
	c := newCompiler(t)
	src := `
div {
	except span;
	span { text { "banned" } }
	p { text { "ok" } }
}
`
	result := c.Compile(context.Background(), src, "except.chtl")
	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0].Message, "disallowed")
	assert.NotContains(t, result.HTML, "banned")
	assert.Contains(t, result.HTML, "ok")
}

func TestCompile_UseHTML5AndHeadEmitFullDocumentFraming(t *testing.T) {
	c := newCompiler(t)
	src := `
use html5;
html {
	head { title { text { "t" } } }
	body { text { "b" } }
}
`
	result := c.Compile(context.Background(), src, "doc.chtl")
	require.True(t, result.Success, "unexpected diagnostics: %+v", result.Errors)
	assert.Contains(t, result.HTML, "<!DOCTYPE html>")
	assert.Contains(t, result.HTML, `<meta charset="utf-8" />`)
}

func TestCompile_RelativeImportBringsTemplatesIntoScope(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, "lib.chtl")
	mainPath := filepath.Join(dir, "main.chtl")
	require.NoError(t, os.WriteFile(libPath, []byte(`[Template] @Style Shared { color: teal; }`), 0o644))
	require.NoError(t, os.WriteFile(mainPath, []byte(`
[Import] @Chtl from "./lib.chtl";
p { style { @Style Shared; } text { "p" } }
`), 0o644))

	c := newCompiler(t)
	result := c.CompileFile(context.Background(), mainPath)
	require.True(t, result.Success, "unexpected diagnostics: %+v", result.Errors)
	assert.Contains(t, result.CSS, "color: teal;")
}

func TestCompile_ImportExceptFiltersSymbol(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, "lib.chtl")
	mainPath := filepath.Join(dir, "main.chtl")
	require.NoError(t, os.WriteFile(libPath, []byte(`[Template] @Style Shared { color: teal; }`), 0o644))
	require.NoError(t, os.WriteFile(mainPath, []byte(`
[Import] @Chtl from "./lib.chtl" except Shared;
p { style { @Style Shared; } text { "p" } }
`), 0o644))

	c := newCompiler(t)
	result := c.CompileFile(context.Background(), mainPath)
	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0].Message, "unresolved")
}

func TestCompileFile_MissingFileReportsLexDiagnostic(t *testing.T) {
	c := newCompiler(t)
	result := c.CompileFile(context.Background(), "/nonexistent/path/does-not-exist.chtl")
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "lex", string(result.Errors[0].Phase))
	assert.ErrorIs(t, result.Errors[0], diag.ErrIO)
}
