package generator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chtl-lang/chtl/internal/compiler/diag"
	"github.com/chtl-lang/chtl/internal/compiler/generator"
	"github.com/chtl-lang/chtl/internal/compiler/parser"
)

func TestGenerate_ElementWithAttributeAndText(t *testing.T) {
	bag := &diag.Bag{}
	a, doc := parser.Parse(`div { id: box; text { "hello" } }`, bag)
	require.Empty(t, bag.Diagnostics)

	g := generator.New(generator.DefaultOptions())
	htmlOut, _, _, errs := g.Generate(a, doc)
	assert.Empty(t, errs)
	assert.Contains(t, htmlOut, `<div id="box">`)
	assert.Contains(t, htmlOut, "hello")
	assert.Contains(t, htmlOut, "</div>")
}

func TestGenerate_VoidElementSelfCloses(t *testing.T) {
	bag := &diag.Bag{}
	a, doc := parser.Parse(`img { src: "a.png"; }`, bag)
	require.Empty(t, bag.Diagnostics)

	g := generator.New(generator.DefaultOptions())
	htmlOut, _, _, _ := g.Generate(a, doc)
	assert.Contains(t, htmlOut, `<img src="a.png" />`)
	assert.NotContains(t, htmlOut, "</img>")
}

func TestGenerate_LocalStyleBlockAllocatesScopeClass(t *testing.T) {
	bag := &diag.Bag{}
	a, doc := parser.Parse(`div { style { color: red; } }`, bag)
	require.Empty(t, bag.Diagnostics)

	g := generator.New(generator.DefaultOptions())
	htmlOut, cssOut, _, _ := g.Generate(a, doc)
	assert.Contains(t, htmlOut, `class="chtl-s1"`)
	assert.Contains(t, cssOut, ".chtl-s1")
	assert.Contains(t, cssOut, "color: red;")
}

func TestGenerate_ExistingIDIsReusedAsScope(t *testing.T) {
	bag := &diag.Bag{}
	a, doc := parser.Parse(`div { id: hero; style { color: red; } }`, bag)
	require.Empty(t, bag.Diagnostics)

	g := generator.New(generator.DefaultOptions())
	htmlOut, cssOut, _, _ := g.Generate(a, doc)
	assert.NotContains(t, htmlOut, "chtl-s")
	assert.Contains(t, cssOut, "#hero")
}

func TestGenerate_AmpersandSelectorRewrittenToScope(t *testing.T) {
	bag := &diag.Bag{}
	a, doc := parser.Parse(`
		div {
			style {
				color: red;
				&:hover { color: blue; }
			}
		}
	`, bag)
	require.Empty(t, bag.Diagnostics)

	g := generator.New(generator.DefaultOptions())
	_, cssOut, _, _ := g.Generate(a, doc)
	assert.Contains(t, cssOut, ".chtl-s1:hover")
}

func TestGenerate_ScriptBlockPassesThroughVerbatimWithoutCollaborator(t *testing.T) {
	bag := &diag.Bag{}
	a, doc := parser.Parse(`div { script { console.log(1); } }`, bag)
	require.Empty(t, bag.Diagnostics)

	g := generator.New(generator.DefaultOptions())
	_, _, jsOut, errs := g.Generate(a, doc)
	assert.Empty(t, errs)
	assert.Contains(t, jsOut, "console.log(1);")
}

func TestGenerate_GeneratorCommentEmitsIntoHTML(t *testing.T) {
	bag := &diag.Bag{}
	a, doc := parser.Parse("-- keep me\ndiv {}", bag)
	require.Empty(t, bag.Diagnostics)

	g := generator.New(generator.DefaultOptions())
	htmlOut, _, _, _ := g.Generate(a, doc)
	assert.Contains(t, htmlOut, "<!-- keep me -->")
}

func TestGenerate_LocalScriptAlsoEmitsScriptChildInHTML(t *testing.T) {
	bag := &diag.Bag{}
	a, doc := parser.Parse(`div { script { console.log(1); } }`, bag)
	require.Empty(t, bag.Diagnostics)

	g := generator.New(generator.DefaultOptions())
	htmlOut, _, _, _ := g.Generate(a, doc)
	assert.Contains(t, htmlOut, "<script>console.log(1);</script>")
}

func TestGenerate_TranspileCollaboratorRewritesScriptOutput(t *testing.T) {
	bag := &diag.Bag{}
	a, doc := parser.Parse(`div { script { {{box}}->click; } }`, bag)
	require.Empty(t, bag.Diagnostics)

	opts := generator.DefaultOptions()
	opts.Transpile = func(raw string) (string, error) {
		return "/* transpiled */", nil
	}
	g := generator.New(opts)
	htmlOut, _, jsOut, errs := g.Generate(a, doc)
	assert.Empty(t, errs)
	assert.Contains(t, jsOut, "/* transpiled */")
	assert.Contains(t, htmlOut, "<script>/* transpiled */</script>")
	assert.NotContains(t, jsOut, "{{box}}")
}

func TestGenerate_GlobalStyleBlockPassesThroughUnscoped(t *testing.T) {
	bag := &diag.Bag{}
	a, doc := parser.Parse(`
		style {
			body { margin: 0; }
		}
		div { text { "x" } }
	`, bag)
	require.Empty(t, bag.Diagnostics)

	g := generator.New(generator.DefaultOptions())
	htmlOut, cssOut, _, _ := g.Generate(a, doc)
	assert.Contains(t, cssOut, "body {")
	assert.Contains(t, cssOut, "margin: 0;")
	assert.NotContains(t, cssOut, "chtl-s")
	assert.NotContains(t, htmlOut, "chtl-s")
}

func TestGenerate_AnonymousOriginBlocksRouteByKind(t *testing.T) {
	bag := &diag.Bag{}
	a, doc := parser.Parse(`
		[Origin] @Html { <canvas id="c"></canvas> }
		[Origin] @Style { .legacy { float: left; } }
		[Origin] @JavaScript { window.legacy = true; }
	`, bag)
	require.Empty(t, bag.Diagnostics)

	g := generator.New(generator.DefaultOptions())
	htmlOut, cssOut, jsOut, errs := g.Generate(a, doc)
	assert.Empty(t, errs)
	assert.Contains(t, htmlOut, `<canvas id="c"></canvas>`)
	assert.Contains(t, cssOut, ".legacy { float: left; }")
	assert.Contains(t, jsOut, "window.legacy = true;")
}

func TestGenerate_NamedOriginDefinitionAloneEmitsNothing(t *testing.T) {
	bag := &diag.Bag{}
	a, doc := parser.Parse(`
		[Origin] @Html banner { <b>raw</b> }
		div { text { "x" } }
	`, bag)
	require.Empty(t, bag.Diagnostics)

	g := generator.New(generator.DefaultOptions())
	htmlOut, _, _, _ := g.Generate(a, doc)
	assert.NotContains(t, htmlOut, "<b>raw</b>")
}

func TestGenerate_HeadElementGetsMetaCharset(t *testing.T) {
	bag := &diag.Bag{}
	a, doc := parser.Parse(`html { head { title { text { "t" } } } }`, bag)
	require.Empty(t, bag.Diagnostics)

	g := generator.New(generator.DefaultOptions())
	htmlOut, _, _, _ := g.Generate(a, doc)
	assert.Contains(t, htmlOut, `<meta charset="utf-8" />`)
}

func TestGenerate_UseHTML5EmitsDoctype(t *testing.T) {
	bag := &diag.Bag{}
	a, doc := parser.Parse(`use html5; html { body {} }`, bag)
	require.Empty(t, bag.Diagnostics)

	g := generator.New(generator.DefaultOptions())
	htmlOut, _, _, _ := g.Generate(a, doc)
	assert.Contains(t, htmlOut, "<!DOCTYPE html>")
}

func TestGenerate_MinifyOutputStripsHTMLAndCSSWhitespace(t *testing.T) {
	bag := &diag.Bag{}
	a, doc := parser.Parse(`div { id: box; style { color: red; } text { "hello" } }`, bag)
	require.Empty(t, bag.Diagnostics)

	opts := generator.DefaultOptions()
	opts.MinifyOutput = true
	g := generator.New(opts)
	htmlOut, cssOut, _, errs := g.Generate(a, doc)
	assert.Empty(t, errs)
	assert.NotContains(t, htmlOut, "\n")
	assert.NotContains(t, cssOut, "\n")
	assert.Contains(t, htmlOut, "hello")
	assert.Contains(t, cssOut, "color:red")
}
