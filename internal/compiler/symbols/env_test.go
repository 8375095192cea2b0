package symbols_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chtl-lang/chtl/internal/compiler/ast"
	"github.com/chtl-lang/chtl/internal/compiler/diag"
	"github.com/chtl-lang/chtl/internal/compiler/parser"
	"github.com/chtl-lang/chtl/internal/compiler/symbols"
)

func collect(t *testing.T, src string) (*symbols.Env, *diag.Bag) {
	t.Helper()
	bag := &diag.Bag{}
	a, doc := parser.Parse(src, bag)
	require.Empty(t, bag.Diagnostics)
	env := symbols.NewEnv()
	symbols.Collect(a, doc, "", "test.chtl", env, bag)
	return env, bag
}

func TestCollect_RegistersTemplateAndCustomSeparately(t *testing.T) {
	env, bag := collect(t, `
		[Template] @Style Box { color: red; }
		[Custom] @Element Card { div {} }
	`)
	require.Empty(t, bag.Diagnostics)

	_, ok := env.Lookup(symbols.Key{Category: symbols.CategoryTemplate, SubKind: int(ast.TemplateStyle), Name: "Box"})
	assert.True(t, ok)
	_, ok = env.Lookup(symbols.Key{Category: symbols.CategoryCustom, SubKind: int(ast.TemplateElement), Name: "Card"})
	assert.True(t, ok)
}

func TestCollect_RedefinitionIsDiagnosticNotSilentOverride(t *testing.T) {
	_, bag := collect(t, `
		[Template] @Style Box { color: red; }
		[Template] @Style Box { color: blue; }
	`)
	require.NotEmpty(t, bag.Diagnostics)
	assert.Contains(t, bag.Diagnostics[0].Message, "redefinition")
}

func TestCollect_SameNameDifferentKindIsNotACollision(t *testing.T) {
	_, bag := collect(t, `
		[Template] @Style Box { color: red; }
		[Template] @Element Box { div {} }
	`)
	assert.Empty(t, bag.Diagnostics)
}

func TestCollect_NamespacePrefixesRegisteredNames(t *testing.T) {
	env, bag := collect(t, `
		[Namespace] ui {
			[Template] @Style Box { color: red; }
		}
	`)
	require.Empty(t, bag.Diagnostics)

	_, ok := env.Lookup(symbols.Key{Category: symbols.CategoryTemplate, SubKind: int(ast.TemplateStyle), Name: "ui.Box"})
	assert.True(t, ok)
	_, ok = env.Lookup(symbols.Key{Category: symbols.CategoryTemplate, SubKind: int(ast.TemplateStyle), Name: "Box"})
	assert.False(t, ok)
}

func TestCollect_VariableGroupResolvableByNameAlone(t *testing.T) {
	env, bag := collect(t, `[Template] @Var Theme { primary: red; }`)
	require.Empty(t, bag.Diagnostics)

	_, ok := env.Lookup(symbols.Key{Category: symbols.CategoryVariable, SubKind: int(ast.TemplateVar), Name: "Theme"})
	assert.True(t, ok)
}

func TestLookupTemplateOrCustom_CustomShadowsTemplate(t *testing.T) {
	env, _ := collect(t, `
		[Template] @Style Box { color: red; }
		[Custom] @Style Box { color: blue; }
	`)
	_, category, ok := env.LookupTemplateOrCustom(ast.TemplateStyle, "Box")
	require.True(t, ok)
	assert.Equal(t, symbols.CategoryCustom, category)
}

func TestQualifyAndSplitNamespaceRoundTrip(t *testing.T) {
	fq := symbols.QualifyName("ui.widgets", "Box")
	assert.Equal(t, "ui.widgets.Box", fq)
	ns, local := symbols.SplitNamespace(fq)
	assert.Equal(t, "ui.widgets", ns)
	assert.Equal(t, "Box", local)

	ns, local = symbols.SplitNamespace("Box")
	assert.Empty(t, ns)
	assert.Equal(t, "Box", local)
}
