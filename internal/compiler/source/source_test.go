package source_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chtl-lang/chtl/internal/compiler/source"
)

func TestFileSystemMem_WriteThenReadRoundTrips(t *testing.T) {
	fs := source.NewMem()
	require.NoError(t, fs.WriteFile("widgets/button.chtl", []byte("div {}")))

	data, err := fs.ReadFile("widgets/button.chtl")
	require.NoError(t, err)
	assert.Equal(t, "div {}", string(data))
	assert.True(t, fs.Exists("widgets/button.chtl"))
	assert.False(t, fs.Exists("widgets/missing.chtl"))
}

func TestResolveRelative_JoinsAgainstImportingFileDirectory(t *testing.T) {
	got := source.ResolveRelative("pages/home.chtl", "./widgets/button.chtl")
	assert.Equal(t, "pages/widgets/button.chtl", got)
}

func TestIsRelative(t *testing.T) {
	assert.True(t, source.IsRelative("./button"))
	assert.True(t, source.IsRelative("/abs/button"))
	assert.False(t, source.IsRelative("Widgets.Button"))
}

func TestLogicalToGlob_DottedNameBecomesPathWithExtension(t *testing.T) {
	assert.Equal(t, "Widgets/Button.chtl", source.LogicalToGlob("Widgets.Button"))
}

func TestLogicalToGlob_PreservesExplicitExtension(t *testing.T) {
	assert.Equal(t, "Widgets/Button.chtl", source.LogicalToGlob("Widgets.Button.chtl"))
}
