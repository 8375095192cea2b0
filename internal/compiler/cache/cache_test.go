package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chtl-lang/chtl/internal/compiler/cache"
	"github.com/chtl-lang/chtl/internal/compiler/diag"
)

func TestCache_PutThenGetRoundTrips(t *testing.T) {
	c, err := cache.New(16)
	require.NoError(t, err)
	defer c.Close()

	key := cache.Key("main.chtl", []byte(`div {}`))
	c.Put(key, cache.Entry{HTML: "<div></div>", CSS: "", JS: ""})

	entry, err := c.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "<div></div>", entry.HTML)
	assert.NotZero(t, entry.ID)
}

func TestCache_MissOnUnknownKeyIsErrCacheMiss(t *testing.T) {
	c, err := cache.New(16)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Get("nope")
	assert.ErrorIs(t, err, diag.ErrCacheMiss)
}

func TestKey_DependsOnBothFilenameAndContent(t *testing.T) {
	base := cache.Key("a.chtl", []byte("div {}"))
	assert.NotEqual(t, base, cache.Key("b.chtl", []byte("div {}")))
	assert.NotEqual(t, base, cache.Key("a.chtl", []byte("p {}")))
	assert.Equal(t, base, cache.Key("a.chtl", []byte("div {}")))
}
