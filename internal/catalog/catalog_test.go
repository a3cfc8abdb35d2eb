package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	coffee, ok := c.Get("COFFEE")
	require.True(t, ok)
	assert.Equal(t, 250, coffee.UnitPricePence)

	assert.True(t, c.Has("tea"), "lookup must be case-insensitive")
	assert.False(t, c.Has("PIZZA"))
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.json")
	content := `{"items": [{"sku": "widget", "name": "Widget", "unit_price_pence": 99}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	item, ok := c.Get("WIDGET")
	require.True(t, ok)
	assert.Equal(t, "WIDGET", item.SKU, "SKUs must be canonicalized to upper case")
	assert.Equal(t, 99, item.UnitPricePence)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
