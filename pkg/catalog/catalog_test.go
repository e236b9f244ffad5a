package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vito/achronyme/pkg/persist"
)

func snapshot(t *testing.T, bindings map[string]persist.Value) []byte {
	t.Helper()
	data, _, err := persist.Encode(bindings, persist.DefaultSaveOptions())
	require.NoError(t, err)
	return data
}

func TestCatalog(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer c.Close()

	first := snapshot(t, map[string]persist.Value{"x": persist.Number(1)})
	second := snapshot(t, map[string]persist.Value{"y": persist.String("two"), "z": persist.Bool(true)})

	entry, err := c.Put("beta", second)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Metadata.NumBindings)
	_, err = c.Put("alpha", first)
	require.NoError(t, err)

	got, err := c.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, first, got)

	body, err := persist.Decode(got, persist.DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, persist.Number(1), body.Bindings["x"])

	entries, err := c.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alpha", entries[0].Name)
	assert.Equal(t, "beta", entries[1].Name)
	assert.Equal(t, []string{"y", "z"}, entries[1].Metadata.BindingNames)
	assert.Equal(t, len(second), entries[1].Size)

	require.NoError(t, c.Delete("alpha"))
	_, err = c.Get("alpha")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, c.Delete("alpha"), ErrNotFound)

	entries, err = c.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCatalogRejectsCorruptSnapshots(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer c.Close()

	data := snapshot(t, map[string]persist.Value{"x": persist.Number(1)})
	data[persist.HeaderSize] ^= 0xff
	_, err = c.Put("bad", data)
	require.ErrorIs(t, err, persist.ErrChecksumMismatch)

	_, err = c.Put("", snapshot(t, nil))
	require.Error(t, err)
}

func TestCatalogPersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	c, err := Open(path)
	require.NoError(t, err)
	data := snapshot(t, map[string]persist.Value{"x": persist.Number(1)})
	_, err = c.Put("kept", data)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()
	got, err := c.Get("kept")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
