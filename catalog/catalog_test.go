package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.Greater(t, c.Len(), 0)

	cat, ok := c.Get("lugares")
	require.True(t, ok)
	require.Equal(t, "Lugares", cat.Name)
	require.NotEmpty(t, cat.Words)

	for _, cat := range c.Categories() {
		for _, w := range cat.Words {
			require.NotEmpty(t, w.Word, "category %s", cat.ID)
		}
	}
}

func TestGetUnknown(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	_, ok := c.Get("does-not-exist")
	require.False(t, ok)
}

func TestParse(t *testing.T) {
	t.Run("valid dataset", func(t *testing.T) {
		c, err := Parse([]byte(`[{"id":"a","name":"A","words":[{"word":"x","hints":["y"]}]}]`))
		require.NoError(t, err)
		require.Equal(t, []string{"a"}, c.IDs())

		cat, ok := c.Get("a")
		require.True(t, ok)
		require.Equal(t, []string{"x"}, cat.Names())
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := Parse([]byte(`{`))
		require.Error(t, err)
	})

	t.Run("empty dataset", func(t *testing.T) {
		_, err := Parse([]byte(`[]`))
		require.Error(t, err)
	})

	t.Run("category without words", func(t *testing.T) {
		_, err := Parse([]byte(`[{"id":"a","name":"A","words":[]}]`))
		require.Error(t, err)
	})

	t.Run("word without text", func(t *testing.T) {
		_, err := Parse([]byte(`[{"id":"a","name":"A","words":[{"word":""}]}]`))
		require.Error(t, err)
	})

	t.Run("duplicate ids", func(t *testing.T) {
		_, err := Parse([]byte(`[
			{"id":"a","name":"A","words":[{"word":"x"}]},
			{"id":"a","name":"B","words":[{"word":"y"}]}
		]`))
		require.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	t.Run("empty path uses embedded data", func(t *testing.T) {
		c, err := Load("")
		require.NoError(t, err)

		def, err := Default()
		require.NoError(t, err)
		require.Equal(t, def.IDs(), c.IDs())
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "categories.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"id":"z","name":"Z","words":[{"word":"w"}]}]`), 0o600))

		c, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, []string{"z"}, c.IDs())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
	})
}

func TestCategoriesReturnsCopy(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	cats := c.Categories()
	cats[0].ID = "mutated"

	_, ok := c.Get("mutated")
	require.False(t, ok)
	require.NotEqual(t, "mutated", c.Categories()[0].ID)
}
