package cmd_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/newsgate/cmd"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cmd.NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "newsgate version dev\n", out)
}

func TestSourcesValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := writeFile(t, "sources.yaml", `
sources:
  - name: Jakarta Post
    url: https://www.thejakartapost.com/feed
    category: indonesia
    tier: 1
`)
		out, err := execute(t, "sources", "validate", path)
		require.NoError(t, err)
		assert.Contains(t, out, "1 valid sources")
		assert.Contains(t, out, "OK")
	})

	t.Run("invalid entries reported", func(t *testing.T) {
		path := writeFile(t, "sources.yaml", `
sources:
  - name: Good Feed
    url: https://example.com/rss
    category: bali
  - name: Bad Category
    url: https://example.com/other
    category: sports
`)
		out, err := execute(t, "sources", "validate", path)
		require.Error(t, err)
		assert.Contains(t, out, "1 valid sources")
		assert.Contains(t, out, "Skipping invalid source entry")
		assert.Contains(t, out, "Bad Category")
	})

	t.Run("sites file", func(t *testing.T) {
		path := writeFile(t, "sites.yaml", `
sites:
  - name: Bali Post
    url: https://example.com/bali
    category: bali
    selectors:
      container: article
      title: h2
      link: a
`)
		out, err := execute(t, "sources", "validate", "--sites", path)
		require.NoError(t, err)
		assert.Contains(t, out, "1 valid sites")
	})

	t.Run("nothing to validate", func(t *testing.T) {
		_, err := execute(t, "sources", "validate")
		require.Error(t, err)
	})
}

func TestSourcesList(t *testing.T) {
	sourcesPath := writeFile(t, "sources.yaml", `
sources:
  - name: Bali Daily
    url: https://example.com/bali.xml
    category: bali
    tier: 2
  - name: Kompas English
    url: https://example.com/kompas.xml
    category: indonesia
    tier: 1
    active: false
`)
	configPath := writeFile(t, "config.yaml", "sources:\n  file: "+sourcesPath+"\n")

	out, err := execute(t, "--config", configPath, "sources", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Bali Daily")
	assert.Contains(t, out, "Kompas English")

	out, err = execute(t, "--config", configPath, "sources", "list", "--active")
	require.NoError(t, err)
	assert.Contains(t, out, "Bali Daily")
	assert.NotContains(t, out, "Kompas English")

	out, err = execute(t, "--config", configPath, "sources", "list", "-c", "indonesia")
	require.NoError(t, err)
	assert.NotContains(t, out, "Bali Daily")
	assert.Contains(t, out, "Kompas English")

	_, err = execute(t, "--config", configPath, "sources", "list", "-c", "sports")
	require.Error(t, err)
}
