package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "project": {"name": "mybgg"},
  "boardgamegeek": {
    "user_name": "jcasey",
    "extra_params": [{"own": 1}, {"wishlist": 1, "subtype": "boardgame"}]
  },
  "algolia": {"app_id": "APP", "index_name": "plays", "hits_per_page": 24}
}`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_FromJSON(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, "mybgg", cfg.Project.Name)
	assert.Equal(t, "jcasey", cfg.BoardGameGeek.UserName)
	assert.Equal(t, 24, cfg.Algolia.HitsPerPage)
	assert.Equal(t, "mybgg-cache.sqlite", cfg.BoardGameGeek.CachePath)
	assert.Equal(t, 24*time.Hour, cfg.BoardGameGeek.CacheTTL)
	assert.Equal(t, time.Second, cfg.CardArt.HeroDelay)
	assert.Equal(t, "algolia", cfg.Index.Backend)

	params, err := cfg.BoardGameGeek.CollectionParams()
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "1", params[0]["own"])
	assert.Equal(t, "boardgame", params[1]["subtype"])
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MYBGG_ALGOLIA_INDEX_NAME", "plays_staging")
	t.Setenv("ALGOLIA_API_KEY", "secret")
	cfg, err := Load(writeConfig(t, sampleJSON))
	require.NoError(t, err)
	assert.Equal(t, "plays_staging", cfg.Algolia.IndexName)
	assert.Equal(t, "secret", cfg.Algolia.APIKey)
	assert.NoError(t, cfg.RequireIndex())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.Algolia.HitsPerPage)
	assert.Equal(t, "https://hallofheroeslcg.com/browse/", cfg.CardArt.BrowseURL)

	err = cfg.RequireBGG()
	assert.True(t, errors.Is(err, ErrMissing))
}

func TestLoad_NamedFileMustExist(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nope.json")
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), p)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	_, err := Load(writeConfig(t, `{"index": {"backend": "solr"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index.backend")
}

func TestCollectionParams_SingleObject(t *testing.T) {
	b := BoardGameGeek{ExtraParams: map[string]any{"own": float64(1), "played": true}}
	params, err := b.CollectionParams()
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"own": "1", "played": "1"}}, params)

	_, err = BoardGameGeek{ExtraParams: "own=1"}.CollectionParams()
	assert.Error(t, err)
}
