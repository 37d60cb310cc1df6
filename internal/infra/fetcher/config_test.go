package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultArticleFetchConfig(t *testing.T) {
	cfg := DefaultArticleFetchConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 1200, cfg.Threshold)
	assert.Equal(t, 20*time.Second, cfg.Timeout)
	assert.Equal(t, int64(1536*1024), cfg.MaxBodySize)
	assert.True(t, cfg.DenyPrivateIPs)
	assert.NoError(t, cfg.Validate())
}

func TestArticleFetchConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ArticleFetchConfig)
		wantErr bool
	}{
		{"defaults valid", func(*ArticleFetchConfig) {}, false},
		{"negative threshold", func(c *ArticleFetchConfig) { c.Threshold = -1 }, true},
		{"zero timeout", func(c *ArticleFetchConfig) { c.Timeout = 0 }, true},
		{"body size too small", func(c *ArticleFetchConfig) { c.MaxBodySize = 100 }, true},
		{"body size too large", func(c *ArticleFetchConfig) { c.MaxBodySize = 200 * 1024 * 1024 }, true},
		{"redirects out of range", func(c *ArticleFetchConfig) { c.MaxRedirects = 20 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultArticleFetchConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadArticleFetchConfig_FromEnv(t *testing.T) {
	t.Setenv("ARTICLE_FETCH_ENABLED", "false")
	t.Setenv("ARTICLE_FETCH_THRESHOLD", "2000")
	t.Setenv("ARTICLE_FETCH_TIMEOUT", "30s")

	cfg, err := LoadArticleFetchConfig()
	require.NoError(t, err)

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 2000, cfg.Threshold)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestLoadArticleFetchConfig_InvalidValue(t *testing.T) {
	t.Setenv("ARTICLE_FETCH_TIMEOUT", "soon")

	_, err := LoadArticleFetchConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARTICLE_FETCH_TIMEOUT")
}
