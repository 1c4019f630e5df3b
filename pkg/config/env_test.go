package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_File(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	content := "CONSUMER_TOKEN=ct\nCONSUMER_SECRET=cs\nACCESS_TOKEN=at\nACCESS_SECRET=as\n" +
		"ARTICLE_VOLUME_LIST_TEMPLATE=Article volume list\nLIST_END_TEMPLATE=ListEnd\n" +
		"DEFAULT_ROW_TEMPLATE=Row\nTHROTTLE=3\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	// godotenv does not override existing values; make sure the test keys start clean
	// and are removed again afterwards.
	for _, k := range []string{"CONSUMER_TOKEN", "CONSUMER_SECRET", "ACCESS_TOKEN", "ACCESS_SECRET",
		"ARTICLE_VOLUME_LIST_TEMPLATE", "LIST_END_TEMPLATE", "DEFAULT_ROW_TEMPLATE", "THROTTLE"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg := DefaultConfig()
	require.NoError(t, LoadEnv(envPath, cfg))

	assert.True(t, cfg.Auth.HasOAuth())
	assert.False(t, cfg.Auth.HasBotPassword())
	assert.Equal(t, "Article volume list", cfg.Templates.ListStart)
	assert.Equal(t, "ListEnd", cfg.Templates.ListEnd)
	assert.Equal(t, "Row", cfg.Templates.DefaultRow)
	assert.Equal(t, 3*time.Second, time.Duration(cfg.Bot.Throttle))
}

func TestLoadEnv_MissingFile(t *testing.T) {
	t.Setenv("BOT_NAME", "EnvBot")
	t.Setenv("THROTTLE", "250ms")

	cfg := DefaultConfig()
	require.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "absent.env"), cfg))

	assert.Equal(t, "EnvBot", cfg.Bot.Name)
	assert.Equal(t, 250*time.Millisecond, time.Duration(cfg.Bot.Throttle))
}

func TestLoadEnv_BadThrottle(t *testing.T) {
	t.Setenv("THROTTLE", "soon")
	err := LoadEnv("", DefaultConfig())
	assert.Error(t, err)
}
