package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "app.json")
	envPath := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"api_base_url":"http://api.test/","api_timeout":"5s","ignored":[1]}`), 0o644))
	require.NoError(t, os.WriteFile(envPath, []byte("# comment\nLOCAL_STORE=\"memory\"\nbroken line\nCHAT_URL=ws://chat.test/ws\n"), 0o644))

	loadOnce.Do(func() {})
	require.NoError(t, loadFromFiles(jsonPath, envPath))
	t.Cleanup(func() {
		mu.Lock()
		values = defaultValues()
		mu.Unlock()
	})

	assert.Equal(t, "http://api.test", APIBaseURL())
	assert.Equal(t, 5*time.Second, APITimeout())
	assert.Equal(t, "memory", LocalStoreDriver())
	assert.Equal(t, "ws://chat.test/ws", ChatURL())
	assert.Equal(t, "INR", PaymentCurrency())
}

func TestLoadFromFilesMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "app.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{`), 0o644))

	err := loadFromFiles(jsonPath, filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestChatURLDerivedFromAPI(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://market.example.com")
	t.Setenv("CHAT_URL", "")

	assert.Equal(t, "wss://market.example.com/ws", ChatURL())
}

func TestEnvironmentOverridesFiles(t *testing.T) {
	t.Setenv("DB_DRIVER", "POSTGRES")
	assert.Equal(t, "postgres", DatabaseDriver())

	t.Setenv("DB_DRIVER", "oracle")
	assert.Equal(t, "sqlite", DatabaseDriver())
}
