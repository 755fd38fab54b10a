package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cartbot/domain/entities"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OCR_SPACE_API_KEY", "ocr-test")
}

func TestLoad_Defaults(t *testing.T) {
	setCredentials(t)

	cfg, err := Load(New())

	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.OpenAIKey)
	assert.Equal(t, "ocr-test", cfg.OCRSpaceKey)
	assert.Equal(t, BackendPlaywright, cfg.BrowserBackend)
	assert.Equal(t, entities.BackendCloud, cfg.SearchBoxOCR)
	assert.Equal(t, entities.BackendCloud, cfg.ProductOCR)
	assert.Equal(t, entities.BackendLocal, cfg.AddToCartOCR)
	assert.Equal(t, 30*time.Second, cfg.AdapterTimeout)
	assert.Equal(t, 5*time.Second, cfg.TabSpawnTimeout)
	assert.Empty(t, cfg.BlockedHosts)
	assert.False(t, cfg.AllowPrivateHosts)
	assert.True(t, cfg.UsesBackend(entities.BackendLocal))
}

func TestLoad_Environment(t *testing.T) {
	setCredentials(t)
	t.Setenv("BROWSER_BACKEND", "Selenium")
	t.Setenv("BROWSER_HEADLESS", "true")
	t.Setenv("ADD_TO_CART_OCR", "cloud")
	t.Setenv("SETTLE_TIMEOUT", "2s")
	t.Setenv("POINTER_PAUSE", "50ms")
	t.Setenv("BLOCKED_HOSTS", "bank.example, internal.corp")
	t.Setenv("ALLOW_PRIVATE_HOSTS", "true")

	cfg, err := Load(New())

	require.NoError(t, err)
	assert.Equal(t, BackendSelenium, cfg.BrowserBackend)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 2*time.Second, cfg.SettleTimeout)
	assert.Equal(t, 50*time.Millisecond, cfg.PointerPause)
	assert.False(t, cfg.UsesBackend(entities.BackendLocal))
	assert.True(t, cfg.AllowPrivateHosts)
	if diff := cmp.Diff([]string{"bank.example", "internal.corp"}, cfg.BlockedHosts); diff != "" {
		t.Errorf("BlockedHosts mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	tests := []struct {
		name   string
		openai string
		ocr    string
	}{
		{"no openai key", "", "ocr-test"},
		{"no ocr key", "sk-test", ""},
		{"blank openai key", "   ", "ocr-test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", tt.openai)
			t.Setenv("OCR_SPACE_API_KEY", tt.ocr)

			_, err := Load(New())

			assert.ErrorIs(t, err, ErrMissingCredential)
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"BROWSER_BACKEND", "chromedp"},
		{"PRODUCT_OCR", "azure"},
		{"ADAPTER_TIMEOUT", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			setCredentials(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(New())

			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrMissingCredential)
		})
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	setCredentials(t)
	t.Setenv("BROWSER_HEADLESS", "false")
	v := New()
	v.Set(KeyHeadless, true)

	cfg, err := Load(v)

	require.NoError(t, err)
	assert.True(t, cfg.Headless)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CARTBOT_TEST_DOTENV=loaded\n"), 0644))
	t.Setenv("CARTBOT_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("CARTBOT_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("CARTBOT_TEST_DOTENV"))
}
