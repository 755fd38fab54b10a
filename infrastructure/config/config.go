// Package config loads the run configuration from the environment, an
// optional .env file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cartbot/domain/entities"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingCredential is returned when a required API key is absent
var ErrMissingCredential = errors.New("missing credential")

// Configuration keys
const (
	KeyOpenAIKey         = "openai_api_key"
	KeyOpenAIModel       = "openai_model"
	KeyOpenAIBaseURL     = "openai_base_url"
	KeyOCRSpaceKey       = "ocr_space_api_key"
	KeyOCRSpaceEndpoint  = "ocr_space_endpoint"
	KeyBrowserBackend    = "browser_backend"
	KeyHeadless          = "browser_headless"
	KeyDriverPath        = "browser_driver_path"
	KeyChromeBinary      = "chrome_binary_path"
	KeyDriverPort        = "browser_driver_port"
	KeySearchBoxOCR      = "searchbox_ocr"
	KeyProductOCR        = "product_ocr"
	KeyAddToCartOCR      = "add_to_cart_ocr"
	KeyAdapterTimeout    = "adapter_timeout"
	KeyNavigationTimeout = "navigation_timeout"
	KeySettleTimeout     = "settle_timeout"
	KeyTabSpawnTimeout   = "tab_spawn_timeout"
	KeyPointerPause      = "pointer_pause"
	KeySamplesDir        = "samples_dir"
	KeyHistoryPath       = "history_path"
	KeyLogLevel          = "log_level"
	KeyBlockedHosts      = "blocked_hosts"
	KeyAllowPrivateHosts = "allow_private_hosts"
)

// Browser backends
const (
	BackendPlaywright = "playwright"
	BackendSelenium   = "selenium"
)

// Config is the resolved configuration of one process
type Config struct {
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	OCRSpaceKey      string
	OCRSpaceEndpoint string

	BrowserBackend string
	Headless       bool
	DriverPath     string
	ChromeBinary   string
	DriverPort     int

	SearchBoxOCR entities.Backend
	ProductOCR   entities.Backend
	AddToCartOCR entities.Backend

	AdapterTimeout    time.Duration
	NavigationTimeout time.Duration
	SettleTimeout     time.Duration
	TabSpawnTimeout   time.Duration
	PointerPause      time.Duration

	SamplesDir   string
	HistoryPath  string
	LogLevel     string
	BlockedHosts []string
	// AllowPrivateHosts lets intents target loopback and private addresses
	AllowPrivateHosts bool
}

// New returns a viper instance with defaults and environment binding.
// Every key reads from the upper-cased environment variable of the same name.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyOpenAIModel, "gpt-3.5-turbo")
	v.SetDefault(KeyOCRSpaceEndpoint, "https://api.ocr.space/parse/image")
	v.SetDefault(KeyBrowserBackend, BackendPlaywright)
	v.SetDefault(KeyHeadless, false)
	v.SetDefault(KeyDriverPort, 9515)
	v.SetDefault(KeySearchBoxOCR, string(entities.BackendCloud))
	v.SetDefault(KeyProductOCR, string(entities.BackendCloud))
	v.SetDefault(KeyAddToCartOCR, string(entities.BackendLocal))
	v.SetDefault(KeyAdapterTimeout, 30*time.Second)
	v.SetDefault(KeyNavigationTimeout, 30*time.Second)
	v.SetDefault(KeySettleTimeout, 5*time.Second)
	v.SetDefault(KeyTabSpawnTimeout, 5*time.Second)
	v.SetDefault(KeyPointerPause, 200*time.Millisecond)
	v.SetDefault(KeySamplesDir, filepath.Join(os.TempDir(), "cartbot-samples"))
	v.SetDefault(KeyHistoryPath, defaultHistoryPath())
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyBlockedHosts, []string{})
	v.SetDefault(KeyAllowPrivateHosts, false)
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads .env into the process environment; a missing file is not an error
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load resolves the configuration from v and fails fast on missing credentials
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		OpenAIKey:         strings.TrimSpace(v.GetString(KeyOpenAIKey)),
		OpenAIModel:       v.GetString(KeyOpenAIModel),
		OpenAIBaseURL:     v.GetString(KeyOpenAIBaseURL),
		OCRSpaceKey:       strings.TrimSpace(v.GetString(KeyOCRSpaceKey)),
		OCRSpaceEndpoint:  v.GetString(KeyOCRSpaceEndpoint),
		BrowserBackend:    strings.ToLower(v.GetString(KeyBrowserBackend)),
		Headless:          v.GetBool(KeyHeadless),
		DriverPath:        v.GetString(KeyDriverPath),
		ChromeBinary:      v.GetString(KeyChromeBinary),
		DriverPort:        v.GetInt(KeyDriverPort),
		SearchBoxOCR:      entities.Backend(strings.ToLower(v.GetString(KeySearchBoxOCR))),
		ProductOCR:        entities.Backend(strings.ToLower(v.GetString(KeyProductOCR))),
		AddToCartOCR:      entities.Backend(strings.ToLower(v.GetString(KeyAddToCartOCR))),
		AdapterTimeout:    v.GetDuration(KeyAdapterTimeout),
		NavigationTimeout: v.GetDuration(KeyNavigationTimeout),
		SettleTimeout:     v.GetDuration(KeySettleTimeout),
		TabSpawnTimeout:   v.GetDuration(KeyTabSpawnTimeout),
		PointerPause:      v.GetDuration(KeyPointerPause),
		SamplesDir:        v.GetString(KeySamplesDir),
		HistoryPath:       v.GetString(KeyHistoryPath),
		LogLevel:          v.GetString(KeyLogLevel),
		BlockedHosts:      splitList(v.GetStringSlice(KeyBlockedHosts)),
		AllowPrivateHosts: v.GetBool(KeyAllowPrivateHosts),
	}

	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY environment variable is not set", ErrMissingCredential)
	}
	if cfg.OCRSpaceKey == "" {
		return nil, fmt.Errorf("%w: OCR_SPACE_API_KEY environment variable is not set", ErrMissingCredential)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.BrowserBackend {
	case BackendPlaywright, BackendSelenium:
	default:
		return fmt.Errorf("unknown browser backend %q", c.BrowserBackend)
	}
	for key, b := range map[string]entities.Backend{
		KeySearchBoxOCR: c.SearchBoxOCR,
		KeyProductOCR:   c.ProductOCR,
		KeyAddToCartOCR: c.AddToCartOCR,
	} {
		if b != entities.BackendCloud && b != entities.BackendLocal {
			return fmt.Errorf("%s: unknown recognition backend %q", strings.ToUpper(key), b)
		}
	}
	if c.AdapterTimeout <= 0 {
		return fmt.Errorf("ADAPTER_TIMEOUT must be positive, got %s", c.AdapterTimeout)
	}
	return nil
}

// UsesBackend reports whether any locator is configured with b
func (c *Config) UsesBackend(b entities.Backend) bool {
	return c.SearchBoxOCR == b || c.ProductOCR == b || c.AddToCartOCR == b
}

// splitList accepts both list values and a single comma-separated env value
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func defaultHistoryPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".cartbot", "history.json")
}
