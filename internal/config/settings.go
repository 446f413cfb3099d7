package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/soen-app/praxis/pkg/logger"
	"github.com/soen-app/praxis/pkg/provider"
)

// Default per-attempt timeout in seconds
const DefaultAttemptTimeoutSec = 30

// Settings represents the main application settings
type Settings struct {
	Server    ServerSettings              `json:"server"`
	Router    RouterSettings              `json:"router"`
	Cache     CacheSettings               `json:"cache"`
	Ledger    LedgerSettings              `json:"ledger"`
	Providers map[string]ProviderSettings `json:"providers"`
	Quotas    map[string]QuotaSettings    `json:"quotas,omitempty"`
	LogLevel  string                      `json:"log_level"`
}

// ServerSettings contains the HTTP listener configuration
type ServerSettings struct {
	Addr string `json:"addr"`
}

// RouterSettings contains routing behavior configuration
type RouterSettings struct {
	RulesPath         string `json:"rules_path"`          // YAML routing table
	WatchRules        bool   `json:"watch_rules"`         // hot-reload the table on file change
	AttemptTimeoutSec int    `json:"attempt_timeout_sec"` // per provider attempt, not per request
}

// CacheSettings selects and configures the response cache backend
type CacheSettings struct {
	Backend   string `json:"backend"`              // "memory" or "redis"
	RedisAddr string `json:"redis_addr,omitempty"` // for redis
}

// LedgerSettings selects and configures the usage ledger backend
type LedgerSettings struct {
	Backend string `json:"backend"`        // "sqlite" or "memory"
	Path    string `json:"path,omitempty"` // sqlite database file
}

// ProviderSettings configures one upstream vendor
type ProviderSettings struct {
	Enabled   bool   `json:"enabled"`
	APIKeyEnv string `json:"api_key_env,omitempty"` // environment variable holding the credential
	BaseURL   string `json:"base_url,omitempty"`    // endpoint override
	MaxTokens int    `json:"max_tokens,omitempty"`  // completion cap (0 = adapter default)
}

// QuotaSettings configures the spend limits for one subscription tier
type QuotaSettings struct {
	DailyRequests    int     `json:"daily_requests,omitempty"`
	MonthlyBudgetUSD float64 `json:"monthly_budget_usd,omitempty"`
	BudgetRule       string  `json:"budget_rule,omitempty"`
}

// defaultAPIKeyEnv maps provider names to their conventional credential
// variables so settings files only need to override the unusual cases.
var defaultAPIKeyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"gemini":     "GEMINI_API_KEY",
	"grok":       "XAI_API_KEY",
	"perplexity": "PERPLEXITY_API_KEY",
}

// Resolve reads the provider credential from the environment once and returns
// the adapter configuration. Called at startup; adapters never read the
// environment themselves.
func (p ProviderSettings) Resolve(name string) (provider.Config, error) {
	cfg := provider.Config{BaseURL: p.BaseURL, MaxTokens: p.MaxTokens}

	keyEnv := p.APIKeyEnv
	if keyEnv == "" {
		keyEnv = defaultAPIKeyEnv[name]
	}
	if keyEnv == "" {
		// Local providers such as ollama need no credential.
		return cfg, nil
	}
	cfg.APIKey = os.Getenv(keyEnv)
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("provider %s is enabled but %s is not set", name, keyEnv)
	}
	return cfg, nil
}

// LoadSettings loads application settings from a JSON file
func LoadSettings(configPath string) (*Settings, error) {
	// If config path is empty, search in order of preference
	if configPath == "" {
		configPath = findSettingsFile()
		if configPath == "" {
			// No settings file found, create default one and return defaults
			return createDefaultSettingsFile()
		}
	}

	// Check if specified file exists, create defaults if not
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		settings, _ := createSettingsFileAtPath(configPath)
		return settings, nil
	}

	// Read and parse the configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	// Apply defaults for missing fields
	applyDefaults(&settings)

	return &settings, nil
}

// SaveSettings saves application settings to a JSON file
func SaveSettings(configPath string, settings *Settings) error {
	// If config path is empty, determine where to save
	if configPath == "" {
		configPath = findSettingsFile()
		if configPath == "" {
			configPath = filepath.Join(".praxis", "settings.json")
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to JSON with pretty formatting
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

// GetDefaultSettings returns default application settings
func GetDefaultSettings() *Settings {
	return &Settings{
		Server: ServerSettings{
			Addr: ":8080",
		},
		Router: RouterSettings{
			RulesPath:         filepath.Join(".praxis", "rules.yaml"),
			WatchRules:        true,
			AttemptTimeoutSec: DefaultAttemptTimeoutSec,
		},
		Cache: CacheSettings{
			Backend: "memory",
		},
		Ledger: LedgerSettings{
			Backend: "sqlite",
			Path:    filepath.Join(".praxis", "usage.db"),
		},
		Providers: map[string]ProviderSettings{
			"ollama": {Enabled: true, BaseURL: "http://localhost:11434"},
		},
		LogLevel: "info",
	}
}

// applyDefaults fills in missing fields with default values
func applyDefaults(settings *Settings) {
	defaults := GetDefaultSettings()

	if settings.Server.Addr == "" {
		settings.Server.Addr = defaults.Server.Addr
	}
	if settings.Router.RulesPath == "" {
		settings.Router.RulesPath = defaults.Router.RulesPath
	}
	if settings.Router.AttemptTimeoutSec == 0 {
		settings.Router.AttemptTimeoutSec = defaults.Router.AttemptTimeoutSec
	}
	if settings.Cache.Backend == "" {
		settings.Cache.Backend = defaults.Cache.Backend
	}
	if settings.Ledger.Backend == "" {
		settings.Ledger.Backend = defaults.Ledger.Backend
	}
	if settings.Ledger.Backend == "sqlite" && settings.Ledger.Path == "" {
		settings.Ledger.Path = defaults.Ledger.Path
	}
	if settings.Providers == nil {
		settings.Providers = defaults.Providers
	}
	if settings.LogLevel == "" {
		settings.LogLevel = defaults.LogLevel
	}
}

// ValidateSettings validates the settings configuration
func ValidateSettings(settings *Settings) error {
	if settings.Cache.Backend != "memory" && settings.Cache.Backend != "redis" {
		return fmt.Errorf("unsupported cache backend: %s (must be 'memory' or 'redis')", settings.Cache.Backend)
	}
	if settings.Cache.Backend == "redis" && settings.Cache.RedisAddr == "" {
		return fmt.Errorf("redis cache backend requires redis_addr")
	}

	if settings.Ledger.Backend != "sqlite" && settings.Ledger.Backend != "memory" {
		return fmt.Errorf("unsupported ledger backend: %s (must be 'sqlite' or 'memory')", settings.Ledger.Backend)
	}
	if settings.Ledger.Backend == "sqlite" && settings.Ledger.Path == "" {
		return fmt.Errorf("sqlite ledger backend requires a path")
	}

	if settings.Router.AttemptTimeoutSec <= 0 {
		return fmt.Errorf("attempt_timeout_sec must be positive")
	}

	enabled := 0
	for name, ps := range settings.Providers {
		if !ps.Enabled {
			continue
		}
		enabled++
		if _, err := ps.Resolve(name); err != nil {
			return err
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one provider must be enabled")
	}

	return nil
}

// findSettingsFile searches for settings.json in order of preference:
// 1. .praxis/settings.json in current directory
// 2. $HOME/.praxis/settings.json
// Returns empty string if none found
func findSettingsFile() string {
	// Check .praxis in current directory
	currentDirPath := filepath.Join(".praxis", "settings.json")
	if _, err := os.Stat(currentDirPath); err == nil {
		return currentDirPath
	}

	// Check $HOME/.praxis
	homeDir, err := os.UserHomeDir()
	if err == nil {
		homeDirPath := filepath.Join(homeDir, ".praxis", "settings.json")
		if _, err := os.Stat(homeDirPath); err == nil {
			return homeDirPath
		}
	}

	// No settings file found
	return ""
}

// createDefaultSettingsFile creates a default settings.json file in ~/.praxis/
func createDefaultSettingsFile() (*Settings, error) {
	// Determine where to create the file (prefer home directory)
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return GetDefaultSettings(), nil // Fall back to defaults without file creation
	}

	settingsPath := filepath.Join(homeDir, ".praxis", "settings.json")
	return createSettingsFileAtPath(settingsPath)
}

// createSettingsFileAtPath creates a default settings file at the specified path
func createSettingsFileAtPath(settingsPath string) (*Settings, error) {
	// Get default settings
	settings := GetDefaultSettings()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(settingsPath), 0755); err != nil {
		return settings, nil // Return defaults if directory creation fails
	}

	// Marshal to JSON with pretty formatting
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return settings, nil // Return defaults if marshaling fails
	}

	// Write to file
	if err := os.WriteFile(settingsPath, data, 0644); err != nil {
		return settings, nil // Return defaults if file writing fails
	}

	logger.NewComponentLogger("settings").Info("Created default settings file", "path", settingsPath)

	return settings, nil
}
