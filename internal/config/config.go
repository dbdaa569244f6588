package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the screener.
type Config struct {
	Storage   Storage   `yaml:"storage"`
	Server    Server    `yaml:"server"`
	Providers Providers `yaml:"providers"`
	Import    Import    `yaml:"import"`
	Cache     Cache     `yaml:"cache"`
	Logging   Logging   `yaml:"logging"`
	Alpaca    Alpaca    `yaml:"alpaca"`
}

// Storage holds paths and backend selection for persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	Backend    string `yaml:"backend"` // "json" (default) or "sqlite"
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Provider holds one upstream API's credentials and endpoint.
type Provider struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Providers holds the upstream financial-data APIs, tried in order.
type Providers struct {
	EODHD   Provider `yaml:"eodhd"`
	FMP     Provider `yaml:"fmp"`
	Polygon Provider `yaml:"polygon"`
}

// Import controls the batch importer and the adaptive concurrency bounds.
type Import struct {
	BatchSize         int    `yaml:"batch_size"`
	Concurrency       int    `yaml:"concurrency"`
	MinConcurrency    int    `yaml:"min_concurrency"`
	MaxConcurrency    int    `yaml:"max_concurrency"`
	TimeBudgetMinutes int    `yaml:"time_budget_minutes"`
	SymbolsCSV        string `yaml:"symbols_csv"`
}

// Cache controls the local fundamentals cache.
type Cache struct {
	TTLHours int `yaml:"ttl_hours"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Alpaca holds credentials for the assets API used to build the symbol
// universe.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("EODHD_API_KEY"); v != "" {
		cfg.Providers.EODHD.APIKey = v
	}

	if v := os.Getenv("FMP_API_KEY"); v != "" {
		cfg.Providers.FMP.APIKey = v
	}

	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.Providers.Polygon.APIKey = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
