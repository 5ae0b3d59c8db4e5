package configloader

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port         string `yaml:"port"`
	BasePath     string `yaml:"basePath"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// DBConfig holds database-specific configurations.
type DBConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	UseMemory    bool   `yaml:"useMemory"`
	AutoMigrate  bool   `yaml:"autoMigrate"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
	MaxIdleConns int    `yaml:"maxIdleConns"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DeBankConfig holds DeBank Pro OpenAPI specific configurations.
type DeBankConfig struct {
	BaseURL              string  `yaml:"baseURL"`
	AccessKey            string  `yaml:"accessKey"`
	RequestTimeoutMillis int64   `yaml:"requestTimeoutMillis"`
	RateLimitPerSecond   float64 `yaml:"rateLimitPerSecond"`
	RateLimitBurst       int     `yaml:"rateLimitBurst"`
}

// CollateralConfig holds configuration for the collateral aggregator.
type CollateralConfig struct {
	DefaultChains               []string `yaml:"defaultChains"`
	DefaultLiquidationThreshold float64  `yaml:"defaultLiquidationThreshold"`
	SnapshotCacheTTLSeconds     int      `yaml:"snapshotCacheTTLSeconds"`
}

// CustomerServiceConfig holds configuration for the customer read model.
type CustomerServiceConfig struct {
	MaxConcurrentRequests int `yaml:"maxConcurrentRequests"`
	StaleAfterMinutes     int `yaml:"staleAfterMinutes"`
}

// RefreshConfig holds configuration for the background refresh job.
type RefreshConfig struct {
	// Schedule is a cron spec such as "@every 5m". Empty disables the job.
	Schedule string `yaml:"schedule"`
}

// SwaggerConfig holds configuration for Swagger UI.
type SwaggerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	SpecFile string `yaml:"specFile"`
}

// CORSConfig holds configuration for cross-origin requests.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// SeedConfig holds configuration for startup customer seeding.
type SeedConfig struct {
	// WalletsFile lists "address[,name[,tag]]" lines. Empty disables seeding.
	WalletsFile string `yaml:"walletsFile"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server          ServerConfig          `yaml:"server"`
	Database        DBConfig              `yaml:"database"`
	Logging         LoggingConfig         `yaml:"logging"`
	DeBank          DeBankConfig          `yaml:"debank"`
	Collateral      CollateralConfig      `yaml:"collateral"`
	CustomerService CustomerServiceConfig `yaml:"customerService"`
	Refresh         RefreshConfig         `yaml:"refresh"`
	Swagger         SwaggerConfig         `yaml:"swagger"`
	CORS            CORSConfig            `yaml:"cors"`
	Seed            SeedConfig            `yaml:"seed"`
}

// Load reads an optional .env file, then the YAML configuration file from the
// given path, and applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("Failed to load .env file: %v", err)
	}

	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}
	return cfg, nil
}

// Parse unmarshals YAML configuration data and applies environment overrides
// and defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DEBANK_ACCESS_KEY"); v != "" {
		cfg.DeBank.AccessKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 60
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = 120
	}
	cfg.Server.BasePath = strings.TrimRight(cfg.Server.BasePath, "/")

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 5
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.DeBank.BaseURL == "" {
		cfg.DeBank.BaseURL = "https://pro-openapi.debank.com"
		logrus.Infof("DeBank.BaseURL not set, defaulting to %s", cfg.DeBank.BaseURL)
	}
	if cfg.DeBank.RequestTimeoutMillis <= 0 {
		cfg.DeBank.RequestTimeoutMillis = 10000 // 10 seconds
		logrus.Infof("DeBank.RequestTimeoutMillis not set, defaulting to %d ms", cfg.DeBank.RequestTimeoutMillis)
	}
	if cfg.DeBank.RateLimitPerSecond <= 0 {
		cfg.DeBank.RateLimitPerSecond = 10
	}
	if cfg.DeBank.RateLimitBurst <= 0 {
		cfg.DeBank.RateLimitBurst = int(cfg.DeBank.RateLimitPerSecond)
		if cfg.DeBank.RateLimitBurst < 1 {
			cfg.DeBank.RateLimitBurst = 1
		}
	}

	if len(cfg.Collateral.DefaultChains) == 0 {
		cfg.Collateral.DefaultChains = []string{"eth"}
	}
	if cfg.Collateral.DefaultLiquidationThreshold <= 0 {
		cfg.Collateral.DefaultLiquidationThreshold = 0.9
	}
	if cfg.Collateral.SnapshotCacheTTLSeconds < 0 {
		cfg.Collateral.SnapshotCacheTTLSeconds = 0
	}

	if cfg.CustomerService.MaxConcurrentRequests <= 0 {
		cfg.CustomerService.MaxConcurrentRequests = 8
		logrus.Infof("CustomerService.MaxConcurrentRequests not set, defaulting to %d", cfg.CustomerService.MaxConcurrentRequests)
	}
	if cfg.CustomerService.StaleAfterMinutes <= 0 {
		cfg.CustomerService.StaleAfterMinutes = 5
	}

	if cfg.Swagger.Path == "" {
		cfg.Swagger.Path = "/swagger"
	}
	if cfg.Swagger.SpecFile == "" {
		cfg.Swagger.SpecFile = "./docs/swagger.yaml"
	}
}

func validate(cfg *Config) error {
	if !cfg.Database.UseMemory && cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required unless database.useMemory is set")
	}
	if cfg.DeBank.AccessKey == "" {
		logrus.Warn("DeBank access key is empty; provider calls will be rejected and customers served from persisted data.")
	}
	return nil
}
