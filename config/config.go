package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Krakensync KrakensyncConfig `yaml:"krakensync"`
	API        APIConfig        `yaml:"api"`
	Sync       SyncConfig       `yaml:"sync"`
	Export     ExportConfig     `yaml:"export"`
	Storage    StorageConfig    `yaml:"storage"`
	Trigger    TriggerConfig    `yaml:"trigger"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type KrakensyncConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Key       string        `yaml:"key"`
	Secret    string        `yaml:"secret"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type SyncConfig struct {
	PageSize int           `yaml:"page_size"`
	Throttle time.Duration `yaml:"throttle"`
	Retry    RetryConfig   `yaml:"retry"`
	Trades   DataTypeSync  `yaml:"trades"`
	Rewards  RewardSync    `yaml:"rewards"`
}

type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier int           `yaml:"backoff_multiplier"`
}

// Cursor strategy names accepted by DataTypeSync.Strategy.
const (
	StrategyOffset    = "offset"
	StrategyTimestamp = "timestamp"
)

type DataTypeSync struct {
	Enabled  bool   `yaml:"enabled"`
	Strategy string `yaml:"strategy"`
}

type RewardSync struct {
	DataTypeSync `yaml:",inline"`
	Asset        string `yaml:"asset"`
	Type         string `yaml:"type"`
}

type ExportConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Directory string   `yaml:"directory"`
	Formats   []string `yaml:"formats"`
}

type StorageConfig struct {
	MongoDB MongoDBConfig `yaml:"mongodb"`
	S3      S3Config      `yaml:"s3"`
}

type MongoDBConfig struct {
	Enabled  bool          `yaml:"enabled"`
	URI      string        `yaml:"uri"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type TriggerConfig struct {
	Listen string `yaml:"listen"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	Output        string `yaml:"output"`
	MaxAge        int    `yaml:"max_age"`
	DashboardName string `yaml:"dashboard_name"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "https://api.kraken.com",
			Timeout:   30 * time.Second,
			UserAgent: "krakensync",
		},
		Sync: SyncConfig{
			PageSize: 50,
			Throttle: 2500 * time.Millisecond,
			Retry: RetryConfig{
				MaxAttempts:       5,
				BaseDelay:         2 * time.Second,
				MaxDelay:          32 * time.Second,
				BackoffMultiplier: 2,
			},
			Trades: DataTypeSync{Enabled: true, Strategy: StrategyOffset},
			Rewards: RewardSync{
				DataTypeSync: DataTypeSync{Enabled: true, Strategy: StrategyOffset},
				Asset:        "all",
				Type:         "staking",
			},
		},
		Export: ExportConfig{
			Enabled:   true,
			Directory: "outputs",
			Formats:   []string{"json", "csv"},
		},
		Storage: StorageConfig{
			MongoDB: MongoDBConfig{
				URI:      "mongodb://localhost:27017",
				Database: "kraken_data",
				Timeout:  5 * time.Second,
			},
		},
		Trigger: TriggerConfig{Listen: ":8000"},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

// applyEnvOverrides lets deployment environments supply credentials without
// writing them into the config file.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("KRAKEN_API_KEY"); v != "" {
		config.API.Key = strings.TrimSpace(v)
	}
	if v := os.Getenv("KRAKEN_API_SECRET"); v != "" {
		config.API.Secret = strings.TrimSpace(v)
	}

	if v := os.Getenv("MONGO_URI"); v != "" {
		config.Storage.MongoDB.URI = strings.TrimSpace(v)
	} else if user, pass := os.Getenv("MONGO_USER"), os.Getenv("MONGO_PASS"); user != "" && pass != "" {
		config.Storage.MongoDB.URI = fmt.Sprintf("mongodb://%s:%s@mongodb-service:27017", user, pass)
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		config.Storage.MongoDB.Database = strings.TrimSpace(v)
	}
	if v := os.Getenv("STORE_IN_MONGODB"); v != "" {
		config.Storage.MongoDB.Enabled = strings.EqualFold(strings.TrimSpace(v), "true")
	}

	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)
}

func validateConfig(cfg *Config) error {
	if cfg.Krakensync.Name == "" {
		return fmt.Errorf("krakensync.name is required")
	}

	if cfg.Krakensync.Version == "" {
		return fmt.Errorf("krakensync.version is required")
	}

	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be greater than 0")
	}
	if IsProductionLike(AppEnvironment()) && (cfg.API.Key == "" || cfg.API.Secret == "") {
		return fmt.Errorf("api.key and api.secret are required in a %s environment", AppEnvironment())
	}

	if cfg.Sync.PageSize <= 0 {
		return fmt.Errorf("sync.page_size must be greater than 0")
	}
	if cfg.Sync.Throttle <= 0 {
		return fmt.Errorf("sync.throttle must be greater than 0")
	}
	if cfg.Sync.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("sync.retry.max_attempts must be greater than 0")
	}
	if cfg.Sync.Retry.BaseDelay <= 0 {
		return fmt.Errorf("sync.retry.base_delay must be greater than 0")
	}
	if cfg.Sync.Retry.MaxDelay < cfg.Sync.Retry.BaseDelay {
		return fmt.Errorf("sync.retry.max_delay must be at least sync.retry.base_delay")
	}

	if err := validateStrategy("sync.trades.strategy", cfg.Sync.Trades.Strategy); err != nil {
		return err
	}
	if err := validateStrategy("sync.rewards.strategy", cfg.Sync.Rewards.Strategy); err != nil {
		return err
	}
	if cfg.Sync.Rewards.Enabled && cfg.Sync.Rewards.Asset == "" {
		return fmt.Errorf("sync.rewards.asset is required when reward sync is enabled")
	}

	if cfg.Export.Enabled {
		if cfg.Export.Directory == "" {
			return fmt.Errorf("export.directory is required when export is enabled")
		}
		for _, format := range cfg.Export.Formats {
			switch format {
			case "json", "csv", "parquet":
			default:
				return fmt.Errorf("export.formats contains unsupported format '%s'", format)
			}
		}
	}

	if cfg.Storage.MongoDB.Enabled {
		if cfg.Storage.MongoDB.URI == "" {
			return fmt.Errorf("storage.mongodb.uri is required when MongoDB is enabled")
		}
		if cfg.Storage.MongoDB.Database == "" {
			return fmt.Errorf("storage.mongodb.database is required when MongoDB is enabled")
		}
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

func validateStrategy(field, strategy string) error {
	switch strategy {
	case StrategyOffset, StrategyTimestamp:
		return nil
	default:
		return fmt.Errorf("%s must be '%s' or '%s'", field, StrategyOffset, StrategyTimestamp)
	}
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
