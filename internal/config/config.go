// Package config loads finprofile settings from finprofile.yaml, a .env file
// and FINPROFILE_* environment variables.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Import ImportConfig `yaml:"import" mapstructure:"import"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres or sqlite
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	AuthToken   string `yaml:"auth_token" mapstructure:"auth_token"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ImportConfig configures the bulk import pipeline.
type ImportConfig struct {
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	SubmissionsPath   string        `yaml:"submissions_path" mapstructure:"submissions_path"`
	CompanyFactsPath  string        `yaml:"companyfacts_path" mapstructure:"companyfacts_path"`
	CacheDir          string        `yaml:"cache_dir" mapstructure:"cache_dir"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	CompanyBatchSize  int           `yaml:"company_batch_size" mapstructure:"company_batch_size"`
	FactBatchSize     int           `yaml:"fact_batch_size" mapstructure:"fact_batch_size"`
	ProgressEvery     int           `yaml:"progress_every" mapstructure:"progress_every"`
	MaxEntrySize      uint64        `yaml:"max_entry_size" mapstructure:"max_entry_size"` // bytes, 0 = no limit
	HTTPTimeout       time.Duration `yaml:"http_timeout" mapstructure:"http_timeout"`
	StoreTimeout      time.Duration `yaml:"store_timeout" mapstructure:"store_timeout"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	ConceptPolicyFile string        `yaml:"concept_policy_file" mapstructure:"concept_policy_file"`
	Schedule          string        `yaml:"schedule" mapstructure:"schedule"`
}

// SubmissionsURL is the full URL of the submissions archive.
func (c ImportConfig) SubmissionsURL() string {
	return joinURL(c.BaseURL, c.SubmissionsPath)
}

// CompanyFactsURL is the full URL of the company facts archive.
func (c ImportConfig) CompanyFactsURL() string {
	return joinURL(c.BaseURL, c.CompanyFactsPath)
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, the config file and the environment.
// An empty configFile searches the working directory for finprofile.yaml;
// a missing file is not an error.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("finprofile")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("FINPROFILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.auth_token", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("import.base_url", "https://www.sec.gov/Archives/edgar/daily-index")
	v.SetDefault("import.submissions_path", "/bulkdata/submissions.zip")
	v.SetDefault("import.companyfacts_path", "/xbrl/companyfacts.zip")
	v.SetDefault("import.cache_dir", "/tmp/finprofile")
	v.SetDefault("import.user_agent", "finprofile admin@example.com")
	v.SetDefault("import.company_batch_size", 1000)
	v.SetDefault("import.fact_batch_size", 1000)
	v.SetDefault("import.progress_every", 500)
	v.SetDefault("import.max_entry_size", 256<<20)
	v.SetDefault("import.http_timeout", "60m")
	v.SetDefault("import.store_timeout", "2m")
	v.SetDefault("import.max_retries", 3)
	v.SetDefault("import.concept_policy_file", "")
	v.SetDefault("import.schedule", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings needed by the import pipeline are present.
// All problems are reported together.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
		if c.Store.AuthToken == "" {
			problems = append(problems, "store.auth_token is required")
		}
	case "sqlite":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}

	if c.Import.BaseURL == "" {
		problems = append(problems, "import.base_url is required")
	}
	if c.Import.UserAgent == "" {
		problems = append(problems, "import.user_agent is required")
	}
	if c.Import.CompanyBatchSize <= 0 {
		problems = append(problems, "import.company_batch_size must be positive")
	}
	if c.Import.FactBatchSize <= 0 {
		problems = append(problems, "import.fact_batch_size must be positive")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
