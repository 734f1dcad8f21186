package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	apperrors "github.com/younsl/ec2utils/internal/errors"
	"github.com/younsl/ec2utils/internal/logger"
	"github.com/younsl/ec2utils/pkg/utils"
)

// EnvPrefix is the prefix for environment variable overrides (EC2UTILS_CACHE_TTL etc.)
const EnvPrefix = "EC2UTILS"

// Metadata client modes
const (
	MetadataClientHTTP = "http"
	MetadataClientIMDS = "imds"
)

// Config represents the application configuration
type Config struct {
	Metadata MetadataConfig `mapstructure:"metadata"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Cache    CacheConfig    `mapstructure:"cache"`
	AWS      AWSConfig      `mapstructure:"aws"`
}

// MetadataConfig configures access to the instance metadata service
type MetadataConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	Client      string        `mapstructure:"client"` // http or imds
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
}

// HTTPConfig configures the retrying HTTP transport
type HTTPConfig struct {
	Retries       int           `mapstructure:"retries"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// CacheConfig configures the instance data cache file
type CacheConfig struct {
	Dir         string        `mapstructure:"dir"`
	FallbackDir string        `mapstructure:"fallback_dir"`
	File        string        `mapstructure:"file"`
	TTL         time.Duration `mapstructure:"ttl"`
}

// AWSConfig represents AWS configuration
type AWSConfig struct {
	Profile       string `mapstructure:"profile"`
	DefaultRegion string `mapstructure:"default_region"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("metadata.endpoint", "http://169.254.169.254")
	v.SetDefault("metadata.client", MetadataClientHTTP)
	v.SetDefault("metadata.wait_timeout", 120*time.Second)
	v.SetDefault("http.retries", 5)
	v.SetDefault("http.backoff_factor", 0.3)
	v.SetDefault("http.timeout", 5*time.Second)
	v.SetDefault("cache.dir", os.TempDir())
	v.SetDefault("cache.fallback_dir", defaultFallbackDir())
	v.SetDefault("cache.file", "instance-data.json")
	v.SetDefault("cache.ttl", 900*time.Second)
	v.SetDefault("aws.profile", "")
	v.SetDefault("aws.default_region", "eu-west-1")
}

// Default returns the configuration with only defaults applied
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		// Defaults are static and always valid
		panic(err)
	}
	return cfg
}

// Load unmarshals and validates configuration from v. Defaults and the
// EC2UTILS_ environment prefix are applied to v before reading.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to decode configuration", err)
	}

	cfg.Cache.Dir = expandPath(cfg.Cache.Dir)
	cfg.Cache.FallbackDir = expandPath(cfg.Cache.FallbackDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.GetLogger().Debug("Configuration loaded",
		zap.String("metadata_endpoint", cfg.Metadata.Endpoint),
		zap.String("metadata_client", cfg.Metadata.Client),
		zap.String("cache_dir", cfg.Cache.Dir),
		zap.Duration("cache_ttl", cfg.Cache.TTL),
		zap.String("profile", cfg.AWS.Profile),
	)

	return &cfg, nil
}

// Validate checks the configuration for values the tools cannot work with
func (c *Config) Validate() error {
	switch c.Metadata.Client {
	case MetadataClientHTTP, MetadataClientIMDS:
	default:
		return apperrors.NewConfigError(
			fmt.Sprintf("unknown metadata client %q (want %s or %s)", c.Metadata.Client, MetadataClientHTTP, MetadataClientIMDS), nil)
	}
	if c.Metadata.Endpoint == "" {
		return apperrors.NewConfigError("metadata endpoint must not be empty", nil)
	}
	if c.HTTP.Retries < 0 {
		return apperrors.NewConfigError("http retries must not be negative", nil)
	}
	if c.Cache.TTL <= 0 {
		return apperrors.NewConfigError("cache ttl must be positive", nil)
	}
	if c.Cache.File == "" {
		return apperrors.NewConfigError("cache file name must not be empty", nil)
	}
	if c.AWS.DefaultRegion != "" && !utils.IsRegionName(c.AWS.DefaultRegion) {
		return apperrors.NewConfigError(fmt.Sprintf("invalid default region %q", c.AWS.DefaultRegion), nil)
	}
	return nil
}

// CachePath returns the primary location of the cache file
func (c *Config) CachePath() string {
	return filepath.Join(c.Cache.Dir, c.Cache.File)
}

func defaultFallbackDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ndt"
	}
	return filepath.Join(home, ".ndt")
}

// expandPath expands a leading tilde to the user's home directory
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
