package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/school-tracker/internal/model"
)

// Fatal settings errors returned by Validate.
var (
	ErrUnknownCity   = eris.New("config: unknown city")
	ErrMissingAPIKey = eris.New("config: geocode.api_key is required unless geocode.cache_only is set")
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Region   RegionConfig   `yaml:"region" mapstructure:"region"`
	Stations StationsConfig `yaml:"stations" mapstructure:"stations"`
	Enrich   EnrichConfig   `yaml:"enrich" mapstructure:"enrich"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GeocodeConfig configures the search API client and its cache.
type GeocodeConfig struct {
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey     string  `yaml:"api_key" mapstructure:"api_key"`
	Lang       string  `yaml:"lang" mapstructure:"lang"`
	VerifyTLS  bool    `yaml:"verify_tls" mapstructure:"verify_tls"`
	CacheFile  string  `yaml:"cache_file" mapstructure:"cache_file"`
	CacheOnly  bool    `yaml:"cache_only" mapstructure:"cache_only"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// RegionConfig selects the city that biases lookups and filters records.
type RegionConfig struct {
	City string `yaml:"city" mapstructure:"city"`
}

// StationsConfig points at the reference station dataset (.json, .yaml or .shp).
type StationsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// EnrichConfig configures the optional house listing workbook.
type EnrichConfig struct {
	Workbook string  `yaml:"workbook" mapstructure:"workbook"`
	RadiusKM float64 `yaml:"radius_km" mapstructure:"radius_km"`
}

// ReportConfig configures report output.
type ReportConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	MapAPIKey string `yaml:"map_api_key" mapstructure:"map_api_key"`
}

// Load reads configuration from file and environment. An empty path looks
// for an optional config.yaml in the working directory; an explicit path
// must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("SCHOOLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("geocode.base_url", "https://search-maps.yandex.ru/v1")
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("geocode.lang", "ru_RU")
	v.SetDefault("geocode.verify_tls", true)
	v.SetDefault("geocode.cache_file", "coords.txt")
	v.SetDefault("geocode.cache_only", false)
	v.SetDefault("geocode.rate_per_sec", 5)
	v.SetDefault("region.city", "Москва")
	v.SetDefault("stations.path", "stations.json")
	v.SetDefault("enrich.workbook", "")
	v.SetDefault("enrich.radius_km", 1.0)
	v.SetDefault("report.dir", "report")
	v.SetDefault("report.map_api_key", "")

	// Read config file (optional unless given explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings that must hold before any work starts.
func (c *Config) Validate() error {
	if _, ok := model.LookupRegion(c.Region.City); !ok {
		return eris.Wrapf(ErrUnknownCity, "%q", c.Region.City)
	}
	if !c.Geocode.CacheOnly && c.Geocode.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Geocode.RatePerSec <= 0 {
		return eris.Errorf("config: geocode.rate_per_sec must be positive, got %v", c.Geocode.RatePerSec)
	}
	if c.Enrich.RadiusKM <= 0 {
		return eris.Errorf("config: enrich.radius_km must be positive, got %v", c.Enrich.RadiusKM)
	}
	return nil
}

// RegionDescriptor returns the configured region. Call Validate first.
func (c *Config) RegionDescriptor() model.Region {
	r, _ := model.LookupRegion(c.Region.City)
	return r
}

// InitLogger builds the global zap logger. Diagnostics go to stderr so that
// command output on stdout stays clean. The console format is the default for
// an interactive run; json suits captured logs.
func InitLogger(cfg LogConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "", "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.DisableStacktrace = true
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "json":
		zapCfg = zap.NewProductionConfig()
		zapCfg.Sampling = nil
	default:
		return eris.Errorf("config: unknown log format %q", cfg.Format)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.OutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	logger.Debug("logger initialised", zap.String("level", level.String()), zap.String("format", cfg.Format))

	return nil
}
