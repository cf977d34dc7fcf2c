package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Grid      GridConfig      `yaml:"grid" mapstructure:"grid"`
	Nominatim NominatimConfig `yaml:"nominatim" mapstructure:"nominatim"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GridConfig configures the population grid source.
type GridConfig struct {
	SourceURL string `yaml:"source_url" mapstructure:"source_url"`
	PageSize  int    `yaml:"page_size" mapstructure:"page_size"`
	Path      string `yaml:"path" mapstructure:"path"`
}

// NominatimConfig configures the reverse-geocoding service.
type NominatimConfig struct {
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	Contact      string `yaml:"contact" mapstructure:"contact"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PaceInterval string `yaml:"pace_interval" mapstructure:"pace_interval"`
}

// AnthropicConfig holds Anthropic API settings. An empty Key disables
// generation and the pipeline falls back to deterministic stub output.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PipelineConfig configures batching and pacing.
type PipelineConfig struct {
	ChunkSize    int    `yaml:"chunk_size" mapstructure:"chunk_size"`
	PaceInterval string `yaml:"pace_interval" mapstructure:"pace_interval"`
}

// OutputConfig configures artifact output.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the artifact file server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GeocodePace returns the post-request delay for Nominatim calls.
func (c NominatimConfig) GeocodePace() time.Duration {
	return parseInterval(c.PaceInterval, time.Second)
}

// GenerationPace returns the delay between text-generation calls.
func (c PipelineConfig) GenerationPace() time.Duration {
	return parseInterval(c.PaceInterval, 2*time.Second)
}

func parseInterval(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("POPGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("grid.source_url", "https://services2.arcgis.com/vKb0s8tBIA3bdocZ/arcgis/rest/services/NZGrid_250m_ERP/FeatureServer/1/query")
	v.SetDefault("grid.page_size", 2000)
	v.SetDefault("grid.path", "data/nz_population.geojson")
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.contact", "contact@example.com")
	v.SetDefault("nominatim.timeout_secs", 30)
	v.SetDefault("nominatim.pace_interval", "1s")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("pipeline.chunk_size", 10000)
	v.SetDefault("pipeline.pace_interval", "2s")
	v.SetDefault("output.dir", "out")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Pipeline.ChunkSize <= 0 {
		return nil, eris.Errorf("config: pipeline.chunk_size must be positive, got %d", cfg.Pipeline.ChunkSize)
	}
	if cfg.Grid.PageSize <= 0 {
		return nil, eris.Errorf("config: grid.page_size must be positive, got %d", cfg.Grid.PageSize)
	}

	return &cfg, nil
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
