package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Dataset   DatasetConfig   `yaml:"dataset" mapstructure:"dataset"`
	Boundary  BoundaryConfig  `yaml:"boundary" mapstructure:"boundary"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DatasetConfig points at the establishment CSV parts and the optional
// CNAE description lookup.
type DatasetConfig struct {
	Parts          []string `yaml:"parts" mapstructure:"parts"`
	ActivityLookup string   `yaml:"activity_lookup" mapstructure:"activity_lookup"`
}

// BoundaryConfig points at the municipality boundary file (GeoJSON or
// shapefile) and names the feature property holding the municipality name.
type BoundaryConfig struct {
	Path         string `yaml:"path" mapstructure:"path"`
	NameProperty string `yaml:"name_property" mapstructure:"name_property"`
}

// StoreConfig configures the local export-snapshot log.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	CORSOrigins      []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ExportsPerMinute int      `yaml:"exports_per_minute" mapstructure:"exports_per_minute"`
}

// DashboardConfig holds presentation defaults.
type DashboardConfig struct {
	DefaultTopN    int `yaml:"default_top_n" mapstructure:"default_top_n"`
	PreviewRowCap  int `yaml:"preview_row_cap" mapstructure:"preview_row_cap"`
	ExportsHistory int `yaml:"exports_history" mapstructure:"exports_history"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RFBDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dataset.parts", []string{
		"dados/estabelecimentos_filtrado_parte1.csv",
		"dados/estabelecimentos_filtrado_parte2.csv",
		"dados/estabelecimentos_filtrado_parte3.csv",
		"dados/estabelecimentos_filtrado_parte4.csv",
	})
	v.SetDefault("dataset.activity_lookup", "dados/codigos_cnae.csv")
	v.SetDefault("boundary.path", "dados/municipios_rs.json")
	v.SetDefault("boundary.name_property", "name")
	v.SetDefault("store.path", "rfbdash.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.exports_per_minute", 6)
	v.SetDefault("dashboard.default_top_n", 20)
	v.SetDefault("dashboard.preview_row_cap", 1000)
	v.SetDefault("dashboard.exports_history", 20)
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
