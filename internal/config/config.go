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
	Docstore  DocstoreConfig  `yaml:"docstore" mapstructure:"docstore"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Sessions  SessionsConfig  `yaml:"sessions" mapstructure:"sessions"`
	Airports  AirportsConfig  `yaml:"airports" mapstructure:"airports"`
	Flights   FlightsConfig   `yaml:"flights" mapstructure:"flights"`
	Weather   WeatherConfig   `yaml:"weather" mapstructure:"weather"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Collect   CollectConfig   `yaml:"collect" mapstructure:"collect"`
	Archive   ArchiveConfig   `yaml:"archive" mapstructure:"archive"`
	Schedule  ScheduleConfig  `yaml:"schedule" mapstructure:"schedule"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DocstoreConfig configures the MongoDB landing store.
type DocstoreConfig struct {
	URI         string `yaml:"uri" mapstructure:"uri"`
	Database    string `yaml:"database" mapstructure:"database"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// WarehouseConfig configures the PostgreSQL warehouse.
type WarehouseConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SessionsConfig configures where collection-session history is kept.
type SessionsConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// AirportsConfig configures the IATA/ICAO reference table.
type AirportsConfig struct {
	File     string `yaml:"file" mapstructure:"file"`
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
}

// FlightsConfig configures the flight snapshot source.
type FlightsConfig struct {
	SnapshotURL string `yaml:"snapshot_url" mapstructure:"snapshot_url"`
}

// WeatherConfig configures the aviation weather source.
type WeatherConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FetchConfig configures outbound fetch behavior.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries     int     `yaml:"retries" mapstructure:"retries"`
	DelaySecs   float64 `yaml:"delay_secs" mapstructure:"delay_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
	MaxParallel int     `yaml:"max_parallel" mapstructure:"max_parallel"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// Delay returns the politeness delay between sequential fetches.
func (f FetchConfig) Delay() time.Duration {
	return time.Duration(f.DelaySecs * float64(time.Second))
}

// CollectConfig configures collection windows and defaults.
type CollectConfig struct {
	Airports          []string `yaml:"airports" mapstructure:"airports"`
	RealtimeOffsetHrs int      `yaml:"realtime_offset_hours" mapstructure:"realtime_offset_hours"`
	PastOffsetHrs     int      `yaml:"past_offset_hours" mapstructure:"past_offset_hours"`
}

// ArchiveConfig configures the FTP raw-snapshot archive.
type ArchiveConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	URL         string `yaml:"url" mapstructure:"url"`
	Username    string `yaml:"username" mapstructure:"username"`
	Password    string `yaml:"password" mapstructure:"password"`
	Pattern     string `yaml:"pattern" mapstructure:"pattern"`
	MaxAgeHours int    `yaml:"max_age_hours" mapstructure:"max_age_hours"`
}

// ScheduleConfig configures loop-mode run alignment.
type ScheduleConfig struct {
	Minute          int `yaml:"minute" mapstructure:"minute"`
	IntervalMinutes int `yaml:"interval_minutes" mapstructure:"interval_minutes"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("FLIGHTWX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("docstore.uri", "mongodb://localhost:27017")
	v.SetDefault("docstore.database", "flightwx")
	v.SetDefault("docstore.batch_size", 500)
	v.SetDefault("docstore.timeout_secs", 10)
	v.SetDefault("sessions.driver", "sqlite")
	v.SetDefault("sessions.sqlite_path", "flightwx.db")
	v.SetDefault("airports.file", "airports_ref.csv")
	v.SetDefault("airports.encoding", "utf-8")
	v.SetDefault("weather.base_url", "https://aviationweather.gov/api/data")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.retries", 3)
	v.SetDefault("fetch.delay_secs", 1.5)
	v.SetDefault("fetch.rate_per_sec", 2.0)
	v.SetDefault("fetch.burst", 1)
	v.SetDefault("fetch.max_parallel", 1)
	v.SetDefault("fetch.user_agent", "flightwx/1.0")
	v.SetDefault("collect.airports", []string{"CDG"})
	v.SetDefault("collect.realtime_offset_hours", 1)
	v.SetDefault("collect.past_offset_hours", -20)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.pattern", "raw_*.ndjson")
	v.SetDefault("archive.max_age_hours", 24)
	v.SetDefault("schedule.minute", 5)
	v.SetDefault("schedule.interval_minutes", 60)
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
