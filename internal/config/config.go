package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/ambientctx/internal/cache"
	"github.com/sells-group/ambientctx/pkg/geocode"
	"github.com/sells-group/ambientctx/pkg/ipgeo"
)

// Config holds the full application configuration.
type Config struct {
	Debug  bool         `yaml:"debug" mapstructure:"debug"`
	IPGeo  IPGeoConfig  `yaml:"ipgeo" mapstructure:"ipgeo"`
	Census CensusConfig `yaml:"census" mapstructure:"census"`
	HTTP   HTTPConfig   `yaml:"http" mapstructure:"http"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// IPGeoConfig configures the IP geolocation endpoint.
type IPGeoConfig struct {
	Endpoint      string  `yaml:"endpoint" mapstructure:"endpoint"`
	RatePerMinute float64 `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
}

// CensusConfig configures the Census geographies endpoint and dataset.
type CensusConfig struct {
	Endpoint      string  `yaml:"endpoint" mapstructure:"endpoint"`
	Benchmark     string  `yaml:"benchmark" mapstructure:"benchmark"`
	Vintage       string  `yaml:"vintage" mapstructure:"vintage"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// HTTPConfig configures outbound HTTP. Zero timeout means none.
type HTTPConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CacheConfig selects the session cache backend.
type CacheConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	SessionID     string `yaml:"session_id" mapstructure:"session_id"`
	SQLitePath    string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
}

// Options converts the config into cache.Options for the given session.
func (c CacheConfig) Options(session string) cache.Options {
	return cache.Options{
		Driver:      c.Driver,
		Session:     session,
		SQLitePath:  c.SQLitePath,
		DatabaseURL: c.DatabaseURL,
		Redis: cache.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		},
	}
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("AMBIENTCTX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("debug", false)
	v.SetDefault("ipgeo.endpoint", ipgeo.DefaultEndpoint)
	v.SetDefault("ipgeo.rate_per_minute", ipgeo.DefaultRatePerMinute)
	v.SetDefault("census.endpoint", geocode.DefaultEndpoint)
	v.SetDefault("census.benchmark", geocode.DefaultBenchmark)
	v.SetDefault("census.vintage", geocode.DefaultVintage)
	v.SetDefault("census.rate_per_second", 50)
	v.SetDefault("http.timeout_secs", 0)
	v.SetDefault("cache.driver", cache.DriverMemory)
	v.SetDefault("cache.session_id", "")
	v.SetDefault("cache.sqlite_path", "ambientctx.db")
	v.SetDefault("cache.database_url", "")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
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

	if cfg.Debug {
		cfg.Log.Level = "debug"
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

// Validate checks settings that Load cannot default. command is the CLI
// command being run; only "serve" adds extra requirements.
func (c *Config) Validate(command string) error {
	var problems []string

	switch c.Cache.Driver {
	case cache.DriverMemory, "":
	case cache.DriverSQLite:
		if c.Cache.SQLitePath == "" {
			problems = append(problems, "cache.sqlite_path is required for the sqlite driver")
		}
	case cache.DriverPostgres:
		if c.Cache.DatabaseURL == "" {
			problems = append(problems, "cache.database_url is required for the postgres driver")
		}
	case cache.DriverRedis:
		if c.Cache.RedisAddr == "" {
			problems = append(problems, "cache.redis_addr is required for the redis driver")
		}
	default:
		problems = append(problems, "cache.driver must be one of memory, sqlite, postgres, redis")
	}

	if c.IPGeo.Endpoint == "" {
		problems = append(problems, "ipgeo.endpoint is required")
	}
	if c.Census.Endpoint == "" {
		problems = append(problems, "census.endpoint is required")
	}
	if c.HTTP.TimeoutSecs < 0 {
		problems = append(problems, "http.timeout_secs must not be negative")
	}

	if command == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		problems = append(problems, "server.port must be between 1 and 65535")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
