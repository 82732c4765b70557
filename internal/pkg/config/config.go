package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Valkey     ValkeyConfig     `mapstructure:"valkey"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Log        LogConfig        `mapstructure:"log"`
	Directions DirectionsConfig `mapstructure:"directions"`
	Supply     SupplyConfig     `mapstructure:"supply"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DirectionsConfig configures the Google Maps Directions API client.
type DirectionsConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Mode     string `mapstructure:"mode"`
	Timeout  int    `mapstructure:"timeout"`   // seconds
	CacheTTL int    `mapstructure:"cache_ttl"` // seconds, 0 disables caching
}

func (d DirectionsConfig) TimeoutDuration() time.Duration {
	return time.Duration(d.Timeout) * time.Second
}

// SupplyConfig configures the bike-share operator's GraphQL supply feed.
type SupplyConfig struct {
	URL        string `mapstructure:"url"`
	RegionCode string `mapstructure:"region_code"`
	PageLimit  int    `mapstructure:"page_limit"`
	Timeout    int    `mapstructure:"timeout"` // seconds
	OutputPath string `mapstructure:"output_path"`
}

func (s SupplyConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	TaskQueue string `mapstructure:"task_queue"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	return load(service, viper.New())
}

func load(service string, v *viper.Viper) (*Config, error) {
	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "bikeshare")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "bikeshare")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("directions.base_url", "https://maps.googleapis.com/maps/api/directions/json")
	v.SetDefault("directions.api_key", "")
	v.SetDefault("directions.mode", "bicycling")
	v.SetDefault("directions.timeout", 10)
	v.SetDefault("directions.cache_ttl", 86400)
	v.SetDefault("supply.url", "https://account.citibikenyc.com/bikesharefe-gql")
	v.SetDefault("supply.region_code", "BKN")
	v.SetDefault("supply.page_limit", 1000)
	v.SetDefault("supply.timeout", 30)
	v.SetDefault("supply.output_path", "data/citibike_stations_data.csv")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.task_queue", "bikelegs-backfill")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: BIKELEGS_DIRECTIONS_API_KEY → directions.api_key
	v.SetEnvPrefix("BIKELEGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
// Credentials are not checked here; the clients that need them do that.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "database.max_conns must be positive")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Directions.BaseURL == "" {
		errs = append(errs, "directions.base_url is required")
	}
	if c.Directions.Mode == "" {
		errs = append(errs, "directions.mode is required")
	}
	if c.Directions.Timeout <= 0 {
		errs = append(errs, "directions.timeout must be positive")
	}
	if c.Directions.CacheTTL < 0 {
		errs = append(errs, "directions.cache_ttl must not be negative")
	}
	if c.Supply.URL == "" {
		errs = append(errs, "supply.url is required")
	}
	if c.Supply.PageLimit <= 0 {
		errs = append(errs, "supply.page_limit must be positive")
	}
	if c.Supply.Timeout <= 0 {
		errs = append(errs, "supply.timeout must be positive")
	}
	if c.Supply.OutputPath == "" {
		errs = append(errs, "supply.output_path is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
