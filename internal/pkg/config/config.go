package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Roads     RoadsConfig     `mapstructure:"roads"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
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

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret    string `mapstructure:"jwt_secret"`
	JWTAlgorithm string `mapstructure:"jwt_algorithm"`
}

// RoutingConfig tunes route search and obstacle association.
type RoutingConfig struct {
	ToleranceMeters           float64 `mapstructure:"tolerance_meters"`
	ObstacleMaxDistanceMeters float64 `mapstructure:"obstacle_max_distance_meters"`
	SearchCacheTTL            int     `mapstructure:"search_cache_ttl"`
	DetailCacheTTL            int     `mapstructure:"detail_cache_ttl"`
}

// RoadsConfig configures the snap-to-roads client. An empty APIKey
// disables geometry refinement.
type RoadsConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// Enabled reports whether road refinement can be attempted.
func (r RoadsConfig) Enabled() bool {
	return r.APIKey != ""
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

var supportedAlgorithms = []string{"HS256", "HS384", "HS512"}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.port", 8001)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "bikepaths")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "bikepaths")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_algorithm", "HS256")
	v.SetDefault("routing.tolerance_meters", 100)
	v.SetDefault("routing.obstacle_max_distance_meters", 50)
	v.SetDefault("routing.search_cache_ttl", 60)
	v.SetDefault("routing.detail_cache_ttl", 300)
	v.SetDefault("roads.api_key", "")
	v.SetDefault("roads.base_url", "https://roads.googleapis.com/v1")
	v.SetDefault("roads.timeout", 5)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "path-refinement")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// BIKEPATHS_AUTH_JWT_SECRET → auth.jwt_secret
	v.SetEnvPrefix("BIKEPATHS")
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
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
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
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, "auth.jwt_secret is required")
	}
	if !isSupportedAlgorithm(c.Auth.JWTAlgorithm) {
		errs = append(errs, fmt.Sprintf("auth.jwt_algorithm must be one of %s, got %q",
			strings.Join(supportedAlgorithms, ", "), c.Auth.JWTAlgorithm))
	}
	if c.Routing.ToleranceMeters <= 0 {
		errs = append(errs, "routing.tolerance_meters must be positive")
	}
	if c.Routing.ObstacleMaxDistanceMeters <= 0 {
		errs = append(errs, "routing.obstacle_max_distance_meters must be positive")
	}
	if c.Routing.SearchCacheTTL <= 0 || c.Routing.DetailCacheTTL <= 0 {
		errs = append(errs, "routing cache TTLs must be positive")
	}
	if c.Roads.Enabled() && c.Roads.BaseURL == "" {
		errs = append(errs, "roads.base_url is required when roads.api_key is set")
	}
	if c.Roads.Timeout <= 0 {
		errs = append(errs, "roads.timeout must be positive")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func isSupportedAlgorithm(alg string) bool {
	for _, a := range supportedAlgorithms {
		if a == alg {
			return true
		}
	}
	return false
}
