package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the variable pointing at an optional YAML file.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "change-me"

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Auth      AuthConfig      `koanf:"auth"`
	Storage   StorageConfig   `koanf:"storage"`
	Limits    LimitsConfig    `koanf:"limits"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Host        string   `koanf:"host"`
	Port        string   `koanf:"port"`
	CORSOrigins []string `koanf:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver   string `koanf:"driver"`
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"ssl_mode"`
	// Path is the sqlite database file; ":memory:" is allowed.
	Path          string `koanf:"path"`
	MigrationsDir string `koanf:"migrations_dir"`
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL returns the postgres connection string in URL form, as used by the
// migration tool.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	URL      string `koanf:"url"`
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

type StorageConfig struct {
	Enabled bool   `koanf:"enabled"`
	Bucket  string `koanf:"bucket"`
	Region  string `koanf:"region"`
	// Endpoint overrides the S3 endpoint (MinIO, localstack).
	Endpoint string `koanf:"endpoint"`
	// PublicBaseURL prefixes object keys in returned image URLs. Defaults to
	// the virtual-hosted bucket URL.
	PublicBaseURL     string `koanf:"public_base_url"`
	ApplyPublicPolicy bool   `koanf:"apply_public_policy"`
	// MediaDir stores images on local disk when S3 is disabled.
	MediaDir string `koanf:"media_dir"`
}

// LimitsConfig bounds cooking time and ingredient amounts (inclusive).
type LimitsConfig struct {
	Min int `koanf:"min"`
	Max int `koanf:"max"`
}

type RateLimitConfig struct {
	Window       time.Duration `koanf:"window"`
	RecipeWrites int           `koanf:"recipe_writes"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        "8000",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Driver:        "sqlite",
			Host:          "localhost",
			Port:          "5432",
			User:          "postgres",
			Name:          "foodgram",
			SSLMode:       "disable",
			Path:          "foodgram.db",
			MigrationsDir: "migrations",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6379",
		},
		Auth: AuthConfig{
			JWTSecret: DefaultJWTSecret,
			TokenTTL:  24 * time.Hour,
		},
		Storage: StorageConfig{
			Bucket:   "foodgram-recipe-images",
			Region:   "us-east-1",
			MediaDir: "media",
		},
		Limits: LimitsConfig{
			Min: 1,
			Max: 32000,
		},
		RateLimit: RateLimitConfig{
			Window:       time.Hour,
			RecipeWrites: 60,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file,
// environment variables and finally Docker secrets, then validates it for
// the current environment.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitCommaList(k, "server.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	applySecrets(cfg)

	if err := ValidateConfig(cfg, GetEnvironment()); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envMappings maps environment variable names (lowercased) to config paths.
var envMappings = map[string]string{
	"server_host":              "server.host",
	"server_port":              "server.port",
	"cors_origins":             "server.cors_origins",
	"db_driver":                "database.driver",
	"db_host":                  "database.host",
	"db_port":                  "database.port",
	"db_user":                  "database.user",
	"db_password":              "database.password",
	"db_name":                  "database.name",
	"db_ssl_mode":              "database.ssl_mode",
	"db_path":                  "database.path",
	"migrations_dir":           "database.migrations_dir",
	"redis_enabled":            "redis.enabled",
	"redis_url":                "redis.url",
	"redis_host":               "redis.host",
	"redis_port":               "redis.port",
	"redis_password":           "redis.password",
	"redis_db":                 "redis.db",
	"jwt_secret":               "auth.jwt_secret",
	"token_ttl":                "auth.token_ttl",
	"storage_enabled":          "storage.enabled",
	"s3_bucket_name":           "storage.bucket",
	"aws_region":               "storage.region",
	"s3_endpoint":              "storage.endpoint",
	"s3_public_base_url":       "storage.public_base_url",
	"s3_apply_public_policy":   "storage.apply_public_policy",
	"media_dir":                "storage.media_dir",
	"len_min_limit":            "limits.min",
	"len_max_limit":            "limits.max",
	"rate_limit_window":        "rate_limit.window",
	"rate_limit_recipe_writes": "rate_limit.recipe_writes",
	"log_level":                "log.level",
	"log_format":               "log.format",
}

// envTransformFunc maps a known environment variable to its config path.
// Unknown variables map to "" and are ignored.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func splitCommaList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var items []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// applySecrets overrides sensitive values with Docker secrets when present.
func applySecrets(cfg *Config) {
	if v := readSecret("db_password"); v != "" {
		cfg.Database.Password = v
	}
	if v := readSecret("db_user"); v != "" {
		cfg.Database.User = v
	}
	if v := readSecret("jwt_secret"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := readSecret("redis_password"); v != "" {
		cfg.Redis.Password = v
	}
	if v := readSecret("redis_url"); v != "" {
		cfg.Redis.URL = v
	}
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
