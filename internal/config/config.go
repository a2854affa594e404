package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	DriverSnowflake = "snowflake"
	DriverDuckDB    = "duckdb"
	DriverPostgres  = "postgres"
)

const (
	CacheBackendLocal = "local"
	CacheBackendS3    = "s3"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	Warehouse     WarehouseConfig
	SQL           SQLConfig
	Cache         CacheConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type WarehouseConfig struct {
	Driver               string
	Account              string
	User                 string
	Role                 string
	Warehouse            string
	Database             string
	Schema               string
	PrivateKeyPath       string
	PrivateKeyPassphrase string
}

type SQLConfig struct {
	Root string
}

type CacheConfig struct {
	Backend string
	Dir     string
	S3      S3CacheConfig
}

type S3CacheConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("SNOWCACHE_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid SNOWCACHE_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "SNOWCACHE_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_DRIVER", &cfg.Warehouse.Driver); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_ACCOUNT", &cfg.Warehouse.Account); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_USER", &cfg.Warehouse.User); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_ROLE", &cfg.Warehouse.Role); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_WAREHOUSE", &cfg.Warehouse.Warehouse); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_DATABASE", &cfg.Warehouse.Database); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_SCHEMA", &cfg.Warehouse.Schema); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_PRIVATE_KEY_PATH", &cfg.Warehouse.PrivateKeyPath); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_PRIVATE_KEY_PASSPHRASE", &cfg.Warehouse.PrivateKeyPassphrase); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_SQL_ROOT", &cfg.SQL.Root); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_CACHE_BACKEND", &cfg.Cache.Backend); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_CACHE_DIR", &cfg.Cache.Dir); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_CACHE_S3_ENDPOINT", &cfg.Cache.S3.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_CACHE_S3_REGION", &cfg.Cache.S3.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_CACHE_S3_BUCKET", &cfg.Cache.S3.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_CACHE_S3_ACCESS_KEY", &cfg.Cache.S3.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_CACHE_S3_SECRET_KEY", &cfg.Cache.S3.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SNOWCACHE_CACHE_S3_USE_SSL", &cfg.Cache.S3.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SNOWCACHE_CACHE_S3_PREFIX", &cfg.Cache.S3.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SNOWCACHE_CACHE_S3_AUTO_CREATE_BUCKET", &cfg.Cache.S3.AutoCreateBucket); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SNOWCACHE_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "SNOWCACHE_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if !isValidDriver(cfg.Warehouse.Driver) {
		return Config{}, fmt.Errorf("invalid SNOWCACHE_DRIVER: %q", cfg.Warehouse.Driver)
	}
	switch cfg.Cache.Backend {
	case CacheBackendLocal:
		if cfg.Cache.Dir == "" {
			return Config{}, fmt.Errorf("cache dir is required")
		}
	case CacheBackendS3:
		if cfg.Cache.S3.Bucket == "" {
			return Config{}, fmt.Errorf("cache s3 bucket is required")
		}
	default:
		return Config{}, fmt.Errorf("invalid SNOWCACHE_CACHE_BACKEND: %q", cfg.Cache.Backend)
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "snowcache"},
		Warehouse: WarehouseConfig{
			Driver: DriverSnowflake,
		},
		SQL: SQLConfig{
			Root: "sql",
		},
		Cache: CacheConfig{
			Backend: CacheBackendLocal,
			Dir:     "sql/caches",
			S3: S3CacheConfig{
				Region:           "us-east-1",
				UseSSL:           false,
				AutoCreateBucket: true,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  false,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.Warehouse.Driver = DriverDuckDB
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Observability.LogJSON = true
		cfg.Cache.S3.UseSSL = true
		cfg.Cache.S3.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func isValidDriver(driver string) bool {
	switch driver {
	case "", DriverSnowflake, DriverDuckDB, DriverPostgres:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
