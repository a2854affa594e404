package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/snowflakedb/gosnowflake"

	"github.com/snowcache/snowcache/internal/config"
)

// Connect opens an authenticated warehouse session. Authentication
// errors surface unmodified and are fatal to construction.
func Connect(ctx context.Context, cfg config.WarehouseConfig, logger *slog.Logger) (*SQLSession, error) {
	driverName, dsn, err := buildDSN(cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open warehouse connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLSession(db, cfg.Driver), nil
}

func buildDSN(cfg config.WarehouseConfig, logger *slog.Logger) (string, string, error) {
	switch cfg.Driver {
	case "", config.DriverSnowflake:
		return snowflakeDSN(cfg, logger)
	case config.DriverDuckDB:
		return "duckdb", cfg.Database, nil
	case config.DriverPostgres:
		return "pgx", postgresDSN(cfg), nil
	default:
		return "", "", fmt.Errorf("unknown warehouse driver %q", cfg.Driver)
	}
}

func snowflakeDSN(cfg config.WarehouseConfig, logger *slog.Logger) (string, string, error) {
	sfCfg := &gosnowflake.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Role:      cfg.Role,
		Warehouse: cfg.Warehouse,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
	}

	if cfg.PrivateKeyPath != "" {
		if _, err := os.Stat(cfg.PrivateKeyPath); err == nil {
			key, err := LoadPrivateKey(cfg.PrivateKeyPath, cfg.PrivateKeyPassphrase)
			if err != nil {
				return "", "", err
			}
			sfCfg.Authenticator = gosnowflake.AuthTypeJwt
			sfCfg.PrivateKey = key
			logger.Info("authenticating with private key", slog.String("path", cfg.PrivateKeyPath))
		}
	}
	if sfCfg.PrivateKey == nil {
		sfCfg.Authenticator = gosnowflake.AuthTypeExternalBrowser
		logger.Info("no private key found, falling back to browser authentication")
	}

	dsn, err := gosnowflake.DSN(sfCfg)
	if err != nil {
		return "", "", fmt.Errorf("build warehouse dsn: %w", err)
	}
	return "snowflake", dsn, nil
}

func postgresDSN(cfg config.WarehouseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   cfg.Account,
		Path:   "/" + strings.TrimPrefix(cfg.Database, "/"),
	}
	if cfg.User != "" {
		u.User = url.User(cfg.User)
	}
	query := url.Values{}
	if cfg.Schema != "" {
		query.Set("search_path", cfg.Schema)
	}
	u.RawQuery = query.Encode()
	return u.String()
}
