package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/snowcache/snowcache/internal/cache"
	"github.com/snowcache/snowcache/internal/observability"
	"github.com/snowcache/snowcache/internal/warehouse"
)

// Client executes warehouse queries with a local result cache and
// writes tables back to the warehouse. One session per client, no
// internal concurrency; callers sharing a client must serialize access.
type Client struct {
	session warehouse.Session
	store   cache.Store
	sqlRoot string
	logger  *slog.Logger
}

type Options struct {
	SQLRoot string
	Logger  *slog.Logger
}

func New(session warehouse.Session, store cache.Store, opts Options) (*Client, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	sqlRoot := opts.SQLRoot
	if sqlRoot == "" {
		sqlRoot = "sql"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{session: session, store: store, sqlRoot: sqlRoot, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.session.Close()
}

// FetchData resolves the query source, returns the cached result when
// useCache is set and an artifact exists, and otherwise substitutes
// variables, executes the query, and persists the cleaned result under
// the cache key, overwriting any stale artifact.
//
// The cache key is computed on pre-substitution text: two calls with
// the same query skeleton but different variables share one cache
// entry.
func (c *Client) FetchData(ctx context.Context, querySource string, variables map[string]string, useCache bool) (warehouse.Table, error) {
	resolved, err := c.resolveQuery(querySource)
	if err != nil {
		return warehouse.Table{}, err
	}

	if useCache {
		data, err := c.store.Get(ctx, resolved.CacheKey)
		if err == nil {
			observability.ObserveCacheHit()
			c.logger.Debug("cache hit", slog.String("key", resolved.CacheKey))
			return cache.Decode(data)
		}
		if !errors.Is(err, cache.ErrArtifactNotFound) {
			return warehouse.Table{}, fmt.Errorf("read cache artifact %q: %w", resolved.CacheKey, err)
		}
		observability.ObserveCacheMiss()
	}

	queryText, err := substituteVariables(resolved.Text, variables)
	if err != nil {
		return warehouse.Table{}, err
	}

	c.logger.Info("executing query", slog.String("key", resolved.CacheKey))
	start := time.Now()
	result, err := c.session.Query(ctx, queryText)
	if err != nil {
		return warehouse.Table{}, err
	}
	observability.ObserveQuery(time.Since(start))

	cleaned := result.Clean()
	encoded, err := cache.Encode(cleaned)
	if err != nil {
		return warehouse.Table{}, fmt.Errorf("encode cache artifact: %w", err)
	}
	if _, err := c.store.Put(ctx, resolved.CacheKey, encoded); err != nil {
		return warehouse.Table{}, fmt.Errorf("write cache artifact %q: %w", resolved.CacheKey, err)
	}
	return cleaned, nil
}
