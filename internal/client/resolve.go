package client

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	sqlFileExtension  = ".sql"
	artifactExtension = ".parquet"
)

// ErrInvalidQuery rejects inline text that does not begin with a
// read-only statement keyword, so mutating SQL cannot slip through the
// caching path.
var ErrInvalidQuery = errors.New("query must be a file ending in .sql or text starting with select or with")

type resolvedQuery struct {
	Text     string
	CacheKey string
}

func (c *Client) resolveQuery(querySource string) (resolvedQuery, error) {
	if strings.HasSuffix(strings.ToLower(querySource), sqlFileExtension) {
		return c.resolveQueryFile(querySource)
	}

	text := strings.TrimSpace(querySource)
	lowered := strings.ToLower(text)
	if !strings.HasPrefix(lowered, "select") && !strings.HasPrefix(lowered, "with") {
		return resolvedQuery{}, ErrInvalidQuery
	}
	sum := sha256.Sum256([]byte(text))
	return resolvedQuery{
		Text:     text,
		CacheKey: hex.EncodeToString(sum[:]) + artifactExtension,
	}, nil
}

func (c *Client) resolveQueryFile(querySource string) (resolvedQuery, error) {
	path := querySource
	if !strings.HasPrefix(path, c.sqlRoot+"/") {
		path = filepath.Join(c.sqlRoot, path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return resolvedQuery{}, fmt.Errorf("sql file %q: %w", path, err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return resolvedQuery{
		Text:     string(raw),
		CacheKey: stem + artifactExtension,
	}, nil
}
