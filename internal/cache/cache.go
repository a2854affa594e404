package cache

import (
	"context"
	"errors"
	"time"
)

var ErrArtifactNotFound = errors.New("cache artifact not found")

type ArtifactInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store persists one columnar artifact per cache key. Writes overwrite
// without locking; concurrent writers targeting the same key can race.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (ArtifactInfo, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Stat(ctx context.Context, key string) (ArtifactInfo, error)
	Delete(ctx context.Context, key string) error
}
