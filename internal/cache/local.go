package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local stores artifacts as files in a single directory.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %q: %w", dir, err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Put(_ context.Context, key string, data []byte) (ArtifactInfo, error) {
	path, err := l.path(key)
	if err != nil {
		return ArtifactInfo{}, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ArtifactInfo{}, fmt.Errorf("write cache artifact %q: %w", key, err)
	}
	stat, err := os.Stat(path)
	if err != nil {
		return ArtifactInfo{}, fmt.Errorf("stat cache artifact %q: %w", key, err)
	}
	return ArtifactInfo{Key: key, Size: stat.Size(), LastModified: stat.ModTime()}, nil
}

func (l *Local) Get(_ context.Context, key string) ([]byte, error) {
	path, err := l.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("read cache artifact %q: %w", key, err)
	}
	return data, nil
}

func (l *Local) Stat(_ context.Context, key string) (ArtifactInfo, error) {
	path, err := l.path(key)
	if err != nil {
		return ArtifactInfo{}, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ArtifactInfo{}, ErrArtifactNotFound
		}
		return ArtifactInfo{}, fmt.Errorf("stat cache artifact %q: %w", key, err)
	}
	return ArtifactInfo{Key: key, Size: stat.Size(), LastModified: stat.ModTime()}, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	path, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("delete cache artifact %q: %w", key, err)
	}
	return nil
}

func (l *Local) path(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("cache key is required")
	}
	if key != filepath.Base(key) {
		return "", fmt.Errorf("invalid cache key: %q", key)
	}
	return filepath.Join(l.dir, key), nil
}
