// Package store persists raw documents under a name.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kobzarvs/qdraft/internal/config"
	"github.com/kobzarvs/qdraft/internal/encoding"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidName = errors.New("invalid document name")
)

// Store saves and loads raw documents. Implementations must be safe for
// use from one goroutine at a time; callers serialize access.
type Store interface {
	Save(ctx context.Context, name string, doc *encoding.RawContentState) error
	Load(ctx context.Context, name string) (*encoding.RawContentState, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w %q", ErrInvalidName, name)
	}
	return nil
}

// Open returns the backend selected by cfg.Store.
func Open(cfg config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case "", "file":
		dir, err := cfg.StoreDir()
		if err != nil {
			return nil, err
		}
		return NewFileStore(dir), nil
	case "redis":
		return NewRedisStore(cfg.Store.RedisAddr, "", cfg.Store.RedisDB, WithPrefix(cfg.Store.RedisPrefix)), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
