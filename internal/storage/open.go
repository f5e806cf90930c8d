package storage

import (
	"context"
	"errors"
	"strings"

	"alertd/pkg/logx"
)

// Store is the key-value blob persistence API used by the notification
// service (today: the settings record). Both calls may fail with I/O errors;
// callers convert those at their own boundary.
type Store interface {
	Get(ctx context.Context, key string) (blob []byte, ok bool, err error)
	Put(ctx context.Context, key string, blob []byte) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
