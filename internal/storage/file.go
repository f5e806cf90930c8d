package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"alertd/pkg/logx"
)

// fileStore is a dependency-free persistence backend: one JSON document
// mapping key -> raw blob, rewritten atomically (tmp + rename) on every Put.
// Settings writes are rare, so a journal is not worth its complexity here.
type fileStore struct {
	log  logx.Logger
	path string

	mu   sync.Mutex
	data map[string]json.RawMessage
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	data := map[string]json.RawMessage{}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(b, &data); err != nil {
			// A corrupt snapshot must not brick startup; keep the file for
			// inspection and start fresh.
			log.Warn("store snapshot unreadable, starting empty", logx.String("path", path), logx.Err(err))
			data = map[string]json.RawMessage{}
		}
	case os.IsNotExist(err):
		// first run
	default:
		return nil, err
	}

	return &fileStore{log: log, path: path, data: data}, nil
}

func (s *fileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, false, errors.New("store closed")
	}
	raw, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), raw...), true, nil
}

func (s *fileStore) Put(ctx context.Context, key string, blob []byte) error {
	_ = ctx
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("empty key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return errors.New("store closed")
	}

	prev, hadPrev := s.data[key]
	s.data[key] = append([]byte(nil), blob...)
	if err := s.flushLocked(); err != nil {
		// Keep the in-memory view consistent with disk.
		if hadPrev {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

func (s *fileStore) flushLocked() error {
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}
