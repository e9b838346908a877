package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
)

// StateManager remembers the next cursor of an interrupted walk so a later
// crawl can resume. Walks are identified by their request parameters.
type StateManager interface {
	GetCursor(ctx context.Context, walkKey string) (string, error)
	SetCursor(ctx context.Context, walkKey, cursor string) error
	Clear(ctx context.Context, walkKey string) error
}

type redisStateManager struct {
	redisClient *redis.Client
	keyPrefix   string
}

func NewRedisStateManager(redisClient *redis.Client, keyPrefix string) StateManager {
	return &redisStateManager{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
	}
}

func (s *redisStateManager) GetCursor(ctx context.Context, walkKey string) (string, error) {
	val, err := s.redisClient.Get(ctx, s.keyPrefix+walkKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil // No progress saved yet
		}
		return "", fmt.Errorf("failed to get cursor for walk %s: %w", walkKey, err)
	}
	return val, nil
}

func (s *redisStateManager) SetCursor(ctx context.Context, walkKey, cursor string) error {
	err := s.redisClient.Set(ctx, s.keyPrefix+walkKey, cursor, 0).Err() // No expiration
	if err != nil {
		return fmt.Errorf("failed to set cursor for walk %s: %w", walkKey, err)
	}
	return nil
}

func (s *redisStateManager) Clear(ctx context.Context, walkKey string) error {
	if err := s.redisClient.Del(ctx, s.keyPrefix+walkKey).Err(); err != nil {
		return fmt.Errorf("failed to clear cursor for walk %s: %w", walkKey, err)
	}
	return nil
}

// fileStateManager keeps every walk's cursor in one small JSON object.
type fileStateManager struct {
	path string
}

func NewFileStateManager(path string) StateManager {
	return &fileStateManager{path: path}
}

func (s *fileStateManager) read() (map[string]string, error) {
	cursors := map[string]string{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cursors, nil
		}
		return nil, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &cursors); err != nil {
		return nil, fmt.Errorf("failed to decode state file %s: %w", s.path, err)
	}
	return cursors, nil
}

func (s *fileStateManager) write(cursors map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	data, err := json.MarshalIndent(cursors, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", s.path, err)
	}
	return nil
}

func (s *fileStateManager) GetCursor(_ context.Context, walkKey string) (string, error) {
	cursors, err := s.read()
	if err != nil {
		return "", err
	}
	return cursors[walkKey], nil
}

func (s *fileStateManager) SetCursor(_ context.Context, walkKey, cursor string) error {
	cursors, err := s.read()
	if err != nil {
		return err
	}
	cursors[walkKey] = cursor
	return s.write(cursors)
}

func (s *fileStateManager) Clear(_ context.Context, walkKey string) error {
	cursors, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := cursors[walkKey]; !ok {
		return nil
	}
	delete(cursors, walkKey)
	return s.write(cursors)
}

type noopStateManager struct{}

// NewNoopStateManager returns a manager that never remembers anything.
func NewNoopStateManager() StateManager {
	return noopStateManager{}
}

func (noopStateManager) GetCursor(context.Context, string) (string, error) { return "", nil }
func (noopStateManager) SetCursor(context.Context, string, string) error   { return nil }
func (noopStateManager) Clear(context.Context, string) error               { return nil }
