// Package store keeps the startup cache: the last device list and the last
// confirmed state of each accessory, so the bridge can come up before the
// cloud answers.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/brutella/hap/log"
	"github.com/go-redis/redis/v8"
)

var ErrNotFound = errors.New("no cached item")

// Store is a JSON key-value store
type Store interface {
	// GetItem decodes the value stored under key into v
	GetItem(ctx context.Context, key string, v any) error
	SetItem(ctx context.Context, key string, v any) error
}

// FileStore keeps one JSON file per key in a directory
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) path(key string) string {
	safe := strings.NewReplacer("/", "_", string(os.PathSeparator), "_").Replace(key)
	return filepath.Join(fs.dir, safe+".json")
}

func (fs *FileStore) GetItem(_ context.Context, key string, v any) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	raw, err := os.ReadFile(fs.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("cache %s: %w", key, err)
	}
	return nil
}

func (fs *FileStore) SetItem(_ context.Context, key string, v any) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fp := fs.path(key)
	tmp := fp + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		log.Info.Printf("unable to open cache file: %s", err.Error())
		return err
	}

	if err := json.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		log.Info.Printf("unable to encode %s: %s", key, err.Error())
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, fp)
}

// RedisStore keeps each key as a JSON string under a common prefix
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// DialRedis connects and checks the server answers
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisStore) GetItem(ctx context.Context, key string, v any) error {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(val, v); err != nil {
		return fmt.Errorf("cache %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) SetItem(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, raw, 0).Err()
}
