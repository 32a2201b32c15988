package repositories

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/desertthunder/synoplay/internal/models"
	"github.com/desertthunder/synoplay/internal/shared"
)

var (
	_ models.SessionStore = (*SQLiteCache)(nil)
	_ models.SessionStore = (*BoltCache)(nil)
	_ models.SessionStore = (*MemoryCache)(nil)
)

// Store is a [models.SessionStore] that owns resources needing release.
type Store interface {
	models.SessionStore
	Close() error
}

// OpenStore opens the session cache backend selected by config.
func OpenStore(config *shared.Config) (Store, error) {
	switch config.Cache.Driver {
	case "sqlite":
		db, err := shared.OpenDatabase(config.Database)
		if err != nil {
			return nil, err
		}
		return NewSQLiteCache(db), nil
	case "bolt":
		return NewBoltCache(config.Cache.BoltPath)
	case "memory":
		return NewMemoryCache(), nil
	default:
		return nil, fmt.Errorf("%w: unknown cache driver %q", shared.ErrInvalidConfig, config.Cache.Driver)
	}
}

// MemoryCache implements [models.SessionStore] with a mutex-guarded map.
type MemoryCache struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryCache creates an empty [MemoryCache].
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{values: make(map[string]string)}
}

func (m *MemoryCache) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrCacheMiss, key)
	}
	return v, nil
}

func (m *MemoryCache) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryCache) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryCache) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]string)
	return nil
}

func (m *MemoryCache) Close() error { return nil }

// SQLiteCache implements [models.SessionStore] on the session_cache table.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache creates a new [SQLiteCache] with the given, already migrated, database connection
func NewSQLiteCache(db *sql.DB) *SQLiteCache {
	return &SQLiteCache{db: db}
}

// Get reads the value stored under key
func (r *SQLiteCache) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM session_cache WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", shared.ErrCacheMiss, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query cache: %w", err)
	}
	return value, nil
}

// Set inserts or replaces the value stored under key
func (r *SQLiteCache) Set(key, value string) error {
	query := `
		INSERT INTO session_cache (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Remove deletes the value stored under key
func (r *SQLiteCache) Remove(key string) error {
	if _, err := r.db.Exec("DELETE FROM session_cache WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Clear deletes every cached value
func (r *SQLiteCache) Clear() error {
	if _, err := r.db.Exec("DELETE FROM session_cache"); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (r *SQLiteCache) Close() error {
	return r.db.Close()
}
