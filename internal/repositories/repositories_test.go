package repositories

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/desertthunder/synoplay/internal/models"
	"github.com/desertthunder/synoplay/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *SQLiteCache {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	return NewSQLiteCache(db)
}

func setupBolt(t *testing.T) *BoltCache {
	t.Helper()

	store, err := NewBoltCache(filepath.Join(t.TempDir(), "session.bolt"))
	if err != nil {
		t.Fatalf("failed to open bolt cache: %v", err)
	}
	return store
}

// exerciseStore runs the shared [models.SessionStore] contract against a backend.
func exerciseStore(t *testing.T, store Store) {
	t.Run("missing key", func(t *testing.T) {
		_, err := store.Get(models.CacheKeySID)
		if !errors.Is(err, shared.ErrCacheMiss) {
			t.Errorf("expected ErrCacheMiss, got %v", err)
		}
	})

	t.Run("set and get", func(t *testing.T) {
		if err := store.Set(models.CacheKeySID, "ABC123"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := store.Set(models.CacheKeyURL, "http://nas:5000/"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}

		got, err := store.Get(models.CacheKeySID)
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got != "ABC123" {
			t.Errorf("expected ABC123, got %s", got)
		}
	})

	t.Run("set replaces", func(t *testing.T) {
		if err := store.Set(models.CacheKeySID, "XYZ789"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if got, _ := store.Get(models.CacheKeySID); got != "XYZ789" {
			t.Errorf("expected XYZ789, got %s", got)
		}
	})

	t.Run("empty value is stored", func(t *testing.T) {
		if err := store.Set("empty", ""); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		got, err := store.Get("empty")
		if err != nil {
			t.Fatalf("expected empty value to be found, got %v", err)
		}
		if got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})

	t.Run("remove keeps other keys", func(t *testing.T) {
		if err := store.Remove(models.CacheKeySID); err != nil {
			t.Fatalf("failed to remove: %v", err)
		}
		if _, err := store.Get(models.CacheKeySID); !errors.Is(err, shared.ErrCacheMiss) {
			t.Errorf("expected removed key to miss, got %v", err)
		}
		if got, err := store.Get(models.CacheKeyURL); err != nil || got != "http://nas:5000/" {
			t.Errorf("expected url to survive, got %q (%v)", got, err)
		}
	})

	t.Run("remove missing key", func(t *testing.T) {
		if err := store.Remove("never-set"); err != nil {
			t.Errorf("expected no error removing missing key, got %v", err)
		}
	})

	t.Run("clear", func(t *testing.T) {
		if err := store.Clear(); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if _, err := store.Get(models.CacheKeyURL); !errors.Is(err, shared.ErrCacheMiss) {
			t.Errorf("expected cleared key to miss, got %v", err)
		}
	})
}

func TestSQLiteCache(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()
	exerciseStore(t, store)
}

func TestBoltCache(t *testing.T) {
	store := setupBolt(t)
	defer store.Close()
	exerciseStore(t, store)

	t.Run("values survive reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reopen.bolt")
		first, err := NewBoltCache(path)
		if err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		if err := first.Set(models.CacheKeySID, "ABC123"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		first.Close()

		second, err := NewBoltCache(path)
		if err != nil {
			t.Fatalf("failed to reopen: %v", err)
		}
		defer second.Close()

		if got, err := second.Get(models.CacheKeySID); err != nil || got != "ABC123" {
			t.Errorf("expected persisted sid, got %q (%v)", got, err)
		}
	})
}

func TestMemoryCache(t *testing.T) {
	exerciseStore(t, NewMemoryCache())
}

func TestOpenStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Cache.Driver = "memory"

		store, err := OpenStore(config)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer store.Close()

		if _, ok := store.(*MemoryCache); !ok {
			t.Errorf("expected *MemoryCache, got %T", store)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "synoplay.db")

		store, err := OpenStore(config)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer store.Close()

		if _, ok := store.(*SQLiteCache); !ok {
			t.Errorf("expected *SQLiteCache, got %T", store)
		}
	})

	t.Run("bolt", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Cache.Driver = "bolt"
		config.Cache.BoltPath = filepath.Join(t.TempDir(), "synoplay.bolt")

		store, err := OpenStore(config)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer store.Close()

		if _, ok := store.(*BoltCache); !ok {
			t.Errorf("expected *BoltCache, got %T", store)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Cache.Driver = "redis"

		if _, err := OpenStore(config); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
