package repositories

import (
	"fmt"
	"time"

	"github.com/desertthunder/synoplay/internal/shared"
	"go.etcd.io/bbolt"
)

var sessionBucket = []byte("session")

// BoltCache implements [models.SessionStore] on a bbolt file.
type BoltCache struct {
	db *bbolt.DB
}

// NewBoltCache opens (or creates) the bbolt file at path and ensures the session bucket exists.
func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create session bucket: %w", err)
	}

	return &BoltCache{db: db}, nil
}

func (b *BoltCache) Get(key string) (string, error) {
	var (
		value string
		found bool
	)
	err := b.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(sessionBucket).Get([]byte(key)); v != nil {
			value, found = string(v), true
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to read cache: %w", err)
	}
	if !found {
		return "", fmt.Errorf("%w: %s", shared.ErrCacheMiss, key)
	}
	return value, nil
}

func (b *BoltCache) Set(key, value string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Put([]byte(key), []byte(value))
	})
}

func (b *BoltCache) Remove(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete([]byte(key))
	})
}

func (b *BoltCache) Clear() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(sessionBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(sessionBucket)
		return err
	})
}

func (b *BoltCache) Close() error {
	return b.db.Close()
}
