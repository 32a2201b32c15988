// Package repositories implements the persisted session cache ([models.SessionStore]).
//
// Three backends are available, selected by the [cache] driver config key:
//   - [SQLiteCache] : key/value rows in the migrated session_cache table
//   - [BoltCache] : a single bbolt bucket in its own file
//   - [MemoryCache] : an in-process map, nothing survives a restart
//
// Only two keys are ever written (models.CacheKeyURL and models.CacheKeySID), but the stores are generic key/value maps.
package repositories
