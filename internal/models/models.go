package models

import (
	"encoding/json"
	"fmt"
)

// Cache keys for the two persisted session values.
const (
	CacheKeySID = "syno_sid"
	CacheKeyURL = "syno_url"
)

// UnknownArtist is used when a song carries no artist tag.
const UnknownArtist = "unknown"

// Song represents a track from the Audio Station library.
type Song struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	AlbumArtist string `json:"album_artist,omitempty"`
	Duration    int    `json:"duration"` // Duration in seconds
	Path        string `json:"path,omitempty"`
	Track       int    `json:"track,omitempty"`
	Disc        int    `json:"disc,omitempty"`
	Year        int    `json:"year,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Codec       string `json:"codec,omitempty"`
	Bitrate     int    `json:"bitrate,omitempty"`
}

// Album represents an album entry from the Audio Station album browser.
type Album struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Year   int    `json:"year,omitempty"`
}

// String renders the album as "Name" by Artist.
func (a Album) String() string {
	if a.Artist == "" {
		return fmt.Sprintf("%q", a.Name)
	}
	return fmt.Sprintf("%q by %s", a.Name, a.Artist)
}

// AlbumExport bundles an album with its tracklist for file export.
type AlbumExport struct {
	Album    Album  `json:"album"`
	Songs    []Song `json:"songs"`
	CoverURL string `json:"-"`
}

// Duration returns the summed song durations in seconds.
func (e AlbumExport) Duration() int {
	total := 0
	for _, s := range e.Songs {
		total += s.Duration
	}
	return total
}

// Session pairs a normalized endpoint with the session id it issued.
type Session struct {
	BaseURL string `json:"base_url"`
	SID     string `json:"sid,omitempty"`
}

// Authenticated reports whether the session can authorize requests.
func (s Session) Authenticated() bool {
	return s.BaseURL != "" && s.SID != ""
}

// AuthResult is the decoded payload of a successful login.
type AuthResult struct {
	SID string          `json:"sid"`
	Raw json.RawMessage `json:"-"`
}

// SessionStore is the external cache for the persisted session values.
//
// Get returns shared.ErrCacheMiss when the key is absent.
type SessionStore interface {
	Get(key string) (string, error) // Get reads a value
	Set(key, value string) error    // Set writes or replaces a value
	Remove(key string) error        // Remove deletes a value; removing a missing key is not an error
	Clear() error                   // Clear deletes every value
}
