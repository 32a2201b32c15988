// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/synoplay/internal/models"
	"github.com/desertthunder/synoplay/internal/shared"
)

// NASStub is an httptest server that answers Synology web API calls.
//
// Handlers are keyed by "api.method" (e.g. "SYNO.API.Auth.login"). Unregistered calls answer
// with {"success": false, "error": {"code": 103}}.
type NASStub struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []url.Values
}

// NewNASStub starts a stub and registers t.Cleanup to close it.
func NewNASStub(t *testing.T) *NASStub {
	t.Helper()

	stub := &NASStub{handlers: make(map[string]http.HandlerFunc)}
	stub.Server = httptest.NewServer(http.HandlerFunc(stub.serve))
	t.Cleanup(stub.Close)
	return stub
}

func (s *NASStub) serve(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	key := query.Get("api") + "." + query.Get("method")

	s.mu.Lock()
	s.requests = append(s.requests, query)
	handler, ok := s.handlers[key]
	s.mu.Unlock()

	if !ok {
		WriteFailure(w, 103)
		return
	}
	handler(w, r)
}

// Handle registers a handler for api.method.
func (s *NASStub) Handle(api, method string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[api+"."+method] = h
}

// Succeed registers a handler that always answers with data.
func (s *NASStub) Succeed(api, method string, data any) {
	s.Handle(api, method, func(w http.ResponseWriter, _ *http.Request) { WriteSuccess(w, data) })
}

// Fail registers a handler that always answers with a remote error code.
func (s *NASStub) Fail(api, method string, code int) {
	s.Handle(api, method, func(w http.ResponseWriter, _ *http.Request) { WriteFailure(w, code) })
}

// Requests returns the query of every request received so far.
func (s *NASStub) Requests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.requests...)
}

// LastRequest returns the query of the most recent request, or nil.
func (s *NASStub) LastRequest() url.Values {
	requests := s.Requests()
	if len(requests) == 0 {
		return nil
	}
	return requests[len(requests)-1]
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

// WriteFailure writes a failure envelope carrying code.
func WriteFailure(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": map[string]int{"code": code}})
}

// SongPayload builds a song record the way SYNO.AudioStation.Song returns it.
func SongPayload(id, title, artist, album string, duration int) map[string]any {
	return map[string]any{
		"id":    id,
		"title": title,
		"path":  fmt.Sprintf("/music/%s/%s.flac", album, title),
		"type":  "file",
		"additional": map[string]any{
			"song_tag":   map[string]any{"artist": artist, "album": album, "album_artist": artist, "track": 1, "disc": 1},
			"song_audio": map[string]any{"duration": duration, "codec": "flac", "bitrate": 1411000},
		},
	}
}

// MockLibrary is a test double for services.Library
type MockLibrary struct {
	mu sync.Mutex

	Endpoint   string
	SID        string
	Songs      []models.Song
	Albums     []models.Album
	AlbumSongs map[string][]models.Song
	AlbumErrs  map[string]error // per-album ListAlbumSongs failures
	Err        error            // returned by every fallible call when set
	LoginErr   error
	CallData   json.RawMessage // returned by Call

	LoginCalls  int
	LogoutCalls int
}

func (m *MockLibrary) SetEndpoint(raw string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Endpoint = raw
	return raw
}

func (m *MockLibrary) Login(ctx context.Context, username, password string) (*models.AuthResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoginCalls++
	if m.LoginErr != nil {
		return nil, m.LoginErr
	}
	m.SID = "MOCKSID"
	return &models.AuthResult{SID: m.SID}, nil
}

func (m *MockLibrary) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LogoutCalls++
	m.SID = ""
}

func (m *MockLibrary) ListSongs(ctx context.Context, offset, limit int) ([]models.Song, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if offset >= len(m.Songs) {
		return []models.Song{}, nil
	}
	return m.Songs[offset:min(offset+limit, len(m.Songs))], nil
}

func (m *MockLibrary) ListAlbums(ctx context.Context, offset, limit int) ([]models.Album, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if offset >= len(m.Albums) {
		return []models.Album{}, nil
	}
	return m.Albums[offset:min(offset+limit, len(m.Albums))], nil
}

func (m *MockLibrary) ListAlbumSongs(ctx context.Context, album models.Album) ([]models.Song, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if err := m.AlbumErrs[album.Name]; err != nil {
		return nil, err
	}
	return m.AlbumSongs[album.Name], nil
}

func (m *MockLibrary) StreamURL(songID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SID == "" {
		return "", shared.ErrMalformedRequest
	}
	return fmt.Sprintf("%swebapi/AudioStation/stream.cgi?id=%s&_sid=%s", m.Endpoint, url.QueryEscape(songID), m.SID), nil
}

func (m *MockLibrary) CoverURL(album models.Album) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SID == "" {
		return "", shared.ErrMalformedRequest
	}
	return fmt.Sprintf("%swebapi/AudioStation/cover.cgi?album_name=%s&_sid=%s", m.Endpoint, url.QueryEscape(album.Name), m.SID), nil
}

func (m *MockLibrary) Session() models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.Session{BaseURL: m.Endpoint, SID: m.SID}
}

func (m *MockLibrary) Call(ctx context.Context, cgiPath, api, method string, version int, params map[string]string) (json.RawMessage, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.CallData, nil
}

// MockPlayer records the URLs it was asked to play
type MockPlayer struct {
	mu      sync.Mutex
	Played  []string
	Stopped int
	Err     error
}

func (m *MockPlayer) Play(ctx context.Context, streamURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Played = append(m.Played, streamURL)
	return nil
}

func (m *MockPlayer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stopped++
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
