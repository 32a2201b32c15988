package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/synoplay/internal/models"
	"github.com/desertthunder/synoplay/internal/repositories"
	"github.com/desertthunder/synoplay/internal/shared"
	tu "github.com/desertthunder/synoplay/internal/testing"
)

func newTestClient(t *testing.T, stub *tu.NASStub) (*Client, *repositories.MemoryCache) {
	t.Helper()

	store := repositories.NewMemoryCache()
	logger := shared.NewLogger(nil)
	logger.SetLevel(log.FatalLevel)

	client := NewClient(ClientOpts{Store: store, Logger: logger, Timeout: 2 * time.Second})
	if stub != nil {
		client.SetEndpoint(stub.URL)
	}
	return client, store
}

func loggedIn(t *testing.T, stub *tu.NASStub, sid string) (*Client, *repositories.MemoryCache) {
	t.Helper()

	stub.Succeed(authAPI, "login", map[string]string{"sid": sid})
	client, store := newTestClient(t, stub)
	if _, err := client.Login(context.Background(), "admin", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return client, store
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"adds missing slash", "http://nas:5000", "http://nas:5000/"},
		{"keeps single slash", "http://nas:5000/", "http://nas:5000/"},
		{"collapses repeated slashes", "http://nas:5000///", "http://nas:5000/"},
		{"trims whitespace", "  http://nas:5000 \n", "http://nas:5000/"},
		{"keeps path", "https://nas.example.com/audio", "https://nas.example.com/audio/"},
		{"empty stays empty", "", ""},
		{"blank stays empty", "   ", ""},
		{"bare slashes stay empty", " // ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeEndpoint(tt.in)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if again := NormalizeEndpoint(got); again != got {
				t.Errorf("expected normalization to be idempotent, got %q then %q", got, again)
			}
			if strings.HasSuffix(got, "//") {
				t.Errorf("expected exactly one trailing slash, got %q", got)
			}
		})
	}
}

func TestClient(t *testing.T) {
	t.Run("SetEndpoint", func(t *testing.T) {
		t.Run("returns normalized endpoint", func(t *testing.T) {
			client, _ := newTestClient(t, nil)
			if got := client.SetEndpoint("http://nas:5000"); got != "http://nas:5000/" {
				t.Errorf("expected normalized endpoint, got %q", got)
			}
			if client.Session().BaseURL != "http://nas:5000/" {
				t.Errorf("expected endpoint to be stored, got %q", client.Session().BaseURL)
			}
		})

		t.Run("changing endpoint drops sid", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			client, _ := loggedIn(t, stub, "ABC123")

			client.SetEndpoint(stub.URL + "/")
			if client.Session().SID != "ABC123" {
				t.Error("expected sid to survive re-setting the same endpoint")
			}

			client.SetEndpoint("http://other-nas:5000")
			if client.Session().SID != "" {
				t.Error("expected sid to be dropped for a different endpoint")
			}
		})

		t.Run("blank endpoint stays unset", func(t *testing.T) {
			client, _ := newTestClient(t, nil)

			if got := client.SetEndpoint("   "); got != "" {
				t.Errorf("expected empty endpoint, got %q", got)
			}
			if _, err := client.Login(context.Background(), "admin", "secret"); !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("success stores session and cache", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			client, store := loggedIn(t, stub, "ABC123")

			if got := client.Session().SID; got != "ABC123" {
				t.Errorf("expected sid ABC123, got %q", got)
			}
			if got, _ := store.Get(models.CacheKeySID); got != "ABC123" {
				t.Errorf("expected cached sid ABC123, got %q", got)
			}
			if got, _ := store.Get(models.CacheKeyURL); got != stub.URL+"/" {
				t.Errorf("expected cached url %q, got %q", stub.URL+"/", got)
			}
		})

		t.Run("sends auth parameters", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			loggedIn(t, stub, "ABC123")

			q := stub.LastRequest()
			expected := map[string]string{
				"api":     "SYNO.API.Auth",
				"version": "3",
				"method":  "login",
				"account": "admin",
				"passwd":  "secret",
				"session": "AudioStation",
				"format":  "sid",
			}
			for k, v := range expected {
				if q.Get(k) != v {
					t.Errorf("expected %s=%s, got %q", k, v, q.Get(k))
				}
			}
			if q.Has("_sid") {
				t.Error("expected login to be sent without _sid")
			}
		})

		t.Run("returns raw payload", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			stub.Succeed(authAPI, "login", map[string]any{"sid": "ABC123", "is_portal_port": false})
			client, _ := newTestClient(t, stub)

			result, err := client.Login(context.Background(), "admin", "secret")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.SID != "ABC123" {
				t.Errorf("expected sid ABC123, got %q", result.SID)
			}
			if !strings.Contains(string(result.Raw), "is_portal_port") {
				t.Errorf("expected raw payload to be kept, got %s", result.Raw)
			}
		})

		t.Run("bad credentials", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			stub.Fail(authAPI, "login", 400)
			client, store := newTestClient(t, stub)

			_, err := client.Login(context.Background(), "admin", "wrong")
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Fatalf("expected ErrAuthFailed, got %v", err)
			}
			if errors.Is(err, shared.ErrTwoFactorRequired) {
				t.Error("expected code 400 not to be a two-factor error")
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.Code != 400 || apiErr.Message() != "No such account or password" {
				t.Errorf("unexpected api error: %d %q", apiErr.Code, apiErr.Message())
			}
			if !strings.Contains(err.Error(), "No such account or password") {
				t.Errorf("expected message in error, got %q", err.Error())
			}
			if client.Session().SID != "" {
				t.Error("expected session to remain unset")
			}
			if _, err := store.Get(models.CacheKeySID); !errors.Is(err, shared.ErrCacheMiss) {
				t.Error("expected nothing to be cached")
			}
		})

		t.Run("failure keeps previous session", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			client, store := loggedIn(t, stub, "ABC123")

			stub.Fail(authAPI, "login", 401)
			if _, err := client.Login(context.Background(), "admin", "secret"); !errors.Is(err, shared.ErrAuthFailed) {
				t.Fatalf("expected ErrAuthFailed, got %v", err)
			}
			if client.Session().SID != "ABC123" {
				t.Error("expected previous sid to be kept")
			}
			if got, _ := store.Get(models.CacheKeySID); got != "ABC123" {
				t.Errorf("expected cached sid to be kept, got %q", got)
			}
		})

		t.Run("failure at new endpoint restores previous session", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			client, store := loggedIn(t, stub, "ABC123")
			oldURL := stub.URL + "/"

			other := tu.NewNASStub(t)
			other.Fail(authAPI, "login", 400)

			client.SetEndpoint(other.URL)
			if _, err := client.Login(context.Background(), "admin", "wrong"); !errors.Is(err, shared.ErrAuthFailed) {
				t.Fatalf("expected ErrAuthFailed, got %v", err)
			}

			session := client.Session()
			if session.BaseURL != oldURL || session.SID != "ABC123" {
				t.Errorf("expected previous session %q/ABC123, got %q/%q", oldURL, session.BaseURL, session.SID)
			}
			if got, _ := store.Get(models.CacheKeyURL); got != oldURL {
				t.Errorf("expected cached url %q, got %q", oldURL, got)
			}
			if got, _ := store.Get(models.CacheKeySID); got != "ABC123" {
				t.Errorf("expected cached sid ABC123, got %q", got)
			}

			stub.Succeed(songAPI, "list", map[string]any{"songs": []any{}})
			if _, err := client.ListSongs(context.Background(), 0, 10); err != nil {
				t.Errorf("expected restored session to keep working, got %v", err)
			}
			if got := stub.LastRequest().Get("_sid"); got != "ABC123" {
				t.Errorf("expected restored sid on request, got %q", got)
			}
		})

		t.Run("success at new endpoint replaces session", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			client, store := loggedIn(t, stub, "ABC123")

			other := tu.NewNASStub(t)
			other.Succeed(authAPI, "login", map[string]string{"sid": "XYZ789"})

			client.SetEndpoint(other.URL)
			if _, err := client.Login(context.Background(), "admin", "secret"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			// a later failure must not resurrect the first NAS
			other.Fail(authAPI, "login", 400)
			client.Login(context.Background(), "admin", "wrong")

			session := client.Session()
			if session.BaseURL != other.URL+"/" || session.SID != "XYZ789" {
				t.Errorf("expected new session, got %q/%q", session.BaseURL, session.SID)
			}
			if got, _ := store.Get(models.CacheKeyURL); got != other.URL+"/" {
				t.Errorf("expected cached url %q, got %q", other.URL+"/", got)
			}
		})

		t.Run("transport failure hides credentials", func(t *testing.T) {
			var logs strings.Builder
			logger := shared.NewLogger(&logs)
			logger.SetLevel(log.DebugLevel)

			client := NewClient(ClientOpts{
				Endpoint:   "http://nas:5000",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))},
				Logger:     logger,
			})

			_, err := client.Login(context.Background(), "admin", "hunter2-secret")
			if !errors.Is(err, shared.ErrNetwork) {
				t.Fatalf("expected ErrNetwork, got %v", err)
			}
			for _, leak := range []string{"hunter2-secret", "passwd"} {
				if strings.Contains(err.Error(), leak) {
					t.Errorf("expected error not to contain %q, got %q", leak, err.Error())
				}
				if strings.Contains(logs.String(), leak) {
					t.Errorf("expected logs not to contain %q, got %q", leak, logs.String())
				}
			}
			if !strings.Contains(err.Error(), "auth.cgi") {
				t.Errorf("expected error to keep the request path, got %q", err.Error())
			}
		})

		t.Run("two-step verification", func(t *testing.T) {
			for _, code := range []int{403, 404} {
				stub := tu.NewNASStub(t)
				stub.Fail(authAPI, "login", code)
				client, _ := newTestClient(t, stub)

				_, err := client.Login(context.Background(), "admin", "secret")
				if !errors.Is(err, shared.ErrTwoFactorRequired) {
					t.Errorf("code %d: expected ErrTwoFactorRequired, got %v", code, err)
				}
				if !errors.Is(err, shared.ErrAuthFailed) {
					t.Errorf("code %d: expected two-factor error to also be ErrAuthFailed", code)
				}
			}
		})

		t.Run("unmapped code", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			stub.Fail(authAPI, "login", 407)
			client, _ := newTestClient(t, stub)

			_, err := client.Login(context.Background(), "admin", "secret")
			if err == nil || !strings.Contains(err.Error(), "error code 407") {
				t.Errorf("expected generic code message, got %v", err)
			}
		})

		t.Run("empty sid", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			stub.Succeed(authAPI, "login", map[string]string{})
			client, _ := newTestClient(t, stub)

			if _, err := client.Login(context.Background(), "admin", "secret"); !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
		})

		t.Run("no endpoint", func(t *testing.T) {
			client, _ := newTestClient(t, nil)
			if _, err := client.Login(context.Background(), "admin", "secret"); !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})
	})

	t.Run("StreamURL", func(t *testing.T) {
		t.Run("before login", func(t *testing.T) {
			client, _ := newTestClient(t, nil)
			client.SetEndpoint("http://nas:5000")

			if _, err := client.StreamURL("42"); !errors.Is(err, shared.ErrMalformedRequest) {
				t.Errorf("expected ErrMalformedRequest, got %v", err)
			}
		})

		t.Run("after login", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			client, _ := loggedIn(t, stub, "ABC123")
			before := len(stub.Requests())

			got, err := client.StreamURL("42")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			for _, want := range []string{"id=42", "_sid=ABC123", "api=SYNO.AudioStation.Stream", "method=stream", "version=2"} {
				if !strings.Contains(got, want) {
					t.Errorf("expected %q in %s", want, got)
				}
			}
			if !strings.HasPrefix(got, stub.URL+"/webapi/AudioStation/stream.cgi?") {
				t.Errorf("unexpected stream url %s", got)
			}
			if len(stub.Requests()) != before {
				t.Error("expected StreamURL to perform no I/O")
			}
		})

		t.Run("escapes song id", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			client, _ := loggedIn(t, stub, "ABC123")

			got, _ := client.StreamURL("music_1&x=2")
			u, err := url.Parse(got)
			if err != nil {
				t.Fatalf("failed to parse url: %v", err)
			}
			if u.Query().Get("id") != "music_1&x=2" {
				t.Errorf("expected escaped id, got %q", u.Query().Get("id"))
			}
		})
	})

	t.Run("CoverURL", func(t *testing.T) {
		stub := tu.NewNASStub(t)
		client, _ := newTestClient(t, stub)
		album := models.Album{Name: "Discovery", Artist: "Daft Punk"}

		if _, err := client.CoverURL(album); !errors.Is(err, shared.ErrMalformedRequest) {
			t.Errorf("expected ErrMalformedRequest before login, got %v", err)
		}

		client, _ = loggedIn(t, stub, "ABC123")
		got, err := client.CoverURL(album)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		u, _ := url.Parse(got)
		q := u.Query()
		if u.Path != "/webapi/AudioStation/cover.cgi" {
			t.Errorf("unexpected path %s", u.Path)
		}
		if q.Get("album_name") != "Discovery" || q.Get("album_artist_name") != "Daft Punk" {
			t.Errorf("unexpected album params: %v", q)
		}
		if q.Get("method") != "getcover" || q.Get("library") != "all" || q.Get("_sid") != "ABC123" {
			t.Errorf("unexpected cover params: %v", q)
		}
	})

	t.Run("ListSongs", func(t *testing.T) {
		songs := []map[string]any{
			tu.SongPayload("music_3", "Zeta", "Artist C", "Album C", 185),
			tu.SongPayload("music_1", "Alpha", "Artist A", "Album A", 61),
			tu.SongPayload("music_2", "Mid", "Artist B", "Album B", 0),
		}

		t.Run("preserves order and fields", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			stub.Succeed(songAPI, "list", map[string]any{"offset": 0, "total": 3, "songs": songs})
			client, _ := loggedIn(t, stub, "ABC123")

			got, err := client.ListSongs(context.Background(), 0, 100)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("expected 3 songs, got %d", len(got))
			}

			expected := []models.Song{
				{ID: "music_3", Title: "Zeta", Artist: "Artist C", Album: "Album C", Duration: 185},
				{ID: "music_1", Title: "Alpha", Artist: "Artist A", Album: "Album A", Duration: 61},
				{ID: "music_2", Title: "Mid", Artist: "Artist B", Album: "Album B", Duration: 0},
			}
			for i, want := range expected {
				g := got[i]
				if g.ID != want.ID || g.Title != want.Title || g.Artist != want.Artist || g.Album != want.Album || g.Duration != want.Duration {
					t.Errorf("song %d: expected %+v, got %+v", i, want, g)
				}
			}
			if got[0].Codec != "flac" || got[0].Path == "" {
				t.Errorf("expected audio and path metadata, got %+v", got[0])
			}
		})

		t.Run("sends paging parameters with sid", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			stub.Succeed(songAPI, "list", map[string]any{"songs": []any{}})
			client, _ := loggedIn(t, stub, "ABC123")

			if _, err := client.ListSongs(context.Background(), 200, 50); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			q := stub.LastRequest()
			if q.Get("offset") != "200" || q.Get("limit") != "50" {
				t.Errorf("unexpected paging: %v", q)
			}
			if q.Get("additional") != "song_tag,song_audio,path" || q.Get("version") != "1" {
				t.Errorf("unexpected list params: %v", q)
			}
			if q.Get("_sid") != "ABC123" {
				t.Errorf("expected _sid ABC123, got %q", q.Get("_sid"))
			}
		})

		t.Run("missing artist defaults to unknown", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			stub.Succeed(songAPI, "list", map[string]any{"songs": []any{
				map[string]any{"id": "music_9", "title": "Untagged"},
			}})
			client, _ := loggedIn(t, stub, "ABC123")

			got, err := client.ListSongs(context.Background(), 0, 10)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got[0].Artist != models.UnknownArtist {
				t.Errorf("expected %q, got %q", models.UnknownArtist, got[0].Artist)
			}
		})

		t.Run("numeric ids", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			stub.Succeed(songAPI, "list", map[string]any{"songs": []any{
				map[string]any{"id": 42, "title": "Numbered"},
				map[string]any{"id": "music_7", "title": "Named"},
			}})
			client, _ := loggedIn(t, stub, "ABC123")

			got, err := client.ListSongs(context.Background(), 0, 10)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(got) != 2 || got[0].ID != "42" || got[1].ID != "music_7" {
				t.Errorf("expected ids 42 and music_7, got %+v", got)
			}

			stream, err := client.StreamURL(got[0].ID)
			if err != nil || !strings.Contains(stream, "id=42") {
				t.Errorf("expected stream url for id 42, got %q (%v)", stream, err)
			}
		})

		t.Run("invalid paging", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			client, _ := newTestClient(t, stub)

			for _, page := range [][2]int{{-1, 10}, {0, 0}, {0, -5}} {
				if _, err := client.ListSongs(context.Background(), page[0], page[1]); !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("offset %d limit %d: expected ErrInvalidArgument, got %v", page[0], page[1], err)
				}
			}
			if len(stub.Requests()) != 0 {
				t.Error("expected no requests for invalid paging")
			}
		})

		t.Run("without session surfaces remote rejection", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			stub.Fail(songAPI, "list", 119)
			client, _ := newTestClient(t, stub)

			_, err := client.ListSongs(context.Background(), 0, 100)
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Fatalf("expected ErrNotAuthenticated, got %v", err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Code != 119 {
				t.Errorf("expected remote code 119, got %v", err)
			}
			if stub.LastRequest().Has("_sid") {
				t.Error("expected request without _sid")
			}
		})

		t.Run("expired session is dropped", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			client, store := loggedIn(t, stub, "ABC123")
			stub.Fail(songAPI, "list", 106)

			_, err := client.ListSongs(context.Background(), 0, 100)
			if !errors.Is(err, shared.ErrSessionExpired) {
				t.Fatalf("expected ErrSessionExpired, got %v", err)
			}
			if client.Session().SID != "" {
				t.Error("expected sid to be dropped")
			}
			if _, err := store.Get(models.CacheKeySID); !errors.Is(err, shared.ErrCacheMiss) {
				t.Error("expected cached sid to be removed")
			}
			if _, err := store.Get(models.CacheKeyURL); !errors.Is(err, shared.ErrCacheMiss) {
				t.Error("expected cached url to be removed")
			}
			if client.Session().BaseURL == "" {
				t.Error("expected endpoint to be kept in memory")
			}
		})

		t.Run("other remote error", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			client, _ := loggedIn(t, stub, "ABC123")
			stub.Fail(songAPI, "list", 101)

			_, err := client.ListSongs(context.Background(), 0, 100)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Fatalf("expected ErrAPIRequest, got %v", err)
			}
			if client.Session().SID != "ABC123" {
				t.Error("expected session to be kept")
			}
		})
	})

	t.Run("ListAlbums", func(t *testing.T) {
		stub := tu.NewNASStub(t)
		stub.Succeed(albumAPI, "list", map[string]any{"albums": []any{
			map[string]any{"name": "Discovery", "album_artist": "Daft Punk", "year": 2001},
			map[string]any{"name": "Kid A", "artist": "Radiohead", "year": 2000},
			map[string]any{"name": "Selected", "display_artist": "Various"},
		}})
		client, _ := loggedIn(t, stub, "ABC123")

		got, err := client.ListAlbums(context.Background(), 0, 20)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		expected := []models.Album{
			{Name: "Discovery", Artist: "Daft Punk", Year: 2001},
			{Name: "Kid A", Artist: "Radiohead", Year: 2000},
			{Name: "Selected", Artist: "Various"},
		}
		if len(got) != len(expected) {
			t.Fatalf("expected %d albums, got %d", len(expected), len(got))
		}
		for i := range expected {
			if got[i] != expected[i] {
				t.Errorf("album %d: expected %+v, got %+v", i, expected[i], got[i])
			}
		}

		q := stub.LastRequest()
		if q.Get("version") != "3" || q.Get("library") != "all" || q.Get("limit") != "20" {
			t.Errorf("unexpected album params: %v", q)
		}

		if _, err := client.ListAlbums(context.Background(), -1, 20); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("ListAlbumSongs", func(t *testing.T) {
		stub := tu.NewNASStub(t)
		stub.Succeed(songAPI, "list", map[string]any{"songs": []any{
			tu.SongPayload("music_1", "One More Time", "Daft Punk", "Discovery", 320),
		}})
		client, _ := loggedIn(t, stub, "ABC123")

		got, err := client.ListAlbumSongs(context.Background(), models.Album{Name: "Discovery", Artist: "Daft Punk"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 1 || got[0].Title != "One More Time" {
			t.Errorf("unexpected songs: %+v", got)
		}

		q := stub.LastRequest()
		if q.Get("album") != "Discovery" || q.Get("album_artist") != "Daft Punk" {
			t.Errorf("unexpected album filter: %v", q)
		}

		if _, err := client.ListAlbumSongs(context.Background(), models.Album{}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Transport", func(t *testing.T) {
		t.Run("timeout fails once with network error", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			stub.Handle(songAPI, "list", func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			})

			client := NewClient(ClientOpts{Endpoint: stub.URL, Timeout: 50 * time.Millisecond, Logger: shared.NewLogger(&strings.Builder{})})

			start := time.Now()
			_, err := client.ListSongs(context.Background(), 0, 100)
			if !errors.Is(err, shared.ErrNetwork) {
				t.Fatalf("expected ErrNetwork, got %v", err)
			}
			if !errors.Is(err, shared.ErrTimeout) {
				t.Errorf("expected ErrTimeout, got %v", err)
			}
			if elapsed := time.Since(start); elapsed > time.Second {
				t.Errorf("expected call to give up near the timeout, took %v", elapsed)
			}
			if n := len(stub.Requests()); n != 1 {
				t.Errorf("expected exactly one request, got %d", n)
			}
		})

		t.Run("non-2xx status", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			stub.Handle(songAPI, "list", func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad gateway", http.StatusBadGateway)
			})
			client, _ := newTestClient(t, stub)

			if _, err := client.ListSongs(context.Background(), 0, 100); !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
		})

		t.Run("undecodable body", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			stub.Handle(songAPI, "list", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("syno_cb_1({\"success\":true})"))
			})
			client, _ := newTestClient(t, stub)

			if _, err := client.ListSongs(context.Background(), 0, 100); !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
		})

		t.Run("connection failure", func(t *testing.T) {
			client := NewClient(ClientOpts{
				Endpoint:   "http://nas:5000",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))},
				Logger:     shared.NewLogger(&strings.Builder{}),
			})

			_, err := client.ListSongs(context.Background(), 0, 100)
			if !errors.Is(err, shared.ErrNetwork) {
				t.Fatalf("expected ErrNetwork, got %v", err)
			}
			if errors.Is(err, shared.ErrTimeout) {
				t.Error("expected plain connection failure not to be a timeout")
			}
		})

		t.Run("concurrent calls are independent", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			stub.Succeed(songAPI, "list", map[string]any{"songs": []any{tu.SongPayload("music_1", "A", "B", "C", 1)}})
			stub.Fail(albumAPI, "list", 101)
			client, _ := loggedIn(t, stub, "ABC123")

			errs := make(chan error, 20)
			for i := range 20 {
				go func() {
					var err error
					if i%2 == 0 {
						_, err = client.ListSongs(context.Background(), 0, 10)
					} else {
						_, err = client.ListAlbums(context.Background(), 0, 10)
						if errors.Is(err, shared.ErrAPIRequest) {
							err = nil
						}
					}
					errs <- err
				}()
			}
			for range 20 {
				if err := <-errs; err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})

		t.Run("rate limiter honours context", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			client := NewClient(ClientOpts{Endpoint: stub.URL, RequestsPerSecond: 1, Logger: shared.NewLogger(&strings.Builder{})})
			if client.limiter == nil {
				t.Fatal("expected limiter to be configured")
			}

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			if _, err := client.ListSongs(ctx, 0, 10); !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
			if len(stub.Requests()) != 0 {
				t.Error("expected cancelled call not to reach the NAS")
			}
		})
	})

	t.Run("Logout", func(t *testing.T) {
		cases := []struct {
			name    string
			handler http.HandlerFunc
		}{
			{"remote success", func(w http.ResponseWriter, r *http.Request) { tu.WriteSuccess(w, nil) }},
			{"remote failure", func(w http.ResponseWriter, r *http.Request) { tu.WriteFailure(w, 105) }},
			{"remote timeout", func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			}},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				stub := tu.NewNASStub(t)
				stub.Handle(authAPI, "logout", tc.handler)
				client, store := loggedIn(t, stub, "ABC123")
				client.timeout = 50 * time.Millisecond

				client.Logout(context.Background())

				if client.Session().SID != "" {
					t.Error("expected sid to be cleared")
				}
				if _, err := store.Get(models.CacheKeySID); !errors.Is(err, shared.ErrCacheMiss) {
					t.Error("expected cached sid to be removed")
				}
				if _, err := store.Get(models.CacheKeyURL); !errors.Is(err, shared.ErrCacheMiss) {
					t.Error("expected cached url to be removed")
				}

				q := stub.LastRequest()
				if q.Get("method") != "logout" || q.Get("_sid") != "ABC123" || q.Get("session") != "AudioStation" {
					t.Errorf("unexpected logout request: %v", q)
				}
			})
		}

		t.Run("without session makes no request", func(t *testing.T) {
			stub := tu.NewNASStub(t)
			client, _ := newTestClient(t, stub)

			client.Logout(context.Background())
			if len(stub.Requests()) != 0 {
				t.Error("expected no remote call without a session")
			}
		})
	})

	t.Run("Resume", func(t *testing.T) {
		t.Run("restores cached session", func(t *testing.T) {
			store := repositories.NewMemoryCache()
			store.Set(models.CacheKeyURL, "http://nas:5000")
			store.Set(models.CacheKeySID, "ABC123")

			client := NewClient(ClientOpts{Store: store, Logger: shared.NewLogger(&strings.Builder{})})
			ok, err := client.Resume(context.Background())
			if err != nil || !ok {
				t.Fatalf("expected resume to succeed, got %v %v", ok, err)
			}

			session := client.Session()
			if session.BaseURL != "http://nas:5000/" || session.SID != "ABC123" {
				t.Errorf("unexpected session: %+v", session)
			}
		})

		t.Run("partial cache", func(t *testing.T) {
			store := repositories.NewMemoryCache()
			store.Set(models.CacheKeyURL, "http://nas:5000/")

			client := NewClient(ClientOpts{Store: store, Logger: shared.NewLogger(&strings.Builder{})})
			ok, err := client.Resume(context.Background())
			if err != nil || ok {
				t.Errorf("expected no resume, got %v %v", ok, err)
			}
			if client.Session().Authenticated() {
				t.Error("expected client to stay unauthenticated")
			}
		})

		t.Run("no store", func(t *testing.T) {
			client := NewClient(ClientOpts{Logger: shared.NewLogger(&strings.Builder{})})
			if ok, err := client.Resume(context.Background()); ok || err != nil {
				t.Errorf("expected no resume, got %v %v", ok, err)
			}
		})
	})

	t.Run("Call", func(t *testing.T) {
		stub := tu.NewNASStub(t)
		stub.Succeed("SYNO.AudioStation.Info", "getinfo", map[string]any{"version": 6})
		client, _ := loggedIn(t, stub, "ABC123")

		raw, err := client.Call(context.Background(), "/AudioStation/info.cgi", "SYNO.AudioStation.Info", "getinfo", 4, map[string]string{"foo": "bar"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(string(raw), `"version":6`) {
			t.Errorf("unexpected payload %s", raw)
		}

		q := stub.LastRequest()
		if q.Get("foo") != "bar" || q.Get("version") != "4" || q.Get("_sid") != "ABC123" {
			t.Errorf("unexpected call params: %v", q)
		}

		if _, err := client.Call(context.Background(), "", "x", "y", 1, nil); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestErrorMessage(t *testing.T) {
	tests := map[int]string{
		400: "No such account or password",
		401: "Account disabled",
		402: "Permission denied",
		403: "2-step verification needed",
		404: "Two-step verification code error",
		105: "error code 105",
	}
	for code, want := range tests {
		if got := ErrorMessage(code); got != want {
			t.Errorf("code %d: expected %q, got %q", code, want, got)
		}
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{loginError(&APIError{Code: 403}), "Two-step verification"},
		{loginError(&APIError{Code: 400}), "No such account or password"},
		{callError(&APIError{Code: 106}, true), "Session expired"},
		{callError(&APIError{Code: 119}, false), "Not logged in"},
		{fmt.Errorf("%w: %w", shared.ErrNetwork, shared.ErrTimeout), "did not answer in time"},
		{fmt.Errorf("%w: dial tcp", shared.ErrNetwork), "Could not reach the NAS"},
		{shared.ErrMissingConfig, "nas.url"},
		{errors.New("plain"), "plain"},
	}

	for _, tt := range tests {
		if got := Describe(tt.err); !strings.Contains(got, tt.want) || (tt.want == "" && got != "") {
			t.Errorf("Describe(%v): expected %q in %q", tt.err, tt.want, got)
		}
	}
}
