package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/synoplay/internal/models"
	"github.com/desertthunder/synoplay/internal/shared"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultPageSize = 100

	// SessionName is the application session requested at login.
	SessionName = "AudioStation"
)

const (
	authPath   = "auth.cgi"
	songPath   = "AudioStation/song.cgi"
	albumPath  = "AudioStation/album.cgi"
	streamPath = "AudioStation/stream.cgi"
	coverPath  = "AudioStation/cover.cgi"

	authAPI   = "SYNO.API.Auth"
	songAPI   = "SYNO.AudioStation.Song"
	albumAPI  = "SYNO.AudioStation.Album"
	streamAPI = "SYNO.AudioStation.Stream"
	coverAPI  = "SYNO.AudioStation.Cover"

	songAdditional = "song_tag,song_audio,path"
)

var _ Library = (*Client)(nil)

// ClientOpts configures a [Client]. Zero values select defaults.
type ClientOpts struct {
	Endpoint          string
	HTTPClient        *http.Client
	Store             models.SessionStore // nil disables persistence
	Logger            *log.Logger
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables client-side rate limiting
	Burst             int
}

// Client talks to the Audio Station web API and owns the session.
type Client struct {
	httpClient *http.Client
	store      models.SessionStore
	logger     *log.Logger
	timeout    time.Duration
	limiter    *rate.Limiter

	mu      sync.RWMutex
	baseURL string
	sid     string
	// displaced is the authenticated session SetEndpoint replaced, held until the next Login settles.
	displaced *models.Session
}

// NewClient creates a [Client]. The session starts unauthenticated; see [Client.Resume].
func NewClient(opts ClientOpts) *Client {
	c := &Client{
		httpClient: opts.HTTPClient,
		store:      opts.Store,
		logger:     opts.Logger,
		timeout:    opts.Timeout,
	}

	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = shared.NewLogger(nil)
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if opts.RequestsPerSecond > 0 {
		burst := max(opts.Burst, 1)
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	if opts.Endpoint != "" {
		c.baseURL = NormalizeEndpoint(opts.Endpoint)
	}
	return c
}

// NormalizeEndpoint trims surrounding whitespace and guarantees exactly one trailing slash.
// Blank input normalizes to "", which leaves the endpoint unset.
func NormalizeEndpoint(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return ""
	}
	return trimmed + "/"
}

// SetEndpoint stores the normalized endpoint. Switching to a different endpoint drops the
// in-memory SID since it was issued by the previous NAS. The dropped session comes back if the
// next [Client.Login] fails.
func (c *Client) SetEndpoint(raw string) string {
	normalized := NormalizeEndpoint(raw)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.baseURL != normalized {
		if c.sid != "" && c.displaced == nil {
			c.displaced = &models.Session{BaseURL: c.baseURL, SID: c.sid}
		}
		c.sid = ""
	}
	c.baseURL = normalized
	return normalized
}

// settle resolves a pending endpoint switch once a login finishes. On failure the displaced
// session is restored so the client never points at one NAS while the cache holds another.
func (c *Client) settle(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev := c.displaced; prev != nil && !ok {
		c.baseURL, c.sid = prev.BaseURL, prev.SID
		c.logger.Debug("restored previous session", "endpoint", prev.BaseURL)
	}
	c.displaced = nil
}

// Session returns a snapshot of the endpoint and SID.
func (c *Client) Session() models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.Session{BaseURL: c.baseURL, SID: c.sid}
}

// Resume restores a cached session without touching the network. It reports whether both cache
// entries were present.
func (c *Client) Resume(_ context.Context) (bool, error) {
	if c.store == nil {
		return false, nil
	}

	baseURL, err := c.store.Get(models.CacheKeyURL)
	if errors.Is(err, shared.ErrCacheMiss) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	sid, err := c.store.Get(models.CacheKeySID)
	if errors.Is(err, shared.ErrCacheMiss) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.baseURL = NormalizeEndpoint(baseURL)
	c.sid = sid
	c.displaced = nil
	c.mu.Unlock()

	c.logger.Debug("resumed cached session", "endpoint", baseURL, "sid", shared.MaskSecret(sid))
	return sid != "", nil
}

// Login authenticates against SYNO.API.Auth and persists the SID with the endpoint.
//
// A failed login leaves both the in-memory and cached session as they were before any
// preceding endpoint switch.
func (c *Client) Login(ctx context.Context, username, password string) (*models.AuthResult, error) {
	result, err := c.login(ctx, username, password)
	c.settle(err == nil)
	return result, err
}

func (c *Client) login(ctx context.Context, username, password string) (*models.AuthResult, error) {
	req := request{
		cgiPath: authPath,
		api:     authAPI,
		method:  "login",
		version: 3,
		params: url.Values{
			"account": {username},
			"passwd":  {password},
			"session": {SessionName},
			"format":  {"sid"},
		},
	}

	data, err := c.send(ctx, req, "")
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, loginError(apiErr)
		}
		return nil, err
	}

	result := &models.AuthResult{Raw: data}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode login response: %w", shared.ErrNetwork, err)
	}
	if result.SID == "" {
		return nil, fmt.Errorf("%w: login response carried no sid", shared.ErrAuthFailed)
	}

	c.mu.Lock()
	c.sid = result.SID
	baseURL := c.baseURL
	c.mu.Unlock()

	c.persist(baseURL, result.SID)
	c.logger.Info("logged in", "endpoint", baseURL, "account", username)
	return result, nil
}

// Logout invalidates the session remotely when one exists, then clears the SID from memory and
// both values from the cache. Remote failures are logged, never returned.
func (c *Client) Logout(ctx context.Context) {
	c.mu.Lock()
	sid := c.sid
	c.sid = ""
	c.displaced = nil
	c.mu.Unlock()

	if sid != "" {
		req := request{
			cgiPath: authPath,
			api:     authAPI,
			method:  "logout",
			version: 3,
			params:  url.Values{"session": {SessionName}},
		}
		if _, err := c.send(ctx, req, sid); err != nil {
			c.logger.Warn("remote logout failed", "error", err)
		}
	}

	c.forget()
}

// ListSongs returns one page of songs in the order the NAS returned them.
//
// Without a session the request is still sent and the remote rejection is returned.
func (c *Client) ListSongs(ctx context.Context, offset, limit int) ([]models.Song, error) {
	if err := checkPage(offset, limit); err != nil {
		return nil, err
	}

	req := request{
		cgiPath: songPath,
		api:     songAPI,
		method:  "list",
		version: 1,
		params: url.Values{
			"offset":     {strconv.Itoa(offset)},
			"limit":      {strconv.Itoa(limit)},
			"additional": {songAdditional},
		},
	}
	return c.listSongs(ctx, req)
}

// ListAlbumSongs returns the songs of album, filtered by album name and album artist.
func (c *Client) ListAlbumSongs(ctx context.Context, album models.Album) ([]models.Song, error) {
	if strings.TrimSpace(album.Name) == "" {
		return nil, fmt.Errorf("%w: album name is required", shared.ErrInvalidArgument)
	}

	req := request{
		cgiPath: songPath,
		api:     songAPI,
		method:  "list",
		version: 1,
		params: url.Values{
			"library":      {"all"},
			"album":        {album.Name},
			"album_artist": {album.Artist},
			"additional":   {songAdditional},
		},
	}
	return c.listSongs(ctx, req)
}

func (c *Client) listSongs(ctx context.Context, req request) ([]models.Song, error) {
	data, err := c.authorized(ctx, req)
	if err != nil {
		return nil, err
	}

	var list songListData
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: failed to decode song list: %w", shared.ErrNetwork, err)
	}

	songs := make([]models.Song, 0, len(list.Songs))
	for _, record := range list.Songs {
		songs = append(songs, record.ToModel())
	}
	return songs, nil
}

// ListAlbums returns one page of albums across all libraries.
func (c *Client) ListAlbums(ctx context.Context, offset, limit int) ([]models.Album, error) {
	if err := checkPage(offset, limit); err != nil {
		return nil, err
	}

	req := request{
		cgiPath: albumPath,
		api:     albumAPI,
		method:  "list",
		version: 3,
		params: url.Values{
			"library": {"all"},
			"offset":  {strconv.Itoa(offset)},
			"limit":   {strconv.Itoa(limit)},
		},
	}

	data, err := c.authorized(ctx, req)
	if err != nil {
		return nil, err
	}

	var list albumListData
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: failed to decode album list: %w", shared.ErrNetwork, err)
	}

	albums := make([]models.Album, 0, len(list.Albums))
	for _, record := range list.Albums {
		albums = append(albums, record.ToModel())
	}
	return albums, nil
}

// StreamURL builds the stream URL for songID. It performs no I/O.
func (c *Client) StreamURL(songID string) (string, error) {
	session := c.Session()
	if !session.Authenticated() {
		return "", fmt.Errorf("%w: cannot stream song %q", shared.ErrMalformedRequest, songID)
	}

	req := request{
		cgiPath: streamPath,
		api:     streamAPI,
		method:  "stream",
		version: 2,
		params:  url.Values{"id": {songID}},
	}
	return req.url(session.BaseURL, session.SID), nil
}

// CoverURL builds the artwork URL for album. It performs no I/O.
func (c *Client) CoverURL(album models.Album) (string, error) {
	session := c.Session()
	if !session.Authenticated() {
		return "", fmt.Errorf("%w: cannot fetch cover for %s", shared.ErrMalformedRequest, album)
	}

	req := request{
		cgiPath: coverPath,
		api:     coverAPI,
		method:  "getcover",
		version: 3,
		params: url.Values{
			"library":           {"all"},
			"album_name":        {album.Name},
			"album_artist_name": {album.Artist},
		},
	}
	return req.url(session.BaseURL, session.SID), nil
}

// Call performs an arbitrary web API request with the current session and returns the raw data
// member of the envelope.
func (c *Client) Call(ctx context.Context, cgiPath, api, method string, version int, params map[string]string) (json.RawMessage, error) {
	if cgiPath == "" || api == "" || method == "" {
		return nil, fmt.Errorf("%w: cgi path, api and method are required", shared.ErrMissingArgument)
	}

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	return c.authorized(ctx, request{
		cgiPath: strings.TrimPrefix(cgiPath, "/"),
		api:     api,
		method:  method,
		version: version,
		params:  values,
	})
}

// authorized sends req with the current SID and classifies remote rejections. A session-class
// code drops the session that was used, unless a newer login already replaced it.
func (c *Client) authorized(ctx context.Context, req request) (json.RawMessage, error) {
	sid := c.Session().SID

	data, err := c.send(ctx, req, sid)
	if err == nil {
		return data, nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return nil, err
	}

	apiErr = callError(apiErr, sid != "")
	if errors.Is(apiErr, shared.ErrSessionExpired) {
		c.expire(sid)
	}
	return nil, apiErr
}

func (c *Client) expire(sid string) {
	c.mu.Lock()
	current := c.sid == sid
	if current {
		c.sid = ""
	}
	c.mu.Unlock()

	if current {
		c.logger.Warn("session expired, dropping cached session")
		c.forget()
	}
}

func (c *Client) persist(baseURL, sid string) {
	if c.store == nil {
		return
	}
	if err := c.store.Set(models.CacheKeySID, sid); err != nil {
		c.logger.Warn("failed to cache session id", "error", err)
	}
	if err := c.store.Set(models.CacheKeyURL, baseURL); err != nil {
		c.logger.Warn("failed to cache endpoint", "error", err)
	}
}

func (c *Client) forget() {
	if c.store == nil {
		return
	}
	for _, key := range []string{models.CacheKeySID, models.CacheKeyURL} {
		if err := c.store.Remove(key); err != nil {
			c.logger.Warn("failed to clear cached session", "key", key, "error", err)
		}
	}
}

// send performs one request. Remote rejections come back as *APIError with no Kind set.
func (c *Client) send(ctx context.Context, req request, sid string) (json.RawMessage, error) {
	baseURL := c.Session().BaseURL
	if baseURL == "" {
		return nil, fmt.Errorf("%w: NAS endpoint is not set", shared.ErrMissingConfig)
	}

	requestID := shared.GenerateID()
	logger := shared.WithLogger(c.logger, "request_id", requestID, "api", req.api, "method", req.method)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrNetwork, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.url(baseURL, sid), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", shared.ErrNetwork, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		err = redactURL(err)
		logger.Debug("request failed", "error", err)
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	logger.Debug("response received", "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", shared.ErrNetwork, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, transportError(fmt.Errorf("failed to decode response: %w", err))
	}

	if !env.Success {
		apiErr := &APIError{API: req.api, Method: req.method}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
		}
		logger.Debug("remote rejected request", "code", apiErr.Code)
		return nil, apiErr
	}
	return env.Data, nil
}

// redactURL strips the query from a *url.Error so credentials and the SID never reach logs or
// error messages.
func redactURL(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	if u, perr := url.Parse(urlErr.URL); perr == nil {
		u.RawQuery = ""
		u.User = nil
		urlErr.URL = u.String()
	} else {
		urlErr.URL = "[redacted]"
	}
	return err
}

func transportError(err error) error {
	err = redactURL(err)
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w: %w", shared.ErrNetwork, shared.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", shared.ErrNetwork, err)
}

func checkPage(offset, limit int) error {
	if offset < 0 {
		return fmt.Errorf("%w: offset must not be negative, got %d", shared.ErrInvalidArgument, offset)
	}
	if limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", shared.ErrInvalidArgument, limit)
	}
	return nil
}

type request struct {
	cgiPath string
	api     string
	method  string
	version int
	params  url.Values
}

func (r request) url(baseURL, sid string) string {
	q := url.Values{}
	q.Set("api", r.api)
	q.Set("version", strconv.Itoa(r.version))
	q.Set("method", r.method)
	for k, vs := range r.params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if sid != "" {
		q.Set("_sid", sid)
	}
	return baseURL + "webapi/" + r.cgiPath + "?" + q.Encode()
}
