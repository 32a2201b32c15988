package web

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/synoplay/internal/models"
	"github.com/desertthunder/synoplay/internal/server"
	"github.com/desertthunder/synoplay/internal/services"
	"github.com/desertthunder/synoplay/internal/shared"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"duration": shared.FormatDuration,
	"add": func(n ...int) int {
		total := 0
		for _, v := range n {
			total += v
		}
		return total
	},
	"streamPath": func(s models.Song) string { return "/stream/" + url.PathEscape(s.ID) },
	"albumPath":  func(a models.Album) string { return "/albums/songs?" + albumQuery(a) },
	"coverPath":  func(a models.Album) string { return "/cover?" + albumQuery(a) },
}).ParseFS(templateFS, "templates/*.html"))

func albumQuery(a models.Album) string {
	return url.Values{"name": {a.Name}, "artist": {a.Artist}}.Encode()
}

// Opts contains the dependencies of an [App].
type Opts struct {
	Library  services.Library
	Logger   *log.Logger
	PageSize int
	Username string // prefilled on the login form
}

// App serves the web front end over a single injected [services.Library].
type App struct {
	library  services.Library
	logger   *log.Logger
	pageSize int
	username string
}

// New creates an [App], filling defaults for a nil logger and non-positive page size.
func New(opts Opts) *App {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = services.DefaultPageSize
	}
	return &App{library: opts.Library, logger: opts.Logger, pageSize: opts.PageSize, username: opts.Username}
}

// Register adds every route of the app to router.
func (a *App) Register(router *server.BasicRouter) {
	router.HandleFunc(http.MethodGet, "/{$}", a.Index)
	router.HandleFunc(http.MethodPost, "/login", a.Login)
	router.HandleFunc(http.MethodPost, "/logout", a.Logout)
	router.HandleFunc(http.MethodGet, "/stream/{id}", a.Stream)
	router.HandleFunc(http.MethodGet, "/cover", a.Cover)
	router.HandleFunc(http.MethodGet, "/albums", a.Albums)
	router.HandleFunc(http.MethodGet, "/albums/songs", a.AlbumSongs)
}

// Handler returns the app behind the request id, recovery and access log middleware.
func (a *App) Handler() http.Handler {
	router := server.NewBasicRouter()
	router.Use(server.RequestIDMiddleware, server.Recover(a.logger), server.AccessLog(a.logger))
	a.Register(router)
	return router
}

type page struct {
	Title         string
	Authenticated bool
	Endpoint      string
	Username      string
	Notice        string
	Error         string

	Songs  []models.Song
	Albums []models.Album
	Album  models.Album
	Length int

	Offset     int
	PrevOffset int
	NextOffset int
	HasPrev    bool
	HasNext    bool
}

func (a *App) newPage(title string) *page {
	session := a.library.Session()
	return &page{
		Title:         title,
		Authenticated: session.Authenticated(),
		Endpoint:      strings.TrimSuffix(session.BaseURL, "/"),
		Username:      a.username,
	}
}

func (p *page) paginate(offset, count, pageSize int) {
	p.Offset = offset
	p.HasPrev = offset > 0
	p.PrevOffset = max(offset-pageSize, 0)
	p.HasNext = count == pageSize
	p.NextOffset = offset + pageSize
}

// Index renders the login form without a session, otherwise one page of songs.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	if !a.library.Session().Authenticated() {
		p := a.newPage("Log in")
		if r.URL.Query().Get("expired") != "" {
			p.Notice = "Your session expired. Please log in again."
		}
		a.render(w, r, http.StatusOK, "login", p)
		return
	}

	offset, err := parseOffset(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	songs, err := a.library.ListSongs(r.Context(), offset, a.pageSize)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	p := a.newPage("Songs")
	p.Songs = songs
	p.paginate(offset, len(songs), a.pageSize)
	a.render(w, r, http.StatusOK, "songs", p)
}

// Login authenticates with the submitted endpoint and credentials.
//
// A failed login re-renders the form with the reason and status 401 (or 502 when the NAS is unreachable).
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	endpoint := strings.TrimSpace(r.PostForm.Get("endpoint"))
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")

	p := a.newPage("Log in")
	p.Endpoint = endpoint
	p.Username = username

	if endpoint == "" || username == "" || password == "" {
		p.Error = "NAS address, account and password are required."
		a.render(w, r, http.StatusBadRequest, "login", p)
		return
	}

	a.library.SetEndpoint(endpoint)
	if _, err := a.library.Login(r.Context(), username, password); err != nil {
		a.logger.Warn("web login failed", "endpoint", endpoint, "user", username, "error", err, "request_id", server.RequestID(r.Context()))
		p.Error = services.Describe(err)
		status := http.StatusUnauthorized
		if errors.Is(err, shared.ErrNetwork) {
			status = http.StatusBadGateway
		}
		a.render(w, r, status, "login", p)
		return
	}

	a.logger.Info("web login", "endpoint", endpoint, "user", username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout ends the session and returns to the login form.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	a.library.Logout(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Stream redirects the browser to the NAS stream URL of the song.
func (a *App) Stream(w http.ResponseWriter, r *http.Request) {
	streamURL, err := a.library.StreamURL(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	http.Redirect(w, r, streamURL, http.StatusFound)
}

// Cover redirects the browser to the NAS artwork URL of the album named in the query.
func (a *App) Cover(w http.ResponseWriter, r *http.Request) {
	album, ok := albumFromQuery(r)
	if !ok {
		http.Error(w, "album name is required", http.StatusBadRequest)
		return
	}

	coverURL, err := a.library.CoverURL(album)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	http.Redirect(w, r, coverURL, http.StatusFound)
}

// Albums renders one page of albums.
func (a *App) Albums(w http.ResponseWriter, r *http.Request) {
	offset, err := parseOffset(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	albums, err := a.library.ListAlbums(r.Context(), offset, a.pageSize)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	p := a.newPage("Albums")
	p.Albums = albums
	p.paginate(offset, len(albums), a.pageSize)
	a.render(w, r, http.StatusOK, "albums", p)
}

// AlbumSongs renders the tracklist of the album named in the query.
func (a *App) AlbumSongs(w http.ResponseWriter, r *http.Request) {
	album, ok := albumFromQuery(r)
	if !ok {
		http.Error(w, "album name is required", http.StatusBadRequest)
		return
	}

	songs, err := a.library.ListAlbumSongs(r.Context(), album)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	export := models.AlbumExport{Album: album, Songs: songs}
	p := a.newPage(album.Name)
	p.Album = album
	p.Songs = songs
	p.Length = export.Duration()
	a.render(w, r, http.StatusOK, "album", p)
}

func albumFromQuery(r *http.Request) (models.Album, bool) {
	q := r.URL.Query()
	album := models.Album{Name: q.Get("name"), Artist: q.Get("artist")}
	return album, album.Name != ""
}

func parseOffset(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("offset")
	if raw == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		return 0, shared.ErrInvalidArgument
	}
	return offset, nil
}

// fail maps err to a response. Session problems send the browser back to the login form.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.Warn("request failed", "path", r.URL.Path, "error", err, "request_id", server.RequestID(r.Context()))

	switch {
	case errors.Is(err, shared.ErrSessionExpired):
		http.Redirect(w, r, "/?expired=1", http.StatusSeeOther)
		return
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrMalformedRequest), errors.Is(err, shared.ErrMissingConfig):
		if r.URL.Path == "/" {
			http.Error(w, services.Describe(err), http.StatusUnauthorized)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	status := http.StatusBadGateway
	if errors.Is(err, shared.ErrInvalidArgument) || errors.Is(err, shared.ErrMissingArgument) {
		status = http.StatusBadRequest
	}

	p := a.newPage("Error")
	p.Error = services.Describe(err)
	a.render(w, r, status, "songs", p)
}

func (a *App) render(w http.ResponseWriter, r *http.Request, status int, name string, p *page) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, p); err != nil {
		a.logger.Error("template failed", "template", name, "error", err, "request_id", server.RequestID(r.Context()))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
