// package tasks implements library operations that span several Audio Station calls.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/synoplay/internal/models"
	"github.com/desertthunder/synoplay/internal/services"
	"github.com/desertthunder/synoplay/internal/shared"
)

// EndpointResult represents the result of fetching data from a single API endpoint.
type EndpointResult struct {
	Endpoint string
	Error    error
}

// DumpResult contains everything fetched by [LibraryEngine.Dump].
type DumpResult struct {
	Session models.Session
	Songs   []models.Song
	Albums  []models.Album
	Errors  []EndpointResult // Failed endpoint fetches
}

// DumpData is the JSON form of a [DumpResult]. The SID is masked.
type DumpData struct {
	Endpoint string            `json:"endpoint"`
	SID      string            `json:"sid,omitempty"`
	Songs    []models.Song     `json:"songs,omitempty"`
	Albums   []models.Album    `json:"albums,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// Data converts the result for serialization.
func (r *DumpResult) Data() DumpData {
	data := DumpData{
		Endpoint: r.Session.BaseURL,
		SID:      shared.MaskSecret(r.Session.SID),
		Songs:    r.Songs,
		Albums:   r.Albums,
	}
	if len(r.Errors) > 0 {
		data.Errors = make(map[string]string, len(r.Errors))
		for _, e := range r.Errors {
			data.Errors[e.Endpoint] = e.Error.Error()
		}
	}
	return data
}

type endpointOperation struct {
	name    string
	phase   Phase
	message string
	fetch   func(ctx context.Context) error
}

// Engine defines the multi-call library operations.
type Engine interface {
	// Dump fetches the session snapshot plus the first page of songs and albums.
	Dump(ctx context.Context, progress chan<- ProgressUpdate, pageSize int) (*DumpResult, error)

	// ExportAlbums writes a tracklist for every album and a manifest into opts.OutputDir.
	ExportAlbums(ctx context.Context, progress chan<- ProgressUpdate, albums []models.Album, opts ExportOpts) (*ExportResult, error)
}

// LibraryEngine implements [Engine] on top of a [services.Library].
type LibraryEngine struct {
	library services.Library
	logger  *log.Logger
}

// NewLibraryEngine creates a new [LibraryEngine]. A nil logger defaults to stderr.
func NewLibraryEngine(library services.Library, logger *log.Logger) *LibraryEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LibraryEngine{library: library, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
//
// If the channel is nil or full, the update is dropped.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Dump fetches the session snapshot, the first page of songs and the first page of albums.
func (e *LibraryEngine) Dump(ctx context.Context, progress chan<- ProgressUpdate, pageSize int) (*DumpResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: library client not initialized", shared.ErrServiceUnavailable)
	}
	if pageSize <= 0 {
		pageSize = services.DefaultPageSize
	}

	result := &DumpResult{Errors: []EndpointResult{}}

	endpoints := []endpointOperation{
		{name: "session", phase: FetchSession, message: "Reading session...", fetch: func(context.Context) error {
			result.Session = e.library.Session()
			if !result.Session.Authenticated() {
				return shared.ErrNotAuthenticated
			}
			return nil
		}},
		{name: "songs", phase: FetchSongs, message: "Fetching songs...", fetch: func(ctx context.Context) (err error) {
			result.Songs, err = e.library.ListSongs(ctx, 0, pageSize)
			return err
		}},
		{name: "albums", phase: FetchAlbums, message: "Fetching albums...", fetch: func(ctx context.Context) (err error) {
			result.Albums, err = e.library.ListAlbums(ctx, 0, pageSize)
			return err
		}},
	}

	totalSteps := len(endpoints)
	for i, endpoint := range endpoints {
		e.sendProgress(progress, operationUpdate(endpoint, i+1, totalSteps))

		if err := endpoint.fetch(ctx); err != nil {
			e.logger.Warn("dump endpoint failed", "endpoint", endpoint.name, "error", err)
			result.Errors = append(result.Errors, EndpointResult{Endpoint: endpoint.name, Error: err})

			if errors.Is(err, shared.ErrSessionExpired) {
				return result, err
			}
		}
	}

	return result, nil
}
