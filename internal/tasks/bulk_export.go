package tasks

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/synoplay/internal/formatter"
	"github.com/desertthunder/synoplay/internal/models"
	"github.com/desertthunder/synoplay/internal/shared"
)

// ExportOpts contains configuration for bulk album exports.
type ExportOpts struct {
	Format     string       // Export format: csv, markdown, text, json
	OutputDir  string       // Base output directory (default: synoplay_export_{epoch})
	NumWorkers int          // Concurrent workers (default: 4, max: 10)
	RateLimit  float64      // NAS requests per second (default: 5)
	Covers     bool         // Download cover art for Markdown exports
	HTTPClient *http.Client // Used for cover downloads
}

// AlbumExportResult is the outcome of exporting one album.
type AlbumExportResult struct {
	Album   models.Album
	Songs   int
	Success bool
	Files   []string
	Error   error
}

// ExportResult summarizes a bulk album export.
type ExportResult struct {
	TotalAlbums       int
	SuccessfulExports int
	FailedExports     int
	Results           []AlbumExportResult
	OutputDirectory   string
	ManifestPath      string
}

type albumJob struct {
	export *models.AlbumExport
}

// ExportAlbums exports albums concurrently with rate limiting and progress tracking.
//
// A single feeder fetches tracklists from the NAS through the limiter and hands them to a pool of
// workers that write files. Failures are recorded per album. When the NAS reports an expired
// session the feeder stops, the remaining albums are marked failed and the error is returned
// alongside the partial result.
func (e *LibraryEngine) ExportAlbums(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	albums []models.Album,
	opts ExportOpts,
) (*ExportResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: library client not initialized", shared.ErrServiceUnavailable)
	}

	format, err := formatter.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	opts.Format = format

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("synoplay_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		TotalAlbums:     len(albums),
		OutputDirectory: opts.OutputDir,
		Results:         make([]AlbumExportResult, 0, len(albums)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan albumJob, len(albums))
	results := make(chan AlbumExportResult, len(albums))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	var sessionErr error
	go func() {
		defer close(jobs)

		for i, album := range albums {
			if sessionErr != nil || ctx.Err() != nil {
				results <- AlbumExportResult{Album: album, Error: fmt.Errorf("skipped: %w", cmp.Or(sessionErr, ctx.Err()))}
				continue
			}

			if err := limiter.Wait(ctx); err != nil {
				results <- AlbumExportResult{Album: album, Error: fmt.Errorf("skipped: %w", err)}
				continue
			}

			e.sendProgress(prog, fetchAlbumSongsUpdate(i+1, len(albums), album))

			songs, err := e.library.ListAlbumSongs(ctx, album)
			if err != nil {
				if errors.Is(err, shared.ErrSessionExpired) {
					sessionErr = err
				}
				results <- AlbumExportResult{Album: album, Error: fmt.Errorf("failed to fetch tracks: %w", err)}
				continue
			}

			export := &models.AlbumExport{Album: album, Songs: songs}
			if opts.Covers && opts.Format == formatter.FormatMarkdown {
				if url, err := e.library.CoverURL(album); err == nil {
					export.CoverURL = url
				}
			}

			jobs <- albumJob{export: export}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(albums), res.Album, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(albums), res.Album, res.Error))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(result.Manifest(opts.Format), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if sessionErr != nil {
		return result, sessionErr
	}
	return result, nil
}

// Manifest converts the result into the formatter's manifest layout.
func (r *ExportResult) Manifest(format string) formatter.Manifest {
	m := formatter.Manifest{
		Format:            format,
		ExportedAt:        time.Now().UTC(),
		TotalAlbums:       r.TotalAlbums,
		SuccessfulExports: r.SuccessfulExports,
		FailedExports:     r.FailedExports,
		Albums:            make([]formatter.ManifestEntry, 0, len(r.Results)),
	}

	for _, res := range r.Results {
		entry := formatter.ManifestEntry{
			Album:  res.Album.Name,
			Artist: res.Album.Artist,
			Songs:  res.Songs,
			Status: "success",
			Files:  res.Files,
		}
		if !res.Success {
			entry.Status = "failed"
			if res.Error != nil {
				entry.Error = res.Error.Error()
			}
		}
		m.Albums = append(m.Albums, entry)
	}
	return m
}

// exportWorker is a worker goroutine that writes albums from the jobs channel.
func (e *LibraryEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan albumJob,
	results chan<- AlbumExportResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		results <- e.exportSingleAlbum(ctx, job, opts)
	}
}

// exportSingleAlbum writes a single album in the configured format.
func (e *LibraryEngine) exportSingleAlbum(ctx context.Context, j albumJob, opts ExportOpts) AlbumExportResult {
	result := AlbumExportResult{
		Album: j.export.Album,
		Songs: len(j.export.Songs),
		Files: []string{},
	}

	if err := ctx.Err(); err != nil {
		result.Error = fmt.Errorf("skipped: %w", err)
		return result
	}

	written, err := formatter.WriteAlbumExport(ctx, j.export, opts.Format, opts.OutputDir, opts.HTTPClient)
	if err != nil {
		result.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return result
	}
	if written.CoverErr != nil {
		e.logger.Warn("cover download failed", "album", j.export.Album.Name, "error", written.CoverErr)
	}

	result.Files = written.Files
	result.Success = true
	return result
}
