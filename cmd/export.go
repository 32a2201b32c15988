package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/synoplay/internal/formatter"
	"github.com/desertthunder/synoplay/internal/models"
	"github.com/desertthunder/synoplay/internal/tasks"
)

// allAlbums pages through the album list until a short page. max > 0 caps the result.
func (r *Runner) allAlbums(ctx context.Context, pageSize, max int) ([]models.Album, error) {
	var albums []models.Album
	for offset := 0; ; offset += pageSize {
		page, err := r.library.ListAlbums(ctx, offset, pageSize)
		if err != nil {
			return nil, err
		}
		albums = append(albums, page...)

		if max > 0 && len(albums) >= max {
			return albums[:max], nil
		}
		if len(page) < pageSize {
			return albums, nil
		}
	}
}

// Export writes a tracklist for every album plus a manifest.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	r.writePlain("Fetching albums...\n")
	albums, err := r.allAlbums(ctx, r.pageSize(cmd), cmd.Int("max-albums"))
	if err != nil {
		return err
	}
	if len(albums) == 0 {
		return r.writePlain("No albums to export\n")
	}
	r.writePlain("Exporting %d albums as %s\n\n", len(albums), format)

	progress := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if update.Phase == tasks.FetchAlbumSongs {
				r.logger.Debug(update.Message)
				continue
			}
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := r.engine.ExportAlbums(ctx, progress, albums, tasks.ExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		Covers:     cmd.Bool("covers"),
		HTTPClient: r.httpClient,
	})
	close(progress)
	<-done

	if result == nil {
		return err
	}

	r.writePlainHeader("Export summary")
	r.writePlain("Albums:    %d\n", result.TotalAlbums)
	r.writePlain("Exported:  %d\n", result.SuccessfulExports)
	r.writePlain("Failed:    %d\n", result.FailedExports)
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest:  %s\n", result.ManifestPath)
	}

	if result.FailedExports > 0 {
		r.writePlainln("Failures:")
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  ✗ %s: %v\n", res.Album, res.Error)
			}
		}
	}

	if err != nil {
		return fmt.Errorf("export stopped early: %w", err)
	}
	return nil
}
