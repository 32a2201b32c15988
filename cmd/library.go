package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/synoplay/internal/formatter"
	"github.com/desertthunder/synoplay/internal/models"
	"github.com/desertthunder/synoplay/internal/shared"
)

// Songs prints one page of songs as a table, CSV or JSON.
func (r *Runner) Songs(ctx context.Context, cmd *cli.Command) error {
	offset := cmd.Int("offset")
	limit := r.pageSize(cmd)

	songs, err := r.library.ListSongs(ctx, offset, limit)
	if err != nil {
		return err
	}
	r.logger.Debug("fetched songs", "offset", offset, "limit", limit, "count", len(songs))

	switch {
	case cmd.Bool("json"):
		return r.writeJSON(songs, cmd.Bool("pretty"))
	case cmd.Bool("csv"):
		data, err := formatter.ExportToCSV(songs)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	if len(songs) == 0 {
		return r.writePlain("No songs at offset %d\n", offset)
	}
	r.writePlain("%s\n", formatter.SongTable(songs, offset))
	if len(songs) == limit {
		r.writePlain("Next page: --offset %d\n", offset+limit)
	}
	return nil
}

// Albums prints one page of albums as a table or JSON.
func (r *Runner) Albums(ctx context.Context, cmd *cli.Command) error {
	offset := cmd.Int("offset")
	limit := r.pageSize(cmd)

	albums, err := r.library.ListAlbums(ctx, offset, limit)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(albums, cmd.Bool("pretty"))
	}

	if len(albums) == 0 {
		return r.writePlain("No albums at offset %d\n", offset)
	}
	r.writePlain("%s\n", formatter.AlbumTable(albums, offset))
	if len(albums) == limit {
		r.writePlain("Next page: --offset %d\n", offset+limit)
	}
	return nil
}

func albumArg(cmd *cli.Command) (models.Album, error) {
	album := models.Album{
		Name:   strings.TrimSpace(cmd.StringArg("name")),
		Artist: strings.TrimSpace(cmd.String("artist")),
	}
	if album.Name == "" {
		return album, fmt.Errorf("%w: album name", shared.ErrMissingArgument)
	}
	return album, nil
}

// Album prints the tracklist of one album, or writes it to a file with --format.
func (r *Runner) Album(ctx context.Context, cmd *cli.Command) error {
	album, err := albumArg(cmd)
	if err != nil {
		return err
	}

	songs, err := r.library.ListAlbumSongs(ctx, album)
	if err != nil {
		return err
	}
	export := &models.AlbumExport{Album: album, Songs: songs}

	if raw := cmd.String("format"); raw != "" {
		format, err := formatter.ParseFormat(raw)
		if err != nil {
			return err
		}
		if format == formatter.FormatMarkdown && cmd.Bool("cover") {
			if coverURL, err := r.library.CoverURL(album); err == nil {
				export.CoverURL = coverURL
			}
		}

		result, err := formatter.WriteAlbumExport(ctx, export, format, cmd.String("output"), r.httpClient)
		if err != nil {
			return err
		}
		if result.CoverErr != nil {
			r.logger.Warn("cover not saved", "album", album.Name, "error", result.CoverErr)
		}
		r.writePlain("✓ Exported %s (%d tracks)\n", album, len(songs))
		for _, f := range result.Files {
			r.writePlain("  %s\n", f)
		}
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(export, true)
	}

	r.writePlain("%s · %d tracks · %s\n", album, len(songs), shared.FormatDuration(export.Duration()))
	if len(songs) == 0 {
		return nil
	}
	r.writePlain("%s\n", formatter.SongTable(songs, 0))
	return nil
}

// Stream prints the stream URL of a song. The URL embeds the session id.
func (r *Runner) Stream(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: song id", shared.ErrMissingArgument)
	}

	streamURL, err := r.library.StreamURL(id)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", streamURL)
}

// Cover prints the cover URL of an album, or downloads it with --save.
func (r *Runner) Cover(ctx context.Context, cmd *cli.Command) error {
	album, err := albumArg(cmd)
	if err != nil {
		return err
	}

	coverURL, err := r.library.CoverURL(album)
	if err != nil {
		return err
	}

	path := cmd.String("save")
	if path == "" {
		return r.writePlain("%s\n", coverURL)
	}

	data, err := formatter.DownloadImage(ctx, r.httpClient, coverURL)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save cover: %w", err)
	}
	return r.writePlain("✓ Cover saved to %s (%d bytes)\n", path, len(data))
}

// waiter is implemented by players whose playback can be awaited.
type waiter interface {
	Wait() error
}

// Play starts the configured player on a song and blocks until playback ends or the command is interrupted.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: song id", shared.ErrMissingArgument)
	}

	streamURL, err := r.library.StreamURL(id)
	if err != nil {
		return err
	}

	if err := r.player.Play(ctx, streamURL); err != nil {
		return err
	}
	r.writePlain("▶ Playing %s (ctrl+c to stop)\n", id)

	w, ok := r.player.(waiter)
	if !ok {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- w.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("player exited: %w", err)
		}
		return nil
	case <-ctx.Done():
		if err := r.player.Stop(); err != nil {
			r.logger.Warn("failed to stop player", "error", err)
		}
		<-done
		return nil
	}
}
