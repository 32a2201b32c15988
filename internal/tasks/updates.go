package tasks

import (
	"fmt"

	"github.com/desertthunder/synoplay/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSession Phase = iota
	FetchSongs
	FetchAlbums
	FetchAlbumSongs
	ExportAlbum
)

func (p Phase) String() string {
	switch p {
	case FetchSession:
		return "fetch_session"
	case FetchSongs:
		return "fetch_songs"
	case FetchAlbums:
		return "fetch_albums"
	case FetchAlbumSongs:
		return "fetch_album_songs"
	case ExportAlbum:
		return "export_album"
	default:
		return ""
	}
}

func operationUpdate(endpoint endpointOperation, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   endpoint.phase,
		Step:    step,
		Total:   total,
		Message: endpoint.message,
	}
}

func fetchAlbumSongsUpdate(step, total int, album models.Album) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchAlbumSongs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching tracks: %s...", step, total, album),
		Data:    album,
	}
}

func exportCompletedUpdate(step, total int, album models.Album, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportAlbum,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, album, filesCount),
	}
}

func exportFailedUpdate(step, total int, album models.Album, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportAlbum,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, album, err),
	}
}
