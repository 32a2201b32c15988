package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/synoplay/internal/models"
)

// Library is the contract presentation layers consume.
type Library interface {
	// SetEndpoint normalizes and stores the NAS base URL, returning the normalized form.
	SetEndpoint(raw string) string

	// Login opens an AudioStation session and persists it.
	Login(ctx context.Context, username, password string) (*models.AuthResult, error)

	// Logout invalidates the session. It never fails from the caller's point of view.
	Logout(ctx context.Context)

	// ListSongs returns one page of songs in the order the NAS returned them.
	ListSongs(ctx context.Context, offset, limit int) ([]models.Song, error)

	// ListAlbums returns one page of albums.
	ListAlbums(ctx context.Context, offset, limit int) ([]models.Album, error)

	// ListAlbumSongs returns the songs of a single album.
	ListAlbumSongs(ctx context.Context, album models.Album) ([]models.Song, error)

	// StreamURL builds the playback URL for a song id.
	StreamURL(songID string) (string, error)

	// CoverURL builds the artwork URL for an album.
	CoverURL(album models.Album) (string, error)

	// Session returns a snapshot of the current session.
	Session() models.Session
}

// envelope is the response wrapper shared by every Synology web API.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code int `json:"code"`
	} `json:"error,omitempty"`
}

type songTag struct {
	Album       string `json:"album"`
	AlbumArtist string `json:"album_artist"`
	Artist      string `json:"artist"`
	Disc        int    `json:"disc"`
	Genre       string `json:"genre"`
	Track       int    `json:"track"`
	Year        int    `json:"year"`
}

type songAudio struct {
	Bitrate  int    `json:"bitrate"`
	Codec    string `json:"codec"`
	Duration int    `json:"duration"`
}

// songID accepts an id sent either as a JSON string or a bare number.
type songID string

func (id *songID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = songID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("song id must be a string or number, got %s", data)
	}
	*id = songID(n.String())
	return nil
}

// SongRecord is a song as returned by SYNO.AudioStation.Song.
type SongRecord struct {
	ID         songID `json:"id"`
	Title      string `json:"title"`
	Path       string `json:"path"`
	Additional struct {
		SongTag   *songTag   `json:"song_tag"`
		SongAudio *songAudio `json:"song_audio"`
	} `json:"additional"`
}

// ToModel converts the record, defaulting a missing artist to [models.UnknownArtist].
func (r SongRecord) ToModel() models.Song {
	song := models.Song{ID: string(r.ID), Title: r.Title, Path: r.Path, Artist: models.UnknownArtist}

	if tag := r.Additional.SongTag; tag != nil {
		if tag.Artist != "" {
			song.Artist = tag.Artist
		}
		song.Album = tag.Album
		song.AlbumArtist = tag.AlbumArtist
		song.Track = tag.Track
		song.Disc = tag.Disc
		song.Year = tag.Year
		song.Genre = tag.Genre
	}

	if audio := r.Additional.SongAudio; audio != nil {
		song.Duration = audio.Duration
		song.Codec = audio.Codec
		song.Bitrate = audio.Bitrate
	}
	return song
}

// AlbumRecord is an album as returned by SYNO.AudioStation.Album.
type AlbumRecord struct {
	Name          string `json:"name"`
	AlbumArtist   string `json:"album_artist"`
	Artist        string `json:"artist"`
	DisplayArtist string `json:"display_artist"`
	Year          int    `json:"year"`
}

// ToModel converts the record, preferring the album artist.
func (r AlbumRecord) ToModel() models.Album {
	album := models.Album{Name: r.Name, Year: r.Year}
	switch {
	case r.AlbumArtist != "":
		album.Artist = r.AlbumArtist
	case r.DisplayArtist != "":
		album.Artist = r.DisplayArtist
	default:
		album.Artist = r.Artist
	}
	return album
}

type songListData struct {
	Offset int          `json:"offset"`
	Total  int          `json:"total"`
	Songs  []SongRecord `json:"songs"`
}

type albumListData struct {
	Offset int           `json:"offset"`
	Total  int           `json:"total"`
	Albums []AlbumRecord `json:"albums"`
}
