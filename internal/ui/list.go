package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/synoplay/internal/models"
	"github.com/desertthunder/synoplay/internal/shared"
)

var (
	_ list.Item = songItem{}
	_ list.Item = albumItem{}
)

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct {
	song models.Song
}

func (i songItem) FilterValue() string { return i.song.Title + " " + i.song.Artist }
func (i songItem) Title() string       { return i.song.Title }
func (i songItem) Description() string {
	parts := []string{i.song.Artist}
	if i.song.Album != "" {
		parts = append(parts, i.song.Album)
	}
	parts = append(parts, shared.FormatDuration(i.song.Duration))
	return strings.Join(parts, " • ")
}

// albumItem wraps [models.Album] to implement [list.Item].
type albumItem struct {
	album models.Album
}

func (i albumItem) FilterValue() string { return i.album.Name + " " + i.album.Artist }
func (i albumItem) Title() string       { return i.album.Name }
func (i albumItem) Description() string {
	artist := i.album.Artist
	if artist == "" {
		artist = models.UnknownArtist
	}
	if i.album.Year > 0 {
		return fmt.Sprintf("%s • %d", artist, i.album.Year)
	}
	return artist
}

func songItems(songs []models.Song) []list.Item {
	items := make([]list.Item, len(songs))
	for i, s := range songs {
		items[i] = songItem{song: s}
	}
	return items
}

func albumItems(albums []models.Album) []list.Item {
	items := make([]list.Item, len(albums))
	for i, a := range albums {
		items[i] = albumItem{album: a}
	}
	return items
}
