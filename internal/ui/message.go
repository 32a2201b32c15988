package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/synoplay/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLoggedIn MsgKind = iota
	MsgLoggedOut
	MsgSongsFetched
	MsgAlbumsFetched
	MsgAlbumSongsFetched
	MsgPlaybackStarted
)

type loggedInData struct {
	endpoint string
	err      error
}

type songsData struct {
	songs  []models.Song
	offset int
	err    error
}

type albumsData struct {
	albums []models.Album
	offset int
	err    error
}

type albumSongsData struct {
	album models.Album
	songs []models.Song
	err   error
}

type playbackData struct {
	song models.Song
	err  error
}

// loggedInMsg is the constructor for [MsgLoggedIn]
func loggedInMsg(endpoint string, err error) Msg {
	return Msg{kind: MsgLoggedIn, data: loggedInData{endpoint, err}}
}

// loggedOutMsg is the constructor for [MsgLoggedOut]
func loggedOutMsg() Msg {
	return Msg{kind: MsgLoggedOut}
}

// songsFetchedMsg is the constructor for [MsgSongsFetched]
func songsFetchedMsg(songs []models.Song, offset int, err error) Msg {
	return Msg{kind: MsgSongsFetched, data: songsData{songs, offset, err}}
}

// albumsFetchedMsg is the constructor for [MsgAlbumsFetched]
func albumsFetchedMsg(albums []models.Album, offset int, err error) Msg {
	return Msg{kind: MsgAlbumsFetched, data: albumsData{albums, offset, err}}
}

// albumSongsFetchedMsg is the constructor for [MsgAlbumSongsFetched]
func albumSongsFetchedMsg(album models.Album, songs []models.Song, err error) Msg {
	return Msg{kind: MsgAlbumSongsFetched, data: albumSongsData{album, songs, err}}
}

// playbackStartedMsg is the constructor for [MsgPlaybackStarted]
func playbackStartedMsg(song models.Song, err error) Msg {
	return Msg{kind: MsgPlaybackStarted, data: playbackData{song, err}}
}
