// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for browsing an Audio Station library:
//  1. [LoginView] : NAS address, account and password (skipped when a cached session was resumed)
//  2. [SongListView] : One page of songs; enter plays the selection
//  3. [AlbumListView] : One page of albums; enter opens the album
//  4. [AlbumSongsView] : Tracks of the selected album; enter plays the selection
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// All network calls run inside tea.Cmd functions against an injected services.Library; playback is handed to a player.Player.
//
// An expired session sends the user back to the login view with a hint instead of an error screen.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, [ ], tab, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
