package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/synoplay/internal/models"
	"github.com/desertthunder/synoplay/internal/player"
	"github.com/desertthunder/synoplay/internal/services"
	"github.com/desertthunder/synoplay/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	SongListView
	AlbumListView
	AlbumSongsView
)

const (
	fieldEndpoint = iota
	fieldUsername
	fieldPassword
)

// ModelOpts contains the dependencies of a [Model].
type ModelOpts struct {
	Library  services.Library
	Player   player.Player
	PageSize int
	Username string // prefilled on the login form
	Password string
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	library  services.Library
	player   player.Player
	pageSize int

	width  int
	height int

	inputs  []textinput.Model
	focused int

	songList     list.Model
	songOffset   int
	albumList    list.Model
	albumOffset  int
	albumSongs   list.Model
	currentAlbum models.Album

	nowPlaying *models.Song
	status     string
	loading    bool
	err        error

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
//
// The model opens on the song list when the library already holds a session, otherwise on the login form.
func NewModel(ctx context.Context, opts ModelOpts) *Model {
	if opts.PageSize <= 0 {
		opts.PageSize = services.DefaultPageSize
	}

	m := &Model{
		ctx:        ctx,
		library:    opts.Library,
		player:     opts.Player,
		pageSize:   opts.PageSize,
		songList:   newList("Songs"),
		albumList:  newList("Albums"),
		albumSongs: newList("Album"),
		help:       help.New(),
		keys:       newKeyMap(),
	}
	m.inputs = newLoginInputs(opts.Library.Session().BaseURL, opts.Username, opts.Password)

	if opts.Library.Session().Authenticated() {
		m.view = SongListView
	} else {
		m.view = LoginView
		m.focusInput(m.firstEmptyInput())
	}
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	return l
}

func newLoginInputs(endpoint, username, password string) []textinput.Model {
	inputs := make([]textinput.Model, 3)

	inputs[fieldEndpoint] = textinput.New()
	inputs[fieldEndpoint].Placeholder = "http://diskstation:5000"
	inputs[fieldEndpoint].SetValue(strings.TrimSuffix(endpoint, "/"))

	inputs[fieldUsername] = textinput.New()
	inputs[fieldUsername].Placeholder = "account"
	inputs[fieldUsername].SetValue(username)

	inputs[fieldPassword] = textinput.New()
	inputs[fieldPassword].Placeholder = "password"
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldPassword].SetValue(password)

	return inputs
}

func (m *Model) firstEmptyInput() int {
	for i, in := range m.inputs {
		if in.Value() == "" {
			return i
		}
	}
	return fieldPassword
}

func (m *Model) focusInput(i int) tea.Cmd {
	m.focused = i
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == i {
			cmd = m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	return cmd
}

// View returns the current view state.
func (m *Model) View() string {
	switch m.view {
	case LoginView:
		return m.renderLogin()
	case SongListView:
		return m.renderList(m.songList, m.songOffset, []key.Binding{m.keys.enter, m.keys.tab, m.keys.prev, m.keys.next, m.keys.stop, m.keys.logout, m.keys.quit})
	case AlbumListView:
		return m.renderList(m.albumList, m.albumOffset, []key.Binding{m.keys.enter, m.keys.tab, m.keys.prev, m.keys.next, m.keys.logout, m.keys.quit})
	case AlbumSongsView:
		return m.renderList(m.albumSongs, -1, []key.Binding{m.keys.enter, m.keys.back, m.keys.stop, m.keys.quit})
	default:
		return ""
	}
}

// Init fetches the first page of songs when a session exists.
func (m *Model) Init() tea.Cmd {
	if m.view == LoginView {
		return textinput.Blink
	}
	return m.fetchSongs(0)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, l := range []*list.Model{&m.songList, &m.albumList, &m.albumSongs} {
			l.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		switch m.view {
		case LoginView:
			return m.handleLoginKeys(msg)
		case SongListView:
			return m.handleSongListKeys(msg)
		case AlbumListView:
			return m.handleAlbumListKeys(msg)
		case AlbumSongsView:
			return m.handleAlbumSongsKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateActive(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	m.loading = false

	switch msg.kind {
	case MsgLoggedIn:
		data := msg.data.(loggedInData)
		if data.err != nil {
			m.err = data.err
			m.status = services.Describe(data.err)
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Connected to %s", data.endpoint)
		m.inputs[fieldPassword].SetValue("")
		m.view = SongListView
		return m, m.fetchSongs(0)

	case MsgLoggedOut:
		m.toLogin("Logged out")
		return m, nil

	case MsgSongsFetched:
		data := msg.data.(songsData)
		if data.err != nil {
			return m, m.fail(data.err)
		}
		m.songOffset = data.offset
		m.err = nil
		return m, m.songList.SetItems(songItems(data.songs))

	case MsgAlbumsFetched:
		data := msg.data.(albumsData)
		if data.err != nil {
			return m, m.fail(data.err)
		}
		m.albumOffset = data.offset
		m.err = nil
		return m, m.albumList.SetItems(albumItems(data.albums))

	case MsgAlbumSongsFetched:
		data := msg.data.(albumSongsData)
		if data.err != nil {
			return m, m.fail(data.err)
		}
		m.err = nil
		m.currentAlbum = data.album
		m.albumSongs.Title = data.album.String()
		m.view = AlbumSongsView
		return m, m.albumSongs.SetItems(songItems(data.songs))

	case MsgPlaybackStarted:
		data := msg.data.(playbackData)
		if data.err != nil {
			return m, m.fail(data.err)
		}
		song := data.song
		m.nowPlaying = &song
		m.err = nil
		return m, nil
	}
	return m, nil
}

// fail records err; an expired session returns to the login form.
func (m *Model) fail(err error) tea.Cmd {
	if errors.Is(err, shared.ErrSessionExpired) || errors.Is(err, shared.ErrNotAuthenticated) {
		m.toLogin("Session expired, please log in again")
		return m.focusInput(m.firstEmptyInput())
	}
	m.err = err
	m.status = services.Describe(err)
	return nil
}

func (m *Model) toLogin(status string) {
	m.view = LoginView
	m.status = status
	m.err = nil
	m.nowPlaying = nil
	if m.player != nil {
		m.player.Stop()
	}
	m.inputs[fieldEndpoint].SetValue(strings.TrimSuffix(m.library.Session().BaseURL, "/"))
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, m.quit()
	case "tab", "down":
		return m, m.focusInput((m.focused + 1) % len(m.inputs))
	case "shift+tab", "up":
		return m, m.focusInput((m.focused + len(m.inputs) - 1) % len(m.inputs))
	case "enter":
		if m.focused < fieldPassword {
			return m, m.focusInput(m.focused + 1)
		}
		return m, m.login()
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

func (m *Model) handleSongListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.songList.FilterState() == list.Filtering {
		return m.updateActive(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.songList.SelectedItem().(songItem); ok {
			return m, m.play(item.song)
		}
		return m, nil
	case key.Matches(msg, m.keys.tab):
		m.view = AlbumListView
		if len(m.albumList.Items()) == 0 {
			return m, m.fetchAlbums(0)
		}
		return m, nil
	case key.Matches(msg, m.keys.next):
		if len(m.songList.Items()) < m.pageSize {
			return m, nil
		}
		return m, m.fetchSongs(m.songOffset + m.pageSize)
	case key.Matches(msg, m.keys.prev):
		if m.songOffset == 0 {
			return m, nil
		}
		return m, m.fetchSongs(max(m.songOffset-m.pageSize, 0))
	case key.Matches(msg, m.keys.reload):
		return m, m.fetchSongs(m.songOffset)
	case key.Matches(msg, m.keys.stop):
		m.stop()
		return m, nil
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	}
	return m.updateActive(msg)
}

func (m *Model) handleAlbumListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.albumList.FilterState() == list.Filtering {
		return m.updateActive(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.albumList.SelectedItem().(albumItem); ok {
			return m, m.fetchAlbumSongs(item.album)
		}
		return m, nil
	case key.Matches(msg, m.keys.tab):
		m.view = SongListView
		return m, nil
	case key.Matches(msg, m.keys.next):
		if len(m.albumList.Items()) < m.pageSize {
			return m, nil
		}
		return m, m.fetchAlbums(m.albumOffset + m.pageSize)
	case key.Matches(msg, m.keys.prev):
		if m.albumOffset == 0 {
			return m, nil
		}
		return m, m.fetchAlbums(max(m.albumOffset-m.pageSize, 0))
	case key.Matches(msg, m.keys.reload):
		return m, m.fetchAlbums(m.albumOffset)
	case key.Matches(msg, m.keys.stop):
		m.stop()
		return m, nil
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	}
	return m.updateActive(msg)
}

func (m *Model) handleAlbumSongsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.albumSongs.FilterState() == list.Filtering {
		return m.updateActive(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.back):
		m.view = AlbumListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.albumSongs.SelectedItem().(songItem); ok {
			return m, m.play(item.song)
		}
		return m, nil
	case key.Matches(msg, m.keys.stop):
		m.stop()
		return m, nil
	}
	return m.updateActive(msg)
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case SongListView:
		m.songList, cmd = m.songList.Update(msg)
	case AlbumListView:
		m.albumList, cmd = m.albumList.Update(msg)
	case AlbumSongsView:
		m.albumSongs, cmd = m.albumSongs.Update(msg)
	case LoginView:
		m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	}
	return m, cmd
}

func (m *Model) quit() tea.Cmd {
	m.stop()
	return tea.Quit
}

func (m *Model) stop() {
	if m.player != nil {
		m.player.Stop()
	}
	m.nowPlaying = nil
}

func (m *Model) login() tea.Cmd {
	endpoint := strings.TrimSpace(m.inputs[fieldEndpoint].Value())
	username := strings.TrimSpace(m.inputs[fieldUsername].Value())
	password := m.inputs[fieldPassword].Value()

	if endpoint == "" || username == "" || password == "" {
		m.status = "NAS address, account and password are required"
		return nil
	}

	m.loading = true
	m.status = "Logging in..."
	return func() tea.Msg {
		normalized := m.library.SetEndpoint(endpoint)
		_, err := m.library.Login(m.ctx, username, password)
		return loggedInMsg(normalized, err)
	}
}

func (m *Model) logout() tea.Cmd {
	m.stop()
	return func() tea.Msg {
		m.library.Logout(m.ctx)
		return loggedOutMsg()
	}
}

func (m *Model) fetchSongs(offset int) tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		songs, err := m.library.ListSongs(m.ctx, offset, m.pageSize)
		return songsFetchedMsg(songs, offset, err)
	}
}

func (m *Model) fetchAlbums(offset int) tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		albums, err := m.library.ListAlbums(m.ctx, offset, m.pageSize)
		return albumsFetchedMsg(albums, offset, err)
	}
}

func (m *Model) fetchAlbumSongs(album models.Album) tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		songs, err := m.library.ListAlbumSongs(m.ctx, album)
		return albumSongsFetchedMsg(album, songs, err)
	}
}

func (m *Model) play(song models.Song) tea.Cmd {
	return func() tea.Msg {
		streamURL, err := m.library.StreamURL(song.ID)
		if err != nil {
			return playbackStartedMsg(song, err)
		}
		if m.player == nil {
			return playbackStartedMsg(song, fmt.Errorf("%w: no player configured", shared.ErrInvalidConfig))
		}
		return playbackStartedMsg(song, m.player.Play(m.ctx, streamURL))
	}
}

func (m *Model) renderLogin() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Synology Audio Station"))
	b.WriteString("\n")

	labels := []string{"NAS", "Account", "Password"}
	for i, in := range m.inputs {
		fmt.Fprintf(&b, "%s %s\n", styles.label.Render(labels[i]), in.View())
	}

	if m.status != "" {
		style := styles.warn
		if m.err != nil {
			style = styles.err
		}
		b.WriteString("\n" + style.Render(m.status) + "\n")
	}

	login := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "log in"))
	next := key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field"))
	quit := key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "quit"))
	b.WriteString("\n" + m.help.ShortHelpView([]key.Binding{login, next, quit}))
	return b.String()
}

func (m *Model) renderList(l list.Model, offset int, helpKeys []key.Binding) string {
	sections := []string{l.View()}

	if offset >= 0 {
		page := fmt.Sprintf("items %d-%d", offset+1, offset+len(l.Items()))
		if len(l.Items()) == 0 {
			page = "no items"
		}
		if m.loading {
			page += " • loading..."
		}
		sections = append(sections, styles.help.Render(page))
	}

	if m.nowPlaying != nil {
		sections = append(sections, styles.playing.Render(fmt.Sprintf("▶ %s - %s [%s]",
			m.nowPlaying.Artist, m.nowPlaying.Title, shared.FormatDuration(m.nowPlaying.Duration))))
	}

	if m.err != nil {
		sections = append(sections, styles.err.Render("Error: "+m.status))
	} else if m.status != "" {
		sections = append(sections, styles.ok.Render(m.status))
	}

	sections = append(sections, m.help.ShortHelpView(helpKeys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
