// package formatter renders library data as terminal tables and exports album tracklists to CSV, Markdown, plain text and JSON
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/desertthunder/synoplay/internal/models"
	"github.com/desertthunder/synoplay/internal/shared"
)

// Export formats
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "text"
	FormatJSON     = "json"
)

// Formats lists every supported export format.
var Formats = []string{FormatCSV, FormatMarkdown, FormatText, FormatJSON}

// ParseFormat validates an export format name.
func ParseFormat(s string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(s))
	switch f {
	case "md":
		return FormatMarkdown, nil
	case "txt":
		return FormatText, nil
	case FormatCSV, FormatMarkdown, FormatText, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (expected one of %s)", shared.ErrInvalidArgument, s, strings.Join(Formats, ", "))
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// SongTable renders songs as a bordered table, numbered from offset+1.
func SongTable(songs []models.Song, offset int) string {
	t := newTable("#", "ID", "Title", "Artist", "Album", "Length")
	for i, song := range songs {
		t.Row(strconv.Itoa(offset+i+1), song.ID, song.Title, song.Artist, song.Album, shared.FormatDuration(song.Duration))
	}
	return t.String()
}

// AlbumTable renders albums as a bordered table, numbered from offset+1.
func AlbumTable(albums []models.Album, offset int) string {
	t := newTable("#", "Album", "Artist", "Year")
	for i, album := range albums {
		year := ""
		if album.Year > 0 {
			year = strconv.Itoa(album.Year)
		}
		t.Row(strconv.Itoa(offset+i+1), album.Name, album.Artist, year)
	}
	return t.String()
}

// ExportToCSV converts songs to CSV with columns: ID, Title, Artist, Album, Track, Duration, Path
func ExportToCSV(songs []models.Song) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Track", "Duration", "Path"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range songs {
		record := []string{
			song.ID,
			song.Title,
			song.Artist,
			song.Album,
			strconv.Itoa(song.Track),
			strconv.Itoa(song.Duration),
			song.Path,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts an album export to Markdown with an optional cover image
func ExportToMarkdown(export *models.AlbumExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Album.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if export.Album.Artist != "" {
		fmt.Fprintf(&buf, "**Artist**: %s\n", export.Album.Artist)
	}
	if export.Album.Year > 0 {
		fmt.Fprintf(&buf, "**Year**: %d\n", export.Album.Year)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(export.Songs))
	fmt.Fprintf(&buf, "**Length**: %s\n\n", shared.FormatDuration(export.Duration()))

	buf.WriteString("## Tracks\n\n")
	for i, song := range export.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, song.Artist, song.Title, shared.FormatDuration(song.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts an album export to plain text
func ExportToText(export *models.AlbumExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Album: %s\n", export.Album.Name)
	if export.Album.Artist != "" {
		fmt.Fprintf(&buf, "Artist: %s\n", export.Album.Artist)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Songs))

	for i, song := range export.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, song.Artist, song.Title)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts an album export to indented JSON
func ExportToJSON(export *models.AlbumExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrMissingArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to download image: %w", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: failed to download image: status %d", shared.ErrNetwork, resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// Slug turns an album name into a file-system safe base name.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "album"
	}
	return slug
}

// ExportResult contains the files written by [WriteAlbumExport].
//
// CoverErr is set when the cover could not be saved; the export itself still succeeded.
type ExportResult struct {
	Files    []string
	CoverErr error
}

// WriteAlbumExport writes export into dir in the given format and returns the created files.
//
// Markdown exports get their own directory {dir}/{slug}/README.md and, when the export carries a
// cover URL, {dir}/{slug}/cover.jpg. Other formats write {dir}/{slug}.{ext}.
func WriteAlbumExport(ctx context.Context, export *models.AlbumExport, format, dir string, client *http.Client) (*ExportResult, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	base := Slug(export.Album.Name)
	if export.Album.Artist != "" {
		base = Slug(export.Album.Artist + " " + export.Album.Name)
	}

	var (
		data []byte
		err  error
		path string
	)

	switch format {
	case FormatCSV:
		data, err = ExportToCSV(export.Songs)
		path = filepath.Join(dir, base+".csv")
	case FormatText:
		data, err = ExportToText(export)
		path = filepath.Join(dir, base+".txt")
	case FormatJSON:
		data, err = ExportToJSON(export)
		path = filepath.Join(dir, base+".json")
	case FormatMarkdown:
		return writeMarkdownExport(ctx, export, filepath.Join(dir, base), client)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", format, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return &ExportResult{Files: []string{path}}, nil
}

func writeMarkdownExport(ctx context.Context, export *models.AlbumExport, outputDir string, client *http.Client) (*ExportResult, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &ExportResult{Files: []string{}}

	var coverImageFilename string
	if export.CoverURL != "" {
		imageData, err := DownloadImage(ctx, client, export.CoverURL)
		if err != nil {
			result.CoverErr = err
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				result.CoverErr = fmt.Errorf("failed to save cover image: %w", err)
				coverImageFilename = ""
			} else {
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

// ManifestEntry records the outcome of exporting one album.
type ManifestEntry struct {
	Album  string   `json:"album"`
	Artist string   `json:"artist"`
	Songs  int      `json:"songs"`
	Status string   `json:"status"`
	Files  []string `json:"files,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Manifest summarizes a bulk album export.
type Manifest struct {
	Format            string          `json:"format"`
	ExportedAt        time.Time       `json:"exported_at"`
	TotalAlbums       int             `json:"total_albums"`
	SuccessfulExports int             `json:"successful_exports"`
	FailedExports     int             `json:"failed_exports"`
	Albums            []ManifestEntry `json:"albums"`
}

// WriteManifest writes the manifest as indented JSON to path.
func WriteManifest(manifest Manifest, path string) error {
	data, err := shared.MarshalJSON(manifest, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
