// package formatter renders track lists as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/tidalbridge/internal/models"
	"github.com/desertthunder/tidalbridge/internal/shared"
)

// Format names accepted by [Render].
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists every supported output format.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// Normalize maps a user supplied format name onto one of [Formats].
//
// Names are case-insensitive; "md" and "text" are aliases. Unknown names are returned lowercased.
func Normalize(format string) string {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "md":
		return FormatMarkdown
	case "text":
		return FormatText
	default:
		return f
	}
}

// IsValid reports whether format, after [Normalize], is one of [Formats].
func IsValid(format string) bool {
	return slices.Contains(Formats, Normalize(format))
}

// Render converts tracks to the requested non-JSON format. title heads the Markdown and text output.
func Render(format, title string, tracks []models.Track) ([]byte, error) {
	switch Normalize(format) {
	case FormatCSV:
		return ToCSV(tracks)
	case FormatMarkdown:
		return ToMarkdown(title, tracks)
	case FormatText:
		return ToText(title, tracks)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
	}
}

// ToCSV converts tracks to CSV with columns: ID, Title, Artist, Album, Duration
func ToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			strconv.Itoa(track.Duration),
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

// ToMarkdown converts tracks to a numbered Markdown list
func ToMarkdown(title string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range tracks {
		albumPart := ""
		if track.Album != "" && track.Album != models.UnknownField {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Title, albumPart, shared.FormatDuration(track.Duration))
	}

	return buf.Bytes(), nil
}

// ToText converts tracks to plain text
func ToText(title string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", title)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(tracks))

	for i, track := range tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artist, track.Title)
	}

	return buf.Bytes(), nil
}
