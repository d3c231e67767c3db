// package formatter renders run summaries and ranking previews as plain text, Markdown, CSV, JSON or YAML
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/rankify/internal/ranking"
	"github.com/desertthunder/rankify/internal/shared"
	"github.com/desertthunder/rankify/internal/tasks"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

// Format names an output format accepted by [Summary].
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
	YAML     Format = "yaml"
)

// Formats lists every supported format, in the order shown in help text.
var Formats = []Format{Text, Markdown, CSV, JSON, YAML}

// ParseFormat validates a user-supplied format name. The empty string means [Text].
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return Text, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// Summary renders a run summary in the given format.
func Summary(s *tasks.Summary, f Format) ([]byte, error) {
	switch f {
	case Text, "":
		return SummaryToText(s)
	case Markdown:
		return SummaryToMarkdown(s)
	case CSV:
		return SummaryToCSV(s)
	case JSON:
		return json.MarshalIndent(s, "", "  ")
	case YAML:
		return SummaryToYAML(s)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

func playlistName(s *tasks.Summary) string {
	if s.Playlist == nil {
		return ""
	}
	return s.Playlist.Name
}

func status(o tasks.Outcome) string {
	if o.Resolved() {
		return "resolved"
	}
	return "unresolved"
}

// SummaryToText converts a Summary to the final count lines printed after a run
func SummaryToText(s *tasks.Summary) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", playlistName(s)))
	if s.Playlist != nil && s.Playlist.URL != "" {
		buf.WriteString(fmt.Sprintf("URL: %s\n", s.Playlist.URL))
	}
	if s.DryRun {
		buf.WriteString("Mode: dry run (nothing was written)\n")
	}
	buf.WriteString(fmt.Sprintf("Requested: %d\n", s.Requested))
	buf.WriteString(fmt.Sprintf("Resolved: %d\n", s.Resolved))
	buf.WriteString(fmt.Sprintf("Added: %d\n", s.Added))

	if len(s.UnresolvedTitles) > 0 {
		buf.WriteString(fmt.Sprintf("\nUnresolved (%d):\n", len(s.UnresolvedTitles)))
		for _, title := range s.UnresolvedTitles {
			buf.WriteString(fmt.Sprintf("  - %s\n", title))
		}
	}

	if len(s.FailedBatches) > 0 {
		buf.WriteString(fmt.Sprintf("\nFailed batches (%d):\n", len(s.FailedBatches)))
		for _, f := range s.FailedBatches {
			buf.WriteString(fmt.Sprintf("  - %s\n", f.Error))
		}
	}

	return buf.Bytes(), nil
}

// SummaryToMarkdown converts a Summary to a Markdown report with a per-title table
func SummaryToMarkdown(s *tasks.Summary) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", playlistName(s)))

	if s.Playlist != nil {
		if s.Playlist.Description != "" {
			buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", s.Playlist.Description))
		}
		if s.Playlist.URL != "" {
			buf.WriteString(fmt.Sprintf("**Link**: <%s>\n\n", s.Playlist.URL))
		}
		buf.WriteString(fmt.Sprintf("**Visibility**: %s\n", shared.VisibilityString(s.Playlist.Public)))
	}
	buf.WriteString(fmt.Sprintf("**Requested**: %d\n", s.Requested))
	buf.WriteString(fmt.Sprintf("**Resolved**: %d\n", s.Resolved))
	buf.WriteString(fmt.Sprintf("**Added**: %d\n", s.Added))
	if !s.StartedAt.IsZero() && !s.CompletedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("**Duration**: %s\n", s.CompletedAt.Sub(s.StartedAt).Round(time.Millisecond)))
	}
	if s.DryRun {
		buf.WriteString("**Dry run**: yes\n")
	}

	buf.WriteString("\n## Tracks\n\n")
	buf.WriteString("| Rank | Title | Query | Result |\n")
	buf.WriteString("| --- | --- | --- | --- |\n")
	for _, o := range s.Outcomes {
		result := o.TrackID
		if !o.Resolved() {
			result = "✗ " + o.Reason
		}
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			escapeCell(o.Entry.Rank), escapeCell(o.Entry.Title), escapeCell(o.Query), escapeCell(result)))
	}

	if len(s.FailedBatches) > 0 {
		buf.WriteString("\n## Failed Batches\n\n")
		for _, f := range s.FailedBatches {
			buf.WriteString(fmt.Sprintf("- Batch %d (%d tracks): %s\n", f.Index, f.Size, f.Error))
		}
	}

	return buf.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// SummaryToCSV converts a Summary's outcomes to CSV with columns: Position, Rank, Title, Query, Status, TrackURI, Reason
func SummaryToCSV(s *tasks.Summary) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Rank", "Title", "Query", "Status", "TrackURI", "Reason"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, o := range s.Outcomes {
		record := []string{
			strconv.Itoa(i + 1),
			o.Entry.Rank,
			o.Entry.Title,
			o.Query,
			status(o),
			o.TrackID,
			o.Reason,
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

type yamlOutcome struct {
	Rank    string `yaml:"rank"`
	Title   string `yaml:"title"`
	Query   string `yaml:"query"`
	TrackID string `yaml:"track_id,omitempty"`
	Reason  string `yaml:"reason,omitempty"`
}

type yamlSummary struct {
	RunID            string               `yaml:"run_id"`
	Playlist         string               `yaml:"playlist"`
	PlaylistID       string               `yaml:"playlist_id,omitempty"`
	Artist           string               `yaml:"artist,omitempty"`
	Requested        int                  `yaml:"requested"`
	Resolved         int                  `yaml:"resolved"`
	Added            int                  `yaml:"added"`
	DryRun           bool                 `yaml:"dry_run"`
	UnresolvedTitles []string             `yaml:"unresolved_titles,omitempty"`
	FailedBatches    []tasks.BatchFailure `yaml:"failed_batches,omitempty"`
	Outcomes         []yamlOutcome        `yaml:"outcomes"`
}

// SummaryToYAML converts a Summary to YAML
func SummaryToYAML(s *tasks.Summary) ([]byte, error) {
	out := yamlSummary{
		RunID:            s.RunID,
		Playlist:         playlistName(s),
		Artist:           s.Artist,
		Requested:        s.Requested,
		Resolved:         s.Resolved,
		Added:            s.Added,
		DryRun:           s.DryRun,
		UnresolvedTitles: s.UnresolvedTitles,
		FailedBatches:    s.FailedBatches,
		Outcomes:         make([]yamlOutcome, len(s.Outcomes)),
	}
	if s.Playlist != nil {
		out.PlaylistID = s.Playlist.ID
	}
	for i, o := range s.Outcomes {
		out.Outcomes[i] = yamlOutcome{
			Rank:    o.Entry.Rank,
			Title:   o.Entry.Title,
			Query:   o.Query,
			TrackID: o.TrackID,
			Reason:  o.Reason,
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// EntriesToText renders parsed entries with the query each would be searched with, aligning the
// title column by display width.
func EntriesToText(entries []ranking.Entry, query func(string) string) ([]byte, error) {
	var buf bytes.Buffer

	rankWidth := len("Rank")
	titleWidth := len("Title")
	for _, e := range entries {
		rankWidth = max(rankWidth, runewidth.StringWidth(e.Rank))
		titleWidth = max(titleWidth, runewidth.StringWidth(e.Title))
	}

	buf.WriteString(fmt.Sprintf("%s  %s  %s\n",
		runewidth.FillRight("Rank", rankWidth), runewidth.FillRight("Title", titleWidth), "Query"))
	for _, e := range entries {
		buf.WriteString(fmt.Sprintf("%s  %s  %s\n",
			runewidth.FillRight(e.Rank, rankWidth), runewidth.FillRight(e.Title, titleWidth), query(e.Title)))
	}
	buf.WriteString(fmt.Sprintf("\n%d entries\n", len(entries)))

	return buf.Bytes(), nil
}

type previewEntry struct {
	Line  int    `json:"line"`
	Rank  string `json:"rank"`
	Title string `json:"title"`
	Query string `json:"query"`
}

// EntriesToJSON renders parsed entries with their search queries as a JSON array
func EntriesToJSON(entries []ranking.Entry, query func(string) string) ([]byte, error) {
	preview := make([]previewEntry, len(entries))
	for i, e := range entries {
		preview[i] = previewEntry{Line: e.Line, Rank: e.Rank, Title: e.Title, Query: query(e.Title)}
	}
	return json.MarshalIndent(preview, "", "  ")
}
