package ranking

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"strings"

	"github.com/desertthunder/rankify/internal/shared"
)

const (
	headerToken = "Rank"
	separator   = "\t"
	bom         = "\ufeff"
)

// Entry is one ranked row of the input.
type Entry struct {
	Line  int    `json:"line"`  // 1-based line number in the source
	Rank  string `json:"rank"`  // text before the first tab, unparsed
	Title string `json:"title"` // trimmed text after the first tab
}

// Entries lazily parses r, yielding one [Entry] per data row.
//
// Parsing stops at the first malformed line, which is yielded as a [*shared.MalformedLineError],
// or at the first read error.
func Entries(r io.Reader) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if lineNo == 1 {
				line = strings.TrimPrefix(line, bom)
			}

			entry, skip, err := parseLine(lineNo, line)
			if skip {
				continue
			}
			if !yield(entry, err) || err != nil {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(Entry{}, fmt.Errorf("failed to read ranking: %w", err))
		}
	}
}

// parseLine reports whether line is skippable, or the entry it holds.
func parseLine(lineNo int, line string) (Entry, bool, error) {
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, headerToken) {
		return Entry{}, true, nil
	}

	rank, title, ok := strings.Cut(line, separator)
	if !ok {
		return Entry{}, false, &shared.MalformedLineError{Line: lineNo, Text: line, Reason: "missing tab separator"}
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return Entry{}, false, &shared.MalformedLineError{Line: lineNo, Text: line, Reason: "empty title"}
	}

	return Entry{Line: lineNo, Rank: strings.TrimSpace(rank), Title: title}, false, nil
}

// ReadAll drains [Entries], returning every entry or the first error.
func ReadAll(r io.Reader) ([]Entry, error) {
	var entries []Entry
	for entry, err := range Entries(r) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ReadFile opens path and parses it completely.
//
// A missing file is reported as a [*shared.SourceNotFoundError].
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &shared.SourceNotFoundError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("failed to open ranking: %w", err)
	}
	defer f.Close()

	return ReadAll(f)
}
