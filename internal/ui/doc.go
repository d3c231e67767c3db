// Package ui renders terminal output for the rankify CLI.
//
// [Palette] wraps [lipgloss] styles for titles, success, error, warning and help text. A plain palette is used
// when stdout is not a terminal so piped output stays free of escape sequences.
//
// [Reporter] drains the pipeline's progress channel and writes one line per update: ✓ lines to stdout, ✗ lines to
// stderr.
package ui
