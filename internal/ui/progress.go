package ui

import (
	"fmt"
	"io"

	"github.com/desertthunder/rankify/internal/tasks"
)

const (
	okMark   = "✓"
	failMark = "✗"
)

// Reporter prints pipeline progress as it arrives.
//
// Successful updates go to out prefixed with ✓. Failed ones go to errOut prefixed with ✗.
type Reporter struct {
	out     io.Writer
	errOut  io.Writer
	palette *Palette

	printed int
	failed  int
}

// NewReporter creates a reporter. A nil palette prints plain text.
func NewReporter(out, errOut io.Writer, palette *Palette) *Reporter {
	if palette == nil {
		palette = PlainPalette()
	}
	return &Reporter{out: out, errOut: errOut, palette: palette}
}

// Line formats a single update without writing it.
func (r *Reporter) Line(update tasks.ProgressUpdate) string {
	if update.Failed {
		return r.palette.Err(failMark) + " " + update.Message
	}
	return r.palette.OK(okMark) + " " + update.Message
}

// Report writes one update.
func (r *Reporter) Report(update tasks.ProgressUpdate) {
	if update.Failed {
		r.failed++
		fmt.Fprintln(r.errOut, r.Line(update))
		return
	}
	r.printed++
	fmt.Fprintln(r.out, r.Line(update))
}

// Consume reports every update until progress is closed.
func (r *Reporter) Consume(progress <-chan tasks.ProgressUpdate) {
	for update := range progress {
		r.Report(update)
	}
}

// Counts returns how many success and failure lines were written.
func (r *Reporter) Counts() (ok, failed int) {
	return r.printed, r.failed
}
