// Package progress renders phase progress for long scans on stderr.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar for one phase of a scan. A nil Tracker
// is valid and does nothing, so callers can disable progress wholesale.
type Tracker struct {
	bar   *progressbar.ProgressBar
	label string
}

func newTracker(label string, total int, extra ...progressbar.Option) *Tracker {
	opts := append([]progressbar.Option{
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(label),
	}, extra...)
	return &Tracker{bar: progressbar.NewOptions(total, opts...), label: label}
}

// NewSpinner creates a spinner for a phase with no known total.
func NewSpinner(label string) *Tracker {
	return newTracker(label, -1,
		progressbar.OptionSetWidth(20),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

// NewCounter creates a bar for a phase with a known item count.
func NewCounter(label string, total int) *Tracker {
	return newTracker(label, total,
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// Tick increments progress by one item. Safe for concurrent use.
func (t *Tracker) Tick() {
	if t == nil {
		return
	}
	t.bar.Add(1)
}

// Done clears the bar without trailing output.
func (t *Tracker) Done() {
	if t == nil {
		return
	}
	t.clear()
}

// Fail clears the bar and reports the phase error on stderr.
func (t *Tracker) Fail(err error) {
	if t == nil {
		return
	}
	t.clear()
	fmt.Fprintf(os.Stderr, "  %s error: %v\n", t.label, err)
}

func (t *Tracker) clear() {
	t.bar.Finish()
	t.bar.Clear()
}
