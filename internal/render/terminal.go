package render

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/fatih/color"

	"github.com/five82/videopipe/internal/detect"
)

// NullDisplay discards everything. Useful when no presentation surface
// is wired, e.g. running the pipeline as a pure recorder/rebroadcaster.
type NullDisplay struct{}

func (NullDisplay) Upload(_ [][]byte, _ []int, _, _ int) {}
func (NullDisplay) DrawBoxes(_ detect.DetectionBatch)    {}
func (NullDisplay) DrawFPS(_ float64)                    {}
func (NullDisplay) Present()                             {}
func (NullDisplay) Close() error                         { return nil }

// TerminalDisplay is the fallback display surface: no real windowing
// system is in scope, so it renders a single overwritten status line
// (frame size, FPS, current detection counts) to a terminal instead of
// pixels.
type TerminalDisplay struct {
	mu     sync.Mutex
	out    io.Writer
	cyan   *color.Color
	green  *color.Color
	yellow *color.Color
	bold   *color.Color
	dim    *color.Color

	frameW, frameH int
	fps            float64
	batch          detect.DetectionBatch
	printed        bool
}

// NewTerminalDisplay creates a TerminalDisplay writing to stderr.
func NewTerminalDisplay() *TerminalDisplay {
	return NewTerminalDisplayWriter(os.Stderr)
}

// NewTerminalDisplayWriter creates a TerminalDisplay writing to w.
func NewTerminalDisplayWriter(w io.Writer) *TerminalDisplay {
	return &TerminalDisplay{
		out:    w,
		cyan:   color.New(color.FgCyan, color.Bold),
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow, color.Bold),
		bold:   color.New(color.Bold),
		dim:    color.New(color.Faint),
	}
}

func (d *TerminalDisplay) Upload(_ [][]byte, _ []int, width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frameW, d.frameH = width, height
}

func (d *TerminalDisplay) DrawBoxes(batch detect.DetectionBatch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batch = batch
}

func (d *TerminalDisplay) DrawFPS(fps float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fps = fps
}

func (d *TerminalDisplay) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()

	counts := labelCounts(d.batch)
	status := d.dim.Sprint("no detections")
	if len(counts) > 0 {
		status = d.green.Sprint(formatCounts(counts))
	}

	line := fmt.Sprintf("%s %dx%d  %s %s  %s",
		d.cyan.Sprint("frame"), d.frameW, d.frameH,
		d.bold.Sprint("fps"), d.yellow.Sprintf("%.1f", d.fps),
		status)

	fmt.Fprintf(d.out, "\r\033[K%s", line)
	d.printed = true
}

func (d *TerminalDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.printed {
		fmt.Fprintln(d.out)
	}
	return nil
}

func labelCounts(batch detect.DetectionBatch) map[string]int {
	counts := make(map[string]int)
	for _, b := range batch.Boxes {
		counts[b.Label]++
	}
	return counts
}

func formatCounts(counts map[string]int) string {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := ""
	for i, label := range labels {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s x%d", label, counts[label])
	}
	return out
}
