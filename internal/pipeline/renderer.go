package pipeline

import (
	"time"

	"github.com/five82/videopipe/internal/detect"
	"github.com/five82/videopipe/internal/frame"
	"github.com/five82/videopipe/internal/logging"
	"github.com/five82/videopipe/internal/perr"
	"github.com/five82/videopipe/internal/queue"
	"github.com/five82/videopipe/internal/render"
	"github.com/five82/videopipe/internal/token"
)

// Renderer is the C8 stage: it presents frames from display-Q at a target
// frame rate, overlaid with the most recently published DetectionBatch
// from box-Q.
type Renderer struct {
	display   render.Display
	displayQ  *queue.Queue
	boxQ      *queue.Queue
	targetFPS int
	tok       *token.Token
}

// NewRenderer builds a Renderer stage. display may be render.NullDisplay{}
// when no presentation surface is wired.
func NewRenderer(display render.Display, displayQ, boxQ *queue.Queue, targetFPS int, tok *token.Token) *Renderer {
	return &Renderer{display: display, displayQ: displayQ, boxQ: boxQ, targetFPS: targetFPS, tok: tok}
}

// Run presents frames until display-Q is closed or tok is cancelled. After
// each iteration it sleeps the remainder of the target frame interval
// rather than trying to catch up on any missed deadline (spec.md §4.8).
func (r *Renderer) Run() error {
	log := logging.WithComponent("renderer")
	defer r.display.Close()

	frameInterval := time.Second / time.Duration(r.targetFPS)
	var cached detect.DetectionBatch
	fpsWindow := newFPSCounter(time.Second)

	for {
		iterStart := time.Now()

		item, ok := dequeueOrCancel(r.displayQ, r.tok)
		if !ok {
			log.Info().Msg("queue closed or cancelled")
			return nil
		}
		if item.Kind != queue.ItemKindFrame {
			item.Release()
			continue
		}
		f := item.Frame

		if f.PixelFormat() != frame.PixelFormatYUV420P {
			f.Release()
			err := perr.New(perr.KindUnsupportedPixelFormat, "renderer", nil)
			log.Warn().Err(err).Msg("dropping frame with unsupported pixel format")
			continue
		}

		r.display.Upload(f.PlaneData(), f.LineStrides(), f.Width(), f.Height())
		f.Release()

		if boxes, gotBoxes := tryLatestBoxes(r.boxQ); gotBoxes {
			cached = boxes
		}
		r.display.DrawBoxes(cached)

		fps := fpsWindow.tick()
		r.display.DrawFPS(fps)
		r.display.Present()

		elapsed := time.Since(iterStart)
		if remaining := frameInterval - elapsed; remaining > 0 {
			select {
			case <-r.tok.Done():
				return nil
			case <-time.After(remaining):
			}
		}
	}
}

// tryLatestBoxes drains boxQ of every currently-buffered batch and returns
// the newest one, since only the latest matters to the renderer (spec.md
// §3's "the renderer only needs the latest").
func tryLatestBoxes(boxQ *queue.Queue) (detect.DetectionBatch, bool) {
	var latest detect.DetectionBatch
	got := false
	for {
		item, result := boxQ.DequeueNonblocking()
		if result != queue.DequeueOK {
			return latest, got
		}
		if item.Kind == queue.ItemKindBoxes {
			latest = item.Boxes
			got = true
		}
	}
}

// fpsCounter computes a frame rate over a sliding window by counting tick
// calls and resetting once the window elapses.
type fpsCounter struct {
	window      time.Duration
	windowStart time.Time
	count       int
	lastFPS     float64
}

func newFPSCounter(window time.Duration) *fpsCounter {
	return &fpsCounter{window: window, windowStart: time.Now()}
}

func (c *fpsCounter) tick() float64 {
	c.count++
	elapsed := time.Since(c.windowStart)
	if elapsed >= c.window {
		c.lastFPS = float64(c.count) / elapsed.Seconds()
		c.count = 0
		c.windowStart = time.Now()
	}
	return c.lastFPS
}
