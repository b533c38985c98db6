// Package warning implements the sliding-window warning debouncer: a
// threshold counter that fires a callback when enough qualifying
// detections land within one ticker interval.
package warning

import (
	"sync"
	"time"

	"github.com/five82/videopipe/internal/frame"
)

// Report is the snapshot handed to a Window's callback when it fires.
type Report struct {
	Count           int
	WindowMS        int64
	LatestLabel     string
	LatestTimestamp int64
	LatestFrame     frame.Frame
}

// Callback is invoked on the window's own ticker goroutine. It must not
// block for longer than one window interval — a slow callback delays every
// subsequent tick.
type Callback func(Report)

// Window is a ticker-driven debouncer: Record is safe to call from any
// stage goroutine; a single background ticker goroutine owns the decision
// to fire and the reset of its counters.
type Window struct {
	windowMS  int64
	threshold int
	callback  Callback

	mu        sync.Mutex
	count     int
	lastLabel string
	lastTS    int64
	lastFrame frame.Frame

	ticker *time.Ticker
	stop   chan struct{}
	done   chan struct{}
}

// New starts a Window that ticks every window and, on each tick, fires
// callback with the accumulated count if count >= threshold, then resets.
// The returned Window must be stopped with Close.
func New(window time.Duration, threshold int, callback Callback) *Window {
	w := &Window{
		windowMS:  window.Milliseconds(),
		threshold: threshold,
		callback:  callback,
		ticker:    time.NewTicker(window),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go w.run()
	return w
}

// Record registers one qualifying detection. Safe to call concurrently
// from any number of goroutines. The passed frame reference is retained
// (not cloned) as the "latest" until superseded by a later Record or
// consumed by a firing callback; callers give up ownership of frame to the
// Window exactly like handing it to a queue.
func (w *Window) Record(label string, timestamp int64, fr frame.Frame) {
	w.mu.Lock()
	prev := w.lastFrame
	w.count++
	w.lastLabel = label
	w.lastTS = timestamp
	w.lastFrame = fr
	w.mu.Unlock()

	if prev.Valid() {
		prev.Release()
	}
}

func (w *Window) run() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case <-w.ticker.C:
			w.fireIfDue()
		}
	}
}

func (w *Window) fireIfDue() {
	w.mu.Lock()
	count := w.count
	label := w.lastLabel
	ts := w.lastTS
	fr := w.lastFrame
	w.count = 0
	if count >= w.threshold {
		w.lastFrame = frame.Frame{}
	}
	w.mu.Unlock()

	if count < w.threshold {
		return
	}
	if w.callback != nil {
		w.callback(Report{
			Count:           count,
			WindowMS:        w.windowMS,
			LatestLabel:     label,
			LatestTimestamp: ts,
			LatestFrame:     fr,
		})
	}
	if fr.Valid() {
		fr.Release()
	}
}

// SetThreshold changes the count of qualifying detections a window must
// accumulate before it fires. Safe to call concurrently with Record and
// while the ticker goroutine is running; takes effect on the next tick.
func (w *Window) SetThreshold(threshold int) {
	w.mu.Lock()
	w.threshold = threshold
	w.mu.Unlock()
}

// Close stops the ticker and waits for the run goroutine to exit. Any
// outstanding "latest" frame reference that never fired is released.
// Close is not idempotent: a second call panics when it closes the
// already-closed stop channel, so callers must call it exactly once.
func (w *Window) Close() {
	w.ticker.Stop()
	close(w.stop)
	<-w.done

	w.mu.Lock()
	fr := w.lastFrame
	w.lastFrame = frame.Frame{}
	w.mu.Unlock()
	if fr.Valid() {
		fr.Release()
	}
}
