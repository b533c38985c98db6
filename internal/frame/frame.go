// Package frame provides the reference-counted decoded-video-frame handle
// shared across ingest fan-out and the four consumer stages.
package frame

import (
	"fmt"
	"sync/atomic"
)

// PixelFormat identifies the layout of a Frame's plane data.
type PixelFormat int

const (
	// PixelFormatUnknown is the zero value and is never valid on a
	// published Frame.
	PixelFormatUnknown PixelFormat = iota
	// PixelFormatYUV420P is planar 4:2:0 YUV, the decoder's native output
	// format in this pipeline.
	PixelFormatYUV420P
	// PixelFormatRGB24 is packed 8-bit-per-channel RGB, used as the
	// detector's model-input format after conversion.
	PixelFormatRGB24
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatYUV420P:
		return "yuv420p"
	case PixelFormatRGB24:
		return "rgb24"
	default:
		return "unknown"
	}
}

// TimeBase is the rational unit of one timestamp tick, e.g. {1, 90000}.
type TimeBase struct {
	Num int
	Den int
}

// payload is the shared, refcounted backing store for a Frame's pixel data.
// Exactly one payload exists per decoded frame; every Frame handle cloned
// from it points at the same payload and the same underlying byte slices.
type payload struct {
	refs        atomic.Int64
	format      PixelFormat
	width       int
	height      int
	planeData   [][]byte
	lineStrides []int
	pts         int64
	dts         int64
	timeBase    TimeBase
	release     func()
}

// Frame is an owned handle to a decoded video frame. The zero value is not
// valid; obtain one from New or by cloning an existing Frame. Frame data is
// immutable after New returns — nothing may write through PlaneData()'s
// slices once the frame has been published to a queue.
//
// A Frame transfers ownership on every handoff: enqueuing it gives the
// queue ownership, dequeuing it gives the consumer ownership. The holder of
// a Frame must call Release exactly once when done with it (by dropping it,
// re-enqueuing a Clone, or handing it to an external library that takes
// ownership of the clone).
type Frame struct {
	p *payload
}

// New constructs a Frame with one outstanding reference. onRelease, if
// non-nil, is invoked exactly once, when the last reference is released —
// this is where a codec-owned buffer gets freed back to its decoder.
func New(format PixelFormat, width, height int, planeData [][]byte, lineStrides []int, pts, dts int64, tb TimeBase, onRelease func()) (Frame, error) {
	if width <= 0 || height <= 0 {
		return Frame{}, fmt.Errorf("frame: invalid dimensions %dx%d", width, height)
	}
	if len(planeData) == 0 {
		return Frame{}, fmt.Errorf("frame: no plane data for format %s", format)
	}
	if len(planeData) != len(lineStrides) {
		return Frame{}, fmt.Errorf("frame: %d planes but %d strides", len(planeData), len(lineStrides))
	}

	p := &payload{
		format:      format,
		width:       width,
		height:      height,
		planeData:   planeData,
		lineStrides: lineStrides,
		pts:         pts,
		dts:         dts,
		timeBase:    tb,
		release:     onRelease,
	}
	p.refs.Store(1)
	return Frame{p: p}, nil
}

// Valid reports whether the Frame holds a live reference.
func (f Frame) Valid() bool { return f.p != nil }

// Clone increments the refcount and returns a new handle to the same
// backing pixel memory. No pixel data is copied.
func (f Frame) Clone() Frame {
	if f.p == nil {
		return Frame{}
	}
	f.p.refs.Add(1)
	return f
}

// Release decrements the refcount. The last holder to call Release frees
// the backing buffer via the onRelease callback passed to New. Calling
// Release on an already-released Frame is a programming error and is not
// guarded against, matching the single-owner-per-handle discipline the
// rest of the pipeline follows.
func (f Frame) Release() {
	if f.p == nil {
		return
	}
	if f.p.refs.Add(-1) == 0 && f.p.release != nil {
		f.p.release()
	}
}

// PixelFormat returns the frame's pixel layout.
func (f Frame) PixelFormat() PixelFormat { return f.p.format }

// Width returns the frame width in pixels.
func (f Frame) Width() int { return f.p.width }

// Height returns the frame height in pixels.
func (f Frame) Height() int { return f.p.height }

// PlaneData returns the frame's plane byte slices. Callers must not mutate
// the returned slices — Frame data is immutable after publish.
func (f Frame) PlaneData() [][]byte { return f.p.planeData }

// LineStrides returns the per-plane line stride in bytes.
func (f Frame) LineStrides() []int { return f.p.lineStrides }

// PTS returns the presentation timestamp, in TimeBase units.
func (f Frame) PTS() int64 { return f.p.pts }

// DTS returns the decode timestamp, in TimeBase units.
func (f Frame) DTS() int64 { return f.p.dts }

// TimeBase returns the rational unit of the frame's PTS/DTS.
func (f Frame) TimeBase() TimeBase { return f.p.timeBase }

// RefCount returns the current number of outstanding references. Intended
// for tests and diagnostics, not for control flow.
func (f Frame) RefCount() int64 {
	if f.p == nil {
		return 0
	}
	return f.p.refs.Load()
}
