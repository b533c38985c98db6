// Package render defines the seam between the pipeline core and the
// external presentation surface. Implementations of Display are the
// external collaborator: only the interface the renderer stage consumes
// is specified.
package render

import "github.com/five82/videopipe/internal/detect"

// Display uploads decoded frames and draws detection overlays on top of
// them. Implementations own whatever surface they present to (a window,
// a terminal status line, nothing at all) and must not block longer than
// one frame interval.
type Display interface {
	// Upload pushes a frame's pixel data to the display surface.
	Upload(planeData [][]byte, lineStrides []int, width, height int)

	// DrawBoxes draws the given batch's boxes and labels on top of the
	// most recently uploaded frame. batch may be the zero value when no
	// detections have arrived yet.
	DrawBoxes(batch detect.DetectionBatch)

	// DrawFPS draws an FPS readout computed over a sliding window.
	DrawFPS(fps float64)

	// Present flips/flushes the surface after Upload/DrawBoxes/DrawFPS
	// have been called for the current iteration.
	Present()

	// Close releases any resources held by the display surface.
	Close() error
}
