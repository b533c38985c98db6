package detect

import "math"

// Letterbox describes the resize-preserve-aspect-ratio + center-pad
// transform from a source frame to a square model input of side
// targetSize, and its inverse.
type Letterbox struct {
	Scale float64
	PadX  float64
	PadY  float64
}

// NewLetterbox computes the letterbox transform for mapping a
// srcWidth x srcHeight frame into a targetSize x targetSize square input.
func NewLetterbox(srcWidth, srcHeight, targetSize int) Letterbox {
	scale := float64(targetSize) / math.Max(float64(srcWidth), float64(srcHeight))
	scaledW := float64(srcWidth) * scale
	scaledH := float64(srcHeight) * scale
	return Letterbox{
		Scale: scale,
		PadX:  (float64(targetSize) - scaledW) / 2,
		PadY:  (float64(targetSize) - scaledH) / 2,
	}
}

// Forward maps a box in source-frame coordinates to letterboxed
// model-input coordinates.
func (l Letterbox) Forward(b BoundingBox) BoundingBox {
	return BoundingBox{
		X:          round1(b.X*l.Scale + l.PadX),
		Y:          round1(b.Y*l.Scale + l.PadY),
		W:          round1(b.W * l.Scale),
		H:          round1(b.H * l.Scale),
		Confidence: b.Confidence,
		Label:      b.Label,
	}
}

// Inverse maps a box in letterboxed model-input coordinates back to
// source-frame coordinates.
func (l Letterbox) Inverse(b BoundingBox) BoundingBox {
	return BoundingBox{
		X:          round1((b.X - l.PadX) / l.Scale),
		Y:          round1((b.Y - l.PadY) / l.Scale),
		W:          round1(b.W / l.Scale),
		H:          round1(b.H / l.Scale),
		Confidence: b.Confidence,
		Label:      b.Label,
	}
}

func round1(v float64) float64 {
	return math.Round(v)
}
