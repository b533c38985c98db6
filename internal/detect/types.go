package detect

// MaxBoxesPerFrame bounds the number of boxes carried in a single
// DetectionBatch, regardless of how many the model proposes.
const MaxBoxesPerFrame = 20

// BoundingBox is one detected object, in the coordinate system of the
// originating source frame — never the letterboxed inference input.
type BoundingBox struct {
	X          float64
	Y          float64
	W          float64
	H          float64
	Confidence float64
	Label      string
}

// DetectionBatch is an ordered set of boxes produced from a single input
// frame, tagged with that frame's presentation timestamp so the renderer
// can correlate a batch to the frame it was computed from. A newer batch
// always supersedes an older, undelivered one.
type DetectionBatch struct {
	PTS   int64
	Boxes []BoundingBox
}
