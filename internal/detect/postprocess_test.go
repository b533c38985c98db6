package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterByConfidenceDropsBelowThreshold(t *testing.T) {
	boxes := []BoundingBox{
		{Confidence: 0.1, Label: "person"},
		{Confidence: 0.3, Label: "person"},
		{Confidence: 0.9, Label: "car"},
	}
	got := FilterByConfidence(boxes, 0.25)
	assert.Len(t, got, 2)
}

func TestNonMaxSuppressKeepsHighestConfidenceOverlap(t *testing.T) {
	boxes := []BoundingBox{
		{X: 0, Y: 0, W: 100, H: 100, Confidence: 0.9, Label: "person"},
		{X: 5, Y: 5, W: 100, H: 100, Confidence: 0.6, Label: "person"},
		{X: 500, Y: 500, W: 50, H: 50, Confidence: 0.8, Label: "person"},
	}
	got := NonMaxSuppress(boxes, 0.5)
	assert.Len(t, got, 2)
	assert.Equal(t, 0.9, got[0].Confidence)
}

func TestNonMaxSuppressIsClassAgnostic(t *testing.T) {
	boxes := []BoundingBox{
		{X: 0, Y: 0, W: 100, H: 100, Confidence: 0.9, Label: "person"},
		{X: 0, Y: 0, W: 100, H: 100, Confidence: 0.8, Label: "car"},
	}
	got := NonMaxSuppress(boxes, 0.1)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "person", got[0].Label, "the higher-confidence box must survive regardless of label")
	}
}

func TestPostprocessTruncatesToMaxBoxes(t *testing.T) {
	lb := NewLetterbox(1920, 1080, 640)
	var raw []BoundingBox
	for i := 0; i < 30; i++ {
		raw = append(raw, BoundingBox{
			X: float64(i * 20), Y: float64(i * 20), W: 5, H: 5,
			Confidence: 0.9 - float64(i)*0.01, Label: "person",
		})
	}
	batch := Postprocess(raw, lb, 0.25, 0.5, 42)
	assert.LessOrEqual(t, len(batch.Boxes), MaxBoxesPerFrame)
	assert.Equal(t, int64(42), batch.PTS)
}

func TestPostprocessOrdersByDescendingConfidence(t *testing.T) {
	lb := NewLetterbox(1920, 1080, 640)
	raw := []BoundingBox{
		{X: 10, Y: 10, W: 5, H: 5, Confidence: 0.5, Label: "person"},
		{X: 300, Y: 300, W: 5, H: 5, Confidence: 0.95, Label: "car"},
	}
	batch := Postprocess(raw, lb, 0.25, 0.5, 1)
	if assert.Len(t, batch.Boxes, 2) {
		assert.Equal(t, "car", batch.Boxes[0].Label)
	}
}
