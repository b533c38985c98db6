package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeYOLOv8OutputShapesBoxesFromAnchors(t *testing.T) {
	const numAnchors = 2
	const numClasses = 80

	data := make([]float32, (4+numClasses)*numAnchors)
	// Anchor 0: center (100, 100), size 20x40, class 0 ("person") scores highest.
	data[0*numAnchors+0] = 100
	data[1*numAnchors+0] = 100
	data[2*numAnchors+0] = 20
	data[3*numAnchors+0] = 40
	data[(4+0)*numAnchors+0] = 0.8

	// Anchor 1: center (300, 300), size 10x10, class 2 ("car") scores highest.
	data[0*numAnchors+1] = 300
	data[1*numAnchors+1] = 300
	data[2*numAnchors+1] = 10
	data[3*numAnchors+1] = 10
	data[(4+2)*numAnchors+1] = 0.6

	boxes := decodeYOLOv8Output(data, 640)
	require.Len(t, boxes, numAnchors)

	assert.Equal(t, "person", boxes[0].Label)
	assert.InDelta(t, 0.8, boxes[0].Confidence, 1e-6)
	assert.InDelta(t, 90, boxes[0].X, 1e-6) // cx - w/2
	assert.InDelta(t, 80, boxes[0].Y, 1e-6) // cy - h/2

	assert.Equal(t, "car", boxes[1].Label)
	assert.InDelta(t, 0.6, boxes[1].Confidence, 1e-6)
}
