package detect

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestLetterboxMatchesSpecExample(t *testing.T) {
	lb := NewLetterbox(1920, 1080, 640)

	assert.InDelta(t, 0.3333, lb.Scale, 0.001)
	assert.InDelta(t, 0, lb.PadX, 0.01)
	assert.InDelta(t, 140, lb.PadY, 0.5)

	src := BoundingBox{X: 300, Y: 200, W: 50, H: 80, Confidence: 0.9, Label: "person"}
	fwd := lb.Forward(src)

	assert.Equal(t, 100.0, fwd.X)
	assert.Equal(t, 207.0, fwd.Y)
	assert.Equal(t, 17.0, fwd.W)
	assert.Equal(t, 27.0, fwd.H)

	back := lb.Inverse(fwd)
	assert.Equal(t, 300.0, back.X)
	assert.Equal(t, 201.0, back.Y)
	assert.Equal(t, 51.0, back.W)
	assert.Equal(t, 81.0, back.H)
}

func TestLetterboxForwardPreservesConfidenceAndLabel(t *testing.T) {
	lb := NewLetterbox(1920, 1080, 640)
	src := BoundingBox{X: 300, Y: 200, W: 50, H: 80, Confidence: 0.9, Label: "person"}

	want := BoundingBox{X: 100, Y: 207, W: 17, H: 27, Confidence: 0.9, Label: "person"}
	got := lb.Forward(src)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Forward() mismatch (-want +got):\n%s", diff)
	}
}

func TestLetterboxRoundTripWithinOnePixel(t *testing.T) {
	lb := NewLetterbox(1920, 1080, 640)
	cases := []BoundingBox{
		{X: 0, Y: 0, W: 10, H: 10},
		{X: 1910, Y: 1070, W: 10, H: 10},
		{X: 960, Y: 540, W: 200, H: 150},
	}
	for _, b := range cases {
		got := lb.Inverse(lb.Forward(b))
		assert.InDelta(t, b.X, got.X, 1)
		assert.InDelta(t, b.Y, got.Y, 1)
		assert.InDelta(t, b.W, got.W, 1)
		assert.InDelta(t, b.H, got.H, 1)
	}
}
