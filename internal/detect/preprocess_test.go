package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/videopipe/internal/frame"
)

func solidYUVFrame(t *testing.T, w, h int, yVal, uVal, vVal byte) frame.Frame {
	t.Helper()
	y := make([]byte, w*h)
	for i := range y {
		y[i] = yVal
	}
	cw, ch := w/2, h/2
	u := make([]byte, cw*ch)
	v := make([]byte, cw*ch)
	for i := range u {
		u[i] = uVal
		v[i] = vVal
	}
	f, err := frame.New(frame.PixelFormatYUV420P, w, h, [][]byte{y, u, v}, []int{w, cw, cw}, 0, 0, frame.TimeBase{1, 25}, nil)
	require.NoError(t, err)
	return f
}

func TestPreprocessYUV420PProducesNormalizedBuffer(t *testing.T) {
	f := solidYUVFrame(t, 1920, 1080, 235, 128, 128) // near-white, neutral chroma
	defer f.Release()

	buf, lb := PreprocessYUV420P(f, 640)
	assert.Len(t, buf, 3*640*640)
	assert.InDelta(t, 0.333, lb.Scale, 0.01)

	planeSize := 640 * 640
	centerIdx := 320*640 + 320
	assert.InDelta(t, 235.0/255.0, buf[centerIdx], 0.02)              // R plane
	assert.InDelta(t, 235.0/255.0, buf[planeSize+centerIdx], 0.02)    // G plane
	assert.InDelta(t, 235.0/255.0, buf[2*planeSize+centerIdx], 0.02)  // B plane
}

func TestPreprocessYUV420PPadsLettersWithZero(t *testing.T) {
	f := solidYUVFrame(t, 1920, 1080, 200, 128, 128)
	defer f.Release()

	buf, _ := PreprocessYUV420P(f, 640)
	planeSize := 640 * 640
	topLeftIdx := 0 // within the top pad band, no source maps here
	assert.Equal(t, float32(0), buf[topLeftIdx])
	assert.Equal(t, float32(0), buf[planeSize+topLeftIdx])
}
