package detect

import "github.com/five82/videopipe/internal/frame"

// PreprocessYUV420P converts a YUV420P frame into a channel-first,
// [0,1]-normalized RGB float32 buffer letterboxed to targetSize x
// targetSize, ready for Model.Infer. This is core logic — the spec's
// testable coordinate round-trip depends on the same Letterbox this
// function uses — not an external-collaborator concern.
func PreprocessYUV420P(f frame.Frame, targetSize int) ([]float32, Letterbox) {
	w, h := f.Width(), f.Height()
	lb := NewLetterbox(w, h, targetSize)

	planes := f.PlaneData()
	strides := f.LineStrides()
	y, u, v := planes[0], planes[1], planes[2]
	yStride, cStride := strides[0], strides[1]

	out := make([]float32, 3*targetSize*targetSize)
	rPlane := out[0 : targetSize*targetSize]
	gPlane := out[targetSize*targetSize : 2*targetSize*targetSize]
	bPlane := out[2*targetSize*targetSize : 3*targetSize*targetSize]

	for ty := 0; ty < targetSize; ty++ {
		srcYf := (float64(ty) - lb.PadY) / lb.Scale
		if srcYf < 0 || srcYf >= float64(h) {
			continue
		}
		srcY := int(srcYf)

		for tx := 0; tx < targetSize; tx++ {
			srcXf := (float64(tx) - lb.PadX) / lb.Scale
			if srcXf < 0 || srcXf >= float64(w) {
				continue
			}
			srcX := int(srcXf)

			yVal := float64(y[srcY*yStride+srcX])
			uVal := float64(u[(srcY/2)*cStride+srcX/2]) - 128
			vVal := float64(v[(srcY/2)*cStride+srcX/2]) - 128

			r := clamp8(yVal + 1.402*vVal)
			g := clamp8(yVal - 0.344136*uVal - 0.714136*vVal)
			b := clamp8(yVal + 1.772*uVal)

			idx := ty*targetSize + tx
			rPlane[idx] = float32(r) / 255
			gPlane[idx] = float32(g) / 255
			bPlane[idx] = float32(b) / 255
		}
	}

	return out, lb
}

func clamp8(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
