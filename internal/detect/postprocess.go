package detect

import "sort"

// FilterByConfidence drops boxes whose confidence is below the threshold.
func FilterByConfidence(boxes []BoundingBox, threshold float64) []BoundingBox {
	out := make([]BoundingBox, 0, len(boxes))
	for _, b := range boxes {
		if b.Confidence >= threshold {
			out = append(out, b)
		}
	}
	return out
}

// iou computes intersection-over-union between two axis-aligned boxes
// given in (x, y, w, h) form with (x, y) as the top-left corner.
func iou(a, b BoundingBox) float64 {
	ax1, ay1, ax2, ay2 := a.X, a.Y, a.X+a.W, a.Y+a.H
	bx1, by1, bx2, by2 := b.X, b.Y, b.X+b.W, b.Y+b.H

	ix1, iy1 := max(ax1, bx1), max(ay1, by1)
	ix2, iy2 := min(ax2, bx2), min(ay2, by2)

	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	intersection := iw * ih
	union := a.W*a.H + b.W*b.H - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// NonMaxSuppress removes lower-confidence boxes that overlap a
// higher-confidence box by more than iouThreshold, regardless of label —
// matching cv::dnn::NMSBoxes, which suppresses across the whole box set
// rather than grouping by class.
func NonMaxSuppress(boxes []BoundingBox, iouThreshold float64) []BoundingBox {
	sorted := make([]BoundingBox, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]BoundingBox, 0, len(sorted))
	suppressed := make([]bool, len(sorted))
	for i, b := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, b)
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] {
				continue
			}
			if iou(b, sorted[j]) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

// Postprocess runs the detector's confidence filter, class-agnostic NMS,
// inverse-letterbox coordinate mapping, and MaxBoxesPerFrame truncation,
// producing the DetectionBatch published to box-Q.
func Postprocess(raw []BoundingBox, lb Letterbox, confidence, iouThreshold float64, pts int64) DetectionBatch {
	filtered := FilterByConfidence(raw, confidence)
	suppressed := NonMaxSuppress(filtered, iouThreshold)

	mapped := make([]BoundingBox, len(suppressed))
	for i, b := range suppressed {
		mapped[i] = lb.Inverse(b)
	}

	sort.SliceStable(mapped, func(i, j int) bool {
		return mapped[i].Confidence > mapped[j].Confidence
	})
	if len(mapped) > MaxBoxesPerFrame {
		mapped = mapped[:MaxBoxesPerFrame]
	}

	return DetectionBatch{PTS: pts, Boxes: mapped}
}
