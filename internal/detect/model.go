package detect

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var initOnce sync.Once
var initErr error

func ensureRuntimeInitialized() error {
	initOnce.Do(func() {
		initErr = ort.InitializeEnvironment()
	})
	return initErr
}

// Model wraps an ONNX Runtime session for a YOLOv8-family object detector.
// Model input is a single RGB float32 tensor of shape
// (1, 3, inputSize, inputSize), channel-first, normalized to [0, 1]. Model
// output is assumed to be the standard YOLOv8 (1, 84, N) tensor: 4 box
// coordinates (center-x, center-y, w, h, in model-input pixels) followed by
// 80 per-class scores.
type Model struct {
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	output    *ort.Tensor[float32]
	inputSize int
}

// NewModel loads the ONNX model at path and allocates its input/output
// tensors for repeated inference calls.
func NewModel(path string, inputSize int) (*Model, error) {
	if err := ensureRuntimeInitialized(); err != nil {
		return nil, fmt.Errorf("detect: initialize onnxruntime: %w", err)
	}

	inputShape := ort.NewShape(1, 3, int64(inputSize), int64(inputSize))
	input, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("detect: allocate input tensor: %w", err)
	}

	const numClasses = 80
	const numAnchors = 8400
	outputShape := ort.NewShape(1, int64(4+numClasses), int64(numAnchors))
	output, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("detect: allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(path,
		[]string{"images"}, []string{"output0"},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("detect: load model %s: %w", path, err)
	}

	return &Model{session: session, input: input, output: output, inputSize: inputSize}, nil
}

// Infer runs one forward pass over rgb (a channel-first, normalized
// inputSize*inputSize*3 float32 buffer) and returns raw boxes in
// model-input-space coordinates, before confidence filtering or NMS.
func (m *Model) Infer(rgb []float32) ([]BoundingBox, error) {
	copy(m.input.GetData(), rgb)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("detect: inference run: %w", err)
	}

	return decodeYOLOv8Output(m.output.GetData(), m.inputSize), nil
}

// Close releases the model's session and tensors.
func (m *Model) Close() error {
	if m.session != nil {
		m.session.Destroy()
	}
	if m.input != nil {
		m.input.Destroy()
	}
	if m.output != nil {
		m.output.Destroy()
	}
	return nil
}

// decodeYOLOv8Output converts the raw (1, 84, N) output tensor into
// BoundingBoxes in model-input-space, one per anchor whose best class score
// is taken as its confidence. Confidence filtering and NMS happen later in
// Postprocess.
func decodeYOLOv8Output(data []float32, inputSize int) []BoundingBox {
	const numClasses = 80
	numAnchors := len(data) / (4 + numClasses)
	boxes := make([]BoundingBox, 0, numAnchors)

	for a := 0; a < numAnchors; a++ {
		cx := data[0*numAnchors+a]
		cy := data[1*numAnchors+a]
		w := data[2*numAnchors+a]
		h := data[3*numAnchors+a]

		bestClass := 0
		bestScore := float32(0)
		for c := 0; c < numClasses; c++ {
			score := data[(4+c)*numAnchors+a]
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}

		label := "unknown"
		if bestClass < len(COCOLabels) {
			label = COCOLabels[bestClass]
		}

		boxes = append(boxes, BoundingBox{
			X:          float64(cx - w/2),
			Y:          float64(cy - h/2),
			W:          float64(w),
			H:          float64(h),
			Confidence: float64(bestScore),
			Label:      label,
		})
	}
	return boxes
}
