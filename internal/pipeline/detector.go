package pipeline

import (
	"sync/atomic"

	"github.com/five82/videopipe/internal/detect"
	"github.com/five82/videopipe/internal/frame"
	"github.com/five82/videopipe/internal/logging"
	"github.com/five82/videopipe/internal/metrics"
	"github.com/five82/videopipe/internal/perr"
	"github.com/five82/videopipe/internal/queue"
	"github.com/five82/videopipe/internal/token"
	"github.com/five82/videopipe/internal/warning"
)

// DetectorConfig carries the startup-time detection parameters.
type DetectorConfig struct {
	ModelPath    string
	ModelInput   int
	Confidence   float64
	IOUThreshold float64
	WatchLabels  map[string]struct{}
}

// NewWatchSet builds the set DetectorConfig.WatchLabels expects from a
// plain label list.
func NewWatchSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return set
}

// Detector is the C7 stage: it runs inference on frames from detect-Q,
// publishes DetectionBatches to box-Q, and feeds the warning debouncer for
// every box whose label is in the configured watch set.
type Detector struct {
	cfg      DetectorConfig
	in       *queue.Queue
	boxOut   *queue.Queue
	warn     *warning.Window
	tok      *token.Token
	watchSet atomic.Pointer[map[string]struct{}]
}

// NewDetector builds a Detector stage. warn may be nil if no watch labels
// are configured.
func NewDetector(cfg DetectorConfig, in, boxOut *queue.Queue, warn *warning.Window, tok *token.Token) *Detector {
	d := &Detector{cfg: cfg, in: in, boxOut: boxOut, warn: warn, tok: tok}
	set := cfg.WatchLabels
	d.watchSet.Store(&set)
	return d
}

// SetWatchLabels replaces the set of labels that count toward the warning
// debouncer. Safe to call concurrently with Run; takes effect on the next
// processed frame. Intended for the supervisor's config hot-reload path
// (spec.md §6: watch_labels is hot-reloadable).
func (d *Detector) SetWatchLabels(labels []string) {
	set := NewWatchSet(labels)
	d.watchSet.Store(&set)
}

// Run loads the model once, then runs the per-frame detect loop until
// detect-Q is closed or tok is cancelled. A model load failure is fatal
// only to this stage (spec.md §4.7, scenario 3): the pipeline continues
// with box-Q permanently empty.
func (d *Detector) Run() error {
	log := logging.WithComponent("detector")

	model, err := detect.NewModel(d.cfg.ModelPath, d.cfg.ModelInput)
	if err != nil {
		log.Error().Err(err).Msg("failed to load detection model")
		drain(d.in)
		return perr.New(perr.KindModelLoadFailed, "detector", err)
	}
	defer model.Close()

	for {
		item, ok := dequeueOrCancel(d.in, d.tok)
		if !ok {
			log.Info().Msg("queue closed or cancelled")
			return nil
		}
		if item.Kind != queue.ItemKindFrame {
			item.Release()
			continue
		}
		d.processFrame(model, item.Frame)
	}
}

func (d *Detector) processFrame(model *detect.Model, f frame.Frame) {
	defer f.Release()

	if f.PixelFormat() != frame.PixelFormatYUV420P {
		return
	}

	rgb, lb := detect.PreprocessYUV420P(f, d.cfg.ModelInput)
	raw, err := model.Infer(rgb)
	if err != nil {
		return
	}

	batch := detect.Postprocess(raw, lb, d.cfg.Confidence, d.cfg.IOUThreshold, f.PTS())
	for _, box := range batch.Boxes {
		metrics.Detections.WithLabelValues(box.Label).Inc()
	}
	d.boxOut.Enqueue(queue.BoxesItem(batch))

	if d.warn == nil {
		return
	}
	watchSet := *d.watchSet.Load()
	for _, box := range batch.Boxes {
		if _, watched := watchSet[box.Label]; watched {
			d.warn.Record(box.Label, f.PTS(), f.Clone())
		}
	}
}
