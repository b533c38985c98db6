package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/five82/videopipe/internal/alert"
	"github.com/five82/videopipe/internal/config"
	"github.com/five82/videopipe/internal/events"
	"github.com/five82/videopipe/internal/logging"
	"github.com/five82/videopipe/internal/metrics"
	"github.com/five82/videopipe/internal/perr"
	"github.com/five82/videopipe/internal/queue"
	"github.com/five82/videopipe/internal/render"
	"github.com/five82/videopipe/internal/token"
	"github.com/five82/videopipe/internal/warning"
)

// StageName identifies one of the five peer stages a Supervisor runs.
type StageName string

const (
	StageIngest      StageName = "ingest"
	StageRebroadcast StageName = "rebroadcast"
	StageRecorder    StageName = "recorder"
	StageDetector    StageName = "detector"
	StageRenderer    StageName = "renderer"
)

// StageResult reports one stage's terminal outcome.
type StageResult struct {
	Stage StageName
	Err   error
}

// Supervisor owns the cancellation token, the five queues, and the five
// stages, and runs them as peers: it starts C4-C8 together and blocks until
// every one of them has returned.
//
// Unlike errgroup's default behavior, one stage's error does NOT cancel
// its siblings — only an ingest error whose kind perr.IsFatalToPipeline
// reports (a startup failure or KindDecodeStalled) does, because ingest
// is the pipeline's sole frame source (spec.md §7). Every other stage's
// fatal error is scoped to itself; the pipeline degrades gracefully
// (scenario 3: detector model-load failure leaves every other stage
// running).
type Supervisor struct {
	cfg     *config.Config
	tok     *token.Token
	display render.Display
	alerter *alert.Sender
	onEvent events.Handler

	// configSource, if non-nil, is polled for watch_labels/warning_threshold
	// hot-reload (spec.md §6); nil when the pipeline was built without a
	// config file to watch, in which case cfg never changes after startup.
	configSource func() *config.Config

	queues Queues
	boxQ   *queue.Queue
	warn   *warning.Window
}

// NewSupervisor builds the queue set and warning debouncer for cfg but
// does not start any stage yet. onEvent may be nil; a nil handler is
// treated as a no-op rather than forcing every call site to supply one.
// configSource may be nil; when set, it is polled while the pipeline runs
// so that watch_labels and warning_threshold changes reach the running
// detector and warning debouncer without a restart.
func NewSupervisor(cfg *config.Config, tok *token.Token, display render.Display, alerter *alert.Sender, onEvent events.Handler, configSource func() *config.Config) *Supervisor {
	if onEvent == nil {
		onEvent = func(events.Event) {}
	}
	s := &Supervisor{
		cfg:          cfg,
		tok:          tok,
		display:      display,
		alerter:      alerter,
		onEvent:      onEvent,
		configSource: configSource,
		queues: Queues{
			Display:   queue.New(cfg.QueueCapacity),
			Broadcast: queue.New(cfg.QueueCapacity),
			Record:    queue.New(cfg.QueueCapacity),
			Detect:    queue.New(cfg.QueueCapacity),
		},
		boxQ: queue.New(cfg.QueueCapacity),
	}
	s.warn = warning.New(cfg.WarningWindow, cfg.WarningThreshold, s.onWarning)
	return s
}

// Run starts all five stages as peers and blocks until every one of them
// has returned, either because the source ended, a fatal pipeline error
// was escalated, or tok was cancelled by the caller (e.g. on SIGINT).
func (s *Supervisor) Run(ctx context.Context) []StageResult {
	log := logging.WithComponent("supervisor")

	results := make(chan StageResult, 5)
	var wg sync.WaitGroup
	run := func(name StageName, fn func() error) {
		wg.Add(1)
		s.onEvent(events.StageStartedEvent{BaseEvent: events.NewBase(events.TypeStageStarted, time.Now()), Stage: string(name)})
		go func() {
			defer wg.Done()
			err := fn()
			errStr := ""
			if err != nil {
				errStr = err.Error()
			}
			s.onEvent(events.StageExitedEvent{BaseEvent: events.NewBase(events.TypeStageExited, time.Now()), Stage: string(name), Err: errStr})
			results <- StageResult{Stage: name, Err: err}
		}()
	}

	ingest := NewIngest(s.cfg.SourceURL, s.cfg.FrameWidth, s.cfg.FrameHeight, s.queues, s.tok)
	run(StageIngest, func() error {
		err := ingest.Run(ctx)
		if perr.IsFatalToPipeline(kindOf(err)) {
			log.Error().Err(err).Msg("ingest failed fatally, cancelling pipeline")
			s.tok.Cancel()
		}
		return err
	})

	rebroadcast := NewRebroadcast(RebroadcastConfig{
		URL:        s.cfg.RebroadcastURL,
		Width:      s.cfg.FrameWidth,
		Height:     s.cfg.FrameHeight,
		BitrateBPS: s.cfg.RebroadcastBitrateBPS,
		GOPSize:    s.cfg.GOPSize,
		TargetFPS:  s.cfg.TargetFPS,
	}, s.queues.Broadcast, s.tok)
	run(StageRebroadcast, rebroadcast.Run)

	recorder := NewRecorder(RecorderConfig{
		Dir:              s.cfg.RecordDir,
		Width:            s.cfg.FrameWidth,
		Height:           s.cfg.FrameHeight,
		TargetFPS:        s.cfg.TargetFPS,
		SegmentLength:    s.cfg.SegmentLength,
		MinFreeDiskBytes: s.cfg.MinFreeDiskBytes,
		OnRotate: func(closedPath, nextPath string) {
			s.onEvent(events.SegmentRotatedEvent{
				BaseEvent:  events.NewBase(events.TypeSegmentRotated, time.Now()),
				ClosedPath: closedPath,
				NextPath:   nextPath,
			})
		},
	}, s.queues.Record, s.tok)
	run(StageRecorder, recorder.Run)

	detector := NewDetector(DetectorConfig{
		ModelPath:    s.cfg.ModelPath,
		ModelInput:   s.cfg.ModelInputSize,
		Confidence:   s.cfg.DetectConfidence,
		IOUThreshold: s.cfg.DetectIOU,
		WatchLabels:  NewWatchSet(s.cfg.WatchLabels),
	}, s.queues.Detect, s.boxQ, s.warn, s.tok)
	run(StageDetector, detector.Run)

	renderer := NewRenderer(s.display, s.queues.Display, s.boxQ, s.cfg.TargetFPS, s.tok)
	run(StageRenderer, renderer.Run)

	go s.sampleQueueDepths()
	go s.watchConfigReload(detector)

	go func() {
		wg.Wait()
		close(results)
	}()

	var collected []StageResult
	for r := range results {
		if r.Err != nil && !perr.IsExpectedShutdown(kindOf(r.Err)) {
			log.Warn().Str("stage", string(r.Stage)).Err(r.Err).Msg("stage exited with error")
		} else {
			log.Info().Str("stage", string(r.Stage)).Msg("stage exited")
		}
		collected = append(collected, r)
	}

	s.boxQ.Destroy()
	s.warn.Close()
	return collected
}

// sampleQueueDepths periodically publishes each queue's current length to
// metrics.QueueDepth until the token is cancelled. Queue depth has no
// cheaper push-based signal — Enqueue/Dequeue never call out to metrics
// directly, since that would put a Prometheus call inside the critical
// section the queue's own contract forbids holding a lock across.
func (s *Supervisor) sampleQueueDepths() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	named := map[string]*queue.Queue{
		"display":   s.queues.Display,
		"broadcast": s.queues.Broadcast,
		"record":    s.queues.Record,
		"detect":    s.queues.Detect,
		"box":       s.boxQ,
	}

	for {
		select {
		case <-s.tok.Done():
			return
		case <-ticker.C:
			for name, q := range named {
				metrics.QueueDepth.WithLabelValues(name).Set(float64(q.Len()))
			}
		}
	}
}

// watchConfigReload polls configSource (if set) for changes to watch_labels
// and warning_threshold and pushes them into the running detector and
// warning window. log_level reloads directly in internal/config's watcher
// goroutine; these two fields instead need a running stage to hand the new
// value to, so the supervisor owns the poll loop.
func (s *Supervisor) watchConfigReload(det *Detector) {
	if s.configSource == nil {
		return
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastLabels := s.cfg.WatchLabels
	lastThreshold := s.cfg.WarningThreshold

	for {
		select {
		case <-s.tok.Done():
			return
		case <-ticker.C:
			cur := s.configSource()
			if cur == nil {
				continue
			}
			if !stringSlicesEqual(cur.WatchLabels, lastLabels) {
				det.SetWatchLabels(cur.WatchLabels)
				lastLabels = cur.WatchLabels
			}
			if cur.WarningThreshold != lastThreshold {
				s.warn.SetThreshold(cur.WarningThreshold)
				lastThreshold = cur.WarningThreshold
			}
		}
	}
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Supervisor) onWarning(report warning.Report) {
	metrics.WarningFires.Inc()
	log := logging.WithComponent("supervisor")
	log.Warn().
		Str("label", report.LatestLabel).
		Int("count", report.Count).
		Int64("window_ms", report.WindowMS).
		Msg("warning threshold reached")

	s.onEvent(events.WarningFiredEvent{
		BaseEvent: events.NewBase(events.TypeWarningFired, time.Now()),
		Label:     report.LatestLabel,
		Count:     report.Count,
		WindowMS:  report.WindowMS,
	})

	if s.alerter != nil {
		go s.alerter.Send(context.Background(), report.LatestLabel, time.Now())
	}
}

func kindOf(err error) perr.Kind {
	var pe *perr.Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return perr.KindUnknown
}
