// Package videopipe ingests a live RTSP stream, fans decoded frames out to
// an on-screen renderer, an object-detection stage, a rolling local
// recorder, and an RTMP re-broadcaster, and raises rate-limited warnings
// when watched object classes are detected.
//
// Basic usage:
//
//	p, err := videopipe.New("rtsp://camera/stream", "rtmp://ingest/live",
//	    videopipe.WithModelPath("yolov8n.onnx"),
//	    videopipe.WithRecordDir("/var/lib/videopipe/segments"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	if err := p.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package videopipe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/five82/videopipe/internal/alert"
	"github.com/five82/videopipe/internal/config"
	"github.com/five82/videopipe/internal/events"
	"github.com/five82/videopipe/internal/logging"
	"github.com/five82/videopipe/internal/perr"
	"github.com/five82/videopipe/internal/pipeline"
	"github.com/five82/videopipe/internal/render"
	"github.com/five82/videopipe/internal/token"
)

// settings accumulates everything an Option can configure, including the
// pieces (display surface, event handler) that don't belong on
// internal/config.Config because they're collaborator handles, not data.
type settings struct {
	cfgOpts []config.Option
	display render.Display
	onEvent events.Handler
}

// Option configures a Pipeline constructed by New.
type Option func(*settings)

// Pipeline is the main entry point: it owns the cancellation token, the
// queue graph, and the five peer stages (C4-C8) a call to Run starts.
type Pipeline struct {
	cfg     *config.Config
	tok     *token.Token
	display render.Display
	alerter *alert.Sender
	onEvent events.Handler
	watcher *config.Watcher
}

// New builds a Pipeline for the given source and re-broadcast URLs.
// Configuration fields not covered by an Option take the compile-time
// defaults documented in internal/config (queue capacity 60, target FPS
// 25, 1920x1080, 4 Mb/s re-broadcast, and so on).
func New(sourceURL, rebroadcastURL string, opts ...Option) (*Pipeline, error) {
	s := &settings{display: render.NullDisplay{}}
	for _, opt := range opts {
		opt(s)
	}

	cfg, err := config.NewConfig(sourceURL, rebroadcastURL, s.cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("videopipe: %w", err)
	}

	logging.Configure(logging.Config{Level: cfg.LogLevel})

	var watcher *config.Watcher
	if cfg.ConfigFilePath != "" {
		watcher, err = config.NewWatcher(cfg)
		if err != nil {
			return nil, fmt.Errorf("videopipe: start config watcher: %w", err)
		}
	}

	var alerter *alert.Sender
	if cfg.AlertWebhookURL != "" {
		alerter = alert.New(cfg.AlertWebhookURL, cfg.DeviceUUID, cfg.WarningWindow)
	}

	return &Pipeline{
		cfg:     cfg,
		tok:     token.New(),
		display: s.display,
		alerter: alerter,
		onEvent: s.onEvent,
		watcher: watcher,
	}, nil
}

// Run starts every stage and blocks until the source ends, a fatal
// pipeline-level error is escalated, or ctx is cancelled (which cancels
// the pipeline's own token). It returns the first fatal, non-expected-
// shutdown error among the stages, or nil on a clean stop.
func (p *Pipeline) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		p.tok.Cancel()
	}()

	cfg := p.cfg
	var configSource func() *config.Config
	if p.watcher != nil {
		cfg = p.watcher.Get()
		configSource = p.watcher.Get
	}

	sup := pipeline.NewSupervisor(cfg, p.tok, p.display, p.alerter, p.onEvent, configSource)
	results := sup.Run(ctx)

	for _, r := range results {
		if r.Err == nil {
			continue
		}
		var pe *perr.Error
		if errors.As(r.Err, &pe) && perr.IsExpectedShutdown(pe.Kind) {
			continue
		}
		return r.Err
	}
	return nil
}

// Cancel triggers cooperative shutdown without waiting for it to
// complete; callers that want to block until every stage has joined
// should cancel the context passed to Run instead.
func (p *Pipeline) Cancel() {
	p.tok.Cancel()
}

// Close releases resources held outside of Run's stage lifecycle, such as
// the config hot-reload watcher. Safe to call after Run returns.
func (p *Pipeline) Close() error {
	if p.watcher != nil {
		p.watcher.Close()
	}
	return nil
}

// WithRecordDir sets the directory recorded segments are written to.
func WithRecordDir(dir string) Option {
	return func(s *settings) { s.cfgOpts = append(s.cfgOpts, config.WithRecordDir(dir)) }
}

// WithModelPath sets the detector's ONNX model file path.
func WithModelPath(path string) Option {
	return func(s *settings) { s.cfgOpts = append(s.cfgOpts, config.WithModelPath(path)) }
}

// WithQueueCapacity overrides the default per-queue bound (60).
func WithQueueCapacity(n int) Option {
	return func(s *settings) { s.cfgOpts = append(s.cfgOpts, config.WithQueueCapacity(n)) }
}

// WithWarningWindow overrides the debouncer's window and threshold.
func WithWarningWindow(window time.Duration, threshold int) Option {
	return func(s *settings) { s.cfgOpts = append(s.cfgOpts, config.WithWarningWindow(window, threshold)) }
}

// WithWatchLabels overrides the set of detection labels that count toward
// the warning debouncer.
func WithWatchLabels(labels []string) Option {
	return func(s *settings) { s.cfgOpts = append(s.cfgOpts, config.WithWatchLabels(labels)) }
}

// WithSegmentLength overrides the recorder's rotation interval.
func WithSegmentLength(d time.Duration) Option {
	return func(s *settings) { s.cfgOpts = append(s.cfgOpts, config.WithSegmentLength(d)) }
}

// WithDetectThresholds overrides the detector's confidence and IOU cutoffs.
func WithDetectThresholds(confidence, iou float64) Option {
	return func(s *settings) {
		s.cfgOpts = append(s.cfgOpts, config.WithDetectThresholds(confidence, iou))
	}
}

// WithLogLevel sets the initial log level (one of trace|debug|info|warn|
// error|fatal).
func WithLogLevel(level string) Option {
	return func(s *settings) { s.cfgOpts = append(s.cfgOpts, config.WithLogLevel(level)) }
}

// WithMetricsAddr overrides the Prometheus listen address.
func WithMetricsAddr(addr string) Option {
	return func(s *settings) { s.cfgOpts = append(s.cfgOpts, config.WithMetricsAddr(addr)) }
}

// WithAlertWebhook enables HTTP alert delivery for warning-debouncer
// firings, POSTing to url and tagging payloads with deviceUUID.
func WithAlertWebhook(url, deviceUUID string) Option {
	return func(s *settings) { s.cfgOpts = append(s.cfgOpts, config.WithAlertWebhook(url, deviceUUID)) }
}

// WithConfigFile enables hot-reload of log_level, watch labels, and
// warning threshold from the JSON file at path.
func WithConfigFile(path string) Option {
	return func(s *settings) { s.cfgOpts = append(s.cfgOpts, config.WithConfigFile(path)) }
}

// WithDisplay supplies the presentation surface the renderer stage draws
// to. Defaults to render.NullDisplay{} (nothing presented) when omitted.
func WithDisplay(d render.Display) Option {
	return func(s *settings) { s.display = d }
}

// WithEventHandler registers a callback invoked synchronously for every
// stage-lifecycle, warning, and segment-rotation event the pipeline
// emits. Handlers are called on the emitting stage's own goroutine and
// must not block.
func WithEventHandler(h EventHandler) Option {
	return func(s *settings) { s.onEvent = h }
}
