// Package metrics exposes the pipeline's Prometheus instrumentation: queue
// depth/drops, decode throughput, detections, warning fires, segment
// rotations, and re-broadcast write failures.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// QueueDepth tracks the current item count of a named queue (C2).
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "videopipe_queue_depth",
		Help: "Current number of buffered items in a pipeline queue",
	}, []string{"queue"})

	// QueueDrops counts overflow-drop events per queue (C2).
	QueueDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videopipe_queue_drops_total",
		Help: "Total number of items dropped by a queue's overflow policy",
	}, []string{"queue"})

	// FramesDecoded counts successfully decoded frames (C4).
	FramesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videopipe_frames_decoded_total",
		Help: "Total number of frames successfully decoded by ingest",
	})

	// DecodeErrors counts transient decode failures (C4).
	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videopipe_decode_errors_total",
		Help: "Total number of transient decode errors observed by ingest",
	})

	// Detections counts bounding boxes produced, by label (C7).
	Detections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videopipe_detections_total",
		Help: "Total number of bounding boxes produced by the detector, by label",
	}, []string{"label"})

	// WarningFires counts debouncer callback firings (C9).
	WarningFires = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videopipe_warning_fires_total",
		Help: "Total number of times the warning debouncer fired its callback",
	})

	// SegmentRotations counts recorder segment rollovers (C6).
	SegmentRotations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videopipe_segment_rotations_total",
		Help: "Total number of recorder segment rotations",
	})

	// RebroadcastPacketWriteFailures counts mux write errors (C5).
	RebroadcastPacketWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videopipe_rebroadcast_packet_write_failures_total",
		Help: "Total number of packet write failures in the re-broadcast stage",
	})

	// AlertsSent counts successfully delivered alert webhooks.
	AlertsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videopipe_alerts_sent_total",
		Help: "Total number of alert webhook deliveries that succeeded",
	})

	// AlertsDropped counts alerts suppressed by the rate limiter.
	AlertsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videopipe_alerts_rate_limited_total",
		Help: "Total number of alerts suppressed by the delivery rate limiter",
	})
)

// Serve starts promhttp.Handler() on addr and blocks until ctx is
// cancelled. The CLI entry point runs it in its own goroutine alongside
// the pipeline.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return err
	}
}
