// Package config provides configuration types and defaults for videopipe.
package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Default constants. Per the external-interfaces contract, these are
// compile-time defaults; only log_level, watch labels and warning
// threshold are hot-reloadable at runtime (see Watcher).
const (
	// DefaultQueueCapacity is the bounded capacity of every frame/boxes
	// queue (C2).
	DefaultQueueCapacity int = 60

	// DefaultTargetFPS is the renderer's frame-pacing target (C8).
	DefaultTargetFPS int = 25

	// DefaultFrameWidth and DefaultFrameHeight are the source frame
	// dimensions assumed when no stream metadata overrides them.
	DefaultFrameWidth  int = 1920
	DefaultFrameHeight int = 1080

	// DefaultRebroadcastBitrateBPS is the re-broadcast encoder's target
	// bitrate (C5), 4 Mb/s.
	DefaultRebroadcastBitrateBPS int = 4_000_000

	// DefaultGOPSize is the re-broadcast encoder's keyframe interval (C5).
	DefaultGOPSize int = 12

	// DefaultWarningWindow and DefaultWarningThreshold configure the
	// debouncer (C9).
	DefaultWarningWindow    time.Duration = 10 * time.Second
	DefaultWarningThreshold int           = 10

	// DefaultSegmentLength is the recorder's rolling-segment duration (C6).
	DefaultSegmentLength time.Duration = 30 * time.Minute

	// DefaultDetectConfidence and DefaultDetectIOU are the detector's
	// confidence-filter and NMS thresholds (C7).
	DefaultDetectConfidence float64 = 0.25
	DefaultDetectIOU        float64 = 0.5

	// DefaultModelInputSize is the square side length, in pixels, the
	// detector's model expects after letterboxing (C7).
	DefaultModelInputSize int = 640

	// DefaultLogLevel is used when log_level is unset or invalid.
	DefaultLogLevel string = "info"

	// DefaultMetricsAddr is the loopback address promhttp listens on.
	DefaultMetricsAddr string = "127.0.0.1:9090"

	// DefaultMaxConsecutiveDecodeFailures has the same value as
	// perr.MaxConsecutiveDecodeFailures. Config.MaxConsecutiveDecodeFailures
	// is validated but not read by the ingest stage, which escalates on
	// perr.MaxConsecutiveDecodeFailures.
	DefaultMaxConsecutiveDecodeFailures int = 32

	// DefaultMinFreeDiskBytes is the minimum free space the recorder
	// requires before opening a new segment (internal/util/diskspace.go).
	DefaultMinFreeDiskBytes uint64 = 500 * 1024 * 1024
)

// DefaultWatchLabels is the set of detection labels that count toward the
// warning debouncer.
func DefaultWatchLabels() []string {
	return []string{"person"}
}

// Config holds all runtime configuration for the pipeline.
type Config struct {
	SourceURL      string
	RebroadcastURL string
	RecordDir      string
	ModelPath      string

	QueueCapacity int
	TargetFPS     int
	FrameWidth    int
	FrameHeight   int

	RebroadcastBitrateBPS int
	GOPSize               int

	WarningWindow    time.Duration
	WarningThreshold int
	WatchLabels      []string

	SegmentLength    time.Duration
	MinFreeDiskBytes uint64

	DetectConfidence float64
	DetectIOU        float64
	ModelInputSize   int

	MaxConsecutiveDecodeFailures int

	LogLevel    string
	MetricsAddr string

	AlertWebhookURL string
	DeviceUUID      string

	// ConfigFilePath, if non-empty, is watched by internal/config.Watcher
	// for hot-reloadable field changes (log_level, watch labels, warning
	// threshold).
	ConfigFilePath string
}

// Option configures a Config constructed by NewConfig.
type Option func(*Config)

// NewConfig creates a Config with default values for the given source and
// rebroadcast URLs.
func NewConfig(sourceURL, rebroadcastURL string, opts ...Option) (*Config, error) {
	c := &Config{
		SourceURL:                    sourceURL,
		RebroadcastURL:               rebroadcastURL,
		RecordDir:                    ".",
		QueueCapacity:                DefaultQueueCapacity,
		TargetFPS:                    DefaultTargetFPS,
		FrameWidth:                   DefaultFrameWidth,
		FrameHeight:                  DefaultFrameHeight,
		RebroadcastBitrateBPS:        DefaultRebroadcastBitrateBPS,
		GOPSize:                      DefaultGOPSize,
		WarningWindow:                DefaultWarningWindow,
		WarningThreshold:             DefaultWarningThreshold,
		WatchLabels:                  DefaultWatchLabels(),
		SegmentLength:                DefaultSegmentLength,
		MinFreeDiskBytes:             DefaultMinFreeDiskBytes,
		DetectConfidence:             DefaultDetectConfidence,
		DetectIOU:                    DefaultDetectIOU,
		ModelInputSize:               DefaultModelInputSize,
		MaxConsecutiveDecodeFailures: DefaultMaxConsecutiveDecodeFailures,
		LogLevel:                     DefaultLogLevel,
		MetricsAddr:                  DefaultMetricsAddr,
		DeviceUUID:                   uuid.New().String(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// WithRecordDir sets the directory recorded segments are written to.
func WithRecordDir(dir string) Option {
	return func(c *Config) { c.RecordDir = dir }
}

// WithModelPath sets the detector's ONNX model file path.
func WithModelPath(path string) Option {
	return func(c *Config) { c.ModelPath = path }
}

// WithQueueCapacity overrides the default per-queue bound.
func WithQueueCapacity(n int) Option {
	return func(c *Config) { c.QueueCapacity = n }
}

// WithWarningWindow overrides the debouncer's window and threshold.
func WithWarningWindow(window time.Duration, threshold int) Option {
	return func(c *Config) {
		c.WarningWindow = window
		c.WarningThreshold = threshold
	}
}

// WithWatchLabels overrides the set of labels that count toward warnings.
func WithWatchLabels(labels []string) Option {
	return func(c *Config) { c.WatchLabels = labels }
}

// WithSegmentLength overrides the recorder's rotation interval.
func WithSegmentLength(d time.Duration) Option {
	return func(c *Config) { c.SegmentLength = d }
}

// WithDetectThresholds overrides the detector's confidence and IOU cutoffs.
func WithDetectThresholds(confidence, iou float64) Option {
	return func(c *Config) {
		c.DetectConfidence = confidence
		c.DetectIOU = iou
	}
}

// WithLogLevel overrides the default log level.
func WithLogLevel(level string) Option {
	return func(c *Config) { c.LogLevel = level }
}

// WithMetricsAddr overrides the promhttp listen address.
func WithMetricsAddr(addr string) Option {
	return func(c *Config) { c.MetricsAddr = addr }
}

// WithAlertWebhook enables alert delivery to the given URL, tagged with
// deviceUUID in the POST payload. An empty deviceUUID keeps the
// auto-generated default rather than clearing it.
func WithAlertWebhook(url, deviceUUID string) Option {
	return func(c *Config) {
		c.AlertWebhookURL = url
		if deviceUUID != "" {
			c.DeviceUUID = deviceUUID
		}
	}
}

// WithConfigFile enables fsnotify-driven hot-reload of log_level, watch
// labels and warning threshold from the given file.
func WithConfigFile(path string) Option {
	return func(c *Config) { c.ConfigFilePath = path }
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SourceURL == "" {
		return fmt.Errorf("source_url must not be empty")
	}
	if c.RebroadcastURL == "" {
		return fmt.Errorf("rebroadcast_url must not be empty")
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be at least 1, got %d", c.QueueCapacity)
	}
	if c.TargetFPS < 1 {
		return fmt.Errorf("target_fps must be at least 1, got %d", c.TargetFPS)
	}
	if c.FrameWidth < 1 || c.FrameHeight < 1 {
		return fmt.Errorf("frame dimensions must be positive, got %dx%d", c.FrameWidth, c.FrameHeight)
	}
	if c.RebroadcastBitrateBPS < 1 {
		return fmt.Errorf("rebroadcast_bitrate_bps must be positive, got %d", c.RebroadcastBitrateBPS)
	}
	if c.GOPSize < 1 {
		return fmt.Errorf("gop_size must be at least 1, got %d", c.GOPSize)
	}
	if c.WarningWindow <= 0 {
		return fmt.Errorf("warning_window must be positive, got %s", c.WarningWindow)
	}
	if c.WarningThreshold < 1 {
		return fmt.Errorf("warning_threshold must be at least 1, got %d", c.WarningThreshold)
	}
	if c.SegmentLength <= 0 {
		return fmt.Errorf("segment_length must be positive, got %s", c.SegmentLength)
	}
	if c.DetectConfidence < 0 || c.DetectConfidence > 1 {
		return fmt.Errorf("detect_confidence must be in [0,1], got %g", c.DetectConfidence)
	}
	if c.DetectIOU < 0 || c.DetectIOU > 1 {
		return fmt.Errorf("detect_iou must be in [0,1], got %g", c.DetectIOU)
	}
	if c.ModelInputSize < 1 {
		return fmt.Errorf("model_input_size must be positive, got %d", c.ModelInputSize)
	}
	if c.MaxConsecutiveDecodeFailures < 1 {
		return fmt.Errorf("max_consecutive_decode_failures must be at least 1, got %d", c.MaxConsecutiveDecodeFailures)
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true,
}

func parseLogLevel(level string) (string, error) {
	if !validLogLevels[level] {
		return "", fmt.Errorf("log_level must be one of trace|debug|info|warn|error|fatal, got %q", level)
	}
	return level, nil
}
