// Package main provides the CLI entry point for videopipe.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	videopipe "github.com/five82/videopipe"
	"github.com/five82/videopipe/internal/metrics"
	"github.com/five82/videopipe/internal/render"
)

const appName = "videopipe"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet(appName, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `%s - live RTSP ingest, detection, recording and re-broadcast

Usage:
  %s [options] <source_url> <rebroadcast_url>

Options:
`, appName, appName)
		fs.PrintDefaults()
	}

	var (
		recordDir     string
		modelPath     string
		watchLabels   string
		logLevel      string
		metricsAddr   string
		configFile    string
		alertWebhook  string
		deviceUUID    string
		segmentLength time.Duration
		display       bool
	)

	fs.StringVar(&recordDir, "record-dir", ".", "directory rolling segment files are written to")
	fs.StringVar(&modelPath, "model-path", "", "path to the ONNX detection model")
	fs.StringVar(&watchLabels, "watch-labels", "person", "comma-separated detection labels that count toward warnings")
	fs.StringVar(&logLevel, "log-level", envOrDefault("VIDEOPIPE_LOG_LEVEL", "info"), "trace|debug|info|warn|error|fatal")
	fs.StringVar(&metricsAddr, "metrics-addr", "127.0.0.1:9090", "Prometheus metrics listen address")
	fs.StringVar(&configFile, "config-file", "", "path to a JSON file for hot-reloadable settings")
	fs.StringVar(&alertWebhook, "alert-webhook", "", "URL to POST warning alerts to (disabled if empty)")
	fs.StringVar(&deviceUUID, "device-uuid", "", "device identifier tagged on alert payloads")
	fs.DurationVar(&segmentLength, "segment-length", 30*time.Minute, "recorder segment rotation interval")
	fs.BoolVar(&display, "display", false, "print a live status line to stderr")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("expected exactly 2 positional arguments, got %d", fs.NArg())
	}
	sourceURL, rebroadcastURL := fs.Arg(0), fs.Arg(1)

	opts := []videopipe.Option{
		videopipe.WithRecordDir(recordDir),
		videopipe.WithModelPath(modelPath),
		videopipe.WithWatchLabels(splitLabels(watchLabels)),
		videopipe.WithLogLevel(logLevel),
		videopipe.WithMetricsAddr(metricsAddr),
		videopipe.WithSegmentLength(segmentLength),
	}
	if configFile != "" {
		opts = append(opts, videopipe.WithConfigFile(configFile))
	}
	if alertWebhook != "" {
		opts = append(opts, videopipe.WithAlertWebhook(alertWebhook, deviceUUID))
	}
	if display {
		opts = append(opts, videopipe.WithDisplay(render.NewTerminalDisplay()))
	}

	p, err := videopipe.New(sourceURL, rebroadcastURL, opts...)
	if err != nil {
		return fmt.Errorf("configure pipeline: %w", err)
	}
	defer p.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The metrics server and the pipeline are independent top-level tasks:
	// unlike the stage supervisor (which deliberately avoids errgroup so one
	// stage's error never kills its siblings), either of these failing is
	// fatal to the whole process, so first-error-cancels-the-other is the
	// right semantics here.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return metrics.Serve(gctx, metricsAddr) })
	g.Go(func() error { return p.Run(gctx) })

	return g.Wait()
}

func splitLabels(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			labels = append(labels, p)
		}
	}
	return labels
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
