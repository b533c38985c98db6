// Package alert delivers rate-limited HTTP webhook notifications when the
// warning debouncer fires.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"github.com/five82/videopipe/internal/logging"
	"github.com/five82/videopipe/internal/metrics"
)

// Payload is the JSON body POSTed to the configured webhook URL.
type Payload struct {
	Type       string `json:"type"`
	Timestamp  string `json:"ts"`
	DeviceUUID string `json:"device_uuid"`
}

// Sender delivers alert payloads to a single HTTP endpoint, at most once
// per rate-limiter interval, retrying transient send failures.
type Sender struct {
	url        string
	deviceUUID string
	client     *http.Client
	limiter    *rate.Limiter
}

// New constructs a Sender that POSTs to url, tagging every payload with
// deviceUUID, and never sends more than one request per window.
func New(url, deviceUUID string, window time.Duration) *Sender {
	return &Sender{
		url:        url,
		deviceUUID: deviceUUID,
		client:     &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(window), 1),
	}
}

// Send delivers one alert of the given label, timestamped now. If the rate
// limiter has no tokens available, the alert is dropped (logged, counted,
// not retried) rather than queued — matching the debouncer's own firing
// cadence, which already caps how often Send is called.
func (s *Sender) Send(ctx context.Context, label string, now time.Time) {
	logger := logging.WithComponent("alert")

	if !s.limiter.Allow() {
		metrics.AlertsDropped.Inc()
		logger.Debug().Str("label", label).Msg("alert suppressed by rate limiter")
		return
	}

	payload := Payload{
		Type:       label,
		Timestamp:  now.UTC().Format("2006-01-02 15:04:05"),
		DeviceUUID: s.deviceUUID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Msg("failed to marshal alert payload")
		return
	}

	err = retry.Do(
		func() error { return s.post(ctx, body) },
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn().Err(err).Uint("attempt", n).Msg("retrying alert delivery")
		}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("alert delivery failed after retries")
		return
	}
	metrics.AlertsSent.Inc()
}

func (s *Sender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}
	return nil
}
