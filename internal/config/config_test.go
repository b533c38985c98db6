package config

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigAppliesDefaults(t *testing.T) {
	c, err := NewConfig("rtsp://cam/1", "rtmp://out/live")
	require.NoError(t, err)

	assert.Equal(t, DefaultQueueCapacity, c.QueueCapacity)
	assert.Equal(t, DefaultTargetFPS, c.TargetFPS)
	assert.Equal(t, DefaultWarningWindow, c.WarningWindow)
	assert.Equal(t, DefaultWarningThreshold, c.WarningThreshold)
	assert.Equal(t, []string{"person"}, c.WatchLabels)
	assert.Equal(t, DefaultSegmentLength, c.SegmentLength)
	assert.Equal(t, DefaultModelInputSize, c.ModelInputSize)

	_, err = uuid.Parse(c.DeviceUUID)
	assert.NoError(t, err, "a device UUID must be auto-generated when none is supplied")
}

func TestWithAlertWebhookKeepsAutoGeneratedUUIDWhenEmpty(t *testing.T) {
	c, err := NewConfig("rtsp://cam/1", "rtmp://out/live", WithAlertWebhook("http://hook", ""))
	require.NoError(t, err)
	assert.Equal(t, "http://hook", c.AlertWebhookURL)
	assert.NotEmpty(t, c.DeviceUUID)
}

func TestWithAlertWebhookOverridesDeviceUUID(t *testing.T) {
	c, err := NewConfig("rtsp://cam/1", "rtmp://out/live", WithAlertWebhook("http://hook", "device-42"))
	require.NoError(t, err)
	assert.Equal(t, "device-42", c.DeviceUUID)
}

func TestNewConfigRejectsEmptyURLs(t *testing.T) {
	_, err := NewConfig("", "rtmp://out/live")
	assert.Error(t, err)

	_, err = NewConfig("rtsp://cam/1", "")
	assert.Error(t, err)
}

func TestOptionsOverrideDefaults(t *testing.T) {
	c, err := NewConfig("rtsp://cam/1", "rtmp://out/live",
		WithQueueCapacity(120),
		WithWarningWindow(5*time.Second, 3),
		WithWatchLabels([]string{"person", "car"}),
		WithSegmentLength(10*time.Minute),
		WithDetectThresholds(0.4, 0.6),
		WithLogLevel("debug"),
	)
	require.NoError(t, err)

	assert.Equal(t, 120, c.QueueCapacity)
	assert.Equal(t, 5*time.Second, c.WarningWindow)
	assert.Equal(t, 3, c.WarningThreshold)
	assert.Equal(t, []string{"person", "car"}, c.WatchLabels)
	assert.Equal(t, 10*time.Minute, c.SegmentLength)
	assert.Equal(t, 0.4, c.DetectConfidence)
	assert.Equal(t, 0.6, c.DetectIOU)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	cases := []Option{
		WithQueueCapacity(0),
		WithWarningWindow(0, 5),
		WithDetectThresholds(1.5, 0.5),
		WithDetectThresholds(0.5, -1),
		WithLogLevel("verbose"),
	}
	for _, opt := range cases {
		_, err := NewConfig("rtsp://cam/1", "rtmp://out/live", opt)
		assert.Error(t, err)
	}
}
