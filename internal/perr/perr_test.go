package perr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(KindSourceOpenFailed, "ingest", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "ingest")
	assert.Contains(t, err.Error(), "source_open_failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestErrorWithNilCause(t *testing.T) {
	err := New(KindCancelled, "detector", nil)
	assert.Equal(t, "detector: cancelled", err.Error())
}

func TestIsFatalToPipeline(t *testing.T) {
	fatal := []Kind{KindSourceOpenFailed, KindNoVideoStream, KindDecoderInitFailed, KindDecodeStalled}
	for _, k := range fatal {
		assert.True(t, IsFatalToPipeline(k), "%s should be fatal to pipeline", k)
	}

	notFatal := []Kind{KindDecodeTransient, KindOutputOpenFailed, KindEncoderInitFailed,
		KindHeaderWriteFailed, KindPacketWriteFailed, KindModelLoadFailed, KindQueueClosed,
		KindCancelled, KindUnsupportedPixelFormat}
	for _, k := range notFatal {
		assert.False(t, IsFatalToPipeline(k), "%s should not be fatal to pipeline", k)
	}
}

func TestIsExpectedShutdown(t *testing.T) {
	assert.True(t, IsExpectedShutdown(KindQueueClosed))
	assert.True(t, IsExpectedShutdown(KindCancelled))
	assert.False(t, IsExpectedShutdown(KindDecodeStalled))
}

func TestKindStringCoversAllValues(t *testing.T) {
	kinds := []Kind{
		KindSourceOpenFailed, KindNoVideoStream, KindDecoderInitFailed,
		KindDecodeTransient, KindDecodeStalled, KindOutputOpenFailed,
		KindEncoderInitFailed, KindHeaderWriteFailed, KindPacketWriteFailed,
		KindModelLoadFailed, KindQueueClosed, KindCancelled, KindUnsupportedPixelFormat,
	}
	for _, k := range kinds {
		assert.NotEqual(t, "unknown", k.String())
	}
	assert.Equal(t, "unknown", KindUnknown.String())
}
