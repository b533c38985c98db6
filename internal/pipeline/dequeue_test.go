package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/videopipe/internal/frame"
	"github.com/five82/videopipe/internal/queue"
	"github.com/five82/videopipe/internal/token"
)

func testFrame(t *testing.T, pts int64) frame.Frame {
	t.Helper()
	f, err := frame.New(frame.PixelFormatYUV420P, 2, 2, [][]byte{make([]byte, 4)}, []int{4}, pts, pts, frame.TimeBase{1, 25}, func() {})
	require.NoError(t, err)
	return f
}

func TestDequeueOrCancelReturnsAvailableItem(t *testing.T) {
	q := queue.New(4)
	tok := token.New()
	q.Enqueue(queue.FrameItem(testFrame(t, 1)))

	item, ok := dequeueOrCancel(q, tok)
	require.True(t, ok)
	assert.Equal(t, queue.ItemKindFrame, item.Kind)
	item.Release()
}

func TestDequeueOrCancelReturnsFalseOnClose(t *testing.T) {
	q := queue.New(4)
	tok := token.New()
	q.Close()

	_, ok := dequeueOrCancel(q, tok)
	assert.False(t, ok)
}

func TestDequeueOrCancelReturnsFalseOnCancel(t *testing.T) {
	q := queue.New(4)
	tok := token.New()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok := dequeueOrCancel(q, tok)
		assert.False(t, ok)
	}()

	time.Sleep(5 * time.Millisecond)
	tok.Cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dequeueOrCancel did not observe cancellation")
	}
}
