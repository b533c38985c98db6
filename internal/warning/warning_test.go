package warning

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/five82/videopipe/internal/frame"
)

func testFrame(t *testing.T, released *int32) frame.Frame {
	t.Helper()
	f, err := frame.New(frame.PixelFormatYUV420P, 2, 2, [][]byte{make([]byte, 4)}, []int{4}, 0, 0, frame.TimeBase{1, 25}, func() {
		if released != nil {
			*released++
		}
	})
	require.NoError(t, err)
	return f
}

func TestFiresWhenThresholdReached(t *testing.T) {
	var mu sync.Mutex
	var reports []Report
	w := New(30*time.Millisecond, 3, func(r Report) {
		mu.Lock()
		reports = append(reports, r)
		mu.Unlock()
	})
	defer w.Close()

	w.Record("person", 1, frame.Frame{})
	w.Record("person", 2, frame.Frame{})
	w.Record("person", 3, frame.Frame{})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reports) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, reports[0].Count)
	assert.Equal(t, "person", reports[0].LatestLabel)
	assert.EqualValues(t, 3, reports[0].LatestTimestamp)
}

func TestDoesNotFireBelowThreshold(t *testing.T) {
	fired := make(chan Report, 1)
	w := New(20*time.Millisecond, 5, func(r Report) { fired <- r })
	defer w.Close()

	w.Record("person", 1, frame.Frame{})
	w.Record("person", 2, frame.Frame{})

	select {
	case <-fired:
		t.Fatal("callback fired below threshold")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCountResetsAfterFiring(t *testing.T) {
	counts := make(chan int, 4)
	w := New(20*time.Millisecond, 2, func(r Report) { counts <- r.Count })
	defer w.Close()

	w.Record("person", 1, frame.Frame{})
	w.Record("person", 2, frame.Frame{})

	select {
	case c := <-counts:
		assert.Equal(t, 2, c)
	case <-time.After(time.Second):
		t.Fatal("first fire did not happen")
	}

	// No further records: next tick must not fire again.
	select {
	case c := <-counts:
		t.Fatalf("unexpected second fire with count %d after reset", c)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestRecordReleasesSupersededFrame(t *testing.T) {
	var released int32
	w := New(time.Hour, 1000, func(Report) {})
	defer w.Close()

	w.Record("person", 1, testFrame(t, &released))
	w.Record("person", 2, testFrame(t, &released))

	assert.Equal(t, int32(1), released, "the first frame must be released once superseded")
}

func TestCloseReleasesUnfiredFrame(t *testing.T) {
	var released int32
	w := New(time.Hour, 1000, func(Report) {})
	w.Record("person", 1, testFrame(t, &released))
	w.Close()

	assert.Equal(t, int32(1), released)
}

func TestFiringReleasesLatestFrame(t *testing.T) {
	var released int32
	done := make(chan struct{})
	w := New(20*time.Millisecond, 1, func(r Report) {
		close(done)
	})
	defer w.Close()

	w.Record("person", 1, testFrame(t, &released))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
	require.Eventually(t, func() bool {
		return released == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRecordIsConcurrencySafe(t *testing.T) {
	w := New(time.Hour, 1<<30, func(Report) {})
	defer w.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w.Record("person", int64(n), frame.Frame{})
		}(i)
	}
	wg.Wait()
}

func TestCloseLeavesNoGoroutineBehind(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	w := New(10*time.Millisecond, 1000, func(Report) {})
	w.Record("person", 1, frame.Frame{})
	w.Close()
}
