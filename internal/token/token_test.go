package token

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotCancelled(t *testing.T) {
	tok := New()
	assert.False(t, tok.IsCancelled())
}

func TestCancelIsIdempotent(t *testing.T) {
	tok := New()
	tok.Cancel()
	tok.Cancel()
	tok.Cancel()
	assert.True(t, tok.IsCancelled())
}

func TestWaitUnblocksAfterCancel(t *testing.T) {
	tok := New()

	var wg sync.WaitGroup
	n := 8
	wg.Add(n)
	unblocked := make(chan int, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			tok.Wait()
			unblocked <- 1
		}()
	}

	// Give the waiters a chance to actually block first.
	time.Sleep(10 * time.Millisecond)
	tok.Cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiters did not unblock within 2s of cancellation")
	}
	require.Len(t, unblocked, n)
}

func TestWaitReturnsImmediatelyIfAlreadyCancelled(t *testing.T) {
	tok := New()
	tok.Cancel()

	done := make(chan struct{})
	go func() {
		tok.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Wait blocked despite prior cancellation")
	}
}

func TestDoneChannelUsableInSelect(t *testing.T) {
	tok := New()
	select {
	case <-tok.Done():
		t.Fatal("Done() channel closed before Cancel()")
	default:
	}
	tok.Cancel()
	select {
	case <-tok.Done():
	default:
		t.Fatal("Done() channel not closed after Cancel()")
	}
}
