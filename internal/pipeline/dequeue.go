package pipeline

import (
	"time"

	"github.com/five82/videopipe/internal/queue"
	"github.com/five82/videopipe/internal/token"
)

// pollInterval bounds how long a stage can go between checking the
// cancellation token while waiting on an otherwise-empty queue, satisfying
// spec.md §5's "timeout ≤ 100 ms" suspension-point requirement.
const pollInterval = 20 * time.Millisecond

// dequeueOrCancel waits for an item to become available on q, returning
// (Item{}, false) as soon as either the queue closes or tok is cancelled,
// whichever happens first. It never blocks longer than pollInterval at a
// stretch, so a stage built on it observes cancellation promptly even
// while an upstream producer is still running.
func dequeueOrCancel(q *queue.Queue, tok *token.Token) (queue.Item, bool) {
	for {
		item, result := q.DequeueNonblocking()
		switch result {
		case queue.DequeueOK:
			return item, true
		case queue.DequeueClosed:
			return queue.Item{}, false
		}

		select {
		case <-tok.Done():
			return queue.Item{}, false
		case <-time.After(pollInterval):
		}
	}
}
