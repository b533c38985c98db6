// Package queue implements the bounded, drop-oldest frame/detection queue
// that connects the ingest stage to its four consumers, and the detector to
// the renderer.
package queue

import (
	"sync"

	"github.com/five82/videopipe/internal/detect"
	"github.com/five82/videopipe/internal/frame"
)

// ItemKind tags which variant of Item is populated. The zero value,
// ItemKindUnset, is never valid on an item that has passed through Enqueue.
type ItemKind int

const (
	ItemKindUnset ItemKind = iota
	ItemKindFrame
	ItemKindBoxes
)

// Item is the tagged union carried by a Queue: either a decoded Frame or a
// detector DetectionBatch, never both. The pipeline's stages release an Item
// of the wrong Kind for their stage and go on to the next one; they do not
// panic or log it.
type Item struct {
	Kind  ItemKind
	Frame frame.Frame
	Boxes detect.DetectionBatch
}

// FrameItem wraps a Frame as a queue Item.
func FrameItem(f frame.Frame) Item {
	return Item{Kind: ItemKindFrame, Frame: f}
}

// BoxesItem wraps a DetectionBatch as a queue Item.
func BoxesItem(b detect.DetectionBatch) Item {
	return Item{Kind: ItemKindBoxes, Boxes: b}
}

// Release drops the reference an Item holds, if any. Frame items release
// their Frame; boxes items hold no refcounted resource and are a no-op.
func (it Item) Release() {
	if it.Kind == ItemKindFrame {
		it.Frame.Release()
	}
}

// state is the Open/Closed lifecycle of a Queue.
type state int

const (
	stateOpen state = iota
	stateClosed
)

// Queue is a FIFO of bounded capacity with a drop-oldest overflow policy:
// Enqueue never blocks, and on a full queue it releases and discards the
// oldest item to make room for the new one. Dequeue supports both a
// blocking and a non-blocking form; both observe Close.
//
// A single mutex guards {items, state} and a condition variable wakes
// blocked dequeuers. The mutex is never held across a call into an external
// library or across another queue's lock.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	capacity int
	items    []Item
	state    state
}

// New returns an open Queue with room for at most capacity items. capacity
// must be at least 1.
func New(capacity int) *Queue {
	if capacity < 1 {
		panic("queue: capacity must be >= 1")
	}
	q := &Queue{
		capacity: capacity,
		items:    make([]Item, 0, capacity),
	}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends item to the queue, signalling one blocked dequeuer. If
// the queue is already at capacity, the oldest item is released and
// dropped first. Enqueue on a Closed queue releases item immediately and
// returns without adding it — a producer racing a Close must not leak the
// item it was about to hand off.
func (q *Queue) Enqueue(item Item) {
	q.mu.Lock()
	if q.state == stateClosed {
		q.mu.Unlock()
		item.Release()
		return
	}
	var dropped Item
	hadDrop := false
	if len(q.items) >= q.capacity {
		dropped = q.items[0]
		hadDrop = true
		q.items = q.items[1:]
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	if hadDrop {
		dropped.Release()
	}
	q.notEmpty.Signal()
}

// DequeueBlocking blocks until an item is available or the queue is
// closed. On success it returns (item, true). On close with no remaining
// items it returns (Item{}, false).
func (q *Queue) DequeueBlocking() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && q.state == stateOpen {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 {
		return Item{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// DequeueResult classifies the outcome of a non-blocking dequeue attempt.
type DequeueResult int

const (
	DequeueOK DequeueResult = iota
	DequeueEmpty
	DequeueClosed
)

// DequeueNonblocking returns immediately: an item if one is available, or a
// DequeueResult explaining why not (Empty for an open-but-empty queue,
// Closed for a closed-and-drained one).
func (q *Queue) DequeueNonblocking() (Item, DequeueResult) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) > 0 {
		item := q.items[0]
		q.items = q.items[1:]
		return item, DequeueOK
	}
	if q.state == stateClosed {
		return Item{}, DequeueClosed
	}
	return Item{}, DequeueEmpty
}

// Close transitions the queue to Closed. No further Enqueue succeeds (items
// offered after Close are released and dropped). Blocked and future
// DequeueBlocking calls drain any remaining items first, then return
// (Item{}, false) once empty. Idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	q.state = stateClosed
	q.mu.Unlock()
	q.notEmpty.Broadcast()
}

// Destroy closes the queue (if not already closed) and releases every
// remaining buffered item. Call once, at stage teardown, after all
// producers and consumers have stopped touching the queue.
func (q *Queue) Destroy() {
	q.mu.Lock()
	q.state = stateClosed
	remaining := q.items
	q.items = nil
	q.mu.Unlock()
	q.notEmpty.Broadcast()

	for _, it := range remaining {
		it.Release()
	}
}

// Len returns the current number of buffered items. Intended for metrics
// and tests; the value may be stale the instant it's read under
// concurrent use.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
