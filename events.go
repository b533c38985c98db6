// This file re-exports the internal events package so callers can type
// switch on emitted events without importing an internal package
// directly.
package videopipe

import "github.com/five82/videopipe/internal/events"

// Event is the interface every emitted event satisfies.
type Event = events.Event

// EventHandler receives events as they are emitted. See WithEventHandler.
type EventHandler = events.Handler

// StageStartedEvent announces that one of the peer stages has begun
// running.
type StageStartedEvent = events.StageStartedEvent

// StageExitedEvent announces that a stage has returned.
type StageExitedEvent = events.StageExitedEvent

// WarningFiredEvent mirrors a warning debouncer firing.
type WarningFiredEvent = events.WarningFiredEvent

// SegmentRotatedEvent announces a recorder segment rotation.
type SegmentRotatedEvent = events.SegmentRotatedEvent
