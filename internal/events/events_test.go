package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewBaseStampsTypeAndTime(t *testing.T) {
	now := time.Unix(1700000000, 0)
	b := NewBase(TypeStageStarted, now)

	assert.Equal(t, TypeStageStarted, b.Type())
	assert.True(t, b.Timestamp().Equal(now))
}

func TestConcreteEventsSatisfyEventInterface(t *testing.T) {
	now := time.Unix(1700000000, 0)

	var events []Event
	events = append(events,
		StageStartedEvent{BaseEvent: NewBase(TypeStageStarted, now), Stage: "ingest"},
		StageExitedEvent{BaseEvent: NewBase(TypeStageExited, now), Stage: "ingest", Err: "boom"},
		WarningFiredEvent{BaseEvent: NewBase(TypeWarningFired, now), Label: "person", Count: 10, WindowMS: 10000},
		SegmentRotatedEvent{BaseEvent: NewBase(TypeSegmentRotated, now), ClosedPath: "a.mp4", NextPath: "b.mp4"},
	)

	for _, e := range events {
		assert.NotEmpty(t, e.Type())
		assert.True(t, e.Timestamp().Equal(now))
	}
}

func TestHandlerReceivesEmittedEvent(t *testing.T) {
	var got Event
	var h Handler = func(e Event) { got = e }

	h(StageStartedEvent{BaseEvent: NewBase(TypeStageStarted, time.Now()), Stage: "renderer"})

	se, ok := got.(StageStartedEvent)
	assert.True(t, ok)
	assert.Equal(t, "renderer", se.Stage)
}
