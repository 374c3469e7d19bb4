package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_TopicsAndWildcard(t *testing.T) {
	bus := NewEventBus(4)

	one := bus.Subscribe("m1")
	defer one.Close()
	all := bus.Subscribe(AllTopics)
	defer all.Close()

	bus.Publish(Event{Type: EventMeetingStarted, MeetingID: "m1"})
	bus.Publish(Event{Type: EventMeetingStarted, MeetingID: "m2"})

	assert.Len(t, one.C, 1)
	assert.Len(t, all.C, 2)
	assert.Equal(t, "m1", (<-one.C).MeetingID)
}

func TestEventBus_FullSubscriberDoesNotBlock(t *testing.T) {
	bus := NewEventBus(1)
	sub := bus.Subscribe("m1")
	defer sub.Close()

	bus.Publish(Event{Type: EventMeetingStarted, MeetingID: "m1"})
	bus.Publish(Event{Type: EventMeetingEnded, MeetingID: "m1"})

	require.Len(t, sub.C, 1)
	assert.Equal(t, EventMeetingStarted, (<-sub.C).Type)
}

func TestEventBus_CloseDetaches(t *testing.T) {
	bus := NewEventBus(0)
	sub := bus.Subscribe("m1")
	assert.Equal(t, 1, bus.Subscribers("m1"))

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, bus.Subscribers("m1"))

	_, open := <-sub.C
	assert.False(t, open)

	bus.Publish(Event{Type: EventMeetingStarted, MeetingID: "m1"})
}
