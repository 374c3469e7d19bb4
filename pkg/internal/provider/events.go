package provider

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventMeetingCreated    EventType = "meeting_created"
	EventMeetingUpdated    EventType = "meeting_updated"
	EventMeetingStarted    EventType = "meeting_started"
	EventParticipantJoined EventType = "participant_joined"
	EventParticipantLeft   EventType = "participant_left"
	EventMeetingEnded      EventType = "meeting_ended"
	EventMeetingDeleted    EventType = "meeting_deleted"
)

// AllTopics subscribes to the events of every meeting.
const AllTopics = "*"

const DefaultEventBuffer = 64

// Event is published on the topic of its meeting. Meeting is a snapshot
// taken when the event happened, Participant is set for roster events.
type Event struct {
	Type        EventType    `json:"type"`
	Provider    string       `json:"provider"`
	MeetingID   string       `json:"meeting_id"`
	At          time.Time    `json:"at"`
	Meeting     Meeting      `json:"meeting"`
	Participant *Participant `json:"participant,omitempty"`
}

type Subscription struct {
	C <-chan Event

	ch    chan Event
	topic string
	bus   *EventBus
	once  sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

// EventBus fans out meeting events by meeting id. Publishing never blocks:
// a subscriber whose buffer is full misses the event.
type EventBus struct {
	mu     sync.RWMutex
	buffer int
	topics map[string]map[*Subscription]struct{}
}

func NewEventBus(buffer int) *EventBus {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &EventBus{
		buffer: buffer,
		topics: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe listens on a meeting id, or on AllTopics.
func (b *EventBus) Subscribe(topic string) *Subscription {
	ch := make(chan Event, b.buffer)
	sub := &Subscription{C: ch, ch: ch, topic: topic, bus: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*Subscription]struct{})
	}
	b.topics[topic][sub] = struct{}{}
	return sub
}

func (b *EventBus) Publish(evt Event) {
	MeetingEventsTotal.WithLabelValues(string(evt.Type)).Inc()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, topic := range []string{evt.MeetingID, AllTopics} {
		for sub := range b.topics[topic] {
			select {
			case sub.ch <- evt:
			default:
				DroppedEventsTotal.Inc()
				log.Warn().
					Str("topic", topic).
					Str("event", string(evt.Type)).
					Str("meeting", evt.MeetingID).
					Msg("Meeting event subscriber is lagging behind, event dropped...")
			}
		}
	}
}

// Subscribers counts the subscriptions of a topic.
func (b *EventBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *EventBus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.topics[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.topics, sub.topic)
		}
	}
	close(sub.ch)
}
