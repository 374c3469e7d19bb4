package services

import (
	"errors"

	"git.solsynth.dev/hypernet/attendance/pkg/internal/database"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/models"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/provider"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventRecorder stores every event of a meeting backend and closes the
// liveness sessions of participants who left.
type EventRecorder struct {
	hub  *SessionHub
	sub  *provider.Subscription
	done chan struct{}
}

func RecordEvents(bus *provider.EventBus, hub *SessionHub) *EventRecorder {
	recorder := &EventRecorder{
		hub:  hub,
		sub:  bus.Subscribe(provider.AllTopics),
		done: make(chan struct{}),
	}
	go recorder.run()
	return recorder
}

func (v *EventRecorder) run() {
	defer close(v.done)
	for evt := range v.sub.C {
		v.handle(evt)
	}
}

// Close stops listening and waits for the pending events to be handled.
func (v *EventRecorder) Close() {
	v.sub.Close()
	<-v.done
}

func (v *EventRecorder) handle(evt provider.Event) {
	row := models.MeetingEvent{
		Uuid:      uuid.NewString(),
		Type:      string(evt.Type),
		Provider:  evt.Provider,
		MeetingID: evt.MeetingID,
		Payload:   models.EncodeMap(evt),
		HappenAt:  evt.At,
	}
	if evt.Participant != nil {
		row.UserID = evt.Participant.UserID
	}
	if err := database.C.Create(&row).Error; err != nil {
		log.Error().Err(err).Str("meeting", evt.MeetingID).Str("event", row.Type).
			Msg("An error occurred when recording meeting event...")
	}

	if v.hub == nil {
		return
	}
	switch evt.Type {
	case provider.EventParticipantLeft:
		if evt.Participant == nil {
			break
		}
		if _, err := v.hub.CloseParticipant(evt.MeetingID, evt.Participant.UserID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			log.Error().Err(err).Str("meeting", evt.MeetingID).Str("user", evt.Participant.UserID).
				Msg("An error occurred when closing session of departed participant...")
		}
	case provider.EventMeetingUpdated:
		v.hub.Reschedule(evt.Meeting)
	case provider.EventMeetingEnded, provider.EventMeetingDeleted:
		v.hub.CloseMeeting(evt.MeetingID)
	}
}

func ListMeetingEvents(meetingID string, take, offset int) ([]models.MeetingEvent, error) {
	if take > 100 {
		take = 100
	}

	var events []models.MeetingEvent
	if err := database.C.
		Where(&models.MeetingEvent{MeetingID: meetingID}).
		Limit(take).Offset(offset).
		Order("happen_at DESC").
		Find(&events).Error; err != nil {
		return events, err
	} else {
		return events, nil
	}
}

func CountMeetingEvents(meetingID string) int64 {
	var count int64
	if err := database.C.Where(&models.MeetingEvent{
		MeetingID: meetingID,
	}).Model(&models.MeetingEvent{}).Count(&count).Error; err != nil {
		return 0
	} else {
		return count
	}
}
