package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MeetingEventsTotal counts published meeting events.
	// Labels: type (meeting_started, participant_joined, ...)
	MeetingEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_meeting_events_total",
			Help: "Total number of meeting lifecycle and roster events",
		},
		[]string{"type"},
	)

	DroppedEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attendance_meeting_events_dropped_total",
			Help: "Meeting events dropped because a subscriber buffer was full",
		},
	)

	// RejectedJoinsTotal counts roster joins refused by a backend.
	// Labels: reason (capacity, duplicate, ended)
	RejectedJoinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_rejected_joins_total",
			Help: "Total number of refused meeting joins by reason",
		},
		[]string{"reason"},
	)
)
