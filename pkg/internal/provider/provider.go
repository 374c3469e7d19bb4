// Package provider defines the contract every meeting backend satisfies and
// ships the in-memory reference backend together with the registry that
// resolves backends by name.
package provider

import (
	"context"
	"time"
)

type MeetingStatus string

const (
	StatusScheduled MeetingStatus = "scheduled"
	StatusLive      MeetingStatus = "live"
	StatusEnded     MeetingStatus = "ended"
)

// MeetingSpec describes a meeting to schedule. Duration is in minutes and a
// zero MaxAttendees means unlimited.
type MeetingSpec struct {
	Title        string    `json:"title" validate:"required,max=256"`
	Description  string    `json:"description" validate:"max=4096"`
	ScheduledAt  time.Time `json:"scheduled_at" validate:"required"`
	Duration     int       `json:"duration" validate:"gt=0"`
	MaxAttendees int       `json:"max_attendees" validate:"gte=0"`
	HostID       string    `json:"host_id"`
}

// MeetingPatch carries the fields to change on a meeting. Nil fields are left
// untouched.
type MeetingPatch struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
	Duration     *int       `json:"duration"`
	MaxAttendees *int       `json:"max_attendees"`
}

func (p MeetingPatch) apply(spec MeetingSpec) MeetingSpec {
	if p.Title != nil {
		spec.Title = *p.Title
	}
	if p.Description != nil {
		spec.Description = *p.Description
	}
	if p.ScheduledAt != nil {
		spec.ScheduledAt = *p.ScheduledAt
	}
	if p.Duration != nil {
		spec.Duration = *p.Duration
	}
	if p.MaxAttendees != nil {
		spec.MaxAttendees = *p.MaxAttendees
	}
	return spec
}

type Meeting struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`

	MeetingSpec

	Status    MeetingStatus `json:"status"`
	JoinURL   string        `json:"join_url"`
	HostURL   string        `json:"host_url"`
	CreatedAt time.Time     `json:"created_at"`
	StartedAt *time.Time    `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at"`

	Participants []Participant `json:"participants"`
}

// ScheduledDuration is the planned length of the meeting.
func (m Meeting) ScheduledDuration() time.Duration {
	return time.Duration(m.Duration) * time.Minute
}

// ActiveCount is the number of roster entries still in the meeting.
func (m Meeting) ActiveCount() int {
	count := 0
	for _, p := range m.Participants {
		if p.IsActive {
			count++
		}
	}
	return count
}

// Participant is one roster entry. A user who leaves and joins again gets a
// new entry, the old one stays in the roster with IsActive cleared.
type Participant struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	Name         string        `json:"name"`
	JoinedAt     time.Time     `json:"joined_at"`
	LeftAt       *time.Time    `json:"left_at"`
	Duration     time.Duration `json:"duration"`
	IsHost       bool          `json:"is_host"`
	AudioEnabled bool          `json:"audio_enabled"`
	VideoEnabled bool          `json:"video_enabled"`
	IsActive     bool          `json:"is_active"`
}

type ParticipantSpec struct {
	UserID       string `json:"user_id" validate:"required"`
	Name         string `json:"name"`
	AudioEnabled bool   `json:"audio_enabled"`
	VideoEnabled bool   `json:"video_enabled"`
}

// Provider is the capability set of a meeting backend. Contract violations
// are returned as the sentinel errors of this package.
type Provider interface {
	Name() string

	CreateMeeting(ctx context.Context, spec MeetingSpec) (Meeting, error)
	UpdateMeeting(ctx context.Context, id string, patch MeetingPatch) (Meeting, error)
	// DeleteMeeting ends a live meeting before removing it.
	DeleteMeeting(ctx context.Context, id string) error
	GetMeetingInfo(ctx context.Context, id string) (Meeting, error)
	GetParticipants(ctx context.Context, id string) ([]Participant, error)
	GenerateJoinURL(ctx context.Context, id, userID, userName string) (string, error)

	StartMeeting(ctx context.Context, id string) (Meeting, error)
	// EndMeeting makes every joined participant leave, then ends the
	// meeting. Ending an ended meeting does nothing.
	EndMeeting(ctx context.Context, id string) (Meeting, error)

	JoinMeeting(ctx context.Context, id string, spec ParticipantSpec) (Participant, error)
	LeaveMeeting(ctx context.Context, id, userID string) (Participant, error)

	Events() *EventBus
}
