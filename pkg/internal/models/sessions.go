package models

import "time"

// LivenessSession mirrors one liveness session of a participant. The row is
// created on join and completed when the session is closed.
type LivenessSession struct {
	BaseModel

	SessionID     string     `json:"session_id" gorm:"uniqueIndex"`
	UserID        string     `json:"user_id" gorm:"index"`
	MeetingID     string     `json:"meeting_id" gorm:"index"`
	ParticipantID string     `json:"participant_id"`
	Provider      string     `json:"provider"`
	State         string     `json:"state"`
	JoinedAt      time.Time  `json:"joined_at"`
	EndedAt       *time.Time `json:"ended_at"`

	ScheduledMinutes  int        `json:"scheduled_minutes"`
	HeartbeatInterval int        `json:"heartbeat_interval"`
	IdleSeconds       float64    `json:"idle_seconds"`
	HeartbeatsSent    int        `json:"heartbeats_sent"`
	HeartbeatsFailed  int        `json:"heartbeats_failed"`
	Interactions      int        `json:"interactions"`
	LastHeartbeatAt   *time.Time `json:"last_heartbeat_at"`
}
