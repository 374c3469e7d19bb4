// Package attendance turns the log of a liveness session into an attendance
// percentage, a credit decision and an engagement score. Every function is
// total: bad or empty inputs produce zero, never a panic.
package attendance

import (
	"math"
	"time"
)

const (
	DefaultThreshold = 75.0

	// InteractionTarget is the interaction count that earns the full
	// interaction part of the engagement score.
	InteractionTarget = 10

	heartbeatWeight   = 0.4
	interactionWeight = 0.3
	presenceWeight    = 0.3
)

// Percentage is the share of the scheduled duration spent in the meeting and
// not idle, clamped to [0, 100].
func Percentage(joinedAt, leftAt time.Time, scheduledMinutes, idleSeconds float64) float64 {
	scheduled := scheduledMinutes * 60
	if !(scheduled > 0) || math.IsInf(scheduled, 0) {
		return 0
	}
	if math.IsNaN(idleSeconds) {
		idleSeconds = 0
	}

	present := leftAt.Sub(joinedAt).Seconds() - idleSeconds
	return clamp(present/scheduled*100, 0, 100)
}

func IsCredited(percentage, threshold float64) bool {
	return percentage >= threshold
}

// EngagementScore weighs heartbeat completeness, interactions and the
// non-idle share of the session into a 0-100 score.
func EngagementScore(received, expected, interactions int, idleSeconds, sessionSeconds float64) float64 {
	heartbeats := ratio(float64(received), float64(expected))
	activity := ratio(float64(interactions), InteractionTarget)

	presence := 0.0
	if sessionSeconds > 0 && !math.IsInf(sessionSeconds, 0) && !math.IsNaN(idleSeconds) {
		presence = clamp(1-idleSeconds/sessionSeconds, 0, 1)
	}

	score := (heartbeatWeight*heartbeats + interactionWeight*activity + presenceWeight*presence) * 100
	return round2(clamp(score, 0, 100))
}

// ExpectedHeartbeats is the number of ticks a session of the given length
// should have produced.
func ExpectedHeartbeats(session, interval time.Duration) int {
	if session <= 0 || interval <= 0 {
		return 0
	}
	return int(session / interval)
}

// SessionLog is what the durable store knows about one session once it is
// over.
type SessionLog struct {
	UserID    string
	MeetingID string
	SessionID string

	JoinedAt         time.Time
	LeftAt           time.Time
	ScheduledMinutes int
	IdleSeconds      float64

	HeartbeatsReceived int
	HeartbeatInterval  time.Duration
	Interactions       int
}

type Record struct {
	UserID               string    `json:"user_id"`
	MeetingID            string    `json:"meeting_id"`
	SessionID            string    `json:"session_id"`
	JoinedAt             time.Time `json:"joined_at"`
	LeftAt               time.Time `json:"left_at"`
	AttendancePercentage float64   `json:"attendance_percentage"`
	IsCredited           bool      `json:"is_credited"`
	EngagementScore      float64   `json:"engagement_score"`
}

// Evaluate scores a single session. Sessions of the same user are scored
// independently, combining them is up to the reader of the records.
func Evaluate(log SessionLog, threshold float64) Record {
	session := log.LeftAt.Sub(log.JoinedAt)
	percentage := round2(Percentage(log.JoinedAt, log.LeftAt, float64(log.ScheduledMinutes), log.IdleSeconds))

	return Record{
		UserID:               log.UserID,
		MeetingID:            log.MeetingID,
		SessionID:            log.SessionID,
		JoinedAt:             log.JoinedAt,
		LeftAt:               log.LeftAt,
		AttendancePercentage: percentage,
		IsCredited:           IsCredited(percentage, threshold),
		EngagementScore: EngagementScore(
			log.HeartbeatsReceived,
			ExpectedHeartbeats(session, log.HeartbeatInterval),
			log.Interactions,
			log.IdleSeconds,
			session.Seconds(),
		),
	}
}

func ratio(num, den float64) float64 {
	if !(den > 0) || math.IsNaN(num) {
		return 0
	}
	return clamp(num/den, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return lo
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
