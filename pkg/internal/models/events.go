package models

import (
	"time"

	"gorm.io/datatypes"
)

// MeetingEvent is the durable copy of an event published by a meeting
// backend.
type MeetingEvent struct {
	BaseModel

	Uuid      string            `json:"uuid" gorm:"uniqueIndex"`
	Type      string            `json:"type"`
	Provider  string            `json:"provider"`
	MeetingID string            `json:"meeting_id" gorm:"index"`
	UserID    string            `json:"user_id"`
	Payload   datatypes.JSONMap `json:"payload"`
	HappenAt  time.Time         `json:"happen_at"`
}
