package models

import "time"

// Heartbeat rows are append-only.
type Heartbeat struct {
	BaseModel

	SessionID         string     `json:"session_id" gorm:"index"`
	UserID            string     `json:"user_id"`
	MeetingID         string     `json:"meeting_id" gorm:"index"`
	Timestamp         time.Time  `json:"timestamp"`
	IsActive          bool       `json:"is_active"`
	IsVisible         bool       `json:"is_visible"`
	IsFocused         bool       `json:"is_focused"`
	ConnectionQuality string     `json:"connection_quality"`
	LastInteraction   *time.Time `json:"last_interaction"`
	MouseMovement     bool       `json:"mouse_movement"`
	KeyboardActivity  bool       `json:"keyboard_activity"`
	ScrollActivity    bool       `json:"scroll_activity"`
}
