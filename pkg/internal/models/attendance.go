package models

import "time"

type AttendanceRecord struct {
	BaseModel

	UserID               string    `json:"user_id" gorm:"index"`
	MeetingID            string    `json:"meeting_id" gorm:"index"`
	SessionID            string    `json:"session_id" gorm:"uniqueIndex"`
	JoinedAt             time.Time `json:"joined_at"`
	LeftAt               time.Time `json:"left_at"`
	AttendancePercentage float64   `json:"attendance_percentage"`
	IsCredited           bool      `json:"is_credited"`
	EngagementScore      float64   `json:"engagement_score"`
	Threshold            float64   `json:"threshold"`
}
