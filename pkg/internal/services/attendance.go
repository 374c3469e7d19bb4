package services

import (
	"git.solsynth.dev/hypernet/attendance/pkg/internal/database"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/models"
)

func ListAttendance(meetingID string) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := database.C.
		Where(&models.AttendanceRecord{MeetingID: meetingID}).
		Order("joined_at ASC").
		Find(&records).Error; err != nil {
		return records, err
	} else {
		return records, nil
	}
}

func ListSessions(meetingID string) ([]models.LivenessSession, error) {
	var sessions []models.LivenessSession
	if err := database.C.
		Where(&models.LivenessSession{MeetingID: meetingID}).
		Order("joined_at ASC").
		Find(&sessions).Error; err != nil {
		return sessions, err
	} else {
		return sessions, nil
	}
}
