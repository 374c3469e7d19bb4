package database

import (
	"git.solsynth.dev/hypernet/attendance/pkg/internal/models"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&models.LivenessSession{},
	&models.Heartbeat{},
	&models.AttendanceRecord{},
	&models.MeetingEvent{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(AutoMaintainRange...); err != nil {
		return err
	}

	return nil
}
