package services

import (
	"context"

	"git.solsynth.dev/hypernet/attendance/pkg/internal/database"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/liveness"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/models"
	"github.com/samber/lo"
)

// DeliverHeartbeat appends a heartbeat to the store.
func DeliverHeartbeat(ctx context.Context, hb liveness.Heartbeat) error {
	row := models.Heartbeat{
		SessionID:         hb.SessionID,
		UserID:            hb.UserID,
		MeetingID:         hb.MeetingID,
		Timestamp:         hb.Timestamp,
		IsActive:          hb.IsActive,
		IsVisible:         hb.IsVisible,
		IsFocused:         hb.IsFocused,
		ConnectionQuality: string(hb.ConnectionQuality),
		LastInteraction:   lo.EmptyableToPtr(hb.LastInteraction),
		MouseMovement:     hb.MouseMovement,
		KeyboardActivity:  hb.KeyboardActivity,
		ScrollActivity:    hb.ScrollActivity,
	}
	return database.C.WithContext(ctx).Create(&row).Error
}

func ListHeartbeats(sessionID string, take, offset int) ([]models.Heartbeat, error) {
	if take > 100 {
		take = 100
	}

	var heartbeats []models.Heartbeat
	if err := database.C.
		Where(&models.Heartbeat{SessionID: sessionID}).
		Limit(take).Offset(offset).
		Order("timestamp DESC").
		Find(&heartbeats).Error; err != nil {
		return heartbeats, err
	} else {
		return heartbeats, nil
	}
}
