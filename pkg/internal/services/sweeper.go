package services

import (
	"git.solsynth.dev/hypernet/attendance/pkg/internal/database"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SweepStaleSessions closes sessions that stayed disconnected past the idle
// limit and finishes rows left open by a previous process.
func SweepStaleSessions() {
	if Hub == nil {
		return
	}
	closed := Hub.Sweep(Hub.Config().MaxIdleTime)

	orphans, err := EndOrphanSessions(Hub.Running())
	if err != nil {
		log.Error().Err(err).Msg("An error occurred when ending orphan sessions...")
	}

	log.Debug().Int("closed", closed).Int64("orphans", orphans).Msg("Stale session sweep accomplished.")
}

// EndOrphanSessions marks open session rows that no running manager owns as
// ended at their last heartbeat.
func EndOrphanSessions(running []string) (int64, error) {
	tx := database.C.Model(&models.LivenessSession{}).Where("ended_at IS NULL")
	if len(running) > 0 {
		tx = tx.Where("session_id NOT IN ?", running)
	}
	tx = tx.Updates(map[string]any{
		"state":    "ended",
		"ended_at": gorm.Expr("COALESCE(last_heartbeat_at, joined_at)"),
	})
	return tx.RowsAffected, tx.Error
}
