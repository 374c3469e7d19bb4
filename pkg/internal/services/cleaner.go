package services

import (
	"time"

	"git.solsynth.dev/hypernet/attendance/pkg/internal/database"
	"github.com/rs/zerolog/log"
)

// Soft-deleted rows are kept this long before they are purged.
const cleanupRetention = 7 * 24 * time.Hour

func DoAutoDatabaseCleanup() {
	deadline := time.Now().Add(-cleanupRetention)
	log.Debug().Time("deadline", deadline).Msg("Now cleaning up entire database...")

	// Deal soft-deletion
	var count int64
	for _, model := range database.AutoMaintainRange {
		tx := database.C.Unscoped().Delete(model, "deleted_at <= ?", deadline)
		if tx.Error != nil {
			log.Error().Err(tx.Error).Msg("An error occurred when running database cleanup...")
		}
		count += tx.RowsAffected
	}

	log.Debug().Int64("affected", count).Msg("Clean up entire database accomplished.")
}
