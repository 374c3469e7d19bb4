package services

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"git.solsynth.dev/hypernet/attendance/pkg/internal/attendance"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/database"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/liveness"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/models"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/provider"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/scheduler"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

var (
	ErrSessionNotFound = errors.New("liveness session not found")
	ErrInvalidSignal   = errors.New("unknown activity signal")
)

type HubOptions struct {
	Scheduler scheduler.Scheduler
	Config    liveness.Config
	Prober    liveness.Prober
	Deliver   liveness.DeliveryFunc
	Threshold float64
}

// SessionHub runs one liveness manager per joined participant and settles
// the attendance of each session when it closes.
type SessionHub struct {
	sched     scheduler.Scheduler
	cfg       liveness.Config
	prober    liveness.Prober
	deliver   liveness.DeliveryFunc
	threshold float64

	sessions *xsync.MapOf[string, *hubSession]
}

type hubSession struct {
	manager *liveness.Manager
	feed    *liveness.Feed

	// scheduled is the meeting duration in minutes, kept current while the
	// session runs.
	scheduled atomic.Int64

	// disconnectedAt is a unix nano timestamp, zero while connected.
	disconnectedAt atomic.Int64
}

var Hub *SessionHub

func SetupSessionHub() {
	sched := scheduler.New(nil)
	Hub = NewSessionHub(HubOptions{
		Scheduler: sched,
		Config:    LivenessConfig(),
		Prober:    NewProber(sched),
		Deliver:   DeliverHeartbeat,
		Threshold: AttendanceThreshold(),
	})
}

func NewSessionHub(opts HubOptions) *SessionHub {
	if opts.Scheduler == nil {
		opts.Scheduler = scheduler.New(nil)
	}
	if opts.Threshold <= 0 {
		opts.Threshold = attendance.DefaultThreshold
	}
	return &SessionHub{
		sched:     opts.Scheduler,
		cfg:       opts.Config.WithDefaults(),
		prober:    opts.Prober,
		deliver:   opts.Deliver,
		threshold: opts.Threshold,
		sessions:  xsync.NewMapOf[string, *hubSession](),
	}
}

func (h *SessionHub) Config() liveness.Config {
	return h.cfg
}

// Open starts the liveness session of a participant who just joined. An
// older session of the same user in the same meeting is settled first.
func (h *SessionHub) Open(meeting provider.Meeting, participant provider.Participant) (*liveness.Manager, error) {
	if _, err := h.CloseParticipant(meeting.ID, participant.UserID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		log.Warn().Err(err).Str("meeting", meeting.ID).Str("user", participant.UserID).
			Msg("An error occurred when settling previous session...")
	}

	entry := &hubSession{
		feed: liveness.NewFeed(),
	}
	entry.scheduled.Store(int64(meeting.Duration))
	entry.manager = liveness.NewManager(liveness.ManagerOptions{
		UserID:      participant.UserID,
		MeetingID:   meeting.ID,
		Config:      h.cfg,
		Scheduler:   h.sched,
		Source:      entry.feed,
		Environment: liveness.NewWindow(),
		Prober:      h.prober,
		Deliver:     h.deliver,
		OnStateChange: func(change liveness.StateChange) {
			h.onStateChange(entry, change)
		},
	})

	stats := entry.manager.Stats()
	row := models.LivenessSession{
		SessionID:         stats.SessionID,
		UserID:            stats.UserID,
		MeetingID:         stats.MeetingID,
		ParticipantID:     participant.ID,
		Provider:          meeting.Provider,
		State:             string(stats.State),
		JoinedAt:          stats.JoinedAt,
		ScheduledMinutes:  meeting.Duration,
		HeartbeatInterval: int(h.cfg.HeartbeatInterval / time.Second),
	}
	// Stored before the row exists so the orphan sweep never ends it.
	h.sessions.Store(stats.SessionID, entry)
	if err := database.C.Create(&row).Error; err != nil {
		h.sessions.Delete(stats.SessionID)
		return nil, fmt.Errorf("failed to record session: %v", err)
	}

	entry.manager.Start()
	return entry.manager, nil
}

func (h *SessionHub) onStateChange(entry *hubSession, change liveness.StateChange) {
	if change.To == liveness.StateDisconnected {
		entry.disconnectedAt.Store(change.At.UnixNano())
	}

	if err := database.C.Model(&models.LivenessSession{}).
		Where("session_id = ?", change.SessionID).
		Update("state", string(change.To)).Error; err != nil {
		log.Error().Err(err).Str("session", change.SessionID).
			Msg("An error occurred when updating session state...")
	}
}

// Signal feeds activity signals into a running session. Visibility and
// focus signals also update what the session's heartbeats report.
func (h *SessionHub) Signal(sessionID string, signals ...liveness.Signal) error {
	entry, ok := h.sessions.Load(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	for _, sig := range signals {
		if !sig.Kind.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidSignal, sig.Kind)
		}
	}
	for _, sig := range signals {
		entry.feed.Send(sig)
	}
	return nil
}

func (h *SessionHub) Stats(sessionID string) (liveness.Stats, error) {
	entry, ok := h.sessions.Load(sessionID)
	if !ok {
		return liveness.Stats{}, ErrSessionNotFound
	}
	return entry.manager.Stats(), nil
}

// Reschedule applies a changed meeting duration to the running sessions of
// that meeting.
func (h *SessionHub) Reschedule(meeting provider.Meeting) {
	h.sessions.Range(func(_ string, entry *hubSession) bool {
		if entry.manager.MeetingID() == meeting.ID {
			entry.scheduled.Store(int64(meeting.Duration))
		}
		return true
	})
}

// Running lists the ids of the sessions held by this hub.
func (h *SessionHub) Running() []string {
	var ids []string
	h.sessions.Range(func(id string, _ *hubSession) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// Close stops a session and stores its attendance record. Closing a session
// twice reports ErrSessionNotFound the second time.
func (h *SessionHub) Close(sessionID string) (attendance.Record, error) {
	entry, ok := h.sessions.LoadAndDelete(sessionID)
	if !ok {
		return attendance.Record{}, ErrSessionNotFound
	}
	return h.settle(entry)
}

func (h *SessionHub) CloseParticipant(meetingID, userID string) (attendance.Record, error) {
	ids := h.find(func(entry *hubSession) bool {
		return entry.manager.MeetingID() == meetingID && entry.manager.UserID() == userID
	})
	if len(ids) == 0 {
		return attendance.Record{}, ErrSessionNotFound
	}
	return h.Close(ids[0])
}

// CloseMeeting settles every session of a meeting.
func (h *SessionHub) CloseMeeting(meetingID string) []attendance.Record {
	ids := h.find(func(entry *hubSession) bool {
		return entry.manager.MeetingID() == meetingID
	})

	var records []attendance.Record
	for _, id := range ids {
		record, err := h.Close(id)
		if errors.Is(err, ErrSessionNotFound) {
			continue
		} else if err != nil {
			log.Error().Err(err).Str("session", id).Msg("An error occurred when closing session...")
		}
		records = append(records, record)
	}
	return records
}

// Sweep closes sessions that stayed disconnected for longer than the given
// grace period.
func (h *SessionHub) Sweep(grace time.Duration) int {
	now := h.sched.Now()
	ids := h.find(func(entry *hubSession) bool {
		at := entry.disconnectedAt.Load()
		return at != 0 && now.Sub(time.Unix(0, at)) >= grace
	})

	closed := 0
	for _, id := range ids {
		if _, err := h.Close(id); errors.Is(err, ErrSessionNotFound) {
			continue
		} else if err != nil {
			log.Error().Err(err).Str("session", id).Msg("An error occurred when closing stale session...")
		}
		closed++
	}
	return closed
}

func (h *SessionHub) find(match func(entry *hubSession) bool) []string {
	var ids []string
	h.sessions.Range(func(id string, entry *hubSession) bool {
		if match(entry) {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}

func (h *SessionHub) settle(entry *hubSession) (attendance.Record, error) {
	entry.manager.Stop()
	stats := entry.manager.Stats()
	endedAt := lo.FromPtrOr(stats.EndedAt, h.sched.Now())
	scheduled := int(entry.scheduled.Load())

	record := attendance.Evaluate(attendance.SessionLog{
		UserID:             stats.UserID,
		MeetingID:          stats.MeetingID,
		SessionID:          stats.SessionID,
		JoinedAt:           stats.JoinedAt,
		LeftAt:             endedAt,
		ScheduledMinutes:   scheduled,
		IdleSeconds:        stats.IdleTime.Seconds(),
		HeartbeatsReceived: stats.HeartbeatsSent,
		HeartbeatInterval:  h.cfg.HeartbeatInterval,
		Interactions:       stats.Interactions,
	}, h.threshold)

	err := database.C.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"state":             string(stats.State),
			"ended_at":          endedAt,
			"scheduled_minutes": scheduled,
			"idle_seconds":      stats.IdleTime.Seconds(),
			"heartbeats_sent":   stats.HeartbeatsSent,
			"heartbeats_failed": stats.HeartbeatsFailed,
			"interactions":      stats.Interactions,
		}
		if stats.HeartbeatsSent > 0 {
			updates["last_heartbeat_at"] = stats.LastHeartbeatStamp
		}
		if err := tx.Model(&models.LivenessSession{}).
			Where("session_id = ?", stats.SessionID).
			Updates(updates).Error; err != nil {
			return err
		}

		return tx.Create(&models.AttendanceRecord{
			UserID:               record.UserID,
			MeetingID:            record.MeetingID,
			SessionID:            record.SessionID,
			JoinedAt:             record.JoinedAt,
			LeftAt:               record.LeftAt,
			AttendancePercentage: record.AttendancePercentage,
			IsCredited:           record.IsCredited,
			EngagementScore:      record.EngagementScore,
			Threshold:            h.threshold,
		}).Error
	})
	if err != nil {
		return record, fmt.Errorf("failed to settle session %s: %v", stats.SessionID, err)
	}

	log.Info().
		Str("session", stats.SessionID).
		Str("meeting", stats.MeetingID).
		Str("user", stats.UserID).
		Float64("attendance", record.AttendancePercentage).
		Bool("credited", record.IsCredited).
		Msg("Liveness session settled.")
	return record, nil
}
