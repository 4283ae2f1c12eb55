package model

import "time"

// SyncEntity names the kinds of data pulled incrementally from a channel.
// Each (connection, entity) pair owns exactly one checkpoint.
type SyncEntity string

const (
	EntityBookings SyncEntity = "BOOKINGS"
	EntityCalendar SyncEntity = "CALENDAR"
	EntityMessages SyncEntity = "MESSAGES"
)

// SyncCheckpoint marks how far an incremental sync has progressed for one
// (connection, entity) pair.  Watermark is the last-modified timestamp up
// to which data has been durably persisted; the optional date-window cursor
// is used by calendar pulls that page over stay dates.  Checkpoints are
// monotonic: the repository refuses to move a watermark backwards except
// through an explicit operator reset.
type SyncCheckpoint struct {
	ID           uint64     // sync_checkpoints.id
	ConnectionID uint64     // sync_checkpoints.connection_id
	EntityType   SyncEntity // sync_checkpoints.entity_type
	Watermark    time.Time  // sync_checkpoints.watermark
	WindowStart  *time.Time // sync_checkpoints.window_start (nullable)
	WindowEnd    *time.Time // sync_checkpoints.window_end (nullable)
	UpdatedAt    time.Time  // sync_checkpoints.updated_at
}

// SyncCycleStatus is the outcome of one pull cycle.
type SyncCycleStatus string

const (
	CycleSuccess     SyncCycleStatus = "SUCCESS"
	CyclePartial     SyncCycleStatus = "PARTIAL"
	CycleError       SyncCycleStatus = "ERROR"
	CycleRateLimited SyncCycleStatus = "RATE_LIMITED"
)

// SyncCycleLog is the durable trace of one sync cycle.  Nothing fails
// silently: every cycle, including aborted ones, writes a row that
// operators can inspect without reading process logs.
type SyncCycleLog struct {
	ID           uint64          // sync_cycle_log.id
	ConnectionID uint64          // sync_cycle_log.connection_id
	EntityType   SyncEntity      // sync_cycle_log.entity_type
	Status       SyncCycleStatus // sync_cycle_log.status
	Processed    int             // sync_cycle_log.processed
	Failed       int             // sync_cycle_log.failed
	CreditsSpent int             // sync_cycle_log.credits_spent
	ErrorMessage string          // sync_cycle_log.error_message
	DurationMs   int64           // sync_cycle_log.duration_ms
	StartedAt    time.Time       // sync_cycle_log.started_at
}
