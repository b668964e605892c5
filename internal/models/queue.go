package models

import (
	"time"

	"gorm.io/gorm"
)

type EnumQueueStatus string

const (
	QueueStatusWaiting EnumQueueStatus = "waiting"
	QueueStatusActive  EnumQueueStatus = "active"
)

// QueueEntry is one user's place in the waiting list for pooled plans.
// Entries are deleted on completion, so the unique index on user_id
// doubles as the at-most-one-live-entry-per-user invariant.
//
// Position is derived: it is recomputed from JoinedAt order on every
// join/leave rather than incremented, because completions remove entries
// from the middle of the queue and positions must stay dense.
type QueueEntry struct {
	gorm.Model
	UserID    string          `gorm:"column:user_id;uniqueIndex;not null"`
	PlanID    string          `gorm:"column:plan_id;not null"`
	Position  int             `gorm:"column:position;not null"`
	Status    EnumQueueStatus `gorm:"column:status;not null;index"`
	MachineID *uint           `gorm:"column:machine_id"` // VMRecord bound on activation
	JoinedAt  time.Time       `gorm:"column:joined_at;not null;index"`
}
