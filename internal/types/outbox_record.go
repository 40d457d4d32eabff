package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// OutboxRecord is written in the same transaction as the mutation that
// produced it. Records are never deleted; DispatchedAt marks delivery, so the
// table doubles as an audit log of committed domain events.
type OutboxRecord struct {
	ID           uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID      uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();uniqueIndex" json:"event_id"`
	EventType    string         `gorm:"column:event_type;not null;index" json:"event_type"`
	LessonID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"lesson_id"`
	Payload      datatypes.JSON `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	CreatedAt    time.Time      `gorm:"not null;default:now();index:idx_outbox_pending" json:"created_at"`
	DispatchedAt *time.Time     `gorm:"column:dispatched_at;index:idx_outbox_pending" json:"dispatched_at,omitempty"`
}

func (OutboxRecord) TableName() string { return "outbox_record" }
