package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/codedeck/codedeck-backend/internal/types"
)

// Domain event types recorded in the outbox. Events are immutable once
// written; consumers must tolerate re-delivery.
const (
	LessonCreated  = "lesson.created"
	LessonUpdated  = "lesson.updated"
	LessonDeleted  = "lesson.deleted"
	BlockCreated   = "block.created"
	BlockUpdated   = "block.updated"
	BlockReordered = "block.reordered"
	BlockDeleted   = "block.deleted"
)

// Envelope is the serialized form stored in the outbox payload column.
type Envelope struct {
	Type       string          `json:"type"`
	LessonID   uuid.UUID       `json:"lessonId"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// LessonPayload seeds or replaces lesson-level view fields. lesson.created
// seeds a view with an empty block list (blocks arrive as block.created
// events); lesson.updated carries the same shape and is applied as a
// targeted field update.
type LessonPayload struct {
	LessonID uuid.UUID `json:"lessonId"`
	CourseID uuid.UUID `json:"courseId"`
	Title    string    `json:"title"`
	Goals    string    `json:"goals,omitempty"`
	Order    int       `json:"order"`
	IsDraft  bool      `json:"isDraft"`
}

type LessonDeletedPayload struct {
	LessonID uuid.UUID `json:"lessonId"`
}

type BlockPayload struct {
	LessonID uuid.UUID       `json:"lessonId"`
	Block    types.BlockView `json:"block"`
}

type BlockReorderedPayload struct {
	LessonID   uuid.UUID `json:"lessonId"`
	BlockID    uuid.UUID `json:"blockId"`
	OrderIndex float64   `json:"orderIndex"`
}

type BlockDeletedPayload struct {
	LessonID uuid.UUID `json:"lessonId"`
	BlockID  uuid.UUID `json:"blockId"`
}

// BlockViewOf converts a relational block into its read-model shape.
func BlockViewOf(b *types.Block) types.BlockView {
	return types.BlockView{
		BlockID:        b.ID,
		Type:           b.Type,
		OrderIndex:     b.OrderIndex,
		RequiredAction: b.RequiredAction,
		Content:        json.RawMessage(b.Content),
	}
}

// LessonPayloadOf converts a relational lesson into its event payload shape.
func LessonPayloadOf(l *types.Lesson) LessonPayload {
	return LessonPayload{
		LessonID: l.ID,
		CourseID: l.CourseID,
		Title:    l.Title,
		Goals:    l.Goals,
		Order:    l.Order,
		IsDraft:  l.IsDraft,
	}
}
