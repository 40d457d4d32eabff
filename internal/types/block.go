package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	BlockTypeText = "text"
	BlockTypeCode = "code"
	BlockTypeQuiz = "quiz"

	RequiredActionView   = "view"
	RequiredActionSubmit = "submit"
	RequiredActionPass   = "pass"
)

// Block is one ordered content unit inside a lesson. OrderIndex is a float so
// a block can be inserted between two neighbors without renumbering; the
// unique index enforces that no two live blocks in a lesson share an index.
// The index is partial on deleted_at so a soft-deleted block does not keep
// occupying its slot.
type Block struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LessonID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_block_lesson_order,unique,where:deleted_at IS NULL" json:"lesson_id"`
	Lesson         *Lesson        `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
	Type           string         `gorm:"column:type;not null" json:"type"`
	OrderIndex     float64        `gorm:"column:order_index;not null;index:idx_block_lesson_order,unique" json:"order_index"`
	RequiredAction string         `gorm:"column:required_action;not null;default:'view'" json:"required_action"`
	Content        datatypes.JSON `gorm:"column:content;type:jsonb" json:"content"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Block) TableName() string { return "block" }
