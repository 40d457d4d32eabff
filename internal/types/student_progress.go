package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const ProgressStatusGraded = "graded"

// BlockCompletion is the grading subsystem's verdict for one block.
type BlockCompletion struct {
	Status      string     `json:"status"`
	Score       float64    `json:"score"`
	Feedback    string     `json:"feedback,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// LessonCompletion holds per-block completion within one lesson, keyed by
// block id.
type LessonCompletion struct {
	CompletedBlocks map[string]BlockCompletion `json:"completedBlocks"`
}

// ProgressDoc is the decoded shape of StudentProgress.Lessons, keyed by
// lesson id.
type ProgressDoc map[string]LessonCompletion

// StudentProgress is the per (student, course) aggregate. It is owned and
// mutated by the grading subsystem; this codebase only reads it.
type StudentProgress struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_progress_user_course,unique" json:"user_id"`
	User      *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CourseID  uuid.UUID      `gorm:"type:uuid;not null;index:idx_progress_user_course,unique" json:"course_id"`
	Course    *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Lessons   datatypes.JSON `gorm:"column:lessons;type:jsonb" json:"lessons"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (StudentProgress) TableName() string { return "student_progress" }

// Doc decodes the lessons column; a broken or empty column reads as an empty
// record rather than an error so a bad progress row cannot break reads.
func (p *StudentProgress) Doc() ProgressDoc {
	if p == nil || len(p.Lessons) == 0 {
		return ProgressDoc{}
	}
	var doc ProgressDoc
	if err := json.Unmarshal(p.Lessons, &doc); err != nil {
		return ProgressDoc{}
	}
	return doc
}
