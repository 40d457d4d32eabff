package types

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Pure JSON contract for the denormalized lesson read model. Not a DB model:
// the projector is the only writer, the document store the only home.

type BlockView struct {
	BlockID        uuid.UUID       `json:"blockId"`
	Type           string          `json:"type"`
	OrderIndex     float64         `json:"orderIndex"`
	RequiredAction string          `json:"requiredAction"`
	Content        json.RawMessage `json:"content"`
}

type LessonView struct {
	LessonID uuid.UUID   `json:"lessonId"`
	CourseID uuid.UUID   `json:"courseId"`
	Title    string      `json:"title"`
	Goals    string      `json:"goals,omitempty"`
	Order    int         `json:"order"`
	IsDraft  bool        `json:"isDraft"`
	Blocks   []BlockView `json:"blocks"`
}
