package disclosure

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codedeck/codedeck-backend/internal/pkg/errors"
	"github.com/codedeck/codedeck-backend/internal/types"
)

// BlockProgress annotates a disclosed block with the student's interaction
// state, or is absent when the student has never touched the block.
type BlockProgress struct {
	Status      string     `json:"status"`
	Score       float64    `json:"score"`
	Feedback    string     `json:"feedback,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type DisclosedBlock struct {
	BlockID        uuid.UUID       `json:"blockId"`
	Type           string          `json:"type"`
	OrderIndex     float64         `json:"orderIndex"`
	RequiredAction string          `json:"requiredAction"`
	Content        json.RawMessage `json:"content"`
	Progress       *BlockProgress  `json:"progress"`
}

// DisclosedLesson is the student-visible slice of a lesson view. TotalBlocks
// always reports the full count, even when gating truncates Blocks.
type DisclosedLesson struct {
	LessonID           uuid.UUID        `json:"lessonId"`
	CourseID           uuid.UUID        `json:"courseId"`
	Title              string           `json:"title"`
	Goals              string           `json:"goals,omitempty"`
	TotalBlocks        int              `json:"totalBlocks"`
	VisibleBlocksCount int              `json:"visibleBlocksCount"`
	Blocks             []DisclosedBlock `json:"blocks"`
}

// Disclose computes the access-gated view of a lesson for one student. Pure
// function over explicit inputs: the full lesson view, the course scope the
// caller asked for, and the student's (possibly empty) progress record.
//
// Blocks are walked in order. Each is stripped of grading secrets, annotated
// with progress, and appended; the walk stops after the first block that both
// requires an action beyond viewing and is not yet complete — the gate itself
// is always visible, what follows it is not.
func Disclose(view *types.LessonView, courseID uuid.UUID, progress types.ProgressDoc) (*DisclosedLesson, error) {
	if view == nil {
		return nil, errors.ErrNotFound
	}
	if view.CourseID != courseID {
		return nil, fmt.Errorf("lesson %s belongs to course %s, not %s: %w",
			view.LessonID, view.CourseID, courseID, errors.ErrIntegrity)
	}

	var completed map[string]types.BlockCompletion
	if lc, ok := progress[view.LessonID.String()]; ok {
		completed = lc.CompletedBlocks
	}

	out := &DisclosedLesson{
		LessonID:    view.LessonID,
		CourseID:    view.CourseID,
		Title:       view.Title,
		Goals:       view.Goals,
		TotalBlocks: len(view.Blocks),
		Blocks:      []DisclosedBlock{},
	}

	for _, b := range view.Blocks {
		comp, interacted := completed[b.BlockID.String()]

		var bp *BlockProgress
		if interacted {
			bp = &BlockProgress{
				Status:      comp.Status,
				Score:       comp.Score,
				Feedback:    comp.Feedback,
				CompletedAt: comp.CompletedAt,
			}
		}

		out.Blocks = append(out.Blocks, DisclosedBlock{
			BlockID:        b.BlockID,
			Type:           b.Type,
			OrderIndex:     b.OrderIndex,
			RequiredAction: b.RequiredAction,
			Content:        stripSecrets(b.Type, b.Content),
			Progress:       bp,
		})

		if b.RequiredAction != types.RequiredActionView && !isComplete(b.RequiredAction, comp, interacted) {
			break
		}
	}

	out.VisibleBlocksCount = len(out.Blocks)
	return out, nil
}

// isComplete applies the completion rule for a block's required action:
// viewing counts once graded; submit/pass additionally require a positive
// score.
func isComplete(requiredAction string, comp types.BlockCompletion, interacted bool) bool {
	if !interacted || comp.Status != types.ProgressStatusGraded {
		return false
	}
	switch requiredAction {
	case types.RequiredActionSubmit, types.RequiredActionPass:
		return comp.Score > 0
	default:
		return true
	}
}

// stripSecrets removes grading material from block content before it leaves
// the server: hidden tests and expected output for code blocks, correctness
// flags and explanations for quiz blocks. Content that fails to decode is
// replaced with an empty object — leaking nothing beats leaking secrets.
func stripSecrets(blockType string, content json.RawMessage) json.RawMessage {
	switch blockType {
	case types.BlockTypeCode:
		return stripKeys(content, func(doc map[string]interface{}) {
			delete(doc, "hiddenTests")
			delete(doc, "expectedOutput")
		})
	case types.BlockTypeQuiz:
		return stripKeys(content, func(doc map[string]interface{}) {
			questions, _ := doc["questions"].([]interface{})
			for _, q := range questions {
				qm, _ := q.(map[string]interface{})
				options, _ := qm["options"].([]interface{})
				for _, o := range options {
					if om, ok := o.(map[string]interface{}); ok {
						delete(om, "isCorrect")
						delete(om, "explanation")
					}
				}
			}
		})
	default:
		return content
	}
}

var emptyObject = json.RawMessage(`{}`)

func stripKeys(content json.RawMessage, strip func(map[string]interface{})) json.RawMessage {
	if len(content) == 0 {
		return emptyObject
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(content, &doc); err != nil {
		return emptyObject
	}
	strip(doc)
	out, err := json.Marshal(doc)
	if err != nil {
		return emptyObject
	}
	return out
}
