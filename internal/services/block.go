package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/events"
	"github.com/codedeck/codedeck-backend/internal/outbox"
	pkgerrors "github.com/codedeck/codedeck-backend/internal/pkg/errors"
	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/policy"
	"github.com/codedeck/codedeck-backend/internal/repos"
	"github.com/codedeck/codedeck-backend/internal/types"
)

// orderSpacing is the gap between appended blocks. A fresh gap this wide
// allows ~40 midpoint insertions between two neighbors before float precision
// runs out, far beyond real authoring behavior.
const orderSpacing = 1024.0

type CreateBlockParams struct {
	LessonID       uuid.UUID
	Type           string
	RequiredAction string
	Content        json.RawMessage
	// AfterBlockID places the new block between that block and its successor;
	// nil appends at the end.
	AfterBlockID *uuid.UUID
}

type UpdateBlockParams struct {
	RequiredAction *string
	Content        json.RawMessage
}

type BlockService interface {
	CreateBlock(ctx context.Context, userID uuid.UUID, params CreateBlockParams) (*types.Block, error)
	UpdateBlock(ctx context.Context, userID, blockID uuid.UUID, params UpdateBlockParams) (*types.Block, error)
	// ReorderBlock moves a block after another block of the same lesson, or to
	// the front when afterBlockID is nil.
	ReorderBlock(ctx context.Context, userID, blockID uuid.UUID, afterBlockID *uuid.UUID) (*types.Block, error)
	DeleteBlock(ctx context.Context, userID, blockID uuid.UUID) error
}

type blockService struct {
	db          *gorm.DB
	log         *logger.Logger
	courseRepo  repos.CourseRepo
	lessonRepo  repos.LessonRepo
	blockRepo   repos.BlockRepo
	roleService RoleService
	writer      outbox.Writer
	relay       *outbox.Relay
}

func NewBlockService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	lessonRepo repos.LessonRepo,
	blockRepo repos.BlockRepo,
	roleService RoleService,
	writer outbox.Writer,
	relay *outbox.Relay,
) BlockService {
	return &blockService{
		db:          db,
		log:         baseLog.With("service", "BlockService"),
		courseRepo:  courseRepo,
		lessonRepo:  lessonRepo,
		blockRepo:   blockRepo,
		roleService: roleService,
		writer:      writer,
		relay:       relay,
	}
}

func validBlockType(t string) bool {
	return t == types.BlockTypeText || t == types.BlockTypeCode || t == types.BlockTypeQuiz
}

func validRequiredAction(a string) bool {
	return a == types.RequiredActionView || a == types.RequiredActionSubmit || a == types.RequiredActionPass
}

// authorizeLesson walks block -> lesson -> course and applies the permission
// and its policies against the course.
func (s *blockService) authorizeLesson(ctx context.Context, userID, lessonID uuid.UUID) (*types.Lesson, error) {
	lessons, err := s.lessonRepo.GetByIDs(ctx, nil, []uuid.UUID{lessonID})
	if err != nil {
		return nil, err
	}
	if len(lessons) == 0 || lessons[0] == nil {
		return nil, fmt.Errorf("lesson %s: %w", lessonID, pkgerrors.ErrNotFound)
	}
	lesson := lessons[0]

	policies, err := s.roleService.Authorize(ctx, userID, PermBlockWrite)
	if err != nil {
		return nil, err
	}
	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{lesson.CourseID})
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 || courses[0] == nil {
		return nil, fmt.Errorf("course %s: %w", lesson.CourseID, pkgerrors.ErrNotFound)
	}
	if !policy.EvaluateAll(policies, userID, courses[0]) {
		return nil, fmt.Errorf("course %s: %w", lesson.CourseID, pkgerrors.ErrForbidden)
	}
	return lesson, nil
}

func (s *blockService) loadBlock(ctx context.Context, tx *gorm.DB, blockID uuid.UUID) (*types.Block, error) {
	blocks, err := s.blockRepo.GetByIDs(ctx, tx, []uuid.UUID{blockID})
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 || blocks[0] == nil {
		return nil, fmt.Errorf("block %s: %w", blockID, pkgerrors.ErrNotFound)
	}
	return blocks[0], nil
}

func (s *blockService) CreateBlock(ctx context.Context, userID uuid.UUID, params CreateBlockParams) (*types.Block, error) {
	if !validBlockType(params.Type) {
		return nil, fmt.Errorf("unknown block type %q: %w", params.Type, pkgerrors.ErrInvalidArgument)
	}
	if params.RequiredAction == "" {
		params.RequiredAction = types.RequiredActionView
	}
	if !validRequiredAction(params.RequiredAction) {
		return nil, fmt.Errorf("unknown required action %q: %w", params.RequiredAction, pkgerrors.ErrInvalidArgument)
	}
	if _, err := s.authorizeLesson(ctx, userID, params.LessonID); err != nil {
		return nil, err
	}

	block := &types.Block{
		ID:             uuid.New(),
		LessonID:       params.LessonID,
		Type:           params.Type,
		RequiredAction: params.RequiredAction,
		Content:        datatypes.JSON(params.Content),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		siblings, err := s.blockRepo.GetByLessonIDs(ctx, tx, []uuid.UUID{params.LessonID})
		if err != nil {
			return err
		}
		idx, err := placementIndex(siblings, params.AfterBlockID, uuid.Nil)
		if err != nil {
			return err
		}
		block.OrderIndex = idx
		if _, err := s.blockRepo.Create(ctx, tx, []*types.Block{block}); err != nil {
			return err
		}
		return s.writer.Append(ctx, tx, events.BlockCreated, params.LessonID, events.BlockPayload{
			LessonID: params.LessonID,
			Block:    events.BlockViewOf(block),
		})
	})
	if err != nil {
		return nil, err
	}
	s.relay.Notify()
	return block, nil
}

func (s *blockService) UpdateBlock(ctx context.Context, userID, blockID uuid.UUID, params UpdateBlockParams) (*types.Block, error) {
	block, err := s.loadBlock(ctx, nil, blockID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeLesson(ctx, userID, block.LessonID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if params.RequiredAction != nil {
		if !validRequiredAction(*params.RequiredAction) {
			return nil, fmt.Errorf("unknown required action %q: %w", *params.RequiredAction, pkgerrors.ErrInvalidArgument)
		}
		updates["required_action"] = *params.RequiredAction
	}
	if params.Content != nil {
		updates["content"] = datatypes.JSON(params.Content)
	}
	if len(updates) == 0 {
		return block, nil
	}

	var updated *types.Block
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.blockRepo.Update(ctx, tx, blockID, updates); err != nil {
			return err
		}
		fresh, err := s.loadBlock(ctx, tx, blockID)
		if err != nil {
			return err
		}
		updated = fresh
		return s.writer.Append(ctx, tx, events.BlockUpdated, fresh.LessonID, events.BlockPayload{
			LessonID: fresh.LessonID,
			Block:    events.BlockViewOf(fresh),
		})
	})
	if err != nil {
		return nil, err
	}
	s.relay.Notify()
	return updated, nil
}

func (s *blockService) ReorderBlock(ctx context.Context, userID, blockID uuid.UUID, afterBlockID *uuid.UUID) (*types.Block, error) {
	block, err := s.loadBlock(ctx, nil, blockID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeLesson(ctx, userID, block.LessonID); err != nil {
		return nil, err
	}
	if afterBlockID != nil && *afterBlockID == blockID {
		return nil, fmt.Errorf("cannot reorder a block after itself: %w", pkgerrors.ErrInvalidArgument)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		siblings, err := s.blockRepo.GetByLessonIDs(ctx, tx, []uuid.UUID{block.LessonID})
		if err != nil {
			return err
		}
		idx, err := placementIndex(siblings, afterBlockID, blockID)
		if err != nil {
			return err
		}
		block.OrderIndex = idx
		if err := s.blockRepo.Update(ctx, tx, blockID, map[string]interface{}{"order_index": idx}); err != nil {
			return err
		}
		return s.writer.Append(ctx, tx, events.BlockReordered, block.LessonID, events.BlockReorderedPayload{
			LessonID:   block.LessonID,
			BlockID:    blockID,
			OrderIndex: idx,
		})
	})
	if err != nil {
		return nil, err
	}
	s.relay.Notify()
	return block, nil
}

func (s *blockService) DeleteBlock(ctx context.Context, userID, blockID uuid.UUID) error {
	block, err := s.loadBlock(ctx, nil, blockID)
	if err != nil {
		return err
	}
	if _, err := s.authorizeLesson(ctx, userID, block.LessonID); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.blockRepo.DeleteByIDs(ctx, tx, []uuid.UUID{blockID}); err != nil {
			return err
		}
		return s.writer.Append(ctx, tx, events.BlockDeleted, block.LessonID, events.BlockDeletedPayload{
			LessonID: block.LessonID,
			BlockID:  blockID,
		})
	})
	if err != nil {
		return err
	}
	s.relay.Notify()
	return nil
}

// placementIndex computes the fractional order index for placing a block
// after afterBlockID within siblings (sorted ascending). nil afterBlockID
// means append at the end on create and move to the front on reorder — both
// callers pass the semantics they need through the sibling set. moving is
// excluded from the neighbor search so a reorder never computes a midpoint
// against itself.
func placementIndex(siblings []*types.Block, afterBlockID *uuid.UUID, moving uuid.UUID) (float64, error) {
	others := make([]*types.Block, 0, len(siblings))
	for _, b := range siblings {
		if b.ID != moving {
			others = append(others, b)
		}
	}

	if afterBlockID == nil {
		if moving != uuid.Nil {
			// Reorder to front: halve the first index.
			if len(others) == 0 {
				return orderSpacing, nil
			}
			return others[0].OrderIndex / 2, nil
		}
		// Create at end.
		if len(others) == 0 {
			return orderSpacing, nil
		}
		return others[len(others)-1].OrderIndex + orderSpacing, nil
	}

	for i, b := range others {
		if b.ID == *afterBlockID {
			if i == len(others)-1 {
				return b.OrderIndex + orderSpacing, nil
			}
			return (b.OrderIndex + others[i+1].OrderIndex) / 2, nil
		}
	}
	return 0, fmt.Errorf("anchor block %s: %w", afterBlockID, pkgerrors.ErrNotFound)
}
