package services

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/docstore"
	"github.com/codedeck/codedeck-backend/internal/events"
	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/repos"
	"github.com/codedeck/codedeck-backend/internal/types"
)

// RebuildService reconstructs the entire lesson-view document store from the
// relational source of truth. This is the reconciliation path for drift: a
// dropped poison event, a flushed store, a projector bug fixed after the fact.
type RebuildService interface {
	// RebuildAll re-projects every lesson and returns the number of views
	// written.
	RebuildAll(ctx context.Context, userID uuid.UUID) (int, error)
}

type rebuildService struct {
	db          *gorm.DB
	log         *logger.Logger
	lessonRepo  repos.LessonRepo
	blockRepo   repos.BlockRepo
	store       docstore.ViewStore
	roleService RoleService
	concurrency int
}

func NewRebuildService(
	db *gorm.DB,
	baseLog *logger.Logger,
	lessonRepo repos.LessonRepo,
	blockRepo repos.BlockRepo,
	store docstore.ViewStore,
	roleService RoleService,
) RebuildService {
	return &rebuildService{
		db:          db,
		log:         baseLog.With("service", "RebuildService"),
		lessonRepo:  lessonRepo,
		blockRepo:   blockRepo,
		store:       store,
		roleService: roleService,
		concurrency: 8,
	}
}

func (s *rebuildService) RebuildAll(ctx context.Context, userID uuid.UUID) (int, error) {
	if _, err := s.roleService.Authorize(ctx, userID, PermViewRebuild); err != nil {
		return 0, err
	}

	lessons, err := s.lessonRepo.ListAll(ctx, nil)
	if err != nil {
		return 0, err
	}

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, lesson := range lessons {
		lesson := lesson
		g.Go(func() error {
			blocks, err := s.blockRepo.GetByLessonIDs(gctx, nil, []uuid.UUID{lesson.ID})
			if err != nil {
				return err
			}
			view := &types.LessonView{
				LessonID: lesson.ID,
				CourseID: lesson.CourseID,
				Title:    lesson.Title,
				Goals:    lesson.Goals,
				Order:    lesson.Order,
				IsDraft:  lesson.IsDraft,
				Blocks:   make([]types.BlockView, 0, len(blocks)),
			}
			for _, b := range blocks {
				view.Blocks = append(view.Blocks, events.BlockViewOf(b))
			}
			if err := s.store.Put(gctx, view); err != nil {
				return err
			}
			written.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(written.Load()), err
	}

	s.log.Info("rebuilt lesson views", "count", written.Load())
	return int(written.Load()), nil
}
