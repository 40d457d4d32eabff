package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/events"
	"github.com/codedeck/codedeck-backend/internal/outbox"
	pkgerrors "github.com/codedeck/codedeck-backend/internal/pkg/errors"
	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/policy"
	"github.com/codedeck/codedeck-backend/internal/repos"
	"github.com/codedeck/codedeck-backend/internal/types"
)

type CreateLessonParams struct {
	CourseID uuid.UUID
	Title    string
	Goals    string
	Order    int
	IsDraft  bool
}

type LessonService interface {
	CreateLesson(ctx context.Context, userID uuid.UUID, params CreateLessonParams) (*types.Lesson, error)
	GetLesson(ctx context.Context, userID, lessonID uuid.UUID) (*types.Lesson, error)
	ListLessonsForCourse(ctx context.Context, userID, courseID uuid.UUID) ([]*types.Lesson, error)
	UpdateLesson(ctx context.Context, userID, lessonID uuid.UUID, updates map[string]interface{}) (*types.Lesson, error)
	DeleteLesson(ctx context.Context, userID, lessonID uuid.UUID) error
}

type lessonService struct {
	db          *gorm.DB
	log         *logger.Logger
	courseRepo  repos.CourseRepo
	lessonRepo  repos.LessonRepo
	blockRepo   repos.BlockRepo
	roleService RoleService
	writer      outbox.Writer
	relay       *outbox.Relay
}

func NewLessonService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	lessonRepo repos.LessonRepo,
	blockRepo repos.BlockRepo,
	roleService RoleService,
	writer outbox.Writer,
	relay *outbox.Relay,
) LessonService {
	return &lessonService{
		db:          db,
		log:         baseLog.With("service", "LessonService"),
		courseRepo:  courseRepo,
		lessonRepo:  lessonRepo,
		blockRepo:   blockRepo,
		roleService: roleService,
		writer:      writer,
		relay:       relay,
	}
}

// authorizeCourse checks permission + policies against a lesson's course, the
// entity that carries ownership and publish state.
func (s *lessonService) authorizeCourse(ctx context.Context, userID, courseID uuid.UUID, permission string) (*types.Course, error) {
	policies, err := s.roleService.Authorize(ctx, userID, permission)
	if err != nil {
		return nil, err
	}
	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 || courses[0] == nil {
		return nil, fmt.Errorf("course %s: %w", courseID, pkgerrors.ErrNotFound)
	}
	if !policy.EvaluateAll(policies, userID, courses[0]) {
		return nil, fmt.Errorf("course %s: %w", courseID, pkgerrors.ErrForbidden)
	}
	return courses[0], nil
}

func (s *lessonService) loadLesson(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (*types.Lesson, error) {
	lessons, err := s.lessonRepo.GetByIDs(ctx, tx, []uuid.UUID{lessonID})
	if err != nil {
		return nil, err
	}
	if len(lessons) == 0 || lessons[0] == nil {
		return nil, fmt.Errorf("lesson %s: %w", lessonID, pkgerrors.ErrNotFound)
	}
	return lessons[0], nil
}

func (s *lessonService) CreateLesson(ctx context.Context, userID uuid.UUID, params CreateLessonParams) (*types.Lesson, error) {
	if params.Title == "" {
		return nil, fmt.Errorf("lesson title required: %w", pkgerrors.ErrInvalidArgument)
	}
	if _, err := s.authorizeCourse(ctx, userID, params.CourseID, PermLessonWrite); err != nil {
		return nil, err
	}

	lesson := &types.Lesson{
		ID:       uuid.New(),
		CourseID: params.CourseID,
		Title:    params.Title,
		Goals:    params.Goals,
		Order:    params.Order,
		IsDraft:  params.IsDraft,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lessonRepo.Create(ctx, tx, []*types.Lesson{lesson}); err != nil {
			return err
		}
		return s.writer.Append(ctx, tx, events.LessonCreated, lesson.ID, events.LessonPayloadOf(lesson))
	})
	if err != nil {
		return nil, err
	}
	s.relay.Notify()
	return lesson, nil
}

func (s *lessonService) GetLesson(ctx context.Context, userID, lessonID uuid.UUID) (*types.Lesson, error) {
	lesson, err := s.loadLesson(ctx, nil, lessonID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeCourse(ctx, userID, lesson.CourseID, PermLessonRead); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *lessonService) ListLessonsForCourse(ctx context.Context, userID, courseID uuid.UUID) ([]*types.Lesson, error) {
	policies, err := s.roleService.Authorize(ctx, userID, PermLessonRead)
	if err != nil {
		return nil, err
	}
	return s.lessonRepo.ListForPolicies(ctx, nil, userID, courseID, policies)
}

func (s *lessonService) UpdateLesson(ctx context.Context, userID, lessonID uuid.UUID, updates map[string]interface{}) (*types.Lesson, error) {
	lesson, err := s.loadLesson(ctx, nil, lessonID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeCourse(ctx, userID, lesson.CourseID, PermLessonWrite); err != nil {
		return nil, err
	}

	var updated *types.Lesson
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lessonRepo.Update(ctx, tx, lessonID, updates); err != nil {
			return err
		}
		fresh, err := s.loadLesson(ctx, tx, lessonID)
		if err != nil {
			return err
		}
		updated = fresh
		return s.writer.Append(ctx, tx, events.LessonUpdated, lessonID, events.LessonPayloadOf(fresh))
	})
	if err != nil {
		return nil, err
	}
	s.relay.Notify()
	return updated, nil
}

func (s *lessonService) DeleteLesson(ctx context.Context, userID, lessonID uuid.UUID) error {
	lesson, err := s.loadLesson(ctx, nil, lessonID)
	if err != nil {
		return err
	}
	if _, err := s.authorizeCourse(ctx, userID, lesson.CourseID, PermLessonWrite); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		blocks, err := s.blockRepo.GetByLessonIDs(ctx, tx, []uuid.UUID{lessonID})
		if err != nil {
			return err
		}
		blockIDs := make([]uuid.UUID, 0, len(blocks))
		for _, b := range blocks {
			blockIDs = append(blockIDs, b.ID)
		}
		if err := s.blockRepo.DeleteByIDs(ctx, tx, blockIDs); err != nil {
			return err
		}
		if err := s.lessonRepo.DeleteByIDs(ctx, tx, []uuid.UUID{lessonID}); err != nil {
			return err
		}
		return s.writer.Append(ctx, tx, events.LessonDeleted, lessonID, events.LessonDeletedPayload{LessonID: lessonID})
	})
	if err != nil {
		return err
	}
	s.relay.Notify()
	return nil
}
