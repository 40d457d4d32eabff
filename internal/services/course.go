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

type CourseService interface {
	CreateCourse(ctx context.Context, userID uuid.UUID, title, description string) (*types.Course, error)
	GetCourse(ctx context.Context, userID, courseID uuid.UUID) (*types.Course, error)
	ListCourses(ctx context.Context, userID uuid.UUID) ([]*types.Course, error)
	UpdateCourse(ctx context.Context, userID, courseID uuid.UUID, updates map[string]interface{}) (*types.Course, error)
	SetPublished(ctx context.Context, userID, courseID uuid.UUID, published bool) (*types.Course, error)
	DeleteCourse(ctx context.Context, userID, courseID uuid.UUID) error
}

type courseService struct {
	db          *gorm.DB
	log         *logger.Logger
	courseRepo  repos.CourseRepo
	lessonRepo  repos.LessonRepo
	blockRepo   repos.BlockRepo
	roleService RoleService
	writer      outbox.Writer
	relay       *outbox.Relay
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	lessonRepo repos.LessonRepo,
	blockRepo repos.BlockRepo,
	roleService RoleService,
	writer outbox.Writer,
	relay *outbox.Relay,
) CourseService {
	return &courseService{
		db:          db,
		log:         baseLog.With("service", "CourseService"),
		courseRepo:  courseRepo,
		lessonRepo:  lessonRepo,
		blockRepo:   blockRepo,
		roleService: roleService,
		writer:      writer,
		relay:       relay,
	}
}

// loadAuthorized resolves the permission's policy set, loads the course, and
// applies the policies against it. Permission first, policies second.
func (s *courseService) loadAuthorized(ctx context.Context, userID, courseID uuid.UUID, permission string) (*types.Course, error) {
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
	course := courses[0]
	if !policy.EvaluateAll(policies, userID, course) {
		return nil, fmt.Errorf("course %s: %w", courseID, pkgerrors.ErrForbidden)
	}
	return course, nil
}

func (s *courseService) CreateCourse(ctx context.Context, userID uuid.UUID, title, description string) (*types.Course, error) {
	if _, err := s.roleService.Authorize(ctx, userID, PermCourseCreate); err != nil {
		return nil, err
	}
	if title == "" {
		return nil, fmt.Errorf("course title required: %w", pkgerrors.ErrInvalidArgument)
	}
	course := &types.Course{
		ID:          uuid.New(),
		OwnerID:     userID,
		Title:       title,
		Description: description,
	}
	if _, err := s.courseRepo.Create(ctx, nil, []*types.Course{course}); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *courseService) GetCourse(ctx context.Context, userID, courseID uuid.UUID) (*types.Course, error) {
	return s.loadAuthorized(ctx, userID, courseID, PermCourseRead)
}

func (s *courseService) ListCourses(ctx context.Context, userID uuid.UUID) ([]*types.Course, error) {
	policies, err := s.roleService.Authorize(ctx, userID, PermCourseRead)
	if err != nil {
		return nil, err
	}
	return s.courseRepo.ListForPolicies(ctx, nil, userID, policies)
}

func (s *courseService) UpdateCourse(ctx context.Context, userID, courseID uuid.UUID, updates map[string]interface{}) (*types.Course, error) {
	if _, err := s.loadAuthorized(ctx, userID, courseID, PermCourseWrite); err != nil {
		return nil, err
	}
	if err := s.courseRepo.Update(ctx, nil, courseID, updates); err != nil {
		return nil, err
	}
	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, fmt.Errorf("course %s: %w", courseID, pkgerrors.ErrNotFound)
	}
	return courses[0], nil
}

func (s *courseService) SetPublished(ctx context.Context, userID, courseID uuid.UUID, published bool) (*types.Course, error) {
	return s.UpdateCourse(ctx, userID, courseID, map[string]interface{}{"is_published": published})
}

// DeleteCourse removes the course with its lessons and blocks, emitting one
// lesson.deleted per lesson so the read model follows.
func (s *courseService) DeleteCourse(ctx context.Context, userID, courseID uuid.UUID) error {
	if _, err := s.loadAuthorized(ctx, userID, courseID, PermCourseDelete); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lessons, err := s.lessonRepo.GetByCourseIDs(ctx, tx, []uuid.UUID{courseID})
		if err != nil {
			return err
		}
		for _, lesson := range lessons {
			blocks, err := s.blockRepo.GetByLessonIDs(ctx, tx, []uuid.UUID{lesson.ID})
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
			if err := s.lessonRepo.DeleteByIDs(ctx, tx, []uuid.UUID{lesson.ID}); err != nil {
				return err
			}
			if err := s.writer.Append(ctx, tx, events.LessonDeleted, lesson.ID, events.LessonDeletedPayload{LessonID: lesson.ID}); err != nil {
				return err
			}
		}
		return s.courseRepo.DeleteByIDs(ctx, tx, []uuid.UUID{courseID})
	})
	if err != nil {
		return err
	}
	s.relay.Notify()
	return nil
}
