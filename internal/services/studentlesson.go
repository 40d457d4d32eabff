package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/disclosure"
	"github.com/codedeck/codedeck-backend/internal/docstore"
	pkgerrors "github.com/codedeck/codedeck-backend/internal/pkg/errors"
	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/policy"
	"github.com/codedeck/codedeck-backend/internal/repos"
	"github.com/codedeck/codedeck-backend/internal/types"
)

// StudentLessonService serves the read path: lesson views come from the
// document store, never from the relational tables, and every response is
// filtered through the disclosure engine.
type StudentLessonService interface {
	GetLessonForStudent(ctx context.Context, userID, courseID, lessonID uuid.UUID) (*disclosure.DisclosedLesson, error)
}

type studentLessonService struct {
	db           *gorm.DB
	log          *logger.Logger
	courseRepo   repos.CourseRepo
	progressRepo repos.ProgressRepo
	store        docstore.ViewStore
	roleService  RoleService
}

func NewStudentLessonService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	progressRepo repos.ProgressRepo,
	store docstore.ViewStore,
	roleService RoleService,
) StudentLessonService {
	return &studentLessonService{
		db:           db,
		log:          baseLog.With("service", "StudentLessonService"),
		courseRepo:   courseRepo,
		progressRepo: progressRepo,
		store:        store,
		roleService:  roleService,
	}
}

func (s *studentLessonService) GetLessonForStudent(ctx context.Context, userID, courseID, lessonID uuid.UUID) (*disclosure.DisclosedLesson, error) {
	policies, err := s.roleService.Authorize(ctx, userID, PermLessonRead)
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

	view, err := s.store.Get(ctx, lessonID)
	if err != nil {
		if errors.Is(err, docstore.ErrViewNotFound) {
			return nil, fmt.Errorf("lesson %s: %w", lessonID, pkgerrors.ErrNotFound)
		}
		return nil, err
	}

	progress, err := s.progressRepo.GetByUserAndCourse(ctx, nil, userID, courseID)
	if err != nil {
		return nil, err
	}
	var doc types.ProgressDoc
	if progress != nil {
		doc = progress.Doc()
	}

	return disclosure.Disclose(view, courseID, doc)
}
