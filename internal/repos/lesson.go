package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/policy"
	"github.com/codedeck/codedeck-backend/internal/types"
)

type LessonRepo interface {
	Create(ctx context.Context, tx *gorm.DB, lessons []*types.Lesson) ([]*types.Lesson, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, lessonIDs []uuid.UUID) ([]*types.Lesson, error)
	GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Lesson, error)
	Update(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, updates map[string]interface{}) error
	DeleteByIDs(ctx context.Context, tx *gorm.DB, lessonIDs []uuid.UUID) error
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Lesson, error)
	// ListForPolicies lists a course's lessons with the policy predicates
	// compiled against the joined course table, since ownership and publish
	// state live on the course.
	ListForPolicies(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID, policies []policy.Policy) ([]*types.Lesson, error)
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) Create(ctx context.Context, tx *gorm.DB, lessons []*types.Lesson) ([]*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(lessons) == 0 {
		return []*types.Lesson{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *lessonRepo) GetByIDs(ctx context.Context, tx *gorm.DB, lessonIDs []uuid.UUID) ([]*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Lesson
	if len(lessonIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", lessonIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Lesson
	if len(courseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Order("lesson_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) Update(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(updates) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.Lesson{}).
		Where("id = ?", lessonID).
		Updates(updates).Error; err != nil {
		return err
	}
	return nil
}

func (r *lessonRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, lessonIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(lessonIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", lessonIDs).
		Delete(&types.Lesson{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *lessonRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Lesson
	if err := transaction.WithContext(ctx).
		Order("course_id ASC, lesson_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) ListForPolicies(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID, policies []policy.Policy) ([]*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	compiler := policy.NewQueryCompiler(transaction.Session(&gorm.Session{NewDB: true}))
	q := transaction.WithContext(ctx).
		Model(&types.Lesson{}).
		Joins("JOIN course ON course.id = lesson.course_id AND course.deleted_at IS NULL").
		Where("lesson.course_id = ?", courseID)
	q = compiler.Apply(q, policies, userID, "course")

	var results []*types.Lesson
	if err := q.Order("lesson.lesson_order ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
