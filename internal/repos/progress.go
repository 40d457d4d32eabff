package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/types"
)

// ProgressRepo reads the grading subsystem's per (student, course) aggregate.
// Upsert exists for that subsystem and for test seeding; nothing on the
// course-authoring side writes progress.
type ProgressRepo interface {
	GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.StudentProgress, error)
	Upsert(ctx context.Context, tx *gorm.DB, progress *types.StudentProgress) error
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	return &progressRepo{db: db, log: baseLog.With("repo", "ProgressRepo")}
}

func (r *progressRepo) GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.StudentProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.StudentProgress
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *progressRepo) Upsert(ctx context.Context, tx *gorm.DB, progress *types.StudentProgress) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if progress == nil {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"lessons", "updated_at"}),
		}).
		Create(progress).Error; err != nil {
		return err
	}
	return nil
}
