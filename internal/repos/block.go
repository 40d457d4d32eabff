package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/types"
)

type BlockRepo interface {
	Create(ctx context.Context, tx *gorm.DB, blocks []*types.Block) ([]*types.Block, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, blockIDs []uuid.UUID) ([]*types.Block, error)
	GetByLessonIDs(ctx context.Context, tx *gorm.DB, lessonIDs []uuid.UUID) ([]*types.Block, error)
	Update(ctx context.Context, tx *gorm.DB, blockID uuid.UUID, updates map[string]interface{}) error
	DeleteByIDs(ctx context.Context, tx *gorm.DB, blockIDs []uuid.UUID) error
}

type blockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBlockRepo(db *gorm.DB, baseLog *logger.Logger) BlockRepo {
	return &blockRepo{db: db, log: baseLog.With("repo", "BlockRepo")}
}

func (r *blockRepo) Create(ctx context.Context, tx *gorm.DB, blocks []*types.Block) ([]*types.Block, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(blocks) == 0 {
		return []*types.Block{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&blocks).Error; err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *blockRepo) GetByIDs(ctx context.Context, tx *gorm.DB, blockIDs []uuid.UUID) ([]*types.Block, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Block
	if len(blockIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", blockIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *blockRepo) GetByLessonIDs(ctx context.Context, tx *gorm.DB, lessonIDs []uuid.UUID) ([]*types.Block, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Block
	if len(lessonIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("lesson_id IN ?", lessonIDs).
		Order("order_index ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *blockRepo) Update(ctx context.Context, tx *gorm.DB, blockID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(updates) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.Block{}).
		Where("id = ?", blockID).
		Updates(updates).Error; err != nil {
		return err
	}
	return nil
}

func (r *blockRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, blockIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(blockIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", blockIDs).
		Delete(&types.Block{}).Error; err != nil {
		return err
	}
	return nil
}
