package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/types"
)

type OutboxRepo interface {
	// Append must run inside the caller's transaction; tx is required so a
	// record can never outlive a rolled-back mutation.
	Append(ctx context.Context, tx *gorm.DB, rec *types.OutboxRecord) error
	ListUndispatched(ctx context.Context, tx *gorm.DB, limit int) ([]*types.OutboxRecord, error)
	MarkDispatched(ctx context.Context, tx *gorm.DB, ids []uint64, at time.Time) error
	CountUndispatched(ctx context.Context, tx *gorm.DB) (int64, error)
}

type outboxRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutboxRepo(db *gorm.DB, baseLog *logger.Logger) OutboxRepo {
	return &outboxRepo{db: db, log: baseLog.With("repo", "OutboxRepo")}
}

func (r *outboxRepo) Append(ctx context.Context, tx *gorm.DB, rec *types.OutboxRecord) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if rec == nil {
		return nil
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		return err
	}
	return nil
}

func (r *outboxRepo) ListUndispatched(ctx context.Context, tx *gorm.DB, limit int) ([]*types.OutboxRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.OutboxRecord
	q := transaction.WithContext(ctx).
		Where("dispatched_at IS NULL").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *outboxRepo) MarkDispatched(ctx context.Context, tx *gorm.DB, ids []uint64, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(ids) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.OutboxRecord{}).
		Where("id IN ?", ids).
		Update("dispatched_at", at).Error; err != nil {
		return err
	}
	return nil
}

func (r *outboxRepo) CountUndispatched(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.OutboxRecord{}).
		Where("dispatched_at IS NULL").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
