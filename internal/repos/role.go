package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/types"
)

type RoleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, roles []*types.Role) ([]*types.Role, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, roleIDs []uuid.UUID) ([]*types.Role, error)
	GetByNames(ctx context.Context, tx *gorm.DB, names []string) ([]*types.Role, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Role, error)
	Update(ctx context.Context, tx *gorm.DB, roleID uuid.UUID, updates map[string]interface{}) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, roleIDs []uuid.UUID) error
}

type roleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoleRepo(db *gorm.DB, baseLog *logger.Logger) RoleRepo {
	return &roleRepo{db: db, log: baseLog.With("repo", "RoleRepo")}
}

func (r *roleRepo) Create(ctx context.Context, tx *gorm.DB, roles []*types.Role) ([]*types.Role, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(roles) == 0 {
		return []*types.Role{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepo) GetByIDs(ctx context.Context, tx *gorm.DB, roleIDs []uuid.UUID) ([]*types.Role, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Role
	if len(roleIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", roleIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *roleRepo) GetByNames(ctx context.Context, tx *gorm.DB, names []string) ([]*types.Role, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Role
	if len(names) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("name IN ?", names).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *roleRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Role, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Role
	if err := transaction.WithContext(ctx).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *roleRepo) Update(ctx context.Context, tx *gorm.DB, roleID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(updates) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.Role{}).
		Where("id = ?", roleID).
		Updates(updates).Error; err != nil {
		return err
	}
	return nil
}

func (r *roleRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, roleIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(roleIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Unscoped().
		Where("id IN ?", roleIDs).
		Delete(&types.Role{}).Error; err != nil {
		return err
	}
	return nil
}
