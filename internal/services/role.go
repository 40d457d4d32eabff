package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/codedeck/codedeck-backend/internal/pkg/errors"
	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/policy"
	"github.com/codedeck/codedeck-backend/internal/repos"
	"github.com/codedeck/codedeck-backend/internal/types"
)

type RoleService interface {
	ListRoles(ctx context.Context) ([]*types.Role, error)
	CreateRole(ctx context.Context, name, description string, permissions []string, policies map[string][]string) (*types.Role, error)
	UpdateRole(ctx context.Context, roleID uuid.UUID, updates map[string]interface{}) (*types.Role, error)
	DeleteRole(ctx context.Context, roleID uuid.UUID) error
	// Authorize resolves the coarse permission check for a user and returns
	// the policy set bound to that permission. Enforcement order everywhere:
	// permission first, then policies against the resource.
	Authorize(ctx context.Context, userID uuid.UUID, permission string) ([]policy.Policy, error)
}

type roleService struct {
	db       *gorm.DB
	log      *logger.Logger
	roleRepo repos.RoleRepo
	userRepo repos.UserRepo
}

func NewRoleService(db *gorm.DB, baseLog *logger.Logger, roleRepo repos.RoleRepo, userRepo repos.UserRepo) RoleService {
	return &roleService{
		db:       db,
		log:      baseLog.With("service", "RoleService"),
		roleRepo: roleRepo,
		userRepo: userRepo,
	}
}

func (s *roleService) ListRoles(ctx context.Context) ([]*types.Role, error) {
	return s.roleRepo.List(ctx, nil)
}

func (s *roleService) CreateRole(ctx context.Context, name, description string, permissions []string, policies map[string][]string) (*types.Role, error) {
	if name == "" {
		return nil, fmt.Errorf("role name required: %w", pkgerrors.ErrInvalidArgument)
	}

	existing, err := s.roleRepo.GetByNames(ctx, nil, []string{name})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("role %q already exists: %w", name, pkgerrors.ErrConflict)
	}

	permsJSON, err := json.Marshal(permissions)
	if err != nil {
		return nil, err
	}
	policiesJSON, err := json.Marshal(policies)
	if err != nil {
		return nil, err
	}

	role := &types.Role{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Permissions: permsJSON,
		Policies:    policiesJSON,
	}
	if _, err := s.roleRepo.Create(ctx, nil, []*types.Role{role}); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *roleService) UpdateRole(ctx context.Context, roleID uuid.UUID, updates map[string]interface{}) (*types.Role, error) {
	roles, err := s.roleRepo.GetByIDs(ctx, nil, []uuid.UUID{roleID})
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("role %s: %w", roleID, pkgerrors.ErrNotFound)
	}
	if err := s.roleRepo.Update(ctx, nil, roleID, updates); err != nil {
		return nil, err
	}
	updated, err := s.roleRepo.GetByIDs(ctx, nil, []uuid.UUID{roleID})
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, fmt.Errorf("role %s: %w", roleID, pkgerrors.ErrNotFound)
	}
	return updated[0], nil
}

// DeleteRole refuses to remove a role any account still references.
func (s *roleService) DeleteRole(ctx context.Context, roleID uuid.UUID) error {
	roles, err := s.roleRepo.GetByIDs(ctx, nil, []uuid.UUID{roleID})
	if err != nil {
		return err
	}
	if len(roles) == 0 {
		return fmt.Errorf("role %s: %w", roleID, pkgerrors.ErrNotFound)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.userRepo.CountByRoleIDs(ctx, tx, []uuid.UUID{roleID})
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("role %s is assigned to %d account(s): %w", roleID, count, pkgerrors.ErrConflict)
		}
		return s.roleRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{roleID})
	})
}

func (s *roleService) Authorize(ctx context.Context, userID uuid.UUID, permission string) ([]policy.Policy, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 || users[0] == nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	role := users[0].Role
	if role == nil || !role.HasPermission(permission) {
		return nil, fmt.Errorf("missing permission %s: %w", permission, pkgerrors.ErrForbidden)
	}
	return policy.FromStrings(role.PolicyMap()[permission]), nil
}
