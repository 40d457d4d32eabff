package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Role bundles capability tags with per-permission policy lists. A permission
// with no entry in Policies is unrestricted once granted.
type Role struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string         `gorm:"column:name;uniqueIndex;not null" json:"name"`
	Description string         `gorm:"column:description" json:"description"`
	Permissions datatypes.JSON `gorm:"column:permissions;type:jsonb" json:"permissions"`
	Policies    datatypes.JSON `gorm:"column:policies;type:jsonb" json:"policies"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Role) TableName() string { return "role" }

// PermissionList decodes the permissions column. A broken column reads as
// empty, which fails closed at the permission check.
func (r *Role) PermissionList() []string {
	if r == nil || len(r.Permissions) == 0 {
		return nil
	}
	var perms []string
	if err := json.Unmarshal(r.Permissions, &perms); err != nil {
		return nil
	}
	return perms
}

// PolicyMap decodes the permission -> policy names mapping.
func (r *Role) PolicyMap() map[string][]string {
	if r == nil || len(r.Policies) == 0 {
		return nil
	}
	var m map[string][]string
	if err := json.Unmarshal(r.Policies, &m); err != nil {
		return nil
	}
	return m
}

func (r *Role) HasPermission(permission string) bool {
	for _, p := range r.PermissionList() {
		if p == permission {
			return true
		}
	}
	return false
}
