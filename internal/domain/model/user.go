package model

import (
	"time"

	"github.com/google/uuid"
)

// UserRole is flipped by the reconciler as subscription access changes.
type UserRole string

const (
	UserRoleFree    UserRole = "free"
	UserRolePremium UserRole = "premium"
	UserRoleAdmin   UserRole = "admin"
)

// User is the billing-relevant slice of the users table. The full profile
// lives with the application; this service only reads identity fields and
// writes the role.
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Role      UserRole   `gorm:"size:20;not null;default:'free'" json:"role"`
	IsLegacy  bool       `gorm:"default:false" json:"is_legacy"`
	LegacyID  *int64     `gorm:"index" json:"legacy_id,omitempty"`
	CreatedAt time.Time  `gorm:"default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"default:now()" json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}
