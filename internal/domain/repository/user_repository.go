package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/verbatone/billing/internal/domain/model"
)

// UserRepository covers the identity lookups and the role flip the
// reconciler performs.
type UserRepository interface {
	// GetByID returns the user or (nil, nil) when unknown.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	// GetByEmail resolves a user by email, case-insensitively.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// SetRole updates the user's role. Admin roles are never downgraded by
	// the reconciler.
	SetRole(ctx context.Context, id uuid.UUID, role model.UserRole) error
}
