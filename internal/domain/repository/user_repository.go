package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-ddd-auth-core/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned by Insert and Update when the normalized email is already used.
	ErrEmailTaken = errors.New("email already taken")
	// ErrUnavailable wraps transient storage failures (timeouts, pool exhaustion). Callers may retry.
	ErrUnavailable = errors.New("storage unavailable")
)

// UserRepository defines the interface for user-related database operations.
// Emails passed in are already normalized. Each method is a single atomic statement.
type UserRepository interface {
	// FindByEmail returns the user without its password hash.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// FindCredentialsByEmail returns the user including its password hash.
	FindCredentialsByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Insert assigns ID, CreatedAt and UpdatedAt on u.
	Insert(ctx context.Context, u *entity.User) error
	// Update persists name, email, role, avatar and password hash, refreshing UpdatedAt on u.
	Update(ctx context.Context, u *entity.User) error
	UpdateLastAuthenticated(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
