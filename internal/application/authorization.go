package application

import (
	"github.com/oksasatya/go-ddd-auth-core/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-core/pkg/apperror"
)

// CanMutate reports whether a caller may apply a mutating operation to the
// user identified by targetID. Owners always may; admins may when
// adminOverride is enabled.
func CanMutate(role entity.Role, callerID, targetID string, adminOverride bool) bool {
	if callerID == "" || targetID == "" {
		return false
	}
	if callerID == targetID {
		return true
	}
	return adminOverride && role == entity.RoleAdmin
}

// OwnershipGuard enforces CanMutate for a resolved identity. It holds no
// per-request state and is evaluated on every call.
type OwnershipGuard struct {
	AdminOverride bool
}

func (g OwnershipGuard) Authorize(id *entity.Identity, targetID string) error {
	if id == nil {
		return apperror.ErrNoToken
	}
	if !CanMutate(id.Role, id.UserID, targetID, g.AdminOverride) {
		return apperror.ErrNotOwner
	}
	return nil
}

// AuthorizeOwner is the role-less ownership check.
func AuthorizeOwner(callerID, targetID string) error {
	if !CanMutate(entity.RoleUser, callerID, targetID, false) {
		return apperror.ErrNotOwner
	}
	return nil
}
