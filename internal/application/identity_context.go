package application

import (
	"context"

	"github.com/oksasatya/go-ddd-auth-core/internal/domain/entity"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the authenticated identity.
func WithIdentity(ctx context.Context, id *entity.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity, or nil.
func IdentityFrom(ctx context.Context) *entity.Identity {
	id, _ := ctx.Value(identityKey{}).(*entity.Identity)
	return id
}
