package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-auth-core/internal/application"
	"github.com/oksasatya/go-ddd-auth-core/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-core/pkg/apperror"
	"github.com/oksasatya/go-ddd-auth-core/pkg/response"
)

// Gin context keys set by the auth middleware.
const (
	CtxIdentityKey = "identity"
	CtxUserKey     = "user"
	CtxUserIDKey   = "userID"
)

// Authenticator resolves an access token to the identity and stored user it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*entity.Identity, *entity.User, error)
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func attach(c *gin.Context, id *entity.Identity, u *entity.User) {
	c.Set(CtxIdentityKey, id)
	c.Set(CtxUserKey, u)
	c.Set(CtxUserIDKey, id.UserID)
	c.Request = c.Request.WithContext(application.WithIdentity(c.Request.Context(), id))
}

// RequireAuth rejects the request with 401 unless it carries a valid access
// token for an existing user.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.FromError(c, apperror.ErrNoToken)
			return
		}
		id, u, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.FromError(c, err)
			return
		}
		attach(c, id, u)
		c.Next()
	}
}

// OptionalAuth attaches the identity when the token is valid and otherwise
// continues anonymously.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if id, u, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				attach(c, id, u)
			}
		}
		c.Next()
	}
}

// RequireOwner allows the request only when the caller owns the resource named
// by the route parameter, or is an admin and the guard allows overrides.
// It must run after RequireAuth.
func RequireOwner(guard application.OwnershipGuard, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := guard.Authorize(CurrentIdentity(c), c.Param(param)); err != nil {
			response.FromError(c, err)
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity attached by RequireAuth/OptionalAuth, or nil.
func CurrentIdentity(c *gin.Context) *entity.Identity {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*entity.Identity)
	return id
}

func CurrentUser(c *gin.Context) *entity.User {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*entity.User)
	return u
}
