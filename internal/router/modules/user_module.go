package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-auth-core/internal/application"
	handlers "github.com/oksasatya/go-ddd-auth-core/internal/interface/http"
	"github.com/oksasatya/go-ddd-auth-core/internal/interface/middleware"
)

// UserModule wires profile routes.
// Optional auth: GET /users/:id
// Protected: GET /users/search
// Owner or admin: PATCH /users/:id, PUT /users/:id/password, PUT /users/:id/avatar, DELETE /users/:id
// Authenticated routes share a per-user rate limit.
type UserModule struct {
	Handler *handlers.UserHandler
	Auth    middleware.Authenticator
	Guard   application.OwnershipGuard
	Limit   gin.HandlerFunc
}

func NewUserModule(h *handlers.UserHandler, auth middleware.Authenticator, guard application.OwnershipGuard, rdb *redis.Client, limit int, window time.Duration) *UserModule {
	return &UserModule{
		Handler: h,
		Auth:    auth,
		Guard:   guard,
		Limit:   middleware.RateLimit(rdb, limit, window, middleware.KeyByUserID(), nil),
	}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/users")

	// registered before /:id; gin prefers the static segment
	g.GET("/search", middleware.RequireAuth(m.Auth), m.Limit, m.Handler.Search)
	g.GET("/:id", middleware.OptionalAuth(m.Auth), m.Handler.Get)

	owned := g.Group("/:id", middleware.RequireAuth(m.Auth), m.Limit, middleware.RequireOwner(m.Guard, "id"))
	{
		owned.PATCH("", m.Handler.Update)
		owned.PUT("/password", m.Handler.ChangePassword)
		owned.PUT("/avatar", m.Handler.UploadAvatar)
		owned.DELETE("", m.Handler.Delete)
	}
}
