package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-ddd-auth-core/internal/interface/http"
	"github.com/oksasatya/go-ddd-auth-core/internal/interface/middleware"
)

// AuthModule serves /auth: register, login, refresh (public, rate limited) and me.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Auth    middleware.Authenticator

	// Redis-backed limit per client IP and route; nil RDB disables it.
	RDB        *redis.Client
	RateLimit  int
	RateWindow time.Duration
}

func NewAuthModule(h *handlers.AuthHandler, auth middleware.Authenticator, rdb *redis.Client, limit int, window time.Duration) *AuthModule {
	return &AuthModule{Handler: h, Auth: auth, RDB: rdb, RateLimit: limit, RateWindow: window}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	limiter := middleware.RateLimit(m.RDB, m.RateLimit, m.RateWindow, middleware.KeyByIPAndPath(), nil)

	g := rg.Group("/auth")
	g.POST("/register", limiter, m.Handler.Register)
	g.POST("/login", limiter, m.Handler.Login)
	g.POST("/refresh", limiter, m.Handler.Refresh)
	g.GET("/me", middleware.RequireAuth(m.Auth), m.Handler.Me)
}
