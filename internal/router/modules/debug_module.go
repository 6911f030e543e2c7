package modules

import (
	"context"
	"expvar"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-auth-core/internal/interface/middleware"
)

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// DebugModule serves /healthz and, when enabled, expvar metrics at /debug/vars.
type DebugModule struct {
	Checks         map[string]Check
	MetricsEnabled bool
	RDB            *redis.Client
}

func NewDebugModule(checks map[string]Check, metrics bool, rdb *redis.Client) *DebugModule {
	return &DebugModule{Checks: checks, MetricsEnabled: metrics, RDB: rdb}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", m.health)
	if m.MetricsEnabled {
		// rate-limited per IP; internal scrapers bypass
		rl := middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
		rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
	}
}

func (m *DebugModule) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	out := gin.H{}
	for name, check := range m.Checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			out[name] = "down"
			continue
		}
		out[name] = "ok"
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": out})
}
