package router

import (
	"context"

	"github.com/oksasatya/go-ddd-auth-core/config"
	"github.com/oksasatya/go-ddd-auth-core/internal/application"
	"github.com/oksasatya/go-ddd-auth-core/internal/container"
	"github.com/oksasatya/go-ddd-auth-core/internal/domain/repository"
	"github.com/oksasatya/go-ddd-auth-core/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-ddd-auth-core/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-auth-core/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-ddd-auth-core/internal/interface/http"
	"github.com/oksasatya/go-ddd-auth-core/internal/router/modules"
	"github.com/oksasatya/go-ddd-auth-core/pkg/helpers"
	"github.com/oksasatya/go-ddd-auth-core/pkg/validation"
)

// Deps holds the services built from the container. The server keeps it to
// drain in-flight side effects on shutdown.
type Deps struct {
	Repo  repository.UserRepository
	Auth  *application.AuthService
	Users *application.UserService
	Guard application.OwnershipGuard
}

func buildRepo(cfg *config.Config) repository.UserRepository {
	if cfg.StorageDriver == config.StorageDriverMemory || container.GetPGPool() == nil {
		return memory.NewUserRepository()
	}
	return pginfra.NewUserRepository(container.GetPGPool(), cfg.DBQueryTimeout)
}

// BuildDeps wires application services from the container singletons.
// Optional integrations are attached only when their client is configured.
func BuildDeps() *Deps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	repo := buildRepo(cfg)
	guard := application.OwnershipGuard{AdminOverride: cfg.AuthzAdminOverride}
	validate := validation.New()

	auth := application.NewAuthService(repo, container.GetHasher(), container.GetJWT(), logger)
	auth.Validate = validate
	users := application.NewUserService(repo, container.GetHasher(), guard, logger)
	users.Validate = validate

	if pub := container.GetRabbitPub(); pub != nil && cfg.MailSendEnabled {
		auth.Mail = pub
		users.Mail = pub
		auth.NotifyLogin = cfg.LoginNotifyEnable
	}
	if es := container.GetES(); es != nil {
		idx := search.NewUserIndex(es, cfg.ESUsersIndex)
		auth.Index = idx
		users.Index = idx
	}
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		users.Avatars = helpers.NewGCSAvatarStore(gcs, cfg.GCSBucket)
	}

	return &Deps{Repo: repo, Auth: auth, Users: users, Guard: guard}
}

func healthChecks() map[string]modules.Check {
	checks := map[string]modules.Check{}
	if pool := container.GetPGPool(); pool != nil {
		checks["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	}
	if rdb := container.GetRedis(); rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

// InitModules builds the application services and registers every module.
// It should be called once during startup.
func InitModules(r *Registry) *Deps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	deps := BuildDeps()

	r.Add(modules.NewAuthModule(
		handlers.NewAuthHandler(deps.Auth, logger),
		deps.Auth,
		container.GetRedis(),
		cfg.AuthRateLimit,
		cfg.AuthRateWindow,
	))
	r.Add(modules.NewUserModule(
		handlers.NewUserHandler(deps.Users, logger),
		deps.Auth,
		deps.Guard,
		container.GetRedis(),
		cfg.UserRateLimit,
		cfg.UserRateWindow,
	))
	r.Add(modules.NewDebugModule(healthChecks(), cfg.DebugMetricsEnabled, container.GetRedis()))
	return deps
}
