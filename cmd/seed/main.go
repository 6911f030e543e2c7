package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-core/config"
	"github.com/oksasatya/go-ddd-auth-core/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-core/internal/domain/repository"
	pginfra "github.com/oksasatya/go-ddd-auth-core/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-auth-core/pkg/helpers"
	"github.com/oksasatya/go-ddd-auth-core/pkg/validation"
)

// seed creates or promotes the admin account named by SEED_ADMIN_EMAIL.
// SEED_ADMIN_PASSWORD is required and must satisfy the password policy.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	email := entity.NormalizeEmail(getenv("SEED_ADMIN_EMAIL", "admin@example.com"))
	name := getenv("SEED_ADMIN_NAME", "Administrator")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if !validation.StrongPassword(password) {
		logger.Fatal("SEED_ADMIN_PASSWORD must be set: 8+ chars with upper, lower, digit and symbol")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()
	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	repo := pginfra.NewUserRepository(pool, cfg.DBQueryTimeout)
	hash, err := helpers.NewPasswordHasher(cfg.BcryptCost).Hash(password)
	if err != nil {
		logger.WithError(err).Fatal("failed to hash password")
	}

	u, err := seedAdmin(ctx, repo, name, email, hash)
	if err != nil {
		logger.WithError(err).Fatal("failed to seed admin")
	}
	logger.WithFields(logrus.Fields{"id": u.ID, "email": u.Email, "role": u.Role}).Info("admin seeded")
}

// seedAdmin inserts the admin, or promotes and re-keys an existing account.
func seedAdmin(ctx context.Context, repo repository.UserRepository, name, email, hash string) (*entity.User, error) {
	u, err := repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		u = &entity.User{Name: name, Email: email, PasswordHash: hash, Role: entity.RoleAdmin}
		return u, repo.Insert(ctx, u)
	case err != nil:
		return nil, err
	}
	u.Role = entity.RoleAdmin
	u.PasswordHash = hash
	return u, repo.Update(ctx, u)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
