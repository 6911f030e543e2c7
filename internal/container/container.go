package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-core/config"
	"github.com/oksasatya/go-ddd-auth-core/pkg/helpers"
)

// app-level container to share constructed components across packages.
// The router auto-wires modules from these singletons; unset optional
// components (Redis, RabbitMQ, Elasticsearch, GCS) disable their features.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	gcsClient   *storage.Client

	jwtManager *helpers.JWTManager
	hasher     *helpers.PasswordHasher

	rabbitPub *helpers.RabbitPublisher
	esClient  *elasticsearch.Client
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config {
	if cfg == nil {
		cfg = config.Load()
	}
	return cfg
}
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger {
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}
func SetPGPool(p *pgxpool.Pool) { pgPool = p }
func GetPGPool() *pgxpool.Pool  { return pgPool }
func SetRedis(r *redis.Client)  { redisClient = r }
func GetRedis() *redis.Client   { return redisClient }
func SetGCS(s *storage.Client)  { gcsClient = s }
func GetGCS() *storage.Client   { return gcsClient }

func SetJWT(m *helpers.JWTManager) { jwtManager = m }

// GetJWT returns the configured manager, building one from the config on first use.
func GetJWT() *helpers.JWTManager {
	if jwtManager == nil {
		jwtManager = helpers.NewJWTManager(JWTConfig(GetConfig()))
	}
	return jwtManager
}

func SetHasher(h *helpers.PasswordHasher) { hasher = h }
func GetHasher() *helpers.PasswordHasher {
	if hasher == nil {
		hasher = helpers.NewPasswordHasher(GetConfig().BcryptCost)
	}
	return hasher
}

func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }

// JWTConfig maps the JWT section of c onto the token codec's settings.
func JWTConfig(c *config.Config) helpers.JWTConfig {
	return helpers.JWTConfig{
		AccessSecret:  c.JWTAccessSecret,
		RefreshSecret: c.JWTRefreshSecret,
		AccessTTL:     c.AccessTTL,
		RefreshTTL:    c.RefreshTTL,
		Issuer:        c.JWTIssuer,
		Audience:      c.JWTAudience,
		Leeway:        c.JWTLeeway,
	}
}

// Reset clears every singleton.
func Reset() {
	cfg, logger, pgPool, redisClient, gcsClient = nil, nil, nil, nil, nil
	jwtManager, hasher, rabbitPub, esClient = nil, nil, nil, nil
}
