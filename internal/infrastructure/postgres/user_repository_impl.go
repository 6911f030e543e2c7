package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-ddd-auth-core/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-core/internal/domain/repository"
)

const uniqueViolation = "23505"

// DB is the subset of pgxpool.Pool the repository uses. Every call acquires
// and releases one pooled connection.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type UserRepository struct {
	db      DB
	timeout time.Duration
}

// NewUserRepository bounds every statement by queryTimeout; zero disables the bound.
func NewUserRepository(db DB, queryTimeout time.Duration) *UserRepository {
	return &UserRepository{db: db, timeout: queryTimeout}
}

const userColumns = `id::text, email, password_hash, name, role, avatar_url, last_login_at, created_at, updated_at`

func (r *UserRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.AvatarURL,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = entity.ParseRole(role)
	return u, nil
}

func (r *UserRepository) findOne(ctx context.Context, op, where string, arg any) (*entity.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		return nil, mapError(op, err)
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := r.findOne(ctx, "find by email", `lower(email) = lower($1)`, email)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

func (r *UserRepository) FindCredentialsByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, "find credentials by email", `lower(email) = lower($1)`, email)
}

// Ids that are not UUIDs cannot match a row; they are rejected before the
// query so Postgres never sees an invalid uuid literal.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, "find by id", `id = $1`, id)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`, email).Scan(&exists)
	if err != nil {
		return false, mapError("exists by email", err)
	}
	return exists, nil
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if u.Role == "" {
		u.Role = entity.DefaultRole
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, role, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text, created_at, updated_at
	`, u.Email, u.PasswordHash, u.Name, string(u.Role), u.AvatarURL)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapError("insert user", err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	if !validID(u.ID) {
		return repository.ErrNotFound
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRow(ctx, `
		UPDATE users
		SET email = $1,
		    password_hash = COALESCE(NULLIF($2, ''), password_hash),
		    name = $3, role = $4, avatar_url = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`, u.Email, u.PasswordHash, u.Name, string(u.Role), u.AvatarURL, u.ID)

	if err := row.Scan(&u.UpdatedAt); err != nil {
		return mapError("update user", err)
	}
	return nil
}

func (r *UserRepository) UpdateLastAuthenticated(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	return r.exec(ctx, "update last login", `UPDATE users SET last_login_at = now() WHERE id = $1`, id)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	return r.exec(ctx, "delete user", `DELETE FROM users WHERE id = $1`, id)
}

func (r *UserRepository) exec(ctx context.Context, op, sql string, args ...any) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// mapError translates driver errors into the repository's sentinel errors.
func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrEmailTaken
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %w", op, repository.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ repository.UserRepository = (*UserRepository)(nil)
