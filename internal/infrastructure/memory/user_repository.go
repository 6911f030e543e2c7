package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-auth-core/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-core/internal/domain/repository"
)

// UserRepository keeps users in process memory. It enforces the same
// case-insensitive email uniqueness as the Postgres schema.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entity.User
	byEmail map[string]string
	now     func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*entity.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func clone(u *entity.User, withHash bool) *entity.User {
	cp := *u
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		cp.LastLoginAt = &t
	}
	if !withHash {
		cp.PasswordHash = ""
	}
	return &cp
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findByEmail(ctx, email, false)
}

func (r *UserRepository) FindCredentialsByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findByEmail(ctx, email, true)
}

func (r *UserRepository) findByEmail(ctx context.Context, email string, withHash bool) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[entity.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(r.byID[id], withHash), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u, true), nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmail[entity.NormalizeEmail(email)]
	return ok, nil
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := entity.NormalizeEmail(u.Email)
	if _, ok := r.byEmail[key]; ok {
		return repository.ErrEmailTaken
	}
	now := r.now()
	u.ID = uuid.NewString()
	u.Email = key
	if u.Role == "" {
		u.Role = entity.DefaultRole
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	r.byID[u.ID] = clone(u, true)
	r.byEmail[key] = u.ID
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	key := entity.NormalizeEmail(u.Email)
	if owner, taken := r.byEmail[key]; taken && owner != u.ID {
		return repository.ErrEmailTaken
	}
	delete(r.byEmail, cur.Email)
	r.byEmail[key] = u.ID

	u.Email = key
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = r.now()
	if u.PasswordHash == "" {
		u.PasswordHash = cur.PasswordHash
	}
	u.LastLoginAt = cur.LastLoginAt
	r.byID[u.ID] = clone(u, true)
	return nil
}

func (r *UserRepository) UpdateLastAuthenticated(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := r.now()
	u.LastLoginAt = &now
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.byEmail, u.Email)
	delete(r.byID, id)
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
