package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-auth-core/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-core/internal/domain/repository"
)

func TestUserRepository_InsertAndFind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewUserRepository()

	u := &entity.User{Name: "Ann", Email: " Ann@X.com ", PasswordHash: "hash"}
	require.NoError(t, r.Insert(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ann@x.com", u.Email)
	assert.Equal(t, entity.RoleUser, u.Role)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := r.FindByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Empty(t, got.PasswordHash)

	creds, err := r.FindCredentialsByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", creds.PasswordHash)

	byID, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", byID.Name)

	ok, err := r.ExistsByEmail(ctx, "ANN@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserRepository_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewUserRepository()

	_, err := r.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = r.FindByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, r.Update(ctx, &entity.User{ID: "missing"}), repository.ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, "missing"), repository.ErrNotFound)
	assert.ErrorIs(t, r.UpdateLastAuthenticated(ctx, "missing"), repository.ErrNotFound)
}

func TestUserRepository_ConcurrentInsertSameEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewUserRepository()

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := "race@x.com"
			if i%2 == 0 {
				email = "RACE@X.COM"
			}
			errs <- r.Insert(ctx, &entity.User{Name: "r", Email: email})
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, taken int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, repository.ErrEmailTaken):
			taken++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, taken)
}

func TestUserRepository_UpdateAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewUserRepository()

	a := &entity.User{Name: "A", Email: "a@x.com", PasswordHash: "h"}
	b := &entity.User{Name: "B", Email: "b@x.com", PasswordHash: "h"}
	require.NoError(t, r.Insert(ctx, a))
	require.NoError(t, r.Insert(ctx, b))

	b.Email = "A@x.com"
	assert.ErrorIs(t, r.Update(ctx, b), repository.ErrEmailTaken)

	upd := &entity.User{ID: a.ID, Name: "Alice", Email: "a@x.com", Role: entity.RoleUser}
	require.NoError(t, r.Update(ctx, upd))
	assert.False(t, upd.UpdatedAt.Before(a.UpdatedAt))
	got, err := r.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "h", got.PasswordHash, "empty hash on update keeps the stored one")

	require.NoError(t, r.UpdateLastAuthenticated(ctx, a.ID))
	got, err = r.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)

	require.NoError(t, r.Delete(ctx, a.ID))
	exists, err := r.ExistsByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_ContextCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewUserRepository()

	_, err := r.FindByID(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
