package authclient

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultRefreshThreshold is how close to expiry a session gets refreshed.
const DefaultRefreshThreshold = 5 * time.Minute

// Manager owns the client session. It is safe for concurrent use; concurrent
// refreshes collapse into a single call to the server.
type Manager struct {
	api       API
	store     Store
	threshold time.Duration
	now       func() time.Time
	group     singleflight.Group
}

type Option func(*Manager)

func WithRefreshThreshold(d time.Duration) Option {
	return func(m *Manager) { m.threshold = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(api API, store Store, opts ...Option) *Manager {
	m := &Manager{api: api, store: store, threshold: DefaultRefreshThreshold, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Current returns the stored session, or nil when logged out.
func (m *Manager) Current(ctx context.Context) (*AuthUser, error) {
	return m.store.Load(ctx)
}

// IsAuthenticated reports whether an access token is stored and not yet expired.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	u, err := m.store.Load(ctx)
	if err != nil || u == nil || u.AccessToken == "" {
		return false
	}
	return m.now().Before(u.ExpiresAt)
}

// NeedsRefresh reports whether the access token expires within the threshold.
func (m *Manager) NeedsRefresh(ctx context.Context) bool {
	u, err := m.store.Load(ctx)
	if err != nil || u == nil {
		return false
	}
	return m.needsRefresh(u)
}

func (m *Manager) needsRefresh(u *AuthUser) bool {
	return u.ExpiresAt.Sub(m.now()) < m.threshold
}

func (m *Manager) Login(ctx context.Context, email, password string) (*AuthUser, error) {
	res, err := m.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.save(ctx, res)
}

func (m *Manager) Register(ctx context.Context, name, email, password string) (*AuthUser, error) {
	res, err := m.api.Register(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	return m.save(ctx, res)
}

// Logout forgets the session locally. Issued tokens stay valid on the server
// until they expire.
func (m *Manager) Logout(ctx context.Context) error {
	return m.store.Clear(ctx)
}

// EnsureFresh refreshes the session when it is about to expire and returns
// the session to use. A failed refresh clears the stored session.
func (m *Manager) EnsureFresh(ctx context.Context) (*AuthUser, error) {
	u, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotLoggedIn
	}
	if !m.needsRefresh(u) {
		return u, nil
	}
	return m.refresh(ctx, false)
}

// Refresh exchanges the refresh token for a new pair regardless of expiry.
func (m *Manager) Refresh(ctx context.Context) (*AuthUser, error) {
	return m.refresh(ctx, true)
}

func (m *Manager) refresh(ctx context.Context, force bool) (*AuthUser, error) {
	v, err, _ := m.group.Do("refresh", func() (any, error) {
		// a caller that lost the race sees the already refreshed session
		u, err := m.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		if u == nil || u.RefreshToken == "" {
			return nil, ErrNotLoggedIn
		}
		if !force && !m.needsRefresh(u) {
			return u, nil
		}
		res, err := m.api.Refresh(ctx, u.RefreshToken)
		if err != nil {
			_ = m.store.Clear(ctx)
			return nil, err
		}
		return m.save(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return v.(*AuthUser), nil
}

// AccessToken returns a token valid for at least the refresh threshold,
// refreshing first when needed.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	u, err := m.EnsureFresh(ctx)
	if err != nil {
		return "", err
	}
	return u.AccessToken, nil
}

func (m *Manager) save(ctx context.Context, res *AuthResult) (*AuthUser, error) {
	u, err := sessionFrom(res)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
