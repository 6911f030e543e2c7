package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-auth-core/internal/application"
	"github.com/oksasatya/go-ddd-auth-core/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-core/pkg/apperror"
	"github.com/oksasatya/go-ddd-auth-core/pkg/response"
)

func init() { gin.SetMode(gin.TestMode) }

// fakeAuth accepts exactly one token per user.
type fakeAuth struct {
	users map[string]*entity.User
	err   error
	calls int
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*entity.Identity, *entity.User, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}
	u, ok := f.users[token]
	if !ok {
		return nil, nil, apperror.ErrInvalidToken
	}
	return &entity.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}, u, nil
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{users: map[string]*entity.User{
		"ann-token":   {ID: "u1", Email: "ann@x.com", Role: entity.RoleUser},
		"admin-token": {ID: "a1", Email: "root@x.com", Role: entity.RoleAdmin},
	}}
}

func do(r http.Handler, method, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Message
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()
	auth := newFakeAuth()
	r := gin.New()
	r.GET("/me", RequireAuth(auth), func(c *gin.Context) {
		id := CurrentIdentity(c)
		ctxID := application.IdentityFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"email": id.Email, "ctx": ctxID.UserID, "user": CurrentUser(c).ID, "uid": c.GetString(CtxUserIDKey)})
	})

	w := do(r, http.MethodGet, "/me", "Bearer ann-token")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"ann@x.com","ctx":"u1","user":"u1","uid":"u1"}`, w.Body.String())

	w = do(r, http.MethodGet, "/me", "bearer   ann-token ")
	assert.Equal(t, http.StatusOK, w.Code, "scheme is case-insensitive")

	calls := auth.calls
	for _, h := range []string{"", "Bearer", "Bearer   ", "Basic abc", "ann-token"} {
		w = do(r, http.MethodGet, "/me", h)
		assert.Equal(t, http.StatusUnauthorized, w.Code, h)
		assert.Equal(t, apperror.ErrNoToken.Message, errMessage(t, w), h)
	}
	assert.Equal(t, calls, auth.calls, "malformed headers never reach the authenticator")

	w = do(r, http.MethodGet, "/me", "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperror.ErrInvalidToken.Message, errMessage(t, w))
}

func TestRequireAuth_PropagatesKinds(t *testing.T) {
	t.Parallel()
	auth := &fakeAuth{err: apperror.ErrUnavailable}
	r := gin.New()
	r.GET("/me", RequireAuth(auth), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/me", "Bearer x").Code)

	auth.err = apperror.ErrTokenUserNotFound
	w := do(r, http.MethodGet, "/me", "Bearer x")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "user not found", errMessage(t, w))
}

func TestOptionalAuth(t *testing.T) {
	t.Parallel()
	r := gin.New()
	r.GET("/p", OptionalAuth(newFakeAuth()), func(c *gin.Context) {
		if id := CurrentIdentity(c); id != nil {
			c.String(http.StatusOK, id.UserID)
			return
		}
		c.String(http.StatusOK, "anon")
	})

	assert.Equal(t, "u1", do(r, http.MethodGet, "/p", "Bearer ann-token").Body.String())
	assert.Equal(t, "anon", do(r, http.MethodGet, "/p", "").Body.String())
	assert.Equal(t, "anon", do(r, http.MethodGet, "/p", "Bearer expired").Body.String())
}

func TestRequireOwner(t *testing.T) {
	t.Parallel()
	auth := newFakeAuth()
	newRouter := func(override bool) *gin.Engine {
		r := gin.New()
		r.DELETE("/users/:id", RequireAuth(auth), RequireOwner(application.OwnershipGuard{AdminOverride: override}, "id"),
			func(c *gin.Context) { c.Status(http.StatusNoContent) })
		return r
	}

	r := newRouter(true)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/users/u1", "Bearer ann-token").Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/users/u1", "Bearer admin-token").Code)

	w := do(r, http.MethodDelete, "/users/u2", "Bearer ann-token")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperror.ErrNotOwner.Message, errMessage(t, w))

	strict := newRouter(false)
	assert.Equal(t, http.StatusForbidden, do(strict, http.MethodDelete, "/users/u1", "Bearer admin-token").Code)
}
