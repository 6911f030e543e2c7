package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-auth-core/pkg/authclient"
)

type stubAPI struct {
	t         *testing.T
	password  string
	refreshes int
}

func (s *stubAPI) result() *authclient.AuthResult {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("k"))
	require.NoError(s.t, err)
	return &authclient.AuthResult{
		User:         authclient.User{ID: "u1", Name: "Ann", Email: "ann@x.com", Role: "user"},
		Token:        tok,
		RefreshToken: "refresh",
	}
}

func (s *stubAPI) Register(_ context.Context, _, _, password string) (*authclient.AuthResult, error) {
	s.password = password
	return s.result(), nil
}

func (s *stubAPI) Login(_ context.Context, _, password string) (*authclient.AuthResult, error) {
	s.password = password
	if password != "S3cure!pw" {
		return nil, &authclient.APIError{Status: 401, Message: "invalid email or password", RequestID: "req-1"}
	}
	return s.result(), nil
}

func (s *stubAPI) Refresh(context.Context, string) (*authclient.AuthResult, error) {
	s.refreshes++
	return s.result(), nil
}

func execute(t *testing.T, api *stubAPI, store, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := newApp(strings.NewReader(stdin), &out, &errOut)
	a.newAPI = func(string) authclient.API { return api }
	root := newRootCmd(a)
	root.SetArgs(append([]string{"--store", store}, args...))
	err := root.ExecuteContext(context.Background())
	if err != nil {
		printError(&errOut, err)
	}
	return out.String(), errOut.String(), err
}

func TestAuthctl_SessionLifecycle(t *testing.T) {
	api := &stubAPI{t: t}
	store := filepath.Join(t.TempDir(), "session.json")

	out, _, err := execute(t, api, store, "", "status")
	require.NoError(t, err)
	assert.Equal(t, "not logged in\n", out)

	_, _, err = execute(t, api, store, "", "token")
	assert.ErrorIs(t, err, authclient.ErrNotLoggedIn)

	out, _, err = execute(t, api, store, "S3cure!pw\n", "login", "--email", "ann@x.com", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as Ann <ann@x.com> (user)")
	assert.Equal(t, "S3cure!pw", api.password)

	out, _, err = execute(t, api, store, "", "token")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "."), "prints a JWT")
	assert.Zero(t, api.refreshes)

	_, _, err = execute(t, api, store, "", "refresh")
	require.NoError(t, err)
	assert.Equal(t, 1, api.refreshes)

	out, _, err = execute(t, api, store, "", "logout")
	require.NoError(t, err)
	assert.Equal(t, "logged out\n", out)

	out, _, err = execute(t, api, store, "", "status")
	require.NoError(t, err)
	assert.Equal(t, "not logged in\n", out)
}

func TestAuthctl_LoginFailurePrintsRequestID(t *testing.T) {
	api := &stubAPI{t: t}
	store := filepath.Join(t.TempDir(), "session.json")

	_, errOut, err := execute(t, api, store, "wrong", "login", "--email", "ann@x.com", "--password-stdin")
	require.Error(t, err)
	assert.Equal(t, "error: invalid email or password (request req-1)\n", errOut)
}

func TestAuthctl_PromptsForPassword(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(int) ([]byte, error) { return []byte("N3w!passw"), nil }

	api := &stubAPI{t: t}
	store := filepath.Join(t.TempDir(), "session.json")

	_, errOut, err := execute(t, api, store, "", "register", "--name", "Ann", "--email", "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, "N3w!passw", api.password)
	assert.Contains(t, errOut, "Password: ")
}

func TestAuthctl_RequiredFlags(t *testing.T) {
	_, _, err := execute(t, &stubAPI{t: t}, filepath.Join(t.TempDir(), "s.json"), "", "login")
	assert.ErrorContains(t, err, `required flag(s) "email" not set`)
}
