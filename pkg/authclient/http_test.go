package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient(t *testing.T) {
	t.Parallel()
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/login":
			_, _ = w.Write([]byte(`{"user":{"id":"u1","name":"Ann","email":"ann@x.com","role":"user"},"token":"t","refreshToken":"r"}`))
		case "/api/auth/refresh":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid refresh token","status":401,"requestId":"req-9"}}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>bad gateway</html>`))
		}
	}))
	t.Cleanup(srv.Close)
	c := NewHTTPClient(srv.URL + "/")
	ctx := context.Background()

	res, err := c.Login(ctx, "ann@x.com", "S3cure!pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, "r", res.RefreshToken)
	assert.Equal(t, map[string]string{"email": "ann@x.com", "password": "S3cure!pw"}, got)

	_, err = c.Refresh(ctx, "stale")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid refresh token", apiErr.Message)
	assert.Equal(t, "req-9", apiErr.RequestID)
	assert.Equal(t, "stale", got["refreshToken"])

	_, err = c.Register(ctx, "Ann", "ann@x.com", "S3cure!pw")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}
