package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// API is the subset of the auth server the Manager talks to.
type API interface {
	Register(ctx context.Context, name, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
}

// HTTPClient calls the auth endpoints under BaseURL + "/api/auth".
type HTTPClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	return c.post(ctx, "/api/auth/register", map[string]string{"name": name, "email": email, "password": password})
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.post(ctx, "/api/auth/login", map[string]string{"email": email, "password": password})
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	return c.post(ctx, "/api/auth/refresh", map[string]string{"refreshToken": refreshToken})
}

func (c *HTTPClient) post(ctx context.Context, path string, body any) (*AuthResult, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, decodeError(res.StatusCode, raw)
	}
	var out AuthResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	return &out, nil
}

func decodeError(status int, raw []byte) error {
	var env struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || env.Error == nil {
		return &APIError{Status: status, Message: http.StatusText(status)}
	}
	if env.Error.Status == 0 {
		env.Error.Status = status
	}
	return env.Error
}
