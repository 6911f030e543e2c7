package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-auth-core/internal/domain/entity"
)

type recorded struct {
	method string
	path   string
	body   string
}

// fakeTransport answers Elasticsearch calls without a cluster.
type fakeTransport struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	body     string
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}
	f.mu.Lock()
	f.requests = append(f.requests, recorded{method: req.Method, path: req.URL.Path, body: body})
	f.mu.Unlock()

	h := http.Header{}
	h.Set("X-Elastic-Product", "Elasticsearch")
	h.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: f.status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Request:    req,
	}, nil
}

func newTestIndex(t *testing.T, status int, body string) (*UserIndex, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{status: status, body: body}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://es.test:9200"},
		Transport: tr,
	})
	require.NoError(t, err)
	return NewUserIndex(es, "users"), tr
}

func TestUserIndex_IndexUserNeverSendsHash(t *testing.T) {
	t.Parallel()
	x, tr := newTestIndex(t, http.StatusCreated, `{"result":"created"}`)

	u := &entity.User{ID: "u1", Name: "Ann", Email: "ann@x.com", PasswordHash: "$2a$secret", Role: entity.RoleUser, CreatedAt: time.Now()}
	require.NoError(t, x.IndexUser(context.Background(), u))

	require.Len(t, tr.requests, 1)
	assert.Equal(t, http.MethodPut, tr.requests[0].method)
	assert.Equal(t, "/users/_doc/u1", tr.requests[0].path)
	assert.Contains(t, tr.requests[0].body, `"email":"ann@x.com"`)
	assert.NotContains(t, tr.requests[0].body, "secret")
}

func TestUserIndex_IndexUserErrorStatus(t *testing.T) {
	t.Parallel()
	x, _ := newTestIndex(t, http.StatusBadRequest, `{"error":"bad"}`)

	err := x.IndexUser(context.Background(), &entity.User{ID: "u1"})
	assert.ErrorContains(t, err, "es index")
}

func TestUserIndex_DeleteMissingIsOK(t *testing.T) {
	t.Parallel()
	x, tr := newTestIndex(t, http.StatusNotFound, `{"result":"not_found"}`)

	require.NoError(t, x.DeleteUser(context.Background(), "u1"))
	assert.Equal(t, http.MethodDelete, tr.requests[0].method)
}

func TestUserIndex_SearchUsers(t *testing.T) {
	t.Parallel()
	hits := `{"hits":{"hits":[{"_id":"u1","_source":{"id":"u1","email":"ann@x.com","name":"Ann","role":"admin","created_at":"2024-05-01T10:00:00Z","updated_at":"2024-05-01T10:00:00Z"}}]}}`
	x, tr := newTestIndex(t, http.StatusOK, hits)

	out, err := x.SearchUsers(context.Background(), "ann", 5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "u1", out[0].ID)
	assert.Equal(t, entity.RoleAdmin, out[0].Role)
	assert.Equal(t, 2024, out[0].CreatedAt.Year())

	var q map[string]any
	require.NoError(t, json.Unmarshal([]byte(tr.requests[0].body), &q))
	assert.EqualValues(t, 5, q["size"])
	assert.Equal(t, "/users/_search", tr.requests[0].path)
}

func TestUserIndex_EnsureIndexExisting(t *testing.T) {
	t.Parallel()
	x, tr := newTestIndex(t, http.StatusOK, `{}`)

	require.NoError(t, x.EnsureIndex(context.Background()))
	require.Len(t, tr.requests, 1)
	assert.Equal(t, http.MethodHead, tr.requests[0].method)
}

func TestUserIndex_EnsureIndexFailure(t *testing.T) {
	t.Parallel()
	x, _ := newTestIndex(t, http.StatusInternalServerError, `{}`)

	assert.ErrorContains(t, x.EnsureIndex(context.Background()), "es index exists")
}
