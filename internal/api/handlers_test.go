package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gamedash/internal/auth"
	"gamedash/internal/config"
	"gamedash/internal/dashboard"
	"gamedash/internal/models"
	"gamedash/internal/sessions"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T, cfg *config.Config, verifier auth.Verifier, loaded bool) (*echo.Echo, *Handler) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{CORSOrigins: []string{"*"}}
	}
	h := NewHandler(dashboard.NewService(zerolog.Nop(), 0), zerolog.Nop())
	if loaded {
		store, err := sessions.Load(context.Background(), "testdata/sessions.csv", zerolog.Nop())
		require.NoError(t, err)
		h.SetData(store)
	}
	return NewServer(cfg, zerolog.Nop(), verifier, h), h
}

func do(e *echo.Echo, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestLoadingState(t *testing.T) {
	e, h := newTestServer(t, nil, nil, false)

	rec := do(e, http.MethodGet, "/api/dashboard", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(e, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.Health{Status: "loading"}, decode[models.Health](t, rec))

	h.SetError(errors.New("boom"))
	rec = do(e, http.MethodGet, "/api/filters", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "failed", decode[models.Health](t, do(e, http.MethodGet, "/healthz", "", nil)).Status)
}

func TestHealthLoaded(t *testing.T) {
	e, _ := newTestServer(t, nil, nil, true)
	rec := do(e, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, models.Health{Status: "ok", Loaded: true, Rows: 10}, decode[models.Health](t, rec))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestGetFilters(t *testing.T) {
	e, _ := newTestServer(t, nil, nil, true)
	rec := do(e, http.MethodGet, "/api/filters", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	filters := decode[[]models.FilterOption](t, rec)
	require.Len(t, filters, 3)
	assert.Equal(t, "genre", filters[1].Param)
	assert.Equal(t, []string{"Strategy", "Sports", "Action", "RPG", "Simulation"}, filters[1].Values)
}

func TestGetDashboard(t *testing.T) {
	e, _ := newTestServer(t, nil, nil, true)

	rec := do(e, http.MethodGet, "/api/dashboard?location=USA", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decode[models.Dashboard](t, rec).Rows)

	rec = do(e, http.MethodGet, "/api/dashboard?location=USA&location=Asia&difficulty=Easy", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[models.Dashboard](t, rec)
	assert.Equal(t, 2, d.Rows)
	assert.Len(t, d.Panels, 9)
}

func TestETag(t *testing.T) {
	e, _ := newTestServer(t, nil, nil, true)

	rec := do(e, http.MethodGet, "/api/dashboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tag := rec.Header().Get("ETag")
	require.NotEmpty(t, tag)

	rec = do(e, http.MethodGet, "/api/dashboard", "", map[string]string{"If-None-Match": tag})
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(e, http.MethodGet, "/api/dashboard?location=Asia", "", map[string]string{"If-None-Match": tag})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, tag, rec.Header().Get("ETag"))
}

func TestPostQuery(t *testing.T) {
	e, _ := newTestServer(t, nil, nil, true)

	body := `{
		"filter": {"Location": ["USA", "Europe"]},
		"buckets": [{"column": "Age", "edges": [14, 29, 49], "labels": ["young", "older"]}],
		"group_by": ["AgeGroup"],
		"metric": "InGamePurchases",
		"op": "sum",
		"order": "key"
	}`
	rec := do(e, http.MethodPost, "/api/query", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[models.QueryResponse](t, rec)
	assert.Equal(t, 7, res.Total)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []string{"young"}, res.Rows[0].Key)
	assert.Equal(t, 3, res.Rows[0].Count)
	assert.Equal(t, 0.0, res.Rows[0].Value)
	assert.Equal(t, []string{"older"}, res.Rows[1].Key)
	assert.Equal(t, 4, res.Rows[1].Count)
	assert.Equal(t, 1.0, res.Rows[1].Value)
}

func TestPostQueryEmptyFilterList(t *testing.T) {
	e, _ := newTestServer(t, nil, nil, true)

	rec := do(e, http.MethodPost, "/api/query", `{"filter": {"Location": []}, "group_by": ["Gender"]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[models.QueryResponse](t, rec)
	assert.Equal(t, 0, res.Total)
	assert.Empty(t, res.Rows)

	rec = do(e, http.MethodPost, "/api/query", `{"filter": {}, "group_by": ["Gender"]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 10, decode[models.QueryResponse](t, rec).Total)
}

func TestPostQueryErrors(t *testing.T) {
	e, _ := newTestServer(t, nil, nil, true)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"group_by": [`},
		{"unknown column", `{"group_by": ["Planet"]}`},
		{"no group by", `{"op": "count"}`},
		{"numeric filter", `{"filter": {"Age": ["20"]}, "group_by": ["Gender"]}`},
		{"unknown op", `{"group_by": ["Gender"], "op": "median"}`},
		{"mean without metric", `{"group_by": ["Gender"], "op": "mean"}`},
		{"bad edges", `{"buckets": [{"column": "Age", "edges": [30, 20], "labels": ["x"]}], "group_by": ["Gender"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/api/query", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestGetSessions(t *testing.T) {
	e, _ := newTestServer(t, nil, nil, true)

	rec := do(e, http.MethodGet, "/api/sessions?limit=3&offset=8", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[models.Page](t, rec)
	assert.Equal(t, 10, page.Total)
	assert.Equal(t, sessions.Schema.Names(), page.Columns)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "9008", page.Data[0][0])

	rec = do(e, http.MethodGet, "/api/sessions?genre=RPG", "", nil)
	page = decode[models.Page](t, rec)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 50, page.Limit)

	rec = do(e, http.MethodGet, "/api/sessions?offset=100", "", nil)
	page = decode[models.Page](t, rec)
	assert.Empty(t, page.Data)
}

func TestAuthGate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	v, err := auth.NewBcryptVerifier("admin", string(hash))
	require.NoError(t, err)
	e, _ := newTestServer(t, nil, v, true)

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/api/filters", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", "", nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/filters", nil)
	req.SetBasicAuth("admin", "pw")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	e, _ := newTestServer(t, &config.Config{RateLimit: 1, CORSOrigins: []string{"*"}}, nil, true)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(e, http.MethodGet, "/api/filters", "", nil).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestETagMatches(t *testing.T) {
	assert.True(t, etagMatches(`"a", "b"`, `"b"`))
	assert.True(t, etagMatches(`W/"b"`, `"b"`))
	assert.True(t, etagMatches(`*`, `"b"`))
	assert.False(t, etagMatches(`"a"`, `"b"`))
}
