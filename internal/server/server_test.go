package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/markitup/internal/config"
	"github.com/jonathan/markitup/internal/db"
	"github.com/jonathan/markitup/internal/progress"
	"github.com/jonathan/markitup/internal/server/ratelimit"
	"github.com/jonathan/markitup/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeGenerator returns a two-section remote document and counts calls
type fakeGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *fakeGenerator) Generate(_ context.Context, req types.StrategyRequest) *types.StrategyDocument {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	sections := types.Sections{
		{Key: "brand_positioning", Title: "Brand Positioning", Content: "Lead with craft.",
			KeyPoints: []string{"Origin story"}, Recommendations: []string{"Film the roastery"}},
		{Key: "channels", Title: "Channels", Content: "Social first.",
			KeyPoints: []string{}, Recommendations: []string{}},
	}
	return types.NewStrategyDocument(req, sections, types.SourceRemote, fixedNow)
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type testServer struct {
	*Server
	gen   *fakeGenerator
	store *db.MemoryStore
}

func newTestServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()
	cfg := Config{
		RateLimit: &ratelimit.Config{Enabled: false},
		Progress:  &progress.Simulator{Interval: time.Millisecond, Increment: 25},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	gen := &fakeGenerator{}
	store := db.NewMemoryStore()
	s, err := New(cfg, gen, store)
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow.Add(time.Hour) }
	t.Cleanup(s.Close)

	return &testServer{Server: s, gen: gen, store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func (ts *testServer) seed(t *testing.T) *types.StrategyDocument {
	t.Helper()
	doc := ts.gen.Generate(context.Background(), sampleRequest())
	require.NoError(t, ts.store.SaveDocument(context.Background(), doc))
	return doc
}

func sampleRequest() types.StrategyRequest {
	return types.StrategyRequest{
		CompanyName:      "Acme Coffee",
		Industry:         "Food & Beverage",
		TargetAudience:   "Urban professionals",
		StrategicFocus:   "brand awareness",
		BrandInspiration: "Patagonia",
		StrategyType:     "Brand Building",
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{}, nil, db.NewMemoryStore())
	assert.Error(t, err)

	_, err = New(Config{}, &fakeGenerator{}, nil)
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decode[map[string]any](t, w)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, false, resp["auth_required"])
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodOptions, "/strategies/generate", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestGenerate(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/strategies/generate", sampleRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	doc := decode[types.StrategyDocument](t, w)
	assert.Equal(t, []string{"brand_positioning", "channels"}, doc.Sections.Keys())
	assert.Equal(t, "Patagonia", doc.Metadata.Brand)

	stored, err := ts.store.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, doc.Sections, stored.Sections)
}

func TestGenerate_Validation(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name    string
		body    any
		wantMsg string
	}{
		{name: "malformed json", body: "{", wantMsg: "Invalid request body"},
		{name: "missing company", body: func() types.StrategyRequest {
			r := sampleRequest()
			r.CompanyName = ""
			return r
		}(), wantMsg: "company_name"},
		{name: "negative budget", body: func() types.StrategyRequest {
			r := sampleRequest()
			r.Budget = -1
			return r
		}(), wantMsg: "budget"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/strategies/generate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantMsg)
		})
	}
	assert.Zero(t, ts.gen.Calls())
}

func TestGenerateStream(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/strategies/generate/stream", sampleRequest())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "event: progress")
	assert.Contains(t, body, `"percent":100`)
	assert.Contains(t, body, `"done":true`)

	completeAt := strings.Index(body, "event: complete")
	require.GreaterOrEqual(t, completeAt, 0, body)
	assert.Less(t, strings.LastIndex(body, "event: progress"), completeAt)
	assert.Equal(t, 1, strings.Count(body, `"done":true`))

	dataLine := strings.TrimPrefix(strings.SplitN(body[completeAt:], "\n", 3)[1], "data: ")
	var doc types.StrategyDocument
	require.NoError(t, json.Unmarshal([]byte(dataLine), &doc))
	assert.Equal(t, "Acme Coffee", doc.Metadata.Context.CompanyName)
	assert.Equal(t, 1, ts.gen.Calls())
}

func TestListStrategies(t *testing.T) {
	ts := newTestServer(t, nil)
	first := ts.seed(t)
	ts.seed(t)

	w := ts.do(t, http.MethodGet, "/strategies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Strategies []StrategySummary `json:"strategies"`
		Count      int               `json:"count"`
	}](t, w)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "Acme Coffee", resp.Strategies[0].CompanyName)
	assert.Equal(t, 2, resp.Strategies[0].Sections)

	w = ts.do(t, http.MethodGet, "/strategies?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[struct {
		Strategies []StrategySummary `json:"strategies"`
		Count      int               `json:"count"`
	}](t, w)
	require.Equal(t, 1, resp.Count)
	assert.NotEqual(t, first.ID.String(), resp.Strategies[0].ID)

	w = ts.do(t, http.MethodGet, "/strategies?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStrategy(t *testing.T) {
	ts := newTestServer(t, nil)
	doc := ts.seed(t)

	w := ts.do(t, http.MethodGet, "/strategies/"+doc.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[types.StrategyDocument](t, w)
	assert.Equal(t, doc.ID, got.ID)

	w = ts.do(t, http.MethodGet, "/strategies/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/strategies/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateStrategy_Markdown(t *testing.T) {
	ts := newTestServer(t, nil)
	doc := ts.seed(t)

	markdown := "# Marketing Strategy for Acme Coffee\n\n" +
		"## Brand Story\n\nRoasted in Portland.\n\n**Key Points:**\n- Small batch\n\n" +
		"## Channels\n\nNewsletter only.\n"
	w := ts.do(t, http.MethodPut, "/strategies/"+doc.ID.String(), types.UpdateStrategyRequest{Markdown: markdown})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	edited := decode[types.StrategyDocument](t, w)
	assert.Equal(t, doc.ID, edited.ID)
	assert.Equal(t, types.SourceUserCustomized, edited.Metadata.Source)
	assert.Equal(t, []string{"brand_story", "channels"}, edited.Sections.Keys())
	assert.Equal(t, []string{"Small batch"}, edited.Sections[0].KeyPoints)
	assert.True(t, fixedNow.Add(time.Hour).Equal(edited.Metadata.GeneratedAt))

	// Customized documents cannot be regenerated
	w = ts.do(t, http.MethodPost, "/strategies/"+doc.ID.String()+"/regenerate", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, ts.gen.Calls())

	// but can be edited again
	w = ts.do(t, http.MethodPut, "/strategies/"+doc.ID.String(), types.UpdateStrategyRequest{
		Sections: types.Sections{{Key: "only", Title: "Only", Content: "One"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	stored, err := ts.store.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, stored.Sections.Keys())
}

func TestUpdateStrategy_Rejected(t *testing.T) {
	ts := newTestServer(t, nil)
	doc := ts.seed(t)
	path := "/strategies/" + doc.ID.String()

	w := ts.do(t, http.MethodPut, path, types.UpdateStrategyRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, path, types.UpdateStrategyRequest{Markdown: "just a paragraph"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, path, "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, path, types.UpdateStrategyRequest{
		Sections: types.Sections{{Key: "plan", Title: "Plan"}, {Key: "plan", Title: "Plan again"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid section key")

	w = ts.do(t, http.MethodPut, path, types.UpdateStrategyRequest{
		Sections: types.Sections{{Title: "No key"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, "/strategies/"+uuid.NewString(), types.UpdateStrategyRequest{Markdown: "## A\n\nB\n"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	stored, err := ts.store.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SourceRemote, stored.Metadata.Source)
}

func TestRegenerateStrategy(t *testing.T) {
	ts := newTestServer(t, nil)
	doc := ts.seed(t)

	w := ts.do(t, http.MethodPost, "/strategies/"+doc.ID.String()+"/regenerate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	fresh := decode[types.StrategyDocument](t, w)
	assert.Equal(t, doc.ID, fresh.ID)
	assert.Equal(t, doc.Metadata.Context, fresh.Metadata.Context)
	assert.Equal(t, 2, ts.gen.Calls())

	docs, err := ts.store.ListDocuments(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDeleteStrategy(t *testing.T) {
	ts := newTestServer(t, nil)
	doc := ts.seed(t)
	path := "/strategies/" + doc.ID.String()

	w := ts.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, "/strategies/nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportStrategy(t *testing.T) {
	ts := newTestServer(t, nil)
	doc := ts.seed(t)
	base := "/strategies/" + doc.ID.String() + "/export"

	w := ts.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "strategy-"+doc.ID.String()+".md")
	assert.True(t, strings.HasPrefix(w.Body.String(), "# Marketing Strategy for Acme Coffee\n"))

	w = ts.do(t, http.MethodGet, base+"?format=html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h2>Brand Positioning</h2>")

	w = ts.do(t, http.MethodGet, base+"?format=json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, doc.ID, decode[types.StrategyDocument](t, w).ID)

	w = ts.do(t, http.MethodGet, base+"?format=docx", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "docx")
}

func TestAuth(t *testing.T) {
	creds := &config.Credentials{Username: "admin", BcryptCost: 4}
	hash, err := creds.HashPassword("correct horse")
	require.NoError(t, err)
	creds.PasswordHash = hash

	ts := newTestServer(t, func(cfg *Config) {
		cfg.JWT = &config.JWTConfig{Secret: testJWTSecret, ExpirationHours: 1, Issuer: config.DefaultJWTIssuer}
		cfg.Credentials = creds
	})

	// Mutating routes need a token
	w := ts.do(t, http.MethodPost, "/strategies/generate", sampleRequest())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Reads stay open
	w = ts.do(t, http.MethodGet, "/strategies", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/auth/token", types.TokenRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/auth/token", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "password")

	w = ts.do(t, http.MethodPost, "/auth/token", types.TokenRequest{Username: "admin", Password: "correct horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode[types.TokenResponse](t, w)
	assert.NotEmpty(t, token.Token)
	assert.Equal(t, 3600, token.ExpiresIn)

	w = ts.do(t, http.MethodPost, "/strategies/generate", sampleRequest(), "Authorization", "Bearer "+token.Token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ts.gen.Calls())
}

func TestAuth_TokenNotConfigured(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/auth/token", types.TokenRequest{Username: "admin", Password: "x"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *Config) {
		cfg.RateLimit = &ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  1000,
			DefaultWindow: time.Minute,
			EndpointConfigs: []ratelimit.EndpointConfig{
				{Path: "/strategies/generate", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1},
			},
		}
	})

	w := ts.do(t, http.MethodPost, "/strategies/generate", sampleRequest())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = ts.do(t, http.MethodPost, "/strategies/generate", sampleRequest())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	// Health is never limited
	w = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExtractClientID(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", ts.extractClientID(req))

	req.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", ts.extractClientID(req))
}
