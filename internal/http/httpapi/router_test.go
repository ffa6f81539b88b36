package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"image4marketing/internal/domain"
	"image4marketing/internal/http/handlers"
	"image4marketing/internal/infra"
	"image4marketing/internal/middleware"
	"image4marketing/internal/ratelimit"
	"image4marketing/internal/workflow"
)

type stubWorkflow struct {
	generateCalls int
}

func (s *stubWorkflow) MaxUploadBytes() int64 { return workflow.DefaultMaxUploadBytes }

func (s *stubWorkflow) Upload(ctx context.Context, in workflow.UploadInput) (*workflow.UploadResult, error) {
	return &workflow.UploadResult{UploadID: "u1"}, nil
}

func (s *stubWorkflow) Generate(ctx context.Context, in workflow.GenerateInput) (*domain.Session, error) {
	s.generateCalls++
	return &domain.Session{ID: "s1"}, nil
}

func (s *stubWorkflow) Select(ctx context.Context, sessionID, imageID, callerID string) (*domain.Session, error) {
	return nil, domain.NotFound("session not found")
}

func (s *stubWorkflow) Regenerate(ctx context.Context, in workflow.RegenerateInput) (*domain.GeneratedImage, error) {
	return nil, domain.NotFound("session not found")
}

func (s *stubWorkflow) Validate(ctx context.Context, sessionID, imageID, callerID string) (*workflow.ValidateResult, error) {
	return nil, domain.NotFound("session not found")
}

func (s *stubWorkflow) Get(ctx context.Context, sessionID, callerID string) (*workflow.SessionView, error) {
	return nil, domain.NotFound("session not found")
}

func (s *stubWorkflow) Share(ctx context.Context, sessionID, imageID string) (*domain.GeneratedImage, error) {
	return nil, domain.NotFound("image not found in session")
}

func newTestRouter(t *testing.T, staticDir string) (http.Handler, *stubWorkflow) {
	t.Helper()
	store := ratelimit.NewMemoryStore(time.Minute)
	limiter := ratelimit.New(store, ratelimit.WithPolicy(ratelimit.ClassGenerate, ratelimit.Policy{MaxRequests: 2, Window: time.Minute}))
	t.Cleanup(func() { _ = limiter.Close() })

	wf := &stubWorkflow{}
	cfg := &infra.Config{JWTSecret: "router-secret", GenerationProvider: "mock", StorageDriver: "filesystem"}
	app := handlers.NewApp(cfg, zerolog.Nop(), wf, nil, nil, nil)
	return NewRouter(app, Options{
		JWTSecret:     cfg.JWTSecret,
		Limiter:       limiter,
		DefaultLocale: "fr",
		StaticDir:     staticDir,
		Logger:        zerolog.Nop(),
	}), wf
}

func TestHealthz(t *testing.T) {
	h, _ := newTestRouter(t, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("request id header missing")
	}
}

func TestGenerateIsRateLimitedPerClient(t *testing.T) {
	h, wf := newTestRouter(t, "")
	post := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"imageUrl":"https://x/a.jpg"}`))
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := post("203.0.113.7"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}
	rec := post("203.0.113.7")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "2" || rec.Header().Get("X-RateLimit-Remaining") != "0" || rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Fatalf("unexpected headers %v", rec.Header())
	}
	if wf.generateCalls != 2 {
		t.Fatalf("rejected request reached the workflow: %d calls", wf.generateCalls)
	}

	if rec := post("198.51.100.2"); rec.Code != http.StatusOK {
		t.Fatalf("other client: status = %d", rec.Code)
	}
}

func TestLimiterRunsBeforeAuth(t *testing.T) {
	h, _ := newTestRouter(t, "")
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if i == 2 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("status = %d, want 429", rec.Code)
		}
	}
}

func TestImagesRequireToken(t *testing.T) {
	h, _ := newTestRouter(t, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images/all", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestShareIsPublic(t *testing.T) {
	h, _ := newTestRouter(t, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/share/s1/i1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "generated"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "generated", "a.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	h, _ := newTestRouter(t, dir)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/generated/a.png", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "png" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

var _ middleware.Limiter = (*ratelimit.Limiter)(nil)
