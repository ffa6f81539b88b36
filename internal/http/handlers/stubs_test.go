package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"image4marketing/internal/domain"
	"image4marketing/internal/infra"
	"image4marketing/internal/middleware"
	"image4marketing/internal/providers/caption"
	"image4marketing/internal/workflow"
)

type stubWorkflow struct {
	maxUpload   int64
	uploadCalls int
	upload      func(workflow.UploadInput) (*workflow.UploadResult, error)
	generate    func(workflow.GenerateInput) (*domain.Session, error)
	regenerate  func(workflow.RegenerateInput) (*domain.GeneratedImage, error)
	validate    func(sessionID, imageID, callerID string) (*workflow.ValidateResult, error)
	get         func(sessionID, callerID string) (*workflow.SessionView, error)
	selectImage func(sessionID, imageID, callerID string) (*domain.Session, error)
	share       func(sessionID, imageID string) (*domain.GeneratedImage, error)
}

func (s *stubWorkflow) MaxUploadBytes() int64 {
	if s.maxUpload == 0 {
		return 10 << 20
	}
	return s.maxUpload
}

func (s *stubWorkflow) Upload(ctx context.Context, in workflow.UploadInput) (*workflow.UploadResult, error) {
	s.uploadCalls++
	return s.upload(in)
}

func (s *stubWorkflow) Generate(ctx context.Context, in workflow.GenerateInput) (*domain.Session, error) {
	return s.generate(in)
}

func (s *stubWorkflow) Select(ctx context.Context, sessionID, imageID, callerID string) (*domain.Session, error) {
	return s.selectImage(sessionID, imageID, callerID)
}

func (s *stubWorkflow) Regenerate(ctx context.Context, in workflow.RegenerateInput) (*domain.GeneratedImage, error) {
	return s.regenerate(in)
}

func (s *stubWorkflow) Validate(ctx context.Context, sessionID, imageID, callerID string) (*workflow.ValidateResult, error) {
	return s.validate(sessionID, imageID, callerID)
}

func (s *stubWorkflow) Get(ctx context.Context, sessionID, callerID string) (*workflow.SessionView, error) {
	return s.get(sessionID, callerID)
}

func (s *stubWorkflow) Share(ctx context.Context, sessionID, imageID string) (*domain.GeneratedImage, error) {
	return s.share(sessionID, imageID)
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]domain.User{}} }

func (m *memUsers) Create(ctx context.Context, user domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(user.Username)
	if _, ok := m.users[key]; ok {
		return nil, domain.Conflict("username already taken")
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	m.users[key] = user
	return &user, nil
}

func (m *memUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, domain.NotFound("user not found")
	}
	return &u, nil
}

func (m *memUsers) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

type stubImages struct {
	gallery      []domain.GalleryImage
	total        int
	listOffset   int
	listLimit    int
	byID         map[string]domain.GalleryImage
	deletedOwner string
	deletedIDs   []string
}

func (s *stubImages) UpdateContent(ctx context.Context, sessionID, imageID, url, prompt string) (*domain.GeneratedImage, error) {
	return nil, nil
}

func (s *stubImages) MarkFinal(ctx context.Context, sessionID, imageID string) (*domain.GeneratedImage, error) {
	return nil, nil
}

func (s *stubImages) GetInSession(ctx context.Context, sessionID, imageID string) (*domain.GeneratedImage, error) {
	return nil, domain.NotFound("image not found")
}

func (s *stubImages) ListGallery(ctx context.Context, offset, limit int) ([]domain.GalleryImage, int, error) {
	s.listOffset, s.listLimit = offset, limit
	return s.gallery, s.total, nil
}

func (s *stubImages) GetWithOwner(ctx context.Context, ids []string) ([]domain.GalleryImage, error) {
	var out []domain.GalleryImage
	for _, id := range ids {
		if img, ok := s.byID[id]; ok {
			out = append(out, img)
		}
	}
	return out, nil
}

func (s *stubImages) DeleteOwned(ctx context.Context, ownerID string, ids []string) (int64, error) {
	s.deletedOwner, s.deletedIDs = ownerID, ids
	var n int64
	for _, id := range ids {
		if img, ok := s.byID[id]; ok && img.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (s *stubImages) DeleteAll(ctx context.Context) (int64, error) { return 0, nil }

func (s *stubImages) Count(ctx context.Context) (int64, error) { return 0, nil }

type stubCaptioner struct {
	req  caption.Request
	post *caption.Post
	err  error
}

func (s *stubCaptioner) Caption(ctx context.Context, req caption.Request) (*caption.Post, error) {
	s.req = req
	return s.post, s.err
}

func newTestApp(wf Workflow) (*App, *memUsers, *stubImages, *stubCaptioner) {
	users := newMemUsers()
	images := &stubImages{byID: map[string]domain.GalleryImage{}}
	captioner := &stubCaptioner{}
	cfg := &infra.Config{JWTSecret: "test-secret", JWTTTL: time.Hour, GenerationProvider: "mock", StorageDriver: "filesystem"}
	return NewApp(cfg, zerolog.Nop(), wf, users, images, captioner), users, images, captioner
}

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

func withParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
