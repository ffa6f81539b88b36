package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"image4marketing/internal/domain"
	"image4marketing/internal/providers/image"
)

type memDB struct {
	mu             sync.Mutex
	sessions       map[string]*domain.Session
	createErr      error
	updateErr      error
	markFinalErr   error
	markFinalCalls int
}

func newMemDB() *memDB {
	return &memDB{sessions: make(map[string]*domain.Session)}
}

func cloneSession(s *domain.Session) *domain.Session {
	out := *s
	out.Images = append([]domain.GeneratedImage(nil), s.Images...)
	return &out
}

func (db *memDB) findImage(imageID string) (*domain.Session, int) {
	for _, s := range db.sessions {
		for i := range s.Images {
			if s.Images[i].ID == imageID {
				return s, i
			}
		}
	}
	return nil, -1
}

type memSessions struct{ db *memDB }

func (r memSessions) CreateWithImages(ctx context.Context, s domain.Session, drafts []domain.ImageDraft) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.createErr != nil {
		return nil, r.db.createErr
	}
	s.ID = uuid.NewString()
	s.CreatedAt = time.Now().UTC()
	for _, d := range drafts {
		s.Images = append(s.Images, domain.GeneratedImage{
			ID: uuid.NewString(), SessionID: s.ID, URL: d.URL, Prompt: d.Prompt, CreatedAt: s.CreatedAt,
		})
	}
	r.db.sessions[s.ID] = cloneSession(&s)
	return &s, nil
}

func (r memSessions) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[id]
	if !ok {
		return nil, domain.NotFound("session not found")
	}
	return cloneSession(s), nil
}

func (r memSessions) SetSelected(ctx context.Context, sessionID, imageID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[sessionID]
	if !ok {
		return domain.NotFound("session not found")
	}
	s.SelectedImageID = imageID
	return nil
}

func (r memSessions) DeleteAll(ctx context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := len(r.db.sessions)
	r.db.sessions = make(map[string]*domain.Session)
	return int64(n), nil
}

func (r memSessions) Count(ctx context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.db.sessions)), nil
}

type memImages struct{ db *memDB }

func (r memImages) UpdateContent(ctx context.Context, sessionID, imageID, url, prompt string) (*domain.GeneratedImage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.updateErr != nil {
		return nil, r.db.updateErr
	}
	s, i := r.db.findImage(imageID)
	if s == nil || s.ID != sessionID {
		return nil, domain.NotFound("image not found")
	}
	s.Images[i].URL = url
	s.Images[i].Prompt = prompt
	s.SelectedImageID = imageID
	img := s.Images[i]
	return &img, nil
}

func (r memImages) MarkFinal(ctx context.Context, sessionID, imageID string) (*domain.GeneratedImage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.markFinalCalls++
	if r.db.markFinalErr != nil {
		return nil, r.db.markFinalErr
	}
	s, ok := r.db.sessions[sessionID]
	if !ok {
		return nil, domain.NotFound("session not found")
	}
	idx := -1
	for i := range s.Images {
		if s.Images[i].IsFinal && s.Images[i].ID != imageID {
			return nil, domain.Conflict("another image is final")
		}
		if s.Images[i].ID == imageID {
			idx = i
		}
	}
	if idx < 0 {
		return nil, domain.NotFound("image not found")
	}
	s.Images[idx].IsFinal = true
	s.Images[idx].IsValidated = true
	s.SelectedImageID = imageID
	img := s.Images[idx]
	return &img, nil
}

func (r memImages) GetInSession(ctx context.Context, sessionID, imageID string) (*domain.GeneratedImage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.db.sessions[sessionID]; ok {
		if img, ok := s.Image(imageID); ok {
			return &img, nil
		}
	}
	return nil, domain.NotFound("image not found")
}

func (r memImages) ListGallery(ctx context.Context, offset, limit int) ([]domain.GalleryImage, int, error) {
	return nil, 0, nil
}

func (r memImages) GetWithOwner(ctx context.Context, ids []string) ([]domain.GalleryImage, error) {
	return nil, nil
}

func (r memImages) DeleteOwned(ctx context.Context, ownerID string, ids []string) (int64, error) {
	return 0, nil
}

func (r memImages) DeleteAll(ctx context.Context) (int64, error) { return 0, nil }

func (r memImages) Count(ctx context.Context) (int64, error) { return 0, nil }

type put struct {
	folder      string
	contentType string
	size        int
}

type fakeMedia struct {
	mu   sync.Mutex
	puts []put
	err  error
}

func (m *fakeMedia) Put(ctx context.Context, folder string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.puts = append(m.puts, put{folder: folder, contentType: contentType, size: len(data)})
	return fmt.Sprintf("https://media.test/%s/%d", folder, len(m.puts)), nil
}

func (m *fakeMedia) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.puts)
}

var errUpstream = errors.New("upstream exploded")

type fakeGenerator struct {
	mu          sync.Mutex
	requests    []image.Request
	failVariant int
	failEdit    bool
	data        []byte
	block       bool
	delay       time.Duration
	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func newFakeGenerator() *fakeGenerator { return &fakeGenerator{failVariant: -1} }

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(ctx context.Context, req image.Request) (*image.Result, error) {
	n := g.inflight.Add(1)
	defer g.inflight.Add(-1)
	for {
		peak := g.maxInflight.Load()
		if n <= peak || g.maxInflight.CompareAndSwap(peak, n) {
			break
		}
	}

	g.mu.Lock()
	g.requests = append(g.requests, req)
	call := len(g.requests)
	g.mu.Unlock()

	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if req.Mode == image.ModeGenerate && req.Variant == g.failVariant {
		return nil, errUpstream
	}
	if req.Mode == image.ModeEdit && g.failEdit {
		return nil, errUpstream
	}
	if g.data != nil {
		return &image.Result{Data: g.data, MIME: "image/png"}, nil
	}
	return &image.Result{URL: fmt.Sprintf("https://gen.test/%s/%d/%d", req.Mode, req.Variant, call)}, nil
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}
