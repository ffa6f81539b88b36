package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"image4marketing/internal/domain"
	"image4marketing/internal/infra"
	"image4marketing/internal/middleware"
	"image4marketing/internal/providers/caption"
	"image4marketing/internal/workflow"
)

// Workflow is the editing pipeline served by the handlers.
type Workflow interface {
	MaxUploadBytes() int64
	Upload(ctx context.Context, in workflow.UploadInput) (*workflow.UploadResult, error)
	Generate(ctx context.Context, in workflow.GenerateInput) (*domain.Session, error)
	Select(ctx context.Context, sessionID, imageID, callerID string) (*domain.Session, error)
	Regenerate(ctx context.Context, in workflow.RegenerateInput) (*domain.GeneratedImage, error)
	Validate(ctx context.Context, sessionID, imageID, callerID string) (*workflow.ValidateResult, error)
	Get(ctx context.Context, sessionID, callerID string) (*workflow.SessionView, error)
	Share(ctx context.Context, sessionID, imageID string) (*domain.GeneratedImage, error)
}

// App carries the dependencies shared by every handler.
type App struct {
	Config    *infra.Config
	Logger    zerolog.Logger
	Workflow  Workflow
	Users     domain.UserRepository
	Images    domain.ImageRepository
	Captioner caption.Captioner
	// HTTPClient downloads images for bulk archives.
	HTTPClient *http.Client
}

func NewApp(cfg *infra.Config, logger zerolog.Logger, wf Workflow, users domain.UserRepository, images domain.ImageRepository, captioner caption.Captioner) *App {
	return &App{
		Config:     cfg,
		Logger:     logger,
		Workflow:   wf,
		Users:      users,
		Images:     images,
		Captioner:  captioner,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, msg string) {
	a.json(w, status, errorResponse{Error: msg, Code: code})
}

// fail writes err with the status of its domain kind. Unclassified errors
// are logged and hidden behind a generic message.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := domain.Message(err)
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway:
		a.Logger.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		msg = "internal server error"
	case status == http.StatusBadGateway:
		a.Logger.Warn().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("upstream failure")
	}
	a.error(w, status, code, msg)
}

func statusFor(err error) (int, string) {
	switch domain.KindOf(err) {
	case domain.ErrValidation:
		return http.StatusBadRequest, "bad_request"
	case domain.ErrUnauthorized:
		return http.StatusUnauthorized, "unauthorized"
	case domain.ErrPermission:
		return http.StatusForbidden, "forbidden"
	case domain.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case domain.ErrConflict:
		return http.StatusConflict, "conflict"
	case domain.ErrRateLimited:
		return http.StatusTooManyRequests, "rate_limited"
	case domain.ErrProviderFailure:
		return http.StatusBadGateway, "provider_error"
	}
	if errors.Is(err, context.Canceled) {
		return 499, "canceled"
	}
	return http.StatusInternalServerError, "internal"
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// decode reads a JSON body of at most 1MB into v.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

func trimmed(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
