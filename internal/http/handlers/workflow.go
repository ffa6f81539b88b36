package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"image4marketing/internal/domain"
	"image4marketing/internal/middleware"
	"image4marketing/internal/workflow"
)

// multipartOverhead leaves room for form boundaries around the file part.
const multipartOverhead = 1 << 20

type uploadResponse struct {
	UploadID string                 `json:"uploadId"`
	ImageURL string                 `json:"imageUrl"`
	Metadata workflow.ImageMetadata `json:"metadata"`
}

func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	limit := a.Workflow.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.fail(w, r, domain.Validation(fmt.Sprintf("file too large: the maximum size is %d MB", limit>>20)))
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "expected a multipart form with a file field")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "no file provided")
		return
	}
	defer file.Close()

	if err := workflow.CheckUpload(header.Header.Get("Content-Type"), header.Size, limit); err != nil {
		a.fail(w, r, err)
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "could not read the uploaded file")
		return
	}

	res, err := a.Workflow.Upload(r.Context(), workflow.UploadInput{
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, uploadResponse{UploadID: res.UploadID, ImageURL: res.ImageURL, Metadata: res.Metadata})
}

type generateRequest struct {
	ImageURL    string `json:"imageUrl"`
	StylePrompt string `json:"stylePrompt"`
}

type imageDTO struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Prompt      string    `json:"prompt"`
	IsFinal     bool      `json:"isFinal"`
	IsValidated bool      `json:"isValidated"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toImageDTO(img domain.GeneratedImage) imageDTO {
	return imageDTO{
		ID:          img.ID,
		URL:         img.URL,
		Prompt:      img.Prompt,
		IsFinal:     img.IsFinal,
		IsValidated: img.IsValidated,
		CreatedAt:   img.CreatedAt,
	}
}

func toImageDTOs(images []domain.GeneratedImage) []imageDTO {
	out := make([]imageDTO, len(images))
	for i, img := range images {
		out[i] = toImageDTO(img)
	}
	return out
}

type generateResponse struct {
	SessionID string     `json:"sessionId"`
	Images    []imageDTO `json:"images"`
}

func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !a.decode(w, r, &req) {
		return
	}
	session, err := a.Workflow.Generate(r.Context(), workflow.GenerateInput{
		ImageURL:    req.ImageURL,
		StylePrompt: req.StylePrompt,
		OwnerID:     a.currentUserID(r),
		Locale:      middleware.LocaleFromContext(r.Context()),
		RequestID:   middleware.RequestIDFromContext(r.Context()),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, generateResponse{SessionID: session.ID, Images: toImageDTOs(session.Images)})
}

type regenerateRequest struct {
	SessionID  string `json:"sessionId"`
	ImageID    string `json:"imageId"`
	UserPrompt string `json:"userPrompt"`
}

type regenerateResponse struct {
	ImageID     string `json:"imageId"`
	NewImageURL string `json:"newImageUrl"`
	NewPrompt   string `json:"newPrompt"`
}

func (a *App) Regenerate(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if !a.decode(w, r, &req) {
		return
	}
	img, err := a.Workflow.Regenerate(r.Context(), workflow.RegenerateInput{
		SessionID:   req.SessionID,
		ImageID:     req.ImageID,
		Instruction: req.UserPrompt,
		CallerID:    a.currentUserID(r),
		RequestID:   middleware.RequestIDFromContext(r.Context()),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, regenerateResponse{ImageID: img.ID, NewImageURL: img.URL, NewPrompt: img.Prompt})
}

type validateRequest struct {
	SessionID    string `json:"sessionId"`
	FinalImageID string `json:"finalImageId"`
}

type validatedImage struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

type validateResponse struct {
	Success     bool           `json:"success"`
	DownloadURL string         `json:"downloadUrl"`
	ShareURL    string         `json:"shareUrl"`
	Image       validatedImage `json:"image"`
}

func (a *App) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.Workflow.Validate(r.Context(), req.SessionID, req.FinalImageID, a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, validateResponse{
		Success:     true,
		DownloadURL: res.Image.URL,
		ShareURL:    res.ShareURL,
		Image:       validatedImage{ID: res.Image.ID, URL: res.Image.URL, Prompt: res.Image.Prompt},
	})
}

type sessionResponse struct {
	ID              string         `json:"id"`
	OriginalImage   string         `json:"originalImage"`
	SelectedImageID string         `json:"selectedImageId,omitempty"`
	Stage           workflow.Stage `json:"stage"`
	Locale          string         `json:"locale"`
	CreatedAt       time.Time      `json:"createdAt"`
	Images          []imageDTO     `json:"images"`
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:              s.ID,
		OriginalImage:   s.OriginalImage,
		SelectedImageID: s.SelectedImageID,
		Stage:           workflow.Derive(s),
		Locale:          s.Locale,
		CreatedAt:       s.CreatedAt,
		Images:          toImageDTOs(s.Images),
	}
}

func (a *App) SessionGet(w http.ResponseWriter, r *http.Request) {
	view, err := a.Workflow.Get(r.Context(), chi.URLParam(r, "id"), a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toSessionResponse(view.Session))
}

type selectRequest struct {
	ImageID string `json:"imageId"`
}

func (a *App) SessionSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.ImageID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "imageId is required")
		return
	}
	session, err := a.Workflow.Select(r.Context(), chi.URLParam(r, "id"), req.ImageID, a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toSessionResponse(session))
}

func (a *App) Share(w http.ResponseWriter, r *http.Request) {
	img, err := a.Workflow.Share(r.Context(), chi.URLParam(r, "sessionId"), chi.URLParam(r, "imageId"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toImageDTO(*img))
}
