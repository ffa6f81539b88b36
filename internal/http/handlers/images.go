package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"image4marketing/internal/domain"
	"image4marketing/internal/middleware"
	"image4marketing/internal/providers/caption"
	"image4marketing/pkg/zip"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxArchiveImage = 20 << 20
)

type ownerDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type galleryImageDTO struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"createdAt"`
	SessionID string    `json:"sessionId"`
	User      ownerDTO  `json:"user"`
}

type pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

type galleryResponse struct {
	Images     []galleryImageDTO `json:"images"`
	Pagination pagination        `json:"pagination"`
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func (a *App) ImagesAll(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := min(queryInt(r, "limit", defaultPageSize), maxPageSize)
	offset := (page - 1) * limit

	images, total, err := a.Images.ListGallery(r.Context(), offset, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]galleryImageDTO, len(images))
	for i, img := range images {
		owner := ownerDTO{ID: "anonymous", Username: "Anonyme"}
		if img.OwnerID != "" {
			owner = ownerDTO{ID: img.OwnerID, Username: img.OwnerUsername}
		}
		items[i] = galleryImageDTO{
			ID:        img.ID,
			URL:       img.URL,
			Prompt:    img.Prompt,
			CreatedAt: img.CreatedAt,
			SessionID: img.SessionID,
			User:      owner,
		}
	}
	a.json(w, http.StatusOK, galleryResponse{
		Images: items,
		Pagination: pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
			HasMore:    offset+len(items) < total,
		},
	})
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

func (a *App) ImageDelete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "image id is required")
		return
	}
	userID := a.currentUserID(r)
	images, err := a.Images.GetWithOwner(r.Context(), []string{id})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(images) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "image not found")
		return
	}
	if images[0].OwnerID != userID {
		a.error(w, http.StatusForbidden, "forbidden", "you are not allowed to delete this image")
		return
	}
	n, err := a.Images.DeleteOwned(r.Context(), userID, []string{id})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, deleteResponse{Success: true, Message: "image deleted", Count: n})
}

type bulkRequest struct {
	ImageIDs []string `json:"imageIds"`
}

func (a *App) ImagesBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !a.decode(w, r, &req) {
		return
	}
	ids := trimmed(req.ImageIDs)
	if len(ids) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "image list is empty")
		return
	}
	userID := a.currentUserID(r)
	images, err := a.Images.GetWithOwner(r.Context(), ids)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	foreign := 0
	for _, img := range images {
		if img.OwnerID != userID {
			foreign++
		}
	}
	if foreign > 0 {
		a.error(w, http.StatusForbidden, "forbidden", fmt.Sprintf("you are not allowed to delete %d %s", foreign, plural(foreign, "image")))
		return
	}
	n, err := a.Images.DeleteOwned(r.Context(), userID, ids)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, deleteResponse{
		Success: true,
		Message: fmt.Sprintf("%d %s deleted", n, plural(int(n), "image")),
		Count:   n,
	})
}

func plural(n int, word string) string {
	if n > 1 {
		return word + "s"
	}
	return word
}

func (a *App) ImagesBulkDownload(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !a.decode(w, r, &req) {
		return
	}
	ids := trimmed(req.ImageIDs)
	if len(ids) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "image list is empty")
		return
	}
	images, err := a.Images.GetWithOwner(r.Context(), ids)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(images) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no image found")
		return
	}

	assets := make([]zip.Asset, 0, len(images))
	for i, img := range images {
		data, err := a.fetch(r.Context(), img.URL)
		if err != nil {
			a.Logger.Warn().Err(err).Str("image_id", img.ID).Msg("bulk download: skipping image")
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: archiveName(i+1, img.ID, img.URL),
			Data:     data,
			Modified: img.CreatedAt,
		})
	}
	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="images-%d.zip"`, time.Now().UnixMilli()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func archiveName(n int, id, url string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	ext := "jpg"
	if strings.Contains(strings.ToLower(url), ".png") {
		ext = "png"
	}
	return fmt.Sprintf("image-%d-%s.%s", n, short, ext)
}

func (a *App) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveImage+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxArchiveImage {
		return nil, fmt.Errorf("image exceeds %d bytes", maxArchiveImage)
	}
	return data, nil
}

type socialRequest struct {
	ImageURL        string `json:"imageUrl"`
	UserDescription string `json:"userDescription"`
}

type socialResponse struct {
	Success  bool     `json:"success"`
	Content  string   `json:"content"`
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}

func (a *App) GenerateSocial(w http.ResponseWriter, r *http.Request) {
	var req socialRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "imageUrl is required")
		return
	}
	post, err := a.Captioner.Caption(r.Context(), caption.Request{
		ImageURL:    req.ImageURL,
		Description: req.UserDescription,
		Locale:      middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		a.fail(w, r, domain.Provider("could not generate social media content", err))
		return
	}
	a.json(w, http.StatusOK, socialResponse{
		Success:  true,
		Content:  post.Text(),
		Caption:  post.Caption,
		Hashtags: post.Hashtags,
	})
}
