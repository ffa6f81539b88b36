package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"image4marketing/internal/domain"
	"image4marketing/internal/infra"
	"image4marketing/internal/sqlinline"
)

// ImageRepositoryPG implements domain.ImageRepository backed by PostgreSQL.
type ImageRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewImageRepository creates a new ImageRepositoryPG.
func NewImageRepository(sql infra.SQLExecutor) *ImageRepositoryPG {
	return &ImageRepositoryPG{sql: sql}
}

// UpdateContent replaces url and prompt, keeping the image identity, and
// selects the image.
func (r *ImageRepositoryPG) UpdateContent(ctx context.Context, sessionID, imageID, url, prompt string) (*domain.GeneratedImage, error) {
	img, err := scanImage(r.sql.QueryRow(ctx, sqlinline.QUpdateImageContent, sessionID, imageID, url, prompt))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.NotFound("image not found in session")
		}
		return nil, fmt.Errorf("update image: %w", err)
	}
	return img, nil
}

// MarkFinal flags the image final and validated and selects it.
func (r *ImageRepositoryPG) MarkFinal(ctx context.Context, sessionID, imageID string) (*domain.GeneratedImage, error) {
	img, err := scanImage(r.sql.QueryRow(ctx, sqlinline.QMarkImageFinal, sessionID, imageID))
	if err != nil {
		switch {
		case infra.IsNoRows(err):
			return nil, domain.NotFound("image not found in session")
		case infra.IsUniqueViolation(err):
			return nil, domain.Conflict("another image of this session is already final")
		}
		return nil, fmt.Errorf("mark image final: %w", err)
	}
	return img, nil
}

// GetInSession returns the image only when it belongs to sessionID.
func (r *ImageRepositoryPG) GetInSession(ctx context.Context, sessionID, imageID string) (*domain.GeneratedImage, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, domain.NotFound("image not found in session")
	}
	if _, err := uuid.Parse(imageID); err != nil {
		return nil, domain.NotFound("image not found in session")
	}
	img, err := scanImage(r.sql.QueryRow(ctx, sqlinline.QSelectImageInSession, sessionID, imageID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.NotFound("image not found in session")
		}
		return nil, fmt.Errorf("select image: %w", err)
	}
	return img, nil
}

// ListGallery returns one page of images, newest first, and the total count.
func (r *ImageRepositoryPG) ListGallery(ctx context.Context, offset, limit int) ([]domain.GalleryImage, int, error) {
	var total int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountImages).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count images: %w", err)
	}
	if total == 0 || offset >= total {
		return []domain.GalleryImage{}, total, nil
	}

	rows, err := r.sql.Query(ctx, sqlinline.QListGallery, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list gallery: %w", err)
	}
	defer rows.Close()

	out := make([]domain.GalleryImage, 0, limit)
	for rows.Next() {
		g, err := scanGalleryImage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan gallery image: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate gallery: %w", err)
	}
	return out, total, nil
}

// GetWithOwner returns the requested images that exist, in request order.
func (r *ImageRepositoryPG) GetWithOwner(ctx context.Context, ids []string) ([]domain.GalleryImage, error) {
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectImagesWithOwner, ids)
	if err != nil {
		return nil, fmt.Errorf("select images: %w", err)
	}
	defer rows.Close()

	var out []domain.GalleryImage
	for rows.Next() {
		g, err := scanGalleryImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}
	return out, nil
}

// DeleteOwned deletes the listed images whose session belongs to ownerID.
func (r *ImageRepositoryPG) DeleteOwned(ctx context.Context, ownerID string, ids []string) (int64, error) {
	ids = validUUIDs(ids)
	if _, err := uuid.Parse(ownerID); err != nil || len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteOwnedImages, ownerID, ids)
	if err != nil {
		return 0, fmt.Errorf("delete images: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteAll removes every generated image.
func (r *ImageRepositoryPG) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteAllImages)
	if err != nil {
		return 0, fmt.Errorf("delete all images: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of stored images.
func (r *ImageRepositoryPG) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.sql.QueryRow(ctx, sqlinline.QCountImages).Scan(&n); err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return n, nil
}

var _ domain.ImageRepository = (*ImageRepositoryPG)(nil)
