package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"image4marketing/internal/domain"
	"image4marketing/internal/infra"
	"image4marketing/internal/sqlinline"
)

// SessionRepositoryPG implements domain.SessionRepository backed by PostgreSQL.
type SessionRepositoryPG struct {
	sql infra.SQLExecutor
	now func() time.Time
}

// NewSessionRepository creates a new SessionRepositoryPG.
func NewSessionRepository(sql infra.SQLExecutor) *SessionRepositoryPG {
	return &SessionRepositoryPG{sql: sql, now: time.Now}
}

// CreateWithImages inserts the session and every draft in a single statement,
// so either all images exist or none do.
func (r *SessionRepositoryPG) CreateWithImages(ctx context.Context, s domain.Session, drafts []domain.ImageDraft) (*domain.Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now().UTC()
	}
	if s.Locale == "" {
		s.Locale = "en"
	}

	ids := make([]string, len(drafts))
	urls := make([]string, len(drafts))
	prompts := make([]string, len(drafts))
	s.Images = make([]domain.GeneratedImage, len(drafts))
	for i, d := range drafts {
		ids[i] = uuid.NewString()
		urls[i] = d.URL
		prompts[i] = d.Prompt
		s.Images[i] = domain.GeneratedImage{
			ID:        ids[i],
			SessionID: s.ID,
			URL:       d.URL,
			Prompt:    d.Prompt,
			CreatedAt: s.CreatedAt,
		}
	}

	if _, err := r.sql.Exec(ctx, sqlinline.QInsertSessionWithImages,
		s.ID,
		s.OriginalImage,
		nullableUUID(s.OwnerID),
		s.Locale,
		s.CreatedAt,
		ids,
		urls,
		prompts,
	); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return &s, nil
}

// GetByID loads the session and its images in generation order.
func (r *SessionRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NotFound("session not found")
	}
	var s domain.Session
	row := r.sql.QueryRow(ctx, sqlinline.QSelectSession, id)
	if err := row.Scan(&s.ID, &s.OriginalImage, &s.OwnerID, &s.SelectedImageID, &s.Locale, &s.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.NotFound("session not found")
		}
		return nil, fmt.Errorf("select session: %w", err)
	}

	rows, err := r.sql.Query(ctx, sqlinline.QSelectSessionImages, id)
	if err != nil {
		return nil, fmt.Errorf("select session images: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session image: %w", err)
		}
		s.Images = append(s.Images, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session images: %w", err)
	}
	return &s, nil
}

// SetSelected pins imageID as the session's selected image.
func (r *SessionRepositoryPG) SetSelected(ctx context.Context, sessionID, imageID string) error {
	if _, err := uuid.Parse(imageID); err != nil {
		return domain.NotFound("image not found in session")
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QSetSelectedImage, sessionID, imageID)
	if err != nil {
		return fmt.Errorf("set selected image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("image not found in session")
	}
	return nil
}

// DeleteAll removes every session and, by cascade, their images.
func (r *SessionRepositoryPG) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteAllSessions)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of stored sessions.
func (r *SessionRepositoryPG) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.sql.QueryRow(ctx, sqlinline.QCountSessions).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

var _ domain.SessionRepository = (*SessionRepositoryPG)(nil)
