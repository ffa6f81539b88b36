package domain

import "context"

// SessionRepository persists editing sessions together with their images.
type SessionRepository interface {
	// CreateWithImages stores the session and all drafts atomically and returns
	// the session with its images in draft order.
	CreateWithImages(ctx context.Context, session Session, drafts []ImageDraft) (*Session, error)
	GetByID(ctx context.Context, id string) (*Session, error)
	SetSelected(ctx context.Context, sessionID, imageID string) error
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// ImageRepository handles generated image records.
type ImageRepository interface {
	// UpdateContent replaces url and prompt and makes the image the session's
	// selection. Both changes apply together or not at all.
	UpdateContent(ctx context.Context, sessionID, imageID, url, prompt string) (*GeneratedImage, error)
	// MarkFinal flags the image final and validated and selects it, in one
	// atomic write. It fails with ErrConflict when another image of the
	// session is already final.
	MarkFinal(ctx context.Context, sessionID, imageID string) (*GeneratedImage, error)
	GetInSession(ctx context.Context, sessionID, imageID string) (*GeneratedImage, error)
	ListGallery(ctx context.Context, offset, limit int) ([]GalleryImage, int, error)
	GetWithOwner(ctx context.Context, ids []string) ([]GalleryImage, error)
	DeleteOwned(ctx context.Context, ownerID string, ids []string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// UserRepository manages accounts.
type UserRepository interface {
	Create(ctx context.Context, user User) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Count(ctx context.Context) (int64, error)
}
