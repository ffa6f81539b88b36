package domain

import "time"

// Session is one upload-to-validation editing cycle.
type Session struct {
	ID              string
	OriginalImage   string
	OwnerID         string // empty for anonymous sessions
	SelectedImageID string
	Locale          string
	CreatedAt       time.Time
	Images          []GeneratedImage
}

// IsOwnedBy reports whether userID may mutate the session. Anonymous sessions
// are open to any caller.
func (s Session) IsOwnedBy(userID string) bool {
	return s.OwnerID == "" || s.OwnerID == userID
}

// Image returns the session image with the given id.
func (s Session) Image(id string) (GeneratedImage, bool) {
	for _, img := range s.Images {
		if img.ID == id {
			return img, true
		}
	}
	return GeneratedImage{}, false
}

// FinalImage returns the image flagged final, if any.
func (s Session) FinalImage() (GeneratedImage, bool) {
	for _, img := range s.Images {
		if img.IsFinal {
			return img, true
		}
	}
	return GeneratedImage{}, false
}

// GeneratedImage is one AI-produced variant owned by exactly one session.
type GeneratedImage struct {
	ID          string
	SessionID   string
	URL         string
	Prompt      string
	IsFinal     bool
	IsValidated bool
	CreatedAt   time.Time
}

// ImageDraft is a provider result waiting to be attached to a session.
type ImageDraft struct {
	URL    string
	Prompt string
}

// GalleryImage is a generated image joined with the owner of its session.
type GalleryImage struct {
	GeneratedImage
	OwnerID       string
	OwnerUsername string
}
