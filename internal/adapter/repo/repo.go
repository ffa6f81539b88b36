// Package repo implements the domain repositories on PostgreSQL through
// marker-tagged statements.
package repo

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"image4marketing/internal/domain"
)

// nullableUUID maps an empty id to SQL NULL.
func nullableUUID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// validUUIDs keeps the well-formed ids so a stray value cannot fail the whole
// statement with a cast error.
func validUUIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func scanImage(row pgx.Row) (*domain.GeneratedImage, error) {
	var img domain.GeneratedImage
	if err := row.Scan(&img.ID, &img.SessionID, &img.URL, &img.Prompt, &img.IsFinal, &img.IsValidated, &img.CreatedAt); err != nil {
		return nil, err
	}
	return &img, nil
}

func scanGalleryImage(rows pgx.Rows) (domain.GalleryImage, error) {
	var g domain.GalleryImage
	err := rows.Scan(
		&g.ID,
		&g.SessionID,
		&g.URL,
		&g.Prompt,
		&g.IsFinal,
		&g.IsValidated,
		&g.CreatedAt,
		&g.OwnerID,
		&g.OwnerUsername,
	)
	return g, err
}
