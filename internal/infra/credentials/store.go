// Package credentials keeps generation provider API keys in the
// integration_tokens table so operators can rotate them without a redeploy.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"image4marketing/internal/infra"
	"image4marketing/internal/sqlinline"
)

const (
	ProviderGemini = "gemini"
	ProviderQwen   = "qwen"
)

var (
	ErrUnknownProvider = errors.New("credentials: unknown provider")
	ErrEmptyToken      = errors.New("credentials: token is empty")
)

// EnvVars maps each provider to the variable that overrides its stored key.
var EnvVars = map[string]string{
	ProviderGemini: "GEMINI_API_KEY",
	ProviderQwen:   "QWEN_API_KEY",
}

// Normalize lower-cases provider and rejects names outside EnvVars.
func Normalize(provider string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(provider))
	if _, ok := EnvVars[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return p, nil
}

type Store struct {
	sql infra.SQLExecutor
	now func() time.Time
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql, now: time.Now}
}

// Lookup returns the stored key for provider, or "" when none was saved.
func (s *Store) Lookup(ctx context.Context, provider string) (string, error) {
	p, err := Normalize(provider)
	if err != nil {
		return "", err
	}
	var token string
	if err := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, p).Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("credentials: lookup %s: %w", p, err)
	}
	return strings.TrimSpace(token), nil
}

// Resolve returns configured when set, the stored key otherwise.
func (s *Store) Resolve(ctx context.Context, provider, configured string) (string, error) {
	if key := strings.TrimSpace(configured); key != "" {
		return key, nil
	}
	return s.Lookup(ctx, provider)
}

// Save upserts the key for provider and records where it came from.
func (s *Store) Save(ctx context.Context, provider, token, source string) error {
	p, err := Normalize(provider)
	if err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	props, err := json.Marshal(map[string]string{
		"source":   source,
		"saved_at": s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, p, token, props); err != nil {
		return fmt.Errorf("credentials: save %s: %w", p, err)
	}
	return nil
}
