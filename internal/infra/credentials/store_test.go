package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeSQL struct {
	stored   string
	queryErr error
	execErr  error
	lookups  []any
	saved    []any
}

func (f *fakeSQL) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	f.saved = args
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeSQL) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	f.lookups = args
	return tokenRow{f: f}
}

func (f *fakeSQL) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unused")
}

type tokenRow struct{ f *fakeSQL }

func (r tokenRow) Scan(dest ...any) error {
	if r.f.queryErr != nil {
		return r.f.queryErr
	}
	*dest[0].(*string) = r.f.stored
	return nil
}

func TestNormalize(t *testing.T) {
	if p, err := Normalize(" QWEN "); err != nil || p != ProviderQwen {
		t.Fatalf("Normalize = %q, %v", p, err)
	}
	if _, err := Normalize("openai"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestLookup(t *testing.T) {
	db := &fakeSQL{stored: " abc123 "}
	key, err := NewStore(db).Lookup(context.Background(), "Gemini")
	if err != nil || key != "abc123" {
		t.Fatalf("Lookup = %q, %v", key, err)
	}
	if db.lookups[0] != ProviderGemini {
		t.Fatalf("provider arg = %v", db.lookups[0])
	}

	key, err = NewStore(&fakeSQL{queryErr: pgx.ErrNoRows}).Lookup(context.Background(), ProviderQwen)
	if err != nil || key != "" {
		t.Fatalf("missing row should be empty, got %q, %v", key, err)
	}

	boom := errors.New("conn reset")
	if _, err := NewStore(&fakeSQL{queryErr: boom}).Lookup(context.Background(), ProviderQwen); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		stored     string
		want       string
	}{
		{name: "configured wins", configured: " env-key ", stored: "db-key", want: "env-key"},
		{name: "stored fallback", stored: " db-key ", want: "db-key"},
		{name: "nothing", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewStore(&fakeSQL{stored: tc.stored}).Resolve(context.Background(), ProviderGemini, tc.configured)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Resolve = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSave(t *testing.T) {
	db := &fakeSQL{}
	store := NewStore(db)
	store.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	if err := store.Save(context.Background(), "qwen", " secret ", "cli"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if db.saved[0] != ProviderQwen || db.saved[1] != "secret" {
		t.Fatalf("unexpected args %v", db.saved[:2])
	}
	var props map[string]string
	if err := json.Unmarshal(db.saved[2].([]byte), &props); err != nil {
		t.Fatalf("props: %v", err)
	}
	if props["source"] != "cli" || props["saved_at"] != "2024-05-01T12:00:00Z" {
		t.Fatalf("props = %v", props)
	}
}

func TestSaveRejects(t *testing.T) {
	store := NewStore(&fakeSQL{})
	if err := store.Save(context.Background(), ProviderGemini, "  ", "cli"); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
	if err := store.Save(context.Background(), "dalle", "k", "cli"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	boom := errors.New("read only")
	if err := NewStore(&fakeSQL{execErr: boom}).Save(context.Background(), ProviderGemini, "k", "cli"); !errors.Is(err, boom) {
		t.Fatalf("expected exec error, got %v", err)
	}
}
