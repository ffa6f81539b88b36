package repo

import (
	"context"
	"fmt"
	"strings"

	"image4marketing/internal/domain"
	"image4marketing/internal/infra"
	"image4marketing/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

// Create inserts the account. A taken username yields a conflict error.
func (r *UserRepositoryPG) Create(ctx context.Context, user domain.User) (*domain.User, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertUser,
		strings.TrimSpace(user.Username),
		strings.TrimSpace(user.Email),
		user.PasswordHash,
	)
	out, err := scanUser(row)
	if err != nil {
		if infra.IsUniqueViolation(err) {
			return nil, domain.Conflict("username already taken")
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return out, nil
}

// GetByUsername fetches a user by case-insensitive username.
func (r *UserRepositoryPG) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	out, err := scanUser(r.sql.QueryRow(ctx, sqlinline.QSelectUserByUsername, strings.TrimSpace(username)))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.NotFound("user not found")
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return out, nil
}

// Count returns the number of accounts.
func (r *UserRepositoryPG) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.sql.QueryRow(ctx, sqlinline.QCountUsers).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
