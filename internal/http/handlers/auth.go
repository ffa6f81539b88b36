package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"image4marketing/internal/domain"
	"image4marketing/internal/middleware"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type userDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type registerResponse struct {
	Message string  `json:"message"`
	User    userDTO `json:"user"`
}

func (a *App) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !a.decode(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case req.Username == "" || req.Password == "":
		a.error(w, http.StatusBadRequest, "bad_request", "username and password are required")
		return
	case utf8.RuneCountInString(req.Username) < minUsernameLength:
		a.error(w, http.StatusBadRequest, "bad_request", "username must be at least 3 characters")
		return
	case len(req.Password) < minPasswordLength:
		a.error(w, http.StatusBadRequest, "bad_request", "password must be at least 6 characters")
		return
	case len(req.Password) > maxPasswordBytes:
		a.error(w, http.StatusBadRequest, "bad_request", "password is too long")
		return
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid email address")
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	user, err := a.Users.Create(r.Context(), domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Logger.Info().Str("user_id", user.ID).Msg("user registered")
	a.json(w, http.StatusCreated, registerResponse{
		Message: "user created",
		User:    userDTO{ID: user.ID, Username: user.Username},
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "username and password are required")
		return
	}
	user, err := a.Users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusUnauthorized, "unauthorized", "invalid username or password")
			return
		}
		a.fail(w, r, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid username or password")
		return
	}
	token, err := middleware.SignJWT(a.Config.JWTSecret, user.ID, user.Username, a.Config.JWTTTL)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, loginResponse{Token: token, User: userDTO{ID: user.ID, Username: user.Username}})
}
