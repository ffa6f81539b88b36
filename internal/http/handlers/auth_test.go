package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"image4marketing/internal/middleware"
)

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing fields", `{"username":"","password":""}`, "required"},
		{"short username", `{"username":"ab","password":"secret1"}`, "at least 3"},
		{"short password", `{"username":"chef","password":"12345"}`, "at least 6"},
		{"long password", `{"username":"chef","password":"` + strings.Repeat("x", 73) + `"}`, "too long"},
		{"bad email", `{"username":"chef","password":"secret1","email":"nope"}`, "invalid email"},
		{"bad json", `{"username":`, "invalid payload"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, users, _, _ := newTestApp(&stubWorkflow{})
			rec := httptest.NewRecorder()
			app.Register(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(tc.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.want) {
				t.Fatalf("body %q does not mention %q", rec.Body.String(), tc.want)
			}
			if len(users.users) != 0 {
				t.Fatalf("no user should be stored")
			}
		})
	}
}

func TestRegisterThenLogin(t *testing.T) {
	app, users, _, _ := newTestApp(&stubWorkflow{})

	rec := httptest.NewRecorder()
	app.Register(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"username":"Chef","password":"secret1","email":"chef@example.com"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d body=%s", rec.Code, rec.Body.String())
	}
	var reg registerResponse
	_ = json.NewDecoder(rec.Body).Decode(&reg)
	if reg.User.ID == "" || reg.User.Username != "Chef" {
		t.Fatalf("unexpected register response %+v", reg)
	}
	if stored := users.users["chef"]; stored.PasswordHash == "" || stored.PasswordHash == "secret1" {
		t.Fatalf("password must be stored hashed")
	}

	rec = httptest.NewRecorder()
	app.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"chef","password":"secret1"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", rec.Code, rec.Body.String())
	}
	var login loginResponse
	_ = json.NewDecoder(rec.Body).Decode(&login)
	claims, err := middleware.VerifyJWT("test-secret", login.Token)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.Subject != reg.User.ID || claims.Username != "Chef" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	app, _, _, _ := newTestApp(&stubWorkflow{})
	body := `{"username":"chef","password":"secret1"}`
	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		rec := httptest.NewRecorder()
		app.Register(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))
		if rec.Code != want {
			t.Fatalf("attempt %d: status = %d, want %d", i+1, rec.Code, want)
		}
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app, _, _, _ := newTestApp(&stubWorkflow{})
	rec := httptest.NewRecorder()
	app.Register(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"username":"chef","password":"secret1"}`)))

	tests := []struct {
		body   string
		status int
	}{
		{`{"username":"chef","password":"wrong-one"}`, http.StatusUnauthorized},
		{`{"username":"ghost","password":"secret1"}`, http.StatusUnauthorized},
		{`{"username":"chef"}`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		app.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tc.body)))
		if rec.Code != tc.status {
			t.Fatalf("%s: status = %d, want %d", tc.body, rec.Code, tc.status)
		}
		if tc.status == http.StatusUnauthorized && strings.Contains(rec.Body.String(), "token") {
			t.Fatalf("no token expected: %s", rec.Body.String())
		}
	}
}
