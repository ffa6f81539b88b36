package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		fallback string
		country  string
		want     string
	}{
		{"x-locale wins over country", map[string]string{"X-Locale": "FR"}, "", "US", "fr"},
		{"x-locale region form", map[string]string{"X-Locale": "fr-CA"}, "", "", "fr"},
		{"unsupported x-locale", map[string]string{"X-Locale": "de"}, "fr", "", "en"},
		{"accept-language english", map[string]string{"Accept-Language": "en-US,en;q=0.9"}, "fr", "", "en"},
		{"accept-language french", map[string]string{"Accept-Language": "fr-FR,en;q=0.8"}, "", "", "fr"},
		{"accept-language quality order", map[string]string{"Accept-Language": "en;q=0.4,fr;q=0.9"}, "", "", "fr"},
		{"unsupported language uses country", map[string]string{"Accept-Language": "de-DE"}, "", "BE", "fr"},
		{"francophone country", nil, "", "SN", "fr"},
		{"other country", nil, "fr", "US", "en"},
		{"configured fallback", nil, "fr", "", "fr"},
		{"default", nil, "", "", "en"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := detectLocale(req, tc.fallback, tc.country); got != tc.want {
				t.Fatalf("detectLocale() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		lookup  CountryLookup
		want    string
	}{
		{"proxy header first", map[string]string{"X-Country-Code": "us", "CF-IPCountry": "fr"}, nil, "US"},
		{"x-locale region", map[string]string{"X-Locale": "en-AU"}, nil, "AU"},
		{"accept-language region", map[string]string{"Accept-Language": "en-GB,en;q=0.9"}, nil, "GB"},
		{"bare french", map[string]string{"Accept-Language": "fr;q=0.8"}, nil, "FR"},
		{"bare english needs lookup", map[string]string{"Accept-Language": "en"}, nil, ""},
		{"geoip", nil, func(ip string) (string, error) {
			if ip != "203.0.113.4" {
				return "", errors.New("unexpected ip " + ip)
			}
			return "my", nil
		}, "MY"},
		{"geoip uses forwarded address", map[string]string{"X-Forwarded-For": "198.51.100.9, 10.0.0.1"}, func(ip string) (string, error) {
			if ip != "198.51.100.9" {
				return "", errors.New("unexpected ip " + ip)
			}
			return "be", nil
		}, "BE"},
		{"geoip error", nil, func(string) (string, error) { return "", errors.New("boom") }, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.4:80"
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := ResolveCountry(req, tc.lookup); got != tc.want {
				t.Fatalf("ResolveCountry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestI18NStoresLocaleAndCountry(t *testing.T) {
	var locale, country string
	h := I18N("en", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale = LocaleFromContext(r.Context())
		country = CountryFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-IPCountry", "ch")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if locale != "fr" || country != "CH" {
		t.Fatalf("locale=%q country=%q", locale, country)
	}
}

func TestLocaleFromContextDefault(t *testing.T) {
	if got := LocaleFromContext(context.Background()); got != "en" {
		t.Fatalf("LocaleFromContext() = %q, want en", got)
	}
	if got := CountryFromContext(context.Background()); got != "" {
		t.Fatalf("CountryFromContext() = %q", got)
	}
}
