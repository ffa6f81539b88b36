package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}
type countryContextKey struct{}

var (
	LocaleKey  = localeContextKey{}
	CountryKey = countryContextKey{}
)

// Supported caption and message locales.
const (
	LocaleEN = "en"
	LocaleFR = "fr"
)

var localeMatcher = language.NewMatcher([]language.Tag{language.English, language.French})

// francophone lists the countries served French by default.
var francophone = map[string]bool{"FR": true, "BE": true, "CH": true, "LU": true, "MC": true, "SN": true, "CI": true, "MA": true, "TN": true}

// countryHeaders are set by CDNs and load balancers in front of the API.
var countryHeaders = []string{"X-Country-Code", "X-IP-Country", "CF-IPCountry", "X-Appengine-Country"}

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// I18N stores the request locale and country in the context. The locale
// comes from X-Locale, then Accept-Language, then the country, then
// defaultLocale.
func I18N(defaultLocale string, lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			country := ResolveCountry(r, lookup)
			ctx := context.WithValue(r.Context(), LocaleKey, detectLocale(r, defaultLocale, country))
			if country != "" {
				ctx = context.WithValue(ctx, CountryKey, country)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback, country string) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		if base := baseOf(v); base == LocaleFR {
			return LocaleFR
		}
		return LocaleEN
	}
	if locale := matchAcceptLanguage(r.Header.Get("Accept-Language")); locale != "" {
		return locale
	}
	switch {
	case francophone[country]:
		return LocaleFR
	case country != "":
		return LocaleEN
	case baseOf(fallback) == LocaleFR:
		return LocaleFR
	}
	return LocaleEN
}

// matchAcceptLanguage picks the best supported locale, or "" when the
// header names none of them.
func matchAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	tag, _, confidence := localeMatcher.Match(tags...)
	if confidence == language.No {
		return ""
	}
	if b, _ := tag.Base(); b.String() == LocaleFR {
		return LocaleFR
	}
	return LocaleEN
}

func baseOf(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return ""
	}
	b, _ := tag.Base()
	return b.String()
}

// regionOf returns the explicit region of the preferred language in header.
// A bare "fr" counts as France.
func regionOf(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	if region, confidence := tags[0].Region(); confidence == language.Exact {
		return region.String()
	}
	if b, _ := tags[0].Base(); b.String() == LocaleFR {
		return "FR"
	}
	return ""
}

// ClientIP returns the forwarded client address, or the peer address when
// the request was not proxied.
func ClientIP(r *http.Request) string {
	if id := ClientIdentifier(r); id != UnknownClient {
		return id
	}
	if r == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return LocaleEN
}

// CountryFromContext returns the ISO country code stored by I18N.
func CountryFromContext(ctx context.Context) string {
	v, _ := ctx.Value(CountryKey).(string)
	return v
}

// ResolveCountry guesses the caller's ISO country from proxy headers, the
// language headers, then the GeoIP lookup.
func ResolveCountry(r *http.Request, lookup CountryLookup) string {
	if r == nil {
		return ""
	}
	for _, key := range countryHeaders {
		if v := strings.TrimSpace(r.Header.Get(key)); v != "" {
			return strings.ToUpper(v)
		}
	}
	for _, key := range []string{"X-Locale", "Accept-Language"} {
		if region := regionOf(r.Header.Get(key)); region != "" {
			return region
		}
	}
	if lookup == nil {
		return ""
	}
	if country, err := lookup(ClientIP(r)); err == nil {
		return strings.ToUpper(strings.TrimSpace(country))
	}
	return ""
}
