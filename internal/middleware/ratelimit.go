package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"image4marketing/internal/ratelimit"
)

// UnknownClient is the identifier shared by requests that carry no address header.
const UnknownClient = "unknown"

// Limiter admits requests per endpoint class.
type Limiter interface {
	Allow(ctx context.Context, class ratelimit.Class, identifier string) (ratelimit.Decision, error)
}

type rateLimitBody struct {
	Error     string `json:"error"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Reset     int64  `json:"reset"`
}

// RateLimit applies the quota of class before the wrapped handler runs.
// The X-RateLimit-* headers are set on every decided request. When the
// counter store fails the request is let through and the failure logged.
func RateLimit(limiter Limiter, class ratelimit.Class, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ClientIdentifier(r)
			decision, err := limiter.Allow(r.Context(), class, id)
			if err != nil {
				logger.Warn().Err(err).Str("class", string(class)).Str("client", id).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			reset := decision.Reset.UnixMilli()
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
			if !decision.Success {
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(rateLimitBody{
					Error:     "Too many requests, please try again later",
					Limit:     decision.Limit,
					Remaining: 0,
					Reset:     reset,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIdentifier returns the first X-Forwarded-For entry, then X-Real-IP,
// then UnknownClient. Values are not validated as addresses.
func ClientIdentifier(r *http.Request) string {
	if r == nil {
		return UnknownClient
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		if first := strings.TrimSpace(strings.Split(xf, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return UnknownClient
}
