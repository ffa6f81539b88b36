package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"image4marketing/internal/http/handlers"
	"image4marketing/internal/middleware"
	"image4marketing/internal/ratelimit"
)

// Options configures the cross-cutting middleware of the router.
type Options struct {
	JWTSecret      string
	Limiter        middleware.Limiter
	CountryLookup  middleware.CountryLookup
	AllowedOrigins []string
	DefaultLocale  string
	// StaticDir is served under /static when set (filesystem storage).
	StaticDir string
	Logger    zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	// Health
	r.Get("/v1/healthz", app.Health)

	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	optional := middleware.OptionalAuthJWT(opts.JWTSecret)
	limited := func(class ratelimit.Class) func(http.Handler) http.Handler {
		return middleware.RateLimit(opts.Limiter, class, opts.Logger)
	}

	r.Route("/api", func(r chi.Router) {
		// The limiter runs before authentication and body parsing.
		r.With(limited(ratelimit.ClassUpload), optional).Post("/upload", app.Upload)
		r.With(limited(ratelimit.ClassGenerate), optional).Post("/generate", app.Generate)
		r.With(limited(ratelimit.ClassRegenerate), optional).Post("/regenerate", app.Regenerate)
		r.With(limited(ratelimit.ClassValidate), optional).Post("/validate", app.Validate)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(optional)
			r.Get("/", app.SessionGet)
			r.Post("/select", app.SessionSelect)
		})
		r.Get("/share/{sessionId}/{imageId}", app.Share)

		r.Post("/auth/register", app.Register)
		r.Post("/auth/login", app.Login)

		r.Route("/images", func(r chi.Router) {
			r.Use(middleware.AuthJWT(opts.JWTSecret))
			r.Get("/all", app.ImagesAll)
			r.Delete("/delete", app.ImageDelete)
			r.Delete("/bulk-delete", app.ImagesBulkDelete)
			r.Post("/bulk-download", app.ImagesBulkDownload)
			r.Post("/generate-social", app.GenerateSocial)
		})
	})

	return r
}
