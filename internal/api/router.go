package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bangla-dub/backend/internal/api/handlers"
	"github.com/bangla-dub/backend/internal/api/middleware"
	"github.com/bangla-dub/backend/internal/auth"
	"github.com/bangla-dub/backend/internal/config"
	"github.com/bangla-dub/backend/internal/db"
	"github.com/bangla-dub/backend/internal/job"
	"github.com/bangla-dub/backend/internal/pipeline/translation"
)

const maxRequestBody = 10 << 20 // 10 MB

func NewRouter(
	database *db.Database,
	jwtService *auth.JWTService,
	cfg *config.Config,
	jobQueue *job.JobQueue,
	engine *translation.Engine,
	recognizerNames []string,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.MaxBodySize(maxRequestBody))
	r.Use(cors.Handler(middleware.CORSHandler(cfg.CORSOrigins)))

	// Handlers
	authHandler := handlers.NewAuthHandler(database, jwtService)
	videoHandler := handlers.NewVideoHandler(database, jobQueue, cfg.MediaPath, recognizerNames)
	segmentHandler := handlers.NewSegmentHandler(database, engine)
	jobHandler := handlers.NewJobHandler(jobQueue)
	settingsHandler := handlers.NewSettingsHandler(database)

	loginLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})

		// Auth (public, rate limited)
		r.With(loginLimiter.Handler).Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))

			// Auth
			r.Get("/auth/me", authHandler.Me)

			// Videos and the pipeline trigger points
			r.Post("/videos", videoHandler.Create)
			r.Get("/videos", videoHandler.List)
			r.Get("/videos/{id}", videoHandler.Get)
			r.Post("/videos/{id}/transcribe", videoHandler.Transcribe)
			r.Post("/videos/{id}/confirm", videoHandler.Confirm)
			r.Post("/videos/{id}/translate", videoHandler.Translate)
			r.Post("/videos/{id}/dub", videoHandler.Dub)
			r.Get("/videos/{id}/segments", videoHandler.Segments)
			r.Get("/videos/{id}/translations", videoHandler.Translations)
			r.Get("/videos/{id}/subtitle", videoHandler.Subtitle)

			// Segment editing
			r.Put("/segments/{id}", segmentHandler.Update)
			r.Post("/segments/{id}/switch-alternative", segmentHandler.SwitchAlternative)
			r.Post("/segments/{id}/retranslate", segmentHandler.Retranslate)

			// Jobs
			r.Get("/jobs", jobHandler.ListJobs)
			r.Get("/jobs/{id}", jobHandler.GetJob)
			r.Delete("/jobs/{id}", jobHandler.CancelJob)
			r.Post("/jobs/{id}/retry", jobHandler.RetryJob)

			// Settings (admin only)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin"))
				r.Get("/settings", settingsHandler.GetSettings)
				r.Put("/settings", settingsHandler.UpdateSettings)
			})
		})
	})

	return r
}
