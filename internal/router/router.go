package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"clipscout-backend/internal/handlers"
	"clipscout-backend/internal/middleware"
	"clipscout-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	runHandler *handlers.RunHandler,
	ratingHandler *handlers.RatingHandler,
	videoHandler *handlers.VideoHandler,
	systemHandler *handlers.SystemHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(frontendURL))

	// Starting runs spends API quota (20 req/min per IP)
	runLimiter := middleware.NewRateLimiter(20, time.Minute)

	r.Get("/health", systemHandler.Health)
	r.Get("/metrics", systemHandler.Metrics)

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Run Control ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(runLimiter.Middleware)
			r.Post("/collections", runHandler.StartCollection)
			r.Post("/ratings", runHandler.StartRating)
			r.Post("/ratings/next", ratingHandler.RateNext)
		})

		r.Route("/collections/{id}", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", runHandler.Get)
			r.Delete("/", runHandler.Stop)
		})

		// ──── Runs ────
		r.Route("/runs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", runHandler.List)
			r.Get("/{id}", runHandler.Get)
			r.Delete("/{id}", runHandler.Stop)
		})

		// ──── Videos ────
		r.Route("/videos", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/pending", videoHandler.ListPending)
			r.Get("/promoted", videoHandler.ListPromoted)
			r.Get("/discarded", videoHandler.ListDiscarded)
			r.Get("/{videoID}/moments", videoHandler.Moments)
		})

		r.With(jwtAuth.Middleware).Get("/queries", videoHandler.ListQueries)

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
