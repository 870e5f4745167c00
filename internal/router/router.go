package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"notedrop/internal/config"
	"notedrop/internal/handler"
	"notedrop/internal/middleware"
	"notedrop/internal/websocket"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Subject *handler.SubjectHandler
	File    *handler.FileHandler
	Stats   *handler.StatsHandler
	Health  *handler.HealthHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, hub *websocket.Hub) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Check)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Auth.Login)
			auth.Post("/register", h.Auth.Register)
			auth.Post("/refresh", h.Auth.Refresh)
			auth.With(authMiddleware.RequireAuth).Post("/logout", h.Auth.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
		})

		api.With(authMiddleware.RequireAuth).Get("/stats", h.Stats.Get)
		api.With(authMiddleware.RequireAuth).Delete("/stats/cache", h.Stats.Invalidate)

		api.With(authMiddleware.RequireAuth).Get("/subjects", h.Subject.List)
		api.With(authMiddleware.RequireAuth).Post("/subjects/subscribe", h.Subject.Subscribe)
		api.With(authMiddleware.RequireAuth).Delete("/subjects/{subject}", h.Subject.Unsubscribe)
		api.With(authMiddleware.RequireAuth).Get("/subjects/{subject}/channels", h.Subject.Channels)
		api.With(authMiddleware.RequireAuth).Get("/channels", h.Subject.ChannelIDs)

		api.With(authMiddleware.RequireAuth).Get("/files", h.File.List)
		api.With(authMiddleware.RequireAuth).Post("/files/upload", h.File.Upload)
		api.With(authMiddleware.RequireAuth).Post("/files/stage", h.File.Stage)
		api.With(authMiddleware.RequireAuth).Post("/files/upload/staged", h.File.UploadStaged)
		api.With(authMiddleware.RequireAuth).Get("/files/{file_id}/download", h.File.Download)
		api.With(authMiddleware.RequireAuth).Post("/files/{file_id}/favorite", h.File.ToggleFavorite)

		api.With(authMiddleware.RequireAuth).Get("/shared/files", h.File.SharedList)
		api.With(authMiddleware.RequireAuth).Post("/shared/upload", h.File.SharedUpload)
	})

	r.With(authMiddleware.RequireAuth).Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWS(hub, w, r)
	})

	return r
}
