package routers

import (
	chi "github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mekanizma/modli/backend/internal/app"
	"github.com/mekanizma/modli/backend/internal/metrics"
	"github.com/mekanizma/modli/backend/internal/middleware"
)

func SetupRoutes(app *app.App) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.NewCORS(app.Config.Server.CORSAllowedOrigins).Handler)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/", app.MetaHandler.HandleRoot)
		r.Get("/health", app.HHandler.HandleHealthCheck)
		r.Post("/status", app.MetaHandler.HandleCreateStatus)
		r.Get("/status", app.MetaHandler.HandleListStatus)

		r.Post("/try-on", app.TryOnHandler.HandleTryOn)
		r.Post("/weather", app.WHandler.HandleWeather)
		r.Post("/upload-image", app.UHandler.HandleUploadImage)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", app.AHandler.HandleLogin)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(app.Admin, app.Logger))

				r.Post("/logout", app.AHandler.HandleLogout)
				r.Get("/users", app.AHandler.HandleListUsers)
				r.Put("/users/{id}", app.AHandler.HandleUpdateUser)
				r.Get("/stats", app.AHandler.HandleStats)

				r.Post("/notifications/send", app.NHandler.HandleSend)
				r.Get("/notifications/logs", app.NHandler.HandleListLogs)
				r.Get("/notifications/{id}/status", app.NHandler.HandleDeliveryStatus)
			})
		})
	})

	return r
}
