package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"medremind/internal/handler"
	"medremind/internal/httputil"
	authmw "medremind/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	NotificationHandler *handler.NotificationHandler
	ReminderHandler     *handler.ReminderHandler
	JWTSecret           string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		// Delivery history and preferences
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.List)
			r.Get("/unread-count", cfg.NotificationHandler.GetUnreadCount)
			r.Patch("/{id}/read", cfg.NotificationHandler.MarkRead)
			r.Post("/read-all", cfg.NotificationHandler.MarkAllRead)
			r.Get("/preference", cfg.NotificationHandler.GetPreference)
			r.Put("/preference", cfg.NotificationHandler.SetPreference)
		})

		// Device token registration, written by the client token manager
		r.Route("/devices", func(r chi.Router) {
			r.Post("/token", cfg.NotificationHandler.RegisterToken)
			r.Delete("/token", cfg.NotificationHandler.RemoveToken)
		})

		// Reminder sources
		r.Route("/reminders", func(r chi.Router) {
			r.Route("/medications", func(r chi.Router) {
				r.Post("/", cfg.ReminderHandler.CreateMedication)
				r.Get("/", cfg.ReminderHandler.ListMedications)
				r.Patch("/{id}", cfg.ReminderHandler.UpdateMedication)
				r.Delete("/{id}", cfg.ReminderHandler.DeleteMedication)
			})
			r.Route("/appointments", func(r chi.Router) {
				r.Post("/", cfg.ReminderHandler.CreateAppointment)
				r.Get("/", cfg.ReminderHandler.ListAppointments)
				r.Delete("/{id}", cfg.ReminderHandler.CancelAppointment)
			})
		})
	})

	return r
}
