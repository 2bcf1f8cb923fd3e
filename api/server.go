/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (logrus)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/clients/*        Client collection
  /api/alerts/*         Alert cycle
  /api/conflicts        Date conflicts
  /api/calendar.ics     iCalendar feed
  /api/integrations     Configured external links
  /api/accounting/*     Income and expenses
  /api/calls/*          Booked calls and Calendly intake
  /api/tasks/*          Studio to-do board
  /api/services/*       Service catalog
  /api/scenarios/*      Demo data (dev only)
  /api/backup/*         Backup schedule
  /api/health           Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - handlers_studio.go: Calls, tasks and catalog handlers
  - logging/logging.go: RequestLogger
  - cmd/eventdesk/serve.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/eventdesk/logging"
)

// DefaultAllowedOrigins are the dev servers of the dashboard frontend.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	if h.Logger != nil {
		r.Use(logging.RequestLogger(h.Logger))
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Client routes
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Get("/stats", h.GetClientStats)
			r.Get("/{id}", h.GetClient)
			r.Put("/{id}", h.UpdateClient)
			r.Delete("/{id}", h.DeleteClient)
			r.Get("/{id}/outlook", h.GetOutlookLink)
			r.Get("/{id}/outlook/reminder", h.GetOutlookReminderLink)
		})

		// Alert routes
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.ListAlerts)
			r.Post("/refresh", h.RefreshAlerts)
			r.Get("/reminders", h.ListReminders)
		})
		r.Get("/conflicts", h.ListConflicts)
		r.Get("/calendar.ics", h.GetCalendarFeed)
		r.Get("/integrations", h.GetIntegrations)

		// Accounting routes
		r.Route("/accounting", func(r chi.Router) {
			r.Get("/movements", h.ListMovements)
			r.Post("/movements", h.CreateMovement)
			r.Put("/movements/{id}", h.UpdateMovement)
			r.Delete("/movements/{id}", h.DeleteMovement)
			r.Get("/summary", h.GetMonthlySummary)
		})

		// Studio routes
		if h.Calls != nil {
			r.Route("/calls", func(r chi.Router) {
				r.Get("/", h.ListCalls)
				r.Post("/", h.CreateCall)
				r.Post("/calendly", h.IngestCalendly)
				r.Get("/{id}", h.GetCall)
				r.Put("/{id}", h.UpdateCall)
				r.Delete("/{id}", h.DeleteCall)
				r.Post("/{id}/outlook", h.SyncCallOutlook)
			})
		}
		if h.Tasks != nil {
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", h.ListTasks)
				r.Post("/", h.CreateTask)
				r.Put("/{id}", h.UpdateTask)
				r.Delete("/{id}", h.DeleteTask)
			})
		}
		if h.Catalog != nil {
			r.Route("/services", func(r chi.Router) {
				r.Get("/", h.ListServices)
				r.Post("/", h.CreateService)
				r.Put("/{id}", h.UpdateService)
				r.Delete("/{id}", h.DeleteService)
			})
		}

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})

		// Backup routes
		r.Route("/backup", func(r chi.Router) {
			r.Get("/", h.GetBackupConfig)
			r.Put("/", h.UpdateBackupConfig)
			r.Post("/run", h.RunBackup)
		})
	})

	return r
}
