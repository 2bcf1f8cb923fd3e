/*
handlers.go - HTTP API handlers for the event dashboard

PURPOSE:
  Exposes the client collection, the alert cycle, accounting and backup
  via REST API (calls, tasks and the catalog live in handlers_studio.go). Handles HTTP request/response, JSON serialization, and
  delegates to the domain services.

ENDPOINTS:
  Clients:
    GET    /api/clients                      List (?q= ?status= ?date=YYYY-MM-DD)
    POST   /api/clients                      Create client
    GET    /api/clients/stats                Counts and revenue
    GET    /api/clients/{id}                 Get client
    PUT    /api/clients/{id}                 Update client
    DELETE /api/clients/{id}                 Delete client
    GET    /api/clients/{id}/outlook         Outlook event deeplink
    GET    /api/clients/{id}/outlook/reminder Outlook reminder deeplink (?days=7)

  Alerts:
    GET    /api/alerts                       Active alerts by priority
    POST   /api/alerts/refresh               Evaluate now
    GET    /api/alerts/reminders             Upcoming reminders (?days=)
    GET    /api/conflicts                    Days with several events
    GET    /api/calendar.ics                 iCalendar feed

  Accounting:
    GET    /api/accounting/movements         List (?month=YYYY-MM)
    POST   /api/accounting/movements         Create movement
    PUT    /api/accounting/movements/{id}    Update movement
    DELETE /api/accounting/movements/{id}    Delete movement
    GET    /api/accounting/summary           Monthly summary (?month=)

  Scenarios:
    GET    /api/scenarios                    List demo scenarios
    POST   /api/scenarios/load               Reset and load a scenario
    POST   /api/scenarios/reset              Reset the store

  Backup:
    GET    /api/backup                       Backup config and next_backup
    PUT    /api/backup                       Update config and reschedule
    POST   /api/backup/run                   Back up now

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Backup already running
  - 503: Integration not configured
  - 500: Internal errors

  Alert and conflict reads never fail: an unreadable collection yields
  empty lists.

SECURITY NOTE:
  No authentication. The server is meant to listen on localhost.

SEE ALSO:
  - dto.go: Request/response data structures
  - scheduler.go: Alert evaluation cycle
  - handlers_studio.go: Calls, tasks and service catalog
  - scenarios.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/warp/eventdesk/accounting"
	"github.com/warp/eventdesk/alerting"
	"github.com/warp/eventdesk/backup"
	"github.com/warp/eventdesk/calls"
	"github.com/warp/eventdesk/clients"
	"github.com/warp/eventdesk/integrations"
	"github.com/warp/eventdesk/logging"
	"github.com/warp/eventdesk/services"
	"github.com/warp/eventdesk/tasks"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// ConflictSummarizer renders a one-line description of a conflict.
type ConflictSummarizer interface {
	ConflictSummary(g alerting.DateConflictGroup) string
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Clients    *clients.Service
	Accounting *accounting.Service
	Scheduler  *AlertScheduler
	Backup     *backup.Service

	// Optional.
	Composer    integrations.CalendarEventComposer
	CalendlyURL string
	Summaries   ConflictSummarizer
	Store       Pinger
	Resetter    Resetter
	Calls       *calls.Service
	Tasks       *tasks.Service
	Catalog     *services.Catalog

	Location        *time.Location
	ReminderHorizon int
	Logger          logrus.FieldLogger
	Now             func() time.Time
}

// NewHandler creates a handler. The optional fields may be set on the
// result.
func NewHandler(clientSvc *clients.Service, acct *accounting.Service, sched *AlertScheduler, bk *backup.Service, loc *time.Location, logger logrus.FieldLogger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{
		Clients:         clientSvc,
		Accounting:      acct,
		Scheduler:       sched,
		Backup:          bk,
		Location:        loc,
		ReminderHorizon: 7,
		Logger:          logger,
		Now:             time.Now,
	}
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients returns clients, optionally filtered.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	q := clients.Query{
		Term:   r.URL.Query().Get("q"),
		Status: r.URL.Query().Get("status"),
	}
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err := alerting.ParseDay(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		q.Day = day
	}

	list, err := h.Clients.Find(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients", err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTOs(list, h.Location))
}

// GetClient returns a single client.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Clients.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "Failed to get client", err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(rec, h.Location))
}

// CreateClient creates a new client.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rec, err := req.toRecord(h.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid client", err)
		return
	}

	created, err := h.Clients.Create(r.Context(), rec)
	if err != nil {
		h.writeServiceError(w, "Failed to create client", err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientDTO(created, h.Location))
}

// UpdateClient replaces a client.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rec, err := req.toRecord(h.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid client", err)
		return
	}

	updated, err := h.Clients.Update(r.Context(), chi.URLParam(r, "id"), rec)
	if err != nil {
		h.writeServiceError(w, "Failed to update client", err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(updated, h.Location))
}

// DeleteClient removes a client.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.Clients.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, "Failed to delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetClientStats returns counts per status and revenue totals.
func (h *Handler) GetClientStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Clients.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute stats", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(st))
}

// GetOutlookLink composes an Outlook event for the client.
func (h *Handler) GetOutlookLink(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Clients.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "Failed to get client", err)
		return
	}
	if h.Composer == nil {
		h.writeServiceError(w, "Outlook is not configured", integrations.ErrComposerNotConfigured)
		return
	}
	link, err := h.Composer.EventLink(rec)
	if err != nil {
		h.writeServiceError(w, "Failed to compose event", err)
		return
	}
	writeJSON(w, http.StatusOK, LinkResponse{URL: link})
}

// GetIntegrations reports the configured external links.
func (h *Handler) GetIntegrations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, IntegrationsDTO{
		Outlook:     h.Composer != nil,
		CalendlyURL: h.CalendlyURL,
	})
}

// GetOutlookReminderLink composes an Outlook reminder ?days= before the
// event (default 7).
func (h *Handler) GetOutlookReminderLink(w http.ResponseWriter, r *http.Request) {
	days := alerting.EventLeadDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "days must be a non-negative integer", err)
			return
		}
		days = n
	}

	rec, err := h.Clients.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "Failed to get client", err)
		return
	}
	if h.Composer == nil {
		h.writeServiceError(w, "Outlook is not configured", integrations.ErrComposerNotConfigured)
		return
	}
	link, err := h.Composer.ReminderLink(rec, days)
	if err != nil {
		h.writeServiceError(w, "Failed to compose reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, LinkResponse{URL: link})
}

// =============================================================================
// ALERT HANDLERS
// =============================================================================

// ListAlerts returns the latest evaluation, running one first if the
// scheduler has not evaluated yet.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toAlertsResponse(h.snapshot(r.Context())))
}

// RefreshAlerts evaluates now and returns the result. Dispatch is not
// bound to the request lifetime.
func (h *Handler) RefreshAlerts(w http.ResponseWriter, r *http.Request) {
	snap := h.Scheduler.Evaluate(context.WithoutCancel(r.Context()), h.now())
	writeJSON(w, http.StatusOK, toAlertsResponse(snap))
}

// ListReminders returns reminders due within ?days= (default from config).
func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	horizon := h.ReminderHorizon
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "days must be a non-negative integer", err)
			return
		}
		horizon = n
	}

	list, err := h.Clients.List(r.Context())
	if err != nil {
		h.Logger.WithError(err).Warn("failed to list clients for reminders")
		list = nil
	}
	reminders := h.Scheduler.Engine.UpcomingReminders(list, h.now(), horizon)
	writeJSON(w, http.StatusOK, toAlertDTOs(reminders))
}

// ListConflicts returns days holding more than one event.
func (h *Handler) ListConflicts(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(r.Context())
	dtos := make([]ConflictDTO, len(snap.Conflicts))
	for i, g := range snap.Conflicts {
		summary := ""
		if h.Summaries != nil {
			summary = h.Summaries.ConflictSummary(g)
		}
		dtos[i] = toConflictDTO(g, summary, h.Location)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCalendarFeed serves every scheduled event as iCalendar.
func (h *Handler) GetCalendarFeed(w http.ResponseWriter, r *http.Request) {
	list, err := h.Clients.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients", err)
		return
	}
	data, err := integrations.CalendarFeed(list, h.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render calendar", err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="eventdesk.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) snapshot(ctx context.Context) Snapshot {
	snap := h.Scheduler.Snapshot()
	if snap.EvaluatedAt.IsZero() {
		snap = h.Scheduler.Evaluate(context.WithoutCancel(ctx), h.now())
	}
	return snap
}

// =============================================================================
// ACCOUNTING HANDLERS
// =============================================================================

// ListMovements returns movements of ?month= (all when absent).
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month != "" {
		m, err := accounting.ParseMonth(month)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month", err)
			return
		}
		month = m
	}
	list, err := h.Accounting.List(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list movements", err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementDTOs(list, h.Location))
}

// CreateMovement records a movement.
func (h *Handler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	var req MovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	m, err := req.toMovement(h.Location)
	if err != nil {
		h.writeServiceError(w, "Invalid movement", err)
		return
	}
	created, err := h.Accounting.Create(r.Context(), m)
	if err != nil {
		h.writeServiceError(w, "Failed to create movement", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMovementDTO(created, h.Location))
}

// UpdateMovement replaces a movement.
func (h *Handler) UpdateMovement(w http.ResponseWriter, r *http.Request) {
	var req MovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	m, err := req.toMovement(h.Location)
	if err != nil {
		h.writeServiceError(w, "Invalid movement", err)
		return
	}
	updated, err := h.Accounting.Update(r.Context(), chi.URLParam(r, "id"), m)
	if err != nil {
		h.writeServiceError(w, "Failed to update movement", err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementDTO(updated, h.Location))
}

// DeleteMovement removes a movement.
func (h *Handler) DeleteMovement(w http.ResponseWriter, r *http.Request) {
	if err := h.Accounting.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, "Failed to delete movement", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMonthlySummary totals ?month= (default: current month).
func (h *Handler) GetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = accounting.MonthOf(h.now().In(h.Location))
	}
	sum, err := h.Accounting.Summary(r.Context(), month)
	if err != nil {
		h.writeServiceError(w, "Failed to summarise month", err)
		return
	}
	writeJSON(w, http.StatusOK, MonthlySummaryDTO{
		Month:         sum.Month,
		TotalIncome:   sum.TotalIncome,
		TotalExpenses: sum.TotalExpenses,
		Profit:        sum.Profit,
		Movements:     toMovementDTOs(sum.Movements, h.Location),
	})
}

// =============================================================================
// BACKUP HANDLERS
// =============================================================================

// GetBackupConfig returns the stored backup schedule and, when active, the
// next scheduled run.
func (h *Handler) GetBackupConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := backup.LoadConfig(r.Context(), h.Backup.Settings)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load backup config", err)
		return
	}
	writeJSON(w, http.StatusOK, h.backupConfigDTO(cfg))
}

func (h *Handler) backupConfigDTO(cfg backup.Config) BackupConfigDTO {
	dto := BackupConfigDTO{Config: cfg}
	if next := h.Backup.NextRun(h.now()); !next.IsZero() {
		dto.NextBackup = next.Format(time.RFC3339)
	}
	return dto
}

// UpdateBackupConfig stores a new schedule and re-registers the job.
// LastBackup cannot be set through this endpoint.
func (h *Handler) UpdateBackupConfig(w http.ResponseWriter, r *http.Request) {
	current, err := backup.LoadConfig(r.Context(), h.Backup.Settings)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load backup config", err)
		return
	}

	cfg := current
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	cfg.LastBackup = current.LastBackup

	if err := backup.SaveConfig(r.Context(), h.Backup.Settings, cfg); err != nil {
		h.writeServiceError(w, "Failed to save backup config", err)
		return
	}
	if err := h.Backup.Schedule(r.Context(), h.Scheduler.Cron()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to schedule backup", err)
		return
	}
	writeJSON(w, http.StatusOK, h.backupConfigDTO(cfg))
}

// RunBackup performs a backup immediately.
func (h *Handler) RunBackup(w http.ResponseWriter, r *http.Request) {
	res, err := h.Backup.Run(r.Context())
	if err != nil {
		h.writeServiceError(w, "Backup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports storage reachability and the next alert cycle.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Store != nil {
		if err := h.Store.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
			return
		}
	}
	resp := HealthResponse{Status: "ok"}
	if next := h.Scheduler.NextRun(); !next.IsZero() {
		resp.NextCycle = next.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps domain sentinels to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, clients.ErrClientNotFound),
		errors.Is(err, accounting.ErrMovementNotFound),
		errors.Is(err, calls.ErrCallNotFound),
		errors.Is(err, tasks.ErrTaskNotFound),
		errors.Is(err, services.ErrItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, clients.ErrInvalidClient),
		errors.Is(err, accounting.ErrInvalidMovement),
		errors.Is(err, accounting.ErrInvalidMonth),
		errors.Is(err, calls.ErrInvalidCall),
		errors.Is(err, tasks.ErrInvalidTask),
		errors.Is(err, services.ErrInvalidItem),
		errors.Is(err, services.ErrUnknownCategory),
		errors.Is(err, backup.ErrInvalidConfig),
		errors.Is(err, integrations.ErrNoEventDate):
		status = http.StatusBadRequest
	case errors.Is(err, backup.ErrRunning):
		status = http.StatusConflict
	case errors.Is(err, integrations.ErrComposerNotConfigured):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError && h.Logger != nil {
		h.Logger.WithError(err).Error(message)
	}
	writeError(w, status, message, err)
}
