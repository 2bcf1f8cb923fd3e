/*
handlers_studio.go - HTTP handlers for calls, tasks and the service catalog

ENDPOINTS:
  Calls:
    GET    /api/calls                        List (?upcoming=true)
    POST   /api/calls                        Create call
    POST   /api/calls/calendly               Calendly booking intake
    GET    /api/calls/{id}                   Get call
    PUT    /api/calls/{id}                   Update call
    DELETE /api/calls/{id}                   Delete call
    POST   /api/calls/{id}/outlook           Compose the Outlook event

  Tasks:
    GET    /api/tasks                        List (?assigned_to= ?status=)
    POST   /api/tasks                        Create task
    PUT    /api/tasks/{id}                   Update task
    DELETE /api/tasks/{id}                   Delete task

  Services:
    GET    /api/services                     List (?category= ?active=true)
    POST   /api/services                     Create catalog item
    PUT    /api/services/{id}                Update catalog item
    DELETE /api/services/{id}                Delete catalog item

The routes are only mounted when the matching service is set on Handler.

SEE ALSO:
  - calls/calls.go, tasks/tasks.go, services/services.go
  - server.go: Route mounting
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/eventdesk/calls"
	"github.com/warp/eventdesk/services"
	"github.com/warp/eventdesk/tasks"
)

// =============================================================================
// DTOs
// =============================================================================

// CallRequest is the body of POST/PUT /api/calls.
type CallRequest struct {
	ClientName      string `json:"client_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	ScheduledAt     string `json:"scheduled_at"`
	DurationMinutes int    `json:"duration_minutes"`
	Kind            string `json:"kind"`
	Status          string `json:"status"`
	Notes           string `json:"notes"`
	ReminderSent    bool   `json:"reminder_sent"`
}

// CallLinkResponse pairs a call with its Outlook compose link.
type CallLinkResponse struct {
	Call        calls.Call `json:"call"`
	OutlookLink string     `json:"outlook_link,omitempty"`
}

// TaskDTO represents a task in API responses.
type TaskDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AssignedTo  string `json:"assigned_to"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	Notes       string `json:"notes,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// TaskRequest is the body of POST/PUT /api/tasks.
type TaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssignedTo  string `json:"assigned_to"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
	ClientID    string `json:"client_id"`
	Notes       string `json:"notes"`
	CompletedAt string `json:"completed_at"`
}

func (req CallRequest) toCall(loc *time.Location) (calls.Call, error) {
	at, err := parseEventDate(req.ScheduledAt, loc)
	if err != nil {
		return calls.Call{}, fmt.Errorf("%w: %v", calls.ErrInvalidCall, err)
	}
	return calls.Call{
		ClientName:      req.ClientName,
		Email:           req.Email,
		Phone:           strings.TrimSpace(req.Phone),
		ScheduledAt:     at,
		DurationMinutes: req.DurationMinutes,
		Kind:            calls.Kind(req.Kind),
		Status:          calls.Status(req.Status),
		Notes:           req.Notes,
		ReminderSent:    req.ReminderSent,
	}, nil
}

func (req TaskRequest) toTask(loc *time.Location) (tasks.Task, error) {
	due, err := parseDay(req.DueDate, loc)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("%w: invalid due_date %q", tasks.ErrInvalidTask, req.DueDate)
	}
	t := tasks.Task{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  tasks.Assignee(req.AssignedTo),
		Status:      tasks.Status(req.Status),
		Priority:    tasks.Priority(req.Priority),
		DueDate:     due,
		ClientID:    req.ClientID,
		Notes:       req.Notes,
	}
	if req.CompletedAt != "" {
		done, err := time.Parse(time.RFC3339, req.CompletedAt)
		if err != nil {
			return tasks.Task{}, fmt.Errorf("%w: invalid completed_at %q", tasks.ErrInvalidTask, req.CompletedAt)
		}
		t.CompletedAt = &done
	}
	return t, nil
}

func toTaskDTO(t tasks.Task, loc *time.Location) TaskDTO {
	dto := TaskDTO{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		AssignedTo:  string(t.AssignedTo),
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     formatDay(t.DueDate, loc),
		ClientID:    t.ClientID,
		Notes:       t.Notes,
		CreatedAt:   formatStamp(t.CreatedAt),
		UpdatedAt:   formatStamp(t.UpdatedAt),
	}
	if t.CompletedAt != nil {
		dto.CompletedAt = formatStamp(*t.CompletedAt)
	}
	return dto
}

func toTaskDTOs(list []tasks.Task, loc *time.Location) []TaskDTO {
	out := make([]TaskDTO, 0, len(list))
	for _, t := range list {
		out = append(out, toTaskDTO(t, loc))
	}
	return out
}

// =============================================================================
// CALL HANDLERS
// =============================================================================

// ListCalls returns every call, or only the upcoming ones with ?upcoming=true.
func (h *Handler) ListCalls(w http.ResponseWriter, r *http.Request) {
	var (
		list []calls.Call
		err  error
	)
	if upcoming, _ := strconv.ParseBool(r.URL.Query().Get("upcoming")); upcoming {
		list, err = h.Calls.Upcoming(r.Context(), h.now())
	} else {
		list, err = h.Calls.List(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calls", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetCall(w http.ResponseWriter, r *http.Request) {
	c, err := h.Calls.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "Failed to get call", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) CreateCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, err := req.toCall(h.Location)
	if err != nil {
		h.writeServiceError(w, "Invalid call", err)
		return
	}
	created, err := h.Calls.Create(r.Context(), c)
	if err != nil {
		h.writeServiceError(w, "Failed to create call", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, err := req.toCall(h.Location)
	if err != nil {
		h.writeServiceError(w, "Invalid call", err)
		return
	}
	updated, err := h.Calls.Update(r.Context(), chi.URLParam(r, "id"), c)
	if err != nil {
		h.writeServiceError(w, "Failed to update call", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteCall(w http.ResponseWriter, r *http.Request) {
	if err := h.Calls.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, "Failed to delete call", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// IngestCalendly accepts a Calendly booking notification.
func (h *Handler) IngestCalendly(w http.ResponseWriter, r *http.Request) {
	var ev calls.CalendlyEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, link, err := h.Calls.IngestCalendly(r.Context(), ev)
	if err != nil {
		h.writeServiceError(w, "Failed to ingest Calendly booking", err)
		return
	}
	h.Logger.WithField("call_id", c.ID).Info("Calendly booking stored")
	writeJSON(w, http.StatusCreated, CallLinkResponse{Call: c, OutlookLink: link})
}

// SyncCallOutlook composes the Outlook event for a call.
func (h *Handler) SyncCallOutlook(w http.ResponseWriter, r *http.Request) {
	c, link, err := h.Calls.SyncOutlook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "Failed to compose Outlook event", err)
		return
	}
	writeJSON(w, http.StatusOK, CallLinkResponse{Call: c, OutlookLink: link})
}

// =============================================================================
// TASK HANDLERS
// =============================================================================

// ListTasks returns the tasks matching ?assigned_to= and ?status=.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := tasks.Filter{
		AssignedTo: tasks.Assignee(q.Get("assigned_to")),
		Status:     tasks.Status(q.Get("status")),
	}
	if f.AssignedTo != "" && !f.AssignedTo.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid assignee", nil)
		return
	}
	if f.Status != "" && !f.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status", nil)
		return
	}
	list, err := h.Tasks.List(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTOs(list, h.Location))
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, err := req.toTask(h.Location)
	if err != nil {
		h.writeServiceError(w, "Invalid task", err)
		return
	}
	created, err := h.Tasks.Create(r.Context(), t)
	if err != nil {
		h.writeServiceError(w, "Failed to create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskDTO(created, h.Location))
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, err := req.toTask(h.Location)
	if err != nil {
		h.writeServiceError(w, "Invalid task", err)
		return
	}
	updated, err := h.Tasks.Update(r.Context(), chi.URLParam(r, "id"), t)
	if err != nil {
		h.writeServiceError(w, "Failed to update task", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(updated, h.Location))
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Tasks.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, "Failed to delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SERVICE CATALOG HANDLERS
// =============================================================================

// ListServices returns the catalog filtered by ?category= and ?active=true.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	activeOnly, _ := strconv.ParseBool(q.Get("active"))
	list, err := h.Catalog.List(r.Context(), q.Get("category"), activeOnly)
	if err != nil {
		h.writeServiceError(w, "Failed to list services", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var it services.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	created, err := h.Catalog.Create(r.Context(), it)
	if err != nil {
		h.writeServiceError(w, "Failed to create service", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var it services.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	updated, err := h.Catalog.Update(r.Context(), chi.URLParam(r, "id"), it)
	if err != nil {
		h.writeServiceError(w, "Failed to update service", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, "Failed to delete service", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
