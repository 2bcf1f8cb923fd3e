/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain records (model, alerting, accounting) from the wire format
  the dashboard frontend consumes.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

DATES:
  - Event dates and timestamps: RFC3339
  - Calendar days (due dates, reminders, movements): YYYY-MM-DD, read in
    the configured zone
  - Amounts: decimal strings ("1250.50")

VALIDATION:
  Parsing is done here (toRecord/toMovement); business validation is done
  by the clients and accounting services.

SEE ALSO:
  - handlers.go: Uses these types
  - model/client.go: ClientRecord
*/
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/eventdesk/accounting"
	"github.com/warp/eventdesk/alerting"
	"github.com/warp/eventdesk/backup"
	"github.com/warp/eventdesk/clients"
	"github.com/warp/eventdesk/model"
)

// =============================================================================
// CLIENTS
// =============================================================================

// ClientDTO represents a client in API responses.
type ClientDTO struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Email           string            `json:"email,omitempty"`
	Phone           string            `json:"phone,omitempty"`
	EventDate       string            `json:"event_date,omitempty"`
	Venue           string            `json:"venue,omitempty"`
	City            string            `json:"city,omitempty"`
	Service         string            `json:"service,omitempty"`
	PaymentMethod   string            `json:"payment_method,omitempty"`
	Status          string            `json:"status"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	PaidAmount      decimal.Decimal   `json:"paid_amount"`
	PendingBalance  decimal.Decimal   `json:"pending_balance"`
	SpecialRequests string            `json:"special_requests,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	AlertSettings   *AlertSettingsDTO `json:"alert_settings,omitempty"`
	Installments    []InstallmentDTO  `json:"installments"`
	Reminders       []ReminderDTO     `json:"reminders"`
	CreatedAt       string            `json:"created_at,omitempty"`
	UpdatedAt       string            `json:"updated_at,omitempty"`
}

type AlertSettingsDTO struct {
	SevenDayAlert bool `json:"seven_day_alert"`
	PaymentAlert  bool `json:"payment_alert"`
}

type InstallmentDTO struct {
	Number  int             `json:"number"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate string          `json:"due_date,omitempty"`
	Status  string          `json:"status"`
	Method  string          `json:"method,omitempty"`
	Concept string          `json:"concept,omitempty"`
}

type ReminderDTO struct {
	Date    string `json:"date"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// ClientRequest is the body of create and update.
type ClientRequest struct {
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	EventDate       string            `json:"event_date"`
	Venue           string            `json:"venue"`
	City            string            `json:"city"`
	Service         string            `json:"service"`
	PaymentMethod   string            `json:"payment_method"`
	Status          string            `json:"status"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	PaidAmount      decimal.Decimal   `json:"paid_amount"`
	SpecialRequests string            `json:"special_requests"`
	Notes           string            `json:"notes"`
	AlertSettings   *AlertSettingsDTO `json:"alert_settings"`
	Installments    []InstallmentDTO  `json:"installments"`
	Reminders       []ReminderDTO     `json:"reminders"`
}

// ClientStatsDTO is the dashboard header.
type ClientStatsDTO struct {
	Total            int             `json:"total"`
	Potential        int             `json:"potential"`
	Confirmed        int             `json:"confirmed"`
	InProgress       int             `json:"in_progress"`
	Completed        int             `json:"completed"`
	Cancelled        int             `json:"cancelled"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	CollectedRevenue decimal.Decimal `json:"collected_revenue"`
	PendingRevenue   decimal.Decimal `json:"pending_revenue"`
}

// LinkResponse carries a composed deeplink.
type LinkResponse struct {
	URL string `json:"url"`
}

// IntegrationsDTO tells the dashboard which external links it can offer.
type IntegrationsDTO struct {
	Outlook     bool   `json:"outlook"`
	CalendlyURL string `json:"calendly_url,omitempty"`
}

// =============================================================================
// ALERTS
// =============================================================================

type AlertDTO struct {
	ClientID      string `json:"client_id"`
	ClientName    string `json:"client_name"`
	Date          string `json:"date"`
	DaysRemaining int    `json:"days_remaining"`
	Kind          string `json:"kind"`
	Priority      string `json:"priority"`
	Message       string `json:"message"`
	Amount        string `json:"amount,omitempty"`
}

// AlertsResponse groups the active alerts by priority.
type AlertsResponse struct {
	EvaluatedAt string     `json:"evaluated_at,omitempty"`
	Total       int        `json:"total"`
	Critical    []AlertDTO `json:"critical"`
	High        []AlertDTO `json:"high"`
	Medium      []AlertDTO `json:"medium"`
	Low         []AlertDTO `json:"low"`
}

type ConflictDTO struct {
	Date    string             `json:"date"`
	Summary string             `json:"summary,omitempty"`
	Clients []ClientSummaryDTO `json:"clients"`
}

type ClientSummaryDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	EventDate string `json:"event_date"`
	Venue     string `json:"venue,omitempty"`
}

// =============================================================================
// ACCOUNTING
// =============================================================================

type MovementDTO struct {
	ID        string          `json:"id"`
	Concept   string          `json:"concept"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category,omitempty"`
	Date      string          `json:"date"`
	Kind      string          `json:"kind"`
	Recurring bool            `json:"recurring"`
	Month     string          `json:"month"`
	Notes     string          `json:"notes,omitempty"`
}

type MovementRequest struct {
	Concept   string          `json:"concept"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
	Date      string          `json:"date"`
	Kind      string          `json:"kind"`
	Recurring bool            `json:"recurring"`
	Notes     string          `json:"notes"`
}

type MonthlySummaryDTO struct {
	Month         string          `json:"month"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	Profit        decimal.Decimal `json:"profit"`
	Movements     []MovementDTO   `json:"movements"`
}

// =============================================================================
// MISC
// =============================================================================

// BackupConfigDTO is the stored backup schedule plus its next run.
type BackupConfigDTO struct {
	backup.Config
	NextBackup string `json:"next_backup,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	NextCycle string `json:"next_cycle,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func formatDay(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(alerting.DayLayout)
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// parseDay reads YYYY-MM-DD as midnight in loc. Blank is the zero time.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(alerting.DayLayout, s, loc)
}

// parseEventDate accepts RFC3339, a local "YYYY-MM-DDTHH:MM" (as typed in
// a datetime-local input) or a bare day.
func parseEventDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", s, loc); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(alerting.DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

func toClientDTO(c model.ClientRecord, loc *time.Location) ClientDTO {
	dto := ClientDTO{
		ID:              c.ID,
		Name:            c.DisplayName,
		Email:           c.Email,
		Phone:           c.Phone,
		Venue:           c.Venue,
		City:            c.City,
		Service:         string(c.Service),
		PaymentMethod:   c.PaymentMethod,
		Status:          string(c.Status),
		TotalAmount:     c.TotalAmount,
		PaidAmount:      c.PaidAmount,
		PendingBalance:  c.PendingBalance(),
		SpecialRequests: c.SpecialRequests,
		Notes:           c.Notes,
		Installments:    make([]InstallmentDTO, 0, len(c.Installments)),
		Reminders:       make([]ReminderDTO, 0, len(c.Reminders)),
		CreatedAt:       formatStamp(c.CreatedAt),
		UpdatedAt:       formatStamp(c.UpdatedAt),
	}
	if c.HasEventDate() {
		dto.EventDate = c.EventDate.In(loc).Format(time.RFC3339)
	}
	if c.AlertSettings != nil {
		dto.AlertSettings = &AlertSettingsDTO{
			SevenDayAlert: c.AlertSettings.SevenDayAlert,
			PaymentAlert:  c.AlertSettings.PaymentAlert,
		}
	}
	for _, inst := range c.Installments {
		dto.Installments = append(dto.Installments, InstallmentDTO{
			Number:  inst.Number,
			Amount:  inst.Amount,
			DueDate: formatDay(inst.DueDate, loc),
			Status:  string(inst.Status),
			Method:  inst.Method,
			Concept: inst.Concept,
		})
	}
	for _, rem := range c.Reminders {
		dto.Reminders = append(dto.Reminders, ReminderDTO{
			Date:    formatDay(rem.Date, loc),
			Kind:    rem.Kind,
			Message: rem.Message,
		})
	}
	return dto
}

func toClientDTOs(list []model.ClientRecord, loc *time.Location) []ClientDTO {
	dtos := make([]ClientDTO, len(list))
	for i, c := range list {
		dtos[i] = toClientDTO(c, loc)
	}
	return dtos
}

// toRecord converts a request body. Date errors are reported as
// clients.ValidationError so they map to 400.
func (req ClientRequest) toRecord(loc *time.Location) (model.ClientRecord, error) {
	eventDate, err := parseEventDate(req.EventDate, loc)
	if err != nil {
		return model.ClientRecord{}, &clients.ValidationError{Field: "event_date", Message: err.Error()}
	}

	rec := model.ClientRecord{
		DisplayName:     req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		EventDate:       eventDate,
		Venue:           req.Venue,
		City:            req.City,
		Service:         model.ServiceKind(req.Service),
		PaymentMethod:   req.PaymentMethod,
		Status:          model.ClientStatus(req.Status),
		TotalAmount:     req.TotalAmount,
		PaidAmount:      req.PaidAmount,
		SpecialRequests: req.SpecialRequests,
		Notes:           req.Notes,
	}
	if req.AlertSettings != nil {
		rec.AlertSettings = &model.AlertSettings{
			SevenDayAlert: req.AlertSettings.SevenDayAlert,
			PaymentAlert:  req.AlertSettings.PaymentAlert,
		}
	}
	for _, inst := range req.Installments {
		due, err := parseDay(inst.DueDate, loc)
		if err != nil {
			return model.ClientRecord{}, &clients.ValidationError{
				Field:   "installments",
				Message: fmt.Sprintf("installment %d has an invalid due_date %q", inst.Number, inst.DueDate),
			}
		}
		rec.Installments = append(rec.Installments, model.Installment{
			Number:  inst.Number,
			Amount:  inst.Amount,
			DueDate: due,
			Status:  model.InstallmentStatus(inst.Status),
			Method:  inst.Method,
			Concept: inst.Concept,
		})
	}
	for _, rem := range req.Reminders {
		date, err := parseDay(rem.Date, loc)
		if err != nil || date.IsZero() {
			return model.ClientRecord{}, &clients.ValidationError{
				Field:   "reminders",
				Message: fmt.Sprintf("invalid reminder date %q", rem.Date),
			}
		}
		rec.Reminders = append(rec.Reminders, model.Reminder{
			Date:    date,
			Kind:    rem.Kind,
			Message: rem.Message,
		})
	}
	return rec, nil
}

func toStatsDTO(st clients.Stats) ClientStatsDTO {
	return ClientStatsDTO{
		Total:            st.Total,
		Potential:        st.Potential,
		Confirmed:        st.Confirmed,
		InProgress:       st.InProgress,
		Completed:        st.Completed,
		Cancelled:        st.Cancelled,
		TotalRevenue:     st.TotalRevenue,
		CollectedRevenue: st.CollectedRevenue,
		PendingRevenue:   st.PendingRevenue,
	}
}

func toAlertDTO(a alerting.AlertEntry) AlertDTO {
	dto := AlertDTO{
		ClientID:      a.ClientID,
		ClientName:    a.ClientDisplayName,
		Date:          formatStamp(a.Date),
		DaysRemaining: a.DaysRemaining,
		Kind:          string(a.Kind),
		Priority:      a.Priority.String(),
		Message:       a.Message,
	}
	if a.Kind == alerting.KindPaymentOverdue || a.Kind == alerting.KindPaymentDueSoon {
		dto.Amount = a.Amount.StringFixed(2)
	}
	return dto
}

func toAlertDTOs(alerts []alerting.AlertEntry) []AlertDTO {
	dtos := make([]AlertDTO, len(alerts))
	for i, a := range alerts {
		dtos[i] = toAlertDTO(a)
	}
	return dtos
}

func toAlertsResponse(snap Snapshot) AlertsResponse {
	parts := alerting.PartitionByPriority(snap.Alerts)
	return AlertsResponse{
		EvaluatedAt: formatStamp(snap.EvaluatedAt),
		Total:       len(snap.Alerts),
		Critical:    toAlertDTOs(parts[alerting.PriorityCritical]),
		High:        toAlertDTOs(parts[alerting.PriorityHigh]),
		Medium:      toAlertDTOs(parts[alerting.PriorityMedium]),
		Low:         toAlertDTOs(parts[alerting.PriorityLow]),
	}
}

func toConflictDTO(g alerting.DateConflictGroup, summary string, loc *time.Location) ConflictDTO {
	dto := ConflictDTO{
		Date:    g.Date.String(),
		Summary: summary,
		Clients: make([]ClientSummaryDTO, len(g.Clients)),
	}
	for i, c := range g.Clients {
		dto.Clients[i] = ClientSummaryDTO{
			ID:        c.ID,
			Name:      c.DisplayName,
			EventDate: c.EventDate.In(loc).Format(time.RFC3339),
			Venue:     c.Venue,
		}
	}
	return dto
}

func toMovementDTO(m accounting.Movement, loc *time.Location) MovementDTO {
	return MovementDTO{
		ID:        m.ID,
		Concept:   m.Concept,
		Amount:    m.Amount,
		Category:  m.Category,
		Date:      formatDay(m.Date, loc),
		Kind:      string(m.Kind),
		Recurring: m.Recurring,
		Month:     m.Month,
		Notes:     m.Notes,
	}
}

func toMovementDTOs(list []accounting.Movement, loc *time.Location) []MovementDTO {
	dtos := make([]MovementDTO, len(list))
	for i, m := range list {
		dtos[i] = toMovementDTO(m, loc)
	}
	return dtos
}

func (req MovementRequest) toMovement(loc *time.Location) (accounting.Movement, error) {
	date, err := parseDay(req.Date, loc)
	if err != nil {
		return accounting.Movement{}, fmt.Errorf("%w: invalid date %q", accounting.ErrInvalidMovement, req.Date)
	}
	return accounting.Movement{
		Concept:   req.Concept,
		Amount:    req.Amount,
		Category:  req.Category,
		Date:      date,
		Kind:      accounting.Kind(req.Kind),
		Recurring: req.Recurring,
		Notes:     req.Notes,
	}, nil
}
