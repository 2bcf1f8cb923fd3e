/*
scenarios.go - Demo data loaders

PURPOSE:
  Populates the store with a realistic client book so the dashboard can be
  explored without typing data in. Dates are relative to "now" so every
  alert kind shows up whenever the scenario is loaded.

AVAILABLE SCENARIOS:
  empty:         Clears everything
  busy-season:   Weddings with a double-booked day, an event in exactly
                 7 days, one today, overdue and due-soon installments
  bookkeeping:   busy-season plus two months of income and expenses

HOW SCENARIOS WORK:
  1. Reset the store (clear all data)
  2. Create clients through clients.Service (IDs, validation, OnChange)
  3. Create movements through accounting.Service
  4. Re-evaluate alerts

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "busy-season"}

NOTE:
  Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - cmd/eventdesk/report.go: seed command, same loaders from the CLI
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/eventdesk/accounting"
	"github.com/warp/eventdesk/alerting"
	"github.com/warp/eventdesk/model"
)

// ErrUnknownScenario is returned for an unrecognised scenario ID.
var ErrUnknownScenario = errors.New("unknown scenario")

// Resetter wipes the store.
type Resetter interface {
	Reset(ctx context.Context) error
}

// ScenarioDTO describes a loadable scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "empty",
		Name:        "Empty",
		Description: "No clients, no movements",
	},
	{
		ID:          "busy-season",
		Name:        "Busy Season",
		Description: "Double-booked Saturday, 7-day and same-day events, overdue and due-soon installments",
	},
	{
		ID:          "bookkeeping",
		Name:        "Bookkeeping",
		Description: "Busy season plus two months of income and expenses",
	},
}

// Scenarios lists the available scenarios.
func Scenarios() []ScenarioDTO {
	out := make([]ScenarioDTO, len(scenarios))
	copy(out, scenarios)
	return out
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.LoadScenarioByID(r.Context(), req.ScenarioID)
	switch {
	case errors.Is(err, ErrUnknownScenario):
		writeError(w, http.StatusBadRequest, "Unknown scenario", err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears every table.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.Scheduler.Evaluate(r.Context(), h.now())
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// LoadScenarioByID resets the store, loads scenario id and re-evaluates
// alerts.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	var load func(context.Context) error
	switch id {
	case "empty":
		load = func(context.Context) error { return nil }
	case "busy-season":
		load = h.loadBusySeason
	case "bookkeeping":
		load = func(ctx context.Context) error {
			if err := h.loadBusySeason(ctx); err != nil {
				return err
			}
			return h.loadBookkeeping(ctx)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}

	if err := h.reset(ctx); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	if err := load(ctx); err != nil {
		return err
	}
	h.Scheduler.Evaluate(ctx, h.now())
	return nil
}

func (h *Handler) reset(ctx context.Context) error {
	if h.Resetter == nil {
		return errors.New("store does not support reset")
	}
	return h.Resetter.Reset(ctx)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadBusySeason(ctx context.Context) error {
	today := alerting.DayOf(h.now(), h.Location)
	at := func(days, hour int) time.Time {
		return today.AddDays(days).Start(h.Location).Add(time.Duration(hour) * time.Hour)
	}
	on := func(days int) time.Time { return today.AddDays(days).Start(h.Location) }
	alertsOn := &model.AlertSettings{SevenDayAlert: true, PaymentAlert: true}

	records := []model.ClientRecord{
		{
			DisplayName:   "Lucía & Marcos",
			Email:         "lucia.marcos@example.com",
			Phone:         "+34 611 222 333",
			EventDate:     at(7, 17),
			Venue:         "Finca El Olivar",
			City:          "Sevilla",
			Service:       model.ServiceFullPackage,
			Status:        model.StatusConfirmed,
			TotalAmount:   decimal.NewFromInt(3200),
			PaidAmount:    decimal.NewFromInt(1600),
			AlertSettings: alertsOn,
			Installments: []model.Installment{
				{Number: 1, Amount: decimal.NewFromInt(1600), DueDate: on(-60), Status: model.InstallmentPaid, Concept: "Deposit"},
				{Number: 2, Amount: decimal.NewFromInt(1600), DueDate: on(-2), Status: model.InstallmentPending, Concept: "Balance"},
			},
			Reminders: []model.Reminder{
				{Date: on(3), Kind: "call", Message: "Confirm the shot list"},
			},
		},
		{
			DisplayName:   "Carmen & Javier",
			Email:         "carmen.javier@example.com",
			EventDate:     at(7, 12),
			Venue:         "Hacienda San Rafael",
			City:          "Sevilla",
			Service:       model.ServicePhotography,
			Status:        model.StatusConfirmed,
			TotalAmount:   decimal.NewFromInt(1800),
			PaidAmount:    decimal.NewFromInt(900),
			AlertSettings: alertsOn,
			Installments: []model.Installment{
				{Number: 1, Amount: decimal.NewFromInt(900), DueDate: on(-30), Status: model.InstallmentPaid},
				{Number: 2, Amount: decimal.NewFromInt(900), DueDate: on(2), Status: model.InstallmentPending},
			},
		},
		{
			DisplayName:   "Elena & Pablo",
			Email:         "elena.pablo@example.com",
			EventDate:     at(0, 18),
			Venue:         "Palacio de Villapanés",
			City:          "Sevilla",
			Service:       model.ServicePhotographyVideo,
			Status:        model.StatusInProgress,
			TotalAmount:   decimal.NewFromInt(4500),
			PaidAmount:    decimal.NewFromInt(4500),
			AlertSettings: alertsOn,
			Reminders: []model.Reminder{
				{Date: on(0), Kind: "prep", Message: "Charge batteries"},
			},
		},
		{
			DisplayName: "Sofía & Daniel",
			Email:       "sofia.daniel@example.com",
			EventDate:   at(45, 13),
			Venue:       "Cortijo de Ducha",
			City:        "Córdoba",
			Service:     model.ServiceVideo,
			Status:      model.StatusPotential,
			TotalAmount: decimal.NewFromInt(2100),
			AlertSettings: &model.AlertSettings{
				SevenDayAlert: true,
				PaymentAlert:  false,
			},
			Installments: []model.Installment{
				{Number: 1, Amount: decimal.NewFromInt(700), DueDate: on(0), Status: model.InstallmentPending},
			},
		},
		{
			DisplayName: "Laura (lead)",
			Email:       "laura@example.com",
			Status:      model.StatusPotential,
			Notes:       "Asked for a quote, no date yet",
		},
	}

	for _, rec := range records {
		if _, err := h.Clients.Create(ctx, rec); err != nil {
			return fmt.Errorf("failed to create %s: %w", rec.DisplayName, err)
		}
	}
	return nil
}

func (h *Handler) loadBookkeeping(ctx context.Context) error {
	today := alerting.DayOf(h.now(), h.Location)
	thisMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, h.Location)
	lastMonth := thisMonth.AddDate(0, -1, 0)

	movements := []accounting.Movement{
		{Concept: "Deposit Lucía & Marcos", Amount: decimal.NewFromInt(1600), Category: "weddings", Date: lastMonth.AddDate(0, 0, 4), Kind: accounting.KindIncome},
		{Concept: "Studio rent", Amount: decimal.NewFromInt(650), Category: "rent", Date: lastMonth, Kind: accounting.KindExpense, Recurring: true},
		{Concept: "Lens repair", Amount: decimal.RequireFromString("189.90"), Category: "equipment", Date: lastMonth.AddDate(0, 0, 12), Kind: accounting.KindExpense},
		{Concept: "Final payment Elena & Pablo", Amount: decimal.NewFromInt(2250), Category: "weddings", Date: thisMonth.AddDate(0, 0, 1), Kind: accounting.KindIncome},
		{Concept: "Studio rent", Amount: decimal.NewFromInt(650), Category: "rent", Date: thisMonth, Kind: accounting.KindExpense, Recurring: true},
		{Concept: "Album printing", Amount: decimal.RequireFromString("320.50"), Category: "suppliers", Date: thisMonth.AddDate(0, 0, 2), Kind: accounting.KindExpense},
	}

	for _, m := range movements {
		if _, err := h.Accounting.Create(ctx, m); err != nil {
			return fmt.Errorf("failed to create movement %s: %w", m.Concept, err)
		}
	}
	return nil
}
