/*
Package clients owns the client collection: validation, identity and the
queries the dashboard runs over it.

PURPOSE:
  Service is the only writer of ClientRecords. It assigns IDs, stamps
  timestamps, validates input and notifies an optional OnChange hook after
  every successful mutation so the alert cycle can re-run.

STORAGE:
  Repository is satisfied by store/sqlite.Store (production) and
  store/memory.Clients (tests, dev). Get returns (nil, nil) for an unknown
  ID; the service turns that into ErrClientNotFound.

SEE ALSO:
  - model/client.go: ClientRecord
  - api/scheduler.go: Trigger, wired as OnChange
*/
package clients

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/eventdesk/alerting"
	"github.com/warp/eventdesk/model"
)

// Repository persists client records.
type Repository interface {
	List(ctx context.Context) ([]model.ClientRecord, error)
	Get(ctx context.Context, id string) (*model.ClientRecord, error)
	Save(ctx context.Context, rec model.ClientRecord) error
	Delete(ctx context.Context, id string) error
}

// StatusAll disables status filtering.
const StatusAll = "all"

// Service implements client operations on top of a Repository.
type Service struct {
	repo     Repository
	location *time.Location

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time

	// OnChange runs after every successful create, update or delete.
	OnChange func()
}

// NewService creates a service. loc is the zone used by OnDate (nil = UTC).
func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, location: loc, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) changed() {
	if s.OnChange != nil {
		s.OnChange()
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create validates rec, assigns a new ID and stores it.
func (s *Service) Create(ctx context.Context, rec model.ClientRecord) (model.ClientRecord, error) {
	normalize(&rec)
	if err := Validate(rec); err != nil {
		return model.ClientRecord{}, err
	}

	now := s.now()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := s.repo.Save(ctx, rec); err != nil {
		return model.ClientRecord{}, fmt.Errorf("failed to save client: %w", err)
	}
	s.changed()
	return rec, nil
}

// Update replaces the stored record with id. CreatedAt is preserved.
func (s *Service) Update(ctx context.Context, id string, rec model.ClientRecord) (model.ClientRecord, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return model.ClientRecord{}, err
	}

	normalize(&rec)
	if err := Validate(rec); err != nil {
		return model.ClientRecord{}, err
	}

	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = s.now()

	if err := s.repo.Save(ctx, rec); err != nil {
		return model.ClientRecord{}, fmt.Errorf("failed to save client: %w", err)
	}
	s.changed()
	return rec, nil
}

// Delete removes the client with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	s.changed()
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns one client or ErrClientNotFound.
func (s *Service) Get(ctx context.Context, id string) (model.ClientRecord, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.ClientRecord{}, fmt.Errorf("failed to load client %s: %w", id, err)
	}
	if rec == nil {
		return model.ClientRecord{}, fmt.Errorf("%w: %s", ErrClientNotFound, id)
	}
	return *rec, nil
}

// List returns every client ordered by event date (undated last), then name.
func (s *Service) List(ctx context.Context) ([]model.ClientRecord, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.HasEventDate() != b.HasEventDate() {
			return a.HasEventDate()
		}
		if !a.EventDate.Equal(b.EventDate) {
			return a.EventDate.Before(b.EventDate)
		}
		return a.DisplayName < b.DisplayName
	})
	if list == nil {
		list = []model.ClientRecord{}
	}
	return list, nil
}

// Search matches term case-insensitively against name, city, venue and
// email. A blank term returns everything.
func Search(list []model.ClientRecord, term string) []model.ClientRecord {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return list
	}
	out := make([]model.ClientRecord, 0)
	for _, c := range list {
		if strings.Contains(strings.ToLower(c.DisplayName), term) ||
			strings.Contains(strings.ToLower(c.City), term) ||
			strings.Contains(strings.ToLower(c.Venue), term) ||
			strings.Contains(strings.ToLower(c.Email), term) {
			out = append(out, c)
		}
	}
	return out
}

// FilterByStatus keeps clients with the given status; StatusAll or "" keeps
// everything.
func FilterByStatus(list []model.ClientRecord, status string) []model.ClientRecord {
	if status == "" || status == StatusAll {
		return list
	}
	out := make([]model.ClientRecord, 0)
	for _, c := range list {
		if string(c.Status) == status {
			out = append(out, c)
		}
	}
	return out
}

// OnDate keeps clients whose event falls on day, in loc.
func OnDate(list []model.ClientRecord, day alerting.Day, loc *time.Location) []model.ClientRecord {
	out := make([]model.ClientRecord, 0)
	for _, c := range list {
		if c.HasEventDate() && alerting.DayOf(c.EventDate, loc).Equal(day) {
			out = append(out, c)
		}
	}
	return out
}

// Query bundles the list filters of the client listing.
type Query struct {
	Term   string
	Status string
	Day    alerting.Day
}

// Find lists clients and applies q.
func (s *Service) Find(ctx context.Context, q Query) ([]model.ClientRecord, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	list = Search(list, q.Term)
	list = FilterByStatus(list, q.Status)
	if !q.Day.IsZero() {
		list = OnDate(list, q.Day, s.location)
	}
	return list, nil
}

// =============================================================================
// STATS
// =============================================================================

// Stats summarises the collection for the dashboard header.
type Stats struct {
	Total      int
	Potential  int
	Confirmed  int
	InProgress int
	Completed  int
	Cancelled  int

	TotalRevenue     decimal.Decimal
	CollectedRevenue decimal.Decimal
	PendingRevenue   decimal.Decimal
}

// ComputeStats counts clients per status and sums revenue.
func ComputeStats(list []model.ClientRecord) Stats {
	st := Stats{
		Total:            len(list),
		TotalRevenue:     decimal.Zero,
		CollectedRevenue: decimal.Zero,
	}
	for _, c := range list {
		switch c.Status {
		case model.StatusPotential:
			st.Potential++
		case model.StatusConfirmed:
			st.Confirmed++
		case model.StatusInProgress:
			st.InProgress++
		case model.StatusCompleted:
			st.Completed++
		case model.StatusCancelled:
			st.Cancelled++
		}
		st.TotalRevenue = st.TotalRevenue.Add(c.TotalAmount)
		st.CollectedRevenue = st.CollectedRevenue.Add(c.PaidAmount)
	}
	st.PendingRevenue = st.TotalRevenue.Sub(st.CollectedRevenue)
	return st
}

// Stats computes Stats over the stored clients.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	list, err := s.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(list), nil
}

// =============================================================================
// VALIDATION
// =============================================================================

func normalize(rec *model.ClientRecord) {
	rec.DisplayName = strings.TrimSpace(rec.DisplayName)
	rec.Email = strings.TrimSpace(rec.Email)
	if rec.Status == "" {
		rec.Status = model.StatusPotential
	}
	// Unnumbered installments continue after the highest explicit number.
	next := 0
	for _, inst := range rec.Installments {
		if inst.Number > next {
			next = inst.Number
		}
	}
	for i := range rec.Installments {
		if rec.Installments[i].Status == "" {
			rec.Installments[i].Status = model.InstallmentPending
		}
		if rec.Installments[i].Number == 0 {
			next++
			rec.Installments[i].Number = next
		}
	}
}

// Validate checks a client record before it is stored.
func Validate(rec model.ClientRecord) error {
	if rec.DisplayName == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if !rec.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("%q is not a known status", rec.Status)}
	}
	if rec.TotalAmount.IsNegative() || rec.PaidAmount.IsNegative() {
		return &ValidationError{Field: "amount", Message: "must not be negative"}
	}
	seen := make(map[int]bool, len(rec.Installments))
	for _, inst := range rec.Installments {
		if inst.Number < 0 {
			return &ValidationError{Field: "installments", Message: fmt.Sprintf("installment number %d must be positive", inst.Number)}
		}
		if seen[inst.Number] {
			return &ValidationError{Field: "installments", Message: fmt.Sprintf("installment number %d is used twice", inst.Number)}
		}
		seen[inst.Number] = true
		if !inst.Status.Valid() {
			return &ValidationError{Field: "installments", Message: fmt.Sprintf("installment %d has unknown status %q", inst.Number, inst.Status)}
		}
		if inst.Amount.IsNegative() {
			return &ValidationError{Field: "installments", Message: fmt.Sprintf("installment %d has a negative amount", inst.Number)}
		}
	}
	return nil
}
