/*
Package accounting is the studio's income/expense book.

Movements are grouped by month ("YYYY-MM"). A monthly summary is a pure
fold over one month's movements; amounts are decimal so totals are exact.
*/
package accounting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MonthLayout is the canonical month key.
const MonthLayout = "2006-01"

var (
	ErrMovementNotFound = errors.New("movement not found")
	ErrInvalidMovement  = errors.New("invalid movement")
	ErrInvalidMonth     = errors.New("invalid month, expected YYYY-MM")
)

type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Movement is one ledger line.
type Movement struct {
	ID        string          `json:"id"`
	Concept   string          `json:"concept"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category,omitempty"`
	Date      time.Time       `json:"date"`
	Kind      Kind            `json:"kind"`
	Recurring bool            `json:"recurring"`
	Month     string          `json:"month"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MonthlySummary totals one month.
type MonthlySummary struct {
	Month         string
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	Profit        decimal.Decimal
	Movements     []Movement
}

// Summarize totals the movements belonging to month. Movements of other
// months are ignored.
func Summarize(month string, movements []Movement) MonthlySummary {
	sum := MonthlySummary{
		Month:         month,
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		Movements:     make([]Movement, 0),
	}
	for _, m := range movements {
		if m.Month != month {
			continue
		}
		switch m.Kind {
		case KindIncome:
			sum.TotalIncome = sum.TotalIncome.Add(m.Amount)
		case KindExpense:
			sum.TotalExpenses = sum.TotalExpenses.Add(m.Amount)
		}
		sum.Movements = append(sum.Movements, m)
	}
	sort.SliceStable(sum.Movements, func(i, j int) bool {
		return sum.Movements[i].Date.Before(sum.Movements[j].Date)
	})
	sum.Profit = sum.TotalIncome.Sub(sum.TotalExpenses)
	return sum
}

// MonthOf returns the month key of t.
func MonthOf(t time.Time) string { return t.Format(MonthLayout) }

// ParseMonth validates a month key.
func ParseMonth(s string) (string, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return t.Format(MonthLayout), nil
}

// =============================================================================
// SERVICE
// =============================================================================

// Repository persists movements. GetMovement returns (nil, nil) when the ID
// is unknown. An empty month lists everything.
type Repository interface {
	ListMovements(ctx context.Context, month string) ([]Movement, error)
	GetMovement(ctx context.Context, id string) (*Movement, error)
	SaveMovement(ctx context.Context, m Movement) error
	DeleteMovement(ctx context.Context, id string) error
}

type Service struct {
	repo Repository
	Now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func validate(m *Movement) error {
	m.Concept = strings.TrimSpace(m.Concept)
	if m.Concept == "" {
		return fmt.Errorf("%w: concept is required", ErrInvalidMovement)
	}
	if m.Kind != KindIncome && m.Kind != KindExpense {
		return fmt.Errorf("%w: kind must be income or expense", ErrInvalidMovement)
	}
	if !m.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidMovement)
	}
	if m.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidMovement)
	}
	m.Month = MonthOf(m.Date)
	return nil
}

// Create stores a new movement. Month is derived from Date.
func (s *Service) Create(ctx context.Context, m Movement) (Movement, error) {
	if err := validate(&m); err != nil {
		return Movement{}, err
	}
	now := s.now()
	m.ID = uuid.NewString()
	m.CreatedAt, m.UpdatedAt = now, now
	if err := s.repo.SaveMovement(ctx, m); err != nil {
		return Movement{}, fmt.Errorf("failed to save movement: %w", err)
	}
	return m, nil
}

// Update replaces movement id.
func (s *Service) Update(ctx context.Context, id string, m Movement) (Movement, error) {
	existing, err := s.repo.GetMovement(ctx, id)
	if err != nil {
		return Movement{}, err
	}
	if existing == nil {
		return Movement{}, fmt.Errorf("%w: %s", ErrMovementNotFound, id)
	}
	if err := validate(&m); err != nil {
		return Movement{}, err
	}
	m.ID = id
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = s.now()
	if err := s.repo.SaveMovement(ctx, m); err != nil {
		return Movement{}, fmt.Errorf("failed to save movement: %w", err)
	}
	return m, nil
}

// Delete removes movement id.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.GetMovement(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: %s", ErrMovementNotFound, id)
	}
	return s.repo.DeleteMovement(ctx, id)
}

// List returns the movements of month ("" = all).
func (s *Service) List(ctx context.Context, month string) ([]Movement, error) {
	list, err := s.repo.ListMovements(ctx, month)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Movement{}
	}
	return list, nil
}

// Summary loads and summarises one month.
func (s *Service) Summary(ctx context.Context, month string) (MonthlySummary, error) {
	month, err := ParseMonth(month)
	if err != nil {
		return MonthlySummary{}, err
	}
	list, err := s.repo.ListMovements(ctx, month)
	if err != nil {
		return MonthlySummary{}, err
	}
	return Summarize(month, list), nil
}
