/*
Package model defines the records shared by the alerting core, the client
service and the stores.

PURPOSE:
  ClientRecord is the tracked customer/event entity of the dashboard: one
  anchor event date, a venue, a payment schedule and per-client alert
  switches. It is owned by the client collection (clients.Repository);
  everything downstream treats it as read-only input.

ABSENT VALUES:
  - EventDate.IsZero()      -> the client is not schedulable
  - AlertSettings == nil    -> every alert switch is off
  - Installment.DueDate.IsZero() -> the installment is ignored

MONEY:
  Amounts use decimal.Decimal, same as ledger amounts elsewhere, so totals
  never drift through float rounding.

SEE ALSO:
  - alerting/alerts.go: consumes ClientRecord
  - clients/service.go: validates and mutates ClientRecord
  - store/sqlite/sqlite.go: persists ClientRecord
*/
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CLIENT RECORD
// =============================================================================

// ClientRecord is one customer with its single anchor event.
type ClientRecord struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`

	// EventDate is the wedding/event date and time. Zero means absent.
	EventDate time.Time `json:"event_date"`
	Venue     string    `json:"venue,omitempty"`
	City      string    `json:"city,omitempty"`

	Service       ServiceKind  `json:"service,omitempty"`
	PaymentMethod string       `json:"payment_method,omitempty"`
	Status        ClientStatus `json:"status"`

	TotalAmount decimal.Decimal `json:"total_amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`

	SpecialRequests string `json:"special_requests,omitempty"`
	Notes           string `json:"notes,omitempty"`

	AlertSettings *AlertSettings `json:"alert_settings,omitempty"`
	Installments  []Installment  `json:"installments"`
	Reminders     []Reminder     `json:"reminders"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasEventDate reports whether the record can be placed on a calendar.
func (c ClientRecord) HasEventDate() bool { return !c.EventDate.IsZero() }

// SevenDayAlertEnabled is false when AlertSettings is absent.
func (c ClientRecord) SevenDayAlertEnabled() bool {
	return c.AlertSettings != nil && c.AlertSettings.SevenDayAlert
}

// PaymentAlertEnabled is false when AlertSettings is absent.
func (c ClientRecord) PaymentAlertEnabled() bool {
	return c.AlertSettings != nil && c.AlertSettings.PaymentAlert
}

// PendingBalance is TotalAmount minus PaidAmount.
func (c ClientRecord) PendingBalance() decimal.Decimal {
	return c.TotalAmount.Sub(c.PaidAmount)
}

// AlertSettings holds the two independent alert switches of a client.
type AlertSettings struct {
	SevenDayAlert bool `json:"seven_day_alert"`
	PaymentAlert  bool `json:"payment_alert"`
}

// =============================================================================
// PAYMENT SCHEDULE
// =============================================================================

// Installment is one scheduled partial payment.
type Installment struct {
	Number  int               `json:"number"`
	Amount  decimal.Decimal   `json:"amount"`
	DueDate time.Time         `json:"due_date"`
	Status  InstallmentStatus `json:"status"`
	Method  string            `json:"method,omitempty"`
	Concept string            `json:"concept,omitempty"`
}

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

// Valid reports whether s is one of the known statuses.
func (s InstallmentStatus) Valid() bool {
	switch s {
	case InstallmentPending, InstallmentPaid, InstallmentOverdue:
		return true
	}
	return false
}

// Reminder is a one-off dated note attached to a client.
type Reminder struct {
	Date    time.Time `json:"date"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
}

// =============================================================================
// ENUMERATIONS
// =============================================================================

// ClientStatus tracks a client through the lead-to-contract pipeline.
type ClientStatus string

const (
	StatusPotential  ClientStatus = "potential"
	StatusConfirmed  ClientStatus = "confirmed"
	StatusInProgress ClientStatus = "in_progress"
	StatusCompleted  ClientStatus = "completed"
	StatusCancelled  ClientStatus = "cancelled"
)

// AllStatuses lists statuses in pipeline order.
var AllStatuses = []ClientStatus{
	StatusPotential, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled,
}

func (s ClientStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ServiceKind is the contracted product.
type ServiceKind string

const (
	ServicePhotography      ServiceKind = "photography"
	ServiceVideo            ServiceKind = "video"
	ServicePhotographyVideo ServiceKind = "photography_video"
	ServiceAlbum            ServiceKind = "album"
	ServiceFullPackage      ServiceKind = "full_package"
)
