/*
Package calls tracks the phone/video calls booked with prospective and
current clients.

PURPOSE:
  Calls arrive either by hand or from a Calendly booking (IngestCalendly).
  A booked call is mirrored into the studio calendar as an Outlook event:
  SyncOutlook composes the event link and records the Outlook event ID on
  the call so the dashboard can show it as synced.

CALENDLY:
  A booking is identified by its Calendly event UUID. Delivering the same
  booking twice returns the stored call instead of creating a duplicate.

SEE ALSO:
  - integrations/outlook.go: SlotLink
  - api/handlers_studio.go: /api/calls
*/
package calls

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/eventdesk/integrations"
)

// DefaultDuration applies when a call has no duration.
const DefaultDuration = 30

var (
	ErrCallNotFound = errors.New("call not found")
	ErrInvalidCall  = errors.New("invalid call")
)

type Kind string

const (
	KindInitialConsultation Kind = "initial_consultation"
	KindFollowUp            Kind = "follow_up"
	KindProposalReview      Kind = "proposal_review"
	KindCoordination        Kind = "coordination"
)

func (k Kind) Valid() bool {
	switch k {
	case KindInitialConsultation, KindFollowUp, KindProposalReview, KindCoordination:
		return true
	}
	return false
}

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoAnswer  Status = "no_answer"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoAnswer:
		return true
	}
	return false
}

// Call is one booked conversation.
type Call struct {
	ID              string    `json:"id"`
	ClientName      string    `json:"client_name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Kind            Kind      `json:"kind"`
	Status          Status    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	CalendlyEventID string    `json:"calendly_event_id,omitempty"`
	OutlookEventID  string    `json:"outlook_event_id,omitempty"`
	ReminderSent    bool      `json:"reminder_sent"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// End is the scheduled end of the call.
func (c Call) End() time.Time {
	return c.ScheduledAt.Add(time.Duration(c.DurationMinutes) * time.Minute)
}

// Upcoming keeps the still-scheduled calls starting after now, soonest first.
func Upcoming(list []Call, now time.Time) []Call {
	out := make([]Call, 0, len(list))
	for _, c := range list {
		if c.Status == StatusScheduled && c.ScheduledAt.After(now) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

// =============================================================================
// CALENDLY PAYLOAD
// =============================================================================

// CalendlyEvent is the part of a Calendly booking notification we read.
type CalendlyEvent struct {
	Invitee CalendlyInvitee `json:"invitee"`
	Event   CalendlyDetails `json:"event"`
}

type CalendlyInvitee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type CalendlyDetails struct {
	UUID      string            `json:"uuid"`
	StartTime time.Time         `json:"start_time"`
	Duration  int               `json:"duration"`
	EventType CalendlyEventType `json:"event_type"`
}

type CalendlyEventType struct {
	Name string `json:"name"`
}

// Call converts the booking into a new scheduled initial consultation.
func (e CalendlyEvent) Call() Call {
	notes := "Booked through Calendly"
	if e.Event.EventType.Name != "" {
		notes += " - " + e.Event.EventType.Name
	}
	return Call{
		ClientName:      e.Invitee.Name,
		Email:           e.Invitee.Email,
		Phone:           e.Invitee.Phone,
		ScheduledAt:     e.Event.StartTime,
		DurationMinutes: e.Event.Duration,
		Kind:            KindInitialConsultation,
		Status:          StatusScheduled,
		Notes:           notes,
		CalendlyEventID: e.Event.UUID,
	}
}

// =============================================================================
// SERVICE
// =============================================================================

// Repository persists calls. GetCall returns (nil, nil) for an unknown ID.
type Repository interface {
	ListCalls(ctx context.Context) ([]Call, error)
	GetCall(ctx context.Context, id string) (*Call, error)
	SaveCall(ctx context.Context, c Call) error
	DeleteCall(ctx context.Context, id string) error
}

// SlotComposer builds a calendar link for a free-form slot.
type SlotComposer interface {
	SlotLink(s integrations.Slot) (string, error)
}

type Service struct {
	repo Repository

	// Composer is optional; without it SyncOutlook fails with
	// integrations.ErrComposerNotConfigured.
	Composer SlotComposer
	Now      func() time.Time
}

func NewService(repo Repository, composer SlotComposer) *Service {
	return &Service{repo: repo, Composer: composer, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func validate(c *Call) error {
	c.ClientName = strings.TrimSpace(c.ClientName)
	c.Email = strings.TrimSpace(c.Email)
	if c.ClientName == "" {
		return fmt.Errorf("%w: client name is required", ErrInvalidCall)
	}
	if c.Email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidCall)
	}
	if c.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduled_at is required", ErrInvalidCall)
	}
	if c.DurationMinutes < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrInvalidCall)
	}
	if c.DurationMinutes == 0 {
		c.DurationMinutes = DefaultDuration
	}
	if c.Kind == "" {
		c.Kind = KindInitialConsultation
	}
	if c.Status == "" {
		c.Status = StatusScheduled
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCall, c.Kind)
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidCall, c.Status)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, c Call) (Call, error) {
	if err := validate(&c); err != nil {
		return Call{}, err
	}
	now := s.now()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now
	if err := s.repo.SaveCall(ctx, c); err != nil {
		return Call{}, fmt.Errorf("failed to save call: %w", err)
	}
	return c, nil
}

// Update replaces call id. The Calendly and Outlook IDs are kept from the
// stored call when the update leaves them empty.
func (s *Service) Update(ctx context.Context, id string, c Call) (Call, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return Call{}, err
	}
	if err := validate(&c); err != nil {
		return Call{}, err
	}
	c.ID = id
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = s.now()
	if c.CalendlyEventID == "" {
		c.CalendlyEventID = existing.CalendlyEventID
	}
	if c.OutlookEventID == "" {
		c.OutlookEventID = existing.OutlookEventID
	}
	if err := s.repo.SaveCall(ctx, c); err != nil {
		return Call{}, fmt.Errorf("failed to save call: %w", err)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (Call, error) {
	c, err := s.repo.GetCall(ctx, id)
	if err != nil {
		return Call{}, err
	}
	if c == nil {
		return Call{}, fmt.Errorf("%w: %s", ErrCallNotFound, id)
	}
	return *c, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteCall(ctx, id)
}

// List returns every call, soonest first.
func (s *Service) List(ctx context.Context) ([]Call, error) {
	list, err := s.repo.ListCalls(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Call{}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].ScheduledAt.Before(list[j].ScheduledAt) })
	return list, nil
}

// Upcoming lists the scheduled calls still ahead of now.
func (s *Service) Upcoming(ctx context.Context, now time.Time) ([]Call, error) {
	list, err := s.repo.ListCalls(ctx)
	if err != nil {
		return nil, err
	}
	return Upcoming(list, now), nil
}

// SyncOutlook composes the Outlook event for call id and records its event
// ID on the call.
func (s *Service) SyncOutlook(ctx context.Context, id string) (Call, string, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return Call{}, "", err
	}
	if s.Composer == nil {
		return Call{}, "", integrations.ErrComposerNotConfigured
	}

	link, err := s.Composer.SlotLink(slotFor(c))
	if err != nil {
		return Call{}, "", err
	}

	now := s.now()
	c.OutlookEventID = fmt.Sprintf("OUTLOOK_%d", now.UnixMilli())
	c.UpdatedAt = now
	if err := s.repo.SaveCall(ctx, c); err != nil {
		return Call{}, "", fmt.Errorf("failed to save call: %w", err)
	}
	return c, link, nil
}

// IngestCalendly stores a Calendly booking and mirrors it into Outlook.
// When no composer is configured the call is stored unsynced and the link
// is empty.
func (s *Service) IngestCalendly(ctx context.Context, ev CalendlyEvent) (Call, string, error) {
	if ev.Event.UUID != "" {
		all, err := s.repo.ListCalls(ctx)
		if err != nil {
			return Call{}, "", err
		}
		for _, c := range all {
			if c.CalendlyEventID == ev.Event.UUID {
				return c, "", nil
			}
		}
	}

	created, err := s.Create(ctx, ev.Call())
	if err != nil {
		return Call{}, "", err
	}

	synced, link, err := s.SyncOutlook(ctx, created.ID)
	if errors.Is(err, integrations.ErrComposerNotConfigured) {
		return created, "", nil
	}
	if err != nil {
		return created, "", err
	}
	return synced, link, nil
}

func slotFor(c Call) integrations.Slot {
	phone := c.Phone
	if phone == "" {
		phone = "not provided"
	}
	notes := c.Notes
	if notes == "" {
		notes = "no additional notes"
	}
	return integrations.Slot{
		Subject:  "Call with " + c.ClientName,
		Body:     strings.Join([]string{"Type: " + string(c.Kind), "Phone: " + phone, "Notes: " + notes}, "\n"),
		Attendee: c.Email,
		Start:    c.ScheduledAt,
		Duration: c.End().Sub(c.ScheduledAt),
	}
}
