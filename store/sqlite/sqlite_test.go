package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/eventdesk/accounting"
	"github.com/warp/eventdesk/model"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleClient(id string) model.ClientRecord {
	created := time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)
	return model.ClientRecord{
		ID:            id,
		DisplayName:   "Ana & Luis",
		Email:         "ana@example.com",
		EventDate:     time.Date(2025, time.June, 14, 17, 0, 0, 0, time.UTC),
		Venue:         "Finca El Olivar",
		City:          "Sevilla",
		Service:       model.ServicePhotographyVideo,
		PaymentMethod: "transfer",
		Status:        model.StatusConfirmed,
		TotalAmount:   decimal.RequireFromString("3200.00"),
		PaidAmount:    decimal.RequireFromString("800.50"),
		AlertSettings: &model.AlertSettings{SevenDayAlert: true, PaymentAlert: false},
		Installments: []model.Installment{
			{Number: 1, Amount: decimal.NewFromInt(800), DueDate: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), Status: model.InstallmentPaid, Method: "transfer", Concept: "Deposit"},
			{Number: 2, Amount: decimal.NewFromInt(1200), DueDate: time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), Status: model.InstallmentPending},
		},
		Reminders: []model.Reminder{
			{Date: time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC), Kind: "call", Message: "Confirm timeline"},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestClients_SaveGetRoundTrip(t *testing.T) {
	// GIVEN: A fully populated client
	store := newStore(t)
	ctx := context.Background()
	rec := sampleClient("c1")

	// WHEN: Saving and reading back
	require.NoError(t, store.Save(ctx, rec))
	got, err := store.Get(ctx, "c1")

	// THEN: Every field survives, including the schedule
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.DisplayName, got.DisplayName)
	assert.True(t, rec.EventDate.Equal(got.EventDate))
	assert.True(t, rec.TotalAmount.Equal(got.TotalAmount))
	assert.True(t, rec.PaidAmount.Equal(got.PaidAmount))
	assert.Equal(t, rec.Status, got.Status)
	assert.Equal(t, rec.Service, got.Service)
	require.NotNil(t, got.AlertSettings)
	assert.Equal(t, *rec.AlertSettings, *got.AlertSettings)

	require.Len(t, got.Installments, 2)
	assert.Equal(t, model.InstallmentPaid, got.Installments[0].Status)
	assert.Equal(t, "Deposit", got.Installments[0].Concept)
	assert.True(t, decimal.NewFromInt(1200).Equal(got.Installments[1].Amount))

	require.Len(t, got.Reminders, 1)
	assert.Equal(t, "Confirm timeline", got.Reminders[0].Message)
}

func TestClients_GetMissingReturnsNil(t *testing.T) {
	store := newStore(t)
	got, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClients_AbsentValuesStayAbsent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := model.ClientRecord{ID: "bare", DisplayName: "Bare", Status: model.StatusPotential}
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, "bare")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.EventDate.IsZero())
	assert.Nil(t, got.AlertSettings)
	assert.Empty(t, got.Installments)
	assert.True(t, got.TotalAmount.IsZero())
}

func TestClients_UpdateReplacesSchedule(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := sampleClient("c1")
	require.NoError(t, store.Save(ctx, rec))

	rec.Installments = rec.Installments[:1]
	rec.Reminders = nil
	rec.Venue = "Hacienda"
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Hacienda", got.Venue)
	assert.Len(t, got.Installments, 1)
	assert.Empty(t, got.Reminders)
}

func TestClients_ListOrderAndDeleteCascade(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	late := sampleClient("late")
	late.EventDate = time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC)
	early := sampleClient("early")
	early.EventDate = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	undated := model.ClientRecord{ID: "undated", DisplayName: "Lead", Status: model.StatusPotential}

	for _, r := range []model.ClientRecord{late, undated, early} {
		require.NoError(t, store.Save(ctx, r))
	}

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"early", "late", "undated"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Len(t, list[0].Installments, 2)

	require.NoError(t, store.Delete(ctx, "early"))

	var orphans int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM client_installments WHERE client_id = 'early'").Scan(&orphans))
	assert.Zero(t, orphans)

	list, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestClients_EmptyList(t *testing.T) {
	list, err := newStore(t).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestMovements_CRUD(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	june := accounting.Movement{
		ID: "m1", Concept: "Deposit Ana", Amount: decimal.RequireFromString("800.00"),
		Category: "weddings", Date: time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC),
		Kind: accounting.KindIncome, Month: "2025-06",
	}
	july := accounting.Movement{
		ID: "m2", Concept: "Lens rental", Amount: decimal.RequireFromString("120.00"),
		Date: time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC),
		Kind: accounting.KindExpense, Recurring: true, Month: "2025-07",
	}
	require.NoError(t, store.SaveMovement(ctx, june))
	require.NoError(t, store.SaveMovement(ctx, july))

	list, err := store.ListMovements(ctx, "2025-06")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Deposit Ana", list[0].Concept)
	assert.True(t, june.Amount.Equal(list[0].Amount))

	all, err := store.ListMovements(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := store.GetMovement(ctx, "m2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Recurring)

	require.NoError(t, store.DeleteMovement(ctx, "m2"))
	got, err = store.GetMovement(ctx, "m2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSettings(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, ok, err := store.GetSetting(ctx, "backup")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetSetting(ctx, "backup", `{"active":true}`))
	require.NoError(t, store.SetSetting(ctx, "backup", `{"active":false}`))

	v, ok, err := store.GetSetting(ctx, "backup")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"active":false}`, v)
}

func TestFileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventdesk.db")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, sampleClient("c1")))
	require.NoError(t, store.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Installments, 2)
}

func TestReset(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleClient("c1")))
	require.NoError(t, store.SetSetting(ctx, "k", "v"))

	require.NoError(t, store.Reset(ctx))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
