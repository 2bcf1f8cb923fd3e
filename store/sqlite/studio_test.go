package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/eventdesk/calls"
	"github.com/warp/eventdesk/services"
	"github.com/warp/eventdesk/tasks"
)

func TestCalls_CRUD(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	created := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

	// GIVEN: Two calls saved out of order
	late := calls.Call{
		ID: "late", ClientName: "Marta", Email: "marta@example.com",
		ScheduledAt: time.Date(2025, time.June, 12, 18, 0, 0, 0, time.UTC), DurationMinutes: 45,
		Kind: calls.KindFollowUp, Status: calls.StatusConfirmed, CreatedAt: created, UpdatedAt: created,
	}
	early := calls.Call{
		ID: "early", ClientName: "Ana", Email: "ana@example.com", Phone: "600111222",
		ScheduledAt: time.Date(2025, time.June, 10, 16, 0, 0, 0, time.UTC), DurationMinutes: 30,
		Kind: calls.KindInitialConsultation, Status: calls.StatusScheduled,
		CalendlyEventID: "cal-1", OutlookEventID: "OUTLOOK_1", ReminderSent: true,
		CreatedAt: created, UpdatedAt: created,
	}
	require.NoError(t, store.SaveCall(ctx, late))
	require.NoError(t, store.SaveCall(ctx, early))

	// WHEN: Reading back
	got, err := store.GetCall(ctx, "early")
	require.NoError(t, err)
	list, err := store.ListCalls(ctx)
	require.NoError(t, err)

	// THEN: Every field survives and the list is soonest first
	require.NotNil(t, got)
	assert.Equal(t, early, *got)
	require.Len(t, list, 2)
	assert.Equal(t, "early", list[0].ID)
	assert.Empty(t, list[1].Phone)

	require.NoError(t, store.DeleteCall(ctx, "early"))
	missing, err := store.GetCall(ctx, "early")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTasks_CompletedAtRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	created := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	done := time.Date(2025, time.June, 3, 12, 30, 0, 0, time.UTC)

	// GIVEN: One completed task and one open task without due date
	require.NoError(t, store.SaveTask(ctx, tasks.Task{
		ID: "t1", Title: "Edit album", AssignedTo: tasks.AssigneeDiana, Status: tasks.StatusCompleted,
		Priority: tasks.PriorityHigh, DueDate: time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC),
		ClientID: "c1", CompletedAt: &done, CreatedAt: created, UpdatedAt: created,
	}))
	require.NoError(t, store.SaveTask(ctx, tasks.Task{
		ID: "t2", Title: "Call venue", AssignedTo: tasks.AssigneeClem, Status: tasks.StatusPending,
		Priority: tasks.PriorityLow, CreatedAt: created.Add(time.Hour), UpdatedAt: created,
	}))

	// WHEN: Reading back
	list, err := store.ListTasks(ctx)
	require.NoError(t, err)

	// THEN: The completion stamp and the absent due date survive
	require.Len(t, list, 2)
	require.NotNil(t, list[0].CompletedAt)
	assert.True(t, done.Equal(*list[0].CompletedAt))
	assert.Equal(t, "c1", list[0].ClientID)
	assert.Nil(t, list[1].CompletedAt)
	assert.True(t, list[1].DueDate.IsZero())

	require.NoError(t, store.DeleteTask(ctx, "t1"))
	missing, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestServices_ListsRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	// GIVEN: A catalog item with includes and images
	item := services.Item{
		ID: "s1", Name: "Full day", Category: services.CategoryPackages,
		Price: decimal.RequireFromString("2400.00"), Duration: "10h",
		Includes: []string{"Photography", "Video"}, Images: []string{"full-day.jpg"},
		Active: true,
	}
	require.NoError(t, store.SaveService(ctx, item))
	require.NoError(t, store.SaveService(ctx, services.Item{ID: "s2", Name: "Drone", Category: services.CategoryExtras}))

	// WHEN: Reading back
	got, err := store.GetService(ctx, "s1")
	require.NoError(t, err)
	bare, err := store.GetService(ctx, "s2")
	require.NoError(t, err)

	// THEN: The lists come back as stored and absent lists stay nil
	require.NotNil(t, got)
	assert.Equal(t, []string{"Photography", "Video"}, got.Includes)
	assert.Equal(t, []string{"full-day.jpg"}, got.Images)
	assert.Equal(t, "2400", got.Price.String())
	assert.True(t, got.Active)
	require.NotNil(t, bare)
	assert.Nil(t, bare.Includes)
	assert.False(t, bare.Active)
}

func TestReset_ClearsStudioTables(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveCall(ctx, calls.Call{ID: "c", ClientName: "A", Email: "a@example.com", ScheduledAt: now, Kind: calls.KindFollowUp, Status: calls.StatusScheduled}))
	require.NoError(t, store.SaveTask(ctx, tasks.Task{ID: "t", Title: "T", AssignedTo: tasks.AssigneeClem, Status: tasks.StatusPending, Priority: tasks.PriorityLow}))
	require.NoError(t, store.SaveService(ctx, services.Item{ID: "s", Name: "S", Category: services.CategoryVideo}))

	require.NoError(t, store.Reset(ctx))

	cs, err := store.ListCalls(ctx)
	require.NoError(t, err)
	ts, err := store.ListTasks(ctx)
	require.NoError(t, err)
	ss, err := store.ListServices(ctx)
	require.NoError(t, err)
	assert.Empty(t, cs)
	assert.Empty(t, ts)
	assert.Empty(t, ss)
}
