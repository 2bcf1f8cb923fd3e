package tasks_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/eventdesk/store/memory"
	"github.com/warp/eventdesk/tasks"
)

// clock returns a settable clock for the service.
func clock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func newService(t *testing.T) (*tasks.Service, func(time.Duration)) {
	t.Helper()
	svc := tasks.NewService(memory.NewTasks())
	now, advance := clock(time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC))
	svc.Now = now
	return svc, advance
}

func TestCompletedAt_StampedOnCompletion(t *testing.T) {
	svc, advance := newService(t)
	ctx := context.Background()

	// GIVEN: A pending task
	created, err := svc.Create(ctx, tasks.Task{Title: "Deliver album", AssignedTo: tasks.AssigneeDiana})
	require.NoError(t, err)
	assert.Nil(t, created.CompletedAt)

	// WHEN: It is marked completed an hour later
	advance(time.Hour)
	created.Status = tasks.StatusCompleted
	done, err := svc.Update(ctx, created.ID, created)
	require.NoError(t, err)

	// THEN: CompletedAt is the time of the transition
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC), *done.CompletedAt)
}

func TestCompletedAt_KeptWhileCompleted(t *testing.T) {
	svc, advance := newService(t)
	ctx := context.Background()

	// GIVEN: A task created already completed
	created, err := svc.Create(ctx, tasks.Task{Title: "Backup cards", AssignedTo: tasks.AssigneeClem, Status: tasks.StatusCompleted})
	require.NoError(t, err)
	require.NotNil(t, created.CompletedAt)
	first := *created.CompletedAt

	// WHEN: An unrelated field changes later without sending CompletedAt
	advance(24 * time.Hour)
	created.Notes = "both cards"
	created.CompletedAt = nil
	updated, err := svc.Update(ctx, created.ID, created)
	require.NoError(t, err)

	// THEN: The original completion time survives
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, first, *updated.CompletedAt)
}

func TestCompletedAt_ClearedWhenReopened(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, tasks.Task{Title: "Send invoice", AssignedTo: tasks.AssigneeClem, Status: tasks.StatusCompleted})
	require.NoError(t, err)

	created.Status = tasks.StatusInProgress
	reopened, err := svc.Update(ctx, created.ID, created)
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CompletedAt)
}

func TestCompletedAt_CallerValueWins(t *testing.T) {
	svc, _ := newService(t)
	when := time.Date(2025, time.May, 30, 18, 0, 0, 0, time.UTC)

	created, err := svc.Create(context.Background(), tasks.Task{
		Title: "Scout venue", AssignedTo: tasks.AssigneeDiana, Status: tasks.StatusCompleted, CompletedAt: &when,
	})
	require.NoError(t, err)
	assert.Equal(t, when, *created.CompletedAt)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService(t)

	tests := []struct {
		name string
		task tasks.Task
	}{
		{"missing title", tasks.Task{AssignedTo: tasks.AssigneeClem}},
		{"unknown assignee", tasks.Task{Title: "x", AssignedTo: "pepe"}},
		{"unknown status", tasks.Task{Title: "x", AssignedTo: tasks.AssigneeClem, Status: "done"}},
		{"unknown priority", tasks.Task{Title: "x", AssignedTo: tasks.AssigneeClem, Priority: "asap"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.task)
			assert.ErrorIs(t, err, tasks.ErrInvalidTask)
		})
	}
}

func TestCreate_Defaults(t *testing.T) {
	svc, _ := newService(t)

	created, err := svc.Create(context.Background(), tasks.Task{Title: "  Pack lenses  ", AssignedTo: tasks.AssigneeClem})
	require.NoError(t, err)
	assert.Equal(t, "Pack lenses", created.Title)
	assert.Equal(t, tasks.StatusPending, created.Status)
	assert.Equal(t, tasks.PriorityMedium, created.Priority)
	assert.NotEmpty(t, created.ID)
}

func TestList_FilterAndOrder(t *testing.T) {
	svc, advance := newService(t)
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2025, time.June, d, 0, 0, 0, 0, time.UTC) }

	// GIVEN: Tasks for both members, one without due date
	mk := func(title string, who tasks.Assignee, status tasks.Status, due time.Time) {
		_, err := svc.Create(ctx, tasks.Task{Title: title, AssignedTo: who, Status: status, DueDate: due})
		require.NoError(t, err)
		advance(time.Minute)
	}
	mk("someday", tasks.AssigneeClem, tasks.StatusPending, time.Time{})
	mk("late", tasks.AssigneeClem, tasks.StatusPending, day(20))
	mk("soon", tasks.AssigneeClem, tasks.StatusInProgress, day(5))
	mk("diana", tasks.AssigneeDiana, tasks.StatusPending, day(1))

	// WHEN: Listing Clem's tasks, then Clem's pending tasks
	clem, err := svc.List(ctx, tasks.Filter{AssignedTo: tasks.AssigneeClem})
	require.NoError(t, err)
	pending, err := svc.List(ctx, tasks.Filter{AssignedTo: tasks.AssigneeClem, Status: tasks.StatusPending})
	require.NoError(t, err)

	// THEN: Earliest due first, undated last
	titles := func(list []tasks.Task) []string {
		out := make([]string, len(list))
		for i, t := range list {
			out[i] = t.Title
		}
		return out
	}
	assert.Equal(t, []string{"soon", "late", "someday"}, titles(clem))
	assert.Equal(t, []string{"late", "someday"}, titles(pending))
}

func TestDelete_NotFound(t *testing.T) {
	svc, _ := newService(t)
	err := svc.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, tasks.ErrTaskNotFound)
}
