package alerting_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/eventdesk/alerting"
	"github.com/warp/eventdesk/model"
)

func client(id string, eventDate time.Time) model.ClientRecord {
	return model.ClientRecord{ID: id, DisplayName: "Client " + id, EventDate: eventDate}
}

func clientIDs(g alerting.DateConflictGroup) []string {
	ids := make([]string, len(g.Clients))
	for i, c := range g.Clients {
		ids[i] = c.ID
	}
	return ids
}

func TestDetectConflicts_SameDayDifferentTimes(t *testing.T) {
	// GIVEN: Two clients on 2025-06-14 at different times
	records := []model.ClientRecord{
		client("a", time.Date(2025, time.June, 14, 11, 0, 0, 0, time.UTC)),
		client("b", time.Date(2025, time.June, 14, 19, 30, 0, 0, time.UTC)),
	}

	// WHEN: Detecting conflicts
	groups := alerting.DetectConflicts(records)

	// THEN: One group for that day holding both
	require.Len(t, groups, 1)
	assert.Equal(t, "2025-06-14", groups[0].Date.String())
	assert.Equal(t, []string{"a", "b"}, clientIDs(groups[0]))
}

func TestDetectConflicts_SingleDatesNeverAppear(t *testing.T) {
	records := []model.ClientRecord{
		client("a", time.Date(2025, time.June, 14, 11, 0, 0, 0, time.UTC)),
		client("b", time.Date(2025, time.June, 15, 11, 0, 0, 0, time.UTC)),
		client("c", time.Date(2025, time.July, 1, 11, 0, 0, 0, time.UTC)),
	}

	assert.Empty(t, alerting.DetectConflicts(records))
}

func TestDetectConflicts_TrivialInputs(t *testing.T) {
	assert.Empty(t, alerting.DetectConflicts(nil))
	assert.Empty(t, alerting.DetectConflicts([]model.ClientRecord{client("a", time.Now())}))
}

func TestDetectConflicts_SkipsRecordsWithoutDate(t *testing.T) {
	day := time.Date(2025, time.June, 14, 11, 0, 0, 0, time.UTC)
	records := []model.ClientRecord{
		client("a", day),
		client("nodate-1", time.Time{}),
		client("nodate-2", time.Time{}),
	}

	assert.Empty(t, alerting.DetectConflicts(records), "undated records cannot conflict, even with each other")
}

func TestDetectConflicts_FirstSeenOrder(t *testing.T) {
	june20 := time.Date(2025, time.June, 20, 10, 0, 0, 0, time.UTC)
	june14 := time.Date(2025, time.June, 14, 10, 0, 0, 0, time.UTC)

	records := []model.ClientRecord{
		client("a", june20),
		client("b", june14),
		client("c", june14.Add(2*time.Hour)),
		client("d", june20.Add(3*time.Hour)),
		client("e", june20.Add(5*time.Hour)),
	}

	groups := alerting.DetectConflicts(records)

	require.Len(t, groups, 2)
	assert.Equal(t, "2025-06-20", groups[0].Date.String())
	assert.Equal(t, []string{"a", "d", "e"}, clientIDs(groups[0]))
	assert.Equal(t, "2025-06-14", groups[1].Date.String())
	assert.Equal(t, []string{"b", "c"}, clientIDs(groups[1]))
}

func TestDetectConflicts_PermutationInvariantSet(t *testing.T) {
	base := time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC)
	var records []model.ClientRecord
	for i := 0; i < 12; i++ {
		records = append(records, client(string(rune('a'+i)), base.AddDate(0, 0, i%4).Add(time.Duration(i)*time.Hour)))
	}
	records = append(records, client("solo", base.AddDate(0, 1, 0)))

	summary := func(groups []alerting.DateConflictGroup) map[string]int {
		out := make(map[string]int)
		for _, g := range groups {
			out[g.Date.String()] = len(g.Clients)
		}
		return out
	}

	want := summary(alerting.DetectConflicts(records))
	require.Len(t, want, 4)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := append([]model.ClientRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, summary(alerting.DetectConflicts(shuffled)))
	}
}

func TestDetectConflicts_EngineLocation(t *testing.T) {
	// 23:30 UTC and 00:30 UTC the next day are the same day in New York.
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	records := []model.ClientRecord{
		client("a", time.Date(2025, time.June, 14, 23, 30, 0, 0, time.UTC)),
		client("b", time.Date(2025, time.June, 15, 0, 30, 0, 0, time.UTC)),
	}

	assert.Empty(t, alerting.DetectConflicts(records))

	groups := alerting.NewEngine(ny, nil).DetectConflicts(records)
	require.Len(t, groups, 1)
	assert.Equal(t, "2025-06-14", groups[0].Date.String())
}

func TestConflictOn(t *testing.T) {
	records := []model.ClientRecord{
		client("a", time.Date(2025, time.June, 14, 11, 0, 0, 0, time.UTC)),
		client("b", time.Date(2025, time.June, 14, 19, 0, 0, 0, time.UTC)),
	}
	groups := alerting.DetectConflicts(records)

	g, ok := alerting.ConflictOn(groups, alerting.NewDay(2025, time.June, 14))
	assert.True(t, ok)
	assert.Len(t, g.Clients, 2)

	_, ok = alerting.ConflictOn(groups, alerting.NewDay(2025, time.June, 15))
	assert.False(t, ok)
}
