package alerting

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/eventdesk/model"
)

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		from Day
		to   Day
		want int
	}{
		{"same day", NewDay(2025, time.June, 7), NewDay(2025, time.June, 7), 0},
		{"one week", NewDay(2025, time.June, 7), NewDay(2025, time.June, 14), 7},
		{"backwards", NewDay(2025, time.June, 7), NewDay(2025, time.June, 5), -2},
		{"across year", NewDay(2025, time.December, 30), NewDay(2026, time.January, 2), 3},
		{"across leap day", NewDay(2028, time.February, 28), NewDay(2028, time.March, 1), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysBetween(tt.from, tt.to))
		})
	}
}

func TestDaysBetween_AcrossDSTInZone(t *testing.T) {
	// Madrid switches to summer time on 2025-03-30; a local day is 23 hours.
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	before := DayOf(time.Date(2025, time.March, 29, 12, 0, 0, 0, madrid), madrid)
	after := DayOf(time.Date(2025, time.March, 31, 0, 30, 0, 0, madrid), madrid)

	assert.Equal(t, 2, DaysBetween(before, after))
}

func TestDayOf(t *testing.T) {
	ts := time.Date(2025, time.June, 14, 23, 30, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*3600)

	assert.Equal(t, "2025-06-14", DayOf(ts, nil).String())
	assert.Equal(t, "2025-06-15", DayOf(ts, tokyo).String())
	assert.True(t, DayOf(time.Time{}, nil).IsZero())
	assert.Equal(t, "", DayOf(time.Time{}, nil).String())
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2025-06-14")
	require.NoError(t, err)
	assert.True(t, d.Equal(NewDay(2025, time.June, 14)))
	assert.Equal(t, NewDay(2025, time.June, 14), d)

	_, err = ParseDay("14/06/2025")
	assert.Error(t, err)
}

func TestDay_MapKeyEquality(t *testing.T) {
	m := map[Day]int{}
	m[DayOf(time.Date(2025, time.June, 14, 1, 0, 0, 0, time.UTC), nil)]++
	m[DayOf(time.Date(2025, time.June, 14, 22, 0, 0, 0, time.UTC), time.UTC)]++
	m[NewDay(2025, time.June, 14)]++

	assert.Len(t, m, 1)
	assert.Equal(t, 3, m[NewDay(2025, time.June, 14)])
}

func TestPriority_JSON(t *testing.T) {
	out, err := json.Marshal(map[string]any{"p": PriorityCritical, "d": NewDay(2025, time.June, 14)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"critical","d":"2025-06-14"}`, string(out))
}

func TestDefaultFormatter(t *testing.T) {
	f := DefaultFormatter{}
	rec := model.ClientRecord{DisplayName: "Ana & Luis", Venue: "Finca El Olivar"}
	inst := model.Installment{Amount: decimal.RequireFromString("1250.5")}

	assert.Equal(t, "TODAY is Ana & Luis's event! - Finca El Olivar", f.EventMessage(rec, 0))
	assert.Equal(t, "Ana & Luis's event in 7 days - Finca El Olivar", f.EventMessage(rec, 7))
	assert.Equal(t, "Overdue payment from Ana & Luis - €1250.50", f.PaymentMessage(rec, inst, KindPaymentOverdue, -2))
	assert.Equal(t, "Payment from Ana & Luis due in 3 days - €1250.50", f.PaymentMessage(rec, inst, KindPaymentDueSoon, 3))
	assert.Equal(t, "Ana & Luis: call reminder", f.ReminderMessage(rec, model.Reminder{Kind: "call"}, 1))
}
