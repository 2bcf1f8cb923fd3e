package backup

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/warp/eventdesk/accounting"
	"github.com/warp/eventdesk/model"
	"github.com/warp/eventdesk/store/memory"
)

// MockSink records uploads.
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Upload(ctx context.Context, provider Provider, name string, data []byte) error {
	args := m.Called(ctx, provider, name, data)
	return args.Error(0)
}

var backupNow = time.Date(2025, time.June, 7, 2, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, sink Sink) (*Service, *memory.Settings) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	settings := memory.NewSettings()
	clients := memory.NewClients(model.ClientRecord{ID: "c1", DisplayName: "Ana", TotalAmount: decimal.NewFromInt(100)})
	movements := memory.NewMovements(accounting.Movement{ID: "m1", Concept: "fee", Amount: decimal.NewFromInt(100), Kind: accounting.KindIncome, Month: "2025-06"})

	svc := NewService(settings, clients, movements, sink, logger)
	svc.Now = func() time.Time { return backupNow }
	return svc, settings
}

func TestCronSpec(t *testing.T) {
	tests := []struct {
		freq Frequency
		hour string
		want string
	}{
		{FrequencyDaily, "02:00", "0 2 * * *"},
		{FrequencyWeekly, "23:45", "45 23 * * 0"},
		{FrequencyMonthly, "07:05", "5 7 1 * *"},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Frequency = tt.freq
		cfg.Hour = tt.hour

		spec, err := cfg.CronSpec()
		require.NoError(t, err)
		assert.Equal(t, tt.want, spec)

		_, err = cron.ParseStandard(spec)
		assert.NoError(t, err)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Provider = "ftp"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.Frequency = "hourly"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.Hour = "25:00"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}

func TestLoadSaveConfig(t *testing.T) {
	ctx := context.Background()
	settings := memory.NewSettings()

	cfg, err := LoadConfig(ctx, settings)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg.Active = true
	cfg.Provider = ProviderDropbox
	require.NoError(t, SaveConfig(ctx, settings, cfg))

	loaded, err := LoadConfig(ctx, settings)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	cfg.Hour = "noon"
	assert.ErrorIs(t, SaveConfig(ctx, settings, cfg), ErrInvalidConfig)
}

func TestRun_UploadsSnapshotAndStampsLastBackup(t *testing.T) {
	// GIVEN: A service with one client and one movement
	sink := new(MockSink)
	sink.On("Upload", mock.Anything, ProviderGoogleDrive, "eventdesk-20250607T020000Z.json", mock.AnythingOfType("[]uint8")).Return(nil)
	svc, settings := newTestService(t, sink)

	// WHEN: Running a backup
	res, err := svc.Run(context.Background())

	// THEN: The sink got a valid snapshot and LastBackup is stamped
	require.NoError(t, err)
	sink.AssertExpectations(t)
	assert.Equal(t, 1, res.Clients)
	assert.Equal(t, 1, res.Movements)

	data := sink.Calls[0].Arguments.Get(3).([]byte)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, SnapshotVersion, snap.Version)
	assert.Len(t, snap.Clients, 1)

	cfg, err := LoadConfig(context.Background(), settings)
	require.NoError(t, err)
	require.NotNil(t, cfg.LastBackup)
	assert.True(t, cfg.LastBackup.Equal(backupNow))
}

func TestRun_SinkFailureLeavesLastBackupUnset(t *testing.T) {
	sink := new(MockSink)
	sink.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("quota exceeded"))
	svc, settings := newTestService(t, sink)

	_, err := svc.Run(context.Background())
	assert.Error(t, err)

	cfg, err := LoadConfig(context.Background(), settings)
	require.NoError(t, err)
	assert.Nil(t, cfg.LastBackup)
}

func TestDirSink(t *testing.T) {
	dir := t.TempDir()
	svc, _ := newTestService(t, DirSink{Dir: dir})

	res, err := svc.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, string(ProviderGoogleDrive), res.File))
	require.NoError(t, err)
	assert.Equal(t, res.Bytes, len(data))
}

func TestLogSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	require.NoError(t, LogSink{Logger: logger}.Upload(context.Background(), ProviderOneDrive, "x.json", []byte("{}")))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, 2, hook.LastEntry().Data["bytes"])
}

func TestSchedule(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	svc, settings := newTestService(t, LogSink{Logger: logger})
	c := cron.New()

	// Inactive: nothing registered
	require.NoError(t, svc.Schedule(ctx, c))
	assert.False(t, svc.Scheduled())
	assert.Empty(t, c.Entries())

	// Active: one entry
	cfg := DefaultConfig()
	cfg.Active = true
	require.NoError(t, SaveConfig(ctx, settings, cfg))
	require.NoError(t, svc.Schedule(ctx, c))
	assert.True(t, svc.Scheduled())
	assert.Len(t, c.Entries(), 1)

	// Rescheduling replaces rather than adds
	require.NoError(t, svc.Schedule(ctx, c))
	assert.Len(t, c.Entries(), 1)

	// Deactivated: removed
	cfg.Active = false
	require.NoError(t, SaveConfig(ctx, settings, cfg))
	require.NoError(t, svc.Schedule(ctx, c))
	assert.Empty(t, c.Entries())
}

func TestNextRun(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	svc, settings := newTestService(t, LogSink{Logger: logger})
	c := cron.New(cron.WithLocation(time.UTC))

	// GIVEN: Nothing scheduled
	assert.True(t, svc.NextRun(backupNow).IsZero())

	// WHEN: A monthly backup at 04:30 is scheduled on a stopped cron
	cfg := DefaultConfig()
	cfg.Active = true
	cfg.Frequency = FrequencyMonthly
	cfg.Hour = "04:30"
	require.NoError(t, SaveConfig(ctx, settings, cfg))
	require.NoError(t, svc.Schedule(ctx, c))

	// THEN: The next run comes from the entry's schedule
	assert.Equal(t, time.Date(2025, time.July, 1, 4, 30, 0, 0, time.UTC), svc.NextRun(backupNow))

	// AND: Once the cron runs it reports the entry's own next time
	c.Start()
	defer c.Stop()
	next := svc.NextRun(backupNow)
	assert.False(t, next.IsZero())
	assert.Equal(t, 1, next.Day())
	assert.Equal(t, 4, next.Hour())
	assert.Equal(t, 30, next.Minute())

	// AND: Deactivating clears it
	cfg.Active = false
	require.NoError(t, SaveConfig(ctx, settings, cfg))
	require.NoError(t, svc.Schedule(ctx, c))
	assert.True(t, svc.NextRun(backupNow).IsZero())
}

func TestRun_SnapshotUsesSnakeCaseKeys(t *testing.T) {
	sink := new(MockSink)
	sink.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc, _ := newTestService(t, sink)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	var raw struct {
		Clients   []map[string]any `json:"clients"`
		Movements []map[string]any `json:"movements"`
	}
	require.NoError(t, json.Unmarshal(sink.Calls[0].Arguments.Get(3).([]byte), &raw))
	require.Len(t, raw.Clients, 1)
	require.Len(t, raw.Movements, 1)

	assert.Equal(t, "Ana", raw.Clients[0]["display_name"])
	assert.Contains(t, raw.Clients[0], "total_amount")
	assert.Contains(t, raw.Clients[0], "created_at")
	assert.NotContains(t, raw.Clients[0], "DisplayName")
	assert.Equal(t, "fee", raw.Movements[0]["concept"])
	assert.Equal(t, "2025-06", raw.Movements[0]["month"])
	assert.NotContains(t, raw.Movements[0], "Concept")
}
