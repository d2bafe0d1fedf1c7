package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/app"
	"github.com/gmsas95/medreminder/internal/civil"
	"github.com/gmsas95/medreminder/internal/config"
	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/reminder"
	"github.com/gmsas95/medreminder/internal/store"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := out
	out = buf
	t.Cleanup(func() { out = prev })
	return buf
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Address: "127.0.0.1", Port: 8080},
		Storage:  config.StorageConfig{DataDir: t.TempDir()},
		Security: config.SecurityConfig{JWTSecret: "test-secret", TokenTTL: 1},
		Form:     config.FormConfig{InteractionModel: "staged", Timezone: "UTC"},
		Notify:   config.NotifyConfig{PermissionGranted: true, Tick: "@every 1m", Deliverers: []string{"log"}},
	}
}

func setupTestApp(t *testing.T) *app.App {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	application, err := app.New(testConfig(t), st, zap.NewNop(), "test")
	require.NoError(t, err)
	return application
}

func TestChannelStatus(t *testing.T) {
	tests := []struct {
		enabled  bool
		expected string
	}{
		{true, "✅ enabled"},
		{false, "❌ disabled"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, channelStatus(tt.enabled))
	}
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"1234567890", "1234...7890"},
		{"1234567890abcdef", "1234...cdef"},
		{"short", "***"},
		{"", "***"},
		{"1234567", "***"},
		{"eyJhbGciOiJIUzI1NiJ9", "eyJh...NiJ9"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, maskToken(tt.token), tt.token)
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	buf := captureOutput(t)
	application := setupTestApp(t)

	assert.ErrorIs(t, HandleWhoamiCommand(application), apperrors.ErrNoCurrentUser)
	assert.ErrorIs(t, HandleLoginCommand(nil, application), apperrors.ErrBadRequest)

	require.NoError(t, HandleLoginCommand([]string{"alice"}, application))
	assert.Contains(t, buf.String(), "✓ Signed in as alice")

	buf.Reset()
	require.NoError(t, HandleWhoamiCommand(application))
	assert.Equal(t, "alice\n", buf.String())

	require.NoError(t, HandleLogoutCommand(application))
	assert.ErrorIs(t, HandleWhoamiCommand(application), apperrors.ErrNoCurrentUser)
}

func TestRemindersCommand(t *testing.T) {
	buf := captureOutput(t)
	application := setupTestApp(t)
	ctx := context.Background()

	assert.ErrorIs(t, HandleRemindersCommand(nil, application), apperrors.ErrNoCurrentUser)
	require.NoError(t, HandleLoginCommand([]string{"alice"}, application))

	buf.Reset()
	require.NoError(t, HandleRemindersCommand(nil, application))
	assert.Contains(t, buf.String(), "No reminders yet")

	start := civil.Date{Year: 2024, Month: time.March, Day: 1}
	end := start.AddDays(9)
	payload := reminder.Payload{
		Title:          "Time for Amoxicillin",
		Body:           "Take 500mg",
		TriggerInstant: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		MedicationName: "Amoxicillin",
		Dose:           "500mg",
		StartDate:      &start,
		EndDate:        &end,
		ReminderTime:   civil.TimeOfDay{Hour: 9},
	}
	id, err := application.Outbox.Schedule(ctx, "alice", payload)
	require.NoError(t, err)
	bobID, err := application.Outbox.Schedule(ctx, "bob", payload)
	require.NoError(t, err)

	buf.Reset()
	require.NoError(t, HandleRemindersCommand([]string{"list"}, application))
	assert.Contains(t, buf.String(), id)
	assert.Contains(t, buf.String(), "Amoxicillin")
	assert.Contains(t, buf.String(), "2024-03-10")
	assert.NotContains(t, buf.String(), bobID)

	assert.ErrorIs(t, HandleRemindersCommand([]string{"cancel", bobID}, application), apperrors.ErrNotFound)
	assert.ErrorIs(t, HandleRemindersCommand([]string{"cancel"}, application), apperrors.ErrBadRequest)

	require.NoError(t, HandleRemindersCommand([]string{"cancel", id}, application))
	r, err := application.Outbox.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCancelled, r.Status)
}

func TestNextCommand(t *testing.T) {
	buf := captureOutput(t)
	cfg := testConfig(t)

	require.NoError(t, HandleNextCommand([]string{"09:30"}, cfg))
	assert.Contains(t, buf.String(), "09:30 UTC")

	assert.Error(t, HandleNextCommand([]string{"25:00"}, cfg))
	assert.ErrorIs(t, HandleNextCommand(nil, cfg), apperrors.ErrBadRequest)
}

func TestConfigCommand(t *testing.T) {
	buf := captureOutput(t)
	cfg := testConfig(t)

	require.NoError(t, HandleConfigCommand([]string{"get", "form.interaction_model"}, cfg))
	assert.Equal(t, cfg.InteractionModel().String()+"\n", buf.String())

	buf.Reset()
	require.NoError(t, HandleConfigCommand([]string{"get", "notify.deliverers"}, cfg))
	assert.Equal(t, "log\n", buf.String())

	assert.ErrorIs(t, HandleConfigCommand([]string{"get", "llm.provider"}, cfg), apperrors.ErrBadRequest)

	buf.Reset()
	require.NoError(t, HandleConfigCommand([]string{"path"}, cfg))
	assert.Contains(t, buf.String(), "medreminder.yaml")

	assert.Error(t, HandleConfigCommand([]string{"show"}, cfg), "no file written yet")
}

func TestDeliverersStatus(t *testing.T) {
	buf := captureOutput(t)
	cfg := testConfig(t)
	cfg.Notify.Deliverers = []string{"log", "telegram"}
	cfg.Notify.Telegram.BotToken = "123456:ABCDEFGHIJ"
	cfg.Notify.Telegram.ChatID = 42

	require.NoError(t, HandleDeliverersCommand([]string{"status"}, cfg))
	assert.Contains(t, buf.String(), "Telegram: ✅ enabled")
	assert.Contains(t, buf.String(), "Bot Token: 1234...GHIJ")
	assert.Contains(t, buf.String(), "Discord:  ❌ disabled")
}

func TestDoctorCommand(t *testing.T) {
	buf := captureOutput(t)
	cfg := testConfig(t)

	assert.Equal(t, 0, HandleDoctorCommand(cfg))
	assert.Contains(t, buf.String(), "All checks passed")

	cfg.Form.Timezone = "Mars/Olympus"
	cfg.Notify.Deliverers = []string{"pager"}
	cfg.Notify.PermissionGranted = false
	assert.Equal(t, 3, HandleDoctorCommand(cfg))
}

func TestPrintFunctions(t *testing.T) {
	buf := captureOutput(t)
	PrintExtendedHelp()
	PrintConfigHelp()
	PrintRemindersHelp()
	PrintDeliverersHelp()
	HandleStatusCommand(testConfig(t))
	assert.Contains(t, buf.String(), "deliverers status")
	assert.Contains(t, buf.String(), "Medreminder Status")
}
