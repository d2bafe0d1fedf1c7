package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/entry"
	"github.com/gmsas95/medreminder/internal/medform"
	"github.com/gmsas95/medreminder/internal/metrics"
	"github.com/gmsas95/medreminder/internal/reminder"
)

type fakeNotifier struct {
	permission reminder.Permission
	scheduled  []reminder.Payload
}

func (f *fakeNotifier) Permission(ctx context.Context) (reminder.Permission, error) {
	return f.permission, nil
}

func (f *fakeNotifier) Schedule(ctx context.Context, userID string, p reminder.Payload) (string, error) {
	f.scheduled = append(f.scheduled, p)
	return "rem-1", nil
}

var morning = time.Date(2024, time.March, 1, 7, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T, n *fakeNotifier) *Model {
	t.Helper()
	s := entry.New(context.Background(), entry.Options{
		UserID:   "alice",
		Model:    medform.StageThenConfirm,
		Notifier: n,
		Now:      func() time.Time { return morning },
		Logger:   zap.NewNop(),
		Metrics:  metrics.New(),
	})
	return New(context.Background(), s)
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func press(m *Model, msgs ...tea.KeyMsg) {
	for _, msg := range msgs {
		m.Update(msg)
	}
}

func focus(m *Model, f medform.Field) {
	for i, candidate := range medform.Fields {
		if candidate == f {
			m.cursor = i
			return
		}
	}
}

func repeat(msg tea.KeyMsg, n int) []tea.KeyMsg {
	out := make([]tea.KeyMsg, n)
	for i := range out {
		out[i] = msg
	}
	return out
}

func TestEditTextField(t *testing.T) {
	m := newTestModel(t, &fakeNotifier{permission: reminder.PermissionGranted})

	focus(m, medform.FieldName)
	press(m, key(tea.KeyEnter), runes("Amoxicillin"), key(tea.KeyEnter))
	assert.Equal(t, "Amoxicillin", m.session.Record().Name)
	assert.False(t, m.editing)

	press(m, key(tea.KeyEnter), runes("XYZ"), key(tea.KeyEsc))
	assert.Equal(t, "Amoxicillin", m.session.Record().Name, "esc discards the edit")
}

func TestCursorWraps(t *testing.T) {
	m := newTestModel(t, &fakeNotifier{permission: reminder.PermissionGranted})

	press(m, key(tea.KeyUp))
	assert.Equal(t, medform.FieldReminderTime, m.field())
	press(m, key(tea.KeyDown))
	assert.Equal(t, medform.FieldSymptoms, m.field())
}

func TestCycleType(t *testing.T) {
	m := newTestModel(t, &fakeNotifier{permission: reminder.PermissionGranted})

	press(m, runes("t"))
	require.NotNil(t, m.session.Record().Type)
	assert.Equal(t, "Tablet", m.session.Record().Type.Name)
	press(m, runes("t"))
	assert.Equal(t, "Capsule", m.session.Record().Type.Name)
}

func TestEndDateNeedsStartDate(t *testing.T) {
	m := newTestModel(t, &fakeNotifier{permission: reminder.PermissionGranted})

	focus(m, medform.FieldEndDate)
	press(m, key(tea.KeyEnter))
	assert.Equal(t, medform.Closed, m.session.Picker().State())
	assert.Equal(t, "Select a start date first.", m.status)
}

func TestPickerKeys(t *testing.T) {
	m := newTestModel(t, &fakeNotifier{permission: reminder.PermissionGranted})

	focus(m, medform.FieldReminderTime)
	press(m, key(tea.KeyEnter))
	require.Equal(t, medform.OpenTime, m.session.Picker().State())

	press(m, key(tea.KeyUp), key(tea.KeyUp), key(tea.KeyRight), key(tea.KeyLeft))
	staged, ok := m.session.Picker().Staged()
	require.True(t, ok)
	assert.Equal(t, "09:00", staged.Format("15:04"))
	assert.Contains(t, m.View(), "Reminder Time: 09:00")

	press(m, key(tea.KeyEsc))
	assert.Equal(t, medform.Closed, m.session.Picker().State())
	assert.Nil(t, m.session.Record().ReminderTime, "cancel writes nothing")
}

func TestEndPickerRefusesEarlierDate(t *testing.T) {
	m := newTestModel(t, &fakeNotifier{permission: reminder.PermissionGranted})

	focus(m, medform.FieldStartDate)
	press(m, key(tea.KeyEnter), key(tea.KeyEnter))
	require.NotNil(t, m.session.Record().StartDate)

	focus(m, medform.FieldEndDate)
	press(m, key(tea.KeyEnter), key(tea.KeyLeft))
	assert.Equal(t, "2024-02-29 is earlier than the start date 2024-03-01", m.status)

	staged, _ := m.session.Picker().Staged()
	assert.Equal(t, "2024-03-01", staged.Format("2006-01-02"), "keeps the previous candidate")
}

func TestSubmitFlow(t *testing.T) {
	n := &fakeNotifier{permission: reminder.PermissionGranted}
	m := newTestModel(t, n)

	press(m, key(tea.KeyCtrlS))
	assert.Equal(t, "Medicine name is required.", m.status)
	assert.Equal(t, statusError, m.statusKind)

	focus(m, medform.FieldName)
	press(m, key(tea.KeyEnter), runes("Amoxicillin"), key(tea.KeyEnter))
	focus(m, medform.FieldDose)
	press(m, key(tea.KeyEnter), runes("500mg"), key(tea.KeyEnter))

	focus(m, medform.FieldStartDate)
	press(m, key(tea.KeyEnter), key(tea.KeyEnter))

	focus(m, medform.FieldEndDate)
	press(m, key(tea.KeyEnter))
	press(m, repeat(key(tea.KeyRight), 9)...)
	press(m, key(tea.KeyEnter))

	focus(m, medform.FieldReminderTime)
	press(m, key(tea.KeyEnter))
	press(m, repeat(key(tea.KeyRight), 8)...)
	press(m, key(tea.KeyEnter))

	rec := m.session.Record()
	require.NotNil(t, rec.EndDate)
	assert.Equal(t, "2024-03-10", rec.EndDate.String())
	require.NotNil(t, rec.ReminderTime)
	assert.Equal(t, "09:00", rec.ReminderTime.Display())

	press(m, key(tea.KeyCtrlS))
	require.NotNil(t, m.last)
	assert.Equal(t, statusInfo, m.statusKind)
	assert.Contains(t, m.status, entry.SuccessMessage)
	require.Len(t, n.scheduled, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), n.scheduled[0].TriggerInstant)
	assert.Equal(t, "", m.session.Record().Name, "form cleared")
}

func TestPermissionAdvisoryShown(t *testing.T) {
	m := newTestModel(t, &fakeNotifier{permission: reminder.PermissionDenied})
	assert.Equal(t, entry.PermissionAdvisory, m.status)
	assert.Equal(t, statusWarn, m.statusKind)
	assert.Contains(t, m.View(), "Permission required")
}

func TestQuitLeavesSession(t *testing.T) {
	m := newTestModel(t, &fakeNotifier{permission: reminder.PermissionGranted})
	focus(m, medform.FieldName)
	press(m, key(tea.KeyEnter), runes("Amoxicillin"), key(tea.KeyEnter))

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Equal(t, "", m.session.Record().Name)
	assert.Equal(t, "", m.View())
}
