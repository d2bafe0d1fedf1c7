package reminder

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/medreminder/internal/civil"
	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/medform"
)

func TestNextTrigger_LaterToday(t *testing.T) {
	now := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	got := NextTrigger(now, civil.TimeOfDay{Hour: 14})
	assert.Equal(t, time.Date(2024, time.March, 1, 14, 0, 0, 0, time.UTC), got)
}

func TestNextTrigger_AlreadyPassed(t *testing.T) {
	now := time.Date(2024, time.March, 1, 15, 0, 0, 0, time.UTC)
	got := NextTrigger(now, civil.TimeOfDay{Hour: 9})
	assert.Equal(t, time.Date(2024, time.March, 2, 9, 0, 0, 0, time.UTC), got)
}

func TestNextTrigger_ExactlyNowRollsOver(t *testing.T) {
	now := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	got := NextTrigger(now, civil.TimeOfDay{Hour: 9})
	assert.Equal(t, time.Date(2024, time.March, 2, 9, 0, 0, 0, time.UTC), got)
}

func TestNextTrigger_MonthAndYearRollover(t *testing.T) {
	now := time.Date(2024, time.February, 29, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.March, 1, 6, 30, 0, 0, time.UTC),
		NextTrigger(now, civil.TimeOfDay{Hour: 6, Minute: 30}))

	now = time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		NextTrigger(now, civil.TimeOfDay{}))
}

func TestNextTrigger_TodayOrTomorrowOnly(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 34, 56, 789, time.UTC)
	today := civil.DateOf(now)

	for h := 0; h < 24; h++ {
		for _, m := range []int{0, 15, 34, 35, 59} {
			tod := civil.TimeOfDay{Hour: h, Minute: m, Second: 56}
			got := NextTrigger(now, tod)

			assert.True(t, got.After(now), "%s: %s is not in the future", tod, got)
			assert.LessOrEqual(t, got.Sub(now), 24*time.Hour, "%s: more than a day ahead", tod)
			day := civil.DateOf(got)
			assert.True(t, day == today || day == today.AddDays(1), "%s: landed on %s", tod, day)
			assert.Equal(t, tod, civil.TimeOfDayOf(got))
		}
	}
}

func TestNextTrigger_CalendarDayAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 2024-03-10 is the spring-forward day in New York.
	now := time.Date(2024, time.March, 9, 10, 0, 0, 0, loc)
	got := NextTrigger(now, civil.TimeOfDay{Hour: 9})

	assert.Equal(t, time.Date(2024, time.March, 10, 9, 0, 0, 0, loc), got)
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 22*time.Hour, got.Sub(now))
}

func TestFollowingTrigger(t *testing.T) {
	prev := time.Date(2024, time.March, 31, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC), FollowingTrigger(prev))
}

func TestBuildPayload(t *testing.T) {
	start := civil.Date{Year: 2024, Month: time.March, Day: 1}
	end := civil.Date{Year: 2024, Month: time.March, Day: 10}
	at := civil.TimeOfDay{Hour: 9}
	rec := medform.Record{Name: "Amoxicillin", Dose: "500mg", StartDate: &start, EndDate: &end, ReminderTime: &at}
	now := time.Date(2024, time.March, 1, 7, 0, 0, 0, time.UTC)

	p, err := BuildPayload(rec, now)
	require.NoError(t, err)

	assert.Contains(t, p.Title, "Amoxicillin")
	assert.Contains(t, p.Body, "500mg")
	assert.True(t, p.SoundEnabled)
	assert.Equal(t, PriorityHigh, p.Priority)
	assert.Equal(t, time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC), p.TriggerInstant)
	assert.Equal(t, &end, p.EndDate)
	assert.Equal(t, at, p.ReminderTime)
}

func TestBuildPayload_Incomplete(t *testing.T) {
	_, err := BuildPayload(medform.Record{Name: "Amoxicillin"}, time.Now())
	assert.True(t, errors.Is(err, apperrors.ErrIncompleteRecord))
}
