package medform

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/medreminder/internal/catalog"
	"github.com/gmsas95/medreminder/internal/civil"
	apperrors "github.com/gmsas95/medreminder/internal/errors"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func TestApply_TextFields(t *testing.T) {
	rec := Record{}
	var err error

	for _, f := range []Field{FieldSymptoms, FieldConsultation, FieldDoctorName, FieldName, FieldDose} {
		rec, err = Apply(rec, f, "v-"+string(f))
		require.NoError(t, err)
	}

	assert.Equal(t, "v-symptoms", rec.Symptoms)
	assert.Equal(t, "v-consultation", rec.Consultation)
	assert.Equal(t, "v-doctorName", rec.DoctorName)
	assert.Equal(t, "v-name", rec.Name)
	assert.Equal(t, "v-dose", rec.Dose)
}

func TestApply_DoesNotTouchInput(t *testing.T) {
	start := date(2024, time.March, 1)
	before := Record{Name: "Amoxicillin", StartDate: &start}

	after, err := Apply(before, FieldName, "Ibuprofen")
	require.NoError(t, err)

	assert.Equal(t, "Amoxicillin", before.Name)
	assert.Equal(t, "Ibuprofen", after.Name)
}

func TestApply_CopiesPointerValues(t *testing.T) {
	d := date(2024, time.March, 1)
	rec, err := Apply(Record{}, FieldStartDate, &d)
	require.NoError(t, err)

	d.Day = 20
	assert.Equal(t, 1, rec.StartDate.Day, "record must not alias the caller's value")
}

func TestApply_StartDateClearsEndDate(t *testing.T) {
	start := date(2024, time.March, 1)
	end := date(2024, time.March, 10)

	tests := []struct {
		name  string
		value any
	}{
		{"reassign later", date(2024, time.March, 5)},
		{"reassign same", start},
		{"reassign earlier", date(2024, time.February, 1)},
		{"clear", nil},
		{"pointer", &start},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Record{StartDate: &start, EndDate: &end}
			next, err := Apply(rec, FieldStartDate, tt.value)
			require.NoError(t, err)
			assert.Nil(t, next.EndDate)

			// Clearing is idempotent.
			again, err := Apply(next, FieldStartDate, tt.value)
			require.NoError(t, err)
			assert.Nil(t, again.EndDate)
			assert.Equal(t, next, again)
		})
	}
}

func TestApply_EndDateKeepsStartDate(t *testing.T) {
	start := date(2024, time.March, 1)
	rec, err := Apply(Record{StartDate: &start}, FieldEndDate, date(2024, time.March, 10))
	require.NoError(t, err)

	require.NotNil(t, rec.StartDate)
	require.NotNil(t, rec.EndDate)
	assert.Equal(t, date(2024, time.March, 10), *rec.EndDate)
}

func TestApply_TypeAndTime(t *testing.T) {
	rec, err := Apply(Record{}, FieldType, catalog.MedicationType{Name: "Tablet"})
	require.NoError(t, err)
	assert.Equal(t, "Tablet", rec.Type.Name)

	rec, err = Apply(rec, FieldReminderTime, civil.TimeOfDay{Hour: 9})
	require.NoError(t, err)
	assert.Equal(t, civil.TimeOfDay{Hour: 9}, *rec.ReminderTime)

	rec, err = Apply(rec, FieldType, nil)
	require.NoError(t, err)
	assert.Nil(t, rec.Type)
}

func TestApply_BadValues(t *testing.T) {
	tests := []struct {
		field Field
		value any
		want  *apperrors.AppError
	}{
		{FieldName, 42, apperrors.ErrFieldValue},
		{FieldStartDate, "2024-03-01", apperrors.ErrFieldValue},
		{FieldReminderTime, time.Now(), apperrors.ErrFieldValue},
		{FieldType, "Tablet", apperrors.ErrFieldValue},
		{Field("colour"), "red", apperrors.ErrUnknownField},
	}

	for _, tt := range tests {
		rec := Record{Name: "keep"}
		got, err := Apply(rec, tt.field, tt.value)
		assert.True(t, errors.Is(err, tt.want), "field %s: got %v", tt.field, err)
		assert.Equal(t, rec, got)
	}
}

func TestParseField(t *testing.T) {
	tests := map[string]Field{
		"name":          FieldName,
		"startDate":     FieldStartDate,
		"start_date":    FieldStartDate,
		"REMINDER_TIME": FieldReminderTime,
		"doctor_name":   FieldDoctorName,
	}
	for in, want := range tests {
		got, ok := ParseField(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseField("colour")
	assert.False(t, ok)
}

func TestFormStore_SetFieldAndUndo(t *testing.T) {
	s := NewFormStore()

	_, err := s.SetField(FieldName, "Amoxicillin")
	require.NoError(t, err)
	_, err = s.SetField(FieldDose, "500mg")
	require.NoError(t, err)

	assert.Equal(t, "500mg", s.Snapshot().Dose)

	rec, ok := s.Undo()
	assert.True(t, ok)
	assert.Equal(t, "", rec.Dose)
	assert.Equal(t, "Amoxicillin", rec.Name)

	rec, ok = s.Undo()
	assert.True(t, ok)
	assert.Equal(t, Record{}, rec)

	_, ok = s.Undo()
	assert.False(t, ok)
}

func TestFormStore_FailedSetFieldLeavesRecord(t *testing.T) {
	s := NewFormStore()
	_, err := s.SetField(FieldName, "Amoxicillin")
	require.NoError(t, err)

	rec, err := s.SetField(FieldStartDate, 3)
	assert.Error(t, err)
	assert.Equal(t, "Amoxicillin", rec.Name)

	// The failed write is not an undo step.
	rec, ok := s.Undo()
	assert.True(t, ok)
	assert.Equal(t, Record{}, rec)
}

func TestFormStore_Reset(t *testing.T) {
	s := NewFormStore()
	_, _ = s.SetField(FieldName, "Amoxicillin")

	assert.Equal(t, Record{}, s.Reset())
	_, ok := s.Undo()
	assert.False(t, ok)
}

func TestFormStore_HistoryIsBounded(t *testing.T) {
	s := NewFormStore()
	for i := 0; i < maxHistory+10; i++ {
		_, _ = s.SetField(FieldDose, string(rune('a'+i%26)))
	}
	assert.Len(t, s.history, maxHistory)
}

func TestRecordDisplay(t *testing.T) {
	start := date(2024, time.March, 1)
	at := civil.TimeOfDay{Hour: 9, Minute: 5}
	rec := Record{Name: "Amoxicillin", StartDate: &start, ReminderTime: &at}

	assert.Equal(t, "Amoxicillin", rec.Display(FieldName))
	assert.Equal(t, "2024-03-01", rec.Display(FieldStartDate))
	assert.Equal(t, "", rec.Display(FieldEndDate))
	assert.Equal(t, "09:05", rec.Display(FieldReminderTime))
	assert.Equal(t, "", rec.Display(FieldType))
}
