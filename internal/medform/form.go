package medform

import (
	"fmt"

	"github.com/gmsas95/medreminder/internal/catalog"
	"github.com/gmsas95/medreminder/internal/civil"
	apperrors "github.com/gmsas95/medreminder/internal/errors"
)

const maxHistory = 50

// Apply returns rec with field replaced by value. Setting the start date always
// clears the end date in the same step, whatever the new start date is. A nil
// value unsets optional fields.
//
// Accepted value kinds: string for text fields; catalog.MedicationType or
// *catalog.MedicationType for FieldType; civil.Date or *civil.Date for the date
// fields; civil.TimeOfDay or *civil.TimeOfDay for FieldReminderTime.
func Apply(rec Record, field Field, value any) (Record, error) {
	if field.IsText() {
		s, ok := value.(string)
		if !ok && value != nil {
			return rec, badValue(field, value)
		}
		switch field {
		case FieldSymptoms:
			rec.Symptoms = s
		case FieldConsultation:
			rec.Consultation = s
		case FieldDoctorName:
			rec.DoctorName = s
		case FieldName:
			rec.Name = s
		case FieldDose:
			rec.Dose = s
		}
		return rec, nil
	}

	switch field {
	case FieldType:
		switch v := value.(type) {
		case nil:
			rec.Type = nil
		case catalog.MedicationType:
			rec.Type = &v
		case *catalog.MedicationType:
			rec.Type = copyOf(v)
		default:
			return rec, badValue(field, value)
		}

	case FieldStartDate, FieldEndDate:
		var d *civil.Date
		switch v := value.(type) {
		case nil:
		case civil.Date:
			d = &v
		case *civil.Date:
			d = copyOf(v)
		default:
			return rec, badValue(field, value)
		}
		if field == FieldStartDate {
			rec.StartDate = d
			rec.EndDate = nil
		} else {
			rec.EndDate = d
		}

	case FieldReminderTime:
		switch v := value.(type) {
		case nil:
			rec.ReminderTime = nil
		case civil.TimeOfDay:
			rec.ReminderTime = &v
		case *civil.TimeOfDay:
			rec.ReminderTime = copyOf(v)
		default:
			return rec, badValue(field, value)
		}

	default:
		return rec, apperrors.New(apperrors.ErrUnknownField.Code, fmt.Sprintf("unknown form field %q", field))
	}

	return rec, nil
}

func copyOf[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func badValue(field Field, value any) error {
	return apperrors.New(apperrors.ErrFieldValue.Code, fmt.Sprintf("invalid value for %s: %T", field, value))
}

// FormStore owns the in-progress record. SetField is the only way to change it.
type FormStore struct {
	current Record
	history []Record
}

// NewFormStore creates a store holding an empty record.
func NewFormStore() *FormStore {
	return &FormStore{}
}

// Snapshot returns the current record.
func (s *FormStore) Snapshot() Record {
	return s.current
}

// SetField replaces one field and returns the new snapshot. On error the
// record is left as it was.
func (s *FormStore) SetField(field Field, value any) (Record, error) {
	next, err := Apply(s.current, field, value)
	if err != nil {
		return s.current, err
	}

	s.history = append(s.history, s.current)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
	s.current = next
	return next, nil
}

// Undo restores the snapshot before the last SetField.
func (s *FormStore) Undo() (Record, bool) {
	if len(s.history) == 0 {
		return s.current, false
	}
	s.current = s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	return s.current, true
}

// Reset discards the record and its history.
func (s *FormStore) Reset() Record {
	s.current = Record{}
	s.history = nil
	return s.current
}
