package medform

import (
	"strings"

	"github.com/gmsas95/medreminder/internal/catalog"
	"github.com/gmsas95/medreminder/internal/civil"
)

// Record is the medication entry being filled in. It is a value: every
// mutation through SetField produces a new Record and earlier snapshots are
// never changed.
type Record struct {
	Symptoms     string `json:"symptoms"`
	Consultation string `json:"consultation"`
	DoctorName   string `json:"doctor_name"`

	Name string                  `json:"name"`
	Type *catalog.MedicationType `json:"type"`
	Dose string                  `json:"dose"` // e.g. "2.5ml", "500mg"

	StartDate    *civil.Date      `json:"start_date"`
	EndDate      *civil.Date      `json:"end_date"`
	ReminderTime *civil.TimeOfDay `json:"reminder_time"`
}

// Field names one editable part of a Record.
type Field string

const (
	FieldSymptoms     Field = "symptoms"
	FieldConsultation Field = "consultation"
	FieldDoctorName   Field = "doctorName"
	FieldName         Field = "name"
	FieldType         Field = "type"
	FieldDose         Field = "dose"
	FieldStartDate    Field = "startDate"
	FieldEndDate      Field = "endDate"
	FieldReminderTime Field = "reminderTime"
)

// Fields lists every field in form order.
var Fields = []Field{
	FieldSymptoms,
	FieldConsultation,
	FieldDoctorName,
	FieldName,
	FieldType,
	FieldDose,
	FieldStartDate,
	FieldEndDate,
	FieldReminderTime,
}

// ParseField resolves a field name. Both the camelCase form and the
// snake_case JSON form are accepted.
func ParseField(s string) (Field, bool) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for _, f := range Fields {
		if strings.ToLower(string(f)) == norm {
			return f, true
		}
	}
	return "", false
}

// IsText reports whether the field holds free text.
func (f Field) IsText() bool {
	switch f {
	case FieldSymptoms, FieldConsultation, FieldDoctorName, FieldName, FieldDose:
		return true
	}
	return false
}

// Label is the placeholder shown for the field.
func (f Field) Label() string {
	switch f {
	case FieldSymptoms:
		return "Symptoms"
	case FieldConsultation:
		return "Consultation"
	case FieldDoctorName:
		return "Doctor Name"
	case FieldName:
		return "Medicine Name"
	case FieldType:
		return "Type"
	case FieldDose:
		return "Dose (eg: 2.5ml)"
	case FieldStartDate:
		return "Start Date"
	case FieldEndDate:
		return "End Date"
	case FieldReminderTime:
		return "Reminder Time"
	}
	return string(f)
}

// Text returns the current value of a text field.
func (r Record) Text(f Field) string {
	switch f {
	case FieldSymptoms:
		return r.Symptoms
	case FieldConsultation:
		return r.Consultation
	case FieldDoctorName:
		return r.DoctorName
	case FieldName:
		return r.Name
	case FieldDose:
		return r.Dose
	}
	return ""
}

// Display renders a field's value for the form, empty when unset.
func (r Record) Display(f Field) string {
	switch f {
	case FieldType:
		if r.Type != nil {
			return r.Type.Name
		}
	case FieldStartDate:
		if r.StartDate != nil {
			return r.StartDate.String()
		}
	case FieldEndDate:
		if r.EndDate != nil {
			return r.EndDate.String()
		}
	case FieldReminderTime:
		if r.ReminderTime != nil {
			return r.ReminderTime.Display()
		}
	default:
		return r.Text(f)
	}
	return ""
}
