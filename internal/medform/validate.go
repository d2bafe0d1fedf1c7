package medform

import (
	"strings"

	apperrors "github.com/gmsas95/medreminder/internal/errors"
)

type rule struct {
	fails func(Record) bool
	err   *apperrors.AppError
}

// Order decides which single message the user sees.
var rules = []rule{
	{func(r Record) bool { return strings.TrimSpace(r.Name) == "" }, apperrors.ErrMissingName},
	{func(r Record) bool { return r.StartDate == nil }, apperrors.ErrMissingStartDate},
	{func(r Record) bool { return r.EndDate == nil }, apperrors.ErrMissingEndDate},
	{func(r Record) bool { return r.EndDate.Before(*r.StartDate) }, apperrors.ErrEndBeforeStart},
	{func(r Record) bool { return r.ReminderTime == nil }, apperrors.ErrMissingReminderTime},
}

// Validate checks rec for submission and returns the first failing rule's
// error, or nil when the record may be submitted.
func Validate(rec Record) error {
	for _, r := range rules {
		if r.fails(rec) {
			return r.err
		}
	}
	return nil
}
