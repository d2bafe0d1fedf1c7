package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError with the same code, so wrapped
// errors still match the predefined values below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrConfigNotFound = &AppError{Code: "CONFIG_001", Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	// Submission validation, in evaluation order.
	ErrMissingName         = &AppError{Code: "FORM_001", Message: "Medicine name is required."}
	ErrMissingStartDate    = &AppError{Code: "FORM_002", Message: "Please select a start date."}
	ErrMissingEndDate      = &AppError{Code: "FORM_003", Message: "Please select an end date."}
	ErrEndBeforeStart      = &AppError{Code: "FORM_004", Message: "End date cannot be before start date."}
	ErrMissingReminderTime = &AppError{Code: "FORM_005", Message: "Please select a reminder time."}

	ErrUnknownField = &AppError{Code: "FORM_010", Message: "unknown form field"}
	ErrFieldValue   = &AppError{Code: "FORM_011", Message: "invalid value for field"}

	ErrPickerBusy     = &AppError{Code: "PICKER_001", Message: "another picker is already open"}
	ErrPickerClosed   = &AppError{Code: "PICKER_002", Message: "no picker is open"}
	ErrBeforeMinimum  = &AppError{Code: "PICKER_003", Message: "date is earlier than the start date"}
	ErrPickerModel    = &AppError{Code: "PICKER_004", Message: "action not supported by the picker interaction model"}
	ErrPickerDisabled = &AppError{Code: "PICKER_005", Message: "picker is not available"}

	ErrIncompleteRecord = &AppError{Code: "SCHED_001", Message: "reminder time is not set"}

	ErrPermissionDenied = &AppError{Code: "NOTIFY_001", Message: "notification permission not granted"}
	ErrDeliveryFailed   = &AppError{Code: "NOTIFY_002", Message: "reminder delivery failed"}

	ErrSessionNotFound = &AppError{Code: "SESSION_001", Message: "form session not found"}
	ErrNoCurrentUser   = &AppError{Code: "SESSION_002", Message: "no user is signed in"}

	ErrUnauthorized = &AppError{Code: "AUTH_001", Message: "unauthorized"}
	ErrForbidden    = &AppError{Code: "AUTH_002", Message: "forbidden"}

	ErrNotFound   = &AppError{Code: "GEN_001", Message: "resource not found"}
	ErrBadRequest = &AppError{Code: "GEN_002", Message: "bad request"}
	ErrInternal   = &AppError{Code: "GEN_003", Message: "internal error"}
)

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// IsValidation reports whether err is one of the user-facing submission
// validation errors.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case ErrMissingName.Code, ErrMissingStartDate.Code, ErrMissingEndDate.Code,
		ErrEndBeforeStart.Code, ErrMissingReminderTime.Code:
		return true
	}
	return false
}
