package api

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/medform"
)

// inputValidator screens free-text field values before they reach a session.
type inputValidator struct {
	MaxRunes      int
	MaxRepetition int
}

func newInputValidator() *inputValidator {
	return &inputValidator{
		MaxRunes:      500,
		MaxRepetition: 50,
	}
}

func (v *inputValidator) Validate(field medform.Field, input string) error {
	if !utf8.ValidString(input) {
		return fieldError(field, "is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(input); n > v.MaxRunes {
		return fieldError(field, fmt.Sprintf("is longer than %d characters", v.MaxRunes))
	}

	for _, r := range input {
		if r == 0 || (unicode.IsControl(r) && r != '\n' && r != '\t') {
			return fieldError(field, "contains control characters")
		}
	}

	if v.MaxRepetition > 0 && hasExcessiveRepetition(input, v.MaxRepetition) {
		return fieldError(field, "repeats one character too many times")
	}
	return nil
}

func hasExcessiveRepetition(input string, maxLen int) bool {
	if len(input) <= maxLen {
		return false
	}

	var prev rune
	count := 0
	for _, r := range input {
		if r == prev {
			count++
			if count > maxLen {
				return true
			}
			continue
		}
		prev, count = r, 1
	}
	return false
}

func fieldError(field medform.Field, msg string) error {
	return apperrors.New(apperrors.ErrFieldValue.Code, field.Label()+" "+msg)
}
