package api

import (
	"time"

	"github.com/gmsas95/medreminder/internal/catalog"
	"github.com/gmsas95/medreminder/internal/civil"
	"github.com/gmsas95/medreminder/internal/medform"
)

type loginRequest struct {
	UserID string `json:"user_id"`
}

type createFormRequest struct {
	Model string `json:"model"`
}

// fieldRequest carries a field value. Null clears the field. Dates are
// YYYY-MM-DD, the reminder time HH:MM and the type a catalog name.
type fieldRequest struct {
	Value *string `json:"value"`
}

type openPickerRequest struct {
	Model string `json:"model"`
}

type pickerChangeRequest struct {
	Kind  string    `json:"kind"` // "set" or "dismissed"
	Value time.Time `json:"value"`
}

type fieldView struct {
	Field   medform.Field `json:"field"`
	Label   string        `json:"label"`
	Value   string        `json:"value"`
	Enabled bool          `json:"enabled"`
}

type pickerView struct {
	State   string      `json:"state"`
	Model   string      `json:"model,omitempty"`
	Staged  *time.Time  `json:"staged,omitempty"`
	Minimum *civil.Date `json:"minimum,omitempty"`
}

type formView struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Permission string         `json:"permission"`
	Advisory   string         `json:"advisory,omitempty"`
	Record     medform.Record `json:"record"`
	Fields     []fieldView    `json:"fields"`
	Picker     pickerView     `json:"picker"`
}

type optionsResponse struct {
	Catalog           *catalog.Catalog `json:"catalog"`
	Fields            []fieldView      `json:"fields"`
	InteractionModels []string         `json:"interaction_models"`
	DefaultModel      string           `json:"default_model"`
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
