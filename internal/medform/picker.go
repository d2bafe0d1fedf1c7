package medform

import (
	"fmt"
	"strings"
	"time"

	"github.com/gmsas95/medreminder/internal/civil"
	apperrors "github.com/gmsas95/medreminder/internal/errors"
)

// PickerState is which date/time picker is open, if any.
type PickerState int

const (
	Closed PickerState = iota
	OpenStart
	OpenEnd
	OpenTime
)

func (s PickerState) String() string {
	switch s {
	case OpenStart:
		return "start_date"
	case OpenEnd:
		return "end_date"
	case OpenTime:
		return "reminder_time"
	}
	return "closed"
}

// Field is the record field the picker writes to.
func (s PickerState) Field() Field {
	switch s {
	case OpenStart:
		return FieldStartDate
	case OpenEnd:
		return FieldEndDate
	case OpenTime:
		return FieldReminderTime
	}
	return ""
}

// PickerFor maps a date/time field to the picker that edits it.
func PickerFor(f Field) (PickerState, bool) {
	switch f {
	case FieldStartDate:
		return OpenStart, true
	case FieldEndDate:
		return OpenEnd, true
	case FieldReminderTime:
		return OpenTime, true
	}
	return Closed, false
}

// InteractionModel is the confirm/cancel protocol of a picker session.
type InteractionModel int

const (
	// ImmediateCommit pickers report one change event that either sets a
	// value or dismisses the picker.
	ImmediateCommit InteractionModel = iota
	// StageThenConfirm pickers stage every change and need an explicit
	// Confirm or Cancel.
	StageThenConfirm
)

func (m InteractionModel) String() string {
	if m == StageThenConfirm {
		return "staged"
	}
	return "immediate"
}

// ParseInteractionModel accepts "immediate" or "staged" (and a few aliases).
func ParseInteractionModel(s string) (InteractionModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "immediate", "immediate_commit", "android":
		return ImmediateCommit, nil
	case "staged", "stage_then_confirm", "confirm", "ios":
		return StageThenConfirm, nil
	}
	return ImmediateCommit, fmt.Errorf("unknown interaction model %q", s)
}

// ChangeKind distinguishes a chosen value from a dismissal.
type ChangeKind int

const (
	ChangeSet ChangeKind = iota
	ChangeDismissed
)

// ChangeEvent is one event from the underlying picker widget.
type ChangeEvent struct {
	Kind  ChangeKind
	Value time.Time
}

// Outcome labels what a picker step did, for observers.
type Outcome string

const (
	OutcomeOpened    Outcome = "opened"
	OutcomeStaged    Outcome = "staged"
	OutcomeCommitted Outcome = "committed"
	OutcomeDismissed Outcome = "dismissed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeRejected  Outcome = "rejected"
)

// Picker makes sure at most one date/time picker is open and resolves the
// interaction model into a single SetField on confirmation.
type Picker struct {
	form *FormStore
	now  func() time.Time

	state  PickerState
	model  InteractionModel
	staged time.Time

	observe func(target PickerState, outcome Outcome)
}

// NewPicker creates a closed picker writing into form.
func NewPicker(form *FormStore, now func() time.Time) *Picker {
	if now == nil {
		now = time.Now
	}
	return &Picker{form: form, now: now}
}

// OnTransition registers fn to be told about every picker step.
func (p *Picker) OnTransition(fn func(target PickerState, outcome Outcome)) {
	p.observe = fn
}

func (p *Picker) State() PickerState      { return p.state }
func (p *Picker) Model() InteractionModel { return p.model }

// Staged returns the staged candidate while a picker is open.
func (p *Picker) Staged() (time.Time, bool) {
	if p.state == Closed {
		return time.Time{}, false
	}
	return p.staged, true
}

// Minimum is the earliest date the open picker accepts, if bounded. The end
// picker's bound is the record's current start date.
func (p *Picker) Minimum() (civil.Date, bool) {
	if p.state != OpenEnd {
		return civil.Date{}, false
	}
	start := p.form.Snapshot().StartDate
	if start == nil {
		return civil.Date{}, false
	}
	return *start, true
}

// Open opens the picker for target. The interaction model is fixed until the
// session closes. Whether the target may be opened at all (the end date needs
// a start date) is the caller's decision.
func (p *Picker) Open(target PickerState, model InteractionModel) error {
	if target == Closed {
		return apperrors.ErrPickerClosed
	}
	if p.state != Closed {
		return apperrors.ErrPickerBusy
	}

	rec := p.form.Snapshot()
	now := p.now()
	loc := now.Location()

	staged := now
	switch target {
	case OpenStart:
		if rec.StartDate != nil {
			staged = rec.StartDate.In(loc)
		}
	case OpenEnd:
		if rec.EndDate != nil {
			staged = rec.EndDate.In(loc)
		} else if rec.StartDate != nil {
			staged = rec.StartDate.In(loc)
		}
	case OpenTime:
		if rec.ReminderTime != nil {
			staged = rec.ReminderTime.On(civil.DateOf(now), loc)
		}
	}

	p.state = target
	p.model = model
	p.staged = staged
	p.notify(target, OutcomeOpened)
	return nil
}

// Change feeds one widget event into the open session.
//
// ImmediateCommit: ChangeSet writes the value and closes, ChangeDismissed
// closes without writing. StageThenConfirm: ChangeSet only replaces the staged
// candidate.
//
// A candidate earlier than the end picker's minimum is refused with
// ErrBeforeMinimum. A staged session stays open with its previous candidate;
// an immediate session closes without writing.
func (p *Picker) Change(ev ChangeEvent) error {
	if p.state == Closed {
		return apperrors.ErrPickerClosed
	}
	target := p.state

	if p.model == StageThenConfirm {
		if ev.Kind == ChangeDismissed {
			return apperrors.ErrPickerModel
		}
		if err := p.checkMinimum(ev.Value); err != nil {
			p.notify(target, OutcomeRejected)
			return err
		}
		p.staged = ev.Value
		p.notify(target, OutcomeStaged)
		return nil
	}

	if ev.Kind == ChangeDismissed {
		p.close()
		p.notify(target, OutcomeDismissed)
		return nil
	}
	if err := p.checkMinimum(ev.Value); err != nil {
		p.close()
		p.notify(target, OutcomeRejected)
		return err
	}
	if err := p.commit(ev.Value); err != nil {
		return err
	}
	p.close()
	p.notify(target, OutcomeCommitted)
	return nil
}

// Confirm writes the staged candidate and closes. StageThenConfirm only.
func (p *Picker) Confirm() error {
	if p.state == Closed {
		return apperrors.ErrPickerClosed
	}
	if p.model != StageThenConfirm {
		return apperrors.ErrPickerModel
	}
	target := p.state

	if err := p.checkMinimum(p.staged); err != nil {
		p.notify(target, OutcomeRejected)
		return err
	}
	if err := p.commit(p.staged); err != nil {
		return err
	}
	p.close()
	p.notify(target, OutcomeCommitted)
	return nil
}

// Cancel closes the open picker without touching the record.
func (p *Picker) Cancel() error {
	if p.state == Closed {
		return apperrors.ErrPickerClosed
	}
	target := p.state
	p.close()
	p.notify(target, OutcomeCancelled)
	return nil
}

// checkMinimum reads the start date at every check, so an end date is only
// ever written against the record it lands in.
func (p *Picker) checkMinimum(v time.Time) error {
	if p.state != OpenEnd {
		return nil
	}
	start := p.form.Snapshot().StartDate
	if start == nil {
		return apperrors.New(apperrors.ErrPickerDisabled.Code, "select a start date before the end date")
	}
	if civil.DateOf(v).Before(*start) {
		return apperrors.New(apperrors.ErrBeforeMinimum.Code,
			fmt.Sprintf("%s is earlier than the start date %s", civil.DateOf(v), start))
	}
	return nil
}

func (p *Picker) commit(v time.Time) error {
	var value any
	switch p.state {
	case OpenStart, OpenEnd:
		value = civil.DateOf(v)
	case OpenTime:
		value = civil.TimeOfDayOf(v)
	}
	_, err := p.form.SetField(p.state.Field(), value)
	return err
}

func (p *Picker) close() {
	p.state = Closed
	p.staged = time.Time{}
}

func (p *Picker) notify(target PickerState, outcome Outcome) {
	if p.observe != nil {
		p.observe(target, outcome)
	}
}
