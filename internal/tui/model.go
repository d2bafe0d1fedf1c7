// Package tui hosts the Bubble Tea program for the medication entry screen.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gmsas95/medreminder/internal/entry"
	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/medform"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	labelStyle    = lipgloss.NewStyle().Width(18)
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	placeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	pickerStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).BorderForeground(lipgloss.Color("39"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

type statusKind int

const (
	statusNone statusKind = iota
	statusInfo
	statusWarn
	statusError
)

// Model is the entry screen. It drives one entry.Session; the session must
// use the StageThenConfirm picker model.
type Model struct {
	ctx     context.Context
	session *entry.Session

	cursor  int
	editing bool
	input   textinput.Model

	status     string
	statusKind statusKind
	last       *entry.Submission
	quitting   bool
}

// New creates the screen model for session.
func New(ctx context.Context, session *entry.Session) *Model {
	in := textinput.New()
	in.CharLimit = 120
	in.Width = 40

	m := &Model{ctx: ctx, session: session, input: in}
	if adv := session.Advisory(); adv != "" {
		m.setStatus(adv, statusWarn)
	}
	return m
}

// Run shows the screen until the user quits and returns the last accepted
// submission, if any.
func Run(ctx context.Context, session *entry.Session) (*entry.Submission, error) {
	m := New(ctx, session)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return nil, err
	}
	return m.last, nil
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) setStatus(msg string, kind statusKind) {
	m.status = msg
	m.statusKind = kind
}

func (m *Model) field() medform.Field {
	return medform.Fields[m.cursor]
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if key.String() == "ctrl+c" {
		return m.quit()
	}

	switch {
	case m.session.Picker().State() != medform.Closed:
		m.updatePicker(key)
		return m, nil
	case m.editing:
		return m.updateEditing(key)
	}

	switch key.String() {
	case "q":
		return m.quit()
	case "up", "k", "shift+tab":
		m.cursor = (m.cursor + len(medform.Fields) - 1) % len(medform.Fields)
	case "down", "j", "tab":
		m.cursor = (m.cursor + 1) % len(medform.Fields)
	case "t":
		m.cycleType()
	case "u":
		if _, ok, err := m.session.Undo(); err != nil {
			m.setStatus(message(err), statusError)
		} else if ok {
			m.setStatus("Undone.", statusInfo)
		}
	case "ctrl+s":
		m.submit()
	case "enter", " ":
		return m.activate()
	}
	return m, nil
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.session.Leave()
	m.quitting = true
	return m, tea.Quit
}

// activate is a tap on the focused field.
func (m *Model) activate() (tea.Model, tea.Cmd) {
	f := m.field()
	switch {
	case f.IsText():
		m.editing = true
		m.input.Placeholder = f.Label()
		m.input.SetValue(m.session.Record().Text(f))
		m.input.CursorEnd()
		return m, m.input.Focus()
	case f == medform.FieldType:
		m.cycleType()
	default:
		opened, err := m.session.TapField(f)
		if err != nil {
			m.setStatus(message(err), statusError)
		} else if !opened {
			m.setStatus("Select a start date first.", statusInfo)
		} else {
			m.setStatus("", statusNone)
		}
	}
	return m, nil
}

func (m *Model) cycleType() {
	if _, err := m.session.CycleType(); err != nil {
		m.setStatus(message(err), statusError)
	}
}

func (m *Model) updateEditing(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "enter":
		if _, err := m.session.SetField(m.field(), m.input.Value()); err != nil {
			m.setStatus(message(err), statusError)
		}
		m.stopEditing()
		return m, nil
	case "esc":
		m.stopEditing()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m *Model) stopEditing() {
	m.editing = false
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) updatePicker(key tea.KeyMsg) {
	p := m.session.Picker()
	staged, _ := p.Staged()
	isTime := p.State() == medform.OpenTime

	var next time.Time
	switch key.String() {
	case "enter":
		m.report(m.session.PickerConfirm())
		return
	case "esc":
		m.report(m.session.PickerCancel())
		return
	case "left", "h":
		next = step(staged, isTime, -1, false)
	case "right", "l":
		next = step(staged, isTime, 1, false)
	case "up", "k":
		next = step(staged, isTime, 1, true)
	case "down", "j":
		next = step(staged, isTime, -1, true)
	default:
		return
	}
	m.report(m.session.PickerChange(medform.ChangeEvent{Kind: medform.ChangeSet, Value: next}))
}

// step moves a staged candidate. Dates move by a day, or a week with coarse.
// Times move by 15 minutes, or an hour with coarse.
func step(t time.Time, isTime bool, dir int, coarse bool) time.Time {
	switch {
	case isTime && coarse:
		return t.Add(time.Duration(dir) * time.Hour)
	case isTime:
		return t.Add(time.Duration(dir) * 15 * time.Minute)
	case coarse:
		return t.AddDate(0, 0, 7*dir)
	}
	return t.AddDate(0, 0, dir)
}

func (m *Model) report(err error) {
	if err != nil {
		m.setStatus(message(err), statusError)
		return
	}
	m.setStatus("", statusNone)
}

func (m *Model) submit() {
	sub, err := m.session.Submit(m.ctx)
	if err != nil {
		m.setStatus(message(err), statusError)
		return
	}
	m.last = sub
	m.cursor = 0
	if sub.Advisory != "" {
		m.setStatus(sub.Message+" "+sub.Advisory, statusWarn)
		return
	}
	m.setStatus(sub.Message+" Next reminder "+sub.Payload.TriggerInstant.Format("Mon Jan 2 15:04")+".", statusInfo)
}

func message(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Add Medication"))
	b.WriteString("\n\n")

	rec := m.session.Record()
	for i, f := range medform.Fields {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}

		var value string
		switch {
		case m.editing && i == m.cursor:
			value = m.input.View()
		case f == medform.FieldEndDate && rec.StartDate == nil:
			value = disabledStyle.Render("select a start date first")
		case rec.Display(f) == "":
			value = placeStyle.Render(f.Label())
		default:
			value = valueStyle.Render(rec.Display(f))
		}
		fmt.Fprintf(&b, "%s%s%s\n", cursor, labelStyle.Render(f.Label()), value)
	}

	if p := m.session.Picker(); p.State() != medform.Closed {
		b.WriteString("\n")
		b.WriteString(pickerStyle.Render(m.pickerView(p)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch m.statusKind {
	case statusError:
		b.WriteString(errorStyle.Render(m.status))
	case statusWarn:
		b.WriteString(warnStyle.Render(m.status))
	case statusInfo:
		b.WriteString(okStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m *Model) pickerView(p *medform.Picker) string {
	staged, _ := p.Staged()
	f := p.State().Field()

	value := staged.Format("Mon 2006-01-02")
	hint := "←/→ day  ↑/↓ week"
	if p.State() == medform.OpenTime {
		value = staged.Format("15:04")
		hint = "←/→ 15 min  ↑/↓ hour"
	}

	lines := []string{f.Label() + ": " + value}
	if minimum, ok := p.Minimum(); ok {
		lines = append(lines, helpStyle.Render("not before "+minimum.String()))
	}
	lines = append(lines, helpStyle.Render(hint+"  enter confirm  esc cancel"))
	return strings.Join(lines, "\n")
}

func (m *Model) help() string {
	switch {
	case m.session.Picker().State() != medform.Closed:
		return ""
	case m.editing:
		return "enter save • esc discard"
	}
	return "↑/↓ move • enter edit • t type • u undo • ctrl+s save • q quit"
}
