package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/civil"
	"github.com/gmsas95/medreminder/internal/entry"
	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/medform"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "healthy",
		"version":       version,
		"timestamp":     time.Now().Unix(),
		"form_sessions": s.sessions.len(),
	})
}

func (s *Server) handleOptions(c *fiber.Ctx) error {
	return c.JSON(optionsResponse{
		Catalog:           s.catalog.Get(),
		Fields:            fieldViews(medform.Record{}),
		InteractionModels: []string{medform.ImmediateCommit.String(), medform.StageThenConfirm.String()},
		DefaultModel:      s.config.InteractionModel().String(),
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(errorResponse{Code: apperrors.ErrBadRequest.Code, Error: "invalid request"})
	}

	user := strings.TrimSpace(req.UserID)
	if user == "" {
		return c.Status(400).JSON(errorResponse{Code: apperrors.ErrBadRequest.Code, Error: "user_id is required"})
	}

	token, err := s.accounts.Issue(user)
	if err != nil {
		s.logger.Error("Failed to issue token", zap.Error(err))
		return c.Status(500).JSON(errorResponse{Code: apperrors.ErrInternal.Code, Error: "failed to generate token"})
	}

	return c.JSON(fiber.Map{"token": token, "user_id": user})
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	token := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	if err := s.accounts.Revoke(token); err != nil {
		return s.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ==================== Form sessions ====================

func (s *Server) handleCreateForm(c *fiber.Ctx) error {
	var req createFormRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(errorResponse{Code: apperrors.ErrBadRequest.Code, Error: "invalid request"})
		}
	}

	model := s.config.InteractionModel()
	if req.Model != "" {
		m, err := medform.ParseInteractionModel(req.Model)
		if err != nil {
			return c.Status(400).JSON(errorResponse{Code: apperrors.ErrBadRequest.Code, Error: err.Error()})
		}
		model = m
	}

	user := currentUser(c)
	session := entry.New(c.UserContext(), entry.Options{
		UserID:   user,
		Model:    model,
		Catalog:  s.catalog,
		Notifier: s.outbox,
		Now:      s.now,
		Logger:   s.logger,
		Metrics:  s.metrics,
	})
	fs := s.sessions.add(user, session)

	s.logger.Debug("Form session opened", zap.String("id", fs.id), zap.String("user", user))
	return c.Status(fiber.StatusCreated).JSON(viewOf(fs))
}

// withSession runs fn on the caller's session while holding its lock.
func (s *Server) withSession(c *fiber.Ctx, fn func(fs *formSession) error) error {
	fs, err := s.sessions.get(c.Params("id"), currentUser(c))
	if err != nil {
		return s.writeError(c, err)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fn(fs)
}

func (s *Server) handleGetForm(c *fiber.Ctx) error {
	return s.withSession(c, func(fs *formSession) error {
		return c.JSON(viewOf(fs))
	})
}

func (s *Server) handleLeaveForm(c *fiber.Ctx) error {
	fs, err := s.sessions.remove(c.Params("id"), currentUser(c))
	if err != nil {
		return s.writeError(c, err)
	}
	fs.mu.Lock()
	fs.session.Leave()
	fs.mu.Unlock()
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleSetField(c *fiber.Ctx) error {
	field, ok := medform.ParseField(c.Params("field"))
	if !ok {
		return s.writeError(c, apperrors.New(apperrors.ErrUnknownField.Code, "unknown form field "+c.Params("field")))
	}

	var req fieldRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(errorResponse{Code: apperrors.ErrBadRequest.Code, Error: "invalid request"})
	}
	value := ""
	if req.Value != nil {
		value = *req.Value
	}

	return s.withSession(c, func(fs *formSession) error {
		var err error
		switch {
		case field.IsText():
			if err = s.input.Validate(field, value); err == nil {
				_, err = fs.session.SetField(field, value)
			}
		case field == medform.FieldType:
			_, err = fs.session.SetType(value)
		default:
			err = apperrors.New(apperrors.ErrPickerDisabled.Code, string(field)+" is set through its picker")
		}
		if err != nil {
			return s.writeError(c, err)
		}
		return c.JSON(viewOf(fs))
	})
}

func (s *Server) handleOpenPicker(c *fiber.Ctx) error {
	field, ok := medform.ParseField(c.Params("target"))
	if !ok {
		return s.writeError(c, apperrors.New(apperrors.ErrUnknownField.Code, "unknown picker "+c.Params("target")))
	}

	var req openPickerRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(errorResponse{Code: apperrors.ErrBadRequest.Code, Error: "invalid request"})
		}
	}

	return s.withSession(c, func(fs *formSession) error {
		model := fs.session.Model()
		if req.Model != "" {
			m, err := medform.ParseInteractionModel(req.Model)
			if err != nil {
				return c.Status(400).JSON(errorResponse{Code: apperrors.ErrBadRequest.Code, Error: err.Error()})
			}
			model = m
		}

		opened, err := fs.session.OpenPicker(field, model)
		if err != nil {
			return s.writeError(c, err)
		}
		return c.JSON(fiber.Map{"opened": opened, "form": viewOf(fs)})
	})
}

func (s *Server) handlePickerChange(c *fiber.Ctx) error {
	var req pickerChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(errorResponse{Code: apperrors.ErrBadRequest.Code, Error: "invalid request"})
	}

	ev := medform.ChangeEvent{Kind: medform.ChangeSet, Value: req.Value}
	switch req.Kind {
	case "", "set":
		if req.Value.IsZero() {
			return c.Status(400).JSON(errorResponse{Code: apperrors.ErrBadRequest.Code, Error: "value is required"})
		}
	case "dismissed":
		ev.Kind = medform.ChangeDismissed
	default:
		return c.Status(400).JSON(errorResponse{Code: apperrors.ErrBadRequest.Code, Error: "kind must be set or dismissed"})
	}

	return s.withSession(c, func(fs *formSession) error {
		if err := fs.session.PickerChange(ev); err != nil {
			return s.writeError(c, err)
		}
		return c.JSON(viewOf(fs))
	})
}

func (s *Server) handlePickerConfirm(c *fiber.Ctx) error {
	return s.withSession(c, func(fs *formSession) error {
		if err := fs.session.PickerConfirm(); err != nil {
			return s.writeError(c, err)
		}
		return c.JSON(viewOf(fs))
	})
}

func (s *Server) handlePickerCancel(c *fiber.Ctx) error {
	return s.withSession(c, func(fs *formSession) error {
		if err := fs.session.PickerCancel(); err != nil {
			return s.writeError(c, err)
		}
		return c.JSON(viewOf(fs))
	})
}

func (s *Server) handleUndo(c *fiber.Ctx) error {
	return s.withSession(c, func(fs *formSession) error {
		_, undone, err := fs.session.Undo()
		if err != nil {
			return s.writeError(c, err)
		}
		return c.JSON(fiber.Map{"undone": undone, "form": viewOf(fs)})
	})
}

func (s *Server) handleSubmit(c *fiber.Ctx) error {
	return s.withSession(c, func(fs *formSession) error {
		sub, err := fs.session.Submit(c.UserContext())
		if err != nil {
			return s.writeError(c, err)
		}
		return c.JSON(fiber.Map{"submission": sub, "form": viewOf(fs)})
	})
}

func (s *Server) handleNextTrigger(c *fiber.Ctx) error {
	tod, err := civil.ParseTimeOfDay(c.Query("time"))
	if err != nil {
		return c.Status(400).JSON(errorResponse{Code: apperrors.ErrBadRequest.Code, Error: err.Error()})
	}
	return s.withSession(c, func(fs *formSession) error {
		return c.JSON(fiber.Map{"trigger": fs.session.NextTrigger(tod)})
	})
}

// ==================== Reminders ====================

func (s *Server) handleListReminders(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	reminders, err := s.outbox.List(c.UserContext(), currentUser(c), limit)
	if err != nil {
		s.logger.Error("Failed to list reminders", zap.Error(err))
		return c.Status(500).JSON(errorResponse{Code: apperrors.ErrInternal.Code, Error: "failed to list reminders"})
	}
	return c.JSON(reminders)
}

func (s *Server) handleCancelReminder(c *fiber.Ctx) error {
	r, err := s.outbox.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	if r.UserID != currentUser(c) {
		return s.writeError(c, apperrors.ErrNotFound)
	}
	if err := s.outbox.Cancel(c.UserContext(), r.ID); err != nil {
		return s.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ==================== Helpers ====================

func statusFor(code string) int {
	if strings.HasPrefix(code, "PICKER_") {
		return fiber.StatusConflict
	}
	switch code {
	case apperrors.ErrMissingName.Code, apperrors.ErrMissingStartDate.Code, apperrors.ErrMissingEndDate.Code,
		apperrors.ErrEndBeforeStart.Code, apperrors.ErrMissingReminderTime.Code:
		return fiber.StatusUnprocessableEntity
	case apperrors.ErrUnknownField.Code, apperrors.ErrFieldValue.Code, apperrors.ErrBadRequest.Code:
		return fiber.StatusBadRequest
	case apperrors.ErrSessionNotFound.Code, apperrors.ErrNotFound.Code:
		return fiber.StatusNotFound
	case apperrors.ErrUnauthorized.Code:
		return fiber.StatusUnauthorized
	case apperrors.ErrForbidden.Code:
		return fiber.StatusForbidden
	}
	return fiber.StatusInternalServerError
}

func (s *Server) writeError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		s.logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(500).JSON(errorResponse{Code: apperrors.ErrInternal.Code, Error: "internal error"})
	}

	status := statusFor(appErr.Code)
	if status >= 500 {
		s.logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(errorResponse{Code: appErr.Code, Error: appErr.Message})
}

func fieldViews(rec medform.Record) []fieldView {
	views := make([]fieldView, 0, len(medform.Fields))
	for _, f := range medform.Fields {
		views = append(views, fieldView{
			Field:   f,
			Label:   f.Label(),
			Value:   rec.Display(f),
			Enabled: f != medform.FieldEndDate || rec.StartDate != nil,
		})
	}
	return views
}

func viewOf(fs *formSession) formView {
	rec := fs.session.Record()
	p := fs.session.Picker()

	pv := pickerView{State: p.State().String()}
	if p.State() != medform.Closed {
		pv.Model = p.Model().String()
		if staged, ok := p.Staged(); ok {
			pv.Staged = &staged
		}
		if minimum, ok := p.Minimum(); ok {
			pv.Minimum = &minimum
		}
	}

	return formView{
		ID:         fs.id,
		Model:      fs.session.Model().String(),
		Permission: string(fs.session.Permission()),
		Advisory:   fs.session.Advisory(),
		Record:     rec,
		Fields:     fieldViews(rec),
		Picker:     pv,
	}
}
