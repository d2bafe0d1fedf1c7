package api

import (
	"strings"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Security.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	s.app.Use(s.metricsMiddleware())

	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))

	api := s.app.Group("/api")

	api.Get("/options", s.handleOptions)
	api.Post("/auth/login", s.handleLogin)

	protected := api.Use(s.authMiddleware())

	protected.Post("/auth/logout", s.handleLogout)

	protected.Post("/forms", s.handleCreateForm)
	protected.Get("/forms/:id", s.handleGetForm)
	protected.Delete("/forms/:id", s.handleLeaveForm)
	protected.Put("/forms/:id/fields/:field", s.handleSetField)
	protected.Post("/forms/:id/pickers/:target", s.handleOpenPicker)
	protected.Post("/forms/:id/picker/change", s.handlePickerChange)
	protected.Post("/forms/:id/picker/confirm", s.handlePickerConfirm)
	protected.Post("/forms/:id/picker/cancel", s.handlePickerCancel)
	protected.Post("/forms/:id/undo", s.handleUndo)
	protected.Post("/forms/:id/submit", s.handleSubmit)
	protected.Get("/forms/:id/next-trigger", s.handleNextTrigger)

	protected.Get("/reminders", s.handleListReminders)
	protected.Delete("/reminders/:id", s.handleCancelReminder)
}
