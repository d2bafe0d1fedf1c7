package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const userKey = "user"

func (s *Server) authMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth == "" {
			return c.Status(401).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenString := strings.TrimPrefix(auth, "Bearer ")
		user, err := s.accounts.Verify(tokenString)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "invalid token"})
		}

		c.Locals(userKey, user)
		return c.Next()
	}
}

func (s *Server) metricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		s.metrics.ObserveRequest(c.Route().Path, status, time.Since(start))
		return err
	}
}

func currentUser(c *fiber.Ctx) string {
	user, _ := c.Locals(userKey).(string)
	return user
}
