package middleware

import (
	"github.com/deployra/docsync/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RequestLogger binds a request scoped zerolog logger to the user context
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(fiber.HeaderXRequestID, requestID)

		logger := log.With().
			Str("request_id", requestID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("client_ip", utils.GetClientIP(c)).
			Logger()
		c.SetUserContext(logger.WithContext(c.UserContext()))
		return c.Next()
	}
}
