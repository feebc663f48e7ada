package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/sheetsift/internal/converter"
	"github.com/insightdelivered/sheetsift/internal/logger"
)

// HeaderRequestID carries the request id in and out.
const HeaderRequestID = "X-Request-ID"

// NewApp builds the fiber application with panic recovery, request
// logging and all API routes. A nil session store gets an in-memory one.
func NewApp(h *Handler, bodyLimit int) *fiber.App {
	if h.Sessions == nil {
		h.Sessions = session.New(session.Config{
			Expiration:     time.Hour,
			CookieHTTPOnly: true,
			CookieSameSite: fiber.CookieSameSiteLaxMode,
		})
	}

	app := fiber.New(fiber.Config{
		AppName:               "sheetsift",
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(h.Log),
	})
	app.Use(recover.New())
	app.Use(RequestLogger(h.Log))
	h.RegisterRoutes(app)
	return app
}

// RequestLogger tags every request with an id (X-Request-ID, generated
// when absent), attaches a request-scoped logger to the user context and
// logs method, path, status and duration.
func RequestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(HeaderRequestID, id)

		reqLog := log.With().Str("request_id", id).Logger()
		c.SetUserContext(logger.WithContext(c.UserContext(), reqLog))

		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		reqLog.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("request")
		return err
	}
}

// errorHandler renders errors that escape the handlers (unknown routes,
// oversized bodies, recovered panics) in the usual JSON shape.
func errorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		}
		return c.Status(code).JSON(AnalyzeResponse{
			Success: false,
			Error:   converter.GenericMessage,
			Detail:  err.Error(),
		})
	}
}
