package server

import (
	"errors"
	"strings"

	"yatube/internal/middleware"
	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
)

func isAPIRequest(c *fiber.Ctx) bool {
	p := c.Path()
	return p == "/api" || strings.HasPrefix(p, "/api/")
}

// errorStatus maps a handler error onto an HTTP status.
func errorStatus(err error) int {
	var fe *fiber.Error
	var appErr *models.AppError
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &appErr):
		return appErr.Status()
	}
	if _, ok := asFieldErrors(err); ok {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders the custom 404 and 500 pages for the site and
// ErrorResponse JSON for the API.
func (s *Server) ErrorHandler(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "Unhandled error",
			"method", c.Method(), "path", c.Path(), "error", err)
	}

	if isAPIRequest(c) {
		if status >= fiber.StatusInternalServerError {
			err = models.NewInternalError(err)
		}
		return models.RespondWithError(c, status, err)
	}

	var page string
	switch {
	case status == fiber.StatusNotFound:
		page = "core/404"
	case status >= fiber.StatusInternalServerError:
		page = "core/500"
	default:
		return c.Status(status).SendString(err.Error())
	}

	data := fiber.Map{"path": c.Path()}
	if rerr := s.render(c, status, page, data); rerr != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "Error page failed to render", "page", page, "error", rerr)
		return c.Status(status).SendString(fiber.ErrInternalServerError.Message)
	}
	return nil
}

func (s *Server) csrfFailure(c *fiber.Ctx, err error) error {
	middleware.Logger.WarnContext(c.UserContext(), "CSRF verification failed", "path", c.Path(), "error", err)
	return s.render(c, fiber.StatusForbidden, "core/403csrf", fiber.Map{"path": c.Path()})
}

func (s *Server) tooManyRequests(c *fiber.Ctx) error {
	if isAPIRequest(c) {
		return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
			Error: "Too many requests, please try again later.",
		})
	}
	return c.Status(fiber.StatusTooManyRequests).SendString("Слишком много запросов, попробуйте позже.")
}
