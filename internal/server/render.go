package server

import (
	"bytes"
	"errors"
	"time"

	"yatube/internal/models"
	"yatube/internal/web"

	"github.com/gofiber/fiber/v2"
)

const (
	csrfFormField  = "_csrf"
	csrfContextKey = "csrf"
)

// viewData merges the per-request values every page needs into data.
func (s *Server) viewData(c *fiber.Ctx, data fiber.Map) fiber.Map {
	out := fiber.Map{
		"viewer_id": viewerID(c),
		"year":      time.Now().Year(),
		"flags":     map[string]bool{},
	}
	if token, ok := c.Locals(csrfContextKey).(string); ok {
		out["csrf"] = token
	}
	if user := currentUser(c); user != nil {
		out["user"] = user
		out["flags"] = s.featureFlags.For(user.ID)
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}

func (s *Server) render(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	return c.Status(status).Render(name, s.viewData(c, data))
}

// renderToBytes renders a full page without writing the response, for the page cache.
func (s *Server) renderToBytes(c *fiber.Ctx, name string, data fiber.Map) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.views.Render(&buf, name, s.viewData(c, data), web.Layout); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) staticPage(name, title string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return s.render(c, fiber.StatusOK, name, fiber.Map{"title": title})
	}
}

// asFieldErrors extracts form field errors from err.
func asFieldErrors(err error) (models.FieldErrors, bool) {
	var fe models.FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

type postFormView struct {
	Text   string
	Group  string
	Errors models.FieldErrors
}

type commentFormView struct {
	Text   string
	Errors models.FieldErrors
}

type signupFormView struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Errors    models.FieldErrors
}

type loginFormView struct {
	Username string
	Errors   models.FieldErrors
}
