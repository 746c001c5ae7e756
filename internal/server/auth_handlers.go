package server

import (
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SignupForm handles GET /auth/signup/
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return s.renderSignup(c, signupFormView{})
}

// Signup handles POST /auth/signup/. A new account is logged in straight away.
func (s *Server) Signup(c *fiber.Ctx) error {
	form := signupFormView{
		Username:  c.FormValue("username"),
		Email:     c.FormValue("email"),
		FirstName: c.FormValue("first_name"),
		LastName:  c.FormValue("last_name"),
	}
	session, err := s.authService.Signup(c.UserContext(), service.SignupInput{
		Username:        form.Username,
		Email:           form.Email,
		Password:        c.FormValue("password1"),
		PasswordConfirm: c.FormValue("password2"),
		FirstName:       form.FirstName,
		LastName:        form.LastName,
	})
	if err != nil {
		if fe, ok := asFieldErrors(err); ok {
			form.Errors = fe
			return s.renderSignup(c, form)
		}
		return err
	}
	setSessionCookie(c, session, s.config.IsProduction())
	middleware.Logger.InfoContext(c.UserContext(), "User signed up", "user_id", session.User.ID)
	return c.Redirect("/")
}

func (s *Server) renderSignup(c *fiber.Ctx, form signupFormView) error {
	return s.render(c, fiber.StatusOK, "users/signup", fiber.Map{
		"title": "Зарегистрироваться",
		"form":  form,
	})
}

// LoginForm handles GET /auth/login/
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.renderLogin(c, loginFormView{}, c.Query("next"))
}

// Login handles POST /auth/login/ and returns to ?next= on success.
func (s *Server) Login(c *fiber.Ctx) error {
	next := c.FormValue("next", c.Query("next"))
	form := loginFormView{Username: c.FormValue("username")}

	session, err := s.authService.Login(c.UserContext(), form.Username, c.FormValue("password"))
	if err != nil {
		if errorStatus(err) == fiber.StatusUnauthorized {
			form.Errors = models.FieldErrors{"__all__": service.MsgInvalidCredentials}
			return s.renderLogin(c, form, next)
		}
		return err
	}
	setSessionCookie(c, session, s.config.IsProduction())
	return c.Redirect(safeNext(next))
}

func (s *Server) renderLogin(c *fiber.Ctx, form loginFormView, next string) error {
	return s.render(c, fiber.StatusOK, "users/login", fiber.Map{
		"title": "Войти",
		"form":  form,
		"next":  next,
	})
}

// Logout handles GET /auth/logout/. The session token is revoked, not just
// dropped from the browser.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.authService.Logout(c.UserContext(), currentClaims(c)); err != nil {
		return err
	}
	clearSessionCookie(c, s.config.IsProduction())
	c.Locals(localUser, nil)
	c.Locals(localClaims, nil)
	return s.render(c, fiber.StatusOK, "users/logged_out", fiber.Map{"title": "Вы вышли из системы"})
}
