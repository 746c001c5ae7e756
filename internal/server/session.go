package server

import (
	"errors"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	localUser   = "user"
	localClaims = "claims"
	// localBearer marks sessions that arrived in the Authorization header.
	localBearer = "bearer"
)

// SessionMiddleware resolves the session token, if any, into the current
// user. Invalid, expired and revoked tokens leave the request anonymous.
func (s *Server) SessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := middleware.TokenFromRequest(c)
		if token == "" {
			return c.Next()
		}

		user, claims, err := s.authService.Authenticate(c.UserContext(), token)
		if err != nil {
			var appErr *models.AppError
			if !errors.As(err, &appErr) || appErr.Code != models.CodeUnauthorized {
				middleware.Logger.WarnContext(c.UserContext(), "Session lookup failed", "error", err)
			}
			if c.Get(fiber.HeaderAuthorization) == "" {
				clearSessionCookie(c, s.config.IsProduction())
			}
			return c.Next()
		}

		c.Locals(localUser, user)
		c.Locals(localClaims, claims)
		c.Locals(localBearer, c.Get(fiber.HeaderAuthorization) != "")
		c.Locals("userID", user.ID)
		middleware.SyncUserContext(c)
		return c.Next()
	}
}

// currentUser is the authenticated user of the request, nil when anonymous.
func currentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localUser).(*models.User)
	return u
}

func currentClaims(c *fiber.Ctx) *middleware.SessionClaims {
	claims, _ := c.Locals(localClaims).(*middleware.SessionClaims)
	return claims
}

func viewerID(c *fiber.Ctx) uint {
	if u := currentUser(c); u != nil {
		return u.ID
	}
	return 0
}

// LoginRequired redirects anonymous visitors to the login page, coming back
// to the requested URL afterwards.
func (s *Server) LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) == nil {
			return c.Redirect(service.LoginURL(c.OriginalURL()))
		}
		return c.Next()
	}
}

// AuthRequired rejects API calls without a bearer session. Cookie sessions
// are not accepted here because the API is exempt from CSRF checks.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		bearer, _ := c.Locals(localBearer).(bool)
		if currentUser(c) == nil || !bearer {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		return c.Next()
	}
}

func setSessionCookie(c *fiber.Ctx, session *service.Session, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.Claims.ExpiresAt,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearSessionCookie(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
