package server

import (
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ProfileFollow handles GET /profile/:username/follow/. Following twice or
// following yourself changes nothing.
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	author, _, err := s.followService.Follow(c.UserContext(), currentUser(c), c.Params("username"))
	if err != nil {
		return err
	}
	return c.Redirect(service.ProfileURL(author.Username))
}

// ProfileUnfollow handles GET /profile/:username/unfollow/
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	author, err := s.followService.Unfollow(c.UserContext(), currentUser(c), c.Params("username"))
	if err != nil {
		return err
	}
	return c.Redirect(service.ProfileURL(author.Username))
}
