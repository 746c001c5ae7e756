package server

import (
	"errors"
	"strconv"

	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePostForm handles GET /create/
func (s *Server) CreatePostForm(c *fiber.Ctx) error {
	if currentUser(c) == nil {
		return c.Redirect("/")
	}
	return s.renderPostForm(c, postFormView{}, false, "/create/")
}

// CreatePost handles POST /create/. Anonymous submissions are dropped
// with a redirect to the index.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return c.Redirect("/")
	}

	in, form, err := s.postInput(c)
	if err != nil {
		return err
	}
	if _, err := s.postService.CreatePost(c.UserContext(), user, in); err != nil {
		if fe, ok := asFieldErrors(err); ok {
			form.Errors = fe
			return s.renderPostForm(c, form, false, "/create/")
		}
		return err
	}
	return c.Redirect(service.ProfileURL(user.Username))
}

// EditPostForm handles GET /posts/:id/edit/. Only the author sees the form;
// everyone else is sent back to the post.
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	id, err := postIDParam(c)
	if err != nil {
		return err
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !service.CanEdit(currentUser(c), post) {
		return c.Redirect(service.PostURL(id))
	}

	form := postFormView{Text: post.Text}
	if post.GroupID != nil {
		form.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	return s.renderPostForm(c, form, true, service.PostEditURL(id))
}

// EditPost handles POST /posts/:id/edit/
func (s *Server) EditPost(c *fiber.Ctx) error {
	id, err := postIDParam(c)
	if err != nil {
		return err
	}

	in, form, err := s.postInput(c)
	if err != nil {
		return err
	}
	if _, err := s.postService.EditPost(c.UserContext(), currentUser(c), id, in); err != nil {
		if errors.Is(err, service.ErrNotAuthor) {
			return c.Redirect(service.PostURL(id))
		}
		if fe, ok := asFieldErrors(err); ok {
			form.Errors = fe
			return s.renderPostForm(c, form, true, service.PostEditURL(id))
		}
		return err
	}
	return c.Redirect(service.PostURL(id))
}

func (s *Server) postInput(c *fiber.Ctx) (service.PostInput, postFormView, error) {
	form := postFormView{Text: c.FormValue("text"), Group: c.FormValue("group")}
	upload, err := readImageUpload(c, s.images.MaxUploadBytes())
	if err != nil {
		return service.PostInput{}, form, err
	}
	return service.PostInput{Text: form.Text, Group: form.Group, Image: upload}, form, nil
}

func (s *Server) renderPostForm(c *fiber.Ctx, form postFormView, isEdit bool, action string) error {
	groups, err := s.listing.Groups(c.UserContext())
	if err != nil {
		return err
	}
	title := "Новый пост"
	if isEdit {
		title = "Редактировать пост"
	}
	return s.render(c, fiber.StatusOK, "posts/create_post", fiber.Map{
		"title":   title,
		"form":    form,
		"groups":  groups,
		"is_edit": isEdit,
		"action":  action,
	})
}

// AddComment handles POST /posts/:id/comment/
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := postIDParam(c)
	if err != nil {
		return err
	}

	text := c.FormValue("text")
	if _, err := s.commentService.AddComment(c.UserContext(), currentUser(c), id, text); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeUnauthorized {
			return c.Redirect(service.LoginURL(c.OriginalURL()))
		}
		if fe, ok := asFieldErrors(err); ok {
			return s.renderPostDetail(c, id, commentFormView{Text: text, Errors: fe}, fiber.StatusOK)
		}
		return err
	}
	return c.Redirect(service.PostURL(id))
}

// CommentRedirect handles GET /posts/:id/comment/, which has nothing to show.
func (s *Server) CommentRedirect(c *fiber.Ctx) error {
	id, err := postIDParam(c)
	if err != nil {
		return err
	}
	return c.Redirect(service.PostURL(id))
}
