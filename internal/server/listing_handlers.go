package server

import (
	"yatube/internal/cache"

	"github.com/gofiber/fiber/v2"
)

const indexPage = "index"

// Index handles GET /. The rendered page is cached per viewer and URL for
// the configured TTL; writes never evict it.
func (s *Server) Index(c *fiber.Ctx) error {
	ctx := c.UserContext()
	key := cache.PageKey(indexPage, viewerID(c), c.OriginalURL())

	if body, ok := s.pageCache.Get(ctx, indexPage, key); ok {
		c.Type("html", "utf-8")
		return c.Send(body)
	}

	page, err := s.listing.Index(ctx, c.Query("page"))
	if err != nil {
		return err
	}
	body, err := s.renderToBytes(c, "posts/index", fiber.Map{
		"title":    "Последние обновления на сайте",
		"page_obj": page,
		"index":    true,
	})
	if err != nil {
		return err
	}
	s.pageCache.Set(ctx, key, body)

	c.Type("html", "utf-8")
	return c.Send(body)
}

// GroupList handles GET /groups/
func (s *Server) GroupList(c *fiber.Ctx) error {
	groups, err := s.listing.Groups(c.UserContext())
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "posts/groups", fiber.Map{
		"title":  "Сообщества",
		"groups": groups,
	})
}

// GroupPosts handles GET /group/:slug/
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	group, page, err := s.listing.Group(c.UserContext(), c.Params("slug"), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "posts/group_list", fiber.Map{
		"title":    "Записи сообщества " + group.Title,
		"group":    group,
		"page_obj": page,
	})
}

// Profile handles GET /profile/:username/
func (s *Server) Profile(c *fiber.Ctx) error {
	view, err := s.listing.Profile(c.UserContext(), currentUser(c), c.Params("username"), c.Query("page"))
	if err != nil {
		return err
	}
	data := fiber.Map{
		"title":           "Профайл пользователя " + view.Author.Username,
		"author":          view.Author,
		"posts_num":       view.PostsNum,
		"page_obj":        view.Page,
		"followers":       view.Followers,
		"following_count": view.Following,
		"is_self":         view.IsSelf,
	}
	if currentUser(c) != nil {
		data["following"] = view.ViewerFollows
	}
	return s.render(c, fiber.StatusOK, "posts/profile", data)
}

// PostDetail handles GET /posts/:id/
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := postIDParam(c)
	if err != nil {
		return err
	}
	return s.renderPostDetail(c, id, commentFormView{}, fiber.StatusOK)
}

func (s *Server) renderPostDetail(c *fiber.Ctx, id uint, form commentFormView, status int) error {
	detail, err := s.listing.PostDetail(c.UserContext(), id)
	if err != nil {
		return err
	}
	return s.render(c, status, "posts/post_detail", fiber.Map{
		"title":     "Пост " + detail.Post.Title(),
		"post":      detail.Post,
		"posts_num": detail.PostsNum,
		"comments":  detail.Comments,
		"form":      form,
	})
}

// FollowIndex handles GET /follow/, the feed of followed authors.
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	page, err := s.listing.Feed(c.UserContext(), currentUser(c), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "posts/follow", fiber.Map{
		"title":    "Ваши подписки",
		"page_obj": page,
		"follow":   true,
	})
}
