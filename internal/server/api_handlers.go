package server

import (
	"strconv"
	"time"

	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UserResponse is the public part of an account.
type UserResponse struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// PostResponse is a post as exposed by the API. Author and group are
// referenced by username and slug.
type PostResponse struct {
	ID      uint      `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Group   string    `json:"group,omitempty"`
	Image   string    `json:"image,omitempty"`
	PubDate time.Time `json:"pub_date"`
}

// PostPageResponse is one page of posts.
type PostPageResponse struct {
	Count       int64          `json:"count"`
	NumPages    int            `json:"num_pages"`
	Page        int            `json:"page"`
	HasNext     bool           `json:"has_next"`
	HasPrevious bool           `json:"has_previous"`
	Results     []PostResponse `json:"results"`
}

type CommentResponse struct {
	ID      uint      `json:"id"`
	Post    uint      `json:"post"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	Created time.Time `json:"created"`
}

type GroupResponse struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type ProfileResponse struct {
	User      UserResponse `json:"user"`
	PostsNum  int64        `json:"posts_num"`
	Followers int64        `json:"followers"`
	Following int64        `json:"following"`
	// ViewerFollows is only present for authenticated callers.
	ViewerFollows *bool `json:"viewer_follows,omitempty"`
}

type FollowResponse struct {
	Author    string `json:"author"`
	Following bool   `json:"following"`
}

// PostRequest is the body of post create and update calls.
type PostRequest struct {
	Text  string `json:"text" form:"text"`
	Group *uint  `json:"group,omitempty" form:"group"`
}

type CommentRequest struct {
	Text string `json:"text" form:"text"`
}

type SignupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
}

func toPostResponse(p *models.Post) PostResponse {
	out := PostResponse{
		ID:      p.ID,
		Text:    p.Text,
		Author:  p.Author.Username,
		Image:   p.ImageURL(),
		PubDate: p.CreatedAt,
	}
	if p.Group != nil {
		out.Group = p.Group.Slug
	}
	return out
}

func toPostPageResponse(page *service.PostPage) PostPageResponse {
	out := PostPageResponse{
		Count:       page.Count,
		NumPages:    page.NumPages,
		Page:        page.Number,
		HasNext:     page.HasNext(),
		HasPrevious: page.HasPrevious(),
		Results:     make([]PostResponse, 0, len(page.Items)),
	}
	for i := range page.Items {
		out.Results = append(out.Results, toPostResponse(&page.Items[i]))
	}
	return out
}

func toCommentResponse(cm *models.Comment) CommentResponse {
	return CommentResponse{
		ID:      cm.ID,
		Post:    cm.PostID,
		Author:  cm.Author.Username,
		Text:    cm.Text,
		Created: cm.CreatedAt,
	}
}

func toAuthResponse(session *service.Session) AuthResponse {
	return AuthResponse{
		Token:     session.Token,
		ExpiresAt: session.Claims.ExpiresAt,
		User:      toUserResponse(session.User),
	}
}

func (r PostRequest) input() service.PostInput {
	in := service.PostInput{Text: r.Text}
	if r.Group != nil {
		in.Group = strconv.FormatUint(uint64(*r.Group), 10)
	}
	return in
}

// APISignup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new account and open a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup request"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) APISignup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	session, err := s.authService.Signup(c.UserContext(), service.SignupInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
	})
	if err != nil {
		return apiError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toAuthResponse(session))
}

// APILogin handles POST /api/auth/login
// @Summary User login
// @Description Authenticate and return a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) APILogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	session, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(toAuthResponse(session))
}

// APILogout handles POST /api/auth/logout
// @Summary Logout
// @Description Revoke the current session token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) APILogout(c *fiber.Ctx) error {
	if err := s.authService.Logout(c.UserContext(), currentClaims(c)); err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// APIListPosts handles GET /api/posts
// @Summary List posts
// @Description All posts, newest first, ten per page
// @Tags posts
// @Produce json
// @Param page query int false "Page number"
// @Success 200 {object} PostPageResponse
// @Router /posts [get]
func (s *Server) APIListPosts(c *fiber.Ctx) error {
	page, err := s.listing.Index(c.UserContext(), c.Query("page"))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(toPostPageResponse(page))
}

// APIGetPost handles GET /api/posts/:id
// @Summary Get post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} PostResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) APIGetPost(c *fiber.Ctx) error {
	id, err := apiIDParam(c)
	if err != nil {
		return apiError(c, err)
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(toPostResponse(post))
}

// APICreatePost handles POST /api/posts
// @Summary Create post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PostRequest true "Post"
// @Success 201 {object} PostResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) APICreatePost(c *fiber.Ctx) error {
	var req PostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	in := req.input()
	upload, err := readImageUpload(c, s.images.MaxUploadBytes())
	if err != nil {
		return apiError(c, err)
	}
	in.Image = upload

	post, err := s.postService.CreatePost(c.UserContext(), currentUser(c), in)
	if err != nil {
		return apiError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toPostResponse(post))
}

// APIUpdatePost handles PUT /api/posts/:id
// @Summary Update post
// @Description Only the author may update a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body PostRequest true "Post"
// @Success 200 {object} PostResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) APIUpdatePost(c *fiber.Ctx) error {
	id, err := apiIDParam(c)
	if err != nil {
		return apiError(c, err)
	}
	var req PostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	post, err := s.postService.EditPost(c.UserContext(), currentUser(c), id, req.input())
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(toPostResponse(post))
}

// APIListComments handles GET /api/posts/:id/comments
// @Summary List comments
// @Description Every comment on a post, oldest first
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} CommentResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [get]
func (s *Server) APIListComments(c *fiber.Ctx) error {
	id, err := apiIDParam(c)
	if err != nil {
		return apiError(c, err)
	}
	comments, err := s.commentService.ListComments(c.UserContext(), id)
	if err != nil {
		return apiError(c, err)
	}
	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, toCommentResponse(&comments[i]))
	}
	return c.JSON(out)
}

// APICreateComment handles POST /api/posts/:id/comments
// @Summary Add comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body CommentRequest true "Comment"
// @Success 201 {object} CommentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [post]
func (s *Server) APICreateComment(c *fiber.Ctx) error {
	id, err := apiIDParam(c)
	if err != nil {
		return apiError(c, err)
	}
	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	comment, err := s.commentService.AddComment(c.UserContext(), currentUser(c), id, req.Text)
	if err != nil {
		return apiError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toCommentResponse(comment))
}

// APIListGroups handles GET /api/groups
// @Summary List groups
// @Tags groups
// @Produce json
// @Success 200 {array} GroupResponse
// @Router /groups [get]
func (s *Server) APIListGroups(c *fiber.Ctx) error {
	groups, err := s.listing.Groups(c.UserContext())
	if err != nil {
		return apiError(c, err)
	}
	out := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupResponse{ID: g.ID, Title: g.Title, Slug: g.Slug, Description: g.Description})
	}
	return c.JSON(out)
}

// APIGroupPosts handles GET /api/groups/:slug/posts
// @Summary List group posts
// @Tags groups
// @Produce json
// @Param slug path string true "Group slug"
// @Param page query int false "Page number"
// @Success 200 {object} PostPageResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /groups/{slug}/posts [get]
func (s *Server) APIGroupPosts(c *fiber.Ctx) error {
	_, page, err := s.listing.Group(c.UserContext(), c.Params("slug"), c.Query("page"))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(toPostPageResponse(page))
}

// APIGetProfile handles GET /api/profiles/:username
// @Summary Get profile
// @Tags profiles
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} ProfileResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{username} [get]
func (s *Server) APIGetProfile(c *fiber.Ctx) error {
	viewer := currentUser(c)
	view, err := s.listing.Profile(c.UserContext(), viewer, c.Params("username"), "1")
	if err != nil {
		return apiError(c, err)
	}
	out := ProfileResponse{
		User:      toUserResponse(view.Author),
		PostsNum:  view.PostsNum,
		Followers: view.Followers,
		Following: view.Following,
	}
	if viewer != nil {
		follows := view.ViewerFollows
		out.ViewerFollows = &follows
	}
	return c.JSON(out)
}

// APIFeed handles GET /api/follow
// @Summary Followed authors feed
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Success 200 {object} PostPageResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /follow [get]
func (s *Server) APIFeed(c *fiber.Ctx) error {
	page, err := s.listing.Feed(c.UserContext(), currentUser(c), c.Query("page"))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(toPostPageResponse(page))
}

// APIFollow handles POST /api/profiles/:username/follow
// @Summary Follow author
// @Description Idempotent. Following yourself is accepted and stores nothing.
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} FollowResponse
// @Success 201 {object} FollowResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{username}/follow [post]
func (s *Server) APIFollow(c *fiber.Ctx) error {
	user := currentUser(c)
	author, created, err := s.followService.Follow(c.UserContext(), user, c.Params("username"))
	if err != nil {
		return apiError(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(FollowResponse{Author: author.Username, Following: author.ID != user.ID})
}

// APIUnfollow handles DELETE /api/profiles/:username/follow
// @Summary Unfollow author
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} FollowResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{username}/follow [delete]
func (s *Server) APIUnfollow(c *fiber.Ctx) error {
	author, err := s.followService.Unfollow(c.UserContext(), currentUser(c), c.Params("username"))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(FollowResponse{Author: author.Username, Following: false})
}
