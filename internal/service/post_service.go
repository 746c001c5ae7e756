// Package service holds the business rules behind the web and API handlers.
package service

import (
	"context"
	"errors"

	"yatube/internal/featureflags"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/notifications"
	"yatube/internal/repository"
	"yatube/internal/validation"
)

// ImageStore persists uploaded post images and returns their media path.
type ImageStore interface {
	Store(ctx context.Context, in ImageUpload) (rel string, created bool, err error)
	Remove(rel string) error
}

// FeedPublisher delivers live feed events to a set of users.
type FeedPublisher interface {
	PublishEvent(ctx context.Context, recipients []uint, event notifications.FeedEvent) error
}

type PostService struct {
	postRepo   repository.PostRepository
	groupRepo  repository.GroupRepository
	followRepo repository.FollowRepository
	images     ImageStore
	feed       FeedPublisher
	flags      *featureflags.Manager
}

// PostInput is a submitted post form. Group is the raw select value.
type PostInput struct {
	Text  string
	Group string
	Image *ImageUpload
}

// ErrNotAuthor is returned when someone other than the author edits a post.
var ErrNotAuthor = models.NewForbiddenError("only the author can edit this post")

func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	followRepo repository.FollowRepository,
	images ImageStore,
	feed FeedPublisher,
	flags *featureflags.Manager,
) *PostService {
	return &PostService{
		postRepo:   postRepo,
		groupRepo:  groupRepo,
		followRepo: followRepo,
		images:     images,
		feed:       feed,
		flags:      flags,
	}
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// CreatePost validates in and persists a post owned by author.
// Invalid input is reported as models.FieldErrors and nothing is stored.
func (s *PostService) CreatePost(ctx context.Context, author *models.User, in PostInput) (*models.Post, error) {
	if author == nil {
		return nil, models.NewUnauthorizedError("login required")
	}
	form, group, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Text:     form.Text,
		AuthorID: author.ID,
		GroupID:  form.GroupID,
	}
	var stored string
	if in.Image != nil {
		rel, created, err := s.storeImage(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = rel
		if created {
			stored = rel
		}
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		s.discardImage(ctx, stored)
		return nil, err
	}
	post.Author = *author
	post.Group = group
	middleware.PostsCreated.Inc()

	s.notifyFollowers(ctx, author, post)
	return post, nil
}

// EditPost updates text, group and image of an existing post. The id,
// author and publication date are never changed. Editors other than the
// author get ErrNotAuthor.
func (s *PostService) EditPost(ctx context.Context, editor *models.User, postID uint, in PostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if editor == nil || !post.AuthoredBy(editor.ID) {
		return nil, ErrNotAuthor
	}

	form, _, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}
	post.Text = form.Text
	post.GroupID = form.GroupID
	post.Group = nil
	var stored string
	if in.Image != nil {
		rel, created, err := s.storeImage(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = rel
		if created {
			stored = rel
		}
	}
	if err := s.postRepo.Update(ctx, post); err != nil {
		s.discardImage(ctx, stored)
		return nil, err
	}
	return s.postRepo.GetByID(ctx, postID)
}

// CanEdit reports whether user may open the edit form for post.
func CanEdit(user *models.User, post *models.Post) bool {
	return user != nil && post != nil && post.AuthoredBy(user.ID)
}

// validate checks in and resolves the chosen group, nil when none was picked.
func (s *PostService) validate(ctx context.Context, in PostInput) (validation.PostForm, *models.Group, error) {
	form, errs := validation.NewPostForm(in.Text, in.Group)
	for field, msg := range form.Validate() {
		errs.Add(field, msg)
	}
	var group *models.Group
	if form.GroupID != nil {
		g, err := s.groupRepo.GetByID(ctx, *form.GroupID)
		switch {
		case err == nil:
			group = g
		case models.IsNotFound(err):
			errs.Add("group", validation.MsgInvalidChoice)
		default:
			return form, nil, err
		}
	}
	return form, group, errs.Err()
}

func (s *PostService) storeImage(ctx context.Context, upload ImageUpload) (string, bool, error) {
	if s.images == nil {
		return "", false, models.NewInternalError(errors.New("image storage not configured"))
	}
	return s.images.Store(ctx, upload)
}

// discardImage removes an image written for a post that was never saved.
// Files that existed before the request are left alone.
func (s *PostService) discardImage(ctx context.Context, rel string) {
	if rel == "" {
		return
	}
	if err := s.images.Remove(rel); err != nil {
		middleware.Logger.WarnContext(ctx, "Failed to remove orphaned post image", "path", rel, "error", err)
	}
}

func (s *PostService) notifyFollowers(ctx context.Context, author *models.User, post *models.Post) {
	if s.feed == nil || s.followRepo == nil || !s.flags.Enabled(featureflags.LiveFeed, author.ID) {
		return
	}
	followers, err := s.followRepo.FollowerIDs(ctx, author.ID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "Failed to load followers for feed event", "author_id", author.ID, "error", err)
		return
	}
	payload := notifications.PostCreatedPayload{
		PostID:    post.ID,
		Author:    author.Username,
		Text:      post.String(),
		URL:       PostURL(post.ID),
		CreatedAt: post.CreatedAt,
	}
	if post.Group != nil {
		payload.Group = post.Group.Slug
	}
	if err := s.feed.PublishEvent(ctx, followers, notifications.FeedEvent{
		Type:    notifications.EventPostCreated,
		Payload: payload,
	}); err != nil {
		middleware.Logger.WarnContext(ctx, "Failed to publish feed event", "post_id", post.ID, "error", err)
	}
}
