package service

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/pagination"
	"yatube/internal/repository"
)

// PostPage is one page of a newest-first post listing.
type PostPage = pagination.Page[models.Post]

// ProfileView is everything the profile page shows about an author.
type ProfileView struct {
	Author    *models.User
	PostsNum  int64
	Page      *PostPage
	Followers int64
	Following int64
	// ViewerFollows is only meaningful when the viewer is authenticated.
	ViewerFollows bool
	IsSelf        bool
}

// PostDetail is a post with its author's post count and all comments.
type PostDetail struct {
	Post     *models.Post
	PostsNum int64
	Comments []models.Comment
}

// ListingService builds the read-only pages: index, group, profile, detail and feed.
type ListingService struct {
	postRepo    repository.PostRepository
	groupRepo   repository.GroupRepository
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	commentRepo repository.CommentRepository
	perPage     int
}

func NewListingService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	commentRepo repository.CommentRepository,
) *ListingService {
	return &ListingService{
		postRepo:    postRepo,
		groupRepo:   groupRepo,
		userRepo:    userRepo,
		followRepo:  followRepo,
		commentRepo: commentRepo,
		perPage:     pagination.PostsPerPage,
	}
}

func (s *ListingService) page(ctx context.Context, f repository.PostFilter, rawPage string) (*PostPage, error) {
	return pagination.Fetch(rawPage, s.perPage,
		func() (int64, error) { return s.postRepo.Count(ctx, f) },
		func(offset, limit int) ([]models.Post, error) { return s.postRepo.List(ctx, f, offset, limit) },
	)
}

// Index lists all posts newest first.
func (s *ListingService) Index(ctx context.Context, rawPage string) (*PostPage, error) {
	return s.page(ctx, repository.PostFilter{}, rawPage)
}

// Group lists the posts of the group with slug.
func (s *ListingService) Group(ctx context.Context, slug, rawPage string) (*models.Group, *PostPage, error) {
	group, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	page, err := s.page(ctx, repository.PostFilter{GroupID: group.ID}, rawPage)
	if err != nil {
		return nil, nil, err
	}
	return group, page, nil
}

func (s *ListingService) Groups(ctx context.Context) ([]models.Group, error) {
	return s.groupRepo.List(ctx)
}

// Profile lists an author's posts. viewer may be nil.
func (s *ListingService) Profile(ctx context.Context, viewer *models.User, username, rawPage string) (*ProfileView, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, models.NewNotFoundError("User", username)
	}

	page, err := s.page(ctx, repository.PostFilter{AuthorID: author.ID}, rawPage)
	if err != nil {
		return nil, err
	}
	view := &ProfileView{Author: author, PostsNum: page.Count, Page: page}

	if view.Followers, err = s.followRepo.CountFollowers(ctx, author.ID); err != nil {
		return nil, err
	}
	if view.Following, err = s.followRepo.CountFollowing(ctx, author.ID); err != nil {
		return nil, err
	}
	if viewer != nil {
		view.IsSelf = viewer.ID == author.ID
		if !view.IsSelf {
			if view.ViewerFollows, err = s.followRepo.Exists(ctx, viewer.ID, author.ID); err != nil {
				return nil, err
			}
		}
	}
	return view, nil
}

// PostDetail loads a post, its author's post count and all comments oldest first.
func (s *ListingService) PostDetail(ctx context.Context, id uint) (*PostDetail, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	postsNum, err := s.postRepo.Count(ctx, repository.PostFilter{AuthorID: post.AuthorID})
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: post, PostsNum: postsNum, Comments: comments}, nil
}

// Feed lists posts by authors the user follows.
func (s *ListingService) Feed(ctx context.Context, user *models.User, rawPage string) (*PostPage, error) {
	if user == nil {
		return nil, models.NewUnauthorizedError("login required")
	}
	return s.page(ctx, repository.PostFilter{FollowerID: user.ID}, rawPage)
}
