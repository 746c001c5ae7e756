package service

import (
	"context"
	"strings"

	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo, postRepo: postRepo}
}

// AddComment attaches a comment by author to an existing post.
func (s *CommentService) AddComment(ctx context.Context, author *models.User, postID uint, text string) (*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	if author == nil {
		return nil, models.NewUnauthorizedError("login required")
	}

	form := validation.CommentForm{Text: strings.TrimSpace(text)}
	if err := form.Validate().Err(); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Text:     form.Text,
		PostID:   postID,
		AuthorID: author.ID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	comment.Author = *author
	return comment, nil
}

// ListComments returns every comment on a post, oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID)
}
