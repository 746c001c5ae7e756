package service

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/repository"
)

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo}
}

// Follow subscribes follower to the author named username. Following an
// author twice or following yourself stores nothing; created reports
// whether a new edge was written.
func (s *FollowService) Follow(ctx context.Context, follower *models.User, username string) (author *models.User, created bool, err error) {
	if follower == nil {
		return nil, false, models.NewUnauthorizedError("login required")
	}
	author, err = s.lookupAuthor(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if author.ID == follower.ID {
		return author, false, nil
	}
	created, err = s.followRepo.GetOrCreate(ctx, follower.ID, author.ID)
	if err != nil {
		return nil, false, err
	}
	return author, created, nil
}

// Unfollow removes the follower -> author edge if it exists.
func (s *FollowService) Unfollow(ctx context.Context, follower *models.User, username string) (*models.User, error) {
	if follower == nil {
		return nil, models.NewUnauthorizedError("login required")
	}
	author, err := s.lookupAuthor(ctx, username)
	if err != nil {
		return nil, err
	}
	if _, err := s.followRepo.Delete(ctx, follower.ID, author.ID); err != nil {
		return nil, err
	}
	return author, nil
}

func (s *FollowService) lookupAuthor(ctx context.Context, username string) (*models.User, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return author, nil
}
