package service

import (
	"context"
	"sync"
	"testing"

	"yatube/internal/featureflags"
	"yatube/internal/models"
	"yatube/internal/notifications"
	"yatube/internal/repository"
	"yatube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	posts    repository.PostRepository
	groups   repository.GroupRepository
	users    repository.UserRepository
	follows  repository.FollowRepository
	comments repository.CommentRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	return &fixture{
		db:       db,
		posts:    repository.NewPostRepository(db),
		groups:   repository.NewGroupRepository(db),
		users:    repository.NewUserRepository(db),
		follows:  repository.NewFollowRepository(db),
		comments: repository.NewCommentRepository(db),
	}
}

type feedCall struct {
	recipients []uint
	event      notifications.FeedEvent
}

type recordingFeed struct {
	mu    sync.Mutex
	calls []feedCall
}

func (f *recordingFeed) PublishEvent(_ context.Context, recipients []uint, event notifications.FeedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, feedCall{recipients: recipients, event: event})
	return nil
}

type imageStoreStub struct {
	storeFn func(context.Context, ImageUpload) (string, bool, error)
	removed []string
}

func (s *imageStoreStub) Store(ctx context.Context, in ImageUpload) (string, bool, error) {
	return s.storeFn(ctx, in)
}

func (s *imageStoreStub) Remove(rel string) error {
	s.removed = append(s.removed, rel)
	return nil
}

// failingPostRepo delegates reads and fails every write with err.
type failingPostRepo struct {
	repository.PostRepository
	err error
}

func (r *failingPostRepo) Create(context.Context, *models.Post) error { return r.err }
func (r *failingPostRepo) Update(context.Context, *models.Post) error { return r.err }

// groupRepoStub is a stub for repository.GroupRepository.
type groupRepoStub struct {
	getByIDFn func(context.Context, uint) (*models.Group, error)
}

func (s *groupRepoStub) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	return s.getByIDFn(ctx, id)
}
func (s *groupRepoStub) GetBySlug(_ context.Context, slug string) (*models.Group, error) {
	return nil, models.NewNotFoundError("Group", slug)
}
func (s *groupRepoStub) List(_ context.Context) ([]models.Group, error) { return nil, nil }
func (s *groupRepoStub) Create(_ context.Context, _ *models.Group) error {
	return nil
}
func (s *groupRepoStub) UpsertBySlug(_ context.Context, _ []models.Group) error {
	return nil
}

func (f *fixture) postService(feed FeedPublisher, flags string, images ImageStore) *PostService {
	return NewPostService(f.posts, f.groups, f.follows, images, feed, featureflags.NewManager(flags))
}

func assertFieldError(t *testing.T, err error, field, msg string) {
	t.Helper()
	var fe models.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, msg, fe[field])
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}
