package repository

import (
	"context"

	"yatube/internal/cache"
	"yatube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupRepository defines persistence operations for groups.
type GroupRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Group, error)
	GetBySlug(ctx context.Context, slug string) (*models.Group, error)
	List(ctx context.Context) ([]models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	UpsertBySlug(ctx context.Context, groups []models.Group) error
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository returns a new GroupRepository implementation.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, notFoundOr(err, "Group", id)
	}
	return &group, nil
}

func (r *groupRepository) GetBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	err := cache.Aside(ctx, cache.GroupKey(slug), &group, cache.GroupTTL, func() error {
		return r.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error
	})
	if err != nil {
		return nil, notFoundOr(err, "Group", slug)
	}
	return &group, nil
}

// List returns every group ordered by title.
func (r *groupRepository) List(ctx context.Context) ([]models.Group, error) {
	groups := []models.Group{}
	err := cache.Aside(ctx, cache.GroupsListKey, &groups, cache.GroupTTL, func() error {
		return r.db.WithContext(ctx).Order("title ASC").Order("id ASC").Find(&groups).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return groups, nil
}

func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Group with slug " + group.Slug + " already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateGroups(ctx, group.Slug)
	return nil
}

// UpsertBySlug inserts groups, refreshing title and description of slugs
// that already exist.
func (r *groupRepository) UpsertBySlug(ctx context.Context, groups []models.Group) error {
	if len(groups) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "updated_at"}),
	}).Create(&groups).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	slugs := make([]string, 0, len(groups))
	for _, g := range groups {
		slugs = append(slugs, g.Slug)
	}
	cache.InvalidateGroups(ctx, slugs...)
	return nil
}
