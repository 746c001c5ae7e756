package seed

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed groups.yml
var builtInGroupsYAML []byte

// BuiltInGroup is one entry of the embedded groups.yml catalogue.
type BuiltInGroup struct {
	Slug        string `yaml:"slug"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// ParseGroups decodes and validates a group catalogue. Slugs must be unique.
func ParseGroups(data []byte) ([]models.Group, error) {
	var items []BuiltInGroup
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode group catalogue: %w", err)
	}

	seen := make(map[string]bool, len(items))
	groups := make([]models.Group, 0, len(items))
	for i, item := range items {
		slug := strings.TrimSpace(item.Slug)
		if err := validation.ValidateGroupSlug(slug); err != nil {
			return nil, fmt.Errorf("group #%d: %w", i+1, err)
		}
		if err := validation.ValidateGroupTitle(item.Title); err != nil {
			return nil, fmt.Errorf("group %s: %w", slug, err)
		}
		if seen[slug] {
			return nil, fmt.Errorf("group %s: duplicate slug", slug)
		}
		seen[slug] = true
		groups = append(groups, models.Group{
			Slug:        slug,
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(item.Description),
		})
	}
	return groups, nil
}

// BuiltInGroups returns the embedded catalogue.
func BuiltInGroups() ([]models.Group, error) {
	return ParseGroups(builtInGroupsYAML)
}

// Groups upserts the built-in groups. Running it again only refreshes
// titles and descriptions.
func Groups(ctx context.Context, db *gorm.DB) error {
	groups, err := BuiltInGroups()
	if err != nil {
		return err
	}
	if err := repository.NewGroupRepository(db).UpsertBySlug(ctx, groups); err != nil {
		return fmt.Errorf("seed built-in groups: %w", err)
	}
	return nil
}
