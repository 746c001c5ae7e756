package seed

import (
	"context"
	"fmt"
	"log"

	"yatube/internal/database"
	"yatube/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	FollowsPerUser  int
	// MaxDays bounds how far back publication dates are spread.
	MaxDays     int
	ShouldClean bool
	DryRun      bool
	// SkipBcrypt hashes the shared password at the minimum cost.
	SkipBcrypt bool
	// RandomSeed makes runs reproducible when non-zero.
	RandomSeed int64
}

// Summary reports what a Seed run created.
type Summary struct {
	Groups   int
	Users    int
	Posts    int
	Comments int
	Follows  int
}

// Seed populates the database with demo users, posts, comments and follows
// spread over the built-in groups.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	log.Printf("🌱 Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean && !opts.DryRun {
		if err := clearData(db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	sum := &Summary{}

	var groups []models.Group
	if opts.DryRun {
		if groups, err = BuiltInGroups(); err != nil {
			return nil, err
		}
	} else {
		if err := Groups(ctx, db); err != nil {
			return nil, err
		}
		if err := db.WithContext(ctx).Order("id").Find(&groups).Error; err != nil {
			return nil, fmt.Errorf("failed to load groups: %w", err)
		}
	}
	sum.Groups = len(groups)
	log.Printf("✓ %d groups available", sum.Groups)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	log.Printf("✓ %d users created", sum.Users)
	if len(users) == 0 {
		return sum, nil
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		author := users[f.rnd.Intn(len(users))]
		var group *models.Group
		// roughly a third of posts stay outside any group
		if len(groups) > 0 && f.rnd.Intn(3) > 0 {
			group = &groups[f.rnd.Intn(len(groups))]
		}
		posts = append(posts, f.BuildPost(author, group))
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	sum.Posts = len(posts)
	log.Printf("✓ %d posts created", sum.Posts)

	for _, post := range posts {
		for i := 0; i < opts.CommentsPerPost; i++ {
			if _, err := f.CreateComment(users[f.rnd.Intn(len(users))], post); err != nil {
				return nil, fmt.Errorf("failed to create comment: %w", err)
			}
			sum.Comments++
		}
	}
	log.Printf("✓ %d comments created", sum.Comments)

	for _, u := range users {
		followed := 0
		for _, j := range f.rnd.Perm(len(users)) {
			if followed >= opts.FollowsPerUser {
				break
			}
			author := users[j]
			if author.ID == u.ID {
				continue
			}
			if err := f.CreateFollow(u, author); err != nil {
				return nil, fmt.Errorf("failed to create follow: %w", err)
			}
			followed++
		}
		sum.Follows += followed
	}
	log.Printf("✓ %d follows created", sum.Follows)

	log.Println("🎉 Database seeding completed successfully!")
	return sum, nil
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE follows, comments, posts, groups, users RESTART IDENTITY CASCADE;`).Error
	}
	all := database.PersistentModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(all[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
