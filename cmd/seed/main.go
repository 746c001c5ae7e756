// Command main runs the database seeder for Yatube.
package main

import (
	"context"
	"flag"
	"log"

	"yatube/internal/bootstrap"
	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/seed"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 120, "Number of posts to create")
	comments := flag.Int("comments", 2, "Comments per post")
	follows := flag.Int("follows", 3, "Authors each user follows")
	maxDays := flag.Int("days", 90, "Spread publication dates over this many days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Hash the shared password at the minimum bcrypt cost")
	dryRun := flag.Bool("dry-run", false, "Build everything without writing to the database")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = time based)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	ctx := context.Background()
	sum, err := seed.Seed(ctx, db, seed.Options{
		NumUsers:        *numUsers,
		NumPosts:        *numPosts,
		CommentsPerPost: *comments,
		FollowsPerUser:  *follows,
		MaxDays:         *maxDays,
		ShouldClean:     *shouldClean,
		DryRun:          *dryRun,
		SkipBcrypt:      *fast,
		RandomSeed:      *randomSeed,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	// Cached index pages would hide the new posts until they expire.
	if !*dryRun {
		if err := cache.NewPageCache(rdb, cfg.IndexCacheTTL()).Clear(ctx); err != nil {
			log.Printf("⚠️  Could not clear the page cache: %v", err)
		}
	}

	log.Printf("✨ All done! %d groups, %d users, %d posts, %d comments, %d follows.",
		sum.Groups, sum.Users, sum.Posts, sum.Comments, sum.Follows)
	log.Printf("📧 All seeded users have the password: %s", seed.DefaultPassword)
}
