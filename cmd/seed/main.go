// Command seed populates the development database with UT Vibe data.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"utvibe/internal/config"
	"utvibe/internal/database"
	"utvibe/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	expired := flag.Float64("expired", 0.1, "Share of posts created already expired")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Build data without writing it")
	fast := flag.Bool("fast", false, "Skip bcrypt when creating users (dev only)")
	rngSeed := flag.Int64("seed", 0, "Random seed for a reproducible run")
	flag.Parse()

	log.Println("🌱 UT Vibe Seeder")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := seed.Options{
		NumUsers:     *numUsers,
		NumPosts:     *numPosts,
		ExpiredRatio: *expired,
		PostTTL:      time.Duration(cfg.PostTTLHours) * time.Hour,
		Seed:         *rngSeed,
		DryRun:       *dryRun,
		SkipBcrypt:   *fast,
	}

	ctx := context.Background()
	var s *seed.Seeder
	if *dryRun {
		s = seed.NewSeeder(nil, opts)
	} else {
		db, err := database.Connect(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		s = seed.NewSeeder(db, opts)
	}

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	stats, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ Created %d users and %d posts (%d likes, %d dislikes, %d bookmarks)",
		stats.Users, stats.Posts, stats.Likes, stats.Dislikes, stats.Bookmarks)
	log.Printf("📧 All seeded users have the password: %s", seed.DefaultPassword)
}
