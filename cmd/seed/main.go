// Command seed fills the configured stores with demo users, blogs and
// comment threads.
package main

import (
	"context"
	"flag"
	"log"

	"writeflow/internal/config"
	"writeflow/internal/database"
	"writeflow/internal/repository"
	"writeflow/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numBlogs := flag.Int("blogs", 60, "Number of blogs to create")
	maxComments := flag.Int("comments", 6, "Maximum top-level comments per blog")
	maxDepth := flag.Int("depth", 3, "Maximum reply nesting depth")
	shouldClean := flag.Bool("clean", true, "Delete existing users and blogs first")
	randSeed := flag.Int64("seed", 0, "Random seed (0 = random)")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var blogs repository.BlogRepository = repository.NewGormBlogRepository(db)
	if cfg.StoreDriver == config.StoreBadger {
		badgerRepo, err := repository.OpenBadgerBlogRepository(cfg.BadgerPath)
		if err != nil {
			log.Fatalf("Failed to open blog store: %v", err)
		}
		defer func() { _ = badgerRepo.Close() }()
		blogs = badgerRepo
	}

	s := seed.NewSeeder(db, blogs, *randSeed)
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx, seed.Options{
		Users:       *numUsers,
		Blogs:       *numBlogs,
		MaxComments: *maxComments,
		MaxDepth:    *maxDepth,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d blogs, %d comments", sum.Users, sum.Blogs, sum.Comments)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
