// Package seed fills a development database with campus users, posts and
// reactions. It is meant for local development and demos only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"utvibe/internal/middleware"
	"utvibe/internal/models"
	"utvibe/internal/reaction"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is shared by every seeded account.
const DefaultPassword = "password123"

// Campus center used to scatter post locations.
const (
	campusLat = 30.2849
	campusLng = -97.7341
)

// Options controls how much data the seeder creates.
type Options struct {
	NumUsers int
	NumPosts int
	// ExpiredRatio is the share of posts created already expired.
	ExpiredRatio float64
	PostTTL      time.Duration
	// Seed makes a run reproducible; zero picks a time based seed.
	Seed       int64
	DryRun     bool
	SkipBcrypt bool
}

var places = []string{
	"Gregory Gym", "PCL", "the Union", "Speedway", "the Tower lawn", "Jester",
	"the Drag", "Welch Hall", "GDC", "Littlefield Fountain", "the Stadium", "SAC",
}

var titleTemplates = map[string][]string{
	models.CategoryEvent:       {"Open mic tonight at %s", "Career fair overflow at %s", "Movie screening at %s"},
	models.CategoryGathering:   {"Pickup frisbee near %s", "Hammocking at %s", "Anyone at %s right now?"},
	models.CategoryLostFound:   {"Found a water bottle at %s", "Lost my ID card near %s", "AirPods left at %s"},
	models.CategoryFood:        {"Free pizza at %s", "Taco truck parked by %s", "Leftover catering at %s"},
	models.CategorySports:      {"Intramural basketball at %s", "Need one more for volleyball at %s"},
	models.CategoryMusic:       {"Band playing outside %s", "Jam session at %s"},
	models.CategoryStudy:       {"Study group for M 408D at %s", "Quiet tables open at %s"},
	models.CategoryCelebration: {"Graduation photos at %s", "Birthday party at %s"},
	models.CategoryClub:        {"Club tabling at %s", "Robotics demo at %s"},
	models.CategoryOther:       {"Something is happening at %s", "Long line at %s"},
}

// Factory builds users, posts and reactions from a seeded faker.
type Factory struct {
	opts   Options
	faker  *gofakeit.Faker
	nextID uint
}

func NewFactory(opts Options) *Factory {
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.PostTTL <= 0 {
		opts.PostTTL = 7 * 24 * time.Hour
	}
	return &Factory{opts: opts, faker: gofakeit.New(opts.Seed), nextID: 1000}
}

// BuildUser returns an unsaved user with a utexas.edu address unique to n.
func (f *Factory) BuildUser(n int) *models.User {
	first, last := f.faker.FirstName(), f.faker.LastName()
	user := &models.User{
		Name:  first + " " + last,
		Email: strings.ToLower(fmt.Sprintf("%s.%s.%d@utexas.edu", first, last, n)),
	}

	if f.opts.SkipBcrypt {
		user.Password = DefaultPassword
	} else {
		hashed, _ := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		user.Password = string(hashed)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
	}
	return user
}

// chance returns a uniform value in [0, 1).
func (f *Factory) chance() float64 {
	return f.faker.Float64Range(0, 1)
}

// BuildPost returns an unsaved post by author. CreatedAt is spread over the
// TTL window so the feed has a realistic age mix.
func (f *Factory) BuildPost(author *models.User, now time.Time) *models.Post {
	category := models.Categories[f.faker.Number(0, len(models.Categories)-1)]
	templates := titleTemplates[category]
	place := places[f.faker.Number(0, len(places)-1)]

	age := time.Duration(f.chance() * float64(f.opts.PostTTL))
	if f.chance() < f.opts.ExpiredRatio {
		age = f.opts.PostTTL + time.Duration(f.faker.Number(1, 72))*time.Hour
	}
	created := now.Add(-age)

	post := &models.Post{
		AuthorID:     author.ID,
		Title:        fmt.Sprintf(templates[f.faker.Number(0, len(templates)-1)], place),
		Description:  f.faker.Sentence(f.faker.Number(6, 18)),
		Category:     category,
		Tags:         pq.StringArray{strings.ToLower(f.faker.Noun()), "ut"},
		IsAnonymous:  f.chance() < 0.15,
		Images:       pq.StringArray{},
		ImageIDs:     pq.StringArray{},
		LikedBy:      pq.StringArray{},
		DislikedBy:   pq.StringArray{},
		BookmarkedBy: pq.StringArray{},
		CreatedAt:    created,
		ExpiresAt:    created.Add(f.opts.PostTTL),
	}
	if f.chance() < 0.6 {
		post.Location = &models.Location{
			Latitude:  campusLat + (f.chance()-0.5)*0.02,
			Longitude: campusLng + (f.chance()-0.5)*0.02,
			Name:      place,
		}
	}
	if f.opts.DryRun {
		post.ID = f.faker.UUID()
	}
	return post
}

// React applies random reactions from users to post through the same toggle
// used by the API, so counters always match the sets.
func (f *Factory) React(post *models.Post, users []*models.User) {
	for _, u := range users {
		member := u.MemberKey()
		switch r := f.chance(); {
		case r < 0.35:
			reaction.Toggle(post, member, reaction.Like)
		case r < 0.5:
			reaction.Toggle(post, member, reaction.Dislike)
		}
		if f.chance() < 0.1 {
			reaction.Toggle(post, member, reaction.Bookmark)
		}
	}
}

// Stats summarizes a run.
type Stats struct {
	Users     int
	Posts     int
	Likes     int
	Dislikes  int
	Bookmarks int
}

// Seeder writes factory output to the database.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(opts), opts: opts}
}

// ClearAll deletes every location, post and user.
func (s *Seeder) ClearAll(ctx context.Context) error {
	if s.opts.DryRun {
		return nil
	}
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&models.Location{}, &models.Post{}, &models.User{}} {
		if err := db.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	middleware.Logger.Info("cleared existing data")
	return nil
}

// Run creates users, then posts with reactions from those users.
func (s *Seeder) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	now := time.Now()

	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := range s.opts.NumUsers {
		users = append(users, s.factory.BuildUser(i))
	}
	if !s.opts.DryRun && len(users) > 0 {
		if err := s.db.WithContext(ctx).CreateInBatches(users, 100).Error; err != nil {
			return stats, fmt.Errorf("create users: %w", err)
		}
	}
	stats.Users = len(users)
	if len(users) == 0 {
		return stats, nil
	}

	for range s.opts.NumPosts {
		author := users[s.factory.faker.Number(0, len(users)-1)]
		post := s.factory.BuildPost(author, now)
		s.factory.React(post, users)

		if !s.opts.DryRun {
			if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
				return stats, fmt.Errorf("create post: %w", err)
			}
		}
		stats.Posts++
		stats.Likes += post.Likes
		stats.Dislikes += post.Dislikes
		stats.Bookmarks += len(post.BookmarkedBy)
	}

	middleware.Logger.Info("seed complete",
		slog.Int("users", stats.Users),
		slog.Int("posts", stats.Posts),
		slog.Int("likes", stats.Likes),
		slog.Int("dislikes", stats.Dislikes),
		slog.Int("bookmarks", stats.Bookmarks),
	)
	return stats, nil
}
