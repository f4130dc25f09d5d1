// Package seed loads the starter categories, accounts and sample posts.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"marketplace/internal/errors"
	"marketplace/internal/model"
	"marketplace/internal/repository"
)

const bcryptCost = 10

// Account is a user created by the seeder.
type Account struct {
	Username string
	Email    string
	Password string
	Role     model.Role
	Bio      string
}

// Categories are the default marketplace sections.
var Categories = []model.Category{
	{Name: "Digital Goods", Slug: "digital-goods", Description: "Digital products, software, games, and more", Icon: "shopping-bag", Order: 1},
	{Name: "Services", Slug: "services", Description: "Digital services, consultations, and more", Icon: "briefcase", Order: 2},
	{Name: "Tutorials", Slug: "tutorials", Description: "Guides, how-tos, and educational content", Icon: "book-open", Order: 3},
	{Name: "Discussions", Slug: "discussions", Description: "General discussions and community topics", Icon: "message-circle", Order: 4},
}

// Accounts are the default admin and test users.
var Accounts = []Account{
	{Username: "admin", Email: "admin@example.com", Password: "admin123", Role: model.RoleAdmin, Bio: "Administrator of the marketplace"},
	{Username: "testuser", Email: "test@example.com", Password: "password123", Role: model.RoleUser, Bio: "I am a test user on this platform. I love digital goods and gaming!"},
}

type samplePost struct {
	title    string
	content  string
	author   string // email
	category string // slug
	tags     []string
	price    string
}

var samplePosts = []samplePost{
	{
		title:    "Selling Premium UI Kit - Dark Theme",
		content:  "This premium UI kit includes over 200 components for web and mobile apps. Dark theme optimized for modern applications.",
		author:   "admin@example.com",
		category: "digital-goods",
		tags:     []string{"design", "ui", "dark-theme"},
		price:    "49.99",
	},
	{
		title:    "Free Photoshop Actions Pack",
		content:  "Download my free pack of 20 Photoshop actions for photo editing. Great for portraits and landscapes.",
		author:   "test@example.com",
		category: "digital-goods",
		tags:     []string{"photoshop", "freebie", "design"},
	},
	{
		title:    "Web Development Services",
		content:  "Professional web development services. I specialize in React, Go, and MySQL applications.",
		author:   "admin@example.com",
		category: "services",
		tags:     []string{"development", "web", "services"},
		price:    "75",
	},
	{
		title:    "Beginner Guide: How to Set Up Your Development Environment",
		content:  "A complete guide for beginners on setting up a development environment for web development.",
		author:   "admin@example.com",
		category: "tutorials",
		tags:     []string{"tutorial", "beginners", "development"},
	},
	{
		title:    "What programming language should I learn in 2025?",
		content:  "Looking for recommendations on which programming language to learn as a beginner in 2025.",
		author:   "test@example.com",
		category: "discussions",
		tags:     []string{"discussion", "programming", "beginners"},
	},
}

// Result counts what a Run created or refreshed.
type Result struct {
	CategoriesSeeded  int
	CategoriesUpdated int
	UsersSeeded       int
	UsersExisting     int
	PostsSeeded       int
}

// Run upserts the default categories and accounts. Sample posts are only
// added to a store that has none, so repeated runs are safe.
func Run(ctx context.Context, store repository.Store, log logrus.FieldLogger) (*Result, error) {
	res := &Result{}

	seeded, updated, err := seedCategories(ctx, store.Categories(), Categories)
	if err != nil {
		return res, err
	}
	res.CategoriesSeeded, res.CategoriesUpdated = seeded, updated
	log.WithFields(logrus.Fields{"seeded": seeded, "updated": updated}).Info("categories seeded")

	seeded, existing, err := seedAccounts(ctx, store.Users(), Accounts)
	if err != nil {
		return res, err
	}
	res.UsersSeeded, res.UsersExisting = seeded, existing
	log.WithFields(logrus.Fields{"seeded": seeded, "existing": existing}).Info("users seeded")

	n, err := store.Posts().Count(ctx)
	if err != nil {
		return res, fmt.Errorf("count posts: %w", err)
	}
	if n > 0 {
		log.WithField("posts", n).Info("posts present, skipping sample posts")
		return res, nil
	}

	res.PostsSeeded, err = seedPosts(ctx, store)
	if err != nil {
		return res, err
	}
	log.WithField("seeded", res.PostsSeeded).Info("sample posts seeded")
	return res, nil
}

// seedCategories creates missing categories and refreshes existing ones by slug.
func seedCategories(ctx context.Context, repo repository.CategoryRepository, categories []model.Category) (seeded int, updated int, err error) {
	for _, c := range categories {
		category := c
		existing, err := repo.FindBySlug(ctx, category.Slug)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return seeded, updated, fmt.Errorf("error checking category %s: %w", category.Slug, err)
		}

		if existing != nil {
			existing.Name = category.Name
			existing.Description = category.Description
			existing.Icon = category.Icon
			existing.Order = category.Order
			existing.IsActive = true
			if err := repo.Update(ctx, existing); err != nil {
				return seeded, updated, fmt.Errorf("error updating category %s: %w", category.Slug, err)
			}
			updated++
			continue
		}

		category.IsActive = true
		if err := repo.Create(ctx, &category); err != nil {
			return seeded, updated, fmt.Errorf("error creating category %s: %w", category.Slug, err)
		}
		seeded++
	}
	return seeded, updated, nil
}

// seedAccounts creates missing accounts. Existing ones keep their password
// and role.
func seedAccounts(ctx context.Context, repo repository.UserRepository, accounts []Account) (seeded int, existing int, err error) {
	for _, a := range accounts {
		found, err := repo.FindByEmail(ctx, a.Email)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return seeded, existing, fmt.Errorf("error checking user %s: %w", a.Email, err)
		}
		if found != nil {
			existing++
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcryptCost)
		if err != nil {
			return seeded, existing, fmt.Errorf("hash password for %s: %w", a.Email, err)
		}
		user := &model.User{
			Username:     a.Username,
			Email:        a.Email,
			PasswordHash: string(hash),
			Role:         a.Role,
			Profile:      model.Profile{Bio: a.Bio},
			IsActive:     true,
		}
		if err := repo.Create(ctx, user); err != nil {
			return seeded, existing, fmt.Errorf("error creating user %s: %w", a.Email, err)
		}
		seeded++
	}
	return seeded, existing, nil
}

func seedPosts(ctx context.Context, store repository.Store) (int, error) {
	seeded := 0
	err := store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		for _, sp := range samplePosts {
			author, err := tx.Users().FindByEmail(ctx, sp.author)
			if err != nil {
				return fmt.Errorf("find author %s: %w", sp.author, err)
			}
			category, err := tx.Categories().FindBySlug(ctx, sp.category)
			if err != nil {
				return fmt.Errorf("find category %s: %w", sp.category, err)
			}

			post := &model.Post{
				Title:      sp.title,
				Content:    sp.content,
				AuthorID:   author.ID,
				CategoryID: &category.ID,
				Tags:       sp.tags,
				IsFree:     sp.price == "",
			}
			if !post.IsFree {
				post.Price = decimal.RequireFromString(sp.price)
			}
			post.NormalizePrice()

			if err := tx.Posts().Create(ctx, post); err != nil {
				return fmt.Errorf("create post %q: %w", sp.title, err)
			}
			if err := tx.Users().IncrementPostCount(ctx, author.ID, 1); err != nil {
				return err
			}
			seeded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seeded, nil
}

// SetRole changes the role of the user registered with email.
func SetRole(ctx context.Context, store repository.Store, email, role string) (*model.User, error) {
	r, err := model.ParseRole(role)
	if err != nil {
		return nil, errors.ErrInvalidRole
	}

	user, err := store.Users().FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}

	if err := store.Users().UpdateRole(ctx, user.ID, r); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	user.Role = r
	return user, nil
}
