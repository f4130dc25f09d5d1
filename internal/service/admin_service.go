package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"marketplace/internal/auth"
	"marketplace/internal/cache"
	"marketplace/internal/errors"
	"marketplace/internal/model"
	"marketplace/internal/repository"
)

// Stats are the admin dashboard counters.
type Stats struct {
	TotalUsers      int64 `json:"totalUsers"`
	NewUsersToday   int64 `json:"newUsersToday"`
	ActiveUsers     int64 `json:"activeUsers"`
	TotalPosts      int64 `json:"totalPosts"`
	NewPostsToday   int64 `json:"newPostsToday"`
	TotalCategories int64 `json:"totalCategories"`
	TotalReplies    int64 `json:"totalReplies"`
}

// AdminService backs the admin panel. Every call requires PermAdminPanel.
type AdminService interface {
	Stats(ctx context.Context, p auth.Principal) (*Stats, error)
	ListUsers(ctx context.Context, p auth.Principal) ([]model.User, error)
	UpdateRole(ctx context.Context, p auth.Principal, id uuid.UUID, role string) (*model.User, error)
	Ban(ctx context.Context, p auth.Principal, id uuid.UUID, reason string) (*model.User, error)
	Unban(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.User, error)
	ListPosts(ctx context.Context, p auth.Principal) ([]model.Post, error)
}

type adminService struct {
	store repository.Store
	cache *cache.Client
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewAdminService creates a new admin service.
func NewAdminService(store repository.Store, cache *cache.Client, log logrus.FieldLogger) AdminService {
	return &adminService{store: store, cache: cache, log: log, now: time.Now}
}

func (s *adminService) Stats(ctx context.Context, p auth.Principal) (*Stats, error) {
	if err := auth.Require(p, auth.PermAdminPanel); err != nil {
		return nil, err
	}

	now := s.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayAgo := now.Add(-24 * time.Hour)

	users, posts, categories := s.store.Users(), s.store.Posts(), s.store.Categories()
	var (
		stats Stats
		err   error
	)
	if stats.TotalUsers, err = users.Count(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if stats.NewUsersToday, err = users.CountCreatedSince(ctx, todayStart); err != nil {
		return nil, fmt.Errorf("count new users: %w", err)
	}
	if stats.ActiveUsers, err = users.CountActiveSince(ctx, dayAgo); err != nil {
		return nil, fmt.Errorf("count active users: %w", err)
	}
	if stats.TotalPosts, err = posts.Count(ctx); err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	if stats.NewPostsToday, err = posts.CountCreatedSince(ctx, todayStart); err != nil {
		return nil, fmt.Errorf("count new posts: %w", err)
	}
	if stats.TotalCategories, err = categories.Count(ctx); err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	if stats.TotalReplies, err = posts.CountReplies(ctx); err != nil {
		return nil, fmt.Errorf("count replies: %w", err)
	}
	return &stats, nil
}

func (s *adminService) ListUsers(ctx context.Context, p auth.Principal) ([]model.User, error) {
	if err := auth.Require(p, auth.PermAdminPanel); err != nil {
		return nil, err
	}
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *adminService) UpdateRole(ctx context.Context, p auth.Principal, id uuid.UUID, role string) (*model.User, error) {
	if err := auth.Require(p, auth.PermAdminPanel); err != nil {
		return nil, err
	}
	newRole, err := model.ParseRole(role)
	if err != nil {
		return nil, errors.ErrInvalidRole
	}

	user, err := s.mutateUser(ctx, id, func(users repository.UserRepository) error {
		return users.UpdateRole(ctx, id, newRole)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  id,
		"role":     newRole,
		"actor_id": p.UserID,
	}).Info("user role changed")
	return user, nil
}

func (s *adminService) Ban(ctx context.Context, p auth.Principal, id uuid.UUID, reason string) (*model.User, error) {
	if err := auth.Require(p, auth.PermAdminPanel); err != nil {
		return nil, err
	}
	user, err := s.mutateUser(ctx, id, func(users repository.UserRepository) error {
		return users.SetActive(ctx, id, false)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  id,
		"reason":   reason,
		"actor_id": p.UserID,
	}).Warn("user banned")
	return user, nil
}

func (s *adminService) Unban(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.User, error) {
	if err := auth.Require(p, auth.PermAdminPanel); err != nil {
		return nil, err
	}
	user, err := s.mutateUser(ctx, id, func(users repository.UserRepository) error {
		return users.SetActive(ctx, id, true)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": id, "actor_id": p.UserID}).Info("user unbanned")
	return user, nil
}

// mutateUser applies fn to an existing user, drops the cached principal and
// returns the updated row.
func (s *adminService) mutateUser(ctx context.Context, id uuid.UUID, fn func(users repository.UserRepository) error) (*model.User, error) {
	var user *model.User
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		users := tx.Users()
		if _, err := users.FindByIDForUpdate(ctx, id); err != nil {
			return notFound(err, errors.ErrUserNotFound)
		}
		if err := fn(users); err != nil {
			return err
		}
		var err error
		user, err = users.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	_ = s.cache.Delete(ctx, principalKey(id))
	return user, nil
}

func (s *adminService) ListPosts(ctx context.Context, p auth.Principal) ([]model.Post, error) {
	if err := auth.Require(p, auth.PermAdminPanel); err != nil {
		return nil, err
	}
	posts, err := s.store.Posts().List(ctx, repository.PostFilter{Sort: repository.SortLatest})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}
