package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"marketplace/internal/auth"
	"marketplace/internal/errors"
	"marketplace/internal/metrics"
	"marketplace/internal/model"
	"marketplace/internal/repository"
)

// PublicProfile is what anyone can see about a user.
type PublicProfile struct {
	ID         uuid.UUID      `json:"id"`
	Username   string         `json:"username"`
	Profile    model.Profile  `json:"profile"`
	Role       model.Role     `json:"role"`
	Reputation int            `json:"reputation"`
	Vouches    model.VouchSet `json:"vouches"`
	PostCount  int            `json:"postCount"`
	CreatedAt  time.Time      `json:"createdAt"`
	LastActive time.Time      `json:"lastActive"`
}

// UpdateProfileInput holds profile edits. Empty fields keep their value.
type UpdateProfileInput struct {
	Email     string
	Bio       string
	CustomURL string
	Avatar    string
}

// UserService exposes profile and social operations.
type UserService interface {
	GetProfile(ctx context.Context, username string) (*PublicProfile, error)
	UpdateProfile(ctx context.Context, p auth.Principal, in UpdateProfileInput) (*model.User, error)
	// ToggleVouch adds or removes the caller's vouch for target and returns
	// target's vouch sets afterwards.
	ToggleVouch(ctx context.Context, p auth.Principal, target uuid.UUID) (*model.VouchSet, error)
	// GiveRep adds one reputation point to target and returns the new total.
	GiveRep(ctx context.Context, p auth.Principal, target uuid.UUID) (int, error)
}

type userService struct {
	store repository.Store
	log   logrus.FieldLogger
}

// NewUserService builds a UserService.
func NewUserService(store repository.Store, log logrus.FieldLogger) UserService {
	return &userService{store: store, log: log}
}

func (s *userService) GetProfile(ctx context.Context, username string) (*PublicProfile, error) {
	users := s.store.Users()
	user, err := users.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, errors.ErrUserNotFound)
	}
	vouches, err := users.Vouches(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load vouches: %w", err)
	}

	return &PublicProfile{
		ID:         user.ID,
		Username:   user.Username,
		Profile:    user.Profile,
		Role:       user.Role,
		Reputation: user.Reputation,
		Vouches:    *vouches,
		PostCount:  user.PostCount,
		CreatedAt:  user.CreatedAt,
		LastActive: user.LastActive,
	}, nil
}

func (s *userService) UpdateProfile(ctx context.Context, p auth.Principal, in UpdateProfileInput) (*model.User, error) {
	if !p.Authenticated() {
		return nil, errors.ErrUnauthenticated
	}
	users := s.store.Users()
	user, err := users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, notFound(err, errors.ErrUserNotFound)
	}

	if customURL := strings.TrimSpace(in.CustomURL); customURL != "" {
		other, err := users.FindByCustomURL(ctx, customURL)
		switch {
		case err == nil && other.ID != user.ID:
			return nil, errors.ErrCustomURLTaken
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("check custom url: %w", err)
		}
		user.Profile.CustomURL = &customURL
	}

	if email := normalizeEmail(in.Email); email != "" && email != user.Email {
		other, err := users.FindByEmail(ctx, email)
		switch {
		case err == nil && other.ID != user.ID:
			return nil, errors.ErrEmailTaken
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("check email: %w", err)
		}
		user.Email = email
	}

	if in.Bio != "" {
		user.Profile.Bio = in.Bio
	}
	if in.Avatar != "" {
		user.Profile.Avatar = in.Avatar
	}

	if err := users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// lost a race on one of the unique columns
			if user.Profile.CustomURL != nil {
				if other, ferr := users.FindByCustomURL(ctx, *user.Profile.CustomURL); ferr == nil && other.ID != user.ID {
					return nil, errors.ErrCustomURLTaken
				}
			}
			return nil, errors.ErrEmailTaken
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func (s *userService) ToggleVouch(ctx context.Context, p auth.Principal, target uuid.UUID) (*model.VouchSet, error) {
	if !p.Authenticated() {
		return nil, errors.ErrUnauthenticated
	}

	var (
		set   *model.VouchSet
		added bool
	)
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		users := tx.Users()
		// Lock the target row so concurrent toggles on the same pair serialise.
		if _, err := users.FindByIDForUpdate(ctx, target); err != nil {
			return notFound(err, errors.ErrUserNotFound)
		}
		if p.UserID == target {
			return errors.ErrSelfVouch
		}

		exists, err := users.HasVouch(ctx, p.UserID, target)
		if err != nil {
			return fmt.Errorf("check vouch: %w", err)
		}
		if exists {
			err = users.RemoveVouch(ctx, p.UserID, target)
		} else {
			err = users.AddVouch(ctx, p.UserID, target)
		}
		if err != nil {
			return fmt.Errorf("toggle vouch: %w", err)
		}
		added = !exists

		set, err = users.Vouches(ctx, target)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := "removed"
	if added {
		result = "added"
	}
	metrics.RecordSocialAction("vouch", result)
	s.log.WithFields(logrus.Fields{
		"voucher_id": p.UserID,
		"vouchee_id": target,
		"result":     result,
	}).Info("vouch toggled")
	return set, nil
}

func (s *userService) GiveRep(ctx context.Context, p auth.Principal, target uuid.UUID) (int, error) {
	if !p.Authenticated() {
		return 0, errors.ErrUnauthenticated
	}
	users := s.store.Users()
	if err := requireUser(ctx, users, target); err != nil {
		return 0, err
	}
	if p.UserID == target {
		return 0, errors.ErrSelfRep
	}

	reputation, err := users.IncrementReputation(ctx, target, 1)
	if err != nil {
		return 0, fmt.Errorf("increment reputation: %w", err)
	}
	metrics.RecordSocialAction("rep", "incremented")
	return reputation, nil
}
