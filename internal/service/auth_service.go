package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"marketplace/internal/auth"
	"marketplace/internal/cache"
	"marketplace/internal/errors"
	"marketplace/internal/metrics"
	"marketplace/internal/model"
	"marketplace/internal/repository"
)

const bcryptCost = 10

const (
	minUsernameLength = 3
	maxUsernameLength = 20
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         *model.User `json:"user"`
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// Refresh exchanges a stored refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// Logout revokes the access token behind claims and, when given, the
	// refresh token.
	Logout(ctx context.Context, claims *auth.Claims, refreshToken string) error
	// Me returns the caller's account and marks it active.
	Me(ctx context.Context, p auth.Principal) (*model.User, error)
	// Authenticate resolves validated access-token claims into a Principal.
	Authenticate(ctx context.Context, claims *auth.Claims) (auth.Principal, error)
}

type authService struct {
	store      repository.Store
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	cache      *cache.Client
	log        logrus.FieldLogger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store repository.Store,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	cache *cache.Client,
	log logrus.FieldLogger,
) AuthService {
	return &authService{
		store:      store,
		jwtService: jwtService,
		tokenStore: tokenStore,
		cache:      cache,
		log:        log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new account with hashed password and signs it in.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	users := s.store.Users()
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return nil, invalidInput("username must be %d-%d characters", minUsernameLength, maxUsernameLength)
	}

	if _, err := users.FindByUsername(ctx, username); err == nil {
		return nil, errors.ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if _, err := users.FindByEmail(ctx, email); err == nil {
		return nil, errors.ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// lost a race with a concurrent registration
			if _, ferr := users.FindByEmail(ctx, email); ferr == nil {
				return nil, errors.ErrEmailTaken
			}
			return nil, errors.ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	metrics.RecordRegistration()
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user registered")
	return s.issueTokens(ctx, user)
}

// Login authenticates a user by email and password.
func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	users := s.store.Users()
	user, err := users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, errors.ErrAccountBanned
	}

	now := time.Now()
	if err := users.TouchLastActive(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("touch last active: %w", err)
	}
	user.LastActive = now

	return s.issueTokens(ctx, user)
}

func (s *authService) issueTokens(ctx context.Context, user *model.User) (*AuthResult, error) {
	_, accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, user.ID, auth.RefreshTokenExpiry); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &AuthResult{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}

// Refresh validates a refresh token and returns a new access token carrying
// the user's current role.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", errors.ErrInvalidToken
	}

	storedUserID, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil || storedUserID != claims.UserID {
		return "", errors.ErrInvalidToken
	}

	user, err := s.store.Users().FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", errors.ErrInvalidToken
		}
		return "", fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return "", errors.ErrAccountBanned
	}

	_, accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout blacklists the current access token until it expires and deletes
// the refresh token.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims, refreshToken string) error {
	if claims == nil {
		return errors.ErrUnauthenticated
	}

	if refreshToken != "" {
		refreshClaims, err := s.jwtService.ValidateRefreshToken(refreshToken)
		if err != nil || refreshClaims.UserID != claims.UserID {
			return errors.ErrInvalidToken
		}
		if err := s.tokenStore.DeleteRefreshToken(ctx, refreshClaims.ID); err != nil {
			return fmt.Errorf("delete refresh token: %w", err)
		}
	}

	if claims.ID != "" {
		if err := s.tokenStore.BlacklistAccessToken(ctx, claims.ID, s.jwtService.RemainingTTL(claims)); err != nil {
			return fmt.Errorf("blacklist access token: %w", err)
		}
	}
	return nil
}

// Me returns the caller's account.
func (s *authService) Me(ctx context.Context, p auth.Principal) (*model.User, error) {
	if !p.Authenticated() {
		return nil, errors.ErrUnauthenticated
	}
	users := s.store.Users()
	user, err := users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, notFound(err, errors.ErrUserNotFound)
	}

	now := time.Now()
	if err := users.TouchLastActive(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("touch last active: %w", err)
	}
	user.LastActive = now
	return user, nil
}

type cachedPrincipal struct {
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	IsActive bool       `json:"isActive"`
}

// Authenticate turns token claims into a Principal. The user is re-read
// (through a short-lived cache) so bans and role changes apply without a new
// login.
func (s *authService) Authenticate(ctx context.Context, claims *auth.Claims) (auth.Principal, error) {
	if claims == nil || claims.UserID == uuid.Nil {
		return auth.Principal{}, errors.ErrInvalidToken
	}
	if claims.ID != "" {
		if revoked, _ := s.tokenStore.IsAccessTokenBlacklisted(ctx, claims.ID); revoked {
			return auth.Principal{}, errors.ErrInvalidToken
		}
	}

	key := principalKey(claims.UserID)
	var cached cachedPrincipal
	if !s.cache.GetJSON(ctx, key, &cached) {
		user, err := s.store.Users().FindByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return auth.Principal{}, errors.ErrInvalidToken
			}
			return auth.Principal{}, fmt.Errorf("load principal: %w", err)
		}
		cached = cachedPrincipal{Username: user.Username, Role: user.Role, IsActive: user.IsActive}
		s.cache.SetJSON(ctx, key, cached, principalCacheTTL)
	}

	if !cached.IsActive {
		return auth.Principal{}, errors.ErrAccountBanned
	}
	return auth.Principal{UserID: claims.UserID, Username: cached.Username, Role: cached.Role}, nil
}
