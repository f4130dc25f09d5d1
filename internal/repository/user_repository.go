package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/model"
)

// UserRepository defines user and vouch persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	// UpdateProfile persists email and profile fields only.
	UpdateProfile(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByCustomURL(ctx context.Context, customURL string) (*model.User, error)
	// List returns all users, newest first.
	List(ctx context.Context) ([]model.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error
	// IncrementReputation adds delta and returns the new value.
	IncrementReputation(ctx context.Context, id uuid.UUID, delta int) (int, error)
	IncrementPostCount(ctx context.Context, id uuid.UUID, delta int) error

	HasVouch(ctx context.Context, voucherID, voucheeID uuid.UUID) (bool, error)
	AddVouch(ctx context.Context, voucherID, voucheeID uuid.UUID) error
	RemoveVouch(ctx context.Context, voucherID, voucheeID uuid.UUID) error
	// Vouches returns the given and received sets of userID, oldest first.
	Vouches(ctx context.Context, userID uuid.UUID) (*model.VouchSet, error)

	Count(ctx context.Context) (int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	CountActiveSince(ctx context.Context, since time.Time) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Model(user).
		Select("email", "profile_avatar", "profile_bio", "profile_custom_url", "updated_at").
		Updates(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDForUpdate finds a user by ID with a row-level lock. Only meaningful
// inside a transaction.
func (r *userRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByCustomURL(ctx context.Context, customURL string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("profile_custom_url = ?", customURL).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	return r.updateColumn(ctx, id, "role", role)
}

func (r *userRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.updateColumn(ctx, id, "is_active", active)
}

func (r *userRepository) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.updateColumn(ctx, id, "last_active", at)
}

func (r *userRepository) IncrementReputation(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	if err := r.updateColumn(ctx, id, "reputation", gorm.Expr("reputation + ?", delta)); err != nil {
		return 0, err
	}
	var reputation int
	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).Pluck("reputation", &reputation).Error; err != nil {
		return 0, err
	}
	return reputation, nil
}

func (r *userRepository) IncrementPostCount(ctx context.Context, id uuid.UUID, delta int) error {
	return r.updateColumn(ctx, id, "post_count", gorm.Expr("post_count + ?", delta))
}

// updateColumn sets one column without touching updated_at. MySQL reports
// unchanged rows as unaffected, so callers check existence themselves.
func (r *userRepository) updateColumn(ctx context.Context, id uuid.UUID, column string, value interface{}) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).UpdateColumn(column, value).Error
}

func (r *userRepository) HasVouch(ctx context.Context, voucherID, voucheeID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Vouch{}).
		Where("voucher_id = ? AND vouchee_id = ?", voucherID, voucheeID).
		Count(&n).Error
	return n > 0, err
}

func (r *userRepository) AddVouch(ctx context.Context, voucherID, voucheeID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&model.Vouch{VoucherID: voucherID, VoucheeID: voucheeID}).Error
}

func (r *userRepository) RemoveVouch(ctx context.Context, voucherID, voucheeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("voucher_id = ? AND vouchee_id = ?", voucherID, voucheeID).
		Delete(&model.Vouch{}).Error
}

func (r *userRepository) Vouches(ctx context.Context, userID uuid.UUID) (*model.VouchSet, error) {
	var edges []model.Vouch
	if err := r.db.WithContext(ctx).
		Where("voucher_id = ? OR vouchee_id = ?", userID, userID).
		Order("created_at ASC").
		Find(&edges).Error; err != nil {
		return nil, err
	}

	set := &model.VouchSet{Given: []uuid.UUID{}, Received: []uuid.UUID{}}
	for _, e := range edges {
		if e.VoucherID == userID {
			set.Given = append(set.Given, e.VoucheeID)
		}
		if e.VoucheeID == userID {
			set.Received = append(set.Received, e.VoucherID)
		}
	}
	return set, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, err
}

func (r *userRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}

func (r *userRepository) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("last_active >= ?", since).Count(&n).Error
	return n, err
}
