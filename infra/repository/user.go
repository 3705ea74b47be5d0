package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirasaad/tradelens/pkg/domain/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.one(ctx, "id = ?", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.one(ctx, "username = ?", username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.one(ctx, "email = ?", email)
}

func (r *userRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*user.User, error) {
	return r.one(ctx, "stripe_subscription_id = ?", subscriptionID)
}

func (r *userRepository) one(ctx context.Context, query string, arg any) (*user.User, error) {
	var model User
	if err := r.db.WithContext(ctx).First(&model, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, mapGormError(err)
	}
	return userToDomain(&model), nil
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	model := User{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Password: u.Password,
	}
	model.CreatedAt = u.CreatedAt
	model.UpdatedAt = u.UpdatedAt
	return mapGormError(r.db.WithContext(ctx).Create(&model).Error)
}

func (r *userRepository) UpdateSubscription(
	ctx context.Context,
	userID uuid.UUID,
	customerID, subscriptionID, priceID string,
	periodEnd time.Time,
) error {
	res := r.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"stripe_customer_id":     customerID,
			"stripe_subscription_id": subscriptionID,
			"stripe_price_id":        priceID,
			"stripe_period_end":      periodEnd,
		})
	if res.Error != nil {
		return mapGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func userToDomain(m *User) *user.User {
	return &user.User{
		ID:                   m.ID,
		Username:             m.Username,
		Email:                m.Email,
		Password:             m.Password,
		StripeCustomerID:     m.StripeCustomerID,
		StripeSubscriptionID: m.StripeSubscriptionID,
		StripePriceID:        m.StripePriceID,
		StripePeriodEnd:      m.StripePeriodEnd,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}
