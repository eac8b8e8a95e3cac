package repository

import (
	"context"
	"fmt"
	"time"

	"EchoFM/model"

	"gorm.io/gorm"
)

// SubscriptionRepository manages plans and subscriptions. It runs on the
// GORM handle, the newer of the two database connections.
type SubscriptionRepository interface {
	ListPlans(ctx context.Context) ([]*model.SubscriptionPlan, error)
	GetPlan(ctx context.Context, id int64) (*model.SubscriptionPlan, error)
	Subscribe(ctx context.Context, userID, planID int64, paymentMethod string, amount float64) (*model.Subscription, error)
	Cancel(ctx context.Context, userID int64) error
	HistoryByUser(ctx context.Context, userID int64) ([]*model.Subscription, error)
}

// gormSubscriptionRepository implements SubscriptionRepository with GORM.
type gormSubscriptionRepository struct {
	DB *gorm.DB
}

// NewGormSubscriptionRepository creates a new instance of gormSubscriptionRepository.
func NewGormSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &gormSubscriptionRepository{DB: db}
}

func (r *gormSubscriptionRepository) ListPlans(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	var plans []*model.SubscriptionPlan
	if err := r.DB.WithContext(ctx).Order("price ASC").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

func (r *gormSubscriptionRepository) GetPlan(ctx context.Context, id int64) (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan
	err := r.DB.WithContext(ctx).First(&plan, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}

// Subscribe cancels any active subscription and opens a new one in a single
// transaction.
func (r *gormSubscriptionRepository) Subscribe(ctx context.Context, userID, planID int64, paymentMethod string, amount float64) (*model.Subscription, error) {
	sub := &model.Subscription{
		UserID:        userID,
		PlanID:        planID,
		Status:        "active",
		PaymentMethod: paymentMethod,
		AmountPaid:    amount,
		StartedAt:     time.Now(),
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&model.Subscription{}).
			Where("user_id = ? AND status = ?", userID, "active").
			Updates(map[string]interface{}{"status": "cancelled", "cancelled_at": now}).Error; err != nil {
			return err
		}
		return tx.Create(sub).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return sub, nil
}

// Cancel marks the user's active subscription cancelled. Returns
// gorm.ErrRecordNotFound if there is none.
func (r *gormSubscriptionRepository) Cancel(ctx context.Context, userID int64) error {
	now := time.Now()
	res := r.DB.WithContext(ctx).Model(&model.Subscription{}).
		Where("user_id = ? AND status = ?", userID, "active").
		Updates(map[string]interface{}{"status": "cancelled", "cancelled_at": now})
	if res.Error != nil {
		return fmt.Errorf("failed to cancel subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormSubscriptionRepository) HistoryByUser(ctx context.Context, userID int64) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscription history: %w", err)
	}
	return subs, nil
}
