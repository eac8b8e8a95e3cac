package model

import "time"

// SubscriptionPlan is a purchasable plan. A price of zero marks the free
// tier, which does not grant premium entitlement.
type SubscriptionPlan struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Price     float64   `json:"price" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the default pluralization.
func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// Subscription ties a user to a plan. Only rows with status "active" count
// towards entitlement.
type Subscription struct {
	ID            int64      `json:"id" gorm:"primaryKey"`
	UserID        int64      `json:"userId" gorm:"index;not null"`
	PlanID        int64      `json:"planId" gorm:"not null"`
	Status        string     `json:"status" gorm:"size:20;not null;default:active"`
	PaymentMethod string     `json:"paymentMethod" gorm:"size:50"`
	AmountPaid    float64    `json:"amountPaid"`
	StartedAt     time.Time  `json:"startedAt"`
	CancelledAt   *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TableName overrides the default pluralization.
func (Subscription) TableName() string {
	return "subscriptions"
}
