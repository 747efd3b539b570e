package domain

import "time"

// Plan describes a purchasable plan.
type Plan struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	StripePriceID string `json:"stripe_price_id"`
}

// SubscriptionPlan is derived per request from the billing fields of a user.
type SubscriptionPlan struct {
	Plan
	StripeCustomerID       string
	StripeSubscriptionID   string
	StripeCurrentPeriodEnd *time.Time
	IsPro                  bool
}

// BillingUpdate holds the billing fields written after a completed checkout.
// Nil fields are left untouched.
type BillingUpdate struct {
	CustomerID       *string
	SubscriptionID   *string
	PriceID          *string
	CurrentPeriodEnd *time.Time
}
