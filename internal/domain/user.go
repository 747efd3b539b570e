package domain

import "time"

// User is a record of the user directory. Email is the sign-in key,
// UserID is the key carried by session tokens.
type User struct {
	UserID                 string     `json:"id" dynamodbav:"user_id"`
	Name                   string     `json:"name" dynamodbav:"name"`
	Email                  string     `json:"email" dynamodbav:"email"`
	EmailVerified          *time.Time `json:"emailVerified,omitempty" dynamodbav:"email_verified,omitempty"`
	Image                  string     `json:"image" dynamodbav:"image"`
	StripeCustomerID       *string    `json:"-" dynamodbav:"stripe_customer_id,omitempty"`
	StripeSubscriptionID   *string    `json:"-" dynamodbav:"stripe_subscription_id,omitempty"`
	StripePriceID          *string    `json:"-" dynamodbav:"stripe_price_id,omitempty"`
	StripeCurrentPeriodEnd *time.Time `json:"-" dynamodbav:"stripe_current_period_end,omitempty"`
	CreatedAt              time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt              time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Account links an OAuth provider identity to a user.
// ProviderKey is "<provider>#<provider account id>".
type Account struct {
	ProviderKey       string    `json:"-" dynamodbav:"provider_key"`
	Provider          string    `json:"provider" dynamodbav:"provider"`
	ProviderAccountID string    `json:"provider_account_id" dynamodbav:"provider_account_id"`
	UserID            string    `json:"user_id" dynamodbav:"user_id"`
	CreatedAt         time.Time `json:"created" dynamodbav:"created_at"`
}

// AccountKey builds the partition key of an Account.
func AccountKey(provider, providerAccountID string) string {
	return provider + "#" + providerAccountID
}

// OAuthProfile is the identity returned by an OAuth provider after a code exchange.
type OAuthProfile struct {
	Provider          string
	ProviderAccountID string
	Email             string
	Name              string
	Image             string
}
