package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldName                   = "name"
	fieldImage                  = "image"
	fieldEmailVerified          = "email_verified"
	fieldStripeCustomerID       = "stripe_customer_id"
	fieldStripeSubscriptionID   = "stripe_subscription_id"
	fieldStripePriceID          = "stripe_price_id"
	fieldStripeCurrentPeriodEnd = "stripe_current_period_end"
	fieldUpdatedAt              = "updated_at"
)
