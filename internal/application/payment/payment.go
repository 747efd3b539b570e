// Package payment defines the contract of the hosted payment provider.
package payment

import "context"

// PortalRequest opens a "manage billing" page for an existing customer.
type PortalRequest struct {
	CustomerID string
	ReturnURL  string
}

// LineItem is one priced entry of a checkout.
type LineItem struct {
	Price    string
	Quantity int64
}

// CheckoutRequest creates a hosted checkout page.
type CheckoutRequest struct {
	SuccessURL               string
	CancelURL                string
	PaymentMethodTypes       []string
	WeChatPayClient          string
	Mode                     string
	BillingAddressCollection string
	CustomerEmail            string
	LineItems                []LineItem
	Metadata                 map[string]string
}

// Provider creates hosted sessions and returns their URL.
type Provider interface {
	CreatePortalSession(ctx context.Context, req PortalRequest) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
}

// Event types handled by the webhook.
const EventCheckoutCompleted = "checkout.session.completed"

// MetadataUserID is the checkout metadata key carrying the user id.
const MetadataUserID = "userId"

// Checkout is the payload of a completed checkout.
type Checkout struct {
	UserID         string
	CustomerID     string
	SubscriptionID string
}

// Event is a verified webhook event. Checkout is set for EventCheckoutCompleted.
type Event struct {
	ID       string
	Type     string
	Checkout *Checkout
}

// EventVerifier checks a webhook signature and decodes the event.
type EventVerifier interface {
	VerifyEvent(payload []byte, signature string) (Event, error)
}
