package stripeinfra

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lumos-api/internal/application/payment"
	"github.com/lumos-api/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const wechatPay = "wechat_pay"

type portalSessions interface {
	New(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Provider creates Stripe billing portal and checkout sessions.
type Provider struct {
	portal   portalSessions
	checkout checkoutSessions
}

func NewClient(apiKey string) *client.API {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return sc
}

func NewProvider(sc *client.API) *Provider {
	return &Provider{portal: sc.BillingPortalSessions, checkout: sc.CheckoutSessions}
}

func (p *Provider) CreatePortalSession(ctx context.Context, req payment.PortalRequest) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(req.CustomerID),
		ReturnURL: stripe.String(req.ReturnURL),
	}
	params.Context = ctx
	s, err := p.portal.New(params)
	if err != nil {
		return "", stripeError("create portal session", err)
	}
	return s.URL, nil
}

func (p *Provider) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (string, error) {
	params := checkoutParams(req)
	params.Context = ctx
	s, err := p.checkout.New(params)
	if err != nil {
		return "", stripeError("create checkout session", err)
	}
	return s.URL, nil
}

func checkoutParams(req payment.CheckoutRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		SuccessURL:               stripe.String(req.SuccessURL),
		CancelURL:                stripe.String(req.CancelURL),
		Mode:                     stripe.String(req.Mode),
		BillingAddressCollection: stripe.String(req.BillingAddressCollection),
		CustomerEmail:            stripe.String(req.CustomerEmail),
	}
	for _, t := range req.PaymentMethodTypes {
		params.PaymentMethodTypes = append(params.PaymentMethodTypes, stripe.String(t))
		if t == wechatPay && req.WeChatPayClient != "" {
			params.PaymentMethodOptions = &stripe.CheckoutSessionPaymentMethodOptionsParams{
				WeChatPay: &stripe.CheckoutSessionPaymentMethodOptionsWeChatPayParams{
					Client: stripe.String(req.WeChatPayClient),
				},
			}
		}
	}
	// One-off payments only get a customer (and thus a portal) when asked for.
	if req.Mode == string(stripe.CheckoutSessionModePayment) {
		params.CustomerCreation = stripe.String(string(stripe.CheckoutSessionCustomerCreationAlways))
	}
	for _, li := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(li.Price),
			Quantity: stripe.Int64(li.Quantity),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

func stripeError(op string, err error) error {
	de := &domain.DispatchError{Backend: "stripe", Err: fmt.Errorf("%s: %w", op, err)}
	if se, ok := err.(*stripe.Error); ok {
		de.Code = string(se.Code)
		de.Message = se.Msg
	}
	return de
}

// Webhook verifies Stripe webhook signatures.
type Webhook struct {
	secret string
}

func NewWebhook(secret string) *Webhook {
	return &Webhook{secret: secret}
}

func (w *Webhook) VerifyEvent(payload []byte, signature string) (payment.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, w.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return payment.Event{}, fmt.Errorf("verify webhook: %v: %w", err, domain.ErrBadRequest)
	}

	out := payment.Event{ID: event.ID, Type: string(event.Type)}
	if out.Type != payment.EventCheckoutCompleted {
		return out, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return payment.Event{}, fmt.Errorf("decode checkout session: %v: %w", err, domain.ErrBadRequest)
	}
	c := &payment.Checkout{UserID: cs.Metadata[payment.MetadataUserID]}
	if cs.Customer != nil {
		c.CustomerID = cs.Customer.ID
	}
	if cs.Subscription != nil {
		c.SubscriptionID = cs.Subscription.ID
	}
	out.Checkout = c
	return out, nil
}
