package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumos-api/internal/application/payment"
	"github.com/lumos-api/internal/domain"
	"github.com/lumos-api/internal/pkg/metrics"
	"github.com/lumos-api/internal/pkg/validate"
)

// gracePeriod keeps a plan active for a day past its period end.
const gracePeriod = 24 * time.Hour

const billingPath = "/dashboard/billing"

// Session kinds reported to metrics.
const (
	kindPortal   = "portal"
	kindCheckout = "checkout"
)

var freePlan = domain.Plan{
	Name:        "Free",
	Description: "The free plan is limited to 3 posts. Upgrade to the PRO plan for unlimited posts.",
}

// Settings configures checkout sessions.
type Settings struct {
	BaseURL            string
	ProPriceID         string
	PaymentMethodTypes []string
	WeChatPayClient    string
	CheckoutMode       string
	ProPlanPeriod      time.Duration
}

type Service interface {
	Initiate(ctx context.Context, sess *domain.Session) (string, error)
	Plan(ctx context.Context, userID string) (*domain.SubscriptionPlan, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type userStore interface {
	FindByID(ctx context.Context, userID string) (*domain.User, error)
	UpdateBilling(ctx context.Context, userID string, b domain.BillingUpdate) error
}

type service struct {
	users    userStore
	payments payment.Provider
	events   payment.EventVerifier
	metrics  metrics.Recorder
	settings Settings
	now      func() time.Time
}

type ServiceDeps struct {
	UserRepo userStore
	Payments payment.Provider
	Events   payment.EventVerifier
	Metrics  metrics.Recorder
	Settings Settings
}

func NewService(deps ServiceDeps) Service {
	rec := deps.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &service{
		users:    deps.UserRepo,
		payments: deps.Payments,
		events:   deps.Events,
		metrics:  rec,
		settings: deps.Settings,
		now:      time.Now,
	}
}

type initiateInput struct {
	UserID string `json:"id" validate:"required"`
}

// Initiate returns the URL of a billing portal session for paying customers
// and of a checkout session for everyone else.
func (s *service) Initiate(ctx context.Context, sess *domain.Session) (string, error) {
	if sess == nil || sess.User == nil || sess.User.Email == "" {
		return "", domain.ErrAuthenticationRequired
	}
	in := initiateInput{UserID: sess.User.ID}
	if err := validate.Struct(in); err != nil {
		return "", err
	}

	plan, err := s.Plan(ctx, in.UserID)
	if err != nil {
		return "", err
	}

	returnURL := s.settings.BaseURL + billingPath
	if plan.IsPro && plan.StripeCustomerID != "" {
		url, err := s.payments.CreatePortalSession(ctx, payment.PortalRequest{
			CustomerID: plan.StripeCustomerID,
			ReturnURL:  returnURL,
		})
		if err != nil {
			return "", err
		}
		s.metrics.RecordBillingSession(kindPortal)
		return url, nil
	}

	slog.Info("creating checkout session", "user_id", in.UserID)
	url, err := s.payments.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		SuccessURL:               returnURL,
		CancelURL:                returnURL,
		PaymentMethodTypes:       s.settings.PaymentMethodTypes,
		WeChatPayClient:          s.settings.WeChatPayClient,
		Mode:                     s.settings.CheckoutMode,
		BillingAddressCollection: "auto",
		CustomerEmail:            sess.User.Email,
		LineItems:                []payment.LineItem{{Price: s.settings.ProPriceID, Quantity: 1}},
		Metadata:                 map[string]string{payment.MetadataUserID: in.UserID},
	})
	if err != nil {
		return "", err
	}
	s.metrics.RecordBillingSession(kindCheckout)
	return url, nil
}

// Plan derives the subscription state of a user from its billing fields.
func (s *service) Plan(ctx context.Context, userID string) (*domain.SubscriptionPlan, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("subscription plan: %w", err)
	}

	isPro := u.StripePriceID != nil &&
		u.StripeCurrentPeriodEnd != nil &&
		u.StripeCurrentPeriodEnd.Add(gracePeriod).After(s.now())

	plan := &domain.SubscriptionPlan{
		Plan:                   freePlan,
		StripeCurrentPeriodEnd: u.StripeCurrentPeriodEnd,
		IsPro:                  isPro,
	}
	if isPro {
		plan.Plan = s.proPlan()
	}
	if u.StripeCustomerID != nil {
		plan.StripeCustomerID = *u.StripeCustomerID
	}
	if u.StripeSubscriptionID != nil {
		plan.StripeSubscriptionID = *u.StripeSubscriptionID
	}
	return plan, nil
}

func (s *service) proPlan() domain.Plan {
	return domain.Plan{
		Name:          "PRO",
		Description:   "The PRO plan has unlimited posts.",
		StripePriceID: s.settings.ProPriceID,
	}
}

// HandleWebhook verifies a payment provider event and records completed
// checkouts on the user they were opened for.
func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.events.VerifyEvent(payload, signature)
	if err != nil {
		return err
	}
	s.metrics.RecordWebhook(ev.Type)

	if ev.Type != payment.EventCheckoutCompleted || ev.Checkout == nil {
		slog.Debug("ignoring webhook event", "event_id", ev.ID, "type", ev.Type)
		return nil
	}
	c := ev.Checkout
	if c.UserID == "" {
		return fmt.Errorf("checkout %s has no user id: %w", ev.ID, domain.ErrBadRequest)
	}

	end := s.now().Add(s.settings.ProPlanPeriod)
	price := s.settings.ProPriceID
	update := domain.BillingUpdate{
		PriceID:          &price,
		CurrentPeriodEnd: &end,
	}
	if c.CustomerID != "" {
		update.CustomerID = &c.CustomerID
	}
	if c.SubscriptionID != "" {
		update.SubscriptionID = &c.SubscriptionID
	}
	if err := s.users.UpdateBilling(ctx, c.UserID, update); err != nil {
		return fmt.Errorf("record checkout %s: %w", ev.ID, err)
	}
	slog.Info("checkout completed", "event_id", ev.ID, "user_id", c.UserID)
	return nil
}
