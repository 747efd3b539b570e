package http

import (
	"context"
	"time"

	"github.com/lumos-api/internal/application/payment"
	"github.com/lumos-api/internal/application/verification"
	"github.com/lumos-api/internal/domain"
	"github.com/lumos-api/internal/pkg/metrics"
	"github.com/lumos-api/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// UserRepository is the minimal interface the router requires from the user directory.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	MarkEmailVerified(ctx context.Context, userID string, at time.Time) error
	UpdateProfile(ctx context.Context, userID, name, image string) error
	UpdateBilling(ctx context.Context, userID string, b domain.BillingUpdate) error
}

// AccountRepository is the minimal interface the router requires from an OAuth account store.
type AccountRepository interface {
	Link(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, provider, providerAccountID string) (*domain.Account, error)
}

// VerificationRepository is the minimal interface the router requires from a verification token store.
type VerificationRepository interface {
	Put(ctx context.Context, v *domain.VerificationToken) error
	Consume(ctx context.Context, identifier, tokenHash string) (*domain.VerificationToken, error)
}

// OAuthProvider is the minimal interface the router requires from the OAuth sign-in provider.
type OAuthProvider interface {
	Name() string
	LoginURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.OAuthProfile, error)
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         UserRepository
	AccountRepo      AccountRepository
	VerificationRepo VerificationRepository
	Email            verification.Strategy
	Payments         payment.Provider
	PaymentEvents    payment.EventVerifier
	OAuth            OAuthProvider
	JWTProvider      middleware.TokenProvider
	Metrics          metrics.Recorder
	Gatherer         prometheus.Gatherer
}
