package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/lumos-api/internal/application/verification"
	"github.com/lumos-api/internal/domain"
	"github.com/lumos-api/internal/pkg/id"
	"github.com/lumos-api/internal/pkg/token"
	"github.com/lumos-api/internal/pkg/validate"
)

const (
	emailProvider       = "email"
	emailCallbackPath   = "/api/auth/callback/email"
	defaultCallbackPath = "/dashboard"
)

type EmailSignInRequest struct {
	Email       string `json:"email" validate:"required,email"`
	CallbackURL string `json:"callbackUrl"`
}

// SignInResult is a freshly signed session token and where to send the user.
type SignInResult struct {
	SessionToken string
	Expires      time.Time
	CallbackURL  string
	User         *domain.User
}

type Service interface {
	RequestEmailSignIn(ctx context.Context, req EmailSignInRequest) error
	CompleteEmailSignIn(ctx context.Context, email, rawToken, callbackURL string) (*SignInResult, error)
	OAuthLoginURL(state string) string
	CompleteOAuthSignIn(ctx context.Context, code string) (*SignInResult, error)
}

type userStore interface {
	FindByID(ctx context.Context, userID string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	MarkEmailVerified(ctx context.Context, userID string, at time.Time) error
}

type accountStore interface {
	Link(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, provider, providerAccountID string) (*domain.Account, error)
}

type verificationStore interface {
	Put(ctx context.Context, v *domain.VerificationToken) error
	Consume(ctx context.Context, identifier, tokenHash string) (*domain.VerificationToken, error)
}

type verificationSender interface {
	SendVerificationRequest(ctx context.Context, p verification.Params) error
}

type tokenRefresher interface {
	Token(ctx context.Context, tok domain.Token, user *domain.User) (domain.Token, error)
}

type tokenSigner interface {
	Sign(tok domain.Token) (string, time.Time, error)
}

type oauthProvider interface {
	Name() string
	LoginURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.OAuthProfile, error)
}

// Settings configures sign-in links.
type Settings struct {
	BaseURL     string
	Secret      string
	TokenMaxAge time.Duration
	// LinkAccountsByEmail lets an OAuth identity attach to an existing user
	// with the same email. Off, such sign-ins fail with ErrAccountNotLinked.
	LinkAccountsByEmail bool
}

type service struct {
	users         userStore
	accounts      accountStore
	verifications verificationStore
	sender        verificationSender
	sessions      tokenRefresher
	signer        tokenSigner
	oauth         oauthProvider
	settings      Settings
	now           func() time.Time
}

type ServiceDeps struct {
	UserRepo         userStore
	AccountRepo      accountStore
	VerificationRepo verificationStore
	Verification     verificationSender
	Sessions         tokenRefresher
	JWTProvider      tokenSigner
	OAuth            oauthProvider
	Settings         Settings
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:         deps.UserRepo,
		accounts:      deps.AccountRepo,
		verifications: deps.VerificationRepo,
		sender:        deps.Verification,
		sessions:      deps.Sessions,
		signer:        deps.JWTProvider,
		oauth:         deps.OAuth,
		settings:      deps.Settings,
		now:           time.Now,
	}
}

// RequestEmailSignIn stores a hashed single-use token and emails the sign-in link.
func (s *service) RequestEmailSignIn(ctx context.Context, req EmailSignInRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := validate.Struct(req); err != nil {
		return err
	}

	raw, err := token.NewVerificationToken()
	if err != nil {
		return err
	}
	v := &domain.VerificationToken{
		Identifier: req.Email,
		TokenHash:  token.Hash(raw, s.settings.Secret),
		ExpiresAt:  s.now().Add(s.settings.TokenMaxAge).Unix(),
	}
	if err := s.verifications.Put(ctx, v); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	q := url.Values{}
	q.Set("callbackUrl", s.callbackURL(req.CallbackURL))
	q.Set("token", raw)
	q.Set("email", req.Email)
	link := s.settings.BaseURL + emailCallbackPath + "?" + q.Encode()

	return s.sender.SendVerificationRequest(ctx, verification.Params{
		Identifier: req.Email,
		URL:        link,
		Provider:   emailProvider,
		Token:      raw,
	})
}

// CompleteEmailSignIn consumes the token from a sign-in link, creates or
// verifies the user and signs a session token.
func (s *service) CompleteEmailSignIn(ctx context.Context, email, rawToken, callbackURL string) (*SignInResult, error) {
	email = normalizeEmail(email)
	if email == "" || rawToken == "" {
		return nil, fmt.Errorf("missing email or token: %w", domain.ErrUnauthorized)
	}

	v, err := s.verifications.Consume(ctx, email, token.Hash(rawToken, s.settings.Secret))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("verification token: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	now := s.now()
	if v.ExpiresAt < now.Unix() {
		return nil, fmt.Errorf("verification token expired: %w", domain.ErrUnauthorized)
	}

	u, err := s.users.FindByEmail(ctx, email)
	created := false
	if errors.Is(err, domain.ErrNotFound) {
		verified := now.UTC()
		u, created, err = s.createUser(ctx, &domain.User{
			UserID:        id.New(),
			Email:         email,
			EmailVerified: &verified,
			CreatedAt:     verified,
			UpdatedAt:     verified,
		})
	}
	if err != nil {
		return nil, err
	}
	if !created {
		if err := s.users.MarkEmailVerified(ctx, u.UserID, now); err != nil {
			return nil, fmt.Errorf("mark email verified: %w", err)
		}
	}

	return s.issue(ctx, u, s.callbackURL(callbackURL))
}

func (s *service) OAuthLoginURL(state string) string {
	return s.oauth.LoginURL(state)
}

// CompleteOAuthSignIn exchanges the authorization code and resolves the user
// by linked account, creating one if the email is unknown. An existing user
// with the same email is linked only when LinkAccountsByEmail is set.
func (s *service) CompleteOAuthSignIn(ctx context.Context, code string) (*SignInResult, error) {
	profile, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth exchange: %v: %w", err, domain.ErrUnauthorized)
	}

	acct, err := s.accounts.Get(ctx, profile.Provider, profile.ProviderAccountID)
	if err == nil {
		u, err := s.users.FindByID(ctx, acct.UserID)
		if err != nil {
			return nil, fmt.Errorf("linked user %s: %w", acct.UserID, err)
		}
		return s.issue(ctx, u, s.settings.BaseURL+defaultCallbackPath)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	email := normalizeEmail(profile.Email)
	if email == "" {
		return nil, fmt.Errorf("%s account has no verified email: %w", profile.Provider, domain.ErrBadRequest)
	}
	u, err := s.users.FindByEmail(ctx, email)
	created := false
	if errors.Is(err, domain.ErrNotFound) {
		now := s.now().UTC()
		u, created, err = s.createUser(ctx, &domain.User{
			UserID:    id.New(),
			Name:      profile.Name,
			Email:     email,
			Image:     profile.Image,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err != nil {
		return nil, err
	}
	if !created && !s.settings.LinkAccountsByEmail {
		return nil, fmt.Errorf("%s account for %s: %w", profile.Provider, email, domain.ErrAccountNotLinked)
	}

	if err := s.accounts.Link(ctx, &domain.Account{
		Provider:          profile.Provider,
		ProviderAccountID: profile.ProviderAccountID,
		UserID:            u.UserID,
		CreatedAt:         s.now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("link account: %w", err)
	}
	slog.Info("account linked", "provider", profile.Provider, "user_id", u.UserID)

	return s.issue(ctx, u, s.settings.BaseURL+defaultCallbackPath)
}

// createUser inserts u. When a concurrent sign-in reserved the email first,
// the user it created is returned with created false.
func (s *service) createUser(ctx context.Context, u *domain.User) (*domain.User, bool, error) {
	err := s.users.Create(ctx, u)
	if err == nil {
		return u, true, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	existing, err := s.users.FindByEmail(ctx, u.Email)
	if err != nil {
		return nil, false, fmt.Errorf("re-read user %s: %w", u.Email, err)
	}
	return existing, false, nil
}

// issue runs the token step for a freshly authenticated user and signs the result.
func (s *service) issue(ctx context.Context, u *domain.User, callbackURL string) (*SignInResult, error) {
	tok, err := s.sessions.Token(ctx, domain.Token{Name: u.Name, Email: u.Email, Picture: u.Image}, u)
	if err != nil {
		return nil, err
	}
	signed, exp, err := s.signer.Sign(tok)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &SignInResult{SessionToken: signed, Expires: exp, CallbackURL: callbackURL, User: u}, nil
}

// callbackURL keeps redirects on this site: relative paths are resolved
// against the base URL and foreign hosts fall back to the dashboard.
func (s *service) callbackURL(raw string) string {
	switch {
	case raw == "":
		return s.settings.BaseURL + defaultCallbackPath
	case strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//"):
		return s.settings.BaseURL + raw
	case raw == s.settings.BaseURL || strings.HasPrefix(raw, s.settings.BaseURL+"/"):
		return raw
	default:
		return s.settings.BaseURL + defaultCallbackPath
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
