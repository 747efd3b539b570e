package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lumos-api/internal/application/auth"
	"github.com/lumos-api/internal/application/billing"
	"github.com/lumos-api/internal/application/session"
	"github.com/lumos-api/internal/application/user"
	"github.com/lumos-api/internal/application/verification"
	"github.com/lumos-api/internal/config"
	"github.com/lumos-api/internal/pkg/metrics"
	"github.com/lumos-api/internal/transport/http/handler"
	appmiddleware "github.com/lumos-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, applied to endpoints that send email.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	cookies := appmiddleware.CookieConfig{Secure: cfg.CookieSecure}

	rec := deps.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}

	sessionSvc := session.NewService(session.ServiceDeps{UserRepo: deps.UserRepo})
	verificationSvc := verification.NewService(verification.ServiceDeps{
		UserRepo: deps.UserRepo,
		Strategy: deps.Email,
		Metrics:  rec,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:         deps.UserRepo,
		AccountRepo:      deps.AccountRepo,
		VerificationRepo: deps.VerificationRepo,
		Verification:     verificationSvc,
		Sessions:         sessionSvc,
		JWTProvider:      deps.JWTProvider,
		OAuth:            deps.OAuth,
		Settings: auth.Settings{
			BaseURL:             cfg.BaseURL,
			Secret:              cfg.AuthSecret,
			TokenMaxAge:         cfg.VerificationTokenMaxAge,
			LinkAccountsByEmail: cfg.LinkOAuthAccountsByEmail,
		},
	})
	billingSvc := billing.NewService(billing.ServiceDeps{
		UserRepo: deps.UserRepo,
		Payments: deps.Payments,
		Events:   deps.PaymentEvents,
		Metrics:  rec,
		Settings: billing.Settings{
			BaseURL:            cfg.BaseURL,
			ProPriceID:         cfg.Stripe.ProPriceID,
			PaymentMethodTypes: cfg.Stripe.PaymentMethodTypes,
			WeChatPayClient:    cfg.Stripe.WeChatPayClient,
			CheckoutMode:       cfg.Stripe.CheckoutMode,
			ProPlanPeriod:      cfg.Stripe.ProPlanPeriod,
		},
	})

	userSvc := user.NewService(user.ServiceDeps{UserRepo: deps.UserRepo})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc, cookies, cfg.BaseURL)
	billingH := handler.NewBillingHandler(billingSvc)
	webhookH := handler.NewWebhookHandler(billingSvc)
	userH := handler.NewUserHandler(userSvc)

	r.Get("/health", healthH.Check)
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		// Signed by the payment provider, no session.
		r.Post("/webhooks/stripe", webhookH.Stripe)

		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Session(deps.JWTProvider, sessionSvc, cookies))

			r.With(sensitiveRL.Limit).Post("/auth/signin/email", authH.SignInEmail)
			r.Get("/auth/callback/email", authH.CallbackEmail)
			r.Get("/auth/signin/github", authH.SignInGitHub)
			r.Get("/auth/callback/github", authH.CallbackGitHub)
			r.Get("/auth/session", authH.Session)
			r.Post("/auth/signout", authH.SignOut)

			r.Get("/users/me", userH.Me)
			r.Patch("/users/me", userH.UpdateMe)
			r.Get("/users/stripe", billingH.Stripe)
		})
	})

	return r
}
