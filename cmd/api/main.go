package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lumos-api/internal/application/dispatch"
	"github.com/lumos-api/internal/application/verification"
	"github.com/lumos-api/internal/config"
	"github.com/lumos-api/internal/infrastructure/dynamo"
	githubinfra "github.com/lumos-api/internal/infrastructure/github"
	jwtinfra "github.com/lumos-api/internal/infrastructure/jwt"
	postmarkinfra "github.com/lumos-api/internal/infrastructure/postmark"
	s3infra "github.com/lumos-api/internal/infrastructure/s3"
	sesinfra "github.com/lumos-api/internal/infrastructure/ses"
	stripeinfra "github.com/lumos-api/internal/infrastructure/stripe"
	"github.com/lumos-api/internal/pkg/logger"
	"github.com/lumos-api/internal/pkg/metrics"
	transporthttp "github.com/lumos-api/internal/transport/http"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	remindTo := flag.String("remind", "", "send a reminder email to this address and exit")
	remindName := flag.String("remind-name", "", "first name used in the reminder template")
	remindTemplate := flag.String("remind-template", "", "SES stored template used for the reminder")
	flag.Parse()

	envErr := godotenv.Load()
	cfg := config.Load()
	logger.SetupDefault(os.Stdout, cfg.AppEnv)
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if *remindTo != "" {
		if err := sendReminder(context.Background(), cfg, *remindTo, *remindName, *remindTemplate); err != nil {
			slog.Error("reminder failed", "to", *remindTo, "error", err)
			os.Exit(1)
		}
		return
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		slog.Error("jwt provider not available", "error", err)
		os.Exit(1)
	}

	strategy, err := emailStrategy(context.Background(), cfg)
	if err != nil {
		slog.Error("email backend not available", "provider", cfg.Email.Provider, "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		AccountRepo:      dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts),
		VerificationRepo: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.VerificationTokens),
		Email:            strategy,
		Payments:         stripeinfra.NewProvider(stripeinfra.NewClient(cfg.Stripe.APIKey)),
		PaymentEvents:    stripeinfra.NewWebhook(cfg.Stripe.WebhookSecret),
		OAuth: githubinfra.NewProvider(githubinfra.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.BaseURL + "/api/auth/callback/github",
		}),
		JWTProvider: jwtProvider,
		Metrics:     collector,
		Gatherer:    registry,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "email", cfg.Email.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// emailStrategy builds the composer and backend selected by EMAIL_PROVIDER.
func emailStrategy(ctx context.Context, cfg *config.Config) (verification.Strategy, error) {
	switch cfg.Email.Provider {
	case config.EmailProviderPostmark:
		return verification.Strategy{
			Composer: verification.PostmarkComposer{
				SignInTemplate:     cfg.Postmark.SignInTemplate,
				ActivationTemplate: cfg.Postmark.ActivationTemplate,
				ProductName:        cfg.Email.SiteName,
			},
			Backend: postmarkinfra.NewBackend(postmarkinfra.NewClient(cfg.Postmark.APIToken), cfg.Postmark.From),
		}, nil
	case config.EmailProviderAWS:
		backend, err := sesBackend(ctx, cfg, true)
		if err != nil {
			return verification.Strategy{}, err
		}
		return verification.Strategy{
			Composer: verification.WelcomeComposer{
				CompanyName:  cfg.Email.CompanyName,
				ProductName:  cfg.Email.SiteName,
				LoginURL:     cfg.Email.LoginURL,
				SupportEmail: cfg.Email.SupportEmail,
				TrialDays:    cfg.Email.TrialDays,
				Subject:      cfg.Email.WelcomeSubject,
			},
			Backend: backend,
		}, nil
	default:
		return verification.Strategy{}, fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}
}

// sesBackend builds the SES backend, loading the welcome template when withWelcome is set.
func sesBackend(ctx context.Context, cfg *config.Config, withWelcome bool) (*sesinfra.Backend, error) {
	client, err := sesinfra.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	templates := map[string]string{}
	if withWelcome {
		var objects sesinfra.ObjectReader
		if cfg.SES.WelcomeS3Bucket != "" {
			objects = s3infra.NewStore(s3infra.NewClient(cfg), cfg.SES.WelcomeS3Bucket)
		}
		body, err := sesinfra.LoadTemplate(ctx, objects, cfg.SES.WelcomeS3Key, cfg.SES.WelcomeTemplatePath)
		if err != nil {
			return nil, err
		}
		templates[dispatch.WelcomeTemplate] = body
	}
	return sesinfra.NewBackend(client, cfg.SES.From, templates)
}

func sendReminder(ctx context.Context, cfg *config.Config, to, firstName, templateName string) error {
	backend, err := sesBackend(ctx, cfg, false)
	if err != nil {
		return err
	}
	res, err := backend.SendReminder(ctx, to, firstName, templateName)
	if err != nil {
		return err
	}
	if res.Failed() {
		return fmt.Errorf("ses rejected reminder: %s: %s", res.ErrorCode, res.Message)
	}
	slog.Info("reminder sent", "to", to, "template", templateName, "message_id", res.MessageID)
	return nil
}
