package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Email backends selectable through EMAIL_PROVIDER.
const (
	EmailProviderAWS      = "aws"
	EmailProviderPostmark = "postmark"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	BaseURL        string // site base URL, used for callback and billing return URLs
	AllowedOrigins []string
	CookieSecure   bool

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTPrivateKeyPath       string
	JWTPublicKeyPath        string
	SessionMaxAge           time.Duration
	AuthSecret              string
	VerificationTokenMaxAge time.Duration

	GitHubClientID     string
	GitHubClientSecret string
	// LinkOAuthAccountsByEmail attaches a GitHub identity to an existing user
	// with the same email instead of refusing the sign-in.
	LinkOAuthAccountsByEmail bool

	Email    EmailConfig
	Postmark PostmarkConfig
	SES      SESConfig
	Stripe   StripeConfig
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users              string
	Accounts           string
	VerificationTokens string
}

// EmailConfig holds the product copy shared by the verification emails.
type EmailConfig struct {
	Provider       string // "aws" | "postmark"
	SiteName       string
	CompanyName    string
	LoginURL       string
	SupportEmail   string
	TrialDays      int
	WelcomeSubject string
}

// PostmarkConfig configures the templated email backend.
// Template ids stay strings here; they are parsed when an email is sent.
type PostmarkConfig struct {
	APIToken           string
	From               string
	SignInTemplate     string
	ActivationTemplate string
}

// SESConfig configures the cloud email backend.
type SESConfig struct {
	Region              string
	From                string
	WelcomeTemplatePath string
	WelcomeS3Bucket     string
	WelcomeS3Key        string
}

// StripeConfig configures the payment provider.
type StripeConfig struct {
	APIKey             string
	WebhookSecret      string
	ProPriceID         string
	PaymentMethodTypes []string
	WeChatPayClient    string
	CheckoutMode       string
	ProPlanPeriod      time.Duration
}

// Load reads all configuration from environment variables.
func Load() *Config {
	baseURL := strings.TrimRight(getEnv("BASE_URL", "http://localhost:3000"), "/")
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		BaseURL:        baseURL,
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", "*"),
		CookieSecure:   strings.HasPrefix(baseURL, "https://"),
		AWSRegion:      getEnv("AWS_REGION", "ap-southeast-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:              getEnv("DYNAMO_TABLE_USERS", "users"),
			Accounts:           getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			VerificationTokens: getEnv("DYNAMO_TABLE_VERIFICATION_TOKENS", "verification_tokens"),
		},
		JWTPrivateKeyPath:        getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:         getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		SessionMaxAge:            getEnvDuration("SESSION_MAX_AGE", 30*24*time.Hour),
		AuthSecret:               getEnv("AUTH_SECRET", ""),
		VerificationTokenMaxAge:  getEnvDuration("VERIFICATION_TOKEN_MAX_AGE", 24*time.Hour),
		GitHubClientID:           getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret:       getEnv("GITHUB_CLIENT_SECRET", ""),
		LinkOAuthAccountsByEmail: getEnvBool("OAUTH_LINK_BY_EMAIL", false),
		Email: EmailConfig{
			Provider:       getEnv("EMAIL_PROVIDER", EmailProviderAWS),
			SiteName:       getEnv("SITE_NAME", "LUMOS"),
			CompanyName:    getEnv("COMPANY_NAME", "CS Magic, Inc."),
			LoginURL:       getEnv("LOGIN_URL", baseURL+"/login"),
			SupportEmail:   getEnv("SUPPORT_EMAIL", "support@cs-magic.com"),
			TrialDays:      getEnvInt("TRIAL_DAYS", 7),
			WelcomeSubject: getEnv("WELCOME_SUBJECT", "Welcome to CS Magic !"),
		},
		Postmark: PostmarkConfig{
			APIToken:           getEnv("POSTMARK_API_TOKEN", ""),
			From:               getEnv("POSTMARK_SMTP_FROM", ""),
			SignInTemplate:     getEnv("POSTMARK_SIGN_IN_TEMPLATE", ""),
			ActivationTemplate: getEnv("POSTMARK_ACTIVATION_TEMPLATE", ""),
		},
		SES: SESConfig{
			Region:              getEnv("AWS_SES_REGION", "ap-southeast-1"),
			From:                getEnv("AWS_SMTP_FROM", "noreply@example.com"),
			WelcomeTemplatePath: getEnv("WELCOME_TEMPLATE_PATH", "./public/email.templates/welcome.html"),
			WelcomeS3Bucket:     getEnv("WELCOME_TEMPLATE_S3_BUCKET", ""),
			WelcomeS3Key:        getEnv("WELCOME_TEMPLATE_S3_KEY", "email.templates/welcome.html"),
		},
		Stripe: StripeConfig{
			APIKey:             getEnv("STRIPE_API_KEY", ""),
			WebhookSecret:      getEnv("STRIPE_WEBHOOK_SECRET", ""),
			ProPriceID:         getEnv("STRIPE_PRO_MONTHLY_PLAN_ID", ""),
			PaymentMethodTypes: getEnvList("STRIPE_PAYMENT_METHODS", "alipay,wechat_pay"),
			WeChatPayClient:    getEnv("STRIPE_WECHAT_PAY_CLIENT", "web"),
			CheckoutMode:       getEnv("STRIPE_CHECKOUT_MODE", "payment"),
			ProPlanPeriod:      getEnvDuration("PRO_PLAN_PERIOD", 30*24*time.Hour),
		},
	}
}

// Validate rejects settings the server cannot run with. Only one-off payment
// checkouts are supported: subscription renewals would never be recorded.
func (c *Config) Validate() error {
	var errs []error
	if c.Stripe.CheckoutMode != "payment" {
		errs = append(errs, fmt.Errorf("STRIPE_CHECKOUT_MODE %q: only payment checkouts are supported", c.Stripe.CheckoutMode))
	}
	if c.AppEnv == "production" && c.AuthSecret == "" {
		errs = append(errs, errors.New("AUTH_SECRET is required in production"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key, fallback string) []string {
	var out []string
	for _, s := range strings.Split(getEnv(key, fallback), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
