package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BASE_URL", "")
	t.Setenv("STRIPE_PAYMENT_METHODS", "")
	t.Setenv("EMAIL_PROVIDER", "")

	cfg := Load()

	assert.Equal(t, "http://localhost:3000", cfg.BaseURL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, EmailProviderAWS, cfg.Email.Provider)
	assert.Equal(t, []string{"alipay", "wechat_pay"}, cfg.Stripe.PaymentMethodTypes)
	assert.Equal(t, "payment", cfg.Stripe.CheckoutMode)
	assert.Equal(t, 7, cfg.Email.TrialDays)
	assert.Equal(t, 24*time.Hour, cfg.VerificationTokenMaxAge)
	assert.Equal(t, "http://localhost:3000/login", cfg.Email.LoginURL)
	assert.False(t, cfg.LinkOAuthAccountsByEmail)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BASE_URL", "https://lumos.cs-magic.com/")
	t.Setenv("STRIPE_PAYMENT_METHODS", "card, alipay ,")
	t.Setenv("TRIAL_DAYS", "14")
	t.Setenv("SESSION_MAX_AGE", "1h")
	t.Setenv("POSTMARK_SIGN_IN_TEMPLATE", "123")

	cfg := Load()

	assert.Equal(t, "https://lumos.cs-magic.com", cfg.BaseURL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, []string{"card", "alipay"}, cfg.Stripe.PaymentMethodTypes)
	assert.Equal(t, 14, cfg.Email.TrialDays)
	assert.Equal(t, time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, "123", cfg.Postmark.SignInTemplate)
}

func TestLoad_LinkOAuthAccountsByEmail(t *testing.T) {
	t.Setenv("OAUTH_LINK_BY_EMAIL", "true")
	assert.True(t, Load().LinkOAuthAccountsByEmail)

	t.Setenv("OAUTH_LINK_BY_EMAIL", "sometimes")
	assert.False(t, Load().LinkOAuthAccountsByEmail)
}

func validConfig() *Config {
	return &Config{AppEnv: "production", AuthSecret: "s3cret", Stripe: StripeConfig{CheckoutMode: "payment"}}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	dev := validConfig()
	dev.AppEnv = "development"
	dev.AuthSecret = ""
	assert.NoError(t, dev.Validate())
}

func TestValidate_RejectsSubscriptionCheckout(t *testing.T) {
	cfg := validConfig()
	cfg.Stripe.CheckoutMode = "subscription"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_CHECKOUT_MODE")
}

func TestValidate_RequiresAuthSecretInProduction(t *testing.T) {
	cfg := validConfig()
	cfg.AuthSecret = ""

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_SECRET")
}

func TestLoad_DefaultsValidate(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("STRIPE_CHECKOUT_MODE", "")

	assert.NoError(t, Load().Validate())
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("TRIAL_DAYS", "seven")
	t.Setenv("PRO_PLAN_PERIOD", "a month")

	cfg := Load()

	assert.Equal(t, 7, cfg.Email.TrialDays)
	assert.Equal(t, 30*24*time.Hour, cfg.Stripe.ProPlanPeriod)
}
